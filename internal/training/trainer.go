package training

import (
	"io"
	"log"
	"time"

	"taxi-duration-lab/internal/domain"
	"taxi-duration-lab/internal/features"
	"taxi-duration-lab/internal/model"
)

// Result holds a fitted artifact and its fit quality.
type Result struct {
	Artifact  *model.Artifact
	TrainRows int
	TrainRMSE float64
	ValRows   int
	ValRMSE   *float64 // nil without validation data
}

// Trainer fits duration models for one taxi type and feature layout.
type Trainer struct {
	taxiType domain.TaxiType
	layout   domain.FeatureLayout
	opts     FitOptions
	logger   *log.Logger
}

// NewTrainer creates a Trainer. A nil logger discards output.
func NewTrainer(taxiType domain.TaxiType, layout domain.FeatureLayout, opts FitOptions, logger *log.Logger) *Trainer {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Trainer{taxiType: taxiType, layout: layout, opts: opts, logger: logger}
}

// Train prepares train and val the same way the batch job does, fits on
// train and reports RMSE on both. val may be empty.
func (t *Trainer) Train(train, val []domain.TripRecord) (*Result, error) {
	prepared := features.Prepare(train)
	t.logger.Printf("training rows: %d of %d retained, mean duration %.3f min",
		len(prepared), len(train), meanDuration(prepared))

	dicts := features.BuildDicts(prepared, t.layout)
	y := durations(prepared)

	dv, lr, err := Fit(dicts, y, t.opts)
	if err != nil {
		return nil, err
	}
	t.logger.Printf("vectorizer has %d features", len(dv.FeatureNames))

	scorer := model.NewScorer(dv, lr)
	res := &Result{
		TrainRows: len(prepared),
		TrainRMSE: RMSE(y, scorer.Score(dicts)),
	}
	t.logger.Printf("training RMSE: %.4f", res.TrainRMSE)

	metrics := map[string]float64{
		"train_rows": float64(res.TrainRows),
		"train_rmse": res.TrainRMSE,
	}

	if len(val) > 0 {
		valPrepared := features.Prepare(val)
		t.logger.Printf("validation rows: %d of %d retained, mean duration %.3f min",
			len(valPrepared), len(val), meanDuration(valPrepared))

		if len(valPrepared) > 0 {
			valDicts := features.BuildDicts(valPrepared, t.layout)
			rmse := RMSE(durations(valPrepared), scorer.Score(valDicts))
			res.ValRows = len(valPrepared)
			res.ValRMSE = &rmse
			metrics["val_rows"] = float64(res.ValRows)
			metrics["val_rmse"] = rmse
			t.logger.Printf("validation RMSE: %.4f", rmse)
		}
	}

	res.Artifact = &model.Artifact{
		Format:     model.ArtifactFormat,
		TaxiType:   t.taxiType,
		Layout:     t.layout,
		Vectorizer: dv,
		Regressor:  lr,
		Metrics:    metrics,
		CreatedAt:  time.Now().UnixMilli(),
	}
	return res, nil
}

// TrainingPeriods returns the months a model trained on runDate uses:
// two months back for training and the previous month for validation.
func TrainingPeriods(runDate time.Time) (trainYear, trainMonth, valYear, valMonth int) {
	first := time.Date(runDate.Year(), runDate.Month(), 1, 0, 0, 0, 0, time.UTC)
	train := first.AddDate(0, -2, 0)
	val := first.AddDate(0, -1, 0)
	return train.Year(), int(train.Month()), val.Year(), int(val.Month())
}

func durations(prepared []domain.PreparedRecord) []float64 {
	y := make([]float64, len(prepared))
	for i, p := range prepared {
		y[i] = p.Duration
	}
	return y
}

func meanDuration(prepared []domain.PreparedRecord) float64 {
	if len(prepared) == 0 {
		return 0
	}
	sum := 0.0
	for _, p := range prepared {
		sum += p.Duration
	}
	return sum / float64(len(prepared))
}
