// Package pipeline runs the batch scoring job for one (taxi type, year, month).
// Flow: resolve paths → load model → read → prepare → score → write → persist
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"taxi-duration-lab/internal/config"
	"taxi-duration-lab/internal/domain"
	"taxi-duration-lab/internal/features"
	"taxi-duration-lab/internal/idhash"
	"taxi-duration-lab/internal/model"
	"taxi-duration-lab/internal/observability"
	"taxi-duration-lab/internal/reporting"
	"taxi-duration-lab/internal/storage"
)

// TripReader loads the raw trip records at a location.
type TripReader interface {
	Read(ctx context.Context, location string) ([]domain.TripRecord, error)
}

// ResultWriter stores prediction results at a location.
type ResultWriter interface {
	Write(ctx context.Context, location string, results []domain.PredictionResult) error
}

// BatchJob scores one month of trips end to end.
type BatchJob struct {
	taxiType        domain.TaxiType
	resolver        *config.Resolver
	modelLocation   string
	registryPattern string
	modelVersion    string
	useUUID         bool

	modelSource model.Source
	reader      TripReader
	writer      ResultWriter
	summarySink model.Sink

	predictionStore storage.PredictionStore
	batchRunStore   storage.BatchRunStore

	policy  Policy
	logger  *log.Logger
	verbose bool
	now     func() time.Time
}

// Options for creating BatchJob.
type Options struct {
	TaxiType        domain.TaxiType
	Resolver        *config.Resolver
	ModelLocation   string // path, URL or runs:/<run_id> URI
	RegistryPattern string // expands runs:/ URIs
	ModelVersion    string // overrides the artifact version when set
	UseUUID         bool   // random ride IDs instead of year/month_row

	// Required I/O
	ModelSource model.Source
	Reader      TripReader
	Writer      ResultWriter

	// Optional sinks, nil disables
	SummarySink     model.Sink
	PredictionStore storage.PredictionStore
	BatchRunStore   storage.BatchRunStore

	Policy  Policy
	Verbose bool
}

// New creates a new BatchJob.
func New(opts Options) *BatchJob {
	resolver := opts.Resolver
	if resolver == nil {
		resolver = config.NewResolver("", "", opts.TaxiType)
	}
	return &BatchJob{
		taxiType:        opts.TaxiType,
		resolver:        resolver,
		modelLocation:   opts.ModelLocation,
		registryPattern: opts.RegistryPattern,
		modelVersion:    opts.ModelVersion,
		useUUID:         opts.UseUUID,
		modelSource:     opts.ModelSource,
		reader:          opts.Reader,
		writer:          opts.Writer,
		summarySink:     opts.SummarySink,
		predictionStore: opts.PredictionStore,
		batchRunStore:   opts.BatchRunStore,
		policy:          opts.Policy,
		logger:          opts.Policy.logger(),
		verbose:         opts.Verbose,
		now:             time.Now,
	}
}

// WithClock sets a custom clock for timestamps.
func (j *BatchJob) WithClock(now func() time.Time) *BatchJob {
	j.now = now
	return j
}

// loadedModel is a parsed artifact plus the version its predictions carry.
type loadedModel struct {
	artifact *model.Artifact
	version  string
}

// scored is the output of the score step.
type scored struct {
	prepared    []domain.PreparedRecord
	predictions []float64
}

// Run scores (year, month) and returns the run summary.
// Any error aborts the job. Files already written are left in place.
func (j *BatchJob) Run(ctx context.Context, year, month int) (*domain.BatchRun, error) {
	startedAt := j.now()

	if err := config.ValidatePeriod(year, month); err != nil {
		return nil, err
	}

	inputPath := j.resolver.InputPath(year, month)
	outputPath := j.resolver.OutputPath(year, month)
	j.log("input: %s", inputPath)
	j.log("output: %s", outputPath)

	run, err := j.run(ctx, year, month, inputPath, outputPath, startedAt)
	elapsed := j.now().Sub(startedAt).Seconds()
	if err != nil {
		observability.RecordPipelineRun(string(j.taxiType), "error", elapsed)
		return nil, err
	}

	observability.RecordPipelineRun(string(j.taxiType), "ok", elapsed)
	observability.RecordBatchSuccess(run.FinishedAt / 1000)
	return run, nil
}

// Period is one (year, month) to score.
type Period struct {
	Year  int
	Month int
}

// RunPeriods scores independent months with at most concurrency jobs in
// flight. The first failure cancels the rest. Runs are returned in the
// order of periods.
func (j *BatchJob) RunPeriods(ctx context.Context, periods []Period, concurrency int) ([]*domain.BatchRun, error) {
	runs := make([]*domain.BatchRun, len(periods))

	g, gctx := errgroup.WithContext(ctx)
	if concurrency > 0 {
		g.SetLimit(concurrency)
	}
	for i, p := range periods {
		g.Go(func() error {
			run, err := j.Run(gctx, p.Year, p.Month)
			if err != nil {
				return fmt.Errorf("%04d-%02d: %w", p.Year, p.Month, err)
			}
			runs[i] = run
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return runs, nil
}

func (j *BatchJob) run(ctx context.Context, year, month int, inputPath, outputPath string, startedAt time.Time) (*domain.BatchRun, error) {
	loaded, err := Execute(ctx, j.policy, NewStep("load_model", j.loadModel), j.modelLocation)
	if err != nil {
		observability.RecordModelLoadError()
		return nil, err
	}
	j.log("model version: %s", loaded.version)

	trips, err := Execute(ctx, j.policy, NewStep("read", j.reader.Read), inputPath)
	if err != nil {
		return nil, err
	}

	prepared, err := Execute(ctx, j.policy, NewStep("prepare",
		func(_ context.Context, trips []domain.TripRecord) ([]domain.PreparedRecord, error) {
			prepared := features.Prepare(trips)
			features.AssignRideIDs(prepared, year, month, j.useUUID)
			return prepared, nil
		}), trips)
	if err != nil {
		return nil, err
	}
	j.log("rows: read=%d retained=%d dropped=%d", len(trips), len(prepared), len(trips)-len(prepared))

	out, err := Execute(ctx, j.policy, NewStep("score",
		func(_ context.Context, prepared []domain.PreparedRecord) (scored, error) {
			dicts := features.BuildDicts(prepared, loaded.artifact.Layout)
			return scored{prepared: prepared, predictions: loaded.artifact.Scorer().Score(dicts)}, nil
		}), prepared)
	if err != nil {
		return nil, err
	}

	batchID := idhash.ComputeBatchID(j.taxiType, year, month, loaded.version)
	results := buildResults(out, loaded.version, batchID, j.now().UnixMilli())

	if _, err := Execute(ctx, j.policy, NewStep("write",
		func(ctx context.Context, results []domain.PredictionResult) (struct{}, error) {
			return struct{}{}, j.writer.Write(ctx, outputPath, results)
		}), results); err != nil {
		return nil, err
	}

	run := &domain.BatchRun{
		BatchID:        batchID,
		TaxiType:       j.taxiType,
		Year:           year,
		Month:          month,
		InputLocation:  inputPath,
		OutputLocation: outputPath,
		ModelVersion:   loaded.version,
		RowsRead:       len(trips),
		RowsRetained:   len(prepared),
		RowsDropped:    len(trips) - len(prepared),
		StartedAt:      startedAt.UnixMilli(),
	}
	summarize(run, results)
	run.FinishedAt = j.now().UnixMilli()
	observability.RecordBatchCounts(string(j.taxiType), run.RowsRead, run.RowsRetained, len(results))

	if j.batchRunStore != nil || j.predictionStore != nil {
		if _, err := Execute(ctx, j.policy, NewStep("persist",
			func(ctx context.Context, results []domain.PredictionResult) (struct{}, error) {
				return struct{}{}, j.persist(ctx, run, results)
			}), results); err != nil {
			return nil, err
		}
	}

	if j.summarySink != nil {
		summary := reporting.Summarize(run, results, j.now().UTC())
		location := reporting.SummaryLocation(outputPath)
		if _, err := Execute(ctx, j.policy, NewStep("summary",
			func(ctx context.Context, s *reporting.RunSummary) (struct{}, error) {
				return struct{}{}, j.summarySink.WriteAll(ctx, location, []byte(reporting.RenderRunMarkdown(s)))
			}), summary); err != nil {
			return nil, err
		}
	}

	j.log("mean predicted duration: %.4f", run.MeanPredicted)
	return run, nil
}

func (j *BatchJob) loadModel(ctx context.Context, location string) (loadedModel, error) {
	resolved, runID, err := model.ResolveURI(location, j.registryPattern)
	if err != nil {
		return loadedModel{}, err
	}

	artifact, err := model.LoadArtifact(ctx, j.modelSource, resolved)
	if err != nil {
		return loadedModel{}, err
	}

	version := j.modelVersion
	if version == "" {
		version = runID
	}
	if version == "" {
		version = artifact.ModelVersion()
	}
	return loadedModel{artifact: artifact, version: version}, nil
}

// persist stores the predictions and then records the run, so a run is
// only recorded once its predictions are stored. Keys already present
// from an earlier run are kept as they are.
func (j *BatchJob) persist(ctx context.Context, run *domain.BatchRun, results []domain.PredictionResult) error {
	if j.predictionStore != nil && len(results) > 0 {
		rows := make([]*domain.PredictionResult, len(results))
		for i := range results {
			rows[i] = &results[i]
		}
		err := j.predictionStore.InsertBulk(ctx, rows)
		if errors.Is(err, storage.ErrDuplicateKey) {
			j.logger.Printf("predictions for batch %s already stored", run.BatchID)
		} else if err != nil {
			return fmt.Errorf("insert predictions: %w", err)
		}
	}

	if j.batchRunStore == nil {
		return nil
	}
	err := j.batchRunStore.Insert(ctx, run)
	if errors.Is(err, storage.ErrDuplicateKey) {
		j.logger.Printf("batch %s already recorded", run.BatchID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("insert batch run: %w", err)
	}
	return nil
}

func (j *BatchJob) log(format string, args ...interface{}) {
	if j.verbose {
		j.logger.Printf(format, args...)
	}
}

// buildResults pairs each prepared record with its prediction, in order.
func buildResults(s scored, modelVersion, batchID string, createdAt int64) []domain.PredictionResult {
	results := make([]domain.PredictionResult, len(s.prepared))
	for i, p := range s.prepared {
		predicted := s.predictions[i]
		actual := p.Duration
		diff := actual - predicted
		pickup := p.Trip.PickupTime

		results[i] = domain.PredictionResult{
			PredictionID:      idhash.ComputePredictionID(p.RideID, modelVersion),
			RideID:            p.RideID,
			PredictedDuration: predicted,
			ActualDuration:    &actual,
			Diff:              &diff,
			ModelVersion:      modelVersion,
			PickupTime:        &pickup,
			PickupZone:        p.PickupZone,
			DropoffZone:       p.DropoffZone,
			BatchID:           batchID,
			Position:          i,
			CreatedAt:         createdAt,
		}
	}
	return results
}

// summarize fills the prediction totals of run. RMSE stays nil for an
// empty batch.
func summarize(run *domain.BatchRun, results []domain.PredictionResult) {
	if len(results) == 0 {
		return
	}

	var total, sq float64
	var withActual int
	for _, r := range results {
		total += r.PredictedDuration
		if r.Diff != nil {
			sq += *r.Diff * *r.Diff
			withActual++
		}
	}
	run.TotalPredicted = total
	run.MeanPredicted = total / float64(len(results))
	if withActual > 0 {
		rmse := math.Sqrt(sq / float64(withActual))
		run.RMSE = &rmse
	}
}
