// Package main fits a duration model on one month of trips, validates it
// on the next and writes the artifact.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"taxi-duration-lab/internal/config"
	"taxi-duration-lab/internal/domain"
	"taxi-duration-lab/internal/model"
	"taxi-duration-lab/internal/training"
	"taxi-duration-lab/internal/tripdata"
)

func main() {
	// Load .env file if exists
	config.LoadEnvFile(".env")

	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	taxiType := flag.String("taxi-type", string(cfg.TaxiType), "Taxi type: fhv, green, yellow")
	layout := flag.String("layout", string(cfg.FeatureLayout), "Feature layout: categorical, combined")
	inputPattern := flag.String("input-pattern", cfg.InputPattern, "Trip file location template")
	endpoint := flag.String("s3-endpoint", cfg.StorageEndpoint, "S3 endpoint override")
	runDate := flag.String("run-date", "", "Train on two months before this date (YYYY-MM-DD), validate on the previous")
	trainPeriod := flag.String("train", "", "Training month YYYY-MM, overrides --run-date")
	valPeriod := flag.String("val", "", "Validation month YYYY-MM, empty skips validation with --train")
	output := flag.String("output", cfg.ModelLocation, "Artifact output location")
	version := flag.String("version", "", "Artifact version, defaults to its fingerprint")
	ridge := flag.Float64("ridge", training.DefaultRidge, "L2 penalty")
	flag.Parse()

	logger := log.New(os.Stdout, "[train] ", log.LstdFlags)

	tt, err := domain.ParseTaxiType(*taxiType)
	if err != nil {
		logger.Fatalf("Error: %v", err)
	}
	fl := domain.FeatureLayout(*layout)
	if !fl.IsValid() {
		logger.Fatalf("Error: invalid feature layout %q", *layout)
	}

	trainYM, valYM, err := resolvePeriods(*runDate, *trainPeriod, *valPeriod, time.Now())
	if err != nil {
		logger.Fatalf("Error: %v", err)
	}

	ctx := context.Background()
	objects := tripdata.NewStorage(*endpoint)
	reader := tripdata.NewReader(objects, tt)
	resolver := config.NewResolver(*inputPattern, "", tt)

	trainPath := resolver.InputPath(trainYM[0], trainYM[1])
	logger.Printf("reading training data: %s", trainPath)
	train, err := reader.Read(ctx, trainPath)
	if err != nil {
		logger.Fatalf("Error: %v", err)
	}

	var val []domain.TripRecord
	if valYM != nil {
		valPath := resolver.InputPath(valYM[0], valYM[1])
		logger.Printf("reading validation data: %s", valPath)
		if val, err = reader.Read(ctx, valPath); err != nil {
			logger.Fatalf("Error: %v", err)
		}
	}

	opts := training.DefaultFitOptions()
	opts.Ridge = *ridge
	res, err := training.NewTrainer(tt, fl, opts, logger).Train(train, val)
	if err != nil {
		logger.Fatalf("Error: %v", err)
	}

	res.Artifact.Version = *version
	if err := model.SaveArtifact(ctx, objects, *output, res.Artifact); err != nil {
		logger.Fatalf("Error: %v", err)
	}

	fmt.Printf("Model written to %s\n", *output)
	fmt.Printf("  version: %s\n", res.Artifact.ModelVersion())
	fmt.Printf("  train RMSE: %.4f (%d rows)\n", res.TrainRMSE, res.TrainRows)
	if res.ValRMSE != nil {
		fmt.Printf("  val RMSE: %.4f (%d rows)\n", *res.ValRMSE, res.ValRows)
	}
}

// resolvePeriods returns the training month and the optional validation
// month as [year, month] pairs.
func resolvePeriods(runDate, trainPeriod, valPeriod string, now time.Time) ([2]int, *[2]int, error) {
	if trainPeriod != "" {
		train, err := parseYearMonth(trainPeriod)
		if err != nil {
			return [2]int{}, nil, err
		}
		if valPeriod == "" {
			return train, nil, nil
		}
		val, err := parseYearMonth(valPeriod)
		if err != nil {
			return [2]int{}, nil, err
		}
		return train, &val, nil
	}

	d := now
	if runDate != "" {
		var err error
		if d, err = time.Parse("2006-01-02", runDate); err != nil {
			return [2]int{}, nil, fmt.Errorf("invalid --run-date: %w", err)
		}
	}
	ty, tm, vy, vm := training.TrainingPeriods(d)
	return [2]int{ty, tm}, &[2]int{vy, vm}, nil
}

func parseYearMonth(s string) ([2]int, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return [2]int{}, fmt.Errorf("invalid period %q, want YYYY-MM", s)
	}
	if err := config.ValidatePeriod(t.Year(), int(t.Month())); err != nil {
		return [2]int{}, err
	}
	return [2]int{t.Year(), int(t.Month())}, nil
}
