// Package main scores one month (or a range of months) of trip data:
// resolve paths → load model → read → prepare → score → write → persist
//
// Usage: batch [flags] <year> <month> [s3-endpoint]
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"taxi-duration-lab/internal/config"
	"taxi-duration-lab/internal/domain"
	"taxi-duration-lab/internal/pipeline"
	"taxi-duration-lab/internal/storage/stores"
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

	// Flags override the environment
	taxiType := flag.String("taxi-type", string(cfg.TaxiType), "Taxi type: fhv, green, yellow")
	inputPattern := flag.String("input-pattern", cfg.InputPattern, "Input location template")
	outputPattern := flag.String("output-pattern", cfg.OutputPattern, "Output location template")
	modelURI := flag.String("model", cfg.ModelLocation, "Model artifact location or runs:/<run_id> URI")
	registry := flag.String("model-registry", cfg.ModelRegistryPattern, "Template expanding runs:/ URIs, carries {run_id}")
	runID := flag.String("run-id", cfg.ModelVersion, "Model version reported with predictions")
	rideIDMode := flag.String("ride-id-mode", cfg.RideIDMode, "Ride ID mode: index, uuid")
	extended := flag.Bool("extended", cfg.ExtendedOutput, "Write actual duration, diff and model version columns")
	runDate := flag.String("run-date", "", "Score the month before this date (YYYY-MM-DD) instead of <year> <month>")
	endMonth := flag.Int("end-month", 0, "Score every month from <month> through this one")
	concurrency := flag.Int("concurrency", 2, "Months scored in parallel with --end-month")
	postgresDSN := flag.String("postgres-dsn", cfg.PostgresDSN, "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", cfg.ClickhouseDSN, "ClickHouse connection string")
	useMemory := flag.Bool("use-memory", false, "Record runs in memory instead of databases")
	summary := flag.Bool("summary", true, "Write summary.md next to the output")
	retries := flag.Uint64("retries", cfg.StepRetries, "Retries for failed reads and writes")
	timeout := flag.Duration("step-timeout", cfg.StepTimeout, "Per-step timeout, 0 disables")
	verbose := flag.Bool("verbose", false, "Verbose output")
	flag.Parse()

	logger := log.New(os.Stdout, "[batch] ", log.LstdFlags)

	tt, err := domain.ParseTaxiType(*taxiType)
	if err != nil {
		logger.Fatalf("Error: %v", err)
	}
	cfg.TaxiType = tt
	cfg.RideIDMode = *rideIDMode
	cfg.ModelLocation = *modelURI
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("Error: %v", err)
	}

	periods, endpoint, err := parsePeriods(flag.Args(), *runDate, *endMonth)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		fmt.Fprintln(os.Stderr, "Usage: batch [flags] <year> <month> [s3-endpoint]")
		os.Exit(1)
	}
	if endpoint == "" {
		endpoint = cfg.StorageEndpoint
	}

	// Create context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, cancelling batch...", sig)
		cancel()
	}()

	st, cleanup, err := stores.Open(ctx, stores.Config{
		UseMemory:     *useMemory,
		PostgresDSN:   *postgresDSN,
		ClickhouseDSN: *clickhouseDSN,
	})
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	objects := tripdata.NewStorage(endpoint)
	opts := pipeline.Options{
		TaxiType:        tt,
		Resolver:        config.NewResolver(*inputPattern, *outputPattern, tt),
		ModelLocation:   *modelURI,
		RegistryPattern: *registry,
		ModelVersion:    *runID,
		UseUUID:         *rideIDMode == config.RideIDModeUUID,
		ModelSource:     objects,
		Reader:          tripdata.NewReader(objects, tt),
		Writer:          tripdata.NewWriter(objects, *extended),
		PredictionStore: st.Predictions,
		BatchRunStore:   st.BatchRuns,
		Policy: pipeline.Policy{
			Retries:   *retries,
			Timeout:   *timeout,
			Retryable: tripdata.Retryable,
			Logger:    logger,
		},
		Verbose: *verbose,
	}
	if *summary {
		opts.SummarySink = objects
	}
	job := pipeline.New(opts)

	runs, err := job.RunPeriods(ctx, periods, *concurrency)
	if err != nil {
		logger.Printf("Batch failed: %v", err)
		os.Exit(1)
	}

	for _, run := range runs {
		fmt.Printf("%s %04d-%02d: %d/%d rows scored, mean predicted duration %.2f min\n",
			run.TaxiType, run.Year, run.Month, run.RowsRetained, run.RowsRead, run.MeanPredicted)
		fmt.Printf("  - %s\n", run.OutputLocation)
	}
}

// parsePeriods resolves the months to score from positional arguments or
// the run date. The optional third positional argument is an S3 endpoint.
func parsePeriods(args []string, runDate string, endMonth int) ([]pipeline.Period, string, error) {
	var year, month int
	var endpoint string

	if runDate != "" {
		d, err := time.Parse("2006-01-02", runDate)
		if err != nil {
			return nil, "", fmt.Errorf("invalid --run-date: %w", err)
		}
		year, month = config.PreviousMonth(d)
		if len(args) > 0 {
			endpoint = args[0]
		}
	} else {
		if len(args) < 2 || len(args) > 3 {
			return nil, "", fmt.Errorf("expected <year> <month> [s3-endpoint]")
		}
		var err error
		if year, err = strconv.Atoi(args[0]); err != nil {
			return nil, "", fmt.Errorf("invalid year %q", args[0])
		}
		if month, err = strconv.Atoi(args[1]); err != nil {
			return nil, "", fmt.Errorf("invalid month %q", args[1])
		}
		if len(args) == 3 {
			endpoint = args[2]
		}
	}

	if err := config.ValidatePeriod(year, month); err != nil {
		return nil, "", err
	}
	if endMonth == 0 {
		return []pipeline.Period{{Year: year, Month: month}}, endpoint, nil
	}
	if err := config.ValidatePeriod(year, endMonth); err != nil {
		return nil, "", err
	}
	if endMonth < month {
		return nil, "", fmt.Errorf("--end-month %d before month %d", endMonth, month)
	}

	periods := make([]pipeline.Period, 0, endMonth-month+1)
	for m := month; m <= endMonth; m++ {
		periods = append(periods, pipeline.Period{Year: year, Month: m})
	}
	return periods, endpoint, nil
}
