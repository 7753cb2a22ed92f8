// Package main downloads monthly trip files to a local directory.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"taxi-duration-lab/internal/config"
	"taxi-duration-lab/internal/domain"
	"taxi-duration-lab/internal/tripdata"
)

func main() {
	// Load .env file if exists
	config.LoadEnvFile(".env")

	taxiType := flag.String("taxi-type", envOr("TAXI_TYPE", string(domain.TaxiTypeFHV)), "Taxi type: fhv, green, yellow")
	year := flag.Int("year", 2021, "Year to fetch")
	startMonth := flag.Int("start-month", 1, "First month to fetch")
	endMonth := flag.Int("end-month", 3, "Last month to fetch")
	dir := flag.String("dir", "data", "Destination directory")
	pattern := flag.String("url-pattern", envOr("DOWNLOAD_URL_PATTERN", tripdata.DefaultDownloadPattern), "Source URL template")
	flag.Parse()

	logger := log.New(os.Stdout, "[fetch] ", log.LstdFlags)

	tt, err := domain.ParseTaxiType(*taxiType)
	if err != nil {
		logger.Fatalf("Error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, stopping download...", sig)
		cancel()
	}()

	d := tripdata.NewDownloader(*pattern, *dir, logger)
	files, err := d.Fetch(ctx, tt, *year, *startMonth, *endMonth)
	if err != nil {
		logger.Printf("Fetch failed: %v", err)
		os.Exit(1)
	}

	fmt.Printf("Fetched %d files:\n", len(files))
	for _, f := range files {
		fmt.Printf("  - %s\n", f)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
