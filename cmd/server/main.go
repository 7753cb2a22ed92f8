// Package main serves single-ride duration predictions:
// - POST /predict scores a ride
// - GET /ws/predictions streams every prediction
// - GET /health, GET /metrics
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"taxi-duration-lab/internal/config"
	"taxi-duration-lab/internal/model"
	"taxi-duration-lab/internal/serving"
	"taxi-duration-lab/internal/storage/stores"
	"taxi-duration-lab/internal/tripdata"
)

func main() {
	// Load .env file if exists
	config.LoadEnvFile(".env")

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	cfg, err := config.FromEnv()
	if err != nil {
		logger.Fatalf("Invalid configuration: %v", err)
	}

	// Parse flags (env vars as defaults)
	addr := flag.String("addr", envOr("SERVER_ADDR", ":9696"), "HTTP listen address")
	modelURI := flag.String("model", cfg.ModelLocation, "Model artifact location or runs:/<run_id> URI")
	registry := flag.String("model-registry", cfg.ModelRegistryPattern, "Template expanding runs:/ URIs, carries {run_id}")
	runID := flag.String("run-id", cfg.ModelVersion, "Model version reported with predictions")
	endpoint := flag.String("s3-endpoint", cfg.StorageEndpoint, "S3 endpoint override")
	redisURL := flag.String("redis-url", cfg.RedisURL, "Redis URL for prediction events, empty disables")
	redisChannel := flag.String("redis-channel", cfg.RedisChannel, "Redis channel for prediction events")
	postgresDSN := flag.String("postgres-dsn", cfg.PostgresDSN, "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", cfg.ClickhouseDSN, "ClickHouse connection string")
	useMemory := flag.Bool("use-memory", false, "Store predictions in memory")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Load model
	location, registryRunID, err := model.ResolveURI(*modelURI, *registry)
	if err != nil {
		logger.Fatalf("Failed to resolve model: %v", err)
	}
	artifact, err := model.LoadArtifact(ctx, tripdata.NewStorage(*endpoint), location)
	if err != nil {
		logger.Fatalf("Failed to load model: %v", err)
	}
	version := *runID
	if version == "" {
		version = registryRunID
	}
	logger.Printf("Loaded model %s (%s layout)", location, artifact.Layout)

	// Stores
	st, cleanup, err := stores.Open(ctx, stores.Config{
		UseMemory:     *useMemory,
		PostgresDSN:   *postgresDSN,
		ClickhouseDSN: *clickhouseDSN,
	})
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	// Publishers
	var publishers []serving.Publisher
	if *redisURL != "" {
		client, err := serving.NewRedisClient(ctx, *redisURL)
		if err != nil {
			logger.Fatalf("Failed to connect to redis: %v", err)
		}
		defer client.Close()
		pub := serving.NewRedisPublisher(client, *redisChannel)
		publishers = append(publishers, pub)
		logger.Printf("Publishing predictions to redis channel %s", pub.Channel())
	}

	srv := serving.NewServer(serving.Options{
		Artifact:        artifact,
		ModelVersion:    version,
		Publishers:      publishers,
		PredictionStore: st.Predictions,
		Hub:             serving.NewHub(logger),
		Logger:          logger,
	})
	logger.Printf("Model version: %s", srv.ModelVersion())

	httpServer := &http.Server{
		Addr:              *addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Printf("HTTP shutdown error: %v", err)
		}
		cancel()
	}()

	logger.Printf("Starting HTTP server on %s", *addr)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("HTTP server error: %v", err)
	}

	<-ctx.Done()
	logger.Println("Shutdown complete")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
