// Package config holds process-wide settings built once in main and passed
// explicitly to every component.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"taxi-duration-lab/internal/domain"
)

// Ride ID generation modes.
const (
	RideIDModeIndex = "index" // "{year:04d}/{month:02d}_{row}"
	RideIDModeUUID  = "uuid"  // random UUIDv4 per ride
)

// Config is the full runtime configuration.
type Config struct {
	// Batch inputs/outputs
	TaxiType        domain.TaxiType
	InputPattern    string
	OutputPattern   string
	StorageEndpoint string // overrides the S3 endpoint, e.g. a localstack URL

	// Model
	ModelLocation        string
	ModelRegistryPattern string // expands runs:/<run_id> URIs, carries {run_id}
	ModelVersion         string // empty means "use artifact fingerprint"

	// Features and output
	FeatureLayout  domain.FeatureLayout
	RideIDMode     string
	ExtendedOutput bool

	// Optional sinks
	PostgresDSN   string
	ClickhouseDSN string
	RedisURL      string
	RedisChannel  string

	// Step policy
	StepRetries uint64
	StepTimeout time.Duration

	Verbose bool
}

// Resolver builds the path resolver for this configuration.
func (c *Config) Resolver() *Resolver {
	return NewResolver(c.InputPattern, c.OutputPattern, c.TaxiType)
}

// Validate checks enumerated fields.
func (c *Config) Validate() error {
	if !c.TaxiType.IsValid() {
		return fmt.Errorf("invalid taxi type %q", c.TaxiType)
	}
	if !c.FeatureLayout.IsValid() {
		return fmt.Errorf("invalid feature layout %q", c.FeatureLayout)
	}
	if c.RideIDMode != RideIDModeIndex && c.RideIDMode != RideIDModeUUID {
		return fmt.Errorf("invalid ride id mode %q", c.RideIDMode)
	}
	if c.ModelLocation == "" {
		return fmt.Errorf("model location is required")
	}
	return nil
}

// FromEnv builds a Config from environment variables with documented defaults.
func FromEnv() (*Config, error) {
	return FromLookup(os.LookupEnv)
}

// FromLookup builds a Config using the given lookup function.
func FromLookup(lookup func(string) (string, bool)) (*Config, error) {
	get := func(key, fallback string) string {
		if v, ok := lookup(key); ok && v != "" {
			return v
		}
		return fallback
	}

	taxiType, err := domain.ParseTaxiType(get("TAXI_TYPE", string(domain.TaxiTypeFHV)))
	if err != nil {
		return nil, err
	}

	retries, err := strconv.ParseUint(get("STEP_RETRIES", "0"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid STEP_RETRIES: %w", err)
	}

	timeout, err := time.ParseDuration(get("STEP_TIMEOUT", "0s"))
	if err != nil {
		return nil, fmt.Errorf("invalid STEP_TIMEOUT: %w", err)
	}

	extended, err := strconv.ParseBool(get("EXTENDED_OUTPUT", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid EXTENDED_OUTPUT: %w", err)
	}

	cfg := &Config{
		TaxiType:        taxiType,
		InputPattern:    get(EnvInputPattern, DefaultInputPattern),
		OutputPattern:   get(EnvOutputPattern, DefaultOutputPattern),
		StorageEndpoint: get("S3_ENDPOINT_URL", ""),
		ModelLocation:   get("MODEL_URI", "model.json"),
		ModelVersion:    get("RUN_ID", ""),

		ModelRegistryPattern: get("MODEL_REGISTRY_PATTERN", ""),

		FeatureLayout:   domain.FeatureLayout(get("FEATURE_LAYOUT", string(domain.FeatureLayoutCategorical))),
		RideIDMode:      get("RIDE_ID_MODE", RideIDModeIndex),
		ExtendedOutput:  extended,
		PostgresDSN:     get("POSTGRES_DSN", ""),
		ClickhouseDSN:   get("CLICKHOUSE_DSN", ""),
		RedisURL:        get("REDIS_URL", ""),
		RedisChannel:    get("REDIS_CHANNEL", "taxi:predictions"),
		StepRetries:     retries,
		StepTimeout:     timeout,
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadEnvFile loads KEY=VALUE lines from path into the process environment.
// Existing variables are not overridden. A missing file is not an error.
func LoadEnvFile(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return // File doesn't exist, use system env vars
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.Trim(strings.TrimSpace(parts[1]), `"'`)

		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
