package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taxi-duration-lab/internal/domain"
)

func lookupFrom(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func TestFromLookup_Defaults(t *testing.T) {
	cfg, err := FromLookup(lookupFrom(nil))
	require.NoError(t, err)

	assert.Equal(t, domain.TaxiTypeFHV, cfg.TaxiType)
	assert.Equal(t, DefaultInputPattern, cfg.InputPattern)
	assert.Equal(t, DefaultOutputPattern, cfg.OutputPattern)
	assert.Equal(t, "model.json", cfg.ModelLocation)
	assert.Equal(t, domain.FeatureLayoutCategorical, cfg.FeatureLayout)
	assert.Equal(t, RideIDModeIndex, cfg.RideIDMode)
	assert.Equal(t, uint64(0), cfg.StepRetries)
	assert.False(t, cfg.ExtendedOutput)
	assert.Empty(t, cfg.StorageEndpoint)
}

func TestFromLookup_Overrides(t *testing.T) {
	cfg, err := FromLookup(lookupFrom(map[string]string{
		"TAXI_TYPE":       "green",
		"S3_ENDPOINT_URL": "http://127.0.0.1:4566",
		"FEATURE_LAYOUT":  "combined",
		"RIDE_ID_MODE":    "uuid",
		"EXTENDED_OUTPUT": "true",
		"STEP_RETRIES":    "3",
		"RUN_ID":          "815e49bd6e69425d977f2042f7f74c97",
	}))
	require.NoError(t, err)

	assert.Equal(t, domain.TaxiTypeGreen, cfg.TaxiType)
	assert.Equal(t, "http://127.0.0.1:4566", cfg.StorageEndpoint)
	assert.Equal(t, domain.FeatureLayoutCombined, cfg.FeatureLayout)
	assert.Equal(t, RideIDModeUUID, cfg.RideIDMode)
	assert.True(t, cfg.ExtendedOutput)
	assert.Equal(t, uint64(3), cfg.StepRetries)
	assert.Equal(t, "815e49bd6e69425d977f2042f7f74c97", cfg.ModelVersion)
}

func TestFromLookup_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"bad taxi type", map[string]string{"TAXI_TYPE": "limo"}},
		{"bad layout", map[string]string{"FEATURE_LAYOUT": "dense"}},
		{"bad ride id mode", map[string]string{"RIDE_ID_MODE": "serial"}},
		{"bad retries", map[string]string{"STEP_RETRIES": "-1"}},
		{"bad timeout", map[string]string{"STEP_TIMEOUT": "soon"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromLookup(lookupFrom(tt.env))
			assert.Error(t, err)
		})
	}
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "# comment\nTAXI_LAB_TEST_A=alpha\nTAXI_LAB_TEST_B=\"quoted\"\nnot-a-pair\nTAXI_LAB_TEST_C=from-file\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	t.Setenv("TAXI_LAB_TEST_C", "from-env")
	t.Cleanup(func() {
		os.Unsetenv("TAXI_LAB_TEST_A")
		os.Unsetenv("TAXI_LAB_TEST_B")
	})

	LoadEnvFile(path)

	assert.Equal(t, "alpha", os.Getenv("TAXI_LAB_TEST_A"))
	assert.Equal(t, "quoted", os.Getenv("TAXI_LAB_TEST_B"))
	assert.Equal(t, "from-env", os.Getenv("TAXI_LAB_TEST_C"))
}

func TestLoadEnvFile_Missing(t *testing.T) {
	LoadEnvFile(filepath.Join(t.TempDir(), "does-not-exist"))
}
