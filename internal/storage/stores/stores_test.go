package stores

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_Memory(t *testing.T) {
	s, cleanup, err := Open(context.Background(), Config{UseMemory: true, PostgresDSN: "ignored"})
	require.NoError(t, err)
	defer cleanup()

	assert.NotNil(t, s.Predictions)
	assert.NotNil(t, s.BatchRuns)
}

func TestOpen_NoBackends(t *testing.T) {
	s, cleanup, err := Open(context.Background(), Config{})
	require.NoError(t, err)
	defer cleanup()

	assert.Nil(t, s.Predictions)
	assert.Nil(t, s.BatchRuns)
}

func TestOpen_BadClickhouseDSN(t *testing.T) {
	_, _, err := Open(context.Background(), Config{ClickhouseDSN: "clickhouse://"})
	assert.Error(t, err)
}
