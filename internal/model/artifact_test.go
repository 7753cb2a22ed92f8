package model

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taxi-duration-lab/internal/domain"
)

// memSource is an in-memory Source/Sink keyed by location.
type memSource map[string][]byte

func (m memSource) ReadAll(_ context.Context, location string) ([]byte, error) {
	data, ok := m[location]
	if !ok {
		return nil, errors.New("no such object")
	}
	return data, nil
}

func (m memSource) WriteAll(_ context.Context, location string, data []byte) error {
	m[location] = data
	return nil
}

func testArtifact() *Artifact {
	return &Artifact{
		Layout:     domain.FeatureLayoutCategorical,
		TaxiType:   domain.TaxiTypeFHV,
		Vectorizer: NewDictVectorizer([]string{"DOlocationID=1", "PUlocationID=1"}),
		Regressor:  &LinearRegressor{Coef: []float64{1, 2}, Intercept: 10},
	}
}

func TestArtifact_SaveLoad(t *testing.T) {
	ctx := context.Background()
	store := memSource{}

	saved := testArtifact()
	require.NoError(t, SaveArtifact(ctx, store, "model.json", saved))
	assert.NotEmpty(t, saved.Fingerprint())

	loaded, err := LoadArtifact(ctx, store, "model.json")
	require.NoError(t, err)

	assert.Equal(t, saved.Fingerprint(), loaded.Fingerprint())
	assert.Equal(t, loaded.Fingerprint(), loaded.ModelVersion())

	preds := loaded.Scorer().Score([]domain.FeatureDict{{"PUlocationID": "1", "DOlocationID": "1"}})
	assert.Equal(t, []float64{13}, preds)
}

func TestArtifact_ExplicitVersion(t *testing.T) {
	a := testArtifact()
	a.Version = "run-42"
	_, err := a.Marshal()
	require.NoError(t, err)

	assert.Equal(t, "run-42", a.ModelVersion())
}

func TestLoadArtifact_Errors(t *testing.T) {
	ctx := context.Background()
	store := memSource{
		"garbage.json":  []byte("not json"),
		"wrong.json":    []byte(`{"format":"pickle","layout":"categorical"}`),
		"mismatch.json": []byte(`{"format":"dictvectorizer+linear/v1","layout":"categorical","vectorizer":{"feature_names":["a"],"vocabulary":{"a":0}},"regressor":{"coef":[1,2],"intercept":0}}`),
	}

	for _, loc := range []string{"missing.json", "garbage.json", "wrong.json", "mismatch.json"} {
		t.Run(loc, func(t *testing.T) {
			_, err := LoadArtifact(ctx, store, loc)
			assert.ErrorIs(t, err, ErrModelLoad)
		})
	}
}

func TestResolveURI(t *testing.T) {
	loc, runID, err := ResolveURI("model.json", "")
	require.NoError(t, err)
	assert.Equal(t, "model.json", loc)
	assert.Empty(t, runID)

	loc, runID, err = ResolveURI("runs:/815e49bd/model", "s3://mlflow-artifacts/3/{run_id}/artifacts/model/model.json")
	require.NoError(t, err)
	assert.Equal(t, "s3://mlflow-artifacts/3/815e49bd/artifacts/model/model.json", loc)
	assert.Equal(t, "815e49bd", runID)

	_, _, err = ResolveURI("runs:/", "x/{run_id}")
	assert.ErrorIs(t, err, ErrModelLoad)

	_, _, err = ResolveURI("runs:/abc", "")
	assert.ErrorIs(t, err, ErrModelLoad)
}
