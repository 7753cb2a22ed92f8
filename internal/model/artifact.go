package model

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"taxi-duration-lab/internal/domain"
	"taxi-duration-lab/internal/idhash"
)

// ArtifactFormat tags the serialized layout so incompatible files fail fast.
const ArtifactFormat = "dictvectorizer+linear/v1"

// RunsScheme prefixes registry URIs of the form runs:/<run_id>[/path].
const RunsScheme = "runs:/"

// Source reads a whole object from a location.
type Source interface {
	ReadAll(ctx context.Context, location string) ([]byte, error)
}

// Sink writes a whole object to a location.
type Sink interface {
	WriteAll(ctx context.Context, location string, data []byte) error
}

// Artifact is a serialized, already-fitted vectorizer + regressor pair.
type Artifact struct {
	Format     string               `json:"format"`
	Version    string               `json:"version,omitempty"`
	TaxiType   domain.TaxiType      `json:"taxi_type,omitempty"`
	Layout     domain.FeatureLayout `json:"layout"`
	Vectorizer *DictVectorizer      `json:"vectorizer"`
	Regressor  *LinearRegressor     `json:"regressor"`
	Metrics    map[string]float64   `json:"metrics,omitempty"`
	CreatedAt  int64                `json:"created_at,omitempty"`

	fingerprint string
}

// Scorer returns a Scorer backed by this artifact.
func (a *Artifact) Scorer() *Scorer {
	return NewScorer(a.Vectorizer, a.Regressor)
}

// Fingerprint returns the base58 content digest of the serialized artifact.
func (a *Artifact) Fingerprint() string {
	return a.fingerprint
}

// ModelVersion returns the explicit version if set, else the fingerprint.
func (a *Artifact) ModelVersion() string {
	if a.Version != "" {
		return a.Version
	}
	return a.fingerprint
}

// Validate checks format and shape consistency.
func (a *Artifact) Validate() error {
	if a.Format != ArtifactFormat {
		return fmt.Errorf("unsupported artifact format %q", a.Format)
	}
	if a.Vectorizer == nil || a.Regressor == nil {
		return fmt.Errorf("artifact missing vectorizer or regressor")
	}
	if !a.Layout.IsValid() {
		return fmt.Errorf("invalid feature layout %q", a.Layout)
	}
	if err := a.Vectorizer.Validate(); err != nil {
		return err
	}
	return a.Regressor.Validate(len(a.Vectorizer.FeatureNames))
}

// Marshal serializes the artifact and records its fingerprint.
func (a *Artifact) Marshal() ([]byte, error) {
	if a.Format == "" {
		a.Format = ArtifactFormat
	}
	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return nil, err
	}
	a.fingerprint = idhash.Fingerprint(data)
	return data, nil
}

// ParseArtifact decodes and validates an artifact.
func ParseArtifact(data []byte) (*Artifact, error) {
	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrModelLoad, err)
	}
	if err := a.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelLoad, err)
	}
	a.fingerprint = idhash.Fingerprint(data)
	return &a, nil
}

// LoadArtifact reads and parses the artifact at location.
func LoadArtifact(ctx context.Context, src Source, location string) (*Artifact, error) {
	data, err := src.ReadAll(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrModelLoad, location, err)
	}
	return ParseArtifact(data)
}

// SaveArtifact serializes the artifact and writes it to location.
func SaveArtifact(ctx context.Context, sink Sink, location string, a *Artifact) error {
	data, err := a.Marshal()
	if err != nil {
		return fmt.Errorf("marshal artifact: %w", err)
	}
	if err := sink.WriteAll(ctx, location, data); err != nil {
		return fmt.Errorf("write artifact %s: %w", location, err)
	}
	return nil
}

// ResolveURI maps runs:/<run_id>[/path] through registryPattern, which
// carries a {run_id} placeholder. Any other URI is returned unchanged.
// The second return value is the run ID, empty for non-registry URIs.
func ResolveURI(uri, registryPattern string) (string, string, error) {
	if !strings.HasPrefix(uri, RunsScheme) {
		return uri, "", nil
	}

	rest := strings.TrimPrefix(uri, RunsScheme)
	runID, _, _ := strings.Cut(rest, "/")
	if runID == "" {
		return "", "", fmt.Errorf("%w: registry uri %q has no run id", ErrModelLoad, uri)
	}
	if registryPattern == "" {
		return "", "", fmt.Errorf("%w: registry uri %q but no registry pattern configured", ErrModelLoad, uri)
	}
	return strings.ReplaceAll(registryPattern, "{run_id}", runID), runID, nil
}
