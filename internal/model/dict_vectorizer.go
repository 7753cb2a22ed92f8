package model

import (
	"fmt"
	"sort"

	"taxi-duration-lab/internal/domain"
)

// Separator between key and value in one-hot feature names.
const Separator = "="

// DictVectorizer one-hot encodes string values as "key=value" and passes
// numeric values through under "key". Keys outside the vocabulary are
// dropped silently.
type DictVectorizer struct {
	FeatureNames []string       `json:"feature_names"`
	Vocabulary   map[string]int `json:"vocabulary"`
}

var _ Vectorizer = (*DictVectorizer)(nil)

// NewDictVectorizer builds a vectorizer from a sorted list of feature names.
func NewDictVectorizer(featureNames []string) *DictVectorizer {
	names := append([]string(nil), featureNames...)
	sort.Strings(names)

	vocab := make(map[string]int, len(names))
	for i, n := range names {
		vocab[n] = i
	}
	return &DictVectorizer{FeatureNames: names, Vocabulary: vocab}
}

// FitDictVectorizer learns the vocabulary from dicts.
func FitDictVectorizer(dicts []domain.FeatureDict) *DictVectorizer {
	seen := make(map[string]struct{})
	for _, d := range dicts {
		for k, v := range d {
			name, _, ok := featureName(k, v)
			if ok {
				seen[name] = struct{}{}
			}
		}
	}

	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	return NewDictVectorizer(names)
}

// Transform encodes dicts as a Sparse matrix with one row per dict.
func (v *DictVectorizer) Transform(dicts []domain.FeatureDict) *Sparse {
	m := &Sparse{
		Rows:   len(dicts),
		Cols:   len(v.FeatureNames),
		Indptr: make([]int, 1, len(dicts)+1),
	}

	for _, d := range dicts {
		type entry struct {
			col int
			val float64
		}
		entries := make([]entry, 0, len(d))
		for k, val := range d {
			name, x, ok := featureName(k, val)
			if !ok {
				continue
			}
			col, known := v.Vocabulary[name]
			if !known {
				continue
			}
			entries = append(entries, entry{col, x})
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].col < entries[j].col })

		for _, e := range entries {
			m.Indices = append(m.Indices, e.col)
			m.Data = append(m.Data, e.val)
		}
		m.Indptr = append(m.Indptr, len(m.Indices))
	}

	return m
}

// Validate checks that the vocabulary and feature names agree.
func (v *DictVectorizer) Validate() error {
	if len(v.Vocabulary) != len(v.FeatureNames) {
		return fmt.Errorf("vocabulary has %d entries, feature_names %d", len(v.Vocabulary), len(v.FeatureNames))
	}
	for i, n := range v.FeatureNames {
		if v.Vocabulary[n] != i {
			return fmt.Errorf("feature %q maps to %d, want %d", n, v.Vocabulary[n], i)
		}
	}
	return nil
}

// featureName resolves the column name and numeric value for one entry.
func featureName(key string, value any) (string, float64, bool) {
	switch x := value.(type) {
	case string:
		return key + Separator + x, 1, true
	case float64:
		return key, x, true
	case float32:
		return key, float64(x), true
	case int:
		return key, float64(x), true
	case int64:
		return key, float64(x), true
	case bool:
		if x {
			return key, 1, true
		}
		return key, 0, true
	default:
		return "", 0, false
	}
}
