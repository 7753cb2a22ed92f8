package reporting

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"gonum.org/v1/gonum/stat"

	"taxi-duration-lab/internal/domain"
	"taxi-duration-lab/internal/storage"
)

// SummaryFile is the file name written next to each prediction file.
const SummaryFile = "summary.md"

// Generator produces reports from stored batch runs.
type Generator struct {
	batchRunStore storage.BatchRunStore
	now           func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator(batchRunStore storage.BatchRunStore) *Generator {
	return &Generator{
		batchRunStore: batchRunStore,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate produces a report over all recorded runs.
func (g *Generator) Generate(ctx context.Context) (*Report, error) {
	runs, err := g.batchRunStore.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load batch runs: %w", err)
	}

	report := &Report{GeneratedAt: g.now()}
	for _, r := range runs {
		row := NewRunRow(r)
		report.Runs = append(report.Runs, row)

		report.Totals.Runs++
		report.Totals.RowsRead += row.RowsRead
		report.Totals.RowsRetained += row.RowsRetained
		report.Totals.RowsDropped += row.RowsDropped
		report.Totals.TotalPredicted += row.TotalPredicted
	}

	sort.Slice(report.Runs, func(i, j int) bool {
		a, b := report.Runs[i], report.Runs[j]
		if a.TaxiType != b.TaxiType {
			return a.TaxiType < b.TaxiType
		}
		if a.Period != b.Period {
			return a.Period < b.Period
		}
		return a.ModelVersion < b.ModelVersion
	})
	return report, nil
}

// NewRunRow flattens a batch run for rendering.
func NewRunRow(r *domain.BatchRun) RunRow {
	row := RunRow{
		BatchID:        r.BatchID,
		TaxiType:       string(r.TaxiType),
		Period:         fmt.Sprintf("%04d-%02d", r.Year, r.Month),
		ModelVersion:   r.ModelVersion,
		RowsRead:       r.RowsRead,
		RowsRetained:   r.RowsRetained,
		RowsDropped:    r.RowsDropped,
		MeanPredicted:  r.MeanPredicted,
		TotalPredicted: r.TotalPredicted,
		RMSE:           r.RMSE,
		DurationMs:     r.FinishedAt - r.StartedAt,
	}
	if r.RowsRead > 0 {
		row.DropRate = float64(r.RowsDropped) / float64(r.RowsRead)
	}
	return row
}

// Summarize builds the per-run summary written next to the output file.
func Summarize(run *domain.BatchRun, results []domain.PredictionResult, generatedAt time.Time) *RunSummary {
	s := &RunSummary{
		Row:         NewRunRow(run),
		InputPath:   run.InputLocation,
		OutputPath:  run.OutputLocation,
		GeneratedAt: generatedAt,
	}

	diffs := make([]float64, 0, len(results))
	for _, r := range results {
		if r.Diff != nil {
			diffs = append(diffs, *r.Diff)
		}
	}
	if len(diffs) == 0 {
		return s
	}

	abs := 0.0
	for _, d := range diffs {
		abs += math.Abs(d)
	}
	mae := abs / float64(len(diffs))
	s.MAE = &mae

	sort.Float64s(diffs)
	q := func(p float64) *float64 {
		v := stat.Quantile(p, stat.Empirical, diffs, nil)
		return &v
	}
	s.DiffP10, s.DiffP50, s.DiffP90 = q(0.1), q(0.5), q(0.9)
	return s
}

// SummaryLocation returns the summary path in the same directory as output.
func SummaryLocation(output string) string {
	i := strings.LastIndex(output, "/")
	if i < 0 {
		return SummaryFile
	}
	return output[:i+1] + SummaryFile
}
