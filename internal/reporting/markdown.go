package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	sb.WriteString("# Batch Scoring Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))

	sb.WriteString("## Totals\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Runs | %d |\n", r.Totals.Runs))
	sb.WriteString(fmt.Sprintf("| Rows Read | %d |\n", r.Totals.RowsRead))
	sb.WriteString(fmt.Sprintf("| Rows Retained | %d |\n", r.Totals.RowsRetained))
	sb.WriteString(fmt.Sprintf("| Rows Dropped | %d |\n", r.Totals.RowsDropped))
	sb.WriteString(fmt.Sprintf("| Total Predicted (min) | %.2f |\n", r.Totals.TotalPredicted))
	sb.WriteString("\n")

	sb.WriteString("## Runs\n\n")
	if len(r.Runs) == 0 {
		sb.WriteString("No batch runs recorded.\n")
		return sb.String()
	}

	sb.WriteString("| Taxi | Period | Model | Read | Retained | Dropped | DropRate | Mean | Total | RMSE |\n")
	sb.WriteString("|------|--------|-------|------|----------|---------|----------|------|-------|------|\n")
	for _, row := range r.Runs {
		sb.WriteString(fmt.Sprintf("| %s | %s | %s | %d | %d | %d | %.4f | %.4f | %.2f | %s |\n",
			row.TaxiType, row.Period, row.ModelVersion,
			row.RowsRead, row.RowsRetained, row.RowsDropped, row.DropRate,
			row.MeanPredicted, row.TotalPredicted, formatOptional(row.RMSE)))
	}
	sb.WriteString("\n")

	return sb.String()
}

// RenderRunMarkdown renders a single run summary.
func RenderRunMarkdown(s *RunSummary) string {
	var sb strings.Builder
	row := s.Row

	sb.WriteString(fmt.Sprintf("# Predicted duration: %s %s\n\n", row.TaxiType, row.Period))
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", s.GeneratedAt.Format(time.RFC3339)))

	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Batch | %s |\n", row.BatchID))
	sb.WriteString(fmt.Sprintf("| Model Version | %s |\n", row.ModelVersion))
	sb.WriteString(fmt.Sprintf("| Input | %s |\n", s.InputPath))
	sb.WriteString(fmt.Sprintf("| Output | %s |\n", s.OutputPath))
	sb.WriteString(fmt.Sprintf("| Rows Read | %d |\n", row.RowsRead))
	sb.WriteString(fmt.Sprintf("| Rows Retained | %d |\n", row.RowsRetained))
	sb.WriteString(fmt.Sprintf("| Rows Dropped | %d |\n", row.RowsDropped))
	sb.WriteString(fmt.Sprintf("| Mean Predicted (min) | %.4f |\n", row.MeanPredicted))
	sb.WriteString(fmt.Sprintf("| Total Predicted (min) | %.2f |\n", row.TotalPredicted))
	sb.WriteString(fmt.Sprintf("| RMSE | %s |\n", formatOptional(row.RMSE)))
	sb.WriteString(fmt.Sprintf("| MAE | %s |\n", formatOptional(s.MAE)))
	sb.WriteString("\n")

	if s.DiffP50 != nil {
		sb.WriteString("## Error Distribution (actual - predicted)\n\n")
		sb.WriteString("| P10 | P50 | P90 |\n")
		sb.WriteString("|-----|-----|-----|\n")
		sb.WriteString(fmt.Sprintf("| %.4f | %.4f | %.4f |\n", *s.DiffP10, *s.DiffP50, *s.DiffP90))
		sb.WriteString("\n")
	}

	return sb.String()
}

func formatOptional(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.4f", *v)
}
