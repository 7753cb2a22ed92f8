package reporting

import (
	"fmt"
	"strings"
)

// RenderCSV renders batch runs as CSV string.
func RenderCSV(rows []RunRow) string {
	var sb strings.Builder

	sb.WriteString("batch_id,taxi_type,period,model_version,rows_read,rows_retained,rows_dropped,")
	sb.WriteString("drop_rate,mean_predicted,total_predicted,rmse,duration_ms\n")

	for _, r := range rows {
		rmse := ""
		if r.RMSE != nil {
			rmse = fmt.Sprintf("%.6f", *r.RMSE)
		}
		sb.WriteString(fmt.Sprintf("%s,%s,%s,%s,%d,%d,%d,%.6f,%.6f,%.6f,%s,%d\n",
			r.BatchID,
			r.TaxiType,
			r.Period,
			r.ModelVersion,
			r.RowsRead,
			r.RowsRetained,
			r.RowsDropped,
			r.DropRate,
			r.MeanPredicted,
			r.TotalPredicted,
			rmse,
			r.DurationMs,
		))
	}

	return sb.String()
}
