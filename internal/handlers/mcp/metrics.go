// internal/handlers/mcp/metrics.go
// Counter sederhana untuk /metrics

package mcp

import "sync/atomic"

var (
	fitsOK           atomic.Int64
	fitsInsufficient atomic.Int64
	fitsFailed       atomic.Int64
	batchRuns        atomic.Int64
	estimatorRows    atomic.Int64
)

func countRow(status string) {
	switch status {
	case "ok":
		fitsOK.Add(1)
	case "insufficient data":
		fitsInsufficient.Add(1)
	default:
		fitsFailed.Add(1)
	}
}

// Counters dibaca oleh metrics handler (format Prometheus).
func Counters() map[string]int64 {
	return map[string]int64{
		"dca_fits_ok_total":           fitsOK.Load(),
		"dca_fits_insufficient_total": fitsInsufficient.Load(),
		"dca_fits_failed_total":       fitsFailed.Load(),
		"dca_batch_runs_total":        batchRuns.Load(),
		"dca_estimator_rows_total":    estimatorRows.Load(),
	}
}
