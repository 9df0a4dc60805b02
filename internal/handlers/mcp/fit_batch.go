// internal/handlers/mcp/fit_batch.go
// MCP Tool: fit_batch - fitting semua sumur (JSON / CSV / SSE)

package mcp

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	mysqlrepo "dca-oilgas/internal/repositories/mysql"
	"dca-oilgas/internal/services"
	"dca-oilgas/internal/util"
	"dca-oilgas/internal/util/sse"
)

type fitBatchReq struct {
	Wells   []wellIn                    `json:"wells,omitempty"`
	Rows    []services.ProductionRecord `json:"rows,omitempty"` // long format: well_id,date,oil,days
	WellIDs []string                    `json:"well_ids,omitempty"`
	Workers int                         `json:"workers,omitempty"`
	fitParams
}

// collectWells menggabungkan input inline; bila kosong, ambil dari repo.
func collectWells(ctx context.Context, in fitBatchReq) ([]services.WellSource, *util.AppError) {
	var rows []services.ProductionRecord
	for _, wl := range in.Wells {
		id := strings.TrimSpace(wl.WellID)
		if id == "" {
			e := util.BadInput("every well needs well_id")
			return nil, &e
		}
		rows = append(rows, toProductionRecords(id, wl.Records)...)
	}
	rows = append(rows, in.Rows...)
	if len(rows) > 0 {
		return services.GroupByWell(rows), nil
	}

	if productionRepo == nil {
		e := util.Unavailable("production repo not configured; send wells inline")
		return nil, &e
	}
	wells, err := productionRepo.LoadWells(ctx, mysqlrepo.ProdFilter{Wells: in.WellIDs})
	if err != nil {
		e := util.Internal(err.Error())
		return nil, &e
	}
	return wells, nil
}

func (in fitBatchReq) batchOptions() services.BatchOptions {
	workers := in.Workers
	if workers <= 0 {
		workers = batchWorkers
	}
	return services.BatchOptions{Fit: in.options(), Workers: workers, Logger: logger}
}

func runBatch(ctx context.Context, wells []services.WellSource, opts services.BatchOptions) (*services.BatchSummary, *util.AppError) {
	sum, err := services.FitBatch(ctx, wells, opts)
	if err != nil {
		e := classify(err)
		return nil, &e
	}
	batchRuns.Add(1)
	for _, row := range sum.Rows {
		countRow(string(row.Status))
	}
	return sum, nil
}

func FitBatchHandler(w http.ResponseWriter, r *http.Request) {
	var in fitBatchReq
	if err := decodeBody(r, &in); err != nil {
		writeAppError(w, util.BadInput("invalid json: "+err.Error()))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Minute)
	defer cancel()

	wells, aerr := collectWells(ctx, in)
	if aerr != nil {
		writeAppError(w, *aerr)
		return
	}
	sum, aerr := runBatch(ctx, wells, in.batchOptions())
	if aerr != nil {
		writeAppError(w, *aerr)
		return
	}

	if wantCSV(r) {
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="dca_summary.csv"`)
		if err := services.WriteBatchCSV(w, sum); err != nil {
			logger.WithError(err).Warn("write batch csv")
		}
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// FitBatchStreamHandler mengirim event SSE "progress" per sumur lalu "summary".
func FitBatchStreamHandler(w http.ResponseWriter, r *http.Request) {
	var in fitBatchReq
	if err := decodeBody(r, &in); err != nil {
		writeAppError(w, util.BadInput("invalid json: "+err.Error()))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Minute)
	defer cancel()

	wells, aerr := collectWells(ctx, in)
	if aerr != nil {
		writeAppError(w, *aerr)
		return
	}
	opts := in.batchOptions()
	if err := opts.Fit.Bounds.Validate(); err != nil {
		writeAppError(w, classify(err))
		return
	}

	flusher := sse.PrepareSSE(w)
	var mu sync.Mutex
	opts.Progress = func(ev services.ProgressEvent) {
		mu.Lock()
		defer mu.Unlock()
		_ = sse.WriteEvent(w, flusher, "progress", ev)
	}

	sum, aerr := runBatch(ctx, wells, opts)
	mu.Lock()
	defer mu.Unlock()
	if aerr != nil {
		_ = sse.WriteEvent(w, flusher, "error", map[string]string{"error": aerr.Code, "message": aerr.Message})
		return
	}
	_ = sse.WriteEvent(w, flusher, "summary", map[string]any{
		"run_id":       sum.RunID,
		"ok":           sum.OK,
		"insufficient": sum.Insufficient,
		"failed":       sum.Failed,
		"rows":         sum.Rows,
	})
	_ = sse.WriteEvent(w, flusher, "done", "[DONE]")
}

// AdminBatchRunHandler: fitting semua sumur di DB (route admin, JWT).
func AdminBatchRunHandler(w http.ResponseWriter, r *http.Request) {
	if productionRepo == nil {
		writeAppError(w, util.Unavailable("production repo not configured"))
		return
	}
	var in fitBatchReq
	if r.ContentLength > 0 {
		if err := decodeBody(r, &in); err != nil {
			writeAppError(w, util.BadInput("invalid json: "+err.Error()))
			return
		}
	}
	in.Wells, in.Rows = nil, nil

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Minute)
	defer cancel()

	wells, aerr := collectWells(ctx, in)
	if aerr != nil {
		writeAppError(w, *aerr)
		return
	}
	sum, aerr := runBatch(ctx, wells, in.batchOptions())
	if aerr != nil {
		writeAppError(w, *aerr)
		return
	}
	if runStore != nil {
		if err := runStore.SaveRun(ctx, sum); err != nil {
			logger.WithError(err).WithField("run_id", sum.RunID).Warn("save batch run")
		} else {
			w.Header().Set("X-Run-Persisted", "true")
		}
	}
	writeJSON(w, http.StatusOK, sum)
}
