// internal/handlers/mcp/explain.go
// Narasi hasil fitting (LLM bila dikonfigurasi, fallback ekstraktif)

package mcp

import (
	"context"
	"net/http"
	"time"

	"dca-oilgas/internal/util"
)

type explainReq struct {
	fitBatchReq
	WellID  string     `json:"well_id,omitempty"`
	Records []recordIn `json:"records,omitempty"`
}

// ExplainHandler: well_id/records -> narasi satu sumur; wells/rows -> narasi batch.
func ExplainHandler(w http.ResponseWriter, r *http.Request) {
	var in explainReq
	if err := decodeBody(r, &in); err != nil {
		writeAppError(w, util.BadInput("invalid json: "+err.Error()))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
	defer cancel()

	if len(in.Wells) == 0 && len(in.Rows) == 0 && len(in.WellIDs) == 0 {
		fit, out, aerr := runFitWell(ctx, fitWellReq{WellID: in.WellID, Records: in.Records, fitParams: in.fitParams})
		if aerr != nil {
			writeAppError(w, *aerr)
			return
		}
		if fit == nil {
			writeJSON(w, http.StatusUnprocessableEntity, out)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"narrative": narrator.ExplainFit(ctx, fit),
			"fit":       fit,
		})
		return
	}

	wells, aerr := collectWells(ctx, in.fitBatchReq)
	if aerr != nil {
		writeAppError(w, *aerr)
		return
	}
	sum, aerr := runBatch(ctx, wells, in.batchOptions())
	if aerr != nil {
		writeAppError(w, *aerr)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"narrative": narrator.ExplainBatch(ctx, sum),
		"summary":   sum,
	})
}
