// internal/handlers/mcp/overview.go
// KPI dataset: jumlah sumur, record, rentang tanggal

package mcp

import (
	"context"
	"net/http"
	"time"

	"dca-oilgas/internal/services"
	"dca-oilgas/internal/util"
)

func OverviewHandler(w http.ResponseWriter, r *http.Request) {
	var in fitBatchReq
	if err := decodeBody(r, &in); err != nil {
		writeAppError(w, util.BadInput("invalid json: "+err.Error()))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	wells, aerr := collectWells(ctx, in)
	if aerr != nil {
		writeAppError(w, *aerr)
		return
	}

	series := make([]services.RateSeries, 0, len(wells))
	invalid := []string{}
	for _, wl := range wells {
		s, err := wl.Series()
		if err != nil {
			invalid = append(invalid, wl.WellID())
			continue
		}
		series = append(series, s)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"overview":      services.Summarize(series),
		"invalid_wells": invalid,
	})
}
