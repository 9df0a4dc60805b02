// internal/handlers/mcp/estimate_b.go
// MCP Tool: estimate_b - estimator b dua titik + tabel forecast bulanan

package mcp

import (
	"fmt"
	"net/http"
	"strings"

	"dca-oilgas/internal/services"
	"dca-oilgas/internal/util"
)

type estimateRowIn struct {
	WellName  string  `json:"well_name"`
	Qi        float64 `json:"qi"`
	Qe        float64 `json:"qe"`
	TMonths   float64 `json:"t_months"`
	Di        float64 `json:"di"`
	StartDate string  `json:"start_date"`
}

type estimateReq struct {
	Rows []estimateRowIn `json:"rows"`
}

// MaxEstimatorRows membatasi satu request estimator.
const MaxEstimatorRows = 5000

// toEstimateInputs: start_date yang tidak valid hanya menggagalkan barisnya sendiri.
func toEstimateInputs(rows []estimateRowIn) []services.EstimateInput {
	out := make([]services.EstimateInput, 0, len(rows))
	for i, r := range rows {
		in := services.EstimateInput{
			WellName: strings.TrimSpace(r.WellName),
			Qi:       r.Qi,
			Qe:       r.Qe,
			TMonths:  r.TMonths,
			Di:       r.Di,
		}
		d, err := services.ParseDate(r.StartDate)
		if err != nil {
			in.InputErr = fmt.Errorf("row %d: start_date: %w", i+1, err)
		}
		in.StartDate = d
		out = append(out, in)
	}
	return out
}

// EstimateBHandler memproses setiap baris secara independen; baris invalid membawa pesan error sendiri.
func EstimateBHandler(w http.ResponseWriter, r *http.Request) {
	var in estimateReq
	if err := decodeBody(r, &in); err != nil {
		writeAppError(w, util.BadInput("invalid json: "+err.Error()))
		return
	}
	if len(in.Rows) == 0 {
		writeAppError(w, util.BadInput("rows required"))
		return
	}
	if len(in.Rows) > MaxEstimatorRows {
		writeAppError(w, util.BadInput(fmt.Sprintf("too many rows (max %d)", MaxEstimatorRows)))
		return
	}

	out := services.EstimateBatch(toEstimateInputs(in.Rows))
	estimatorRows.Add(int64(len(out)))

	if wantCSV(r) {
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="forecast.csv"`)
		if err := services.WriteForecastCSV(w, out); err != nil {
			logger.WithError(err).Warn("write forecast csv")
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"forecasts": out})
}
