// internal/handlers/mcp/get_production.go
// MCP Tool: get_production - ambil data produksi bulanan (oil, days, rate)

package mcp

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	mysqlrepo "dca-oilgas/internal/repositories/mysql"
)

type ProductionRow struct {
	Date   string   `json:"date"` // YYYY-MM-DD
	WellID string   `json:"well_id"`
	Oil    *float64 `json:"oil,omitempty"`
	Days   *float64 `json:"days,omitempty"`
	Rate   *float64 `json:"rate,omitempty"` // oil / days
}

type prodReq struct {
	WellID string `json:"well_id,omitempty"`
	Start  string `json:"start,omitempty"` // "2020-01-01"
	End    string `json:"end,omitempty"`   // exclusive
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

func GetProductionHandler(w http.ResponseWriter, r *http.Request) {
	if productionRepo == nil {
		http.Error(w, "production repo not configured", http.StatusServiceUnavailable)
		return
	}

	q := r.URL.Query()

	// Terima well_id dan well (alias)
	wellID := strings.TrimSpace(q.Get("well_id"))
	if wellID == "" {
		wellID = strings.TrimSpace(q.Get("well"))
	}

	in := prodReq{
		WellID: wellID,
		Start:  strings.TrimSpace(q.Get("start")),
		End:    strings.TrimSpace(q.Get("end")),
	}
	if v := q.Get("limit"); v != "" {
		if n, _ := strconv.Atoi(v); n > 0 {
			in.Limit = n
		}
	}
	if v := q.Get("offset"); v != "" {
		if n, _ := strconv.Atoi(v); n >= 0 {
			in.Offset = n
		}
	}

	if r.Method == http.MethodPost && in.WellID == "" && in.Start == "" && in.End == "" {
		_ = json.NewDecoder(r.Body).Decode(&in)
		in.WellID = strings.TrimSpace(in.WellID)
		in.Start = strings.TrimSpace(in.Start)
		in.End = strings.TrimSpace(in.End)
	}
	if in.Limit <= 0 || in.Limit > 5000 {
		in.Limit = 1000
	}

	parseDate := func(s string) *time.Time {
		if s == "" {
			return nil
		}
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			return nil
		}
		return &t
	}

	f := mysqlrepo.ProdFilter{
		WellID: in.WellID,
		Start:  parseDate(in.Start),
		End:    parseDate(in.End),
		Limit:  in.Limit,
		Offset: in.Offset,
	}

	ctx, cancel := context.WithTimeout(r.Context(), 6*time.Second)
	defer cancel()

	rows, err := productionRepo.ListMonthly(ctx, f)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":   "db_error",
			"message": err.Error(),
			"input":   in,
		})
		return
	}

	out := make([]ProductionRow, 0, len(rows))
	for _, rr := range rows {
		rec := ProductionRow{
			Date:   rr.ProdDate.Format("2006-01-02"),
			WellID: rr.WellID,
		}
		if rr.Oil.Valid {
			v := rr.Oil.Float64
			rec.Oil = &v
		}
		if rr.Days.Valid {
			v := rr.Days.Float64
			rec.Days = &v
		}
		if rec.Oil != nil && rec.Days != nil && *rec.Days != 0 {
			if v := *rec.Oil / *rec.Days; !math.IsNaN(v) && !math.IsInf(v, 0) {
				rec.Rate = &v
			}
		}
		out = append(out, rec)
	}

	writeJSON(w, http.StatusOK, out)
}
