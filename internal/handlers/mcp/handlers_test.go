package mcp

import (
	"bufio"
	"bytes"
	"context"
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mysqlrepo "dca-oilgas/internal/repositories/mysql"
	"dca-oilgas/internal/services"
)

type fakeStore struct {
	rows []mysqlrepo.ProdRow
	err  error
}

func (f *fakeStore) ListMonthly(ctx context.Context, flt mysqlrepo.ProdFilter) ([]mysqlrepo.ProdRow, error) {
	return f.rows, f.err
}

func (f *fakeStore) LoadWells(ctx context.Context, flt mysqlrepo.ProdFilter) ([]services.WellSource, error) {
	if f.err != nil {
		return nil, f.err
	}
	rows := f.rows
	if len(flt.Wells) > 0 {
		keep := map[string]bool{}
		for _, w := range flt.Wells {
			keep[w] = true
		}
		rows = nil
		for _, r := range f.rows {
			if keep[r.WellID] {
				rows = append(rows, r)
			}
		}
	}
	return services.GroupByWell(mysqlrepo.ToProductionRecords(rows)), nil
}

var start = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

// declineRecords: puncak di bulan 2, lalu decline Arps (qi=1000, di=0.1, b=0.5).
func declineRecords(months int) []map[string]any {
	out := []map[string]any{
		{"date": start.Format("2006-01-02"), "rate": 500.0},
		{"date": start.AddDate(0, 1, 0).Format("2006-01-02"), "rate": 800.0},
	}
	peak := start.AddDate(0, 2, 0)
	for k := 0; k < months; k++ {
		d := peak.AddDate(0, k, 0)
		t := math.Floor(d.Sub(peak).Hours()/24) / services.DaysPerMonth
		out = append(out, map[string]any{"date": d.Format("2006-01-02"), "rate": services.ArpsRate(1000, 0.1, 0.5, t)})
	}
	return out
}

func storeRows(well string, months int) []mysqlrepo.ProdRow {
	var out []mysqlrepo.ProdRow
	for _, rec := range declineRecords(months) {
		d, _ := time.Parse("2006-01-02", rec["date"].(string))
		out = append(out, mysqlrepo.ProdRow{
			ProdDate: d, WellID: well,
			Oil:  sql.NullFloat64{Float64: rec["rate"].(float64) * 30, Valid: true},
			Days: sql.NullFloat64{Float64: 30, Valid: true},
		})
	}
	return out
}

func post(t *testing.T, h http.HandlerFunc, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, target, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func TestFitWellHandlerInline(t *testing.T) {
	SetProductionRepo(nil)
	rec := post(t, FitWellHandler, "/api/decline/fit", map[string]any{
		"well_id": "W-1",
		"records": declineRecords(24),
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var out struct {
		Fit struct {
			WellID string  `json:"well_id"`
			Qi     float64 `json:"qi"`
			Di     float64 `json:"di_per_month"`
			B      float64 `json:"b_factor"`
		} `json:"fit"`
		DeclineTable []map[string]any `json:"decline_table"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "W-1", out.Fit.WellID)
	assert.Equal(t, 1000.0, out.Fit.Qi)
	assert.InDelta(t, 0.5, out.Fit.B, 0.02)
	assert.Len(t, out.DeclineTable, 24)
}

func TestFitWellHandlerBadBounds(t *testing.T) {
	rec := post(t, FitWellHandler, "/api/decline/fit", map[string]any{
		"well_id": "W-1", "records": declineRecords(6), "b_min": 0.9, "b_max": 0.1,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "bad_input")
}

func TestFitWellHandlerInsufficient(t *testing.T) {
	rec := post(t, FitWellHandler, "/api/decline/fit", map[string]any{
		"well_id": "W-2", "records": declineRecords(2),
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "insufficient data")
	assert.Contains(t, rec.Body.String(), `"qi":1000`)
}

func TestFitWellHandlerFromStore(t *testing.T) {
	SetProductionRepo(&fakeStore{rows: append(storeRows("A", 12), storeRows("B", 12)...)})
	defer SetProductionRepo(nil)

	rec := post(t, FitWellHandler, "/api/decline/fit", map[string]any{"well_id": "B"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"well_id":"B"`)

	rec = post(t, FitWellHandler, "/api/decline/fit", map[string]any{"well_id": "Z"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFitWellHandlerNoSource(t *testing.T) {
	SetProductionRepo(nil)
	rec := post(t, FitWellHandler, "/api/decline/fit", map[string]any{"well_id": "A"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func batchBody() map[string]any {
	return map[string]any{
		"wells": []map[string]any{
			{"well_id": "W-B", "records": declineRecords(12)},
			{"well_id": "W-A", "records": declineRecords(2)},
			{"well_id": "W-C", "records": []map[string]any{{"date": "bogus", "rate": 1.0}}},
		},
	}
}

func TestFitBatchHandlerJSON(t *testing.T) {
	rec := post(t, FitBatchHandler, "/api/decline/batch", batchBody())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var out struct {
		Rows []map[string]any `json:"rows"`
		OK   int              `json:"ok"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out.Rows, 3)
	assert.Equal(t, "W-A", out.Rows[0]["well"])
	assert.Equal(t, "insufficient data", out.Rows[0]["status"])
	assert.Equal(t, "ok", out.Rows[1]["status"])
	assert.True(t, strings.HasPrefix(out.Rows[2]["status"].(string), "error: "))
	assert.Nil(t, out.Rows[2]["b_factor"])
	assert.Equal(t, 1, out.OK)
}

func TestFitBatchHandlerCSV(t *testing.T) {
	rec := post(t, FitBatchHandler, "/api/decline/batch?format=csv", batchBody())
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))

	recs, err := csv.NewReader(rec.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, recs, 4)
	assert.Equal(t, "well", recs[0][0])
	assert.Equal(t, "Mismatch_%", recs[0][5])
}

func TestFitBatchStreamHandler(t *testing.T) {
	rec := post(t, FitBatchStreamHandler, "/api/decline/batch/stream", batchBody())
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	events := map[string]int{}
	sc := bufio.NewScanner(strings.NewReader(rec.Body.String()))
	for sc.Scan() {
		if ev, ok := strings.CutPrefix(sc.Text(), "event: "); ok {
			events[ev]++
		}
	}
	assert.Equal(t, 3, events["progress"])
	assert.Equal(t, 1, events["summary"])
	assert.Equal(t, 1, events["done"])
}

func TestFitBatchHandlerStoreError(t *testing.T) {
	SetProductionRepo(&fakeStore{err: errors.New("db down")})
	defer SetProductionRepo(nil)

	rec := post(t, FitBatchHandler, "/api/decline/batch", map[string]any{})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestAdminBatchRunHandler(t *testing.T) {
	SetProductionRepo(nil)
	rec := post(t, AdminBatchRunHandler, "/admin/batch/run", map[string]any{})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	SetProductionRepo(&fakeStore{rows: storeRows("A", 8)})
	defer SetProductionRepo(nil)
	rec = post(t, AdminBatchRunHandler, "/admin/batch/run", map[string]any{})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
	assert.Empty(t, rec.Header().Get("X-Run-Persisted"))
}

type memRunStore struct{ runs []*services.BatchSummary }

func (m *memRunStore) SaveRun(ctx context.Context, sum *services.BatchSummary) error {
	m.runs = append(m.runs, sum)
	return nil
}

func TestAdminBatchRunPersists(t *testing.T) {
	store := &memRunStore{}
	SetRunStore(store)
	defer SetRunStore(nil)
	SetProductionRepo(&fakeStore{rows: append(storeRows("B", 8), storeRows("A", 8)...)})
	defer SetProductionRepo(nil)

	rec := post(t, AdminBatchRunHandler, "/admin/batch/run", map[string]any{})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "true", rec.Header().Get("X-Run-Persisted"))
	require.Len(t, store.runs, 1)
	require.Len(t, store.runs[0].Rows, 2)
	assert.Equal(t, "A", store.runs[0].Rows[0].WellID)
}

func TestEstimateBHandler(t *testing.T) {
	qe := services.ArpsRate(1000, 0.05, 0.8, 12)
	rec := post(t, EstimateBHandler, "/forecast/estimate-b", map[string]any{
		"rows": []map[string]any{
			{"well_name": "W1", "qi": 1000, "qe": qe, "t_months": 12, "di": 0.05, "start_date": "2024-01-01"},
			{"well_name": "W2", "qi": 1000, "qe": 500, "t_months": 12, "di": -1, "start_date": "2024-01-01"},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var out struct {
		Forecasts []struct {
			WellName   string           `json:"well_name"`
			EstimatedB *float64         `json:"estimated_b"`
			Error      string           `json:"error"`
			Forecast   []map[string]any `json:"forecast"`
		} `json:"forecasts"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out.Forecasts, 2)
	require.NotNil(t, out.Forecasts[0].EstimatedB)
	assert.InDelta(t, 0.8, *out.Forecasts[0].EstimatedB, 1e-6)
	assert.Len(t, out.Forecasts[0].Forecast, 13)
	assert.Nil(t, out.Forecasts[1].EstimatedB)
	assert.NotEmpty(t, out.Forecasts[1].Error)
}

func TestEstimateBHandlerBadDateStaysInRow(t *testing.T) {
	qe := services.ArpsRate(1000, 0.05, 0.8, 12)
	rec := post(t, EstimateBHandler, "/forecast/estimate-b", map[string]any{
		"rows": []map[string]any{
			{"well_name": "W1", "qi": 1000, "qe": qe, "t_months": 12, "di": 0.05, "start_date": "2024-01-01"},
			{"well_name": "bad", "qi": 1000, "qe": 500, "t_months": 12, "di": 0.05, "start_date": "not-a-date"},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var out struct {
		Forecasts []struct {
			WellName   string           `json:"well_name"`
			EstimatedB *float64         `json:"estimated_b"`
			StartDate  *string          `json:"start_date"`
			Forecast   []map[string]any `json:"forecast"`
			Error      string           `json:"error"`
		} `json:"forecasts"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out.Forecasts, 2)

	require.NotNil(t, out.Forecasts[0].EstimatedB)
	assert.InDelta(t, 0.8, *out.Forecasts[0].EstimatedB, 1e-6)
	assert.Len(t, out.Forecasts[0].Forecast, 13)

	assert.Equal(t, "bad", out.Forecasts[1].WellName)
	assert.Nil(t, out.Forecasts[1].EstimatedB)
	assert.Nil(t, out.Forecasts[1].StartDate)
	assert.Empty(t, out.Forecasts[1].Forecast)
	assert.Contains(t, out.Forecasts[1].Error, "row 2: start_date")
}

func TestEstimateBHandlerRejectsEmptyRows(t *testing.T) {
	rec := post(t, EstimateBHandler, "/forecast/estimate-b", map[string]any{"rows": []any{}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOverviewHandler(t *testing.T) {
	rec := post(t, OverviewHandler, "/api/decline/overview", batchBody())
	require.Equal(t, http.StatusOK, rec.Code)

	var out struct {
		Overview services.Overview `json:"overview"`
		Invalid  []string          `json:"invalid_wells"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, 2, out.Overview.TotalWells)
	assert.Equal(t, []string{"W-C"}, out.Invalid)
}

func TestExplainHandlerFallback(t *testing.T) {
	SetNarrator(nil)
	rec := post(t, ExplainHandler, "/api/decline/explain", map[string]any{
		"well_id": "W-1", "records": declineRecords(12),
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"source":"extractive"`)

	rec = post(t, ExplainHandler, "/api/decline/explain", batchBody())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "3 sumur")
}

func TestGetProductionHandler(t *testing.T) {
	SetProductionRepo(&fakeStore{rows: storeRows("A", 3)})
	defer SetProductionRepo(nil)

	req := httptest.NewRequest(http.MethodGet, "/api/production?well=A", nil)
	rec := httptest.NewRecorder()
	GetProductionHandler(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var out []ProductionRow
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out, 5)
	require.NotNil(t, out[0].Rate)
	assert.InDelta(t, 500, *out[0].Rate, 1e-9)
}

func TestCountersIncrement(t *testing.T) {
	SetProductionRepo(nil)
	SetNarrator(nil)
	before := Counters()["dca_batch_runs_total"]
	post(t, FitBatchHandler, "/api/decline/batch", batchBody())
	assert.Equal(t, before+1, Counters()["dca_batch_runs_total"])
	assert.Equal(t, map[string]bool{"production": false, "llm": false}, ReposStatus())
}
