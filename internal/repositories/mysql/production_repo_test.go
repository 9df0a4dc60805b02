package mysql

import (
	"database/sql"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dca-oilgas/internal/services"
)

func TestBuildMonthlyQuery(t *testing.T) {
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	q, args := buildMonthlyQuery(ProdFilter{Wells: []string{"A", "B"}, Start: &start, Limit: 10})

	assert.Contains(t, q, "well_id IN (?,?)")
	assert.Contains(t, q, "prod_date >= ?")
	assert.True(t, strings.HasSuffix(strings.TrimSpace(q), "LIMIT ? OFFSET ?"))
	assert.Equal(t, []any{"A", "B", "2020-01-01", 10, 0}, args)
}

func TestBuildMonthlyQueryNoLimit(t *testing.T) {
	q, args := buildMonthlyQuery(ProdFilter{WellID: "W-1"})
	assert.NotContains(t, q, "LIMIT")
	assert.Contains(t, q, "ORDER BY well_id ASC, prod_date ASC")
	assert.Equal(t, []any{"%W-1%"}, args)
}

func TestToProductionRecords(t *testing.T) {
	d := time.Date(2021, 5, 1, 0, 0, 0, 0, time.UTC)
	recs := ToProductionRecords([]ProdRow{
		{ProdDate: d, WellID: "W", Oil: sql.NullFloat64{Float64: 300, Valid: true}, Days: sql.NullFloat64{Float64: 30, Valid: true}},
		{ProdDate: d.AddDate(0, 1, 0), WellID: "W", Days: sql.NullFloat64{Float64: 31, Valid: true}},
	})
	require.Len(t, recs, 2)
	assert.Equal(t, "2021-05-01", recs[0].Date)
	assert.Equal(t, 10.0, recs[0].Rate())
	assert.True(t, math.IsNaN(recs[1].Oil))
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, "", placeholders(0))
	assert.Equal(t, "?", placeholders(1))
	assert.Equal(t, "?,?,?", placeholders(3))
}

func TestBuildUpsert(t *testing.T) {
	q := buildUpsert(2)
	assert.Contains(t, q, "VALUES (?, ?, ?, ?),(?, ?, ?, ?) ON DUPLICATE KEY")
	assert.Equal(t, 8, strings.Count(q, "?"))
}

func TestBuildResultInsertNullsNaN(t *testing.T) {
	d := time.Date(2021, 5, 1, 0, 0, 0, 0, time.UTC)
	nan := math.NaN()
	rows := []services.BatchRow{
		{WellID: "A", Status: services.StatusOK, QiDate: &d, Qi: 100, QeActual: 50, QeFit: 51, MismatchPct: 2, Di: 0.1, B: 0.5, CumActual: 900, CumFitted: 910},
		{WellID: "B", Status: services.StatusError, Err: "bad date", Qi: nan, QeActual: nan, QeFit: nan, MismatchPct: nan, Di: nan, B: nan, CumActual: nan, CumFitted: nan},
	}
	q, args := buildResultInsert("run-1", rows)

	assert.Equal(t, 24, strings.Count(q, "?"))
	require.Len(t, args, 24)
	assert.Equal(t, "2021-05-01", args[3])
	assert.Equal(t, sql.NullFloat64{Float64: 0.5, Valid: true}, args[9])
	assert.Equal(t, "error: bad date", args[14])
	assert.Nil(t, args[15])
	assert.Equal(t, sql.NullFloat64{}, args[16])
}
