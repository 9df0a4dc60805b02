package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteBatchCSV(t *testing.T) {
	sum, err := FitBatch(context.Background(), mixedWells(), quietBatchOptions())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteBatchCSV(&buf, sum))

	recs, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, recs, 5)
	assert.Equal(t, batchHeader, recs[0])
	assert.Equal(t, "W-A", recs[1][0])
	assert.Equal(t, "insufficient data", recs[1][10])
	assert.Equal(t, "", recs[1][7]) // b_factor NaN -> kosong
	assert.Contains(t, recs[2][10], "error: ")
	assert.Equal(t, "ok", recs[3][10])
}

func TestWriteForecastCSV(t *testing.T) {
	out := EstimateBatch([]EstimateInput{
		{WellName: "A", Qi: 1000, Qe: ArpsRate(1000, 0.05, 0.5, 3), TMonths: 3, Di: 0.05, StartDate: seriesStart},
		{WellName: "B", Qi: 1000, Qe: 500, TMonths: MaxForecastMonths + 5, Di: 0.05, StartDate: seriesStart},
	})

	var buf bytes.Buffer
	require.NoError(t, WriteForecastCSV(&buf, out))
	recs, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)

	// header + 4 bulan sumur A + 1 baris error sumur B
	require.Len(t, recs, 6)
	assert.Equal(t, "2020-01-01", recs[1][4])
	assert.Equal(t, "B", recs[5][0])
	assert.NotEmpty(t, recs[5][7])
}

func TestWriteDeclineCSV(t *testing.T) {
	fit, err := FitWell(context.Background(), syntheticSeries("W1", 1000, 0.1, 0.5, 6), DefaultFitOptions())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteDeclineCSV(&buf, DeclineTable(fit)))
	recs, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Len(t, recs, 7)
	assert.Equal(t, "1000", recs[1][2])
}
