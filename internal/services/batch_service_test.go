package services

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dca-oilgas/internal/util"
)

// panicWell selalu panic saat deret diminta.
type panicWell struct{ id string }

func (p panicWell) WellID() string              { return p.id }
func (p panicWell) Series() (RateSeries, error) { panic("corrupt source") }

func quietBatchOptions() BatchOptions {
	log := logrus.New()
	log.SetOutput(&bytes.Buffer{})
	return BatchOptions{Fit: DefaultFitOptions(), Workers: 1, Logger: log}
}

func mixedWells() []WellSource {
	return []WellSource{
		syntheticSeries("W-C", 900, 0.08, 0.4, 18),
		shortSeries("W-A"),
		RawWell{Well: "W-B", Rows: []ProductionRecord{{WellID: "W-B", Date: "31/31/2020", Oil: 10, Days: 1}}},
		syntheticSeries("W-D", 1200, 0.12, 0.6, 18),
	}
}

func TestFitBatchStatusesAndOrder(t *testing.T) {
	sum, err := FitBatch(context.Background(), mixedWells(), quietBatchOptions())
	require.NoError(t, err)
	require.Len(t, sum.Rows, 4)

	ids := []string{}
	for _, r := range sum.Rows {
		ids = append(ids, r.WellID)
	}
	assert.Equal(t, []string{"W-A", "W-B", "W-C", "W-D"}, ids)

	a := sum.Rows[0]
	assert.Equal(t, StatusInsufficientData, a.Status)
	assert.Equal(t, 300.0, a.Qi)
	assert.Equal(t, 250.0, a.QeActual)
	assert.True(t, math.IsNaN(a.Di))
	assert.True(t, math.IsNaN(a.B))
	assert.True(t, math.IsNaN(a.QeFit))
	require.NotNil(t, a.QiDate)

	b := sum.Rows[1]
	assert.Equal(t, StatusError, b.Status)
	assert.True(t, strings.HasPrefix(b.StatusText(), "error: "))
	assert.Nil(t, b.QiDate)
	assert.True(t, math.IsNaN(b.Qi))

	for _, r := range sum.Rows[2:] {
		assert.Equal(t, StatusOK, r.Status)
		require.NotNil(t, r.Fit)
		assert.GreaterOrEqual(t, r.MismatchPct, 0.0)
		assert.InDelta(t, math.Abs(r.Fit.MismatchPct), r.MismatchPct, 1e-9)
		assert.Equal(t, r.Fit.CumFittedTotal, r.CumFitted)
	}

	assert.Equal(t, 2, sum.OK)
	assert.Equal(t, 1, sum.Insufficient)
	assert.Equal(t, 1, sum.Failed)
	assert.NotEmpty(t, sum.RunID)
}

func TestFitBatchParallelMatchesSequential(t *testing.T) {
	seq, err := FitBatch(context.Background(), mixedWells(), quietBatchOptions())
	require.NoError(t, err)

	opts := quietBatchOptions()
	opts.Workers = 4
	par, err := FitBatch(context.Background(), mixedWells(), opts)
	require.NoError(t, err)

	require.Len(t, par.Rows, len(seq.Rows))
	for i := range seq.Rows {
		assert.Equal(t, seq.Rows[i].WellID, par.Rows[i].WellID)
		assert.Equal(t, seq.Rows[i].Status, par.Rows[i].Status)
		if seq.Rows[i].Status == StatusOK {
			assert.Equal(t, seq.Rows[i].Di, par.Rows[i].Di)
			assert.Equal(t, seq.Rows[i].B, par.Rows[i].B)
		}
	}
}

func TestFitBatchRecoversPanic(t *testing.T) {
	wells := []WellSource{panicWell{id: "W-P"}, syntheticSeries("W-Q", 900, 0.08, 0.4, 12)}
	sum, err := FitBatch(context.Background(), wells, quietBatchOptions())
	require.NoError(t, err)

	assert.Equal(t, StatusError, sum.Rows[0].Status)
	assert.Contains(t, sum.Rows[0].Err, "corrupt source")
	assert.Equal(t, StatusOK, sum.Rows[1].Status)
}

func TestFitBatchPanicLoggedWithRunID(t *testing.T) {
	log, hook := logtest.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)
	opts := quietBatchOptions()
	opts.Logger = log

	sum, err := FitBatch(context.Background(), []WellSource{panicWell{id: "W-P"}}, opts)
	require.NoError(t, err)

	var found bool
	for _, e := range hook.AllEntries() {
		if strings.Contains(e.Message, "recovered panic") {
			found = true
			assert.Equal(t, sum.RunID, e.Data["run_id"])
			assert.Equal(t, "W-P", e.Data["well"])
		}
	}
	assert.True(t, found, "panic not logged through injected logger")
}

func TestFitBatchCancelledReturnsError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sum, err := FitBatch(ctx, mixedWells(), quietBatchOptions())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, sum)
	assert.Len(t, sum.Rows, len(mixedWells()))
}

func TestFitBatchInvalidBounds(t *testing.T) {
	opts := quietBatchOptions()
	opts.Fit.Bounds = Bounds{BMin: 1, BMax: 0.5}
	_, err := FitBatch(context.Background(), mixedWells(), opts)
	assert.ErrorIs(t, err, ErrInvalidBounds)
}

func TestFitBatchProgress(t *testing.T) {
	var (
		mu     sync.Mutex
		events []ProgressEvent
	)
	opts := quietBatchOptions()
	opts.Workers = 2
	opts.Progress = func(ev ProgressEvent) {
		mu.Lock()
		events = append(events, ev)
		mu.Unlock()
	}
	sum, err := FitBatch(context.Background(), mixedWells(), opts)
	require.NoError(t, err)

	require.Len(t, events, 4)
	seen := map[string]bool{}
	for i, ev := range events {
		assert.Equal(t, sum.RunID, ev.RunID)
		assert.Equal(t, i+1, ev.Done)
		assert.Equal(t, 4, ev.Total)
		seen[ev.WellID] = true
	}
	assert.Len(t, seen, 4)
}

func TestBatchRowJSON(t *testing.T) {
	row := emptyRow("W-X")
	row.Status = StatusError
	row.Err = "boom"

	raw, err := json.Marshal(row)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, "W-X", got["well"])
	assert.Equal(t, "error: boom", got["status"])
	assert.Nil(t, got["Qi_detected"])
	assert.Nil(t, got["b_factor"])
	assert.Nil(t, got["qi_date"])
	assert.Contains(t, got, "Mismatch_%")
}

func TestFitBatchEmpty(t *testing.T) {
	sum, err := FitBatch(context.Background(), nil, quietBatchOptions())
	require.NoError(t, err)
	assert.Empty(t, sum.Rows)
	assert.Zero(t, sum.OK+sum.Insufficient+sum.Failed)
}

func TestFitBatchUsesInjectedClock(t *testing.T) {
	at := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	opts := quietBatchOptions()
	opts.Clock = util.FixedClock{T: at}

	sum, err := FitBatch(context.Background(), []WellSource{shortSeries("W-S")}, opts)
	require.NoError(t, err)
	assert.Equal(t, at, sum.StartedAt)
	assert.Equal(t, at, sum.FinishedAt)
}
