package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"dca-oilgas/internal/services"
)

type fakeClient struct {
	out string
	err error
}

func (f fakeClient) Complete(ctx context.Context, system, prompt string) (string, error) {
	return f.out, f.err
}
func (f fakeClient) Model() string { return "fake" }

func sampleFit() *services.FitResult {
	return &services.FitResult{
		WellID: "W-1", Qi: 1000, QiDate: time.Date(2020, 4, 1, 0, 0, 0, 0, time.UTC),
		Di: 0.1, B: 1.2, QeActual: 400, QeFit: 410, MismatchPct: 2.5,
	}
}

func TestNarratorExtractiveWithoutClient(t *testing.T) {
	n := &Narrator{}
	got := n.ExplainFit(context.Background(), sampleFit())
	assert.Equal(t, "extractive", got.Source)
	assert.Contains(t, got.Text, "W-1")
	assert.Contains(t, got.Text, "2020-04-01")
	assert.Contains(t, got.Text, "b > 1")
}

func TestNarratorUsesClient(t *testing.T) {
	n := &Narrator{Client: fakeClient{out: "ringkasan"}}
	got := n.ExplainFit(context.Background(), sampleFit())
	assert.Equal(t, "llm", got.Source)
	assert.Equal(t, "ringkasan", got.Text)
	assert.Equal(t, "fake", got.Model)
}

func TestNarratorFallsBackOnError(t *testing.T) {
	n := &Narrator{Client: fakeClient{err: errors.New("timeout")}}
	got := n.ExplainBatch(context.Background(), &services.BatchSummary{
		Rows: []services.BatchRow{
			{WellID: "A", Status: services.StatusOK, MismatchPct: 1},
			{WellID: "B", Status: services.StatusOK, MismatchPct: 7},
			{WellID: "C", Status: services.StatusError},
		},
		OK: 2, Failed: 1,
	})
	assert.Equal(t, "extractive", got.Source)
	assert.Contains(t, got.Text, "3 sumur")
	assert.Contains(t, got.Text, "B (7.00%)")
}
