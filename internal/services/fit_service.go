// internal/services/fit_service.go
// Fitting decline satu sumur: deteksi Qi, potong post-peak, optimasi global (DE), metrik fit

package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"dca-oilgas/pkg/optimize"
)

const (
	// MinPostPeakPoints: di bawah ini fitting dilewati (insufficient data).
	MinPostPeakPoints = 3

	// Ruang pencarian Di (per bulan).
	DiSearchMin = 1e-4
	DiSearchMax = 0.6

	DefaultSeed = 42
)

var (
	ErrInvalidBounds    = errors.New("invalid b bounds")
	ErrInsufficientData = errors.New("insufficient data")
)

// Bounds adalah interval inklusif pencarian b.
type Bounds struct {
	BMin float64 `json:"b_min"`
	BMax float64 `json:"b_max"`
}

// Validate menolak bounds yang melanggar 0 <= b_min <= b_max.
func (b Bounds) Validate() error {
	switch {
	case math.IsNaN(b.BMin) || math.IsNaN(b.BMax) || math.IsInf(b.BMin, 0) || math.IsInf(b.BMax, 0):
		return fmt.Errorf("%w: b_min=%v b_max=%v must be finite", ErrInvalidBounds, b.BMin, b.BMax)
	case b.BMin < 0:
		return fmt.Errorf("%w: b_min=%v must be >= 0", ErrInvalidBounds, b.BMin)
	case b.BMin > b.BMax:
		return fmt.Errorf("%w: b_min=%v > b_max=%v", ErrInvalidBounds, b.BMin, b.BMax)
	}
	return nil
}

// FitOptions mengatur satu kali fitting. Seed menimpa Optimizer.Seed.
type FitOptions struct {
	Bounds    Bounds
	Seed      int64
	Optimizer optimize.DEConfig
}

func DefaultFitOptions() FitOptions {
	return FitOptions{
		Bounds:    Bounds{BMin: 0, BMax: 1},
		Seed:      DefaultSeed,
		Optimizer: optimize.DefaultDEConfig(),
	}
}

// InsufficientDataError membawa info anchor untuk sumur yang post-peak-nya terlalu pendek.
type InsufficientDataError struct {
	WellID    string
	Qi        float64
	QiDate    time.Time
	QeActual  float64
	CumActual float64
	Points    int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data: well %s has %d post-peak points (need %d)", e.WellID, e.Points, MinPostPeakPoints)
}

func (e *InsufficientDataError) Unwrap() error { return ErrInsufficientData }

// FitResult adalah hasil fitting satu sumur; tidak diubah setelah dibuat.
type FitResult struct {
	WellID string    `json:"well_id"`
	Qi     float64   `json:"qi"`
	QiDate time.Time `json:"qi_date"`

	Di float64 `json:"di_per_month"`
	B  float64 `json:"b_factor"`

	QeActual    float64 `json:"qe_actual"`
	QeFit       float64 `json:"qe_fit"`
	MismatchPct float64 `json:"mismatch_pct"` // bertanda: (fit - actual) / max(actual,1) * 100

	Objective   float64 `json:"objective"`
	Iterations  int     `json:"iterations"`
	Evaluations int     `json:"evaluations"`
	Converged   bool    `json:"converged"`

	PrePeak   []Record  `json:"pre_peak"`
	PostPeak  []Record  `json:"post_peak"`
	T         []float64 `json:"t_months"`
	Fitted    []float64 `json:"fitted_rate"`
	CumActual []float64 `json:"cumulative_actual"`
	CumFitted []float64 `json:"cumulative_fitted"`

	CumActualTotal float64 `json:"cum_actual"`
	CumFittedTotal float64 `json:"cum_fitted"`
	CumDeltaPct    float64 `json:"cum_delta_pct"`

	Quality FitQuality `json:"quality"`
}

// FitWell menjalankan fitting decline untuk satu deret.
// Error: ErrInvalidBounds (ditolak di batas), ErrInvalidSeries/ErrEmptySeries,
// *InsufficientDataError (post-peak < 3 titik), atau error optimizer (mis. ctx dibatalkan).
func FitWell(ctx context.Context, s RateSeries, opts FitOptions) (*FitResult, error) {
	if err := opts.Bounds.Validate(); err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}

	pre, post, peak, err := s.SplitAtPeak()
	if err != nil {
		return nil, err
	}
	q := rates(post)
	if len(post) < MinPostPeakPoints {
		return nil, &InsufficientDataError{
			WellID:    s.Well,
			Qi:        peak.Rate,
			QiDate:    peak.Date,
			QeActual:  q[len(q)-1],
			CumActual: runningSum(q)[len(q)-1],
			Points:    len(post),
		}
	}

	t := ElapsedMonths(post, peak.Date)
	obj := NewObjective(peak.Rate, t, q, opts.Bounds)

	cfg := opts.Optimizer
	cfg.Seed = opts.Seed
	bounds := []optimize.Bound{
		{Min: DiSearchMin, Max: DiSearchMax},
		{Min: opts.Bounds.BMin, Max: opts.Bounds.BMax},
	}
	res, err := optimize.DifferentialEvolution(ctx, obj.Loss, bounds, cfg)
	if err != nil {
		return nil, fmt.Errorf("optimize well %s: %w", s.Well, err)
	}
	di, b := res.X[0], res.X[1]

	fitted := ArpsRates(peak.Rate, di, b, t)
	qe := obj.Qe
	qeFit := fitted[len(fitted)-1]

	cumActual := runningSum(q)
	cumFitted := runningSum(fitted)
	cumA := cumActual[len(cumActual)-1]
	cumF := cumFitted[len(cumFitted)-1]

	return &FitResult{
		WellID:         s.Well,
		Qi:             peak.Rate,
		QiDate:         peak.Date,
		Di:             di,
		B:              b,
		QeActual:       qe,
		QeFit:          qeFit,
		MismatchPct:    (qeFit - qe) / math.Max(qe, 1) * 100,
		Objective:      res.Fun,
		Iterations:     res.Iterations,
		Evaluations:    res.Evaluations,
		Converged:      res.Converged,
		PrePeak:        pre,
		PostPeak:       post,
		T:              t,
		Fitted:         fitted,
		CumActual:      cumActual,
		CumFitted:      cumFitted,
		CumActualTotal: cumA,
		CumFittedTotal: cumF,
		CumDeltaPct:    (cumF - cumA) / math.Max(cumA, 1) * 100,
		Quality:        EvaluateFit(post, fitted),
	}, nil
}

// runningSum: out[i] = out[i-1] + v[i].
func runningSum(v []float64) []float64 {
	out := make([]float64, len(v))
	var acc float64
	for i, x := range v {
		acc += x
		out[i] = acc
	}
	return out
}
