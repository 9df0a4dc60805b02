// internal/services/twopoint_service.go
// Estimator alternatif: cari b dari dua titik (0, Qi) dan (t, Qe) dengan Di tetap,
// lalu proyeksikan tabel forecast bulanan mulai tanggal tertentu.

package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"dca-oilgas/pkg/optimize"
)

const (
	// Batas b untuk estimator dua titik: (~0, 5].
	TwoPointBMin = 1e-6
	TwoPointBMax = 5.0

	twoPointInitialB = 1.0

	// MaxForecastMonths membatasi panjang tabel forecast (100 tahun).
	MaxForecastMonths = 1200
)

var ErrInvalidEstimatorInput = errors.New("invalid estimator input")

// EstimateB menyelesaikan b sehingga ArpsRate(qi, di, b, tMonths) ~ qe.
// Gagal (input invalid, tidak konvergen, sistem singular) -> NaN + error; NaN tidak boleh di-default-kan.
// Target yang tidak terjangkau di dalam (~0, 5] berhenti di batas b terdekat.
func EstimateB(qi, qe, tMonths, di float64) (float64, error) {
	inputs := []struct {
		name string
		v    float64
	}{{"qi", qi}, {"qe", qe}, {"t_months", tMonths}, {"di", di}}
	for _, in := range inputs {
		if math.IsNaN(in.v) || math.IsInf(in.v, 0) || in.v <= 0 {
			return math.NaN(), fmt.Errorf("%w: %s=%v must be finite and > 0", ErrInvalidEstimatorInput, in.name, in.v)
		}
	}

	ts := [2]float64{0, tMonths}
	ys := [2]float64{qi, qe}
	residuals := func(p []float64) []float64 {
		return []float64{
			ArpsRate(qi, di, p[0], ts[0]) - ys[0],
			ArpsRate(qi, di, p[0], ts[1]) - ys[1],
		}
	}

	res, err := optimize.LevenbergMarquardt(residuals, []float64{twoPointInitialB},
		[]optimize.Bound{{Min: TwoPointBMin, Max: TwoPointBMax}}, optimize.DefaultLMConfig())
	if err != nil {
		return math.NaN(), fmt.Errorf("estimate b: %w", err)
	}
	b := res.X[0]
	if math.IsNaN(b) || math.IsInf(b, 0) {
		return math.NaN(), fmt.Errorf("estimate b: %w: non-finite solution", optimize.ErrNotConverged)
	}
	return b, nil
}

// EstimateInput adalah satu baris tabel estimator.
type EstimateInput struct {
	WellName  string    `json:"well_name"`
	Qi        float64   `json:"qi"`
	Qe        float64   `json:"qe"`
	TMonths   float64   `json:"t_months"`
	Di        float64   `json:"di"`
	StartDate time.Time `json:"start_date"`

	// InputErr menandai baris yang sudah gagal di-parse; baris tetap dikembalikan dengan NaN.
	InputErr error `json:"-"`
}

type ForecastPoint struct {
	Month      int       `json:"month"`
	TMonths    float64   `json:"t_months"`
	Date       time.Time `json:"date"`
	Rate       float64   `json:"rate"`
	Cumulative float64   `json:"cumulative"`
}

// Forecast adalah hasil estimator per baris: (EstimatedB, MismatchAtHorizon, ForecastSeries).
type Forecast struct {
	WellName    string
	Qi          float64
	Qe          float64
	TMonths     float64
	Di          float64
	StartDate   time.Time
	EstimatedB  float64
	QeForecast  float64
	MismatchPct float64 // (forecast(t) - Qe) / max(Qe,1) * 100
	Err         string
	Series      []ForecastPoint
}

func (f Forecast) MarshalJSON() ([]byte, error) {
	pts := make([]map[string]any, len(f.Series))
	for i, p := range f.Series {
		pts[i] = map[string]any{
			"month":      p.Month,
			"t_months":   p.TMonths,
			"date":       p.Date.Format("2006-01-02"),
			"rate":       nullable(p.Rate),
			"cumulative": nullable(p.Cumulative),
		}
	}
	var startDate any
	if !f.StartDate.IsZero() {
		startDate = f.StartDate.Format("2006-01-02")
	}
	out := map[string]any{
		"well_name":           f.WellName,
		"qi":                  nullable(f.Qi),
		"qe":                  nullable(f.Qe),
		"t_months":            nullable(f.TMonths),
		"di":                  nullable(f.Di),
		"start_date":          startDate,
		"estimated_b":         nullable(f.EstimatedB),
		"qe_forecast":         nullable(f.QeForecast),
		"mismatch_at_horizon": nullable(f.MismatchPct),
		"forecast":            pts,
	}
	if f.Err != "" {
		out["error"] = f.Err
	}
	return json.Marshal(out)
}

// ForecastWellWithDates mengestimasi b lalu membuat tabel forecast bulanan di [0, t_months].
// b NaN tetap diteruskan: seluruh laju forecast dan mismatch ikut NaN.
func ForecastWellWithDates(in EstimateInput) Forecast {
	f := Forecast{
		WellName:  in.WellName,
		Qi:        in.Qi,
		Qe:        in.Qe,
		TMonths:   in.TMonths,
		Di:        in.Di,
		StartDate: in.StartDate,
	}
	if in.InputErr != nil {
		f.EstimatedB, f.QeForecast, f.MismatchPct = math.NaN(), math.NaN(), math.NaN()
		f.Err = fmt.Sprintf("%v: %v", ErrInvalidEstimatorInput, in.InputErr)
		f.Series = []ForecastPoint{}
		return f
	}
	if in.TMonths > MaxForecastMonths {
		f.EstimatedB, f.QeForecast, f.MismatchPct = math.NaN(), math.NaN(), math.NaN()
		f.Err = fmt.Sprintf("%v: t_months=%v exceeds %d", ErrInvalidEstimatorInput, in.TMonths, MaxForecastMonths)
		f.Series = []ForecastPoint{}
		return f
	}
	b, err := EstimateB(in.Qi, in.Qe, in.TMonths, in.Di)
	f.EstimatedB = b
	if err != nil {
		f.Err = err.Error()
	}

	f.Series = forecastSeries(in.Qi, in.Di, b, in.TMonths, in.StartDate)
	if n := len(f.Series); n > 0 {
		f.QeForecast = f.Series[n-1].Rate
	} else {
		f.QeForecast = math.NaN()
	}
	f.MismatchPct = (f.QeForecast - in.Qe) / math.Max(in.Qe, 1) * 100
	return f
}

// EstimateBatch memproses setiap baris secara independen, urutan input dipertahankan.
func EstimateBatch(rows []EstimateInput) []Forecast {
	out := make([]Forecast, len(rows))
	for i, r := range rows {
		out[i] = ForecastWellWithDates(r)
	}
	return out
}

// forecastSeries: bulan 0..floor(t), ditambah titik horizon bila t pecahan.
func forecastSeries(qi, di, b, tMonths float64, start time.Time) []ForecastPoint {
	if math.IsNaN(tMonths) || math.IsInf(tMonths, 0) || tMonths < 0 {
		return []ForecastPoint{}
	}
	whole := int(math.Floor(tMonths))
	out := make([]ForecastPoint, 0, whole+2)
	var cum float64
	for m := 0; m <= whole; m++ {
		q := ArpsRate(qi, di, b, float64(m))
		cum += q
		out = append(out, ForecastPoint{
			Month:      m,
			TMonths:    float64(m),
			Date:       monthDate(start, m),
			Rate:       q,
			Cumulative: cum,
		})
	}
	if frac := tMonths - float64(whole); frac > 1e-9 {
		q := ArpsRate(qi, di, b, tMonths)
		cum += q
		days := int(math.Round(frac * DaysPerMonth))
		out = append(out, ForecastPoint{
			Month:      whole + 1,
			TMonths:    tMonths,
			Date:       monthDate(start, whole).AddDate(0, 0, days),
			Rate:       q,
			Cumulative: cum,
		})
	}
	return out
}

// monthDate: tanggal bulan ke-m dari start; hari dijepit ke hari terakhir bulan tujuan
// (31 Jan + 1 bulan -> 29 Feb, bukan 2 Mar).
func monthDate(start time.Time, m int) time.Time {
	first := time.Date(start.Year(), start.Month()+time.Month(m), 1,
		start.Hour(), start.Minute(), start.Second(), start.Nanosecond(), start.Location())
	last := first.AddDate(0, 1, -1).Day()
	return first.AddDate(0, 0, min(start.Day(), last)-1)
}
