// internal/services/production_service.go
// Tabel decline: aktual vs fit per tanggal (post-peak), kumulatif dan varians

package services

import (
	"math"
	"time"
)

type DeclineRow struct {
	Date        time.Time `json:"date"`
	TMonths     float64   `json:"t_months"`
	Actual      float64   `json:"oil_rate"`
	Fitted      float64   `json:"fitted_rate"`
	CumActual   float64   `json:"cumulative_actual"`
	CumFitted   float64   `json:"cumulative_fitted"`
	VariancePct float64   `json:"variance_pct"` // (fitted - actual) / actual * 100
}

// DeclineTable menyusun baris per record post-peak dari hasil fit.
func DeclineTable(fit *FitResult) []DeclineRow {
	if fit == nil {
		return nil
	}
	n := min(len(fit.PostPeak), len(fit.Fitted))
	out := make([]DeclineRow, 0, n)
	for i := 0; i < n; i++ {
		a := fit.PostPeak[i].Rate
		f := fit.Fitted[i]
		var p float64
		if a != 0 {
			p = (f - a) / a * 100.0
		}
		out = append(out, DeclineRow{
			Date:        fit.PostPeak[i].Date,
			TMonths:     fit.T[i],
			Actual:      a,
			Fitted:      f,
			CumActual:   fit.CumActual[i],
			CumFitted:   fit.CumFitted[i],
			VariancePct: p,
		})
	}
	return out
}

// FittedAt mengevaluasi kurva hasil fit pada tanggal mana pun (termasuk setelah data terakhir).
func FittedAt(fit *FitResult, d time.Time) float64 {
	if fit == nil {
		return math.NaN()
	}
	t := math.Floor(d.Sub(fit.QiDate).Hours()/24) / DaysPerMonth
	if t < 0 {
		return math.NaN()
	}
	return ArpsRate(fit.Qi, fit.Di, fit.B, t)
}
