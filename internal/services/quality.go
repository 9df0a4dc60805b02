// internal/services/quality.go
// Kualitas fit: R² dan RMSE di ruang log1p, plus deteksi bulan outlier via z-score residual

package services

import (
	"math"
	"time"
)

// OutlierMinZ adalah ambang |z| residual untuk menandai outlier.
const OutlierMinZ = 2.5

type Outlier struct {
	Date   time.Time `json:"date"`
	Actual float64   `json:"actual"`
	Fitted float64   `json:"fitted"`
	ZScore float64   `json:"zscore"`
}

type FitQuality struct {
	RSquared float64   `json:"r_squared"`
	RMSELog  float64   `json:"rmse_log"`
	Outliers []Outlier `json:"outliers"`
}

// EvaluateFit membandingkan record aktual dengan laju fit (panjang sama).
func EvaluateFit(actual []Record, fitted []float64) FitQuality {
	n := len(actual)
	if len(fitted) < n {
		n = len(fitted)
	}
	out := FitQuality{Outliers: []Outlier{}}
	if n == 0 {
		return out
	}

	obs := make([]float64, n)
	res := make([]float64, n)
	var mean float64
	for i := 0; i < n; i++ {
		obs[i] = math.Log1p(actual[i].Rate)
		res[i] = obs[i] - math.Log1p(fitted[i])
		mean += obs[i]
	}
	mean /= float64(n)

	var ssRes, ssTot float64
	for i := 0; i < n; i++ {
		ssRes += res[i] * res[i]
		d := obs[i] - mean
		ssTot += d * d
	}
	out.RMSELog = math.Sqrt(ssRes / float64(n))
	if ssTot > 0 {
		out.RSquared = 1 - ssRes/ssTot
	} else if ssRes == 0 {
		out.RSquared = 1
	}

	// z-score residual (populasi)
	var rm float64
	for _, r := range res {
		rm += r
	}
	rm /= float64(n)
	var ss float64
	for _, r := range res {
		ss += (r - rm) * (r - rm)
	}
	std := math.Sqrt(ss / float64(n))
	if n < 3 || std == 0 {
		return out
	}
	for i, r := range res {
		z := (r - rm) / std
		if math.Abs(z) >= OutlierMinZ {
			out.Outliers = append(out.Outliers, Outlier{
				Date:   actual[i].Date,
				Actual: actual[i].Rate,
				Fitted: fitted[i],
				ZScore: z,
			})
		}
	}
	return out
}
