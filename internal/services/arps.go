// internal/services/arps.go
// Model decline Arps: hiperbolik untuk b > 0, eksponensial bila b ~ 0

package services

import "math"

// BZeroThreshold: b <= nilai ini diperlakukan sebagai decline eksponensial.
const BZeroThreshold = 1e-10

// ArpsRate menghitung laju prediksi pada waktu t (bulan sejak Qi).
// Tidak pernah panic; input patologis bisa menghasilkan NaN/negatif dan harus ditolak pemanggil.
func ArpsRate(qi, di, b, t float64) float64 {
	if b <= BZeroThreshold {
		return qi * math.Exp(-di*t)
	}
	return qi / math.Pow(1+b*di*t, 1/b)
}

// ArpsRates mengevaluasi ArpsRate di seluruh sumbu waktu sekaligus.
func ArpsRates(qi, di, b float64, t []float64) []float64 {
	out := make([]float64, len(t))
	for i, ti := range t {
		out[i] = ArpsRate(qi, di, b, ti)
	}
	return out
}
