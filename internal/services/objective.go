// internal/services/objective.go
// Fungsi biaya untuk fitting decline: MSE log1p berbobot + penalti Qe + penalti b > 1

package services

import "math"

const (
	// PenaltySentinel adalah biaya tetap untuk kandidat yang ditolak.
	PenaltySentinel = 1e6

	// Bobot penalti di-tuning manual (bukan turunan fisik); dipertahankan agar hasil sebanding.
	TerminalPenaltyWeight    = 100.0
	SuperUnityBPenaltyWeight = 5.0

	// Bobot error naik linear dari awal ke akhir deret (ekor lebih berat).
	WeightStart = 1.0
	WeightEnd   = 3.0
)

// Objective menilai kandidat (Di, b) terhadap deret post-peak satu sumur.
type Objective struct {
	Qi   float64
	Qe   float64
	T    []float64
	Q    []float64
	BMin float64
	BMax float64

	weights []float64
	logQ    []float64
}

// NewObjective menyiapkan objective; Qe = laju terakhir pada q.
func NewObjective(qi float64, t, q []float64, bounds Bounds) *Objective {
	o := &Objective{
		Qi:   qi,
		T:    t,
		Q:    q,
		BMin: bounds.BMin,
		BMax: bounds.BMax,
	}
	if len(q) > 0 {
		o.Qe = q[len(q)-1]
	}
	o.weights = linspace(WeightStart, WeightEnd, len(q))
	o.logQ = make([]float64, len(q))
	for i, v := range q {
		o.logQ[i] = math.Log1p(v)
	}
	return o
}

// Loss mengembalikan biaya untuk params = [di, b].
func (o *Objective) Loss(params []float64) float64 {
	if len(params) != 2 || len(o.Q) == 0 {
		return PenaltySentinel
	}
	di, b := params[0], params[1]
	if math.IsNaN(di) || math.IsNaN(b) || di <= 0 || b < o.BMin || b > o.BMax {
		return PenaltySentinel
	}

	pred := ArpsRates(o.Qi, di, b, o.T)
	for _, p := range pred {
		if math.IsNaN(p) || p < 0 {
			return PenaltySentinel
		}
	}

	var mse float64
	for i, p := range pred {
		d := math.Log1p(p) - o.logQ[i]
		mse += o.weights[i] * d * d
	}
	mse /= float64(len(pred))

	rel := math.Abs(pred[len(pred)-1]-o.Qe) / math.Max(o.Qe, 1)
	penaltyQe := rel * rel * TerminalPenaltyWeight

	over := math.Max(b-1, 0)
	penaltyB := over * over * SuperUnityBPenaltyWeight

	cost := mse + penaltyQe + penaltyB
	if math.IsNaN(cost) {
		return PenaltySentinel
	}
	return cost
}

// linspace seperti numpy.linspace (n=1 -> [start]).
func linspace(start, end float64, n int) []float64 {
	out := make([]float64, n)
	if n == 1 {
		out[0] = start
		return out
	}
	step := (end - start) / float64(n-1)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out
}
