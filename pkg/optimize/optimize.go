// pkg/optimize/optimize.go
// Tipe bersama untuk optimizer numerik (global & lokal)

package optimize

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrNotConverged dikembalikan bila solver lokal kehabisan iterasi atau residual tidak finite.
	ErrNotConverged = errors.New("optimize: not converged")
	// ErrSingular dikembalikan bila sistem normal least-squares tidak bisa diselesaikan.
	ErrSingular = errors.New("optimize: singular system")
	// ErrInvalidBounds menandai batas pencarian yang tidak valid (min > max, NaN, atau kosong).
	ErrInvalidBounds = errors.New("optimize: invalid bounds")
)

// Func adalah fungsi objektif skalar yang diminimasi.
type Func func(x []float64) float64

// ResidualFunc mengembalikan vektor residual untuk least-squares.
type ResidualFunc func(x []float64) []float64

// Bound adalah interval tertutup [Min, Max] untuk satu parameter.
type Bound struct {
	Min float64
	Max float64
}

// Result adalah hasil satu kali optimasi.
type Result struct {
	X           []float64 `json:"x"`
	Fun         float64   `json:"fun"`
	Iterations  int       `json:"iterations"`
	Evaluations int       `json:"evaluations"`
	Converged   bool      `json:"converged"`
	Message     string    `json:"message,omitempty"`
}

func validateBounds(bounds []Bound) error {
	if len(bounds) == 0 {
		return fmt.Errorf("%w: no dimensions", ErrInvalidBounds)
	}
	for i, b := range bounds {
		if math.IsNaN(b.Min) || math.IsNaN(b.Max) || math.IsInf(b.Min, 0) || math.IsInf(b.Max, 0) {
			return fmt.Errorf("%w: dimension %d is not finite", ErrInvalidBounds, i)
		}
		if b.Min > b.Max {
			return fmt.Errorf("%w: dimension %d has min %g > max %g", ErrInvalidBounds, i, b.Min, b.Max)
		}
	}
	return nil
}

// clamp memaksa x masuk ke dalam bounds (in-place). bounds nil = tanpa batas.
func clamp(x []float64, bounds []Bound) []float64 {
	if bounds == nil {
		return x
	}
	for i := range x {
		if x[i] < bounds[i].Min {
			x[i] = bounds[i].Min
		} else if x[i] > bounds[i].Max {
			x[i] = bounds[i].Max
		}
	}
	return x
}

func allFinite(v []float64) bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

func sumSquares(v []float64) float64 {
	var s float64
	for _, x := range v {
		s += x * x
	}
	return s
}

func norm(v []float64) float64 { return math.Sqrt(sumSquares(v)) }
