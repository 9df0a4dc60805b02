// pkg/optimize/levenberg_marquardt.go
// Least-squares lokal (Levenberg-Marquardt) dengan Jacobian beda hingga dan clamp ke bounds

package optimize

import (
	"errors"
	"fmt"
	"math"
)

// LMConfig mengatur Levenberg-Marquardt. Nilai nol diganti default.
type LMConfig struct {
	MaxIter        int
	XTol           float64
	FTol           float64
	GTol           float64
	InitialDamping float64
	DiffStep       float64 // langkah relatif untuk Jacobian
}

func DefaultLMConfig() LMConfig {
	return LMConfig{
		MaxIter:        200,
		XTol:           1e-10,
		FTol:           1e-12,
		GTol:           1e-12,
		InitialDamping: 1e-3,
		DiffStep:       1.49e-8,
	}
}

func (c LMConfig) withDefaults() LMConfig {
	d := DefaultLMConfig()
	if c.MaxIter <= 0 {
		c.MaxIter = d.MaxIter
	}
	if c.XTol <= 0 {
		c.XTol = d.XTol
	}
	if c.FTol <= 0 {
		c.FTol = d.FTol
	}
	if c.GTol <= 0 {
		c.GTol = d.GTol
	}
	if c.InitialDamping <= 0 {
		c.InitialDamping = d.InitialDamping
	}
	if c.DiffStep <= 0 {
		c.DiffStep = d.DiffStep
	}
	return c
}

const maxDamping = 1e16

// LevenbergMarquardt meminimasi 0.5*||fn(x)||^2 mulai dari x0, x dijaga di dalam bounds (boleh nil).
// Result.Fun berisi cost akhir (0.5 * jumlah kuadrat residual).
func LevenbergMarquardt(fn ResidualFunc, x0 []float64, bounds []Bound, cfg LMConfig) (*Result, error) {
	if fn == nil {
		return nil, errors.New("optimize: nil residual function")
	}
	if len(x0) == 0 {
		return nil, errors.New("optimize: empty starting point")
	}
	if bounds != nil {
		if len(bounds) != len(x0) {
			return nil, fmt.Errorf("%w: %d bounds for %d parameters", ErrInvalidBounds, len(bounds), len(x0))
		}
		if err := validateBounds(bounds); err != nil {
			return nil, err
		}
	}
	cfg = cfg.withDefaults()
	n := len(x0)

	res := &Result{}
	evalR := func(x []float64) []float64 {
		res.Evaluations++
		return fn(x)
	}

	x := clamp(append([]float64(nil), x0...), bounds)
	r := evalR(x)
	if len(r) == 0 || !allFinite(r) {
		return res, fmt.Errorf("%w: non-finite residuals at starting point", ErrNotConverged)
	}
	cost := 0.5 * sumSquares(r)
	lambda := cfg.InitialDamping

	for it := 1; it <= cfg.MaxIter; it++ {
		res.Iterations = it

		J, err := jacobian(evalR, x, r, bounds, cfg.DiffStep)
		if err != nil {
			return res, err
		}

		// A = J^T J, g = J^T r
		A := make([][]float64, n)
		g := make([]float64, n)
		for i := 0; i < n; i++ {
			A[i] = make([]float64, n)
			for k := range r {
				g[i] += J[k][i] * r[k]
			}
			for j := 0; j < n; j++ {
				for k := range r {
					A[i][j] += J[k][i] * J[k][j]
				}
			}
		}

		if cost == 0 {
			res.Converged = true
			res.Message = "exact fit"
			break
		}
		if zeroDiagonal(A) {
			res.X, res.Fun = x, cost
			return res, fmt.Errorf("%w: jacobian is zero", ErrSingular)
		}
		if projectedGradientNorm(x, g, bounds) <= cfg.GTol {
			res.Converged = true
			res.Message = "gradient tolerance reached"
			break
		}

		accepted := false
		for lambda <= maxDamping {
			M := make([][]float64, n)
			rhs := make([]float64, n)
			for i := 0; i < n; i++ {
				M[i] = append([]float64(nil), A[i]...)
				d := A[i][i]
				if d == 0 {
					d = 1
				}
				M[i][i] += lambda * d
				rhs[i] = -g[i]
			}
			delta, err := solveLinear(M, rhs)
			if err != nil {
				return res, err
			}

			xn := make([]float64, n)
			for i := range xn {
				xn[i] = x[i] + delta[i]
			}
			clamp(xn, bounds)

			step := make([]float64, n)
			for i := range step {
				step[i] = xn[i] - x[i]
			}
			// langkah efektif nol: x sudah menempel di batas, tidak ada progres tersisa
			if norm(step) <= cfg.XTol*(norm(x)+cfg.XTol) {
				res.Converged = true
				res.Message = "step tolerance reached"
				break
			}

			rn := evalR(xn)
			if allFinite(rn) {
				costN := 0.5 * sumSquares(rn)
				if costN < cost {
					reduction := cost - costN
					x, r, cost = xn, rn, costN
					lambda /= 10
					accepted = true
					if reduction <= cfg.FTol*costN || cost == 0 {
						res.Converged = true
						res.Message = "cost tolerance reached"
					}
					break
				}
			}
			lambda *= 10
		}

		if res.Converged {
			break
		}
		if !accepted {
			res.X, res.Fun = x, cost
			return res, fmt.Errorf("%w: damping exceeded %g", ErrNotConverged, maxDamping)
		}
	}

	res.X = x
	res.Fun = cost
	if !res.Converged {
		return res, fmt.Errorf("%w: %d iterations", ErrNotConverged, cfg.MaxIter)
	}
	return res, nil
}

// jacobian dengan forward difference; backward bila langkah maju keluar batas atas.
func jacobian(fn ResidualFunc, x, r []float64, bounds []Bound, rel float64) ([][]float64, error) {
	m, n := len(r), len(x)
	J := make([][]float64, m)
	for k := range J {
		J[k] = make([]float64, n)
	}
	xp := append([]float64(nil), x...)
	for j := 0; j < n; j++ {
		h := rel * math.Max(math.Abs(x[j]), 1)
		if bounds != nil && x[j]+h > bounds[j].Max {
			h = -h
		}
		xp[j] = x[j] + h
		rp := fn(xp)
		xp[j] = x[j]
		if len(rp) != m || !allFinite(rp) {
			return nil, fmt.Errorf("%w: non-finite residuals while estimating jacobian", ErrNotConverged)
		}
		for k := 0; k < m; k++ {
			J[k][j] = (rp[k] - r[k]) / h
		}
	}
	return J, nil
}

// projectedGradientNorm mengabaikan komponen gradien yang mendorong keluar batas aktif.
func projectedGradientNorm(x, g []float64, bounds []Bound) float64 {
	var mx float64
	for i := range g {
		gi := g[i]
		if bounds != nil {
			if x[i] <= bounds[i].Min && gi > 0 {
				gi = 0
			}
			if x[i] >= bounds[i].Max && gi < 0 {
				gi = 0
			}
		}
		mx = math.Max(mx, math.Abs(gi))
	}
	return mx
}

func zeroDiagonal(A [][]float64) bool {
	for i := range A {
		if A[i][i] != 0 {
			return false
		}
	}
	return true
}

// solveLinear: eliminasi Gauss dengan partial pivoting (sistem kecil).
func solveLinear(A [][]float64, b []float64) ([]float64, error) {
	n := len(b)
	for col := 0; col < n; col++ {
		piv := col
		for i := col + 1; i < n; i++ {
			if math.Abs(A[i][col]) > math.Abs(A[piv][col]) {
				piv = i
			}
		}
		if math.Abs(A[piv][col]) < 1e-300 || math.IsNaN(A[piv][col]) {
			return nil, ErrSingular
		}
		A[col], A[piv] = A[piv], A[col]
		b[col], b[piv] = b[piv], b[col]
		for i := col + 1; i < n; i++ {
			f := A[i][col] / A[col][col]
			for j := col; j < n; j++ {
				A[i][j] -= f * A[col][j]
			}
			b[i] -= f * b[col]
		}
	}
	x := make([]float64, n)
	for i := n - 1; i >= 0; i-- {
		s := b[i]
		for j := i + 1; j < n; j++ {
			s -= A[i][j] * x[j]
		}
		x[i] = s / A[i][i]
	}
	return x, nil
}
