// pkg/optimize/nelder_mead.go
// Local search simplex (Nelder-Mead) dengan clamp ke bounds; dipakai sebagai polish DE

package optimize

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
)

// NMConfig mengatur Nelder-Mead. MaxIter <= 0 berarti 200 * dimensi.
type NMConfig struct {
	MaxIter int
	XTol    float64
	FTol    float64
}

func DefaultNMConfig() NMConfig {
	return NMConfig{XTol: 1e-10, FTol: 1e-12}
}

type vertex struct {
	x []float64
	f float64
}

// NelderMead meminimasi fn mulai dari x0. bounds boleh nil.
func NelderMead(ctx context.Context, fn Func, x0 []float64, bounds []Bound, cfg NMConfig) (*Result, error) {
	if fn == nil {
		return nil, errors.New("optimize: nil objective")
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
	dim := len(x0)
	if cfg.MaxIter <= 0 {
		cfg.MaxIter = 200 * dim
	}
	if cfg.XTol <= 0 {
		cfg.XTol = 1e-10
	}
	if cfg.FTol <= 0 {
		cfg.FTol = 1e-12
	}

	res := &Result{}
	eval := func(x []float64) float64 {
		res.Evaluations++
		v := fn(x)
		if math.IsNaN(v) {
			return math.Inf(1)
		}
		return v
	}

	simplex := make([]vertex, dim+1)
	start := clamp(append([]float64(nil), x0...), bounds)
	simplex[0] = vertex{x: start, f: eval(start)}
	for i := 0; i < dim; i++ {
		p := append([]float64(nil), start...)
		step := 0.05 * p[i]
		if p[i] == 0 {
			step = 0.00025
		}
		p[i] += step
		clamp(p, bounds)
		if p[i] == start[i] {
			// menempel di batas atas: arah sebaliknya
			p[i] = start[i] - step
			clamp(p, bounds)
		}
		simplex[i+1] = vertex{x: p, f: eval(p)}
	}

	centroid := make([]float64, dim)
	point := func(c float64, from []float64) []float64 {
		out := make([]float64, dim)
		for j := range out {
			out[j] = centroid[j] + c*(from[j]-centroid[j])
		}
		return clamp(out, bounds)
	}

	res.Message = "maximum number of iterations has been exceeded"
	for it := 1; it <= cfg.MaxIter; it++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("optimize: nelder-mead stopped at iteration %d: %w", it, err)
		}
		sort.SliceStable(simplex, func(a, b int) bool { return simplex[a].f < simplex[b].f })
		res.Iterations = it
		if simplexConverged(simplex, cfg.XTol, cfg.FTol) {
			res.Converged = true
			res.Message = "optimization terminated successfully"
			break
		}

		for j := range centroid {
			centroid[j] = 0
			for i := 0; i < dim; i++ {
				centroid[j] += simplex[i].x[j]
			}
			centroid[j] /= float64(dim)
		}
		worst := simplex[dim]

		xr := point(-1, worst.x)
		fr := eval(xr)
		switch {
		case fr < simplex[0].f:
			xe := point(-2, worst.x)
			if fe := eval(xe); fe < fr {
				simplex[dim] = vertex{x: xe, f: fe}
			} else {
				simplex[dim] = vertex{x: xr, f: fr}
			}
		case fr < simplex[dim-1].f:
			simplex[dim] = vertex{x: xr, f: fr}
		default:
			var xc []float64
			if fr < worst.f {
				xc = point(-0.5, worst.x)
			} else {
				xc = point(0.5, worst.x)
			}
			fc := eval(xc)
			if fc < math.Min(fr, worst.f) {
				simplex[dim] = vertex{x: xc, f: fc}
				continue
			}
			// shrink ke vertex terbaik
			for i := 1; i <= dim; i++ {
				for j := range simplex[i].x {
					simplex[i].x[j] = simplex[0].x[j] + 0.5*(simplex[i].x[j]-simplex[0].x[j])
				}
				simplex[i].f = eval(simplex[i].x)
			}
		}
	}

	sort.SliceStable(simplex, func(a, b int) bool { return simplex[a].f < simplex[b].f })
	res.X = simplex[0].x
	res.Fun = simplex[0].f
	return res, nil
}

func simplexConverged(s []vertex, xtol, ftol float64) bool {
	for i := 1; i < len(s); i++ {
		if math.Abs(s[i].f-s[0].f) > ftol {
			return false
		}
		for j := range s[i].x {
			if math.Abs(s[i].x[j]-s[0].x[j]) > xtol {
				return false
			}
		}
	}
	return true
}
