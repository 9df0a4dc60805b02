// pkg/optimize/differential_evolution.go
// Global optimizer berbasis populasi (differential evolution, strategi best/1/bin)

package optimize

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
)

// DEConfig mengatur differential evolution. Field numerik nol/negatif diganti default;
// Polish dan Seed dipakai apa adanya (zero value = tanpa polish, seed 0).
type DEConfig struct {
	PopSize       int     // pengali populasi: total kandidat = PopSize * dimensi
	MaxIter       int     // jumlah generasi maksimum
	Tol           float64 // toleransi relatif: std(energi) <= Atol + Tol*|mean(energi)|
	Atol          float64
	MutationMin   float64 // dithering faktor mutasi per generasi di [MutationMin, MutationMax)
	MutationMax   float64
	Recombination float64
	Seed          int64
	Polish        bool // jalankan Nelder-Mead dari kandidat terbaik setelah konvergen
}

// DefaultDEConfig mengembalikan konfigurasi standar (popsize 15, 1000 generasi, tol 0.01, seed 42).
func DefaultDEConfig() DEConfig {
	return DEConfig{
		PopSize:       15,
		MaxIter:       1000,
		Tol:           0.01,
		Atol:          0,
		MutationMin:   0.5,
		MutationMax:   1.0,
		Recombination: 0.7,
		Seed:          42,
		Polish:        true,
	}
}

func (c DEConfig) withDefaults() DEConfig {
	d := DefaultDEConfig()
	if c.PopSize <= 0 {
		c.PopSize = d.PopSize
	}
	if c.MaxIter <= 0 {
		c.MaxIter = d.MaxIter
	}
	if c.Tol <= 0 {
		c.Tol = d.Tol
	}
	if c.Atol < 0 {
		c.Atol = 0
	}
	if c.MutationMin <= 0 && c.MutationMax <= 0 {
		c.MutationMin, c.MutationMax = d.MutationMin, d.MutationMax
	}
	if c.MutationMax < c.MutationMin {
		c.MutationMin, c.MutationMax = c.MutationMax, c.MutationMin
	}
	if c.Recombination <= 0 || c.Recombination > 1 {
		c.Recombination = d.Recombination
	}
	return c
}

// DifferentialEvolution meminimasi fn di dalam bounds.
// Hasil deterministik untuk Seed yang sama. ctx dicek sekali per generasi.
func DifferentialEvolution(ctx context.Context, fn Func, bounds []Bound, cfg DEConfig) (*Result, error) {
	if fn == nil {
		return nil, errors.New("optimize: nil objective")
	}
	if err := validateBounds(bounds); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()

	dim := len(bounds)
	np := cfg.PopSize * dim
	if np < 5 {
		np = 5
	}
	rng := rand.New(rand.NewSource(cfg.Seed))

	res := &Result{}
	x := make([]float64, dim)
	eval := func(unit []float64) float64 {
		res.Evaluations++
		v := fn(scaleInto(x, unit, bounds))
		if math.IsNaN(v) {
			return math.Inf(1)
		}
		return v
	}

	pop := latinHypercube(rng, np, dim)
	energies := make([]float64, np)
	for i := range pop {
		energies[i] = eval(pop[i])
	}
	best := 0
	for i := range energies {
		if energies[i] < energies[best] {
			best = i
		}
	}

	trial := make([]float64, dim)
	res.Message = "maximum number of iterations has been exceeded"
	for gen := 1; gen <= cfg.MaxIter; gen++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("optimize: differential evolution stopped at generation %d: %w", gen, err)
		}

		f := cfg.MutationMin + rng.Float64()*(cfg.MutationMax-cfg.MutationMin)
		for i := 0; i < np; i++ {
			r0, r1 := pickTwo(rng, np, i)
			fill := rng.Intn(dim)
			for j := 0; j < dim; j++ {
				if j == fill || rng.Float64() < cfg.Recombination {
					trial[j] = pop[best][j] + f*(pop[r0][j]-pop[r1][j])
				} else {
					trial[j] = pop[i][j]
				}
				// keluar dari unit cube: ganti dengan titik acak
				if trial[j] < 0 || trial[j] > 1 {
					trial[j] = rng.Float64()
				}
			}

			e := eval(trial)
			if e <= energies[i] {
				copy(pop[i], trial)
				energies[i] = e
				if e <= energies[best] {
					best = i
				}
			}
		}
		res.Iterations = gen

		if populationConverged(energies, cfg.Tol, cfg.Atol) {
			res.Converged = true
			res.Message = "optimization terminated successfully"
			break
		}
	}

	res.X = scaleInto(make([]float64, dim), pop[best], bounds)
	res.Fun = energies[best]

	if cfg.Polish {
		nm, err := NelderMead(ctx, fn, res.X, bounds, DefaultNMConfig())
		if err != nil {
			return nil, err
		}
		res.Evaluations += nm.Evaluations
		if nm.Fun < res.Fun {
			res.X = nm.X
			res.Fun = nm.Fun
		}
	}
	return res, nil
}

// latinHypercube menyebar np titik di unit cube: satu titik per strata untuk setiap dimensi.
func latinHypercube(rng *rand.Rand, np, dim int) [][]float64 {
	pop := make([][]float64, np)
	for i := range pop {
		pop[i] = make([]float64, dim)
	}
	seg := 1.0 / float64(np)
	for j := 0; j < dim; j++ {
		perm := rng.Perm(np)
		for i := 0; i < np; i++ {
			pop[perm[i]][j] = (float64(i) + rng.Float64()) * seg
		}
	}
	return pop
}

func pickTwo(rng *rand.Rand, np, exclude int) (int, int) {
	a := rng.Intn(np)
	for a == exclude {
		a = rng.Intn(np)
	}
	b := rng.Intn(np)
	for b == exclude || b == a {
		b = rng.Intn(np)
	}
	return a, b
}

func scaleInto(dst, unit []float64, bounds []Bound) []float64 {
	for j, u := range unit {
		dst[j] = bounds[j].Min + u*(bounds[j].Max-bounds[j].Min)
	}
	return dst
}

func populationConverged(energies []float64, tol, atol float64) bool {
	var sum float64
	for _, e := range energies {
		if math.IsInf(e, 0) {
			return false
		}
		sum += e
	}
	n := float64(len(energies))
	mean := sum / n
	var ss float64
	for _, e := range energies {
		d := e - mean
		ss += d * d
	}
	std := math.Sqrt(ss / n)
	return std <= atol+tol*math.Abs(mean)
}
