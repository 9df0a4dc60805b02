// internal/services/batch_service.go
// Batch fitting semua sumur: urutan stabil (well_id), kegagalan per sumur terisolasi

package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"dca-oilgas/internal/util"
)

// BatchStatus adalah tri-state hasil per sumur.
type BatchStatus string

const (
	StatusOK               BatchStatus = "ok"
	StatusInsufficientData BatchStatus = "insufficient data"
	StatusError            BatchStatus = "error"
)

// BatchRow adalah satu baris ringkasan. Field numerik bernilai NaN bila tidak tersedia.
// MismatchPct di sini absolut (ringkasan batch), berbeda dengan FitResult.MismatchPct yang bertanda.
type BatchRow struct {
	WellID      string
	Status      BatchStatus
	Err         string
	QiDate      *time.Time
	Qi          float64
	QeActual    float64
	QeFit       float64
	MismatchPct float64
	Di          float64
	B           float64
	CumActual   float64
	CumFitted   float64

	Fit *FitResult // hanya untuk status ok
}

// StatusText: "ok", "insufficient data", atau "error: <pesan>".
func (r BatchRow) StatusText() string {
	if r.Status == StatusError {
		return fmt.Sprintf("error: %s", r.Err)
	}
	return string(r.Status)
}

func (r BatchRow) MarshalJSON() ([]byte, error) {
	out := map[string]any{
		"well":           r.WellID,
		"qi_date":        nil,
		"Qi_detected":    nullable(r.Qi),
		"Qe_actual_last": nullable(r.QeActual),
		"Qe_fit":         nullable(r.QeFit),
		"Mismatch_%":     nullable(r.MismatchPct),
		"Di_per_month":   nullable(r.Di),
		"b_factor":       nullable(r.B),
		"Cum_Actual_All": nullable(r.CumActual),
		"Cum_Fitted":     nullable(r.CumFitted),
		"status":         r.StatusText(),
	}
	if r.QiDate != nil {
		out["qi_date"] = r.QiDate.Format("2006-01-02")
	}
	return json.Marshal(out)
}

// nullable: NaN/Inf -> null di JSON.
func nullable(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func emptyRow(wellID string) BatchRow {
	nan := math.NaN()
	return BatchRow{
		WellID: wellID, Qi: nan, QeActual: nan, QeFit: nan, MismatchPct: nan,
		Di: nan, B: nan, CumActual: nan, CumFitted: nan,
	}
}

// ProgressEvent dikirim setiap satu sumur selesai.
type ProgressEvent struct {
	RunID  string   `json:"run_id"`
	Index  int      `json:"index"` // posisi di urutan batch (0-based)
	Done   int      `json:"done"`
	Total  int      `json:"total"`
	WellID string   `json:"well"`
	Row    BatchRow `json:"row"`
}

type BatchOptions struct {
	Fit      FitOptions
	Workers  int // <= 1: berurutan
	Progress func(ProgressEvent)
	Logger   logrus.FieldLogger
	Clock    util.Clock // nil -> util.RealClock
}

type BatchSummary struct {
	RunID        string     `json:"run_id"`
	StartedAt    time.Time  `json:"started_at"`
	FinishedAt   time.Time  `json:"finished_at"`
	Bounds       Bounds     `json:"bounds"`
	Seed         int64      `json:"seed"`
	Rows         []BatchRow `json:"rows"`
	OK           int        `json:"ok"`
	Insufficient int        `json:"insufficient"`
	Failed       int        `json:"failed"`
}

// FitBatch menjalankan FitWell untuk setiap sumur, urut leksikografis well_id.
// Hanya bounds yang invalid yang menggagalkan seluruh batch; kegagalan lain menjadi baris error.
// Bila ctx dibatalkan, ringkasan parsial dikembalikan bersama error ctx (dibungkus).
func FitBatch(ctx context.Context, wells []WellSource, opts BatchOptions) (*BatchSummary, error) {
	if err := opts.Fit.Bounds.Validate(); err != nil {
		return nil, err
	}
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	clock := opts.Clock
	if clock == nil {
		clock = util.RealClock{}
	}

	ordered := make([]WellSource, len(wells))
	copy(ordered, wells)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].WellID() < ordered[j].WellID() })

	sum := &BatchSummary{
		RunID:     util.NewID(),
		StartedAt: clock.Now(),
		Bounds:    opts.Fit.Bounds,
		Seed:      opts.Fit.Seed,
		Rows:      make([]BatchRow, len(ordered)),
	}
	log = log.WithField("run_id", sum.RunID)
	log.WithFields(logrus.Fields{"wells": len(ordered), "workers": opts.Workers}).Info("batch fit started")

	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}

	var (
		mu   sync.Mutex
		done int
	)
	var g errgroup.Group
	g.SetLimit(workers)
	for i, w := range ordered {
		i, w := i, w
		g.Go(func() error {
			row := fitOne(ctx, w, opts.Fit, log)
			sum.Rows[i] = row

			mu.Lock()
			done++
			ev := ProgressEvent{RunID: sum.RunID, Index: i, Done: done, Total: len(ordered), WellID: row.WellID, Row: row}
			if opts.Progress != nil {
				opts.Progress(ev)
			}
			mu.Unlock()

			entry := log.WithFields(logrus.Fields{"well": row.WellID, "status": row.Status, "index": i + 1, "total": len(ordered)})
			if row.Status == StatusError {
				entry.Warn(row.Err)
			} else {
				entry.Debug("well processed")
			}
			return nil
		})
	}
	_ = g.Wait()

	// Dibatalkan di tengah jalan: baris yang gagal karena ctx bukan kegagalan sumur.
	if err := ctx.Err(); err != nil {
		sum.FinishedAt = clock.Now()
		log.WithError(err).Warn("batch fit cancelled")
		return sum, fmt.Errorf("batch fit %s: %w", sum.RunID, err)
	}

	for _, r := range sum.Rows {
		switch r.Status {
		case StatusOK:
			sum.OK++
		case StatusInsufficientData:
			sum.Insufficient++
		default:
			sum.Failed++
		}
	}
	sum.FinishedAt = clock.Now()
	log.WithFields(logrus.Fields{
		"ok": sum.OK, "insufficient": sum.Insufficient, "failed": sum.Failed,
		"elapsed": sum.FinishedAt.Sub(sum.StartedAt).String(),
	}).Info("batch fit finished")
	return sum, nil
}

// fitOne memproses satu sumur; semua error dan panic dikonversi menjadi baris.
func fitOne(ctx context.Context, w WellSource, opts FitOptions, log logrus.FieldLogger) (row BatchRow) {
	row = emptyRow(w.WellID())
	defer func() {
		if p := recover(); p != nil {
			row = emptyRow(w.WellID())
			row.Status = StatusError
			row.Err = fmt.Sprintf("panic: %v", p)
			log.WithField("well", w.WellID()).Debugf("recovered panic: %v\n%s", p, debug.Stack())
		}
	}()

	s, err := w.Series()
	if err != nil {
		row.Status = StatusError
		row.Err = err.Error()
		return row
	}
	if s.Well == "" {
		s.Well = w.WellID()
	}

	fit, err := FitWell(ctx, s, opts)
	var insufficient *InsufficientDataError
	switch {
	case errors.As(err, &insufficient):
		d := insufficient.QiDate
		row.Status = StatusInsufficientData
		row.QiDate = &d
		row.Qi = insufficient.Qi
		row.QeActual = insufficient.QeActual
		row.CumActual = insufficient.CumActual
		return row
	case err != nil:
		row.Status = StatusError
		row.Err = err.Error()
		return row
	}

	d := fit.QiDate
	row.Status = StatusOK
	row.QiDate = &d
	row.Qi = fit.Qi
	row.QeActual = fit.QeActual
	row.QeFit = fit.QeFit
	row.MismatchPct = math.Abs(fit.QeFit-fit.QeActual) / math.Max(fit.QeActual, 1) * 100
	row.Di = fit.Di
	row.B = fit.B
	row.CumActual = fit.CumActualTotal
	row.CumFitted = fit.CumFittedTotal
	row.Fit = fit
	return row
}
