// internal/worker/refit.go
// Refit berkala: muat semua sumur dari DB, jalankan batch fitting, simpan ringkasan

package worker

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	mysqlrepo "dca-oilgas/internal/repositories/mysql"
	"dca-oilgas/internal/services"
	"dca-oilgas/internal/util"
)

type WellLoader interface {
	LoadWells(ctx context.Context, f mysqlrepo.ProdFilter) ([]services.WellSource, error)
}

type RunSaver interface {
	SaveRun(ctx context.Context, sum *services.BatchSummary) error
}

type Refitter struct {
	Wells   WellLoader
	Runs    RunSaver // opsional
	Options services.BatchOptions
	Clock   util.Clock
	Log     logrus.FieldLogger
}

var ErrNoWells = errors.New("no wells with production data")

func (r *Refitter) logger() logrus.FieldLogger {
	if r.Log == nil {
		return logrus.StandardLogger()
	}
	return r.Log
}

// RunOnce menjalankan satu batch penuh. Gagal simpan hanya dicatat, ringkasan tetap dikembalikan.
func (r *Refitter) RunOnce(ctx context.Context) (*services.BatchSummary, error) {
	wells, err := r.Wells.LoadWells(ctx, mysqlrepo.ProdFilter{})
	if err != nil {
		return nil, err
	}
	if len(wells) == 0 {
		return nil, ErrNoWells
	}

	opts := r.Options
	opts.Clock = r.Clock
	if opts.Logger == nil {
		opts.Logger = r.logger()
	}
	sum, err := services.FitBatch(ctx, wells, opts)
	if err != nil {
		return nil, err
	}
	if r.Runs != nil {
		if err := r.Runs.SaveRun(ctx, sum); err != nil {
			r.logger().WithError(err).WithField("run_id", sum.RunID).Warn("save batch run")
		}
	}
	return sum, nil
}

// Loop menjalankan RunOnce segera lalu setiap interval sampai ctx selesai.
func (r *Refitter) Loop(ctx context.Context, interval time.Duration) {
	log := r.logger()
	if interval <= 0 {
		interval = time.Hour
	}
	tick := time.NewTicker(interval)
	defer tick.Stop()
	for {
		sum, err := r.RunOnce(ctx)
		switch {
		case ctx.Err() != nil:
			log.WithError(ctx.Err()).Info("refit interrupted")
		case errors.Is(err, ErrNoWells):
			log.Info("refit skipped: no wells")
		case err != nil:
			log.WithError(err).Error("refit failed")
		default:
			log.WithFields(logrus.Fields{
				"run_id": sum.RunID, "ok": sum.OK, "insufficient": sum.Insufficient, "failed": sum.Failed,
			}).Info("refit done")
		}

		select {
		case <-ctx.Done():
			return
		case <-tick.C:
		}
	}
}
