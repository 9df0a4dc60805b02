// cmd/worker/main.go
// Worker refit berkala (WORKER_INTERVAL_SEC) untuk semua sumur di prod_monthly
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dca-oilgas/internal/app"
	"dca-oilgas/internal/config"
	mysqlrepo "dca-oilgas/internal/repositories/mysql"
	"dca-oilgas/internal/services"
	"dca-oilgas/internal/util"
	"dca-oilgas/internal/worker"
	"dca-oilgas/pkg/db"
)

func main() {
	cfg := config.Load()
	log := util.NewLogger(cfg.LogLevel, cfg.LogFormat)
	if err := cfg.Validate(); err != nil {
		log.WithError(err).Fatal("invalid config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := db.NewMySQL(ctx, cfg, 10)
	if err != nil {
		log.WithError(err).Fatal("mysql")
	}
	defer conn.Close()

	runs := &mysqlrepo.FitRunRepo{DB: conn}
	if err := runs.EnsureSchema(ctx); err != nil {
		log.WithError(err).Fatal("ensure schema")
	}

	r := &worker.Refitter{
		Wells: &mysqlrepo.ProductionRepo{DB: conn},
		Runs:  runs,
		Options: services.BatchOptions{
			Fit:     app.FitOptionsFromConfig(cfg),
			Workers: cfg.Decline.Workers,
		},
		Clock: util.RealClock{},
		Log:   log,
	}

	interval := time.Duration(cfg.Worker.IntervalSec) * time.Second
	log.WithField("interval", interval.String()).Info("Worker started...")
	r.Loop(ctx, interval)
	log.Info("Worker stopped")
}
