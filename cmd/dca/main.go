// cmd/dca/main.go
// CLI decline curve analysis: CSV produksi -> ringkasan batch / tabel decline satu sumur,
// atau CSV estimator dua titik -> tabel forecast.
//
//	dca -in production.csv -out summary.csv -b-min 0 -b-max 1.2 -workers 4
//	dca -in production.csv -well W-01 -out w01_decline.csv
//	dca -estimate -in estimator.csv -out forecast.csv
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"

	"dca-oilgas/internal/app"
	"dca-oilgas/internal/config"
	"dca-oilgas/internal/services"
	"dca-oilgas/internal/util"
)

type options struct {
	in, out  string
	cols     columnMap
	bounds   services.Bounds
	seed     int64
	workers  int
	well     string
	estimate bool
}

func parseFlags(args []string, cfg *config.Config) (options, error) {
	var o options
	fs := flag.NewFlagSet("dca", flag.ContinueOnError)
	fs.StringVar(&o.in, "in", "-", "input CSV path (- = stdin)")
	fs.StringVar(&o.out, "out", "-", "output CSV path (- = stdout)")
	fs.StringVar(&o.cols.Well, "well-col", "wellname", "well column")
	fs.StringVar(&o.cols.Date, "date-col", "date", "date column")
	fs.StringVar(&o.cols.Oil, "oil-col", "oil", "total oil column")
	fs.StringVar(&o.cols.Days, "days-col", "days", "producing days column")
	fs.Float64Var(&o.bounds.BMin, "b-min", cfg.Decline.BMin, "lower bound of b")
	fs.Float64Var(&o.bounds.BMax, "b-max", cfg.Decline.BMax, "upper bound of b")
	fs.Int64Var(&o.seed, "seed", cfg.Decline.Seed, "optimizer seed")
	fs.IntVar(&o.workers, "workers", cfg.Decline.Workers, "parallel wells in batch mode")
	fs.StringVar(&o.well, "well", "", "fit a single well and write its decline table")
	fs.BoolVar(&o.estimate, "estimate", false, "two-point b estimator mode (well_name,qi,qe,t_months,di,start_date)")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if !o.estimate {
		if err := o.bounds.Validate(); err != nil {
			return o, err
		}
	}
	return o, nil
}

func main() {
	cfg := config.Load()
	log := util.NewLogger(cfg.LogLevel, "text")
	log.SetOutput(os.Stderr)

	opts, err := parseFlags(os.Args[1:], cfg)
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		log.WithError(err).Fatal("invalid arguments")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, cfg, log); err != nil {
		log.WithError(err).Fatal("dca failed")
	}
}

func run(ctx context.Context, o options, cfg *config.Config, log logrus.FieldLogger) error {
	in, closeIn, err := openInput(o.in)
	if err != nil {
		return err
	}
	defer closeIn()
	out, closeOut, err := openOutput(o.out)
	if err != nil {
		return err
	}
	defer closeOut()

	if o.estimate {
		rows, err := readEstimatorRows(in)
		if err != nil {
			return err
		}
		forecasts := services.EstimateBatch(rows)
		for _, f := range forecasts {
			if f.Err != "" {
				log.WithField("well", f.WellName).Warn(f.Err)
			}
		}
		return services.WriteForecastCSV(out, forecasts)
	}

	records, err := readProduction(in, o.cols)
	if err != nil {
		return err
	}
	fit := fitOptions(o, cfg)

	if o.well != "" {
		return runSingle(ctx, records, o.well, fit, out, log)
	}

	sum, err := services.FitBatch(ctx, services.GroupByWell(records), services.BatchOptions{
		Fit:     fit,
		Workers: o.workers,
		Logger:  log,
	})
	if err != nil {
		return err
	}
	return services.WriteBatchCSV(out, sum)
}

func runSingle(ctx context.Context, records []services.ProductionRecord, well string, fit services.FitOptions, out io.Writer, log logrus.FieldLogger) error {
	var rows []services.ProductionRecord
	for _, r := range records {
		if strings.TrimSpace(r.WellID) == well {
			rows = append(rows, r)
		}
	}
	if len(rows) == 0 {
		return fmt.Errorf("well %q not found in input", well)
	}
	s, err := services.BuildRateSeries(well, rows)
	if err != nil {
		return err
	}
	res, err := services.FitWell(ctx, s, fit)
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"well": well, "qi": res.Qi, "di": res.Di, "b": res.B, "mismatch_pct": res.MismatchPct,
	}).Info("fit done")
	return services.WriteDeclineCSV(out, services.DeclineTable(res))
}

// fitOptions: parameter optimizer dari env (DCA_*), bounds & seed dari flag.
func fitOptions(o options, cfg *config.Config) services.FitOptions {
	fit := app.FitOptionsFromConfig(cfg)
	fit.Bounds = o.bounds
	fit.Seed = o.seed
	return fit
}

func openInput(path string) (io.Reader, func(), error) {
	if path == "" || path == "-" {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { _ = f.Close() }, nil
}

func openOutput(path string) (io.Writer, func(), error) {
	if path == "" || path == "-" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { _ = f.Close() }, nil
}
