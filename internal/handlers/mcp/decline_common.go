// internal/handlers/mcp/decline_common.go
// Dependency & helper bersama untuk tool decline (fit, batch, estimator)

package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"dca-oilgas/internal/llm"
	mysqlrepo "dca-oilgas/internal/repositories/mysql"
	"dca-oilgas/internal/services"
	"dca-oilgas/internal/util"
)

// ProductionStore adalah sumber data produksi bulanan (MySQL di produksi, fake di test).
type ProductionStore interface {
	ListMonthly(ctx context.Context, f mysqlrepo.ProdFilter) ([]mysqlrepo.ProdRow, error)
	LoadWells(ctx context.Context, f mysqlrepo.ProdFilter) ([]services.WellSource, error)
}

// RunStore menyimpan ringkasan batch (dipakai route admin).
type RunStore interface {
	SaveRun(ctx context.Context, sum *services.BatchSummary) error
}

// ===== DI =====
var (
	productionRepo ProductionStore
	runStore       RunStore
	fitDefaults    = services.DefaultFitOptions()
	batchWorkers   = 1
	narrator       = &llm.Narrator{}
	logger         logrus.FieldLogger = logrus.StandardLogger()
)

func SetProductionRepo(r ProductionStore) {
	productionRepo = r
	readyProduction = r != nil
}

func SetRunStore(s RunStore) { runStore = s }

// SetDeclineDefaults mengatur bounds/seed/optimizer default dan jumlah worker batch.
func SetDeclineDefaults(opts services.FitOptions, workers int) {
	fitDefaults = opts
	if workers < 1 {
		workers = 1
	}
	batchWorkers = workers
}

func SetNarrator(n *llm.Narrator) {
	if n == nil {
		n = &llm.Narrator{}
	}
	narrator = n
	readyNarrator = n.Client != nil
}

func SetLogger(l logrus.FieldLogger) {
	if l != nil {
		logger = l
	}
}

// ===== DTO input =====

// recordIn menerima {date, rate} atau {date, oil, days}.
type recordIn struct {
	Date string   `json:"date"`
	Rate *float64 `json:"rate,omitempty"`
	Oil  *float64 `json:"oil,omitempty"`
	Days *float64 `json:"days,omitempty"`
}

type wellIn struct {
	WellID  string     `json:"well_id"`
	Records []recordIn `json:"records"`
}

type fitParams struct {
	BMin *float64 `json:"b_min,omitempty"`
	BMax *float64 `json:"b_max,omitempty"`
	Seed *int64   `json:"seed,omitempty"`
}

func (p fitParams) options() services.FitOptions {
	opts := fitDefaults
	if p.BMin != nil {
		opts.Bounds.BMin = *p.BMin
	}
	if p.BMax != nil {
		opts.Bounds.BMax = *p.BMax
	}
	if p.Seed != nil {
		opts.Seed = *p.Seed
	}
	return opts
}

func toProductionRecords(wellID string, in []recordIn) []services.ProductionRecord {
	out := make([]services.ProductionRecord, 0, len(in))
	for _, r := range in {
		rec := services.ProductionRecord{WellID: wellID, Date: r.Date}
		switch {
		case r.Rate != nil:
			rec.Oil, rec.Days = *r.Rate, 1
		case r.Oil != nil && r.Days != nil:
			rec.Oil, rec.Days = *r.Oil, *r.Days
		case r.Oil != nil:
			// tanpa days: oil dianggap sudah berupa laju
			rec.Oil, rec.Days = *r.Oil, 1
		}
		out = append(out, rec)
	}
	return out
}

// ===== output helpers =====

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeAppError(w http.ResponseWriter, e util.AppError) {
	writeJSON(w, statusFor(e), map[string]any{
		"error":   e.Code,
		"message": e.Message,
	})
}

func statusFor(e util.AppError) int {
	switch e.Code {
	case "bad_input":
		return http.StatusBadRequest
	case "not_found":
		return http.StatusNotFound
	case "unavailable":
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// classify memetakan error service ke AppError.
func classify(err error) util.AppError {
	switch {
	case errors.Is(err, services.ErrInvalidBounds),
		errors.Is(err, services.ErrInvalidSeries),
		errors.Is(err, services.ErrEmptySeries),
		errors.Is(err, services.ErrInvalidEstimatorInput):
		return util.BadInput(err.Error())
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return util.Unavailable(err.Error())
	default:
		return util.Internal(err.Error())
	}
}

func decodeBody(r *http.Request, v any) error {
	if r.Body == nil {
		return errors.New("empty body")
	}
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return err
	}
	return nil
}

func wantCSV(r *http.Request) bool {
	if strings.EqualFold(r.URL.Query().Get("format"), "csv") {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "text/csv")
}
