// internal/handlers/mcp/fit_well.go
// MCP Tool: fit_well - fitting decline Arps untuk satu sumur

package mcp

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	mysqlrepo "dca-oilgas/internal/repositories/mysql"
	"dca-oilgas/internal/services"
	"dca-oilgas/internal/util"
)

type fitWellReq struct {
	WellID  string     `json:"well_id"`
	Records []recordIn `json:"records,omitempty"` // kosong -> ambil dari DB
	fitParams
}

type fitWellResp struct {
	Fit          *services.FitResult    `json:"fit"`
	DeclineTable []services.DeclineRow `json:"decline_table"`
}

// insufficientResp: anchor tetap dilaporkan walau fitting dilewati.
type insufficientResp struct {
	Status    string  `json:"status"`
	WellID    string  `json:"well_id"`
	Qi        float64 `json:"qi"`
	QiDate    string  `json:"qi_date"`
	QeActual  float64 `json:"qe_actual"`
	CumActual float64 `json:"cum_actual"`
	Points    int     `json:"post_peak_points"`
}

// loadSeries menyusun RateSeries dari payload atau dari repo produksi.
func loadSeries(ctx context.Context, in fitWellReq) (services.RateSeries, *util.AppError) {
	in.WellID = strings.TrimSpace(in.WellID)
	if len(in.Records) > 0 {
		id := in.WellID
		if id == "" {
			id = "well"
		}
		s, err := services.BuildRateSeries(id, toProductionRecords(id, in.Records))
		if err != nil {
			e := util.BadInput(err.Error())
			return services.RateSeries{}, &e
		}
		return s, nil
	}

	if in.WellID == "" {
		e := util.BadInput("well_id or records required")
		return services.RateSeries{}, &e
	}
	if productionRepo == nil {
		e := util.Unavailable("production repo not configured; send records inline")
		return services.RateSeries{}, &e
	}
	wells, err := productionRepo.LoadWells(ctx, mysqlrepo.ProdFilter{Wells: []string{in.WellID}})
	if err != nil {
		e := util.Internal(err.Error())
		return services.RateSeries{}, &e
	}
	if len(wells) == 0 {
		e := util.NotFound("no production for well " + in.WellID)
		return services.RateSeries{}, &e
	}
	s, err := wells[0].Series()
	if err != nil {
		e := util.BadInput(err.Error())
		return services.RateSeries{}, &e
	}
	return s, nil
}

func runFitWell(ctx context.Context, in fitWellReq) (*services.FitResult, any, *util.AppError) {
	s, aerr := loadSeries(ctx, in)
	if aerr != nil {
		return nil, nil, aerr
	}

	fit, err := services.FitWell(ctx, s, in.options())
	var ide *services.InsufficientDataError
	switch {
	case errors.As(err, &ide):
		countRow(string(services.StatusInsufficientData))
		return nil, insufficientResp{
			Status:    string(services.StatusInsufficientData),
			WellID:    ide.WellID,
			Qi:        ide.Qi,
			QiDate:    ide.QiDate.Format("2006-01-02"),
			QeActual:  ide.QeActual,
			CumActual: ide.CumActual,
			Points:    ide.Points,
		}, nil
	case err != nil:
		countRow(string(services.StatusError))
		e := classify(err)
		return nil, nil, &e
	}
	countRow(string(services.StatusOK))
	return fit, fitWellResp{Fit: fit, DeclineTable: services.DeclineTable(fit)}, nil
}

func FitWellHandler(w http.ResponseWriter, r *http.Request) {
	var in fitWellReq
	if err := decodeBody(r, &in); err != nil {
		writeAppError(w, util.BadInput("invalid json: "+err.Error()))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
	defer cancel()

	fit, out, aerr := runFitWell(ctx, in)
	if aerr != nil {
		writeAppError(w, *aerr)
		return
	}
	if fit == nil {
		writeJSON(w, http.StatusUnprocessableEntity, out)
		return
	}
	logger.WithField("well", fit.WellID).WithField("b", fit.B).Debug("fit_well done")
	writeJSON(w, http.StatusOK, out)
}
