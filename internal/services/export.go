// internal/services/export.go
// Ekspor CSV untuk ringkasan batch, tabel decline, dan tabel forecast

package services

import (
	"encoding/csv"
	"io"
	"math"
	"strconv"
)

var batchHeader = []string{
	"well", "qi_date", "Qi_detected", "Qe_actual_last", "Qe_fit", "Mismatch_%",
	"Di_per_month", "b_factor", "Cum_Actual_All", "Cum_Fitted", "status",
}

// WriteBatchCSV menulis satu baris per sumur; nilai NaN ditulis kosong.
func WriteBatchCSV(w io.Writer, sum *BatchSummary) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(batchHeader); err != nil {
		return err
	}
	for _, r := range sum.Rows {
		qiDate := ""
		if r.QiDate != nil {
			qiDate = r.QiDate.Format("2006-01-02")
		}
		rec := []string{
			r.WellID, qiDate,
			formatFloat(r.Qi), formatFloat(r.QeActual), formatFloat(r.QeFit), formatFloat(r.MismatchPct),
			formatFloat(r.Di), formatFloat(r.B), formatFloat(r.CumActual), formatFloat(r.CumFitted),
			r.StatusText(),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteDeclineCSV menulis tabel decline satu sumur.
func WriteDeclineCSV(w io.Writer, rows []DeclineRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"date", "t_months", "oil_rate", "fitted_rate", "cumulative_actual", "cumulative_fitted", "variance_pct"}); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{
			r.Date.Format("2006-01-02"), formatFloat(r.TMonths), formatFloat(r.Actual), formatFloat(r.Fitted),
			formatFloat(r.CumActual), formatFloat(r.CumFitted), formatFloat(r.VariancePct),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteForecastCSV menulis tabel forecast (long format) untuk banyak sumur.
func WriteForecastCSV(w io.Writer, forecasts []Forecast) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"WellName", "EstimatedB", "MismatchAtHorizon_%", "Month", "Date", "Rate", "Cumulative", "Error"}); err != nil {
		return err
	}
	for _, f := range forecasts {
		if len(f.Series) == 0 {
			if err := cw.Write([]string{f.WellName, formatFloat(f.EstimatedB), formatFloat(f.MismatchPct), "", "", "", "", f.Err}); err != nil {
				return err
			}
			continue
		}
		for _, p := range f.Series {
			rec := []string{
				f.WellName, formatFloat(f.EstimatedB), formatFloat(f.MismatchPct),
				strconv.Itoa(p.Month), p.Date.Format("2006-01-02"), formatFloat(p.Rate), formatFloat(p.Cumulative), f.Err,
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
