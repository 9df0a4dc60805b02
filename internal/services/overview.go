// internal/services/overview.go
// KPI ringkas dataset: jumlah sumur, jumlah record, rentang waktu

package services

import "time"

type Overview struct {
	TotalWells int       `json:"total_wells"`
	Records    int       `json:"records"`
	SpanDays   int       `json:"span_days"`
	FirstDate  time.Time `json:"first_date,omitempty"`
	LastDate   time.Time `json:"last_date,omitempty"`
}

func Summarize(series []RateSeries) Overview {
	var ov Overview
	wells := map[string]struct{}{}
	for _, s := range series {
		wells[s.Well] = struct{}{}
		for _, r := range s.Records {
			ov.Records++
			if ov.FirstDate.IsZero() || r.Date.Before(ov.FirstDate) {
				ov.FirstDate = r.Date
			}
			if r.Date.After(ov.LastDate) {
				ov.LastDate = r.Date
			}
		}
	}
	ov.TotalWells = len(wells)
	if ov.Records > 0 {
		ov.SpanDays = int(ov.LastDate.Sub(ov.FirstDate).Hours() / 24)
	}
	return ov
}
