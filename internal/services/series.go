// internal/services/series.go
// Deret laju produksi per sumur: validasi, deteksi puncak (Qi), sumbu waktu bulanan

package services

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// DaysPerMonth dipakai untuk konversi selisih hari ke bulan (365.25 / 12).
const DaysPerMonth = 30.4375

var (
	ErrEmptySeries   = errors.New("empty series")
	ErrInvalidSeries = errors.New("invalid series")
)

// Record adalah satu titik laju produksi.
type Record struct {
	Date time.Time `json:"date"`
	Rate float64   `json:"rate"`
}

// RateSeries adalah deret laju satu sumur, tanggal naik tegas.
type RateSeries struct {
	Well    string   `json:"well_id"`
	Records []Record `json:"records"`
}

// WellSource memberi deret satu sumur ke batch fitter.
// Series() boleh gagal (mis. tanggal tidak bisa di-parse); kegagalan hanya berlaku untuk sumur itu.
type WellSource interface {
	WellID() string
	Series() (RateSeries, error)
}

func (s RateSeries) WellID() string              { return s.Well }
func (s RateSeries) Series() (RateSeries, error) { return s, nil }

// Validate memastikan deret tidak kosong, tanggal naik tegas, dan laju finite positif.
func (s RateSeries) Validate() error {
	if len(s.Records) == 0 {
		return ErrEmptySeries
	}
	for i, r := range s.Records {
		if r.Date.IsZero() {
			return fmt.Errorf("%w: record %d has no date", ErrInvalidSeries, i)
		}
		if math.IsNaN(r.Rate) || math.IsInf(r.Rate, 0) || r.Rate <= 0 {
			return fmt.Errorf("%w: record %d (%s) has non-positive rate %v", ErrInvalidSeries, i, r.Date.Format("2006-01-02"), r.Rate)
		}
		if i > 0 && !r.Date.After(s.Records[i-1].Date) {
			return fmt.Errorf("%w: dates not strictly increasing at record %d (%s)", ErrInvalidSeries, i, r.Date.Format("2006-01-02"))
		}
	}
	return nil
}

// Peak mengembalikan indeks record dengan laju maksimum (kemunculan pertama bila seri).
func (s RateSeries) Peak() (int, Record, error) {
	if len(s.Records) == 0 {
		return -1, Record{}, ErrEmptySeries
	}
	idx := 0
	for i, r := range s.Records {
		if r.Rate > s.Records[idx].Rate {
			idx = i
		}
	}
	return idx, s.Records[idx], nil
}

// SplitAtPeak memisah deret menjadi pre-peak (sebelum qi_date) dan post-peak (mulai qi_date, inklusif).
func (s RateSeries) SplitAtPeak() (pre, post []Record, peak Record, err error) {
	idx, peak, err := s.Peak()
	if err != nil {
		return nil, nil, Record{}, err
	}
	return s.Records[:idx], s.Records[idx:], peak, nil
}

// ElapsedMonths mengubah tanggal menjadi bulan sejak origin: hari / 30.4375.
func ElapsedMonths(records []Record, origin time.Time) []float64 {
	out := make([]float64, len(records))
	for i, r := range records {
		days := math.Floor(r.Date.Sub(origin).Hours() / 24)
		out[i] = days / DaysPerMonth
	}
	return out
}

func rates(records []Record) []float64 {
	out := make([]float64, len(records))
	for i, r := range records {
		out[i] = r.Rate
	}
	return out
}

// ===== Input mentah (well, date, oil, days) =====

// ProductionRecord adalah satu baris produksi mentah sebelum dibersihkan.
type ProductionRecord struct {
	WellID string  `json:"well_id"`
	Date   string  `json:"date"`
	Oil    float64 `json:"oil"`
	Days   float64 `json:"days"`
}

// Rate = oil / days.
func (p ProductionRecord) Rate() float64 {
	if p.Days == 0 {
		return math.NaN()
	}
	return p.Oil / p.Days
}

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"02-Jan-2006",
	"Jan 2006",
	"2006-01",
}

// ParseDate menerima beberapa format tanggal umum dari file produksi.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("empty date")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// RawWell adalah baris produksi satu sumur yang belum di-parse.
// Parsing terjadi di dalam batas isolasi batch (lihat FitBatch).
type RawWell struct {
	Well string
	Rows []ProductionRecord
}

func (w RawWell) WellID() string { return w.Well }

func (w RawWell) Series() (RateSeries, error) {
	return BuildRateSeries(w.Well, w.Rows)
}

// BuildRateSeries membersihkan baris mentah seperti loader: rate = oil/days,
// buang rate non-positif/NaN, urutkan per tanggal. Filter rate jalan lebih dulu, jadi untuk
// tanggal duplikat yang menang adalah baris VALID terakhir; duplikat invalid tidak menghapus
// baris valid sebelumnya.
func BuildRateSeries(wellID string, rows []ProductionRecord) (RateSeries, error) {
	byDate := make(map[time.Time]float64, len(rows))
	for i, row := range rows {
		d, err := ParseDate(row.Date)
		if err != nil {
			return RateSeries{}, fmt.Errorf("row %d: %w", i+1, err)
		}
		q := row.Rate()
		if math.IsNaN(q) || math.IsInf(q, 0) || q <= 0 {
			continue
		}
		byDate[d] = q
	}

	out := RateSeries{Well: wellID, Records: make([]Record, 0, len(byDate))}
	for d, q := range byDate {
		out.Records = append(out.Records, Record{Date: d, Rate: q})
	}
	sort.Slice(out.Records, func(i, j int) bool { return out.Records[i].Date.Before(out.Records[j].Date) })
	return out, nil
}

// GroupByWell mengelompokkan baris mentah per sumur (baris tanpa well_id dibuang), urut well_id.
func GroupByWell(rows []ProductionRecord) []WellSource {
	idx := map[string]int{}
	var wells []RawWell
	for _, r := range rows {
		id := strings.TrimSpace(r.WellID)
		if id == "" {
			continue
		}
		i, ok := idx[id]
		if !ok {
			i = len(wells)
			idx[id] = i
			wells = append(wells, RawWell{Well: id})
		}
		wells[i].Rows = append(wells[i].Rows, r)
	}
	sort.Slice(wells, func(i, j int) bool { return wells[i].Well < wells[j].Well })

	out := make([]WellSource, len(wells))
	for i := range wells {
		out[i] = wells[i]
	}
	return out
}
