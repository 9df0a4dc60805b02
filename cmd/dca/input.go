// cmd/dca/input.go
// Pembacaan CSV produksi & estimator dengan pemetaan kolom

package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"dca-oilgas/internal/services"
)

// columnMap: nama kolom (setelah dinormalisasi) untuk well, date, oil, days.
type columnMap struct {
	Well, Date, Oil, Days string
}

// normalizeHeader: trim, lowercase, spasi -> underscore, buang BOM.
func normalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.ReplaceAll(h, " ", "_")
}

func headerIndex(head []string) map[string]int {
	idx := make(map[string]int, len(head))
	for i, c := range head {
		idx[normalizeHeader(c)] = i
	}
	return idx
}

func lookup(idx map[string]int, names ...string) (map[string]int, error) {
	out := make(map[string]int, len(names))
	var missing []string
	for _, n := range names {
		key := normalizeHeader(n)
		i, ok := idx[key]
		if !ok {
			missing = append(missing, key)
			continue
		}
		out[key] = i
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing column(s) %s in CSV header", strings.Join(missing, ", "))
	}
	return out, nil
}

func newReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	return cr
}

// parseNumber: sel kosong / tidak numerik -> NaN (dibuang saat pembersihan deret).
func parseNumber(s string) float64 {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

func cell(rec []string, i int) string {
	if i < len(rec) {
		return rec[i]
	}
	return ""
}

// readProduction membaca baris produksi mentah. Baris tanpa well atau tanggal dibuang,
// seperti dropna pada kolom wajib; tanggal yang tidak bisa di-parse tetap diteruskan
// agar kegagalan terisolasi per sumur di batch.
func readProduction(r io.Reader, cols columnMap) ([]services.ProductionRecord, error) {
	cr := newReader(r)
	head, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	ix, err := lookup(headerIndex(head), cols.Well, cols.Date, cols.Oil, cols.Days)
	if err != nil {
		return nil, err
	}
	wi, di := ix[normalizeHeader(cols.Well)], ix[normalizeHeader(cols.Date)]
	oi, dy := ix[normalizeHeader(cols.Oil)], ix[normalizeHeader(cols.Days)]

	var out []services.ProductionRecord
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		well := strings.TrimSpace(cell(rec, wi))
		date := strings.TrimSpace(cell(rec, di))
		if well == "" || date == "" {
			continue
		}
		out = append(out, services.ProductionRecord{
			WellID: well,
			Date:   date,
			Oil:    parseNumber(cell(rec, oi)),
			Days:   parseNumber(cell(rec, dy)),
		})
	}
	return out, nil
}

var estimatorColumns = []string{"well_name", "qi", "qe", "t_months", "di", "start_date"}

// readEstimatorRows membaca tabel (WellName, Qi, Qe, t_months, Di, StartDate).
// Nilai numerik invalid menjadi NaN dan start_date invalid dibawa sebagai InputErr;
// keduanya ditolak per baris oleh EstimateBatch.
func readEstimatorRows(r io.Reader) ([]services.EstimateInput, error) {
	cr := newReader(r)
	head, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	ix, err := lookup(headerIndex(head), estimatorColumns...)
	if err != nil {
		return nil, err
	}

	var out []services.EstimateInput
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		in := services.EstimateInput{
			WellName: strings.TrimSpace(cell(rec, ix["well_name"])),
			Qi:       parseNumber(cell(rec, ix["qi"])),
			Qe:       parseNumber(cell(rec, ix["qe"])),
			TMonths:  parseNumber(cell(rec, ix["t_months"])),
			Di:       parseNumber(cell(rec, ix["di"])),
		}
		start, err := services.ParseDate(cell(rec, ix["start_date"]))
		if err != nil {
			in.InputErr = fmt.Errorf("line %d: start_date: %w", line, err)
		}
		in.StartDate = start
		out = append(out, in)
	}
	return out, nil
}
