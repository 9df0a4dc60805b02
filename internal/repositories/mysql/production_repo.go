// repositories/mysql/production_repo.go
// Repo untuk data produksi bulanan (oil, days) per sumur
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"dca-oilgas/internal/services"
)

type ProductionRepo struct{ DB *sql.DB }

type ProdRow struct {
	ProdDate time.Time
	WellID   string
	Oil      sql.NullFloat64
	Days     sql.NullFloat64
}

type ProdFilter struct {
	WellID string
	Wells  []string   // exact match, diabaikan bila kosong
	Start  *time.Time // inclusive
	End    *time.Time // exclusive
	Limit  int        // 0 = tanpa limit (dipakai batch)
	Offset int
}

// Asumsi skema:
//
//	prod_monthly(well_id VARCHAR, prod_date DATE, oil DOUBLE, days DOUBLE,
//	             PRIMARY KEY (well_id, prod_date))
func buildMonthlyQuery(f ProdFilter) (string, []any) {
	var sb strings.Builder
	sb.WriteString(`
		SELECT prod_date, well_id, oil, days
		FROM prod_monthly
		WHERE 1=1`)
	args := []any{}

	if f.WellID != "" {
		sb.WriteString(` AND well_id LIKE ?`)
		args = append(args, "%"+f.WellID+"%")
	}
	if len(f.Wells) > 0 {
		sb.WriteString(` AND well_id IN (` + placeholders(len(f.Wells)) + `)`)
		for _, w := range f.Wells {
			args = append(args, w)
		}
	}
	if f.Start != nil {
		sb.WriteString(` AND prod_date >= ?`)
		args = append(args, f.Start.Format("2006-01-02"))
	}
	if f.End != nil {
		sb.WriteString(` AND prod_date < ?`)
		args = append(args, f.End.Format("2006-01-02"))
	}

	sb.WriteString(` ORDER BY well_id ASC, prod_date ASC`)
	if f.Limit > 0 {
		if f.Offset < 0 {
			f.Offset = 0
		}
		sb.WriteString(` LIMIT ? OFFSET ?`)
		args = append(args, f.Limit, f.Offset)
	}
	return sb.String(), args
}

func (r *ProductionRepo) ListMonthly(ctx context.Context, f ProdFilter) ([]ProdRow, error) {
	q, args := buildMonthlyQuery(f)
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query production monthly: %w", err)
	}
	defer rows.Close()

	var out []ProdRow
	for rows.Next() {
		var rrow ProdRow
		if err := rows.Scan(&rrow.ProdDate, &rrow.WellID, &rrow.Oil, &rrow.Days); err != nil {
			return nil, err
		}
		out = append(out, rrow)
	}
	return out, rows.Err()
}

// ListWells mengembalikan daftar well_id unik, urut naik.
func (r *ProductionRepo) ListWells(ctx context.Context) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT DISTINCT well_id FROM prod_monthly ORDER BY well_id ASC`)
	if err != nil {
		return nil, fmt.Errorf("query wells: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// LoadWells membaca baris produksi lalu mengelompokkan per sumur untuk batch fitter.
// NULL oil/days diteruskan sebagai NaN sehingga dibuang oleh pembersihan deret.
func (r *ProductionRepo) LoadWells(ctx context.Context, f ProdFilter) ([]services.WellSource, error) {
	f.Limit, f.Offset = 0, 0
	rows, err := r.ListMonthly(ctx, f)
	if err != nil {
		return nil, err
	}
	return services.GroupByWell(ToProductionRecords(rows)), nil
}

func ToProductionRecords(rows []ProdRow) []services.ProductionRecord {
	out := make([]services.ProductionRecord, 0, len(rows))
	for _, rr := range rows {
		rec := services.ProductionRecord{
			WellID: rr.WellID,
			Date:   rr.ProdDate.Format("2006-01-02"),
			Oil:    nullToNaN(rr.Oil),
			Days:   nullToNaN(rr.Days),
		}
		out = append(out, rec)
	}
	return out
}

// ProductionSchema membuat tabel produksi bulanan bila belum ada.
const ProductionSchema = `
CREATE TABLE IF NOT EXISTS prod_monthly (
	well_id   VARCHAR(64) NOT NULL,
	prod_date DATE        NOT NULL,
	oil       DOUBLE      NULL,
	days      DOUBLE      NULL,
	PRIMARY KEY (well_id, prod_date)
)`

func (r *ProductionRepo) EnsureSchema(ctx context.Context) error {
	if _, err := r.DB.ExecContext(ctx, ProductionSchema); err != nil {
		return fmt.Errorf("create prod_monthly: %w", err)
	}
	return nil
}

// buildUpsert: INSERT multi-row, baris dengan (well_id, prod_date) sama ditimpa.
func buildUpsert(n int) string {
	tuples := strings.TrimRight(strings.Repeat("(?, ?, ?, ?),", n), ",")
	return "INSERT INTO prod_monthly(well_id, prod_date, oil, days) VALUES " + tuples +
		" ON DUPLICATE KEY UPDATE oil=VALUES(oil), days=VALUES(days)"
}

// UpsertMonthly menulis baris per batch (batchSize <= 0 -> 1000) dalam satu transaksi.
func (r *ProductionRepo) UpsertMonthly(ctx context.Context, rows []ProdRow, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = 1000
	}
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	written := 0
	for start := 0; start < len(rows); start += batchSize {
		end := min(start+batchSize, len(rows))
		chunk := rows[start:end]
		args := make([]any, 0, len(chunk)*4)
		for _, rr := range chunk {
			args = append(args, rr.WellID, rr.ProdDate.Format("2006-01-02"), rr.Oil, rr.Days)
		}
		if _, err := tx.ExecContext(ctx, buildUpsert(len(chunk)), args...); err != nil {
			return written, fmt.Errorf("upsert prod_monthly rows %d-%d: %w", start+1, end, err)
		}
		written += len(chunk)
	}
	if err := tx.Commit(); err != nil {
		return written, err
	}
	return written, nil
}
