// repositories/mysql/fit_run_repo.go
// Menyimpan hasil batch fitting (satu run + baris per sumur)
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"

	"dca-oilgas/internal/services"
)

type FitRunRepo struct{ DB *sql.DB }

var fitRunSchema = []string{`
CREATE TABLE IF NOT EXISTS dca_fit_run (
	run_id       CHAR(36)  NOT NULL PRIMARY KEY,
	started_at   DATETIME  NOT NULL,
	finished_at  DATETIME  NOT NULL,
	b_min        DOUBLE    NOT NULL,
	b_max        DOUBLE    NOT NULL,
	seed         BIGINT    NOT NULL,
	ok_count     INT       NOT NULL,
	insufficient INT       NOT NULL,
	failed       INT       NOT NULL
)`, `
CREATE TABLE IF NOT EXISTS dca_fit_result (
	run_id         CHAR(36)     NOT NULL,
	well_id        VARCHAR(64)  NOT NULL,
	status         VARCHAR(255) NOT NULL,
	qi_date        DATE         NULL,
	qi             DOUBLE       NULL,
	qe_actual      DOUBLE       NULL,
	qe_fit         DOUBLE       NULL,
	mismatch_pct   DOUBLE       NULL,
	di_per_month   DOUBLE       NULL,
	b_factor       DOUBLE       NULL,
	cum_actual     DOUBLE       NULL,
	cum_fitted     DOUBLE       NULL,
	PRIMARY KEY (run_id, well_id)
)`}

func (r *FitRunRepo) EnsureSchema(ctx context.Context) error {
	for _, stmt := range fitRunSchema {
		if _, err := r.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create fit run tables: %w", err)
		}
	}
	return nil
}

// SaveRun menyimpan ringkasan batch; NaN disimpan sebagai NULL.
func (r *FitRunRepo) SaveRun(ctx context.Context, sum *services.BatchSummary) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO dca_fit_run(run_id, started_at, finished_at, b_min, b_max, seed, ok_count, insufficient, failed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sum.RunID, sum.StartedAt.UTC(), sum.FinishedAt.UTC(), sum.Bounds.BMin, sum.Bounds.BMax, sum.Seed,
		sum.OK, sum.Insufficient, sum.Failed)
	if err != nil {
		return fmt.Errorf("insert fit run: %w", err)
	}

	if len(sum.Rows) > 0 {
		q, args := buildResultInsert(sum.RunID, sum.Rows)
		if _, err := tx.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("insert fit results: %w", err)
		}
	}
	return tx.Commit()
}

func buildResultInsert(runID string, rows []services.BatchRow) (string, []any) {
	const cols = 12
	tuple := "(" + placeholders(cols) + ")"
	q := "INSERT INTO dca_fit_result(run_id, well_id, status, qi_date, qi, qe_actual, qe_fit, mismatch_pct, di_per_month, b_factor, cum_actual, cum_fitted) VALUES " +
		strings.TrimRight(strings.Repeat(tuple+",", len(rows)), ",")
	args := make([]any, 0, len(rows)*cols)
	for _, row := range rows {
		var qiDate any
		if row.QiDate != nil {
			qiDate = row.QiDate.Format("2006-01-02")
		}
		args = append(args, runID, row.WellID, row.StatusText(), qiDate,
			nanToNull(row.Qi), nanToNull(row.QeActual), nanToNull(row.QeFit), nanToNull(row.MismatchPct),
			nanToNull(row.Di), nanToNull(row.B), nanToNull(row.CumActual), nanToNull(row.CumFitted))
	}
	return q, args
}

func nanToNull(v float64) sql.NullFloat64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}
