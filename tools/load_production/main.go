/*
Kompilasi manual:
  go build -o bin/load_production ./tools/load_production

Pakai contoh:
  ./bin/load_production \
    -csv data/production.csv \
    -dsn "dca:secret@tcp(127.0.0.1:3306)/dca?parseTime=true" \
    -well-col wellname -batch 2000 -create
*/

// [FILE] tools/load_production/main.go
package main

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/sirupsen/logrus"

	mysqlrepo "dca-oilgas/internal/repositories/mysql"
	"dca-oilgas/internal/services"
)

var (
	csvPath   = flag.String("csv", "data/production.csv", "CSV path")
	dsn       = flag.String("dsn", "root:password@tcp(127.0.0.1:3306)/dca?parseTime=true", "MySQL DSN")
	wellCol   = flag.String("well-col", "wellname", "well column")
	dateCol   = flag.String("date-col", "date", "date column")
	oilCol    = flag.String("oil-col", "oil", "total oil column")
	daysCol   = flag.String("days-col", "days", "producing days column")
	batchSize = flag.Int("batch", 1000, "Insert batch size")
	truncate  = flag.Bool("truncate", false, "TRUNCATE prod_monthly first")
	create    = flag.Bool("create", false, "CREATE TABLE IF NOT EXISTS prod_monthly")
)

func main() {
	flag.Parse()
	log := logrus.New()

	db, err := sql.Open("mysql", *dsn)
	if err != nil {
		log.WithError(err).Fatal("open mysql")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		log.WithError(err).Fatal("ping mysql")
	}

	repo := &mysqlrepo.ProductionRepo{DB: db}
	if *create {
		if err := repo.EnsureSchema(ctx); err != nil {
			log.WithError(err).Fatal("create table")
		}
	}
	if *truncate {
		if _, err := db.ExecContext(ctx, "TRUNCATE TABLE prod_monthly"); err != nil {
			log.WithError(err).Fatal("truncate")
		}
		log.Info("[ok] truncated prod_monthly")
	}

	f, err := os.Open(*csvPath)
	if err != nil {
		log.WithError(err).Fatal("open csv")
	}
	defer f.Close()

	rows, skipped, err := readRows(bufio.NewReader(f), [4]string{*wellCol, *dateCol, *oilCol, *daysCol})
	if err != nil {
		log.WithError(err).Fatal("read csv")
	}
	n, err := repo.UpsertMonthly(ctx, rows, *batchSize)
	if err != nil {
		log.WithError(err).Fatal("upsert")
	}
	log.WithFields(logrus.Fields{"rows": n, "skipped": skipped}).Info("[ok] loaded prod_monthly")
}

/* ======================= Common Helpers ======================= */

func headerIndex(h []string) map[string]int {
	m := map[string]int{}
	for i, c := range h {
		c = strings.TrimPrefix(c, "\ufeff")
		c = strings.ReplaceAll(strings.TrimSpace(strings.ToLower(c)), " ", "_")
		m[c] = i
	}
	return m
}

func ensureColumns(idx map[string]int, need []string) error {
	for _, c := range need {
		if _, ok := idx[c]; !ok {
			return fmt.Errorf("missing column %q in CSV header", c)
		}
	}
	return nil
}

func nullFloat(s string) sql.NullFloat64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

/* ======================= prod_monthly ======================= */

// readRows: baris tanpa well / tanggal valid dilewati (dihitung di skipped);
// oil/days kosong disimpan NULL.
func readRows(r io.Reader, cols [4]string) ([]mysqlrepo.ProdRow, int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	head, err := cr.Read()
	if err != nil {
		return nil, 0, err
	}
	idx := headerIndex(head)
	need := make([]string, len(cols))
	for i, c := range cols {
		need[i] = strings.ReplaceAll(strings.ToLower(strings.TrimSpace(c)), " ", "_")
	}
	if err := ensureColumns(idx, need); err != nil {
		return nil, 0, err
	}
	wi, di, oi, dy := idx[need[0]], idx[need[1]], idx[need[2]], idx[need[3]]

	var (
		out     []mysqlrepo.ProdRow
		skipped int
	)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, skipped, err
		}
		if len(rec) <= max(wi, di, oi, dy) {
			skipped++
			continue
		}
		well := strings.TrimSpace(rec[wi])
		d, err := services.ParseDate(rec[di])
		if well == "" || err != nil {
			skipped++
			continue
		}
		out = append(out, mysqlrepo.ProdRow{
			WellID:   well,
			ProdDate: d,
			Oil:      nullFloat(rec[oi]),
			Days:     nullFloat(rec[dy]),
		})
	}
	return out, skipped, nil
}
