// pkg/db/mysql.go
// Helper koneksi MySQL (menggunakan database/sql) dengan retry ping

package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/sirupsen/logrus"

	"dca-oilgas/internal/config"
)

// NewMySQL membuka pool dan menunggu DB siap (maks attempts kali, jeda 3 detik).
func NewMySQL(ctx context.Context, cfg *config.Config, attempts int) (*sql.DB, error) {
	db, err := sql.Open("mysql", cfg.MySQLDSN())
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	db.SetMaxOpenConns(cfg.MySQL.MaxOpen)
	db.SetMaxIdleConns(cfg.MySQL.MaxIdle)
	db.SetConnMaxLifetime(30 * time.Minute)

	if attempts < 1 {
		attempts = 1
	}
	var pingErr error
	for i := 0; i < attempts; i++ {
		pingErr = db.PingContext(ctx)
		if pingErr == nil {
			return db, nil
		}
		logrus.WithError(pingErr).WithField("try", i+1).Warn("ping mysql failed")
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			_ = db.Close()
			return nil, ctx.Err()
		case <-time.After(3 * time.Second):
		}
	}
	_ = db.Close()
	return nil, fmt.Errorf("mysql not ready after %d attempts: %w", attempts, pingErr)
}
