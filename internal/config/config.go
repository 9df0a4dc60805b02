// internal/config/config.go
// Loader konfigurasi dari environment variables (+ file .env opsional)

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type Config struct {
	AppName   string
	AppEnv    string
	AppPort   string
	LogLevel  string
	LogFormat string
	APIKey    string

	MySQL struct {
		Enabled  bool
		Host     string
		Port     string
		DB       string
		User     string
		Password string
		DSN      string // bila diisi, menimpa Host/Port/DB/User/Password
		MaxOpen  int
		MaxIdle  int
	}

	LLM struct {
		APIKey  string
		APIBase string
		Model   string
	}

	Decline struct {
		BMin    float64
		BMax    float64
		Seed    int64
		Workers int
		MaxIter int
		PopSize int
		Tol     float64
		Polish  bool

		RateLimitRPS   float64
		RateLimitBurst int
	}

	Worker struct {
		IntervalSec int
	}
}

// Load membaca .env (jika ada) lalu environment. Nilai environment menang atas .env.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logrus.WithError(err).Warn("load .env failed")
	}

	c := &Config{}
	c.AppName = getEnv("APP_NAME", "dca-oilgas")
	c.AppEnv = getEnv("APP_ENV", "development")
	c.AppPort = getEnv("APP_PORT", "8080")
	c.LogLevel = getEnv("LOG_LEVEL", "info")
	c.LogFormat = getEnv("LOG_FORMAT", "json")
	c.APIKey = getEnv("API_KEY", "")

	c.MySQL.Enabled = getEnvBool("DB_ENABLED", true)
	c.MySQL.Host = getEnv("MYSQL_HOST", "localhost")
	c.MySQL.Port = getEnv("MYSQL_PORT", "3306")
	c.MySQL.DB = getEnv("MYSQL_DB", "dca")
	c.MySQL.User = getEnv("MYSQL_USER", "root")
	c.MySQL.Password = getEnv("MYSQL_PASSWORD", "")
	c.MySQL.DSN = getEnv("DB_DSN", "")
	c.MySQL.MaxOpen = getEnvInt("MYSQL_MAX_OPEN_CONNS", 10)
	c.MySQL.MaxIdle = getEnvInt("MYSQL_MAX_IDLE_CONNS", 5)

	c.LLM.APIKey = getEnv("OPENAI_API_KEY", "")
	c.LLM.APIBase = getEnv("OPENAI_BASE_URL", "")
	c.LLM.Model = getEnv("OPENAI_MODEL", "gpt-4o-mini")

	c.Decline.BMin = getEnvFloat("DCA_B_MIN", 0)
	c.Decline.BMax = getEnvFloat("DCA_B_MAX", 1)
	c.Decline.Seed = int64(getEnvInt("DCA_SEED", 42))
	c.Decline.Workers = getEnvInt("DCA_WORKERS", 1)
	c.Decline.MaxIter = getEnvInt("DCA_MAX_ITER", 1000)
	c.Decline.PopSize = getEnvInt("DCA_POPSIZE", 15)
	c.Decline.Tol = getEnvFloat("DCA_TOL", 0.01)
	c.Decline.Polish = getEnvBool("DCA_POLISH", true)
	c.Decline.RateLimitRPS = getEnvFloat("DCA_RATE_LIMIT_RPS", 2)
	c.Decline.RateLimitBurst = getEnvInt("DCA_RATE_LIMIT_BURST", 4)

	c.Worker.IntervalSec = getEnvInt("WORKER_INTERVAL_SEC", 3600)

	if c.LLM.APIKey == "" {
		logrus.Debug("OPENAI_API_KEY is not set, narratives use the extractive fallback")
	}

	return c
}

// Validate menolak konfigurasi decline yang tidak bisa dipakai fitting.
func (c *Config) Validate() error {
	d := c.Decline
	switch {
	case d.BMin < 0:
		return fmt.Errorf("DCA_B_MIN=%v must be >= 0", d.BMin)
	case d.BMin > d.BMax:
		return fmt.Errorf("DCA_B_MIN=%v must be <= DCA_B_MAX=%v", d.BMin, d.BMax)
	case d.Workers < 1:
		return fmt.Errorf("DCA_WORKERS=%d must be >= 1", d.Workers)
	case d.MaxIter < 1 || d.PopSize < 1:
		return fmt.Errorf("DCA_MAX_ITER=%d and DCA_POPSIZE=%d must be >= 1", d.MaxIter, d.PopSize)
	case d.Tol <= 0:
		return fmt.Errorf("DCA_TOL=%v must be > 0", d.Tol)
	}
	return nil
}

// MySQLDSN menyusun DSN go-sql-driver; parseTime wajib untuk kolom DATE.
func (c *Config) MySQLDSN() string {
	if c.MySQL.DSN != "" {
		return c.MySQL.DSN
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true",
		c.MySQL.User, c.MySQL.Password, c.MySQL.Host, c.MySQL.Port, c.MySQL.DB)
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		var i int
		_, err := fmt.Sscanf(v, "%d", &i)
		if err == nil {
			return i
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}
