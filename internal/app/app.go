// internal/app/app.go
package app

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"dca-oilgas/internal/config"
	mcphandlers "dca-oilgas/internal/handlers/mcp"
	"dca-oilgas/internal/llm"
	"dca-oilgas/internal/mcp"
	mysqlrepo "dca-oilgas/internal/repositories/mysql"
	"dca-oilgas/internal/services"
	"dca-oilgas/pkg/db"
	"dca-oilgas/pkg/optimize"
)

// App menampung router utama dan dependency opsional (DB, LLM).
type App struct {
	Router *mux.Router
	Config *config.Config
	Log    *logrus.Logger
	DB     *sql.DB
}

// FitOptionsFromConfig menerjemahkan bagian Decline konfigurasi ke opsi fitting.
func FitOptionsFromConfig(cfg *config.Config) services.FitOptions {
	de := optimize.DefaultDEConfig()
	de.MaxIter = cfg.Decline.MaxIter
	de.PopSize = cfg.Decline.PopSize
	de.Tol = cfg.Decline.Tol
	de.Polish = cfg.Decline.Polish
	return services.FitOptions{
		Bounds:    services.Bounds{BMin: cfg.Decline.BMin, BMax: cfg.Decline.BMax},
		Seed:      cfg.Decline.Seed,
		Optimizer: de,
	}
}

// New membuat instance App + registrasi semua routes (HTTP & MCP).
// DB dan LLM opsional: tanpa keduanya, fitting inline tetap berjalan.
func New(cfg *config.Config, log *logrus.Logger) *App {
	r := mux.NewRouter()
	a := &App{Router: r, Config: cfg, Log: log}

	mcphandlers.SetLogger(log)
	mcp.SetLogger(log)
	mcphandlers.SetDeclineDefaults(FitOptionsFromConfig(cfg), cfg.Decline.Workers)

	// === init DB ===
	if cfg.MySQL.Enabled {
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		conn, err := db.NewMySQL(ctx, cfg, 5)
		cancel()
		if err != nil {
			log.WithError(err).Warn("mysql unavailable; DB-backed tools disabled")
		} else {
			a.DB = conn
			prod := &mysqlrepo.ProductionRepo{DB: conn}
			runs := &mysqlrepo.FitRunRepo{DB: conn}
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			if err := prod.EnsureSchema(ctx); err != nil {
				log.WithError(err).Warn("ensure production schema")
			}
			if err := runs.EnsureSchema(ctx); err != nil {
				log.WithError(err).Warn("ensure fit run schema")
			} else {
				mcphandlers.SetRunStore(runs)
			}
			cancel()
			mcphandlers.SetProductionRepo(prod)
		}
	}

	// === LLM (narasi & pemilihan tool) ===
	if client, err := llm.NewFromConfig(cfg); err == nil {
		mcphandlers.SetNarrator(&llm.Narrator{Client: client, Log: log})
		mcp.SetChooser(client)
	} else {
		mcphandlers.SetNarrator(&llm.Narrator{Log: log})
	}

	RegisterRoutes(r, cfg, log)
	registerMCPTools()

	return a
}

// Close melepas koneksi DB bila ada.
func (a *App) Close() error {
	if a.DB != nil {
		return a.DB.Close()
	}
	return nil
}

// ----------------- MCP Wiring -----------------

// registerMCPTools mendaftarkan semua tool MCP ke registry.
func registerMCPTools() {
	mcp.Register("fit_well", http.HandlerFunc(mcphandlers.FitWellHandler))
	mcp.Register("fit_batch", http.HandlerFunc(mcphandlers.FitBatchHandler))
	mcp.Register("estimate_b", http.HandlerFunc(mcphandlers.EstimateBHandler))
	mcp.Register("get_production", http.HandlerFunc(mcphandlers.GetProductionHandler))
}
