// internal/app/routes.go
package app

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"dca-oilgas/internal/config"
	hh "dca-oilgas/internal/handlers/http"
	mcphandlers "dca-oilgas/internal/handlers/mcp"
	"dca-oilgas/internal/mcp"
	"dca-oilgas/internal/middleware"
)

// RegisterRoutes menambahkan semua route HTTP ke router utama (mux).
func RegisterRoutes(r *mux.Router, cfg *config.Config, log logrus.FieldLogger) {
	r.Use(middleware.RequestID)
	r.Use(middleware.AccessLog(log))
	r.Use(middleware.CORS)

	limit := middleware.RateLimit(cfg.Decline.RateLimitRPS, cfg.Decline.RateLimitBurst)
	apiKey := middleware.APIKey(cfg.APIKey)

	// --- no prefix ---
	r.HandleFunc("/healthz", hh.HealthHandler).Methods(http.MethodGet)
	r.HandleFunc("/readyz", hh.ReadyHandler).Methods(http.MethodGet)
	r.HandleFunc("/metrics", hh.MetricsHandler).Methods(http.MethodGet)
	r.HandleFunc("/login", hh.LoginHandler).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/debug/repos", hh.ReposStatusHandler).Methods(http.MethodGet)

	// --- /api prefix ---
	api := r.PathPrefix("/api").Subrouter()
	api.Use(apiKey)
	api.HandleFunc("/healthz", hh.HealthHandler).Methods(http.MethodGet)
	api.HandleFunc("/production", mcphandlers.GetProductionHandler).
		Methods(http.MethodGet, http.MethodPost, http.MethodOptions)

	// Decline (CPU-heavy -> rate limited)
	decline := api.PathPrefix("/decline").Subrouter()
	decline.Use(limit)
	decline.HandleFunc("/fit", mcphandlers.FitWellHandler).Methods(http.MethodPost, http.MethodOptions)
	decline.HandleFunc("/batch", mcphandlers.FitBatchHandler).Methods(http.MethodPost, http.MethodOptions)
	decline.HandleFunc("/batch/stream", mcphandlers.FitBatchStreamHandler).Methods(http.MethodPost, http.MethodOptions)
	decline.HandleFunc("/overview", mcphandlers.OverviewHandler).Methods(http.MethodPost, http.MethodOptions)
	decline.HandleFunc("/explain", mcphandlers.ExplainHandler).Methods(http.MethodPost, http.MethodOptions)

	// Preflight catch-all
	api.PathPrefix("/").Methods(http.MethodOptions).HandlerFunc(hh.PreflightHandler)

	// MCP router (tool dispatch)
	r.Handle("/mcp/route", apiKey(limit(http.HandlerFunc(mcp.RouterHandler)))).Methods(http.MethodPost)

	// Estimator dua titik (chi sub-router, path lengkap /forecast/...)
	r.PathPrefix("/forecast").Handler(apiKey(limit(forecastRouter())))

	// Admin (JWT protected)
	adminJWT := r.PathPrefix("/admin").Subrouter()
	adminJWT.Use(middleware.AdminJWTAuth)
	adminJWT.HandleFunc("/batch/run", mcphandlers.AdminBatchRunHandler).Methods(http.MethodPost)
}

func forecastRouter() http.Handler {
	cr := chi.NewRouter()
	cr.Route("/forecast", func(fr chi.Router) {
		fr.Post("/estimate-b", mcphandlers.EstimateBHandler)
		fr.Get("/schema", func(w http.ResponseWriter, r *http.Request) {
			defs, err := mcp.LoadToolDefs()
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			for _, d := range defs {
				if d.Name == "estimate_b" {
					w.Header().Set("Content-Type", "application/json")
					_, _ = w.Write(d.InputSchema)
					return
				}
			}
			http.NotFound(w, r)
		})
	})
	return cr
}
