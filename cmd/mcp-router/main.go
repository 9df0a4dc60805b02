// cmd/mcp-router/main.go
// Router MCP mandiri: hanya endpoint /route dengan tool decline terdaftar
package main

import (
	"net/http"
	"os"

	"dca-oilgas/internal/app"
	"dca-oilgas/internal/config"
	"dca-oilgas/internal/mcp"
	"dca-oilgas/internal/util"
)

func main() {
	cfg := config.Load()
	log := util.NewLogger(cfg.LogLevel, cfg.LogFormat)

	a := app.New(cfg, log) // registrasi tool + DI repo
	defer a.Close()

	port := getenv("MCP_PORT", "8090")
	mux := http.NewServeMux()
	mux.HandleFunc("/route", mcp.RouterHandler)
	mux.HandleFunc("/tools", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(mcp.CatalogJSON())
	})

	log.WithField("tools", mcp.List()).Infof("MCP Router listening on :%s", port)
	if err := http.ListenAndServe(":"+port, mux); err != nil {
		log.WithError(err).Fatal("listen")
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
