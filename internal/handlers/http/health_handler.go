// internal/handlers/http/health_handler.go
// Handler sederhana untuk health & readiness check

package http

import (
	"encoding/json"
	"net/http"

	mcphandlers "dca-oilgas/internal/handlers/mcp"
)

func HealthHandler(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"status": "ok",
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// ReadyHandler: fitting inline selalu siap; dependency opsional dilaporkan apa adanya.
func ReadyHandler(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"status": "ready",
		"deps":   mcphandlers.ReposStatus(),
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
