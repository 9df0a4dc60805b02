// internal/handlers/http/metrics_handler.go
// Handler untuk metrics Prometheus format sederhana

package http

import (
	"fmt"
	"net/http"
	"sort"

	mcphandlers "dca-oilgas/internal/handlers/mcp"
)

func MetricsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	fmt.Fprintf(w, "# HELP app_up 1 if the app is up\n# TYPE app_up gauge\napp_up 1\n")

	counters := mcphandlers.Counters()
	names := make([]string, 0, len(counters))
	for k := range counters {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, n := range names {
		fmt.Fprintf(w, "# TYPE %s counter\n%s %d\n", n, n, counters[n])
	}
}
