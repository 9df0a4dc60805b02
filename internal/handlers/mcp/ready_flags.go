// internal/handlers/mcp/ready_flags.go
package mcp

// Flag readiness per dependency; diset dari Set*(..) masing-masing.
var (
	readyProduction bool
	readyNarrator   bool
)

// ReposStatus mengembalikan status siap/tidaknya setiap dependency.
func ReposStatus() map[string]bool {
	return map[string]bool{
		"production": readyProduction,
		"llm":        readyNarrator,
	}
}
