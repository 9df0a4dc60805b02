// internal/mcp/tools_def.go
// Katalog tool (embed) untuk pemilihan tool oleh LLM & dokumentasi klien
package mcp

import (
	_ "embed"
	"encoding/json"
	"sync"
)

//go:embed mcp-tools.json
var toolsJSON []byte

type ToolDef struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Keywords    []string        `json:"keywords,omitempty"`
	InputSchema json.RawMessage `json:"input_schema"`
}
type ToolCatalog struct {
	Tools []ToolDef `json:"tools"`
}

var (
	toolDefs     []ToolDef
	toolDefsOnce sync.Once
	toolDefsErr  error
)

func LoadToolDefs() ([]ToolDef, error) {
	toolDefsOnce.Do(func() {
		var cat ToolCatalog
		if err := json.Unmarshal(toolsJSON, &cat); err != nil {
			toolDefsErr = err
			return
		}
		toolDefs = cat.Tools
	})
	return toolDefs, toolDefsErr
}

// CatalogJSON mengembalikan katalog mentah apa adanya (untuk GET /tools).
func CatalogJSON() []byte { return toolsJSON }
