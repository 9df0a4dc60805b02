// internal/mcp/tools_json_consistency_test.go

package mcp_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dca-oilgas/internal/mcp"
)

// Semua tool di mcp-tools.json harus punya handler terdaftar, dan schema-nya JSON valid.
func TestToolsJsonOnlyContainsRegisteredTools(t *testing.T) {
	registerEchoTools()

	defs, err := mcp.LoadToolDefs()
	require.NoError(t, err)
	require.NotEmpty(t, defs)

	reg := map[string]struct{}{}
	for _, name := range mcp.List() {
		reg[name] = struct{}{}
	}
	for _, d := range defs {
		_, ok := reg[d.Name]
		assert.True(t, ok, "tool %q exists in mcp-tools.json but is not registered", d.Name)
		assert.True(t, json.Valid(d.InputSchema), d.Name)
		assert.NotEmpty(t, d.Keywords, d.Name)
	}
}

func TestCatalogJSONIsValid(t *testing.T) {
	raw := mcp.CatalogJSON()
	require.True(t, json.Valid(raw))

	var cat mcp.ToolCatalog
	require.NoError(t, json.Unmarshal(raw, &cat))
	defs, err := mcp.LoadToolDefs()
	require.NoError(t, err)
	assert.Len(t, cat.Tools, len(defs))
}
