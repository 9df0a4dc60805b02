// mcp/protocol.go
// Definisi struktur dasar MCP protocol

package mcp

import "encoding/json"

// ToolRequest: tool eksplisit + params, atau question untuk dipilihkan router.
// Routes (opsional) menjalankan beberapa tool berurutan dalam satu request.
type ToolRequest struct {
	Tool     string          `json:"tool,omitempty"`
	Question string          `json:"question,omitempty"`
	Params   json.RawMessage `json:"params,omitempty"`
	Payload  json.RawMessage `json:"payload,omitempty"` // alias Params
	Routes   []Route         `json:"routes,omitempty"`
}

type Route struct {
	Tool   string          `json:"tool"`
	Params json.RawMessage `json:"params,omitempty"`
}

type ToolResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func (r ToolRequest) body() json.RawMessage {
	if len(r.Params) > 0 {
		return r.Params
	}
	if len(r.Payload) > 0 {
		return r.Payload
	}
	return json.RawMessage("{}")
}
