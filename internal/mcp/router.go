// internal/mcp/router.go
// Router MCP: menerima request lalu memilih & mengeksekusi tool.

package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"dca-oilgas/internal/llm"
)

// MaxRoutes membatasi jumlah rute dalam satu request multi-route.
const MaxRoutes = 8

var (
	chooser llm.Client
	log     logrus.FieldLogger = logrus.StandardLogger()
)

// SetChooser memasang LLM untuk memilih tool dari question; nil = keyword saja.
func SetChooser(c llm.Client) { chooser = c }

func SetLogger(l logrus.FieldLogger) {
	if l != nil {
		log = l
	}
}

// simple recorder untuk menangkap output handler per-route
type respRecorder struct {
	status int
	hdr    http.Header
	buf    bytes.Buffer
}

func (r *respRecorder) Header() http.Header {
	if r.hdr == nil {
		r.hdr = http.Header{}
	}
	return r.hdr
}
func (r *respRecorder) WriteHeader(code int) { r.status = code }
func (r *respRecorder) Write(b []byte) (int, error) {
	return r.buf.Write(b)
}

// reEstimate: "estimasi b", "estimate b", "b factor dari dua titik"
var reEstimate = regexp.MustCompile(`\b(estimasi|estimate|hitung)\b.*\bb\b|\bb[-_ ]?factor\b|\b(dua titik|two[- ]point)\b`)

// ====== Router Handler ======

func RouterHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	raw, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "read body error", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	var req ToolRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	entry := log.WithField("event", "mcp.route").WithField("request_id", r.Header.Get("X-Request-ID"))

	// ===== Multi-route: eksekusi berurutan, hasil per rute =====
	if len(req.Routes) > 0 {
		routes := req.Routes
		if len(routes) > MaxRoutes {
			routes = routes[:MaxRoutes]
		}
		items := make([]map[string]any, 0, len(routes))
		for _, rt := range routes {
			items = append(items, execRoute(r, rt))
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"mode":            "mcp",
			"routes_executed": len(routes),
			"items":           items,
		})
		entry.WithFields(logrus.Fields{
			"decision_by": "explicit-plan",
			"routes":      len(routes),
			"duration_ms": time.Since(start).Milliseconds(),
		}).Info("routes executed")
		return
	}

	// 1) Explicit tool?
	tool := strings.TrimSpace(req.Tool)
	decision := "explicit"

	// 2) Keyword lalu LLM bila tool kosong
	if tool == "" {
		tool, decision = chooseTool(r.Context(), req.Question)
	}

	h, ok := Get(tool)
	if !ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(ToolResponse{Success: false, Error: "tool not found: " + tool})
		entry.WithFields(logrus.Fields{"question": req.Question, "chosen_tool": tool, "decision_by": decision}).Warn("tool not found")
		return
	}

	// Forward: handler menerima hanya params JSON (tanpa envelope)
	r2 := r.Clone(r.Context())
	r2.Method = http.MethodPost
	r2.Body = io.NopCloser(bytes.NewReader(req.body()))
	r2.ContentLength = int64(len(req.body()))
	r2.Header.Set("Content-Type", "application/json")

	h.ServeHTTP(w, r2)

	entry.WithFields(logrus.Fields{
		"request_tool": req.Tool,
		"chosen_tool":  tool,
		"decision_by":  decision,
		"duration_ms":  time.Since(start).Milliseconds(),
	}).Info("tool executed")
}

func execRoute(r *http.Request, rt Route) map[string]any {
	h, ok := Get(rt.Tool)
	if !ok {
		return map[string]any{"route": rt, "error": "tool not found: " + rt.Tool}
	}
	body := rt.Params
	if len(body) == 0 {
		body = json.RawMessage("{}")
	}
	r2 := r.Clone(r.Context())
	r2.Method = http.MethodPost
	r2.Body = io.NopCloser(bytes.NewReader(body))
	r2.ContentLength = int64(len(body))
	r2.Header.Set("Content-Type", "application/json")

	rr := &respRecorder{}
	h.ServeHTTP(rr, r2)

	status := rr.status
	if status == 0 {
		status = http.StatusOK
	}
	item := map[string]any{"route": rt, "status": status}
	if status >= 400 {
		item["error"] = strings.TrimSpace(rr.buf.String())
		return item
	}
	var out any
	if err := json.Unmarshal(rr.buf.Bytes(), &out); err != nil {
		out = rr.buf.String() // fallback non-JSON (mis. CSV)
	}
	item["result"] = out
	return item
}

// chooseTool: heuristik keyword (deterministik) lalu LLM.
func chooseTool(ctx context.Context, question string) (string, string) {
	q := strings.ToLower(strings.TrimSpace(question))
	if q == "" {
		return "", "none"
	}
	if t := keywordTool(q); t != "" {
		return t, "keyword"
	}
	if t := chooseToolWithLLM(ctx, question); t != "" {
		return t, "llm"
	}
	return "", "none"
}

func keywordTool(q string) string {
	if reEstimate.MatchString(q) {
		return "estimate_b"
	}
	defs, err := LoadToolDefs()
	if err != nil {
		return ""
	}
	for _, d := range defs {
		for _, kw := range d.Keywords {
			if strings.Contains(q, strings.ToLower(kw)) {
				if _, ok := Get(d.Name); ok {
					return d.Name
				}
			}
		}
	}
	return ""
}

func chooseToolWithLLM(ctx context.Context, question string) string {
	if chooser == nil {
		return ""
	}
	defs, err := LoadToolDefs()
	if err != nil || len(defs) == 0 {
		return ""
	}
	var filtered []ToolDef
	for _, d := range defs {
		if _, ok := Get(d.Name); ok {
			filtered = append(filtered, d)
		}
	}
	if len(filtered) == 0 {
		return ""
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 4*time.Second)
		defer cancel()
	}

	out, err := chooser.Complete(ctx, chooserSystemPrompt, buildChooserUserPrompt(question, filtered))
	if err != nil {
		log.WithError(err).Debug("llm tool chooser failed")
		return ""
	}
	out = sanitizeToolToken(out)
	for _, d := range filtered {
		if strings.EqualFold(out, d.Name) {
			return d.Name
		}
	}
	return ""
}

const chooserSystemPrompt = `Anda adalah agen router.
- Pilih tepat SATU nama tool dari daftar.
- Balas hanya dengan nama tool (misal: fit_well).`

func buildChooserUserPrompt(question string, defs []ToolDef) string {
	var b strings.Builder
	b.WriteString("Pertanyaan user:\n")
	b.WriteString(question)
	b.WriteString("\n\nDaftar tool tersedia:\n")
	for i, d := range defs {
		desc := strings.TrimSpace(d.Description)
		if len(desc) > 300 {
			desc = desc[:300] + "…"
		}
		b.WriteString(fmt.Sprintf("%d) %s: %s\n", i+1, d.Name, desc))
	}
	b.WriteString("\nBalas hanya dengan nama tool.")
	return b.String()
}

var nonWord = regexp.MustCompile(`[^a-zA-Z0-9_\-]`)

func sanitizeToolToken(s string) string {
	s = strings.TrimSpace(s)
	s = nonWord.ReplaceAllString(s, "")
	return strings.ToLower(s)
}
