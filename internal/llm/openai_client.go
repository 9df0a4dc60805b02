// internal/llm/openai_client.go
// Klien chat completion (go-openai) untuk narasi hasil fitting & pemilihan tool

package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"dca-oilgas/internal/config"
)

// ErrNotConfigured dikembalikan bila API key kosong.
var ErrNotConfigured = errors.New("llm: OPENAI_API_KEY not set")

// Client adalah kontrak minimal yang dipakai narrator & router tool.
type Client interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
	Model() string
}

type OpenAIClient struct {
	api   *openai.Client
	model string
}

// NewFromConfig membuat client dari bagian LLM konfigurasi.
func NewFromConfig(cfg *config.Config) (Client, error) {
	key := strings.TrimSpace(cfg.LLM.APIKey)
	if key == "" {
		return nil, ErrNotConfigured
	}
	oc := openai.DefaultConfig(key)
	if base := strings.TrimSpace(cfg.LLM.APIBase); base != "" {
		oc.BaseURL = base
	}
	model := strings.TrimSpace(cfg.LLM.Model)
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAIClient{api: openai.NewClientWithConfig(oc), model: model}, nil
}

func (c *OpenAIClient) Model() string { return c.model }

func (c *OpenAIClient) Complete(ctx context.Context, system, prompt string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.2,
	}

	var cancel context.CancelFunc
	if _, ok := ctx.Deadline(); !ok {
		ctx, cancel = context.WithTimeout(ctx, 18*time.Second)
		defer cancel()
	}

	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("openai completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no completion choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
