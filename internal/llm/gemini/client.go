package gemini

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"summary-backend/internal/llm"
)

const defaultModel = "gemini-2.0-flash"

// Client implements llm.Provider on the Gemini API.
type Client struct {
	name   string
	model  string
	apiKey string
	api    *genai.Client
}

// NewClient constructs a Gemini provider. An empty key yields an
// unconfigured provider; otherwise the API client is built once here and
// shared by every call.
func NewClient(ctx context.Context, name, model, apiKey string) (*Client, error) {
	return newClient(ctx, name, model, apiKey, genai.HTTPOptions{})
}

func newClient(ctx context.Context, name, model, apiKey string, httpOpts genai.HTTPOptions) (*Client, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "gemini"
	}
	model = strings.TrimSpace(model)
	if model == "" {
		model = defaultModel
	}
	c := &Client{name: name, model: model, apiKey: strings.TrimSpace(apiKey)}
	if c.apiKey == "" {
		return c, nil
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      c.apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: httpOpts,
	})
	if err != nil {
		return nil, fmt.Errorf("%s client: %w", name, err)
	}
	c.api = client
	return c, nil
}

func (c *Client) Name() string { return c.name }

func (c *Client) Configured() bool { return c.apiKey != "" }

// Complete sends req through GenerateContent with the system prompt as the
// system instruction.
func (c *Client) Complete(ctx context.Context, req llm.Request) (string, error) {
	if !c.Configured() || c.api == nil {
		return "", llm.ErrNotConfigured
	}

	resp, err := c.api.Models.GenerateContent(
		ctx,
		c.model,
		[]*genai.Content{{Role: "user", Parts: []*genai.Part{{Text: req.User}}}},
		generationConfig(req),
	)
	if err != nil {
		return "", fmt.Errorf("%s generate: %w", c.name, err)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", llm.ErrEmptyResponse
	}
	return text, nil
}

func generationConfig(req llm.Request) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{}
	if strings.TrimSpace(req.System) != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: req.System}}}
	}
	if req.Temperature > 0 {
		temp := float32(req.Temperature)
		cfg.Temperature = &temp
	}
	if req.TopP > 0 {
		topP := float32(req.TopP)
		cfg.TopP = &topP
	}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}
	return cfg
}

var _ llm.Provider = (*Client)(nil)
