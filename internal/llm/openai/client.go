package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"summary-backend/internal/llm"
	"summary-backend/internal/shared/telemetry"
)

const (
	defaultTimeout = 120 * time.Second
	maxErrorBody   = 512
)

// Config describes an OpenAI-compatible chat-completions endpoint such as
// GitHub Models or OpenRouter.
type Config struct {
	Name    string
	BaseURL string
	Model   string
	APIKey  string
	Timeout time.Duration
	// Referer and AppName are sent as HTTP-Referer and X-Title, which
	// OpenRouter uses for attribution.
	Referer string
	AppName string
}

// Client implements llm.Provider over the chat-completions API.
type Client struct {
	name       string
	endpoint   string
	model      string
	apiKey     string
	referer    string
	appName    string
	httpClient *http.Client
}

// NewClient constructs a Client. A missing API key is not an error; the
// client reports itself as unconfigured instead.
func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("llm %s: base URL is required", cfg.Name)
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("llm %s: model is required", cfg.Name)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	name := strings.TrimSpace(cfg.Name)
	if name == "" {
		name = "openai"
	}
	return &Client{
		name:     name,
		endpoint: strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/") + "/chat/completions",
		model:    strings.TrimSpace(cfg.Model),
		apiKey:   strings.TrimSpace(cfg.APIKey),
		referer:  strings.TrimSpace(cfg.Referer),
		appName:  strings.TrimSpace(cfg.AppName),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// Name returns the configured provider name.
func (c *Client) Name() string { return c.name }

// Configured reports whether an API key is present.
func (c *Client) Configured() bool { return c.apiKey != "" }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
	TopP        *float64      `json:"top_p,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage,omitempty"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Complete sends req as a system+user chat and returns the first choice.
func (c *Client) Complete(ctx context.Context, req llm.Request) (string, error) {
	if !c.Configured() {
		return "", llm.ErrNotConfigured
	}

	messages := make([]chatMessage, 0, 2)
	if strings.TrimSpace(req.System) != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.User})

	body := chatRequest{
		Model:     c.model,
		Messages:  messages,
		MaxTokens: req.MaxTokens,
	}
	if req.Temperature > 0 {
		temp := req.Temperature
		body.Temperature = &temp
	}
	if req.TopP > 0 {
		topP := req.TopP
		body.TopP = &topP
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	if c.referer != "" {
		httpReq.Header.Set("HTTP-Referer", c.referer)
	}
	if c.appName != "" {
		httpReq.Header.Set("X-Title", c.appName)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "Client.Timeout") {
			return "", fmt.Errorf("%s request timeout: %w", c.name, err)
		}
		return "", fmt.Errorf("%s request: %w", c.name, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%s read response: %w", c.name, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &llm.StatusError{Provider: c.name, Status: resp.StatusCode, Body: truncate(string(raw), maxErrorBody)}
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("%s response parse: %w", c.name, err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("%s error: %s (%s)", c.name, parsed.Error.Message, parsed.Error.Type)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("%s response missing choices", c.name)
	}

	content := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if content == "" {
		return "", llm.ErrEmptyResponse
	}

	fields := []zap.Field{
		zap.String("provider", c.name),
		zap.String("model", c.model),
		zap.Duration("latency", time.Since(start)),
	}
	if parsed.Usage != nil {
		fields = append(fields,
			zap.Int("prompt_tokens", parsed.Usage.PromptTokens),
			zap.Int("completion_tokens", parsed.Usage.CompletionTokens),
			zap.Int("total_tokens", parsed.Usage.TotalTokens),
		)
	}
	telemetry.L().Info("llm.response", fields...)

	return content, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

var _ llm.Provider = (*Client)(nil)
