package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"summary-backend/internal/shared/apperr"
	"summary-backend/internal/shared/metrics"
	"summary-backend/internal/shared/telemetry"
)

// Options controls a summary generation.
type Options struct {
	CustomPrompt string
	Tone         Tone
	MaxLength    int
}

// Result is a generated summary and the provider that produced it.
type Result struct {
	Summary  string
	Provider string
}

// Gateway sends prompts to an ordered list of providers. Summaries fall back
// through the list; rephrases use the first provider only.
type Gateway struct {
	providers []Provider
}

// NewGateway constructs a Gateway. Order is significant: the first slot is
// the primary. Nil entries keep their slot: a missing primary leaves Rephrase
// unconfigured even when the secondary has a key.
func NewGateway(providers ...Provider) *Gateway {
	return &Gateway{providers: providers}
}

// Configured reports whether any provider has credentials.
func (g *Gateway) Configured() bool {
	return len(g.configured()) > 0
}

// ProviderNames lists the configured providers in attempt order.
func (g *Gateway) ProviderNames() []string {
	var names []string
	for _, p := range g.configured() {
		names = append(names, p.Name())
	}
	return names
}

func (g *Gateway) configured() []Provider {
	if g == nil {
		return nil
	}
	var out []Provider
	for _, p := range g.providers {
		if p != nil && p.Configured() {
			out = append(out, p)
		}
	}
	return out
}

// Summarize produces a summary of text. Every configured provider is tried
// in order until one returns non-empty text. Individual failures are logged
// and never returned to callers.
func (g *Gateway) Summarize(ctx context.Context, text string, opts Options) (Result, error) {
	maxLength, ok := NormalizeMaxLength(opts.MaxLength)
	if !ok {
		return Result{}, apperr.Validation("maxLength", fmt.Sprintf("maxLength must be between 1 and %d", MaxMaxLength))
	}
	opts.MaxLength = maxLength
	opts.Tone = ParseTone(string(opts.Tone))

	providers := g.configured()
	if len(providers) == 0 {
		return Result{}, ErrNotConfigured
	}

	req := summaryRequest(text, opts)
	var failures []error
	for i, p := range providers {
		if i == 1 {
			metrics.IncProviderFallback()
		}
		out, err := attempt(ctx, p, req)
		if err == nil {
			return Result{Summary: out, Provider: p.Name()}, nil
		}
		failures = append(failures, fmt.Errorf("%s: %w", p.Name(), err))
		metrics.IncProviderFailure(p.Name())
		telemetry.L().Warn("llm.provider_failed",
			zap.Int("index", i),
			zap.String("provider", p.Name()),
			zap.Error(err),
		)
		if ctx.Err() != nil {
			break
		}
	}
	return Result{}, fmt.Errorf("%w: %w", ErrGeneration, errors.Join(failures...))
}

// Rephrase rewrites span per instruction using the primary provider only.
func (g *Gateway) Rephrase(ctx context.Context, span, instruction string) (string, error) {
	p := g.primary()
	if p == nil {
		return "", ErrNotConfigured
	}
	out, err := attempt(ctx, p, rephraseRequest(span, instruction))
	if err != nil {
		metrics.IncProviderFailure(p.Name())
		telemetry.L().Warn("llm.rephrase_failed", zap.String("provider", p.Name()), zap.Error(err))
		return "", fmt.Errorf("%w: %w", ErrGeneration, err)
	}
	return out, nil
}

// primary returns the first slot when it holds a configured provider.
func (g *Gateway) primary() Provider {
	if g == nil || len(g.providers) == 0 {
		return nil
	}
	p := g.providers[0]
	if p == nil || !p.Configured() {
		return nil
	}
	return p
}

func attempt(ctx context.Context, p Provider, req Request) (string, error) {
	out, err := p.Complete(ctx, req)
	if err != nil {
		return "", err
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", ErrEmptyResponse
	}
	return out, nil
}
