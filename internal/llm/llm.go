package llm

import (
	"context"
	"errors"
	"fmt"

	"summary-backend/internal/shared/apperr"
)

// Provider is a hosted chat-completion endpoint.
type Provider interface {
	// Name identifies the provider in logs and responses.
	Name() string
	// Configured reports whether credentials are present. It never touches
	// the network.
	Configured() bool
	// Complete returns the model's text for req. Empty text is an error.
	Complete(ctx context.Context, req Request) (string, error)
}

// Request is a single system+user prompt.
type Request struct {
	System      string
	User        string
	MaxTokens   int
	Temperature float64
	TopP        float64
}

var (
	// ErrNotConfigured means no provider has credentials.
	ErrNotConfigured = apperr.New(apperr.ErrNotConfigured, "AI service is not configured")
	// ErrGeneration means every attempted provider failed.
	ErrGeneration = apperr.New(apperr.ErrGeneration, "summary generation failed; please try again")
	// ErrEmptyResponse is returned by providers that answered without text.
	ErrEmptyResponse = errors.New("llm response empty content")
)

// StatusError is a non-2xx answer from a provider.
type StatusError struct {
	Provider string
	Status   int
	Body     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: http status %d: %s", e.Provider, e.Status, e.Body)
}
