package bootstrap

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"summary-backend/internal/llm"
	"summary-backend/internal/shared/config"
)

func TestBuildGatewayWithOnlySecondaryKey(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"from secondary"}}]}`))
	}))
	t.Cleanup(srv.Close)

	gateway, err := buildGateway(config.LLMConfig{
		PrimaryKind:      "openai",
		PrimaryName:      "github-models",
		PrimaryBaseURL:   "http://127.0.0.1:1",
		PrimaryModel:     "gpt-4o",
		SecondaryKind:    "openai",
		SecondaryName:    "openrouter",
		SecondaryBaseURL: srv.URL,
		SecondaryModel:   "openai/gpt-4-turbo",
		SecondaryAPIKey:  "secondary-key",
	})
	require.NoError(t, err)

	_, err = gateway.Rephrase(context.Background(), "cat", "use a fancier word")
	assert.ErrorIs(t, err, llm.ErrNotConfigured)
	assert.Equal(t, int32(0), hits.Load())

	res, err := gateway.Summarize(context.Background(), "source text", llm.Options{})
	require.NoError(t, err)
	assert.Equal(t, "openrouter", res.Provider)
	assert.Equal(t, "from secondary", res.Summary)
	assert.Equal(t, int32(1), hits.Load())
}

func TestBuildGatewaySkipsDisabledSlots(t *testing.T) {
	gateway, err := buildGateway(config.LLMConfig{PrimaryKind: "none", SecondaryKind: "none", PrimaryAPIKey: "k", SecondaryAPIKey: "k"})
	require.NoError(t, err)
	assert.False(t, gateway.Configured())
}
