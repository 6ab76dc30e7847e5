package summaries_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"summary-backend/internal/bootstrap"
	"summary-backend/internal/llm"
	"summary-backend/internal/shared/auth"
	"summary-backend/internal/shared/config"
)

type scriptedProvider struct {
	name  string
	out   string
	err   error
	calls int
}

func (p *scriptedProvider) Name() string     { return p.name }
func (p *scriptedProvider) Configured() bool { return true }
func (p *scriptedProvider) Complete(ctx context.Context, req llm.Request) (string, error) {
	p.calls++
	return p.out, p.err
}

type fixture struct {
	app       *bootstrap.App
	primary   *scriptedProvider
	secondary *scriptedProvider
	alice     string
	bob       string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	app, err := bootstrap.Build(config.Config{
		Env:             "dev",
		ObjectStoreType: "none",
		Auth:            config.AuthConfig{JWTSecret: "test-secret"},
	})
	require.NoError(t, err)

	f := &fixture{
		app:       app,
		primary:   &scriptedProvider{name: "github-models", out: "- generated"},
		secondary: &scriptedProvider{name: "openrouter", out: "- fallback"},
	}
	app.SummariesService.LLM = llm.NewGateway(f.primary, f.secondary)
	f.alice = f.token(t, "alice")
	f.bob = f.token(t, "bob")
	return f
}

func (f *fixture) token(t *testing.T, userID string) string {
	t.Helper()
	claims := auth.Claims{}
	claims.Subject = userID
	token, err := f.app.Verifier.Sign(claims, 0)
	require.NoError(t, err)
	return "Bearer " + token
}

func (f *fixture) call(method, path, authz, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", authz)
	resp := httptest.NewRecorder()
	f.app.Router.ServeHTTP(resp, req)
	return resp
}

func (f *fixture) upload(t *testing.T, authz, text string) string {
	t.Helper()
	body, err := json.Marshal(map[string]string{"raw_text": text})
	require.NoError(t, err)
	resp := f.call(http.MethodPost, "/api/v1/upload", authz, string(body))
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	var out struct {
		Document struct {
			ID string `json:"id"`
		} `json:"document"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &out))
	return out.Document.ID
}

type summaryBody struct {
	Summary struct {
		ID                string  `json:"id"`
		DocumentID        string  `json:"document_id"`
		GeneratedSummary  string  `json:"generated_summary"`
		EditedSummary     *string `json:"edited_summary"`
		DisplaySummary    string  `json:"display_summary"`
		RegenerationCount int     `json:"regeneration_count"`
		Tone              string  `json:"tone"`
	} `json:"summary"`
	Provider string `json:"provider"`
	Message  string `json:"message"`
}

func decodeSummary(t *testing.T, resp *httptest.ResponseRecorder) summaryBody {
	t.Helper()
	var out summaryBody
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &out), resp.Body.String())
	return out
}

func TestSummaryLifecycle(t *testing.T) {
	f := newFixture(t)
	docID := f.upload(t, f.alice, "The quarterly report shows revenue growth across all regions.")

	resp := f.call(http.MethodPost, "/api/v1/summarize", f.alice, `{"documentId":"`+docID+`"}`)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	first := decodeSummary(t, resp)
	assert.Equal(t, "- generated", first.Summary.GeneratedSummary)
	assert.Equal(t, "github-models", first.Provider)
	assert.Equal(t, 0, first.Summary.RegenerationCount)

	resp = f.call(http.MethodPost, "/api/v1/summarize", f.alice, `{"documentId":"`+docID+`"}`)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, first.Summary.ID, decodeSummary(t, resp).Summary.ID)
	assert.Equal(t, 1, f.primary.calls)

	resp = f.call(http.MethodPut, "/api/v1/documents/"+docID+"/summaries", f.alice,
		`{"summaryId":"`+first.Summary.ID+`","editedSummary":"my edit"}`)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	edited := decodeSummary(t, resp)
	assert.Equal(t, "my edit", edited.Summary.DisplaySummary)
	assert.NotEmpty(t, edited.Message)

	f.primary.out = "- regenerated"
	resp = f.call(http.MethodPost, "/api/v1/regenerate", f.alice, `{"summaryId":"`+first.Summary.ID+`","tone":"casual"}`)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	regen := decodeSummary(t, resp)
	assert.Equal(t, "- regenerated", regen.Summary.GeneratedSummary)
	assert.Equal(t, "my edit", regen.Summary.DisplaySummary)
	assert.Equal(t, 1, regen.Summary.RegenerationCount)
	assert.Equal(t, "casual", regen.Summary.Tone)

	resp = f.call(http.MethodGet, "/api/v1/documents/"+docID, f.alice, "")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"edited_summary":"my edit"`)

	resp = f.call(http.MethodDelete, "/api/v1/documents/"+docID, f.alice, "")
	require.Equal(t, http.StatusOK, resp.Code)
	resp = f.call(http.MethodPost, "/api/v1/regenerate", f.alice, `{"summaryId":"`+first.Summary.ID+`","tone":"casual"}`)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestSummarizeFallsBackAndFailsCleanly(t *testing.T) {
	f := newFixture(t)
	docID := f.upload(t, f.alice, "Some text to summarize.")

	f.primary.err = errors.New("rate limited")
	resp := f.call(http.MethodPost, "/api/v1/summarize", f.alice, `{"documentId":"`+docID+`"}`)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, "openrouter", decodeSummary(t, resp).Provider)

	other := f.upload(t, f.alice, "Another document.")
	f.secondary.err = errors.New("bad gateway")
	resp = f.call(http.MethodPost, "/api/v1/summarize", f.alice, `{"documentId":"`+other+`"}`)
	assert.Equal(t, http.StatusInternalServerError, resp.Code)
	assert.NotContains(t, resp.Body.String(), "bad gateway")

	resp = f.call(http.MethodGet, "/api/v1/documents/"+other, f.alice, "")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"summary":null`)
}

func TestSummaryRoutesRejectOtherUsers(t *testing.T) {
	f := newFixture(t)
	docID := f.upload(t, f.alice, "Alice's document.")
	resp := f.call(http.MethodPost, "/api/v1/summarize", f.alice, `{"documentId":"`+docID+`"}`)
	require.Equal(t, http.StatusOK, resp.Code)
	summaryID := decodeSummary(t, resp).Summary.ID

	tests := []struct {
		name   string
		method string
		path   string
		body   string
	}{
		{name: "summarize", method: http.MethodPost, path: "/api/v1/summarize", body: `{"documentId":"` + docID + `"}`},
		{name: "regenerate", method: http.MethodPost, path: "/api/v1/regenerate", body: `{"summaryId":"` + summaryID + `","tone":"casual"}`},
		{name: "edit", method: http.MethodPut, path: "/api/v1/documents/" + docID + "/summaries", body: `{"summaryId":"` + summaryID + `","editedSummary":"x"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := f.call(tt.method, tt.path, f.bob, tt.body)
			assert.Equal(t, http.StatusNotFound, resp.Code)
		})
	}
	assert.Equal(t, 1, f.primary.calls)
}

func TestSummaryRequestValidation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		path string
		body string
	}{
		{name: "missing document", path: "/api/v1/summarize", body: `{}`},
		{name: "max length too large", path: "/api/v1/summarize", body: `{"documentId":"x","maxLength":4001}`},
		{name: "regenerate without options", path: "/api/v1/regenerate", body: `{"summaryId":"x"}`},
		{name: "malformed json", path: "/api/v1/summarize", body: `{"documentId":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := f.call(http.MethodPost, tt.path, f.alice, tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.Code, resp.Body.String())
		})
	}
}

func TestRephraseEndpoint(t *testing.T) {
	f := newFixture(t)
	f.primary.out = "feline"

	resp := f.call(http.MethodPost, "/api/v1/rephrase", f.alice,
		`{"prompt":"fancier","fullText":"The cat sat.","selectionStart":4,"selectionEnd":7}`)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	var out struct {
		Rephrased    string  `json:"rephrased"`
		OriginalText string  `json:"originalText"`
		Spliced      *string `json:"spliced"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &out))
	assert.Equal(t, "feline", out.Rephrased)
	assert.Equal(t, "cat", out.OriginalText)
	require.NotNil(t, out.Spliced)
	assert.Equal(t, "The feline sat.", *out.Spliced)

	resp = f.call(http.MethodPost, "/api/v1/rephrase", f.alice,
		`{"prompt":"fancier","fullText":"The cat sat.","selectionStart":7,"selectionEnd":4}`)
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = f.call(http.MethodGet, "/api/v1/rephrase/presets", f.alice, "")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"id":"shorten"`)
}

func TestSummarizeWithoutProvidersIsUnavailable(t *testing.T) {
	f := newFixture(t)
	f.app.SummariesService.LLM = llm.NewGateway()
	docID := f.upload(t, f.alice, "Text.")

	resp := f.call(http.MethodPost, "/api/v1/summarize", f.alice, `{"documentId":"`+docID+`"}`)
	assert.Equal(t, http.StatusServiceUnavailable, resp.Code)
}
