package request

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"summary-backend/internal/shared/apperr"
)

type payload struct {
	DocumentID string `json:"documentId"`
	MaxLength  int    `json:"maxLength"`
}

func bind(body string) (payload, error) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	var p payload
	err := BindJSON(c, &p)
	return p, err
}

func TestBindJSON(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{name: "valid", body: `{"documentId":"d1","maxLength":200}`},
		{name: "unknown field", body: `{"documentId":"d1","extra":true}`, wantErr: `unknown field "extra"`},
		{name: "wrong type", body: `{"maxLength":"long"}`, wantErr: `field "maxLength" has the wrong type`},
		{name: "empty", body: ``, wantErr: "request body is required"},
		{name: "trailing", body: `{"documentId":"d1"}{}`, wantErr: "single JSON object"},
		{name: "broken", body: `{"documentId":`, wantErr: "not valid JSON"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := bind(tt.body)
			if tt.wantErr == "" {
				if err != nil || p.DocumentID != "d1" || p.MaxLength != 200 {
					t.Fatalf("unexpected result %+v %v", p, err)
				}
				return
			}
			if !errors.Is(err, apperr.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected %q in %q", tt.wantErr, err.Error())
			}
		})
	}
}

func TestTextBodyLimit(t *testing.T) {
	tests := []struct {
		name     string
		maxChars int
		texts    int
		want     int64
	}{
		{name: "default limits stay at the floor", maxChars: 20000, texts: 1, want: MaxBodyBytes},
		{name: "unset", maxChars: 0, texts: 1, want: MaxBodyBytes},
		{name: "raised limit", maxChars: 300000, texts: 1, want: 300000*12 + 64<<10},
		{name: "two fields", maxChars: 100000, texts: 2, want: 200000*12 + 64<<10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TextBodyLimit(tt.maxChars, tt.texts); got != tt.want {
				t.Fatalf("TextBodyLimit(%d, %d) = %d, want %d", tt.maxChars, tt.texts, got, tt.want)
			}
		})
	}
}

func TestBindJSONLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	body := `{"documentId":"` + strings.Repeat("x", MaxBodyBytes) + `"}`

	bindWith := func(limit int64) error {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		var p payload
		return BindJSONLimit(c, &p, limit)
	}

	err := bindWith(MaxBodyBytes)
	if err == nil || !strings.Contains(err.Error(), "too large") {
		t.Fatalf("expected too large error, got %v", err)
	}
	if err := bindWith(TextBodyLimit(MaxBodyBytes, 1)); err != nil {
		t.Fatalf("expected body under raised limit to bind, got %v", err)
	}
}
