// Package request decodes JSON request bodies into explicit structs.
package request

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"summary-backend/internal/shared/apperr"
)

// MaxBodyBytes is the default JSON body cap and the floor of TextBodyLimit.
const MaxBodyBytes = 1 << 20

const (
	// An escaped surrogate pair ("\ud83d\ude00") is the longest JSON
	// spelling of one character.
	maxBytesPerChar = 12
	envelopeBytes   = 64 << 10
)

// TextBodyLimit sizes the cap for a body carrying up to texts string fields
// of maxChars characters each.
func TextBodyLimit(maxChars, texts int) int64 {
	if maxChars <= 0 || texts <= 0 {
		return MaxBodyBytes
	}
	limit := int64(maxChars)*int64(texts)*maxBytesPerChar + envelopeBytes
	if limit < MaxBodyBytes {
		return MaxBodyBytes
	}
	return limit
}

// BindJSON decodes the body into dst, rejecting unknown fields, trailing
// data and bodies over MaxBodyBytes. Failures are validation errors on "body".
func BindJSON(c *gin.Context, dst any) error {
	return BindJSONLimit(c, dst, MaxBodyBytes)
}

// BindJSONLimit is BindJSON with an explicit byte cap.
func BindJSONLimit(c *gin.Context, dst any, limit int64) error {
	if limit <= 0 {
		limit = MaxBodyBytes
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
	dec := json.NewDecoder(c.Request.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apperr.Validation("body", describe(err))
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return apperr.Validation("body", "request body must contain a single JSON object")
	}
	return nil
}

func describe(err error) string {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	var maxErr *http.MaxBytesError
	switch {
	case errors.Is(err, io.EOF):
		return "request body is required"
	case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
		return "request body is not valid JSON"
	case errors.As(err, &typeErr):
		return fmt.Sprintf("field %q has the wrong type", typeErr.Field)
	case errors.As(err, &maxErr):
		return "request body is too large"
	case strings.HasPrefix(err.Error(), "json: unknown field "):
		return "unknown field " + strings.TrimPrefix(err.Error(), "json: unknown field ")
	default:
		return "invalid request body"
	}
}
