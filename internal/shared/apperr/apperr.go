package apperr

import (
	"errors"
	"net/http"
)

// Sentinel errors shared by every layer. Packages wrap these with %w so the
// HTTP boundary can classify failures without knowing their origin.
var (
	ErrValidation    = errors.New("validation error")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrNotFound      = errors.New("not found")
	ErrExtraction    = errors.New("extraction error")
	ErrGeneration    = errors.New("generation error")
	ErrNotConfigured = errors.New("service not configured")
	ErrPersistence   = errors.New("persistence error")
)

// FieldError is a user-correctable input problem tied to a single field.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func (e *FieldError) Unwrap() error { return ErrValidation }

// Validation creates a FieldError.
func Validation(field, message string) *FieldError {
	return &FieldError{Field: field, Message: message}
}

// Error pairs a sentinel kind with a message that is safe to show clients.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

// New creates an Error of the given kind.
func New(kind error, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// PublicMessage returns the client-facing message for err. Only messages
// attached through FieldError or Error are exposed; anything else gets a
// generic text for its kind.
func PublicMessage(err error) string {
	var fe *FieldError
	if errors.As(err, &fe) {
		return fe.Message
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Message
	}
	switch Kind(err) {
	case "validation_error":
		return "invalid request"
	case "extraction_error":
		return "could not read the uploaded file"
	case "unauthorized":
		return "missing or invalid token"
	case "not_found":
		return "resource not found"
	case "service_not_configured":
		return "service not configured"
	case "generation_failed":
		return "summary generation failed; please try again"
	default:
		return "internal server error"
	}
}

// Kind names the category of err, matching the error code sent to clients.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return "validation_error"
	case errors.Is(err, ErrExtraction):
		return "extraction_error"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrNotConfigured):
		return "service_not_configured"
	case errors.Is(err, ErrGeneration):
		return "generation_failed"
	default:
		return "internal_error"
	}
}

// Status maps err to an HTTP status code.
func Status(err error) int {
	switch Kind(err) {
	case "":
		return http.StatusOK
	case "validation_error", "extraction_error":
		return http.StatusBadRequest
	case "unauthorized":
		return http.StatusUnauthorized
	case "not_found":
		return http.StatusNotFound
	case "service_not_configured":
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// IsClientError reports whether err is the caller's fault rather than a
// system fault.
func IsClientError(err error) bool {
	status := Status(err)
	return status >= 400 && status < 500
}
