package respond

import (
	"errors"

	"github.com/gin-gonic/gin"

	"summary-backend/internal/shared/apperr"
	"summary-backend/internal/shared/telemetry"
)

// ErrorBody defines the standardized error object.
type ErrorBody struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// ErrorResponse wraps the error body.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// Error sends a standardized error response.
func Error(c *gin.Context, status int, code, message string, details interface{}) {
	fields := requestFields(c)
	fields["status"] = status
	fields["code"] = code
	fields["message"] = message
	if status >= 500 {
		telemetry.Error("http.error", fields)
	} else {
		telemetry.Info("http.error", fields)
	}

	c.AbortWithStatusJSON(status, ErrorResponse{
		Error: ErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// FromError maps err onto the error envelope. The client only ever sees the
// public message for the error's kind; the full chain is logged.
func FromError(c *gin.Context, err error) {
	status := apperr.Status(err)
	fields := requestFields(c)
	fields["status"] = status
	fields["error"] = err
	if apperr.IsClientError(err) {
		telemetry.Info("request.rejected", fields)
	} else {
		telemetry.Error("request.failed", fields)
	}

	var details interface{}
	var fe *apperr.FieldError
	if errors.As(err, &fe) && fe.Field != "" {
		details = gin.H{"field": fe.Field}
	}
	c.AbortWithStatusJSON(status, ErrorResponse{
		Error: ErrorBody{
			Code:    apperr.Kind(err),
			Message: apperr.PublicMessage(err),
			Details: details,
		},
	})
}

func requestFields(c *gin.Context) map[string]any {
	fields := map[string]any{
		"path":       c.Request.URL.Path,
		"method":     c.Request.Method,
		"request_id": c.GetString("requestId"),
	}
	if userID := c.GetString("userId"); userID != "" {
		fields["user_id"] = userID
	}
	return fields
}
