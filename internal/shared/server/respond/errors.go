package respond

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"slidebanai-backend/internal/shared/telemetry"
)

const (
	CodeValidation            = "VALIDATION_ERROR"
	CodeAuthentication        = "AUTHENTICATION_ERROR"
	CodeInsufficientCredits   = "INSUFFICIENT_CREDITS"
	CodeNotFound              = "NOT_FOUND"
	CodeTimeout               = "REQUEST_TIMEOUT"
	CodeConflict              = "CONFLICT"
	CodePayloadTooLarge       = "PAYLOAD_TOO_LARGE"
	CodeUnsupportedMediaType  = "UNSUPPORTED_MEDIA_TYPE"
	CodeUnprocessableDocument = "UNPROCESSABLE_DOCUMENT"
	CodeRateLimited           = "RATE_LIMIT_EXCEEDED"
	CodeInternal              = "INTERNAL_SERVER_ERROR"
	CodeExternalService       = "EXTERNAL_SERVICE_ERROR"
	CodeServiceUnavailable    = "SERVICE_UNAVAILABLE"
)

const hideInternalKey = "respond.hideInternal"

const genericInternalMessage = "An unexpected error occurred"

// ErrorBody defines the standardized error object.
type ErrorBody struct {
	Code      string      `json:"code"`
	Message   string      `json:"message"`
	Details   interface{} `json:"details,omitempty"`
	Timestamp string      `json:"timestamp"`
}

// ErrorResponse wraps the error body.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// HideInternalErrors replaces 500 messages with a generic one. Installed in production.
func HideInternalErrors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(hideInternalKey, true)
		c.Next()
	}
}

// Error sends a standardized error response.
func Error(c *gin.Context, status int, code, message string, details interface{}) {
	fields := map[string]any{
		"status":     status,
		"code":       code,
		"message":    message,
		"path":       c.Request.URL.Path,
		"method":     c.Request.Method,
		"request_id": c.GetString("requestId"),
	}
	if userID := c.GetString("userId"); userID != "" {
		fields["user_id"] = userID
	}
	if isGuest, ok := c.Get("isGuest"); ok {
		fields["is_guest"] = isGuest
	}
	if status >= 500 {
		telemetry.Error("http.error", fields)
	} else {
		telemetry.Warn("http.error", fields)
	}

	if status == http.StatusInternalServerError && c.GetBool(hideInternalKey) {
		message = genericInternalMessage
		details = nil
	}

	c.AbortWithStatusJSON(status, ErrorResponse{
		Error: ErrorBody{
			Code:      code,
			Message:   message,
			Details:   details,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
	})
}
