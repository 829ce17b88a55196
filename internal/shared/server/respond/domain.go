package respond

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"slidebanai-backend/internal/deck"
	"slidebanai-backend/internal/shared/telemetry"
)

// creditShortfall is implemented by ledger errors that carry the missing amount.
type creditShortfall interface {
	error
	CreditShortfall() (required int, available int)
}

// Failure maps a pipeline or ledger error onto the error envelope. Errors it does not
// recognize become a 500 with fallback as the message.
func Failure(c *gin.Context, err error, fallback string) {
	var shortfall creditShortfall
	if errors.As(err, &shortfall) {
		required, available := shortfall.CreditShortfall()
		Error(c, http.StatusPaymentRequired, CodeInsufficientCredits, "Insufficient credits", gin.H{
			"required":  required,
			"available": available,
		})
		return
	}

	var outlineErr *deck.OutlineError
	if errors.As(err, &outlineErr) {
		Error(c, http.StatusBadRequest, CodeValidation, outlineErr.Error(), gin.H{
			"field": outlineErr.Field,
			"issue": outlineErr.Issue,
		})
		return
	}
	if errors.Is(err, deck.ErrInvalidStyle) {
		Error(c, http.StatusBadRequest, CodeValidation, err.Error(), nil)
		return
	}

	var de *deck.Error
	if errors.As(err, &de) {
		domainFailure(c, de)
		return
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		Error(c, http.StatusRequestTimeout, CodeTimeout, "request canceled", nil)
		return
	}

	telemetry.Error("http.unmapped_error", map[string]any{
		"error":      err.Error(),
		"request_id": c.GetString("requestId"),
	})
	Error(c, http.StatusInternalServerError, CodeInternal, fallback, nil)
}

func domainFailure(c *gin.Context, de *deck.Error) {
	switch de.Kind {
	case deck.KindUnsupportedType:
		Error(c, http.StatusUnsupportedMediaType, CodeUnsupportedMediaType, de.Message, gin.H{"kind": de.Kind})
	case deck.KindExtractionFailure:
		Error(c, http.StatusUnprocessableEntity, CodeUnprocessableDocument, de.Error(), gin.H{"kind": de.Kind})
	case deck.KindGenerationFailure:
		Error(c, http.StatusBadGateway, CodeExternalService, de.Error(), gin.H{
			"service":   "openai",
			"kind":      de.Kind,
			"retryable": true,
		})
	case deck.KindMalformedResponse:
		Error(c, http.StatusBadGateway, CodeExternalService, de.Error(), gin.H{
			"service":   "openai",
			"kind":      de.Kind,
			"reason":    de.Reason,
			"retryable": true,
		})
	case deck.KindExportFailure:
		details := gin.H{"service": "google_slides", "kind": de.Kind}
		if de.PresentationID != "" {
			details["presentationId"] = de.PresentationID
		}
		Error(c, http.StatusBadGateway, CodeExternalService, de.Error(), details)
	default:
		Error(c, http.StatusInternalServerError, CodeInternal, de.Error(), nil)
	}
}
