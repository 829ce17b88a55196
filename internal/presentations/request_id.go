package presentations

import (
	"context"

	"slidebanai-backend/internal/shared/telemetry"
)

// WithRequestID attaches a request ID to the context for logging and queue messages.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return telemetry.WithRequestID(ctx, requestID)
}

// RequestIDFromContext returns the request ID set by WithRequestID.
func RequestIDFromContext(ctx context.Context) string {
	return telemetry.RequestID(ctx)
}

// backgroundWithRequestID detaches from the request's cancellation but keeps its ID.
func backgroundWithRequestID(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}
