package http

import (
	"context"

	"github.com/voltlog/telemetry-backend/internal/adapters/primary/http/middleware"
)

// GetRequestID retrieves the request ID set by the middleware chain.
func GetRequestID(ctx context.Context) string {
	return middleware.GetRequestID(ctx)
}
