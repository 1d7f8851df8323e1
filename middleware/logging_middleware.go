package middleware

import (
	"context"

	"go.uber.org/zap"
)

// LoggingMiddleware logs every inbound call as it enters the chain.
// Completion (and latency) is logged by the reply guard when the handler
// replies, which may be on another goroutine long after dispatch moved on.
func LoggingMiddleware(logger *zap.Logger) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, call *Call) {
			logger.Debug("<-- call",
				zap.String("method", call.Method),
				zap.Stringer("id", call.ID),
			)
			next(ctx, call)
		}
	}
}
