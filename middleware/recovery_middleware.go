package middleware

import (
	"context"
	"runtime/debug"

	"go.uber.org/zap"

	"mini-lsp/message"
)

// RecoveryMiddleware converts a handler panic into an InternalError reply.
// A single broken handler must never take the whole session down; the
// stack is logged so the bug is still visible.
//
// Only the synchronous part of a handler is covered: a goroutine the
// handler spawns after detaching panics on its own stack.
func RecoveryMiddleware(logger *zap.Logger) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, call *Call) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("handler panic recovered",
						zap.String("method", call.Method),
						zap.Stringer("id", call.ID),
						zap.Any("panic", rec),
						zap.ByteString("stack", debug.Stack()),
					)
					call.Reply.ReplyError(message.NewErrorf(message.CodeInternalError, "handler panic: %v", rec))
				}
			}()
			next(ctx, call)
		}
	}
}
