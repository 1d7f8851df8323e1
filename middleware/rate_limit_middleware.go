package middleware

import (
	"context"

	"golang.org/x/time/rate"

	"mini-lsp/message"
)

// RateLimitMiddleware applies a token-bucket limit to inbound calls.
// Over-limit calls are answered with a RequestFailed error instead of
// reaching the handler, so a misbehaving editor cannot starve the server.
func RateLimitMiddleware(r float64, burst int) Middleware {
	limiter := rate.NewLimiter(rate.Limit(r), burst)
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, call *Call) {
			if !limiter.Allow() {
				call.Reply.ReplyError(message.NewError(message.CodeRequestFailed, "rate limit exceeded"))
				return
			}
			next(ctx, call)
		}
	}
}
