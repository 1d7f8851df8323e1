// Package middleware provides a composable chain around inbound call
// handling. Routing errors and decode failures are produced before the
// chain runs; middleware sees only calls that reached a registered handler.
package middleware

import (
	"context"
	"encoding/json"

	"mini-lsp/message"
)

// Replier is the reply surface handed to middleware. The concrete type
// enforces the exactly-once contract, so middleware may reply (e.g. to
// short-circuit a call) without coordinating with the handler downstream.
type Replier interface {
	Reply(result any)
	ReplyError(err error)
}

// Call is one inbound call travelling through the chain.
type Call struct {
	Method string
	ID     message.ID
	Params json.RawMessage
	Reply  Replier
}

type HandlerFunc func(ctx context.Context, call *Call)

type Middleware func(next HandlerFunc) HandlerFunc

// Chain combines middlewares into one. Chain(A, B, C)(handler) wraps as
// A(B(C(handler))): A runs first on the way in.
func Chain(middlewares ...Middleware) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		for i := len(middlewares) - 1; i >= 0; i-- {
			next = middlewares[i](next)
		}
		return next
	}
}
