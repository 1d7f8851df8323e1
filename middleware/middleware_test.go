package middleware

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"mini-lsp/message"
)

// fakeReplier records replies; duplicates are counted, not deduplicated,
// because dedup is the reply guard's job, not the chain's.
type fakeReplier struct {
	results []any
	errors  []error
}

func (f *fakeReplier) Reply(result any)     { f.results = append(f.results, result) }
func (f *fakeReplier) ReplyError(err error) { f.errors = append(f.errors, err) }

func newCall(method string) (*Call, *fakeReplier) {
	r := &fakeReplier{}
	return &Call{Method: method, ID: message.NewIntID(1), Reply: r}, r
}

func TestChainOrder(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(next HandlerFunc) HandlerFunc {
			return func(ctx context.Context, call *Call) {
				order = append(order, name)
				next(ctx, call)
			}
		}
	}

	handler := func(ctx context.Context, call *Call) {
		order = append(order, "handler")
	}

	call, _ := newCall("test/order")
	Chain(mark("A"), mark("B"), mark("C"))(handler)(context.Background(), call)

	want := []string{"A", "B", "C", "handler"}
	if len(order) != len(want) {
		t.Fatalf("Expect order %v, got %v", want, order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("Expect order %v, got %v", want, order)
		}
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	handled := 0
	handler := func(ctx context.Context, call *Call) { handled++ }

	// Burst of 2 with a negligible refill rate: third call must be rejected.
	wrapped := RateLimitMiddleware(0.0001, 2)(handler)

	call, replier := newCall("textDocument/completion")
	for i := 0; i < 3; i++ {
		wrapped(context.Background(), call)
	}

	if handled != 2 {
		t.Fatalf("Expect 2 handled calls, got %d", handled)
	}
	if len(replier.errors) != 1 {
		t.Fatalf("Expect 1 rejection, got %d", len(replier.errors))
	}
	rpcErr := message.AsError(replier.errors[0])
	if rpcErr.Code != message.CodeRequestFailed {
		t.Fatalf("Expect RequestFailed, got %d", rpcErr.Code)
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	handler := func(ctx context.Context, call *Call) {
		panic("boom")
	}

	call, replier := newCall("textDocument/hover")
	RecoveryMiddleware(zap.NewNop())(handler)(context.Background(), call)

	if len(replier.errors) != 1 {
		t.Fatalf("Expect panic converted to one error reply, got %d", len(replier.errors))
	}
	if message.AsError(replier.errors[0]).Code != message.CodeInternalError {
		t.Fatalf("Expect InternalError, got %v", replier.errors[0])
	}
}

func TestLoggingMiddlewarePassesThrough(t *testing.T) {
	handled := false
	handler := func(ctx context.Context, call *Call) { handled = true }

	call, _ := newCall("initialize")
	LoggingMiddleware(zap.NewNop())(handler)(context.Background(), call)

	if !handled {
		t.Fatalf("LoggingMiddleware must invoke the next handler")
	}
}
