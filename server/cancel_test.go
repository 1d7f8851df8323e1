package server

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"mini-lsp/message"
)

func cancelMsg(id string) *message.Message {
	return &message.Message{
		Kind:   message.KindNotification,
		Method: MethodCancelRequest,
		Params: json.RawMessage(fmt.Sprintf(`{"id":%s}`, id)),
	}
}

func TestCancelRequestSignalsHandler(t *testing.T) {
	s, ft := newTestServer(t)
	markInitialized(t, s)

	handlerCtx := make(chan context.Context, 1)
	s.RegisterCall("test/cancellable", func(ctx context.Context, params json.RawMessage, reply *ReplyOnce) {
		reply.Detach()
		handlerCtx <- ctx
		go func() {
			<-ctx.Done()
			reply.ReplyError(message.NewError(message.CodeRequestCancelled, "request cancelled"))
		}()
	})

	s.dispatch(context.Background(), callMsg(5, "test/cancellable", "{}"))
	ctx := <-handlerCtx

	s.dispatch(context.Background(), cancelMsg("5"))

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatalf("Cancellation did not reach the handler context")
	}

	// The handler chooses the reply; cancellation has no terminal state of its own.
	deadline := time.After(time.Second)
	for ft.replyCount() < 2 {
		select {
		case <-deadline:
			t.Fatalf("Cancelled handler never replied")
		default:
			time.Sleep(time.Millisecond)
		}
	}
	last := ft.lastReply(t)
	if last.err == nil || last.err.Code != message.CodeRequestCancelled {
		t.Fatalf("Expect RequestCancelled reply, got %+v", last)
	}
}

func TestCancelUnknownIDIsInert(t *testing.T) {
	s, ft := newTestServer(t)
	markInitialized(t, s)
	before := ft.replyCount()

	s.dispatch(context.Background(), cancelMsg("12345"))

	if ft.replyCount() != before {
		t.Fatalf("Cancelling an unknown id must not produce writes")
	}
}

func TestCancelMalformedParams(t *testing.T) {
	s, _ := newTestServer(t)
	markInitialized(t, s)

	// Must not panic or produce replies.
	s.dispatch(context.Background(), &message.Message{
		Kind:   message.KindNotification,
		Method: MethodCancelRequest,
		Params: json.RawMessage(`{"no_id":true}`),
	})
}

// Reusing a completed call's id must leave the new call cancellable and the
// old call's cleanup must not remove the new registry entry.
func TestCancellationCookieSafety(t *testing.T) {
	s, _ := newTestServer(t)
	markInitialized(t, s)

	contexts := make([]context.Context, 0, 2)
	s.RegisterCall("test/reused", func(ctx context.Context, params json.RawMessage, reply *ReplyOnce) {
		contexts = append(contexts, ctx)
		if len(contexts) == 1 {
			reply.Reply("first done") // Completes immediately: entry removed
		} else {
			reply.Detach() // Second call stays in flight
		}
	})

	s.dispatch(context.Background(), callMsg(5, "test/reused", "{}"))
	s.dispatch(context.Background(), callMsg(5, "test/reused", "{}"))

	s.dispatch(context.Background(), cancelMsg("5"))

	select {
	case <-contexts[1].Done():
	case <-time.After(time.Second):
		t.Fatalf("Second entry for the reused id was not cancelled")
	}
	// The first call's context was released on completion, not by this
	// cancellation; its registry entry was already gone.
	if contexts[0].Err() != context.Canceled {
		t.Fatalf("First call's context should have been released on completion")
	}
}

// The older call of a reused id completes after the newer one registered:
// its cookie no longer matches, so the newer entry must survive cleanup.
func TestStaleCleanupPreservesNewEntry(t *testing.T) {
	s, _ := newTestServer(t)
	markInitialized(t, s)

	replies := make([]*ReplyOnce, 0, 2)
	s.RegisterCall("test/overlap", func(ctx context.Context, params json.RawMessage, reply *ReplyOnce) {
		reply.Detach()
		replies = append(replies, reply)
	})

	s.dispatch(context.Background(), callMsg(7, "test/overlap", "{}"))
	s.dispatch(context.Background(), callMsg(7, "test/overlap", "{}")) // id reuse overwrites the entry

	// Old call completes late; its cookie is stale.
	replies[0].Reply("old done")

	s.cancelMu.Lock()
	_, stillThere := s.cancelers[`7`]
	s.cancelMu.Unlock()
	if !stillThere {
		t.Fatalf("Stale cleanup removed the newer call's cancellation entry")
	}

	replies[1].Reply("new done")

	s.cancelMu.Lock()
	_, left := s.cancelers[`7`]
	s.cancelMu.Unlock()
	if left {
		t.Fatalf("Completing the newer call must remove its entry")
	}
}
