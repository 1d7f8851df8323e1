package server

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"mini-lsp/message"
)

// ReplyOnce guards replying to one inbound call: no matter how many
// goroutines or continuations a handler spawns, exactly one reply reaches
// the wire.
//
//   - A second reply attempt is a contract violation: logged and discarded.
//   - A handler that returns without replying and without Detach is a
//     contract violation: logged, and an InternalError reply is synthesized
//     so the peer is never left waiting. During shutdown nothing can
//     usefully be sent, so the synthesized reply is skipped.
type ReplyOnce struct {
	srv     *Server
	id      message.ID
	method  string
	start   time.Time
	replied atomic.Bool

	// detached marks a handler that finishes asynchronously; the dispatch
	// loop then skips the scope-exit abandonment check.
	detached atomic.Bool

	// Cancellation bookkeeping, set when the call is routed to a handler.
	cancel       context.CancelFunc
	cancelKey    string
	cancelCookie uint64
}

func newReplyOnce(s *Server, id message.ID, method string) *ReplyOnce {
	s.wg.Add(1)
	return &ReplyOnce{srv: s, id: id, method: method, start: time.Now()}
}

// Detach declares that the handler will reply later, possibly from another
// goroutine, after the dispatch loop has moved on.
func (r *ReplyOnce) Detach() {
	r.detached.Store(true)
}

// Reply sends a success reply. result may be nil for void requests.
func (r *ReplyOnce) Reply(result any) {
	r.finish(result, nil, true)
}

// ReplyError sends an error reply. Arbitrary errors are mapped onto wire
// errors; *message.Error values keep their code.
func (r *ReplyOnce) ReplyError(err error) {
	r.finish(nil, message.AsError(err), true)
}

// abandon is invoked by the dispatch loop when the handler's synchronous
// scope exits. It is a no-op for calls that replied or detached.
func (r *ReplyOnce) abandon() {
	if r.replied.Load() || r.detached.Load() {
		return
	}
	r.srv.logger.Error("no reply to message",
		zap.String("method", r.method), zap.Stringer("id", r.id))
	if r.srv.shuttingDown.Load() {
		// Nothing can be sent on a closing transport; release bookkeeping only.
		r.finish(nil, nil, false)
		return
	}
	r.finish(nil, message.NewError(message.CodeInternalError, "server failed to reply"), true)
}

// finish performs the single reply transition. The atomic swap is the
// exactly-once gate; everything after it runs exactly once per call.
func (r *ReplyOnce) finish(result any, rpcErr *message.Error, write bool) {
	if r.replied.Swap(true) {
		r.srv.logger.Error("replied twice to message",
			zap.String("method", r.method), zap.Stringer("id", r.id))
		return
	}

	elapsed := time.Since(r.start)
	if write {
		if rpcErr != nil {
			r.srv.logger.Info("--> reply error",
				zap.String("method", r.method), zap.Stringer("id", r.id),
				zap.Duration("elapsed", elapsed), zap.Error(rpcErr))
			if err := r.srv.transp.WriteError(r.id, rpcErr); err != nil {
				r.srv.logger.Warn("failed to write error reply", zap.Error(err))
			}
		} else {
			r.srv.logger.Info("--> reply",
				zap.String("method", r.method), zap.Stringer("id", r.id),
				zap.Duration("elapsed", elapsed))
			if err := r.srv.transp.WriteReply(r.id, result); err != nil {
				r.srv.logger.Warn("failed to write reply", zap.Error(err))
			}
		}

		// A successful answer to the handshake opens the registry for
		// every other method.
		if rpcErr == nil && r.method == MethodInitialize {
			r.srv.initialized.Store(true)
		}
	}

	// Handling is complete: release the cancellation entry (cookie-checked)
	// and this call's context.
	if r.cancelKey != "" {
		r.srv.unregisterCanceler(r.cancelKey, r.cancelCookie)
	}
	if r.cancel != nil {
		r.cancel()
	}
	r.srv.wg.Done()
}
