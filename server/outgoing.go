package server

import (
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"mini-lsp/message"
)

// pendingCall is one reply owed to this process for a call it initiated.
type pendingCall struct {
	id int64
	cb ReplyCallback
}

// Call sends a call to the peer. cb fires exactly once: with the peer's
// reply, or with a synthetic error if the entry is evicted first.
//
// The correlation table is bounded: when a new registration would exceed
// the pending limit, the oldest entry is assumed lost (the editor silently
// dropped the request) and evicted with a synthetic no-reply error. This
// keeps memory bounded when the peer stops answering, with a deterministic
// FIFO eviction order.
func (s *Server) Call(method string, params any, cb ReplyCallback) error {
	if cb == nil {
		cb = func(json.RawMessage, error) {}
	}

	var evicted *pendingCall
	s.callMu.Lock()
	s.nextCallID++
	id := s.nextCallID
	s.pendingCalls = append(s.pendingCalls, pendingCall{id: id, cb: cb})
	if len(s.pendingCalls) > s.pendingLimit {
		oldest := s.pendingCalls[0]
		s.pendingCalls = append(s.pendingCalls[:0:0], s.pendingCalls[1:]...)
		evicted = &oldest
	}
	s.callMu.Unlock()

	// Run the evicted callback outside the lock; it may re-enter Call.
	if evicted != nil {
		s.logger.Error("too many outstanding calls, forgetting the oldest",
			zap.Int("limit", s.pendingLimit), zap.Int64("forgotten", evicted.id))
		evicted.cb(nil, fmt.Errorf("no reply received from client for call (%d)", evicted.id))
	}

	s.logger.Info("--> call", zap.String("method", method), zap.Int64("id", id))
	return s.transp.WriteCall(id, method, params)
}

// Notify sends a fire-and-forget notification to the peer.
func (s *Server) Notify(method string, params any) error {
	s.logger.Info("--> notification", zap.String("method", method))
	return s.transp.WriteNotification(method, params)
}

// resolveReply routes an inbound reply to the callback registered when the
// call was sent. The entry is removed under the lock and handed to exactly
// one resolution path; the callback runs outside the lock.
func (s *Server) resolveReply(msg *message.Message) {
	var cb ReplyCallback
	if intID, ok := msg.ID.Int(); ok {
		s.callMu.Lock()
		for i, pc := range s.pendingCalls {
			if pc.id == intID {
				cb = pc.cb
				s.pendingCalls = append(s.pendingCalls[:i], s.pendingCalls[i+1:]...)
				break
			}
		}
		s.callMu.Unlock()
	}

	if cb == nil {
		// Unknown, already resolved, or evicted id. Log and discard;
		// a confused peer must not fail the session.
		s.logger.Error("reply with no matching call", zap.Stringer("id", msg.ID))
		return
	}

	if msg.Err != nil {
		s.logger.Info("<-- reply error", zap.Stringer("id", msg.ID), zap.Error(msg.Err))
		cb(nil, msg.Err)
		return
	}
	s.logger.Info("<-- reply", zap.Stringer("id", msg.ID))
	cb(msg.Result, nil)
}

// PendingCalls reports the number of outstanding outgoing calls.
func (s *Server) PendingCalls() int {
	s.callMu.Lock()
	defer s.callMu.Unlock()
	return len(s.pendingCalls)
}
