package server

import (
	"context"

	"go.uber.org/zap"

	"mini-lsp/message"
)

// canceler is one in-flight inbound call that can be cancelled by id.
// The cookie disambiguates id reuse: if the peer starts a new call with an
// id whose previous call has not finished cleaning up yet, the old call's
// cleanup must not remove the new entry. Entries are only ever removed by
// the completing call, never by a cancellation request.
type canceler struct {
	cancel context.CancelFunc
	cookie uint64
}

// registerCanceler derives the cancellable handler context for an inbound
// call and records its cancel function under the serialized id. Called only
// from the dispatch loop, so the cookie counter needs no lock.
func (s *Server) registerCanceler(ctx context.Context, id message.ID, reply *ReplyOnce) context.Context {
	ctx, cancel := context.WithCancel(ctx)
	key := id.String()
	cookie := s.nextCookie
	s.nextCookie++

	s.cancelMu.Lock()
	s.cancelers[key] = canceler{cancel: cancel, cookie: cookie}
	s.cancelMu.Unlock()

	reply.cancel = cancel
	reply.cancelKey = key
	reply.cancelCookie = cookie
	return ctx
}

// unregisterCanceler removes a registry entry on call completion, but only
// if the cookie still matches, so a reused id's newer entry survives the
// older call's cleanup.
func (s *Server) unregisterCanceler(key string, cookie uint64) {
	s.cancelMu.Lock()
	if c, ok := s.cancelers[key]; ok && c.cookie == cookie {
		delete(s.cancelers, key)
	}
	s.cancelMu.Unlock()
}

// onCancel handles a $/cancelRequest notification. Cancellation is a
// best-effort cooperative signal: the entry stays registered (removal is
// the completing handler's job) and a running handler is never interrupted
// forcibly; it observes its context and decides what to reply.
func (s *Server) onCancel(params []byte) {
	var p struct {
		ID message.ID `json:"id"`
	}
	if err := s.cdc.Decode(params, &p); err != nil || !p.ID.Valid() {
		s.logger.Error("bad cancellation request", zap.ByteString("params", params))
		return
	}

	key := p.ID.String()
	s.cancelMu.Lock()
	c, ok := s.cancelers[key]
	s.cancelMu.Unlock()

	if !ok {
		// Already completed, or an id we never saw. Peer anomaly, not an error.
		s.logger.Info("cancellation for unknown request", zap.String("id", key))
		return
	}
	// Invoke outside the lock: the signal may wake handler code that
	// re-enters the registry.
	c.cancel()
	s.logger.Debug("<-- cancel", zap.String("id", key))
}
