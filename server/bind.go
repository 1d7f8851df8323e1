package server

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"mini-lsp/message"
)

// BindCall registers a call handler with typed params. Decode failures are
// answered with InvalidParams and the handler never runs. The handler may
// reply before returning, or call reply.Detach and finish asynchronously.
func BindCall[P any](s *Server, method string, h func(ctx context.Context, params *P, reply *ReplyOnce)) {
	s.RegisterCall(method, func(ctx context.Context, raw json.RawMessage, reply *ReplyOnce) {
		params := new(P)
		if err := decodeParams(s, raw, params); err != nil {
			s.logger.Error("failed to decode call params",
				zap.String("method", method), zap.Error(err))
			reply.ReplyError(message.NewErrorf(message.CodeInvalidParams,
				"failed to decode %s params: %v", method, err))
			return
		}
		h(ctx, params, reply)
	})
}

// HandleCall registers a synchronous call handler: the reply is taken from
// the return value, so the exactly-once contract holds by construction.
func HandleCall[P, R any](s *Server, method string, h func(ctx context.Context, params *P) (R, error)) {
	BindCall(s, method, func(ctx context.Context, params *P, reply *ReplyOnce) {
		result, err := h(ctx, params)
		if err != nil {
			reply.ReplyError(err)
			return
		}
		reply.Reply(result)
	})
}

// BindNotification registers a notification handler with typed params.
// Decode failures are logged and dropped; notifications carry no reply
// channel to report them on.
func BindNotification[P any](s *Server, method string, h func(ctx context.Context, params *P)) {
	s.RegisterNotification(method, func(ctx context.Context, raw json.RawMessage) {
		params := new(P)
		if err := decodeParams(s, raw, params); err != nil {
			s.logger.Error("failed to decode notification params",
				zap.String("method", method), zap.Error(err))
			return
		}
		h(ctx, params)
	})
}

// decodeParams fills v from raw params. A missing params field decodes to
// the zero value: many protocol methods take no arguments.
func decodeParams(s *Server, raw json.RawMessage, v any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return s.cdc.Decode(raw, v)
}
