package lsp

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"mini-lsp/server"
)

// Session wires the protocol lifecycle onto a dispatcher: the initialize
// handshake, the shutdown request, and the server-originated messages an
// endpoint commonly sends. Feature handlers (hover, completion, ...) are
// registered by the embedding semantic engine via server.BindCall.
type Session struct {
	srv    *server.Server
	logger *zap.Logger

	shutdownRequested atomic.Bool
	result            InitializeResult
}

// NewSession binds lifecycle handlers on srv and returns the session.
// The exit notification is handled by the dispatcher itself.
func NewSession(srv *server.Server, caps ServerCapabilities, info *ServerInfo, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Session{
		srv:    srv,
		logger: logger,
		result: InitializeResult{Capabilities: caps, ServerInfo: info},
	}

	server.HandleCall(srv, MethodInitialize, s.onInitialize)
	server.HandleCall(srv, MethodShutdown, s.onShutdown)
	server.BindNotification(srv, MethodInitialized, func(ctx context.Context, params *struct{}) {
		s.logger.Info("session initialized")
	})

	return s
}

func (s *Session) onInitialize(ctx context.Context, params *InitializeParams) (*InitializeResult, error) {
	s.logger.Info("initialize",
		zap.String("rootUri", string(params.RootURI)),
		zap.Int("processId", params.ProcessID))
	return &s.result, nil
}

func (s *Session) onShutdown(ctx context.Context, params *struct{}) (any, error) {
	s.shutdownRequested.Store(true)
	return nil, nil
}

// ShutdownRequested reports whether the peer asked for an orderly shutdown.
// A clean exit is one where shutdown was requested before exit arrived.
func (s *Session) ShutdownRequested() bool {
	return s.shutdownRequested.Load()
}

// ApplyEdit asks the editor to apply a workspace edit. cb receives the
// editor's decision, or the synthetic eviction error if the editor never
// answers and the correlation table pushes the call out.
func (s *Session) ApplyEdit(label string, edit WorkspaceEdit, cb func(ApplyWorkspaceEditResponse, error)) error {
	params := ApplyWorkspaceEditParams{Label: label, Edit: edit}
	return s.srv.Call(MethodApplyEdit, &params, func(result json.RawMessage, err error) {
		if cb == nil {
			return
		}
		if err != nil {
			cb(ApplyWorkspaceEditResponse{}, err)
			return
		}
		var resp ApplyWorkspaceEditResponse
		if err := json.Unmarshal(result, &resp); err != nil {
			cb(ApplyWorkspaceEditResponse{}, fmt.Errorf("decode applyEdit response: %w", err))
			return
		}
		if !resp.Applied {
			s.logger.Warn("editor refused workspace edit",
				zap.String("label", label), zap.String("reason", resp.FailureReason))
		}
		cb(resp, nil)
	})
}

// ShowMessage displays a message in the editor.
func (s *Session) ShowMessage(typ MessageType, msg string) error {
	return s.srv.Notify(MethodShowMessage, &ShowMessageParams{Type: typ, Message: msg})
}

// PublishDiagnostics pushes the current diagnostics for one document.
func (s *Session) PublishDiagnostics(params PublishDiagnosticsParams) error {
	if params.Diagnostics == nil {
		// An empty (not absent) array clears previous diagnostics.
		params.Diagnostics = []Diagnostic{}
	}
	return s.srv.Notify(MethodPublishDiagnostics, &params)
}
