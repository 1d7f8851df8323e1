// Package server implements the message dispatcher at the heart of the
// editor-integration endpoint: method routing, the exactly-once reply
// contract, reply correlation for calls this process originates, and
// cooperative per-request cancellation.
//
// Message flow:
//
//	Transport.ReadMessage (single dispatch loop, one message at a time)
//	  → classify: call | notification | reply
//	    call:         gate (initialized?) → registry lookup → middleware chain
//	                  → handler (may Detach and reply later, from any goroutine)
//	                  → ReplyOnce → Transport write (serialized)
//	    notification: builtin ($/cancelRequest, exit) or registry lookup
//	    reply:        outgoing-call table → original caller's callback
//
// Dispatch is sequential (message N+1 is not routed until routing of
// message N returns), but handlers may offload work and reply out of order.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"mini-lsp/codec"
	"mini-lsp/message"
	"mini-lsp/middleware"
)

// Methods with built-in dispatch behavior.
const (
	MethodInitialize    = "initialize"
	MethodExit          = "exit"
	MethodCancelRequest = "$/cancelRequest"
)

// DefaultPendingCallLimit bounds the outgoing-call correlation table.
// See Server.Call for the eviction policy.
const DefaultPendingCallLimit = 100

// Transport is the wire boundary the dispatcher drives. Implementations
// must serialize concurrent writes internally; reads are only ever issued
// by the single dispatch loop.
type Transport interface {
	ReadMessage() (*message.Message, error)
	WriteCall(id int64, method string, params any) error
	WriteNotification(method string, params any) error
	WriteReply(id message.ID, result any) error
	WriteError(id message.ID, rpcErr *message.Error) error
	Close() error
}

// RawCallHandler handles an inbound call with undecoded params. It must
// arrange for reply to fire exactly once: either before returning, or after
// calling reply.Detach and finishing on another goroutine.
type RawCallHandler func(ctx context.Context, params json.RawMessage, reply *ReplyOnce)

// RawNotificationHandler handles an inbound notification with undecoded params.
type RawNotificationHandler func(ctx context.Context, params json.RawMessage)

// ReplyCallback receives the outcome of a call this process originated.
// Exactly one of result/err is meaningful.
type ReplyCallback func(result json.RawMessage, err error)

// Server routes inbound messages and correlates outbound calls.
type Server struct {
	transp Transport
	logger *zap.Logger
	cdc    codec.Codec

	calls         map[string]RawCallHandler
	notifications map[string]RawNotificationHandler
	middlewares   []middleware.Middleware
	callChain     middleware.HandlerFunc // Built lazily on first dispatch

	initialized  atomic.Bool // Set when the initialize call is answered successfully
	shuttingDown atomic.Bool
	wg           sync.WaitGroup // One unit per un-finished inbound call

	// Outgoing-call correlation table. FIFO: index 0 is the oldest
	// pending call and the first evicted at capacity.
	callMu       sync.Mutex
	nextCallID   int64
	pendingCalls []pendingCall
	pendingLimit int

	// Cancellation registry, keyed by the serialized inbound call id.
	// nextCookie is touched only on the dispatch loop, so it needs no lock.
	cancelMu   sync.Mutex
	cancelers  map[string]canceler
	nextCookie uint64
}

// Option configures a Server at construction time.
type Option func(*Server)

// WithLogger sets the structured logger. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithCodec sets the codec used by typed handler bindings to decode params.
func WithCodec(c codec.Codec) Option {
	return func(s *Server) { s.cdc = c }
}

// WithPendingCallLimit overrides the outgoing-call table capacity.
func WithPendingCallLimit(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.pendingLimit = n
		}
	}
}

// NewServer creates a dispatcher bound to the given transport.
func NewServer(t Transport, opts ...Option) *Server {
	s := &Server{
		transp:        t,
		logger:        zap.NewNop(),
		cdc:           codec.GetCodec(codec.CodecTypeJSON),
		calls:         make(map[string]RawCallHandler),
		notifications: make(map[string]RawNotificationHandler),
		cancelers:     make(map[string]canceler),
		pendingLimit:  DefaultPendingCallLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterCall registers a raw handler for a call method.
// Last registration wins; re-registration is not expected in normal operation.
func (s *Server) RegisterCall(method string, h RawCallHandler) {
	s.calls[method] = h
}

// RegisterNotification registers a raw handler for a notification method.
func (s *Server) RegisterNotification(method string, h RawNotificationHandler) {
	s.notifications[method] = h
}

// Use appends a middleware. Middlewares wrap registered-call invocation in
// the order they were added; routing errors and decode failures happen
// before the chain and are not observed by it.
func (s *Server) Use(mw middleware.Middleware) {
	s.middlewares = append(s.middlewares, mw)
}

// Initialized reports whether the initialize handshake has completed.
func (s *Server) Initialized() bool {
	return s.initialized.Load()
}

// Serve runs the dispatch loop until the peer sends an exit notification,
// the transport fails, or shutdown begins. ctx is the parent of every
// handler context.
func (s *Server) Serve(ctx context.Context) error {
	s.handlerChain()

	for {
		msg, err := s.transp.ReadMessage()
		if err != nil {
			// Malformed frames are a peer anomaly, not a session failure.
			var rpcErr *message.Error
			if errors.As(err, &rpcErr) {
				s.logger.Warn("dropping malformed message", zap.Error(rpcErr))
				continue
			}
			// During shutdown, Close() forces the blocked read to fail.
			// Check the flag to distinguish intentional close from real errors.
			if s.shuttingDown.Load() {
				return nil
			}
			return err
		}

		if stop := s.dispatch(ctx, msg); stop {
			return nil
		}
	}
}

// dispatch routes one inbound message. Returns true when the loop must stop.
func (s *Server) dispatch(ctx context.Context, msg *message.Message) bool {
	switch msg.Kind {
	case message.KindCall:
		s.dispatchCall(ctx, msg)
	case message.KindNotification:
		if msg.Method == MethodExit {
			s.logger.Info("<-- exit")
			return true
		}
		s.dispatchNotification(ctx, msg)
	case message.KindReply:
		s.resolveReply(msg)
	}
	return false
}

func (s *Server) dispatchCall(ctx context.Context, msg *message.Message) {
	reply := newReplyOnce(s, msg.ID, msg.Method)

	if !s.initialized.Load() && msg.Method != MethodInitialize {
		s.logger.Error("call before initialization",
			zap.String("method", msg.Method), zap.Stringer("id", msg.ID))
		reply.ReplyError(message.NewError(message.CodeServerNotInitialized, "server not initialized"))
		return
	}

	if _, ok := s.calls[msg.Method]; !ok {
		reply.ReplyError(message.NewError(message.CodeMethodNotFound, "method not found"))
		return
	}

	// Calls can be cancelled by the peer: run the handler in a context the
	// cancellation registry can cancel by id, and remember the key/cookie
	// so the reply guard can clean the entry up on completion.
	callCtx := s.registerCanceler(ctx, msg.ID, reply)

	s.handlerChain()(callCtx, &middleware.Call{
		Method: msg.Method,
		ID:     msg.ID,
		Params: msg.Params,
		Reply:  reply,
	})

	// Scope exit: the handler neither replied nor detached.
	reply.abandon()
}

// handlerChain builds the middleware chain on first use, so registration
// order is Use → dispatch regardless of how the loop is driven.
// Chain(A, B)(handler) → A(B(handler)); A runs first.
// Only the dispatch loop calls this, so no lock is needed.
func (s *Server) handlerChain() middleware.HandlerFunc {
	if s.callChain == nil {
		s.callChain = middleware.Chain(s.middlewares...)(s.invokeCall)
	}
	return s.callChain
}

// invokeCall is the innermost link of the middleware chain: it runs the
// registered handler for the call's method.
func (s *Server) invokeCall(ctx context.Context, call *middleware.Call) {
	s.calls[call.Method](ctx, call.Params, call.Reply.(*ReplyOnce))
}

func (s *Server) dispatchNotification(ctx context.Context, msg *message.Message) {
	if !s.initialized.Load() {
		// Early notifications must never break the session; log and drop.
		s.logger.Error("notification before initialization", zap.String("method", msg.Method))
		return
	}
	if msg.Method == MethodCancelRequest {
		s.onCancel(msg.Params)
		return
	}
	handler, ok := s.notifications[msg.Method]
	if !ok {
		s.logger.Info("unhandled notification", zap.String("method", msg.Method))
		return
	}
	s.logger.Debug("<-- notification", zap.String("method", msg.Method))
	handler(ctx, msg.Params)
}

// Shutdown stops the session: the transport is closed (which unblocks the
// dispatch loop) and in-flight handlers are given until timeout to finish.
// After shutdown begins, the reply guard's abandonment safety net stops
// writing: there is nothing useful to send on a closing transport.
func (s *Server) Shutdown(timeout time.Duration) error {
	if s.shuttingDown.Swap(true) {
		return nil
	}
	s.transp.Close()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("timeout waiting for in-flight handlers to finish")
	}
}
