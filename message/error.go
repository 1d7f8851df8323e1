package message

import (
	"errors"
	"fmt"
)

// Protocol error codes surfaced on the wire.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603

	CodeServerNotInitialized = -32002
	CodeUnknownError         = -32001
	CodeRequestCancelled     = -32800
	CodeRequestFailed        = -32803
)

// Error is a typed protocol error carried in an error reply.
// It implements the error interface so handlers can return it directly.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// NewError creates a wire error with the given code.
func NewError(code int, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

// NewErrorf creates a wire error with a formatted message.
func NewErrorf(code int, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// AsError maps an arbitrary handler error onto a wire error. If err already
// is (or wraps) an *Error, its code survives; anything else becomes an
// UnknownError so the peer at least learns the message.
func AsError(err error) *Error {
	var rpcErr *Error
	if errors.As(err, &rpcErr) {
		return rpcErr
	}
	return &Error{Code: CodeUnknownError, Message: err.Error()}
}
