// Package message defines the JSON-RPC 2.0 envelope exchanged with the editor.
//
// Every inbound frame is classified into one of three kinds before dispatch:
//
//   - Call:          has "method" and "id"; the peer expects exactly one reply.
//   - Notification:  has "method" but no "id"; fire-and-forget.
//   - Reply:         has "id" and "result" or "error"; answers a call we sent.
//
// The dispatcher treats params/result payloads as opaque bytes; the codec
// layer turns them into typed values per method.
package message

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/tidwall/gjson"
)

// Version is the protocol version stamped on every outbound message.
const Version = "2.0"

// Kind distinguishes calls, notifications, and replies.
type Kind byte

const (
	KindCall         Kind = 0 // Peer → us, expects exactly one reply
	KindNotification Kind = 1 // Peer → us, no reply
	KindReply        Kind = 2 // Peer → us, answers a call we initiated
)

func (k Kind) String() string {
	switch k {
	case KindCall:
		return "call"
	case KindNotification:
		return "notification"
	case KindReply:
		return "reply"
	}
	return "unknown"
}

// ID is a JSON-RPC message id. The protocol allows both numbers and strings,
// and the peer picks whichever it likes for its own calls, so we keep the
// original form. IDs we assign to outbound calls are always numeric.
type ID struct {
	num   int64
	str   string
	isStr bool
	valid bool
}

// NewIntID builds a numeric id (used for calls this process originates).
func NewIntID(n int64) ID {
	return ID{num: n, valid: true}
}

// NewStringID builds a string id.
func NewStringID(s string) ID {
	return ID{str: s, isStr: true, valid: true}
}

// Valid reports whether the message carried an id at all.
// Notifications have no id.
func (id ID) Valid() bool { return id.valid }

// Int returns the numeric value and whether the id is numeric.
// Replies to our own calls always correlate through numeric ids.
func (id ID) Int() (int64, bool) {
	return id.num, id.valid && !id.isStr
}

// String returns the JSON-serialized form of the id. This is the key used
// by the cancellation registry, so `42` and `"42"` must stay distinct.
func (id ID) String() string {
	if !id.valid {
		return "<none>"
	}
	if id.isStr {
		return strconv.Quote(id.str)
	}
	return strconv.FormatInt(id.num, 10)
}

// MarshalJSON emits the id in its original wire form.
func (id ID) MarshalJSON() ([]byte, error) {
	if !id.valid {
		return []byte("null"), nil
	}
	if id.isStr {
		return json.Marshal(id.str)
	}
	return json.Marshal(id.num)
}

// UnmarshalJSON accepts both numeric and string ids.
func (id *ID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*id = ID{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID{str: s, isStr: true, valid: true}
		return nil
	}
	var n int64
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("message id must be a number or string: %w", err)
	}
	*id = ID{num: n, valid: true}
	return nil
}

// Message is one classified inbound envelope.
type Message struct {
	Kind   Kind
	Method string          // Calls and notifications
	ID     ID              // Calls and replies (invalid for notifications)
	Params json.RawMessage // Calls and notifications; opaque until decoded
	Result json.RawMessage // Replies only
	Err    *Error          // Replies only, set when the peer answered with an error
}

// Classify sniffs a raw JSON envelope and determines its kind without fully
// unmarshalling the payload. Field probing uses gjson so a large params
// object is not parsed twice just to find the method name.
func Classify(raw []byte) (*Message, error) {
	if !gjson.ValidBytes(raw) {
		return nil, NewError(CodeParseError, "message is not valid JSON")
	}

	method := gjson.GetBytes(raw, "method")
	idField := gjson.GetBytes(raw, "id")
	hasID := idField.Exists() && idField.Type != gjson.Null

	switch {
	case method.Exists() && hasID:
		var env struct {
			Method string          `json:"method"`
			ID     ID              `json:"id"`
			Params json.RawMessage `json:"params"`
		}
		if err := json.Unmarshal(raw, &env); err != nil {
			return nil, NewError(CodeInvalidRequest, "malformed call: "+err.Error())
		}
		return &Message{Kind: KindCall, Method: env.Method, ID: env.ID, Params: env.Params}, nil

	case method.Exists():
		var env struct {
			Method string          `json:"method"`
			Params json.RawMessage `json:"params"`
		}
		if err := json.Unmarshal(raw, &env); err != nil {
			return nil, NewError(CodeInvalidRequest, "malformed notification: "+err.Error())
		}
		return &Message{Kind: KindNotification, Method: env.Method, Params: env.Params}, nil

	case hasID && (gjson.GetBytes(raw, "result").Exists() || gjson.GetBytes(raw, "error").Exists()):
		var env struct {
			ID     ID              `json:"id"`
			Result json.RawMessage `json:"result"`
			Err    *Error          `json:"error"`
		}
		if err := json.Unmarshal(raw, &env); err != nil {
			return nil, NewError(CodeInvalidRequest, "malformed reply: "+err.Error())
		}
		return &Message{Kind: KindReply, ID: env.ID, Result: env.Result, Err: env.Err}, nil
	}

	return nil, NewError(CodeInvalidRequest, "message is neither call, notification, nor reply")
}

// request is the outbound wire form for calls and notifications.
type request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      *ID    `json:"id,omitempty"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

// response is the outbound wire form for replies.
type response struct {
	JSONRPC string `json:"jsonrpc"`
	ID      ID     `json:"id"`
	Result  any    `json:"result,omitempty"`
	Error   *Error `json:"error,omitempty"`
}

// EncodeCall serializes an outbound call envelope.
func EncodeCall(id int64, method string, params any) ([]byte, error) {
	wireID := NewIntID(id)
	return json.Marshal(&request{JSONRPC: Version, ID: &wireID, Method: method, Params: params})
}

// EncodeNotification serializes an outbound notification envelope.
func EncodeNotification(method string, params any) ([]byte, error) {
	return json.Marshal(&request{JSONRPC: Version, Method: method, Params: params})
}

// EncodeReply serializes a successful reply. A nil result is emitted as
// JSON null: a reply must carry a result field even for void requests,
// and omitempty would drop it.
func EncodeReply(id ID, result any) ([]byte, error) {
	if result == nil {
		return json.Marshal(&struct {
			JSONRPC string          `json:"jsonrpc"`
			ID      ID              `json:"id"`
			Result  json.RawMessage `json:"result"`
		}{JSONRPC: Version, ID: id, Result: json.RawMessage("null")})
	}
	return json.Marshal(&response{JSONRPC: Version, ID: id, Result: result})
}

// EncodeError serializes an error reply.
func EncodeError(id ID, rpcErr *Error) ([]byte, error) {
	return json.Marshal(&response{JSONRPC: Version, ID: id, Error: rpcErr})
}
