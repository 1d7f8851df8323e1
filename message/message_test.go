package message

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestClassifyCall(t *testing.T) {
	raw := []byte(`{"jsonrpc":"2.0","id":7,"method":"textDocument/hover","params":{"line":3}}`)

	msg, err := Classify(raw)
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if msg.Kind != KindCall {
		t.Fatalf("Expect kind call, got %v", msg.Kind)
	}
	if msg.Method != "textDocument/hover" {
		t.Fatalf("Expect method textDocument/hover, got %v", msg.Method)
	}
	if n, ok := msg.ID.Int(); !ok || n != 7 {
		t.Fatalf("Expect numeric id 7, got %v", msg.ID)
	}
	if string(msg.Params) != `{"line":3}` {
		t.Fatalf("Params not preserved: %s", msg.Params)
	}
}

func TestClassifyNotification(t *testing.T) {
	msg, err := Classify([]byte(`{"jsonrpc":"2.0","method":"textDocument/didOpen","params":{}}`))
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if msg.Kind != KindNotification {
		t.Fatalf("Expect kind notification, got %v", msg.Kind)
	}
	if msg.ID.Valid() {
		t.Fatalf("Notification must not carry an id")
	}
}

func TestClassifyReply(t *testing.T) {
	msg, err := Classify([]byte(`{"jsonrpc":"2.0","id":3,"result":{"applied":true}}`))
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if msg.Kind != KindReply {
		t.Fatalf("Expect kind reply, got %v", msg.Kind)
	}

	msg, err = Classify([]byte(`{"jsonrpc":"2.0","id":4,"error":{"code":-32601,"message":"nope"}}`))
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if msg.Err == nil || msg.Err.Code != CodeMethodNotFound {
		t.Fatalf("Expect error reply with MethodNotFound, got %+v", msg.Err)
	}
}

func TestClassifyGarbage(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"not json", `{"jsonrpc":`},
		{"empty object", `{}`},
		{"id without result or error", `{"id":1}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Classify([]byte(tc.raw)); err == nil {
				t.Fatalf("Expect classification error for %q", tc.raw)
			}
		})
	}
}

func TestIDForms(t *testing.T) {
	var id ID
	if err := json.Unmarshal([]byte(`"abc"`), &id); err != nil {
		t.Fatal(err)
	}
	if id.String() != `"abc"` {
		t.Fatalf("String id serialized as %v", id.String())
	}
	if _, ok := id.Int(); ok {
		t.Fatalf("String id must not report numeric")
	}

	if err := json.Unmarshal([]byte(`42`), &id); err != nil {
		t.Fatal(err)
	}
	// `42` and `"42"` must remain distinct cancellation keys.
	if id.String() != "42" {
		t.Fatalf("Numeric id serialized as %v", id.String())
	}

	out, err := NewStringID("x").MarshalJSON()
	if err != nil || string(out) != `"x"` {
		t.Fatalf("MarshalJSON got %s, %v", out, err)
	}
}

func TestEncodeReplyNullResult(t *testing.T) {
	out, err := EncodeReply(NewIntID(1), nil)
	if err != nil {
		t.Fatal(err)
	}
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(out, &probe); err != nil {
		t.Fatal(err)
	}
	if string(probe["result"]) != "null" {
		t.Fatalf("Void reply must carry result:null, got %s", out)
	}
}

func TestAsError(t *testing.T) {
	wrapped := errors.Join(errors.New("outer"), NewError(CodeInvalidParams, "bad"))
	if got := AsError(wrapped); got.Code != CodeInvalidParams {
		t.Fatalf("Expect wrapped code preserved, got %d", got.Code)
	}
	if got := AsError(errors.New("plain")); got.Code != CodeUnknownError {
		t.Fatalf("Expect plain errors mapped to UnknownError, got %d", got.Code)
	}
}
