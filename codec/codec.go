// Package codec converts opaque message payloads into typed parameter values.
//
// The dispatcher never interprets params bytes itself; a handler's expected
// shape is filled in here, and a failure is surfaced to the peer as an
// InvalidParams error (calls) or logged and dropped (notifications).
package codec

type CodecType byte

const (
	CodecTypeJSON   CodecType = 0
	CodecTypeStrict CodecType = 1
)

type Codec interface {
	Encode(v any) ([]byte, error)
	Decode(data []byte, v any) error
	Type() CodecType // 0=JSON, 1=Strict JSON
}

func GetCodec(codecType CodecType) Codec {
	if codecType == CodecTypeStrict {
		return &StrictJSONCodec{}
	}

	return &JSONCodec{}
}
