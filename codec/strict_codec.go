package codec

import (
	"bytes"
	"encoding/json"
)

// StrictJSONCodec rejects unknown fields on decode. Useful for closed
// payload shapes (internal extensions, test fixtures) where a stray field
// means the sender is confused and should hear about it.
type StrictJSONCodec struct{}

func (c *StrictJSONCodec) Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (c *StrictJSONCodec) Decode(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func (c *StrictJSONCodec) Type() CodecType {
	return CodecTypeStrict
}
