package ballroom

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

var ErrUnknownCodec = errors.New("unknown codec")

// Codec turns wire objects into frames and back. Decoding always yields a
// generic map so that partial payloads survive.
type Codec interface {
	Name() string
	Binary() bool
	Marshal(v any) ([]byte, error)
	Unmarshal(b []byte) (map[string]any, error)
}

type JSONCodec struct{}

func (JSONCodec) Name() string                  { return "json" }
func (JSONCodec) Binary() bool                  { return false }
func (JSONCodec) Marshal(v any) ([]byte, error) { return json.Marshal(v) }
func (JSONCodec) Unmarshal(b []byte) (map[string]any, error) {
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}

type MsgpackCodec struct{}

func (MsgpackCodec) Name() string                  { return "msgpack" }
func (MsgpackCodec) Binary() bool                  { return true }
func (MsgpackCodec) Marshal(v any) ([]byte, error) { return msgpack.Marshal(v) }
func (MsgpackCodec) Unmarshal(b []byte) (map[string]any, error) {
	var m map[string]any
	if err := msgpack.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// CodecByName maps "json" (or "") and "msgpack" to their codecs.
func CodecByName(name string) (Codec, error) {
	switch name {
	case "", "json":
		return JSONCodec{}, nil
	case "msgpack":
		return MsgpackCodec{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownCodec, name)
}

func EncodeEnvelope(c Codec, env Envelope) ([]byte, error) {
	payload, err := payloadOf(env)
	if err != nil {
		return nil, err
	}
	return c.Marshal(payload)
}

func DecodeEnvelope(c Codec, b []byte) (Envelope, error) {
	if len(b) == 0 {
		return Envelope{}, fmt.Errorf("%w: empty frame", ErrMalformedFrame)
	}
	fields, err := c.Unmarshal(b)
	if err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	return ParseFrame(fields)
}
