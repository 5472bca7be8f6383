package sqlsession

import (
	"github.com/vmihailenco/msgpack/v5"
)

// Codec serializes cached query results. Implementations must round-trip
// exported struct fields, including nil versus empty byte slices as NULL
// and empty binary values are told apart by Value.Kind, not by the slice.
type Codec interface {
	// Marshal converts a Go value to a byte slice.
	Marshal(v any) ([]byte, error)

	// Unmarshal decodes data into v, which must be a pointer.
	Unmarshal(data []byte, v any) error
}

// MsgpackCodec is the default Codec, based on MessagePack.
// It is stateless and safe for concurrent use.
type MsgpackCodec struct{}

// Marshal encodes v as MessagePack.
func (MsgpackCodec) Marshal(v any) ([]byte, error) {
	return msgpack.Marshal(v)
}

// Unmarshal decodes MessagePack data into v.
func (MsgpackCodec) Unmarshal(data []byte, v any) error {
	return msgpack.Unmarshal(data, v)
}
