package net

import (
	"github.com/ugorji/go/codec"
)

// cborHandle is the fixed binary encoding of message payloads. Handles are
// safe for concurrent use once configured.
var cborHandle = new(codec.CborHandle)

// Encode serializes v with the payload encoding.
func Encode(v interface{}) ([]byte, error) {
	var b []byte
	enc := codec.NewEncoderBytes(&b, cborHandle)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return b, nil
}

// Decode deserializes data into v, which must be a pointer.
func Decode(data []byte, v interface{}) error {
	dec := codec.NewDecoderBytes(data, cborHandle)
	return dec.Decode(v)
}
