package net

import (
	"errors"
	"fmt"

	"github.com/mosaicnetworks/gossipnet/src/peers"
)

// ErrMessageTooLarge is returned when an encoded payload exceeds the size
// bound of its message class.
var ErrMessageTooLarge = errors.New("message too large")

// OneWayMessage is a serialized payload addressed to a single node.
type OneWayMessage struct {
	Dest    peers.NodeID
	Payload []byte
}

// NewOneWayMessage encodes payload and checks it against maxSize.
func NewOneWayMessage(dest peers.NodeID, payload interface{}, maxSize uint32) (*OneWayMessage, error) {
	data, err := encodeBounded(payload, maxSize)
	if err != nil {
		return nil, err
	}
	return &OneWayMessage{
		Dest:    dest,
		Payload: data,
	}, nil
}

// GossipMessage is a serialized payload for the whole network.
type GossipMessage struct {
	Payload []byte
}

// NewGossipMessage encodes payload and checks it against maxSize.
func NewGossipMessage(payload interface{}, maxSize uint32) (*GossipMessage, error) {
	data, err := encodeBounded(payload, maxSize)
	if err != nil {
		return nil, err
	}
	return &GossipMessage{
		Payload: data,
	}, nil
}

func encodeBounded(payload interface{}, maxSize uint32) ([]byte, error) {
	data, err := Encode(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding payload: %w", err)
	}
	if uint64(len(data)) > uint64(maxSize) {
		return nil, fmt.Errorf("%w: %d bytes, limit %d", ErrMessageTooLarge, len(data), maxSize)
	}
	return data, nil
}
