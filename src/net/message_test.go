package net

import (
	"errors"
	"strings"
	"testing"
)

type testPayload struct {
	From string
	Text string
}

func TestOneWayMessage(t *testing.T) {
	payload := testPayload{From: "alice", Text: "hello"}

	msg, err := NewOneWayMessage("dest", payload, 1024)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if msg.Dest != "dest" {
		t.Fatalf("wrong destination %s", msg.Dest)
	}

	var out testPayload
	if err := Decode(msg.Payload, &out); err != nil {
		t.Fatalf("err: %v", err)
	}
	if out != payload {
		t.Fatalf("decoded payload should be %v, not %v", payload, out)
	}
}

func TestMessageSizeBound(t *testing.T) {
	payload := testPayload{Text: strings.Repeat("x", 100)}

	encoded, err := Encode(payload)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	size := uint32(len(encoded))

	if _, err := NewGossipMessage(payload, size); err != nil {
		t.Fatalf("a payload of exactly the limit should be accepted: %v", err)
	}

	if _, err := NewGossipMessage(payload, size-1); !errors.Is(err, ErrMessageTooLarge) {
		t.Fatalf("gossip over the limit should fail with ErrMessageTooLarge, got %v", err)
	}

	if _, err := NewOneWayMessage("dest", payload, size-1); !errors.Is(err, ErrMessageTooLarge) {
		t.Fatalf("one-way over the limit should fail with ErrMessageTooLarge, got %v", err)
	}
}
