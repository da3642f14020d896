package net

import (
	"crypto/rand"
	"testing"
	"time"

	"github.com/libp2p/go-libp2p/core/crypto"
	"github.com/mosaicnetworks/gossipnet/src/common"
	"github.com/mosaicnetworks/gossipnet/src/config"
	"github.com/sirupsen/logrus"
)

func testSwarmConfig(t *testing.T) SwarmConfig {
	key, _, err := crypto.GenerateEd25519Key(rand.Reader)
	if err != nil {
		t.Fatalf("err: %v", err)
	}

	return SwarmConfig{
		Key:                    key,
		Chainspec:              config.Chainspec{Name: "test-net", ProtocolVersion: "1.0.0"},
		ConnectionSetupTimeout: 5 * time.Second,
		MaxOneWayMessageSize:   config.DefaultMaxOneWayMessageSize,
		MaxGossipMessageSize:   config.DefaultMaxGossipMessageSize,
		ConnLowWater:           config.DefaultConnLowWater,
		ConnHighWater:          config.DefaultConnHighWater,
		Logger:                 common.NewTestLogger(t, logrus.DebugLevel).WithField("prefix", "swarm"),
	}
}

// expectEvent consumes events until one of type T shows up.
func expectEvent[T SwarmEvent](t *testing.T, ch <-chan SwarmEvent, timeout time.Duration) T {
	t.Helper()

	timer := time.After(timeout)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				var zero T
				t.Fatalf("events channel closed while waiting for %T", zero)
			}
			if res, ok := ev.(T); ok {
				return res
			}
		case <-timer:
			var zero T
			t.Fatalf("timeout waiting for %T", zero)
		}
	}
}

// eventLog reads a swarm's events and keeps the ones a test skipped over, so
// that waiting for one event type does not lose events of another.
type eventLog struct {
	ch      <-chan SwarmEvent
	skipped []SwarmEvent
}

func newEventLog(s Swarm) *eventLog {
	return &eventLog{ch: s.Events()}
}

// nextLogged returns the first event of type T, looking at skipped events
// first. ok is false if none arrived within timeout.
func nextLogged[T SwarmEvent](l *eventLog, timeout time.Duration) (res T, ok bool) {
	for i, ev := range l.skipped {
		if res, ok := ev.(T); ok {
			l.skipped = append(l.skipped[:i], l.skipped[i+1:]...)
			return res, true
		}
	}

	timer := time.After(timeout)
	for {
		select {
		case ev, open := <-l.ch:
			if !open {
				return res, false
			}
			if r, match := ev.(T); match {
				return r, true
			}
			l.skipped = append(l.skipped, ev)
		case <-timer:
			return res, false
		}
	}
}

func expectLogged[T SwarmEvent](t *testing.T, l *eventLog, timeout time.Duration) T {
	t.Helper()

	res, ok := nextLogged[T](l, timeout)
	if !ok {
		var zero T
		t.Fatalf("no %T within %v", zero, timeout)
	}
	return res
}
