package network

import (
	"context"
	"crypto/rand"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/libp2p/go-libp2p/core/crypto"
	"github.com/mosaicnetworks/gossipnet/src/common"
	"github.com/mosaicnetworks/gossipnet/src/config"
	"github.com/mosaicnetworks/gossipnet/src/net"
	"github.com/mosaicnetworks/gossipnet/src/peers"
	"github.com/mosaicnetworks/gossipnet/src/reactor"
	"github.com/mosaicnetworks/gossipnet/src/telemetry"
	"github.com/sirupsen/logrus"
)

type testMessage struct {
	Text string
}

func (m testMessage) String() string {
	return fmt.Sprintf("testMessage{%s}", m.Text)
}

func newKey(t *testing.T) (crypto.PrivKey, peers.NodeID) {
	key, _, err := crypto.GenerateEd25519Key(rand.Reader)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	id, err := peers.NodeIDFromKey(key)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	return key, id
}

func newTestConfig(t *testing.T, bind string, known ...string) *config.Config {
	conf := config.NewTestConfig(t, logrus.DebugLevel)
	conf.BindAddr = bind
	conf.KnownAddresses = known
	conf.Key, _ = newKey(t)
	return conf
}

// newBareNetwork builds a Network without transport, for exercising
// HandleEvent directly.
func newBareNetwork(t *testing.T, known ...string) (*Network[testMessage], *reactor.Scheduler) {
	_, id := newKey(t)
	queue := reactor.NewScheduler()

	return &Network[testMessage]{
		ourID:                id,
		logger:               common.NewTestEntry(t, "network"),
		peers:                peers.NewPeerTable(),
		knownAddresses:       peers.NewKnownAddresses(known),
		dialAddresses:        make(map[string]string),
		oneWay:               common.NewQueue[*net.OneWayMessage](),
		gossip:               common.NewQueue[*net.GossipMessage](),
		maxOneWayMessageSize: config.DefaultMaxOneWayMessageSize,
		maxGossipMessageSize: config.DefaultMaxGossipMessageSize,
		shutdownCh:           make(chan struct{}),
		queue:                queue,
		metrics:              telemetry.NewMetrics(),
	}, queue
}

func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func pop(t *testing.T, queue *reactor.Scheduler) interface{} {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	item, _, err := queue.Pop(ctx)
	if err != nil {
		t.Fatalf("waiting for event: %v", err)
	}
	return item
}

// dispatch pops events from queue, handing network events to n, until one
// satisfies until. It returns the fatal errors met on the way.
func dispatch(t *testing.T, n *Network[testMessage], queue *reactor.Scheduler, until func(interface{}) bool) []error {
	t.Helper()

	rng := NewRand()
	var fatal []error

	for {
		item := pop(t, queue)
		if ev, ok := item.(Event); ok {
			if err := n.HandleEvent(rng, ev); err != nil {
				fatal = append(fatal, err)
			}
		}
		if until(item) {
			return fatal
		}
	}
}

// gatedSwarm blocks every SendOneWay until gate is closed.
type gatedSwarm struct {
	net.Swarm
	gate    chan struct{}
	entered chan struct{}

	mu   sync.Mutex
	sent int
}

func (g *gatedSwarm) SendOneWay(msg *net.OneWayMessage) {
	select {
	case g.entered <- struct{}{}:
	default:
	}
	<-g.gate

	g.mu.Lock()
	g.sent++
	g.mu.Unlock()

	g.Swarm.SendOneWay(msg)
}

func (g *gatedSwarm) Sent() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.sent
}
