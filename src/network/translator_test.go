package network

import (
	"strings"
	"testing"

	"github.com/mosaicnetworks/gossipnet/src/common"
	"github.com/mosaicnetworks/gossipnet/src/config"
	"github.com/mosaicnetworks/gossipnet/src/net"
	"github.com/mosaicnetworks/gossipnet/src/peers"
	"github.com/mosaicnetworks/gossipnet/src/reactor"
	"github.com/mosaicnetworks/gossipnet/src/telemetry"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

func newTestServer(t *testing.T) (*server[testMessage], *net.InmemSwarm, *reactor.Scheduler, *peers.InmemPeerCache) {
	key, _ := newKey(t)

	swarm, err := net.NewInmemNetwork().NewSwarm(net.SwarmConfig{
		Key:    key,
		Logger: common.NewTestEntry(t, "swarm"),
	})
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	t.Cleanup(func() { swarm.Close() })

	queue := reactor.NewScheduler()
	cache := peers.NewInmemPeerCache()

	s := &server[testMessage]{
		swarm:   swarm,
		oneWay:  common.NewQueue[*net.OneWayMessage](),
		gossip:  common.NewQueue[*net.GossipMessage](),
		queue:   queue,
		cache:   cache,
		logger:  common.NewTestEntry(t, "server"),
		metrics: telemetry.NewMetrics(),
	}

	return s, swarm, queue, cache
}

func TestTranslateOneWayRequest(t *testing.T) {
	s, _, queue, _ := newTestServer(t)
	_, sender := newKey(t)

	msg, err := net.NewOneWayMessage(sender, testMessage{"round trip"}, config.DefaultMaxOneWayMessageSize)
	if err != nil {
		t.Fatalf("err: %v", err)
	}

	s.handleSwarmEvent(net.OneWayRequest{Peer: sender, Data: msg.Payload})

	item, kind, err := queue.Pop(testContext(t))
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if kind != reactor.NetworkIncoming {
		t.Fatalf("messages should be scheduled as NetworkIncoming, not %s", kind)
	}

	received, ok := item.(MessageReceived[testMessage])
	if !ok {
		t.Fatalf("MessageReceived expected, got %T", item)
	}
	if received.Sender != sender || received.Payload.Text != "round trip" {
		t.Fatalf("wrong announcement %v", received)
	}
}

func TestTranslateGossip(t *testing.T) {
	s, _, queue, _ := newTestServer(t)
	_, source := newKey(t)
	_, forwarder := newKey(t)

	msg, err := net.NewGossipMessage(testMessage{"gossip"}, config.DefaultMaxGossipMessageSize)
	if err != nil {
		t.Fatalf("err: %v", err)
	}

	s.handleSwarmEvent(net.GossipReceived{
		PropagationSource: forwarder,
		MessageID:         "1",
		Source:            source,
		Data:              msg.Payload,
	})

	received, ok := pop(t, queue).(MessageReceived[testMessage])
	if !ok {
		t.Fatalf("MessageReceived expected")
	}
	if received.Sender != source {
		t.Fatalf("sender should be the source %s, not %s", source, received.Sender)
	}
}

func TestTranslateSourcelessGossipDropped(t *testing.T) {
	s, _, queue, _ := newTestServer(t)

	logger, hook := test.NewNullLogger()
	logger.Level = logrus.DebugLevel
	s.logger = logger.WithField("prefix", "server")

	_, forwarder := newKey(t)
	msg, _ := net.NewGossipMessage(testMessage{"anonymous"}, config.DefaultMaxGossipMessageSize)

	s.handleSwarmEvent(net.GossipReceived{
		PropagationSource: forwarder,
		MessageID:         "1",
		Data:              msg.Payload,
	})

	if queue.Len() != 0 {
		t.Fatalf("sourceless gossip should not be announced")
	}

	entry := hook.LastEntry()
	if entry == nil || entry.Level != logrus.WarnLevel || !strings.Contains(entry.Message, "without source") {
		t.Fatalf("a warning should be logged, got %v", entry)
	}
}

func TestTranslateUndecodableDropped(t *testing.T) {
	s, _, queue, _ := newTestServer(t)
	_, sender := newKey(t)

	// a number cannot be decoded into a message
	data, err := net.Encode(42)
	if err != nil {
		t.Fatalf("err: %v", err)
	}

	s.handleSwarmEvent(net.OneWayRequest{Peer: sender, Data: data})

	if queue.Len() != 0 {
		t.Fatalf("garbage should not be announced")
	}
}

func TestTranslateConnectionEvents(t *testing.T) {
	s, swarm, queue, _ := newTestServer(t)
	_, remote := newKey(t)

	s.handleSwarmEvent(net.ConnectionEstablished{
		PeerID:         remote,
		Endpoint:       peers.Endpoint{Role: peers.Dialer, RemoteAddr: "/ip4/10.0.0.1/tcp/1"},
		NumEstablished: 1,
	})

	if got := swarm.Discovered()[remote]; len(got) != 1 || got[0] != "/ip4/10.0.0.1/tcp/1" {
		t.Fatalf("dialed address should be registered for discovery, got %v", got)
	}

	_, kind, err := queue.Pop(testContext(t))
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if kind != reactor.Network {
		t.Fatalf("connection events should be scheduled as Network, not %s", kind)
	}

	s.handleSwarmEvent(net.ConnectionClosed{PeerID: remote, NumEstablished: 1})
	if swarm.DiscoveryRounds() != 0 {
		t.Fatalf("no discovery while connections remain")
	}

	s.handleSwarmEvent(net.ConnectionClosed{PeerID: remote, NumEstablished: 0})
	if swarm.DiscoveryRounds() != 1 {
		t.Fatalf("losing a peer should start a discovery round")
	}

	if queue.Len() != 2 {
		t.Fatalf("2 ConnectionClosed events expected, got %d", queue.Len())
	}
}

func TestTranslateIdentify(t *testing.T) {
	s, swarm, queue, cache := newTestServer(t)
	_, remote := newKey(t)

	addrs := []string{"/ip4/10.0.0.1/tcp/1", "/ip4/192.168.1.1/tcp/1"}
	s.handleSwarmEvent(net.IdentifyReceived{Peer: remote, ListenAddrs: addrs})

	if got := swarm.Discovered()[remote]; len(got) != 2 {
		t.Fatalf("advertised addresses should be registered, got %v", got)
	}

	cached, _ := cache.All()
	if len(cached[remote]) != 2 {
		t.Fatalf("advertised addresses should be cached, got %v", cached)
	}

	if queue.Len() != 0 {
		t.Fatalf("identify is not forwarded")
	}
}
