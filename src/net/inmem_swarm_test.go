package net

import (
	"testing"
	"time"

	"github.com/mosaicnetworks/gossipnet/src/common"
)

func newInmemPair(t *testing.T) (*InmemNetwork, *InmemSwarm, *InmemSwarm) {
	network := NewInmemNetwork()

	a, err := network.NewSwarm(testSwarmConfig(t))
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	b, err := network.NewSwarm(testSwarmConfig(t))
	if err != nil {
		t.Fatalf("err: %v", err)
	}

	if err := a.Listen(NewInmemAddr()); err != nil {
		t.Fatalf("err: %v", err)
	}
	expectEvent[NewListenAddr](t, a.Events(), time.Second)

	if err := b.Listen(NewInmemAddr()); err != nil {
		t.Fatalf("err: %v", err)
	}
	expectEvent[NewListenAddr](t, b.Events(), time.Second)

	return network, a, b
}

func TestInmemSwarmDial(t *testing.T) {
	defer common.VerifyNoLeaks(t)

	_, a, b := newInmemPair(t)
	defer a.Close()
	defer b.Close()

	if err := b.Dial(a.ListenAddr()); err != nil {
		t.Fatalf("err: %v", err)
	}

	est := expectEvent[ConnectionEstablished](t, b.Events(), time.Second)
	if est.PeerID != a.LocalID() {
		t.Fatalf("dialer should see %s, not %s", a.LocalID(), est.PeerID)
	}
	if !est.Endpoint.IsDialer() || est.Endpoint.RemoteAddr != a.ListenAddr() {
		t.Fatalf("wrong dialer endpoint %v", est.Endpoint)
	}
	if est.NumEstablished != 1 {
		t.Fatalf("NumEstablished should be 1, not %d", est.NumEstablished)
	}

	in := expectEvent[ConnectionEstablished](t, a.Events(), time.Second)
	if in.PeerID != b.LocalID() || in.Endpoint.IsDialer() {
		t.Fatalf("wrong listener event %v", in)
	}

	// second connection between the same pair
	if err := a.Dial(b.ListenAddr()); err != nil {
		t.Fatalf("err: %v", err)
	}
	second := expectEvent[ConnectionEstablished](t, a.Events(), time.Second)
	if second.NumEstablished != 2 {
		t.Fatalf("NumEstablished should be 2, not %d", second.NumEstablished)
	}

	a.Disconnect(b.LocalID())
	closed := expectEvent[ConnectionClosed](t, a.Events(), time.Second)
	if closed.NumEstablished != 1 {
		t.Fatalf("one connection should remain, not %d", closed.NumEstablished)
	}
}

func TestInmemSwarmDialFailures(t *testing.T) {
	defer common.VerifyNoLeaks(t)

	_, a, b := newInmemPair(t)
	defer a.Close()
	defer b.Close()

	if err := a.Dial(""); err == nil {
		t.Fatalf("dialing an empty address should fail")
	}

	if err := a.Dial("127.0.0.1:1"); err != nil {
		t.Fatalf("err: %v", err)
	}
	u := expectEvent[UnknownPeerUnreachableAddr](t, a.Events(), time.Second)
	if u.Address != "/ip4/127.0.0.1/tcp/1" {
		t.Fatalf("address should be normalized, got %s", u.Address)
	}

	if err := a.Dial(a.ListenAddr()); err != nil {
		t.Fatalf("err: %v", err)
	}
	self := expectEvent[UnknownPeerUnreachableAddr](t, a.Events(), time.Second)
	if self.Address != a.ListenAddr() {
		t.Fatalf("wrong address %s", self.Address)
	}
}

func TestInmemSwarmMessaging(t *testing.T) {
	defer common.VerifyNoLeaks(t)

	_, a, b := newInmemPair(t)
	defer a.Close()
	defer b.Close()

	msg, err := NewOneWayMessage(a.LocalID(), testPayload{Text: "direct"}, 1024)
	if err != nil {
		t.Fatalf("err: %v", err)
	}

	// not connected yet
	b.SendOneWay(msg)
	f := expectEvent[OneWayOutboundFailure](t, b.Events(), time.Second)
	if f.Peer != a.LocalID() {
		t.Fatalf("failure should concern %s", a.LocalID())
	}

	if err := b.Dial(a.ListenAddr()); err != nil {
		t.Fatalf("err: %v", err)
	}
	expectEvent[ConnectionEstablished](t, b.Events(), time.Second)

	b.SendOneWay(msg)
	expectEvent[OneWayResponse](t, b.Events(), time.Second)

	req := expectEvent[OneWayRequest](t, a.Events(), time.Second)
	if req.Peer != b.LocalID() {
		t.Fatalf("request should come from %s, not %s", b.LocalID(), req.Peer)
	}
	var out testPayload
	if err := Decode(req.Data, &out); err != nil {
		t.Fatalf("err: %v", err)
	}
	if out.Text != "direct" {
		t.Fatalf("wrong payload %v", out)
	}

	gmsg, err := NewGossipMessage(testPayload{Text: "gossip"}, 1024)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	b.Gossip(gmsg)

	g := expectEvent[GossipReceived](t, a.Events(), time.Second)
	if g.Source != b.LocalID() || g.PropagationSource != b.LocalID() {
		t.Fatalf("wrong gossip sources %v", g)
	}

	if n := len(b.Sent()); n != 2 {
		t.Fatalf("b should have recorded 2 sends, not %d", n)
	}
	if n := len(b.Gossiped()); n != 1 {
		t.Fatalf("b should have recorded 1 gossip, not %d", n)
	}
}

func TestInmemSwarmClose(t *testing.T) {
	defer common.VerifyNoLeaks(t)

	_, a, b := newInmemPair(t)
	defer b.Close()

	if err := b.Dial(a.ListenAddr()); err != nil {
		t.Fatalf("err: %v", err)
	}
	expectEvent[ConnectionEstablished](t, b.Events(), time.Second)

	addr := a.ListenAddr()
	id := a.LocalID()
	if err := a.Close(); err != nil {
		t.Fatalf("err: %v", err)
	}

	closed := expectEvent[ConnectionClosed](t, b.Events(), time.Second)
	if closed.PeerID != id || closed.NumEstablished != 0 {
		t.Fatalf("wrong close event %v", closed)
	}

	if _, ok := <-a.Events(); ok {
		t.Fatalf("events channel of a closed swarm should be closed")
	}

	if err := a.Dial(addr); err != ErrSwarmClosed {
		t.Fatalf("dial after close should return ErrSwarmClosed, got %v", err)
	}

	// the address is free again
	if err := b.Dial(addr); err != nil {
		t.Fatalf("err: %v", err)
	}
	expectEvent[UnknownPeerUnreachableAddr](t, b.Events(), time.Second)
}

func TestInmemSwarmDiscovery(t *testing.T) {
	defer common.VerifyNoLeaks(t)

	_, a, b := newInmemPair(t)
	defer a.Close()
	defer b.Close()

	a.AddDiscoveredPeer(b.LocalID(), []string{b.ListenAddr()})
	a.DiscoverPeers()
	expectEvent[KademliaEvent](t, a.Events(), time.Second)

	disc := a.Discovered()
	if got := disc[b.LocalID()]; len(got) != 1 || got[0] != b.ListenAddr() {
		t.Fatalf("wrong discovered addresses %v", got)
	}
	if a.DiscoveryRounds() != 1 {
		t.Fatalf("one discovery round expected, not %d", a.DiscoveryRounds())
	}

	// disconnecting from a peer we are not connected to is a no-op
	a.Disconnect(b.LocalID())
}
