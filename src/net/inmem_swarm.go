package net

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/mosaicnetworks/gossipnet/src/peers"
	"github.com/sirupsen/logrus"
)

var (
	errNoListener   = errors.New("nobody listens on this address")
	errNotConnected = errors.New("not connected to destination")
	errWrongPeer    = errors.New("address belongs to another peer")
)

var inmemPort uint32 = 40000

// NewInmemAddr returns a fresh loopback address for an InmemSwarm.
func NewInmemAddr() string {
	return fmt.Sprintf("/ip4/127.0.0.1/tcp/%d", atomic.AddUint32(&inmemPort, 1))
}

// InmemNetwork connects InmemSwarms together, to allow nodes to be tested
// in-memory without going over a real network. Swarms find each other by
// listen address.
type InmemNetwork struct {
	sync.Mutex
	byAddr map[string]*InmemSwarm
	byID   map[peers.NodeID]*InmemSwarm
	seq    uint64
}

// NewInmemNetwork ...
func NewInmemNetwork() *InmemNetwork {
	return &InmemNetwork{
		byAddr: make(map[string]*InmemSwarm),
		byID:   make(map[peers.NodeID]*InmemSwarm),
	}
}

// Factory returns a SwarmFactory creating swarms attached to this network.
func (n *InmemNetwork) Factory() SwarmFactory {
	return func(conf SwarmConfig) (Swarm, error) {
		return n.NewSwarm(conf)
	}
}

// NewSwarm creates a swarm attached to this network. Its ID derives from
// conf.Key.
func (n *InmemNetwork) NewSwarm(conf SwarmConfig) (*InmemSwarm, error) {
	if conf.Key == nil {
		return nil, errors.New("inmem swarm requires a key")
	}

	pid, err := peer.IDFromPrivateKey(conf.Key)
	if err != nil {
		return nil, err
	}
	id := peers.NodeID(pid)

	logger := conf.Logger
	if logger == nil {
		logger = logrus.NewEntry(logrus.New())
	}

	s := &InmemSwarm{
		network:    n,
		id:         id,
		logger:     logger.WithField("swarm", id.ShortString()),
		pump:       newEventPump(),
		conns:      make(map[peers.NodeID]uint32),
		discovered: make(map[peers.NodeID][]string),
	}

	n.Lock()
	n.byID[id] = s
	n.Unlock()

	return s, nil
}

// Swarm returns the swarm listening on addr, if any.
func (n *InmemNetwork) Swarm(addr string) *InmemSwarm {
	n.Lock()
	defer n.Unlock()
	return n.byAddr[NormalizeAddress(addr)]
}

// InmemSwarm implements the Swarm interface on top of an InmemNetwork. It
// records every command it receives so tests can inspect them.
type InmemSwarm struct {
	network *InmemNetwork
	id      peers.NodeID
	logger  *logrus.Entry
	pump    *eventPump

	// guarded by network
	listenAddr string
	conns      map[peers.NodeID]uint32
	closed     bool

	recMu           sync.Mutex
	sent            []*OneWayMessage
	gossiped        []*GossipMessage
	discovered      map[peers.NodeID][]string
	discoveryRounds int
}

// Events implements the Swarm interface.
func (s *InmemSwarm) Events() <-chan SwarmEvent {
	return s.pump.events()
}

// LocalID implements the Swarm interface.
func (s *InmemSwarm) LocalID() peers.NodeID {
	return s.id
}

// ListenAddr returns the normalized address the swarm listens on.
func (s *InmemSwarm) ListenAddr() string {
	s.network.Lock()
	defer s.network.Unlock()
	return s.listenAddr
}

// Listen implements the Swarm interface.
func (s *InmemSwarm) Listen(addr string) error {
	if _, _, err := ParseAddress(addr); err != nil {
		return err
	}
	key := NormalizeAddress(addr)

	n := s.network
	n.Lock()
	if s.closed {
		n.Unlock()
		return ErrSwarmClosed
	}
	if _, ok := n.byAddr[key]; ok {
		n.Unlock()
		return fmt.Errorf("address %s already in use", key)
	}
	n.byAddr[key] = s
	s.listenAddr = key
	n.Unlock()

	s.pump.push(NewListenAddr{Address: key})

	return nil
}

// Dial implements the Swarm interface.
func (s *InmemSwarm) Dial(addr string) error {
	if addr == "" {
		return errors.New("empty address")
	}

	_, pid, err := ParseAddress(addr)
	if err != nil {
		return err
	}
	key := NormalizeAddress(addr)

	n := s.network
	n.Lock()

	if s.closed {
		n.Unlock()
		return ErrSwarmClosed
	}

	remote, ok := n.byAddr[key]

	var failure error
	switch {
	case !ok || remote.closed:
		failure = errNoListener
	case remote == s:
		failure = errors.New("dial to self attempted")
	case pid != "" && peers.NodeID(pid) != remote.id:
		failure = errWrongPeer
	}

	if failure != nil {
		n.Unlock()
		s.pump.push(UnknownPeerUnreachableAddr{Address: key, Error: failure})
		return nil
	}

	s.conns[remote.id]++
	remote.conns[s.id]++
	count := s.conns[remote.id]
	localAddr := s.listenAddr
	n.Unlock()

	s.pump.push(Dialing{PeerID: remote.id})
	s.pump.push(ConnectionEstablished{
		PeerID:         remote.id,
		Endpoint:       peers.Endpoint{Role: peers.Dialer, RemoteAddr: key, LocalAddr: localAddr},
		NumEstablished: count,
	})
	remote.pump.push(IncomingConnection{RemoteAddr: localAddr})
	remote.pump.push(ConnectionEstablished{
		PeerID:         s.id,
		Endpoint:       peers.Endpoint{Role: peers.Listener, RemoteAddr: localAddr, LocalAddr: key},
		NumEstablished: count,
	})

	return nil
}

// SendOneWay implements the Swarm interface.
func (s *InmemSwarm) SendOneWay(msg *OneWayMessage) {
	s.recMu.Lock()
	s.sent = append(s.sent, msg)
	s.recMu.Unlock()

	n := s.network
	n.Lock()
	connected := !s.closed && s.conns[msg.Dest] > 0
	remote := n.byID[msg.Dest]
	n.Unlock()

	if !connected || remote == nil {
		s.pump.push(OneWayOutboundFailure{Peer: msg.Dest, Error: errNotConnected})
		return
	}

	data := append([]byte(nil), msg.Payload...)
	remote.pump.push(OneWayRequest{Peer: s.id, Data: data})
	s.pump.push(OneWayResponse{Peer: msg.Dest})
}

// Gossip implements the Swarm interface. The message reaches every peer we
// are directly connected to.
func (s *InmemSwarm) Gossip(msg *GossipMessage) {
	s.recMu.Lock()
	s.gossiped = append(s.gossiped, msg)
	s.recMu.Unlock()

	n := s.network
	n.Lock()
	if s.closed {
		n.Unlock()
		return
	}
	n.seq++
	msgID := fmt.Sprintf("%s-%d", s.id.ShortString(), n.seq)
	var targets []*InmemSwarm
	for id, count := range s.conns {
		if count == 0 {
			continue
		}
		if remote, ok := n.byID[id]; ok {
			targets = append(targets, remote)
		}
	}
	n.Unlock()

	for _, t := range targets {
		t.pump.push(GossipReceived{
			PropagationSource: s.id,
			MessageID:         msgID,
			Source:            s.id,
			Data:              append([]byte(nil), msg.Payload...),
		})
	}
}

// AddDiscoveredPeer implements the Swarm interface.
func (s *InmemSwarm) AddDiscoveredPeer(id peers.NodeID, addrs []string) {
	s.recMu.Lock()
	defer s.recMu.Unlock()
	s.discovered[id] = append(s.discovered[id], addrs...)
}

// DiscoverPeers implements the Swarm interface.
func (s *InmemSwarm) DiscoverPeers() {
	s.recMu.Lock()
	s.discoveryRounds++
	round := s.discoveryRounds
	s.recMu.Unlock()

	s.pump.push(KademliaEvent{Description: fmt.Sprintf("discovery round %d", round)})
}

// Disconnect closes one connection with id, notifying both ends.
func (s *InmemSwarm) Disconnect(id peers.NodeID) {
	n := s.network
	n.Lock()
	remote, ok := n.byID[id]
	if !ok || s.conns[id] == 0 {
		n.Unlock()
		return
	}
	s.conns[id]--
	remote.conns[s.id]--
	remaining := s.conns[id]
	localAddr, remoteAddr := s.listenAddr, remote.listenAddr
	n.Unlock()

	s.pump.push(ConnectionClosed{
		PeerID:         id,
		Endpoint:       peers.Endpoint{Role: peers.Dialer, RemoteAddr: remoteAddr, LocalAddr: localAddr},
		NumEstablished: remaining,
	})
	remote.pump.push(ConnectionClosed{
		PeerID:         s.id,
		Endpoint:       peers.Endpoint{Role: peers.Listener, RemoteAddr: localAddr, LocalAddr: remoteAddr},
		NumEstablished: remaining,
	})
}

// Inject pushes an arbitrary event to the consumer of this swarm.
func (s *InmemSwarm) Inject(ev SwarmEvent) {
	s.pump.push(ev)
}

// Sent returns the direct messages submitted so far.
func (s *InmemSwarm) Sent() []*OneWayMessage {
	s.recMu.Lock()
	defer s.recMu.Unlock()
	return append([]*OneWayMessage(nil), s.sent...)
}

// Gossiped returns the gossip messages submitted so far.
func (s *InmemSwarm) Gossiped() []*GossipMessage {
	s.recMu.Lock()
	defer s.recMu.Unlock()
	return append([]*GossipMessage(nil), s.gossiped...)
}

// Discovered returns the addresses registered with AddDiscoveredPeer.
func (s *InmemSwarm) Discovered() map[peers.NodeID][]string {
	s.recMu.Lock()
	defer s.recMu.Unlock()
	res := make(map[peers.NodeID][]string, len(s.discovered))
	for id, a := range s.discovered {
		res[id] = append([]string(nil), a...)
	}
	return res
}

// DiscoveryRounds returns how many times DiscoverPeers was called.
func (s *InmemSwarm) DiscoveryRounds() int {
	s.recMu.Lock()
	defer s.recMu.Unlock()
	return s.discoveryRounds
}

// Close implements the Swarm interface. Remote ends see their connections
// with us close.
func (s *InmemSwarm) Close() error {
	n := s.network
	n.Lock()
	if s.closed {
		n.Unlock()
		return nil
	}
	s.closed = true

	if s.listenAddr != "" {
		delete(n.byAddr, s.listenAddr)
	}
	delete(n.byID, s.id)

	var remotes []*InmemSwarm
	for id := range s.conns {
		if remote, ok := n.byID[id]; ok && remote.conns[s.id] > 0 {
			delete(remote.conns, s.id)
			remotes = append(remotes, remote)
		}
	}
	s.conns = make(map[peers.NodeID]uint32)
	localAddr := s.listenAddr
	n.Unlock()

	for _, r := range remotes {
		r.pump.push(ConnectionClosed{
			PeerID:   s.id,
			Endpoint: peers.Endpoint{Role: peers.Listener, RemoteAddr: localAddr},
		})
	}

	s.pump.close()

	return nil
}
