package net

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	libp2p "github.com/libp2p/go-libp2p"
	dht "github.com/libp2p/go-libp2p-kad-dht"
	pubsub "github.com/libp2p/go-libp2p-pubsub"
	"github.com/libp2p/go-libp2p/core/event"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/network"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/core/peerstore"
	"github.com/libp2p/go-libp2p/core/protocol"
	"github.com/libp2p/go-libp2p/p2p/muxer/yamux"
	"github.com/libp2p/go-libp2p/p2p/net/connmgr"
	noise "github.com/libp2p/go-libp2p/p2p/security/noise"
	tcp "github.com/libp2p/go-libp2p/p2p/transport/tcp"
	"github.com/mosaicnetworks/gossipnet/src/common"
	"github.com/mosaicnetworks/gossipnet/src/peers"
	"github.com/mosaicnetworks/gossipnet/src/version"
	ma "github.com/multiformats/go-multiaddr"
	manet "github.com/multiformats/go-multiaddr/net"
	"github.com/sirupsen/logrus"
)

const (
	// discoveryTimeout bounds a random Kademlia lookup and the dials to the
	// peers it returns.
	discoveryTimeout = 30 * time.Second

	// gossipEnvelopeOverhead leaves room for the pubsub envelope (signature,
	// key, seqno, topic) around a payload of the maximum gossip size.
	gossipEnvelopeOverhead = 64 * 1024
)

var errListenerClosed = errors.New("listener closed unexpectedly")

// Libp2pSwarm is a Swarm backed by a libp2p host: TCP connections secured with
// Noise and multiplexed with Yamux, a Kademlia DHT for discovery, GossipSub for
// gossip and a length-prefixed stream protocol for direct messages.
type Libp2pSwarm struct {
	conf   SwarmConfig
	logger *logrus.Entry

	host        host.Host
	kad         *dht.IpfsDHT
	topic       *pubsub.Topic
	sub         *pubsub.Subscription
	topicEvents *pubsub.TopicEventHandler
	idSub       event.Subscription

	oneWayProtocol protocol.ID

	pump *eventPump

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu           sync.Mutex
	pendingDials map[peer.ID]string
	outboxes     map[peer.ID]*common.Queue[*OneWayMessage]
	listenAddrs  map[string][]string

	publishQueue *common.Queue[*GossipMessage]

	closing   int32
	closeOnce sync.Once
	closeErr  error
}

// Libp2pFactory is a SwarmFactory building a Libp2pSwarm.
func Libp2pFactory(conf SwarmConfig) (Swarm, error) {
	return NewLibp2pSwarm(conf)
}

// NewLibp2pSwarm creates the libp2p host and its protocols. The swarm does not
// listen on anything until Listen is called.
func NewLibp2pSwarm(conf SwarmConfig) (*Libp2pSwarm, error) {
	if conf.Logger == nil {
		log := logrus.New()
		log.Level = logrus.DebugLevel
		conf.Logger = logrus.NewEntry(log)
	}

	cm, err := connmgr.NewConnManager(
		conf.ConnLowWater,
		conf.ConnHighWater,
		connmgr.WithGracePeriod(time.Minute),
	)
	if err != nil {
		return nil, err
	}

	h, err := libp2p.New(
		libp2p.Identity(conf.Key),
		libp2p.NoListenAddrs,
		libp2p.Transport(tcp.NewTCPTransport, tcp.WithConnectionTimeout(conf.ConnectionSetupTimeout)),
		libp2p.Security(noise.ID, noise.New),
		libp2p.Muxer(yamux.ID, yamux.DefaultTransport),
		libp2p.ConnectionManager(cm),
		libp2p.UserAgent(version.UserAgent()),
		libp2p.ProtocolVersion(conf.Chainspec.IdentifyVersion()),
		libp2p.DisableRelay(),
	)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	s := &Libp2pSwarm{
		conf:           conf,
		logger:         conf.Logger.WithField("swarm", h.ID().ShortString()),
		host:           h,
		oneWayProtocol: protocol.ID(conf.Chainspec.OneWayProtocol()),
		pump:           newEventPump(),
		ctx:            ctx,
		cancel:         cancel,
		pendingDials:   make(map[peer.ID]string),
		outboxes:       make(map[peer.ID]*common.Queue[*OneWayMessage]),
		listenAddrs:    make(map[string][]string),
		publishQueue:   common.NewQueue[*GossipMessage](),
	}

	if err := s.setup(); err != nil {
		cancel()
		h.Close()
		s.pump.close()
		return nil, err
	}

	return s, nil
}

func (s *Libp2pSwarm) setup() error {
	s.host.Network().Notify(&network.NotifyBundle{
		ListenF:       s.listened,
		ListenCloseF:  s.listenClosed,
		ConnectedF:    s.connected,
		DisconnectedF: s.disconnected,
	})

	s.host.SetStreamHandler(s.oneWayProtocol, s.handleOneWayStream)

	idSub, err := s.host.EventBus().Subscribe([]interface{}{
		new(event.EvtPeerIdentificationCompleted),
		new(event.EvtPeerIdentificationFailed),
	})
	if err != nil {
		return fmt.Errorf("subscribing to identify events: %w", err)
	}
	s.idSub = idSub

	kad, err := dht.New(s.ctx, s.host,
		dht.Mode(dht.ModeServer),
		dht.ProtocolPrefix(protocol.ID(s.conf.Chainspec.KademliaPrefix())),
	)
	if err != nil {
		return fmt.Errorf("creating kademlia dht: %w", err)
	}
	s.kad = kad

	maxSize := pubsub.DefaultMaxMessageSize
	if size := int(s.conf.MaxGossipMessageSize) + gossipEnvelopeOverhead; size > maxSize {
		maxSize = size
	}

	ps, err := pubsub.NewGossipSub(s.ctx, s.host, pubsub.WithMaxMessageSize(maxSize))
	if err != nil {
		return fmt.Errorf("creating gossipsub: %w", err)
	}

	topic, err := ps.Join(s.conf.Chainspec.GossipTopic())
	if err != nil {
		return fmt.Errorf("joining gossip topic: %w", err)
	}
	s.topic = topic

	sub, err := topic.Subscribe()
	if err != nil {
		return fmt.Errorf("subscribing to gossip topic: %w", err)
	}
	s.sub = sub

	topicEvents, err := topic.EventHandler()
	if err != nil {
		return fmt.Errorf("gossip topic event handler: %w", err)
	}
	s.topicEvents = topicEvents

	s.goFunc(s.identifyLoop)
	s.goFunc(s.gossipLoop)
	s.goFunc(s.topicEventsLoop)
	s.goFunc(s.publishLoop)

	return nil
}

func (s *Libp2pSwarm) goFunc(f func()) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		f()
	}()
}

func (s *Libp2pSwarm) isClosing() bool {
	return atomic.LoadInt32(&s.closing) == 1
}

/*******************************************************************************
Swarm commands
*******************************************************************************/

// Events implements the Swarm interface.
func (s *Libp2pSwarm) Events() <-chan SwarmEvent {
	return s.pump.events()
}

// LocalID implements the Swarm interface.
func (s *Libp2pSwarm) LocalID() peers.NodeID {
	return peers.NodeID(s.host.ID())
}

// Listen implements the Swarm interface.
func (s *Libp2pSwarm) Listen(addr string) error {
	if s.isClosing() {
		return ErrSwarmClosed
	}

	transport, _, err := ParseAddress(addr)
	if err != nil {
		return err
	}

	return s.host.Network().Listen(transport)
}

// Dial implements the Swarm interface. The address must carry the peer ID of
// the remote node; an address without one cannot be authenticated and is
// reported unreachable straight away.
func (s *Libp2pSwarm) Dial(addr string) error {
	if s.isClosing() {
		return ErrSwarmClosed
	}

	transport, id, err := ParseAddress(addr)
	if err != nil {
		return err
	}

	key := transport.String()

	if id == "" {
		s.pump.push(UnknownPeerUnreachableAddr{Address: key, Error: ErrMissingPeerID})
		return nil
	}

	if id == s.host.ID() {
		s.pump.push(UnknownPeerUnreachableAddr{Address: key, Error: errors.New("dial to self attempted")})
		return nil
	}

	s.mu.Lock()
	s.pendingDials[id] = key
	s.mu.Unlock()

	s.pump.push(Dialing{PeerID: peers.NodeID(id)})

	s.goFunc(func() {
		ctx, cancel := context.WithTimeout(s.ctx, s.conf.ConnectionSetupTimeout)
		defer cancel()

		err := s.host.Connect(ctx, peer.AddrInfo{ID: id, Addrs: []ma.Multiaddr{transport}})

		s.mu.Lock()
		_, unclaimed := s.pendingDials[id]
		delete(s.pendingDials, id)
		s.mu.Unlock()

		if err != nil {
			s.pump.push(UnknownPeerUnreachableAddr{Address: key, Error: err})
			return
		}

		// We were already connected so no new connection was announced.
		if unclaimed {
			conns := s.host.Network().ConnsToPeer(id)
			endpoint := peers.Endpoint{Role: peers.Dialer, RemoteAddr: key}
			if len(conns) > 0 {
				endpoint.LocalAddr = conns[0].LocalMultiaddr().String()
			}
			s.pump.push(ConnectionEstablished{
				PeerID:         peers.NodeID(id),
				Endpoint:       endpoint,
				NumEstablished: uint32(len(conns)),
			})
		}
	})

	return nil
}

// AddDiscoveredPeer implements the Swarm interface.
func (s *Libp2pSwarm) AddDiscoveredPeer(id peers.NodeID, addrs []string) {
	maddrs := make([]ma.Multiaddr, 0, len(addrs))
	for _, a := range addrs {
		transport, _, err := ParseAddress(a)
		if err != nil {
			s.logger.WithError(err).WithField("address", a).Debug("Ignoring discovered address")
			continue
		}
		maddrs = append(maddrs, transport)
	}

	if len(maddrs) == 0 {
		return
	}

	s.host.Peerstore().AddAddrs(id.PeerID(), maddrs, peerstore.AddressTTL)
}

// DiscoverPeers implements the Swarm interface. It looks up the peers closest
// to a random key and connects to those we are not connected to yet.
func (s *Libp2pSwarm) DiscoverPeers() {
	if s.isClosing() {
		return
	}

	s.goFunc(func() {
		ctx, cancel := context.WithTimeout(s.ctx, discoveryTimeout)
		defer cancel()

		key := make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			s.logger.WithError(err).Error("Generating random lookup key")
			return
		}

		found, err := s.kad.GetClosestPeers(ctx, string(key))
		if err != nil {
			s.pump.push(KademliaEvent{Description: fmt.Sprintf("random lookup failed: %v", err)})
			return
		}

		s.pump.push(KademliaEvent{Description: fmt.Sprintf("random lookup returned %d peers", len(found))})

		for _, p := range found {
			if p == s.host.ID() || s.host.Network().Connectedness(p) == network.Connected {
				continue
			}

			info := s.host.Peerstore().PeerInfo(p)

			s.pump.push(Dialing{PeerID: peers.NodeID(p)})

			if err := s.host.Connect(ctx, info); err != nil {
				address := ""
				if len(info.Addrs) > 0 {
					address = info.Addrs[0].String()
				}
				s.pump.push(UnreachableAddr{
					PeerID:  peers.NodeID(p),
					Address: address,
					Error:   err,
				})
			}
		}
	})
}

// Close implements the Swarm interface.
func (s *Libp2pSwarm) Close() error {
	s.closeOnce.Do(func() {
		atomic.StoreInt32(&s.closing, 1)

		s.cancel()

		s.mu.Lock()
		for _, q := range s.outboxes {
			q.Close()
		}
		s.mu.Unlock()

		s.publishQueue.Close()
		s.topicEvents.Cancel()
		s.sub.Cancel()
		s.idSub.Close()

		if err := s.kad.Close(); err != nil {
			s.logger.WithError(err).Debug("Closing kademlia")
		}

		s.closeErr = s.host.Close()

		s.wg.Wait()
		s.pump.close()
	})

	return s.closeErr
}

/*******************************************************************************
Network notifications
*******************************************************************************/

func (s *Libp2pSwarm) listened(n network.Network, addr ma.Multiaddr) {
	resolved := []ma.Multiaddr{addr}

	if manet.IsIPUnspecified(addr) {
		ifaces, err := manet.InterfaceMultiaddrs()
		if err == nil {
			if r, err := manet.ResolveUnspecifiedAddress(addr, ifaces); err == nil {
				resolved = r
			}
		}
	}

	strs := make([]string, 0, len(resolved))
	for _, r := range resolved {
		strs = append(strs, r.String())
	}

	s.mu.Lock()
	s.listenAddrs[addr.String()] = strs
	s.mu.Unlock()

	for _, a := range strs {
		s.pump.push(NewListenAddr{Address: a})
	}
}

func (s *Libp2pSwarm) listenClosed(n network.Network, addr ma.Multiaddr) {
	s.mu.Lock()
	strs, ok := s.listenAddrs[addr.String()]
	delete(s.listenAddrs, addr.String())
	s.mu.Unlock()

	if !ok {
		strs = []string{addr.String()}
	}

	for _, a := range strs {
		s.pump.push(ExpiredListenAddr{Address: a})
	}

	var reason error
	if !s.isClosing() {
		reason = errListenerClosed
	}

	s.pump.push(ListenerClosed{Addresses: strs, Reason: reason})
}

func (s *Libp2pSwarm) connected(n network.Network, c network.Conn) {
	id := c.RemotePeer()

	endpoint := peers.Endpoint{
		Role:       peers.Listener,
		RemoteAddr: c.RemoteMultiaddr().String(),
		LocalAddr:  c.LocalMultiaddr().String(),
	}

	if c.Stat().Direction == network.DirOutbound {
		endpoint.Role = peers.Dialer

		s.mu.Lock()
		if dialed, ok := s.pendingDials[id]; ok {
			endpoint.RemoteAddr = dialed
			delete(s.pendingDials, id)
		}
		s.mu.Unlock()
	} else {
		s.pump.push(IncomingConnection{RemoteAddr: endpoint.RemoteAddr})
	}

	s.pump.push(ConnectionEstablished{
		PeerID:         peers.NodeID(id),
		Endpoint:       endpoint,
		NumEstablished: uint32(len(n.ConnsToPeer(id))),
	})
}

func (s *Libp2pSwarm) disconnected(n network.Network, c network.Conn) {
	id := c.RemotePeer()

	endpoint := peers.Endpoint{
		Role:       peers.Listener,
		RemoteAddr: c.RemoteMultiaddr().String(),
		LocalAddr:  c.LocalMultiaddr().String(),
	}
	if c.Stat().Direction == network.DirOutbound {
		endpoint.Role = peers.Dialer
	}

	s.pump.push(ConnectionClosed{
		PeerID:         peers.NodeID(id),
		Endpoint:       endpoint,
		NumEstablished: uint32(len(n.ConnsToPeer(id))),
	})
}

func (s *Libp2pSwarm) identifyLoop() {
	for {
		select {
		case e, ok := <-s.idSub.Out():
			if !ok {
				return
			}
			switch ev := e.(type) {
			case event.EvtPeerIdentificationCompleted:
				s.pump.push(s.identified(ev.Peer))
			case event.EvtPeerIdentificationFailed:
				s.pump.push(IdentifyError{Peer: peers.NodeID(ev.Peer), Error: ev.Reason})
			}
		case <-s.ctx.Done():
			return
		}
	}
}

// identified collects what identify stored in the peerstore about p.
func (s *Libp2pSwarm) identified(p peer.ID) IdentifyReceived {
	ps := s.host.Peerstore()

	res := IdentifyReceived{
		Peer:        peers.NodeID(p),
		ListenAddrs: multiaddrStrings(ps.Addrs(p)),
	}

	if protos, err := ps.GetProtocols(p); err == nil {
		res.Protocols = protocol.ConvertToStrings(protos)
	}
	if v, err := ps.Get(p, "AgentVersion"); err == nil {
		res.AgentVersion, _ = v.(string)
	}
	if v, err := ps.Get(p, "ProtocolVersion"); err == nil {
		res.ProtocolVersion, _ = v.(string)
	}

	return res
}

func multiaddrStrings(addrs []ma.Multiaddr) []string {
	res := make([]string, 0, len(addrs))
	for _, a := range addrs {
		res = append(res, a.String())
	}
	return res
}
