package network

import (
	"fmt"
	"math/rand"
	"os"
	"sync"

	"github.com/mosaicnetworks/gossipnet/src/common"
	"github.com/mosaicnetworks/gossipnet/src/config"
	"github.com/mosaicnetworks/gossipnet/src/crypto/keys"
	"github.com/mosaicnetworks/gossipnet/src/net"
	"github.com/mosaicnetworks/gossipnet/src/peers"
	"github.com/mosaicnetworks/gossipnet/src/reactor"
	"github.com/mosaicnetworks/gossipnet/src/telemetry"
	"github.com/sirupsen/logrus"
)

// EnableEnvVar must be set, to any value, for the network to start. Without it
// the Network does not touch the network at all and drops every message.
const EnableEnvVar = "GOSSIPNET_ENABLE_P2P"

const noPeerIDWarning = "Known address has no /p2p/<id> part, libp2p cannot dial it"

// Payload is the type of the application messages carried by the network. It
// must be encodable with the payload codec.
type Payload interface {
	fmt.Stringer
}

// EventQueue is where the network schedules the events and announcements it
// produces.
type EventQueue interface {
	Schedule(ev interface{}, kind reactor.QueueKind) error
}

// Network connects the node to its peers. It owns the peer table, the table
// of known addresses and the list of listening addresses, and is driven by
// HandleEvent, which must not be called concurrently.
type Network[P Payload] struct {
	ourID  peers.NodeID
	logger *logrus.Entry

	peers              *peers.PeerTable
	knownAddresses     *peers.KnownAddresses
	dialAddresses      map[string]string
	listeningAddresses []string
	isolationDeclared  bool

	oneWay *common.Queue[*net.OneWayMessage]
	gossip *common.Queue[*net.GossipMessage]

	maxOneWayMessageSize uint32
	maxGossipMessageSize uint32

	shutdownCh   chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	queue   EventQueue
	metrics *telemetry.Metrics
}

// New creates a Network and, unless EnableEnvVar is unset, binds its listener,
// dials every known address and starts the server loop. cache may be nil.
func New[P Payload](
	conf *config.Config,
	chainspec config.Chainspec,
	queue EventQueue,
	factory net.SwarmFactory,
	cache peers.PeerCache,
	metrics *telemetry.Metrics,
) (*Network[P], error) {

	logger := conf.Logger().WithField("component", "network")

	if metrics == nil {
		metrics = telemetry.NewMetrics()
	}
	if cache == nil {
		cache = peers.NewInmemPeerCache()
	}

	dialAddresses := make(map[string]string, len(conf.KnownAddresses))
	normalized := make([]string, 0, len(conf.KnownAddresses))
	for _, a := range conf.KnownAddresses {
		key := net.NormalizeAddress(a)
		if _, ok := dialAddresses[key]; !ok {
			dialAddresses[key] = a
			normalized = append(normalized, key)
		}
	}
	if len(normalized) == 0 {
		return nil, newError(NoKnownAddress, "", nil)
	}

	bind := net.NormalizeAddress(conf.BindAddr)
	for _, known := range normalized {
		if known == bind {
			continue
		}
		if _, id, err := net.ParseAddress(dialAddresses[known]); err == nil && id == "" {
			logger.WithField("address", dialAddresses[known]).Warn(noPeerIDWarning)
		}
	}

	key := conf.Key
	if key == nil {
		var err error
		key, err = keys.GenerateKey()
		if err != nil {
			return nil, newError(KeypairSigning, "", err)
		}
	}

	ourID, err := peers.NodeIDFromKey(key)
	if err != nil {
		return nil, newError(KeypairSigning, "", err)
	}

	n := &Network[P]{
		ourID:                ourID,
		logger:               logger.WithField("id", ourID.ShortString()),
		peers:                peers.NewPeerTable(),
		knownAddresses:       peers.NewKnownAddresses(normalized),
		dialAddresses:        dialAddresses,
		oneWay:               common.NewQueue[*net.OneWayMessage](),
		gossip:               common.NewQueue[*net.GossipMessage](),
		maxOneWayMessageSize: conf.MaxOneWayMessageSize,
		maxGossipMessageSize: conf.MaxGossipMessageSize,
		shutdownCh:           make(chan struct{}),
		queue:                queue,
		metrics:              metrics,
	}
	n.updateAddressMetrics()

	if _, ok := os.LookupEnv(EnableEnvVar); !ok {
		n.logger.Infof("%s not set, not starting network", EnableEnvVar)
		n.oneWay.Close()
		n.gossip.Close()
		if err := cache.Close(); err != nil {
			n.logger.WithError(err).Warn("Closing peer cache")
		}
		return n, nil
	}

	swarm, err := factory(net.SwarmConfig{
		Key:                    key,
		Chainspec:              chainspec,
		ConnectionSetupTimeout: conf.ConnectionSetupTimeout,
		MaxOneWayMessageSize:   conf.MaxOneWayMessageSize,
		MaxGossipMessageSize:   conf.MaxGossipMessageSize,
		ConnLowWater:           conf.ConnLowWater,
		ConnHighWater:          conf.ConnHighWater,
		Logger:                 n.logger,
	})
	if err != nil {
		return nil, newError(Swarm, "", err)
	}

	if err := swarm.Listen(conf.BindAddr); err != nil {
		swarm.Close()
		return nil, newError(Listen, conf.BindAddr, err)
	}

	cached, err := cache.All()
	if err != nil {
		n.logger.WithError(err).Warn("Reading peer cache")
	}
	for id, addrs := range cached {
		if id == ourID {
			continue
		}
		swarm.AddDiscoveredPeer(id, addrs)
	}
	if len(cached) > 0 {
		n.logger.WithField("peers", len(cached)).Debug("Seeded discovery with cached peers")
	}

	for _, known := range n.knownAddresses.Addresses() {
		addr := n.dialAddresses[known]
		if err := swarm.Dial(addr); err != nil {
			swarm.Close()
			return nil, newError(DialPeer, addr, err)
		}
		n.logger.WithField("address", addr).Debug("Dialing known address")
	}

	s := &server[P]{
		swarm:      swarm,
		oneWay:     n.oneWay,
		gossip:     n.gossip,
		shutdownCh: n.shutdownCh,
		queue:      queue,
		cache:      cache,
		logger:     n.logger.WithField("component", "network-server"),
		metrics:    metrics,
	}

	n.done = make(chan struct{})
	go func() {
		defer close(n.done)
		s.run()
	}()

	n.logger.WithFields(logrus.Fields{
		"listen":          conf.BindAddr,
		"known_addresses": n.knownAddresses.Len(),
		"chain":           chainspec.Name,
	}).Info("Network started")

	return n, nil
}

// OurID returns the ID of this node.
func (n *Network[P]) OurID() peers.NodeID {
	return n.ourID
}

// Running returns true if the server loop was started.
func (n *Network[P]) Running() bool {
	return n.done != nil
}

// HandleEvent processes one event. The returned error, if any, is a
// *FatalError and the node must halt.
func (n *Network[P]) HandleEvent(rng *rand.Rand, ev Event) error {
	switch e := ev.(type) {
	case ConnectionEstablished:
		n.handleConnectionEstablished(e.PeerID, e.Endpoint, e.NumEstablished)
	case ConnectionClosed:
		n.handleConnectionClosed(e.PeerID, e.NumEstablished, e.Cause)
	case UnknownPeerUnreachableAddress:
		return n.handleUnknownPeerUnreachableAddress(e.Address, e.Error)
	case UnreachableAddress:
		n.logger.WithFields(logrus.Fields{
			"peer":               e.PeerID.ShortString(),
			"address":            e.Address,
			"attempts_remaining": e.AttemptsRemaining,
		}).WithError(e.Error).Debug("Failed to reach peer address")
	case NewListenAddress:
		n.handleNewListenAddress(e.Address)
	case ExpiredListenAddress:
		return n.handleExpiredListenAddress(e.Address)
	case ListenerClosed:
		return n.handleListenerClosed(e.Addresses, e.Reason)
	case ListenerError:
		n.logger.WithError(e.Error).Warn("Listener error")
	case SendMessage[P]:
		n.sendMessage(e.Dest, e.Payload)
		e.Responder.Respond(struct{}{})
	case Broadcast[P]:
		n.broadcast(e.Payload)
		e.Responder.Respond(struct{}{})
	case Gossip[P]:
		sent := n.sendMessageToNPeers(rng, e.Payload, e.Count, e.Exclude)
		e.Responder.Respond(sent)
	case GetPeers:
		e.Responder.Respond(n.peers.Snapshot())
	default:
		n.logger.Warnf("Unexpected network event %T", ev)
	}

	return nil
}

func (n *Network[P]) handleConnectionEstablished(peer peers.NodeID, endpoint peers.Endpoint, count uint32) {
	n.logger.WithFields(logrus.Fields{
		"peer":     peer.ShortString(),
		"endpoint": endpoint,
		"count":    count,
	}).Debug("Connection established")

	if endpoint.IsDialer() && n.knownAddresses.MarkConnected(endpoint.RemoteAddr) {
		n.logger.WithField("address", endpoint.RemoteAddr).Info("Connected to known address")
		n.updateAddressMetrics()
	}

	n.peers.Upsert(peer, endpoint)
	n.metrics.Peers.Set(float64(n.peers.Len()))

	if err := n.queue.Schedule(NewPeer{ID: peer}, reactor.Regular); err != nil {
		n.logger.WithError(err).Debug("Could not announce new peer")
	}
}

func (n *Network[P]) handleConnectionClosed(peer peers.NodeID, count uint32, cause error) {
	n.logger.WithFields(logrus.Fields{
		"peer":  peer.ShortString(),
		"count": count,
	}).WithError(cause).Debug("Connection closed")

	if count == 0 {
		n.peers.Remove(peer)
		n.metrics.Peers.Set(float64(n.peers.Len()))
	}
}

func (n *Network[P]) handleUnknownPeerUnreachableAddress(address string, cause error) error {
	if n.knownAddresses.MarkFailed(address) {
		n.logger.WithField("address", address).WithError(cause).Warn("Failed to connect to known address")
		n.updateAddressMetrics()
	} else {
		n.logger.WithField("address", address).WithError(cause).Debug("Failed to connect to address")
	}

	return n.checkIsolation()
}

func (n *Network[P]) checkIsolation() error {
	if n.isolationDeclared || !n.knownAddresses.AllFailed() {
		return nil
	}
	n.isolationDeclared = true

	if n.isBootstrapNode() {
		n.logger.Info("Failed to connect to any known address, running as a bootstrap node")
		return nil
	}

	n.logger.Error("Failed to connect to any known address, now isolated")

	return &FatalError{Reason: "failed to connect to any known address, now isolated"}
}

// isBootstrapNode returns true if one of our known addresses is also one we
// listen on.
func (n *Network[P]) isBootstrapNode() bool {
	for _, a := range n.listeningAddresses {
		if n.knownAddresses.Contains(a) {
			return true
		}
	}
	return false
}

func (n *Network[P]) handleNewListenAddress(address string) {
	for _, a := range n.listeningAddresses {
		if a == address {
			return
		}
	}
	n.listeningAddresses = append(n.listeningAddresses, address)
	n.metrics.ListenAddresses.Set(float64(len(n.listeningAddresses)))

	n.logger.WithField("address", address).Info("Listening")
}

func (n *Network[P]) handleExpiredListenAddress(address string) error {
	for i, a := range n.listeningAddresses {
		if a == address {
			n.listeningAddresses = append(n.listeningAddresses[:i], n.listeningAddresses[i+1:]...)
			break
		}
	}
	n.metrics.ListenAddresses.Set(float64(len(n.listeningAddresses)))

	n.logger.WithField("address", address).Info("No longer listening")

	if len(n.listeningAddresses) == 0 {
		n.logger.Error("No remaining listening addresses")
		return &FatalError{Reason: "no remaining listening addresses"}
	}

	return nil
}

func (n *Network[P]) handleListenerClosed(addresses []string, reason error) error {
	if reason != nil {
		n.logger.WithField("addresses", addresses).WithError(reason).Error("Listener closed")
		return &FatalError{Reason: fmt.Sprintf("listener closed: %v", reason)}
	}

	n.logger.WithField("addresses", addresses).Debug("Listener closed")

	return nil
}

func (n *Network[P]) sendMessage(dest peers.NodeID, payload P) {
	msg, err := net.NewOneWayMessage(dest, payload, n.maxOneWayMessageSize)
	if err != nil {
		n.logger.WithField("dest", dest.ShortString()).WithError(err).Warn("Dropping direct message")
		n.metrics.MessagesDropped.WithLabelValues("encode").Inc()
		return
	}

	if err := n.oneWay.Push(msg); err != nil {
		n.logger.WithField("dest", dest.ShortString()).WithError(err).Debug("Network closed, dropping direct message")
		n.metrics.MessagesDropped.WithLabelValues("closed").Inc()
	}
}

func (n *Network[P]) broadcast(payload P) {
	msg, err := net.NewGossipMessage(payload, n.maxGossipMessageSize)
	if err != nil {
		n.logger.WithError(err).Warn("Dropping gossip message")
		n.metrics.MessagesDropped.WithLabelValues("encode").Inc()
		return
	}

	if err := n.gossip.Push(msg); err != nil {
		n.logger.WithError(err).Debug("Network closed, dropping gossip message")
		n.metrics.MessagesDropped.WithLabelValues("closed").Inc()
	}
}

// sendMessageToNPeers sends payload to up to count peers picked at random
// among the connected peers not in exclude, and returns the selected peers.
func (n *Network[P]) sendMessageToNPeers(rng *rand.Rand, payload P, count int, exclude map[peers.NodeID]struct{}) map[peers.NodeID]struct{} {
	if count < 0 {
		count = 0
	}

	eligible := make([]peers.NodeID, 0, n.peers.Len())
	for _, id := range n.peers.IDs() {
		if _, ok := exclude[id]; !ok {
			eligible = append(eligible, id)
		}
	}

	selected := make(map[peers.NodeID]struct{}, count)
	for _, i := range rng.Perm(len(eligible)) {
		if len(selected) >= count {
			break
		}
		selected[eligible[i]] = struct{}{}
	}

	if len(selected) < count {
		n.logger.WithFields(logrus.Fields{
			"wanted":   count,
			"selected": len(selected),
		}).Debug("Could not find enough peers to gossip to")
	}

	for id := range selected {
		n.sendMessage(id, payload)
	}

	return selected
}

// Finalize stops the server loop and waits for it to exit. Messages still
// queued are abandoned.
func (n *Network[P]) Finalize() {
	if n.done == nil {
		if _, ok := os.LookupEnv(EnableEnvVar); ok {
			n.logger.Warn("Network was not running")
		}
		return
	}

	n.signalShutdown()
	<-n.done

	n.logger.Debug("Network finalized")
}

func (n *Network[P]) signalShutdown() {
	n.shutdownOnce.Do(func() {
		close(n.shutdownCh)
	})
}

func (n *Network[P]) updateAddressMetrics() {
	for state, count := range n.knownAddresses.Counts() {
		n.metrics.KnownAddresses.WithLabelValues(state.String()).Set(float64(count))
	}
}

// Stats is a snapshot of the state of the network.
type Stats struct {
	ID                 string            `json:"id"`
	Running            bool              `json:"running"`
	Peers              int               `json:"peers"`
	ListeningAddresses []string          `json:"listening_addresses"`
	KnownAddresses     map[string]string `json:"known_addresses"`
	PendingOneWay      int               `json:"pending_one_way"`
	PendingGossip      int               `json:"pending_gossip"`
}

// Stats returns a snapshot of the network state. Like HandleEvent, it must not
// be called concurrently with other methods.
func (n *Network[P]) Stats() Stats {
	known := make(map[string]string, n.knownAddresses.Len())
	for _, a := range n.knownAddresses.Addresses() {
		state, _ := n.knownAddresses.State(a)
		known[a] = state.String()
	}

	return Stats{
		ID:                 n.ourID.String(),
		Running:            n.Running(),
		Peers:              n.peers.Len(),
		ListeningAddresses: append([]string{}, n.listeningAddresses...),
		KnownAddresses:     known,
		PendingOneWay:      n.oneWay.Len(),
		PendingGossip:      n.gossip.Len(),
	}
}
