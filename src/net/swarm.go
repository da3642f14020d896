package net

import (
	"errors"
	"time"

	"github.com/libp2p/go-libp2p/core/crypto"
	"github.com/mosaicnetworks/gossipnet/src/config"
	"github.com/mosaicnetworks/gossipnet/src/peers"
	"github.com/sirupsen/logrus"
)

var (
	// ErrSwarmClosed is returned when commands are issued to a swarm after it
	// has been closed.
	ErrSwarmClosed = errors.New("swarm closed")

	// ErrMissingPeerID is reported when dialing an address which does not
	// identify the remote node.
	ErrMissingPeerID = errors.New("address carries no /p2p peer identity")
)

// Swarm is the overlay transport a node builds on: it discovers peers, keeps
// encrypted multiplexed connections to them and disseminates gossip. Commands
// return immediately; their outcome is reported later as SwarmEvents.
//
// Commands must be issued from a single goroutine, the one consuming Events.
type Swarm interface {

	// Events returns the merged stream of transport events. The channel is
	// closed when the swarm is closed.
	Events() <-chan SwarmEvent

	// Listen binds a listener to addr. An error means the address could not be
	// bound.
	Listen(addr string) error

	// Dial starts connecting to addr. An error is only returned when the
	// address is malformed; connection failures are reported as
	// UnknownPeerUnreachableAddr events.
	Dial(addr string) error

	// SendOneWay delivers a direct message to its destination. Messages to the
	// same destination are sent in order.
	SendOneWay(msg *OneWayMessage)

	// Gossip publishes a message to the whole network.
	Gossip(msg *GossipMessage)

	// AddDiscoveredPeer registers addresses of a peer with the discovery
	// mechanism without connecting to it.
	AddDiscoveredPeer(id peers.NodeID, addrs []string)

	// DiscoverPeers starts a discovery round looking for new peers.
	DiscoverPeers()

	// LocalID returns the ID of this node.
	LocalID() peers.NodeID

	// Close permanently closes the swarm, stopping any associated goroutines
	// and closing all connections.
	Close() error
}

// SwarmConfig is what a SwarmFactory needs to build a Swarm.
type SwarmConfig struct {
	Key                    crypto.PrivKey
	Chainspec              config.Chainspec
	ConnectionSetupTimeout time.Duration
	MaxOneWayMessageSize   uint32
	MaxGossipMessageSize   uint32
	ConnLowWater           int
	ConnHighWater          int
	Logger                 *logrus.Entry
}

// SwarmFactory builds a Swarm.
type SwarmFactory func(conf SwarmConfig) (Swarm, error)
