package net

import (
	"fmt"

	"github.com/mosaicnetworks/gossipnet/src/peers"
)

// SwarmEvent is an event produced by a Swarm. The set of implementations is
// closed; consumers switch on the concrete type.
type SwarmEvent interface {
	swarmEvent()
}

// ConnectionEstablished is emitted each time a connection to a peer is
// established. NumEstablished counts the connections with that peer, this one
// included.
type ConnectionEstablished struct {
	PeerID         peers.NodeID
	Endpoint       peers.Endpoint
	NumEstablished uint32
}

// ConnectionClosed is emitted when a connection closes. NumEstablished counts
// the connections with that peer which remain open.
type ConnectionClosed struct {
	PeerID         peers.NodeID
	Endpoint       peers.Endpoint
	NumEstablished uint32
	Cause          error
}

// UnreachableAddr reports a failed dial to an address of a peer whose ID we
// knew.
type UnreachableAddr struct {
	PeerID            peers.NodeID
	Address           string
	Error             error
	AttemptsRemaining uint32
}

// UnknownPeerUnreachableAddr reports a failed dial issued with Dial.
type UnknownPeerUnreachableAddr struct {
	Address string
	Error   error
}

// NewListenAddr reports an address we now listen on.
type NewListenAddr struct {
	Address string
}

// ExpiredListenAddr reports an address we no longer listen on.
type ExpiredListenAddr struct {
	Address string
}

// ListenerClosed reports the closure of a listener. Reason is nil when the
// listener was closed on purpose.
type ListenerClosed struct {
	Addresses []string
	Reason    error
}

// ListenerError reports a non-fatal error of a listener.
type ListenerError struct {
	Error error
}

// IncomingConnection is emitted when a remote node starts connecting to us.
type IncomingConnection struct {
	RemoteAddr string
}

// Dialing is emitted when a dial to a peer starts.
type Dialing struct {
	PeerID peers.NodeID
}

// OneWayRequest is a direct message received from Peer.
type OneWayRequest struct {
	Peer peers.NodeID
	Data []byte
}

// OneWayResponse acknowledges that a direct message was handed to Peer. It
// carries no data.
type OneWayResponse struct {
	Peer peers.NodeID
}

// OneWayOutboundFailure reports a direct message we could not send.
type OneWayOutboundFailure struct {
	Peer  peers.NodeID
	Error error
}

// OneWayInboundFailure reports a direct message we could not receive.
type OneWayInboundFailure struct {
	Peer  peers.NodeID
	Error error
}

// GossipReceived is a gossip message. PropagationSource is the peer that
// forwarded it to us, Source the node that published it. Source is empty when
// the message is anonymous.
type GossipReceived struct {
	PropagationSource peers.NodeID
	MessageID         string
	Source            peers.NodeID
	Data              []byte
}

// GossipSubscribed reports that a peer joined the gossip topic.
type GossipSubscribed struct {
	Peer peers.NodeID
}

// GossipUnsubscribed reports that a peer left the gossip topic.
type GossipUnsubscribed struct {
	Peer peers.NodeID
}

// IdentifyReceived carries the information a peer sent about itself.
type IdentifyReceived struct {
	Peer            peers.NodeID
	ListenAddrs     []string
	Protocols       []string
	ProtocolVersion string
	AgentVersion    string
}

// IdentifyError reports a failed identification.
type IdentifyError struct {
	Peer  peers.NodeID
	Error error
}

// KademliaEvent is internal discovery chatter.
type KademliaEvent struct {
	Description string
}

func (ConnectionEstablished) swarmEvent()      {}
func (ConnectionClosed) swarmEvent()           {}
func (UnreachableAddr) swarmEvent()            {}
func (UnknownPeerUnreachableAddr) swarmEvent() {}
func (NewListenAddr) swarmEvent()              {}
func (ExpiredListenAddr) swarmEvent()          {}
func (ListenerClosed) swarmEvent()             {}
func (ListenerError) swarmEvent()              {}
func (IncomingConnection) swarmEvent()         {}
func (Dialing) swarmEvent()                    {}
func (OneWayRequest) swarmEvent()              {}
func (OneWayResponse) swarmEvent()             {}
func (OneWayOutboundFailure) swarmEvent()      {}
func (OneWayInboundFailure) swarmEvent()       {}
func (GossipReceived) swarmEvent()             {}
func (GossipSubscribed) swarmEvent()           {}
func (GossipUnsubscribed) swarmEvent()         {}
func (IdentifyReceived) swarmEvent()           {}
func (IdentifyError) swarmEvent()              {}
func (KademliaEvent) swarmEvent()              {}

// String ...
func (e ConnectionEstablished) String() string {
	return fmt.Sprintf("ConnectionEstablished{%s, %s, %d}", e.PeerID, e.Endpoint, e.NumEstablished)
}

// String ...
func (e ConnectionClosed) String() string {
	return fmt.Sprintf("ConnectionClosed{%s, %s, %d, %v}", e.PeerID, e.Endpoint, e.NumEstablished, e.Cause)
}
