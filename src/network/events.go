package network

import (
	"fmt"

	"github.com/mosaicnetworks/gossipnet/src/peers"
	"github.com/mosaicnetworks/gossipnet/src/reactor"
)

// Event is an event handled by the Network. Transport events are produced by
// the server loop; request events are issued by clients of the node, carrying
// a Responder for the reply.
type Event interface {
	networkEvent()
}

// ConnectionEstablished ...
type ConnectionEstablished struct {
	PeerID         peers.NodeID
	Endpoint       peers.Endpoint
	NumEstablished uint32
}

// ConnectionClosed ...
type ConnectionClosed struct {
	PeerID         peers.NodeID
	Endpoint       peers.Endpoint
	NumEstablished uint32
	Cause          error
}

// UnreachableAddress reports a failed dial to a peer whose ID we knew.
type UnreachableAddress struct {
	PeerID            peers.NodeID
	Address           string
	Error             error
	AttemptsRemaining uint32
}

// UnknownPeerUnreachableAddress reports a failed dial to a known address.
type UnknownPeerUnreachableAddress struct {
	Address string
	Error   error
}

// NewListenAddress ...
type NewListenAddress struct {
	Address string
}

// ExpiredListenAddress ...
type ExpiredListenAddress struct {
	Address string
}

// ListenerClosed ...
type ListenerClosed struct {
	Addresses []string
	Reason    error
}

// ListenerError ...
type ListenerError struct {
	Error error
}

// SendMessage asks to send Payload directly to Dest.
type SendMessage[P Payload] struct {
	Dest      peers.NodeID
	Payload   P
	Responder *reactor.Responder[struct{}]
}

// Broadcast asks to gossip Payload to the whole network.
type Broadcast[P Payload] struct {
	Payload   P
	Responder *reactor.Responder[struct{}]
}

// Gossip asks to send Payload directly to Count random peers, none of which is
// in Exclude. The Responder receives the peers that were selected.
type Gossip[P Payload] struct {
	Payload   P
	Count     int
	Exclude   map[peers.NodeID]struct{}
	Responder *reactor.Responder[map[peers.NodeID]struct{}]
}

// GetPeers asks for the connected peers and their addresses.
type GetPeers struct {
	Responder *reactor.Responder[map[peers.NodeID]string]
}

func (ConnectionEstablished) networkEvent()         {}
func (ConnectionClosed) networkEvent()              {}
func (UnreachableAddress) networkEvent()            {}
func (UnknownPeerUnreachableAddress) networkEvent() {}
func (NewListenAddress) networkEvent()              {}
func (ExpiredListenAddress) networkEvent()          {}
func (ListenerClosed) networkEvent()                {}
func (ListenerError) networkEvent()                 {}
func (SendMessage[P]) networkEvent()                {}
func (Broadcast[P]) networkEvent()                  {}
func (Gossip[P]) networkEvent()                     {}
func (GetPeers) networkEvent()                      {}

// String ...
func (e SendMessage[P]) String() string {
	return fmt.Sprintf("SendMessage{dest: %s, payload: %s}", e.Dest, e.Payload)
}

// String ...
func (e Broadcast[P]) String() string {
	return fmt.Sprintf("Broadcast{payload: %s}", e.Payload)
}

// String ...
func (e Gossip[P]) String() string {
	return fmt.Sprintf("Gossip{payload: %s, count: %d, exclude: %d}", e.Payload, e.Count, len(e.Exclude))
}
