package network

import (
	"fmt"

	"github.com/mosaicnetworks/gossipnet/src/peers"
)

// Announcement is emitted by the network for the rest of the node.
type Announcement interface {
	announcement()
}

// NewPeer announces a connection with a peer.
type NewPeer struct {
	ID peers.NodeID
}

// MessageReceived announces a payload received from Sender, either directly
// or through gossip.
type MessageReceived[P Payload] struct {
	Sender  peers.NodeID
	Payload P
}

func (NewPeer) announcement()            {}
func (MessageReceived[P]) announcement() {}

// String ...
func (a NewPeer) String() string {
	return fmt.Sprintf("NewPeer{%s}", a.ID)
}

// String ...
func (a MessageReceived[P]) String() string {
	return fmt.Sprintf("MessageReceived{sender: %s, payload: %s}", a.Sender, a.Payload)
}
