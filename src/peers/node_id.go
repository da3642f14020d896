package peers

import (
	"sort"

	"github.com/libp2p/go-libp2p/core/crypto"
	"github.com/libp2p/go-libp2p/core/peer"
)

// NodeID identifies a node. It is derived from the node's public key and never
// changes for the lifetime of that key.
type NodeID peer.ID

// NodeIDFromKey derives the NodeID of a private key.
func NodeIDFromKey(key crypto.PrivKey) (NodeID, error) {
	id, err := peer.IDFromPrivateKey(key)
	if err != nil {
		return "", err
	}
	return NodeID(id), nil
}

// ParseNodeID decodes the textual form returned by String.
func ParseNodeID(s string) (NodeID, error) {
	id, err := peer.Decode(s)
	if err != nil {
		return "", err
	}
	return NodeID(id), nil
}

// PeerID returns the libp2p peer ID.
func (id NodeID) PeerID() peer.ID {
	return peer.ID(id)
}

// String returns the base58 encoding of the ID.
func (id NodeID) String() string {
	return peer.ID(id).String()
}

// ShortString returns an abbreviated form, for logs.
func (id NodeID) ShortString() string {
	return peer.ID(id).ShortString()
}

// SortNodeIDs sorts ids in place, by their textual form.
func SortNodeIDs(ids []NodeID) {
	sort.Slice(ids, func(i, j int) bool {
		return ids[i].String() < ids[j].String()
	})
}
