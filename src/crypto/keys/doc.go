// Package keys manages the key-pair that identifies a gossipnet node.
//
// The identity of a node on the network, its NodeID, is derived from the
// public half of an Ed25519 key-pair. The private key also authenticates the
// encrypted transport and signs gossip messages. A node started without a key
// file uses a fresh key for the session; `gossipnet keygen` writes a key file
// so that a node, typically a bootstrap node, keeps a stable NodeID across
// restarts.
package keys
