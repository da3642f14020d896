// Package peers defines how a gossipnet node identifies other nodes and keeps
// track of its connections to them.
//
// A node is identified by a NodeID derived from its public key. The package
// provides three collections:
//
// KnownAddresses holds the bootstrap addresses from the configuration together
// with a ConnectionState. The set never changes after construction and a state
// only leaves Pending once, to Connected or Failed. When every address is
// Failed the node is isolated.
//
// PeerTable maps the nodes we currently have at least one connection with to
// the Endpoint metadata of that connection.
//
// PeerCache remembers the addresses that remote nodes advertised about
// themselves, in memory or in a Badger database, so that discovery can be
// seeded after a restart.
package peers
