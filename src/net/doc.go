// Package net implements the transport layer that gossipnet nodes use to
// communicate.
//
// The transport is abstracted behind the Swarm interface. A Swarm accepts
// commands (Listen, Dial, SendOneWay, Gossip, DiscoverPeers) which return
// immediately, and reports everything that happens on the network as a stream
// of SwarmEvents. The owner of a Swarm drives it from a single goroutine.
//
// There are two implementations:
//
// - Libp2p: the production swarm, based on a libp2p host
//
// - Inmem: in-memory swarm used only for testing
//
// Libp2p
//
// Connections are TCP, authenticated and encrypted with Noise, and multiplexed
// with Yamux. Peers exchange Identify information when they connect; the
// listening addresses they advertise are fed to a Kademlia DHT which nodes
// query periodically to find new peers. The protocol names, the Kademlia
// prefix and the gossip topic all derive from the Chainspec, so that nodes of
// different networks or protocol versions ignore each other.
//
// Direct messages are written on a dedicated stream, as a single varint length
// prefixed frame, and are never answered. Gossip uses GossipSub over a single
// topic, with signed messages.
//
// Addresses
//
// Addresses are either "host:port" or multiaddrs. Because libp2p connections
// are authenticated, an address can only be dialed if it ends with the
// /p2p/<peer-id> of the remote node. Events always carry the transport part of
// addresses, without the peer ID, as returned by NormalizeAddress.
//
// Inmem
//
// InmemSwarms are attached to an InmemNetwork, through which they find each
// other by listen address. They deliver messages synchronously and record
// every command they receive, which makes them convenient to test the layers
// above.
package net
