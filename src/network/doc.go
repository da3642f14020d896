// Package network connects a gossipnet node to its peers.
//
// A Network is created with New, which binds the listener, dials the known
// addresses and starts the server loop. The server loop is the only goroutine
// talking to the Swarm: it forwards queued messages to it, and translates the
// events it reports into Events and Announcements pushed to the node's event
// queue. The node dispatcher then hands Events back to the Network, one at a
// time, through HandleEvent; Announcements (NewPeer, MessageReceived) are for
// the application.
//
// Known addresses
//
// The known addresses are dialed once, at startup. Each one ends up either
// Connected, when a connection we dialed reaches it, or Failed. When every
// known address has Failed the node is isolated and HandleEvent returns a
// *FatalError, unless one of the known addresses is one we listen on, in
// which case the node is a bootstrap node and carries on waiting for others.
// There is no retry.
//
// Messages
//
// SendMessage sends a payload directly to one peer, Broadcast publishes it on
// the gossip topic, and Gossip sends it directly to a random selection of
// peers. Messages which do not encode within the configured size bounds, or
// which are submitted after shutdown, are logged and dropped.
package network
