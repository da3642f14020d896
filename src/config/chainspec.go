package config

import "fmt"

// Chainspec describes the network a node belongs to. Protocol identifiers are
// derived from it.
type Chainspec struct {
	Name            string
	ProtocolVersion string
}

// OneWayProtocol is the stream protocol carrying direct messages.
func (c Chainspec) OneWayProtocol() string {
	return fmt.Sprintf("/%s/one-way/%s", c.Name, c.ProtocolVersion)
}

// GossipTopic is the pubsub topic carrying gossip messages.
func (c Chainspec) GossipTopic() string {
	return fmt.Sprintf("%s/gossip/%s", c.Name, c.ProtocolVersion)
}

// KademliaPrefix is the protocol prefix of the discovery DHT.
func (c Chainspec) KademliaPrefix() string {
	return "/" + c.Name
}

// IdentifyVersion is the protocol version advertised through identify.
func (c Chainspec) IdentifyVersion() string {
	return fmt.Sprintf("%s/%s", c.Name, c.ProtocolVersion)
}
