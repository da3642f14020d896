package reactor

// QueueKind classifies the events pushed to the Scheduler. Each kind has its
// own FIFO and a weight deciding how many of its events are handed out per
// scheduling round.
type QueueKind int

const (
	// Regular is the default kind for internal events.
	Regular QueueKind = iota
	// NetworkIncoming carries messages received from other nodes.
	NetworkIncoming
	// Network carries connection and listener events.
	Network
	// API carries requests issued by clients of the node.
	API
)

// Kinds lists every QueueKind in scheduling order.
var Kinds = []QueueKind{Regular, NetworkIncoming, Network, API}

// Weight returns the number of events of this kind popped per round.
func (k QueueKind) Weight() int {
	switch k {
	case Regular:
		return 8
	case NetworkIncoming:
		return 4
	case Network:
		return 4
	case API:
		return 16
	default:
		return 1
	}
}

// String ...
func (k QueueKind) String() string {
	switch k {
	case Regular:
		return "Regular"
	case NetworkIncoming:
		return "NetworkIncoming"
	case Network:
		return "Network"
	case API:
		return "API"
	default:
		return "Unknown"
	}
}
