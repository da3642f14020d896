package peers

// PeerTable maps the nodes we are connected to onto the endpoint of the last
// connection established with them.
//
// PeerTable is not safe for concurrent use.
type PeerTable struct {
	peers map[NodeID]Endpoint
}

// NewPeerTable ...
func NewPeerTable() *PeerTable {
	return &PeerTable{
		peers: make(map[NodeID]Endpoint),
	}
}

// Upsert inserts or overwrites the entry of id.
func (pt *PeerTable) Upsert(id NodeID, endpoint Endpoint) {
	pt.peers[id] = endpoint
}

// Remove deletes the entry of id, if any.
func (pt *PeerTable) Remove(id NodeID) {
	delete(pt.peers, id)
}

// Get ...
func (pt *PeerTable) Get(id NodeID) (Endpoint, bool) {
	e, ok := pt.peers[id]
	return e, ok
}

// Contains ...
func (pt *PeerTable) Contains(id NodeID) bool {
	_, ok := pt.peers[id]
	return ok
}

// Len ...
func (pt *PeerTable) Len() int {
	return len(pt.peers)
}

// IDs returns the IDs in the table, sorted.
func (pt *PeerTable) IDs() []NodeID {
	res := make([]NodeID, 0, len(pt.peers))
	for id := range pt.peers {
		res = append(res, id)
	}
	SortNodeIDs(res)
	return res
}

// Snapshot returns a copy of the table mapping each peer to its remote
// address.
func (pt *PeerTable) Snapshot() map[NodeID]string {
	res := make(map[NodeID]string, len(pt.peers))
	for id, e := range pt.peers {
		res[id] = e.RemoteAddr
	}
	return res
}
