package peers

import (
	"sync"
)

// PeerCache remembers the listening addresses that other nodes advertised, so
// that a restarted node can seed its discovery mechanism with them.
type PeerCache interface {
	// Put replaces the addresses recorded for id.
	Put(id NodeID, addrs []string) error
	// All returns every recorded node with its addresses.
	All() (map[NodeID][]string, error)
	Close() error
}

// InmemPeerCache is a PeerCache that only lives as long as the process.
type InmemPeerCache struct {
	sync.RWMutex
	addrs map[NodeID][]string
}

// NewInmemPeerCache ...
func NewInmemPeerCache() *InmemPeerCache {
	return &InmemPeerCache{
		addrs: make(map[NodeID][]string),
	}
}

// Put implements PeerCache.
func (c *InmemPeerCache) Put(id NodeID, addrs []string) error {
	c.Lock()
	defer c.Unlock()
	c.addrs[id] = append([]string{}, addrs...)
	return nil
}

// All implements PeerCache.
func (c *InmemPeerCache) All() (map[NodeID][]string, error) {
	c.RLock()
	defer c.RUnlock()
	res := make(map[NodeID][]string, len(c.addrs))
	for id, a := range c.addrs {
		res[id] = append([]string{}, a...)
	}
	return res, nil
}

// Close implements PeerCache.
func (c *InmemPeerCache) Close() error {
	return nil
}
