package peers

import "sort"

// ConnectionState is the state of a known address.
type ConnectionState uint8

const (
	// Pending is the initial state, until a dial to the address succeeds or
	// fails.
	Pending ConnectionState = iota
	// Connected means a dial to the address succeeded at least once.
	Connected
	// Failed means the address was found unreachable.
	Failed
)

// String ...
func (s ConnectionState) String() string {
	switch s {
	case Pending:
		return "Pending"
	case Connected:
		return "Connected"
	case Failed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// KnownAddresses tracks the connection state of the configured bootstrap
// addresses. The set of addresses is fixed at construction; states only ever
// move out of Pending, never back into it.
//
// KnownAddresses is not safe for concurrent use.
type KnownAddresses struct {
	states map[string]ConnectionState
}

// NewKnownAddresses creates a table with every address Pending. Duplicates are
// collapsed.
func NewKnownAddresses(addresses []string) *KnownAddresses {
	ka := &KnownAddresses{
		states: make(map[string]ConnectionState, len(addresses)),
	}
	for _, a := range addresses {
		ka.states[a] = Pending
	}
	return ka
}

// MarkConnected moves address from Pending to Connected. It returns false if
// the address is unknown or not Pending.
func (ka *KnownAddresses) MarkConnected(address string) bool {
	return ka.transition(address, Connected)
}

// MarkFailed moves address from Pending to Failed. It returns false if the
// address is unknown or not Pending.
func (ka *KnownAddresses) MarkFailed(address string) bool {
	return ka.transition(address, Failed)
}

func (ka *KnownAddresses) transition(address string, to ConnectionState) bool {
	state, ok := ka.states[address]
	if !ok || state != Pending {
		return false
	}
	ka.states[address] = to
	return true
}

// State returns the state of address.
func (ka *KnownAddresses) State(address string) (ConnectionState, bool) {
	s, ok := ka.states[address]
	return s, ok
}

// Contains returns true if address is a known address.
func (ka *KnownAddresses) Contains(address string) bool {
	_, ok := ka.states[address]
	return ok
}

// AllFailed returns true when every known address is Failed. An empty table is
// never considered failed.
func (ka *KnownAddresses) AllFailed() bool {
	if len(ka.states) == 0 {
		return false
	}
	for _, s := range ka.states {
		if s != Failed {
			return false
		}
	}
	return true
}

// Addresses returns the known addresses in lexical order.
func (ka *KnownAddresses) Addresses() []string {
	res := make([]string, 0, len(ka.states))
	for a := range ka.states {
		res = append(res, a)
	}
	sort.Strings(res)
	return res
}

// Counts returns the number of addresses in each state.
func (ka *KnownAddresses) Counts() map[ConnectionState]int {
	res := map[ConnectionState]int{
		Pending:   0,
		Connected: 0,
		Failed:    0,
	}
	for _, s := range ka.states {
		res[s]++
	}
	return res
}

// Len returns the number of known addresses.
func (ka *KnownAddresses) Len() int {
	return len(ka.states)
}
