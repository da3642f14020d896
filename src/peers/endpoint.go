package peers

import "fmt"

// Role says which side of a connection we are on.
type Role uint8

const (
	// Dialer means we initiated the connection.
	Dialer Role = iota
	// Listener means the remote node dialed us.
	Listener
)

// String ...
func (r Role) String() string {
	switch r {
	case Dialer:
		return "Dialer"
	case Listener:
		return "Listener"
	default:
		return "Unknown"
	}
}

// Endpoint is the metadata of an established connection.
type Endpoint struct {
	Role Role
	// RemoteAddr is the address we dialed when Role is Dialer, and the address
	// the remote node connected from otherwise.
	RemoteAddr string
	LocalAddr  string
}

// IsDialer returns true when the connection resulted from an outbound dial.
func (e Endpoint) IsDialer() bool {
	return e.Role == Dialer
}

// String ...
func (e Endpoint) String() string {
	return fmt.Sprintf("%s{remote: %s, local: %s}", e.Role, e.RemoteAddr, e.LocalAddr)
}
