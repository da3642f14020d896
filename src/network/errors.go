package network

import (
	"errors"
	"fmt"
)

// ErrorKind enumerates the ways constructing a Network can fail.
type ErrorKind uint32

const (
	// NoKnownAddress means the configuration lists no known address.
	NoKnownAddress ErrorKind = iota
	// KeypairSigning means no node ID could be derived from the key.
	KeypairSigning
	// Swarm means the transport could not be created.
	Swarm
	// Listen means the listening address could not be bound.
	Listen
	// DialPeer means a known address could not be dialed.
	DialPeer
)

// String ...
func (k ErrorKind) String() string {
	switch k {
	case NoKnownAddress:
		return "No Known Address"
	case KeypairSigning:
		return "Keypair Signing"
	case Swarm:
		return "Swarm"
	case Listen:
		return "Listen"
	case DialPeer:
		return "Dial Peer"
	default:
		return "Unknown"
	}
}

// Error is a construction error.
type Error struct {
	Kind    ErrorKind
	Address string
	Err     error
}

func newError(kind ErrorKind, address string, err error) *Error {
	return &Error{
		Kind:    kind,
		Address: address,
		Err:     err,
	}
}

// Error ...
func (e *Error) Error() string {
	m := e.Kind.String()
	if e.Address != "" {
		m = fmt.Sprintf("%s, %s", m, e.Address)
	}
	if e.Err != nil {
		m = fmt.Sprintf("%s: %v", m, e.Err)
	}
	return m
}

// Unwrap ...
func (e *Error) Unwrap() error {
	return e.Err
}

// Is checks that err is, or wraps, an *Error of the given kind.
func Is(err error, kind ErrorKind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// FatalError is returned by HandleEvent when the node can no longer take part
// in the network and must halt.
type FatalError struct {
	Reason string
}

// Error ...
func (e *FatalError) Error() string {
	return "fatal network error: " + e.Reason
}

// IsFatal checks that err is, or wraps, a *FatalError.
func IsFatal(err error) bool {
	var e *FatalError
	return errors.As(err, &e)
}
