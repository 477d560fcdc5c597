// Package rdpclient implements spec.md §4.F's RDP client core: a
// per-session state machine driving the protocol, a command ingress and
// event egress channel pair, and the clipboard virtual-channel
// sub-state-machine. Wire-level PDU encoding, X.224/MCS negotiation, and
// NLA/CredSSP authentication are delegated to a caller-supplied
// Transport implementation (see client.go and DESIGN.md's note on this
// component for why no such implementation ships in this tree); this
// package owns the state machine, vocabulary, and clipboard byte layouts
// that sit above it.
package rdpclient

import "fmt"

// State is a node in the RDP client's connection state machine.
type State int

const (
	StateConnecting State = iota
	StateNegotiating
	StateAuthenticating
	StateLicensing
	StateActive
	StateDisconnecting
	StateTerminated
	StateError
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "Connecting"
	case StateNegotiating:
		return "Negotiating"
	case StateAuthenticating:
		return "Authenticating"
	case StateLicensing:
		return "Licensing"
	case StateActive:
		return "Active"
	case StateDisconnecting:
		return "Disconnecting"
	case StateTerminated:
		return "Terminated"
	case StateError:
		return "Error"
	default:
		return "Unknown"
	}
}

// ErrorKind classifies a terminal Error state.
type ErrorKind int

const (
	ErrorConnectionFailed ErrorKind = iota
	ErrorAuthenticationFailed
	ErrorCertificate
	ErrorProtocol
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorConnectionFailed:
		return "ConnectionFailed"
	case ErrorAuthenticationFailed:
		return "AuthenticationFailed"
	case ErrorCertificate:
		return "Certificate"
	case ErrorProtocol:
		return "Protocol"
	default:
		return "Unknown"
	}
}

// StateError describes a transition into StateError.
type StateError struct {
	Kind ErrorKind
	Msg  string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

// SecurityProtocol selects the RDP security negotiation strategy.
type SecurityProtocol int

const (
	SecurityAuto SecurityProtocol = iota
	SecurityRdp
	SecurityTls
	SecurityNla
	SecurityExt
)
