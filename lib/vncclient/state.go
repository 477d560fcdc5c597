// Package vncclient implements spec.md §4.G's VNC client core: a
// per-session state machine, ingress/egress vocabulary, and ~60 Hz
// refresh pacing over github.com/mitchellh/go-vnc's RFB 3.x client.
package vncclient

import "fmt"

// State is a node in the VNC client's connection state machine.
type State int

const (
	StateConnecting State = iota
	StateAuthenticating
	StateActive
	StateTerminated
	StateError
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "Connecting"
	case StateAuthenticating:
		return "Authenticating"
	case StateActive:
		return "Active"
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
	ErrorProtocol
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorConnectionFailed:
		return "ConnectionFailed"
	case ErrorAuthenticationFailed:
		return "AuthenticationFailed"
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

// RefreshIntervalMillis is the core's refresh tick pacing, per
// original_source/rustconn-core/src/ffi/vnc.rs's ~60 Hz constant.
const RefreshIntervalMillis = 16
