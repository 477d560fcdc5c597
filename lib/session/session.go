// Package session implements spec.md §4.H's orchestrator: a Session
// record and worker pair per active connection, a lifecycle FSM, a
// process-wide registry, and a per-session credential cache, composed
// over the pixel and terminal protocol cores.
package session

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"

	"github.com/rustconn/rustconn/lib/catalog"
)

// Worker is the runtime shape a Session drives: a pixel worker
// (goroutine + channels, wrapping an rdpclient/vncclient Client) or a
// terminal worker (child process + pty).
type Worker interface {
	// Start launches the worker. It must not block past session setup;
	// ongoing work runs in a goroutine the worker owns.
	Start(ctx context.Context) error
	// Stop requests the worker terminate, per spec.md §5's "Disconnect
	// always accepted, never blocked longer than a short bounded
	// interval" cancellation guarantee.
	Stop()
	// Done is closed when the worker has fully terminated.
	Done() <-chan struct{}
	// Err returns the worker's terminal error, if it ended abnormally.
	Err() error
}

// Outcome classifies why a Session reached SessionTerminated.
type Outcome int

const (
	OutcomeDisconnected Outcome = iota
	OutcomeError
	OutcomeChildExited
)

func (o Outcome) String() string {
	switch o {
	case OutcomeDisconnected:
		return "disconnected"
	case OutcomeError:
		return "error"
	case OutcomeChildExited:
		return "child_exited"
	default:
		return "unknown"
	}
}

// EndedEvent is emitted on a Manager's SessionEnded stream.
type EndedEvent struct {
	SessionID uuid.UUID
	Outcome   Outcome
	Err       error
}

// Session is the runtime counterpart to a catalog.Session snapshot: it
// owns the worker, the lifecycle FSM, and the credential cache for one
// active connection attempt.
type Session struct {
	record catalog.Session

	mu    sync.RWMutex
	state catalog.SessionState

	worker Worker
	creds  *catalog.Credentials

	stopOnce sync.Once
	done     chan struct{}

	clock clockwork.Clock
	log   logrus.FieldLogger
}

// Record returns a snapshot of the Session's catalog record, with the
// current State filled in.
func (s *Session) Record() catalog.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec := s.record
	rec.State = s.state
	return rec
}

// State returns the Session's current lifecycle state.
func (s *Session) State() catalog.SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Session) setState(st catalog.SessionState) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// Credentials returns the session's cached credentials, or nil if none
// have been resolved (or they have already been wiped).
func (s *Session) Credentials() *catalog.Credentials {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.creds
}

// Disconnect requests the session's worker stop. It is always accepted,
// regardless of lifecycle state, and returns once the stop request has
// been issued (not once the worker has fully torn down — wait on Done
// for that).
func (s *Session) Disconnect() {
	s.stopOnce.Do(func() {
		s.setState(catalog.SessionDisconnecting)
		if s.worker != nil {
			s.worker.Stop()
		}
	})
}

// Done is closed once the session has fully terminated and its
// credential cache has been wiped.
func (s *Session) Done() <-chan struct{} { return s.done }
