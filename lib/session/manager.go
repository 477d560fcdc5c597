package session

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/gravitational/trace"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"

	"github.com/rustconn/rustconn/lib/catalog"
	"github.com/rustconn/rustconn/lib/secret"
)

// Config configures a Manager.
type Config struct {
	// Chain is the Secret Chain the Manager is configured with. Start does
	// not consult it; credentials come from the resolve function passed to
	// Start.
	Chain *secret.Chain
	// Clock is injected for testability.
	Clock clockwork.Clock
	// Log is a component logger.
	Log logrus.FieldLogger
	// Ended receives one EndedEvent per terminated session. If nil, a
	// buffered internal channel is created and events are dropped once
	// full (callers that need every event should provide their own
	// sufficiently-buffered channel).
	Ended chan EndedEvent
}

func (c *Config) CheckAndSetDefaults() error {
	if c.Chain == nil {
		return trace.BadParameter("missing Chain")
	}
	if c.Clock == nil {
		c.Clock = clockwork.NewRealClock()
	}
	if c.Log == nil {
		c.Log = logrus.WithField(trace.Component, "session")
	}
	if c.Ended == nil {
		c.Ended = make(chan EndedEvent, 64)
	}
	return nil
}

// Manager is the process-wide session registry of spec.md §4.H: a
// session_id→Session map plus a connection_id→[]session_id index,
// single-writer/multi-reader under a short lock.
type Manager struct {
	Config

	mu           sync.RWMutex
	sessions     map[uuid.UUID]*Session
	byConnection map[uuid.UUID][]uuid.UUID
}

// NewManager builds a Manager.
func NewManager(cfg Config) (*Manager, error) {
	if err := cfg.CheckAndSetDefaults(); err != nil {
		return nil, trace.Wrap(err)
	}
	return &Manager{
		Config:       cfg,
		sessions:     make(map[uuid.UUID]*Session),
		byConnection: make(map[uuid.UUID][]uuid.UUID),
	}, nil
}

// WorkerFactory builds the Worker for a newly-created Session, given its
// resolved credentials. Supplied by the caller so Manager stays
// protocol-agnostic (RDP/VNC/terminal workers are all constructed the
// same way from the orchestrator's point of view).
type WorkerFactory func(ctx context.Context, conn *catalog.Connection, creds *catalog.Credentials) (Worker, error)

// Start resolves credentials for conn by calling resolve (the Secret
// Chain is not consulted), builds a Worker via factory, starts it, and
// registers the new Session once it has moved from StateStarting to
// Active. If any of these steps fails, no Session is registered.
func (m *Manager) Start(ctx context.Context, conn *catalog.Connection, resolve func(ctx context.Context) (*catalog.Credentials, error), factory WorkerFactory) (*Session, error) {
	creds, err := resolve(ctx)
	if err != nil {
		return nil, trace.Wrap(err)
	}

	id := uuid.New()
	rec := catalog.Session{
		ID:             id,
		ConnectionID:   conn.ID,
		ConnectionName: conn.Name,
		Protocol:       conn.Protocol,
		State:          catalog.SessionStarting,
		StartedAt:      m.Clock.Now(),
		Host:           conn.Host,
		GroupID:        conn.GroupID,
	}

	sess := &Session{
		record: rec,
		state:  catalog.SessionStarting,
		creds:  creds,
		done:   make(chan struct{}),
		clock:  m.Clock,
		log:    m.Log,
	}

	worker, err := factory(ctx, conn, creds)
	if err != nil {
		creds.Wipe()
		return nil, trace.Wrap(err)
	}
	sess.worker = worker

	if err := worker.Start(ctx); err != nil {
		creds.Wipe()
		return nil, trace.Wrap(err)
	}
	sess.setState(catalog.SessionActive)

	m.mu.Lock()
	m.sessions[id] = sess
	m.byConnection[conn.ID] = append(m.byConnection[conn.ID], id)
	m.mu.Unlock()

	go m.watch(sess)

	return sess, nil
}

// watch waits for the worker to finish, then tears the session down:
// removes it from the registry, wipes its credential cache, and emits a
// SessionEnded event. This is the child-exit/Disconnected/Error-driven
// teardown path of spec.md §4.H, unified across worker kinds since both
// pixel and terminal Workers signal completion via Done().
func (m *Manager) watch(sess *Session) {
	<-sess.worker.Done()

	outcome := OutcomeDisconnected
	err := sess.worker.Err()
	if err != nil {
		outcome = OutcomeError
	}

	sess.setState(catalog.SessionTerminated)
	if sess.creds != nil {
		sess.creds.Wipe()
	}
	close(sess.done)

	m.mu.Lock()
	delete(m.sessions, sess.record.ID)
	ids := m.byConnection[sess.record.ConnectionID]
	for i, id := range ids {
		if id == sess.record.ID {
			m.byConnection[sess.record.ConnectionID] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	if len(m.byConnection[sess.record.ConnectionID]) == 0 {
		delete(m.byConnection, sess.record.ConnectionID)
	}
	m.mu.Unlock()

	select {
	case m.Ended <- EndedEvent{SessionID: sess.record.ID, Outcome: outcome, Err: err}:
	default:
	}
}

// Get returns the Session for id, or NotFound.
func (m *Manager) Get(id uuid.UUID) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[id]
	if !ok {
		return nil, trace.NotFound("session %s not found", id)
	}
	return sess, nil
}

// ByConnection returns the Sessions currently active for connectionID.
func (m *Manager) ByConnection(connectionID uuid.UUID) []*Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := m.byConnection[connectionID]
	out := make([]*Session, 0, len(ids))
	for _, id := range ids {
		if sess, ok := m.sessions[id]; ok {
			out = append(out, sess)
		}
	}
	return out
}

// List returns a snapshot of every active Session record.
func (m *Manager) List() []catalog.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]catalog.Session, 0, len(m.sessions))
	for _, sess := range m.sessions {
		out = append(out, sess.Record())
	}
	return out
}

// DisconnectAll disconnects every registered session, for process
// shutdown.
func (m *Manager) DisconnectAll() {
	m.mu.RLock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, sess := range m.sessions {
		sessions = append(sessions, sess)
	}
	m.mu.RUnlock()

	for _, sess := range sessions {
		sess.Disconnect()
	}
}
