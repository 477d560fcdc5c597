package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gravitational/trace"
	"github.com/stretchr/testify/require"

	"github.com/rustconn/rustconn/lib/catalog"
	"github.com/rustconn/rustconn/lib/secret"
	"github.com/rustconn/rustconn/lib/session"
)

type fakeWorker struct {
	done    chan struct{}
	err     error
	stopped chan struct{}
}

func newFakeWorker() *fakeWorker {
	return &fakeWorker{done: make(chan struct{}), stopped: make(chan struct{})}
}

func (w *fakeWorker) Start(ctx context.Context) error { return nil }
func (w *fakeWorker) Stop() {
	close(w.stopped)
	close(w.done)
}
func (w *fakeWorker) Done() <-chan struct{} { return w.done }
func (w *fakeWorker) Err() error            { return w.err }

func newTestManager(t *testing.T) *session.Manager {
	t.Helper()
	chain := secret.New(secret.NewMemoryBackend())
	m, err := session.NewManager(session.Config{Chain: chain})
	require.NoError(t, err)
	return m
}

func testConnection() *catalog.Connection {
	return &catalog.Connection{
		ID:       uuid.New(),
		Name:     "test-box",
		Protocol: catalog.ProtocolSSH,
		Host:     "10.0.0.5",
		Port:     22,
	}
}

func TestManagerStartRegistersActiveSession(t *testing.T) {
	m := newTestManager(t)
	conn := testConnection()
	fw := newFakeWorker()

	sess, err := m.Start(context.Background(), conn,
		func(ctx context.Context) (*catalog.Credentials, error) {
			return catalog.NewCredentials("root", "hunter2", ""), nil
		},
		func(ctx context.Context, c *catalog.Connection, creds *catalog.Credentials) (session.Worker, error) {
			return fw, nil
		},
	)
	require.NoError(t, err)
	require.Equal(t, catalog.SessionActive, sess.State())

	got, err := m.Get(sess.Record().ID)
	require.NoError(t, err)
	require.Same(t, sess, got)

	byConn := m.ByConnection(conn.ID)
	require.Len(t, byConn, 1)
}

func TestManagerWatchTearsDownOnWorkerDone(t *testing.T) {
	m := newTestManager(t)
	conn := testConnection()
	fw := newFakeWorker()

	sess, err := m.Start(context.Background(), conn,
		func(ctx context.Context) (*catalog.Credentials, error) {
			return catalog.NewCredentials("root", "hunter2", ""), nil
		},
		func(ctx context.Context, c *catalog.Connection, creds *catalog.Credentials) (session.Worker, error) {
			return fw, nil
		},
	)
	require.NoError(t, err)

	close(fw.done)

	select {
	case <-sess.Done():
	case <-time.After(time.Second):
		t.Fatal("session never reached Done")
	}

	require.Equal(t, catalog.SessionTerminated, sess.State())
	require.Empty(t, sess.Credentials().Password())

	_, err = m.Get(sess.Record().ID)
	require.Error(t, err)
	require.Empty(t, m.ByConnection(conn.ID))
}

func TestManagerStartFailsWhenResolveFails(t *testing.T) {
	m := newTestManager(t)
	conn := testConnection()

	_, err := m.Start(context.Background(), conn,
		func(ctx context.Context) (*catalog.Credentials, error) {
			return nil, trace.NotFound("no credentials")
		},
		func(ctx context.Context, c *catalog.Connection, creds *catalog.Credentials) (session.Worker, error) {
			t.Fatal("factory should not be called")
			return nil, nil
		},
	)
	require.Error(t, err)
}

func TestManagerDisconnectAllStopsEveryWorker(t *testing.T) {
	m := newTestManager(t)
	conn := testConnection()
	fw1, fw2 := newFakeWorker(), newFakeWorker()

	resolve := func(ctx context.Context) (*catalog.Credentials, error) {
		return catalog.NewCredentials("root", "hunter2", ""), nil
	}
	_, err := m.Start(context.Background(), conn, resolve,
		func(ctx context.Context, c *catalog.Connection, creds *catalog.Credentials) (session.Worker, error) {
			return fw1, nil
		})
	require.NoError(t, err)
	_, err = m.Start(context.Background(), conn, resolve,
		func(ctx context.Context, c *catalog.Connection, creds *catalog.Credentials) (session.Worker, error) {
			return fw2, nil
		})
	require.NoError(t, err)

	m.DisconnectAll()

	require.Eventually(t, func() bool {
		select {
		case <-fw1.stopped:
			select {
			case <-fw2.stopped:
				return true
			default:
				return false
			}
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)
}
