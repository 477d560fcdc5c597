package session_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/gravitational/trace"
	"github.com/stretchr/testify/require"

	"github.com/rustconn/rustconn/lib/session"
)

type fakeRunner struct {
	mu       sync.Mutex
	closed   bool
	runErr   error
	started  chan struct{}
	startOne sync.Once
}

func newFakeRunner(runErr error) *fakeRunner {
	return &fakeRunner{runErr: runErr, started: make(chan struct{})}
}

func (r *fakeRunner) Run(ctx context.Context) error {
	r.startOne.Do(func() { close(r.started) })
	<-ctx.Done()
	return r.runErr
}

func (r *fakeRunner) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *fakeRunner) isClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

func TestPixelWorkerStopCancelsRunAndClosesRunner(t *testing.T) {
	runner := newFakeRunner(nil)
	w := session.NewPixelWorker(runner)

	require.NoError(t, w.Start(context.Background()))

	select {
	case <-runner.started:
	case <-time.After(time.Second):
		t.Fatal("runner never started")
	}

	w.Stop()

	select {
	case <-w.Done():
	case <-time.After(time.Second):
		t.Fatal("worker never reached Done after Stop")
	}

	require.True(t, runner.isClosed())
	require.NoError(t, w.Err())
}

func TestPixelWorkerSurfacesRunError(t *testing.T) {
	wantErr := trace.ConnectionProblem(nil, "reset by peer")
	runner := newFakeRunner(wantErr)
	w := session.NewPixelWorker(runner)

	require.NoError(t, w.Start(context.Background()))
	w.Stop()

	<-w.Done()
	require.Error(t, w.Err())
}
