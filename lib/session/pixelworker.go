package session

import (
	"context"
	"sync"
)

// PixelRunner is the shape both rdpclient.Client and vncclient.Client
// satisfy: a command-driven Run loop that returns once its context is
// canceled, its ingress channel closes, or it errors out.
type PixelRunner interface {
	Run(ctx context.Context) error
	Close() error
}

// PixelWorker adapts a PixelRunner (an rdpclient or vncclient Client) to
// the Worker interface: it runs the protocol core in a goroutine, per
// spec.md §4.H's "spawn a goroutine carrying the protocol core's run
// loop" pixel-worker shape (Go's goroutine scheduling stands in for the
// single-threaded async runtime the original spins up per OS thread —
// the channel discipline spec.md §5 describes maps directly onto Go
// channels without needing a separate runtime object).
type PixelWorker struct {
	runner PixelRunner
	cancel context.CancelFunc

	mu   sync.Mutex
	err  error
	done chan struct{}
}

// NewPixelWorker wraps runner as a Worker.
func NewPixelWorker(runner PixelRunner) *PixelWorker {
	return &PixelWorker{runner: runner, done: make(chan struct{})}
}

func (w *PixelWorker) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	go func() {
		defer close(w.done)
		err := w.runner.Run(ctx)
		w.mu.Lock()
		w.err = err
		w.mu.Unlock()
	}()
	return nil
}

func (w *PixelWorker) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	_ = w.runner.Close()
}

func (w *PixelWorker) Done() <-chan struct{} { return w.done }

func (w *PixelWorker) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}
