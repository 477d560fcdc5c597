package session

import (
	"context"
	"io"
	"os"
	"os/exec"
	"sync"

	"github.com/creack/pty"
	"github.com/gravitational/trace"
)

// TerminalWorker is the terminal-hosted-session worker shape of spec.md
// §4.H: a child process (ssh, or a shell running a Zero-Trust provider's
// command) connected to a pty that a host's terminal widget reads from
// and writes to. Command construction (ssh argv, ZT provider command
// templates) lives in lib/terminal; TerminalWorker only owns the
// process/pty lifecycle.
type TerminalWorker struct {
	cmd *exec.Cmd
	pty *os.File

	// LogWriter, if set, receives a copy of every byte read from Reader
	// — the rotating session-log capture of spec.md §4.I. Reader tees
	// through io.TeeReader, so a write error from LogWriter is returned
	// from that Read.
	LogWriter io.Writer

	mu       sync.Mutex
	err      error
	done     chan struct{}
	stopOnce sync.Once
}

// NewTerminalWorker builds a TerminalWorker around cmd, which must not
// yet have been started.
func NewTerminalWorker(cmd *exec.Cmd) *TerminalWorker {
	return &TerminalWorker{cmd: cmd, done: make(chan struct{})}
}

// PTY returns the worker's pty master for writing (keystrokes) and
// resizing, valid only after Start succeeds.
func (w *TerminalWorker) PTY() *os.File { return w.pty }

// Reader returns the stream a host's terminal widget should read
// on-screen output from: the pty, teed to LogWriter if one is
// configured. Calling Reader more than once is unsupported — the pty
// has exactly one reader.
func (w *TerminalWorker) Reader() io.Reader {
	if w.LogWriter == nil {
		return w.pty
	}
	return io.TeeReader(w.pty, w.LogWriter)
}

func (w *TerminalWorker) Start(ctx context.Context) error {
	f, err := pty.Start(w.cmd)
	if err != nil {
		return trace.Wrap(err)
	}
	w.pty = f

	go func() {
		defer close(w.done)
		err := w.cmd.Wait()
		w.mu.Lock()
		w.err = err
		w.mu.Unlock()
	}()
	return nil
}

func (w *TerminalWorker) Stop() {
	w.stopOnce.Do(func() {
		if w.cmd.Process != nil {
			_ = w.cmd.Process.Kill()
		}
		if w.pty != nil {
			_ = w.pty.Close()
		}
		if closer, ok := w.LogWriter.(io.Closer); ok {
			_ = closer.Close()
		}
	})
}

func (w *TerminalWorker) Done() <-chan struct{} { return w.done }

func (w *TerminalWorker) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}
