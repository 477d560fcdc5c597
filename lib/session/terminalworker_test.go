package session_test

import (
	"bytes"
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rustconn/rustconn/lib/session"
)

func TestTerminalWorkerRunsCommandAndReportsExit(t *testing.T) {
	cmd := exec.Command("sh", "-c", "echo hello; sleep 0.05")
	w := session.NewTerminalWorker(cmd)

	require.NoError(t, w.Start(context.Background()))
	require.NotNil(t, w.PTY())

	select {
	case <-w.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("terminal worker never finished")
	}

	require.NoError(t, w.Err())
}

func TestTerminalWorkerReaderTeesToLogWriter(t *testing.T) {
	cmd := exec.Command("sh", "-c", "printf hi")
	w := session.NewTerminalWorker(cmd)

	var logBuf bytes.Buffer
	w.LogWriter = &logBuf

	require.NoError(t, w.Start(context.Background()))

	buf := make([]byte, 32)
	n, _ := w.Reader().Read(buf)
	require.Greater(t, n, 0)

	<-w.Done()
	require.Contains(t, logBuf.String(), "hi")
}

func TestTerminalWorkerStopKillsProcess(t *testing.T) {
	cmd := exec.Command("sleep", "30")
	w := session.NewTerminalWorker(cmd)

	require.NoError(t, w.Start(context.Background()))
	w.Stop()

	select {
	case <-w.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("terminal worker never reached Done after Stop")
	}

	// Calling Stop twice must not panic (sync.Once guard).
	w.Stop()
}
