package vncclient_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/gravitational/trace"
	"github.com/stretchr/testify/require"

	"github.com/rustconn/rustconn/lib/vncclient"
)

type fakeTransport struct {
	mu          sync.Mutex
	connects    int
	sent        []vncclient.Command
	refreshes   int
	connectErr  error
}

func (f *fakeTransport) Connect(ctx context.Context, encodings []string, shared bool, password string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connects++
	return f.connectErr
}

func (f *fakeTransport) Send(cmd vncclient.Command) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, cmd)
	return nil
}

func (f *fakeTransport) Refresh() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshes++
	return nil
}

func (f *fakeTransport) Close() error { return nil }

func newTestClient(t *testing.T, password string, viewOnly bool) (*vncclient.Client, *fakeTransport) {
	t.Helper()
	tr := &fakeTransport{}
	c, err := vncclient.New(vncclient.Config{
		Addr:      "10.0.0.1:5900",
		Password:  password,
		ViewOnly:  viewOnly,
		Transport: tr,
	})
	require.NoError(t, err)
	return c, tr
}

func TestNewAppliesDefaultEncodings(t *testing.T) {
	tr := &fakeTransport{}
	c, err := vncclient.New(vncclient.Config{Addr: "x:5900", Transport: tr})
	require.NoError(t, err)
	require.Equal(t, vncclient.DefaultEncodings, c.Encodings)
}

func TestRunWithPasswordReachesActive(t *testing.T) {
	c, _ := newTestClient(t, "secret", false)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	ev := <-c.Egress()
	require.Equal(t, vncclient.EventConnected, ev.Kind)
	require.Equal(t, vncclient.StateActive, c.State())

	close(c.Ingress())
	require.NoError(t, <-done)
}

func TestViewOnlyDropsKeyAndPointerEvents(t *testing.T) {
	c, tr := newTestClient(t, "secret", true)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go c.Run(ctx)
	<-c.Egress() // Connected

	c.Ingress() <- vncclient.CmdKeyEvent{Keysym: 'a', Pressed: true}
	c.Ingress() <- vncclient.CmdPointerEvent{X: 1, Y: 1}
	c.Ingress() <- vncclient.CmdDisconnect{}
	<-c.Egress() // Disconnected

	tr.mu.Lock()
	defer tr.mu.Unlock()
	require.Empty(t, tr.sent)
}

func TestSendCtrlAltDelEmitsExactKeysymSequence(t *testing.T) {
	c, tr := newTestClient(t, "secret", false)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go c.Run(ctx)
	<-c.Egress()

	c.Ingress() <- vncclient.CmdSendCtrlAltDel{}
	require.Eventually(t, func() bool {
		tr.mu.Lock()
		defer tr.mu.Unlock()
		return len(tr.sent) == 6
	}, time.Second, 5*time.Millisecond)

	tr.mu.Lock()
	defer tr.mu.Unlock()
	want := []vncclient.CmdKeyEvent{
		{Keysym: vncclient.KeysymCtrlL, Pressed: true},
		{Keysym: vncclient.KeysymAltL, Pressed: true},
		{Keysym: vncclient.KeysymDelete, Pressed: true},
		{Keysym: vncclient.KeysymDelete, Pressed: false},
		{Keysym: vncclient.KeysymAltL, Pressed: false},
		{Keysym: vncclient.KeysymCtrlL, Pressed: false},
	}
	for i, w := range want {
		require.Equal(t, w, tr.sent[i])
	}
}

func TestTypeTextASCIIAndUnicodeKeysyms(t *testing.T) {
	c, tr := newTestClient(t, "secret", false)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go c.Run(ctx)
	<-c.Egress()

	c.Ingress() <- vncclient.CmdTypeText{Text: "aé"}
	require.Eventually(t, func() bool {
		tr.mu.Lock()
		defer tr.mu.Unlock()
		return len(tr.sent) == 4
	}, time.Second, 5*time.Millisecond)

	tr.mu.Lock()
	defer tr.mu.Unlock()
	require.Equal(t, vncclient.CmdKeyEvent{Keysym: 'a', Pressed: true}, tr.sent[0])
	require.Equal(t, vncclient.CmdKeyEvent{Keysym: 0x010000E9, Pressed: true}, tr.sent[2])
}

func TestRefreshScreenInvokesTransportRefresh(t *testing.T) {
	c, tr := newTestClient(t, "secret", false)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go c.Run(ctx)
	<-c.Egress()

	c.Ingress() <- vncclient.CmdRefreshScreen{}
	require.Eventually(t, func() bool {
		tr.mu.Lock()
		defer tr.mu.Unlock()
		return tr.refreshes >= 1
	}, time.Second, 5*time.Millisecond)
}

func TestConnectFailureWithPasswordFailsImmediately(t *testing.T) {
	tr := &fakeTransport{connectErr: trace.AccessDenied("bad password")}
	c, err := vncclient.New(vncclient.Config{
		Addr:      "10.0.0.1:5900",
		Password:  "wrong",
		Transport: tr,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.Error(t, c.Run(ctx))
	require.Equal(t, vncclient.StateError, c.State())
}

func TestNoPasswordPausesThenAuthenticates(t *testing.T) {
	c, tr := newTestClient(t, "", false)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	ev0 := <-c.Egress()
	require.Equal(t, vncclient.EventAuthRequired, ev0.Kind)

	c.Ingress() <- vncclient.CmdAuthenticate{Password: "now-known"}
	ev := <-c.Egress()
	require.Equal(t, vncclient.EventConnected, ev.Kind)
	require.Equal(t, vncclient.StateActive, c.State())
	require.Equal(t, 1, tr.connects)

	close(c.Ingress())
	require.NoError(t, <-done)
}
