package rdpclient_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rustconn/rustconn/lib/rdpclient"
)

func TestSendCtrlAltDelSequenceViaClient(t *testing.T) {
	// Exercised end-to-end in TestSendCtrlAltDelEmitsSixScancodes; this
	// checks the exact scancode/flag values spec.md §4.F requires.
	c, tr := newTestClient(t, "alice", "hunter2")
	ctx := testContext(t)
	go c.Run(ctx)
	<-c.Egress()

	c.Ingress() <- rdpclient.CmdSendCtrlAltDel{}
	require.Eventually(t, func() bool {
		tr.mu.Lock()
		defer tr.mu.Unlock()
		return len(tr.sent) == 6
	}, testEventuallyTimeout, testEventuallyTick)

	tr.mu.Lock()
	defer tr.mu.Unlock()
	want := []rdpclient.CmdKeyEvent{
		{Scancode: 0x1D, Pressed: true},
		{Scancode: 0x38, Pressed: true},
		{Scancode: 0x53, Pressed: true, Extended: true},
		{Scancode: 0x53, Pressed: false, Extended: true},
		{Scancode: 0x38, Pressed: false},
		{Scancode: 0x1D, Pressed: false},
	}
	for i, w := range want {
		require.Equal(t, w, tr.sent[i])
	}
}
