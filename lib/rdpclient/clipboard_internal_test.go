package rdpclient

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rustconn/rustconn/lib/pixel"
)

type nullTransport struct{ sent []Command }

func (t *nullTransport) Connect(ctx context.Context, security SecurityProtocol) error { return nil }
func (t *nullTransport) Send(cmd Command) error                                       { t.sent = append(t.sent, cmd); return nil }
func (t *nullTransport) Close() error                                                  { return nil }

func newInternalTestClient(t *testing.T) (*Client, *nullTransport) {
	t.Helper()
	tr := &nullTransport{}
	c, err := New(Config{Addr: "x:3389", Username: "a", Password: "b", Transport: tr})
	require.NoError(t, err)
	return c, tr
}

// TestOnClipboardFormatListPrefersUnicode exercises the Client's handler
// for a remote CLIPRDR format-list announcement.
func TestOnClipboardFormatListPrefersUnicode(t *testing.T) {
	c, tr := newInternalTestClient(t)
	c.onClipboardFormatList([]pixel.Format{{ID: CFText}, {ID: CFUnicodeText}})

	ev := <-c.clipEgress
	require.Equal(t, ClipboardPasteRequest, ev.Kind)

	req, ok := tr.sent[0].(CmdRequestClipboardData)
	require.True(t, ok)
	require.Equal(t, CFUnicodeText, req.FormatID)
}

func TestOnClipboardDataDecodesUnicodeText(t *testing.T) {
	c, _ := newInternalTestClient(t)
	require.NoError(t, c.onClipboardData(CFUnicodeText, encodeUTF16LE("hi")))

	ev := <-c.clipEgress
	require.Equal(t, ClipboardDataReady, ev.Kind)
	require.Equal(t, "hi", string(ev.Data))
}

func TestClipboardStateChannelReadyAdvertisesEmptyList(t *testing.T) {
	var cs clipboardState
	require.Nil(t, cs.onChannelReady())
	require.True(t, cs.ready)
}

func TestDecodeClipboardDataLatin1(t *testing.T) {
	text, files, err := decodeClipboardData(CFText, append([]byte("ok"), 0))
	require.NoError(t, err)
	require.Nil(t, files)
	require.Equal(t, "ok", text)
}

func TestOnClipboardDataDecodesFileList(t *testing.T) {
	c, _ := newInternalTestClient(t)

	entry := make([]byte, fgdEntrySize)
	name := encodeUTF16LE("report.pdf")
	copy(entry[fgdNameOffset:fgdNameOffset+len(name)], name)

	payload := make([]byte, 4+len(entry))
	payload[0] = 1
	copy(payload[4:], entry)

	require.NoError(t, c.onClipboardData(CFHDrop, payload))

	ev := <-c.clipEgress
	require.Equal(t, ClipboardFileList, ev.Kind)
	require.Len(t, ev.Files, 1)
	require.Equal(t, "report.pdf", ev.Files[0].Name)
}
