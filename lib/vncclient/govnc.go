package vncclient

import (
	"context"
	"net"
	"sync"

	"github.com/gravitational/trace"
	govnc "github.com/mitchellh/go-vnc"

	"github.com/rustconn/rustconn/lib/pixel"
)

// GoVNCTransport is the production Transport, driving a session over
// github.com/mitchellh/go-vnc's RFB implementation. go-vnc only ships a
// decoder for the Raw encoding (ZRLE/Tight/Hextile are negotiated with
// the server but never chosen, since go-vnc has nothing registered to
// decode them), so in practice the server always falls back to Raw
// against this transport regardless of Config.Encodings' preference
// order.
type GoVNCTransport struct {
	addr   string
	dialer net.Dialer

	mu     sync.Mutex
	conn   net.Conn
	client *govnc.ClientConn

	events chan Event
	done   chan struct{}
	wg     sync.WaitGroup
}

// NewGoVNCTransport builds a GoVNCTransport that dials addr when
// Connect is called.
func NewGoVNCTransport(addr string) *GoVNCTransport {
	return &GoVNCTransport{
		addr:   addr,
		events: make(chan Event, 256),
		done:   make(chan struct{}),
	}
}

// Events implements EventSource: decoded framebuffer updates arrive here
// as the transport's read loop drains go-vnc's ServerMessageCh.
func (t *GoVNCTransport) Events() <-chan Event { return t.events }

// Connect dials addr, authenticates with password (go-vnc's
// PasswordAuth, the only scheme RFB servers commonly expose on a raw
// TCP port), negotiates encodings, and starts the background reader
// that turns FramebufferUpdateMessages into Events.
func (t *GoVNCTransport) Connect(ctx context.Context, encodings []string, shared bool, password string) error {
	addr := t.addr
	conn, err := t.dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return trace.ConnectionProblem(err, "dialing %q", addr)
	}

	serverMessages := make(chan govnc.ServerMessage, 64)
	cfg := &govnc.ClientConfig{
		Auth:            []govnc.ClientAuth{&govnc.PasswordAuth{Password: password}},
		Exclusive:       !shared,
		ServerMessageCh: serverMessages,
	}

	client, err := govnc.Connect(ctx, conn, cfg)
	if err != nil {
		conn.Close()
		return trace.AccessDenied("VNC handshake with %q failed: %v", addr, err)
	}

	// go-vnc ships a decoder for Raw only; asking the server for the
	// fancier encodings in encodings costs nothing (RFC allows the
	// server to ignore entries it doesn't implement either) and a
	// genuinely Raw-only server still works.
	encIDs := make([]int32, 0, len(encodings)+1)
	for _, name := range encodings {
		if id, ok := rfbEncodingID(name); ok {
			encIDs = append(encIDs, id)
		}
	}
	encIDs = append(encIDs, rfbEncodingRaw)
	if err := client.SetEncodings(encIDs); err != nil {
		client.Close()
		return trace.Wrap(err, "negotiating encodings with %q", addr)
	}

	t.mu.Lock()
	t.conn, t.client = conn, client
	t.mu.Unlock()

	t.events <- Event{Kind: EventResolutionChanged, Width: int(client.FrameBufferWidth), Height: int(client.FrameBufferHeight)}

	t.wg.Add(1)
	go t.readLoop(serverMessages)

	return trace.Wrap(client.FramebufferUpdateRequest(0, 0, 0, client.FrameBufferWidth, client.FrameBufferHeight))
}

// readLoop drains go-vnc's server message channel, translating each
// FramebufferUpdateMessage's Raw rectangles into pixel.FrameUpdate
// Events, until the connection closes.
func (t *GoVNCTransport) readLoop(serverMessages <-chan govnc.ServerMessage) {
	defer t.wg.Done()
	for {
		select {
		case <-t.done:
			return
		case msg, ok := <-serverMessages:
			if !ok {
				return
			}
			t.dispatch(msg)
		}
	}
}

func (t *GoVNCTransport) dispatch(msg govnc.ServerMessage) {
	switch m := msg.(type) {
	case *govnc.FramebufferUpdateMessage:
		for _, rect := range m.Rectangles {
			raw, ok := rect.Enc.(*govnc.RawEncoding)
			if !ok {
				continue
			}
			pixels := rawColorsToBGRA(raw.Colors)
			frame, err := pixel.Convert(
				pixel.Rect{X: int(rect.X), Y: int(rect.Y), W: int(rect.Width), H: int(rect.Height)},
				pixels, pixel.BGRA,
			)
			if err != nil {
				continue
			}
			t.events <- Event{Kind: EventFrameUpdate, Frame: &frame}
		}
		if t.client != nil {
			_ = t.client.FramebufferUpdateRequest(1, 0, 0, t.client.FrameBufferWidth, t.client.FrameBufferHeight)
		}
	case *govnc.BellMessage:
		t.events <- Event{Kind: EventBell}
	case *govnc.ServerCutTextMessage:
		t.events <- Event{Kind: EventClipboardText, Text: string(m.Text)}
	}
}

// rawColorsToBGRA packs go-vnc's per-pixel 16-bit-scaled RFB Colors down
// to 8 bits per channel and into the BGRA byte order pixel.Convert
// expects for pixel.BGRA input.
func rawColorsToBGRA(colors []govnc.Color) []byte {
	out := make([]byte, 0, len(colors)*4)
	for _, c := range colors {
		out = append(out, byte(c.B>>8), byte(c.G>>8), byte(c.R>>8), 0xFF)
	}
	return out
}

// Send translates an ingress Command into the matching go-vnc call.
func (t *GoVNCTransport) Send(cmd Command) error {
	t.mu.Lock()
	client := t.client
	t.mu.Unlock()
	if client == nil {
		return trace.BadParameter("Send called before Connect")
	}

	switch v := cmd.(type) {
	case CmdKeyEvent:
		return trace.Wrap(client.KeyEvent(v.Keysym, v.Pressed))
	case CmdPointerEvent:
		return trace.Wrap(client.PointerEvent(govnc.ButtonMask(v.Buttons), uint16(v.X), uint16(v.Y)))
	case CmdClipboardText:
		return trace.Wrap(client.ClientCutText(v.Text))
	case CmdSetDesktopSize:
		// go-vnc has no SetDesktopSize RFB extension; resize requests are
		// accepted but silently dropped.
		return nil
	default:
		return trace.BadParameter("unsupported command %T", cmd)
	}
}

// Refresh requests an incremental framebuffer update, driven by the
// Client's refresh tick.
func (t *GoVNCTransport) Refresh() error {
	t.mu.Lock()
	client := t.client
	t.mu.Unlock()
	if client == nil {
		return nil
	}
	return trace.Wrap(client.FramebufferUpdateRequest(1, 0, 0, client.FrameBufferWidth, client.FrameBufferHeight))
}

// Close tears down the TCP connection and stops the read loop.
func (t *GoVNCTransport) Close() error {
	close(t.done)
	t.wg.Wait()

	t.mu.Lock()
	client := t.client
	t.mu.Unlock()
	if client == nil {
		return nil
	}
	return trace.Wrap(client.Close())
}

// RFB well-known encoding type numbers (RFC 6143 §7.7). go-vnc only
// decodes Raw; the rest are requested so a server that only ever sends
// encodings it thinks the client wants still has Raw in its fallback
// list.
const (
	rfbEncodingRaw      int32 = 0
	rfbEncodingCopyRect int32 = 1
	rfbEncodingHextile  int32 = 5
	rfbEncodingZRLE     int32 = 16
	rfbEncodingTight    int32 = 7
)

func rfbEncodingID(name string) (int32, bool) {
	switch name {
	case "Raw":
		return rfbEncodingRaw, true
	case "CopyRect":
		return rfbEncodingCopyRect, true
	case "Hextile":
		return rfbEncodingHextile, true
	case "ZRLE":
		return rfbEncodingZRLE, true
	case "Tight":
		return rfbEncodingTight, true
	default:
		return 0, false
	}
}
