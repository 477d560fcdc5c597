package vncclient

import (
	"context"
	"sync"
	"time"

	"github.com/gravitational/trace"
	"github.com/sirupsen/logrus"
)

// Transport is the wire-level seam a Client drives to speak RFB. The
// production implementation wraps github.com/mitchellh/go-vnc; tests
// drive a fake.
type Transport interface {
	// Connect negotiates the pixel format (to BGRA), registers Encodings
	// in preference order, and authenticates with Password if set.
	Connect(ctx context.Context, encodings []string, shared bool, password string) error
	// Send delivers one ingress command to the remote session.
	Send(cmd Command) error
	// Refresh requests a full-screen update from the remote, driven by
	// the client's refresh tick.
	Refresh() error
	// Close tears down the transport.
	Close() error
}

// Config configures a Client.
type Config struct {
	Addr string
	// Password, if empty, pauses the client in StateAuthenticating until
	// an Authenticate command arrives.
	Password string
	// Encodings lists preferred RFB encodings, most-preferred first.
	Encodings []string
	// Shared requests a non-exclusive VNC session.
	Shared bool
	// ViewOnly silently drops ingress Key/Pointer events before they
	// reach the wire.
	ViewOnly bool
	// RefreshInterval paces the refresh tick; defaults to ~60 Hz.
	RefreshInterval time.Duration
	Transport       Transport
	Log             logrus.FieldLogger
}

// DefaultEncodings is the preference order used when Config.Encodings is
// unset, grounded on original_source/rustconn-core/src/ffi/vnc.rs's
// gtk-vnc-backed defaults: lossless-first, falling back to Raw.
var DefaultEncodings = []string{"Tight", "ZRLE", "Hextile", "CopyRect", "Raw"}

func (c *Config) CheckAndSetDefaults() error {
	if c.Addr == "" {
		return trace.BadParameter("missing Addr")
	}
	if c.Transport == nil {
		return trace.BadParameter("missing Transport")
	}
	if len(c.Encodings) == 0 {
		c.Encodings = DefaultEncodings
	}
	if c.RefreshInterval <= 0 {
		c.RefreshInterval = RefreshIntervalMillis * time.Millisecond
	}
	if c.Log == nil {
		c.Log = logrus.WithField("vncclient", c.Addr)
	}
	return nil
}

// Client drives one VNC session: a state machine, a command ingress
// channel, and an Event egress channel, per spec.md §4.G.
type Client struct {
	Config

	mu    sync.Mutex
	state State

	ingress chan Command
	egress  chan Event

	closeContext context.Context
	closeCancel  context.CancelFunc
}

// New creates a Client in StateConnecting. Call Run to drive it.
func New(cfg Config) (*Client, error) {
	if err := cfg.CheckAndSetDefaults(); err != nil {
		return nil, trace.Wrap(err)
	}
	closeContext, closeCancel := context.WithCancel(context.Background())
	return &Client{
		Config:       cfg,
		state:        StateConnecting,
		ingress:      make(chan Command, 32),
		egress:       make(chan Event, 256),
		closeContext: closeContext,
		closeCancel:  closeCancel,
	}, nil
}

func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Client) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

func (c *Client) fail(kind ErrorKind, msg string) {
	c.mu.Lock()
	c.state = StateError
	c.mu.Unlock()
	c.egress <- Event{Kind: EventError, Text: msg}
}

// Ingress returns the channel a host posts Commands on.
func (c *Client) Ingress() chan<- Command { return c.ingress }

// Egress returns the event stream.
func (c *Client) Egress() <-chan Event { return c.egress }

// EventSource is implemented by a Transport that delivers frame,
// cursor, and clipboard updates asynchronously off the wire, rather
// than only in direct response to an ingress Command. GoVNCTransport
// implements this; the test fake does not need to.
type EventSource interface {
	Events() <-chan Event
}

// Run negotiates the connection and drives the command loop plus the
// refresh tick until the session terminates, the context is canceled, or
// the ingress channel is closed.
func (c *Client) Run(ctx context.Context) error {
	c.setState(StateAuthenticating)

	// VNC's password exchange happens as part of the connection
	// handshake itself (unlike RDP's separate post-negotiation auth), so
	// with no password in hand the client waits for a CmdAuthenticate
	// before attempting Connect at all.
	if c.Password == "" {
		c.egress <- Event{Kind: EventAuthRequired}
		return c.loop(ctx)
	}

	if err := c.Transport.Connect(ctx, c.Encodings, c.Shared, c.Password); err != nil {
		c.fail(ErrorAuthenticationFailed, err.Error())
		return trace.Wrap(err)
	}
	c.setState(StateActive)
	c.egress <- Event{Kind: EventConnected}
	c.startForwardingTransportEvents()

	return c.loop(ctx)
}

// startForwardingTransportEvents relays es.Events() onto c.egress for the
// lifetime of the connection, if the Transport is an EventSource.
func (c *Client) startForwardingTransportEvents() {
	es, ok := c.Transport.(EventSource)
	if !ok {
		return
	}
	go func() {
		for {
			select {
			case <-c.closeContext.Done():
				return
			case e, ok := <-es.Events():
				if !ok {
					return
				}
				c.egress <- e
			}
		}
	}()
}

func (c *Client) loop(ctx context.Context) error {
	ticker := time.NewTicker(c.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.setState(StateTerminated)
			return ctx.Err()
		case <-c.closeContext.Done():
			c.setState(StateTerminated)
			return nil
		case <-ticker.C:
			if c.State() == StateActive {
				_ = c.Transport.Refresh()
			}
		case cmd, ok := <-c.ingress:
			if !ok {
				c.setState(StateTerminated)
				return nil
			}
			if err := c.handle(cmd); err != nil {
				return trace.Wrap(err)
			}
			if c.State() == StateTerminated {
				return nil
			}
		}
	}
}

func (c *Client) handle(cmd Command) error {
	switch v := cmd.(type) {
	case CmdDisconnect:
		c.setState(StateTerminated)
		err := c.Transport.Close()
		c.egress <- Event{Kind: EventDisconnected}
		return trace.Wrap(err)

	case CmdAuthenticate:
		if c.State() != StateAuthenticating {
			return nil
		}
		c.Password = v.Password
		if err := c.Transport.Connect(c.closeContext, c.Encodings, c.Shared, c.Password); err != nil {
			c.fail(ErrorAuthenticationFailed, err.Error())
			return trace.Wrap(err)
		}
		c.setState(StateActive)
		c.egress <- Event{Kind: EventConnected}
		c.startForwardingTransportEvents()
		return nil

	case CmdSendCtrlAltDel:
		for _, k := range ctrlAltDelSequence() {
			if err := c.sendIngressEvent(k); err != nil {
				return trace.Wrap(err)
			}
		}
		return nil

	case CmdTypeText:
		for _, k := range typeTextSequence(v.Text) {
			if err := c.sendIngressEvent(k); err != nil {
				return trace.Wrap(err)
			}
		}
		return nil

	case CmdKeyEvent, CmdPointerEvent:
		return c.sendIngressEvent(v)

	case CmdRefreshScreen:
		return trace.Wrap(c.Transport.Refresh())

	default:
		return trace.Wrap(c.Transport.Send(cmd))
	}
}

// sendIngressEvent sends a Key/Pointer event to the wire, unless
// ViewOnly is set, in which case it is silently dropped per spec.md
// §4.G.
func (c *Client) sendIngressEvent(cmd Command) error {
	if c.ViewOnly {
		return nil
	}
	return trace.Wrap(c.Transport.Send(cmd))
}

// Close terminates the Client and releases its Transport.
func (c *Client) Close() error {
	c.closeCancel()
	return trace.Wrap(c.Transport.Close())
}
