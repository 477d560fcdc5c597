package rdpclient

import (
	"context"
	"sync"

	"github.com/gravitational/trace"
	"github.com/sirupsen/logrus"

	"github.com/rustconn/rustconn/lib/pixel"
)

// Transport is the wire-level seam a Client drives to actually speak
// RDP: TCP bring-up, X.224/MCS/security negotiation, NLA/CredSSP
// authentication, and FastPath I/O. There is no production
// implementation of it in this tree — see DESIGN.md's note on
// Component F for why github.com/tomatome/grdp, the one candidate
// library, was dropped rather than wrapped. Tests drive a fake.
type Transport interface {
	// Connect performs the X.224/MCS/security negotiation and, if
	// credentials are required up front, authentication. It returns once
	// the session is ready to carry FastPath input/output, or an error
	// classified by ErrorKind.
	Connect(ctx context.Context, security SecurityProtocol) error

	// Send delivers one ingress command to the remote session.
	Send(cmd Command) error

	// Close tears down the transport.
	Close() error
}

// Config configures a Client.
type Config struct {
	// Addr is the host:port of the RDP server.
	Addr string
	// Username/Password/Domain are the credentials to authenticate with,
	// when known up front. If empty, the client pauses in
	// StateAuthenticating and emits an AuthRequired event.
	Username, Password, Domain string
	// Security selects the security negotiation strategy.
	Security SecurityProtocol
	// IgnoreCertificate records the connection's certificate policy. The
	// Client does not read it: it is not passed to the Transport, and the
	// Client performs no certificate validation of its own.
	IgnoreCertificate bool
	// Transport is the wire-level driver. Required.
	Transport Transport
	// Log is a component logger.
	Log logrus.FieldLogger
}

// CheckAndSetDefaults validates cfg and fills in defaults.
func (c *Config) CheckAndSetDefaults() error {
	if c.Addr == "" {
		return trace.BadParameter("missing Addr")
	}
	if c.Transport == nil {
		return trace.BadParameter("missing Transport")
	}
	if c.Log == nil {
		c.Log = logrus.WithField("rdpclient", c.Addr)
	}
	return nil
}

// Client drives one RDP session: a state machine, a command ingress
// channel, a pixel.Event egress channel, and a ClipboardEvent egress
// channel, per spec.md §4.F.
type Client struct {
	Config

	mu    sync.Mutex
	state State
	err   *StateError

	clipboard clipboardState

	ingress  chan Command
	egress   chan pixel.Event
	clipEgress chan ClipboardEvent

	closeContext context.Context
	closeCancel  context.CancelFunc
	wg           sync.WaitGroup
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
		egress:       make(chan pixel.Event, 256),
		clipEgress:   make(chan ClipboardEvent, 32),
		closeContext: closeContext,
		closeCancel:  closeCancel,
	}, nil
}

// State returns the client's current state.
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
	c.err = &StateError{Kind: kind, Msg: msg}
	c.mu.Unlock()
	c.egress <- pixel.Event{Kind: pixel.EventError, Text: msg}
}

// Ingress returns the channel a host posts Commands on.
func (c *Client) Ingress() chan<- Command { return c.ingress }

// Egress returns the pixel/event stream.
func (c *Client) Egress() <-chan pixel.Event { return c.egress }

// ClipboardEgress returns the clipboard-channel event stream.
func (c *Client) ClipboardEgress() <-chan ClipboardEvent { return c.clipEgress }

// Run drives the connection to completion: negotiation, authentication,
// and the active command loop. It returns when the session terminates,
// the context is canceled, or the ingress channel is closed.
func (c *Client) Run(ctx context.Context) error {
	c.setState(StateNegotiating)

	// Credentials are resolved before the initial Connect only when known
	// up front; otherwise Connect negotiates the protocol and the client
	// pauses in StateAuthenticating until a CmdAuthenticate arrives.
	needsAuthPause := c.Username == "" || c.Password == ""

	if err := c.Transport.Connect(ctx, c.Security); err != nil && !needsAuthPause {
		c.fail(ErrorConnectionFailed, err.Error())
		return trace.Wrap(err)
	}

	if needsAuthPause {
		c.setState(StateAuthenticating)
		c.egress <- pixel.Event{Kind: pixel.EventAuthRequired}
	} else {
		c.setState(StateActive)
		c.egress <- pixel.Event{Kind: pixel.EventConnected}
	}

	return c.loop(ctx)
}

func (c *Client) loop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			c.setState(StateTerminated)
			return ctx.Err()
		case <-c.closeContext.Done():
			c.setState(StateTerminated)
			return nil
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

// handle dispatches one ingress command against the current state,
// translating it into Transport.Send calls and/or local state
// transitions and clipboard bookkeeping.
func (c *Client) handle(cmd Command) error {
	switch v := cmd.(type) {
	case CmdDisconnect:
		c.setState(StateDisconnecting)
		err := c.Transport.Close()
		c.setState(StateTerminated)
		c.egress <- pixel.Event{Kind: pixel.EventDisconnected}
		return trace.Wrap(err)

	case CmdAuthenticate:
		if c.State() != StateAuthenticating {
			return nil
		}
		c.Username, c.Password, c.Domain = v.Username, v.Password, v.Domain
		if err := c.Transport.Connect(c.closeContext, c.Security); err != nil {
			c.fail(ErrorAuthenticationFailed, err.Error())
			return trace.Wrap(err)
		}
		c.setState(StateActive)
		c.egress <- pixel.Event{Kind: pixel.EventConnected}
		return nil

	case CmdSendCtrlAltDel:
		for _, k := range ctrlAltDelSequence() {
			if err := c.Transport.Send(k); err != nil {
				return trace.Wrap(err)
			}
		}
		return nil

	case CmdClipboardCopy:
		c.clipEgress <- ClipboardEvent{Kind: ClipboardInitiateCopy, Formats: v.Formats}
		return trace.Wrap(c.Transport.Send(v))

	case CmdRequestClipboardData:
		return trace.Wrap(c.Transport.Send(v))

	default:
		return trace.Wrap(c.Transport.Send(cmd))
	}
}

// onClipboardFormatList is called by the Transport when the remote
// announces a format list: it auto-requests data per clipboardState's
// preference order and surfaces the advertisement to the host.
func (c *Client) onClipboardFormatList(formats []pixel.Format) {
	c.clipEgress <- ClipboardEvent{Kind: ClipboardPasteRequest, Formats: formats}
	if id, should := c.clipboard.onRemoteFormatList(formats); should {
		_ = c.Transport.Send(CmdRequestClipboardData{FormatID: id})
	}
}

// onClipboardData is called by the Transport when remote clipboard data
// arrives in response to a RequestClipboardData.
func (c *Client) onClipboardData(formatID uint32, data []byte) error {
	if formatID == CFHDrop {
		files, err := decodeFileGroupDescriptor(data)
		if err != nil {
			return trace.Wrap(err)
		}
		c.clipEgress <- ClipboardEvent{Kind: ClipboardFileList, Files: files}
		return nil
	}
	text, _, err := decodeClipboardData(formatID, data)
	if err != nil {
		return trace.Wrap(err)
	}
	c.clipEgress <- ClipboardEvent{Kind: ClipboardDataReady, FormatID: formatID, Data: []byte(text)}
	return nil
}

// Close terminates the Client and releases its Transport.
func (c *Client) Close() error {
	c.closeCancel()
	c.wg.Wait()
	return trace.Wrap(c.Transport.Close())
}
