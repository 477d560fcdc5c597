// Package app wires components A–J into the long-lived service object
// spec.md §6 describes: a Catalog, a Secret Chain, and a Session Manager
// bound together by a protocol-dispatching WorkerFactory. It is the plain
// Go API an external UI toolkit embeds, mirroring how
// lib/teleterm/teleterm.go wires daemon.Service behind Serve.
package app

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/gravitational/trace"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"

	"github.com/rustconn/rustconn/lib/catalog"
	"github.com/rustconn/rustconn/lib/config"
	"github.com/rustconn/rustconn/lib/rdpclient"
	"github.com/rustconn/rustconn/lib/secret"
	"github.com/rustconn/rustconn/lib/session"
	"github.com/rustconn/rustconn/lib/terminal"
	"github.com/rustconn/rustconn/lib/vncclient"
)

// RDPTransportFactory dials addr and returns the rdpclient Transport
// driving it. The pixel-rendering UI embedding this module owns the
// actual grdp wire driver (see DESIGN.md's note on component F); App
// only needs something satisfying the interface.
type RDPTransportFactory func(ctx context.Context, addr string) (rdpclient.Transport, error)

// VNCTransportFactory is RDPTransportFactory's VNC equivalent.
type VNCTransportFactory func(ctx context.Context, addr string) (vncclient.Transport, error)

// Config configures an App.
type Config struct {
	// Clock is injected for testability.
	Clock clockwork.Clock
	// Log is a component logger.
	Log *logrus.Entry
	// SearchHistorySize bounds the catalog's search history ring.
	SearchHistorySize int

	// ConfigDir is the per-user directory catalog state is persisted
	// under. If empty, config.Dir's XDG-aware default is used.
	ConfigDir string

	// SecretBackends is the ordered Secret Chain backend list. If nil, a
	// Chain with only the in-process MemoryBackend is used, so the app
	// still starts on a machine with no platform secret daemon or KDBX
	// database configured.
	SecretBackends []secret.Backend

	// NewRDPTransport builds the wire-level driver for an RDP session.
	// RDP connections fail with NotImplemented until this is set — there
	// is no production Transport for RDP in this tree (see DESIGN.md's
	// note on Component F).
	NewRDPTransport RDPTransportFactory
	// NewVNCTransport builds the wire-level driver for a VNC session,
	// defaulting to vncclient.NewGoVNCTransport. Override for a fake in
	// tests or an alternative RFB implementation.
	NewVNCTransport VNCTransportFactory
}

func (c *Config) CheckAndSetDefaults() error {
	if c.Clock == nil {
		c.Clock = clockwork.NewRealClock()
	}
	if c.Log == nil {
		c.Log = logrus.NewEntry(logrus.StandardLogger()).WithField(trace.Component, "rustconnd")
	}
	if c.SearchHistorySize <= 0 {
		c.SearchHistorySize = 20
	}
	if c.SecretBackends == nil {
		c.SecretBackends = []secret.Backend{secret.NewMemoryBackend()}
	}
	if c.ConfigDir == "" {
		dir, err := config.Dir()
		if err != nil {
			return trace.Wrap(err)
		}
		c.ConfigDir = dir
	}
	if c.NewVNCTransport == nil {
		c.NewVNCTransport = func(ctx context.Context, addr string) (vncclient.Transport, error) {
			return vncclient.NewGoVNCTransport(addr), nil
		}
	}
	return nil
}

// App is the top-level service: the Catalog, the Secret Chain, and the
// Session Manager, bound together so a caller only ever has to reach
// through one object. There is no RPC surface (see Component K's scope
// note) — an embedding UI calls these methods directly, in-process.
type App struct {
	Config

	Catalog  *catalog.Catalog
	Chain    *secret.Chain
	Sessions *session.Manager
	Store    *config.Store
}

// New builds an App with every component wired, but does not start any
// background work — Manager.Start is invoked per-connection by callers
// (typically the UI's "launch" action), not by App itself.
func New(cfg Config) (*App, error) {
	if err := cfg.CheckAndSetDefaults(); err != nil {
		return nil, trace.Wrap(err)
	}

	cat, err := catalog.New(catalog.Config{
		Clock:             cfg.Clock,
		Log:               cfg.Log.WithField(trace.Component, "catalog"),
		SearchHistorySize: cfg.SearchHistorySize,
	})
	if err != nil {
		return nil, trace.Wrap(err)
	}

	store, err := config.NewStore(cfg.ConfigDir)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	if err := store.LoadInto(cat); err != nil {
		return nil, trace.Wrap(err, "loading saved catalog state")
	}

	chain := secret.New(cfg.SecretBackends...)

	ended := make(chan session.EndedEvent, 64)
	sessions, err := session.NewManager(session.Config{
		Chain: chain,
		Clock: cfg.Clock,
		Log:   cfg.Log.WithField(trace.Component, "session"),
		Ended: ended,
	})
	if err != nil {
		return nil, trace.Wrap(err)
	}

	return &App{
		Config:   cfg,
		Catalog:  cat,
		Chain:    chain,
		Sessions: sessions,
		Store:    store,
	}, nil
}

// Save persists the catalog's current connections, groups, templates and
// snippets to disk. Callers typically invoke this after every
// catalog-mutating operation and again during Shutdown.
func (a *App) Save() error {
	return trace.Wrap(a.Store.SaveFrom(a.Catalog))
}

// Launch starts a Session for conn with the credentials resolve returns
// (the Secret Chain is not consulted), dispatching to a PixelWorker or
// TerminalWorker per conn.Protocol.
func (a *App) Launch(ctx context.Context, conn *catalog.Connection, resolve func(ctx context.Context) (*catalog.Credentials, error)) (*session.Session, error) {
	return a.Sessions.Start(ctx, conn, resolve, a.buildWorker)
}

// Ended returns the channel of session-termination events.
func (a *App) Ended() <-chan session.EndedEvent {
	return a.Sessions.Ended
}

// Shutdown disconnects every active session and flushes the catalog to
// disk. Safe to call more than once; each Session.Disconnect is itself
// idempotent, and a final Save after an already-clean catalog is a
// harmless no-op.
func (a *App) Shutdown() {
	a.Sessions.DisconnectAll()
	if err := a.Save(); err != nil {
		a.Log.WithError(err).Warn("failed to save catalog state on shutdown")
	}
}

func (a *App) buildWorker(ctx context.Context, conn *catalog.Connection, creds *catalog.Credentials) (session.Worker, error) {
	switch conn.Protocol {
	case catalog.ProtocolSSH, catalog.ProtocolZeroTrust:
		return a.buildTerminalWorker(conn)
	case catalog.ProtocolRDP:
		return a.buildRDPWorker(ctx, conn, creds)
	case catalog.ProtocolVNC:
		return a.buildVNCWorker(ctx, conn, creds)
	default:
		return nil, trace.BadParameter("unsupported protocol %q", conn.Protocol)
	}
}

func (a *App) buildTerminalWorker(conn *catalog.Connection) (session.Worker, error) {
	cmd, err := terminal.NewCmd(conn)
	if err != nil {
		return nil, trace.Wrap(err)
	}

	worker := session.NewTerminalWorker(cmd)

	sessionID := uuid.New()
	logWriter, err := terminal.OpenSessionLog(conn, sessionID)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	if logWriter != nil {
		worker.LogWriter = logWriter
	}

	return worker, nil
}

func (a *App) buildRDPWorker(ctx context.Context, conn *catalog.Connection, creds *catalog.Credentials) (session.Worker, error) {
	if a.NewRDPTransport == nil {
		return nil, trace.NotImplemented("no RDP transport factory configured")
	}
	addr := fmt.Sprintf("%s:%d", conn.Host, conn.Port)
	transport, err := a.NewRDPTransport(ctx, addr)
	if err != nil {
		return nil, trace.Wrap(err)
	}

	rdpCfg := rdpclient.Config{
		Addr:      addr,
		Transport: transport,
		Log:       a.Log.WithField("connection", conn.Name),
	}
	if creds != nil {
		rdpCfg.Username = creds.Username
		rdpCfg.Password = creds.Password()
		rdpCfg.Domain = creds.Domain
	}
	client, err := rdpclient.New(rdpCfg)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	return session.NewPixelWorker(client), nil
}

func (a *App) buildVNCWorker(ctx context.Context, conn *catalog.Connection, creds *catalog.Credentials) (session.Worker, error) {
	if a.NewVNCTransport == nil {
		return nil, trace.NotImplemented("no VNC transport factory configured")
	}
	addr := fmt.Sprintf("%s:%d", conn.Host, conn.Port)
	transport, err := a.NewVNCTransport(ctx, addr)
	if err != nil {
		return nil, trace.Wrap(err)
	}

	vncCfg := vncclient.Config{
		Addr:      addr,
		Transport: transport,
		Log:       a.Log.WithField("connection", conn.Name),
	}
	if creds != nil {
		vncCfg.Password = creds.Password()
	}
	if vc := conn.Config.VNC; vc != nil {
		vncCfg.ViewOnly = vc.ViewOnly
		vncCfg.Encodings = vc.PreferredEncodings
		vncCfg.Shared = vc.Shared
	}

	client, err := vncclient.New(vncCfg)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	return session.NewPixelWorker(client), nil
}
