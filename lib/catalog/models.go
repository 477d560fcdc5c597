// Package catalog implements the connection manager's data model: the
// in-memory object graph of connections, groups, templates and snippets,
// its invariants, and the operations that mutate it.
package catalog

import (
	"time"

	"github.com/google/uuid"
)

// Protocol identifies the wire protocol a Connection dials.
type Protocol string

const (
	ProtocolSSH        Protocol = "ssh"
	ProtocolRDP        Protocol = "rdp"
	ProtocolVNC        Protocol = "vnc"
	ProtocolSPICE      Protocol = "spice"
	ProtocolZeroTrust  Protocol = "zerotrust"
)

// PasswordSource describes where a Connection's credential comes from.
type PasswordSource string

const (
	PasswordSourceNone      PasswordSource = "none"
	PasswordSourcePrompt    PasswordSource = "prompt"
	PasswordSourceStored    PasswordSource = "stored"
	PasswordSourceAgentOnly PasswordSource = "agent_only"
)

// WindowMode controls how a session's host window is initially presented.
type WindowMode string

const (
	WindowModeNormal     WindowMode = "normal"
	WindowModeMaximized  WindowMode = "maximized"
	WindowModeFullscreen WindowMode = "fullscreen"
)

// WindowGeometry is a user-remembered window position/size.
type WindowGeometry struct {
	X, Y, Width, Height int
}

// CustomProperty is a user-defined name/value/type triple attached to a
// Connection.
type CustomProperty struct {
	Name  string
	Value string
	Type  string
}

// WOLConfig describes a wake-on-LAN preamble sent before connecting.
type WOLConfig struct {
	MACAddress string
	BroadcastIP string
	Port       int
}

// LogConfig enables and configures session byte-stream capture.
type LogConfig struct {
	Enabled bool
	Dir     string
}

// SSHAuthMethod enumerates how an SshConfig authenticates.
type SSHAuthMethod string

const (
	SSHAuthPassword            SSHAuthMethod = "password"
	SSHAuthPublicKey           SSHAuthMethod = "public_key"
	SSHAuthKeyboardInteractive SSHAuthMethod = "keyboard_interactive"
	SSHAuthAgent               SSHAuthMethod = "agent"
)

// SshConfig is the protocol-specific configuration for ProtocolSSH.
type SshConfig struct {
	KeyPath          string
	AuthMethod       SSHAuthMethod
	ProxyJump        string
	UseControlMaster bool
	CustomOptions    map[string]string
	StartupCommand   string
	AgentForwarding  bool
}

// SecurityProtocol enumerates RDP security negotiation strategies.
type SecurityProtocol string

const (
	SecurityAuto SecurityProtocol = "auto"
	SecurityRdp  SecurityProtocol = "rdp"
	SecurityTls  SecurityProtocol = "tls"
	SecurityNla  SecurityProtocol = "nla"
	SecurityExt  SecurityProtocol = "ext"
)

// Resolution is a display width/height pair.
type Resolution struct {
	Width  int
	Height int
}

// RdpGateway describes an RD Gateway hop.
type RdpGateway struct {
	Hostname string
	Port     int
	Username string
	Domain   string
}

// RdpConfig is the protocol-specific configuration for ProtocolRDP.
type RdpConfig struct {
	Resolution        *Resolution
	ColorDepth        int // one of 8, 16, 24, 32
	AudioRedirect     bool
	Gateway           *RdpGateway
	SharedFolders     []string
	ClipboardEnabled  bool
	NLAEnabled        bool
	Security          SecurityProtocol
	DynamicResolution bool
	ScaleFactor       int // 100..300
}

// VncConfig is the protocol-specific configuration for ProtocolVNC.
type VncConfig struct {
	ViewOnly          bool
	PreferredEncodings []string // ordered subset of Tight, Zrle, CopyRect, Raw
	Shared            bool
}

// SpiceConfig is the protocol-specific configuration for ProtocolSPICE.
type SpiceConfig struct {
	TLSEnabled     bool
	CACertPath     string
	SkipCertVerify bool
	USBRedirection bool
	ClipboardEnabled bool
}

// ZeroTrustProvider enumerates supported CLI-proxied shell brokers.
type ZeroTrustProvider string

const (
	ProviderAwsSsm           ZeroTrustProvider = "aws_ssm"
	ProviderGcpIap           ZeroTrustProvider = "gcp_iap"
	ProviderAzureBastion     ZeroTrustProvider = "azure_bastion"
	ProviderAzureSsh         ZeroTrustProvider = "azure_ssh"
	ProviderOciBastion       ZeroTrustProvider = "oci_bastion"
	ProviderCloudflareAccess ZeroTrustProvider = "cloudflare_access"
	ProviderTeleport         ZeroTrustProvider = "teleport"
	ProviderTailscaleSsh     ZeroTrustProvider = "tailscale_ssh"
	ProviderBoundary         ZeroTrustProvider = "boundary"
	ProviderGeneric          ZeroTrustProvider = "generic"
)

// ZeroTrustConfig is the protocol-specific configuration for ProtocolZeroTrust.
type ZeroTrustConfig struct {
	Provider        ZeroTrustProvider
	CommandTemplate string
	Params          map[string]string
}

// ProtocolConfig is a tagged union matching a Connection's Protocol field.
// Exactly one of the pointer fields is non-nil, matching the Protocol tag.
type ProtocolConfig struct {
	SSH       *SshConfig
	RDP       *RdpConfig
	VNC       *VncConfig
	SPICE     *SpiceConfig
	ZeroTrust *ZeroTrustConfig
}

// Tag returns the Protocol implied by which variant is populated.
func (p ProtocolConfig) Tag() (Protocol, bool) {
	switch {
	case p.SSH != nil:
		return ProtocolSSH, true
	case p.RDP != nil:
		return ProtocolRDP, true
	case p.VNC != nil:
		return ProtocolVNC, true
	case p.SPICE != nil:
		return ProtocolSPICE, true
	case p.ZeroTrust != nil:
		return ProtocolZeroTrust, true
	default:
		return "", false
	}
}

// Connection describes a remote endpoint a user can launch a session
// against.
type Connection struct {
	ID                 uuid.UUID
	Name               string
	Protocol           Protocol
	Host               string
	Port               int
	Username           string
	GroupID            *uuid.UUID
	Tags               []string
	CreatedAt          time.Time
	UpdatedAt          time.Time
	LastConnectedAt    *time.Time
	SortOrder          int
	PasswordSource     PasswordSource
	Domain             string
	CustomProperties   []CustomProperty
	PreConnectTask     string
	PostDisconnectTask string
	WOL                *WOLConfig
	LocalVariables     map[string]string
	Log                *LogConfig
	KeySequence        string
	WindowMode         WindowMode
	RememberWindowPos  bool
	WindowGeometry     *WindowGeometry
	Config             ProtocolConfig
}

// Clone deep-copies a Connection.
func (c *Connection) Clone() *Connection {
	clone := *c
	clone.Tags = append([]string(nil), c.Tags...)
	clone.CustomProperties = append([]CustomProperty(nil), c.CustomProperties...)
	if c.GroupID != nil {
		gid := *c.GroupID
		clone.GroupID = &gid
	}
	if c.LastConnectedAt != nil {
		t := *c.LastConnectedAt
		clone.LastConnectedAt = &t
	}
	if c.WOL != nil {
		wol := *c.WOL
		clone.WOL = &wol
	}
	if c.Log != nil {
		lg := *c.Log
		clone.Log = &lg
	}
	if c.WindowGeometry != nil {
		wg := *c.WindowGeometry
		clone.WindowGeometry = &wg
	}
	clone.LocalVariables = make(map[string]string, len(c.LocalVariables))
	for k, v := range c.LocalVariables {
		clone.LocalVariables[k] = v
	}
	clone.Config = cloneProtocolConfig(c.Config)
	return &clone
}

func cloneProtocolConfig(p ProtocolConfig) ProtocolConfig {
	var out ProtocolConfig
	switch {
	case p.SSH != nil:
		cfg := *p.SSH
		cfg.CustomOptions = make(map[string]string, len(p.SSH.CustomOptions))
		for k, v := range p.SSH.CustomOptions {
			cfg.CustomOptions[k] = v
		}
		out.SSH = &cfg
	case p.RDP != nil:
		cfg := *p.RDP
		if p.RDP.Resolution != nil {
			r := *p.RDP.Resolution
			cfg.Resolution = &r
		}
		if p.RDP.Gateway != nil {
			g := *p.RDP.Gateway
			cfg.Gateway = &g
		}
		cfg.SharedFolders = append([]string(nil), p.RDP.SharedFolders...)
		out.RDP = &cfg
	case p.VNC != nil:
		cfg := *p.VNC
		cfg.PreferredEncodings = append([]string(nil), p.VNC.PreferredEncodings...)
		out.VNC = &cfg
	case p.SPICE != nil:
		cfg := *p.SPICE
		out.SPICE = &cfg
	case p.ZeroTrust != nil:
		cfg := *p.ZeroTrust
		cfg.Params = make(map[string]string, len(p.ZeroTrust.Params))
		for k, v := range p.ZeroTrust.Params {
			cfg.Params[k] = v
		}
		out.ZeroTrust = &cfg
	}
	return out
}

// ConnectionGroup is a node in the group forest.
type ConnectionGroup struct {
	ID        uuid.UUID
	Name      string
	ParentID  *uuid.UUID
	SortOrder int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ConnectionTemplate has the same shape as Connection minus the
// session-tracking fields, plus a Description.
type ConnectionTemplate struct {
	ID                 uuid.UUID
	Name               string
	Description        string
	Protocol           Protocol
	Host               string
	Port               int
	Username           string
	GroupID            *uuid.UUID
	Tags               []string
	CreatedAt          time.Time
	UpdatedAt          time.Time
	PasswordSource     PasswordSource
	Domain             string
	CustomProperties   []CustomProperty
	PreConnectTask     string
	PostDisconnectTask string
	WOL                *WOLConfig
	LocalVariables     map[string]string
	Log                *LogConfig
	KeySequence        string
	WindowMode         WindowMode
	RememberWindowPos  bool
	WindowGeometry     *WindowGeometry
	Config             ProtocolConfig
}

// Instantiate clones a ConnectionTemplate into a fresh Connection with a
// new id and fresh timestamps, per spec.md §3.
func (t *ConnectionTemplate) Instantiate(now time.Time) *Connection {
	c := &Connection{
		ID:                 uuid.New(),
		Name:               t.Name,
		Protocol:           t.Protocol,
		Host:               t.Host,
		Port:               t.Port,
		Username:           t.Username,
		GroupID:            t.GroupID,
		Tags:               append([]string(nil), t.Tags...),
		CreatedAt:          now,
		UpdatedAt:          now,
		PasswordSource:     t.PasswordSource,
		Domain:             t.Domain,
		CustomProperties:   append([]CustomProperty(nil), t.CustomProperties...),
		PreConnectTask:     t.PreConnectTask,
		PostDisconnectTask: t.PostDisconnectTask,
		KeySequence:        t.KeySequence,
		WindowMode:         t.WindowMode,
		RememberWindowPos:  t.RememberWindowPos,
		Config:             cloneProtocolConfig(t.Config),
	}
	if t.GroupID != nil {
		gid := *t.GroupID
		c.GroupID = &gid
	}
	if t.WOL != nil {
		wol := *t.WOL
		c.WOL = &wol
	}
	if t.Log != nil {
		lg := *t.Log
		c.Log = &lg
	}
	if t.WindowGeometry != nil {
		wg := *t.WindowGeometry
		c.WindowGeometry = &wg
	}
	c.LocalVariables = make(map[string]string, len(t.LocalVariables))
	for k, v := range t.LocalVariables {
		c.LocalVariables[k] = v
	}
	return c
}

// SnippetVariable is a named placeholder substituted into a Snippet's
// command at run time.
type SnippetVariable struct {
	Name         string
	Description  string
	DefaultValue string
}

// Snippet is a reusable, parameterized shell command.
type Snippet struct {
	ID          uuid.UUID
	Name        string
	Command     string
	Description string
	Category    string
	Tags        []string
	Variables   []SnippetVariable
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// SessionState is the lifecycle state of a Session.
type SessionState string

const (
	SessionStarting      SessionState = "starting"
	SessionActive        SessionState = "active"
	SessionReconnecting  SessionState = "reconnecting"
	SessionDisconnecting SessionState = "disconnecting"
	SessionTerminated    SessionState = "terminated"
	SessionError         SessionState = "error"
)

// Session is a running (or recently-finished) protocol session snapshot.
type Session struct {
	ID              uuid.UUID
	ConnectionID    uuid.UUID
	ConnectionName  string
	Protocol        Protocol
	State           SessionState
	StartedAt       time.Time
	BytesSent       uint64
	BytesReceived   uint64
	Host            string
	GroupID         *uuid.UUID
}

// Credentials is resolved authentication material for a connection.
// Password is never serialized in plaintext; callers must zeroize it via
// Wipe when done.
type Credentials struct {
	Username       string
	password       []byte
	Domain         string
	PrivateKeyPath string
	KeyPassphrase  string
}

// NewCredentials builds a Credentials, copying password into an
// internally-owned buffer so the caller's copy can be wiped separately.
func NewCredentials(username, password, domain string) *Credentials {
	return &Credentials{
		Username: username,
		password: []byte(password),
		Domain:   domain,
	}
}

// Password returns the plaintext password as a string copy; Wipe zeroizes
// only the internal buffer, not copies already returned.
func (c *Credentials) Password() string {
	if c == nil {
		return ""
	}
	return string(c.password)
}

// Wipe zeroizes the password buffer.
func (c *Credentials) Wipe() {
	if c == nil {
		return
	}
	for i := range c.password {
		c.password[i] = 0
	}
	c.password = nil
}
