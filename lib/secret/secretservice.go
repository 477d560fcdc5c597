package secret

import (
	"context"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/gravitational/trace"
	"github.com/sirupsen/logrus"

	"github.com/rustconn/rustconn/lib/catalog"
)

const (
	secretServiceBusName     = "org.freedesktop.secrets"
	secretServicePath        = dbus.ObjectPath("/org/freedesktop/secrets")
	secretServiceDefaultColl = dbus.ObjectPath("/org/freedesktop/secrets/aliases/default")
	secretServiceIface       = "org.freedesktop.Secret.Service"
	secretItemIface          = "org.freedesktop.Secret.Item"
	secretCollectionIface    = "org.freedesktop.Secret.Collection"
	attrKeyConnectionKey     = "rustconn-key"
)

// dbusSecret mirrors org.freedesktop.Secret.Item's Secret struct, used for
// both GetSecrets replies and CreateItem arguments.
type dbusSecret struct {
	Session     dbus.ObjectPath
	Parameters  []byte
	Value       []byte
	ContentType string
}

// SecretServiceBackend talks to the platform secret daemon
// (gnome-keyring, KWallet's Secret-Service shim, KeePassXC's
// browser-integration Secret-Service mode) over D-Bus.
//
// It uses the "plain" negotiation algorithm: secrets cross the session bus
// unencrypted. This mirrors the posture most desktop Secret-Service clients
// take when running over the user's own session bus (not a remote
// transport), and avoids pulling in a second crypto dependency purely for
// session-transport encryption that the bus's own access control already
// makes redundant in the common case.
type SecretServiceBackend struct {
	log     *logrus.Entry
	timeout time.Duration
}

// NewSecretServiceBackend builds a SecretServiceBackend.
func NewSecretServiceBackend() *SecretServiceBackend {
	return &SecretServiceBackend{
		log:     logrus.NewEntry(logrus.StandardLogger()).WithField(trace.Component, "secret:service"),
		timeout: 2 * time.Second,
	}
}

func (s *SecretServiceBackend) ID() string          { return "secret_service" }
func (s *SecretServiceBackend) DisplayName() string { return "System keyring (Secret Service)" }

func (s *SecretServiceBackend) connect() (*dbus.Conn, dbus.ObjectPath, error) {
	conn, err := dbus.ConnectSessionBus(dbus.WithContext(context.Background()))
	if err != nil {
		return nil, "", trace.Wrap(err, "connecting to session bus")
	}

	var sessionOut dbus.Variant
	var sessionPath dbus.ObjectPath
	obj := conn.Object(secretServiceBusName, secretServicePath)
	err = obj.Call(secretServiceIface+".OpenSession", 0, "plain", dbus.MakeVariant("")).
		Store(&sessionOut, &sessionPath)
	if err != nil {
		conn.Close()
		return nil, "", trace.Wrap(err, "opening Secret Service session")
	}
	return conn, sessionPath, nil
}

// IsAvailable probes the bus name with a short timeout; it never blocks
// indefinitely on an unresponsive or absent daemon.
func (s *SecretServiceBackend) IsAvailable(ctx context.Context) bool {
	done := make(chan bool, 1)
	go func() {
		conn, session, err := s.connect()
		if err != nil {
			done <- false
			return
		}
		conn.Close()
		_ = session
		done <- true
	}()
	select {
	case ok := <-done:
		return ok
	case <-time.After(s.timeout):
		return false
	case <-ctx.Done():
		return false
	}
}

func (s *SecretServiceBackend) Get(ctx context.Context, key string) (*catalog.Credentials, error) {
	conn, session, err := s.connect()
	if err != nil {
		return nil, trace.Wrap(err)
	}
	defer conn.Close()

	coll := conn.Object(secretServiceBusName, secretServiceDefaultColl)

	var unlocked, locked []dbus.ObjectPath
	attrs := map[string]string{attrKeyConnectionKey: key}
	err = coll.CallWithContext(ctx, secretCollectionIface+".SearchItems", 0, attrs).
		Store(&unlocked, &locked)
	if err != nil {
		return nil, trace.Wrap(err, "searching Secret Service collection")
	}
	if len(unlocked) == 0 {
		return nil, trace.NotFound("no Secret Service item for %q", key)
	}

	svc := conn.Object(secretServiceBusName, secretServicePath)
	var secrets map[dbus.ObjectPath]dbusSecret
	err = svc.CallWithContext(ctx, secretServiceIface+".GetSecrets", 0, unlocked, session).
		Store(&secrets)
	if err != nil {
		return nil, trace.Wrap(err, "fetching Secret Service secret")
	}

	raw, ok := secrets[unlocked[0]]
	if !ok {
		return nil, trace.NotFound("Secret Service returned no secret for %q", key)
	}

	item := conn.Object(secretServiceBusName, unlocked[0])
	attrsVariant, err := item.GetProperty(secretItemIface + ".Attributes")
	username := ""
	if err == nil {
		if m, ok := attrsVariant.Value().(map[string]string); ok {
			username = m["username"]
		}
	}

	return catalog.NewCredentials(username, string(raw.Value), ""), nil
}

func (s *SecretServiceBackend) Set(ctx context.Context, key string, creds *catalog.Credentials) error {
	conn, session, err := s.connect()
	if err != nil {
		return trace.Wrap(err)
	}
	defer conn.Close()

	properties := map[string]dbus.Variant{
		"org.freedesktop.Secret.Item.Label": dbus.MakeVariant("rustconn: " + key),
		"org.freedesktop.Secret.Item.Attributes": dbus.MakeVariant(map[string]string{
			attrKeyConnectionKey: key,
			"username":           creds.Username,
		}),
	}
	secret := dbusSecret{
		Session:     session,
		Parameters:  nil,
		Value:       []byte(creds.Password()),
		ContentType: "text/plain",
	}

	coll := conn.Object(secretServiceBusName, secretServiceDefaultColl)
	var itemPath, promptPath dbus.ObjectPath
	err = coll.CallWithContext(ctx, secretCollectionIface+".CreateItem", 0, properties, secret, true).
		Store(&itemPath, &promptPath)
	if err != nil {
		return trace.Wrap(err, "creating Secret Service item")
	}
	return nil
}

func (s *SecretServiceBackend) Delete(ctx context.Context, key string) error {
	conn, _, err := s.connect()
	if err != nil {
		return trace.Wrap(err)
	}
	defer conn.Close()

	coll := conn.Object(secretServiceBusName, secretServiceDefaultColl)
	var unlocked, locked []dbus.ObjectPath
	attrs := map[string]string{attrKeyConnectionKey: key}
	err = coll.CallWithContext(ctx, secretCollectionIface+".SearchItems", 0, attrs).
		Store(&unlocked, &locked)
	if err != nil {
		return trace.Wrap(err, "searching Secret Service collection")
	}
	for _, path := range unlocked {
		item := conn.Object(secretServiceBusName, path)
		var promptPath dbus.ObjectPath
		if err := item.CallWithContext(ctx, secretItemIface+".Delete", 0).Store(&promptPath); err != nil {
			return trace.Wrap(err, "deleting Secret Service item")
		}
	}
	return nil
}
