package secret

import (
	"context"
	"os"
	"sync"

	"github.com/gravitational/trace"
	"github.com/sirupsen/logrus"
	"github.com/tobischo/gokeepasslib/v3"
	"github.com/tobischo/gokeepasslib/v3/wrappers"

	"github.com/rustconn/rustconn/lib/catalog"
)

// KDBXBackend opens a KDBX file directly, in-process, with no external
// tool. Unlock state is process-scoped: once Unlock succeeds, the decoded
// database stays resident until Lock, which zeroizes the stored password
// and drops the database.
type KDBXBackend struct {
	log     *logrus.Entry
	Path    string
	KeyFile string

	mu       sync.Mutex
	password []byte // zeroized by Lock
	db       *gokeepasslib.Database
}

// NewKDBXBackend builds a locked KDBXBackend over path.
func NewKDBXBackend(path, keyFile string) *KDBXBackend {
	return &KDBXBackend{
		log:     logrus.NewEntry(logrus.StandardLogger()).WithField(trace.Component, "secret:kdbx"),
		Path:    path,
		KeyFile: keyFile,
	}
}

func (k *KDBXBackend) ID() string          { return "kdbx_direct" }
func (k *KDBXBackend) DisplayName() string { return "KeePass database (direct)" }

// Unlock decodes and decrypts the database, keeping the cleartext resident
// until Lock is called.
func (k *KDBXBackend) Unlock(password string) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	file, err := os.Open(k.Path)
	if err != nil {
		return trace.Wrap(err, "opening KDBX file")
	}
	defer file.Close()

	db := gokeepasslib.NewDatabase()
	if k.KeyFile != "" {
		creds, err := gokeepasslib.NewPasswordAndKeyCredentials(password, k.KeyFile)
		if err != nil {
			return trace.Wrap(err, "combining KDBX password and key file")
		}
		db.Credentials = creds
	} else {
		db.Credentials = gokeepasslib.NewPasswordCredentials(password)
	}

	decoder := gokeepasslib.NewDecoder(file)
	if err := decoder.Decode(db); err != nil {
		return trace.Wrap(err, "decoding KDBX file")
	}
	if err := db.UnlockProtectedEntries(); err != nil {
		return trace.Wrap(err, "unlocking KDBX protected fields")
	}

	k.password = []byte(password)
	k.db = db
	return nil
}

// Lock zeroizes the resident password and drops the decoded database.
func (k *KDBXBackend) Lock() {
	k.mu.Lock()
	defer k.mu.Unlock()
	for i := range k.password {
		k.password[i] = 0
	}
	k.password = nil
	k.db = nil
}

// IsUnlocked reports whether the database is currently decoded in memory.
func (k *KDBXBackend) IsUnlocked() bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.db != nil
}

func (k *KDBXBackend) IsAvailable(context.Context) bool {
	_, err := os.Stat(k.Path)
	return err == nil
}

// findEntry locates the entry whose title matches key, searching every
// group depth-first. Caller must hold k.mu.
func findEntry(group *gokeepasslib.Group, key string) *gokeepasslib.Entry {
	for i := range group.Entries {
		if group.Entries[i].GetTitle() == key {
			return &group.Entries[i]
		}
	}
	for i := range group.Groups {
		if e := findEntry(&group.Groups[i], key); e != nil {
			return e
		}
	}
	return nil
}

func (k *KDBXBackend) Get(_ context.Context, key string) (*catalog.Credentials, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.db == nil {
		return nil, trace.AccessDenied("KDBX database is locked")
	}

	for i := range k.db.Content.Root.Groups {
		if e := findEntry(&k.db.Content.Root.Groups[i], key); e != nil {
			return catalog.NewCredentials(e.GetContent("UserName"), e.GetPassword(), ""), nil
		}
	}
	return nil, trace.NotFound("no KDBX entry titled %q", key)
}

func (k *KDBXBackend) Set(_ context.Context, key string, creds *catalog.Credentials) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.db == nil {
		return trace.AccessDenied("KDBX database is locked")
	}
	if len(k.db.Content.Root.Groups) == 0 {
		k.db.Content.Root.Groups = append(k.db.Content.Root.Groups, gokeepasslib.NewGroup())
	}
	root := &k.db.Content.Root.Groups[0]

	if e := findEntry(root, key); e != nil {
		e.Values = setValue(e.Values, "UserName", creds.Username, false)
		e.Values = setValue(e.Values, "Password", creds.Password(), true)
	} else {
		entry := gokeepasslib.NewEntry()
		entry.Values = setValue(entry.Values, "Title", key, false)
		entry.Values = setValue(entry.Values, "UserName", creds.Username, false)
		entry.Values = setValue(entry.Values, "Password", creds.Password(), true)
		root.Entries = append(root.Entries, entry)
	}

	return trace.Wrap(k.flushLocked())
}

func (k *KDBXBackend) Delete(_ context.Context, key string) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.db == nil {
		return trace.AccessDenied("KDBX database is locked")
	}
	for gi := range k.db.Content.Root.Groups {
		group := &k.db.Content.Root.Groups[gi]
		for i, e := range group.Entries {
			if e.GetTitle() == key {
				group.Entries = append(group.Entries[:i], group.Entries[i+1:]...)
				return trace.Wrap(k.flushLocked())
			}
		}
	}
	return trace.NotFound("no KDBX entry titled %q", key)
}

// flushLocked re-encodes the in-memory database back to Path. Caller must
// hold k.mu.
func (k *KDBXBackend) flushLocked() error {
	file, err := os.Create(k.Path)
	if err != nil {
		return trace.Wrap(err, "opening KDBX file for write")
	}
	defer file.Close()

	encoder := gokeepasslib.NewEncoder(file)
	if err := encoder.Encode(k.db); err != nil {
		return trace.Wrap(err, "encoding KDBX file")
	}
	return nil
}

func setValue(values []gokeepasslib.ValueData, key, value string, protected bool) []gokeepasslib.ValueData {
	v := gokeepasslib.V{Content: value, Protected: wrappers.NewBoolWrapper(protected)}
	for i := range values {
		if values[i].Key == key {
			values[i].Value = v
			return values
		}
	}
	return append(values, gokeepasslib.ValueData{Key: key, Value: v})
}
