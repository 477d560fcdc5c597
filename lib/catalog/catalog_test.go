package catalog_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/rustconn/rustconn/lib/catalog"
)

func newTestCatalog(t *testing.T) (*catalog.Catalog, clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClock()
	cat, err := catalog.New(catalog.Config{Clock: clock})
	require.NoError(t, err)
	return cat, clock
}

func sshConnection(name, host string) *catalog.Connection {
	return &catalog.Connection{
		Name:     name,
		Protocol: catalog.ProtocolSSH,
		Host:     host,
		Port:     22,
		Config:   catalog.ProtocolConfig{SSH: &catalog.SshConfig{}},
	}
}

func TestCreateConnectionRejectsCaseInsensitiveDuplicateNames(t *testing.T) {
	cat, _ := newTestCatalog(t)

	_, err := cat.CreateConnection(sshConnection("prod-db", "10.0.0.1"))
	require.NoError(t, err)

	_, err = cat.CreateConnection(sshConnection("Prod-DB", "10.0.0.2"))
	require.Error(t, err)
	require.True(t, catalog.IsDuplicateName(err))
}

func TestCreateConnectionRejectsProtocolMismatch(t *testing.T) {
	cat, _ := newTestCatalog(t)

	bad := sshConnection("mismatched", "10.0.0.1")
	bad.Protocol = catalog.ProtocolRDP

	_, err := cat.CreateConnection(bad)
	require.Error(t, err)
}

func TestUpdateConnectionPreservesCreatedAt(t *testing.T) {
	cat, clock := newTestCatalog(t)

	created, err := cat.CreateConnection(sshConnection("box", "10.0.0.1"))
	require.NoError(t, err)

	clock.Advance(time.Hour)

	updated := created.Clone()
	updated.Host = "10.0.0.2"
	out, err := cat.UpdateConnection(created.ID, updated)
	require.NoError(t, err)
	require.Equal(t, created.CreatedAt, out.CreatedAt)
	require.True(t, out.UpdatedAt.After(created.UpdatedAt))
	require.Equal(t, "10.0.0.2", out.Host)
}

func TestDeleteConnectionOnMissingIDIsNotFound(t *testing.T) {
	cat, _ := newTestCatalog(t)
	err := cat.DeleteConnection(uuid.New())
	require.Error(t, err)
}

func TestGenerateUniqueNameAppendsCounter(t *testing.T) {
	cat, _ := newTestCatalog(t)

	_, err := cat.CreateConnection(sshConnection("db", "10.0.0.1"))
	require.NoError(t, err)

	name := cat.GenerateUniqueName("db")
	require.Equal(t, "db (2)", name)

	_, err = cat.CreateConnection(&catalog.Connection{
		Name:     name,
		Protocol: catalog.ProtocolSSH,
		Host:     "10.0.0.2",
		Config:   catalog.ProtocolConfig{SSH: &catalog.SshConfig{}},
	})
	require.NoError(t, err)

	require.Equal(t, "db (3)", cat.GenerateUniqueName("db"))
}

func TestDeleteGroupCascadeReparentsConnectionsToParent(t *testing.T) {
	cat, _ := newTestCatalog(t)

	root, err := cat.CreateGroup(&catalog.ConnectionGroup{Name: "root"})
	require.NoError(t, err)

	child, err := cat.CreateGroup(&catalog.ConnectionGroup{Name: "child", ParentID: &root.ID})
	require.NoError(t, err)

	conn := sshConnection("leaf", "10.0.0.1")
	conn.GroupID = &child.ID
	created, err := cat.CreateConnection(conn)
	require.NoError(t, err)

	err = cat.DeleteGroupCascade(child.ID)
	require.NoError(t, err)

	_, err = cat.GetGroup(child.ID)
	require.Error(t, err)

	moved, err := cat.GetConnection(created.ID)
	require.NoError(t, err)
	require.NotNil(t, moved.GroupID)
	require.Equal(t, root.ID, *moved.GroupID)
}

func TestUpdateGroupRejectsCycle(t *testing.T) {
	cat, _ := newTestCatalog(t)

	parent, err := cat.CreateGroup(&catalog.ConnectionGroup{Name: "parent"})
	require.NoError(t, err)
	child, err := cat.CreateGroup(&catalog.ConnectionGroup{Name: "child", ParentID: &parent.ID})
	require.NoError(t, err)

	parent.ParentID = &child.ID
	_, err = cat.UpdateGroup(parent.ID, parent)
	require.Error(t, err)
}

func TestSearchMatchesProtocolAndTagFacets(t *testing.T) {
	cat, _ := newTestCatalog(t)

	ssh := sshConnection("web-1", "web1.internal")
	ssh.Tags = []string{"prod"}
	_, err := cat.CreateConnection(ssh)
	require.NoError(t, err)

	rdp := &catalog.Connection{
		Name:     "win-1",
		Protocol: catalog.ProtocolRDP,
		Host:     "win1.internal",
		Config:   catalog.ProtocolConfig{RDP: &catalog.RdpConfig{}},
	}
	_, err = cat.CreateConnection(rdp)
	require.NoError(t, err)

	results := cat.Search("protocol:ssh tag:prod")
	require.Len(t, results, 1)
	require.Equal(t, "web-1", results[0].Name)

	results = cat.Search("web1")
	require.Len(t, results, 1)
	require.Equal(t, "web-1", results[0].Name)
}

func TestSearchTagAndGroupFacetsAreSubstringMatches(t *testing.T) {
	cat, _ := newTestCatalog(t)

	group, err := cat.CreateGroup(&catalog.ConnectionGroup{Name: "production-east"})
	require.NoError(t, err)

	ssh := sshConnection("web-1", "web1.internal")
	ssh.Tags = []string{"prod"}
	ssh.GroupID = &group.ID
	_, err = cat.CreateConnection(ssh)
	require.NoError(t, err)

	results := cat.Search("tag:rod")
	require.Len(t, results, 1)
	require.Equal(t, "web-1", results[0].Name)

	results = cat.Search("group:uction-eas")
	require.Len(t, results, 1)
	require.Equal(t, "web-1", results[0].Name)
}

func TestSearchPropFacetMatchesCustomPropertyNameSubstring(t *testing.T) {
	cat, _ := newTestCatalog(t)

	ssh := sshConnection("web-1", "web1.internal")
	ssh.CustomProperties = []catalog.CustomProperty{{Name: "datacenter", Value: "east"}}
	_, err := cat.CreateConnection(ssh)
	require.NoError(t, err)

	other := sshConnection("web-2", "web2.internal")
	_, err = cat.CreateConnection(other)
	require.NoError(t, err)

	results := cat.Search("prop:center")
	require.Len(t, results, 1)
	require.Equal(t, "web-1", results[0].Name)

	require.Empty(t, cat.Search("prop:east"))
}

func TestSearchHistoryPromotesRepeatedQueryToFront(t *testing.T) {
	cat, _ := newTestCatalog(t)

	cat.Search("alpha")
	cat.Search("beta")
	cat.Search("alpha")

	history := cat.SearchHistory()
	require.Equal(t, []string{"alpha", "beta"}, history)
}

func TestCopyPasteClipboardAssignsFreshIDAndUniqueName(t *testing.T) {
	cat, _ := newTestCatalog(t)

	created, err := cat.CreateConnection(sshConnection("template-box", "10.0.0.1"))
	require.NoError(t, err)

	require.NoError(t, cat.CopyToClipboard(created.ID))

	pasted, err := cat.PasteFromClipboard()
	require.NoError(t, err)
	require.NotEqual(t, created.ID, pasted.ID)
	require.Equal(t, "template-box (2)", pasted.Name)
}
