package fabric

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterPort(t *testing.T) {
	r := NewRegistry()

	require.NoError(t, r.RegisterPort(Port{WWPN: "10:00:00:00:C9:00:00:01", Role: RoleInitiator, Speed: 16}))

	p, err := r.Port("10000000c9000001")
	require.NoError(t, err)
	assert.Equal(t, "10:00:00:00:C9:00:00:01", p.WWPN, "identifiers keep their registered spelling")

	// same role replaces
	require.NoError(t, r.RegisterPort(Port{WWPN: "10:00:00:00:c9:00:00:01", Role: RoleInitiator, Speed: 32}))
	p, _ = r.Port("10:00:00:00:C9:00:00:01")
	assert.Equal(t, 32, p.Speed)
	assert.Equal(t, 1, r.PortCount())

	// different role is ambiguous
	err = r.RegisterPort(Port{WWPN: "10:00:00:00:C9:00:00:01", Role: RoleTarget})
	assert.True(t, errors.Is(err, ErrDuplicatePort))
	var fe *Error
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "port", fe.Entity)

	err = r.RegisterPort(Port{WWPN: "  ", Role: RoleTarget})
	assert.True(t, errors.Is(err, ErrInvalidRecord))
}

func TestRegistryLookups(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.RegisterArray(TargetArray{Name: "Array1", NodeCount: 2}, "4.5.1"))
	require.NoError(t, r.RegisterNode(SwitchNode{Name: "edge-1", Vendor: "Brocade"}))
	require.NoError(t, r.RegisterPort(Port{WWPN: "b", Role: RoleTarget}))
	require.NoError(t, r.RegisterPort(Port{WWPN: "a", Role: RoleInitiator}))
	require.NoError(t, r.RegisterPort(Port{WWPN: "c", Role: RoleSwitch}))

	_, err := r.Port("missing")
	assert.True(t, IsNotFound(err))
	_, err = r.Node("missing")
	assert.True(t, IsNotFound(err))
	_, err = r.Array("missing")
	assert.True(t, IsNotFound(err))

	a, err := r.Array("array1")
	require.NoError(t, err)
	assert.Equal(t, 2, a.NodeCount)

	n, err := r.Node("ARRAY1-node1")
	require.NoError(t, err)
	assert.Equal(t, NodeKindTargetArray, n.Kind())
	assert.Equal(t, "4.5.1", n.(TargetArrayNode).SoftwareVersion)

	var names []string
	for _, n := range r.Nodes() {
		names = append(names, n.NodeName())
	}
	assert.Equal(t, []string{"Array1-node0", "Array1-node1", "edge-1"}, names)

	var ids []string
	for _, p := range r.Ports() {
		ids = append(ids, p.WWPN)
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids)
	assert.Len(t, r.PortsByRole(RoleSwitch), 1)
}

func TestRegisterArray_KeepsExistingNodes(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.RegisterNode(TargetArrayNode{Name: "arr-node0", SoftwareVersion: "custom"}))
	require.NoError(t, r.RegisterArray(TargetArray{Name: "arr", NodeCount: 1}, "generated"))

	n, err := r.Node("arr-node0")
	require.NoError(t, err)
	assert.Equal(t, "custom", n.(TargetArrayNode).SoftwareVersion)
}

func TestAddZone_TrimsMembers(t *testing.T) {
	r := NewRegistry()
	r.AddZone(Zone{Name: "z", Members: []string{" a ", "", "b"}})
	assert.Equal(t, []Zone{{Name: "z", Members: []string{"a", "b"}}}, r.Zones())
}

func newLinkedRegistry(t *testing.T) *Registry {
	t.Helper()
	r := NewRegistry()
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, r.RegisterPort(Port{WWPN: id, Role: RoleSwitch, SwitchID: "sw"}))
	}
	return r
}

func connection(r *Registry, id string) string {
	p, _ := r.Port(id)
	return p.Connection
}

func TestConnectDisconnect(t *testing.T) {
	r := newLinkedRegistry(t)

	require.NoError(t, r.Connect("a", "b"))
	assert.Equal(t, "b", connection(r, "a"))
	assert.Equal(t, "a", connection(r, "b"))

	// rewiring a releases b
	require.NoError(t, r.Connect("a", "c"))
	assert.Equal(t, "c", connection(r, "a"))
	assert.Equal(t, "", connection(r, "b"))

	// disconnecting an unrelated pair is a no-op
	require.NoError(t, r.Disconnect("a", "b"))
	assert.Equal(t, "c", connection(r, "a"))

	require.NoError(t, r.Disconnect("C", "A"))
	assert.Equal(t, "", connection(r, "a"))
	assert.Equal(t, "", connection(r, "c"))

	assert.True(t, IsNotFound(r.Connect("a", "zz")))
	assert.True(t, IsNotFound(r.Disconnect("zz", "a")))
}

func TestReconcile(t *testing.T) {
	r := NewRegistry()
	ports := []Port{
		{WWPN: "a", Role: RoleSwitch, Connection: "B"},  // one-sided, gains back-reference
		{WWPN: "b", Role: RoleSwitch},                   //
		{WWPN: "c", Role: RoleSwitch, Connection: "d"},  // symmetric
		{WWPN: "d", Role: RoleSwitch, Connection: "c"},  //
		{WWPN: "e", Role: RoleSwitch, Connection: "c"},  // c is taken
		{WWPN: "f", Role: RoleSwitch, Connection: "zz"}, // dangling, left for the builder
	}
	for _, p := range ports {
		require.NoError(t, r.RegisterPort(p))
	}

	issues := r.Reconcile()

	assert.Equal(t, "b", connection(r, "a"))
	assert.Equal(t, "a", connection(r, "b"))
	assert.Equal(t, "d", connection(r, "c"))
	assert.Equal(t, "", connection(r, "e"))
	assert.Equal(t, "zz", connection(r, "f"))
	require.Len(t, issues, 1)
	assert.Equal(t, IssueAsymmetricConnection, issues[0].Kind)
	assert.Equal(t, "e", issues[0].ID)
}
