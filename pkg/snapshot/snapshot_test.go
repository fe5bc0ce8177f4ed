package snapshot

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-fabric/pkg/fabric"
	"github.com/dd0wney/cluso-fabric/pkg/logging"
)

func quiet() Option { return WithLogger(logging.NewNopLogger()) }

func sampleRecords() Records {
	return Records{
		Arrays: []ArrayRecord{{TargetArray: fabric.TargetArray{Name: "arr", NodeCount: 2, WWNN: "2ff70002ac01"}, SoftwareVersion: "4.5"}},
		Nodes: []fabric.Node{
			fabric.SwitchNode{Name: "edge-1", Vendor: "Brocade", Model: "G620"},
			fabric.InitiatorNode{Name: "esx01", HBA: "SN1610Q"},
		},
		Ports: []fabric.Port{
			{WWPN: "10:00:00:00:c9:00:00:01", Role: fabric.RoleInitiator, Speed: 32, Connection: "20:01:00:05:1e:00:00:01"},
			{WWPN: "20:01:00:05:1e:00:00:01", Role: fabric.RoleSwitch, SwitchID: "edge-1", PortIndex: 1, Speed: 32},
			{WWPN: "20:02:00:05:1e:00:00:01", Role: fabric.RoleSwitch, SwitchID: "edge-1", PortIndex: 2, Speed: 32, Connection: "21:00:00:02:ac:00:00:01"},
			{WWPN: "21:00:00:02:ac:00:00:01", Role: fabric.RoleTarget, Speed: 16, ArrayName: "arr", PortID: "0:1:1"},
			{WWPN: "21:00:00:02:ac:00:00:09", Role: fabric.RoleTarget, Speed: 0, ArrayName: "arr", PortID: "7:1:1"},
		},
		Zones: []fabric.Zone{{Name: "esx01_arr", Members: []string{"10:00:00:00:c9:00:00:01", "21:00:00:02:ac:00:00:01", "ghost"}}},
	}
}

func issueKinds(issues []fabric.Issue) []fabric.IssueKind {
	var kinds []fabric.IssueKind
	for _, i := range issues {
		kinds = append(kinds, i.Kind)
	}
	return kinds
}

func TestLoad(t *testing.T) {
	snap, err := Load(sampleRecords(), quiet())
	require.NoError(t, err)

	assert.NotEmpty(t, snap.ID())
	assert.False(t, snap.LoadedAt().IsZero())

	// back-references are filled in
	p, err := snap.Port("20:01:00:05:1E:00:00:01")
	require.NoError(t, err)
	assert.Equal(t, "10:00:00:00:c9:00:00:01", p.Connection)

	assert.Equal(t, []string{"20:01:00:05:1e:00:00:01"}, snap.Neighbors("10:00:00:00:c9:00:00:01"))
	assert.True(t, snap.Graph().HasEdge("20:01:00:05:1e:00:00:01", "20:02:00:05:1e:00:00:01"))

	_, err = snap.Node("arr-node1")
	assert.NoError(t, err)
	assert.Len(t, snap.Nodes(), 4)
	assert.Len(t, snap.Arrays(), 1)
	assert.Len(t, snap.PortsByRole(fabric.RoleTarget), 2)
	assert.Len(t, snap.Connections(), 2)

	assert.ElementsMatch(t, []fabric.IssueKind{
		fabric.IssueMalformedSpeed,
		fabric.IssueUnknownArrayNode,
		fabric.IssueUnknownZoneMember,
	}, issueKinds(snap.Issues()))

	sum := snap.Summary()
	assert.Equal(t, 1, sum.Initiators)
	assert.Equal(t, 2, sum.Targets)
	assert.Equal(t, 2, sum.SwitchPorts)
	assert.Equal(t, 3, sum.Edges)
	assert.Equal(t, 0, sum.ISLs)
	assert.Equal(t, 3, sum.Issues)
}

func TestLoad_DuplicatePort(t *testing.T) {
	records := sampleRecords()
	records.Ports = append(records.Ports, fabric.Port{WWPN: "10000000C9000001", Role: fabric.RoleTarget})

	snap, err := Load(records, quiet())
	require.NoError(t, err)
	assert.Contains(t, issueKinds(snap.Issues()), fabric.IssueDuplicatePort)
	p, _ := snap.Port("10:00:00:00:c9:00:00:01")
	assert.Equal(t, fabric.RoleInitiator, p.Role, "first registration wins")

	_, err = Load(records, quiet(), Strict())
	assert.True(t, errors.Is(err, fabric.ErrDuplicatePort))
}

func TestLoad_Empty(t *testing.T) {
	snap, err := Load(Records{}, quiet())
	require.NoError(t, err)
	assert.Empty(t, snap.Ports())
	assert.Empty(t, snap.Issues())
	assert.Equal(t, 0, snap.Graph().EdgeCount())
}

func TestSnapshotIsolation(t *testing.T) {
	snap, err := Load(sampleRecords(), quiet())
	require.NoError(t, err)

	ports := snap.Ports()
	ports[0].Connection = "tampered"
	issues := snap.Issues()
	issues[0].ID = "tampered"

	p, _ := snap.Port(ports[0].WWPN)
	assert.NotEqual(t, "tampered", p.Connection)
	assert.NotEqual(t, "tampered", snap.Issues()[0].ID)
}

func TestStore(t *testing.T) {
	store := NewStore(logging.NewNopLogger())

	_, err := store.Current()
	assert.True(t, errors.Is(err, ErrNoSnapshot))

	first, err := store.Reload(sampleRecords(), quiet())
	require.NoError(t, err)
	cur, err := store.Current()
	require.NoError(t, err)
	assert.Same(t, first, cur)

	second, err := Load(Records{}, quiet())
	require.NoError(t, err)
	prev := store.Swap(second)
	assert.Same(t, first, prev)
	cur, _ = store.Current()
	assert.Same(t, second, cur)

	assert.Same(t, second, store.Swap(nil), "nil swap keeps the current snapshot")
	cur, _ = store.Current()
	assert.Same(t, second, cur)
}

func TestStore_FailedReloadKeepsCurrent(t *testing.T) {
	store := NewStore(logging.NewNopLogger())
	first, err := store.Reload(sampleRecords(), quiet())
	require.NoError(t, err)

	bad := sampleRecords()
	bad.Ports = append(bad.Ports, fabric.Port{WWPN: "", Role: fabric.RoleTarget})
	_, err = store.Reload(bad, quiet(), Strict())
	require.Error(t, err)

	cur, _ := store.Current()
	assert.Same(t, first, cur)
}

func TestStore_ConcurrentReaders(t *testing.T) {
	store := NewStore(logging.NewNopLogger())
	_, err := store.Reload(sampleRecords(), quiet())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				snap, err := store.Current()
				if err != nil {
					t.Error(err)
					return
				}
				if len(snap.Neighbors("10:00:00:00:c9:00:00:01")) != 1 {
					t.Error("reader observed a partial graph")
					return
				}
			}
		}()
	}
	for i := 0; i < 10; i++ {
		if _, err := store.Reload(sampleRecords(), quiet()); err != nil {
			t.Fatal(err)
		}
	}
	wg.Wait()
}
