package zoning

import (
	"errors"
	"math/rand"
	"reflect"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-fabric/pkg/fabric"
	"github.com/dd0wney/cluso-fabric/pkg/fabrictest"
	"github.com/dd0wney/cluso-fabric/pkg/logging"
	"github.com/dd0wney/cluso-fabric/pkg/snapshot"
)

// twoNodeArray zones host H1 with ports on both nodes of arr and host H2
// with two ports of node 0 only.
func twoNodeArray() *fabrictest.Builder {
	return fabrictest.New().
		Array("arr", 2).
		Initiator("H1", 32).
		Initiator("H2", 32).
		Initiator("H3", 32).
		Target("T0a", "arr", "0", 16).
		Target("T0b", "arr", "0", 16).
		Target("T1a", "arr", "1", 16).
		Zone("z1", "H1", "T0a").
		Zone("z2", "H1", "T1a", "T0a").
		Zone("z3", "H2", "T0a", "T0b").
		Zone("z4", "H3")
}

func TestBuildHostMapping(t *testing.T) {
	snap := twoNodeArray().Load(t)

	mapping := BuildHostMapping(snap)
	assert.Equal(t, []string{"T0a", "T1a"}, mapping["H1"], "T0a is in two zones but recorded once")
	assert.Equal(t, []string{"T0a", "T0b"}, mapping["H2"])
	assert.Equal(t, []string{}, mapping["H3"])
	assert.Equal(t, []string{"H1", "H2", "H3"}, mapping.Hosts())
}

func TestBuildHostMapping_IgnoresUnknownMembers(t *testing.T) {
	snap := fabrictest.ScenarioA().
		Zone("z2", "I1", "ghost", "t1").
		Load(t)

	mapping := BuildHostMapping(snap)
	assert.Equal(t, HostMapping{"I1": {"T1"}}, mapping)
}

func TestCheckHostConnectivity_Full(t *testing.T) {
	snap := twoNodeArray().Load(t)

	report, err := CheckHostConnectivity(snap, "h1")
	require.NoError(t, err)
	assert.Equal(t, "H1", report.Host)
	assert.True(t, report.FullyConnected)
	require.Len(t, report.Arrays, 1)

	ac := report.Arrays[0]
	assert.Equal(t, "arr", ac.Array)
	assert.Equal(t, 2, ac.ExpectedNodes)
	assert.Equal(t, []string{"arr-node0", "arr-node1"}, ac.ConnectedNodes)
	assert.Empty(t, ac.MissingNodes)
	assert.InDelta(t, 100.0, ac.ConnectedPct, 1e-9)
}

func TestCheckHostConnectivity_Partial(t *testing.T) {
	snap := twoNodeArray().Load(t)

	report, err := CheckHostConnectivity(snap, "H2")
	require.NoError(t, err)
	assert.False(t, report.FullyConnected)

	ac := report.Arrays[0]
	assert.Equal(t, []string{"arr-node0"}, ac.ConnectedNodes, "two ports of one node count once")
	assert.Equal(t, []string{"arr-node1"}, ac.MissingNodes)
	assert.Equal(t, 1, ac.MissingCount)
	assert.InDelta(t, 50.0, ac.MissingPct, 1e-9)
	assert.Equal(t, []string{"T0a", "T0b"}, ac.Targets)
}

func TestCheckHostConnectivity_NodeSuffixedArray(t *testing.T) {
	snap := fabrictest.New().
		Array("arr", 2).
		Initiator("H1", 16).
		Port(fabric.Port{WWPN: "Ta", Role: fabric.RoleTarget, Speed: 16, ArrayName: "arr-node0", PortID: "0:1:1"}).
		Port(fabric.Port{WWPN: "Tb", Role: fabric.RoleTarget, Speed: 16, ArrayName: "arr_node1", PortID: "1:1:1"}).
		Zone("z", "H1", "Ta", "Tb").
		Load(t)

	report, err := CheckHostConnectivity(snap, "H1")
	require.NoError(t, err)
	require.Len(t, report.Arrays, 1)
	assert.True(t, report.FullyConnected)
}

func TestCheckHostConnectivity_SuffixOnly(t *testing.T) {
	snap := fabrictest.New().
		Array("arr", 2).
		Initiator("I1", 32).
		Port(fabric.Port{WWPN: "T0", Role: fabric.RoleTarget, Speed: 16, ArrayName: "arr-node0"}).
		Port(fabric.Port{WWPN: "T1", Role: fabric.RoleTarget, Speed: 16, ArrayName: "arr-node1"}).
		Zone("z", "I1", "T0", "T1").
		Load(t)

	report, err := CheckHostConnectivity(snap, "I1")
	require.NoError(t, err)
	require.Len(t, report.Arrays, 1)
	assert.Equal(t, []string{"arr-node0", "arr-node1"}, report.Arrays[0].ConnectedNodes)
	assert.Empty(t, report.Arrays[0].MissingNodes)
	assert.True(t, report.FullyConnected)
	assert.Empty(t, snap.Issues(), "suffixed targets belong to known nodes")
}

func TestCheckHostConnectivity_UnknownArray(t *testing.T) {
	snap := fabrictest.New().
		Initiator("H1", 16).
		Target("T1", "mystery", "0", 16).
		Zone("z", "H1", "T1").
		Load(t)

	report, err := CheckHostConnectivity(snap, "H1")
	require.NoError(t, err)
	assert.False(t, report.FullyConnected)
	assert.Equal(t, 0, report.Arrays[0].ExpectedNodes)
}

func TestCheckHostConnectivity_Errors(t *testing.T) {
	snap := twoNodeArray().
		Initiator("lonely", 8).
		Load(t)

	_, err := CheckHostConnectivity(snap, "nope")
	assert.True(t, errors.Is(err, fabric.ErrNotFound))

	_, err = CheckHostConnectivity(snap, "T0a")
	assert.True(t, errors.Is(err, fabric.ErrNotFound), "targets are not hosts")

	_, err = CheckHostConnectivity(snap, "lonely")
	assert.True(t, errors.Is(err, fabric.ErrHostNotMapped))

	report, err := CheckHostConnectivity(snap, "H3")
	require.NoError(t, err, "a zoned host without targets is mapped")
	assert.Empty(t, report.Arrays)
	assert.False(t, report.FullyConnected)
}

func TestCheckHostConnectivityWith(t *testing.T) {
	snap := twoNodeArray().Load(t)
	mapping := BuildHostMapping(snap)

	a, err := CheckHostConnectivityWith(snap, mapping, "H2")
	require.NoError(t, err)
	b, err := CheckHostConnectivity(snap, "H2")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

// TestBuildHostMappingDeterminism runs the mapper twice on random zone sets
func TestBuildHostMappingDeterminism(t *testing.T) {
	properties := gopter.NewProperties(gopter.DefaultTestParameters())

	properties.Property("mapping is deterministic", prop.ForAll(
		func(seed int64) bool {
			b := fabrictest.Random(rand.New(rand.NewSource(seed)), 2, 12, 1)
			snap, err := snapshot.Load(b.Records(), snapshot.WithLogger(logging.NewNopLogger()))
			if err != nil {
				return false
			}
			return reflect.DeepEqual(BuildHostMapping(snap), BuildHostMapping(snap))
		},
		gen.Int64(),
	))

	properties.TestingRun(t)
}
