package graphql

import (
	"encoding/json"
	"testing"

	"github.com/dd0wney/cluso-fabric/pkg/capacity"
	"github.com/dd0wney/cluso-fabric/pkg/fabrictest"
	"github.com/dd0wney/cluso-fabric/pkg/logging"
	"github.com/dd0wney/cluso-fabric/pkg/snapshot"
	"github.com/graphql-go/graphql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSchema(t *testing.T, b *fabrictest.Builder) graphql.Schema {
	t.Helper()
	store := snapshot.NewStore(logging.NopLogger{})
	if b != nil {
		store.Swap(b.Load(t))
	}
	schema, err := NewSchema(store, capacity.Options{})
	require.NoError(t, err)
	return schema
}

// run executes query and decodes its data into out.
func run(t *testing.T, schema graphql.Schema, query string, out any) {
	t.Helper()
	result := ExecuteQuery(query, schema)
	require.False(t, result.HasErrors(), "unexpected errors: %v", result.Errors)
	raw, err := json.Marshal(result.Data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, out))
}

func TestSchema_Snapshot(t *testing.T) {
	schema := newTestSchema(t, fabrictest.ScenarioB())

	var out struct {
		Snapshot struct {
			ID          string `json:"id"`
			LoadedAt    string `json:"loadedAt"`
			Initiators  int    `json:"initiators"`
			Targets     int    `json:"targets"`
			SwitchPorts int    `json:"switchPorts"`
			Zones       int    `json:"zones"`
		} `json:"snapshot"`
	}
	run(t, schema, `{ snapshot { id loadedAt initiators targets switchPorts zones } }`, &out)

	assert.NotEmpty(t, out.Snapshot.ID)
	assert.NotEmpty(t, out.Snapshot.LoadedAt)
	assert.Equal(t, 1, out.Snapshot.Initiators)
	assert.Equal(t, 1, out.Snapshot.Targets)
	assert.Equal(t, 2, out.Snapshot.SwitchPorts)
	assert.Equal(t, 1, out.Snapshot.Zones)
}

func TestSchema_NoSnapshot(t *testing.T) {
	schema := newTestSchema(t, nil)

	result := ExecuteQuery(`{ snapshot { id } }`, schema)
	require.True(t, result.HasErrors())
	assert.Contains(t, result.Errors[0].Message, snapshot.ErrNoSnapshot.Error())
}

func TestSchema_Ports(t *testing.T) {
	schema := newTestSchema(t, fabrictest.ScenarioB())

	var out struct {
		Ports []struct {
			WWPN     string `json:"wwpn"`
			Role     string `json:"role"`
			SwitchID string `json:"switchId"`
			Class    string `json:"class"`
		} `json:"ports"`
	}
	run(t, schema, `{ ports(role: "switch") { wwpn role switchId class } }`, &out)

	require.Len(t, out.Ports, 2)
	for _, p := range out.Ports {
		assert.Equal(t, "switch", p.Role)
		assert.Equal(t, "sw1", p.SwitchID)
		assert.NotEmpty(t, p.Class)
	}

	result := ExecuteQuery(`{ ports(role: "router") { wwpn } }`, schema)
	assert.True(t, result.HasErrors())
}

func TestSchema_Port(t *testing.T) {
	schema := newTestSchema(t, fabrictest.ScenarioA())

	var out struct {
		Port struct {
			WWPN       string `json:"wwpn"`
			Role       string `json:"role"`
			Speed      int    `json:"speed"`
			Connection string `json:"connection"`
			Class      *string
		} `json:"port"`
	}
	run(t, schema, `{ port(wwpn: "i1") { wwpn role speed connection class } }`, &out)

	assert.Equal(t, "I1", out.Port.WWPN)
	assert.Equal(t, "initiator", out.Port.Role)
	assert.Equal(t, 32, out.Port.Speed)
	assert.Equal(t, "T1", out.Port.Connection)
	assert.Nil(t, out.Port.Class)

	result := ExecuteQuery(`{ port(wwpn: "missing") { wwpn } }`, schema)
	assert.True(t, result.HasErrors())
}

func TestSchema_Path(t *testing.T) {
	schema := newTestSchema(t, fabrictest.ScenarioB())

	var out struct {
		Path struct {
			Found          bool     `json:"found"`
			Hops           []string `json:"hops"`
			Length         int      `json:"length"`
			EffectiveSpeed int      `json:"effectiveSpeed"`
			Limiting       []struct {
				From  string `json:"from"`
				To    string `json:"to"`
				Speed int    `json:"speed"`
			} `json:"limiting"`
			Speeds []int `json:"speeds"`
		} `json:"path"`
	}
	run(t, schema, `{
		path(source: "I1", destination: "T1") {
			found hops length effectiveSpeed speeds
			limiting { from to speed }
		}
	}`, &out)

	assert.True(t, out.Path.Found)
	assert.Equal(t, []string{"I1", "F1", "F2", "T1"}, out.Path.Hops)
	assert.Equal(t, 3, out.Path.Length)
	assert.Equal(t, 16, out.Path.EffectiveSpeed)
	assert.Equal(t, []int{16, 32}, out.Path.Speeds)
	require.Len(t, out.Path.Limiting, 1)
	assert.Equal(t, "F2", out.Path.Limiting[0].From)
	assert.Equal(t, "T1", out.Path.Limiting[0].To)
}

func TestSchema_PathNoRoute(t *testing.T) {
	schema := newTestSchema(t, fabrictest.ScenarioD())

	var out struct {
		Path struct {
			Found bool     `json:"found"`
			Hops  []string `json:"hops"`
		} `json:"path"`
	}
	run(t, schema, `{ path(source: "I1", destination: "T2") { found hops } }`, &out)
	assert.False(t, out.Path.Found)
	assert.Empty(t, out.Path.Hops)

	result := ExecuteQuery(`{ path(source: "I1", destination: "A1") { found } }`, schema)
	assert.True(t, result.HasErrors(), "switch ports are not endpoints")
}

func TestSchema_NodeOversubscription(t *testing.T) {
	schema := newTestSchema(t, fabrictest.ScenarioC(4))

	type node struct {
		Node           string   `json:"node"`
		Capacity       int      `json:"capacity"`
		Demand         int      `json:"demand"`
		Ratio          *float64 `json:"ratio"`
		Oversubscribed bool     `json:"oversubscribed"`
		LinkSpeeds     []struct {
			Speed int `json:"speed"`
			Ports int `json:"ports"`
		} `json:"linkSpeeds"`
	}
	var out struct {
		Default []node `json:"default"`
		Relaxed []node `json:"relaxed"`
	}
	run(t, schema, `{
		default: nodeOversubscription(oversubscribedOnly: true) {
			node capacity demand ratio oversubscribed linkSpeeds { speed ports }
		}
		relaxed: nodeOversubscription(threshold: 10, oversubscribedOnly: true) { node }
	}`, &out)

	require.Len(t, out.Default, 1)
	n := out.Default[0]
	assert.Equal(t, "arr1-node0", n.Node)
	assert.Equal(t, 16, n.Capacity)
	assert.Equal(t, 80, n.Demand)
	require.NotNil(t, n.Ratio)
	assert.InDelta(t, 5.0, *n.Ratio, 1e-9)
	assert.True(t, n.Oversubscribed)
	require.Len(t, n.LinkSpeeds, 1)
	assert.Equal(t, 16, n.LinkSpeeds[0].Speed)
	assert.Equal(t, 1, n.LinkSpeeds[0].Ports)

	assert.Empty(t, out.Relaxed)

	result := ExecuteQuery(`{ nodeOversubscription(threshold: 0) { node } }`, schema)
	assert.True(t, result.HasErrors())
}

func TestSchema_Oversubscription(t *testing.T) {
	schema := newTestSchema(t, fabrictest.ScenarioC(4))

	type report struct {
		Status string `json:"status"`
		Nodes  []struct {
			Node string `json:"node"`
		} `json:"nodes"`
		ISL *struct {
			Reports []struct {
				Pair struct {
					A string `json:"a"`
					B string `json:"b"`
				} `json:"pair"`
				Demand         int  `json:"demand"`
				Capacity       int  `json:"capacity"`
				Oversubscribed bool `json:"oversubscribed"`
			} `json:"reports"`
		} `json:"isl"`
	}
	var out struct {
		NodeFirst report `json:"nodeFirst"`
		Both      report `json:"both"`
	}
	run(t, schema, `{
		nodeFirst: oversubscription { status nodes { node } isl { reports { demand } } }
		both: oversubscription(reportBoth: true) {
			status
			nodes { node }
			isl { reports { pair { a b } demand capacity oversubscribed } }
		}
	}`, &out)

	assert.Equal(t, capacity.StatusNodeOversubscribed, out.NodeFirst.Status)
	assert.Len(t, out.NodeFirst.Nodes, 1)
	assert.Nil(t, out.NodeFirst.ISL)

	assert.Equal(t, capacity.StatusNodeOversubscribed, out.Both.Status)
	require.NotNil(t, out.Both.ISL)
	require.Len(t, out.Both.ISL.Reports, 1)
	r := out.Both.ISL.Reports[0]
	assert.Equal(t, "sw1", r.Pair.A)
	assert.Equal(t, "sw2", r.Pair.B)
	assert.Equal(t, 80, r.Demand)
	assert.Equal(t, 8, r.Capacity)
	assert.True(t, r.Oversubscribed)
}

func TestSchema_ISLOversubscription(t *testing.T) {
	schema := newTestSchema(t, fabrictest.ScenarioB())

	var out struct {
		ISL struct {
			SingleSwitch bool  `json:"singleSwitch"`
			Reports      []any `json:"reports"`
		} `json:"islOversubscription"`
	}
	run(t, schema, `{ islOversubscription { singleSwitch reports { demand } } }`, &out)
	assert.True(t, out.ISL.SingleSwitch)
	assert.Empty(t, out.ISL.Reports)
}

func TestSchema_Hosts(t *testing.T) {
	schema := newTestSchema(t, fabrictest.ScenarioD())

	var out struct {
		Hosts []struct {
			Host    string   `json:"host"`
			Targets []string `json:"targets"`
		} `json:"hosts"`
		HostConnectivity struct {
			Host           string `json:"host"`
			FullyConnected bool   `json:"fullyConnected"`
			Arrays         []struct {
				Array         string `json:"array"`
				ExpectedNodes int    `json:"expectedNodes"`
			} `json:"arrays"`
		} `json:"hostConnectivity"`
	}
	run(t, schema, `{
		hosts { host targets }
		hostConnectivity(host: "I1") { host fullyConnected arrays { array expectedNodes } }
	}`, &out)

	require.Len(t, out.Hosts, 1)
	assert.Equal(t, "I1", out.Hosts[0].Host)
	assert.Equal(t, []string{"T1", "T2"}, out.Hosts[0].Targets)

	assert.Equal(t, "I1", out.HostConnectivity.Host)
	assert.True(t, out.HostConnectivity.FullyConnected)
	require.Len(t, out.HostConnectivity.Arrays, 2)
	assert.Equal(t, "arr1", out.HostConnectivity.Arrays[0].Array)
	assert.Equal(t, 1, out.HostConnectivity.Arrays[0].ExpectedNodes)

	result := ExecuteQuery(`{ hostConnectivity(host: "T1") { host } }`, schema)
	assert.True(t, result.HasErrors(), "a target is not a host")
}

func TestSchema_IslandsAndConnections(t *testing.T) {
	schema := newTestSchema(t, fabrictest.ScenarioD())

	var out struct {
		Islands []struct {
			ID    int      `json:"id"`
			Ports []string `json:"ports"`
		} `json:"islands"`
		Connections []struct {
			A struct {
				WWPN string `json:"wwpn"`
			} `json:"a"`
			B struct {
				WWPN string `json:"wwpn"`
			} `json:"b"`
		} `json:"connections"`
	}
	run(t, schema, `{ islands { id ports } connections { a { wwpn } b { wwpn } } }`, &out)

	require.Len(t, out.Islands, 2)
	assert.Len(t, out.Connections, 3)
}

func TestSchema_Issues(t *testing.T) {
	schema := newTestSchema(t, fabrictest.ScenarioA().Zone("z2", "I1", "ghost"))

	var out struct {
		Issues []struct {
			Kind string `json:"kind"`
			ID   string `json:"id"`
		} `json:"issues"`
	}
	run(t, schema, `{ issues { kind id } }`, &out)

	require.NotEmpty(t, out.Issues)
	assert.Equal(t, "unknown_zone_member", out.Issues[0].Kind)
}
