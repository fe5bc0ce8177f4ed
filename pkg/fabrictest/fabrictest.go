// Package fabrictest builds small fabrics for tests.
package fabrictest

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/dd0wney/cluso-fabric/pkg/fabric"
	"github.com/dd0wney/cluso-fabric/pkg/logging"
	"github.com/dd0wney/cluso-fabric/pkg/snapshot"
)

// Builder accumulates records. Methods chain; Link rewires the Connection
// fields of both ports already added.
type Builder struct {
	rec   snapshot.Records
	index map[string]int
}

// New returns an empty Builder.
func New() *Builder {
	return &Builder{index: make(map[string]int)}
}

func (b *Builder) add(p fabric.Port) *Builder {
	if i, ok := b.index[p.WWPN]; ok {
		b.rec.Ports[i] = p
		return b
	}
	b.index[p.WWPN] = len(b.rec.Ports)
	b.rec.Ports = append(b.rec.Ports, p)
	return b
}

// Port adds an arbitrary port record.
func (b *Builder) Port(p fabric.Port) *Builder {
	return b.add(p)
}

// Initiator adds a host port.
func (b *Builder) Initiator(wwpn string, speed int) *Builder {
	return b.add(fabric.Port{WWPN: wwpn, Role: fabric.RoleInitiator, Speed: speed, NodeName: "host-" + wwpn})
}

// Target adds an array port on node key of array.
func (b *Builder) Target(wwpn, array, key string, speed int) *Builder {
	return b.add(fabric.Port{
		WWPN:      wwpn,
		Role:      fabric.RoleTarget,
		Speed:     speed,
		ArrayName: array,
		NodeKey:   key,
		PortID:    key + ":0:1",
	})
}

// SwitchPort adds a port of switchID. The class is inferred at build time.
func (b *Builder) SwitchPort(wwpn, switchID string, index, speed int) *Builder {
	return b.add(fabric.Port{
		WWPN:      wwpn,
		Role:      fabric.RoleSwitch,
		Speed:     speed,
		SwitchID:  switchID,
		PortIndex: index,
	})
}

// Array declares a storage array with nodeCount nodes.
func (b *Builder) Array(name string, nodeCount int) *Builder {
	b.rec.Arrays = append(b.rec.Arrays, snapshot.ArrayRecord{
		TargetArray: fabric.TargetArray{WWNN: "wwnn-" + name, Name: name, NodeCount: nodeCount},
	})
	return b
}

// Link physically connects two added ports.
func (b *Builder) Link(x, y string) *Builder {
	if i, ok := b.index[x]; ok {
		b.rec.Ports[i].Connection = y
	}
	if i, ok := b.index[y]; ok {
		b.rec.Ports[i].Connection = x
	}
	return b
}

// Zone adds a zone.
func (b *Builder) Zone(name string, members ...string) *Builder {
	b.rec.Zones = append(b.rec.Zones, fabric.Zone{Name: name, Members: members})
	return b
}

// Records returns a copy of the accumulated records.
func (b *Builder) Records() snapshot.Records {
	out := snapshot.Records{
		Ports:  append([]fabric.Port(nil), b.rec.Ports...),
		Nodes:  append([]fabric.Node(nil), b.rec.Nodes...),
		Arrays: append([]snapshot.ArrayRecord(nil), b.rec.Arrays...),
		Zones:  append([]fabric.Zone(nil), b.rec.Zones...),
		Issues: append([]fabric.Issue(nil), b.rec.Issues...),
	}
	return out
}

// Load builds a snapshot or fails the test.
func (b *Builder) Load(t testing.TB) *snapshot.Snapshot {
	t.Helper()
	snap, err := snapshot.Load(b.Records(), snapshot.WithLogger(logging.NopLogger{}))
	if err != nil {
		t.Fatalf("load snapshot: %v", err)
	}
	return snap
}

// ScenarioA: I1(32G) cabled straight to T1(16G).
func ScenarioA() *Builder {
	return New().
		Array("arr1", 1).
		Initiator("I1", 32).
		Target("T1", "arr1", "0", 16).
		Link("I1", "T1").
		Zone("z1", "I1", "T1")
}

// ScenarioB: I1(32G)-F1-F2-T1(16G) with F1 and F2 on one switch.
func ScenarioB() *Builder {
	return New().
		Array("arr1", 1).
		Initiator("I1", 32).
		Target("T1", "arr1", "0", 16).
		SwitchPort("F1", "sw1", 1, 32).
		SwitchPort("F2", "sw1", 2, 32).
		Link("I1", "F1").
		Link("F2", "T1").
		Zone("z1", "I1", "T1")
}

// ScenarioC: switches sw1 and sw2 joined by one 8G ISL (E1-E2). I1 and
// extra initiators I2..I{1+extra} (all 32G) sit on sw1, T1(16G) on sw2,
// and every initiator is zoned with T1.
func ScenarioC(extra int) *Builder {
	b := New().
		Array("arr1", 1).
		Target("T1", "arr1", "0", 16).
		SwitchPort("E1", "sw1", 0, 8).
		SwitchPort("E2", "sw2", 0, 8).
		SwitchPort("S2F1", "sw2", 1, 32).
		Link("E1", "E2").
		Link("S2F1", "T1")

	members := []string{"T1"}
	for i := 1; i <= 1+extra; i++ {
		host := "I" + string(rune('0'+i))
		port := "S1F" + string(rune('0'+i))
		b.Initiator(host, 32).
			SwitchPort(port, "sw1", i, 32).
			Link(host, port)
		members = append(members, host)
	}
	return b.Zone("z1", members...)
}

// ScenarioD: two unconnected switch islands. I1 and T1 share sw1, T2 sits
// alone on sw2.
func ScenarioD() *Builder {
	return New().
		Array("arr1", 1).
		Array("arr2", 1).
		Initiator("I1", 32).
		Target("T1", "arr1", "0", 16).
		Target("T2", "arr2", "0", 16).
		SwitchPort("A1", "sw1", 1, 32).
		SwitchPort("A2", "sw1", 2, 32).
		SwitchPort("B1", "sw2", 1, 32).
		Link("I1", "A1").
		Link("A2", "T1").
		Link("B1", "T2").
		Zone("z1", "I1", "T1", "T2")
}

// Random builds a switched fabric from r: endpoints hang off random
// switches, isls join random distinct switch pairs, and every initiator is
// zoned with a random subset of targets. Some switches may end up isolated.
func Random(r *rand.Rand, switches, endpoints, isls int) *Builder {
	if switches < 1 {
		switches = 1
	}
	speeds := []int{8, 16, 32, 64}
	b := New().Array("arr", 4)
	next := make([]int, switches)
	switchPort := func(sw int) string {
		id := fmt.Sprintf("sw%02d-p%03d", sw, next[sw])
		b.SwitchPort(id, fmt.Sprintf("sw%02d", sw), next[sw], speeds[r.Intn(len(speeds))])
		next[sw]++
		return id
	}

	var initiators, targets []string
	for i := 0; i < endpoints; i++ {
		speed := speeds[r.Intn(len(speeds))]
		var id string
		if r.Intn(2) == 0 {
			id = fmt.Sprintf("init-%03d", i)
			b.Initiator(id, speed)
			initiators = append(initiators, id)
		} else {
			id = fmt.Sprintf("tgt-%03d", i)
			b.Target(id, "arr", fmt.Sprint(r.Intn(4)), speed)
			targets = append(targets, id)
		}
		b.Link(id, switchPort(r.Intn(switches)))
	}

	if switches > 1 {
		for i := 0; i < isls; i++ {
			x := r.Intn(switches)
			y := r.Intn(switches - 1)
			if y >= x {
				y++
			}
			b.Link(switchPort(x), switchPort(y))
		}
	}

	for i, host := range initiators {
		members := []string{host}
		for _, t := range targets {
			if r.Intn(2) == 0 {
				members = append(members, t)
			}
		}
		b.Zone(fmt.Sprintf("zone-%03d", i), members...)
	}
	return b
}
