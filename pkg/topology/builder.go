package topology

import (
	"sort"

	"github.com/dd0wney/cluso-fabric/pkg/fabric"
	"github.com/dd0wney/cluso-fabric/pkg/logging"
)

// Build derives the adjacency graph from the registry's ports and their
// physical connections:
//
//  1. every connection becomes an undirected physical edge; connections to
//     unregistered ports are dropped and reported as dangling
//  2. connected switch ports are classified F or E (explicit class first,
//     then inferred from the counterpart)
//  3. within each switch every F port is joined to every E port and to
//     every other F port
//  4. links between ports of different switches are recorded as ISLs,
//     grouped by switch pair
//
// Ports are visited in WWPN order so the result is identical across runs.
func Build(reg *fabric.Registry, logger logging.Logger) (*Graph, []fabric.Issue) {
	logger = logging.OrDefault(logger).With(logging.Component("topology"))

	b := &builder{
		reg:    reg,
		logger: logger,
		set:    make(map[string]map[string]struct{}),
		g: &Graph{
			classes:  make(map[string]fabric.PortClass),
			isls:     make(map[SwitchPair][]ISLLink),
			islPorts: make(map[string]ISLLink),
		},
	}

	ports := reg.Ports()
	b.addPhysicalEdges(ports)
	groups := b.classifySwitchPorts(ports)
	b.addFanoutEdges(groups)
	b.recordISLs(ports)
	b.finish()

	logger.Debug("topology built",
		logging.Int("vertices", len(b.g.adjacency)),
		logging.Int("edges", len(b.g.edges)),
		logging.Int("isls", b.g.ISLCount()),
	)
	return b.g, b.issues
}

type builder struct {
	reg    *fabric.Registry
	logger logging.Logger
	set    map[string]map[string]struct{}
	g      *Graph
	issues []fabric.Issue
}

// switchGroup holds the classified connected ports of one switch.
type switchGroup struct {
	id     string
	fabric []string
	expand []string
}

func (b *builder) addEdge(x, y string, kind EdgeKind) {
	if x == y {
		return
	}
	if _, ok := b.set[x][y]; ok {
		return
	}
	if b.set[x] == nil {
		b.set[x] = make(map[string]struct{})
	}
	if b.set[y] == nil {
		b.set[y] = make(map[string]struct{})
	}
	b.set[x][y] = struct{}{}
	b.set[y][x] = struct{}{}
	b.g.edges = append(b.g.edges, Edge{From: x, To: y, Kind: kind})
}

// peer resolves a port's counterpart, or nil when it is absent.
func (b *builder) peer(p *fabric.Port) *fabric.Port {
	if !p.IsConnected() {
		return nil
	}
	q, ok := b.reg.Lookup(p.Connection)
	if !ok {
		return nil
	}
	return q
}

func (b *builder) addPhysicalEdges(ports []*fabric.Port) {
	for _, p := range ports {
		if !p.IsConnected() {
			continue
		}
		q := b.peer(p)
		if q == nil {
			b.logger.Warn("dangling connection dropped",
				logging.WWPN(p.WWPN), logging.Peer(p.Connection))
			b.issues = append(b.issues, fabric.Issue{
				Kind:   fabric.IssueDanglingConnection,
				ID:     p.WWPN,
				Detail: "connected port " + p.Connection + " is not registered",
			})
			continue
		}
		b.addEdge(p.WWPN, q.WWPN, EdgePhysical)
	}
}

// classify resolves the F/E class of one connected switch port.
func classify(p, q *fabric.Port) fabric.PortClass {
	if p.Class != fabric.ClassUnknown {
		return p.Class
	}
	switch q.Role {
	case fabric.RoleInitiator, fabric.RoleTarget:
		return fabric.ClassFabric
	case fabric.RoleSwitch:
		if q.SwitchID != "" && q.SwitchID != p.SwitchID {
			return fabric.ClassExpansion
		}
		// Same-chassis loopback.
		return fabric.ClassFabric
	}
	return fabric.ClassUnknown
}

func (b *builder) classifySwitchPorts(ports []*fabric.Port) []*switchGroup {
	byID := make(map[string]*switchGroup)
	var order []*switchGroup

	for _, p := range ports {
		if p.Role != fabric.RoleSwitch {
			continue
		}
		q := b.peer(p)
		if q == nil {
			continue
		}
		class := classify(p, q)
		b.g.classes[p.WWPN] = class

		if p.SwitchID == "" {
			b.logger.Warn("switch port without switch identifier excluded from fan-out",
				logging.WWPN(p.WWPN))
			b.issues = append(b.issues, fabric.Issue{
				Kind:   fabric.IssueMissingSwitchID,
				ID:     p.WWPN,
				Detail: "switch port has no switch identifier",
			})
			continue
		}

		grp, ok := byID[p.SwitchID]
		if !ok {
			grp = &switchGroup{id: p.SwitchID}
			byID[p.SwitchID] = grp
			order = append(order, grp)
		}
		switch class {
		case fabric.ClassFabric:
			grp.fabric = append(grp.fabric, p.WWPN)
		case fabric.ClassExpansion:
			grp.expand = append(grp.expand, p.WWPN)
		}
	}

	sort.Slice(order, func(i, j int) bool { return order[i].id < order[j].id })
	return order
}

func (b *builder) addFanoutEdges(groups []*switchGroup) {
	for _, grp := range groups {
		for _, f := range grp.fabric {
			for _, e := range grp.expand {
				b.addEdge(f, e, EdgeFanout)
			}
		}
		for i := 0; i < len(grp.fabric); i++ {
			for j := i + 1; j < len(grp.fabric); j++ {
				b.addEdge(grp.fabric[i], grp.fabric[j], EdgeFanout)
			}
		}
		b.logger.Debug("switch fan-out",
			logging.SwitchID(grp.id),
			logging.Int("f_ports", len(grp.fabric)),
			logging.Int("e_ports", len(grp.expand)),
		)
	}
}

func (b *builder) recordISLs(ports []*fabric.Port) {
	for _, p := range ports {
		if p.Role != fabric.RoleSwitch {
			continue
		}
		q := b.peer(p)
		if q == nil || q.Role != fabric.RoleSwitch {
			continue
		}
		if p.SwitchID == "" || q.SwitchID == "" || p.SwitchID == q.SwitchID {
			continue
		}
		// Both ends must resolve to E class; an F-Port cabled across
		// switches stays an edge port.
		if b.g.classes[p.WWPN] != fabric.ClassExpansion || b.g.classes[q.WWPN] != fabric.ClassExpansion {
			continue
		}
		if _, seen := b.g.islPorts[p.WWPN]; seen {
			continue
		}

		local, remote := p, q
		if remote.WWPN < local.WWPN {
			local, remote = remote, local
		}
		link := ISLLink{
			Pair:        NewSwitchPair(p.SwitchID, q.SwitchID),
			Local:       local.WWPN,
			Remote:      remote.WWPN,
			LocalSwitch: local.SwitchID,
			LocalIndex:  local.PortIndex,
			Speed:       min(p.Speed, q.Speed),
		}
		b.g.isls[link.Pair] = append(b.g.isls[link.Pair], link)
		b.g.islPorts[link.Local] = link
		b.g.islPorts[link.Remote] = link
	}
}

func (b *builder) finish() {
	b.g.adjacency = make(map[string][]string, len(b.set))
	for id, neighbors := range b.set {
		list := make([]string, 0, len(neighbors))
		for n := range neighbors {
			list = append(list, n)
		}
		sort.Strings(list)
		b.g.adjacency[id] = list
	}

	b.g.pairs = make([]SwitchPair, 0, len(b.g.isls))
	for pair, links := range b.g.isls {
		sort.Slice(links, func(i, j int) bool { return links[i].Local < links[j].Local })
		b.g.pairs = append(b.g.pairs, pair)
	}
	sort.Slice(b.g.pairs, func(i, j int) bool {
		if b.g.pairs[i].A != b.g.pairs[j].A {
			return b.g.pairs[i].A < b.g.pairs[j].A
		}
		return b.g.pairs[i].B < b.g.pairs[j].B
	})
}
