package topology

import (
	"sort"

	"github.com/dd0wney/cluso-fabric/pkg/fabric"
)

// SwitchPair is an unordered pair of switch identifiers with A <= B.
type SwitchPair struct {
	A string `json:"a"`
	B string `json:"b"`
}

// NewSwitchPair orders x and y into a SwitchPair.
func NewSwitchPair(x, y string) SwitchPair {
	if y < x {
		x, y = y, x
	}
	return SwitchPair{A: x, B: y}
}

// Contains reports whether id is one side of the pair.
func (p SwitchPair) Contains(id string) bool {
	return p.A == id || p.B == id
}

func (p SwitchPair) String() string {
	return p.A + "<->" + p.B
}

// ISLLink is one physical inter-switch link, recorded once regardless of
// direction. Local is the lexicographically smaller WWPN.
type ISLLink struct {
	Pair        SwitchPair
	Local       string
	Remote      string
	LocalSwitch string
	LocalIndex  int
	Speed       int // effective link speed: min of both ends
}

// Edge is one undirected adjacency entry in insertion order.
type Edge struct {
	From string
	To   string
	Kind EdgeKind
}

// EdgeKind tells why an edge exists.
type EdgeKind int

const (
	EdgePhysical EdgeKind = iota
	EdgeFanout
)

func (k EdgeKind) String() string {
	if k == EdgeFanout {
		return "fanout"
	}
	return "physical"
}

// Graph is the derived undirected adjacency over port WWPNs. It is
// immutable once Build returns.
type Graph struct {
	adjacency map[string][]string // sorted neighbor lists
	edges     []Edge
	classes   map[string]fabric.PortClass
	isls      map[SwitchPair][]ISLLink
	islPorts  map[string]ISLLink // both ends of every ISL
	pairs     []SwitchPair
}

// Neighbors returns the sorted neighbor WWPNs of id. The slice is shared
// and must not be modified.
func (g *Graph) Neighbors(id string) []string {
	return g.adjacency[id]
}

// HasEdge reports whether a and b are adjacent.
func (g *Graph) HasEdge(a, b string) bool {
	n := g.adjacency[a]
	i := sort.SearchStrings(n, b)
	return i < len(n) && n[i] == b
}

// Vertices returns every port that has at least one edge, sorted.
func (g *Graph) Vertices() []string {
	out := make([]string, 0, len(g.adjacency))
	for id := range g.adjacency {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Edges returns the edges in construction order.
func (g *Graph) Edges() []Edge {
	out := make([]Edge, len(g.edges))
	copy(out, g.edges)
	return out
}

// EdgeCount returns the number of undirected edges.
func (g *Graph) EdgeCount() int {
	return len(g.edges)
}

// Class returns the resolved switch-port class of a switch port.
func (g *Graph) Class(wwpn string) fabric.PortClass {
	return g.classes[wwpn]
}

// SwitchPairs returns the switch pairs joined by at least one ISL, sorted.
func (g *Graph) SwitchPairs() []SwitchPair {
	out := make([]SwitchPair, len(g.pairs))
	copy(out, g.pairs)
	return out
}

// ISLs returns the links of one switch pair sorted by Local WWPN.
func (g *Graph) ISLs(pair SwitchPair) []ISLLink {
	links := g.isls[pair]
	out := make([]ISLLink, len(links))
	copy(out, links)
	return out
}

// ISLCount returns the total number of inter-switch links.
func (g *Graph) ISLCount() int {
	n := 0
	for _, links := range g.isls {
		n += len(links)
	}
	return n
}

// ISLBetween returns the switch pair when a and b are the two ends of one
// inter-switch link.
func (g *Graph) ISLBetween(a, b string) (SwitchPair, bool) {
	l, ok := g.islPorts[a]
	if !ok {
		return SwitchPair{}, false
	}
	if (l.Local == a && l.Remote == b) || (l.Local == b && l.Remote == a) {
		return l.Pair, true
	}
	return SwitchPair{}, false
}
