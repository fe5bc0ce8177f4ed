package snapshot

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dd0wney/cluso-fabric/pkg/fabric"
	"github.com/dd0wney/cluso-fabric/pkg/logging"
	"github.com/dd0wney/cluso-fabric/pkg/topology"
)

// Records are the four record streams supplied by a parsing collaborator,
// plus whatever the parser already had to tolerate.
type Records struct {
	Ports  []fabric.Port
	Nodes  []fabric.Node
	Arrays []ArrayRecord
	Zones  []fabric.Zone
	Issues []fabric.Issue
}

// ArrayRecord is a TargetArray plus the software version stamped on the
// nodes generated for it.
type ArrayRecord struct {
	fabric.TargetArray
	SoftwareVersion string
}

// Snapshot is one immutable view of the fabric: registries plus the derived
// topology graph. All methods are safe for concurrent use.
type Snapshot struct {
	id       uuid.UUID
	loadedAt time.Time
	registry *fabric.Registry
	graph    *topology.Graph
	issues   []fabric.Issue
}

// Option configures Load.
type Option func(*loadOptions)

type loadOptions struct {
	logger logging.Logger
	strict bool
}

// WithLogger sets the logger used while loading and building the graph.
func WithLogger(logger logging.Logger) Option {
	return func(o *loadOptions) { o.logger = logger }
}

// Strict makes Load fail on the first record that cannot be registered
// instead of skipping it.
func Strict() Option {
	return func(o *loadOptions) { o.strict = true }
}

// Load registers the records and derives the topology graph. Records that
// cannot be registered are skipped and reported as issues unless Strict is
// set.
func Load(records Records, opts ...Option) (*Snapshot, error) {
	var o loadOptions
	for _, opt := range opts {
		opt(&o)
	}
	id := uuid.New()
	logger := logging.OrDefault(o.logger).With(logging.SnapshotID(id.String()))
	timer := logging.StartTimer(logger, "snapshot loaded")

	reg := fabric.NewRegistry()
	issues := append([]fabric.Issue(nil), records.Issues...)

	reject := func(kind fabric.IssueKind, id string, err error) error {
		if o.strict {
			return err
		}
		logger.Warn("record skipped", logging.String("id", id), logging.Error(err))
		issues = append(issues, fabric.Issue{Kind: kind, ID: id, Detail: err.Error()})
		return nil
	}

	for _, a := range records.Arrays {
		if err := reg.RegisterArray(a.TargetArray, a.SoftwareVersion); err != nil {
			if err := reject(fabric.IssueInvalidRecord, a.Name, err); err != nil {
				return nil, err
			}
		}
	}
	for _, n := range records.Nodes {
		if n == nil {
			continue
		}
		if err := reg.RegisterNode(n); err != nil {
			if err := reject(fabric.IssueInvalidRecord, n.NodeName(), err); err != nil {
				return nil, err
			}
		}
	}
	for _, p := range records.Ports {
		if err := reg.RegisterPort(p); err != nil {
			kind := fabric.IssueInvalidRecord
			if errors.Is(err, fabric.ErrDuplicatePort) {
				kind = fabric.IssueDuplicatePort
			}
			if err := reject(kind, p.WWPN, err); err != nil {
				return nil, err
			}
		}
	}
	for _, z := range records.Zones {
		reg.AddZone(z)
	}

	issues = append(issues, reg.Reconcile()...)
	issues = append(issues, checkTargets(reg)...)
	issues = append(issues, checkZones(reg)...)

	graph, graphIssues := topology.Build(reg, logger)
	issues = append(issues, graphIssues...)

	snap := &Snapshot{
		id:       id,
		loadedAt: time.Now(),
		registry: reg,
		graph:    graph,
		issues:   issues,
	}
	timer.End(
		logging.Int("ports", reg.PortCount()),
		logging.Int("edges", graph.EdgeCount()),
		logging.Int("issues", len(issues)),
	)
	return snap, nil
}

// checkTargets reports target ports whose storage node is not owned by
// their array, and ports with no usable speed.
func checkTargets(reg *fabric.Registry) []fabric.Issue {
	var issues []fabric.Issue
	for _, p := range reg.Ports() {
		if p.Speed <= 0 {
			issues = append(issues, fabric.Issue{
				Kind:   fabric.IssueMalformedSpeed,
				ID:     p.WWPN,
				Detail: "port speed is zero, treated as no capacity",
			})
		}
		if p.Role != fabric.RoleTarget || p.ArrayName == "" {
			continue
		}
		base := p.BaseArrayName()
		array, err := reg.Array(base)
		if err != nil {
			issues = append(issues, fabric.Issue{
				Kind:   fabric.IssueUnknownArrayNode,
				ID:     p.WWPN,
				Detail: fmt.Sprintf("array %q is not registered", base),
			})
			continue
		}
		if !array.HasNode(p.StorageNodeKey()) {
			issues = append(issues, fabric.Issue{
				Kind:   fabric.IssueUnknownArrayNode,
				ID:     p.WWPN,
				Detail: fmt.Sprintf("node %q is not one of the %d nodes of %s", p.StorageNodeKey(), array.NodeCount, array.Name),
			})
		}
	}
	return issues
}

func checkZones(reg *fabric.Registry) []fabric.Issue {
	var issues []fabric.Issue
	for _, z := range reg.Zones() {
		for _, m := range z.Members {
			if _, ok := reg.Lookup(m); !ok {
				issues = append(issues, fabric.Issue{
					Kind:   fabric.IssueUnknownZoneMember,
					ID:     m,
					Detail: "zone " + z.Name + " references an unregistered port",
				})
			}
		}
	}
	return issues
}

// ID returns the unique identifier of this snapshot.
func (s *Snapshot) ID() string { return s.id.String() }

// LoadedAt returns when the snapshot was built.
func (s *Snapshot) LoadedAt() time.Time { return s.loadedAt }

// Graph returns the derived topology graph.
func (s *Snapshot) Graph() *topology.Graph { return s.graph }

// Issues returns the tolerated input inconsistencies found while loading.
func (s *Snapshot) Issues() []fabric.Issue {
	out := make([]fabric.Issue, len(s.issues))
	copy(out, s.issues)
	return out
}

// Port returns the port registered under id (case-insensitive).
func (s *Snapshot) Port(id string) (fabric.Port, error) {
	return s.registry.Port(id)
}

// Neighbors returns the adjacency of a registered port's WWPN.
func (s *Snapshot) Neighbors(wwpn string) []string {
	return s.graph.Neighbors(wwpn)
}

// Ports returns copies of all ports sorted by WWPN.
func (s *Snapshot) Ports() []fabric.Port {
	return copyPorts(s.registry.Ports())
}

// PortsByRole returns copies of the ports of one role sorted by WWPN.
func (s *Snapshot) PortsByRole(role fabric.Role) []fabric.Port {
	return copyPorts(s.registry.PortsByRole(role))
}

// Node returns the node registered under name.
func (s *Snapshot) Node(name string) (fabric.Node, error) {
	return s.registry.Node(name)
}

// Nodes returns all nodes sorted by name.
func (s *Snapshot) Nodes() []fabric.Node {
	return s.registry.Nodes()
}

// Array returns the array registered under name.
func (s *Snapshot) Array(name string) (fabric.TargetArray, error) {
	return s.registry.Array(name)
}

// Arrays returns all arrays sorted by name.
func (s *Snapshot) Arrays() []fabric.TargetArray {
	return s.registry.Arrays()
}

// Zones returns the zones in input order.
func (s *Snapshot) Zones() []fabric.Zone {
	return s.registry.Zones()
}

// Connection is one physical link between two registered ports.
type Connection struct {
	A fabric.Port
	B fabric.Port
}

// Connections returns each physical link once, ordered by the smaller WWPN.
func (s *Snapshot) Connections() []Connection {
	var out []Connection
	for _, e := range s.graph.Edges() {
		if e.Kind != topology.EdgePhysical {
			continue
		}
		a, errA := s.registry.Port(e.From)
		b, errB := s.registry.Port(e.To)
		if errA != nil || errB != nil {
			continue
		}
		out = append(out, Connection{A: a, B: b})
	}
	return out
}

// Summary describes a snapshot for logs and API responses.
type Summary struct {
	ID          string    `json:"id"`
	LoadedAt    time.Time `json:"loaded_at"`
	Initiators  int       `json:"initiators"`
	Targets     int       `json:"targets"`
	SwitchPorts int       `json:"switch_ports"`
	Nodes       int       `json:"nodes"`
	Arrays      int       `json:"arrays"`
	Zones       int       `json:"zones"`
	Edges       int       `json:"edges"`
	ISLs        int       `json:"isls"`
	Issues      int       `json:"issues"`
}

// Summary counts the snapshot's entities.
func (s *Snapshot) Summary() Summary {
	return Summary{
		ID:          s.ID(),
		LoadedAt:    s.loadedAt,
		Initiators:  len(s.registry.PortsByRole(fabric.RoleInitiator)),
		Targets:     len(s.registry.PortsByRole(fabric.RoleTarget)),
		SwitchPorts: len(s.registry.PortsByRole(fabric.RoleSwitch)),
		Nodes:       len(s.registry.Nodes()),
		Arrays:      len(s.registry.Arrays()),
		Zones:       len(s.registry.Zones()),
		Edges:       s.graph.EdgeCount(),
		ISLs:        s.graph.ISLCount(),
		Issues:      len(s.issues),
	}
}

func copyPorts(ports []*fabric.Port) []fabric.Port {
	out := make([]fabric.Port, len(ports))
	for i, p := range ports {
		out[i] = *p
	}
	return out
}
