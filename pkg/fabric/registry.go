package fabric

import (
	"sort"
	"strings"
)

// Registry indexes ports, nodes, arrays and zones of one fabric.
//
// A Registry is mutable while a snapshot is being assembled and must not be
// modified once it has been handed to a snapshot.
type Registry struct {
	ports  map[string]*Port // NormalizeWWN(wwpn) -> port
	nodes  map[string]Node  // lower-case name -> node
	arrays map[string]*TargetArray
	zones  []Zone
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		ports:  make(map[string]*Port),
		nodes:  make(map[string]Node),
		arrays: make(map[string]*TargetArray),
	}
}

// RegisterPort adds a port. Re-registering a WWPN under the same role
// replaces the previous record; under a different role it fails with
// ErrDuplicatePort.
func (r *Registry) RegisterPort(p Port) error {
	key := NormalizeWWN(p.WWPN)
	if key == "" {
		return NewError("register").Port(p.WWPN).Context("empty wwpn").Cause(ErrInvalidRecord).Err()
	}
	if existing, ok := r.ports[key]; ok && existing.Role != p.Role {
		return DuplicatePortError(p.WWPN, existing.Role, p.Role)
	}
	p.WWPN = strings.TrimSpace(p.WWPN)
	p.Connection = strings.TrimSpace(p.Connection)
	r.ports[key] = &p
	return nil
}

// RegisterNode adds or replaces a node by name.
func (r *Registry) RegisterNode(n Node) error {
	name := strings.TrimSpace(n.NodeName())
	if name == "" {
		return NewError("register").Node(name).Context("empty name").Cause(ErrInvalidRecord).Err()
	}
	r.nodes[strings.ToLower(name)] = n
	return nil
}

// RegisterArray adds or replaces an array and registers its owned nodes.
// Nodes already registered under the generated names are kept.
func (r *Registry) RegisterArray(a TargetArray, softwareVersion string) error {
	name := strings.TrimSpace(a.Name)
	if name == "" {
		return NewError("register").Array(name).Context("empty name").Cause(ErrInvalidRecord).Err()
	}
	a.Name = name
	if a.NodeCount < 0 {
		a.NodeCount = 0
	}
	r.arrays[strings.ToLower(name)] = &a
	for _, nodeName := range a.NodeNames() {
		if _, ok := r.nodes[strings.ToLower(nodeName)]; ok {
			continue
		}
		r.nodes[strings.ToLower(nodeName)] = TargetArrayNode{
			Name:            nodeName,
			SoftwareVersion: softwareVersion,
			Array:           name,
		}
	}
	return nil
}

// AddZone appends a zone. Zones are kept in insertion order.
func (r *Registry) AddZone(z Zone) {
	members := make([]string, 0, len(z.Members))
	for _, m := range z.Members {
		if m = strings.TrimSpace(m); m != "" {
			members = append(members, m)
		}
	}
	r.zones = append(r.zones, Zone{Name: z.Name, Members: members})
}

// Port returns a copy of the port registered under id.
func (r *Registry) Port(id string) (Port, error) {
	p, ok := r.ports[NormalizeWWN(id)]
	if !ok {
		return Port{}, PortNotFoundError("get", id)
	}
	return *p, nil
}

// Lookup returns the live port registered under id. Callers must not
// modify it.
func (r *Registry) Lookup(id string) (*Port, bool) {
	p, ok := r.ports[NormalizeWWN(id)]
	return p, ok
}

// Ports returns all ports sorted by normalized WWPN.
func (r *Registry) Ports() []*Port {
	keys := make([]string, 0, len(r.ports))
	for k := range r.ports {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]*Port, len(keys))
	for i, k := range keys {
		out[i] = r.ports[k]
	}
	return out
}

// PortsByRole returns ports of one role sorted by normalized WWPN.
func (r *Registry) PortsByRole(role Role) []*Port {
	var out []*Port
	for _, p := range r.Ports() {
		if p.Role == role {
			out = append(out, p)
		}
	}
	return out
}

// PortCount returns the number of registered ports.
func (r *Registry) PortCount() int {
	return len(r.ports)
}

// Node returns the node registered under name (case-insensitive).
func (r *Registry) Node(name string) (Node, error) {
	n, ok := r.nodes[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, NewError("get").Node(name).Cause(ErrNotFound).Err()
	}
	return n, nil
}

// Nodes returns all nodes sorted by name.
func (r *Registry) Nodes() []Node {
	keys := make([]string, 0, len(r.nodes))
	for k := range r.nodes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]Node, len(keys))
	for i, k := range keys {
		out[i] = r.nodes[k]
	}
	return out
}

// Array returns the array registered under name (case-insensitive).
func (r *Registry) Array(name string) (TargetArray, error) {
	a, ok := r.arrays[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return TargetArray{}, NewError("get").Array(name).Cause(ErrNotFound).Err()
	}
	return *a, nil
}

// Arrays returns all arrays sorted by name.
func (r *Registry) Arrays() []TargetArray {
	keys := make([]string, 0, len(r.arrays))
	for k := range r.arrays {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]TargetArray, len(keys))
	for i, k := range keys {
		out[i] = *r.arrays[k]
	}
	return out
}

// Zones returns the zones in insertion order.
func (r *Registry) Zones() []Zone {
	out := make([]Zone, len(r.zones))
	copy(out, r.zones)
	return out
}

// Connect links two registered ports symmetrically. A previous connection
// of either port is released on both sides first.
func (r *Registry) Connect(a, b string) error {
	pa, ok := r.Lookup(a)
	if !ok {
		return PortNotFoundError("connect", a)
	}
	pb, ok := r.Lookup(b)
	if !ok {
		return PortNotFoundError("connect", b)
	}
	r.release(pa)
	r.release(pb)
	pa.Connection = pb.WWPN
	pb.Connection = pa.WWPN
	return nil
}

// Disconnect removes the link between a and b. It is a no-op when the two
// ports are not connected to each other.
func (r *Registry) Disconnect(a, b string) error {
	pa, ok := r.Lookup(a)
	if !ok {
		return PortNotFoundError("disconnect", a)
	}
	pb, ok := r.Lookup(b)
	if !ok {
		return PortNotFoundError("disconnect", b)
	}
	if SameWWN(pa.Connection, pb.WWPN) {
		pa.Connection = ""
	}
	if SameWWN(pb.Connection, pa.WWPN) {
		pb.Connection = ""
	}
	return nil
}

// release clears p's connection and the counterpart's back-reference.
func (r *Registry) release(p *Port) {
	if !p.IsConnected() {
		return
	}
	if peer, ok := r.Lookup(p.Connection); ok && SameWWN(peer.Connection, p.WWPN) {
		peer.Connection = ""
	}
	p.Connection = ""
}

// Reconcile makes the connection relation symmetric and returns the
// inconsistencies it had to resolve. Ports are visited in WWPN order:
//   - a one-sided connection to an unconnected peer gains its back-reference
//   - a connection to a peer that is linked elsewhere is dropped
//
// Connections to unregistered ports are left for the graph builder, which
// reports them as dangling.
func (r *Registry) Reconcile() []Issue {
	var issues []Issue
	ports := r.Ports()
	for _, p := range ports {
		if !p.IsConnected() {
			continue
		}
		peer, ok := r.Lookup(p.Connection)
		if !ok {
			continue
		}
		switch {
		case SameWWN(peer.Connection, p.WWPN):
			peer.Connection = p.WWPN
			p.Connection = peer.WWPN
		case !peer.IsConnected():
			peer.Connection = p.WWPN
			p.Connection = peer.WWPN
		default:
			issues = append(issues, Issue{
				Kind:   IssueAsymmetricConnection,
				ID:     p.WWPN,
				Detail: "peer " + peer.WWPN + " already connected to " + peer.Connection,
			})
			p.Connection = ""
		}
	}
	// A peer that still points somewhere without a back-reference can only
	// result from the drops above.
	for _, p := range ports {
		if !p.IsConnected() {
			continue
		}
		peer, ok := r.Lookup(p.Connection)
		if ok && !SameWWN(peer.Connection, p.WWPN) {
			issues = append(issues, Issue{
				Kind:   IssueAsymmetricConnection,
				ID:     p.WWPN,
				Detail: "peer " + peer.WWPN + " does not link back",
			})
			p.Connection = ""
		}
	}
	return issues
}
