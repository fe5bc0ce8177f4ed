// Package zoning derives host-to-target reachability from zone sets.
package zoning

import (
	"sort"
	"strconv"

	"github.com/dd0wney/cluso-fabric/pkg/fabric"
)

// Fabric is the snapshot view the mapper reads.
type Fabric interface {
	Port(id string) (fabric.Port, error)
	Array(name string) (fabric.TargetArray, error)
	Zones() []fabric.Zone
}

// HostMapping maps an initiator WWPN to the sorted target WWPNs it is
// zoned with.
type HostMapping map[string][]string

// Hosts returns the mapped initiators, sorted.
func (m HostMapping) Hosts() []string {
	hosts := make([]string, 0, len(m))
	for h := range m {
		hosts = append(hosts, h)
	}
	sort.Strings(hosts)
	return hosts
}

// BuildHostMapping unions, for every initiator, the targets of every zone
// it appears in. An initiator whose zones hold no targets maps to an empty
// list. Unregistered members are ignored.
func BuildHostMapping(f Fabric) HostMapping {
	sets := make(map[string]map[string]struct{})
	for _, z := range f.Zones() {
		var initiators, targets []string
		for _, m := range z.Members {
			p, err := f.Port(m)
			if err != nil {
				continue
			}
			switch p.Role {
			case fabric.RoleInitiator:
				initiators = append(initiators, p.WWPN)
			case fabric.RoleTarget:
				targets = append(targets, p.WWPN)
			}
		}
		for _, i := range initiators {
			set, ok := sets[i]
			if !ok {
				set = make(map[string]struct{})
				sets[i] = set
			}
			for _, t := range targets {
				set[t] = struct{}{}
			}
		}
	}

	mapping := make(HostMapping, len(sets))
	for host, set := range sets {
		targets := make([]string, 0, len(set))
		for t := range set {
			targets = append(targets, t)
		}
		sort.Strings(targets)
		mapping[host] = targets
	}
	return mapping
}

// ArrayConnectivity is how many nodes of one array a host reaches.
type ArrayConnectivity struct {
	Array          string   `json:"array"`
	ExpectedNodes  int      `json:"expected_nodes"`
	ConnectedNodes []string `json:"connected_nodes"`
	MissingNodes   []string `json:"missing_nodes"`
	Targets        []string `json:"targets"`
	FullyConnected bool     `json:"fully_connected"`
	MissingCount   int      `json:"missing_count"`
	ConnectedPct   float64  `json:"connected_percent"`
	MissingPct     float64  `json:"missing_percent"`
}

// ConnectivityReport lists, per array the host is zoned to, whether every
// array node is reachable.
type ConnectivityReport struct {
	Host           string              `json:"host"`
	Arrays         []ArrayConnectivity `json:"arrays"`
	FullyConnected bool                `json:"fully_connected"`
}

// CheckHostConnectivity groups the host's mapped targets by base array name
// and compares the distinct nodes reached with the array's node count.
// A target port counts toward the node named by its node grouping key;
// several ports of one node count once. Arrays missing from the registry
// expect zero nodes and are never fully connected.
//
// Errors: fabric.ErrNotFound for an unknown or non-initiator host,
// fabric.ErrHostNotMapped when the host appears in no zone.
func CheckHostConnectivity(f Fabric, hostID string) (ConnectivityReport, error) {
	return checkHostConnectivity(f, BuildHostMapping(f), hostID)
}

// CheckHostConnectivityWith reuses a mapping built by BuildHostMapping on
// the same fabric.
func CheckHostConnectivityWith(f Fabric, mapping HostMapping, hostID string) (ConnectivityReport, error) {
	return checkHostConnectivity(f, mapping, hostID)
}

func checkHostConnectivity(f Fabric, mapping HostMapping, hostID string) (ConnectivityReport, error) {
	host, err := f.Port(hostID)
	if err != nil || host.Role != fabric.RoleInitiator {
		return ConnectivityReport{}, fabric.NewError("check_host_connectivity").
			Host(hostID).Cause(fabric.ErrNotFound).Err()
	}
	targets, ok := mapping[host.WWPN]
	if !ok {
		return ConnectivityReport{}, fabric.HostNotMappedError(host.WWPN)
	}

	type group struct {
		targets []string
		nodes   map[string]struct{}
	}
	groups := make(map[string]*group)
	for _, id := range targets {
		t, err := f.Port(id)
		if err != nil {
			continue
		}
		base := t.BaseArrayName()
		g, ok := groups[base]
		if !ok {
			g = &group{nodes: make(map[string]struct{})}
			groups[base] = g
		}
		g.targets = append(g.targets, t.WWPN)
		g.nodes[t.StorageNodeKey()] = struct{}{}
	}

	report := ConnectivityReport{Host: host.WWPN, FullyConnected: true}
	for base, g := range groups {
		ac := ArrayConnectivity{Array: base, Targets: g.targets}
		if array, err := f.Array(base); err == nil {
			ac.ExpectedNodes = array.NodeCount
			for i, name := range array.NodeNames() {
				if _, ok := g.nodes[strconv.Itoa(i)]; ok {
					ac.ConnectedNodes = append(ac.ConnectedNodes, name)
				} else {
					ac.MissingNodes = append(ac.MissingNodes, name)
				}
			}
		}
		ac.MissingCount = len(ac.MissingNodes)
		ac.FullyConnected = ac.ExpectedNodes > 0 && len(ac.ConnectedNodes) == ac.ExpectedNodes
		if ac.ExpectedNodes > 0 {
			ac.ConnectedPct = 100 * float64(len(ac.ConnectedNodes)) / float64(ac.ExpectedNodes)
			ac.MissingPct = 100 * float64(ac.MissingCount) / float64(ac.ExpectedNodes)
		}
		if !ac.FullyConnected {
			report.FullyConnected = false
		}
		report.Arrays = append(report.Arrays, ac)
	}
	sort.Slice(report.Arrays, func(i, j int) bool { return report.Arrays[i].Array < report.Arrays[j].Array })
	if len(report.Arrays) == 0 {
		report.FullyConnected = false
	}
	return report, nil
}
