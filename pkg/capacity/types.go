// Package capacity estimates oversubscription of array nodes and
// inter-switch links from zoning-implied demand.
package capacity

import (
	"encoding/json"
	"math"

	"github.com/dd0wney/cluso-fabric/pkg/algorithms"
	"github.com/dd0wney/cluso-fabric/pkg/fabric"
	"github.com/dd0wney/cluso-fabric/pkg/topology"
)

// DefaultThreshold is the demand:capacity ratio above which a resource is
// flagged.
const DefaultThreshold = 4.0

// Analysis status strings.
const (
	StatusNodeOversubscribed = "Node link oversubscription detected"
	StatusSingleSwitch       = "No traditional ISLs found - single switch fabric"
	StatusComplete           = "Analysis complete"
	StatusNoTargets          = "No target nodes found"
)

// Fabric is the snapshot view the analyses read.
type Fabric interface {
	algorithms.Topology
	PortsByRole(role fabric.Role) []fabric.Port
	Zones() []fabric.Zone
	Graph() *topology.Graph
}

// Options tunes the analyses. The zero value uses DefaultThreshold and
// the node-first precedence.
type Options struct {
	// Threshold overrides DefaultThreshold when positive.
	Threshold float64
	// AttributeEveryCrossing charges a flow to every distinct switch pair
	// its path crosses instead of only the first one.
	AttributeEveryCrossing bool
	// ReportBoth runs the ISL analysis even when nodes are oversubscribed.
	ReportBoth bool
	// Workers routes flows concurrently when greater than one. Results do
	// not depend on it.
	Workers int
}

func (o Options) threshold() float64 {
	if o.Threshold > 0 {
		return o.Threshold
	}
	return DefaultThreshold
}

// Ratio is demand divided by capacity. It is +Inf when capacity is zero
// and encodes as JSON null in that case.
type Ratio float64

// IsInf reports whether the resource has no capacity at all.
func (r Ratio) IsInf() bool {
	return math.IsInf(float64(r), 1)
}

func (r Ratio) MarshalJSON() ([]byte, error) {
	if r.IsInf() || math.IsNaN(float64(r)) {
		return []byte("null"), nil
	}
	return json.Marshal(float64(r))
}

// ratio applies the shared zero-capacity rule.
func ratio(demand, capacity int) Ratio {
	if capacity <= 0 {
		return Ratio(math.Inf(1))
	}
	return Ratio(float64(demand) / float64(capacity))
}

// additionalCapacity returns ceil(demand/threshold) - capacity, the
// capacity that brings the ratio back to the threshold.
func additionalCapacity(demand, capacity int, threshold float64) int {
	need := int(math.Ceil(float64(demand)/threshold)) - capacity
	if need < 0 {
		return 0
	}
	return need
}

// Flow is the demand one zoned initiator/target pair places on the fabric.
type Flow struct {
	Zone      string `json:"zone"`
	Initiator string `json:"initiator"`
	Target    string `json:"target"`
	Demand    int    `json:"demand_gbps"`
}

// Flows enumerates, per zone, every (initiator, target) pair co-resident in
// that zone. Demand is the slower endpoint's speed. A pair zoned together
// in two zones yields two flows. Unregistered members are skipped.
func Flows(f Fabric) []Flow {
	var flows []Flow
	for _, z := range f.Zones() {
		var initiators, targets []fabric.Port
		seen := make(map[string]bool)
		for _, m := range z.Members {
			p, err := f.Port(m)
			if err != nil || seen[p.WWPN] {
				continue
			}
			seen[p.WWPN] = true
			switch p.Role {
			case fabric.RoleInitiator:
				initiators = append(initiators, p)
			case fabric.RoleTarget:
				targets = append(targets, p)
			}
		}
		for _, i := range initiators {
			for _, t := range targets {
				flows = append(flows, Flow{
					Zone:      z.Name,
					Initiator: i.WWPN,
					Target:    t.WWPN,
					Demand:    max(0, min(i.Speed, t.Speed)),
				})
			}
		}
	}
	return flows
}
