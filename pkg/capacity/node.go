package capacity

import (
	"sort"

	"github.com/dd0wney/cluso-fabric/pkg/fabric"
)

// NodeReport is the demand/capacity picture of one storage node.
type NodeReport struct {
	Node               string      `json:"node"`
	Array              string      `json:"array,omitempty"`
	Ports              []NodePort  `json:"ports"`
	LinkSpeeds         map[int]int `json:"link_speeds"` // speed -> port count
	Capacity           int         `json:"capacity_gbps"`
	Demand             int         `json:"demand_gbps"`
	Ratio              Ratio       `json:"ratio"`
	Oversubscribed     bool        `json:"oversubscribed"`
	AdditionalCapacity int         `json:"additional_capacity_gbps"`
	Initiators         []string    `json:"initiators"`
}

// NodePort is one member port of a storage node.
type NodePort struct {
	WWPN   string `json:"wwpn"`
	PortID string `json:"port_id,omitempty"`
	Speed  int    `json:"speed_gbps"`
}

// nodeName groups a target port: the array node name when the port carries
// an array, else its bare node key, else the WWPN itself.
func nodeName(p fabric.Port) string {
	if n := p.StorageNodeName(); n != "" {
		return n
	}
	if k := p.StorageNodeKey(); k != "" {
		return k
	}
	return p.WWPN
}

// AnalyzeNodes computes every storage node's demand and capacity. Nodes
// without demand are omitted. Reports are sorted by node name.
func AnalyzeNodes(f Fabric, opts Options) []NodeReport {
	reports, _ := analyzeNodes(f, opts)
	return reports
}

// analyzeNodes also returns how many storage nodes exist, including those
// without demand.
func analyzeNodes(f Fabric, opts Options) ([]NodeReport, int) {
	threshold := opts.threshold()
	byNode := make(map[string]*NodeReport)

	for _, p := range f.PortsByRole(fabric.RoleTarget) {
		name := nodeName(p)
		r, ok := byNode[name]
		if !ok {
			r = &NodeReport{Node: name, Array: p.BaseArrayName(), LinkSpeeds: make(map[int]int)}
			byNode[name] = r
		}
		r.Ports = append(r.Ports, NodePort{WWPN: p.WWPN, PortID: p.PortID, Speed: p.Speed})
		if p.Speed > 0 {
			r.Capacity += p.Speed
			r.LinkSpeeds[p.Speed]++
		}
	}

	contributors := make(map[string]map[string]struct{})
	for _, flow := range Flows(f) {
		t, err := f.Port(flow.Target)
		if err != nil {
			continue
		}
		name := nodeName(t)
		r := byNode[name]
		r.Demand += flow.Demand
		if contributors[name] == nil {
			contributors[name] = make(map[string]struct{})
		}
		contributors[name][flow.Initiator] = struct{}{}
	}

	reports := make([]NodeReport, 0, len(byNode))
	for name, r := range byNode {
		if r.Demand == 0 {
			continue
		}
		r.Ratio = ratio(r.Demand, r.Capacity)
		if float64(r.Ratio) > threshold {
			r.Oversubscribed = true
			r.AdditionalCapacity = additionalCapacity(r.Demand, r.Capacity, threshold)
		}
		for id := range contributors[name] {
			r.Initiators = append(r.Initiators, id)
		}
		sort.Strings(r.Initiators)
		reports = append(reports, *r)
	}
	sort.Slice(reports, func(i, j int) bool { return reports[i].Node < reports[j].Node })
	return reports, len(byNode)
}

// Oversubscribed filters reports down to the flagged nodes.
func Oversubscribed(reports []NodeReport) []NodeReport {
	var out []NodeReport
	for _, r := range reports {
		if r.Oversubscribed {
			out = append(out, r)
		}
	}
	return out
}
