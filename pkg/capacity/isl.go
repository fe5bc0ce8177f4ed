package capacity

import (
	"github.com/dd0wney/cluso-fabric/pkg/algorithms"
	"github.com/dd0wney/cluso-fabric/pkg/parallel"
	"github.com/dd0wney/cluso-fabric/pkg/topology"
)

// ISLReport is the demand/capacity picture of one switch pair.
type ISLReport struct {
	Pair               topology.SwitchPair `json:"pair"`
	Links              []ISLLink           `json:"links"`
	Capacity           int                 `json:"capacity_gbps"`
	PerISLSpeed        int                 `json:"per_isl_speed_gbps"`
	Demand             int                 `json:"demand_gbps"`
	Flows              int                 `json:"flows"`
	Ratio              Ratio               `json:"ratio"`
	Oversubscribed     bool                `json:"oversubscribed"`
	AdditionalCapacity int                 `json:"additional_capacity_gbps"`
	AdditionalISLs     int                 `json:"additional_isls"`
}

// ISLLink describes one member link of a switch pair.
type ISLLink struct {
	Local     string `json:"local_wwpn"`
	Remote    string `json:"remote_wwpn"`
	Switch    string `json:"switch"`
	PortIndex int    `json:"port_index"`
	Speed     int    `json:"speed_gbps"`
}

// ISLAnalysis is the result of AnalyzeISLs. SingleSwitch is set when the
// fabric has no inter-switch links at all; Reports is then empty.
type ISLAnalysis struct {
	SingleSwitch  bool        `json:"single_switch"`
	TotalISLs     int         `json:"total_isls"`
	SwitchPairs   int         `json:"switch_pairs"`
	Reports       []ISLReport `json:"reports"`
	UnroutedFlows []Flow      `json:"unrouted_flows,omitempty"`
}

// Oversubscribed returns the flagged switch pairs.
func (a ISLAnalysis) Oversubscribed() []ISLReport {
	var out []ISLReport
	for _, r := range a.Reports {
		if r.Oversubscribed {
			out = append(out, r)
		}
	}
	return out
}

// AnalyzeISLs routes every zoned flow and charges its demand to the switch
// pairs its path crosses: the first one only, or every distinct one with
// Options.AttributeEveryCrossing. Each pair is charged at most once per
// flow. Pairs without demand are omitted; reports follow switch pair order.
func AnalyzeISLs(f Fabric, opts Options) ISLAnalysis {
	g := f.Graph()
	pairs := g.SwitchPairs()
	analysis := ISLAnalysis{
		SingleSwitch: len(pairs) == 0,
		TotalISLs:    g.ISLCount(),
		SwitchPairs:  len(pairs),
	}
	if analysis.SingleSwitch {
		return analysis
	}

	zoned := Flows(f)
	routes := parallel.Map(zoned, opts.Workers, nil, func(flow Flow) route {
		path, err := algorithms.FindPath(f, flow.Initiator, flow.Target)
		return route{path: path, err: err}
	})

	demand := make(map[topology.SwitchPair]int, len(pairs))
	flows := make(map[topology.SwitchPair]int, len(pairs))
	for i, flow := range zoned {
		rt := routes[i]
		if rt.err != nil || !rt.path.Found {
			analysis.UnroutedFlows = append(analysis.UnroutedFlows, flow)
			continue
		}
		for _, pair := range crossings(g, rt.path, opts.AttributeEveryCrossing) {
			demand[pair] += flow.Demand
			flows[pair]++
		}
	}

	threshold := opts.threshold()
	for _, pair := range pairs {
		if demand[pair] == 0 {
			continue
		}
		r := ISLReport{Pair: pair, Demand: demand[pair], Flows: flows[pair]}
		for i, l := range g.ISLs(pair) {
			r.Links = append(r.Links, ISLLink{
				Local:     l.Local,
				Remote:    l.Remote,
				Switch:    l.LocalSwitch,
				PortIndex: l.LocalIndex,
				Speed:     l.Speed,
			})
			r.Capacity += l.Speed
			if i == 0 {
				r.PerISLSpeed = l.Speed
			}
		}
		r.Ratio = ratio(r.Demand, r.Capacity)
		if float64(r.Ratio) > threshold {
			r.Oversubscribed = true
			r.AdditionalCapacity = additionalCapacity(r.Demand, r.Capacity, threshold)
			if r.PerISLSpeed > 0 {
				r.AdditionalISLs = (r.AdditionalCapacity + r.PerISLSpeed - 1) / r.PerISLSpeed
			}
		}
		analysis.Reports = append(analysis.Reports, r)
	}
	return analysis
}

type route struct {
	path algorithms.Path
	err  error
}

// crossings returns the switch pairs whose links appear as consecutive hops
// of path, in path order without repeats. Without every it stops at the
// first.
func crossings(g *topology.Graph, path algorithms.Path, every bool) []topology.SwitchPair {
	var out []topology.SwitchPair
	seen := make(map[topology.SwitchPair]bool)
	for i := 0; i+1 < len(path.Hops); i++ {
		pair, ok := g.ISLBetween(path.Hops[i], path.Hops[i+1])
		if !ok || seen[pair] {
			continue
		}
		seen[pair] = true
		out = append(out, pair)
		if !every {
			break
		}
	}
	return out
}
