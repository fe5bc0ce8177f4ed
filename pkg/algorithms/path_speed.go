package algorithms

import (
	"sort"

	"github.com/dd0wney/cluso-fabric/pkg/fabric"
)

// Segment is one hop of a path with its effective speed.
type Segment struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Speed int    `json:"speed_gbps"`
}

// SpeedReport describes the bandwidth of a path.
type SpeedReport struct {
	Segments []Segment `json:"segments"`
	// Effective is the minimum segment speed. For a single-port path it is
	// the port's own speed.
	Effective int `json:"effective_gbps"`
	// Limiting lists every segment running at Effective.
	Limiting []Segment `json:"limiting"`
	// Speeds lists the distinct segment speeds, ascending.
	Speeds []int `json:"speeds_gbps"`
}

// AnalyzeSpeed walks a path pairwise. A segment runs at the slower of its
// two ports.
func AnalyzeSpeed(topo Topology, path Path) (SpeedReport, error) {
	var report SpeedReport
	if !path.Found || len(path.Hops) == 0 {
		return report, nil
	}

	ports := make([]fabric.Port, len(path.Hops))
	for i, id := range path.Hops {
		p, err := topo.Port(id)
		if err != nil {
			return SpeedReport{}, fabric.PortNotFoundError("analyze_speed", id)
		}
		ports[i] = p
	}

	if len(ports) == 1 {
		report.Effective = ports[0].Speed
		return report, nil
	}

	distinct := make(map[int]struct{})
	report.Segments = make([]Segment, 0, len(ports)-1)
	for i := 0; i+1 < len(ports); i++ {
		seg := Segment{
			From:  ports[i].WWPN,
			To:    ports[i+1].WWPN,
			Speed: min(ports[i].Speed, ports[i+1].Speed),
		}
		report.Segments = append(report.Segments, seg)
		distinct[seg.Speed] = struct{}{}
		if i == 0 || seg.Speed < report.Effective {
			report.Effective = seg.Speed
		}
	}

	for _, seg := range report.Segments {
		if seg.Speed == report.Effective {
			report.Limiting = append(report.Limiting, seg)
		}
	}
	for s := range distinct {
		report.Speeds = append(report.Speeds, s)
	}
	sort.Ints(report.Speeds)
	return report, nil
}
