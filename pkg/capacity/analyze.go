package capacity

// Report is the combined oversubscription verdict for a fabric.
type Report struct {
	Status        string       `json:"status"`
	Threshold     float64      `json:"threshold"`
	ZonesAnalyzed int          `json:"zones_analyzed"`
	TotalNodes    int          `json:"total_nodes"`
	Nodes         []NodeReport `json:"oversubscribed_nodes"`
	// ISL is nil when node-level findings took precedence.
	ISL *ISLAnalysis `json:"isl,omitempty"`
}

// Analyze runs the node analysis and, unless a node is oversubscribed and
// Options.ReportBoth is unset, the ISL analysis. Node bottlenecks are the
// more localized cause, so they are reported first.
func Analyze(f Fabric, opts Options) Report {
	nodes, total := analyzeNodes(f, opts)
	report := Report{
		Threshold:     opts.threshold(),
		ZonesAnalyzed: len(f.Zones()),
		TotalNodes:    total,
		Nodes:         Oversubscribed(nodes),
	}
	if total == 0 {
		report.Status = StatusNoTargets
		return report
	}

	if len(report.Nodes) > 0 {
		report.Status = StatusNodeOversubscribed
		if !opts.ReportBoth {
			return report
		}
	}

	isl := AnalyzeISLs(f, opts)
	report.ISL = &isl
	if report.Status == "" {
		if isl.SingleSwitch {
			report.Status = StatusSingleSwitch
		} else {
			report.Status = StatusComplete
		}
	}
	return report
}
