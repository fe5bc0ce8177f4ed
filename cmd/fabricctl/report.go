package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/dd0wney/cluso-fabric/pkg/algorithms"
	"github.com/dd0wney/cluso-fabric/pkg/capacity"
	"github.com/dd0wney/cluso-fabric/pkg/fabric"
	"github.com/dd0wney/cluso-fabric/pkg/snapshot"
	"github.com/dd0wney/cluso-fabric/pkg/zoning"
)

func formatRatio(r capacity.Ratio) string {
	if r.IsInf() {
		return "inf"
	}
	return strconv.FormatFloat(float64(r), 'f', 2, 64)
}

func gbps(n int) string {
	return strconv.Itoa(n) + "G"
}

// formatSpeeds renders a speed histogram as "2x16G, 1x32G".
func formatSpeeds(speeds map[int]int) string {
	keys := make([]int, 0, len(speeds))
	for s := range speeds {
		keys = append(keys, s)
	}
	sort.Ints(keys)
	parts := make([]string, len(keys))
	for i, s := range keys {
		parts[i] = fmt.Sprintf("%dx%s", speeds[s], gbps(s))
	}
	return strings.Join(parts, ", ")
}

func renderSummary(sum snapshot.Summary, issues []fabric.Issue) string {
	stats := fmt.Sprintf(`Snapshot %s
Loaded     %s

Initiators   %d
Targets      %d
Switch ports %d
Arrays       %d
Nodes        %d
Zones        %d
Links        %d
ISLs         %d`,
		sum.ID, sum.LoadedAt.Format("2006-01-02 15:04:05"),
		sum.Initiators, sum.Targets, sum.SwitchPorts,
		sum.Arrays, sum.Nodes, sum.Zones, sum.Edges, sum.ISLs)

	var s strings.Builder
	s.WriteString(statsBoxStyle.Render(stats))
	s.WriteString("\n")
	if len(issues) == 0 {
		s.WriteString(successStyle.Render("✓ no load issues"))
		s.WriteString("\n")
		return s.String()
	}
	s.WriteString(warnStyle.Render(fmt.Sprintf("! %d load issues", len(issues))))
	s.WriteString("\n")
	s.WriteString(renderIssues(issues))
	return s.String()
}

func renderIssues(issues []fabric.Issue) string {
	rows := make([][]string, len(issues))
	for i, is := range issues {
		rows[i] = []string{string(is.Kind), is.ID, is.Detail}
	}
	return newTable([]string{"Kind", "ID", "Detail"}, rows, nil).String() + "\n"
}

func renderPorts(ports []fabric.Port) string {
	rows := make([][]string, len(ports))
	for i, p := range ports {
		owner := p.NodeName
		switch p.Role {
		case fabric.RoleTarget:
			owner = p.StorageNodeName()
		case fabric.RoleSwitch:
			owner = fmt.Sprintf("%s/%d %s", p.SwitchID, p.PortIndex, p.Class)
		}
		rows[i] = []string{p.WWPN, p.Role.String(), gbps(p.Speed), owner, p.Connection}
	}
	var s strings.Builder
	s.WriteString(headerStyle.Render(fmt.Sprintf("Ports (%d)", len(ports))))
	s.WriteString("\n")
	s.WriteString(newTable([]string{"WWPN", "Role", "Speed", "Owner", "Connected to"}, rows, nil).String())
	s.WriteString("\n")
	return s.String()
}

func renderConnections(conns []snapshot.Connection) string {
	rows := make([][]string, len(conns))
	for i, c := range conns {
		rows[i] = []string{c.A.WWPN, c.A.Role.String(), c.B.WWPN, c.B.Role.String(), gbps(min(c.A.Speed, c.B.Speed))}
	}
	var s strings.Builder
	s.WriteString(headerStyle.Render(fmt.Sprintf("Connections (%d)", len(conns))))
	s.WriteString("\n")
	s.WriteString(newTable([]string{"A", "Role", "B", "Role", "Speed"}, rows, nil).String())
	s.WriteString("\n")
	return s.String()
}

func renderIslands(islands []algorithms.Island) string {
	rows := make([][]string, len(islands))
	for i, is := range islands {
		rows[i] = []string{strconv.Itoa(is.ID), strconv.Itoa(len(is.Ports)), strings.Join(is.Ports, " ")}
	}
	var s strings.Builder
	s.WriteString(headerStyle.Render(fmt.Sprintf("Islands (%d)", len(islands))))
	s.WriteString("\n")
	s.WriteString(newTable([]string{"ID", "Ports", "Members"}, rows, nil).String())
	s.WriteString("\n")
	return s.String()
}

func renderPath(source, dest string, path algorithms.Path, speed algorithms.SpeedReport) string {
	var s strings.Builder
	s.WriteString(headerStyle.Render(fmt.Sprintf("Path %s → %s", source, dest)))
	s.WriteString("\n")
	if !path.Found {
		s.WriteString(errorStyle.Render("✗ no route"))
		s.WriteString("\n")
		return s.String()
	}

	s.WriteString(successStyle.Render(fmt.Sprintf("✓ %d hops, effective speed %s", path.Len(), gbps(speed.Effective))))
	s.WriteString("\n")
	s.WriteString(strings.Join(path.Hops, " → "))
	s.WriteString("\n")
	if len(speed.Segments) == 0 {
		return s.String()
	}

	limiting := make(map[algorithms.Segment]bool, len(speed.Limiting))
	for _, seg := range speed.Limiting {
		limiting[seg] = true
	}
	rows := make([][]string, len(speed.Segments))
	for i, seg := range speed.Segments {
		mark := ""
		if limiting[seg] {
			mark = "limiting"
		}
		rows[i] = []string{seg.From, seg.To, gbps(seg.Speed), mark}
	}
	s.WriteString(newTable([]string{"From", "To", "Speed", ""}, rows, func(row int) bool {
		return limiting[speed.Segments[row]]
	}).String())
	s.WriteString("\n")
	return s.String()
}

func renderNodes(reports []capacity.NodeReport, threshold float64) string {
	rows := make([][]string, len(reports))
	flagged := 0
	for i, r := range reports {
		if r.Oversubscribed {
			flagged++
		}
		rows[i] = []string{
			r.Node,
			strconv.Itoa(len(r.Ports)),
			formatSpeeds(r.LinkSpeeds),
			gbps(r.Capacity),
			gbps(r.Demand),
			formatRatio(r.Ratio),
			strconv.Itoa(len(r.Initiators)),
			gbps(r.AdditionalCapacity),
		}
	}

	var s strings.Builder
	s.WriteString(headerStyle.Render(fmt.Sprintf("Storage nodes (threshold %.1f:1)", threshold)))
	s.WriteString("\n")
	if len(reports) == 0 {
		s.WriteString(helpStyle.Render("no target nodes with demand"))
		s.WriteString("\n")
		return s.String()
	}
	s.WriteString(newTable(
		[]string{"Node", "Ports", "Links", "Capacity", "Demand", "Ratio", "Hosts", "Add"},
		rows,
		func(row int) bool { return reports[row].Oversubscribed },
	).String())
	s.WriteString("\n")
	s.WriteString(verdict(flagged, "node"))
	return s.String()
}

func renderISL(a capacity.ISLAnalysis, threshold float64) string {
	var s strings.Builder
	s.WriteString(headerStyle.Render(fmt.Sprintf("Inter-switch links (threshold %.1f:1)", threshold)))
	s.WriteString("\n")
	if a.SingleSwitch {
		s.WriteString(helpStyle.Render(capacity.StatusSingleSwitch))
		s.WriteString("\n")
		return s.String()
	}

	rows := make([][]string, len(a.Reports))
	flagged := 0
	for i, r := range a.Reports {
		if r.Oversubscribed {
			flagged++
		}
		rows[i] = []string{
			r.Pair.String(),
			strconv.Itoa(len(r.Links)),
			gbps(r.Capacity),
			gbps(r.Demand),
			strconv.Itoa(r.Flows),
			formatRatio(r.Ratio),
			gbps(r.AdditionalCapacity),
			strconv.Itoa(r.AdditionalISLs),
		}
	}
	s.WriteString(fmt.Sprintf("%d ISLs across %d switch pairs\n", a.TotalISLs, a.SwitchPairs))
	if len(rows) > 0 {
		s.WriteString(newTable(
			[]string{"Pair", "ISLs", "Capacity", "Demand", "Flows", "Ratio", "Add", "Add ISLs"},
			rows,
			func(row int) bool { return a.Reports[row].Oversubscribed },
		).String())
		s.WriteString("\n")
	}
	if n := len(a.UnroutedFlows); n > 0 {
		s.WriteString(warnStyle.Render(fmt.Sprintf("! %d zoned flows have no route", n)))
		s.WriteString("\n")
	}
	s.WriteString(verdict(flagged, "switch pair"))
	return s.String()
}

func renderReport(r capacity.Report) string {
	var s strings.Builder
	status := successStyle
	if r.Status == capacity.StatusNodeOversubscribed {
		status = errorStyle
	}
	s.WriteString(status.Render(r.Status))
	s.WriteString("\n")
	s.WriteString(fmt.Sprintf("%d zones analyzed, %d target nodes\n", r.ZonesAnalyzed, r.TotalNodes))
	if len(r.Nodes) > 0 {
		s.WriteString(renderNodes(r.Nodes, r.Threshold))
	}
	if r.ISL != nil {
		s.WriteString(renderISL(*r.ISL, r.Threshold))
	}
	return s.String()
}

func renderHosts(mapping zoning.HostMapping) string {
	hosts := mapping.Hosts()
	rows := make([][]string, len(hosts))
	for i, h := range hosts {
		rows[i] = []string{h, strconv.Itoa(len(mapping[h])), strings.Join(mapping[h], " ")}
	}
	var s strings.Builder
	s.WriteString(headerStyle.Render(fmt.Sprintf("Zoned hosts (%d)", len(hosts))))
	s.WriteString("\n")
	s.WriteString(newTable([]string{"Host", "Targets", "WWPNs"}, rows, nil).String())
	s.WriteString("\n")
	return s.String()
}

func renderConnectivity(r zoning.ConnectivityReport) string {
	var s strings.Builder
	s.WriteString(headerStyle.Render("Host " + r.Host))
	s.WriteString("\n")

	rows := make([][]string, len(r.Arrays))
	for i, a := range r.Arrays {
		rows[i] = []string{
			a.Array,
			fmt.Sprintf("%d/%d", len(a.ConnectedNodes), a.ExpectedNodes),
			fmt.Sprintf("%.0f%%", a.ConnectedPct),
			strings.Join(a.MissingNodes, " "),
		}
	}
	s.WriteString(newTable([]string{"Array", "Nodes", "Connected", "Missing"}, rows, func(row int) bool {
		return !r.Arrays[row].FullyConnected
	}).String())
	s.WriteString("\n")

	if r.FullyConnected {
		s.WriteString(successStyle.Render("✓ fully connected"))
	} else {
		s.WriteString(errorStyle.Render("✗ not connected to every array node"))
	}
	s.WriteString("\n")
	return s.String()
}

func verdict(flagged int, noun string) string {
	if flagged == 0 {
		return successStyle.Render("✓ nothing oversubscribed") + "\n"
	}
	plural := noun
	if flagged != 1 {
		plural += "s"
	}
	return errorStyle.Render(fmt.Sprintf("✗ %d %s oversubscribed", flagged, plural)) + "\n"
}

// joinBoxes lays rendered blocks side by side.
func joinBoxes(blocks ...string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, blocks...)
}
