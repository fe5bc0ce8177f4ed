package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dd0wney/cluso-fabric/pkg/capacity"
	"github.com/dd0wney/cluso-fabric/pkg/zoning"
)

type view int

const (
	dashboardView view = iota
	nodesView
	islView
	hostsView
	pathView
	viewCount
)

var viewNames = [viewCount]string{"Dashboard", "Nodes", "ISLs", "Hosts", "Path"}

type keyMap struct {
	Tab      key.Binding
	ShiftTab key.Binding
	Enter    key.Binding
	Quit     key.Binding
	Up       key.Binding
	Down     key.Binding
}

var keys = keyMap{
	Tab: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "next view"),
	),
	ShiftTab: key.NewBinding(
		key.WithKeys("shift+tab"),
		key.WithHelp("shift+tab", "prev view"),
	),
	Enter: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "find path"),
	),
	Quit: key.NewBinding(
		key.WithKeys("esc", "ctrl+c"),
		key.WithHelp("esc", "quit"),
	),
	Up: key.NewBinding(
		key.WithKeys("up"),
		key.WithHelp("↑", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down"),
		key.WithHelp("↓", "down"),
	),
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Tab, k.Enter, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Tab, k.ShiftTab, k.Enter},
		{k.Up, k.Down},
		{k.Quit},
	}
}

type model struct {
	app         *app
	report      capacity.Report
	currentView view
	nodeTable   table.Model
	islTable    table.Model
	hostTable   table.Model
	pathInput   textinput.Model
	pathOutput  string
	help        help.Model
	keys        keyMap
	width       int
	message     string
	messageErr  bool
}

func browse(a *app) error {
	_, err := tea.NewProgram(newModel(a), tea.WithAltScreen()).Run()
	return err
}

func newModel(a *app) model {
	ti := textinput.New()
	ti.Placeholder = "source-wwpn destination-wwpn"
	ti.CharLimit = 100
	ti.Width = 60

	opts := a.opts
	opts.ReportBoth = true

	m := model{
		app:       a,
		report:    capacity.Analyze(a.snap, opts),
		pathInput: ti,
		help:      help.New(),
		keys:      keys,
	}
	m.nodeTable = newBrowseTable([]table.Column{
		{Title: "Node", Width: 24},
		{Title: "Ports", Width: 6},
		{Title: "Capacity", Width: 9},
		{Title: "Demand", Width: 9},
		{Title: "Ratio", Width: 7},
		{Title: "Over", Width: 5},
	}, nodeRows(capacity.AnalyzeNodes(a.snap, a.opts)))
	m.islTable = newBrowseTable([]table.Column{
		{Title: "Pair", Width: 36},
		{Title: "ISLs", Width: 5},
		{Title: "Capacity", Width: 9},
		{Title: "Demand", Width: 9},
		{Title: "Ratio", Width: 7},
		{Title: "Add ISLs", Width: 9},
	}, islRows(m.report.ISL))
	m.hostTable = newBrowseTable([]table.Column{
		{Title: "Host", Width: 24},
		{Title: "Targets", Width: 8},
		{Title: "Connected", Width: 10},
	}, hostRows(a))
	return m
}

func newBrowseTable(columns []table.Column, rows []table.Row) table.Model {
	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(12),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("#00FFFF")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(lipgloss.Color("#FF00FF")).
		Bold(false)
	t.SetStyles(s)
	return t
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func nodeRows(reports []capacity.NodeReport) []table.Row {
	rows := make([]table.Row, len(reports))
	for i, r := range reports {
		rows[i] = table.Row{
			r.Node,
			strconv.Itoa(len(r.Ports)),
			gbps(r.Capacity),
			gbps(r.Demand),
			formatRatio(r.Ratio),
			yesNo(r.Oversubscribed),
		}
	}
	return rows
}

func islRows(a *capacity.ISLAnalysis) []table.Row {
	if a == nil {
		return nil
	}
	rows := make([]table.Row, len(a.Reports))
	for i, r := range a.Reports {
		rows[i] = table.Row{
			r.Pair.String(),
			strconv.Itoa(len(r.Links)),
			gbps(r.Capacity),
			gbps(r.Demand),
			formatRatio(r.Ratio),
			strconv.Itoa(r.AdditionalISLs),
		}
	}
	return rows
}

func hostRows(a *app) []table.Row {
	mapping := zoning.BuildHostMapping(a.snap)
	hosts := mapping.Hosts()
	rows := make([]table.Row, 0, len(hosts))
	for _, h := range hosts {
		connected := "n/a"
		if report, err := zoning.CheckHostConnectivityWith(a.snap, mapping, h); err == nil {
			connected = yesNo(report.FullyConnected)
		}
		rows = append(rows, table.Row{h, strconv.Itoa(len(mapping[h])), connected})
	}
	return rows
}

func (m model) Init() tea.Cmd {
	return textinput.Blink
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit

		case key.Matches(msg, m.keys.Tab):
			m.setView((m.currentView + 1) % viewCount)
			return m, nil

		case key.Matches(msg, m.keys.ShiftTab):
			m.setView((m.currentView + viewCount - 1) % viewCount)
			return m, nil

		case key.Matches(msg, m.keys.Enter):
			if m.currentView == pathView {
				m.runPath()
				return m, nil
			}
		}
	}

	switch m.currentView {
	case nodesView:
		m.nodeTable, cmd = m.nodeTable.Update(msg)
		cmds = append(cmds, cmd)
	case islView:
		m.islTable, cmd = m.islTable.Update(msg)
		cmds = append(cmds, cmd)
	case hostsView:
		m.hostTable, cmd = m.hostTable.Update(msg)
		cmds = append(cmds, cmd)
	case pathView:
		m.pathInput, cmd = m.pathInput.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m *model) setView(v view) {
	m.currentView = v
	m.message = ""
	if v == pathView {
		m.pathInput.Focus()
	} else {
		m.pathInput.Blur()
	}
}

func (m *model) runPath() {
	fields := strings.Fields(m.pathInput.Value())
	if len(fields) != 2 {
		m.message = "enter a source and a destination WWPN"
		m.messageErr = true
		return
	}
	res, err := m.app.findPath(fields[0], fields[1])
	if err != nil {
		m.message = err.Error()
		m.messageErr = true
		m.pathOutput = ""
		return
	}
	m.pathOutput = renderPathResult(res)
	if res.Path.Found {
		m.message = fmt.Sprintf("route found: %d hops", res.Path.Len())
		m.messageErr = false
	} else {
		m.message = "no route"
		m.messageErr = true
	}
}

func (m model) View() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("Fabric Browser"))
	s.WriteString("\n\n")
	s.WriteString(m.renderTabs())
	s.WriteString("\n\n")

	switch m.currentView {
	case dashboardView:
		s.WriteString(m.renderDashboard())
	case nodesView:
		s.WriteString(contentStyle.Render(m.nodeTable.View()))
	case islView:
		if m.report.ISL == nil || m.report.ISL.SingleSwitch {
			s.WriteString(contentStyle.Render(capacity.StatusSingleSwitch))
		} else {
			s.WriteString(contentStyle.Render(m.islTable.View()))
		}
	case hostsView:
		s.WriteString(contentStyle.Render(m.hostTable.View()))
	case pathView:
		s.WriteString(contentStyle.Render(m.pathInput.View() + "\n\n" + m.pathOutput))
	}

	if m.message != "" {
		s.WriteString("\n\n")
		if m.messageErr {
			s.WriteString(errorStyle.Render("✗ " + m.message))
		} else {
			s.WriteString(successStyle.Render("✓ " + m.message))
		}
	}

	s.WriteString("\n\n")
	s.WriteString(helpStyle.Render(m.help.ShortHelpView(m.keys.ShortHelp())))
	return s.String()
}

func (m model) renderTabs() string {
	rendered := make([]string, 0, viewCount)
	for i, name := range viewNames {
		if view(i) == m.currentView {
			rendered = append(rendered, activeTabStyle.Render(name))
		} else {
			rendered = append(rendered, inactiveTabStyle.Render(name))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

func (m model) renderDashboard() string {
	sum := m.app.snap.Summary()
	stats := fmt.Sprintf(`Topology
Initiators   %d
Targets      %d
Switch ports %d
ISLs         %d
Zones        %d
Issues       %d`,
		sum.Initiators, sum.Targets, sum.SwitchPorts, sum.ISLs, sum.Zones, sum.Issues)

	flaggedISL := 0
	if m.report.ISL != nil {
		flaggedISL = len(m.report.ISL.Oversubscribed())
	}
	analysis := fmt.Sprintf(`Capacity (threshold %.1f:1)
Target nodes    %d
Nodes over      %d
ISL pairs over  %d

%s`,
		m.report.Threshold, m.report.TotalNodes, len(m.report.Nodes), flaggedISL, m.report.Status)

	return contentStyle.Render(joinBoxes(statsBoxStyle.Render(stats), statsBoxStyle.Render(analysis)))
}
