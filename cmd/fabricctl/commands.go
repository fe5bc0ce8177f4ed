package main

import (
	"fmt"
	"io"

	"github.com/dd0wney/cluso-fabric/pkg/algorithms"
	"github.com/dd0wney/cluso-fabric/pkg/capacity"
	"github.com/dd0wney/cluso-fabric/pkg/fabric"
	"github.com/dd0wney/cluso-fabric/pkg/snapshot"
	"github.com/dd0wney/cluso-fabric/pkg/zoning"
)

// app runs commands against one loaded snapshot.
type app struct {
	snap   *snapshot.Snapshot
	opts   capacity.Options
	out    io.Writer
	asJSON bool
}

// pathResult is the JSON form of the path command.
type pathResult struct {
	Source      string                  `json:"source"`
	Destination string                  `json:"destination"`
	Path        algorithms.Path         `json:"path"`
	Speed       *algorithms.SpeedReport `json:"speed,omitempty"`
}

func (a *app) dispatch(cmd string, args []string) error {
	switch cmd {
	case "summary":
		return a.emit(a.snap.Summary(), func() string {
			return renderSummary(a.snap.Summary(), a.snap.Issues())
		})
	case "issues":
		issues := a.snap.Issues()
		return a.emit(issues, func() string { return renderIssues(issues) })
	case "ports":
		return a.ports(args)
	case "connections":
		conns := a.snap.Connections()
		return a.emit(conns, func() string { return renderConnections(conns) })
	case "islands":
		islands := a.islands()
		return a.emit(islands, func() string { return renderIslands(islands) })
	case "path":
		return a.path(args)
	case "nodes":
		reports := capacity.AnalyzeNodes(a.snap, a.opts)
		return a.emit(reports, func() string { return renderNodes(reports, a.threshold()) })
	case "isl":
		analysis := capacity.AnalyzeISLs(a.snap, a.opts)
		return a.emit(analysis, func() string { return renderISL(analysis, a.threshold()) })
	case "oversub":
		report := capacity.Analyze(a.snap, a.opts)
		return a.emit(report, func() string { return renderReport(report) })
	case "hosts":
		mapping := zoning.BuildHostMapping(a.snap)
		return a.emit(mapping, func() string { return renderHosts(mapping) })
	case "host":
		if len(args) != 1 {
			return fmt.Errorf("host: want 1 argument (initiator WWPN), got %d", len(args))
		}
		report, err := zoning.CheckHostConnectivity(a.snap, args[0])
		if err != nil {
			return err
		}
		return a.emit(report, func() string { return renderConnectivity(report) })
	default:
		return fmt.Errorf("unknown command %q (see fabricctl -h)", cmd)
	}
}

func (a *app) emit(v any, render func() string) error {
	if a.asJSON {
		return writeJSON(a.out, v)
	}
	_, err := fmt.Fprint(a.out, render())
	return err
}

func (a *app) threshold() float64 {
	if a.opts.Threshold > 0 {
		return a.opts.Threshold
	}
	return capacity.DefaultThreshold
}

func (a *app) ports(args []string) error {
	ports := a.snap.Ports()
	if len(args) > 0 {
		role, err := fabric.ParseRole(args[0])
		if err != nil {
			return err
		}
		ports = a.snap.PortsByRole(role)
	}
	return a.emit(ports, func() string { return renderPorts(ports) })
}

func (a *app) islands() []algorithms.Island {
	ports := a.snap.Ports()
	ids := make([]string, len(ports))
	for i, p := range ports {
		ids[i] = p.WWPN
	}
	return algorithms.Islands(a.snap, ids)
}

func (a *app) findPath(source, dest string) (pathResult, error) {
	res := pathResult{Source: source, Destination: dest}
	path, err := algorithms.FindPath(a.snap, source, dest)
	if err != nil {
		return res, err
	}
	res.Path = path
	if path.Found {
		speed, err := algorithms.AnalyzeSpeed(a.snap, path)
		if err != nil {
			return res, err
		}
		res.Speed = &speed
	}
	return res, nil
}

func (a *app) path(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("path: want 2 arguments (source, destination), got %d", len(args))
	}
	res, err := a.findPath(args[0], args[1])
	if err != nil {
		return err
	}
	return a.emit(res, func() string { return renderPathResult(res) })
}

func renderPathResult(res pathResult) string {
	var speed algorithms.SpeedReport
	if res.Speed != nil {
		speed = *res.Speed
	}
	return renderPath(res.Source, res.Destination, res.Path, speed)
}
