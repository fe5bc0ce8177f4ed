// Package graphql exposes the loaded fabric snapshot and its analyses as a
// read-only GraphQL schema.
package graphql

import (
	"fmt"

	"github.com/dd0wney/cluso-fabric/pkg/algorithms"
	"github.com/dd0wney/cluso-fabric/pkg/capacity"
	"github.com/dd0wney/cluso-fabric/pkg/fabric"
	"github.com/dd0wney/cluso-fabric/pkg/snapshot"
	"github.com/dd0wney/cluso-fabric/pkg/zoning"
	"github.com/graphql-go/graphql"
)

// Source yields the snapshot queries run against. *snapshot.Store
// satisfies it.
type Source interface {
	Current() (*snapshot.Snapshot, error)
}

type resolver struct {
	source Source
	opts   capacity.Options
}

// NewSchema builds the query schema. opts are the analysis defaults;
// threshold, everyCrossing and reportBoth arguments override them per
// query.
func NewSchema(source Source, opts capacity.Options) (graphql.Schema, error) {
	r := &resolver{source: source, opts: opts}

	analysisArgs := graphql.FieldConfigArgument{
		"threshold":     &graphql.ArgumentConfig{Type: graphql.Float},
		"everyCrossing": &graphql.ArgumentConfig{Type: graphql.Boolean},
		"reportBoth":    &graphql.ArgumentConfig{Type: graphql.Boolean},
	}

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"health": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return "ok", nil
				},
			},
			"snapshot": &graphql.Field{
				Type:    snapshotType,
				Resolve: r.resolveSnapshot,
			},
			"issues": &graphql.Field{
				Type:    graphql.NewList(issueType),
				Resolve: r.resolveIssues,
			},
			"port": &graphql.Field{
				Type: portType,
				Args: graphql.FieldConfigArgument{
					"wwpn": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: r.resolvePort,
			},
			"ports": &graphql.Field{
				Type: graphql.NewList(portType),
				Args: graphql.FieldConfigArgument{
					"role": &graphql.ArgumentConfig{Type: graphql.String},
				},
				Resolve: r.resolvePorts,
			},
			"connections": &graphql.Field{
				Type:    graphql.NewList(connectionType),
				Resolve: r.resolveConnections,
			},
			"path": &graphql.Field{
				Type: pathType,
				Args: graphql.FieldConfigArgument{
					"source":      &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"destination": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: r.resolvePath,
			},
			"oversubscription": &graphql.Field{
				Type:    reportType,
				Args:    analysisArgs,
				Resolve: r.resolveOversubscription,
			},
			"nodeOversubscription": &graphql.Field{
				Type: graphql.NewList(nodeReportType),
				Args: graphql.FieldConfigArgument{
					"threshold":          &graphql.ArgumentConfig{Type: graphql.Float},
					"oversubscribedOnly": &graphql.ArgumentConfig{Type: graphql.Boolean, DefaultValue: false},
				},
				Resolve: r.resolveNodes,
			},
			"islOversubscription": &graphql.Field{
				Type:    islAnalysisType,
				Args:    analysisArgs,
				Resolve: r.resolveISLs,
			},
			"hosts": &graphql.Field{
				Type:    graphql.NewList(hostType),
				Resolve: r.resolveHosts,
			},
			"hostConnectivity": &graphql.Field{
				Type: connectivityType,
				Args: graphql.FieldConfigArgument{
					"host": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: r.resolveHostConnectivity,
			},
			"islands": &graphql.Field{
				Type:    graphql.NewList(islandType),
				Resolve: r.resolveIslands,
			},
		},
	})

	schema, err := graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
	if err != nil {
		return graphql.Schema{}, fmt.Errorf("failed to create schema: %w", err)
	}
	return schema, nil
}

// options overlays per-query arguments on the configured defaults.
func (r *resolver) options(args map[string]any) (capacity.Options, error) {
	opts := r.opts
	if v, ok := args["threshold"].(float64); ok {
		if v <= 0 {
			return opts, fmt.Errorf("threshold must be positive, got %g", v)
		}
		opts.Threshold = v
	}
	if v, ok := args["everyCrossing"].(bool); ok {
		opts.AttributeEveryCrossing = v
	}
	if v, ok := args["reportBoth"].(bool); ok {
		opts.ReportBoth = v
	}
	return opts, nil
}

func (r *resolver) resolveSnapshot(p graphql.ResolveParams) (any, error) {
	snap, err := r.source.Current()
	if err != nil {
		return nil, err
	}
	return snap.Summary(), nil
}

func (r *resolver) resolveIssues(p graphql.ResolveParams) (any, error) {
	snap, err := r.source.Current()
	if err != nil {
		return nil, err
	}
	return snap.Issues(), nil
}

func (r *resolver) resolvePort(p graphql.ResolveParams) (any, error) {
	snap, err := r.source.Current()
	if err != nil {
		return nil, err
	}
	wwpn, _ := p.Args["wwpn"].(string)
	return snap.Port(wwpn)
}

func (r *resolver) resolvePorts(p graphql.ResolveParams) (any, error) {
	snap, err := r.source.Current()
	if err != nil {
		return nil, err
	}
	role, ok := p.Args["role"].(string)
	if !ok || role == "" {
		return snap.Ports(), nil
	}
	parsed, err := fabric.ParseRole(role)
	if err != nil {
		return nil, err
	}
	return snap.PortsByRole(parsed), nil
}

func (r *resolver) resolveConnections(p graphql.ResolveParams) (any, error) {
	snap, err := r.source.Current()
	if err != nil {
		return nil, err
	}
	conns := snap.Connections()
	out := make([]map[string]any, len(conns))
	for i, c := range conns {
		out[i] = map[string]any{"a": c.A, "b": c.B}
	}
	return out, nil
}

func (r *resolver) resolvePath(p graphql.ResolveParams) (any, error) {
	snap, err := r.source.Current()
	if err != nil {
		return nil, err
	}
	src, _ := p.Args["source"].(string)
	dst, _ := p.Args["destination"].(string)

	path, err := algorithms.FindPath(snap, src, dst)
	if err != nil {
		return nil, err
	}
	result := pathResult{
		Source:      src,
		Destination: dst,
		Found:       path.Found,
		Hops:        path.Hops,
		Length:      path.Len(),
	}
	if !path.Found {
		return result, nil
	}
	speed, err := algorithms.AnalyzeSpeed(snap, path)
	if err != nil {
		return nil, err
	}
	result.EffectiveSpeed = speed.Effective
	result.Segments = speed.Segments
	result.Limiting = speed.Limiting
	result.Speeds = speed.Speeds
	return result, nil
}

func (r *resolver) resolveOversubscription(p graphql.ResolveParams) (any, error) {
	snap, err := r.source.Current()
	if err != nil {
		return nil, err
	}
	opts, err := r.options(p.Args)
	if err != nil {
		return nil, err
	}
	return capacity.Analyze(snap, opts), nil
}

func (r *resolver) resolveNodes(p graphql.ResolveParams) (any, error) {
	snap, err := r.source.Current()
	if err != nil {
		return nil, err
	}
	opts, err := r.options(p.Args)
	if err != nil {
		return nil, err
	}
	reports := capacity.AnalyzeNodes(snap, opts)
	if only, _ := p.Args["oversubscribedOnly"].(bool); only {
		return capacity.Oversubscribed(reports), nil
	}
	return reports, nil
}

func (r *resolver) resolveISLs(p graphql.ResolveParams) (any, error) {
	snap, err := r.source.Current()
	if err != nil {
		return nil, err
	}
	opts, err := r.options(p.Args)
	if err != nil {
		return nil, err
	}
	return capacity.AnalyzeISLs(snap, opts), nil
}

func (r *resolver) resolveHosts(p graphql.ResolveParams) (any, error) {
	snap, err := r.source.Current()
	if err != nil {
		return nil, err
	}
	mapping := zoning.BuildHostMapping(snap)
	hosts := mapping.Hosts()
	out := make([]map[string]any, len(hosts))
	for i, h := range hosts {
		out[i] = map[string]any{"host": h, "targets": mapping[h]}
	}
	return out, nil
}

func (r *resolver) resolveHostConnectivity(p graphql.ResolveParams) (any, error) {
	snap, err := r.source.Current()
	if err != nil {
		return nil, err
	}
	host, _ := p.Args["host"].(string)
	return zoning.CheckHostConnectivity(snap, host)
}

func (r *resolver) resolveIslands(p graphql.ResolveParams) (any, error) {
	snap, err := r.source.Current()
	if err != nil {
		return nil, err
	}
	ports := snap.Ports()
	ids := make([]string, len(ports))
	for i, port := range ports {
		ids[i] = port.WWPN
	}
	return algorithms.Islands(snap, ids), nil
}
