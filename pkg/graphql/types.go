package graphql

import (
	"sort"
	"time"

	"github.com/dd0wney/cluso-fabric/pkg/algorithms"
	"github.com/dd0wney/cluso-fabric/pkg/capacity"
	"github.com/dd0wney/cluso-fabric/pkg/fabric"
	"github.com/dd0wney/cluso-fabric/pkg/snapshot"
	"github.com/graphql-go/graphql"
)

// Struct-backed objects rely on the default resolver, which matches a
// GraphQL field to a Go field by case-insensitive name. Fields whose Go
// type is not a plain scalar get an explicit resolver.

var portType = graphql.NewObject(graphql.ObjectConfig{
	Name:        "Port",
	Description: "A registered fabric port",
	Fields: graphql.Fields{
		"wwpn": &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"role": &graphql.Field{
			Type: graphql.NewNonNull(graphql.String),
			Resolve: func(p graphql.ResolveParams) (any, error) {
				if port, ok := p.Source.(fabric.Port); ok {
					return port.Role.String(), nil
				}
				return nil, nil
			},
		},
		"wwnn":       &graphql.Field{Type: graphql.String},
		"portId":     &graphql.Field{Type: graphql.String},
		"speed":      &graphql.Field{Type: graphql.Int},
		"connection": &graphql.Field{Type: graphql.String},
		"nodeName":   &graphql.Field{Type: graphql.String},
		"arrayName":  &graphql.Field{Type: graphql.String},
		"switchId":   &graphql.Field{Type: graphql.String},
		"portIndex":  &graphql.Field{Type: graphql.Int},
		"class": &graphql.Field{
			Type: graphql.String,
			Resolve: func(p graphql.ResolveParams) (any, error) {
				port, ok := p.Source.(fabric.Port)
				if !ok || port.Role != fabric.RoleSwitch {
					return nil, nil
				}
				return port.Class.String(), nil
			},
		},
	},
})

var connectionType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Connection",
	Fields: graphql.Fields{
		"a": &graphql.Field{Type: portType},
		"b": &graphql.Field{Type: portType},
	},
})

var segmentType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Segment",
	Fields: graphql.Fields{
		"from":  &graphql.Field{Type: graphql.String},
		"to":    &graphql.Field{Type: graphql.String},
		"speed": &graphql.Field{Type: graphql.Int},
	},
})

// pathResult is the resolved shape of a path query.
type pathResult struct {
	Source         string
	Destination    string
	Found          bool
	Hops           []string
	Length         int
	EffectiveSpeed int
	Segments       []algorithms.Segment
	Limiting       []algorithms.Segment
	Speeds         []int
}

var pathType = graphql.NewObject(graphql.ObjectConfig{
	Name:        "Path",
	Description: "A shortest path between two endpoints and its bandwidth",
	Fields: graphql.Fields{
		"source":         &graphql.Field{Type: graphql.String},
		"destination":    &graphql.Field{Type: graphql.String},
		"found":          &graphql.Field{Type: graphql.NewNonNull(graphql.Boolean)},
		"hops":           &graphql.Field{Type: graphql.NewList(graphql.String)},
		"length":         &graphql.Field{Type: graphql.Int},
		"effectiveSpeed": &graphql.Field{Type: graphql.Int},
		"segments":       &graphql.Field{Type: graphql.NewList(segmentType)},
		"limiting":       &graphql.Field{Type: graphql.NewList(segmentType)},
		"speeds":         &graphql.Field{Type: graphql.NewList(graphql.Int)},
	},
})

// ratioField resolves a report's ratio, null when capacity is zero.
var ratioField = &graphql.Field{
	Type:        graphql.Float,
	Description: "Demand divided by capacity, null when there is no capacity",
	Resolve: func(p graphql.ResolveParams) (any, error) {
		var r capacity.Ratio
		switch src := p.Source.(type) {
		case capacity.NodeReport:
			r = src.Ratio
		case capacity.ISLReport:
			r = src.Ratio
		default:
			return nil, nil
		}
		if r.IsInf() {
			return nil, nil
		}
		return float64(r), nil
	},
}

var nodePortType = graphql.NewObject(graphql.ObjectConfig{
	Name: "NodePort",
	Fields: graphql.Fields{
		"wwpn":   &graphql.Field{Type: graphql.String},
		"portId": &graphql.Field{Type: graphql.String},
		"speed":  &graphql.Field{Type: graphql.Int},
	},
})

var linkSpeedType = graphql.NewObject(graphql.ObjectConfig{
	Name: "LinkSpeed",
	Fields: graphql.Fields{
		"speed": &graphql.Field{Type: graphql.Int},
		"ports": &graphql.Field{Type: graphql.Int},
	},
})

var nodeReportType = graphql.NewObject(graphql.ObjectConfig{
	Name:        "NodeReport",
	Description: "Demand and capacity of one storage node",
	Fields: graphql.Fields{
		"node":  &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"array": &graphql.Field{Type: graphql.String},
		"ports": &graphql.Field{Type: graphql.NewList(nodePortType)},
		"linkSpeeds": &graphql.Field{
			Type: graphql.NewList(linkSpeedType),
			Resolve: func(p graphql.ResolveParams) (any, error) {
				r, ok := p.Source.(capacity.NodeReport)
				if !ok {
					return nil, nil
				}
				speeds := make([]int, 0, len(r.LinkSpeeds))
				for s := range r.LinkSpeeds {
					speeds = append(speeds, s)
				}
				sort.Ints(speeds)
				out := make([]map[string]any, len(speeds))
				for i, s := range speeds {
					out[i] = map[string]any{"speed": s, "ports": r.LinkSpeeds[s]}
				}
				return out, nil
			},
		},
		"capacity":           &graphql.Field{Type: graphql.Int},
		"demand":             &graphql.Field{Type: graphql.Int},
		"ratio":              ratioField,
		"oversubscribed":     &graphql.Field{Type: graphql.Boolean},
		"additionalCapacity": &graphql.Field{Type: graphql.Int},
		"initiators":         &graphql.Field{Type: graphql.NewList(graphql.String)},
	},
})

var switchPairType = graphql.NewObject(graphql.ObjectConfig{
	Name: "SwitchPair",
	Fields: graphql.Fields{
		"a": &graphql.Field{Type: graphql.String},
		"b": &graphql.Field{Type: graphql.String},
	},
})

var islLinkType = graphql.NewObject(graphql.ObjectConfig{
	Name: "ISLLink",
	Fields: graphql.Fields{
		"local":     &graphql.Field{Type: graphql.String},
		"remote":    &graphql.Field{Type: graphql.String},
		"switch":    &graphql.Field{Type: graphql.String},
		"portIndex": &graphql.Field{Type: graphql.Int},
		"speed":     &graphql.Field{Type: graphql.Int},
	},
})

var islReportType = graphql.NewObject(graphql.ObjectConfig{
	Name:        "ISLReport",
	Description: "Demand and capacity of the links joining one switch pair",
	Fields: graphql.Fields{
		"pair":               &graphql.Field{Type: switchPairType},
		"links":              &graphql.Field{Type: graphql.NewList(islLinkType)},
		"capacity":           &graphql.Field{Type: graphql.Int},
		"perIslSpeed":        &graphql.Field{Type: graphql.Int},
		"demand":             &graphql.Field{Type: graphql.Int},
		"flows":              &graphql.Field{Type: graphql.Int},
		"ratio":              ratioField,
		"oversubscribed":     &graphql.Field{Type: graphql.Boolean},
		"additionalCapacity": &graphql.Field{Type: graphql.Int},
		"additionalIsls":     &graphql.Field{Type: graphql.Int},
	},
})

var flowType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Flow",
	Fields: graphql.Fields{
		"zone":      &graphql.Field{Type: graphql.String},
		"initiator": &graphql.Field{Type: graphql.String},
		"target":    &graphql.Field{Type: graphql.String},
		"demand":    &graphql.Field{Type: graphql.Int},
	},
})

var islAnalysisType = graphql.NewObject(graphql.ObjectConfig{
	Name: "ISLAnalysis",
	Fields: graphql.Fields{
		"singleSwitch":  &graphql.Field{Type: graphql.Boolean},
		"totalIsls":     &graphql.Field{Type: graphql.Int},
		"switchPairs":   &graphql.Field{Type: graphql.Int},
		"reports":       &graphql.Field{Type: graphql.NewList(islReportType)},
		"unroutedFlows": &graphql.Field{Type: graphql.NewList(flowType)},
	},
})

var reportType = graphql.NewObject(graphql.ObjectConfig{
	Name:        "OversubscriptionReport",
	Description: "Combined node and ISL verdict",
	Fields: graphql.Fields{
		"status":        &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"threshold":     &graphql.Field{Type: graphql.Float},
		"zonesAnalyzed": &graphql.Field{Type: graphql.Int},
		"totalNodes":    &graphql.Field{Type: graphql.Int},
		"nodes":         &graphql.Field{Type: graphql.NewList(nodeReportType)},
		"isl":           &graphql.Field{Type: islAnalysisType},
	},
})

var hostType = graphql.NewObject(graphql.ObjectConfig{
	Name:        "Host",
	Description: "An initiator and the targets it is zoned with",
	Fields: graphql.Fields{
		"host":    &graphql.Field{Type: graphql.String},
		"targets": &graphql.Field{Type: graphql.NewList(graphql.String)},
	},
})

var arrayConnectivityType = graphql.NewObject(graphql.ObjectConfig{
	Name: "ArrayConnectivity",
	Fields: graphql.Fields{
		"array":          &graphql.Field{Type: graphql.String},
		"expectedNodes":  &graphql.Field{Type: graphql.Int},
		"connectedNodes": &graphql.Field{Type: graphql.NewList(graphql.String)},
		"missingNodes":   &graphql.Field{Type: graphql.NewList(graphql.String)},
		"targets":        &graphql.Field{Type: graphql.NewList(graphql.String)},
		"fullyConnected": &graphql.Field{Type: graphql.Boolean},
		"missingCount":   &graphql.Field{Type: graphql.Int},
		"connectedPct":   &graphql.Field{Type: graphql.Float},
		"missingPct":     &graphql.Field{Type: graphql.Float},
	},
})

var connectivityType = graphql.NewObject(graphql.ObjectConfig{
	Name: "ConnectivityReport",
	Fields: graphql.Fields{
		"host":           &graphql.Field{Type: graphql.String},
		"arrays":         &graphql.Field{Type: graphql.NewList(arrayConnectivityType)},
		"fullyConnected": &graphql.Field{Type: graphql.Boolean},
	},
})

var islandType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Island",
	Fields: graphql.Fields{
		"id":    &graphql.Field{Type: graphql.Int},
		"ports": &graphql.Field{Type: graphql.NewList(graphql.String)},
	},
})

var issueType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Issue",
	Fields: graphql.Fields{
		"kind": &graphql.Field{
			Type: graphql.String,
			Resolve: func(p graphql.ResolveParams) (any, error) {
				if issue, ok := p.Source.(fabric.Issue); ok {
					return string(issue.Kind), nil
				}
				return nil, nil
			},
		},
		"id":     &graphql.Field{Type: graphql.String},
		"detail": &graphql.Field{Type: graphql.String},
	},
})

var snapshotType = graphql.NewObject(graphql.ObjectConfig{
	Name:        "Snapshot",
	Description: "Counts of the loaded fabric snapshot",
	Fields: graphql.Fields{
		"id": &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"loadedAt": &graphql.Field{
			Type: graphql.String,
			Resolve: func(p graphql.ResolveParams) (any, error) {
				if s, ok := p.Source.(snapshot.Summary); ok {
					return s.LoadedAt.UTC().Format(time.RFC3339), nil
				}
				return nil, nil
			},
		},
		"initiators":  &graphql.Field{Type: graphql.Int},
		"targets":     &graphql.Field{Type: graphql.Int},
		"switchPorts": &graphql.Field{Type: graphql.Int},
		"nodes":       &graphql.Field{Type: graphql.Int},
		"arrays":      &graphql.Field{Type: graphql.Int},
		"zones":       &graphql.Field{Type: graphql.Int},
		"edges":       &graphql.Field{Type: graphql.Int},
		"isls":        &graphql.Field{Type: graphql.Int},
		"issues":      &graphql.Field{Type: graphql.Int},
	},
})
