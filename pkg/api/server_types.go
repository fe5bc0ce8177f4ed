package api

import (
	"time"

	"github.com/dd0wney/cluso-fabric/pkg/algorithms"
	"github.com/dd0wney/cluso-fabric/pkg/config"
	"github.com/dd0wney/cluso-fabric/pkg/fabric"
	"github.com/dd0wney/cluso-fabric/pkg/graphql"
	"github.com/dd0wney/cluso-fabric/pkg/health"
	"github.com/dd0wney/cluso-fabric/pkg/logging"
	"github.com/dd0wney/cluso-fabric/pkg/metrics"
	"github.com/dd0wney/cluso-fabric/pkg/snapshot"
)

// Server represents the HTTP API server
type Server struct {
	store           *snapshot.Store
	cfg             config.Config
	logger          logging.Logger
	metricsRegistry *metrics.Registry
	healthChecker   *health.HealthChecker
	graphqlHandler  *graphql.Handler
	startTime       time.Time
	version         string
}

// ErrorResponse is the body of every non-2xx answer
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// SnapshotResponse describes the installed snapshot
type SnapshotResponse struct {
	snapshot.Summary
	IssueList []fabric.Issue `json:"issue_list"`
}

// PathRequest asks for a path between two endpoints
type PathRequest struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
}

// PathResponse is a path and, when found, its bandwidth
type PathResponse struct {
	Source      string                  `json:"source"`
	Destination string                  `json:"destination"`
	Found       bool                    `json:"found"`
	Hops        []string                `json:"hops"`
	Length      int                     `json:"length"`
	Speed       *algorithms.SpeedReport `json:"speed,omitempty"`
}

// PortResponse is the wire form of a registered port
type PortResponse struct {
	WWPN       string `json:"wwpn"`
	Role       string `json:"role"`
	WWNN       string `json:"wwnn,omitempty"`
	PortID     string `json:"port_id,omitempty"`
	Speed      int    `json:"speed_gbps"`
	Connection string `json:"connection,omitempty"`
	NodeName   string `json:"node_name,omitempty"`
	ArrayName  string `json:"array_name,omitempty"`
	SwitchID   string `json:"switch_id,omitempty"`
	PortIndex  int    `json:"port_index,omitempty"`
	Class      string `json:"class,omitempty"`
}

// PortsResponse lists ports
type PortsResponse struct {
	Ports []PortResponse `json:"ports"`
	Count int            `json:"count"`
}

// HostEntry is one initiator and its zoned targets
type HostEntry struct {
	Host    string   `json:"host"`
	Targets []string `json:"targets"`
}

// HostsResponse is the zoning-derived host mapping
type HostsResponse struct {
	Hosts []HostEntry `json:"hosts"`
	Count int         `json:"count"`
}

// IslandsResponse lists connected components of the fabric graph
type IslandsResponse struct {
	Islands []algorithms.Island `json:"islands"`
	Count   int                 `json:"count"`
}

// ConnectionResponse is one physical link
type ConnectionResponse struct {
	A string `json:"a"`
	B string `json:"b"`
}

func portToResponse(p fabric.Port) PortResponse {
	resp := PortResponse{
		WWPN:       p.WWPN,
		Role:       p.Role.String(),
		WWNN:       p.WWNN,
		PortID:     p.PortID,
		Speed:      p.Speed,
		Connection: p.Connection,
		NodeName:   p.NodeName,
		ArrayName:  p.ArrayName,
		SwitchID:   p.SwitchID,
		PortIndex:  p.PortIndex,
	}
	if p.Role == fabric.RoleSwitch {
		resp.Class = p.Class.String()
	}
	return resp
}
