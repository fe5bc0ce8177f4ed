package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/dd0wney/cluso-fabric/pkg/algorithms"
	"github.com/dd0wney/cluso-fabric/pkg/fabric"
	"github.com/dd0wney/cluso-fabric/pkg/logging"
	"github.com/dd0wney/cluso-fabric/pkg/metrics"
	"github.com/dd0wney/cluso-fabric/pkg/validation"
	"github.com/dd0wney/cluso-fabric/pkg/zoning"
)

func (s *Server) handlePorts(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.current(w)
	if !ok {
		return
	}

	ports := snap.Ports()
	if role := r.URL.Query().Get("role"); role != "" {
		parsed, err := fabric.ParseRole(role)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		ports = snap.PortsByRole(parsed)
	}

	resp := PortsResponse{Ports: make([]PortResponse, len(ports)), Count: len(ports)}
	for i, p := range ports {
		resp.Ports[i] = portToResponse(p)
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePort(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.current(w)
	if !ok {
		return
	}
	p, err := snap.Port(r.PathValue("wwpn"))
	if err != nil {
		s.respondErr(w, "port lookup", err)
		return
	}
	s.respondJSON(w, http.StatusOK, portToResponse(p))
}

func (s *Server) handleConnections(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.current(w)
	if !ok {
		return
	}
	conns := snap.Connections()
	resp := make([]ConnectionResponse, len(conns))
	for i, c := range conns {
		resp[i] = ConnectionResponse{A: c.A.WWPN, B: c.B.WWPN}
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleIslands(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.current(w)
	if !ok {
		return
	}
	ports := snap.Ports()
	ids := make([]string, len(ports))
	for i, p := range ports {
		ids[i] = p.WWPN
	}
	islands := algorithms.Islands(snap, ids)
	s.respondJSON(w, http.StatusOK, IslandsResponse{Islands: islands, Count: len(islands)})
}

// handlePath answers a path query. An unreachable destination is a normal
// 200 answer with found=false.
func (s *Server) handlePath(w http.ResponseWriter, r *http.Request) {
	var req PathRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if err := validation.ValidatePathRequest(&validation.PathRequest{
		Source:      req.Source,
		Destination: req.Destination,
	}); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	snap, ok := s.current(w)
	if !ok {
		return
	}

	start := time.Now()
	path, err := algorithms.FindPath(snap, req.Source, req.Destination)
	if err != nil {
		s.metricsRegistry.RecordPathQuery(metrics.PathError, 0, time.Since(start))
		s.respondErr(w, "path query", err)
		return
	}

	resp := PathResponse{
		Source:      req.Source,
		Destination: req.Destination,
		Found:       path.Found,
		Hops:        path.Hops,
		Length:      path.Len(),
	}
	if !path.Found {
		s.metricsRegistry.RecordPathQuery(metrics.PathNoRoute, 0, time.Since(start))
		resp.Hops = []string{}
		s.respondJSON(w, http.StatusOK, resp)
		return
	}

	speed, err := algorithms.AnalyzeSpeed(snap, path)
	if err != nil {
		s.metricsRegistry.RecordPathQuery(metrics.PathError, 0, time.Since(start))
		s.respondErr(w, "path speed", err)
		return
	}
	s.metricsRegistry.RecordPathQuery(metrics.PathFound, path.Len(), time.Since(start))
	resp.Speed = &speed
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHosts(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.current(w)
	if !ok {
		return
	}
	mapping := zoning.BuildHostMapping(snap)
	hosts := mapping.Hosts()
	resp := HostsResponse{Hosts: make([]HostEntry, len(hosts)), Count: len(hosts)}
	for i, h := range hosts {
		resp.Hosts[i] = HostEntry{Host: h, Targets: mapping[h]}
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHostConnectivity(w http.ResponseWriter, r *http.Request) {
	host := r.PathValue("wwpn")
	if err := validation.ValidateIdentifier(host); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	snap, ok := s.current(w)
	if !ok {
		return
	}

	start := time.Now()
	report, err := zoning.CheckHostConnectivity(snap, host)
	s.metricsRegistry.RecordAnalysis(metrics.AnalysisConnectivity, time.Since(start), err)
	if err != nil {
		s.respondErr(w, "host connectivity", err)
		return
	}
	if !report.FullyConnected {
		s.logger.Debug("host not fully connected", logging.WWPN(report.Host))
	}
	s.respondJSON(w, http.StatusOK, report)
}
