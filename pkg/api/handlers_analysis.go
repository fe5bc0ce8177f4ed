package api

import (
	"net/http"
	"time"

	"github.com/dd0wney/cluso-fabric/pkg/capacity"
	"github.com/dd0wney/cluso-fabric/pkg/logging"
	"github.com/dd0wney/cluso-fabric/pkg/metrics"
)

// NodesResponse is the per-node analysis. Nodes holds every node with
// demand unless only the flagged ones were requested.
type NodesResponse struct {
	Threshold      float64               `json:"threshold"`
	Nodes          []capacity.NodeReport `json:"nodes"`
	Oversubscribed int                   `json:"oversubscribed"`
}

func (s *Server) handleOversubscription(w http.ResponseWriter, r *http.Request) {
	opts, err := s.analysisOptions(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	snap, ok := s.current(w)
	if !ok {
		return
	}

	timer := logging.StartTimer(s.logger, "oversubscription analysis",
		logging.SnapshotID(snap.ID()),
		logging.Float64("threshold", threshold(opts)))
	start := time.Now()
	report := capacity.Analyze(snap, opts)
	s.metricsRegistry.RecordAnalysis(metrics.AnalysisCombined, time.Since(start), nil)

	islPairs := -1
	if report.ISL != nil {
		islPairs = len(report.ISL.Oversubscribed())
	}
	s.metricsRegistry.SetOversubscription(len(report.Nodes), islPairs)
	timer.End(logging.String("status", report.Status))

	s.respondJSON(w, http.StatusOK, report)
}

func (s *Server) handleNodeOversubscription(w http.ResponseWriter, r *http.Request) {
	opts, err := s.analysisOptions(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	snap, ok := s.current(w)
	if !ok {
		return
	}

	start := time.Now()
	reports := capacity.AnalyzeNodes(snap, opts)
	s.metricsRegistry.RecordAnalysis(metrics.AnalysisNodes, time.Since(start), nil)

	flagged := capacity.Oversubscribed(reports)
	s.metricsRegistry.SetOversubscription(len(flagged), -1)

	resp := NodesResponse{
		Threshold:      threshold(opts),
		Nodes:          reports,
		Oversubscribed: len(flagged),
	}
	if r.URL.Query().Get("oversubscribed_only") == "true" {
		resp.Nodes = flagged
	}
	if resp.Nodes == nil {
		resp.Nodes = []capacity.NodeReport{}
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleISLOversubscription(w http.ResponseWriter, r *http.Request) {
	opts, err := s.analysisOptions(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	snap, ok := s.current(w)
	if !ok {
		return
	}

	start := time.Now()
	analysis := capacity.AnalyzeISLs(snap, opts)
	s.metricsRegistry.RecordAnalysis(metrics.AnalysisISL, time.Since(start), nil)
	s.metricsRegistry.SetOversubscription(-1, len(analysis.Oversubscribed()))

	if analysis.Reports == nil {
		analysis.Reports = []capacity.ISLReport{}
	}
	s.respondJSON(w, http.StatusOK, analysis)
}

func threshold(opts capacity.Options) float64 {
	if opts.Threshold > 0 {
		return opts.Threshold
	}
	return capacity.DefaultThreshold
}
