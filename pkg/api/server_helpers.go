package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/dd0wney/cluso-fabric/pkg/capacity"
	"github.com/dd0wney/cluso-fabric/pkg/fabric"
	"github.com/dd0wney/cluso-fabric/pkg/logging"
	"github.com/dd0wney/cluso-fabric/pkg/snapshot"
	"github.com/dd0wney/cluso-fabric/pkg/validation"
)

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to encode JSON response", logging.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	response := ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Code:    status,
	}
	s.respondJSON(w, status, response)
}

// statusFor maps a domain error onto an HTTP status.
func statusFor(err error) int {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.Is(err, snapshot.ErrNoSnapshot):
		return http.StatusServiceUnavailable
	case errors.Is(err, fabric.ErrNotFound), errors.Is(err, fabric.ErrHostNotMapped):
		return http.StatusNotFound
	case errors.Is(err, fabric.ErrInvalidEndpoint),
		errors.Is(err, fabric.ErrInvalidRecord),
		errors.Is(err, fabric.ErrDuplicatePort),
		errors.Is(err, fabric.ErrDanglingConnection):
		return http.StatusBadRequest
	case errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

// respondErr answers with the status statusFor picks. Internal errors are
// logged and replaced with a generic message naming the operation.
func (s *Server) respondErr(w http.ResponseWriter, operation string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", logging.Operation(operation), logging.Error(err))
		s.respondError(w, status, fmt.Sprintf("%s failed", operation))
		return
	}
	s.respondError(w, status, err.Error())
}

// current returns the snapshot for this request or answers 503.
func (s *Server) current(w http.ResponseWriter) (*snapshot.Snapshot, bool) {
	snap, err := s.store.Current()
	if err != nil {
		s.respondErr(w, "snapshot", err)
		return nil, false
	}
	return snap, true
}

// analysisOptions overlays the threshold, every_crossing and report_both
// query parameters on the configured defaults.
func (s *Server) analysisOptions(r *http.Request) (capacity.Options, error) {
	opts := s.cfg.CapacityOptions()
	q := r.URL.Query()

	req := validation.AnalysisRequest{
		Threshold:              opts.Threshold,
		AttributeEveryCrossing: opts.AttributeEveryCrossing,
		ReportBoth:             opts.ReportBoth,
	}
	if v := q.Get("threshold"); v != "" {
		t, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return opts, fmt.Errorf("threshold: %q is not a number", v)
		}
		req.Threshold = t
		if t == 0 {
			return opts, errors.New("threshold: must be greater than 0")
		}
	}
	for name, dst := range map[string]*bool{
		"every_crossing": &req.AttributeEveryCrossing,
		"report_both":    &req.ReportBoth,
	} {
		if v := q.Get(name); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return opts, fmt.Errorf("%s: %q is not a boolean", name, v)
			}
			*dst = b
		}
	}
	if err := validation.ValidateAnalysisRequest(&req); err != nil {
		return opts, err
	}

	return capacity.Options{
		Threshold:              req.Threshold,
		AttributeEveryCrossing: req.AttributeEveryCrossing,
		ReportBoth:             req.ReportBoth,
		Workers:                opts.Workers,
	}, nil
}
