package api

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dd0wney/cluso-fabric/pkg/ingest"
	"github.com/dd0wney/cluso-fabric/pkg/logging"
	"github.com/dd0wney/cluso-fabric/pkg/metrics"
	"github.com/dd0wney/cluso-fabric/pkg/snapshot"
)

// Upload formats accepted by POST /snapshot.
const (
	formatDocument = "document"
	formatDump     = "dump"
)

func snapshotResponse(snap *snapshot.Snapshot) SnapshotResponse {
	return SnapshotResponse{Summary: snap.Summary(), IssueList: snap.Issues()}
}

func (s *Server) handleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.current(w)
	if !ok {
		return
	}
	s.respondJSON(w, http.StatusOK, snapshotResponse(snap))
}

// handleLoadSnapshot installs a snapshot from the request body. The body
// is a YAML or JSON document, or a legacy dump when format=dump or the
// content type is text/plain. Content-Encoding: snappy bodies are
// decompressed first and may not expand past the body size limit. strict=true fails on the first bad record.
func (s *Server) handleLoadSnapshot(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.respondErr(w, "read snapshot", err)
		return
	}
	if strings.EqualFold(r.Header.Get("Content-Encoding"), "snappy") {
		body, err = ingest.Decompress(body, s.maxBodyBytes())
		if errors.Is(err, ingest.ErrTooLarge) {
			s.respondError(w, http.StatusRequestEntityTooLarge, err.Error())
			return
		}
		if err != nil {
			s.respondError(w, http.StatusBadRequest, fmt.Sprintf("decompress body: %v", err))
			return
		}
	}

	q := r.URL.Query()
	var doc *ingest.Document
	switch uploadFormat(r) {
	case formatDump:
		arrayName := q.Get("array")
		if arrayName == "" {
			arrayName = s.cfg.Snapshot.ArrayName
		}
		doc, err = ingest.ParseDump(bytes.NewReader(body), ingest.DumpOptions{ArrayName: arrayName})
	default:
		doc, err = ingest.DecodeBytes(body)
	}
	if err != nil {
		s.metricsRegistry.RecordSnapshotLoad(metrics.FabricCounts{}, 0, err)
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	strict := s.cfg.Snapshot.Strict
	if v := q.Get("strict"); v != "" {
		if strict, err = strconv.ParseBool(v); err != nil {
			s.respondError(w, http.StatusBadRequest, fmt.Sprintf("strict: %q is not a boolean", v))
			return
		}
	}

	snap, err := s.install(doc.Records(), strict, "upload")
	if err != nil {
		s.respondErr(w, "load snapshot", err)
		return
	}
	s.respondJSON(w, http.StatusCreated, snapshotResponse(snap))
}

// handleReloadSnapshot re-reads the configured snapshot file.
func (s *Server) handleReloadSnapshot(w http.ResponseWriter, r *http.Request) {
	path := s.cfg.Snapshot.Path
	if path == "" {
		s.respondError(w, http.StatusConflict, "no snapshot path configured")
		return
	}
	records, err := ingest.Load(path, ingest.DumpOptions{ArrayName: s.cfg.Snapshot.ArrayName})
	if err != nil {
		s.metricsRegistry.RecordSnapshotLoad(metrics.FabricCounts{}, 0, err)
		s.respondErr(w, "read snapshot file", err)
		return
	}
	snap, err := s.install(records, s.cfg.Snapshot.Strict, path)
	if err != nil {
		s.respondErr(w, "load snapshot", err)
		return
	}
	s.respondJSON(w, http.StatusOK, snapshotResponse(snap))
}

// install builds and swaps in a snapshot, recording the attempt.
func (s *Server) install(records snapshot.Records, strict bool, origin string) (*snapshot.Snapshot, error) {
	var opts []snapshot.Option
	if strict {
		opts = append(opts, snapshot.Strict())
	}

	start := time.Now()
	snap, err := s.store.Reload(records, opts...)
	if err != nil {
		s.metricsRegistry.RecordSnapshotLoad(metrics.FabricCounts{}, time.Since(start), err)
		return nil, err
	}
	s.metricsRegistry.RecordSnapshotLoad(fabricCounts(snap), time.Since(start), nil)
	s.logger.Info("snapshot installed",
		logging.SnapshotID(snap.ID()),
		logging.String("origin", origin),
		logging.Count(len(snap.Ports())),
		logging.Int("issues", len(snap.Issues())))
	return snap, nil
}

func uploadFormat(r *http.Request) string {
	if f := r.URL.Query().Get("format"); f != "" {
		if strings.EqualFold(f, formatDump) {
			return formatDump
		}
		return formatDocument
	}
	if mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type")); err == nil && mediaType == "text/plain" {
		return formatDump
	}
	return formatDocument
}
