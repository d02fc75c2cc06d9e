// Package httpapi exposes the read-only queue inspection API and the
// inbound completion-report endpoint for external executors.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/adwforge/phaseq/internal/queue"
	"github.com/adwforge/phaseq/internal/types"
)

// maxRequestBodyBytes limits request bodies (1 MiB) to prevent OOM
const maxRequestBodyBytes = 1 << 20

// Server serves the queue over HTTP. Inspection endpoints return the
// data-model fields verbatim; no business logic lives here.
type Server struct {
	svc *queue.Service
}

// NewServer creates an HTTP API server over the queue service
func NewServer(svc *queue.Service) *Server {
	return &Server{svc: svc}
}

// Handler returns the routed http.Handler
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/queue", s.handleList)
	mux.HandleFunc("GET /api/queue/next", s.handleNext)
	mux.HandleFunc("GET /api/queue/{id}", s.handleGet)
	mux.HandleFunc("GET /api/parents/{parent}", s.handleByParent)
	mux.HandleFunc("POST /api/queue/{id}/start", s.handleStart)
	mux.HandleFunc("POST /api/report", s.handleReport)
	return mux
}

// handleStart claims a ready phase for execution (ready → running).
// The compare-and-set transition guarantees only one caller wins.
func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.svc.MarkRunning(r.Context(), id); err != nil {
		switch {
		case types.IsNotFound(err):
			writeError(w, http.StatusNotFound, err)
		case types.IsInvalidTransition(err):
			writeError(w, http.StatusConflict, err)
		default:
			writeError(w, http.StatusInternalServerError, err)
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"queue_id": id, "status": "running"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	phases, err := s.svc.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if phases == nil {
		phases = []*types.Phase{}
	}
	writeJSON(w, http.StatusOK, phases)
}

func (s *Server) handleNext(w http.ResponseWriter, r *http.Request) {
	phase, err := s.svc.GetNextReady(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if phase == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{"next": nil})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"next": phase})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	phase, err := s.svc.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		if types.IsNotFound(err) {
			writeError(w, http.StatusNotFound, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, phase)
}

func (s *Server) handleByParent(w http.ResponseWriter, r *http.Request) {
	parent, err := strconv.Atoi(r.PathValue("parent"))
	if err != nil || parent < 0 {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid parent issue: %s", r.PathValue("parent")))
		return
	}
	phases, err := s.svc.GetAllByParent(r.Context(), parent)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if phases == nil {
		phases = []*types.Phase{}
	}
	writeJSON(w, http.StatusOK, phases)
}

// reportRequest is the inbound "this issue's execution finished" call
type reportRequest struct {
	IssueNumber int    `json:"issue_number"`
	Success     bool   `json:"success"`
	Error       string `json:"error,omitempty"`
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)

	var req reportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid report body: %w", err))
		return
	}
	if req.IssueNumber <= 0 {
		writeError(w, http.StatusBadRequest, errors.New("issue_number is required"))
		return
	}

	result, err := s.svc.ReportIssueResult(r.Context(), req.IssueNumber, req.Success, req.Error)
	if err != nil {
		if types.IsInvalidTransition(err) {
			writeError(w, http.StatusConflict, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	// No matching queue row is a benign no-op: not every external
	// ticket is queue-managed.
	if result.Phase == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{"managed": false})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"managed":  true,
		"queue_id": result.Phase.QueueID,
		"affected": result.Affected,
	})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
