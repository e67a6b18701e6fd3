package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/firmos/backend/internal/release"
)

func (s *Server) handleReleaseCreate(w http.ResponseWriter, r *http.Request) {
	var req release.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request payload: %w", err))
		return
	}

	wf, err := s.releases.Create(req)
	if err != nil {
		if errors.Is(err, release.ErrInvalidRequest) {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusCreated, wf)
}

func (s *Server) handleReleaseGet(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	wf, ok := s.releases.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("release %s not found", id))
		return
	}
	writeJSON(w, http.StatusOK, wf)
}

func (s *Server) handleReleaseList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.releases.List())
}

func (s *Server) handleReleaseQC(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	wf, err := s.releases.RunQC(id)
	s.writeWorkflow(w, wf, err)
}

func (s *Server) handleReleaseAuthorize(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var req struct {
		DecidedBy  string   `json:"decided_by"`
		Conditions []string `json:"conditions,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request payload: %w", err))
		return
	}
	wf, err := s.releases.Authorize(id, req.DecidedBy, req.Conditions)
	s.writeWorkflow(w, wf, err)
}

func (s *Server) handleReleaseDeny(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var req struct {
		DecidedBy string `json:"decided_by"`
		Reason    string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request payload: %w", err))
		return
	}
	wf, err := s.releases.Deny(id, req.DecidedBy, req.Reason)
	s.writeWorkflow(w, wf, err)
}

func (s *Server) handleReleaseExecute(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var req struct {
		DecidedBy string `json:"decided_by"`
		Notes     string `json:"notes,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request payload: %w", err))
		return
	}
	wf, err := s.releases.Execute(id, req.DecidedBy, req.Notes)
	s.writeWorkflow(w, wf, err)
}

func (s *Server) handleReleaseRollback(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var req struct {
		DecidedBy string `json:"decided_by"`
		Reason    string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request payload: %w", err))
		return
	}
	wf, err := s.releases.Rollback(id, req.DecidedBy, req.Reason)
	s.writeWorkflow(w, wf, err)
}

// writeWorkflow maps workflow operation outcomes onto HTTP. Refused
// transitions come back as 200 with the unchanged workflow — the refusal
// is visible in current_status, matching the no-op contract.
func (s *Server) writeWorkflow(w http.ResponseWriter, wf *release.Workflow, err error) {
	if err != nil {
		if errors.Is(err, release.ErrNotFound) {
			writeError(w, http.StatusNotFound, err)
			return
		}
		if errors.Is(err, release.ErrInvalidRequest) {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, wf)
}
