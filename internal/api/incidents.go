package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/firmos/backend/internal/core"
	"github.com/firmos/backend/internal/incidents"
)

func (s *Server) handleIncidentLog(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Type             string                 `json:"type"`
		Description      string                 `json:"description"`
		AgentID          string                 `json:"agent_id"`
		WorkstreamID     string                 `json:"workstream_id,omitempty"`
		PackID           string                 `json:"pack_id,omitempty"`
		Details          map[string]interface{} `json:"details,omitempty"`
		SeverityOverride string                 `json:"severity_override,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request payload: %w", err))
		return
	}

	inc, err := s.incidentLog.Log(incidents.LogInput{
		Type:             incidents.Type(req.Type),
		Description:      req.Description,
		AgentID:          req.AgentID,
		WorkstreamID:     req.WorkstreamID,
		PackID:           req.PackID,
		Details:          req.Details,
		SeverityOverride: core.Severity(req.SeverityOverride),
	})
	if err != nil {
		if errors.Is(err, incidents.ErrInvalidIncident) {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusCreated, inc)
}

func (s *Server) handleIncidentGet(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	inc, ok := s.incidentLog.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("incident %s not found", id))
		return
	}
	writeJSON(w, http.StatusOK, inc)
}

func (s *Server) handleIncidentList(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("unresolved") == "true" {
		writeJSON(w, http.StatusOK, s.incidentLog.Unresolved())
		return
	}
	writeJSON(w, http.StatusOK, s.incidentLog.List())
}

func (s *Server) handleIncidentBlocking(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{
		"blocking": s.incidentLog.HasBlockingIncidents(),
	})
}

// handleIncidentResolve annotates an incident with its resolution.
// Unknown ids are reported as 404 here even though the log itself treats
// them as a silent no-op.
func (s *Server) handleIncidentResolve(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var req struct {
		Resolution string `json:"resolution"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request payload: %w", err))
		return
	}

	inc := s.incidentLog.Resolve(id, req.Resolution)
	if inc == nil {
		writeError(w, http.StatusNotFound, fmt.Errorf("incident %s not found", id))
		return
	}
	writeJSON(w, http.StatusOK, inc)
}
