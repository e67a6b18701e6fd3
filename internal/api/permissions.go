package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/firmos/backend/internal/incidents"
	"github.com/firmos/backend/internal/permissions"
)

func (s *Server) handleToolPermission(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AgentID string                   `json:"agent_id"`
		Tool    string                   `json:"tool"`
		Context *permissions.ToolContext `json:"context,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request payload: %w", err))
		return
	}
	if req.AgentID == "" || req.Tool == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("agent_id and tool are required"))
		return
	}

	decision := s.gate.CheckToolPermission(req.AgentID, req.Tool, req.Context)
	if !decision.Allowed {
		_, err := s.incidentLog.Log(incidents.LogInput{
			Type:        incidents.UnauthorizedToolAccess,
			Description: fmt.Sprintf("agent %s denied tool %s: %s", req.AgentID, req.Tool, decision.Reason),
			AgentID:     req.AgentID,
			Details:     map[string]interface{}{"tool": req.Tool},
		})
		if err != nil {
			s.logger.Printf("⚠️  Failed to record tool-denial incident for agent %s: %v", req.AgentID, err)
		}
	}
	writeJSON(w, http.StatusOK, decision)
}

func (s *Server) handlePackPermission(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	agentID := vars["agent_id"]
	packID := vars["pack_id"]

	decision := s.gate.CanAgentUsePack(agentID, packID)
	if decision.Leakage {
		_, err := s.incidentLog.Log(incidents.LogInput{
			Type:        incidents.PackLeakage,
			Description: decision.Reason,
			AgentID:     agentID,
			PackID:      packID,
		})
		if err != nil {
			s.logger.Printf("⚠️  Failed to record pack-leakage incident for agent %s: %v", agentID, err)
		}
	}
	writeJSON(w, http.StatusOK, decision)
}
