package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/firmos/backend/internal/events"
	"github.com/firmos/backend/internal/guardian"
)

func (s *Server) handleGuardianRun(w http.ResponseWriter, r *http.Request) {
	var ctx guardian.WorkstreamContext
	if err := json.NewDecoder(r.Body).Decode(&ctx); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request payload: %w", err))
		return
	}

	report, err := s.checker.Run(ctx)
	if err != nil {
		if errors.Is(err, guardian.ErrInvalidWorkstream) {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	s.recordGuardianReport(report)
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleGuardianAgentEvidence(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Context          guardian.WorkstreamContext `json:"context"`
		AgentID          string                     `json:"agent_id"`
		LinkedCategories []string                   `json:"linked_categories"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request payload: %w", err))
		return
	}

	report, err := s.checker.RunWithAgentEvidence(req.Context, req.AgentID, req.LinkedCategories)
	if err != nil {
		if errors.Is(err, guardian.ErrInvalidWorkstream) {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	s.recordGuardianReport(report)
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) recordGuardianReport(report *guardian.Report) {
	if s.metrics != nil {
		result := "passed"
		if !report.Passed {
			result = "blocked"
		}
		s.metrics.GuardianRuns.WithLabelValues(result).Inc()
		for _, check := range report.Checks {
			outcome := "pass"
			if !check.Passed {
				outcome = "fail"
			}
			s.metrics.GuardianChecks.WithLabelValues(check.CheckID, outcome).Inc()
		}
	}

	s.emitter.Emit(events.EventGuardianReport, "firmos/guardian", report.WorkstreamID, map[string]interface{}{
		"workstream_id":  report.WorkstreamID,
		"passed":         report.Passed,
		"blocked_reason": report.BlockedReason,
		"checks":         len(report.Checks),
	})
}
