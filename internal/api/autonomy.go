package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/firmos/backend/internal/autonomy"
	"github.com/firmos/backend/internal/events"
)

func (s *Server) handleAutonomyEvaluate(w http.ResponseWriter, r *http.Request) {
	var ctx autonomy.ActionContext
	if err := json.NewDecoder(r.Body).Decode(&ctx); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request payload: %w", err))
		return
	}

	decision, err := s.evaluator.Evaluate(ctx)
	if err != nil {
		if errors.Is(err, autonomy.ErrInvalidContext) {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	if s.metrics != nil {
		s.metrics.AutonomyDecisions.WithLabelValues(string(decision.Tier)).Inc()
	}
	s.emitter.Emit(events.EventAutonomyDecided, "firmos/autonomy", string(ctx.ServiceCategory), map[string]interface{}{
		"tier":           string(decision.Tier),
		"reasoning":      decision.Reasoning,
		"rules_applied":  decision.RulesApplied,
		"requires_human": decision.RequiresHuman,
		"jurisdiction":   string(ctx.Jurisdiction),
	})

	writeJSON(w, http.StatusOK, decision)
}

func (s *Server) handleAutonomyRules(w http.ResponseWriter, r *http.Request) {
	rules := s.evaluator.Rules()
	out := make([]map[string]interface{}, 0, len(rules))
	for _, rule := range rules {
		out = append(out, map[string]interface{}{
			"id":       rule.ID,
			"priority": rule.Priority,
			"tier":     string(rule.Tier),
			"reason":   rule.Reason,
		})
	}
	writeJSON(w, http.StatusOK, out)
}
