package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/firmos/backend/internal/validation"
)

// handleValidationsRun accepts a sparse set of validator contexts; only
// the supplied ones run.
func (s *Server) handleValidationsRun(w http.ResponseWriter, r *http.Request) {
	var ctxs validation.Contexts
	if err := json.NewDecoder(r.Body).Decode(&ctxs); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request payload: %w", err))
		return
	}
	writeJSON(w, http.StatusOK, validation.RunAll(ctxs))
}
