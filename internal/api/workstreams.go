package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/firmos/backend/internal/guardian"
)

// handleWorkstreamPut registers or replaces a workstream snapshot. The
// snapshot must pass the same structural validation the Guardian applies,
// so a malformed snapshot can never reach QC.
func (s *Server) handleWorkstreamPut(w http.ResponseWriter, r *http.Request) {
	var ctx guardian.WorkstreamContext
	if err := json.NewDecoder(r.Body).Decode(&ctx); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request payload: %w", err))
		return
	}
	if ctx.WorkstreamID == "" || ctx.PackID == "" || !ctx.Jurisdiction.Valid() {
		writeError(w, http.StatusBadRequest,
			fmt.Errorf("workstream_id, pack_id, and a valid jurisdiction are required"))
		return
	}

	s.workstreams.Put(ctx)
	writeJSON(w, http.StatusOK, map[string]string{
		"status":        "registered",
		"workstream_id": ctx.WorkstreamID,
	})
}

func (s *Server) handleWorkstreamGet(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	ctx, ok := s.workstreams.Snapshot(id)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("workstream %s not found", id))
		return
	}
	writeJSON(w, http.StatusOK, ctx)
}

func (s *Server) handleWorkstreamList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"workstreams": s.workstreams.List(),
	})
}
