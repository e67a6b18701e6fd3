// Package api exposes the FirmOS decision engines over REST/JSON for the
// orchestrator frontend and the agent runtime.
package api

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/firmos/backend/internal/autonomy"
	"github.com/firmos/backend/internal/database"
	"github.com/firmos/backend/internal/events"
	"github.com/firmos/backend/internal/guardian"
	"github.com/firmos/backend/internal/incidents"
	"github.com/firmos/backend/internal/metrics"
	"github.com/firmos/backend/internal/permissions"
	"github.com/firmos/backend/internal/release"
)

// Server wires every decision engine behind one router.
type Server struct {
	evaluator   *autonomy.Evaluator
	checker     *guardian.Engine
	gate        *permissions.Gate
	releases    *release.Manager
	incidentLog *incidents.Log
	workstreams *database.WorkstreamRegistry
	bus         *events.EventBus
	emitter     events.EventEmitter
	metrics     *metrics.Metrics
	logger      *log.Logger
}

// NewServer creates the API server. bus feeds the SSE stream; emitter is
// the outbound event sink (may be the same bus).
func NewServer(
	evaluator *autonomy.Evaluator,
	checker *guardian.Engine,
	gate *permissions.Gate,
	releases *release.Manager,
	incidentLog *incidents.Log,
	workstreams *database.WorkstreamRegistry,
	bus *events.EventBus,
	emitter events.EventEmitter,
	m *metrics.Metrics,
) *Server {
	if emitter == nil {
		emitter = events.NopEmitter{}
	}
	return &Server{
		evaluator:   evaluator,
		checker:     checker,
		gate:        gate,
		releases:    releases,
		incidentLog: incidentLog,
		workstreams: workstreams,
		bus:         bus,
		emitter:     emitter,
		metrics:     m,
		logger:      log.New(log.Writer(), "[API] ", log.LstdFlags),
	}
}

// Router builds the full route table.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()

	// CORS Middleware
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			if req.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, req)
		})
	})

	// --- Endpoints ---

	// 1. Autonomy policy evaluator
	r.HandleFunc("/api/autonomy/evaluate", s.handleAutonomyEvaluate).Methods("POST")
	r.HandleFunc("/api/autonomy/rules", s.handleAutonomyRules).Methods("GET")

	// 2. Guardian check engine
	r.HandleFunc("/api/guardian/run", s.handleGuardianRun).Methods("POST")
	r.HandleFunc("/api/guardian/agent-evidence", s.handleGuardianAgentEvidence).Methods("POST")

	// 3. Validation rules
	r.HandleFunc("/api/validations/run", s.handleValidationsRun).Methods("POST")

	// 4. Workstream registry
	r.HandleFunc("/api/workstreams", s.handleWorkstreamPut).Methods("POST")
	r.HandleFunc("/api/workstreams", s.handleWorkstreamList).Methods("GET")
	r.HandleFunc("/api/workstreams/{id}", s.handleWorkstreamGet).Methods("GET")

	// 5. Release workflow
	r.HandleFunc("/api/releases", s.handleReleaseCreate).Methods("POST")
	r.HandleFunc("/api/releases", s.handleReleaseList).Methods("GET")
	r.HandleFunc("/api/releases/{id}", s.handleReleaseGet).Methods("GET")
	r.HandleFunc("/api/releases/{id}/qc", s.handleReleaseQC).Methods("POST")
	r.HandleFunc("/api/releases/{id}/authorize", s.handleReleaseAuthorize).Methods("POST")
	r.HandleFunc("/api/releases/{id}/deny", s.handleReleaseDeny).Methods("POST")
	r.HandleFunc("/api/releases/{id}/execute", s.handleReleaseExecute).Methods("POST")
	r.HandleFunc("/api/releases/{id}/rollback", s.handleReleaseRollback).Methods("POST")

	// 6. Incident log
	r.HandleFunc("/api/incidents", s.handleIncidentLog).Methods("POST")
	r.HandleFunc("/api/incidents", s.handleIncidentList).Methods("GET")
	r.HandleFunc("/api/incidents/blocking", s.handleIncidentBlocking).Methods("GET")
	r.HandleFunc("/api/incidents/{id}", s.handleIncidentGet).Methods("GET")
	r.HandleFunc("/api/incidents/{id}/resolve", s.handleIncidentResolve).Methods("POST")

	// 7. Tool permission gate
	r.HandleFunc("/api/permissions/tool", s.handleToolPermission).Methods("POST")
	r.HandleFunc("/api/permissions/pack/{agent_id}/{pack_id}", s.handlePackPermission).Methods("GET")

	// 8. Event stream + ops
	r.HandleFunc("/events/stream", s.handleEventStream).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")
	r.HandleFunc("/healthz", s.handleHealth).Methods("GET")

	return r
}

// Start blocks serving HTTP on the given port.
func (s *Server) Start(port int) error {
	addr := fmt.Sprintf(":%d", port)
	s.logger.Printf("🚀 FirmOS API listening on %s", addr)
	return http.ListenAndServe(addr, s.Router())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":      "ok",
		"subscribers": s.bus.SubscriberCount(),
	})
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
