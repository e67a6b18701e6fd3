package incidents

import (
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/firmos/backend/internal/audit"
	"github.com/firmos/backend/internal/core"
	"github.com/firmos/backend/internal/events"
	"github.com/firmos/backend/internal/metrics"
)

// Log is the incident log service. All mutation goes through the injected
// Store; the log itself holds no incident state, so two Logs over the
// same store see the same incidents.
type Log struct {
	store   Store
	sink    audit.Sink
	emitter events.EventEmitter
	metrics *metrics.Metrics
	logger  *log.Logger
}

// NewLog creates an incident log over the given store. sink, emitter, and
// m may be nil; nil collaborators are replaced with no-ops.
func NewLog(store Store, sink audit.Sink, emitter events.EventEmitter, m *metrics.Metrics) *Log {
	if sink == nil {
		sink = audit.NopSink{}
	}
	if emitter == nil {
		emitter = events.NopEmitter{}
	}
	return &Log{
		store:   store,
		sink:    sink,
		emitter: emitter,
		metrics: m,
		logger:  log.New(log.Writer(), "[INCIDENTS] ", log.LstdFlags),
	}
}

// Log validates and records a new incident. Severity defaults from the
// static type table unless the caller overrides it.
func (l *Log) Log(in LogInput) (*Incident, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	severity := severityByType[in.Type]
	if in.SeverityOverride != "" {
		severity = in.SeverityOverride
	}

	inc := &Incident{
		ID:           uuid.New().String(),
		Type:         in.Type,
		Severity:     severity,
		Description:  in.Description,
		WorkstreamID: in.WorkstreamID,
		AgentID:      in.AgentID,
		PackID:       in.PackID,
		Details:      in.Details,
		CreatedAt:    time.Now(),
	}

	if err := l.store.Append(inc); err != nil {
		return nil, err
	}

	l.logger.Printf("🚨 %s (%s) by agent %s: %s", inc.Type, inc.Severity, inc.AgentID, inc.Description)

	l.sink.Record(audit.Record{
		Action:       "incident.logged",
		Actor:        inc.AgentID,
		ResourceType: "incident",
		ResourceID:   inc.ID,
		Details: map[string]interface{}{
			"type":          string(inc.Type),
			"severity":      string(inc.Severity),
			"workstream_id": inc.WorkstreamID,
			"pack_id":       inc.PackID,
		},
	})

	l.emitter.Emit(events.EventIncidentLogged, "firmos/incidents", inc.ID, map[string]interface{}{
		"incident_id":   inc.ID,
		"type":          string(inc.Type),
		"severity":      string(inc.Severity),
		"agent_id":      inc.AgentID,
		"workstream_id": inc.WorkstreamID,
	})

	if l.metrics != nil {
		l.metrics.IncidentsLogged.WithLabelValues(string(inc.Type), string(inc.Severity)).Inc()
		l.metrics.BlockingIncidents.Set(float64(l.countBlocking()))
	}

	return inc, nil
}

// HasBlockingIncidents reports whether any CRITICAL incident remains
// unresolved. This predicate gates all release execution — the
// system-wide circuit breaker.
func (l *Log) HasBlockingIncidents() bool {
	return l.countBlocking() > 0
}

func (l *Log) countBlocking() int {
	n := 0
	for _, inc := range l.store.List() {
		if inc.Severity == core.SeverityCritical && !inc.Resolved() {
			n++
		}
	}
	return n
}

// Resolve annotates an incident with its resolution. Unknown ids are a
// no-op returning nil — never an error.
func (l *Log) Resolve(id, resolution string) *Incident {
	inc, ok := l.store.Get(id)
	if !ok {
		l.logger.Printf("⚠️  Resolve called for unknown incident %s — ignoring", id)
		return nil
	}

	now := time.Now()
	inc.ResolvedAt = &now
	inc.Resolution = resolution
	if err := l.store.Update(inc); err != nil {
		l.logger.Printf("⚠️  Failed to persist resolution for incident %s: %v", id, err)
		return nil
	}

	l.sink.Record(audit.Record{
		Action:       "incident.resolved",
		Actor:        "operator",
		ResourceType: "incident",
		ResourceID:   inc.ID,
		Details:      map[string]interface{}{"resolution": resolution},
	})

	l.emitter.Emit(events.EventIncidentResolved, "firmos/incidents", inc.ID, map[string]interface{}{
		"incident_id": inc.ID,
		"resolution":  resolution,
	})

	if l.metrics != nil {
		l.metrics.BlockingIncidents.Set(float64(l.countBlocking()))
	}

	return inc
}

// Get returns one incident by id.
func (l *Log) Get(id string) (*Incident, bool) {
	return l.store.Get(id)
}

// List returns all incidents in append order.
func (l *Log) List() []*Incident {
	return l.store.List()
}

// Unresolved returns the incidents still open, in append order.
func (l *Log) Unresolved() []*Incident {
	var open []*Incident
	for _, inc := range l.store.List() {
		if !inc.Resolved() {
			open = append(open, inc)
		}
	}
	return open
}
