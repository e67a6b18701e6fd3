package release

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/firmos/backend/internal/audit"
	"github.com/firmos/backend/internal/core"
	"github.com/firmos/backend/internal/events"
	"github.com/firmos/backend/internal/incidents"
	"github.com/firmos/backend/internal/metrics"
)

// ErrInvalidRequest marks a malformed release request.
var ErrInvalidRequest = errors.New("invalid release request")

// ErrNotFound is returned for operations on an unknown release id.
var ErrNotFound = errors.New("release not found")

// IncidentLog is the slice of the incident log the workflow needs: the
// circuit-breaker predicate plus the ability to record violations.
type IncidentLog interface {
	HasBlockingIncidents() bool
	Log(in incidents.LogInput) (*incidents.Incident, error)
}

// Manager owns all release workflows. Mutations to one release are
// serialized by a per-release lock; different releases never contend.
type Manager struct {
	store     Store
	qc        QCRunner
	incidents IncidentLog
	sink      audit.Sink
	emitter   events.EventEmitter
	metrics   *metrics.Metrics
	logger    *log.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewManager creates a release workflow manager. incidentLog, sink,
// emitter, and m may be nil; nil collaborators are replaced with no-ops
// (a nil incident log disables the circuit breaker, for tests only).
func NewManager(store Store, qc QCRunner, incidentLog IncidentLog, sink audit.Sink, emitter events.EventEmitter, m *metrics.Metrics) *Manager {
	if sink == nil {
		sink = audit.NopSink{}
	}
	if emitter == nil {
		emitter = events.NopEmitter{}
	}
	return &Manager{
		store:     store,
		qc:        qc,
		incidents: incidentLog,
		sink:      sink,
		emitter:   emitter,
		metrics:   m,
		logger:    log.New(log.Writer(), "[RELEASE] ", log.LstdFlags),
		locks:     make(map[string]*sync.Mutex),
	}
}

// lockFor returns the mutex serializing one release's decision history.
func (m *Manager) lockFor(releaseID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[releaseID]
	if !ok {
		l = &sync.Mutex{}
		m.locks[releaseID] = l
	}
	return l
}

// Create opens a new workflow in pending state, recording the initial
// decision.
func (m *Manager) Create(req Request) (*Workflow, error) {
	switch {
	case req.ReleaseID == "":
		return nil, fmt.Errorf("%w: release id is required", ErrInvalidRequest)
	case req.Type == "":
		return nil, fmt.Errorf("%w: type is required", ErrInvalidRequest)
	case req.PackID == "":
		return nil, fmt.Errorf("%w: pack id is required", ErrInvalidRequest)
	case req.WorkstreamID == "":
		return nil, fmt.Errorf("%w: workstream id is required", ErrInvalidRequest)
	case req.RequesterAgent == "":
		return nil, fmt.Errorf("%w: requester agent is required", ErrInvalidRequest)
	}

	lock := m.lockFor(req.ReleaseID)
	lock.Lock()
	defer lock.Unlock()

	if _, exists := m.store.Get(req.ReleaseID); exists {
		return nil, fmt.Errorf("%w: release %s already exists", ErrInvalidRequest, req.ReleaseID)
	}

	now := time.Now()
	wf := &Workflow{
		Request:       req,
		CurrentStatus: StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	m.appendDecision(wf, Decision{Status: StatusPending, DecidedBy: "system"})

	if err := m.store.Put(wf); err != nil {
		return nil, err
	}

	m.audit("release.created", "system", wf, "", StatusPending, nil)
	m.emit(events.EventReleaseCreated, wf, map[string]interface{}{
		"requester": req.RequesterAgent,
		"pack_id":   req.PackID,
	})
	return wf.clone(), nil
}

// RunQC moves the workflow through qc_in_progress and lands it on
// qc_passed or qc_failed depending on the Guardian report. The full
// report is embedded in the landing decision.
func (m *Manager) RunQC(releaseID string) (*Workflow, error) {
	lock := m.lockFor(releaseID)
	lock.Lock()
	defer lock.Unlock()

	wf, ok := m.store.Get(releaseID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, releaseID)
	}

	prev := wf.CurrentStatus
	m.appendDecision(wf, Decision{Status: StatusQCInProgress, DecidedBy: core.AgentQualityGuardian})

	report, err := m.qc.RunQC(wf.Request)
	if err != nil {
		// QC infrastructure failure: land on qc_failed with the cause
		// recorded, never leave the workflow stuck in qc_in_progress.
		m.appendDecision(wf, Decision{
			Status:       StatusQCFailed,
			DecidedBy:    core.AgentQualityGuardian,
			DenialReason: fmt.Sprintf("qc could not run: %v", err),
		})
	} else {
		landing := StatusQCFailed
		if report.Passed {
			landing = StatusQCPassed
		}
		m.appendDecision(wf, Decision{
			Status:    landing,
			DecidedBy: core.AgentQualityGuardian,
			QCResult:  report,
		})
	}

	if err := m.store.Put(wf); err != nil {
		return nil, err
	}

	m.audit("release.qc", core.AgentQualityGuardian, wf, prev, wf.CurrentStatus, nil)
	m.emit(events.EventReleaseQC, wf, map[string]interface{}{
		"result": string(wf.CurrentStatus),
	})
	return wf.clone(), nil
}

// Authorize records the policy governor's authorization. Only valid when
// the workflow sits on qc_passed; any other state is a warned no-op.
// Self-authorization by the requesting agent is refused and logged as a
// release bypass attempt.
func (m *Manager) Authorize(releaseID, decidedBy string, conditions []string) (*Workflow, error) {
	lock := m.lockFor(releaseID)
	lock.Lock()
	defer lock.Unlock()

	wf, ok := m.store.Get(releaseID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, releaseID)
	}

	if decidedBy == wf.Request.RequesterAgent {
		m.logger.Printf("⚠️  Agent %s attempted to authorize its own release %s — refusing", decidedBy, releaseID)
		m.refused("authorize")
		if m.incidents != nil {
			_, err := m.incidents.Log(incidents.LogInput{
				Type:         incidents.ReleaseBypassAttempt,
				Description:  fmt.Sprintf("agent %s attempted to self-authorize release %s", decidedBy, releaseID),
				AgentID:      decidedBy,
				WorkstreamID: wf.Request.WorkstreamID,
				PackID:       wf.Request.PackID,
			})
			if err != nil {
				m.logger.Printf("⚠️  Failed to record bypass incident for release %s: %v", releaseID, err)
			}
		}
		return wf, nil
	}

	if wf.CurrentStatus != StatusQCPassed {
		m.logger.Printf("⚠️  Authorize refused for release %s: status is %s, need %s",
			releaseID, wf.CurrentStatus, StatusQCPassed)
		m.refused("authorize")
		return wf, nil
	}

	prev := wf.CurrentStatus
	m.appendDecision(wf, Decision{
		Status:     StatusAuthorized,
		DecidedBy:  decidedBy,
		Conditions: conditions,
	})
	if err := m.store.Put(wf); err != nil {
		return nil, err
	}

	m.audit("release.authorized", decidedBy, wf, prev, StatusAuthorized, map[string]interface{}{
		"conditions": conditions,
	})
	m.emit(events.EventReleaseAuthorized, wf, map[string]interface{}{
		"decided_by": decidedBy,
	})
	return wf.clone(), nil
}

// Deny records a denial. Valid from any state.
func (m *Manager) Deny(releaseID, decidedBy, reason string) (*Workflow, error) {
	lock := m.lockFor(releaseID)
	lock.Lock()
	defer lock.Unlock()

	wf, ok := m.store.Get(releaseID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, releaseID)
	}

	prev := wf.CurrentStatus
	m.appendDecision(wf, Decision{
		Status:       StatusDenied,
		DecidedBy:    decidedBy,
		DenialReason: reason,
	})
	if err := m.store.Put(wf); err != nil {
		return nil, err
	}

	m.audit("release.denied", decidedBy, wf, prev, StatusDenied, map[string]interface{}{
		"reason": reason,
	})
	m.emit(events.EventReleaseDenied, wf, map[string]interface{}{
		"decided_by": decidedBy,
		"reason":     reason,
	})
	return wf.clone(), nil
}

// Execute performs the release. Only valid when the workflow sits on
// authorized, and only while no CRITICAL incident is open — the
// system-wide circuit breaker outranks this release's own history.
func (m *Manager) Execute(releaseID, decidedBy, notes string) (*Workflow, error) {
	lock := m.lockFor(releaseID)
	lock.Lock()
	defer lock.Unlock()

	wf, ok := m.store.Get(releaseID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, releaseID)
	}

	if wf.CurrentStatus != StatusAuthorized {
		m.logger.Printf("⚠️  Execute refused for release %s: status is %s, need %s",
			releaseID, wf.CurrentStatus, StatusAuthorized)
		m.refused("execute")
		return wf, nil
	}

	if m.incidents != nil && m.incidents.HasBlockingIncidents() {
		m.logger.Printf("⛔ Execute refused for release %s: unresolved CRITICAL incidents block all releases", releaseID)
		m.refused("execute")
		return wf, nil
	}

	prev := wf.CurrentStatus
	m.appendDecision(wf, Decision{
		Status:         StatusExecuted,
		DecidedBy:      decidedBy,
		ExecutionNotes: notes,
	})
	if err := m.store.Put(wf); err != nil {
		return nil, err
	}

	m.audit("release.executed", decidedBy, wf, prev, StatusExecuted, map[string]interface{}{
		"notes": notes,
	})
	m.emit(events.EventReleaseExecuted, wf, map[string]interface{}{
		"decided_by": decidedBy,
	})
	return wf.clone(), nil
}

// Rollback reverts an executed release. Only valid from executed.
func (m *Manager) Rollback(releaseID, decidedBy, reason string) (*Workflow, error) {
	lock := m.lockFor(releaseID)
	lock.Lock()
	defer lock.Unlock()

	wf, ok := m.store.Get(releaseID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, releaseID)
	}

	if wf.CurrentStatus != StatusExecuted {
		m.logger.Printf("⚠️  Rollback refused for release %s: status is %s, need %s",
			releaseID, wf.CurrentStatus, StatusExecuted)
		m.refused("rollback")
		return wf, nil
	}

	prev := wf.CurrentStatus
	m.appendDecision(wf, Decision{
		Status:         StatusRolledBack,
		DecidedBy:      decidedBy,
		ExecutionNotes: reason,
	})
	if err := m.store.Put(wf); err != nil {
		return nil, err
	}

	m.audit("release.rolled_back", decidedBy, wf, prev, StatusRolledBack, map[string]interface{}{
		"reason": reason,
	})
	m.emit(events.EventReleaseRolledBack, wf, map[string]interface{}{
		"decided_by": decidedBy,
		"reason":     reason,
	})
	return wf.clone(), nil
}

// Get returns the workflow for releaseID.
func (m *Manager) Get(releaseID string) (*Workflow, bool) {
	return m.store.Get(releaseID)
}

// List returns all workflows.
func (m *Manager) List() []*Workflow {
	return m.store.List()
}

// appendDecision appends and keeps CurrentStatus mirroring the last
// decision.
func (m *Manager) appendDecision(wf *Workflow, d Decision) {
	d.ID = uuid.New().String()
	d.ReleaseID = wf.Request.ReleaseID
	d.DecidedAt = time.Now()
	wf.Decisions = append(wf.Decisions, d)
	wf.CurrentStatus = d.Status
	wf.UpdatedAt = d.DecidedAt

	if m.metrics != nil {
		m.metrics.ReleaseTransitions.WithLabelValues(string(d.Status)).Inc()
	}
}

func (m *Manager) refused(operation string) {
	if m.metrics != nil {
		m.metrics.ReleaseRefusals.WithLabelValues(operation).Inc()
	}
}

func (m *Manager) audit(action, actor string, wf *Workflow, prev, next Status, details map[string]interface{}) {
	m.sink.Record(audit.Record{
		Action:       action,
		Actor:        actor,
		ResourceType: "release",
		ResourceID:   wf.Request.ReleaseID,
		Details:      details,
		PrevState:    string(prev),
		NewState:     string(next),
	})
}

func (m *Manager) emit(eventType string, wf *Workflow, data map[string]interface{}) {
	if data == nil {
		data = map[string]interface{}{}
	}
	data["release_id"] = wf.Request.ReleaseID
	data["workstream_id"] = wf.Request.WorkstreamID
	data["status"] = string(wf.CurrentStatus)
	m.emitter.Emit(eventType, "firmos/release", wf.Request.ReleaseID, data)
}
