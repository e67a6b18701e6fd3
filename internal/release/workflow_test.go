package release

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/firmos/backend/internal/core"
	"github.com/firmos/backend/internal/guardian"
	"github.com/firmos/backend/internal/incidents"
)

// stubQC returns a canned Guardian report.
type stubQC struct {
	passed bool
	err    error
}

func (s *stubQC) RunQC(req Request) (*guardian.Report, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &guardian.Report{
		WorkstreamID: req.WorkstreamID,
		Passed:       s.passed,
		GeneratedAt:  time.Now(),
	}, nil
}

func testRequest() Request {
	return Request{
		ReleaseID:      "rel-001",
		Type:           "client_delivery",
		PackID:         "rw_tax",
		WorkstreamID:   "ws-001",
		RequesterAgent: "rw_tax_engine",
	}
}

func newTestManager(qc QCRunner, incidentLog IncidentLog) *Manager {
	return NewManager(NewMemoryStore(), qc, incidentLog, nil, nil, nil)
}

func TestCreateRecordsInitialDecision(t *testing.T) {
	mgr := newTestManager(&stubQC{passed: true}, nil)

	wf, err := mgr.Create(testRequest())
	require.NoError(t, err)

	assert.Equal(t, StatusPending, wf.CurrentStatus)
	require.Len(t, wf.Decisions, 1)
	assert.Equal(t, StatusPending, wf.Decisions[0].Status)
	assert.Equal(t, "system", wf.Decisions[0].DecidedBy)
}

func TestCreateValidatesRequest(t *testing.T) {
	mgr := newTestManager(&stubQC{passed: true}, nil)

	cases := []struct {
		name   string
		mutate func(*Request)
	}{
		{"missing release id", func(r *Request) { r.ReleaseID = "" }},
		{"missing type", func(r *Request) { r.Type = "" }},
		{"missing pack", func(r *Request) { r.PackID = "" }},
		{"missing workstream", func(r *Request) { r.WorkstreamID = "" }},
		{"missing requester", func(r *Request) { r.RequesterAgent = "" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := testRequest()
			tc.mutate(&req)
			_, err := mgr.Create(req)
			assert.ErrorIs(t, err, ErrInvalidRequest)
		})
	}

	t.Run("duplicate release id", func(t *testing.T) {
		_, err := mgr.Create(testRequest())
		require.NoError(t, err)
		_, err = mgr.Create(testRequest())
		assert.ErrorIs(t, err, ErrInvalidRequest)
	})
}

func TestHappyPathLifecycle(t *testing.T) {
	mgr := newTestManager(&stubQC{passed: true}, nil)

	_, err := mgr.Create(testRequest())
	require.NoError(t, err)

	wf, err := mgr.RunQC("rel-001")
	require.NoError(t, err)
	assert.Equal(t, StatusQCPassed, wf.CurrentStatus)
	require.NotNil(t, wf.LastQCResult())
	assert.True(t, wf.LastQCResult().Passed)

	wf, err = mgr.Authorize("rel-001", core.AgentPolicyGovernor, []string{"deliver during business hours"})
	require.NoError(t, err)
	assert.Equal(t, StatusAuthorized, wf.CurrentStatus)

	wf, err = mgr.Execute("rel-001", core.AgentPolicyGovernor, "delivered via portal")
	require.NoError(t, err)
	assert.Equal(t, StatusExecuted, wf.CurrentStatus)

	wf, err = mgr.Rollback("rel-001", "operator-1", "client reported wrong attachment")
	require.NoError(t, err)
	assert.Equal(t, StatusRolledBack, wf.CurrentStatus)

	// pending, qc_in_progress, qc_passed, authorized, executed, rolled_back
	assert.Len(t, wf.Decisions, 6)
}

func TestFailedQCLandsOnQCFailed(t *testing.T) {
	mgr := newTestManager(&stubQC{passed: false}, nil)
	_, err := mgr.Create(testRequest())
	require.NoError(t, err)

	wf, err := mgr.RunQC("rel-001")
	require.NoError(t, err)
	assert.Equal(t, StatusQCFailed, wf.CurrentStatus)

	// qc_in_progress is recorded before the landing decision.
	assert.Equal(t, StatusQCInProgress, wf.Decisions[1].Status)
	assert.Equal(t, core.AgentQualityGuardian, wf.Decisions[1].DecidedBy)
}

func TestQCInfrastructureFailureLandsOnQCFailed(t *testing.T) {
	mgr := newTestManager(&stubQC{err: errors.New("workstream ws-001 not found")}, nil)
	_, err := mgr.Create(testRequest())
	require.NoError(t, err)

	wf, err := mgr.RunQC("rel-001")
	require.NoError(t, err)
	assert.Equal(t, StatusQCFailed, wf.CurrentStatus)
	assert.Contains(t, wf.Decisions[len(wf.Decisions)-1].DenialReason, "qc could not run")
}

func TestGuardTripleRefusesInvalidTransitions(t *testing.T) {
	mgr := newTestManager(&stubQC{passed: true}, nil)
	_, err := mgr.Create(testRequest())
	require.NoError(t, err)

	// Authorize before QC: no-op, state unchanged, no decision appended.
	wf, err := mgr.Authorize("rel-001", core.AgentPolicyGovernor, nil)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, wf.CurrentStatus)
	assert.Len(t, wf.Decisions, 1)

	// Execute before authorization: no-op.
	wf, err = mgr.Execute("rel-001", core.AgentPolicyGovernor, "")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, wf.CurrentStatus)

	// Rollback before execution: no-op.
	wf, err = mgr.Rollback("rel-001", "operator-1", "")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, wf.CurrentStatus)
	assert.Len(t, wf.Decisions, 1)
}

func TestSelfAuthorizationRefusedAndLogged(t *testing.T) {
	incidentLog := incidents.NewLog(incidents.NewMemoryStore(), nil, nil, nil)
	mgr := newTestManager(&stubQC{passed: true}, incidentLog)

	_, err := mgr.Create(testRequest())
	require.NoError(t, err)
	_, err = mgr.RunQC("rel-001")
	require.NoError(t, err)

	// The requester trying to authorize its own release is refused even
	// though the workflow sits on qc_passed.
	wf, err := mgr.Authorize("rel-001", "rw_tax_engine", nil)
	require.NoError(t, err)
	assert.Equal(t, StatusQCPassed, wf.CurrentStatus)

	logged := incidentLog.List()
	require.Len(t, logged, 1)
	assert.Equal(t, incidents.ReleaseBypassAttempt, logged[0].Type)
	assert.Equal(t, "rw_tax_engine", logged[0].AgentID)
}

// brokenIncidentStore fails every append, simulating a dead audit backend.
type brokenIncidentStore struct {
	incidents.Store
}

func (s *brokenIncidentStore) Append(inc *incidents.Incident) error {
	return errors.New("incident store unavailable")
}

func TestSelfAuthorizationRefusedEvenWhenIncidentStoreFails(t *testing.T) {
	incidentLog := incidents.NewLog(&brokenIncidentStore{Store: incidents.NewMemoryStore()}, nil, nil, nil)
	mgr := newTestManager(&stubQC{passed: true}, incidentLog)

	_, err := mgr.Create(testRequest())
	require.NoError(t, err)
	_, err = mgr.RunQC("rel-001")
	require.NoError(t, err)

	// The refusal must hold even if the bypass incident cannot be recorded.
	wf, err := mgr.Authorize("rel-001", "rw_tax_engine", nil)
	require.NoError(t, err)
	assert.Equal(t, StatusQCPassed, wf.CurrentStatus)
}

func TestDenyIsValidFromAnyState(t *testing.T) {
	mgr := newTestManager(&stubQC{passed: true}, nil)
	_, err := mgr.Create(testRequest())
	require.NoError(t, err)

	wf, err := mgr.Deny("rel-001", core.AgentPolicyGovernor, "engagement cancelled")
	require.NoError(t, err)
	assert.Equal(t, StatusDenied, wf.CurrentStatus)
	assert.Equal(t, "engagement cancelled", wf.Decisions[len(wf.Decisions)-1].DenialReason)

	// After denial, authorize is refused by the guard.
	wf, err = mgr.Authorize("rel-001", core.AgentPolicyGovernor, nil)
	require.NoError(t, err)
	assert.Equal(t, StatusDenied, wf.CurrentStatus)
}

func TestBlockingIncidentsStopExecution(t *testing.T) {
	incidentLog := incidents.NewLog(incidents.NewMemoryStore(), nil, nil, nil)
	mgr := newTestManager(&stubQC{passed: true}, incidentLog)

	_, err := mgr.Create(testRequest())
	require.NoError(t, err)
	_, err = mgr.RunQC("rel-001")
	require.NoError(t, err)
	_, err = mgr.Authorize("rel-001", core.AgentPolicyGovernor, nil)
	require.NoError(t, err)

	// A pack-leakage incident anywhere in the system trips the breaker.
	leak, err := incidentLog.Log(incidents.LogInput{
		Type:        incidents.PackLeakage,
		Description: "MT notary template referenced from RW engagement",
		AgentID:     "mt_notary_engine",
	})
	require.NoError(t, err)

	wf, err := mgr.Execute("rel-001", core.AgentPolicyGovernor, "")
	require.NoError(t, err)
	assert.Equal(t, StatusAuthorized, wf.CurrentStatus, "execution must be refused while the breaker is tripped")

	// Resolving the incident clears the breaker.
	require.NotNil(t, incidentLog.Resolve(leak.ID, "reference removed"))

	wf, err = mgr.Execute("rel-001", core.AgentPolicyGovernor, "")
	require.NoError(t, err)
	assert.Equal(t, StatusExecuted, wf.CurrentStatus)
}

func TestUnknownReleaseIsAnError(t *testing.T) {
	mgr := newTestManager(&stubQC{passed: true}, nil)

	_, err := mgr.RunQC("ghost")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = mgr.Authorize("ghost", core.AgentPolicyGovernor, nil)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = mgr.Execute("ghost", core.AgentPolicyGovernor, "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCurrentStatusMirrorsLastDecision(t *testing.T) {
	mgr := newTestManager(&stubQC{passed: true}, nil)
	_, err := mgr.Create(testRequest())
	require.NoError(t, err)
	_, err = mgr.RunQC("rel-001")
	require.NoError(t, err)

	wf, ok := mgr.Get("rel-001")
	require.True(t, ok)
	assert.Equal(t, wf.Decisions[len(wf.Decisions)-1].Status, wf.CurrentStatus)
	for _, d := range wf.Decisions {
		assert.Equal(t, "rel-001", d.ReleaseID)
		assert.NotEmpty(t, d.ID)
		assert.False(t, d.DecidedAt.IsZero())
	}
}

func TestStoreIsolation(t *testing.T) {
	mgr := newTestManager(&stubQC{passed: true}, nil)
	_, err := mgr.Create(testRequest())
	require.NoError(t, err)

	wf, ok := mgr.Get("rel-001")
	require.True(t, ok)
	wf.Decisions[0].Status = StatusExecuted

	again, ok := mgr.Get("rel-001")
	require.True(t, ok)
	assert.Equal(t, StatusPending, again.Decisions[0].Status)
}
