package incidents

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/firmos/backend/internal/core"
)

func newTestLog() *Log {
	return NewLog(NewMemoryStore(), nil, nil, nil)
}

func TestSeverityDefaultsFromType(t *testing.T) {
	cases := []struct {
		incidentType Type
		severity     core.Severity
	}{
		{PackLeakage, core.SeverityCritical},
		{GateBypassAttempt, core.SeverityHigh},
		{ReleaseBypassAttempt, core.SeverityHigh},
		{UnauthorizedToolAccess, core.SeverityHigh},
		{EvidenceMissingPattern, core.SeverityMedium},
		{RepeatedContradiction, core.SeverityMedium},
		{PolicyViolation, core.SeverityMedium},
	}

	logSvc := newTestLog()
	for _, tc := range cases {
		t.Run(string(tc.incidentType), func(t *testing.T) {
			inc, err := logSvc.Log(LogInput{
				Type:        tc.incidentType,
				Description: "test incident",
				AgentID:     "rw_tax_engine",
			})
			require.NoError(t, err)
			assert.Equal(t, tc.severity, inc.Severity)
			assert.NotEmpty(t, inc.ID)
			assert.False(t, inc.Resolved())
		})
	}
}

func TestSeverityOverride(t *testing.T) {
	inc, err := newTestLog().Log(LogInput{
		Type:             PolicyViolation,
		Description:      "repeated template misuse",
		AgentID:          "mt_tax_engine",
		SeverityOverride: core.SeverityCritical,
	})
	require.NoError(t, err)
	assert.Equal(t, core.SeverityCritical, inc.Severity)
}

func TestMalformedIncidentsAreRejected(t *testing.T) {
	logSvc := newTestLog()

	cases := []struct {
		name  string
		input LogInput
	}{
		{"unknown type", LogInput{Type: "ALIEN_INVASION", Description: "x", AgentID: "a"}},
		{"empty description", LogInput{Type: PackLeakage, AgentID: "a"}},
		{"empty agent", LogInput{Type: PackLeakage, Description: "x"}},
		{"bad severity override", LogInput{Type: PackLeakage, Description: "x", AgentID: "a", SeverityOverride: "COSMIC"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := logSvc.Log(tc.input)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidIncident)
		})
	}

	assert.Empty(t, logSvc.List(), "rejected incidents must not be stored")
}

func TestBlockingRequiresUnresolvedCritical(t *testing.T) {
	logSvc := newTestLog()
	assert.False(t, logSvc.HasBlockingIncidents())

	// HIGH incidents never block.
	_, err := logSvc.Log(LogInput{Type: GateBypassAttempt, Description: "probe", AgentID: "a"})
	require.NoError(t, err)
	assert.False(t, logSvc.HasBlockingIncidents())

	inc, err := logSvc.Log(LogInput{Type: PackLeakage, Description: "MT template in RW engagement", AgentID: "a"})
	require.NoError(t, err)
	assert.True(t, logSvc.HasBlockingIncidents())

	resolved := logSvc.Resolve(inc.ID, "template reference removed, pack audit completed")
	require.NotNil(t, resolved)
	assert.True(t, resolved.Resolved())
	assert.Equal(t, "template reference removed, pack audit completed", resolved.Resolution)
	assert.False(t, logSvc.HasBlockingIncidents())
}

func TestResolveUnknownIDIsNoOp(t *testing.T) {
	assert.Nil(t, newTestLog().Resolve("does-not-exist", "n/a"))
}

func TestIncidentsAreAppendOnly(t *testing.T) {
	logSvc := newTestLog()

	first, err := logSvc.Log(LogInput{Type: PolicyViolation, Description: "one", AgentID: "a"})
	require.NoError(t, err)
	second, err := logSvc.Log(LogInput{Type: PolicyViolation, Description: "two", AgentID: "a"})
	require.NoError(t, err)

	logSvc.Resolve(first.ID, "handled")

	all := logSvc.List()
	require.Len(t, all, 2)
	assert.Equal(t, first.ID, all[0].ID)
	assert.Equal(t, second.ID, all[1].ID)

	open := logSvc.Unresolved()
	require.Len(t, open, 1)
	assert.Equal(t, second.ID, open[0].ID)
}

func TestStoreCopiesOnRead(t *testing.T) {
	logSvc := newTestLog()
	inc, err := logSvc.Log(LogInput{Type: PolicyViolation, Description: "orig", AgentID: "a"})
	require.NoError(t, err)

	got, ok := logSvc.Get(inc.ID)
	require.True(t, ok)
	got.Description = "mutated"

	again, ok := logSvc.Get(inc.ID)
	require.True(t, ok)
	assert.Equal(t, "orig", again.Description)
}
