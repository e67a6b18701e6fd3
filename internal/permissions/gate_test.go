package permissions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/firmos/backend/internal/config"
	"github.com/firmos/backend/internal/core"
)

func newTestGate(t *testing.T) *Gate {
	t.Helper()
	catalog, err := config.NewCatalog(config.CatalogConfig{})
	require.NoError(t, err)
	return NewGate(catalog, nil)
}

func TestNonGatedToolsAlwaysAllowed(t *testing.T) {
	gate := newTestGate(t)

	decision := gate.CheckToolPermission("rw_tax_engine", "document_draft", nil)
	assert.True(t, decision.Allowed)
	assert.Empty(t, decision.RequiresApproval)
}

func TestGatedToolNeedsGovernorFirst(t *testing.T) {
	gate := newTestGate(t)

	// No context at all.
	decision := gate.CheckToolPermission("rw_tax_engine", "release_action", nil)
	assert.False(t, decision.Allowed)
	assert.Equal(t, core.AgentPolicyGovernor, decision.RequiresApproval)
	assert.Contains(t, decision.Reason, "marco")

	// Guardian pass alone is not enough; governor sign-off comes first.
	decision = gate.CheckToolPermission("rw_tax_engine", "release_action", &ToolContext{GuardianPassed: true})
	assert.False(t, decision.Allowed)
	assert.Equal(t, core.AgentPolicyGovernor, decision.RequiresApproval)
}

func TestGatedToolNeedsGuardianSecond(t *testing.T) {
	gate := newTestGate(t)

	decision := gate.CheckToolPermission("rw_tax_engine", "release_action", &ToolContext{GovernorApproved: true})
	assert.False(t, decision.Allowed)
	assert.Equal(t, core.AgentQualityGuardian, decision.RequiresApproval)
}

func TestGatedToolWithBothSignOffsAllowed(t *testing.T) {
	gate := newTestGate(t)

	for _, tool := range []string{"release_action", "client_delivery"} {
		decision := gate.CheckToolPermission("rw_tax_engine", tool, &ToolContext{
			GovernorApproved: true,
			GuardianPassed:   true,
		})
		assert.True(t, decision.Allowed, "tool %s", tool)
	}
}

func TestGlobalAgentsUseAnyPack(t *testing.T) {
	gate := newTestGate(t)

	for _, pack := range []string{"rw_tax", "mt_notary"} {
		decision := gate.CanAgentUsePack(core.AgentPolicyGovernor, pack)
		assert.True(t, decision.Allowed, "pack %s", pack)
		decision = gate.CanAgentUsePack(core.AgentQualityGuardian, pack)
		assert.True(t, decision.Allowed, "pack %s", pack)
	}
}

func TestDomainAgentsStayInTheirJurisdiction(t *testing.T) {
	gate := newTestGate(t)

	decision := gate.CanAgentUsePack("rw_tax_engine", "rw_tax")
	assert.True(t, decision.Allowed)

	// Cross-jurisdiction access is the pack-leakage signal.
	decision = gate.CanAgentUsePack("rw_tax_engine", "mt_tax")
	assert.False(t, decision.Allowed)
	assert.True(t, decision.Leakage)
	assert.Contains(t, decision.Reason, "rw_tax_engine")
	assert.Contains(t, decision.Reason, "mt_tax")
}

func TestUnknownAgentOrPackDeniedWithoutLeakage(t *testing.T) {
	gate := newTestGate(t)

	decision := gate.CanAgentUsePack("mystery_agent", "rw_tax")
	assert.False(t, decision.Allowed)
	assert.False(t, decision.Leakage)

	decision = gate.CanAgentUsePack("rw_tax_engine", "fr_tax")
	assert.False(t, decision.Allowed)
	assert.False(t, decision.Leakage)
}
