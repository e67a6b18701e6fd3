package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/firmos/backend/internal/core"
)

func TestDefaultCatalog(t *testing.T) {
	catalog, err := NewCatalog(CatalogConfig{})
	require.NoError(t, err)

	j, ok := catalog.PackJurisdiction("rw_accounting")
	assert.True(t, ok)
	assert.Equal(t, core.JurisdictionRW, j)

	j, ok = catalog.PackJurisdiction("mt_notary")
	assert.True(t, ok)
	assert.Equal(t, core.JurisdictionMT, j)

	_, ok = catalog.PackJurisdiction("de_tax")
	assert.False(t, ok)

	d, ok := catalog.AgentDomain(core.AgentQualityGuardian)
	assert.True(t, ok)
	assert.Equal(t, core.DomainGlobal, d)

	assert.ElementsMatch(t, []string{"ebm_invoice_pdf", "vat_return"}, catalog.EvidenceMinimum("rw_tax_engine"))
	assert.Empty(t, catalog.EvidenceMinimum("unknown_agent"))

	authorizers, gated := catalog.GatedToolAuthorizers("release_action")
	assert.True(t, gated)
	assert.Equal(t, []string{core.AgentPolicyGovernor}, authorizers)

	_, gated = catalog.GatedToolAuthorizers("document_draft")
	assert.False(t, gated)
}

func TestOverlayExtendsDefaults(t *testing.T) {
	catalog, err := NewCatalog(CatalogConfig{
		Packs:            map[string]string{"rw_payroll": "RW"},
		AgentDomains:     map[string]string{"rw_payroll_engine": "RW"},
		EvidenceMinimums: map[string][]string{"rw_payroll_engine": {"payroll_summary"}},
		GatedTools:       map[string][]string{"payroll_submission": {core.AgentPolicyGovernor}},
	})
	require.NoError(t, err)

	// New entries resolve.
	j, ok := catalog.PackJurisdiction("rw_payroll")
	assert.True(t, ok)
	assert.Equal(t, core.JurisdictionRW, j)

	// Defaults survive the overlay.
	_, ok = catalog.PackJurisdiction("mt_tax")
	assert.True(t, ok)

	_, gated := catalog.GatedToolAuthorizers("payroll_submission")
	assert.True(t, gated)
}

func TestOverlayRejectsUnknownCodes(t *testing.T) {
	_, err := NewCatalog(CatalogConfig{Packs: map[string]string{"fr_tax": "FR"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown jurisdiction")

	_, err = NewCatalog(CatalogConfig{AgentDomains: map[string]string{"agent_x": "EUROPE"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown domain")
}

func TestAccessorsReturnCopies(t *testing.T) {
	catalog, err := NewCatalog(CatalogConfig{})
	require.NoError(t, err)

	packs := catalog.PackJurisdictions()
	packs["rw_tax"] = core.JurisdictionMT
	j, _ := catalog.PackJurisdiction("rw_tax")
	assert.Equal(t, core.JurisdictionRW, j)

	min := catalog.EvidenceMinimum("rw_tax_engine")
	require.NotEmpty(t, min)
	min[0] = "mutated"
	assert.NotEqual(t, "mutated", catalog.EvidenceMinimum("rw_tax_engine")[0])
}
