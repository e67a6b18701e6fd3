package config

import (
	"fmt"
	"log"

	"github.com/firmos/backend/internal/core"
)

// Catalog holds the resolved static lookup tables the decision engines
// depend on: pack -> jurisdiction, agent -> domain, agent -> evidence
// minimums, and gated tool -> authorizers. Built once at startup and
// treated as immutable for the process lifetime.
type Catalog struct {
	packJurisdictions map[string]core.Jurisdiction
	agentDomains      map[string]core.Domain
	evidenceMinimums  map[string][]string
	gatedTools        map[string][]string
}

// defaultCatalogConfig is the compiled-in catalog. A YAML catalog section
// overlays these entries; it never removes them.
func defaultCatalogConfig() CatalogConfig {
	return CatalogConfig{
		Packs: map[string]string{
			"rw_tax":        "RW",
			"rw_accounting": "RW",
			"rw_audit":      "RW",
			"mt_tax":        "MT",
			"mt_accounting": "MT",
			"mt_notary":     "MT",
		},
		AgentDomains: map[string]string{
			core.AgentPolicyGovernor:  "GLOBAL",
			core.AgentQualityGuardian: "GLOBAL",
			"rw_accounting_engine":    "RW",
			"rw_tax_engine":           "RW",
			"rw_audit_engine":         "RW",
			"mt_accounting_engine":    "MT",
			"mt_tax_engine":           "MT",
			"mt_notary_engine":        "MT",
		},
		EvidenceMinimums: map[string][]string{
			"rw_tax_engine":        {"ebm_invoice_pdf", "vat_return"},
			"rw_accounting_engine": {"bank_statement", "ledger_export"},
			"rw_audit_engine":      {"bank_statement", "engagement_letter"},
			"mt_tax_engine":        {"tax_filing_receipt", "vat_return"},
			"mt_accounting_engine": {"bank_statement", "ledger_export"},
			"mt_notary_engine":     {"notary_deed", "board_resolution"},
		},
		GatedTools: map[string][]string{
			"release_action":  {core.AgentPolicyGovernor},
			"client_delivery": {core.AgentPolicyGovernor},
		},
	}
}

// NewCatalog resolves the raw YAML catalog (which may be zero-valued)
// against the compiled-in defaults. Unknown jurisdiction or domain codes
// in the overlay are rejected rather than silently dropped.
func NewCatalog(raw CatalogConfig) (*Catalog, error) {
	merged := defaultCatalogConfig()
	for pack, code := range raw.Packs {
		merged.Packs[pack] = code
	}
	for agent, domain := range raw.AgentDomains {
		merged.AgentDomains[agent] = domain
	}
	for agent, categories := range raw.EvidenceMinimums {
		merged.EvidenceMinimums[agent] = categories
	}
	for tool, authorizers := range raw.GatedTools {
		merged.GatedTools[tool] = authorizers
	}

	c := &Catalog{
		packJurisdictions: make(map[string]core.Jurisdiction, len(merged.Packs)),
		agentDomains:      make(map[string]core.Domain, len(merged.AgentDomains)),
		evidenceMinimums:  make(map[string][]string, len(merged.EvidenceMinimums)),
		gatedTools:        make(map[string][]string, len(merged.GatedTools)),
	}

	for pack, code := range merged.Packs {
		j := core.Jurisdiction(code)
		if !j.Valid() {
			return nil, fmt.Errorf("catalog: pack %q has unknown jurisdiction %q", pack, code)
		}
		c.packJurisdictions[pack] = j
	}

	for agent, code := range merged.AgentDomains {
		d := core.Domain(code)
		if d != core.DomainGlobal && d != core.DomainRW && d != core.DomainMT {
			return nil, fmt.Errorf("catalog: agent %q has unknown domain %q", agent, code)
		}
		c.agentDomains[agent] = d
	}

	for agent, categories := range merged.EvidenceMinimums {
		cp := make([]string, len(categories))
		copy(cp, categories)
		c.evidenceMinimums[agent] = cp
	}

	for tool, authorizers := range merged.GatedTools {
		cp := make([]string, len(authorizers))
		copy(cp, authorizers)
		c.gatedTools[tool] = cp
	}

	log.Printf("[CATALOG] Resolved %d packs, %d agents, %d gated tools",
		len(c.packJurisdictions), len(c.agentDomains), len(c.gatedTools))
	return c, nil
}

// PackJurisdiction resolves a pack id to its jurisdiction.
func (c *Catalog) PackJurisdiction(packID string) (core.Jurisdiction, bool) {
	j, ok := c.packJurisdictions[packID]
	return j, ok
}

// PackJurisdictions returns the full pack table.
func (c *Catalog) PackJurisdictions() map[string]core.Jurisdiction {
	out := make(map[string]core.Jurisdiction, len(c.packJurisdictions))
	for k, v := range c.packJurisdictions {
		out[k] = v
	}
	return out
}

// AgentDomain resolves an agent id to its jurisdiction domain.
func (c *Catalog) AgentDomain(agentID string) (core.Domain, bool) {
	d, ok := c.agentDomains[agentID]
	return d, ok
}

// EvidenceMinimum returns the evidence categories an agent must link
// before its work can pass Guardian review. Empty slice when the agent
// carries no minimum.
func (c *Catalog) EvidenceMinimum(agentID string) []string {
	min, ok := c.evidenceMinimums[agentID]
	if !ok {
		return nil
	}
	out := make([]string, len(min))
	copy(out, min)
	return out
}

// EvidenceMinimums returns the full agent -> minimum table.
func (c *Catalog) EvidenceMinimums() map[string][]string {
	out := make(map[string][]string, len(c.evidenceMinimums))
	for agent := range c.evidenceMinimums {
		out[agent] = c.EvidenceMinimum(agent)
	}
	return out
}

// GatedToolAuthorizers returns the authorizer agent ids for a gated tool,
// or (nil, false) when the tool is not gated.
func (c *Catalog) GatedToolAuthorizers(tool string) ([]string, bool) {
	auth, ok := c.gatedTools[tool]
	if !ok {
		return nil, false
	}
	out := make([]string, len(auth))
	copy(out, auth)
	return out, true
}
