// Package permissions implements the static tool permission gate: the
// first check an agent action passes before the autonomy evaluator sees
// it. The gate is stateless; callers are responsible for turning denials
// into incidents.
package permissions

import (
	"fmt"
	"log"
	"strings"

	"github.com/firmos/backend/internal/config"
	"github.com/firmos/backend/internal/core"
	"github.com/firmos/backend/internal/metrics"
)

// ToolContext carries the sign-offs a gated tool needs. Both must be set
// before the gate allows a gated tool.
type ToolContext struct {
	GovernorApproved bool `json:"governor_approved"`
	GuardianPassed   bool `json:"guardian_passed"`
}

// ToolDecision is the gate's answer for one agent/tool pair.
type ToolDecision struct {
	Allowed          bool   `json:"allowed"`
	Reason           string `json:"reason,omitempty"`
	RequiresApproval string `json:"requires_approval,omitempty"`
}

// Gate evaluates per-agent tool and pack access against the resolved
// catalog tables.
type Gate struct {
	catalog *config.Catalog
	metrics *metrics.Metrics
	logger  *log.Logger
}

// NewGate creates a permission gate over the catalog. m may be nil.
func NewGate(catalog *config.Catalog, m *metrics.Metrics) *Gate {
	return &Gate{
		catalog: catalog,
		metrics: m,
		logger:  log.New(log.Writer(), "[PERMISSIONS] ", log.LstdFlags),
	}
}

// CheckToolPermission decides whether agentID may use tool. Tools absent
// from the gated-tool table are always allowed here; jurisdiction
// restriction is a separate check. Gated tools require policy governor
// sign-off first and guardian sign-off second, and the denial names
// whichever is missing.
func (g *Gate) CheckToolPermission(agentID, tool string, ctx *ToolContext) ToolDecision {
	authorizers, gated := g.catalog.GatedToolAuthorizers(tool)
	if !gated {
		return ToolDecision{Allowed: true}
	}

	if ctx == nil || !ctx.GovernorApproved {
		g.deny(agentID, tool)
		return ToolDecision{
			Allowed:          false,
			Reason:           fmt.Sprintf("tool %s requires authorization from %s", tool, strings.Join(authorizers, ", ")),
			RequiresApproval: core.AgentPolicyGovernor,
		}
	}

	if !ctx.GuardianPassed {
		g.deny(agentID, tool)
		return ToolDecision{
			Allowed:          false,
			Reason:           fmt.Sprintf("tool %s requires a passing guardian review", tool),
			RequiresApproval: core.AgentQualityGuardian,
		}
	}

	return ToolDecision{Allowed: true}
}

// PackDecision is the gate's answer for one agent/pack pair. Leakage is
// set only for a genuine cross-jurisdiction mismatch, which the caller
// must record as a pack-leakage incident.
type PackDecision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
	Leakage bool   `json:"leakage,omitempty"`
}

// CanAgentUsePack reports whether agentID may touch packID. Global-domain
// agents may use any pack; regional agents only packs of their own
// jurisdiction. Unknown agents and unknown packs are denied.
func (g *Gate) CanAgentUsePack(agentID, packID string) PackDecision {
	domain, ok := g.catalog.AgentDomain(agentID)
	if !ok {
		return PackDecision{Reason: fmt.Sprintf("agent %s is not in the domain catalog", agentID)}
	}

	jurisdiction, ok := g.catalog.PackJurisdiction(packID)
	if !ok {
		return PackDecision{Reason: fmt.Sprintf("pack %s is not in the pack catalog", packID)}
	}

	agentJurisdiction, regional := domain.Jurisdiction()
	if !regional {
		return PackDecision{Allowed: true}
	}

	if agentJurisdiction != jurisdiction {
		return PackDecision{
			Reason: fmt.Sprintf("agent %s (domain %s) may not use pack %s (jurisdiction %s)",
				agentID, domain, packID, jurisdiction),
			Leakage: true,
		}
	}

	return PackDecision{Allowed: true}
}

func (g *Gate) deny(agentID, tool string) {
	g.logger.Printf("⚠️  Denied tool %s for agent %s", tool, agentID)
	if g.metrics != nil {
		g.metrics.ToolDenials.WithLabelValues(tool).Inc()
	}
}
