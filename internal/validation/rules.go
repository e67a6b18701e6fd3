// Package validation holds the four cross-cutting FirmOS invariants as
// standalone, pure validators. The Guardian engine and the release
// workflow both lean on them; callers outside the core may invoke them
// directly for pre-flight checks.
package validation

import (
	"fmt"
	"strings"

	"github.com/firmos/backend/internal/core"
	"github.com/firmos/backend/internal/taxonomy"
)

// Rule identifiers.
const (
	RulePackSeparation       = "PACK_SEPARATION"
	RuleEvidenceMinimum      = "EVIDENCE_MINIMUM"
	RuleGuardianPassRequired = "GUARDIAN_PASS_REQUIRED"
	RuleReleaseGated         = "RELEASE_GATED"
)

// GuardianStatus is the tri-state outcome of a Guardian review as seen by
// the validators. Only PASS satisfies the client-facing delivery rule.
type GuardianStatus string

const (
	GuardianPending GuardianStatus = "PENDING"
	GuardianPass    GuardianStatus = "PASS"
	GuardianFail    GuardianStatus = "FAIL"
)

// Result is the outcome of one validator.
type Result struct {
	RuleID        string `json:"rule_id"`
	Passed        bool   `json:"passed"`
	Message       string `json:"message"`
	BlockedReason string `json:"blocked_reason,omitempty"`
}

// ValidatePackSeparation checks that none of the referenced resources or
// templates belong to a different jurisdiction than the engagement.
// resources maps resource id -> jurisdiction domain; resources that are
// undefined in the table or scoped GLOBAL are exempt. A violation is a
// hard failure with a FATAL blocked reason — this is pack leakage.
func ValidatePackSeparation(jurisdiction core.Jurisdiction, resourceIDs []string, resources map[string]core.Domain) Result {
	var violations []string
	for _, id := range resourceIDs {
		domain, defined := resources[id]
		if !defined || domain == core.DomainGlobal {
			continue
		}
		if resourceJurisdiction, ok := domain.Jurisdiction(); ok && resourceJurisdiction != jurisdiction {
			violations = append(violations, fmt.Sprintf("%s (%s)", id, resourceJurisdiction))
		}
	}

	if len(violations) > 0 {
		reason := fmt.Sprintf("FATAL: cross-jurisdiction resources referenced in %s engagement: %s",
			jurisdiction, strings.Join(violations, ", "))
		return Result{
			RuleID:        RulePackSeparation,
			Passed:        false,
			Message:       reason,
			BlockedReason: reason,
		}
	}
	return Result{
		RuleID:  RulePackSeparation,
		Passed:  true,
		Message: "All referenced resources match the engagement jurisdiction",
	}
}

// ValidateEvidenceMinimum checks that every required evidence type is
// linked. Pure set difference over the taxonomy ids.
func ValidateEvidenceMinimum(requiredTypes, linkedTypes []string) Result {
	missing := taxonomy.Coverage(requiredTypes, linkedTypes)
	if len(missing) > 0 {
		return Result{
			RuleID:  RuleEvidenceMinimum,
			Passed:  false,
			Message: fmt.Sprintf("Missing evidence types: %s", strings.Join(missing, ", ")),
		}
	}
	return Result{
		RuleID:  RuleEvidenceMinimum,
		Passed:  true,
		Message: "Evidence minimum satisfied",
	}
}

// ValidateGuardianPassRequired enforces that client-facing delivery only
// happens after an explicit Guardian PASS. PENDING is not a pass.
// Non-client-facing contexts satisfy the rule trivially.
func ValidateGuardianPassRequired(clientFacing bool, status GuardianStatus) Result {
	if !clientFacing {
		return Result{
			RuleID:  RuleGuardianPassRequired,
			Passed:  true,
			Message: "Not client-facing; Guardian pass not required",
		}
	}
	if status == GuardianPass {
		return Result{
			RuleID:  RuleGuardianPassRequired,
			Passed:  true,
			Message: "Guardian review passed",
		}
	}
	return Result{
		RuleID:  RuleGuardianPassRequired,
		Passed:  false,
		Message: fmt.Sprintf("Client-facing delivery requires Guardian PASS, current status is %s", status),
	}
}

// ValidateReleaseGated enforces the dual-control release gate: policy
// governor authorization AND Guardian pass AND the policy itself allowing
// release. The blocked reason names every missing condition so the caller
// can render a precise remediation message.
func ValidateReleaseGated(governorAuthorized, guardianPassed, policyAllowsRelease bool) Result {
	var missing []string
	if !governorAuthorized {
		missing = append(missing, "policy governor authorization")
	}
	if !guardianPassed {
		missing = append(missing, "guardian pass")
	}
	if !policyAllowsRelease {
		missing = append(missing, "policy allows release")
	}

	if len(missing) > 0 {
		reason := fmt.Sprintf("Release gate not satisfied, missing: %s", strings.Join(missing, ", "))
		return Result{
			RuleID:        RuleReleaseGated,
			Passed:        false,
			Message:       reason,
			BlockedReason: reason,
		}
	}
	return Result{
		RuleID:  RuleReleaseGated,
		Passed:  true,
		Message: "Release gate satisfied",
	}
}

// PackSeparationContext is the input to the pack separation rule.
type PackSeparationContext struct {
	Jurisdiction core.Jurisdiction      `json:"jurisdiction"`
	ResourceIDs  []string               `json:"resource_ids"`
	Resources    map[string]core.Domain `json:"resources"`
}

// EvidenceMinimumContext is the input to the evidence minimum rule.
type EvidenceMinimumContext struct {
	RequiredTypes []string `json:"required_types"`
	LinkedTypes   []string `json:"linked_types"`
}

// GuardianPassContext is the input to the guardian-pass-required rule.
type GuardianPassContext struct {
	ClientFacing bool           `json:"client_facing"`
	Status       GuardianStatus `json:"status"`
}

// ReleaseGateContext is the input to the release gate rule.
type ReleaseGateContext struct {
	GovernorAuthorized  bool `json:"governor_authorized"`
	GuardianPassed      bool `json:"guardian_passed"`
	PolicyAllowsRelease bool `json:"policy_allows_release"`
}

// Contexts is a sparse set of validator inputs. A nil entry means the
// caller considers that rule inapplicable to the action; it is treated as
// vacuously satisfied and produces no result.
type Contexts struct {
	PackSeparation  *PackSeparationContext  `json:"pack_separation,omitempty"`
	EvidenceMinimum *EvidenceMinimumContext `json:"evidence_minimum,omitempty"`
	GuardianPass    *GuardianPassContext    `json:"guardian_pass,omitempty"`
	ReleaseGate     *ReleaseGateContext     `json:"release_gate,omitempty"`
}

// Summary aggregates a RunAll invocation.
type Summary struct {
	AllPassed      bool     `json:"all_passed"`
	Results        []Result `json:"results"`
	BlockedReasons []string `json:"blocked_reasons,omitempty"`
}

// RunAll evaluates every supplied context and conjoins the outcomes.
func RunAll(ctxs Contexts) Summary {
	summary := Summary{AllPassed: true}

	record := func(r Result) {
		summary.Results = append(summary.Results, r)
		if !r.Passed {
			summary.AllPassed = false
		}
		if r.BlockedReason != "" {
			summary.BlockedReasons = append(summary.BlockedReasons, r.BlockedReason)
		}
	}

	if c := ctxs.PackSeparation; c != nil {
		record(ValidatePackSeparation(c.Jurisdiction, c.ResourceIDs, c.Resources))
	}
	if c := ctxs.EvidenceMinimum; c != nil {
		record(ValidateEvidenceMinimum(c.RequiredTypes, c.LinkedTypes))
	}
	if c := ctxs.GuardianPass; c != nil {
		record(ValidateGuardianPassRequired(c.ClientFacing, c.Status))
	}
	if c := ctxs.ReleaseGate; c != nil {
		record(ValidateReleaseGated(c.GovernorAuthorized, c.GuardianPassed, c.PolicyAllowsRelease))
	}

	return summary
}
