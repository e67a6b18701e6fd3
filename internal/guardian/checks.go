package guardian

import (
	"fmt"
	"strings"

	"github.com/firmos/backend/internal/taxonomy"
)

// checkRequiredOutputs verifies that every task has produced every output
// it is required to produce. Missing entries are reported as
// "<task name>: <output>".
func (e *Engine) checkRequiredOutputs(ctx WorkstreamContext) CheckResult {
	var missing []string
	for _, task := range ctx.Tasks {
		for _, gap := range taxonomy.Coverage(task.RequiredOutputs, task.OutputsPresent) {
			missing = append(missing, fmt.Sprintf("%s: %s", task.Name, gap))
		}
	}

	if len(missing) > 0 {
		return CheckResult{
			Passed:  false,
			Message: fmt.Sprintf("Missing required outputs: %s", strings.Join(missing, ", ")),
			Details: map[string]interface{}{"missing_outputs": missing},
		}
	}
	return CheckResult{Passed: true, Message: "All required outputs present"}
}

// checkRequiredEvidence verifies that every task has its required
// evidence linked, same structure as the outputs check.
func (e *Engine) checkRequiredEvidence(ctx WorkstreamContext) CheckResult {
	var missing []string
	for _, task := range ctx.Tasks {
		for _, gap := range taxonomy.Coverage(task.RequiredEvidence, task.EvidenceLinked) {
			missing = append(missing, fmt.Sprintf("%s: %s", task.Name, gap))
		}
	}

	if len(missing) > 0 {
		return CheckResult{
			Passed:  false,
			Message: fmt.Sprintf("Missing required evidence: %s", strings.Join(missing, ", ")),
			Details: map[string]interface{}{"missing_evidence": missing},
		}
	}
	return CheckResult{Passed: true, Message: "All required evidence linked"}
}

// checkHashIntegrity verifies each document's presented hash against the
// hash recorded at storage time. A mismatch means the content changed
// after it was stored.
func (e *Engine) checkHashIntegrity(ctx WorkstreamContext) CheckResult {
	var mismatched []string
	for _, doc := range ctx.Documents {
		if doc.Hash != doc.StoredHash {
			mismatched = append(mismatched, doc.Name)
		}
	}

	if len(mismatched) > 0 {
		return CheckResult{
			Passed:  false,
			Message: fmt.Sprintf("Hash mismatch: %s", strings.Join(mismatched, ", ")),
			Details: map[string]interface{}{"mismatched_documents": mismatched},
		}
	}
	return CheckResult{Passed: true, Message: "All document hashes verified"}
}

// checkCountryPackMatch is the cross-jurisdiction leakage guard: the
// workstream's pack must resolve to exactly the workstream's
// jurisdiction. This is the single most safety-critical check FirmOS
// runs; its failure message is prefixed FATAL.
func (e *Engine) checkCountryPackMatch(ctx WorkstreamContext) CheckResult {
	packJurisdiction, known := e.packs[ctx.PackID]
	if !known {
		return CheckResult{
			Passed:  false,
			Message: fmt.Sprintf("FATAL: pack %s is not in the pack catalog", ctx.PackID),
			Details: map[string]interface{}{"pack_id": ctx.PackID},
		}
	}

	if packJurisdiction != ctx.Jurisdiction {
		return CheckResult{
			Passed: false,
			Message: fmt.Sprintf("FATAL: pack %s belongs to jurisdiction %s but workstream is %s",
				ctx.PackID, packJurisdiction, ctx.Jurisdiction),
			Details: map[string]interface{}{
				"pack_id":                 ctx.PackID,
				"pack_jurisdiction":       string(packJurisdiction),
				"workstream_jurisdiction": string(ctx.Jurisdiction),
			},
		}
	}
	return CheckResult{Passed: true, Message: fmt.Sprintf("Pack %s matches jurisdiction %s", ctx.PackID, ctx.Jurisdiction)}
}

// checkTasksComplete requires every task to be completed. Soft check: it
// fails the aggregate but does not by itself block release.
func (e *Engine) checkTasksComplete(ctx WorkstreamContext) CheckResult {
	var incomplete []string
	for _, task := range ctx.Tasks {
		if task.Status != TaskStatusCompleted {
			incomplete = append(incomplete, task.Name)
		}
	}

	if len(incomplete) > 0 {
		return CheckResult{
			Passed:  false,
			Message: fmt.Sprintf("Incomplete tasks: %s", strings.Join(incomplete, ", ")),
			Details: map[string]interface{}{"incomplete_tasks": incomplete},
		}
	}
	return CheckResult{Passed: true, Message: "All tasks completed"}
}

// checkDocumentsApproved warns on documents that are neither approved nor
// released.
func (e *Engine) checkDocumentsApproved(ctx WorkstreamContext) CheckResult {
	var unapproved []string
	for _, doc := range ctx.Documents {
		if doc.Status != DocStatusApproved && doc.Status != DocStatusReleased {
			unapproved = append(unapproved, doc.Name)
		}
	}

	if len(unapproved) > 0 {
		return CheckResult{
			Passed:  false,
			Message: fmt.Sprintf("Documents not approved: %s", strings.Join(unapproved, ", ")),
			Details: map[string]interface{}{"unapproved_documents": unapproved},
		}
	}
	return CheckResult{Passed: true, Message: "All documents approved or released"}
}

// checkAgentEvidenceMinimum compares the linked evidence categories
// against the agent's static minimum requirement from the catalog.
func (e *Engine) checkAgentEvidenceMinimum(agentID string, linked []string) CheckResult {
	required := e.evidenceMins[agentID]
	missing := taxonomy.Coverage(required, linked)

	if len(missing) > 0 {
		return CheckResult{
			Passed:  false,
			Message: fmt.Sprintf("Agent %s is missing minimum evidence: %s", agentID, strings.Join(missing, ", ")),
			Details: map[string]interface{}{
				"agent_id":         agentID,
				"missing_evidence": missing,
			},
		}
	}
	return CheckResult{
		Passed:  true,
		Message: fmt.Sprintf("Agent %s meets its evidence minimum", agentID),
	}
}
