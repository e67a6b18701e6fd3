// Package release implements the release workflow state machine: the
// dual-control gate every external release must pass. A release moves
// pending → qc_in_progress → {qc_passed|qc_failed} → authorized →
// executed → rolled_back, with denial reachable along the way. The guard
// triple (authorize needs qc_passed, execute needs authorized, rollback
// needs executed) is what keeps a single actor from self-authorizing an
// external release; invalid transitions are refused as warned no-ops, not
// errors, because they are routine caller mistakes against a long-lived
// workflow.
package release

import (
	"time"

	"github.com/firmos/backend/internal/guardian"
)

// Status is a release workflow state.
type Status string

const (
	StatusPending      Status = "pending"
	StatusQCInProgress Status = "qc_in_progress"
	StatusQCPassed     Status = "qc_passed"
	StatusQCFailed     Status = "qc_failed"
	StatusAuthorized   Status = "authorized"
	StatusExecuted     Status = "executed"
	StatusRolledBack   Status = "rolled_back"
	StatusDenied       Status = "denied"
)

// Request describes what an agent wants to release.
type Request struct {
	ReleaseID      string                 `json:"release_id"`
	Type           string                 `json:"type"`
	PackID         string                 `json:"pack_id"`
	WorkstreamID   string                 `json:"workstream_id"`
	RequesterAgent string                 `json:"requester_agent"`
	Description    string                 `json:"description"`
	ArtifactRefs   []string               `json:"artifact_refs,omitempty"`
	EvidenceRefs   []string               `json:"evidence_refs,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

// Decision is one entry in a workflow's append-only decision log.
// DecidedBy is the policy governor, the quality guardian, or a human
// operator — never the requesting agent.
type Decision struct {
	ID             string           `json:"id"`
	ReleaseID      string           `json:"release_id"`
	Status         Status           `json:"status"`
	DecidedBy      string           `json:"decided_by"`
	DecidedAt      time.Time        `json:"decided_at"`
	QCResult       *guardian.Report `json:"qc_result,omitempty"`
	Conditions     []string         `json:"conditions,omitempty"`
	DenialReason   string           `json:"denial_reason,omitempty"`
	ExecutionNotes string           `json:"execution_notes,omitempty"`
}

// Workflow is the full history of one release. The decisions slice is
// append-only and authoritative; CurrentStatus always mirrors the last
// decision's status.
type Workflow struct {
	Request       Request    `json:"request"`
	Decisions     []Decision `json:"decisions"`
	CurrentStatus Status     `json:"current_status"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// LastQCResult returns the most recent embedded Guardian report, or nil
// if QC has not run.
func (w *Workflow) LastQCResult() *guardian.Report {
	for i := len(w.Decisions) - 1; i >= 0; i-- {
		if w.Decisions[i].QCResult != nil {
			return w.Decisions[i].QCResult
		}
	}
	return nil
}

// clone returns a deep-enough copy: callers may inspect the decision log
// but can never mutate stored state through the copy.
func (w *Workflow) clone() *Workflow {
	cp := *w
	cp.Decisions = make([]Decision, len(w.Decisions))
	copy(cp.Decisions, w.Decisions)
	return &cp
}
