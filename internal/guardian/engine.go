// Package guardian implements the Guardian check engine: a fixed battery
// of quality and compliance checks run against a workstream snapshot
// before any output is released.
//
// Business-rule failures never surface as errors — every outcome is a
// CheckResult inside the report. The only error paths are structurally
// malformed input, which is a caller bug.
package guardian

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/firmos/backend/internal/core"
)

// Check identifiers, in report order.
const (
	CheckRequiredOutputs      = "REQUIRED_OUTPUTS"
	CheckRequiredEvidence     = "REQUIRED_EVIDENCE"
	CheckHashIntegrity        = "HASH_INTEGRITY"
	CheckCountryPackMismatch  = "COUNTRY_PACK_MISMATCH"
	CheckTasksComplete        = "TASKS_COMPLETE"
	CheckDocumentsApproved    = "DOCUMENTS_APPROVED"
	CheckAgentEvidenceMinimum = "AGENT_EVIDENCE_MINIMUM"
)

// Task statuses and document statuses the checks care about.
const (
	TaskStatusCompleted = "completed"

	DocStatusApproved = "approved"
	DocStatusReleased = "released"
)

// ErrInvalidWorkstream marks a structurally malformed WorkstreamContext.
var ErrInvalidWorkstream = errors.New("invalid workstream context")

// Task is one unit of work inside a workstream.
type Task struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	Status           string   `json:"status"`
	RequiredOutputs  []string `json:"required_outputs"`
	OutputsPresent   []string `json:"outputs_present"`
	RequiredEvidence []string `json:"required_evidence"`
	EvidenceLinked   []string `json:"evidence_linked"`
}

// Document is a deliverable attached to a workstream. Hash is the hash of
// the content as presented; StoredHash is the hash recorded at storage
// time. They must match.
type Document struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Status     string `json:"status"`
	Hash       string `json:"hash"`
	StoredHash string `json:"stored_hash"`
}

// WorkstreamContext is the snapshot the engine evaluates. The engine
// never mutates it.
type WorkstreamContext struct {
	WorkstreamID string                 `json:"workstream_id"`
	PackID       string                 `json:"pack_id"`
	Jurisdiction core.Jurisdiction      `json:"jurisdiction"`
	Tasks        []Task                 `json:"tasks"`
	Documents    []Document             `json:"documents"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}

// CheckResult is the outcome of one check. Immutable once created.
type CheckResult struct {
	CheckID  string                 `json:"check_id"`
	Passed   bool                   `json:"passed"`
	Severity core.Severity          `json:"severity"`
	Message  string                 `json:"message"`
	Details  map[string]interface{} `json:"details,omitempty"`
}

// Report aggregates a full check run. Reports are never mutated —
// re-evaluation produces a new one.
type Report struct {
	WorkstreamID  string        `json:"workstream_id"`
	Passed        bool          `json:"passed"`
	Checks        []CheckResult `json:"checks"`
	BlockedReason string        `json:"blocked_reason,omitempty"`
	GeneratedAt   time.Time     `json:"generated_at"`
}

// CanRelease reports whether the workstream may be released externally.
func (r *Report) CanRelease() bool {
	return r.Passed
}

// checkSpec binds a check function to its severity and hard-fail flag.
// Severity and failHard are tracked independently: today every hard-fail
// check is also severity ERROR, but the aggregation below does not assume
// that stays true.
type checkSpec struct {
	id       string
	severity core.Severity
	failHard bool
	run      func(e *Engine, ctx WorkstreamContext) CheckResult
}

// Engine runs the check battery. Stateless apart from the injected static
// tables; safe for concurrent use.
type Engine struct {
	packs        map[string]core.Jurisdiction
	evidenceMins map[string][]string
	specs        []checkSpec
	logger       *log.Logger
}

// NewEngine creates a Guardian engine over the resolved pack table and
// per-agent evidence minimums.
func NewEngine(packs map[string]core.Jurisdiction, evidenceMins map[string][]string) *Engine {
	e := &Engine{
		packs:        packs,
		evidenceMins: evidenceMins,
		logger:       log.New(log.Writer(), "[GUARDIAN] ", log.LstdFlags),
	}
	e.specs = []checkSpec{
		{CheckRequiredOutputs, core.SeverityError, true, (*Engine).checkRequiredOutputs},
		{CheckRequiredEvidence, core.SeverityError, true, (*Engine).checkRequiredEvidence},
		{CheckHashIntegrity, core.SeverityError, true, (*Engine).checkHashIntegrity},
		{CheckCountryPackMismatch, core.SeverityError, true, (*Engine).checkCountryPackMatch},
		{CheckTasksComplete, core.SeverityError, false, (*Engine).checkTasksComplete},
		{CheckDocumentsApproved, core.SeverityWarning, false, (*Engine).checkDocumentsApproved},
	}
	return e
}

func validateContext(ctx WorkstreamContext) error {
	if ctx.WorkstreamID == "" {
		return fmt.Errorf("%w: workstream id is required", ErrInvalidWorkstream)
	}
	if ctx.PackID == "" {
		return fmt.Errorf("%w: pack id is required", ErrInvalidWorkstream)
	}
	if !ctx.Jurisdiction.Valid() {
		return fmt.Errorf("%w: unknown jurisdiction %q", ErrInvalidWorkstream, ctx.Jurisdiction)
	}
	for i, t := range ctx.Tasks {
		if t.ID == "" {
			return fmt.Errorf("%w: task[%d] is missing an id", ErrInvalidWorkstream, i)
		}
	}
	for i, d := range ctx.Documents {
		if d.ID == "" {
			return fmt.Errorf("%w: document[%d] is missing an id", ErrInvalidWorkstream, i)
		}
	}
	return nil
}

// Run evaluates the fixed battery against the snapshot and aggregates.
//
// The aggregate keeps two independent computations: allPassed (no check
// with severity ERROR failed) and blocked (no hard-fail check failed).
// passed = allPassed && !blocked. They are redundant for the current
// battery but are deliberately not collapsed.
func (e *Engine) Run(ctx WorkstreamContext) (*Report, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return e.aggregate(ctx.WorkstreamID, e.runBattery(ctx)), nil
}

// RunWithAgentEvidence runs the standard battery plus the per-agent
// evidence-minimum check: linkedCategories is compared against the
// agent's static minimum from the catalog.
func (e *Engine) RunWithAgentEvidence(ctx WorkstreamContext, agentID string, linkedCategories []string) (*Report, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if agentID == "" {
		return nil, fmt.Errorf("%w: agent id is required", ErrInvalidWorkstream)
	}

	spec := checkSpec{id: CheckAgentEvidenceMinimum, severity: core.SeverityError, failHard: false}
	res := e.checkAgentEvidenceMinimum(agentID, linkedCategories)
	res.CheckID = spec.id
	res.Severity = spec.severity

	results := append(e.runBattery(ctx), evaluated{spec: spec, result: res})
	return e.aggregate(ctx.WorkstreamID, results), nil
}

// evaluated pairs a result with the spec that produced it so aggregation
// can see the hard-fail flag.
type evaluated struct {
	spec   checkSpec
	result CheckResult
}

func (e *Engine) runBattery(ctx WorkstreamContext) []evaluated {
	results := make([]evaluated, 0, len(e.specs))
	for _, spec := range e.specs {
		res := spec.run(e, ctx)
		res.CheckID = spec.id
		res.Severity = spec.severity
		results = append(results, evaluated{spec: spec, result: res})
	}
	return results
}

func (e *Engine) aggregate(workstreamID string, results []evaluated) *Report {
	allPassed := true
	blocked := false
	var blockedReasons []string
	checks := make([]CheckResult, 0, len(results))

	for _, ev := range results {
		checks = append(checks, ev.result)
		if !ev.result.Passed && ev.result.Severity == core.SeverityError {
			allPassed = false
		}
		if !ev.result.Passed && ev.spec.failHard {
			blocked = true
			blockedReasons = append(blockedReasons, ev.result.Message)
		}
	}

	report := &Report{
		WorkstreamID:  workstreamID,
		Passed:        allPassed && !blocked,
		Checks:        checks,
		BlockedReason: strings.Join(blockedReasons, "; "),
		GeneratedAt:   time.Now(),
	}

	if !report.Passed {
		e.logger.Printf("❌ Workstream %s failed review: %s", workstreamID, report.BlockedReason)
	}
	return report
}
