// Package incidents is the append-only record of policy violations and
// the system-wide release circuit breaker: any unresolved CRITICAL
// incident blocks all further release execution.
package incidents

import (
	"errors"
	"fmt"
	"time"

	"github.com/firmos/backend/internal/core"
)

// Type classifies an incident.
type Type string

const (
	PackLeakage            Type = "PACK_LEAKAGE"
	GateBypassAttempt      Type = "GATE_BYPASS_ATTEMPT"
	ReleaseBypassAttempt   Type = "RELEASE_BYPASS_ATTEMPT"
	EvidenceMissingPattern Type = "EVIDENCE_MISSING_PATTERN"
	RepeatedContradiction  Type = "REPEATED_CONTRADICTION"
	UnauthorizedToolAccess Type = "UNAUTHORIZED_TOOL_ACCESS"
	PolicyViolation        Type = "POLICY_VIOLATION"
)

// severityByType is the static default severity per incident type.
// Callers may override per incident but not change the table.
var severityByType = map[Type]core.Severity{
	PackLeakage:            core.SeverityCritical,
	GateBypassAttempt:      core.SeverityHigh,
	ReleaseBypassAttempt:   core.SeverityHigh,
	UnauthorizedToolAccess: core.SeverityHigh,
	EvidenceMissingPattern: core.SeverityMedium,
	RepeatedContradiction:  core.SeverityMedium,
	PolicyViolation:        core.SeverityMedium,
}

// incidentSeverities is the closed set accepted for overrides.
var incidentSeverities = map[core.Severity]struct{}{
	core.SeverityMedium:   {},
	core.SeverityHigh:     {},
	core.SeverityCritical: {},
}

// ErrInvalidIncident marks an incident that failed structural validation.
// Malformed incidents are rejected, never silently stored.
var ErrInvalidIncident = errors.New("invalid incident")

// Incident is one recorded violation. Append-only: resolution annotates
// the record, nothing is ever deleted.
type Incident struct {
	ID           string                 `json:"id"`
	Type         Type                   `json:"type"`
	Severity     core.Severity          `json:"severity"`
	Description  string                 `json:"description"`
	WorkstreamID string                 `json:"workstream_id,omitempty"`
	AgentID      string                 `json:"agent_id"`
	PackID       string                 `json:"pack_id,omitempty"`
	Details      map[string]interface{} `json:"details,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
	ResolvedAt   *time.Time             `json:"resolved_at,omitempty"`
	Resolution   string                 `json:"resolution,omitempty"`
}

// Resolved reports whether the incident has been closed out.
func (i *Incident) Resolved() bool {
	return i.ResolvedAt != nil
}

// LogInput is the caller-supplied shape for a new incident. WorkstreamID,
// PackID, and SeverityOverride are optional.
type LogInput struct {
	Type             Type
	Description      string
	AgentID          string
	Details          map[string]interface{}
	WorkstreamID     string
	PackID           string
	SeverityOverride core.Severity
}

// validate enforces the structural schema before storage.
func (in LogInput) validate() error {
	if _, ok := severityByType[in.Type]; !ok {
		return fmt.Errorf("%w: unknown incident type %q", ErrInvalidIncident, in.Type)
	}
	if in.Description == "" {
		return fmt.Errorf("%w: description is required", ErrInvalidIncident)
	}
	if in.AgentID == "" {
		return fmt.Errorf("%w: agent id is required", ErrInvalidIncident)
	}
	if in.SeverityOverride != "" {
		if _, ok := incidentSeverities[in.SeverityOverride]; !ok {
			return fmt.Errorf("%w: severity %q is not a valid incident severity",
				ErrInvalidIncident, in.SeverityOverride)
		}
	}
	return nil
}
