// Package autonomy implements the autonomy policy evaluator: a pure,
// ordered-rule mapping from a proposed action's context to an autonomy
// tier (AUTO, AUTO_CHECK, ESCALATE).
//
// Escalation rules carry lower priority numbers than auto rules, so a
// context that satisfies both always resolves to ESCALATE. That overlap
// is deliberate defense-in-depth; do not collapse the rule list into a
// first-match if/else chain.
package autonomy

import (
	"errors"
	"fmt"
	"sort"

	"github.com/firmos/backend/internal/core"
)

// Tier is the autonomy level assigned to an action.
type Tier string

const (
	TierAuto      Tier = "AUTO"       // execute without review
	TierAutoCheck Tier = "AUTO_CHECK" // execute, then Guardian review
	TierEscalate  Tier = "ESCALATE"   // human decision required
)

// ErrInvalidContext marks a malformed ActionContext. This is a caller
// contract violation, distinct from an ESCALATE outcome.
var ErrInvalidContext = errors.New("invalid action context")

// ActionContext is the immutable input to a single tier decision.
type ActionContext struct {
	Jurisdiction              core.Jurisdiction    `json:"jurisdiction"`
	ServiceCategory           core.ServiceCategory `json:"service_category"`
	WorkflowType              string               `json:"workflow_type"`
	ExternalImpact            bool                 `json:"external_impact"`
	NoveltyScore              int                  `json:"novelty_score"`              // 0-100, distance from known patterns
	DisputeOrRegulatorySignal bool                 `json:"dispute_or_regulatory_signal"`
	EvidenceCompletenessScore int                  `json:"evidence_completeness_score"` // 0-100
	IsFirstTimeExecution      bool                 `json:"is_first_time_execution"`
	HasApprovedTemplate       bool                 `json:"has_approved_template"`
}

// Decision is the evaluator output. RulesApplied lists every matching
// rule in priority order, not just the winner, so reviewers can see the
// full picture of why a tier was assigned.
type Decision struct {
	Tier          Tier     `json:"tier"`
	Reasoning     string   `json:"reasoning"`
	RulesApplied  []string `json:"rules_applied"`
	RequiresHuman bool     `json:"requires_human"`
}

// Rule is one policy rule: a predicate over the action context, the tier
// it votes for, and its priority (lower number = higher precedence).
type Rule struct {
	ID        string
	Priority  int
	Tier      Tier
	Reason    string
	Condition func(ActionContext) bool
}

// Evaluator holds the ordered policy rule list.
type Evaluator struct {
	rules []Rule
}

// NewEvaluator creates an evaluator with the standard FirmOS rule set.
func NewEvaluator() *Evaluator {
	return &Evaluator{rules: standardRules()}
}

// standardRules is the production policy. Priorities 1-5 are the escalate
// guards; 9-11 are the auto tiers. Rule order in this slice is not load
// bearing — evaluation sorts by priority.
func standardRules() []Rule {
	return []Rule{
		{
			ID:       "ESC_EXTERNAL_IMPACT",
			Priority: 1,
			Tier:     TierEscalate,
			Reason:   "action has external impact",
			Condition: func(ctx ActionContext) bool {
				return ctx.ExternalImpact
			},
		},
		{
			ID:       "ESC_DISPUTE_SIGNAL",
			Priority: 2,
			Tier:     TierEscalate,
			Reason:   "dispute or regulatory signal present",
			Condition: func(ctx ActionContext) bool {
				return ctx.DisputeOrRegulatorySignal
			},
		},
		{
			ID:       "ESC_HIGH_NOVELTY",
			Priority: 3,
			Tier:     TierEscalate,
			Reason:   "novelty score above 70",
			Condition: func(ctx ActionContext) bool {
				return ctx.NoveltyScore > 70
			},
		},
		{
			ID:       "ESC_FIRST_EXECUTION",
			Priority: 4,
			Tier:     TierEscalate,
			Reason:   "first-time execution of this workflow",
			Condition: func(ctx ActionContext) bool {
				return ctx.IsFirstTimeExecution
			},
		},
		{
			ID:       "ESC_THIN_EVIDENCE",
			Priority: 5,
			Tier:     TierEscalate,
			Reason:   "evidence completeness below 50",
			Condition: func(ctx ActionContext) bool {
				return ctx.EvidenceCompletenessScore < 50
			},
		},
		{
			ID:       "AUTO_ROUTINE_TEMPLATED",
			Priority: 9,
			Tier:     TierAuto,
			Reason:   "routine internal action with approved template and strong evidence",
			Condition: func(ctx ActionContext) bool {
				return !ctx.ExternalImpact &&
					!ctx.DisputeOrRegulatorySignal &&
					ctx.NoveltyScore <= 30 &&
					ctx.EvidenceCompletenessScore >= 70 &&
					ctx.HasApprovedTemplate
			},
		},
		{
			ID:       "CHECK_TEMPLATED_MODERATE_NOVELTY",
			Priority: 10,
			Tier:     TierAutoCheck,
			Reason:   "approved template with moderate novelty",
			Condition: func(ctx ActionContext) bool {
				return ctx.HasApprovedTemplate &&
					ctx.NoveltyScore > 30 &&
					ctx.NoveltyScore <= 70
			},
		},
		{
			ID:       "CHECK_INTERNAL_ADEQUATE_EVIDENCE",
			Priority: 11,
			Tier:     TierAutoCheck,
			Reason:   "internal action with adequate evidence and low novelty",
			Condition: func(ctx ActionContext) bool {
				return !ctx.ExternalImpact &&
					!ctx.DisputeOrRegulatorySignal &&
					ctx.EvidenceCompletenessScore >= 50 &&
					ctx.NoveltyScore <= 50
			},
		},
	}
}

// validate checks field ranges and enum membership before any rule logic.
func validate(ctx ActionContext) error {
	if !ctx.Jurisdiction.Valid() {
		return fmt.Errorf("%w: unknown jurisdiction %q", ErrInvalidContext, ctx.Jurisdiction)
	}
	if !ctx.ServiceCategory.Valid() {
		return fmt.Errorf("%w: unknown service category %q", ErrInvalidContext, ctx.ServiceCategory)
	}
	if ctx.NoveltyScore < 0 || ctx.NoveltyScore > 100 {
		return fmt.Errorf("%w: novelty score %d out of range [0,100]", ErrInvalidContext, ctx.NoveltyScore)
	}
	if ctx.EvidenceCompletenessScore < 0 || ctx.EvidenceCompletenessScore > 100 {
		return fmt.Errorf("%w: evidence completeness score %d out of range [0,100]",
			ErrInvalidContext, ctx.EvidenceCompletenessScore)
	}
	return nil
}

// Evaluate assigns an autonomy tier to the action. All matching rules are
// collected, sorted by priority ascending, and the lowest-priority-number
// rule wins. No match defaults to ESCALATE — the fail-safe posture.
//
// Evaluate has no side effects and is deterministic for identical input.
func (e *Evaluator) Evaluate(ctx ActionContext) (Decision, error) {
	if err := validate(ctx); err != nil {
		return Decision{}, err
	}

	var matched []Rule
	for _, r := range e.rules {
		if r.Condition(ctx) {
			matched = append(matched, r)
		}
	}

	if len(matched) == 0 {
		return Decision{
			Tier:          TierEscalate,
			Reasoning:     "no matching policy rules",
			RulesApplied:  []string{},
			RequiresHuman: true,
		}, nil
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Priority < matched[j].Priority
	})

	winner := matched[0]
	applied := make([]string, len(matched))
	for i, r := range matched {
		applied[i] = r.ID
	}

	return Decision{
		Tier:          winner.Tier,
		Reasoning:     winner.Reason,
		RulesApplied:  applied,
		RequiresHuman: winner.Tier == TierEscalate,
	}, nil
}

// Rules returns a copy of the rule list for introspection endpoints.
func (e *Evaluator) Rules() []Rule {
	out := make([]Rule, len(e.rules))
	copy(out, e.rules)
	return out
}
