package autonomy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/firmos/backend/internal/core"
)

// routineContext is a baseline that satisfies AUTO_ROUTINE_TEMPLATED:
// internal, templated, low novelty, strong evidence.
func routineContext() ActionContext {
	return ActionContext{
		Jurisdiction:              core.JurisdictionRW,
		ServiceCategory:           core.ServiceAccounting,
		WorkflowType:              "monthly_reconciliation",
		NoveltyScore:              10,
		EvidenceCompletenessScore: 90,
		HasApprovedTemplate:       true,
	}
}

func TestRoutineTemplatedActionIsAuto(t *testing.T) {
	decision, err := NewEvaluator().Evaluate(routineContext())
	require.NoError(t, err)

	assert.Equal(t, TierAuto, decision.Tier)
	assert.False(t, decision.RequiresHuman)
	assert.Contains(t, decision.RulesApplied, "AUTO_ROUTINE_TEMPLATED")
}

func TestEscalationOutranksAuto(t *testing.T) {
	// Satisfies the AUTO rule AND an escalate guard; the escalate guard's
	// lower priority number must win.
	ctx := routineContext()
	ctx.ExternalImpact = true

	decision, err := NewEvaluator().Evaluate(ctx)
	require.NoError(t, err)

	assert.Equal(t, TierEscalate, decision.Tier)
	assert.True(t, decision.RequiresHuman)
	assert.Equal(t, "ESC_EXTERNAL_IMPACT", decision.RulesApplied[0])
}

func TestRulesAppliedListsAllMatches(t *testing.T) {
	ctx := routineContext()
	ctx.ExternalImpact = true
	ctx.DisputeOrRegulatorySignal = true

	decision, err := NewEvaluator().Evaluate(ctx)
	require.NoError(t, err)

	// Both escalate guards fire; the winner is first but the full match
	// list is preserved in priority order.
	assert.Equal(t, TierEscalate, decision.Tier)
	assert.Equal(t, "ESC_EXTERNAL_IMPACT", decision.RulesApplied[0])
	assert.Contains(t, decision.RulesApplied, "ESC_DISPUTE_SIGNAL")
}

func TestEscalateGuards(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*ActionContext)
		winner string
	}{
		{"dispute signal", func(c *ActionContext) { c.DisputeOrRegulatorySignal = true }, "ESC_DISPUTE_SIGNAL"},
		{"high novelty", func(c *ActionContext) { c.NoveltyScore = 71 }, "ESC_HIGH_NOVELTY"},
		{"first execution", func(c *ActionContext) { c.IsFirstTimeExecution = true }, "ESC_FIRST_EXECUTION"},
		{"thin evidence", func(c *ActionContext) { c.EvidenceCompletenessScore = 49 }, "ESC_THIN_EVIDENCE"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := routineContext()
			tc.mutate(&ctx)

			decision, err := NewEvaluator().Evaluate(ctx)
			require.NoError(t, err)
			assert.Equal(t, TierEscalate, decision.Tier)
			assert.Equal(t, tc.winner, decision.RulesApplied[0])
		})
	}
}

func TestModerateNoveltyWithTemplateIsAutoCheck(t *testing.T) {
	ctx := routineContext()
	ctx.NoveltyScore = 50

	decision, err := NewEvaluator().Evaluate(ctx)
	require.NoError(t, err)

	assert.Equal(t, TierAutoCheck, decision.Tier)
	assert.Equal(t, "CHECK_TEMPLATED_MODERATE_NOVELTY", decision.RulesApplied[0])
}

func TestInternalAdequateEvidenceWithoutTemplateIsAutoCheck(t *testing.T) {
	ctx := routineContext()
	ctx.HasApprovedTemplate = false
	ctx.NoveltyScore = 40
	ctx.EvidenceCompletenessScore = 60

	decision, err := NewEvaluator().Evaluate(ctx)
	require.NoError(t, err)

	assert.Equal(t, TierAutoCheck, decision.Tier)
	assert.Equal(t, "CHECK_INTERNAL_ADEQUATE_EVIDENCE", decision.RulesApplied[0])
}

func TestNoMatchDefaultsToEscalate(t *testing.T) {
	// Untemplated, boundary-novelty action no rule covers: novelty 60 is
	// too high for the internal auto-check rule, too low for the novelty
	// guard, and there is no template.
	ctx := ActionContext{
		Jurisdiction:              core.JurisdictionMT,
		ServiceCategory:           core.ServiceNotary,
		WorkflowType:              "deed_preparation",
		NoveltyScore:              60,
		EvidenceCompletenessScore: 80,
	}

	decision, err := NewEvaluator().Evaluate(ctx)
	require.NoError(t, err)

	assert.Equal(t, TierEscalate, decision.Tier)
	assert.True(t, decision.RequiresHuman)
	assert.Equal(t, "no matching policy rules", decision.Reasoning)
	assert.NotNil(t, decision.RulesApplied)
	assert.Empty(t, decision.RulesApplied)
}

func TestEvaluateRejectsMalformedContext(t *testing.T) {
	evaluator := NewEvaluator()

	cases := []struct {
		name   string
		mutate func(*ActionContext)
	}{
		{"unknown jurisdiction", func(c *ActionContext) { c.Jurisdiction = "FR" }},
		{"unknown service category", func(c *ActionContext) { c.ServiceCategory = "catering" }},
		{"novelty above range", func(c *ActionContext) { c.NoveltyScore = 101 }},
		{"novelty below range", func(c *ActionContext) { c.NoveltyScore = -1 }},
		{"evidence above range", func(c *ActionContext) { c.EvidenceCompletenessScore = 150 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := routineContext()
			tc.mutate(&ctx)

			_, err := evaluator.Evaluate(ctx)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidContext)
		})
	}
}

func TestEvaluateIsDeterministic(t *testing.T) {
	evaluator := NewEvaluator()
	ctx := routineContext()
	ctx.NoveltyScore = 45

	first, err := evaluator.Evaluate(ctx)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		again, err := evaluator.Evaluate(ctx)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}
