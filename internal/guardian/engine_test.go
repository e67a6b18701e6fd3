package guardian

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/firmos/backend/internal/core"
)

func testPacks() map[string]core.Jurisdiction {
	return map[string]core.Jurisdiction{
		"rw_tax":        core.JurisdictionRW,
		"rw_accounting": core.JurisdictionRW,
		"mt_tax":        core.JurisdictionMT,
	}
}

func testEvidenceMins() map[string][]string {
	return map[string][]string{
		"rw_tax_engine": {"ebm_invoice_pdf", "vat_return"},
	}
}

func newTestEngine() *Engine {
	return NewEngine(testPacks(), testEvidenceMins())
}

// cleanWorkstream is a snapshot that passes the full battery.
func cleanWorkstream() WorkstreamContext {
	return WorkstreamContext{
		WorkstreamID: "ws-001",
		PackID:       "rw_tax",
		Jurisdiction: core.JurisdictionRW,
		Tasks: []Task{
			{
				ID:               "t1",
				Name:             "Prepare VAT return",
				Status:           TaskStatusCompleted,
				RequiredOutputs:  []string{"vat_return"},
				OutputsPresent:   []string{"vat_return"},
				RequiredEvidence: []string{"ebm_invoice_pdf"},
				EvidenceLinked:   []string{"ebm_invoice_pdf"},
			},
		},
		Documents: []Document{
			{ID: "d1", Name: "VAT Return Q3", Status: DocStatusApproved, Hash: "abc123", StoredHash: "abc123"},
		},
	}
}

func findCheck(t *testing.T, report *Report, id string) CheckResult {
	t.Helper()
	for _, c := range report.Checks {
		if c.CheckID == id {
			return c
		}
	}
	t.Fatalf("check %s not in report", id)
	return CheckResult{}
}

func TestCleanWorkstreamPasses(t *testing.T) {
	report, err := newTestEngine().Run(cleanWorkstream())
	require.NoError(t, err)

	assert.True(t, report.Passed)
	assert.True(t, report.CanRelease())
	assert.Empty(t, report.BlockedReason)
	assert.Len(t, report.Checks, 6)
	for _, check := range report.Checks {
		assert.True(t, check.Passed, "check %s failed: %s", check.CheckID, check.Message)
	}
}

func TestMissingOutputsBlocksRelease(t *testing.T) {
	ctx := cleanWorkstream()
	ctx.Tasks[0].OutputsPresent = nil

	report, err := newTestEngine().Run(ctx)
	require.NoError(t, err)

	assert.False(t, report.Passed)
	check := findCheck(t, report, CheckRequiredOutputs)
	assert.False(t, check.Passed)
	assert.Equal(t, "Missing required outputs: Prepare VAT return: vat_return", check.Message)
	assert.Contains(t, report.BlockedReason, "Missing required outputs")
}

func TestMissingEvidenceBlocksRelease(t *testing.T) {
	ctx := cleanWorkstream()
	ctx.Tasks[0].EvidenceLinked = []string{}

	report, err := newTestEngine().Run(ctx)
	require.NoError(t, err)

	assert.False(t, report.Passed)
	check := findCheck(t, report, CheckRequiredEvidence)
	assert.False(t, check.Passed)
	assert.Contains(t, check.Message, "Prepare VAT return: ebm_invoice_pdf")
}

func TestHashMismatchBlocksRelease(t *testing.T) {
	ctx := cleanWorkstream()
	ctx.Documents[0].Hash = "tampered"

	report, err := newTestEngine().Run(ctx)
	require.NoError(t, err)

	assert.False(t, report.Passed)
	check := findCheck(t, report, CheckHashIntegrity)
	assert.False(t, check.Passed)
	assert.Equal(t, "Hash mismatch: VAT Return Q3", check.Message)
}

func TestCrossJurisdictionPackIsFatal(t *testing.T) {
	// RW workstream referencing a Malta pack: the pack-leakage guard.
	ctx := cleanWorkstream()
	ctx.PackID = "mt_tax"

	report, err := newTestEngine().Run(ctx)
	require.NoError(t, err)

	assert.False(t, report.Passed)
	check := findCheck(t, report, CheckCountryPackMismatch)
	assert.False(t, check.Passed)
	assert.True(t, strings.HasPrefix(check.Message, "FATAL:"))
	assert.Contains(t, check.Message, "mt_tax")
	assert.Contains(t, report.BlockedReason, "FATAL")
}

func TestUnknownPackIsFatal(t *testing.T) {
	ctx := cleanWorkstream()
	ctx.PackID = "rw_audit"
	// rw_audit is not in this engine's pack table

	report, err := newTestEngine().Run(ctx)
	require.NoError(t, err)

	check := findCheck(t, report, CheckCountryPackMismatch)
	assert.False(t, check.Passed)
	assert.Equal(t, "FATAL: pack rw_audit is not in the pack catalog", check.Message)
}

func TestIncompleteTasksFailWithoutBlocking(t *testing.T) {
	ctx := cleanWorkstream()
	ctx.Tasks[0].Status = "in_progress"

	report, err := newTestEngine().Run(ctx)
	require.NoError(t, err)

	// Soft error: the aggregate fails but no hard-fail reason is recorded.
	assert.False(t, report.Passed)
	assert.Empty(t, report.BlockedReason)
	check := findCheck(t, report, CheckTasksComplete)
	assert.False(t, check.Passed)
	assert.Equal(t, core.SeverityError, check.Severity)
}

func TestUnapprovedDocumentsOnlyWarn(t *testing.T) {
	ctx := cleanWorkstream()
	ctx.Documents[0].Status = "draft"

	report, err := newTestEngine().Run(ctx)
	require.NoError(t, err)

	// Warning severity: the aggregate still passes.
	assert.True(t, report.Passed)
	check := findCheck(t, report, CheckDocumentsApproved)
	assert.False(t, check.Passed)
	assert.Equal(t, core.SeverityWarning, check.Severity)
	assert.Equal(t, "Documents not approved: VAT Return Q3", check.Message)
}

func TestReleasedDocumentsSatisfyApproval(t *testing.T) {
	ctx := cleanWorkstream()
	ctx.Documents[0].Status = DocStatusReleased

	report, err := newTestEngine().Run(ctx)
	require.NoError(t, err)
	assert.True(t, findCheck(t, report, CheckDocumentsApproved).Passed)
}

func TestAgentEvidenceMinimum(t *testing.T) {
	engine := newTestEngine()

	report, err := engine.RunWithAgentEvidence(cleanWorkstream(), "rw_tax_engine", []string{"ebm_invoice_pdf"})
	require.NoError(t, err)

	assert.Len(t, report.Checks, 7)
	check := findCheck(t, report, CheckAgentEvidenceMinimum)
	assert.False(t, check.Passed)
	assert.Equal(t, core.SeverityError, check.Severity)
	assert.Equal(t, "Agent rw_tax_engine is missing minimum evidence: vat_return", check.Message)

	// Soft error: fails the aggregate without a blocked reason.
	assert.False(t, report.Passed)
	assert.Empty(t, report.BlockedReason)
}

func TestAgentWithoutMinimumAlwaysSatisfies(t *testing.T) {
	report, err := newTestEngine().RunWithAgentEvidence(cleanWorkstream(), "mt_notary_engine", nil)
	require.NoError(t, err)
	assert.True(t, findCheck(t, report, CheckAgentEvidenceMinimum).Passed)
	assert.True(t, report.Passed)
}

func TestBlockedReasonJoinsHardFailures(t *testing.T) {
	ctx := cleanWorkstream()
	ctx.Tasks[0].OutputsPresent = nil
	ctx.Documents[0].Hash = "tampered"

	report, err := newTestEngine().Run(ctx)
	require.NoError(t, err)

	assert.False(t, report.Passed)
	parts := strings.Split(report.BlockedReason, "; ")
	assert.Len(t, parts, 2)
	assert.Contains(t, parts[0], "Missing required outputs")
	assert.Contains(t, parts[1], "Hash mismatch")
}

func TestRunRejectsMalformedContext(t *testing.T) {
	engine := newTestEngine()

	cases := []struct {
		name   string
		mutate func(*WorkstreamContext)
	}{
		{"missing workstream id", func(c *WorkstreamContext) { c.WorkstreamID = "" }},
		{"missing pack id", func(c *WorkstreamContext) { c.PackID = "" }},
		{"bad jurisdiction", func(c *WorkstreamContext) { c.Jurisdiction = "XX" }},
		{"task without id", func(c *WorkstreamContext) { c.Tasks[0].ID = "" }},
		{"document without id", func(c *WorkstreamContext) { c.Documents[0].ID = "" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := cleanWorkstream()
			tc.mutate(&ctx)

			_, err := engine.Run(ctx)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidWorkstream)
		})
	}
}

func TestRepeatedRunsYieldIdenticalChecks(t *testing.T) {
	engine := newTestEngine()
	ctx := cleanWorkstream()
	ctx.Documents[0].StoredHash = "tampered"

	first, err := engine.Run(ctx)
	require.NoError(t, err)
	second, err := engine.Run(ctx)
	require.NoError(t, err)

	// Re-evaluating an unchanged snapshot reproduces the verdict exactly;
	// only the report timestamp moves.
	assert.Equal(t, first.Checks, second.Checks)
	assert.Equal(t, first.Passed, second.Passed)
	assert.Equal(t, first.BlockedReason, second.BlockedReason)
}

func TestHashContentRoundTrip(t *testing.T) {
	content := []byte("engagement letter v2")
	first := HashContent(content)
	assert.Equal(t, first, HashContent(content))
	assert.NotEqual(t, first, HashContent([]byte("engagement letter v3")))
	assert.Len(t, first, 64)
}
