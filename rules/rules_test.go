package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/purish/purish/source"
)

type stubRule struct {
	meta     Metadata
	findings []Finding
}

func (s stubRule) Metadata() Metadata      { return s.meta }
func (s stubRule) Check(Input) []Finding { return s.findings }

func TestRegisterRejectsDuplicateID(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(stubRule{meta: Metadata{ID: "SC1000"}}))
	err := reg.Register(stubRule{meta: Metadata{ID: "SC1000"}})
	assert.Error(t, err)
}

func TestRunSortsFindingsByStartThenRuleID(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(stubRule{
		meta: Metadata{ID: "ZZZ1"},
		findings: []Finding{
			{RuleID: "ZZZ1", Span: source.NewSpan(10, 11)},
			{RuleID: "ZZZ1", Span: source.NewSpan(0, 1)},
		},
	}))
	require.NoError(t, reg.Register(stubRule{
		meta: Metadata{ID: "AAA1"},
		findings: []Finding{
			{RuleID: "AAA1", Span: source.NewSpan(0, 1)},
		},
	}))
	engine := NewEngine(reg)
	result := engine.Run(Input{}, Options{})
	require.Len(t, result.Findings, 3)
	assert.Equal(t, "AAA1", result.Findings[0].RuleID)
	assert.Equal(t, "ZZZ1", result.Findings[1].RuleID)
	assert.Equal(t, 10, result.Findings[2].Span.Start)
}

func TestSeverityThresholdFilter(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(stubRule{
		meta: Metadata{ID: "R1"},
		findings: []Finding{
			{RuleID: "R1", Severity: SeverityInfo, Span: source.NewSpan(0, 1)},
			{RuleID: "R1", Severity: SeverityError, Span: source.NewSpan(1, 2)},
		},
	}))
	engine := NewEngine(reg)
	result := engine.Run(Input{}, Options{SeverityThreshold: SeverityWarning})
	require.Len(t, result.Findings, 1)
	assert.Equal(t, SeverityError, result.Findings[0].Severity)
}

func TestDisabledByDefaultRuleExcludedUnlessEnabled(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(stubRule{
		meta:     Metadata{ID: "FLAKY1", Disabled: true},
		findings: []Finding{{RuleID: "FLAKY1", Span: source.NewSpan(0, 1)}},
	}))
	engine := NewEngine(reg)

	result := engine.Run(Input{}, Options{})
	assert.Empty(t, result.Findings)

	result = engine.Run(Input{}, Options{EnabledRuleIDs: []string{"FLAKY1"}})
	require.Len(t, result.Findings, 1)
}

func TestDisabledRuleIDsOverridesEnabled(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(stubRule{
		meta:     Metadata{ID: "R1"},
		findings: []Finding{{RuleID: "R1", Span: source.NewSpan(0, 1)}},
	}))
	engine := NewEngine(reg)
	result := engine.Run(Input{}, Options{DisabledRuleIDs: []string{"R1"}})
	assert.Empty(t, result.Findings)
}

type alwaysCancelled struct{}

func (alwaysCancelled) Cancelled() bool { return true }

func TestCancellationStopsRunEarly(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(stubRule{
		meta:     Metadata{ID: "R1"},
		findings: []Finding{{RuleID: "R1", Span: source.NewSpan(0, 1)}},
	}))
	engine := NewEngine(reg)
	result := engine.Run(Input{}, Options{Cancellation: alwaysCancelled{}})
	assert.True(t, result.Cancelled)
	assert.Empty(t, result.Findings)
}

func TestBuildSummaryComplexityScore(t *testing.T) {
	findings := []Finding{
		{Severity: SeverityError}, {Severity: SeverityError},
		{Severity: SeverityWarning},
		{Severity: SeverityInfo}, {Severity: SeverityInfo},
	}
	s := BuildSummary(findings, 42)
	assert.Equal(t, 5, s.IssueCount)
	assert.Equal(t, 2, s.ErrorCount)
	assert.Equal(t, 1, s.WarningCount)
	assert.Equal(t, 2, s.InfoCount)
	// errors*3 + warnings*1 + infos*0.25 = 6 + 1 + 0.5 = 7.5 -> round -> 8
	assert.Equal(t, 8, s.ComplexityScore)
	assert.Equal(t, 42, s.LineCount)
}

func TestBuildSummaryComplexityScoreClampedToTen(t *testing.T) {
	findings := make([]Finding, 10)
	for i := range findings {
		findings[i] = Finding{Severity: SeverityError}
	}
	s := BuildSummary(findings, 1)
	assert.Equal(t, 10, s.ComplexityScore)
}

func TestInternalErrorUnwrap(t *testing.T) {
	cause := assertErr{}
	err := &InternalError{Span: source.NewSpan(3, 5), Cause: cause}
	assert.Contains(t, err.Error(), "3-5")
	assert.Equal(t, cause, errorsUnwrap(err))
}

type assertErr struct{}

func (assertErr) Error() string { return "boom" }

func errorsUnwrap(e interface{ Unwrap() error }) error { return e.Unwrap() }
