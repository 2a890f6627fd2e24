package report

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/purish/purish/rules"
	"github.com/purish/purish/source"
)

func sampleFindings() []rules.Finding {
	return []rules.Finding{
		{RuleID: "IDEM001", Severity: rules.SeverityWarning, Category: rules.CategoryIdempotency,
			Span: source.NewSpan(0, 5), Message: "mkdir without -p fails if the directory already exists",
			Suggestion: "add -p"},
		{RuleID: "SEC001", Severity: rules.SeverityError, Category: rules.CategorySecurity,
			Span: source.NewSpan(12, 14), Message: "unquoted interpolation reaches an injection sink"},
	}
}

func TestHumanFormatsOneLinePerFinding(t *testing.T) {
	text := "mkdir $DIR\nrm $TARGET\n"
	src := source.New("script.sh", []byte(text))
	var buf bytes.Buffer
	require.NoError(t, Human(&buf, src, sampleFindings()))
	lines := buf.String()
	assert.Contains(t, lines, "[IDEM001] Warning: mkdir without -p fails if the directory already exists (script.sh:1:1)")
	assert.Contains(t, lines, "[SEC001] Error: unquoted interpolation reaches an injection sink (script.sh:2:2)")
}

func TestJSONRoundTripsFindingsAndSummary(t *testing.T) {
	text := "mkdir $DIR\nrm $TARGET\n"
	src := source.New("script.sh", []byte(text))
	findings := sampleFindings()
	summary := rules.BuildSummary(findings, src.LineCount())

	data, err := JSON(src, findings, summary)
	require.NoError(t, err)

	var doc Document
	require.NoError(t, json.Unmarshal(data, &doc))
	require.Len(t, doc.Findings, 2)
	assert.Equal(t, "IDEM001", doc.Findings[0].RuleID)
	assert.Equal(t, "Warning", doc.Findings[0].Severity)
	assert.Equal(t, 1, doc.Findings[0].Line)
	assert.Equal(t, 1, doc.Findings[0].Column)
	assert.Equal(t, "add -p", doc.Findings[0].Suggestion)
	assert.Equal(t, "SEC001", doc.Findings[1].RuleID)
	assert.Equal(t, "Error", doc.Findings[1].Severity)
	assert.Empty(t, doc.Findings[1].Suggestion)
	assert.Equal(t, 1, doc.Summary.ErrorCount)
	assert.Equal(t, 1, doc.Summary.WarningCount)
	assert.Equal(t, 2, doc.Summary.IssueCount)
}

func TestExitCodeSeverityPrecedence(t *testing.T) {
	assert.Equal(t, 0, ExitCode(nil, false, false))
	assert.Equal(t, 1, ExitCode([]rules.Finding{{Severity: rules.SeverityWarning}}, false, false))
	assert.Equal(t, 2, ExitCode([]rules.Finding{{Severity: rules.SeverityError}}, false, false))
}

func TestExitCodeStrictConflictTakesPrecedence(t *testing.T) {
	assert.Equal(t, 3, ExitCode([]rules.Finding{{Severity: rules.SeverityError}}, true, true))
	assert.Equal(t, 2, ExitCode([]rules.Finding{{Severity: rules.SeverityError}}, true, false))
}
