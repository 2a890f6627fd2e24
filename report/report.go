// Package report renders a rule run's findings in the two formats the core
// contract requires: a human one-line-per-finding format and a structured
// JSON document, plus the dispatcher's exit-code convention.
package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/purish/purish/rules"
	"github.com/purish/purish/source"
)

// JSONFinding is one finding's wire shape.
type JSONFinding struct {
	RuleID     string `json:"rule_id"`
	Severity   string `json:"severity"`
	Line       int    `json:"line"`
	Column     int    `json:"column"`
	Message    string `json:"message"`
	Suggestion string `json:"suggestion,omitempty"`
}

// JSONSummary is Summary's wire shape.
type JSONSummary struct {
	IssueCount      int `json:"issue_count"`
	ErrorCount      int `json:"error_count"`
	WarningCount    int `json:"warning_count"`
	InfoCount       int `json:"info_count"`
	LineCount       int `json:"line_count"`
	ComplexityScore int `json:"complexity_score"`
}

// Document is the full structured-JSON report.
type Document struct {
	Findings []JSONFinding `json:"findings"`
	Summary  JSONSummary   `json:"summary"`
}

// BuildDocument projects findings and summary into Document, resolving each
// finding's byte span to a 1-based (line, column) via src.
func BuildDocument(src *source.Source, findings []rules.Finding, summary rules.Summary) Document {
	doc := Document{
		Findings: make([]JSONFinding, len(findings)),
		Summary: JSONSummary{
			IssueCount:      summary.IssueCount,
			ErrorCount:      summary.ErrorCount,
			WarningCount:    summary.WarningCount,
			InfoCount:       summary.InfoCount,
			LineCount:       summary.LineCount,
			ComplexityScore: summary.ComplexityScore,
		},
	}
	for i, f := range findings {
		pos := src.OffsetToPosition(f.Span.Start)
		doc.Findings[i] = JSONFinding{
			RuleID:     f.RuleID,
			Severity:   f.Severity.String(),
			Line:       pos.Line,
			Column:     pos.Column,
			Message:    f.Message,
			Suggestion: f.Suggestion,
		}
	}
	return doc
}

// JSON marshals findings and summary as indented JSON, per the core's
// structured-JSON report contract.
func JSON(src *source.Source, findings []rules.Finding, summary rules.Summary) ([]byte, error) {
	return json.MarshalIndent(BuildDocument(src, findings, summary), "", "  ")
}

// Human writes one line per finding to w: "[<rule_id>] <severity>: <message>
// (<filename>:<line>:<column>)".
func Human(w io.Writer, src *source.Source, findings []rules.Finding) error {
	for _, f := range findings {
		pos := src.OffsetToPosition(f.Span.Start)
		_, err := fmt.Fprintf(w, "[%s] %s: %s (%s:%d:%d)\n",
			f.RuleID, f.Severity, f.Message, src.Filename(), pos.Line, pos.Column)
		if err != nil {
			return err
		}
	}
	return nil
}

// ExitCode computes the dispatcher's exit code: 0 clean, 1 warnings/info
// only, 2 at least one Error, and (purify commands only) 3 when a
// composition conflict occurred and strict is set — checked ahead of the
// finding-severity codes since --strict treats any conflict as fatal.
func ExitCode(findings []rules.Finding, hadConflict bool, strict bool) int {
	if hadConflict && strict {
		return 3
	}
	for _, f := range findings {
		if f.Severity == rules.SeverityError {
			return 2
		}
	}
	if len(findings) > 0 {
		return 1
	}
	return 0
}
