// Package configrules implements the CONFIG-### namespace: rules that see a
// shell-rc buffer through the configview.View projection rather than
// scanning the whole shellast.Program, since their scope is deliberately
// limited to top-level statements (aliases and PATH assignments inside an
// `if` are a different concern than the rc-file's steady-state shape).
package configrules

import (
	"fmt"
	"sort"

	"github.com/purish/purish/rules"
	"github.com/purish/purish/rules/quoting"
	"github.com/purish/purish/source"
)

// Register adds every CONFIG-### rule to reg.
func Register(reg *rules.Registry) {
	reg.MustRegister(pathDedupRule{})
	reg.MustRegister(quoteExpansionRule{})
	reg.MustRegister(aliasConsolidationRule{})
	reg.MustRegister(duplicateSourceRule{})
	reg.MustRegister(trailingContinuationWhitespaceRule{})
}

// lineSpan extends stmt (a statement span starting at its own line's first
// byte) to also cover its trailing newline, so a line-deletion autofix
// doesn't leave a blank line behind.
func lineSpan(src *source.Source, stmt source.Span) source.Span {
	end := stmt.End
	data := src.Bytes()
	if end < len(data) && data[end] == '\n' {
		end++
	}
	return source.NewSpan(stmt.Start, end)
}

// pathDedupRule is CONFIG-001.
type pathDedupRule struct{}

func (pathDedupRule) Metadata() rules.Metadata {
	return rules.Metadata{ID: "CONFIG-001", DefaultSeverity: rules.SeverityWarning, Category: rules.CategoryConfig, Autofix: rules.AutofixSafe}
}

func (pathDedupRule) Check(in rules.Input) []rules.Finding {
	if in.Config == nil || in.Source == nil {
		return nil
	}
	var findings []rules.Finding
	seen := make(map[string]bool)
	for _, pa := range in.Config.PathAssignments() {
		sig := pa.Signature()
		if seen[sig] {
			findings = append(findings, rules.Finding{
				RuleID:     "CONFIG-001",
				Severity:   rules.SeverityWarning,
				Category:   rules.CategoryConfig,
				Span:       pa.Span,
				Message:    fmt.Sprintf("%s re-assigns a PATH-shaped value identical to an earlier assignment", pa.Name),
				Suggestion: "remove this duplicate assignment; an earlier one already produces the same path",
				Fix:        &rules.Edit{Span: lineSpan(in.Source, pa.Span), Kind: rules.EditDelete, RuleID: "CONFIG-001"},
			})
			continue
		}
		seen[sig] = true
	}
	return findings
}

// quoteExpansionRule is CONFIG-002, a thin wrapper over the scan shared with
// SC2086 (package quoting).
type quoteExpansionRule struct{}

func (quoteExpansionRule) Metadata() rules.Metadata {
	return rules.Metadata{ID: "CONFIG-002", DefaultSeverity: rules.SeverityWarning, Category: rules.CategoryConfig, Autofix: rules.AutofixSafe}
}

func (quoteExpansionRule) Check(in rules.Input) []rules.Finding {
	if in.Shell == nil {
		return nil
	}
	return quoting.CheckExpansions(in.Shell, "CONFIG-002", rules.CategoryConfig, in.Options.QuotePositionalParams)
}

// aliasConsolidationRule is CONFIG-003.
type aliasConsolidationRule struct{}

func (aliasConsolidationRule) Metadata() rules.Metadata {
	return rules.Metadata{ID: "CONFIG-003", DefaultSeverity: rules.SeverityWarning, Category: rules.CategoryConfig, Autofix: rules.AutofixSafe}
}

func (aliasConsolidationRule) Check(in rules.Input) []rules.Finding {
	if in.Config == nil || in.Source == nil {
		return nil
	}
	var findings []rules.Finding
	groups := in.Config.DuplicateAliases()
	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		defs := groups[name]
		last := defs[len(defs)-1]
		for _, d := range defs[:len(defs)-1] {
			findings = append(findings, rules.Finding{
				RuleID:     "CONFIG-003",
				Severity:   rules.SeverityWarning,
				Category:   rules.CategoryConfig,
				Span:       d.Span,
				Message:    fmt.Sprintf("alias %s is redefined later at byte %d; this definition is shadowed", name, last.Span.Start),
				Suggestion: "delete this earlier definition and keep the last one",
				Fix:        &rules.Edit{Span: lineSpan(in.Source, d.Span), Kind: rules.EditDelete, RuleID: "CONFIG-003"},
			})
		}
	}
	return findings
}

// duplicateSourceRule is CONFIG-004.
type duplicateSourceRule struct{}

func (duplicateSourceRule) Metadata() rules.Metadata {
	return rules.Metadata{ID: "CONFIG-004", DefaultSeverity: rules.SeverityWarning, Category: rules.CategoryConfig, Autofix: rules.AutofixSafe}
}

func (duplicateSourceRule) Check(in rules.Input) []rules.Finding {
	if in.Config == nil || in.Source == nil {
		return nil
	}
	var findings []rules.Finding
	firstByPath := make(map[string]int) // literal path -> index into in.Config.Sources
	for i, s := range in.Config.Sources {
		if s.Literal == "" {
			continue // non-literal operand, can't safely compare for dedup
		}
		if firstIdx, seen := firstByPath[s.Literal]; seen {
			first := in.Config.Sources[firstIdx]
			findings = append(findings, rules.Finding{
				RuleID:     "CONFIG-004",
				Severity:   rules.SeverityWarning,
				Category:   rules.CategoryConfig,
				Span:       s.Span,
				Message:    fmt.Sprintf("%q is sourced again; already sourced at byte %d", s.Literal, first.Span.Start),
				Suggestion: "remove this duplicate source/. directive",
				Fix:        &rules.Edit{Span: lineSpan(in.Source, s.Span), Kind: rules.EditDelete, RuleID: "CONFIG-004"},
			})
			continue
		}
		firstByPath[s.Literal] = i
	}
	return findings
}

// trailingContinuationWhitespaceRule is CONFIG-007.
type trailingContinuationWhitespaceRule struct{}

func (trailingContinuationWhitespaceRule) Metadata() rules.Metadata {
	return rules.Metadata{ID: "CONFIG-007", DefaultSeverity: rules.SeverityWarning, Category: rules.CategoryConfig, Autofix: rules.AutofixSafe}
}

func (trailingContinuationWhitespaceRule) Check(in rules.Input) []rules.Finding {
	if in.Source == nil {
		return nil
	}
	var findings []rules.Finding
	data := in.Source.Bytes()
	lineStart := 0
	for i := 0; i <= len(data); i++ {
		if i != len(data) && data[i] != '\n' {
			continue
		}
		line := data[lineStart:i]
		trimmedEnd := len(line)
		for trimmedEnd > 0 && (line[trimmedEnd-1] == ' ' || line[trimmedEnd-1] == '\t') {
			trimmedEnd--
		}
		if trimmedEnd < len(line) && trimmedEnd > 0 && line[trimmedEnd-1] == '\\' {
			wsStart := lineStart + trimmedEnd
			wsEnd := lineStart + len(line)
			findings = append(findings, rules.Finding{
				RuleID:     "CONFIG-007",
				Severity:   rules.SeverityWarning,
				Category:   rules.CategoryConfig,
				Span:       source.NewSpan(lineStart+trimmedEnd-1, wsEnd),
				Message:    "trailing whitespace after a line-continuation backslash silently breaks the continuation",
				Suggestion: "remove the whitespace after the backslash",
				Fix:        &rules.Edit{Span: source.NewSpan(wsStart, wsEnd), Kind: rules.EditDelete, RuleID: "CONFIG-007"},
			})
		}
		lineStart = i + 1
	}
	return findings
}
