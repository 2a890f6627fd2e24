// Package makerules implements the MAKE### namespace: rules that see a
// parsed makeast.Makefile, scanning recipe lines (re-parsed as shell text,
// the same trick dockerfile uses for RUN bodies) and variable/target shape.
package makerules

import (
	"strings"

	"github.com/purish/purish/makeast"
	"github.com/purish/purish/rules"
	"github.com/purish/purish/rules/quoting"
	"github.com/purish/purish/shellast"
	"github.com/purish/purish/source"
)

// Register adds every MAKE### rule to reg.
func Register(reg *rules.Registry) {
	reg.MustRegister(shellFunctionNonDeterminismRule{})
	reg.MustRegister(undeclaredPhonyRule{})
	reg.MustRegister(unquotedRecipeVariableRule{})
}

func recipeLines(m *makeast.Makefile) []makeast.RecipeLine {
	var out []makeast.RecipeLine
	for _, it := range m.Items {
		switch v := it.(type) {
		case makeast.Target:
			out = append(out, v.Recipe...)
		case makeast.PatternRule:
			out = append(out, v.Recipe...)
		}
	}
	return out
}

// nonDeterministicKeywords are the substrings inside a $(shell ...) call
// body that make its result vary run-to-run — the same constructs DET001-3
// flag in plain shell text.
var nonDeterministicKeywords = []string{"date", "RANDOM", "$$"}

// ---- MAKE001 ----

type shellFunctionNonDeterminismRule struct{}

func (shellFunctionNonDeterminismRule) Metadata() rules.Metadata {
	return rules.Metadata{ID: "MAKE001", DefaultSeverity: rules.SeverityWarning, Category: rules.CategoryMakefile, Autofix: rules.AutofixNone}
}

func (shellFunctionNonDeterminismRule) Check(in rules.Input) []rules.Finding {
	if in.Make == nil {
		return nil
	}
	var findings []rules.Finding
	for _, line := range recipeLines(in.Make) {
		for _, call := range findShellCalls(line.Logical) {
			if !containsAny(call.body, nonDeterministicKeywords) {
				continue
			}
			findings = append(findings, rules.Finding{
				RuleID:     "MAKE001",
				Severity:   rules.SeverityWarning,
				Category:   rules.CategoryMakefile,
				Span:       line.Span,
				Message:    "$(shell " + call.body + ") makes this recipe's output non-reproducible across runs",
				Suggestion: "accept the varying value as an explicit argument or environment variable instead of calling $(shell " + call.body + ") inline",
			})
		}
	}
	return findings
}

type shellCall struct {
	body string
}

// findShellCalls scans text for every `$(shell ...)` call, matching nested
// parentheses inside the call body so a call like `$(shell echo $(FOO))`
// extracts the whole inner body rather than stopping at the first `)`.
func findShellCalls(text string) []shellCall {
	var calls []shellCall
	const marker = "$(shell"
	i := 0
	for {
		idx := strings.Index(text[i:], marker)
		if idx < 0 {
			break
		}
		start := i + idx
		bodyStart := start + len(marker)
		depth := 1
		j := bodyStart
		for j < len(text) && depth > 0 {
			switch text[j] {
			case '(':
				depth++
			case ')':
				depth--
			}
			if depth == 0 {
				break
			}
			j++
		}
		if depth != 0 {
			break // unbalanced; stop scanning rather than misreport
		}
		calls = append(calls, shellCall{body: strings.TrimSpace(text[bodyStart:j])})
		i = j + 1
		if i >= len(text) {
			break
		}
	}
	return calls
}

func containsAny(s string, substrs []string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// ---- MAKE002 ----

type undeclaredPhonyRule struct{}

func (undeclaredPhonyRule) Metadata() rules.Metadata {
	return rules.Metadata{ID: "MAKE002", DefaultSeverity: rules.SeverityInfo, Category: rules.CategoryMakefile, Autofix: rules.AutofixNone}
}

func (undeclaredPhonyRule) Check(in rules.Input) []rules.Finding {
	if in.Make == nil {
		return nil
	}
	phony := make(map[string]bool)
	var targets []makeast.Target
	for _, it := range in.Make.Items {
		t, ok := it.(makeast.Target)
		if !ok {
			continue
		}
		if t.IsPhony {
			for _, p := range t.Prereqs {
				phony[p] = true
			}
			continue
		}
		targets = append(targets, t)
	}

	var findings []rules.Finding
	for _, t := range targets {
		if len(t.Recipe) == 0 {
			continue
		}
		for _, name := range t.Names {
			if phony[name] || looksLikeFileTarget(name) {
				continue
			}
			findings = append(findings, rules.Finding{
				RuleID:     "MAKE002",
				Severity:   rules.SeverityInfo,
				Category:   rules.CategoryMakefile,
				Span:       t.Span(),
				Message:    name + " has a recipe but produces no file matching its own name and isn't declared .PHONY",
				Suggestion: "add " + name + " to a .PHONY: declaration if it never produces a file of that name",
			})
			break // one finding per target is enough
		}
	}
	return findings
}

// looksLikeFileTarget is a conservative heuristic: a name containing a path
// separator or a dot extension is presumed to name a real build artifact,
// not a phony convenience target like "all"/"clean"/"test".
func looksLikeFileTarget(name string) bool {
	return strings.ContainsAny(name, "./")
}

// ---- MAKE003 ----

type unquotedRecipeVariableRule struct{}

func (unquotedRecipeVariableRule) Metadata() rules.Metadata {
	return rules.Metadata{ID: "MAKE003", DefaultSeverity: rules.SeverityWarning, Category: rules.CategoryMakefile, Autofix: rules.AutofixSafe}
}

func (unquotedRecipeVariableRule) Check(in rules.Input) []rules.Finding {
	if in.Make == nil {
		return nil
	}
	var findings []rules.Finding
	for _, line := range recipeLines(in.Make) {
		// Only the common tab-indented recipe-line shape supports precise
		// span translation back into the original buffer (see offset below);
		// the rarer `target: ; recipe` inline form is reported at the whole
		// line's span with no autofix rather than risk a wrong edit.
		preciseOffset, canFix := recipeValueOffset(line)
		bodySrc := source.New("recipe", []byte(line.Logical))
		prog, _ := shellast.Parse(bodySrc)
		if prog == nil {
			continue
		}
		shellast.Walk(prog.Items, func(it shellast.Item) {
			cmd, ok := it.(shellast.Command)
			if !ok || cmd.Opaque {
				return
			}
			for _, w := range cmd.AllWords() {
				hits := quoting.FindUnquotedCommandSubstitutions(w)
				if len(hits) == 0 {
					continue
				}
				var fix *rules.Edit
				if canFix {
					if replacement, ok := quoting.BuildQuotedCommandSubFix(w); ok {
						fix = &rules.Edit{
							Span:            source.NewSpan(line.Span.Start+preciseOffset+w.Span().Start, line.Span.Start+preciseOffset+w.Span().End),
							ReplacementText: replacement,
							Kind:            rules.EditReplace,
							RuleID:          "MAKE003",
						}
					}
				}
				for range hits {
					findings = append(findings, rules.Finding{
						RuleID:     "MAKE003",
						Severity:   rules.SeverityWarning,
						Category:   rules.CategoryMakefile,
						Span:       line.Span,
						Message:    "unquoted $(...) reference in a recipe command is subject to the shell's word-splitting",
						Suggestion: "quote the reference; its Makefile substitution syntax is untouched by the fix",
						Fix:        fix,
					})
				}
			}
		})
	}
	return findings
}

// recipeValueOffset reports the byte offset of line.Logical's start within
// the original buffer relative to line.Span.Start, for the common
// tab-indented recipe form (`\t<cmd>`) where Logical is Original with
// exactly that leading tab stripped.
func recipeValueOffset(line makeast.RecipeLine) (offset int, ok bool) {
	if strings.HasPrefix(line.Original, "\t") && len(line.Original) == len(line.Logical)+1 {
		return 1, true
	}
	return 0, false
}
