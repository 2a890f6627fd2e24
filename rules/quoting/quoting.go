// Package quoting holds the bare-parameter-expansion scan shared by
// CONFIG-002 (rc-file context) and SC2086/SC2046 (script context): all
// three rules flag the same shape of problem (a $VAR/${VAR} or unquoted
// $(...) that survives shell word-splitting) and fix it the same way.
package quoting

import (
	"fmt"
	"strings"

	"github.com/purish/purish/rules"
	"github.com/purish/purish/shellast"
	"github.com/purish/purish/source"
)

// Hit is one bare parameter expansion found during a word scan.
type Hit struct {
	Expansion shellast.ParamExpansion
}

// FindBareParamExpansions walks word looking for ParamExpansion nodes not
// already protected by a surrounding double-quoted string, skipping array
// subscripts (the expansion is a value used as an index, not a word that
// undergoes splitting) and, unless quotePositional is set, bare positional
// parameters ($1, $@, $*, $#) whose quoting is deliberately option-gated.
func FindBareParamExpansions(word shellast.WordExpr, quotePositional bool) []Hit {
	var hits []Hit
	var walk func(w shellast.WordExpr, quoted bool)
	walk = func(w shellast.WordExpr, quoted bool) {
		switch v := w.(type) {
		case shellast.ParamExpansion:
			if quoted {
				return
			}
			if strings.HasPrefix(v.Operand, "[") {
				return
			}
			if !quotePositional && isPositional(v.Name) {
				return
			}
			hits = append(hits, Hit{Expansion: v})
		case shellast.DoubleQuoted:
			for _, p := range v.Parts {
				walk(p, true)
			}
		case shellast.Concatenation:
			for _, p := range v.Parts {
				walk(p, quoted)
			}
		}
		// SingleQuoted, CommandSubstitution, ArithmeticExpansion, Literal,
		// and Opaque carry no nested ParamExpansion children to find.
	}
	walk(word, false)
	return hits
}

func isPositional(name string) bool {
	if name == "" {
		return false
	}
	if name == "@" || name == "*" || name == "#" {
		return true
	}
	for _, c := range name {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// FindUnquotedCommandSubstitutions walks word looking for a bare (not
// double-quoted) CommandSubstitution used as a word — SC2046's concern.
func FindUnquotedCommandSubstitutions(word shellast.WordExpr) []shellast.CommandSubstitution {
	var hits []shellast.CommandSubstitution
	var walk func(w shellast.WordExpr, quoted bool)
	walk = func(w shellast.WordExpr, quoted bool) {
		switch v := w.(type) {
		case shellast.CommandSubstitution:
			if !quoted {
				hits = append(hits, v)
			}
		case shellast.DoubleQuoted:
			for _, p := range v.Parts {
				walk(p, true)
			}
		case shellast.Concatenation:
			for _, p := range v.Parts {
				walk(p, quoted)
			}
		}
	}
	walk(word, false)
	return hits
}

// BuildQuotedFix renders word as a single double-quoted string with every
// bare ParamExpansion braced, for the common/simple shapes a whole-word
// quoting autofix can handle safely: a lone expansion, or a Concatenation of
// Literal and ParamExpansion pieces only. Anything more structurally
// complex (nested quotes, command substitutions mixed with bare params)
// returns ok=false — the finding still gets reported, just without an
// autofix, since a wrong rewrite there would be worse than no rewrite.
func BuildQuotedFix(word shellast.WordExpr) (replacement string, ok bool) {
	switch w := word.(type) {
	case shellast.ParamExpansion:
		return `"` + bracedForm(w) + `"`, true
	case shellast.Concatenation:
		var b strings.Builder
		for _, p := range w.Parts {
			switch pp := p.(type) {
			case shellast.Literal:
				b.WriteString(pp.Text)
			case shellast.ParamExpansion:
				b.WriteString(bracedForm(pp))
			default:
				return "", false
			}
		}
		return `"` + b.String() + `"`, true
	default:
		return "", false
	}
}

func bracedForm(pe shellast.ParamExpansion) string {
	return "${" + pe.Name + pe.Op + pe.Operand + "}"
}

// BuildQuotedCommandSubFix renders word as a single double-quoted string
// with any bare CommandSubstitution reproduced verbatim and any
// ParamExpansion in braced form inside the quotes — SC2046's fix. Same conservative scope as
// BuildQuotedFix: a lone substitution, or a Concatenation of Literal/
// ParamExpansion/CommandSubstitution pieces only.
func BuildQuotedCommandSubFix(word shellast.WordExpr) (replacement string, ok bool) {
	switch w := word.(type) {
	case shellast.CommandSubstitution:
		return `"` + renderCommandSub(w) + `"`, true
	case shellast.Concatenation:
		var b strings.Builder
		for _, p := range w.Parts {
			switch pp := p.(type) {
			case shellast.Literal:
				b.WriteString(pp.Text)
			case shellast.CommandSubstitution:
				b.WriteString(renderCommandSub(pp))
			case shellast.ParamExpansion:
				b.WriteString(bracedForm(pp))
			default:
				return "", false
			}
		}
		return `"` + b.String() + `"`, true
	default:
		return "", false
	}
}

func renderCommandSub(cs shellast.CommandSubstitution) string {
	if cs.LegacyTicks {
		return "`" + cs.Body + "`"
	}
	return "$(" + cs.Body + ")"
}

// CheckExpansions scans every Assignment value and Command argument word in
// prog for bare parameter expansions, reporting each under ruleID/category.
// CONFIG-002 and SC2086 share this scan verbatim — the spec describes
// SC2086 as "equivalent to CONFIG-002 outside of rc-file contexts", i.e. the
// same defect, filed under a different namespace depending on which
// purifier driver is running.
func CheckExpansions(prog *shellast.Program, ruleID string, category rules.Category, quotePositional bool) []rules.Finding {
	var findings []rules.Finding
	check := func(word shellast.WordExpr) {
		// A word like `DIR=$HOME/projects` following a name-declaring
		// builtin (export, declare, ...) is parsed as one plain command
		// argument, not split into name/value the way a standalone
		// assignment is. Quoting the whole word would wrap the "DIR=" text
		// too, which is harmless to the shell but not the minimal edit the
		// rule should produce — narrow to the value half first.
		target := word
		if v, ok := splitAssignmentValue(word); ok {
			target = v
		}
		hits := FindBareParamExpansions(target, quotePositional)
		if len(hits) == 0 {
			return
		}
		replacement, ok := BuildQuotedFix(target)
		for _, h := range hits {
			f := rules.Finding{
				RuleID:     ruleID,
				Severity:   rules.SeverityWarning,
				Category:   category,
				Span:       h.Expansion.Span(),
				Message:    fmt.Sprintf("bare $%s is subject to word-splitting and globbing; quote it", h.Expansion.Name),
				Suggestion: fmt.Sprintf(`quote as "%s"`, bracedForm(h.Expansion)),
			}
			if ok {
				f.Fix = &rules.Edit{Span: target.Span(), ReplacementText: replacement, Kind: rules.EditReplace, RuleID: ruleID}
			}
			findings = append(findings, f)
		}
	}
	shellast.Walk(prog.Items, func(it shellast.Item) {
		switch v := it.(type) {
		case shellast.Assignment:
			if v.Value != nil {
				check(v.Value)
			}
		case shellast.Command:
			if v.Opaque {
				return
			}
			for _, a := range v.LeadingAssignments {
				if a.Value != nil {
					check(a.Value)
				}
			}
			if isLoneExportOperand(v) {
				return
			}
			if len(v.Words) > 1 {
				for _, w := range v.Words[1:] {
					check(w)
				}
			}
		}
	})
	return findings
}

// splitAssignmentValue splits a word of the shape NAME=rest — a
// Concatenation whose first piece is a Literal containing an identifier,
// '=' — into just the rest portion, with an accurate absolute span.
// Anything else, including a bare Literal (which, having no nested
// expansions, never reaches here with a hit to fix), returns ok=false.
func splitAssignmentValue(word shellast.WordExpr) (shellast.WordExpr, bool) {
	concat, ok := word.(shellast.Concatenation)
	if !ok || len(concat.Parts) == 0 {
		return nil, false
	}
	lit, ok := concat.Parts[0].(shellast.Literal)
	if !ok {
		return nil, false
	}
	i := strings.IndexByte(lit.Text, '=')
	if i <= 0 {
		return nil, false
	}
	for _, c := range lit.Text[:i] {
		if !isNameByte(c) {
			return nil, false
		}
	}
	rest := lit.Text[i+1:]
	sp := lit.Span()
	valSpan := source.NewSpan(sp.Start+i+1, sp.End)

	var parts []shellast.WordExpr
	if rest != "" {
		parts = append(parts, shellast.NewLiteral(rest, valSpan))
	}
	parts = append(parts, concat.Parts[1:]...)
	switch len(parts) {
	case 0:
		return nil, false
	case 1:
		return parts[0], true
	default:
		whole := source.NewSpan(valSpan.Start, concat.Span().End)
		return shellast.NewConcatenation(parts, whole), true
	}
}

func isNameByte(c rune) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// isLoneExportOperand reports whether c is `export $NAME` — an indirect
// export of whatever variable $NAME currently names — where quoting the
// expansion would change which variable gets exported.
func isLoneExportOperand(c shellast.Command) bool {
	if len(c.Words) != 2 {
		return false
	}
	lit, ok := c.Words[0].(shellast.Literal)
	if !ok || lit.Text != "export" {
		return false
	}
	_, isParam := c.Words[1].(shellast.ParamExpansion)
	return isParam
}
