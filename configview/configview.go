// Package configview projects a parsed shell buffer (package shellast) into
// the shapes the config-oriented rules (CONFIG-001..004, CONFIG-007) actually
// need: PATH-shaped assignments split into entries, alias definitions grouped
// by name, and source/. directives — all restricted to top-level statements,
// since the rules this view serves explicitly ignore conditional branches.
package configview

import (
	"strings"

	"github.com/purish/purish/shellast"
	"github.com/purish/purish/source"
)

// PathSentinel is the canonical entry text substituted for a bare $PATH or
// ${PATH} reference inside a PATH-shaped assignment, per CONFIG-001's
// "resolve $PATH literally as a sentinel" rule.
const PathSentinel = "$PATH"

// VarAssignment is one top-level NAME=value statement, whether written as a
// bare shellast.Assignment or as the operand of an `export` command.
type VarAssignment struct {
	Name     string
	Value    shellast.WordExpr
	Exported bool
	Span     source.Span // the whole statement, for line-removal autofixes
}

// PathEntry is one colon-delimited segment of a PATH-shaped value.
type PathEntry struct {
	Text     string // literal text, or PathSentinel for a $PATH reference
	Sentinel bool
	Raw      shellast.WordExpr // nil for a pure sentinel entry
}

// PathAssignment is a VarAssignment whose name looks PATH-shaped, with its
// value already split into ordered entries.
type PathAssignment struct {
	VarAssignment
	Entries []PathEntry
}

// Signature is a stable string summarizing Entries, suitable for CONFIG-001's
// seen-set: two assignments with the same Signature produce the same PATH.
func (p PathAssignment) Signature() string {
	parts := make([]string, len(p.Entries))
	for i, e := range p.Entries {
		parts[i] = e.Text
	}
	return strings.Join(parts, ":")
}

// AliasDef is one top-level `alias NAME=value` statement.
type AliasDef struct {
	Name  string
	Value shellast.WordExpr
	Span  source.Span
}

// SourceDirective is one top-level `source path` or `. path` statement.
type SourceDirective struct {
	Path    shellast.WordExpr
	Literal string // best-effort literal path text, empty if not resolvable
	DotForm bool
	Span    source.Span
}

// View is the projection over a parsed shell Program.
type View struct {
	src         *source.Source
	Assignments []VarAssignment
	Aliases     []AliasDef
	Sources     []SourceDirective
}

// Build walks prog's top-level items and extracts assignments, aliases, and
// source directives. Items inside conditionals, loops, and function bodies
// are intentionally not visited: CONFIG-003 explicitly leaves conditional
// branches intact, and the other rules this view serves share that scope.
func Build(src *source.Source, prog *shellast.Program) *View {
	v := &View{src: src}
	for _, item := range prog.Items {
		switch it := item.(type) {
		case shellast.Assignment:
			v.Assignments = append(v.Assignments, VarAssignment{
				Name: it.Name, Value: it.Value, Exported: it.Export, Span: it.Span(),
			})
		case shellast.Alias:
			v.Aliases = append(v.Aliases, AliasDef{Name: it.Name, Value: it.Value, Span: it.Span()})
		case shellast.Source:
			v.Sources = append(v.Sources, SourceDirective{
				Path: it.PathExpr, Literal: literalText(it.PathExpr), DotForm: it.DotForm, Span: it.Span(),
			})
		case shellast.Command:
			if it.Opaque {
				continue
			}
			if name, value, ok := exportAssignment(it); ok {
				v.Assignments = append(v.Assignments, VarAssignment{
					Name: name, Value: value, Exported: true, Span: it.Span(),
				})
			}
		}
	}
	return v
}

// exportAssignment recognizes `export NAME=value` (the parser represents
// `export` as an ordinary Command, since it is not a shell keyword).
func exportAssignment(c shellast.Command) (name string, value shellast.WordExpr, ok bool) {
	if len(c.Words) < 2 {
		return "", nil, false
	}
	lit, isLit := c.Words[0].(shellast.Literal)
	if !isLit || lit.Text != "export" {
		return "", nil, false
	}
	return splitNameValueWord(c.Words[1])
}

// splitNameValueWord splits a word of the form NAME=value (possibly
// continuing with further expansions after the '=') into its name and the
// remaining WordExpr, mirroring how the parser splits a bare assignment word.
func splitNameValueWord(w shellast.WordExpr) (string, shellast.WordExpr, bool) {
	switch word := w.(type) {
	case shellast.Literal:
		i := strings.IndexByte(word.Text, '=')
		if i <= 0 {
			return "", nil, false
		}
		name := word.Text[:i]
		rest := word.Text[i+1:]
		sp := word.Span()
		valSpan := source.NewSpan(sp.Start+i+1, sp.End)
		return name, shellast.NewLiteral(rest, valSpan), true
	case shellast.Concatenation:
		if len(word.Parts) == 0 {
			return "", nil, false
		}
		firstLit, isLit := word.Parts[0].(shellast.Literal)
		if !isLit {
			return "", nil, false
		}
		i := strings.IndexByte(firstLit.Text, '=')
		if i <= 0 {
			return "", nil, false
		}
		name := firstLit.Text[:i]
		rest := firstLit.Text[i+1:]
		sp := firstLit.Span()
		valSpan := source.NewSpan(sp.Start+i+1, sp.End)
		var parts []shellast.WordExpr
		if rest != "" {
			parts = append(parts, shellast.NewLiteral(rest, valSpan))
		}
		parts = append(parts, word.Parts[1:]...)
		if len(parts) == 1 {
			return name, parts[0], true
		}
		wholeSpan := source.NewSpan(valSpan.Start, word.Span().End)
		return name, shellast.NewConcatenation(parts, wholeSpan), true
	default:
		return "", nil, false
	}
}

// literalText returns the best-effort literal rendering of a word that is
// plain text (or single-quoted text), and "" otherwise — used where a rule
// needs an actual path string, not just a structured node.
func literalText(w shellast.WordExpr) string {
	switch word := w.(type) {
	case shellast.Literal:
		return word.Text
	case shellast.SingleQuoted:
		return word.Text
	case shellast.Concatenation:
		var b strings.Builder
		for _, p := range word.Parts {
			t := literalText(p)
			if t == "" {
				return ""
			}
			b.WriteString(t)
		}
		return b.String()
	default:
		return ""
	}
}

// isPathShapedName reports whether name looks like a search-path variable:
// PATH itself, or any *_PATH / *PATH convention (MANPATH, CLASSPATH,
// LD_LIBRARY_PATH, ...).
func isPathShapedName(name string) bool {
	return name == "PATH" || strings.HasSuffix(name, "PATH")
}

// PathAssignments returns every top-level assignment whose name looks
// PATH-shaped, with its value split into colon-delimited entries.
func (v *View) PathAssignments() []PathAssignment {
	var out []PathAssignment
	for _, a := range v.Assignments {
		if !isPathShapedName(a.Name) {
			continue
		}
		out = append(out, PathAssignment{VarAssignment: a, Entries: splitPathValue(a.Value)})
	}
	return out
}

// splitPathValue splits val on ':' boundaries. Single-quoted text and
// expansion bodies are never split internally; double-quoted spans are
// flattened first (see flatten), so a ':' inside double quotes is a split
// point just like one in a bare Literal run.
func splitPathValue(val shellast.WordExpr) []PathEntry {
	parts := flatten(val)
	var entries []PathEntry
	var cur []shellast.WordExpr

	flush := func() {
		if len(cur) == 0 {
			return
		}
		entries = append(entries, entryFromParts(cur))
		cur = nil
	}

	for _, p := range parts {
		lit, isLit := p.(shellast.Literal)
		if !isLit {
			cur = append(cur, p)
			continue
		}
		text := lit.Text
		sp := lit.Span()
		segStart := 0
		for i := 0; i < len(text); i++ {
			if text[i] != ':' {
				continue
			}
			if i > segStart {
				cur = append(cur, shellast.NewLiteral(text[segStart:i], source.NewSpan(sp.Start+segStart, sp.Start+i)))
			}
			flush()
			segStart = i + 1
		}
		if segStart < len(text) {
			cur = append(cur, shellast.NewLiteral(text[segStart:], source.NewSpan(sp.Start+segStart, sp.End)))
		}
	}
	flush()
	return entries
}

// flatten recursively unpacks Concatenation and DoubleQuoted nodes into a
// single flat stream of pieces. Double quotes only suppress shell
// word-splitting; they do not change what counts as a PATH separator, so a
// ':' inside a double-quoted span is still a split point. SingleQuoted text,
// by contrast, is genuinely quoted and stays atomic.
func flatten(val shellast.WordExpr) []shellast.WordExpr {
	switch w := val.(type) {
	case shellast.Concatenation:
		var out []shellast.WordExpr
		for _, p := range w.Parts {
			out = append(out, flatten(p)...)
		}
		return out
	case shellast.DoubleQuoted:
		var out []shellast.WordExpr
		for _, p := range w.Parts {
			out = append(out, flatten(p)...)
		}
		return out
	default:
		return []shellast.WordExpr{val}
	}
}

func entryFromParts(parts []shellast.WordExpr) PathEntry {
	if len(parts) == 1 {
		if pe, ok := parts[0].(shellast.ParamExpansion); ok && pe.Name == "PATH" {
			return PathEntry{Text: PathSentinel, Sentinel: true, Raw: parts[0]}
		}
	}
	var whole shellast.WordExpr
	if len(parts) == 1 {
		whole = parts[0]
	} else {
		start := parts[0].Span().Start
		end := parts[len(parts)-1].Span().End
		whole = shellast.NewConcatenation(parts, source.NewSpan(start, end))
	}
	if text := literalText(whole); text != "" {
		return PathEntry{Text: text, Raw: whole}
	}
	return PathEntry{Text: literalOrOpaque(whole), Raw: whole}
}

// literalOrOpaque renders a non-literal entry (containing an expansion other
// than bare $PATH) as a stable placeholder string so two assignments with
// structurally identical non-literal entries still compare equal.
func literalOrOpaque(w shellast.WordExpr) string {
	switch word := w.(type) {
	case shellast.ParamExpansion:
		if word.Braced {
			return "${" + word.Name + word.Op + word.Operand + "}"
		}
		return "$" + word.Name
	case shellast.CommandSubstitution:
		return "$(" + word.Body + ")"
	case shellast.ArithmeticExpansion:
		return "$((" + word.Body + "))"
	case shellast.DoubleQuoted:
		var b strings.Builder
		for _, p := range word.Parts {
			b.WriteString(literalOrOpaque(p))
		}
		return `"` + b.String() + `"`
	case shellast.SingleQuoted:
		return "'" + word.Text + "'"
	case shellast.Concatenation:
		var b strings.Builder
		for _, p := range word.Parts {
			b.WriteString(literalOrOpaque(p))
		}
		return b.String()
	case shellast.Opaque:
		return word.Text
	default:
		return ""
	}
}

// DuplicateAliases groups AliasDef entries by name, in insertion order, for
// CONFIG-003. Only names with more than one definition are included.
func (v *View) DuplicateAliases() map[string][]AliasDef {
	groups := make(map[string][]AliasDef)
	var order []string
	for _, a := range v.Aliases {
		if _, seen := groups[a.Name]; !seen {
			order = append(order, a.Name)
		}
		groups[a.Name] = append(groups[a.Name], a)
	}
	out := make(map[string][]AliasDef, len(order))
	for _, name := range order {
		if len(groups[name]) > 1 {
			out[name] = groups[name]
		}
	}
	return out
}

// SourcedPaths returns the literal path text of every top-level source/.
// directive whose operand resolved to plain text. The core never reads
// these files itself (see DESIGN.md); this is purely an accessor for a
// caller that wants to walk the sourcing graph on its own.
func (v *View) SourcedPaths() []string {
	var paths []string
	for _, s := range v.Sources {
		if s.Literal != "" {
			paths = append(paths, s.Literal)
		}
	}
	return paths
}
