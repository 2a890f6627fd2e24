package makeast

import (
	"strings"

	"github.com/purish/purish/source"
)

// Issue is a non-fatal Makefile parse diagnostic, mirroring lex.Issue.
type Issue struct {
	Span    source.Span
	Message string
}

// logicalLine is the result of phase one: backslash-continuation joining.
// text is the logical (joined) line used for classification; span and
// originalText cover every physical line the logical line spans, so a
// recipe's Original field can reproduce the source byte-for-byte. span
// includes the final terminating newline; originalText does not.
type logicalLine struct {
	text         string
	span         source.Span
	originalText string
	firstByte    byte
}

// Parse runs the two-phase Makefile parser: line-continuation preprocessing
// followed by a recursive descent over the resulting logical lines.
func Parse(src *source.Source) (*Makefile, []Issue) {
	lines := preprocessLines(src)
	m := &maker{src: src, lines: lines}
	items := m.parseItems(nil)
	return &Makefile{Items: items}, m.issues
}

func preprocessLines(src *source.Source) []logicalLine {
	data := src.Bytes()
	var lines []logicalLine
	i := 0
	for i < len(data) {
		lineStart := i
		var buf []byte
		for {
			j := i
			for j < len(data) && data[j] != '\n' {
				j++
			}
			segment := data[i:j]
			hasContinuation := len(segment) > 0 && segment[len(segment)-1] == '\\'
			if hasContinuation {
				buf = append(buf, segment[:len(segment)-1]...)
				buf = append(buf, ' ')
			} else {
				buf = append(buf, segment...)
			}
			if j < len(data) {
				j++ // consume newline
			}
			i = j
			if !hasContinuation || i >= len(data) {
				break
			}
		}
		var firstByte byte
		if lineStart < len(data) {
			firstByte = data[lineStart]
		}
		originalEnd := i
		if originalEnd > lineStart && data[originalEnd-1] == '\n' {
			originalEnd-- // the terminating newline belongs to span, not originalText
		}
		lines = append(lines, logicalLine{
			text:         string(buf),
			span:         source.NewSpan(lineStart, i),
			originalText: string(data[lineStart:originalEnd]),
			firstByte:    firstByte,
		})
	}
	return lines
}

type maker struct {
	src    *source.Source
	lines  []logicalLine
	pos    int
	issues []Issue
}

func (m *maker) cur() logicalLine {
	if m.pos >= len(m.lines) {
		return logicalLine{}
	}
	return m.lines[m.pos]
}

func (m *maker) atEnd() bool { return m.pos >= len(m.lines) }

func (m *maker) advance() logicalLine {
	l := m.cur()
	if m.pos < len(m.lines) {
		m.pos++
	}
	return l
}

func (m *maker) prevEnd() int {
	if m.pos == 0 {
		return 0
	}
	return m.lines[m.pos-1].span.End
}

func firstWord(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func isTermKeyword(kw string, terms []string) bool {
	for _, t := range terms {
		if kw == t {
			return true
		}
	}
	return false
}

// parseItems parses logical lines until end of input or a line whose first
// word matches one of terms (used for conditional else/endif).
func (m *maker) parseItems(terms []string) []Item {
	var items []Item
	for !m.atEnd() {
		l := m.cur()
		trimmed := strings.TrimSpace(l.text)

		if trimmed == "" {
			items = append(items, Blank{baseItem{l.span}})
			m.advance()
			continue
		}
		if l.firstByte == '\t' {
			// A recipe line with no owning target; preserve it opaquely
			// rather than dropping it.
			items = append(items, Directive{baseItem{l.span}, "", l.originalText})
			m.advance()
			continue
		}
		if strings.HasPrefix(trimmed, "#") {
			items = append(items, Comment{baseItem{l.span}, trimmed})
			m.advance()
			continue
		}

		kw := firstWord(trimmed)
		if isTermKeyword(kw, terms) {
			break
		}

		switch kw {
		case "ifeq", "ifneq", "ifdef", "ifndef":
			items = append(items, m.parseConditional(kw))
			continue
		case "include", "-include", "sinclude":
			items = append(items, m.parseInclude(kw, trimmed, l.span))
			m.advance()
			continue
		case "export", "unexport", "override", "vpath", "define":
			items = append(items, m.parseDirective(kw, trimmed, l))
			continue
		}

		if v, ok := m.tryParseVariable(trimmed, l.span); ok {
			items = append(items, v)
			m.advance()
			continue
		}

		items = append(items, m.parseTargetOrPattern(trimmed, l))
	}
	return items
}

var assignOps = []string{"?=", ":=", "+=", "="}

func (m *maker) tryParseVariable(line string, span source.Span) (Variable, bool) {
	bestIdx := -1
	bestOp := ""
	for _, op := range assignOps {
		idx := strings.Index(line, op)
		if idx < 0 {
			continue
		}
		if bestIdx == -1 || idx < bestIdx || (idx == bestIdx && len(op) > len(bestOp)) {
			bestIdx = idx
			bestOp = op
		}
	}
	if bestIdx <= 0 {
		return Variable{}, false
	}
	name := strings.TrimSpace(line[:bestIdx])
	if name == "" || strings.ContainsAny(name, ":#") {
		return Variable{}, false
	}
	value := strings.TrimSpace(line[bestIdx+len(bestOp):])
	return Variable{baseItem{span}, name, AssignOp(bestOp), value}, true
}

func (m *maker) parseTargetOrPattern(line string, l logicalLine) Item {
	start := l.span.Start
	colonIdx := strings.IndexByte(line, ':')
	if colonIdx < 0 {
		m.advance()
		m.issues = append(m.issues, Issue{Span: l.span, Message: "unrecognized top-level line, captured opaquely"})
		return Directive{baseItem{l.span}, "", l.originalText}
	}
	lhs := strings.TrimSpace(line[:colonIdx])
	rhs := line[colonIdx+1:]

	var prereqPart, orderPart string
	if pipeIdx := strings.IndexByte(rhs, '|'); pipeIdx >= 0 {
		prereqPart, orderPart = rhs[:pipeIdx], rhs[pipeIdx+1:]
	} else {
		prereqPart = rhs
	}

	inlineRecipe := ""
	if semiIdx := strings.IndexByte(prereqPart, ';'); semiIdx >= 0 {
		inlineRecipe = strings.TrimSpace(prereqPart[semiIdx+1:])
		prereqPart = prereqPart[:semiIdx]
	}

	names := strings.Fields(lhs)
	prereqs := strings.Fields(prereqPart)
	orderOnly := strings.Fields(orderPart)

	m.advance()
	recipe := m.collectRecipe()
	if inlineRecipe != "" {
		recipe = append([]RecipeLine{{Span: l.span, Logical: inlineRecipe, Original: inlineRecipe}}, recipe...)
	}

	isPhony := false
	for _, n := range names {
		if n == ".PHONY" {
			isPhony = true
		}
	}

	sp := source.NewSpan(start, m.prevEnd())
	if len(names) == 1 && strings.Contains(names[0], "%") {
		return PatternRule{baseItem{sp}, names[0], prereqs, recipe}
	}
	return Target{baseItem{sp}, names, prereqs, orderOnly, recipe, isPhony}
}

func (m *maker) collectRecipe() []RecipeLine {
	var recipe []RecipeLine
	for !m.atEnd() && m.cur().firstByte == '\t' {
		l := m.advance()
		logical := strings.TrimPrefix(l.text, "\t")
		recipe = append(recipe, RecipeLine{Span: l.span, Logical: logical, Original: l.originalText})
	}
	return recipe
}

func (m *maker) parseConditional(kw string) Item {
	start := m.cur().span.Start
	trimmed := strings.TrimSpace(m.cur().text)
	args := strings.TrimSpace(strings.TrimPrefix(trimmed, kw))
	m.advance()

	var kind ConditionalKind
	switch kw {
	case "ifeq":
		kind = CondIfeq
	case "ifneq":
		kind = CondIfneq
	case "ifdef":
		kind = CondIfdef
	case "ifndef":
		kind = CondIfndef
	}

	ifBody := m.parseItems([]string{"else", "endif"})
	branches := []ConditionalBranch{{Args: splitConditionalArgs(args), Body: ifBody}}

	if !m.atEnd() && firstWord(strings.TrimSpace(m.cur().text)) == "else" {
		m.advance()
		elseBody := m.parseItems([]string{"endif"})
		branches = append(branches, ConditionalBranch{Body: elseBody})
	}

	end := m.prevEnd()
	if !m.atEnd() && firstWord(strings.TrimSpace(m.cur().text)) == "endif" {
		end = m.cur().span.End
		m.advance()
	}
	return Conditional{baseItem{source.NewSpan(start, end)}, kind, branches}
}

func splitConditionalArgs(args string) []string {
	args = strings.TrimSpace(args)
	if strings.HasPrefix(args, "(") && strings.HasSuffix(args, ")") {
		inner := args[1 : len(args)-1]
		parts := strings.SplitN(inner, ",", 2)
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return strings.Fields(args)
}

func (m *maker) parseInclude(kw, trimmed string, span source.Span) Item {
	rest := strings.TrimSpace(strings.TrimPrefix(trimmed, kw))
	paths := strings.Fields(rest)
	optional := kw == "-include" || kw == "sinclude"
	return Include{baseItem{span}, paths, optional}
}

func (m *maker) parseDirective(kw, trimmed string, l logicalLine) Item {
	start := l.span.Start
	if kw == "define" {
		name := strings.TrimSpace(strings.TrimPrefix(trimmed, kw))
		m.advance()
		var bodyLines []string
		for !m.atEnd() {
			lt := strings.TrimSpace(m.cur().text)
			if lt == "endef" || strings.HasPrefix(lt, "endef ") {
				break
			}
			bodyLines = append(bodyLines, m.cur().originalText)
			m.advance()
		}
		end := m.prevEnd()
		if !m.atEnd() {
			end = m.cur().span.End
			m.advance() // endef
		}
		return Directive{baseItem{source.NewSpan(start, end)}, "define " + name, strings.Join(bodyLines, "\n")}
	}
	rest := strings.TrimSpace(strings.TrimPrefix(trimmed, kw))
	m.advance()
	return Directive{baseItem{l.span}, kw, rest}
}
