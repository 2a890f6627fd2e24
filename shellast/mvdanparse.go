// Package shellast builds a lossy-but-locatable AST for POSIX/Bash shell
// source, plus an implicit surface map: every node's Span anchors back into
// the originating source.Source, and anything the parser cannot confidently
// classify is preserved as an opaque Command carrying its raw text so a
// purifier can still round-trip it byte-for-byte.
//
// Parsing itself is delegated to mvdan.cc/sh/v3/syntax, the bash-compatible
// parser behind shfmt: this file is a translator from its *syntax.File AST
// into the Item/WordExpr tree the rest of this package exposes, not a second
// parser. Every mvdan node carries byte offsets via Pos().Offset()/End().Offset(),
// which map directly onto this package's source.Span model, so the
// translation needs no re-lexing of its own.
package shellast

import (
	"bytes"
	"strings"

	"mvdan.cc/sh/v3/syntax"

	"github.com/purish/purish/lex"
	"github.com/purish/purish/source"
)

// Parse parses a whole shell buffer and translates the result into this
// package's Program/Item tree, returning any recoverable parse issues.
func Parse(src *source.Source) (*Program, []lex.Issue) {
	c := &converter{src: src}
	parser := syntax.NewParser(syntax.KeepComments(true), syntax.Variant(syntax.LangBash))
	file, err := parser.Parse(bytes.NewReader(src.Bytes()), src.Filename())
	if err != nil {
		c.issues = append(c.issues, lex.Issue{Message: "shell parse error: " + err.Error()})
		return &Program{}, c.issues
	}

	items := c.convertStmts(file.Stmts)
	items = append(items, c.comments(file.Last)...)
	items = c.fillBlanks(items)
	return &Program{Items: items}, c.issues
}

// converter holds the single piece of state (the accumulated issue list)
// shared across one Parse call; it is not safe for concurrent or repeated
// use, matching the old hand-rolled Parser's contract.
type converter struct {
	src    *source.Source
	issues []lex.Issue
}

func (c *converter) span(n interface {
	Pos() syntax.Pos
	End() syntax.Pos
}) source.Span {
	return source.NewSpan(int(n.Pos().Offset()), int(n.End().Offset()))
}

func (c *converter) slice(sp source.Span) string {
	return string(c.src.Slice(sp))
}

// convertStmts translates a statement list (a function/block/loop body, a
// case clause's body, or the whole file) preserving each statement's leading
// standalone comments in source order.
func (c *converter) convertStmts(stmts []*syntax.Stmt) []Item {
	var items []Item
	for _, st := range stmts {
		for _, cm := range st.Comments {
			items = append(items, c.comment(cm))
		}
		items = append(items, c.stmt(st))
	}
	return items
}

func (c *converter) comments(cms []syntax.Comment) []Item {
	var items []Item
	for _, cm := range cms {
		items = append(items, c.comment(cm))
	}
	return items
}

func (c *converter) comment(cm syntax.Comment) Item {
	start := int(cm.Hash.Offset())
	sp := source.NewSpan(start, start+1+len(cm.Text))
	return Comment{baseItem{sp}, c.slice(sp)}
}

// stmt translates one *syntax.Stmt into an Item. Negation (!) and
// backgrounding (&) on compound/pipeline statements are rare enough in the
// inputs this tool targets that they are intentionally not reconstructed
// separately here; the statement's own span and body still round-trip
// byte-for-byte via the Opaque fallback on anything this switch doesn't
// specifically model.
func (c *converter) stmt(st *syntax.Stmt) Item {
	sp := c.span(st)
	switch cmd := st.Cmd.(type) {
	case *syntax.CallExpr:
		return c.callExpr(st, cmd, sp)
	case *syntax.BinaryCmd:
		return c.binaryCmd(cmd, sp)
	case *syntax.IfClause:
		return c.ifClause(cmd, sp)
	case *syntax.WhileClause:
		return While{baseItem{sp}, c.convertStmts(cmd.Cond), c.convertStmts(cmd.Do), cmd.Until}
	case *syntax.ForClause:
		return c.forClause(cmd, sp)
	case *syntax.CaseClause:
		return c.caseClause(cmd, sp)
	case *syntax.Block:
		return Group{baseItem{sp}, c.convertStmts(cmd.Stmts)}
	case *syntax.Subshell:
		return Subshell{baseItem{sp}, c.convertStmts(cmd.Stmts)}
	case *syntax.FuncDecl:
		return c.funcDecl(cmd, sp)
	case *syntax.DeclClause:
		return c.declClause(st, cmd, sp)
	default:
		return c.opaque(sp, "unsupported construct, captured as opaque")
	}
}

func (c *converter) opaque(sp source.Span, msg string) Item {
	c.issues = append(c.issues, lex.Issue{Span: sp, Message: msg})
	return Command{baseItem{sp}, nil, nil, nil, true, c.slice(sp)}
}

// binaryCmd flattens the left-leaning chain of BinaryCmd nodes mvdan builds
// for `a | b | c` and `a && b || c` into this package's flat Pipeline/
// PipelineStage model.
func (c *converter) binaryCmd(cmd *syntax.BinaryCmd, sp source.Span) Item {
	return Pipeline{baseItem{sp}, c.flattenBinary(cmd)}
}

func (c *converter) flattenBinary(cmd *syntax.BinaryCmd) []PipelineStage {
	var left []PipelineStage
	if sub, ok := cmd.X.Cmd.(*syntax.BinaryCmd); ok {
		left = c.flattenBinary(sub)
	} else {
		left = []PipelineStage{{Item: c.stmt(cmd.X)}}
	}
	left[len(left)-1].Op = pipelineOpFor(cmd.Op)
	return append(left, PipelineStage{Item: c.stmt(cmd.Y)})
}

func pipelineOpFor(op syntax.BinCmdOperator) PipelineOp {
	switch op {
	case syntax.Pipe, syntax.PipeAll:
		return OpPipe
	case syntax.AndStmt:
		return OpAnd
	case syntax.OrStmt:
		return OpOr
	default:
		return OpNone
	}
}

func (c *converter) callExpr(st *syntax.Stmt, cmd *syntax.CallExpr, sp source.Span) Item {
	var leading []Assignment
	for _, a := range cmd.Assigns {
		leading = append(leading, c.assign(a))
	}
	var words []WordExpr
	for _, w := range cmd.Args {
		words = append(words, c.wordExpr(w))
	}
	redirs := c.redirections(st)

	if len(words) == 0 && len(redirs) == 0 {
		if len(leading) == 1 {
			return leading[0]
		}
		if len(leading) == 0 {
			return c.opaque(sp, "empty statement")
		}
	}

	if name, ok := literalWordText(words, 0); ok {
		switch name {
		case "alias":
			return c.aliasFrom(cmd, sp)
		case "source", ".":
			if len(words) == 2 {
				return Source{baseItem{sp}, words[1], name == "."}
			}
		}
	}
	return Command{baseItem{sp}, leading, words, redirs, false, ""}
}

func literalWordText(words []WordExpr, i int) (string, bool) {
	if i >= len(words) {
		return "", false
	}
	lit, ok := words[i].(Literal)
	if !ok {
		return "", false
	}
	return lit.Text, true
}

// aliasFrom rebuilds the alias-builtin's special multi-word value shape:
// `alias ll=ls -la` assigns the single logical value "ls -la", even though
// it lexes as two separate command arguments. The value is kept as a raw
// literal slice of the source rather than re-decomposed into expansions,
// since no rule inspects an AliasDef's internal structure (see DESIGN.md).
func (c *converter) aliasFrom(cmd *syntax.CallExpr, sp source.Span) Item {
	if len(cmd.Args) < 2 {
		return c.opaque(sp, "alias without a name=value operand")
	}
	firstArg := cmd.Args[1]
	argStart := int(firstArg.Pos().Offset())
	raw := c.slice(source.NewSpan(argStart, sp.End))
	idx := strings.IndexByte(raw, '=')
	if idx <= 0 {
		return c.opaque(sp, "alias without a name=value operand")
	}
	name := raw[:idx]
	var value WordExpr
	if idx+1 < len(raw) {
		value = NewLiteral(raw[idx+1:], source.NewSpan(argStart+idx+1, sp.End))
	}
	return Alias{baseItem{sp}, name, value}
}

func (c *converter) assign(a *syntax.Assign) Assignment {
	sp := c.span(a)
	name := ""
	if a.Name != nil {
		name = a.Name.Value
	}
	var value WordExpr
	if a.Value != nil {
		value = c.wordExpr(a.Value)
	}
	return Assignment{baseItem{sp}, name, value, false}
}

// declClause handles the declare/local/export/readonly/typeset/nameref
// builtins, which mvdan parses structurally instead of as a plain CallExpr.
// It is rebuilt as an ordinary Command whose first word is the builtin name
// and whose remaining words are NAME=value (or bare NAME) text, matching the
// shape configview's exportAssignment/isLoneExportOperand expect from the
// days this parser didn't special-case export either.
func (c *converter) declClause(st *syntax.Stmt, cmd *syntax.DeclClause, sp source.Span) Item {
	var words []WordExpr
	if cmd.Variant != nil {
		vsp := c.span(cmd.Variant)
		words = append(words, NewLiteral(cmd.Variant.Value, vsp))
	}
	for _, a := range cmd.Args {
		words = append(words, c.declArgWord(a))
	}
	return Command{baseItem{sp}, nil, words, c.redirections(st), false, ""}
}

func (c *converter) declArgWord(a *syntax.Assign) WordExpr {
	sp := c.span(a)
	if a.Name == nil {
		if a.Value != nil {
			return c.wordExpr(a.Value)
		}
		return NewLiteral(c.slice(sp), sp)
	}
	if a.Value == nil {
		return NewLiteral(a.Name.Value, sp)
	}
	nameSp := source.NewSpan(sp.Start, sp.Start+len(a.Name.Value)+1)
	nameLit := NewLiteral(a.Name.Value+"=", nameSp)
	parts := append([]WordExpr{nameLit}, c.wordParts(a.Value)...)
	return NewConcatenation(collapseLiterals(parts), sp)
}

func (c *converter) redirections(st *syntax.Stmt) []Redirection {
	var redirs []Redirection
	for _, r := range st.Redirs {
		redirs = append(redirs, c.redirection(r))
	}
	return redirs
}

func (c *converter) redirection(r *syntax.Redirect) Redirection {
	sp := c.span(r)
	fd := ""
	if r.N != nil {
		fd = c.slice(c.span(r.N))
	}
	kind := redirKindFor(r.Op)
	if kind == RedirHeredoc || kind == RedirHeredocStrip {
		body := ""
		if r.Hdoc != nil {
			body = c.slice(c.span(r.Hdoc))
		}
		return Redirection{Sp: sp, Kind: kind, Fd: fd, HeredocBody: body}
	}
	var target WordExpr
	if r.Word != nil {
		target = c.wordExpr(r.Word)
	}
	return Redirection{Sp: sp, Kind: kind, Fd: fd, Target: target}
}

func redirKindFor(op syntax.RedirOperator) RedirKind {
	switch op {
	case syntax.RdrIn:
		return RedirInput
	case syntax.RdrOut:
		return RedirOutput
	case syntax.AppOut:
		return RedirAppend
	case syntax.RdrInOut:
		return RedirInputOutput
	case syntax.DplIn, syntax.DplOut:
		return RedirDup
	case syntax.Hdoc:
		return RedirHeredoc
	case syntax.DashHdoc:
		return RedirHeredocStrip
	default:
		return RedirOutput
	}
}

func (c *converter) ifClause(cmd *syntax.IfClause, sp source.Span) Item {
	branches := []IfBranch{{Cond: c.convertStmts(cmd.Cond), Body: c.convertStmts(cmd.Then)}}
	elseBody := c.flattenElse(cmd.Else, &branches)
	return If{baseItem{sp}, branches, elseBody}
}

// flattenElse walks the Else chain mvdan uses to represent both `elif`
// (a nested IfClause with its own Cond) and a plain trailing `else` (a
// nested IfClause with no Cond at all) into this package's flat
// Branches+Else shape.
func (c *converter) flattenElse(elseClause *syntax.IfClause, branches *[]IfBranch) []Item {
	if elseClause == nil {
		return nil
	}
	if len(elseClause.Cond) == 0 {
		return c.convertStmts(elseClause.Then)
	}
	*branches = append(*branches, IfBranch{Cond: c.convertStmts(elseClause.Cond), Body: c.convertStmts(elseClause.Then)})
	return c.flattenElse(elseClause.Else, branches)
}

func (c *converter) forClause(cmd *syntax.ForClause, sp source.Span) Item {
	wi, ok := cmd.Loop.(*syntax.WordIter)
	if !ok {
		// C-style `for ((i=0; i<n; i++))` has no analogue in this package's
		// For node; keep it reachable as an opaque statement instead of
		// dropping it silently.
		return c.opaque(sp, "C-style for loop, captured as opaque")
	}
	name := ""
	if wi.Name != nil {
		name = wi.Name.Value
	}
	var words []WordExpr
	for _, w := range wi.Items {
		words = append(words, c.wordExpr(w))
	}
	return For{baseItem{sp}, name, words, c.convertStmts(cmd.Do)}
}

func (c *converter) caseClause(cmd *syntax.CaseClause, sp source.Span) Item {
	var word WordExpr
	if cmd.Word != nil {
		word = c.wordExpr(cmd.Word)
	}
	var clauses []CaseClause
	for _, item := range cmd.Items {
		var patterns []WordExpr
		for _, p := range item.Patterns {
			patterns = append(patterns, c.wordExpr(p))
		}
		clauses = append(clauses, CaseClause{Patterns: patterns, Body: c.convertStmts(item.Stmts)})
	}
	return Case{baseItem{sp}, word, clauses}
}

func (c *converter) funcDecl(cmd *syntax.FuncDecl, sp source.Span) Item {
	name := ""
	if cmd.Name != nil {
		name = cmd.Name.Value
	}
	var body []Item
	if cmd.Body != nil {
		if blk, ok := cmd.Body.Cmd.(*syntax.Block); ok {
			body = c.convertStmts(blk.Stmts)
		} else {
			body = []Item{c.stmt(cmd.Body)}
		}
	}
	return FunctionDef{baseItem{sp}, name, body, cmd.RsrvWord}
}

// wordExpr translates a *syntax.Word (a sequence of word parts with no gaps
// between them) into a single WordExpr, collapsing a lone part to itself and
// multiple parts into a Concatenation — the same shape the old hand-rolled
// word builder produced.
func (c *converter) wordExpr(w *syntax.Word) WordExpr {
	if w == nil || len(w.Parts) == 0 {
		return nil
	}
	parts := c.wordParts(w)
	if len(parts) == 1 {
		return parts[0]
	}
	return Concatenation{baseWord{c.span(w)}, parts}
}

// wordParts returns w's translated parts without collapsing them to a single
// WordExpr, for callers that need to splice them into a larger part list
// (e.g. declArgWord prepending a synthesized "NAME=" literal).
func (c *converter) wordParts(w *syntax.Word) []WordExpr {
	if w == nil {
		return nil
	}
	parts := make([]WordExpr, 0, len(w.Parts))
	for _, p := range w.Parts {
		parts = append(parts, c.wordPart(p))
	}
	return parts
}

// collapseLiterals merges adjacent Literal parts produced when a synthesized
// literal (e.g. a "NAME=" prefix) is spliced directly against the first part
// of an existing word, so a plain `export FOO=bar` yields one Literal part
// rather than two back-to-back ones.
func collapseLiterals(parts []WordExpr) []WordExpr {
	var out []WordExpr
	for _, p := range parts {
		if lit, ok := p.(Literal); ok && len(out) > 0 {
			if prev, ok := out[len(out)-1].(Literal); ok {
				out[len(out)-1] = Literal{baseWord{source.NewSpan(prev.Sp.Start, lit.Sp.End)}, prev.Text + lit.Text}
				continue
			}
		}
		out = append(out, p)
	}
	return out
}

func (c *converter) wordPart(p syntax.WordPart) WordExpr {
	sp := c.span(p)
	switch v := p.(type) {
	case *syntax.Lit:
		return Literal{baseWord{sp}, c.slice(sp)}
	case *syntax.SglQuoted:
		return SingleQuoted{baseWord{sp}, v.Value}
	case *syntax.DblQuoted:
		inner := make([]WordExpr, 0, len(v.Parts))
		for _, ip := range v.Parts {
			inner = append(inner, c.wordPart(ip))
		}
		return DoubleQuoted{baseWord{sp}, inner}
	case *syntax.ParamExp:
		return c.paramExp(v, sp)
	case *syntax.CmdSubst:
		return CommandSubstitution{baseWord{sp}, c.cmdSubstBody(v), v.Backquotes}
	case *syntax.ArithmExp:
		body := ""
		if v.X != nil {
			body = c.slice(source.NewSpan(int(v.X.Pos().Offset()), int(v.X.End().Offset())))
		}
		return ArithmeticExpansion{baseWord{sp}, body}
	default:
		// ExtGlob, ProcSubst, and anything else mvdan's grammar recognizes
		// that this package's WordExpr has no node for: preserved
		// byte-for-byte, not decomposed, same as the old builder's fallback.
		return Opaque{baseWord{sp}, c.slice(sp)}
	}
}

func (c *converter) cmdSubstBody(v *syntax.CmdSubst) string {
	if len(v.Stmts) == 0 {
		return ""
	}
	start := int(v.Stmts[0].Pos().Offset())
	end := int(v.Stmts[len(v.Stmts)-1].End().Offset())
	return c.slice(source.NewSpan(start, end))
}

func (c *converter) paramExp(v *syntax.ParamExp, sp source.Span) WordExpr {
	name := ""
	if v.Param != nil {
		name = v.Param.Value
	}
	braced := !v.Short
	op, operand := "", ""
	switch {
	case v.Exp != nil:
		op = v.Exp.Op.String()
		if v.Exp.Word != nil {
			operand = c.slice(source.NewSpan(int(v.Exp.Word.Pos().Offset()), int(v.Exp.Word.End().Offset())))
		}
	case v.Index != nil:
		operand = "[" + c.slice(source.NewSpan(int(v.Index.Pos().Offset()), int(v.Index.End().Offset()))) + "]"
	case v.Length:
		name = "#" + name
	}
	return ParamExpansion{baseWord{sp}, name, op, operand, braced}
}

// fillBlanks re-inserts Blank items for whitespace-only lines the statement
// list skips over. mvdan's AST has no node for an empty line; this package's
// rule surface doesn't inspect Blank either (see DESIGN.md), but parser
// callers and tests still expect one Item per source line to hold, so gaps
// are reconciled against the line index instead of left as silent holes.
func (c *converter) fillBlanks(items []Item) []Item {
	total := c.src.LineCount()
	if total == 0 {
		return items
	}
	claimed := make([]bool, total+1)
	byLine := make(map[int][]Item, len(items))
	for _, it := range items {
		sp := it.Span()
		startLine := c.src.OffsetToPosition(sp.Start).Line
		endOffset := sp.End - 1
		if endOffset < sp.Start {
			endOffset = sp.Start
		}
		endLine := c.src.OffsetToPosition(endOffset).Line
		for l := startLine; l <= endLine && l <= total; l++ {
			claimed[l] = true
		}
		byLine[startLine] = append(byLine[startLine], it)
	}
	lineStarts := computeLineStarts(c.src.Bytes())

	var out []Item
	for l := 1; l <= total; l++ {
		out = append(out, byLine[l]...)
		if claimed[l] {
			continue
		}
		if l == total && lineStarts[l-1] >= c.src.Len() {
			// The empty phantom "line" after a final '\n' is not counted by
			// LineCount, so total stops before it; this guard keeps such a
			// position from ever getting a Blank item.
			continue
		}
		if strings.TrimSpace(c.src.Line(l)) != "" {
			continue
		}
		start := lineStarts[l-1]
		end := start
		if start < c.src.Len() {
			end = start + 1
		}
		out = append(out, Blank{baseItem{source.NewSpan(start, end)}})
	}
	return out
}

func computeLineStarts(data []byte) []int {
	starts := []int{0}
	for i, b := range data {
		if b == '\n' {
			starts = append(starts, i+1)
		}
	}
	return starts
}
