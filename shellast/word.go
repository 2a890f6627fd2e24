package shellast

import "github.com/purish/purish/source"

// WordExpr is one operand of a command, assignment right-hand side, or
// redirection target. The shell grammar nests these (a double-quoted string
// can contain a command substitution which contains further words), so
// WordExpr is a sum type over the concrete kinds below.
type WordExpr interface {
	Span() source.Span
	wordExprNode()
}

type baseWord struct {
	Sp source.Span
}

func (b baseWord) Span() source.Span { return b.Sp }

// Literal is an unquoted run of non-expansion text.
type Literal struct {
	baseWord
	Text string
}

func (Literal) wordExprNode() {}

// SingleQuoted is a '...' string; Text is the content without the quotes,
// with no escape processing (single quotes disable all interpolation).
type SingleQuoted struct {
	baseWord
	Text string
}

func (SingleQuoted) wordExprNode() {}

// DoubleQuoted is a "..." string; Parts are the interpolated pieces inside
// (Literal runs interspersed with expansions).
type DoubleQuoted struct {
	baseWord
	Parts []WordExpr
}

func (DoubleQuoted) wordExprNode() {}

// ParamExpansion is $NAME, ${NAME}, or ${NAME<op>word} (e.g. ${NAME:-default}).
type ParamExpansion struct {
	baseWord
	Name    string
	Op      string // e.g. ":-", ":=", "#", "##", "" for bare $NAME/${NAME}
	Operand string // text to the right of Op, opaque
	Braced  bool
}

func (ParamExpansion) wordExprNode() {}

// CommandSubstitution is $(...) or the legacy `...` form. The body is kept
// as opaque raw text per the non-goal of resolving runtime expansions: rules
// that care about its contents (DET003's `date` check, SC2006's rewrite)
// read Body as plain text.
type CommandSubstitution struct {
	baseWord
	Body        string
	LegacyTicks bool
}

func (CommandSubstitution) wordExprNode() {}

// ArithmeticExpansion is $((...)). Body is kept opaque.
type ArithmeticExpansion struct {
	baseWord
	Body string
}

func (ArithmeticExpansion) wordExprNode() {}

// Concatenation is an adjacent run of word pieces with no separating
// whitespace, e.g. `$HOME/projects` or `"pre"$X"post"`.
type Concatenation struct {
	baseWord
	Parts []WordExpr
}

func (Concatenation) wordExprNode() {}

// Opaque is raw text the word builder could not decompose confidently; it
// round-trips byte-for-byte but exposes no structure to rules.
type Opaque struct {
	baseWord
	Text string
}

func (Opaque) wordExprNode() {}

// NewLiteral builds a Literal with an explicit span, for callers outside
// this package (e.g. configview) that derive a sub-word from an existing
// node — such as the value half of a `NAME=value` word — and need to keep
// its span absolute and accurate.
func NewLiteral(text string, span source.Span) Literal {
	return Literal{baseWord{span}, text}
}

// NewConcatenation builds a Concatenation with an explicit span, mirroring
// NewLiteral for composite sub-words.
func NewConcatenation(parts []WordExpr, span source.Span) Concatenation {
	return Concatenation{baseWord{span}, parts}
}
