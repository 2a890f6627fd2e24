// Package makeast builds a Makefile AST with line-continuation preprocessing
// and byte-faithful recipe preservation, mirroring the two-phase design (line
// joining, then recursive descent over logical lines) that a Makefile parser
// needs to both understand variables/rules and round-trip recipes exactly.
package makeast

import "github.com/purish/purish/source"

// Item is one top-level element of a Makefile.
type Item interface {
	Span() source.Span
	itemNode()
}

type baseItem struct {
	Sp source.Span
}

func (b baseItem) Span() source.Span { return b.Sp }

// Makefile is the root of a parsed Makefile buffer.
type Makefile struct {
	Items []Item
}

// AssignOp enumerates the recognized Makefile assignment operators.
type AssignOp string

const (
	AssignRecursive AssignOp = "="
	AssignSimple    AssignOp = ":="
	AssignQuestion  AssignOp = "?="
	AssignAppend    AssignOp = "+="
)

// Variable is a `NAME <op> value` top-level assignment.
type Variable struct {
	baseItem
	Name  string
	Op    AssignOp
	Value string // opaque: $(...) / automatic variables are never expanded
}

func (Variable) itemNode() {}

// RecipeLine stores a recipe line two ways: Logical is the single line after
// backslash-continuation joining (what rules scan), Original is the original
// multi-line text including continuation backslashes (what the purifier
// writes back byte-for-byte).
type RecipeLine struct {
	Span     source.Span
	Logical  string
	Original string
}

// Target is `name[ name...]: [prereqs] [| order-only-prereqs]` followed by
// zero or more tab-indented recipe lines.
type Target struct {
	baseItem
	Names            []string
	Prereqs          []string
	OrderOnlyPrereqs []string
	Recipe           []RecipeLine
	IsPhony          bool
}

func (Target) itemNode() {}

// PatternRule is a `%.o: %.c`-style implicit rule.
type PatternRule struct {
	baseItem
	Pattern       string
	PrereqPattern []string
	Recipe        []RecipeLine
}

func (PatternRule) itemNode() {}

// Include is `include`/`-include`/`sinclude`.
type Include struct {
	baseItem
	Paths    []string
	Optional bool
}

func (Include) itemNode() {}

// ConditionalKind enumerates the four Makefile conditional directives.
type ConditionalKind int

const (
	CondIfeq ConditionalKind = iota
	CondIfneq
	CondIfdef
	CondIfndef
)

// ConditionalBranch pairs a branch's (possibly empty for else) arguments
// with its body items.
type ConditionalBranch struct {
	Args []string
	Body []Item
}

// Conditional is `ifeq/ifneq/ifdef/ifndef ... [else ...] endif`.
type Conditional struct {
	baseItem
	Kind     ConditionalKind
	Branches []ConditionalBranch // first is the if-branch, second (if present) the else
}

func (Conditional) itemNode() {}

// Directive is any other recognized top-level keyword line (export,
// unexport, override, define/endef, vpath, ...), preserved opaquely.
type Directive struct {
	baseItem
	Keyword string
	Rest    string
}

func (Directive) itemNode() {}

// Comment is a `#...` line.
type Comment struct {
	baseItem
	Text string
}

func (Comment) itemNode() {}

// Blank is an empty line.
type Blank struct {
	baseItem
}

func (Blank) itemNode() {}
