// Package dockerfile performs the minimal instruction split the core needs
// to run DOCKER003 against a Dockerfile's RUN bodies. The shell rules
// (SEC*, IDEM*) read only a whole-buffer shell Program and do not scan
// these RUN bodies. It is deliberately thin: no instruction-specific validation,
// no ARG/ONBUILD expansion, no base-image resolution — just enough
// structure to find each instruction and hand RUN's body to the shell
// parser.
package dockerfile

import (
	"strings"

	"github.com/purish/purish/lex"
	"github.com/purish/purish/shellast"
	"github.com/purish/purish/source"
)

// Instruction is one Dockerfile instruction line (after backslash-line-join).
type Instruction struct {
	Keyword string // upper-cased, e.g. "RUN", "FROM", "COPY"
	Args    string // raw text after the keyword, opaque except for RUN
	Span    source.Span

	// ArgsSpan is Args' absolute span in the original buffer. RunBody's
	// node spans are relative to Args (0-based), since the shell parser
	// parses Args as its own standalone buffer; a rule consuming RunBody
	// must call Translate to recover absolute spans.
	ArgsSpan source.Span

	// RunBody is non-nil only for a shell-form RUN instruction (the
	// common case). Exec-form (`RUN ["executable", "arg"]`) is left
	// unparsed: JSON-array argv has no shell syntax for SEC*/IDEM* to
	// examine.
	RunBody   *shellast.Program
	RunIssues []lex.Issue
}

// Translate maps a span relative to Args (as produced by parsing RunBody)
// to an absolute span in the original Dockerfile buffer.
func (i Instruction) Translate(sp source.Span) source.Span {
	return source.NewSpan(i.ArgsSpan.Start+sp.Start, i.ArgsSpan.Start+sp.End)
}

// Dockerfile is the root of a split Dockerfile buffer.
type Dockerfile struct {
	Instructions []Instruction
}

type logicalLine struct {
	text string
	span source.Span
}

// Parse splits src into instructions, joining backslash-continued lines
// (each backslash-newline pair becomes two spaces, so offsets into the
// joined text match the original buffer), and parses every shell-form RUN body.
func Parse(src *source.Source) *Dockerfile {
	lines := joinContinuations(src.Bytes())
	df := &Dockerfile{}
	for _, l := range lines {
		trimmed := strings.TrimSpace(l.text)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		kw, args, argsOffsetInLine := splitKeyword(l.text, trimmed)
		inst := Instruction{
			Keyword:  strings.ToUpper(kw),
			Args:     args,
			Span:     l.span,
			ArgsSpan: source.NewSpan(l.span.Start+argsOffsetInLine, l.span.Start+argsOffsetInLine+len(args)),
		}
		if inst.Keyword == "RUN" && !strings.HasPrefix(strings.TrimSpace(args), "[") {
			bodySrc := source.New(src.Filename(), []byte(args))
			prog, issues := shellast.Parse(bodySrc)
			inst.RunBody = prog
			inst.RunIssues = issues
		}
		df.Instructions = append(df.Instructions, inst)
	}
	return df
}

// splitKeyword splits a trimmed instruction line into its keyword and
// argument text, and reports the byte offset of the argument text within
// the untrimmed original line (so callers can compute an absolute span).
func splitKeyword(original, trimmed string) (keyword, args string, argsOffset int) {
	i := strings.IndexAny(trimmed, " \t")
	if i < 0 {
		return trimmed, "", len(original)
	}
	keyword = trimmed[:i]
	rest := trimmed[i:]
	restTrimmed := strings.TrimLeft(rest, " \t")
	leadingInOriginal := strings.Index(original, trimmed)
	if leadingInOriginal < 0 {
		leadingInOriginal = 0
	}
	argsOffset = leadingInOriginal + len(trimmed) - len(restTrimmed)
	return keyword, restTrimmed, argsOffset
}

func joinContinuations(data []byte) []logicalLine {
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
				buf = append(buf, ' ', ' ') // one byte each for the '\\' and the '\n'
			} else {
				buf = append(buf, segment...)
			}
			if j < len(data) {
				j++
			}
			i = j
			if !hasContinuation || i >= len(data) {
				break
			}
		}
		lines = append(lines, logicalLine{text: string(buf), span: source.NewSpan(lineStart, i)})
	}
	return lines
}
