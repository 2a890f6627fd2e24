// Package source owns the immutable input buffer and the byte-offset/line-column
// index that every diagnostic and AST node is anchored to.
package source

import "sort"

// Source is an immutable byte buffer plus a precomputed line-start index.
// A Source is created once per analyze/purify request and dropped at the end
// of it; it is never shared across inputs and never mutated after construction.
type Source struct {
	filename   string
	data       []byte
	lineStarts []int // byte offset of the first byte of each line; lineStarts[0] == 0
}

// New constructs a Source, precomputing the line-start index in a single pass.
func New(filename string, data []byte) *Source {
	lineStarts := make([]int, 1, 16)
	lineStarts[0] = 0
	for i, b := range data {
		if b == '\n' {
			lineStarts = append(lineStarts, i+1)
		}
	}
	return &Source{filename: filename, data: data, lineStarts: lineStarts}
}

// Filename returns the name the source was constructed with.
func (s *Source) Filename() string { return s.filename }

// Bytes returns the full underlying buffer. Callers must not mutate it.
func (s *Source) Bytes() []byte { return s.data }

// Len returns the number of bytes in the buffer.
func (s *Source) Len() int { return len(s.data) }

// LineCount returns the number of lines in the buffer (0 for an empty buffer).
func (s *Source) LineCount() int {
	if len(s.data) == 0 {
		return 0
	}
	n := len(s.lineStarts)
	if s.lineStarts[n-1] == len(s.data) {
		n-- // a final '\n' does not start another line
	}
	return n
}

// Position is a 1-based line and column. Columns are counted in bytes, not
// runes or grapheme clusters — documented in the package doc and mirrored by
// every caller that renders a Position.
type Position struct {
	Line   int
	Column int
}

// OffsetToPosition maps a byte offset into the buffer to a 1-based (line, column)
// in O(log n) via binary search over the precomputed line starts.
func (s *Source) OffsetToPosition(offset int) Position {
	if offset < 0 {
		offset = 0
	}
	if offset > len(s.data) {
		offset = len(s.data)
	}
	// Find the last line start <= offset.
	i := sort.Search(len(s.lineStarts), func(i int) bool {
		return s.lineStarts[i] > offset
	})
	lineIdx := i - 1
	if lineIdx < 0 {
		lineIdx = 0
	}
	if lineIdx > 0 && s.lineStarts[lineIdx] == len(s.data) {
		lineIdx-- // the end of a buffer ending in '\n' belongs to its last line
	}
	return Position{
		Line:   lineIdx + 1,
		Column: offset - s.lineStarts[lineIdx] + 1,
	}
}

// Line returns the content of the 1-based line n, excluding the trailing
// line feed (if any). Returns "" if n is out of range.
func (s *Source) Line(n int) string {
	if n < 1 || n > len(s.lineStarts) {
		return ""
	}
	start := s.lineStarts[n-1]
	var end int
	if n < len(s.lineStarts) {
		end = s.lineStarts[n] - 1 // exclude the newline
	} else {
		end = len(s.data)
	}
	if end < start {
		end = start
	}
	return string(s.data[start:end])
}

// Slice returns the bytes within a Span, clamped to the buffer bounds.
func (s *Source) Slice(sp Span) []byte {
	start, end := sp.Start, sp.End
	if start < 0 {
		start = 0
	}
	if end > len(s.data) {
		end = len(s.data)
	}
	if end < start {
		end = start
	}
	return s.data[start:end]
}
