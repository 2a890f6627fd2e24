// Package lex carries the one diagnostic type shared by the shell parser and
// its callers: a located, free-text parse issue. Tokenizing and lexical
// analysis themselves live in mvdan.cc/sh/v3/syntax, wired in by
// shellast.Parse; nothing here re-implements that layer.
package lex

import "github.com/purish/purish/source"

// Issue is a recoverable problem noticed while turning source text into a
// shellast.Program: an unparsable construct that got captured as opaque
// rather than aborting the whole parse, or an outright syntax error.
type Issue struct {
	Span    source.Span
	Message string
}
