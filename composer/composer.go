// Package composer merges the Edits attached to a rule run's findings into a
// single purified buffer: filter to the safe-autofix allowlist, resolve
// overlapping edits by a fixed category priority, then apply right-to-left
// so earlier spans stay valid.
package composer

import (
	"sort"

	"github.com/purish/purish/rules"
	"github.com/purish/purish/source"
)

// Conflict records one overlap the composer resolved by discarding an edit.
type Conflict struct {
	Span     source.Span
	KeptRule string
	Dropped  string
}

// Result is one Compose call's outcome.
type Result struct {
	Text      []byte
	Applied   []string // rule ids whose edit was applied, in source order
	Conflicts []Conflict
}

// SafeAllowlist returns the set of rule ids reg's rules advertise as
// AutofixSafe — the allowlist Compose filters edits against. Experimental
// autofixes never enter this set; a caller wanting them opted in builds its
// own allowlist instead of calling this helper.
func SafeAllowlist(reg *rules.Registry) map[string]bool {
	allow := make(map[string]bool)
	for _, r := range reg.Rules() {
		if r.Metadata().Autofix == rules.AutofixSafe {
			allow[r.Metadata().ID] = true
		}
	}
	return allow
}

type candidate struct {
	edit     rules.Edit
	category rules.Category
}

// Compose runs the composition algorithm over findings' attached edits,
// against src's original bytes.
//
//  1. drop edits whose rule id is not in allowed
//  2. sort remaining edits by (span.start, span.end)
//  3. resolve overlaps by rules.CategoryPriority, lower value wins; the
//     loser is recorded as a Conflict rather than failing the run
//  4. apply the surviving edits right-to-left
func Compose(src *source.Source, findings []rules.Finding, allowed map[string]bool) Result {
	var candidates []candidate
	for _, f := range findings {
		if f.Fix == nil || !allowed[f.RuleID] {
			continue
		}
		candidates = append(candidates, candidate{edit: *f.Fix, category: f.Category})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].edit.Span.Start != candidates[j].edit.Span.Start {
			return candidates[i].edit.Span.Start < candidates[j].edit.Span.Start
		}
		return candidates[i].edit.Span.End < candidates[j].edit.Span.End
	})

	var accepted []candidate
	var conflicts []Conflict
	for _, c := range candidates {
		overlap := findOverlap(accepted, c.edit.Span)
		switch {
		case overlap < 0:
			accepted = append(accepted, c)
		case rules.CategoryPriority[c.category] < rules.CategoryPriority[accepted[overlap].category]:
			conflicts = append(conflicts, Conflict{Span: c.edit.Span, KeptRule: c.edit.RuleID, Dropped: accepted[overlap].edit.RuleID})
			accepted[overlap] = c
		default:
			conflicts = append(conflicts, Conflict{Span: c.edit.Span, KeptRule: accepted[overlap].edit.RuleID, Dropped: c.edit.RuleID})
		}
	}

	sort.SliceStable(accepted, func(i, j int) bool {
		return accepted[i].edit.Span.Start > accepted[j].edit.Span.Start
	})

	buf := append([]byte(nil), src.Bytes()...)
	applied := make([]string, 0, len(accepted))
	for _, a := range accepted {
		buf = applyEdit(buf, a.edit)
		applied = append(applied, a.edit.RuleID)
	}
	// accepted (and so applied) is in right-to-left application order;
	// report it in source order instead.
	reverseStrings(applied)

	return Result{Text: buf, Applied: applied, Conflicts: conflicts}
}

func findOverlap(accepted []candidate, sp source.Span) int {
	for i, a := range accepted {
		if a.edit.Span.Overlaps(sp) {
			return i
		}
	}
	return -1
}

func applyEdit(buf []byte, e rules.Edit) []byte {
	out := make([]byte, 0, len(buf)-e.Span.Len()+len(e.ReplacementText))
	out = append(out, buf[:e.Span.Start]...)
	out = append(out, e.ReplacementText...)
	out = append(out, buf[e.Span.End:]...)
	return out
}

func reverseStrings(s []string) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
