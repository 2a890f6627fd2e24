// Package rules is the rule engine: a registry of independent, stateless
// diagnostic/fixer rules, and the driver that runs a selected subset of them
// over one parsed input and aggregates their findings into a stable,
// filterable report.
//
// The complexity score a Summary reports is
// min(10, round(errors*3 + warnings*1 + infos*0.25)), clamped to [0, 10]:
// deterministic, monotone in issue count, and weighted toward
// correctness-grade findings without letting a file with many Info-level
// notes alone max out the score.
package rules

import (
	"fmt"
	"math"
	"sort"

	"github.com/pkg/errors"

	"github.com/purish/purish/configview"
	"github.com/purish/purish/dockerfile"
	"github.com/purish/purish/makeast"
	"github.com/purish/purish/shellast"
	"github.com/purish/purish/source"
)

// Severity mirrors the spec's {Error, Warning, Info} severity lattice;
// numeric ordering matters (Options.SeverityThreshold compares by value).
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "Error"
	case SeverityWarning:
		return "Warning"
	default:
		return "Info"
	}
}

// Autofix is a rule's autofix capability.
type Autofix int

const (
	AutofixNone Autofix = iota
	AutofixSafe
	AutofixExperimental
)

// Category is one of the rule namespace families; it also drives the
// composer's fixed overlap-resolution priority (see CategoryPriority).
type Category string

const (
	CategoryShellcheck  Category = "shellcheck"
	CategorySecurity    Category = "security"
	CategoryDeterminism Category = "determinism"
	CategoryIdempotency Category = "idempotency"
	CategoryConfig      Category = "config"
	CategoryMakefile    Category = "makefile"
	CategoryDockerfile  Category = "dockerfile"
)

// CategoryPriority ranks categories for the autofix composer's overlap
// resolution: security > idempotency > determinism > config > shellcheck,
// per the composer contract. Lower value wins. Makefile/Dockerfile findings
// never compete for the same span as shell/config findings in practice, but
// are given the lowest priority for completeness.
var CategoryPriority = map[Category]int{
	CategorySecurity:    0,
	CategoryIdempotency: 1,
	CategoryDeterminism: 2,
	CategoryConfig:      3,
	CategoryShellcheck:  4,
	CategoryMakefile:    5,
	CategoryDockerfile:  6,
}

// EditKind is the shape of a single autofix edit.
type EditKind int

const (
	EditReplace EditKind = iota
	EditInsert
	EditDelete
)

// Edit is one autofix operation a rule proposes alongside a Finding.
type Edit struct {
	Span            source.Span
	ReplacementText string
	Kind            EditKind
	RuleID          string
}

// Finding is a single diagnostic emitted by one rule at one span.
type Finding struct {
	RuleID     string
	Severity   Severity
	Category   Category
	Span       source.Span
	Message    string
	Suggestion string // "" means absent
	Fix        *Edit  // nil means absent
}

// Metadata identifies a rule and its default policy.
type Metadata struct {
	ID              string
	DefaultSeverity Severity
	Category        Category
	Autofix         Autofix
	// Disabled marks a rule registered but off by default (known
	// false-positive risk). It stays in the registry and can still be
	// turned on via Options.EnabledRuleIDs.
	Disabled bool
}

// Input bundles the parsed artifacts a rule may consult. Exactly the
// field(s) matching the input's kind are populated; a rule declares which
// kind(s) it applies to implicitly by which field(s) it reads.
type Input struct {
	Source *source.Source
	Shell  *shellast.Program
	Config *configview.View
	Make   *makeast.Makefile
	Docker *dockerfile.Dockerfile
	// Options is populated by Engine.Run from its own Options argument, so a
	// rule whose behavior is option-gated (CONFIG-002's QuotePositionalParams)
	// can read it without widening the Rule interface itself.
	Options Options
}

// Rule is a pure, stateless diagnostic/fixer: metadata plus a check
// function. Modeled as a capability set (an interface value held in the
// registry) rather than a class hierarchy, per the no-inheritance design.
type Rule interface {
	Metadata() Metadata
	Check(in Input) []Finding
}

// CancellationToken is checked between rules. A nil token is never
// cancelled; callers that don't need cancellation simply omit it.
type CancellationToken interface {
	Cancelled() bool
}

// Options configures one Engine.Run invocation.
type Options struct {
	SeverityThreshold Severity
	EnabledRuleIDs    []string // non-empty: exact allowlist, overriding Disabled
	DisabledRuleIDs   []string // subtracted after EnabledRuleIDs/defaults
	MaxLineLength     int
	PreserveFormatting     bool
	SkipBlankLineRemoval   bool
	QuotePositionalParams  bool // gates CONFIG-002 quoting $1/$@/$*/$#, default false
	Cancellation           CancellationToken
}

// Registry is an effectively-immutable, duplicate-id-checked set of rules.
// Safe to share across concurrent Engine.Run calls once construction (all
// Register calls) is complete.
type Registry struct {
	rules []Rule
	byID  map[string]int
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byID: make(map[string]int)}
}

// Register adds rule to the registry. It fails if rule's id is already
// registered.
func (r *Registry) Register(rule Rule) error {
	id := rule.Metadata().ID
	if _, exists := r.byID[id]; exists {
		return errors.Errorf("rules: duplicate rule id %q", id)
	}
	r.byID[id] = len(r.rules)
	r.rules = append(r.rules, rule)
	return nil
}

// MustRegister is Register, panicking on error. Intended for package-init
// style registration of built-in rules, where a duplicate id is a
// programming error, not a runtime condition.
func (r *Registry) MustRegister(rule Rule) {
	if err := r.Register(rule); err != nil {
		panic(err)
	}
}

// Rules returns a defensive copy of the registered rules, in registration
// order.
func (r *Registry) Rules() []Rule {
	out := make([]Rule, len(r.rules))
	copy(out, r.rules)
	return out
}

// Lookup returns the rule registered under id, if any.
func (r *Registry) Lookup(id string) (Rule, bool) {
	i, ok := r.byID[id]
	if !ok {
		return nil, false
	}
	return r.rules[i], true
}

// Engine drives a Registry's rules over one Input.
type Engine struct {
	registry *Registry
}

// NewEngine returns an Engine bound to registry.
func NewEngine(registry *Registry) *Engine {
	return &Engine{registry: registry}
}

// RunResult is the outcome of one Engine.Run call.
type RunResult struct {
	Findings  []Finding
	Cancelled bool
}

// Run invokes every enabled rule (in registration order) against in,
// checking opts.Cancellation between rules, and returns findings filtered
// by opts.SeverityThreshold and sorted by (span.start, rule_id).
func (e *Engine) Run(in Input, opts Options) RunResult {
	enabled := buildEnabledSet(e.registry, opts)
	in.Options = opts
	var findings []Finding
	result := RunResult{}

	for _, rule := range e.registry.rules {
		if opts.Cancellation != nil && opts.Cancellation.Cancelled() {
			result.Cancelled = true
			break
		}
		meta := rule.Metadata()
		if !enabled[meta.ID] {
			continue
		}
		for _, f := range rule.Check(in) {
			if f.Severity < opts.SeverityThreshold {
				continue
			}
			findings = append(findings, f)
		}
	}

	sortFindings(findings)
	result.Findings = findings
	return result
}

func buildEnabledSet(reg *Registry, opts Options) map[string]bool {
	enabled := make(map[string]bool, len(reg.rules))
	if len(opts.EnabledRuleIDs) > 0 {
		allow := make(map[string]bool, len(opts.EnabledRuleIDs))
		for _, id := range opts.EnabledRuleIDs {
			allow[id] = true
		}
		for _, rule := range reg.rules {
			if allow[rule.Metadata().ID] {
				enabled[rule.Metadata().ID] = true
			}
		}
	} else {
		for _, rule := range reg.rules {
			if !rule.Metadata().Disabled {
				enabled[rule.Metadata().ID] = true
			}
		}
	}
	for _, id := range opts.DisabledRuleIDs {
		delete(enabled, id)
	}
	return enabled
}

func sortFindings(findings []Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		if findings[i].Span.Start != findings[j].Span.Start {
			return findings[i].Span.Start < findings[j].Span.Start
		}
		return findings[i].RuleID < findings[j].RuleID
	})
}

// Summary is the aggregate issue count/severity breakdown for one report.
type Summary struct {
	IssueCount      int
	ErrorCount      int
	WarningCount    int
	InfoCount       int
	LineCount       int
	ComplexityScore int
}

// BuildSummary aggregates findings (already filtered/sorted by the caller,
// typically an Engine.Run result) into a Summary for a source of lineCount
// lines.
func BuildSummary(findings []Finding, lineCount int) Summary {
	s := Summary{LineCount: lineCount}
	for _, f := range findings {
		s.IssueCount++
		switch f.Severity {
		case SeverityError:
			s.ErrorCount++
		case SeverityWarning:
			s.WarningCount++
		default:
			s.InfoCount++
		}
	}
	raw := float64(s.ErrorCount)*3 + float64(s.WarningCount)*1 + float64(s.InfoCount)*0.25
	score := int(math.Round(raw))
	if score > 10 {
		score = 10
	}
	if score < 0 {
		score = 0
	}
	s.ComplexityScore = score
	return s
}

// InternalError is the core's "this is a bug" error type: it carries the
// offending span (when known) so a report can be reproduced.
type InternalError struct {
	Span  source.Span
	Cause error
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("rules: internal error at byte %d-%d: %v", e.Span.Start, e.Span.End, e.Cause)
}

func (e *InternalError) Unwrap() error { return e.Cause }
