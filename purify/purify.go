// Package purify wires the rule engine and the composer into the three
// driver rule-subsets the core exposes, each running its own structural
// normalization pass ahead of rule-driven edits, per the driver contracts.
package purify

import (
	"sort"
	"strings"

	"github.com/purish/purish/composer"
	"github.com/purish/purish/configview"
	"github.com/purish/purish/dockerfile"
	"github.com/purish/purish/makeast"
	"github.com/purish/purish/rules"
	"github.com/purish/purish/rules/configrules"
	"github.com/purish/purish/rules/dockerrules"
	"github.com/purish/purish/rules/makerules"
	"github.com/purish/purish/rules/shellrules"
	"github.com/purish/purish/shellast"
	"github.com/purish/purish/source"
)

// Kind is the input shape a Driver parses and scans.
type Kind int

const (
	KindShell Kind = iota
	KindConfig
	KindMakefile
	KindDockerfile
)

// Driver bundles a Kind with the rule registry its purifier runs.
type Driver struct {
	kind     Kind
	registry *rules.Registry
}

// ShellDriver runs {SEC*, SC2086, IDEM*, DET*} — DET* never attaches a Fix
// (AutofixNone), so it always surfaces as a warning-only finding regardless
// of what's in the safe-autofix allowlist.
func ShellDriver() *Driver {
	reg := rules.NewRegistry()
	shellrules.Register(reg)
	return &Driver{kind: KindShell, registry: reg}
}

// ConfigDriver runs {CONFIG-001..004, CONFIG-007, SC2086}.
func ConfigDriver() *Driver {
	reg := rules.NewRegistry()
	configrules.Register(reg)
	full := rules.NewRegistry()
	shellrules.Register(full)
	if sc2086, ok := full.Lookup("SC2086"); ok {
		reg.MustRegister(sc2086)
	}
	return &Driver{kind: KindConfig, registry: reg}
}

// MakefileDriver runs {MAKE*, DOCKER003}. The same registry also serves
// standalone Dockerfile purification (DOCKER003 "when applicable" per the
// driver contract): MAKE* rules simply find nothing when in.Make is nil.
func MakefileDriver() *Driver {
	reg := rules.NewRegistry()
	makerules.Register(reg)
	dockerrules.Register(reg)
	return &Driver{kind: KindMakefile, registry: reg}
}

// DockerfileDriver is MakefileDriver's registry under the Dockerfile kind,
// for a caller purifying a standalone Dockerfile (analyze's four kinds
// include "dockerfile" even though the driver list names only three —
// DOCKER003 is the sole Dockerfile-native rule and already lives in
// MakefileDriver's registry).
func DockerfileDriver() *Driver {
	d := MakefileDriver()
	return &Driver{kind: KindDockerfile, registry: d.registry}
}

// Registry exposes the driver's rule set, e.g. for computing a safe-autofix
// allowlist or listing available rule ids.
func (d *Driver) Registry() *rules.Registry { return d.registry }

// Analyze parses text per d's kind and runs every enabled rule, without
// applying any edits.
func (d *Driver) Analyze(filename string, text []byte, opts rules.Options) (*source.Source, rules.RunResult) {
	src := source.New(filename, text)
	in := d.buildInput(src)
	engine := rules.NewEngine(d.registry)
	return src, engine.Run(in, opts)
}

// Result is one Purify call's outcome.
type Result struct {
	Text      []byte
	Findings  []rules.Finding
	Conflicts []composer.Conflict
}

// Purify runs d's structural normalization pass, then the rule engine and
// composer, against text.
func (d *Driver) Purify(filename string, text []byte, opts rules.Options) Result {
	normalized := d.normalize(filename, text, opts)
	src := source.New(filename, normalized)
	in := d.buildInput(src)
	engine := rules.NewEngine(d.registry)
	analyzed := engine.Run(in, opts)
	allowed := composer.SafeAllowlist(d.registry)
	composed := composer.Compose(src, analyzed.Findings, allowed)
	return Result{Text: composed.Text, Findings: analyzed.Findings, Conflicts: composed.Conflicts}
}

func (d *Driver) buildInput(src *source.Source) rules.Input {
	switch d.kind {
	case KindShell:
		prog, _ := shellast.Parse(src)
		return rules.Input{Source: src, Shell: prog}
	case KindConfig:
		prog, _ := shellast.Parse(src)
		return rules.Input{Source: src, Shell: prog, Config: configview.Build(src, prog)}
	case KindMakefile:
		mk, _ := makeast.Parse(src)
		return rules.Input{Source: src, Make: mk}
	case KindDockerfile:
		df := dockerfile.Parse(src)
		return rules.Input{Source: src, Docker: df}
	default:
		return rules.Input{Source: src}
	}
}

// normalize runs the structural normalization pass the driver contract says
// precedes rule-driven edits: shebang downgrade for shell/config buffers,
// .PHONY aggregation for Makefile buffers.
func (d *Driver) normalize(filename string, text []byte, opts rules.Options) []byte {
	switch d.kind {
	case KindShell, KindConfig:
		return normalizeShebang(text)
	case KindMakefile:
		if opts.PreserveFormatting {
			return text
		}
		return aggregatePhony(filename, text)
	default:
		return text
	}
}

const bashShebangLine = "#!/bin/bash"

// bashOnlyMarkers are substrings with no POSIX sh equivalent; their presence
// anywhere in the buffer blocks the #!/bin/bash -> #!/bin/sh downgrade.
var bashOnlyMarkers = []string{
	"[[", "function ", "local ", "=~", "$RANDOM", "((", "readarray", "mapfile", "declare -a", "select ",
}

// normalizeShebang downgrades an exact "#!/bin/bash" first line to
// "#!/bin/sh" when no bash-only construct survives elsewhere in the buffer.
// A shebang carrying interpreter flags (e.g. "#!/bin/bash -eu") is left
// alone rather than risk dropping behavior the flags depend on.
func normalizeShebang(data []byte) []byte {
	nl := indexByte(data, '\n')
	line := data
	if nl >= 0 {
		line = data[:nl]
	}
	if strings.TrimRight(string(line), "\r") != bashShebangLine {
		return data
	}
	rest := data[len(line):]
	if containsBashOnlyConstruct(string(rest)) {
		return data
	}
	out := make([]byte, 0, len(data)-len(bashShebangLine)+len("#!/bin/sh"))
	out = append(out, "#!/bin/sh"...)
	out = append(out, rest...)
	return out
}

func containsBashOnlyConstruct(text string) bool {
	for _, m := range bashOnlyMarkers {
		if strings.Contains(text, m) {
			return true
		}
	}
	return false
}

func indexByte(data []byte, b byte) int {
	for i, c := range data {
		if c == b {
			return i
		}
	}
	return -1
}

// aggregatePhony merges every `.PHONY:` target's prerequisite list into the
// first one, removing the rest, preserving declared order and dropping
// duplicates. A buffer with zero or one `.PHONY:` declaration is returned
// unchanged.
func aggregatePhony(filename string, data []byte) []byte {
	src := source.New(filename, data)
	mk, _ := makeast.Parse(src)
	if mk == nil {
		return data
	}
	var phonyTargets []makeast.Target
	for _, it := range mk.Items {
		if t, ok := it.(makeast.Target); ok && t.IsPhony {
			phonyTargets = append(phonyTargets, t)
		}
	}
	if len(phonyTargets) < 2 {
		return data
	}

	seen := make(map[string]bool)
	var names []string
	for _, t := range phonyTargets {
		for _, p := range t.Prereqs {
			if !seen[p] {
				seen[p] = true
				names = append(names, p)
			}
		}
	}

	firstSpan := phonyTargets[0].Span()
	replacement := ".PHONY: " + strings.Join(names, " ")
	if firstSpan.End > firstSpan.Start && data[firstSpan.End-1] == '\n' {
		replacement += "\n"
	}

	type edit struct {
		span source.Span
		text string
	}
	edits := []edit{{span: firstSpan, text: replacement}}
	for _, t := range phonyTargets[1:] {
		edits = append(edits, edit{span: t.Span(), text: ""})
	}
	sort.SliceStable(edits, func(i, j int) bool { return edits[i].span.Start > edits[j].span.Start })

	out := append([]byte(nil), data...)
	for _, e := range edits {
		merged := make([]byte, 0, len(out)-e.span.Len()+len(e.text))
		merged = append(merged, out[:e.span.Start]...)
		merged = append(merged, e.text...)
		merged = append(merged, out[e.span.End:]...)
		out = merged
	}
	return out
}
