// Package ruleprofile lets a project ship a YAML file of path-scoped rule
// overlays on top of the engine's built-in defaults: "treat every
// *.sh under vendor/ more leniently", "raise the line-length cap for
// generated Makefiles", and so on. Each overlay's Pattern is matched
// against the analyzed file's path with GlobMatch, and matching overlays
// are applied over the base Options in declared order, each one only
// overriding the fields it actually sets.
package ruleprofile

import (
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/purish/purish/rules"
)

// Overlay is one named, pattern-scoped set of option overrides. Fields use
// pointer/zero-means-unset semantics: only a field the YAML document
// actually sets is applied, mirroring the partial-override merge every
// other overlay in this codebase uses.
type Overlay struct {
	SeverityThreshold      *string  `yaml:"severity_threshold,omitempty"`
	EnabledRuleIDs         []string `yaml:"enabled_rule_ids,omitempty"`
	DisabledRuleIDs        []string `yaml:"disabled_rule_ids,omitempty"`
	MaxLineLength          int      `yaml:"max_line_length,omitempty"`
	PreserveFormatting     *bool    `yaml:"preserve_formatting,omitempty"`
	SkipBlankLineRemoval   *bool    `yaml:"skip_blank_line_removal,omitempty"`
	QuotePositionalParams  *bool    `yaml:"quote_positional_params,omitempty"`
}

// Rule is one profile entry: apply Options to every path Pattern matches.
type Rule struct {
	Name    string  `yaml:"name"`
	Pattern string  `yaml:"pattern"`
	Options Overlay `yaml:"options"`
}

// Profile is an ordered list of Rules, read from YAML.
type Profile struct {
	Rules []Rule `yaml:"rules"`
}

// Load parses data as a YAML rule profile.
func Load(data []byte) (*Profile, error) {
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, errors.Wrap(err, "ruleprofile: parse profile")
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate checks that every rule has a name, a pattern, and (if set) a
// recognized severity threshold.
func (p *Profile) Validate() error {
	for _, r := range p.Rules {
		if r.Name == "" {
			return errors.New("ruleprofile: rule with empty name")
		}
		if r.Pattern == "" {
			return errors.Errorf("ruleprofile: rule %q has empty pattern", r.Name)
		}
		if r.Options.SeverityThreshold != nil {
			if _, ok := parseSeverity(*r.Options.SeverityThreshold); !ok {
				return errors.Errorf("ruleprofile: rule %q has invalid severity_threshold %q",
					r.Name, *r.Options.SeverityThreshold)
			}
		}
	}
	return nil
}

// OptionsForPath returns base with every Rule whose Pattern matches path
// applied over it, in declared order.
func (p *Profile) OptionsForPath(path string, base rules.Options) rules.Options {
	out := base
	for _, r := range p.Rules {
		if GlobMatch(r.Pattern, path) {
			applyOverlay(&out, r.Options)
		}
	}
	return out
}

func applyOverlay(opts *rules.Options, o Overlay) {
	if o.SeverityThreshold != nil {
		if sev, ok := parseSeverity(*o.SeverityThreshold); ok {
			opts.SeverityThreshold = sev
		}
	}
	if len(o.EnabledRuleIDs) > 0 {
		opts.EnabledRuleIDs = append(append([]string(nil), opts.EnabledRuleIDs...), o.EnabledRuleIDs...)
	}
	if len(o.DisabledRuleIDs) > 0 {
		opts.DisabledRuleIDs = append(append([]string(nil), opts.DisabledRuleIDs...), o.DisabledRuleIDs...)
	}
	if o.MaxLineLength > 0 {
		opts.MaxLineLength = o.MaxLineLength
	}
	if o.PreserveFormatting != nil {
		opts.PreserveFormatting = *o.PreserveFormatting
	}
	if o.SkipBlankLineRemoval != nil {
		opts.SkipBlankLineRemoval = *o.SkipBlankLineRemoval
	}
	if o.QuotePositionalParams != nil {
		opts.QuotePositionalParams = *o.QuotePositionalParams
	}
}

func parseSeverity(s string) (rules.Severity, bool) {
	switch s {
	case "Error":
		return rules.SeverityError, true
	case "Warning":
		return rules.SeverityWarning, true
	case "Info":
		return rules.SeverityInfo, true
	default:
		return 0, false
	}
}
