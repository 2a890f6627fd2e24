// Package shellrules implements the SC####/SEC###/DET###/IDEM### namespaces:
// rules that scan a whole shellast.Program — every command reachable from
// top level, not just top-level statements — via shellast.Walk/Commands.
package shellrules

import (
	"fmt"
	"strings"

	"github.com/purish/purish/rules"
	"github.com/purish/purish/rules/quoting"
	"github.com/purish/purish/shellast"
	"github.com/purish/purish/source"
)

// Register adds every shellrules rule to reg.
func Register(reg *rules.Registry) {
	reg.MustRegister(unquotedExpansionRule{})
	reg.MustRegister(legacyBacktickRule{})
	reg.MustRegister(cdWithoutGuardRule{})
	reg.MustRegister(exitCodeViaDollarQuestionRule{})
	reg.MustRegister(unquotedCommandSubstitutionRule{})
	reg.MustRegister(randomSeedRule{})
	reg.MustRegister(pidInNameRule{})
	reg.MustRegister(timeDerivedRule{})
	reg.MustRegister(mkdirWithoutParentsRule{})
	reg.MustRegister(rmWithoutForceRule{})
	reg.MustRegister(lnWithoutForceRule{})
	reg.MustRegister(cpWithoutNoClobberRule{})
	reg.MustRegister(injectionSinkRule{})
	reg.MustRegister(mkdirPathTraversalRule{})
}

// walkWords visits word and every piece nested inside it (Concatenation and
// DoubleQuoted parts), regardless of quoting state — unlike the quoting
// package's scans, DET*/SEC* care whether a construct is *present* at all,
// not whether it would survive word-splitting.
func walkWords(word shellast.WordExpr, visit func(shellast.WordExpr)) {
	if word == nil {
		return
	}
	visit(word)
	switch w := word.(type) {
	case shellast.DoubleQuoted:
		for _, p := range w.Parts {
			walkWords(p, visit)
		}
	case shellast.Concatenation:
		for _, p := range w.Parts {
			walkWords(p, visit)
		}
	}
}

// everyCommandWord calls visit for every word reachable from every Command
// and Assignment in prog (leading assignments, assignment values, and
// arguments), via shellast.Walk.
func everyCommandWord(prog *shellast.Program, visit func(shellast.WordExpr)) {
	shellast.Walk(prog.Items, func(it shellast.Item) {
		switch v := it.(type) {
		case shellast.Assignment:
			walkWords(v.Value, visit)
		case shellast.Command:
			if v.Opaque {
				return
			}
			for _, a := range v.LeadingAssignments {
				walkWords(a.Value, visit)
			}
			for _, w := range v.Words {
				walkWords(w, visit)
			}
		}
	})
}

// literalFlagPresent reports whether any of words is a bare flag literal
// equal to one of names (e.g. "-p", "--parents").
func literalFlagPresent(words []shellast.WordExpr, names ...string) bool {
	for _, w := range words {
		lit, ok := w.(shellast.Literal)
		if !ok {
			continue
		}
		for _, n := range names {
			if lit.Text == n {
				return true
			}
			// a combined short-flag cluster like "-rf" or "-pv" still
			// counts if it contains the single-letter flag.
			if len(n) == 2 && strings.HasPrefix(n, "-") && strings.HasPrefix(lit.Text, "-") && !strings.HasPrefix(lit.Text, "--") {
				if strings.ContainsRune(lit.Text[1:], rune(n[1])) {
					return true
				}
			}
		}
	}
	return false
}

// firstNonFlagArg returns the first word in words that isn't a bare "-..."
// literal.
func firstNonFlagArg(words []shellast.WordExpr) (shellast.WordExpr, bool) {
	for _, w := range words {
		if lit, ok := w.(shellast.Literal); ok && strings.HasPrefix(lit.Text, "-") {
			continue
		}
		return w, true
	}
	return nil, false
}

// ---- SC2086 ----

type unquotedExpansionRule struct{}

func (unquotedExpansionRule) Metadata() rules.Metadata {
	return rules.Metadata{ID: "SC2086", DefaultSeverity: rules.SeverityWarning, Category: rules.CategoryShellcheck, Autofix: rules.AutofixSafe}
}

func (unquotedExpansionRule) Check(in rules.Input) []rules.Finding {
	if in.Shell == nil {
		return nil
	}
	return quoting.CheckExpansions(in.Shell, "SC2086", rules.CategoryShellcheck, in.Options.QuotePositionalParams)
}

// ---- SC2006 ----

type legacyBacktickRule struct{}

func (legacyBacktickRule) Metadata() rules.Metadata {
	return rules.Metadata{ID: "SC2006", DefaultSeverity: rules.SeverityInfo, Category: rules.CategoryShellcheck, Autofix: rules.AutofixSafe}
}

func (legacyBacktickRule) Check(in rules.Input) []rules.Finding {
	if in.Shell == nil {
		return nil
	}
	var findings []rules.Finding
	everyCommandWord(in.Shell, func(w shellast.WordExpr) {
		cs, ok := w.(shellast.CommandSubstitution)
		if !ok || !cs.LegacyTicks {
			return
		}
		f := rules.Finding{
			RuleID:     "SC2006",
			Severity:   rules.SeverityInfo,
			Category:   rules.CategoryShellcheck,
			Span:       cs.Span(),
			Message:    "backtick command substitution is deprecated; prefer $(...)",
			Suggestion: "rewrite as $(" + cs.Body + ")",
		}
		if !strings.Contains(cs.Body, "`") {
			f.Fix = &rules.Edit{Span: cs.Span(), ReplacementText: "$(" + cs.Body + ")", Kind: rules.EditReplace, RuleID: "SC2006"}
		}
		findings = append(findings, f)
	})
	return findings
}

// ---- SC2164 ----

type cdWithoutGuardRule struct{}

func (cdWithoutGuardRule) Metadata() rules.Metadata {
	return rules.Metadata{ID: "SC2164", DefaultSeverity: rules.SeverityWarning, Category: rules.CategoryShellcheck, Autofix: rules.AutofixNone}
}

func (cdWithoutGuardRule) Check(in rules.Input) []rules.Finding {
	if in.Shell == nil {
		return nil
	}
	var findings []rules.Finding
	scanCdSafety(in.Shell.Items, &findings)
	return findings
}

func scanCdSafety(items []shellast.Item, findings *[]rules.Finding) {
	for _, it := range items {
		switch v := it.(type) {
		case shellast.Pipeline:
			for i, stage := range v.Stages {
				cmd, ok := stage.Item.(shellast.Command)
				if ok && !cmd.Opaque && cmd.Name() == "cd" {
					if !guardedByNextStage(v.Stages, i) {
						*findings = append(*findings, cdFinding(cmd))
					}
					continue
				}
				if stage.Item != nil {
					scanCdSafety([]shellast.Item{stage.Item}, findings)
				}
			}
		case shellast.Command:
			if !v.Opaque && v.Name() == "cd" {
				*findings = append(*findings, cdFinding(v))
			}
		case shellast.If:
			for _, b := range v.Branches {
				scanCdSafety(b.Cond, findings)
				scanCdSafety(b.Body, findings)
			}
			scanCdSafety(v.Else, findings)
		case shellast.While:
			scanCdSafety(v.Cond, findings)
			scanCdSafety(v.Body, findings)
		case shellast.For:
			scanCdSafety(v.Body, findings)
		case shellast.Case:
			for _, c := range v.Clauses {
				scanCdSafety(c.Body, findings)
			}
		case shellast.Subshell:
			scanCdSafety(v.Body, findings)
		case shellast.Group:
			scanCdSafety(v.Body, findings)
		case shellast.FunctionDef:
			scanCdSafety(v.Body, findings)
		}
	}
}

// guardedByNextStage reports whether stages[i] (a "cd" command) is followed
// by "|| exit" or "|| return".
func guardedByNextStage(stages []shellast.PipelineStage, i int) bool {
	if stages[i].Op != shellast.OpOr || i+1 >= len(stages) {
		return false
	}
	next, ok := stages[i+1].Item.(shellast.Command)
	if !ok || next.Opaque {
		return false
	}
	name := next.Name()
	return name == "exit" || name == "return"
}

func cdFinding(cmd shellast.Command) rules.Finding {
	return rules.Finding{
		RuleID:     "SC2164",
		Severity:   rules.SeverityWarning,
		Category:   rules.CategoryShellcheck,
		Span:       cmd.Span(),
		Message:    "cd may fail silently; the rest of the script then runs from the wrong directory",
		Suggestion: "append || exit (or || return inside a function)",
	}
}

// ---- SC2181 ----

type exitCodeViaDollarQuestionRule struct{}

func (exitCodeViaDollarQuestionRule) Metadata() rules.Metadata {
	return rules.Metadata{ID: "SC2181", DefaultSeverity: rules.SeverityInfo, Category: rules.CategoryShellcheck, Autofix: rules.AutofixNone}
}

func (exitCodeViaDollarQuestionRule) Check(in rules.Input) []rules.Finding {
	if in.Shell == nil {
		return nil
	}
	var findings []rules.Finding
	shellast.Walk(in.Shell.Items, func(it shellast.Item) {
		cmd, ok := it.(shellast.Command)
		if !ok || cmd.Opaque {
			return
		}
		name := cmd.Name()
		if name != "test" && name != "[" && name != "[[" {
			return
		}
		for _, w := range cmd.Words[1:] {
			found := false
			walkWords(w, func(inner shellast.WordExpr) {
				if pe, ok := inner.(shellast.ParamExpansion); ok && pe.Name == "?" {
					found = true
				}
			})
			if found {
				findings = append(findings, rules.Finding{
					RuleID:     "SC2181",
					Severity:   rules.SeverityInfo,
					Category:   rules.CategoryShellcheck,
					Span:       cmd.Span(),
					Message:    "checking $? instead of the command's own exit status is fragile to refactors",
					Suggestion: "use `if command; then` instead of `command; if [ $? -eq 0 ]`",
				})
				break
			}
		}
	})
	return findings
}

// ---- SC2046 ----

type unquotedCommandSubstitutionRule struct{}

func (unquotedCommandSubstitutionRule) Metadata() rules.Metadata {
	return rules.Metadata{ID: "SC2046", DefaultSeverity: rules.SeverityWarning, Category: rules.CategoryShellcheck, Autofix: rules.AutofixSafe}
}

func (unquotedCommandSubstitutionRule) Check(in rules.Input) []rules.Finding {
	if in.Shell == nil {
		return nil
	}
	var findings []rules.Finding
	check := func(word shellast.WordExpr) {
		hits := quoting.FindUnquotedCommandSubstitutions(word)
		if len(hits) == 0 {
			return
		}
		replacement, ok := quoting.BuildQuotedCommandSubFix(word)
		for _, h := range hits {
			f := rules.Finding{
				RuleID:     "SC2046",
				Severity:   rules.SeverityWarning,
				Category:   rules.CategoryShellcheck,
				Span:       h.Span(),
				Message:    "unquoted command substitution is subject to word-splitting and globbing",
				Suggestion: "quote the substitution",
			}
			if ok {
				f.Fix = &rules.Edit{Span: word.Span(), ReplacementText: replacement, Kind: rules.EditReplace, RuleID: "SC2046"}
			}
			findings = append(findings, f)
		}
	}
	shellast.Walk(in.Shell.Items, func(it shellast.Item) {
		switch v := it.(type) {
		case shellast.Assignment:
			if v.Value != nil {
				check(v.Value)
			}
		case shellast.Command:
			if v.Opaque {
				return
			}
			for _, a := range v.LeadingAssignments {
				if a.Value != nil {
					check(a.Value)
				}
			}
			if len(v.Words) > 1 {
				for _, w := range v.Words[1:] {
					check(w)
				}
			}
		}
	})
	return findings
}

// ---- DET001/DET002/DET003 ----
//
// Each gets its own rule type (rather than one rule emitting all three
// finding kinds) so Options.EnabledRuleIDs/DisabledRuleIDs, which gate by
// registered rule id, can select them independently.

type randomSeedRule struct{}

func (randomSeedRule) Metadata() rules.Metadata {
	return rules.Metadata{ID: "DET001", DefaultSeverity: rules.SeverityWarning, Category: rules.CategoryDeterminism, Autofix: rules.AutofixNone}
}

func (randomSeedRule) Check(in rules.Input) []rules.Finding {
	return scanParamExpansionName(in, "RANDOM", "DET001",
		"$RANDOM makes this script's output non-reproducible",
		"accept an explicit seed/session value as an argument instead of $RANDOM")
}

type pidInNameRule struct{}

func (pidInNameRule) Metadata() rules.Metadata {
	return rules.Metadata{ID: "DET002", DefaultSeverity: rules.SeverityWarning, Category: rules.CategoryDeterminism, Autofix: rules.AutofixNone}
}

func (pidInNameRule) Check(in rules.Input) []rules.Finding {
	return scanParamExpansionName(in, "$", "DET002",
		"$$ (this process's PID) makes generated names/paths non-reproducible across runs",
		"accept an explicit identifier argument instead of $$")
}

type timeDerivedRule struct{}

func (timeDerivedRule) Metadata() rules.Metadata {
	return rules.Metadata{ID: "DET003", DefaultSeverity: rules.SeverityWarning, Category: rules.CategoryDeterminism, Autofix: rules.AutofixNone}
}

func (timeDerivedRule) Check(in rules.Input) []rules.Finding {
	if in.Shell == nil {
		return nil
	}
	var findings []rules.Finding
	everyCommandWord(in.Shell, func(w shellast.WordExpr) {
		switch v := w.(type) {
		case shellast.ParamExpansion:
			if v.Name == "SECONDS" {
				findings = append(findings, detFinding("DET003", v.Span(),
					"$SECONDS makes timing-derived output non-reproducible",
					"accept an explicit timestamp/version argument instead of $SECONDS"))
			}
		case shellast.CommandSubstitution:
			body := strings.TrimSpace(v.Body)
			if strings.HasPrefix(body, "date ") || body == "date" {
				findings = append(findings, detFinding("DET003", v.Span(),
					"$("+v.Body+") feeds the current time into the output, making it non-reproducible",
					"accept an explicit timestamp/version argument instead of `date`"))
			}
		}
	})
	return findings
}

func scanParamExpansionName(in rules.Input, name, ruleID, message, suggestion string) []rules.Finding {
	if in.Shell == nil {
		return nil
	}
	var findings []rules.Finding
	everyCommandWord(in.Shell, func(w shellast.WordExpr) {
		pe, ok := w.(shellast.ParamExpansion)
		if ok && pe.Name == name {
			findings = append(findings, detFinding(ruleID, pe.Span(), message, suggestion))
		}
	})
	return findings
}

func detFinding(ruleID string, span source.Span, message, suggestion string) rules.Finding {
	return rules.Finding{
		RuleID:     ruleID,
		Severity:   rules.SeverityWarning,
		Category:   rules.CategoryDeterminism,
		Span:       span,
		Message:    message,
		Suggestion: suggestion,
	}
}

// ---- IDEM001/002/003/004 ----

type mkdirWithoutParentsRule struct{}

func (mkdirWithoutParentsRule) Metadata() rules.Metadata {
	return rules.Metadata{ID: "IDEM001", DefaultSeverity: rules.SeverityWarning, Category: rules.CategoryIdempotency, Autofix: rules.AutofixSafe}
}

func (mkdirWithoutParentsRule) Check(in rules.Input) []rules.Finding {
	return checkMissingFlag(in, "mkdir", []string{"-p", "--parents"},
		"IDEM001", "mkdir without -p fails if the directory already exists", " -p")
}

type rmWithoutForceRule struct{}

func (rmWithoutForceRule) Metadata() rules.Metadata {
	return rules.Metadata{ID: "IDEM002", DefaultSeverity: rules.SeverityWarning, Category: rules.CategoryIdempotency, Autofix: rules.AutofixSafe}
}

func (rmWithoutForceRule) Check(in rules.Input) []rules.Finding {
	return checkMissingFlag(in, "rm", []string{"-f", "-rf", "-fr", "--force"},
		"IDEM002", "rm without -f fails if the target is already gone", " -f")
}

type lnWithoutForceRule struct{}

func (lnWithoutForceRule) Metadata() rules.Metadata {
	return rules.Metadata{ID: "IDEM003", DefaultSeverity: rules.SeverityWarning, Category: rules.CategoryIdempotency, Autofix: rules.AutofixSafe}
}

func (lnWithoutForceRule) Check(in rules.Input) []rules.Finding {
	if in.Shell == nil {
		return nil
	}
	var findings []rules.Finding
	for _, cmd := range shellast.Commands(in.Shell.Items) {
		if cmd.Opaque || cmd.Name() != "ln" {
			continue
		}
		args := cmd.Words[1:]
		if !literalFlagPresent(args, "-s") {
			continue // not a symlink invocation at all
		}
		if literalFlagPresent(args, "-sf", "-fs", "--force") {
			continue
		}
		lit, ok := firstLiteralFlag(args, "-s")
		if !ok {
			continue
		}
		findings = append(findings, rules.Finding{
			RuleID:     "IDEM003",
			Severity:   rules.SeverityWarning,
			Category:   rules.CategoryIdempotency,
			Span:       cmd.Span(),
			Message:    "ln -s without -f fails if the link already exists",
			Suggestion: "use ln -sf",
			Fix:        &rules.Edit{Span: lit.Span(), ReplacementText: "-sf", Kind: rules.EditReplace, RuleID: "IDEM003"},
		})
	}
	return findings
}

func firstLiteralFlag(words []shellast.WordExpr, text string) (shellast.Literal, bool) {
	for _, w := range words {
		if lit, ok := w.(shellast.Literal); ok && lit.Text == text {
			return lit, true
		}
	}
	return shellast.Literal{}, false
}

type cpWithoutNoClobberRule struct{}

func (cpWithoutNoClobberRule) Metadata() rules.Metadata {
	return rules.Metadata{ID: "IDEM004", DefaultSeverity: rules.SeverityWarning, Category: rules.CategoryIdempotency, Autofix: rules.AutofixNone}
}

func (cpWithoutNoClobberRule) Check(in rules.Input) []rules.Finding {
	if in.Shell == nil {
		return nil
	}
	var findings []rules.Finding
	for _, cmd := range shellast.Commands(in.Shell.Items) {
		if cmd.Opaque || cmd.Name() != "cp" {
			continue
		}
		args := cmd.Words[1:]
		if literalFlagPresent(args, "-n", "-f", "--no-clobber", "--force") {
			continue
		}
		findings = append(findings, rules.Finding{
			RuleID:     "IDEM004",
			Severity:   rules.SeverityWarning,
			Category:   rules.CategoryIdempotency,
			Span:       cmd.Span(),
			Message:    "cp onto a path that may already exist will silently overwrite or silently no-op depending on flags",
			Suggestion: "pick -n (never clobber) or -f (always clobber) to make the intent explicit",
		})
	}
	return findings
}

func checkMissingFlag(in rules.Input, cmdName string, present []string, ruleID, message, insertText string) []rules.Finding {
	if in.Shell == nil {
		return nil
	}
	var findings []rules.Finding
	for _, cmd := range shellast.Commands(in.Shell.Items) {
		if cmd.Opaque || cmd.Name() != cmdName {
			continue
		}
		args := cmd.Words[1:]
		if literalFlagPresent(args, present...) {
			continue
		}
		nameEnd := cmd.Words[0].Span().End
		findings = append(findings, rules.Finding{
			RuleID:     ruleID,
			Severity:   rules.SeverityWarning,
			Category:   rules.CategoryIdempotency,
			Span:       cmd.Span(),
			Message:    message,
			Suggestion: fmt.Sprintf("insert %q", strings.TrimSpace(insertText)),
			Fix:        &rules.Edit{Span: source.NewSpan(nameEnd, nameEnd), ReplacementText: insertText, Kind: rules.EditInsert, RuleID: ruleID},
		})
	}
	return findings
}

// ---- SEC001/SEC010 ----

var injectionSinks = map[string]bool{
	"eval": true, "mkdir": true, "rm": true, "cp": true, "mv": true, "tar": true,
	"curl": true, "wget": true,
}

type injectionSinkRule struct{}

func (injectionSinkRule) Metadata() rules.Metadata {
	return rules.Metadata{ID: "SEC001", DefaultSeverity: rules.SeverityError, Category: rules.CategorySecurity, Autofix: rules.AutofixNone}
}

func (injectionSinkRule) Check(in rules.Input) []rules.Finding {
	if in.Shell == nil {
		return nil
	}
	var findings []rules.Finding
	for _, cmd := range shellast.Commands(in.Shell.Items) {
		if cmd.Opaque || len(cmd.Words) < 2 {
			continue
		}
		name := cmd.Name()
		args := cmd.Words[1:]
		if name == "sh" {
			if !literalFlagPresent(args, "-c") {
				continue
			}
			idx := indexOfLiteral(args, "-c")
			if idx < 0 || idx+1 >= len(args) {
				continue
			}
			checkSinkArg(cmd, args[idx+1], &findings)
			continue
		}
		if !injectionSinks[name] {
			continue
		}
		arg, ok := firstNonFlagArg(args)
		if !ok {
			continue
		}
		checkSinkArg(cmd, arg, &findings)
	}
	return findings
}

func indexOfLiteral(words []shellast.WordExpr, text string) int {
	for i, w := range words {
		if lit, ok := w.(shellast.Literal); ok && lit.Text == text {
			return i
		}
	}
	return -1
}

func checkSinkArg(cmd shellast.Command, arg shellast.WordExpr, findings *[]rules.Finding) {
	if len(quoting.FindBareParamExpansions(arg, true)) == 0 && len(quoting.FindUnquotedCommandSubstitutions(arg)) == 0 {
		return
	}
	*findings = append(*findings, rules.Finding{
		RuleID:     "SEC001",
		Severity:   rules.SeverityError,
		Category:   rules.CategorySecurity,
		Span:       arg.Span(),
		Message:    fmt.Sprintf("unquoted interpolation reaches %s's argument; a crafted value can inject extra words or paths", cmd.Name()),
		Suggestion: "quote the interpolation and validate its content before passing it to this command",
	})
}

type mkdirPathTraversalRule struct{}

func (mkdirPathTraversalRule) Metadata() rules.Metadata {
	return rules.Metadata{ID: "SEC010", DefaultSeverity: rules.SeverityError, Category: rules.CategorySecurity, Autofix: rules.AutofixNone}
}

func (mkdirPathTraversalRule) Check(in rules.Input) []rules.Finding {
	if in.Shell == nil {
		return nil
	}
	var findings []rules.Finding
	for _, cmd := range shellast.Commands(in.Shell.Items) {
		if cmd.Opaque || cmd.Name() != "mkdir" {
			continue
		}
		arg, ok := firstNonFlagArg(cmd.Words[1:])
		if !ok {
			continue
		}
		if !containsTraversal(arg) {
			continue
		}
		findings = append(findings, rules.Finding{
			RuleID:   "SEC010",
			Severity: rules.SeverityError,
			Category: rules.CategorySecurity,
			Span:     arg.Span(),
			Message:  "mkdir target contains '..'; a crafted path can escape the intended directory",
			// No autofix here: the safe rewrite is quoting (CONFIG-002/SC2086)
			// composed with -p (IDEM001), not a transformation this rule owns.
			Suggestion: "validate or canonicalize the path before use; see CONFIG-002 and IDEM001",
		})
	}
	return findings
}

func containsTraversal(word shellast.WordExpr) bool {
	found := false
	walkWords(word, func(w shellast.WordExpr) {
		if lit, ok := w.(shellast.Literal); ok && strings.Contains(lit.Text, "..") {
			found = true
		}
	})
	return found
}
