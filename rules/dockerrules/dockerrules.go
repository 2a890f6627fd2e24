// Package dockerrules implements the DOCKER### namespace: rules that scan a
// parsed dockerfile.Dockerfile, reusing each RUN instruction's re-parsed
// shellast.Program (dockerfile.Instruction.RunBody) the same way shellrules
// scans a whole script.
package dockerrules

import (
	"strings"

	"github.com/purish/purish/dockerfile"
	"github.com/purish/purish/rules"
	"github.com/purish/purish/shellast"
	"github.com/purish/purish/source"
)

// Register adds every DOCKER### rule to reg.
func Register(reg *rules.Registry) {
	reg.MustRegister(packageCacheCleanupRule{})
}

// ---- DOCKER003 ----

type packageCacheCleanupRule struct{}

func (packageCacheCleanupRule) Metadata() rules.Metadata {
	return rules.Metadata{ID: "DOCKER003", DefaultSeverity: rules.SeverityWarning, Category: rules.CategoryDockerfile, Autofix: rules.AutofixSafe}
}

func (packageCacheCleanupRule) Check(in rules.Input) []rules.Finding {
	if in.Docker == nil {
		return nil
	}
	var findings []rules.Finding
	for _, inst := range in.Docker.Instructions {
		if inst.Keyword != "RUN" || inst.RunBody == nil {
			continue
		}
		cmds := shellast.Commands(inst.RunBody.Items)
		aptInstall, hasApt := findCommand(cmds, isAptGetInstall)
		apkAdd, hasApk := findCommand(cmds, isApkAdd)

		if hasApt && !anyCommand(cmds, isAptCleanup) {
			findings = append(findings, findingFor(inst, aptInstall, "apt-get install", appendCleanupEdit(inst, " && rm -rf /var/lib/apt/lists/*")))
		}
		if hasApk && !hasNoCacheFlag(apkAdd) && !anyCommand(cmds, isApkCleanup) {
			findings = append(findings, findingFor(inst, apkAdd, "apk add", insertNoCacheEdit(inst, apkAdd)))
		}
	}
	return findings
}

func findingFor(inst dockerfile.Instruction, cmd shellast.Command, label string, fix *rules.Edit) rules.Finding {
	return rules.Finding{
		RuleID:     "DOCKER003",
		Severity:   rules.SeverityWarning,
		Category:   rules.CategoryDockerfile,
		Span:       inst.Translate(cmd.Span()),
		Message:    label + " leaves the package manager's cache in the image layer, bloating it",
		Suggestion: "clean up the package cache in the same RUN so it doesn't persist in the layer",
		Fix:        fix,
	}
}

func findCommand(cmds []shellast.Command, pred func(shellast.Command) bool) (shellast.Command, bool) {
	for _, c := range cmds {
		if pred(c) {
			return c, true
		}
	}
	return shellast.Command{}, false
}

func anyCommand(cmds []shellast.Command, pred func(shellast.Command) bool) bool {
	_, ok := findCommand(cmds, pred)
	return ok
}

func isAptGetInstall(c shellast.Command) bool {
	if c.Opaque || c.Name() != "apt-get" {
		return false
	}
	return hasLiteralArg(c, "install")
}

func isAptCleanup(c shellast.Command) bool {
	if c.Opaque {
		return false
	}
	if c.Name() == "apt-get" && (hasLiteralArg(c, "clean") || hasLiteralArg(c, "autoremove")) {
		return true
	}
	if c.Name() == "rm" {
		for _, w := range c.Words[1:] {
			if lit, ok := w.(shellast.Literal); ok && strings.Contains(lit.Text, "/var/lib/apt/lists") {
				return true
			}
		}
	}
	return false
}

func isApkAdd(c shellast.Command) bool {
	if c.Opaque || c.Name() != "apk" {
		return false
	}
	return hasLiteralArg(c, "add")
}

func isApkCleanup(c shellast.Command) bool {
	if c.Opaque || c.Name() != "rm" {
		return false
	}
	for _, w := range c.Words[1:] {
		if lit, ok := w.(shellast.Literal); ok && strings.Contains(lit.Text, "/var/cache/apk") {
			return true
		}
	}
	return false
}

func hasNoCacheFlag(c shellast.Command) bool {
	return hasLiteralArg(c, "--no-cache")
}

func hasLiteralArg(c shellast.Command, text string) bool {
	for _, w := range c.Words {
		if lit, ok := w.(shellast.Literal); ok && lit.Text == text {
			return true
		}
	}
	return false
}

// appendCleanupEdit appends suffix to the end of the RUN instruction's
// argument text — the same span-composition approach
// dockerfile.Instruction.Translate exists for.
func appendCleanupEdit(inst dockerfile.Instruction, suffix string) *rules.Edit {
	end := inst.ArgsSpan.End
	return &rules.Edit{
		Span:            source.NewSpan(end, end),
		ReplacementText: suffix,
		Kind:            rules.EditInsert,
		RuleID:          "DOCKER003",
	}
}

// insertNoCacheEdit inserts " --no-cache" right after the "add" word of an
// apk invocation, mirroring shellrules' mkdir -p flag-insertion autofix.
func insertNoCacheEdit(inst dockerfile.Instruction, apkAdd shellast.Command) *rules.Edit {
	for _, w := range apkAdd.Words {
		if lit, ok := w.(shellast.Literal); ok && lit.Text == "add" {
			end := inst.Translate(lit.Span()).End
			return &rules.Edit{
				Span:            source.NewSpan(end, end),
				ReplacementText: " --no-cache",
				Kind:            rules.EditInsert,
				RuleID:          "DOCKER003",
			}
		}
	}
	return nil
}
