// Package purish is the library facade over the analysis/purify core: it
// resolves an on-disk rule profile (if any), builds the right Registry for a
// file's Kind, and drives analyze/purify/write-back behind a small surface
// meant for both the bundled CLI and embedding callers.
package purish

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/pkg/errors"

	"github.com/purish/purish/composer"
	"github.com/purish/purish/purify"
	"github.com/purish/purish/report"
	"github.com/purish/purish/ruleprofile"
	"github.com/purish/purish/rules"
	"github.com/purish/purish/source"
)

// Kind selects which purifier driver and rule subset apply to a file.
type Kind = purify.Kind

const (
	KindShell      = purify.KindShell
	KindConfig     = purify.KindConfig
	KindMakefile   = purify.KindMakefile
	KindDockerfile = purify.KindDockerfile
)

func driverFor(kind Kind) *purify.Driver {
	switch kind {
	case KindShell:
		return purify.ShellDriver()
	case KindConfig:
		return purify.ConfigDriver()
	case KindMakefile:
		return purify.MakefileDriver()
	case KindDockerfile:
		return purify.DockerfileDriver()
	default:
		panic(fmt.Sprintf("purish: unknown kind %v", kind))
	}
}

// AnalysisReport is the result of one Analyze call: the findings, summary,
// and source a report renderer needs, plus the exit code the dispatcher
// should use for it.
type AnalysisReport struct {
	Findings []rules.Finding
	Summary  rules.Summary
	Source   *source.Source
	ExitCode int
}

// Analyze runs kind's rule subset over sourceBytes and returns its findings,
// summary, and dispatcher exit code. opts is applied after any matching
// profile overlay for filename.
func Analyze(sourceBytes []byte, filename string, kind Kind, opts rules.Options, profile *ruleprofile.Profile) (AnalysisReport, error) {
	if profile != nil {
		opts = profile.OptionsForPath(filename, opts)
	}
	src, result := driverFor(kind).Analyze(filename, sourceBytes, opts)
	summary := rules.BuildSummary(result.Findings, src.LineCount())
	return AnalysisReport{
		Findings: result.Findings,
		Summary:  summary,
		Source:   src,
		ExitCode: report.ExitCode(result.Findings, false, false),
	}, nil
}

// PurifyReport is the result of one Purify call.
type PurifyReport struct {
	Text      []byte
	Findings  []rules.Finding
	Summary   rules.Summary
	Conflicts []composer.Conflict
	ExitCode  int
}

// Purify rewrites sourceBytes per kind's safe-autofix rule subset and
// returns the rewritten text alongside every finding of the rule run (a
// finding whose edit was applied is still reported; only its Fix is consumed).
func Purify(sourceBytes []byte, filename string, kind Kind, opts rules.Options, profile *ruleprofile.Profile, strict bool) (PurifyReport, error) {
	if profile != nil {
		opts = profile.OptionsForPath(filename, opts)
	}
	result := driverFor(kind).Purify(filename, sourceBytes, opts)
	src := source.New(filename, result.Text)
	summary := rules.BuildSummary(result.Findings, src.LineCount())
	return PurifyReport{
		Text:      result.Text,
		Findings:  result.Findings,
		Summary:   summary,
		Conflicts: result.Conflicts,
		ExitCode:  report.ExitCode(result.Findings, len(result.Conflicts) > 0, strict),
	}, nil
}

// ProfilePath returns the default rule-profile location under the user's
// XDG config directory.
func ProfilePath() (string, error) {
	path := filepath.Join("purish", "profile.yaml")
	return xdg.ConfigFile(path)
}

// LoadProfile reads and parses the rule profile at ProfilePath, returning a
// nil profile (not an error) when no profile file exists: an absent profile
// means "apply no overlays", not a failure.
func LoadProfile() (*ruleprofile.Profile, error) {
	path, err := ProfilePath()
	if err != nil {
		return nil, errors.Wrap(err, "purish: resolve profile path")
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	} else if err != nil {
		return nil, errors.Wrapf(err, "purish: read profile %q", path)
	}
	profile, err := ruleprofile.Load(data)
	if err != nil {
		return nil, errors.Wrapf(err, "purish: load profile %q", path)
	}
	return profile, nil
}

// BackupPath returns the timestamped backup path a purify-in-place command
// writes the original file to before overwriting it, per the
// "<file>.backup.<UTC-timestamp>" convention.
func BackupPath(path string, now time.Time) string {
	return fmt.Sprintf("%s.backup.%s", path, now.UTC().Format("20060102T150405Z"))
}

// WriteWithBackup backs up the file at path (if it exists) and then
// atomically writes text in its place, returning the backup path (empty if
// no prior file existed to back up). The atomic write itself is
// purify.WriteAtomic; this adds the dispatcher-level backup-naming
// convention on top.
func WriteWithBackup(path string, text []byte, now time.Time) (string, error) {
	original, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return "", errors.Wrapf(purify.WriteAtomic(path, string(text)), "purish: write %q", path)
	} else if err != nil {
		return "", errors.Wrapf(err, "purish: read %q for backup", path)
	}

	backupPath := BackupPath(path, now)
	if err := purify.WriteAtomic(backupPath, string(original)); err != nil {
		return "", errors.Wrapf(err, "purish: write backup %q", backupPath)
	}
	log.Printf("purish: backed up %q to %q", path, backupPath)

	if err := purify.WriteAtomic(path, string(text)); err != nil {
		return backupPath, errors.Wrapf(err, "purish: write %q", path)
	}
	return backupPath, nil
}
