// Command purish lints and purifies POSIX shell scripts, shell rc files,
// Makefiles, and Dockerfiles.
package main

import (
	"flag"
	"fmt"
	"io/ioutil"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/purish/purish"
	"github.com/purish/purish/report"
	"github.com/purish/purish/ruleprofile"
	"github.com/purish/purish/rules"
	"github.com/purish/purish/source"
)

var (
	logpath            = flag.String("log", "", "log to file")
	purifyFlag         = flag.Bool("purify", false, "rewrite the file in place instead of only reporting findings")
	jsonFlag           = flag.Bool("json", false, "emit the structured JSON report instead of the human one")
	strictFlag         = flag.Bool("strict", false, "treat any autofix composition conflict as a fatal error")
	severityFlag       = flag.String("severity", "Info", "minimum severity to report: Error, Warning, or Info")
	maxLineLength      = flag.Int("max-line-length", 0, "override the default max line length (0: rule default)")
	preserveFormatting = flag.Bool("preserve-formatting", false, "skip Makefile .PHONY aggregation (the shell shebang downgrade still runs)")
	noProfile          = flag.Bool("no-profile", false, "ignore any on-disk rule profile")
)

func main() {
	flag.Usage = printUsage
	flag.Parse()
	if len(flag.Args()) == 0 {
		flag.Usage()
		os.Exit(1)
	}

	if *logpath != "" {
		logFile, err := os.Create(*logpath)
		if err != nil {
			exitWithError(err)
		}
		defer logFile.Close()
		log.SetOutput(logFile)
	} else {
		log.SetOutput(ioutil.Discard)
	}

	severity, err := parseSeverity(*severityFlag)
	if err != nil {
		exitWithError(err)
	}
	opts := rules.Options{
		SeverityThreshold:  severity,
		MaxLineLength:      *maxLineLength,
		PreserveFormatting: *preserveFormatting,
	}

	var profile *ruleprofile.Profile
	if !*noProfile {
		profile, err = purish.LoadProfile()
		if err != nil {
			exitWithError(err)
		}
	}

	worst := 0
	for _, path := range flag.Args() {
		code, err := runOne(path, opts, profile)
		if err != nil {
			exitWithError(err)
		}
		if code > worst {
			worst = code
		}
	}
	os.Exit(worst)
}

func runOne(path string, opts rules.Options, profile *ruleprofile.Profile) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	kind := kindForPath(path)

	if !*purifyFlag {
		analyzed, err := purish.Analyze(data, path, kind, opts, profile)
		if err != nil {
			return 0, err
		}
		if err := printReport(analyzed.Source, analyzed.Findings, analyzed.Summary); err != nil {
			return 0, err
		}
		return analyzed.ExitCode, nil
	}

	result, err := purish.Purify(data, path, kind, opts, profile, *strictFlag)
	if err != nil {
		return 0, err
	}
	for _, c := range result.Conflicts {
		log.Printf("purish: composition conflict at %d-%d: kept %s over %s", c.Span.Start, c.Span.End, c.KeptRule, c.Dropped)
	}
	backupPath, err := purish.WriteWithBackup(path, result.Text, time.Now())
	if err != nil {
		return 0, err
	}
	if backupPath != "" {
		log.Printf("purish: wrote backup to %q", backupPath)
	}
	return result.ExitCode, nil
}

func printReport(src *source.Source, findings []rules.Finding, summary rules.Summary) error {
	if *jsonFlag {
		data, err := report.JSON(src, findings, summary)
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(append(data, '\n'))
		return err
	}
	return report.Human(os.Stdout, src, findings)
}

func kindForPath(path string) purish.Kind {
	base := filepath.Base(path)
	switch {
	case base == "Makefile" || base == "makefile" || strings.HasSuffix(base, ".mk"):
		return purish.KindMakefile
	case base == "Dockerfile" || strings.HasSuffix(base, ".dockerfile"):
		return purish.KindDockerfile
	case strings.HasSuffix(base, "rc") || base == ".profile" || base == "environment":
		return purish.KindConfig
	default:
		return purish.KindShell
	}
}

func parseSeverity(s string) (rules.Severity, error) {
	switch s {
	case "Error":
		return rules.SeverityError, nil
	case "Warning":
		return rules.SeverityWarning, nil
	case "Info":
		return rules.SeverityInfo, nil
	default:
		return 0, fmt.Errorf("unrecognized -severity %q: want Error, Warning, or Info", s)
	}
}

func printUsage() {
	f := flag.CommandLine.Output()
	fmt.Fprintf(f, "Usage: %s [OPTIONS] path [path...]\n", os.Args[0])
	flag.PrintDefaults()
}

func exitWithError(err error) {
	fmt.Fprintf(os.Stderr, "%v\n", err)
	os.Exit(1)
}
