package configrules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/purish/purish/configview"
	"github.com/purish/purish/rules"
	"github.com/purish/purish/shellast"
	"github.com/purish/purish/source"
)

func buildInput(t *testing.T, text string) rules.Input {
	t.Helper()
	src := source.New("rc", []byte(text))
	prog, _ := shellast.Parse(src)
	return rules.Input{Source: src, Shell: prog, Config: configview.Build(src, prog)}
}

func run(t *testing.T, r rules.Rule, text string) []rules.Finding {
	t.Helper()
	reg := rules.NewRegistry()
	reg.MustRegister(r)
	engine := rules.NewEngine(reg)
	return engine.Run(buildInput(t, text), rules.Options{}).Findings
}

func TestConfig001PathDedup(t *testing.T) {
	text := "export PATH=\"/usr/local/bin:$PATH\"\nexport PATH=\"/opt/bin:$PATH\"\nexport PATH=\"/usr/local/bin:$PATH\"\n"
	findings := run(t, pathDedupRule{}, text)
	require.Len(t, findings, 1)
	assert.Equal(t, "CONFIG-001", findings[0].RuleID)
	require.NotNil(t, findings[0].Fix)
	assert.Equal(t, rules.EditDelete, findings[0].Fix.Kind)

	thirdLineStart := len("export PATH=\"/usr/local/bin:$PATH\"\nexport PATH=\"/opt/bin:$PATH\"\n")
	assert.Equal(t, thirdLineStart, findings[0].Fix.Span.Start)
	assert.Equal(t, len(text), findings[0].Fix.Span.End)
}

func TestConfig001NoDedupWhenDistinct(t *testing.T) {
	text := "export PATH=\"/usr/local/bin:$PATH\"\nexport PATH=\"/opt/bin:$PATH\"\n"
	findings := run(t, pathDedupRule{}, text)
	assert.Empty(t, findings)
}

func TestConfig002QuotesBareExpansion(t *testing.T) {
	text := "export DIR=$HOME/projects\n"
	findings := run(t, quoteExpansionRule{}, text)
	require.Len(t, findings, 1)
	assert.Equal(t, "CONFIG-002", findings[0].RuleID)
	require.NotNil(t, findings[0].Fix)
	assert.Equal(t, `"${HOME}/projects"`, findings[0].Fix.ReplacementText)

	src := source.New("rc", []byte(text))
	out := string(src.Bytes()[:findings[0].Fix.Span.Start]) + findings[0].Fix.ReplacementText + string(src.Bytes()[findings[0].Fix.Span.End:])
	assert.Equal(t, "export DIR=\"${HOME}/projects\"\n", out)
}

func TestConfig002SkipsAlreadyQuotedBraced(t *testing.T) {
	text := "export DIR=\"${HOME}/projects\"\n"
	findings := run(t, quoteExpansionRule{}, text)
	assert.Empty(t, findings)
}

func TestConfig002SkipsSingleQuoted(t *testing.T) {
	text := "export MSG='$HOME is not expanded'\n"
	findings := run(t, quoteExpansionRule{}, text)
	assert.Empty(t, findings)
}

func TestConfig002SkipsLoneExportOperand(t *testing.T) {
	text := "export $VARNAME\n"
	findings := run(t, quoteExpansionRule{}, text)
	assert.Empty(t, findings)
}

func TestConfig002IsIdempotent(t *testing.T) {
	first := run(t, quoteExpansionRule{}, "export DIR=$HOME/projects\n")
	require.Len(t, first, 1)
	purified := "export DIR=\"${HOME}/projects\"\n"
	second := run(t, quoteExpansionRule{}, purified)
	assert.Empty(t, second)
}

func TestConfig003FlagsAllButLast(t *testing.T) {
	text := "alias ll='ls -l'\nalias ll='ls -la'\nalias ll='ls -lah'\n"
	findings := run(t, aliasConsolidationRule{}, text)
	require.Len(t, findings, 2)
	assert.Equal(t, "CONFIG-003", findings[0].RuleID)
	assert.Equal(t, "CONFIG-003", findings[1].RuleID)
}

func TestConfig004FlagsDuplicateSource(t *testing.T) {
	text := "source ~/.bash_aliases\nsource ~/.bash_aliases\n"
	findings := run(t, duplicateSourceRule{}, text)
	require.Len(t, findings, 1)
	assert.Equal(t, "CONFIG-004", findings[0].RuleID)
}

func TestConfig007FlagsTrailingWhitespaceAfterContinuation(t *testing.T) {
	text := "export PATH=/usr/bin:\\ \nexport PATH2=/opt/bin\n"
	findings := run(t, trailingContinuationWhitespaceRule{}, text)
	require.Len(t, findings, 1)
	assert.Equal(t, "CONFIG-007", findings[0].RuleID)
	require.NotNil(t, findings[0].Fix)

	src := source.New("rc", []byte(text))
	fixed := string(src.Bytes()[:findings[0].Fix.Span.Start]) + string(src.Bytes()[findings[0].Fix.Span.End:])
	assert.Equal(t, "export PATH=/usr/bin:\\\nexport PATH2=/opt/bin\n", fixed)
}

func TestConfig007NoFindingOnCleanContinuation(t *testing.T) {
	text := "export PATH=/usr/bin:\\\n/opt/bin\n"
	findings := run(t, trailingContinuationWhitespaceRule{}, text)
	assert.Empty(t, findings)
}
