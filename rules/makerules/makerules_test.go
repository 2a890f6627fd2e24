package makerules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/purish/purish/makeast"
	"github.com/purish/purish/rules"
	"github.com/purish/purish/source"
)

func buildInput(t *testing.T, text string) rules.Input {
	t.Helper()
	src := source.New("Makefile", []byte(text))
	mk, _ := makeast.Parse(src)
	return rules.Input{Source: src, Make: mk}
}

func run(t *testing.T, r rules.Rule, text string) []rules.Finding {
	t.Helper()
	reg := rules.NewRegistry()
	reg.MustRegister(r)
	engine := rules.NewEngine(reg)
	return engine.Run(buildInput(t, text), rules.Options{}).Findings
}

func TestMAKE003FlagsUnquotedRecipeVariables(t *testing.T) {
	text := "build:\n\tcp $(SRC) $(DST)\n"
	findings := run(t, unquotedRecipeVariableRule{}, text)
	require.GreaterOrEqual(t, len(findings), 1)
	for _, f := range findings {
		assert.Equal(t, "MAKE003", f.RuleID)
	}

	src := source.New("Makefile", []byte(text))
	require.NotNil(t, findings[0].Fix)
	data := src.Bytes()
	out := string(data[:findings[0].Fix.Span.Start]) + findings[0].Fix.ReplacementText + string(data[findings[0].Fix.Span.End:])
	assert.Equal(t, "build:\n\tcp \"$(SRC)\" $(DST)\n", out)
	assert.Contains(t, out, "$(SRC)")
}

func TestMAKE003SkipsAlreadyQuoted(t *testing.T) {
	text := "build:\n\tcp \"$(SRC)\" \"$(DST)\"\n"
	findings := run(t, unquotedRecipeVariableRule{}, text)
	assert.Empty(t, findings)
}

func TestMAKE001FlagsShellDate(t *testing.T) {
	text := "stamp:\n\techo $(shell date +%s) > build.stamp\n"
	findings := run(t, shellFunctionNonDeterminismRule{}, text)
	require.Len(t, findings, 1)
	assert.Equal(t, "MAKE001", findings[0].RuleID)
	assert.Nil(t, findings[0].Fix)
	assert.NotEmpty(t, findings[0].Suggestion)
}

func TestMAKE001SkipsDeterministicShellCall(t *testing.T) {
	text := "version:\n\techo $(shell cat VERSION)\n"
	findings := run(t, shellFunctionNonDeterminismRule{}, text)
	assert.Empty(t, findings)
}

func TestMAKE002FlagsRecipeTargetNotDeclaredPhony(t *testing.T) {
	text := "test:\n\tgo test ./...\n"
	findings := run(t, undeclaredPhonyRule{}, text)
	require.Len(t, findings, 1)
	assert.Equal(t, "MAKE002", findings[0].RuleID)
	assert.Equal(t, rules.SeverityInfo, findings[0].Severity)
	assert.Nil(t, findings[0].Fix)
}

func TestMAKE002SkipsDeclaredPhony(t *testing.T) {
	text := ".PHONY: test\ntest:\n\tgo test ./...\n"
	findings := run(t, undeclaredPhonyRule{}, text)
	assert.Empty(t, findings)
}

func TestMAKE002SkipsFileLikeTarget(t *testing.T) {
	text := "bin/app:\n\tgo build -o bin/app .\n"
	findings := run(t, undeclaredPhonyRule{}, text)
	assert.Empty(t, findings)
}
