package purify

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/purish/purish/rules"
)

func TestShellDriverPurifiesMkdirAndQuoting(t *testing.T) {
	text := "mkdir $DIR\n"
	result := ShellDriver().Purify("script.sh", []byte(text), rules.Options{})
	assert.Equal(t, "mkdir -p \"${DIR}\"\n", string(result.Text))
	assert.Empty(t, result.Conflicts)
}

func TestShellDriverDowngradesBashShebangWhenSafe(t *testing.T) {
	text := "#!/bin/bash\necho hi\n"
	result := ShellDriver().Purify("script.sh", []byte(text), rules.Options{})
	assert.Equal(t, "#!/bin/sh\necho hi\n", string(result.Text))
}

func TestShellDriverKeepsBashShebangWhenBashOnlyConstructSurvives(t *testing.T) {
	text := "#!/bin/bash\nif [[ -f /tmp/x ]]; then echo y; fi\n"
	result := ShellDriver().Purify("script.sh", []byte(text), rules.Options{})
	assert.True(t, strings.HasPrefix(string(result.Text), "#!/bin/bash\n"))
}

func TestShellDriverLeavesNonBashShebangAlone(t *testing.T) {
	text := "#!/usr/bin/env bash\necho hi\n"
	result := ShellDriver().Purify("script.sh", []byte(text), rules.Options{})
	assert.True(t, strings.HasPrefix(string(result.Text), "#!/usr/bin/env bash\n"))
}

func TestConfigDriverAnalyzeFindsDuplicatePathAssignment(t *testing.T) {
	text := "export PATH=/usr/bin\nexport PATH=/usr/bin\n"
	_, out := ConfigDriver().Analyze(".bashrc", []byte(text), rules.Options{})
	require.NotEmpty(t, out.Findings)
	found := false
	for _, f := range out.Findings {
		if f.RuleID == "CONFIG-001" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestMakefileDriverPurifiesUnquotedRecipeVariable(t *testing.T) {
	text := "build:\n\tcp $(SRC) $(DST)\n"
	result := MakefileDriver().Purify("Makefile", []byte(text), rules.Options{})
	// Both $(SRC) and $(DST) are independent bare command-substitution
	// words on the recipe line; MAKE003 builds one Finding+Fix per word,
	// so purify quotes every occurrence, not just the first.
	assert.Equal(t, "build:\n\tcp \"$(SRC)\" \"$(DST)\"\n", string(result.Text))
}

func TestMakefileDriverAggregatesPhonyByDefault(t *testing.T) {
	text := ".PHONY: all\nall:\n\techo all\n.PHONY: clean\nclean:\n\trm -rf build\n"
	result := MakefileDriver().Purify("Makefile", []byte(text), rules.Options{})
	want := ".PHONY: all clean\nall:\n\techo all\nclean:\n\trm -rf build\n"
	assert.Equal(t, want, string(result.Text))
}

func TestMakefileDriverSkipsPhonyAggregationWhenPreserveFormatting(t *testing.T) {
	text := ".PHONY: all\nall:\n\techo all\n.PHONY: clean\nclean:\n\trm -rf build\n"
	result := MakefileDriver().Purify("Makefile", []byte(text), rules.Options{PreserveFormatting: true})
	assert.Equal(t, text, string(result.Text))
}

func TestDockerfileDriverAppendsAptCleanup(t *testing.T) {
	text := "FROM debian\nRUN apt-get update && apt-get install -y curl\n"
	result := DockerfileDriver().Purify("Dockerfile", []byte(text), rules.Options{})
	assert.Equal(t, "FROM debian\nRUN apt-get update && apt-get install -y curl && rm -rf /var/lib/apt/lists/*\n", string(result.Text))
}
