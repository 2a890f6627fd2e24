package ruleprofile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/purish/purish/rules"
)

func TestGlobMatchStarWithinComponent(t *testing.T) {
	assert.True(t, GlobMatch("*.sh", "deploy.sh"))
	assert.False(t, GlobMatch("*.sh", "deploy.bash"))
	assert.False(t, GlobMatch("*.sh", "scripts/deploy.sh"))
}

func TestGlobMatchDoubleStarAcrossComponents(t *testing.T) {
	assert.True(t, GlobMatch("**/*.sh", "scripts/deploy/release.sh"))
	assert.True(t, GlobMatch("**/*.sh", "release.sh"))
	assert.False(t, GlobMatch("**/*.sh", "scripts/deploy/release.bash"))
}

func TestGlobMatchVendorPrefix(t *testing.T) {
	assert.True(t, GlobMatch("vendor/**", "vendor/thirdparty/lib.sh"))
	assert.False(t, GlobMatch("vendor/**", "scripts/lib.sh"))
}

func TestLoadRejectsRuleWithoutPattern(t *testing.T) {
	_, err := Load([]byte("rules:\n  - name: bad\n"))
	assert.Error(t, err)
}

func TestLoadRejectsUnknownSeverity(t *testing.T) {
	data := []byte(`
rules:
  - name: lenient-vendor
    pattern: "vendor/**"
    options:
      severity_threshold: Fatal
`)
	_, err := Load(data)
	assert.Error(t, err)
}

func TestOptionsForPathAppliesMatchingOverlaysInOrder(t *testing.T) {
	data := []byte(`
rules:
  - name: lenient-vendor
    pattern: "vendor/**"
    options:
      severity_threshold: Error
      disabled_rule_ids: ["SC2086"]
  - name: generated-makefiles
    pattern: "**/Makefile.generated"
    options:
      max_line_length: 200
      preserve_formatting: true
`)
	profile, err := Load(data)
	require.NoError(t, err)

	base := rules.Options{SeverityThreshold: rules.SeverityInfo, MaxLineLength: 100}

	vendorOpts := profile.OptionsForPath("vendor/lib/setup.sh", base)
	assert.Equal(t, rules.SeverityError, vendorOpts.SeverityThreshold)
	assert.Equal(t, []string{"SC2086"}, vendorOpts.DisabledRuleIDs)
	assert.Equal(t, 100, vendorOpts.MaxLineLength)
	assert.False(t, vendorOpts.PreserveFormatting)

	genOpts := profile.OptionsForPath("build/Makefile.generated", base)
	assert.Equal(t, rules.SeverityInfo, genOpts.SeverityThreshold)
	assert.Equal(t, 200, genOpts.MaxLineLength)
	assert.True(t, genOpts.PreserveFormatting)

	unrelated := profile.OptionsForPath("src/main.sh", base)
	assert.Equal(t, base, unrelated)
}

func TestOptionsForPathLeavesUnsetBoolsAlone(t *testing.T) {
	data := []byte(`
rules:
  - name: skip-blank-lines
    pattern: "*.mk"
    options:
      skip_blank_line_removal: true
`)
	profile, err := Load(data)
	require.NoError(t, err)

	base := rules.Options{QuotePositionalParams: true}
	got := profile.OptionsForPath("rules.mk", base)
	assert.True(t, got.SkipBlankLineRemoval)
	assert.True(t, got.QuotePositionalParams)
}
