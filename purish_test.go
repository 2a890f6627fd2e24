package purish

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/purish/purish/ruleprofile"
	"github.com/purish/purish/rules"
)

func TestAnalyzeFindsIssueAndReportsExitCode(t *testing.T) {
	report, err := Analyze([]byte("mkdir $DIR\n"), "script.sh", KindShell, rules.Options{}, nil)
	require.NoError(t, err)
	require.NotEmpty(t, report.Findings)
	assert.Equal(t, 2, report.ExitCode)
}

func TestAnalyzeCleanInputReturnsExitCodeZero(t *testing.T) {
	report, err := Analyze([]byte("mkdir -p \"${DIR}\"\n"), "script.sh", KindShell, rules.Options{}, nil)
	require.NoError(t, err)
	assert.Empty(t, report.Findings)
	assert.Equal(t, 0, report.ExitCode)
}

func TestPurifyRewritesTextAndReportsSummary(t *testing.T) {
	result, err := Purify([]byte("mkdir $DIR\n"), "script.sh", KindShell, rules.Options{}, nil, false)
	require.NoError(t, err)
	assert.Equal(t, "mkdir -p \"${DIR}\"\n", string(result.Text))
	assert.Equal(t, 3, result.Summary.IssueCount)
}

func TestPurifyAppliesMatchingProfileOverlay(t *testing.T) {
	data := []byte(`
rules:
  - name: disable-quoting
    pattern: "vendor/**"
    options:
      disabled_rule_ids: ["SC2086"]
`)
	profile, err := ruleprofile.Load(data)
	require.NoError(t, err)

	result, err := Purify([]byte("mkdir $DIR\n"), "vendor/script.sh", KindShell, rules.Options{}, profile, false)
	require.NoError(t, err)
	assert.Equal(t, "mkdir -p $DIR\n", string(result.Text))
}

func TestBackupPathUsesUTCTimestamp(t *testing.T) {
	ts := time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "script.sh.backup.20260730T120000Z", BackupPath("script.sh", ts))
}

func TestWriteWithBackupPreservesOriginalAndWritesNewText(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "script.sh")
	require.NoError(t, os.WriteFile(path, []byte("mkdir $DIR\n"), 0644))

	backupPath, err := WriteWithBackup(path, []byte("mkdir -p \"${DIR}\"\n"), time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.NotEmpty(t, backupPath)

	backupContents, err := os.ReadFile(backupPath)
	require.NoError(t, err)
	assert.Equal(t, "mkdir $DIR\n", string(backupContents))

	newContents, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "mkdir -p \"${DIR}\"\n", string(newContents))
}

func TestWriteWithBackupSkipsBackupWhenFileIsNew(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "new.sh")

	backupPath, err := WriteWithBackup(path, []byte("echo hi\n"), time.Now())
	require.NoError(t, err)
	assert.Empty(t, backupPath)

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "echo hi\n", string(contents))
}
