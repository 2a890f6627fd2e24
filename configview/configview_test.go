package configview

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/purish/purish/shellast"
	"github.com/purish/purish/source"
)

func build(t *testing.T, text string) *View {
	t.Helper()
	src := source.New("t.sh", []byte(text))
	prog, issues := shellast.Parse(src)
	require.Empty(t, issues)
	return Build(src, prog)
}

func TestPathAssignmentDedupSignature(t *testing.T) {
	v := build(t, "export PATH=\"/usr/local/bin:$PATH\"\n"+
		"export PATH=\"/opt/homebrew/bin:$PATH\"\n"+
		"export PATH=\"/usr/local/bin:$PATH\"\n")
	paths := v.PathAssignments()
	require.Len(t, paths, 3)
	assert.Equal(t, paths[0].Signature(), paths[2].Signature())
	assert.NotEqual(t, paths[0].Signature(), paths[1].Signature())
	require.Len(t, paths[0].Entries, 2)
	assert.Equal(t, "/usr/local/bin", paths[0].Entries[0].Text)
	assert.True(t, paths[0].Entries[1].Sentinel)
	assert.Equal(t, PathSentinel, paths[0].Entries[1].Text)
}

func TestPathAssignmentBareNotExported(t *testing.T) {
	v := build(t, "PATH=/usr/bin:/bin\n")
	paths := v.PathAssignments()
	require.Len(t, paths, 1)
	assert.False(t, paths[0].Exported)
	require.Len(t, paths[0].Entries, 2)
	assert.Equal(t, "/usr/bin", paths[0].Entries[0].Text)
	assert.Equal(t, "/bin", paths[0].Entries[1].Text)
}

func TestNonPathAssignmentIgnored(t *testing.T) {
	v := build(t, "export DIR=$HOME/projects\n")
	assert.Empty(t, v.PathAssignments())
	require.Len(t, v.Assignments, 1)
	assert.Equal(t, "DIR", v.Assignments[0].Name)
	assert.True(t, v.Assignments[0].Exported)
}

func TestDuplicateAliases(t *testing.T) {
	v := build(t, "alias ll=ls -la\nalias gs=git status\nalias ll=ls -lah\n")
	require.Len(t, v.Aliases, 3)
	dups := v.DuplicateAliases()
	require.Contains(t, dups, "ll")
	assert.Len(t, dups["ll"], 2)
	assert.NotContains(t, dups, "gs")
}

func TestSourceDirectivesAndSourcedPaths(t *testing.T) {
	v := build(t, "source ~/.bash_aliases\n. ~/.profile\n")
	require.Len(t, v.Sources, 2)
	assert.False(t, v.Sources[0].DotForm)
	assert.True(t, v.Sources[1].DotForm)
	paths := v.SourcedPaths()
	assert.ElementsMatch(t, []string{"~/.bash_aliases", "~/.profile"}, paths)
}

func TestAssignmentsInsideIfNotTopLevel(t *testing.T) {
	v := build(t, "if true; then\n  alias x=y\nfi\n")
	assert.Empty(t, v.Aliases)
}
