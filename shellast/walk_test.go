package shellast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWalkVisitsNestedCommands(t *testing.T) {
	prog := parse(t, "if true; then\n  mkdir /tmp/a\nelse\n  mkdir /tmp/b\nfi\n")
	cmds := Commands(prog.Items)
	require.Len(t, cmds, 3) // "true", "mkdir /tmp/a", "mkdir /tmp/b"
	assert.Equal(t, "true", cmds[0].Name())
	assert.Equal(t, "mkdir", cmds[1].Name())
	assert.Equal(t, "mkdir", cmds[2].Name())
}

func TestWalkVisitsPipelineStages(t *testing.T) {
	prog := parse(t, "cat foo | grep bar | wc -l\n")
	cmds := Commands(prog.Items)
	require.Len(t, cmds, 3)
	assert.Equal(t, "cat", cmds[0].Name())
	assert.Equal(t, "grep", cmds[1].Name())
	assert.Equal(t, "wc", cmds[2].Name())
}

func TestWalkVisitsFunctionBody(t *testing.T) {
	prog := parse(t, "greet() {\n  mkdir /tmp/x\n}\n")
	cmds := Commands(prog.Items)
	require.Len(t, cmds, 1)
	assert.Equal(t, "mkdir", cmds[0].Name())
}

func TestWalkVisitsForAndCaseBodies(t *testing.T) {
	prog := parse(t, "for f in a b; do\n  rm $f\ndone\ncase $1 in\n  a) mkdir x ;;\nesac\n")
	cmds := Commands(prog.Items)
	require.Len(t, cmds, 2)
	assert.Equal(t, "rm", cmds[0].Name())
	assert.Equal(t, "mkdir", cmds[1].Name())
}
