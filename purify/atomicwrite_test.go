package purify

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteAtomicCreatesNewFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "script.sh")

	require.NoError(t, WriteAtomic(path, "echo hi\n"))

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "echo hi\n", string(contents))
}

func TestWriteAtomicReplacesExistingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "script.sh")
	require.NoError(t, os.WriteFile(path, []byte("old contents\n"), 0644))

	require.NoError(t, WriteAtomic(path, "new contents\n"))

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "new contents\n", string(contents))
}
