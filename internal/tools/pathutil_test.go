package tools

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePathRelative(t *testing.T) {
	dir := t.TempDir()
	full, err := resolvePath(dir, "sub/file.txt")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "sub", "file.txt"), full)
}

func TestResolvePathRejectsEscape(t *testing.T) {
	dir := t.TempDir()
	_, err := resolvePath(dir, "../../etc/passwd")
	assert.Error(t, err)
}

func TestResolvePathAcceptsAbsoluteWithinDir(t *testing.T) {
	dir := t.TempDir()
	full, err := resolvePath(dir, filepath.Join(dir, "x.txt"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "x.txt"), full)
}

func TestAtomicWriteCreatesAndOverwrites(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "nested", "out.txt")

	require.NoError(t, atomicWrite(target, []byte("first"), 0o644))
	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "first", string(data))

	require.NoError(t, atomicWrite(target, []byte("second"), 0o644))
	data, err = os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))
}

func TestAtomicWriteLeavesNoTempFilesBehind(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "out.txt")
	require.NoError(t, atomicWrite(target, []byte("data"), 0o644))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "out.txt", entries[0].Name())
}
