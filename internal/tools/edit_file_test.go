package tools

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencea/cea/internal/hashline"
)

func TestEditFileStringReplaceSingleMatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.go")
	require.NoError(t, os.WriteFile(path, []byte("package f\n\nfunc old() {}\n"), 0o644))

	r := New()
	RegisterEditFile(r, dir)

	input, err := json.Marshal(map[string]any{
		"path": "f.go", "old_str": "func old() {}", "new_str": "func new() {}",
	})
	require.NoError(t, err)

	_, err = r.Execute(context.Background(), "edit_file", input)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "func new() {}")
}

func TestEditFileStringReplaceCreatesMissingFile(t *testing.T) {
	dir := t.TempDir()
	r := New()
	RegisterEditFile(r, dir)

	input, err := json.Marshal(map[string]any{
		"path": "new.txt", "old_str": "", "new_str": "brand new content",
	})
	require.NoError(t, err)

	_, err = r.Execute(context.Background(), "edit_file", input)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "new.txt"))
	require.NoError(t, err)
	assert.Equal(t, "brand new content", string(data))
}

func TestEditFileStringReplaceAmbiguousWithoutReplaceAll(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.txt")
	require.NoError(t, os.WriteFile(path, []byte("x\nx\nx\n"), 0o644))

	r := New()
	RegisterEditFile(r, dir)

	input, err := json.Marshal(map[string]any{"path": "f.txt", "old_str": "x", "new_str": "y"})
	require.NoError(t, err)

	_, err = r.Execute(context.Background(), "edit_file", input)
	assert.Error(t, err)
}

func TestEditFileStringReplaceAllOccurrences(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.txt")
	require.NoError(t, os.WriteFile(path, []byte("x\nx\nx\n"), 0o644))

	r := New()
	RegisterEditFile(r, dir)

	input, err := json.Marshal(map[string]any{
		"path": "f.txt", "old_str": "x", "new_str": "y", "replace_all": true,
	})
	require.NoError(t, err)

	_, err = r.Execute(context.Background(), "edit_file", input)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "y\ny\ny\n", string(data))
}

func TestEditFileStringReplaceMissSuggestsClosestLine(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.txt")
	require.NoError(t, os.WriteFile(path, []byte("func helllo() {}\n"), 0o644))

	r := New()
	RegisterEditFile(r, dir)

	input, err := json.Marshal(map[string]any{"path": "f.txt", "old_str": "func hello() {}", "new_str": "x"})
	require.NoError(t, err)

	_, err = r.Execute(context.Background(), "edit_file", input)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "closest match")
}

func TestEditFileHashlineReplace(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.txt")
	content := "alpha\nbeta\ngamma\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	anchor := hashline.Anchor{Line: 2, Hash: hashline.LineHash("beta", 2)}

	r := New()
	RegisterEditFile(r, dir)

	input, err := json.Marshal(map[string]any{
		"path": "f.txt",
		"edits": []map[string]any{
			{"kind": "replace", "pos": anchor.String(), "lines": []string{"BETA"}},
		},
	})
	require.NoError(t, err)

	_, err = r.Execute(context.Background(), "edit_file", input)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "alpha\nBETA\ngamma\n", string(data))
}

func TestEditFileHashlineRejectsEmptyEdits(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.txt")
	require.NoError(t, os.WriteFile(path, []byte("one\n"), 0o644))

	r := New()
	RegisterEditFile(r, dir)

	input, err := json.Marshal(map[string]any{"path": "f.txt", "edits": []map[string]any{}})
	require.NoError(t, err)

	_, err = r.Execute(context.Background(), "edit_file", input)
	assert.Error(t, err)
}

func TestEditFileHashlineRejectsStaleExpectedHash(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.txt")
	require.NoError(t, os.WriteFile(path, []byte("one\n"), 0o644))

	anchor := hashline.Anchor{Line: 1, Hash: hashline.LineHash("one", 1)}

	r := New()
	RegisterEditFile(r, dir)

	input, err := json.Marshal(map[string]any{
		"path":               "f.txt",
		"expected_file_hash": "deadbeef",
		"edits": []map[string]any{
			{"kind": "replace", "pos": anchor.String(), "lines": []string{"two"}},
		},
	})
	require.NoError(t, err)

	_, err = r.Execute(context.Background(), "edit_file", input)
	assert.Error(t, err)
}

func TestEditFileHashlineAllNoOpReportsExactMessage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.txt")
	require.NoError(t, os.WriteFile(path, []byte("one\n"), 0o644))

	anchor := hashline.Anchor{Line: 1, Hash: hashline.LineHash("one", 1)}

	r := New()
	RegisterEditFile(r, dir)

	input, err := json.Marshal(map[string]any{
		"path": "f.txt",
		"edits": []map[string]any{
			{"kind": "replace", "pos": anchor.String(), "lines": []string{"one"}},
		},
	})
	require.NoError(t, err)

	_, err = r.Execute(context.Background(), "edit_file", input)
	require.Error(t, err)
	assert.Equal(t, "No changes made", err.Error())
}
