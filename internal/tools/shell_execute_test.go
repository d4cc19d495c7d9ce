package tools

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckAllowlistAcceptsAllowedCommand(t *testing.T) {
	assert.NoError(t, checkAllowlist("git status"))
}

func TestCheckAllowlistRejectsDisallowedCommand(t *testing.T) {
	err := checkAllowlist("rm -rf /")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not in the restricted-mode allowlist")
}

func TestRegisterShellExecuteRunsCommand(t *testing.T) {
	r := New()
	RegisterShellExecute(r, t.TempDir(), false)

	input, err := json.Marshal(map[string]any{"command": "echo hello"})
	require.NoError(t, err)

	out, err := r.Execute(context.Background(), "shell_execute", input)
	require.NoError(t, err)
	assert.Contains(t, out, "exit_code: 0")
	assert.Contains(t, out, "hello")
}

func TestRegisterShellExecuteRestrictedRejectsDisallowed(t *testing.T) {
	r := New()
	RegisterShellExecute(r, t.TempDir(), true)

	input, err := json.Marshal(map[string]any{"command": "rm -rf /"})
	require.NoError(t, err)

	_, err = r.Execute(context.Background(), "shell_execute", input)
	assert.Error(t, err)
}

func TestRegisterShellExecuteRestrictedAllowsGit(t *testing.T) {
	r := New()
	RegisterShellExecute(r, t.TempDir(), true)

	input, err := json.Marshal(map[string]any{"command": "git status"})
	require.NoError(t, err)

	out, err := r.Execute(context.Background(), "shell_execute", input)
	require.NoError(t, err)
	assert.Contains(t, out, "exit_code:")
}

func TestRegisterShellExecuteRejectsEmptyCommand(t *testing.T) {
	r := New()
	RegisterShellExecute(r, t.TempDir(), false)

	input, err := json.Marshal(map[string]any{"command": "   "})
	require.NoError(t, err)

	_, err = r.Execute(context.Background(), "shell_execute", input)
	assert.Error(t, err)
}
