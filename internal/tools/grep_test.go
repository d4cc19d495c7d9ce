package tools

import (
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatGrepOutputRewritesMatchLines(t *testing.T) {
	raw := "main.go:10:\tfmt.Println(\"hi\")\nmain.go:11:\treturn nil\n"
	out := formatGrepOutput(raw)
	assert.Contains(t, out, "main.go:10#")
	assert.Contains(t, out, "main.go:11#")
	assert.Contains(t, out, "| \tfmt.Println(\"hi\")")
}

func TestFormatGrepOutputPreservesContextSeparator(t *testing.T) {
	raw := "a.go:1:one\n--\na.go:5:five\n"
	out := formatGrepOutput(raw)
	assert.Contains(t, out, "--")
}

func TestFormatGrepOutputEmptyInput(t *testing.T) {
	assert.Equal(t, "", formatGrepOutput(""))
}

func TestFormatGrepOutputTruncatesPastCap(t *testing.T) {
	raw := ""
	for i := 0; i < grepMatchCap+5; i++ {
		raw += "f.go:1:x\n"
	}
	out := formatGrepOutput(raw)
	assert.Contains(t, out, "truncated")
}

func TestRegisterGrepIntegration(t *testing.T) {
	if _, err := exec.LookPath("rg"); err != nil {
		t.Skip("ripgrep not installed")
	}

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sample.go"), []byte("package sample\n\nfunc needle() {}\n"), 0o644))

	r := New()
	RegisterGrep(r, dir)

	input, err := json.Marshal(map[string]any{"pattern": "needle"})
	require.NoError(t, err)

	out, err := r.Execute(context.Background(), "grep", input)
	require.NoError(t, err)
	assert.Contains(t, out, "sample.go:")
	assert.Contains(t, out, "needle")
}
