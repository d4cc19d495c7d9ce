package tools

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencea/cea/internal/skillsdir"
)

func TestRegisterLoadSkillReadsByName(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "review.md"), []byte("# Review"), 0o644))

	r := New()
	RegisterLoadSkill(r, skillsdir.New(dir))

	input, err := json.Marshal(map[string]any{"name": "review"})
	require.NoError(t, err)

	out, err := r.Execute(context.Background(), "load_skill", input)
	require.NoError(t, err)
	assert.Equal(t, "# Review", out)
}

func TestRegisterLoadSkillRejectsEscapingName(t *testing.T) {
	r := New()
	RegisterLoadSkill(r, skillsdir.New(t.TempDir()))

	input, err := json.Marshal(map[string]any{"name": "../etc"})
	require.NoError(t, err)

	_, err = r.Execute(context.Background(), "load_skill", input)
	assert.Error(t, err)
}
