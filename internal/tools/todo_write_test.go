package tools

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencea/cea/internal/todo"
)

func TestRegisterTodoWritePersistsItems(t *testing.T) {
	dir := t.TempDir()
	store := todo.New(dir, "session-x")

	r := New()
	RegisterTodoWrite(r, store)

	input, err := json.Marshal(map[string]any{
		"todos": []map[string]any{
			{"id": "1", "content": "write tests", "status": "pending", "priority": "high"},
		},
	})
	require.NoError(t, err)

	out, err := r.Execute(context.Background(), "todo_write", input)
	require.NoError(t, err)
	assert.Contains(t, out, "1 todo item")

	_, err = os.Stat(filepath.Join(dir, ".cea", "session-x.json"))
	require.NoError(t, err)

	incomplete, err := store.Incomplete()
	require.NoError(t, err)
	require.Len(t, incomplete, 1)
	assert.Equal(t, "write tests", incomplete[0].Content)
}

func TestRegisterTodoWriteRejectsEmptyContent(t *testing.T) {
	store := todo.New(t.TempDir(), "session-y")
	r := New()
	RegisterTodoWrite(r, store)

	input, err := json.Marshal(map[string]any{
		"todos": []map[string]any{{"id": "1", "content": "  ", "status": "pending"}},
	})
	require.NoError(t, err)

	_, err = r.Execute(context.Background(), "todo_write", input)
	assert.Error(t, err)
}
