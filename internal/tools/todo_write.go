package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/opencea/cea/internal/todo"
)

var todoWriteSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"todos": {"type": "array"}
	},
	"required": ["todos"]
}`)

type todoItemInput struct {
	ID          string `json:"id"`
	Content     string `json:"content"`
	Status      string `json:"status"`
	Priority    string `json:"priority"`
	Description string `json:"description"`
}

type todoWriteInput struct {
	Todos []todoItemInput `json:"todos"`
}

// RegisterTodoWrite wires the todo_write tool (§4.5) onto store.
func RegisterTodoWrite(r *Registry, store *todo.Store) {
	r.Register(Definition{
		Name:        "todo_write",
		Description: "Replace the current session's todo list with the given items.",
		InputSchema: todoWriteSchema,
	}, func(ctx context.Context, input json.RawMessage) (string, error) {
		var in todoWriteInput
		if err := json.Unmarshal(input, &in); err != nil {
			return "", fmt.Errorf("todo_write: %w", err)
		}

		items := make([]todo.Item, len(in.Todos))
		for i, t := range in.Todos {
			items[i] = todo.Item{
				ID:          t.ID,
				Content:     t.Content,
				Status:      todo.Status(t.Status),
				Priority:    todo.Priority(t.Priority),
				Description: t.Description,
			}
		}

		if err := store.Write(items); err != nil {
			return "", fmt.Errorf("todo_write: %w", err)
		}
		return fmt.Sprintf("wrote %d todo item(s)", len(items)), nil
	})
}
