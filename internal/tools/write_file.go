package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
)

var writeFileSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"path": {"type": "string"},
		"content": {"type": "string"}
	},
	"required": ["path", "content"]
}`)

type writeFileInput struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// RegisterWriteFile wires the write_file tool (§4.5): an unconditional
// atomic overwrite-or-create.
func RegisterWriteFile(r *Registry, workDir string) {
	r.Register(Definition{
		Name:        "write_file",
		Description: "Write content to a file, creating it (and its parent directories) if it does not exist.",
		InputSchema: writeFileSchema,
	}, func(ctx context.Context, input json.RawMessage) (string, error) {
		var in writeFileInput
		if err := json.Unmarshal(input, &in); err != nil {
			return "", fmt.Errorf("write_file: %w", err)
		}

		full, err := resolvePath(workDir, in.Path)
		if err != nil {
			return "", fmt.Errorf("write_file: %w", err)
		}
		if err := atomicWrite(full, []byte(in.Content), 0o644); err != nil {
			return "", fmt.Errorf("write_file: %w", err)
		}
		return fmt.Sprintf("wrote %d bytes to %s", len(in.Content), full), nil
	})
}

var deleteFileSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"path": {"type": "string"},
		"recursive": {"type": "boolean"}
	},
	"required": ["path"]
}`)

type deleteFileInput struct {
	Path      string `json:"path"`
	Recursive bool   `json:"recursive"`
}

// RegisterDeleteFile wires the delete_file tool (§4.5): removes a file,
// refusing a directory target unless recursive is explicitly set.
func RegisterDeleteFile(r *Registry, workDir string) {
	r.Register(Definition{
		Name:        "delete_file",
		Description: "Delete a file. Deleting a directory requires recursive: true.",
		InputSchema: deleteFileSchema,
	}, func(ctx context.Context, input json.RawMessage) (string, error) {
		var in deleteFileInput
		if err := json.Unmarshal(input, &in); err != nil {
			return "", fmt.Errorf("delete_file: %w", err)
		}

		full, err := resolvePath(workDir, in.Path)
		if err != nil {
			return "", fmt.Errorf("delete_file: %w", err)
		}

		info, err := os.Stat(full)
		if err != nil {
			return "", fmt.Errorf("delete_file: %w", err)
		}
		if info.IsDir() && !in.Recursive {
			return "", fmt.Errorf("delete_file: %s is a directory; pass recursive: true to delete it", full)
		}

		if info.IsDir() {
			if err := os.RemoveAll(full); err != nil {
				return "", fmt.Errorf("delete_file: %w", err)
			}
		} else if err := os.Remove(full); err != nil {
			return "", fmt.Errorf("delete_file: %w", err)
		}
		return fmt.Sprintf("deleted %s", full), nil
	})
}
