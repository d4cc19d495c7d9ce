package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/opencea/cea/internal/fsafety"
)

var readFileSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"path": {"type": "string"},
		"offset": {"type": "integer"},
		"limit": {"type": "integer"},
		"around_line": {"type": "integer"},
		"before": {"type": "integer"},
		"after": {"type": "integer"},
		"skip_git_ignore": {"type": "boolean"}
	},
	"required": ["path"]
}`)

type readFileInput struct {
	Path          string `json:"path"`
	Offset        *int   `json:"offset"`
	Limit         *int   `json:"limit"`
	AroundLine    *int   `json:"around_line"`
	Before        *int   `json:"before"`
	After         *int   `json:"after"`
	SkipGitIgnore bool   `json:"skip_git_ignore"`
}

// RegisterReadFile wires the read_file tool (§4.3) onto reader.
func RegisterReadFile(r *Registry, reader *fsafety.Reader) {
	r.Register(Definition{
		Name:        "read_file",
		Description: "Read a window of a text file, rendered with per-line hashline anchors for later edit_file calls.",
		InputSchema: readFileSchema,
	}, func(ctx context.Context, input json.RawMessage) (string, error) {
		var in readFileInput
		if err := json.Unmarshal(input, &in); err != nil {
			return "", fmt.Errorf("read_file: %w", err)
		}

		win, err := reader.ReadWindow(in.Path, fsafety.WindowOptions{
			Offset:        in.Offset,
			Limit:         in.Limit,
			AroundLine:    in.AroundLine,
			Before:        in.Before,
			After:         in.After,
			SkipGitIgnore: in.SkipGitIgnore,
		})
		if err != nil {
			return "", err
		}
		return formatReadFileResult(win), nil
	})
}

func formatReadFileResult(w *fsafety.Window) string {
	var b strings.Builder
	fmt.Fprintf(&b, "path: %s\n", w.Path)
	fmt.Fprintf(&b, "bytes: %d\n", w.Bytes)
	fmt.Fprintf(&b, "last_modified: %s\n", w.LastModifiedISO8601())
	fmt.Fprintf(&b, "lines: %d (returned: %d)\n", w.TotalLines, w.EndLine-w.StartLine+1)
	fmt.Fprintf(&b, "file_hash: %s\n", w.FileHash)
	fmt.Fprintf(&b, "range: L%d-L%d\n", w.StartLine, w.EndLine)
	fmt.Fprintf(&b, "truncated: %t\n\n", w.Truncated)
	b.WriteString(fsafety.FormatBlock(w))
	return b.String()
}
