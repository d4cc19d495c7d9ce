package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/opencea/cea/internal/hashline"
)

var editFileSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"path": {"type": "string"},
		"old_str": {"type": "string"},
		"new_str": {"type": "string"},
		"replace_all": {"type": "boolean"},
		"expected_file_hash": {"type": "string"},
		"edits": {"type": "array"}
	},
	"required": ["path"]
}`)

type hashlineEditInput struct {
	Kind  string   `json:"kind"`
	Pos   string   `json:"pos"`
	End   string   `json:"end"`
	Lines []string `json:"lines"`
}

type editFileInput struct {
	Path             string              `json:"path"`
	OldStr           *string             `json:"old_str"`
	NewStr           string              `json:"new_str"`
	ReplaceAll       bool                `json:"replace_all"`
	ExpectedFileHash string              `json:"expected_file_hash"`
	Edits            []hashlineEditInput `json:"edits"`
}

// RegisterEditFile wires the edit_file tool (§4.5): a string-replace
// variant keyed on old_str/new_str, and a hashline variant (§4.1) keyed
// on a batch of anchored edits. Both share one tool name; the call shape
// decides which path runs.
func RegisterEditFile(r *Registry, workDir string) {
	r.Register(Definition{
		Name:        "edit_file",
		Description: "Edit a file either by exact string replacement (old_str/new_str) or by a batch of hashline-anchored edits (edits).",
		InputSchema: editFileSchema,
	}, func(ctx context.Context, input json.RawMessage) (string, error) {
		var in editFileInput
		if err := json.Unmarshal(input, &in); err != nil {
			return "", fmt.Errorf("edit_file: %w", err)
		}

		full, err := resolvePath(workDir, in.Path)
		if err != nil {
			return "", fmt.Errorf("edit_file: %w", err)
		}

		if len(in.Edits) > 0 {
			return applyHashlineEdits(full, in.ExpectedFileHash, in.Edits)
		}
		if in.OldStr == nil {
			return "", fmt.Errorf("edit_file: either old_str or edits must be supplied")
		}
		return applyStringReplace(full, *in.OldStr, in.NewStr, in.ReplaceAll)
	})
}

func applyStringReplace(path, oldStr, newStr string, replaceAll bool) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && oldStr == "" {
			if werr := atomicWrite(path, []byte(newStr), 0o644); werr != nil {
				return "", fmt.Errorf("edit_file: create %s: %w", path, werr)
			}
			return fmt.Sprintf("created %s", path), nil
		}
		return "", fmt.Errorf("edit_file: read %s: %w", path, err)
	}

	content := string(data)
	if oldStr == "" {
		return "", fmt.Errorf("edit_file: %s already exists; old_str must be non-empty to edit an existing file", path)
	}

	count := strings.Count(content, oldStr)
	if count == 0 {
		return "", fmt.Errorf("edit_file: old_str not found in %s\n%s", path, missDiagnostic(content, oldStr))
	}
	if count > 1 && !replaceAll {
		return "", fmt.Errorf("edit_file: old_str matches %d locations in %s (pass replace_all to replace every occurrence):\n%s",
			count, path, ambiguousMatchLines(content, oldStr))
	}

	n := 1
	replacements := 1
	if replaceAll {
		n = -1
		replacements = count
	}
	newContent := strings.Replace(content, oldStr, newStr, n)
	if err := atomicWrite(path, []byte(newContent), 0o644); err != nil {
		return "", fmt.Errorf("edit_file: write %s: %w", path, err)
	}
	return fmt.Sprintf("edited %s (%d replacement(s))\n%s", path, replacements, unifiedDiff(path, content, newContent)), nil
}

// missDiagnostic builds the on-miss guidance spec.md §4.5 asks for: a
// Levenshtein-closest line with ±2-line context, plus separate notes for
// non-ASCII content, CRLF line endings, and the unicode replacement
// character — the usual reasons an exact string match silently fails.
func missDiagnostic(content, oldStr string) string {
	lines := strings.Split(content, "\n")
	firstLine := strings.SplitN(oldStr, "\n", 2)[0]
	var b strings.Builder

	if lineNo, text, ok := closestLine(lines, firstLine); ok {
		fmt.Fprintf(&b, "closest match at line %d: %q\n", lineNo, text)
		lo, hi := lineNo-2, lineNo+2
		if lo < 1 {
			lo = 1
		}
		if hi > len(lines) {
			hi = len(lines)
		}
		for ln := lo; ln <= hi; ln++ {
			fmt.Fprintf(&b, "  %d | %s\n", ln, lines[ln-1])
		}
	}

	if !isASCII(oldStr) {
		b.WriteString("note: old_str contains non-ASCII characters; check for smart quotes or other unicode punctuation\n")
	}
	if strings.Contains(content, "\r\n") && !strings.Contains(oldStr, "\r") {
		b.WriteString("note: file uses CRLF line endings; old_str may need \\r\\n\n")
	}
	if strings.ContainsRune(content, '�') {
		b.WriteString("note: file contains the unicode replacement character, a sign of a prior invalid-byte read\n")
	}
	return b.String()
}

func ambiguousMatchLines(content, oldStr string) string {
	firstLine := strings.SplitN(oldStr, "\n", 2)[0]
	lines := strings.Split(content, "\n")
	var nums []string
	for i, l := range lines {
		if strings.Contains(l, firstLine) {
			nums = append(nums, strconv.Itoa(i+1))
		}
	}
	return "lines: " + strings.Join(nums, ", ")
}

func isASCII(s string) bool {
	for _, r := range s {
		if r > 127 {
			return false
		}
	}
	return true
}

func applyHashlineEdits(path, expectedHash string, inputs []hashlineEditInput) (string, error) {
	if len(inputs) == 0 {
		return "", fmt.Errorf("edit_file: edits must not be empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("edit_file: read %s: %w", path, err)
	}
	content := string(data)

	if expectedHash != "" {
		actual := hashline.FileHash(data)
		if actual != expectedHash {
			return "", fmt.Errorf("edit_file: expected_file_hash %s does not match current file_hash %s; re-read the file", expectedHash, actual)
		}
	}

	edits := make([]hashline.Edit, 0, len(inputs))
	for i, in := range inputs {
		var kind hashline.Kind
		switch in.Kind {
		case string(hashline.KindReplace):
			kind = hashline.KindReplace
		case string(hashline.KindAppend):
			kind = hashline.KindAppend
		case string(hashline.KindPrepend):
			kind = hashline.KindPrepend
		default:
			return "", fmt.Errorf("edit_file: edits[%d]: unknown kind %q", i, in.Kind)
		}

		e := hashline.Edit{Kind: kind, Lines: in.Lines}
		if in.Pos != "" {
			anchor, ok := hashline.ParseTag(in.Pos)
			if !ok {
				return "", fmt.Errorf("edit_file: edits[%d]: invalid pos anchor %q", i, in.Pos)
			}
			e.Pos = &anchor
		}
		if in.End != "" {
			anchor, ok := hashline.ParseTag(in.End)
			if !ok {
				return "", fmt.Errorf("edit_file: edits[%d]: invalid end anchor %q", i, in.End)
			}
			e.End = &anchor
		}
		edits = append(edits, e)
	}

	ordered, err := hashline.Validate(content, edits)
	if err != nil {
		return "", fmt.Errorf("edit_file: %w", err)
	}

	result, err := hashline.Apply(content, ordered)
	if err != nil {
		var allNoOp *hashline.AllNoOpError
		if errors.As(err, &allNoOp) {
			return "", errors.New("No changes made")
		}
		return "", fmt.Errorf("edit_file: %w", err)
	}

	if err := atomicWrite(path, []byte(result.Content), 0o644); err != nil {
		return "", fmt.Errorf("edit_file: write %s: %w", path, err)
	}

	newHash := hashline.FileHash([]byte(result.Content))
	msg := fmt.Sprintf("OK - hashline edit: %s starting at line %d; new file_hash %s\n%s",
		path, result.MinChangedLine, newHash, unifiedDiff(path, content, result.Content))
	if len(result.Warnings) > 0 {
		msg += "\nwarnings:\n  " + strings.Join(result.Warnings, "\n  ")
	}
	return msg, nil
}
