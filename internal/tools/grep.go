package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"

	"github.com/opencea/cea/internal/hashline"
)

// grepMatchCap bounds how many rewritten match lines grep returns; beyond
// this the result is marked truncated rather than growing unbounded.
const grepMatchCap = 20000

var grepSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"pattern": {"type": "string"},
		"path": {"type": "string"},
		"case_sensitive": {"type": "boolean"},
		"fixed_strings": {"type": "boolean"},
		"glob": {"type": "string"},
		"context": {"type": "integer"},
		"before_context": {"type": "integer"},
		"after_context": {"type": "integer"},
		"no_ignore": {"type": "boolean"}
	},
	"required": ["pattern"]
}`)

type grepInput struct {
	Pattern       string `json:"pattern"`
	Path          string `json:"path"`
	CaseSensitive bool   `json:"case_sensitive"`
	FixedStrings  bool   `json:"fixed_strings"`
	Glob          string `json:"glob"`
	Context       *int   `json:"context"`
	BeforeContext *int   `json:"before_context"`
	AfterContext  *int   `json:"after_context"`
	NoIgnore      bool   `json:"no_ignore"`
}

// RegisterGrep wires the grep tool (§4.5) against a ripgrep binary on
// PATH, rewriting its path:line:text output into path:<LINE#ID> | text.
func RegisterGrep(r *Registry, workDir string) {
	r.Register(Definition{
		Name:        "grep",
		Description: "Search file contents with ripgrep; matches are returned as path:<LINE#ID> | text for later edit_file calls.",
		InputSchema: grepSchema,
	}, func(ctx context.Context, input json.RawMessage) (string, error) {
		var in grepInput
		if err := json.Unmarshal(input, &in); err != nil {
			return "", fmt.Errorf("grep: %w", err)
		}
		if in.Pattern == "" {
			return "", fmt.Errorf("grep: pattern must not be empty")
		}

		args := []string{"--line-number", "--with-filename", "--color=never"}
		if !in.CaseSensitive {
			args = append(args, "--ignore-case")
		}
		if in.FixedStrings {
			args = append(args, "--fixed-strings")
		}
		if in.Glob != "" {
			args = append(args, "--glob", in.Glob)
		}
		if in.Context != nil {
			args = append(args, "--context", strconv.Itoa(*in.Context))
		} else {
			if in.BeforeContext != nil {
				args = append(args, "--before-context", strconv.Itoa(*in.BeforeContext))
			}
			if in.AfterContext != nil {
				args = append(args, "--after-context", strconv.Itoa(*in.AfterContext))
			}
		}
		if in.NoIgnore {
			args = append(args, "--no-ignore")
		}
		args = append(args, in.Pattern)
		if in.Path != "" {
			args = append(args, in.Path)
		}

		cmd := exec.Command("rg", args...)
		cmd.Dir = workDir
		var stdout, stderr bytes.Buffer
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr
		runErr := cmd.Run()

		exitCode := 0
		if runErr != nil {
			exitErr, ok := runErr.(*exec.ExitError)
			if !ok {
				return "", fmt.Errorf("grep: run ripgrep: %w", runErr)
			}
			exitCode = exitErr.ExitCode()
		}
		// Exit codes 0 (matches found) and 1 (no matches) both mean ripgrep
		// ran to completion; anything else is a real failure.
		if exitCode != 0 && exitCode != 1 {
			return "", fmt.Errorf("grep: ripgrep exited %d: %s", exitCode, stderr.String())
		}

		return formatGrepOutput(stdout.String()), nil
	})
}

// grepLineRe splits one ripgrep output line into path, line number, and
// text. Ripgrep separates match lines with ":" and context lines (under
// --context/-A/-B) with "-"; both are accepted.
var grepLineRe = regexp.MustCompile(`^(.+?)[:\-](\d+)[:\-](.*)$`)

func formatGrepOutput(raw string) string {
	lines := strings.Split(raw, "\n")
	var out []string
	matches := 0
	truncated := false
	for _, l := range lines {
		if l == "" {
			continue
		}
		if l == "--" {
			out = append(out, l)
			continue
		}
		m := grepLineRe.FindStringSubmatch(l)
		if m == nil {
			out = append(out, l)
			continue
		}
		if matches >= grepMatchCap {
			truncated = true
			continue
		}
		lineNo, err := strconv.Atoi(m[2])
		if err != nil {
			out = append(out, l)
			continue
		}
		text := m[3]
		anchor := hashline.Anchor{Line: uint32(lineNo), Hash: hashline.LineHash(text, uint32(lineNo))}
		out = append(out, fmt.Sprintf("%s:%s | %s", m[1], anchor, text))
		matches++
	}

	result := strings.Join(out, "\n")
	if truncated {
		result += fmt.Sprintf("\n[...] truncated: more than %d matches found", grepMatchCap)
	}
	return result
}
