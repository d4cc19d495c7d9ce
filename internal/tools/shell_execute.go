package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/opencea/cea/internal/procexec"
)

var shellExecuteSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"command": {"type": "string"},
		"timeout_ms": {"type": "integer"},
		"stdin": {"type": "string"}
	},
	"required": ["command"]
}`)

type shellExecuteInput struct {
	Command   string  `json:"command"`
	TimeoutMS *int    `json:"timeout_ms"`
	Stdin     *string `json:"stdin"`
}

// allowedCommands is the fixed command-name allowlist for restricted
// shell_execute, per SPEC_FULL §6 — the one sandboxing surface spec.md's
// Non-goals leaves in scope.
var allowedCommands = map[string]bool{
	"cat": true, "ls": true, "grep": true, "rg": true, "find": true,
	"echo": true, "go": true, "git": true, "npm": true, "node": true,
	"python3": true, "pytest": true, "make": true, "sed": true, "awk": true,
	"head": true, "tail": true, "wc": true, "diff": true, "sort": true,
	"uniq": true,
}

// RegisterShellExecute wires the shell_execute tool (§4.5) onto
// procexec.Execute. restricted, when true, rejects any command whose
// first shell word is outside allowedCommands.
func RegisterShellExecute(r *Registry, workDir string, restricted bool) {
	r.Register(Definition{
		Name:        "shell_execute",
		Description: "Run a shell command in a detached process group, returning its merged, sanitized stdout/stderr.",
		InputSchema: shellExecuteSchema,
	}, func(ctx context.Context, input json.RawMessage) (string, error) {
		var in shellExecuteInput
		if err := json.Unmarshal(input, &in); err != nil {
			return "", fmt.Errorf("shell_execute: %w", err)
		}
		if strings.TrimSpace(in.Command) == "" {
			return "", fmt.Errorf("shell_execute: command must not be empty")
		}

		if restricted {
			if err := checkAllowlist(in.Command); err != nil {
				return "", err
			}
		}

		timeout := time.Duration(0)
		if in.TimeoutMS != nil {
			timeout = time.Duration(*in.TimeoutMS) * time.Millisecond
		}

		result, err := procexec.Execute(ctx, procexec.Options{
			Command: in.Command,
			Dir:     workDir,
			Stdin:   in.Stdin,
			Timeout: timeout,
		})
		if err != nil {
			return "", fmt.Errorf("shell_execute: %w", err)
		}
		return formatShellResult(result), nil
	})
}

func formatShellResult(res *procexec.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "exit_code: %d\n", res.ExitCode)
	if res.TimedOut {
		b.WriteString("timed_out: true\n")
	}
	if res.Cancelled {
		b.WriteString("cancelled: true\n")
	}
	if res.Truncated {
		fmt.Fprintf(&b, "truncated: true (full output at %s)\n", res.SpillPath)
	}
	b.WriteString("\n")
	b.WriteString(res.Output)
	return b.String()
}

// checkAllowlist returns a CommandNotAllowed-shaped error unless
// command's first shell word (after naive whitespace splitting) is in
// allowedCommands.
func checkAllowlist(command string) error {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return fmt.Errorf("shell_execute: command must not be empty")
	}
	name := fields[0]
	if allowedCommands[name] {
		return nil
	}

	names := make([]string, 0, len(allowedCommands))
	for n := range allowedCommands {
		names = append(names, n)
	}
	return fmt.Errorf("shell_execute: command %q is not in the restricted-mode allowlist (%s)", name, strings.Join(names, ", "))
}
