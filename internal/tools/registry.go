// Package tools implements the canonical tool registry consumed by the
// tool-loop driver (C7): one record per tool with a JSON-Schema-shaped
// input_schema, validated before execute ever runs.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
)

// Definition is the wire-shape of one tool, as handed to the model
// provider: name, description, and a JSON-Schema object describing the
// expected input.
type Definition struct {
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	InputSchema   json.RawMessage `json:"input_schema"`
	NeedsApproval bool            `json:"needs_approval,omitempty"`
}

// Func executes one tool call against raw, schema-validated JSON input
// and returns the text the model sees. ctx carries the loop's cancellation
// signal through to whatever the tool does underneath (e.g. shell_execute's
// subprocess).
type Func func(ctx context.Context, input json.RawMessage) (string, error)

type entry struct {
	def Definition
	fn  Func
}

// Registry holds the canonical tool set and dispatches calls by name.
type Registry struct {
	entries []entry
}

// New constructs an empty registry; callers wire in tools via Register.
func New() *Registry {
	return &Registry{}
}

// Register adds one tool. Its input_schema is checked against every
// future Execute call before fn runs.
func (r *Registry) Register(def Definition, fn Func) {
	r.entries = append(r.entries, entry{def: def, fn: fn})
}

// Definitions returns every registered tool's wire definition, in
// registration order.
func (r *Registry) Definitions() []Definition {
	defs := make([]Definition, len(r.entries))
	for i, e := range r.entries {
		defs[i] = e.def
	}
	return defs
}

// Execute validates input against the named tool's schema and, on
// success, runs it. An unknown tool name or a schema validation failure
// is reported as a plain error — the tool-loop driver turns this into a
// tool-error event rather than crashing the loop.
func (r *Registry) Execute(ctx context.Context, name string, input json.RawMessage) (string, error) {
	for _, e := range r.entries {
		if e.def.Name != name {
			continue
		}
		if err := validateAgainstSchema(e.def.InputSchema, input); err != nil {
			return "", fmt.Errorf("tools: %s: invalid input: %w", name, err)
		}
		return e.fn(ctx, input)
	}
	return "", fmt.Errorf("tools: unknown tool %q", name)
}

// NeedsApproval reports whether name was registered with needs_approval.
// Unknown names report false; Execute is the authority on existence.
func (r *Registry) NeedsApproval(name string) bool {
	for _, e := range r.entries {
		if e.def.Name == name {
			return e.def.NeedsApproval
		}
	}
	return false
}
