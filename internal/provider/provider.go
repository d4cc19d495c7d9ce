// Package provider defines the streaming model-provider contract C7
// consumes (§4.10) and an Anthropic Messages API implementation of it.
// Everything above this package talks only to Provider/Stream, so the
// tool-loop driver can be tested against a fake Stream with no network.
package provider

import (
	"context"
	"encoding/json"
)

// EventKind tags the shape of one Event.
type EventKind string

const (
	EventTextDelta      EventKind = "text-delta"
	EventReasoningDelta EventKind = "reasoning-delta"
	EventToolInputStart EventKind = "tool-input-start"
	EventToolInputDelta EventKind = "tool-input-delta"
	EventToolInputEnd   EventKind = "tool-input-end"
	EventToolCall       EventKind = "tool-call"
	EventToolResult     EventKind = "tool-result"
	EventToolError      EventKind = "tool-error"
	EventFinishStep     EventKind = "finish-step"
)

// Usage reports token accounting for one finished step.
type Usage struct {
	InputTokens              int64
	OutputTokens             int64
	CacheCreationInputTokens int64
	CacheReadInputTokens     int64
}

// Event is one unit of a Stream: a text/reasoning delta, a tool-call
// lifecycle step, or the finish-step summary closing out a turn.
type Event struct {
	Kind EventKind

	TextDelta      string
	ReasoningDelta string

	CallID     string
	ToolName   string
	InputDelta string
	Input      json.RawMessage

	FinishReason string
	Usage        Usage
}

// Stream yields Events in order. Next returns ok=false, err=nil at the
// natural end of the stream (after the final finish-step event).
type Stream interface {
	Next() (Event, bool, error)
	Close() error
}

// ToolSpec is the wire-neutral shape of a tool definition a Request
// offers the model; internal/tools.Definition is translated into this
// at the provider boundary so this package has no dependency on
// internal/tools.
type ToolSpec struct {
	Name        string
	Description string
	InputSchema json.RawMessage
}

// WireMessage is the provider-neutral message shape a Request carries;
// internal/history.Message is translated into these at the boundary.
type WireMessage struct {
	Role  string
	Parts []WirePart
}

// WirePartKind mirrors internal/history.PartKind without importing it.
type WirePartKind string

const (
	WirePartText       WirePartKind = "text"
	WirePartToolCall   WirePartKind = "tool-call"
	WirePartToolResult WirePartKind = "tool-result"
)

type WirePart struct {
	Kind   WirePartKind
	Text   string
	Name   string
	CallID string
	Input  json.RawMessage
	Output interface{}
}

// Request is one turn's worth of context sent to the model.
type Request struct {
	Model      string
	System     string
	Messages   []WireMessage
	Tools      []ToolSpec
	MaxTokens  int64
	ThinkingOn bool
	ThinkingBudgetTokens int64
}

// Provider opens a streaming completion for req.
type Provider interface {
	Stream(ctx context.Context, req Request) (Stream, error)
}
