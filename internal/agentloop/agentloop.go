// Package agentloop implements the tool-loop driver (C7): it opens a
// streaming generation against the model provider, dispatches tool
// calls through the tool registry as they complete, appends every turn
// to the message history, and re-enters the model until the finish
// reason stops being tool-calls or a todo-continuation ceiling is hit.
package agentloop

import (
	"context"
	"fmt"
	"strings"

	"github.com/opencea/cea/internal/cost"
	"github.com/opencea/cea/internal/history"
	"github.com/opencea/cea/internal/provider"
	"github.com/opencea/cea/internal/todo"
	"github.com/opencea/cea/internal/tools"
)

// ManualToolLoopMaxSteps is the hard ceiling on model re-entries within
// one natural tool loop (spec MANUAL_TOOL_LOOP_MAX_STEPS).
const ManualToolLoopMaxSteps = 200

// TodoContinuationMaxLoops bounds how many times the driver re-enters
// the model after the natural tool loop completes, to chase down
// incomplete todos (spec TODO_CONTINUATION_MAX_LOOPS).
const TodoContinuationMaxLoops = 5

// EmitFunc receives every caller-visible event the driver produces, in
// order: passthrough model-stream deltas plus the tool-call/tool-result/
// tool-error events synthesized around each dispatched tool.
type EmitFunc func(provider.Event)

// Driver runs one session's tool loop.
type Driver struct {
	Provider provider.Provider
	Tools    *tools.Registry
	History  *history.History
	Todos    *todo.Store
	Cost     *cost.Tracker

	Model                string
	System               string
	MaxTokens            int64
	ThinkingOn           bool
	ThinkingBudgetTokens int64

	MaxSteps     int
	MaxTodoLoops int
}

// New builds a Driver with spec-default ceilings; callers may override
// MaxSteps/MaxTodoLoops afterward (internal/config supplies the
// configured values).
func New(p provider.Provider, reg *tools.Registry, h *history.History, store *todo.Store, model, system string) *Driver {
	return &Driver{
		Provider:     p,
		Tools:        reg,
		History:      h,
		Todos:        store,
		Model:        model,
		System:       system,
		MaxTokens:    4096,
		MaxSteps:     ManualToolLoopMaxSteps,
		MaxTodoLoops: TodoContinuationMaxLoops,
	}
}

// Run seeds history with prompt as a user message, drives the natural
// tool loop, then the todo-continuation loop, emitting every event to
// emit as it happens.
func (d *Driver) Run(ctx context.Context, prompt string, emit EmitFunc) error {
	d.History.AddUser(newMessageID(), timeNow(), prompt)

	if err := d.runToolLoop(ctx, emit); err != nil {
		return err
	}
	return d.runTodoContinuation(ctx, emit)
}

// runToolLoop re-enters the model while the normalized finish reason is
// "tool-calls", up to MaxSteps times.
func (d *Driver) runToolLoop(ctx context.Context, emit EmitFunc) error {
	for step := 0; step < d.MaxSteps; step++ {
		if d.Cost != nil && d.Cost.Exceeded() {
			emit(provider.Event{Kind: provider.EventToolError, TextDelta: "cost limit exceeded"})
			return nil
		}

		finishReason, err := d.runStep(ctx, emit)
		if err != nil {
			return err
		}
		if finishReason != "tool-calls" {
			return nil
		}
	}
	return nil
}

// runTodoContinuation re-enters the model while incomplete todos remain,
// up to MaxTodoLoops times; on the next iteration past that it reports
// "Auto-continue limit reached" and stops.
func (d *Driver) runTodoContinuation(ctx context.Context, emit EmitFunc) error {
	for i := 0; i < d.MaxTodoLoops; i++ {
		incomplete, err := d.Todos.Incomplete()
		if err != nil {
			return fmt.Errorf("agentloop: reading todos: %w", err)
		}
		if len(incomplete) == 0 {
			return nil
		}

		d.History.AddUser(newMessageID(), timeNow(), continuationPrompt(incomplete))
		if err := d.runToolLoop(ctx, emit); err != nil {
			return err
		}
	}

	incomplete, err := d.Todos.Incomplete()
	if err == nil && len(incomplete) > 0 {
		emit(provider.Event{Kind: provider.EventToolError, FinishReason: "Auto-continue limit reached"})
	}
	return nil
}

func continuationPrompt(incomplete []todo.Item) string {
	var b strings.Builder
	b.WriteString("The following todos are still incomplete; continue working on them:\n")
	for _, item := range incomplete {
		fmt.Fprintf(&b, "- [%s] %s\n", item.Status, item.Content)
	}
	return b.String()
}

// pendingCall tracks one tool call's streamed-in input until its
// content_block_stop/tool-input-end arrives.
type pendingCall struct {
	name    string
	argsBuf strings.Builder
}

// stepResult accumulates one step's assistant-visible content so it can
// be written to history as a single well-formed assistant message
// followed by a single tool-result message, preserving emission order.
type stepResult struct {
	text          strings.Builder
	reasoning     strings.Builder
	toolCallParts []history.Part
	toolResultParts []history.Part
}

// runStep opens one streaming turn and processes it to completion (or
// to context cancellation), returning the normalized finish reason.
func (d *Driver) runStep(ctx context.Context, emit EmitFunc) (string, error) {
	req := provider.Request{
		Model:                d.Model,
		System:               d.System,
		MaxTokens:            d.MaxTokens,
		ThinkingOn:           d.ThinkingOn,
		ThinkingBudgetTokens: d.ThinkingBudgetTokens,
		Messages:             toWireMessages(d.History.ToModelMessages()),
		Tools:                toToolSpecs(d.Tools.Definitions()),
	}

	stream, err := d.Provider.Stream(ctx, req)
	if err != nil {
		return "", fmt.Errorf("agentloop: open stream: %w", err)
	}
	defer stream.Close()

	pending := map[string]*pendingCall{}
	var callOrder []string
	completed := map[string]bool{}
	lastFinishReason := ""
	result := &stepResult{}

	flush := func() {
		d.flushStep(result)
	}

	for {
		if err := ctx.Err(); err != nil {
			flush()
			d.reportMalformedCalls(emit, pending, callOrder, completed, lastFinishReason)
			return "", fmt.Errorf("agentloop: cancelled: %w", err)
		}

		ev, ok, err := stream.Next()
		if err != nil {
			flush()
			d.reportMalformedCalls(emit, pending, callOrder, completed, lastFinishReason)
			return "", fmt.Errorf("agentloop: stream: %w", err)
		}
		if !ok {
			break
		}

		switch ev.Kind {
		case provider.EventTextDelta:
			result.text.WriteString(ev.TextDelta)
			emit(ev)

		case provider.EventReasoningDelta:
			result.reasoning.WriteString(ev.ReasoningDelta)
			emit(ev)

		case provider.EventToolInputStart:
			pending[ev.CallID] = &pendingCall{name: ev.ToolName}
			callOrder = append(callOrder, ev.CallID)
			emit(ev)

		case provider.EventToolInputDelta:
			if pc, ok := pending[ev.CallID]; ok {
				pc.argsBuf.WriteString(ev.InputDelta)
			}
			emit(ev)

		case provider.EventToolInputEnd:
			emit(ev)
			d.dispatchToolCall(ctx, ev, result, completed, emit)
			result.reasoning.Reset()

		case provider.EventFinishStep:
			lastFinishReason = normalizeFinishReason(ev.FinishReason)
			if d.Cost != nil {
				d.Cost.Record(cost.Usage{
					InputTokens:      ev.Usage.InputTokens,
					OutputTokens:     ev.Usage.OutputTokens,
					CacheReadTokens:  ev.Usage.CacheReadInputTokens,
					CacheWriteTokens: ev.Usage.CacheCreationInputTokens,
				}, timeNow())
			}
			emit(ev)
		}
	}

	flush()
	d.reportMalformedCalls(emit, pending, callOrder, completed, lastFinishReason)
	return lastFinishReason, nil
}

// dispatchToolCall executes one completed tool call and records its
// result/error part for the step's pending history flush.
func (d *Driver) dispatchToolCall(ctx context.Context, ev provider.Event, result *stepResult, completed map[string]bool, emit EmitFunc) {
	result.toolCallParts = append(result.toolCallParts, history.Part{
		Kind:   history.PartToolCall,
		Name:   ev.ToolName,
		CallID: ev.CallID,
		Input:  ev.Input,
	})
	emit(provider.Event{Kind: provider.EventToolCall, CallID: ev.CallID, ToolName: ev.ToolName, Input: ev.Input})

	output, err := d.Tools.Execute(ctx, ev.ToolName, ev.Input)
	completed[ev.CallID] = true

	if err != nil {
		result.toolResultParts = append(result.toolResultParts, history.Part{
			Kind:   history.PartToolResult,
			CallID: ev.CallID,
			Output: map[string]interface{}{"message": err.Error(), "name": "ToolError"},
		})
		emit(provider.Event{Kind: provider.EventToolError, CallID: ev.CallID, ToolName: ev.ToolName, TextDelta: err.Error()})
		return
	}

	result.toolResultParts = append(result.toolResultParts, history.Part{
		Kind:   history.PartToolResult,
		CallID: ev.CallID,
		Output: output,
	})
	emit(provider.Event{Kind: provider.EventToolResult, CallID: ev.CallID, ToolName: ev.ToolName, TextDelta: output})
}

// flushStep writes the accumulated assistant content (text, reasoning,
// tool-call parts) as one message, followed by one tool-role message
// carrying every tool-result part, preserving call order.
func (d *Driver) flushStep(result *stepResult) {
	var assistantParts []history.Part
	if result.reasoning.Len() > 0 {
		assistantParts = append(assistantParts, history.Part{Kind: history.PartReasoning, Text: result.reasoning.String()})
	}
	if result.text.Len() > 0 {
		assistantParts = append(assistantParts, history.Part{Kind: history.PartText, Text: result.text.String()})
	}
	assistantParts = append(assistantParts, result.toolCallParts...)

	if len(assistantParts) == 0 && len(result.toolResultParts) == 0 {
		return
	}

	batch := make([]history.Message, 0, 2)
	if len(assistantParts) > 0 {
		batch = append(batch, history.Message{ID: newMessageID(), CreatedAt: timeNow(), Role: history.RoleAssistant, Parts: assistantParts})
	}
	if len(result.toolResultParts) > 0 {
		batch = append(batch, history.Message{ID: newMessageID(), CreatedAt: timeNow(), Role: history.RoleTool, Parts: result.toolResultParts})
	}
	d.History.AddModelMessages(batch)

	*result = stepResult{}
}

// reportMalformedCalls reports, per spec §4.7, every pending_tool_call
// whose id never completed, plus a summary error if the model claimed
// tool-calls but none of them completed.
func (d *Driver) reportMalformedCalls(emit EmitFunc, pending map[string]*pendingCall, order []string, completed map[string]bool, lastFinishReason string) {
	var anyPending bool
	for _, id := range order {
		if completed[id] {
			continue
		}
		anyPending = true
		pc := pending[id]
		raw := pc.argsBuf.String()
		if len(raw) > 500 {
			raw = raw[:500]
		}
		emit(provider.Event{
			Kind:      provider.EventToolError,
			CallID:    id,
			ToolName:  pc.name,
			TextDelta: fmt.Sprintf("malformed tool call arguments (truncated): %s", raw),
		})
	}

	if lastFinishReason == "tool-calls" && len(completed) == 0 && anyPending {
		emit(provider.Event{Kind: provider.EventToolError, TextDelta: "all tool calls failed due to malformed JSON"})
	}
}

// normalizeFinishReason aliases provider-specific stop reasons onto the
// spec's "tool-calls" sentinel.
func normalizeFinishReason(raw string) string {
	switch raw {
	case "tool_calls", "tool_use", "function_call":
		return "tool-calls"
	case "":
		return "stop"
	default:
		return raw
	}
}

func toWireMessages(msgs []history.Message) []provider.WireMessage {
	out := make([]provider.WireMessage, 0, len(msgs))
	for _, m := range msgs {
		wm := provider.WireMessage{Role: string(m.Role)}
		if m.Content != "" {
			wm.Parts = append(wm.Parts, provider.WirePart{Kind: provider.WirePartText, Text: m.Content})
		}
		for _, p := range m.Parts {
			switch p.Kind {
			case history.PartText, history.PartReasoning:
				if p.Text != "" {
					wm.Parts = append(wm.Parts, provider.WirePart{Kind: provider.WirePartText, Text: p.Text})
				}
			case history.PartToolCall:
				wm.Parts = append(wm.Parts, provider.WirePart{Kind: provider.WirePartToolCall, Name: p.Name, CallID: p.CallID, Input: p.Input})
			case history.PartToolResult:
				wm.Parts = append(wm.Parts, provider.WirePart{Kind: provider.WirePartToolResult, CallID: p.CallID, Output: p.Output})
			}
		}
		out = append(out, wm)
	}
	return out
}

func toToolSpecs(defs []tools.Definition) []provider.ToolSpec {
	out := make([]provider.ToolSpec, len(defs))
	for i, d := range defs {
		out[i] = provider.ToolSpec{Name: d.Name, Description: d.Description, InputSchema: d.InputSchema}
	}
	return out
}
