package agentloop

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencea/cea/internal/history"
	"github.com/opencea/cea/internal/provider"
	"github.com/opencea/cea/internal/todo"
	"github.com/opencea/cea/internal/tools"
)

// queueProvider returns one pre-built Stream per Stream() call, in order.
type queueProvider struct {
	streams []provider.Stream
	calls   int
}

func (q *queueProvider) Stream(ctx context.Context, req provider.Request) (provider.Stream, error) {
	if q.calls >= len(q.streams) {
		return provider.NewFakeStream(nil, nil), nil
	}
	s := q.streams[q.calls]
	q.calls++
	return s, nil
}

func newEmptyTodoStore(t *testing.T) *todo.Store {
	t.Helper()
	return todo.New(t.TempDir(), "sess-1")
}

func TestRunStepTextOnlyStopsLoop(t *testing.T) {
	stream := provider.NewFakeStream([]provider.Event{
		{Kind: provider.EventTextDelta, TextDelta: "hello "},
		{Kind: provider.EventTextDelta, TextDelta: "world"},
		{Kind: provider.EventFinishStep, FinishReason: "end_turn"},
	}, nil)

	qp := &queueProvider{streams: []provider.Stream{stream}}
	d := New(qp, tools.New(), history.New(), newEmptyTodoStore(t), "claude-x", "be terse")

	var events []provider.Event
	err := d.Run(context.Background(), "hi", func(e provider.Event) { events = append(events, e) })
	require.NoError(t, err)

	msgs := d.History.ToModelMessages()
	require.Len(t, msgs, 2) // user + assistant
	assert.Equal(t, history.RoleAssistant, msgs[1].Role)
	require.Len(t, msgs[1].Parts, 1)
	assert.Equal(t, "hello world", msgs[1].Parts[0].Text)
}

func TestRunStepDispatchesToolCallAndAppendsResult(t *testing.T) {
	reg := tools.New()
	reg.Register(tools.Definition{Name: "echo", InputSchema: json.RawMessage(`{"type":"object"}`)}, func(ctx context.Context, input json.RawMessage) (string, error) {
		return "echoed", nil
	})

	stream := provider.NewFakeStream([]provider.Event{
		{Kind: provider.EventToolInputStart, CallID: "call_1", ToolName: "echo"},
		{Kind: provider.EventToolInputDelta, CallID: "call_1", InputDelta: `{}`},
		{Kind: provider.EventToolInputEnd, CallID: "call_1", ToolName: "echo", Input: json.RawMessage(`{}`)},
		{Kind: provider.EventFinishStep, FinishReason: "tool_use"},
	}, nil)
	stopStream := provider.NewFakeStream([]provider.Event{
		{Kind: provider.EventTextDelta, TextDelta: "done"},
		{Kind: provider.EventFinishStep, FinishReason: "end_turn"},
	}, nil)

	qp := &queueProvider{streams: []provider.Stream{stream, stopStream}}
	d := New(qp, reg, history.New(), newEmptyTodoStore(t), "claude-x", "sys")

	var toolResultSeen bool
	err := d.Run(context.Background(), "hi", func(e provider.Event) {
		if e.Kind == provider.EventToolResult {
			toolResultSeen = true
			assert.Equal(t, "echoed", e.TextDelta)
		}
	})
	require.NoError(t, err)
	assert.True(t, toolResultSeen)
	assert.Equal(t, 2, qp.calls, "tool_use finish reason must re-enter the model")

	msgs := d.History.ToModelMessages()
	var sawToolResult bool
	for _, m := range msgs {
		if m.Role == history.RoleTool {
			sawToolResult = true
			require.Len(t, m.Parts, 1)
			assert.Equal(t, "echoed", m.Parts[0].Output)
		}
	}
	assert.True(t, sawToolResult)
}

func TestRunStepToolExecutionErrorBecomesErrorLikeOutput(t *testing.T) {
	reg := tools.New()
	reg.Register(tools.Definition{Name: "fail", InputSchema: json.RawMessage(`{"type":"object"}`)}, func(ctx context.Context, input json.RawMessage) (string, error) {
		return "", assertError("boom")
	})

	stream := provider.NewFakeStream([]provider.Event{
		{Kind: provider.EventToolInputStart, CallID: "call_1", ToolName: "fail"},
		{Kind: provider.EventToolInputEnd, CallID: "call_1", ToolName: "fail", Input: json.RawMessage(`{}`)},
		{Kind: provider.EventFinishStep, FinishReason: "end_turn"},
	}, nil)

	qp := &queueProvider{streams: []provider.Stream{stream}}
	d := New(qp, reg, history.New(), newEmptyTodoStore(t), "claude-x", "sys")

	var sawToolError bool
	err := d.Run(context.Background(), "hi", func(e provider.Event) {
		if e.Kind == provider.EventToolError && e.CallID == "call_1" {
			sawToolError = true
		}
	})
	require.NoError(t, err)
	assert.True(t, sawToolError)

	msgs := d.History.ToModelMessages()
	for _, m := range msgs {
		if m.Role == history.RoleTool {
			out, ok := m.Parts[0].Output.(map[string]interface{})
			require.True(t, ok)
			assert.Equal(t, true, out["__error"])
			assert.Equal(t, "boom", out["message"])
		}
	}
}

func TestRunStepReportsMalformedPendingCall(t *testing.T) {
	stream := provider.NewFakeStream([]provider.Event{
		{Kind: provider.EventToolInputStart, CallID: "call_1", ToolName: "echo"},
		{Kind: provider.EventToolInputDelta, CallID: "call_1", InputDelta: `{"broken`},
		{Kind: provider.EventFinishStep, FinishReason: "tool_use"},
	}, nil)

	qp := &queueProvider{streams: []provider.Stream{stream}}
	d := New(qp, tools.New(), history.New(), newEmptyTodoStore(t), "claude-x", "sys")
	d.MaxSteps = 1 // keep this test to a single re-entry attempt

	var sawSummary bool
	err := d.Run(context.Background(), "hi", func(e provider.Event) {
		if e.Kind == provider.EventToolError && e.TextDelta == "all tool calls failed due to malformed JSON" {
			sawSummary = true
		}
	})
	require.NoError(t, err)
	assert.True(t, sawSummary)
}

func TestNormalizeFinishReasonAliases(t *testing.T) {
	assert.Equal(t, "tool-calls", normalizeFinishReason("tool_calls"))
	assert.Equal(t, "tool-calls", normalizeFinishReason("tool_use"))
	assert.Equal(t, "tool-calls", normalizeFinishReason("function_call"))
	assert.Equal(t, "stop", normalizeFinishReason(""))
	assert.Equal(t, "end_turn", normalizeFinishReason("end_turn"))
}

func TestRunTodoContinuationReEntersWhileTodosIncomplete(t *testing.T) {
	dir := t.TempDir()
	store := todo.New(dir, "sess-1")
	require.NoError(t, store.Write([]todo.Item{{ID: "1", Content: "finish thing", Status: todo.StatusPending}}))

	natural := provider.NewFakeStream([]provider.Event{
		{Kind: provider.EventTextDelta, TextDelta: "ok"},
		{Kind: provider.EventFinishStep, FinishReason: "end_turn"},
	}, nil)
	continuation := provider.NewFakeStream([]provider.Event{
		{Kind: provider.EventTextDelta, TextDelta: "still working"},
		{Kind: provider.EventFinishStep, FinishReason: "end_turn"},
	}, nil)

	qp := &queueProvider{streams: []provider.Stream{natural, continuation}}
	d := New(qp, tools.New(), history.New(), store, "claude-x", "sys")
	d.MaxTodoLoops = 5

	err := d.Run(context.Background(), "hi", func(provider.Event) {})
	require.NoError(t, err)

	require.NoError(t, store.Write([]todo.Item{{ID: "1", Content: "finish thing", Status: todo.StatusCompleted}}))
	assert.GreaterOrEqual(t, qp.calls, 2)
}

func TestRunTodoContinuationReportsLimitReached(t *testing.T) {
	dir := t.TempDir()
	store := todo.New(dir, "sess-1")
	require.NoError(t, store.Write([]todo.Item{{ID: "1", Content: "never done", Status: todo.StatusPending}}))

	// Every re-entry returns the same never-finishing stream; supply enough
	// for the natural loop plus every todo-continuation re-entry.
	streams := make([]provider.Stream, 0, 8)
	for i := 0; i < 8; i++ {
		streams = append(streams, provider.NewFakeStream([]provider.Event{
			{Kind: provider.EventTextDelta, TextDelta: "still going"},
			{Kind: provider.EventFinishStep, FinishReason: "end_turn"},
		}, nil))
	}
	qp := &queueProvider{streams: streams}
	d := New(qp, tools.New(), history.New(), store, "claude-x", "sys")
	d.MaxTodoLoops = 2

	var sawLimit bool
	err := d.Run(context.Background(), "hi", func(e provider.Event) {
		if e.Kind == provider.EventToolError && e.FinishReason == "Auto-continue limit reached" {
			sawLimit = true
		}
	})
	require.NoError(t, err)
	assert.True(t, sawLimit)
}

type assertError string

func (e assertError) Error() string { return string(e) }
