package main

import (
	"encoding/json"
	"io"
	"time"

	"github.com/opencea/cea/internal/provider"
)

// trajectoryEvent is the NDJSON line schema spec.md §6 names. Every field
// but timestamp/type/sessionId is optional and only populated for the
// event kinds it's meaningful for.
type trajectoryEvent struct {
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
	SessionID string `json:"sessionId"`

	Content          string      `json:"content,omitempty"`
	Model            string      `json:"model,omitempty"`
	ReasoningContent string      `json:"reasoning_content,omitempty"`
	ToolCallID       string      `json:"tool_call_id,omitempty"`
	ToolName         string      `json:"tool_name,omitempty"`
	ToolInput        interface{} `json:"tool_input,omitempty"`
	Output           string      `json:"output,omitempty"`
	Error            string      `json:"error,omitempty"`
	ExitCode         *int        `json:"exit_code,omitempty"`
}

// trajectoryWriter serializes each written event as one NDJSON line.
type trajectoryWriter struct {
	enc       *json.Encoder
	sessionID string
	model     string
}

func newTrajectoryWriter(w io.Writer, sessionID, model string) *trajectoryWriter {
	return &trajectoryWriter{enc: json.NewEncoder(w), sessionID: sessionID, model: model}
}

func (tw *trajectoryWriter) writeUser(content string) error {
	return tw.enc.Encode(trajectoryEvent{
		Timestamp: isoNow(),
		Type:      "user",
		SessionID: tw.sessionID,
		Content:   content,
	})
}

func (tw *trajectoryWriter) writeError(msg string) error {
	return tw.enc.Encode(trajectoryEvent{
		Timestamp: isoNow(),
		Type:      "error",
		SessionID: tw.sessionID,
		Error:     msg,
	})
}

// writeEvent translates one provider.Event from the tool loop into zero
// or one NDJSON lines. Pure streaming-plumbing events (tool-input-start/
// delta/end, finish-step) carry no trajectory-visible state of their own
// and are skipped; their effects already surfaced as text/reasoning
// deltas, a tool_call event, or a tool_result/error event.
func (tw *trajectoryWriter) writeEvent(ev provider.Event) error {
	te, ok := tw.translate(ev)
	if !ok {
		return nil
	}
	return tw.enc.Encode(te)
}

func (tw *trajectoryWriter) translate(ev provider.Event) (trajectoryEvent, bool) {
	base := trajectoryEvent{Timestamp: isoNow(), SessionID: tw.sessionID, Model: tw.model}

	switch ev.Kind {
	case provider.EventTextDelta:
		base.Type = "assistant"
		base.Content = ev.TextDelta
		return base, true

	case provider.EventReasoningDelta:
		base.Type = "assistant"
		base.ReasoningContent = ev.ReasoningDelta
		return base, true

	case provider.EventToolCall:
		base.Type = "tool_call"
		base.ToolCallID = ev.CallID
		base.ToolName = ev.ToolName
		base.ToolInput = decodeToolInput(ev.Input)
		return base, true

	case provider.EventToolResult:
		base.Type = "tool_result"
		base.ToolCallID = ev.CallID
		base.ToolName = ev.ToolName
		base.Output = ev.TextDelta
		return base, true

	case provider.EventToolError:
		msg := ev.TextDelta
		if msg == "" {
			msg = ev.FinishReason
		}
		if ev.CallID != "" {
			base.Type = "tool_result"
			base.ToolCallID = ev.CallID
			base.ToolName = ev.ToolName
			base.Error = msg
		} else {
			base.Type = "error"
			base.Error = msg
		}
		return base, true

	default:
		return trajectoryEvent{}, false
	}
}

func decodeToolInput(raw []byte) interface{} {
	if len(raw) == 0 {
		return nil
	}
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	return v
}

func isoNow() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
