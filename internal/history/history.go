// Package history implements the append-only conversation log consumed
// by the tool-loop driver (C7): a provider-agnostic Message/Part model,
// generalized from the teacher's Anthropic-SDK-typed history slice in
// internal/repl/conversation.go so the model-provider dependency lives
// only in internal/provider, not here.
package history

import (
	"encoding/json"
	"strings"
	"sync"
	"time"
)

// Role is who authored a Message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// PartKind distinguishes the four part shapes a Message's content can
// carry, per spec.md §3.
type PartKind string

const (
	PartText       PartKind = "text"
	PartReasoning  PartKind = "reasoning"
	PartToolCall   PartKind = "tool-call"
	PartToolResult PartKind = "tool-result"
)

// Part is one piece of a Message's structured content.
type Part struct {
	Kind PartKind `json:"kind"`

	// Text holds the payload for PartText and PartReasoning.
	Text string `json:"text,omitempty"`

	// Name and CallID identify a PartToolCall; Input is its raw argument
	// JSON. CallID is reused on the matching PartToolResult.
	Name   string          `json:"name,omitempty"`
	CallID string          `json:"call_id,omitempty"`
	Input  json.RawMessage `json:"input,omitempty"`

	// Output holds a PartToolResult's decoded return value.
	Output interface{} `json:"output,omitempty"`

	// ProviderOptions is opaque passthrough data (e.g. Anthropic cache
	// control hints) preserved verbatim across trim/serialize passes.
	ProviderOptions map[string]interface{} `json:"provider_options,omitempty"`
}

// Message is one turn of the conversation. Content is a plain-string
// shorthand for simple messages; Parts is used whenever structure
// (reasoning, tool calls/results) is present. A Message never sets both.
type Message struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Role      Role      `json:"role"`
	Content   string    `json:"content,omitempty"`
	Parts     []Part    `json:"parts,omitempty"`
}

// History is the append-only, mutex-guarded conversation log for one
// session.
type History struct {
	mu       sync.Mutex
	messages []Message
}

// New constructs an empty History.
func New() *History {
	return &History{}
}

// AddUser appends a plain-text user message.
func (h *History) AddUser(id string, createdAt time.Time, content string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = append(h.messages, Message{ID: id, CreatedAt: createdAt, Role: RoleUser, Content: content})
}

// AddModelMessages appends a batch of provider-produced messages
// (typically one assistant message plus any tool messages from a single
// step), applying the add-time normalization spec.md §3 requires:
// trailing-newline trimming on an assistant message's final text part,
// and deep error-like serialization of tool-result outputs.
func (h *History) AddModelMessages(batch []Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i := range batch {
		if batch[i].Role == RoleAssistant {
			trimFinalTextPart(&batch[i])
		}
		serializeToolResults(&batch[i])
	}
	h.messages = append(h.messages, batch...)
}

// Restore replaces the log wholesale with messages previously obtained
// from ToModelMessages (e.g. loaded back from a session snapshot). No
// add-time normalization is re-applied since a snapshot already holds
// normalized messages.
func (h *History) Restore(messages []Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = append([]Message(nil), messages...)
}

// Clear empties the log.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = nil
}

// ToModelMessages returns a snapshot of the log suitable for
// re-submission to the model provider. The returned slice is a copy;
// mutating it does not affect the log.
func (h *History) ToModelMessages() []Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Message, len(h.messages))
	copy(out, h.messages)
	return out
}

// Len reports how many messages are in the log.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.messages)
}

// trimFinalTextPart strips trailing newlines from the last PartText in
// msg.Parts, leaving every other field of every part untouched.
func trimFinalTextPart(msg *Message) {
	for i := len(msg.Parts) - 1; i >= 0; i-- {
		if msg.Parts[i].Kind == PartText {
			msg.Parts[i].Text = strings.TrimRight(msg.Parts[i].Text, "\n")
			return
		}
	}
}

// serializeToolResults deeply rewrites every PartToolResult's Output so
// nested Error-like values become a stable, schema-safe shape rather
// than whatever an arbitrary tool happened to throw.
func serializeToolResults(msg *Message) {
	for i := range msg.Parts {
		if msg.Parts[i].Kind == PartToolResult {
			msg.Parts[i].Output = serializeValue(msg.Parts[i].Output)
		}
	}
}

// serializeValue recursively rewrites v: arrays map element-wise, plain
// records (maps) map field-wise, an Error-like record becomes
// { __error: true, name, message, stack }, and every other value
// (strings, numbers, bools, nil) passes through unchanged.
func serializeValue(v interface{}) interface{} {
	switch val := v.(type) {
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, e := range val {
			out[i] = serializeValue(e)
		}
		return out
	case map[string]interface{}:
		if isErrorLike(val) {
			return map[string]interface{}{
				"__error": true,
				"name":    stringField(val, "name"),
				"message": stringField(val, "message"),
				"stack":   stringField(val, "stack"),
			}
		}
		out := make(map[string]interface{}, len(val))
		for k, e := range val {
			out[k] = serializeValue(e)
		}
		return out
	default:
		return val
	}
}

// isErrorLike recognizes the shape JavaScript/Go error values typically
// decode to: a "message" field plus a "name" or "stack" field.
func isErrorLike(m map[string]interface{}) bool {
	_, hasMessage := m["message"]
	_, hasName := m["name"]
	_, hasStack := m["stack"]
	return hasMessage && (hasName || hasStack)
}

func stringField(m map[string]interface{}, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}
