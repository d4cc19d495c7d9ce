package tools

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryExecuteDispatchesByName(t *testing.T) {
	r := New()
	r.Register(Definition{
		Name:        "echo",
		InputSchema: json.RawMessage(`{"type":"object","properties":{"text":{"type":"string"}},"required":["text"]}`),
	}, func(ctx context.Context, input json.RawMessage) (string, error) {
		var in struct {
			Text string `json:"text"`
		}
		require.NoError(t, json.Unmarshal(input, &in))
		return "echo:" + in.Text, nil
	})

	out, err := r.Execute(context.Background(), "echo", json.RawMessage(`{"text":"hi"}`))
	require.NoError(t, err)
	assert.Equal(t, "echo:hi", out)
}

func TestRegistryExecuteUnknownTool(t *testing.T) {
	r := New()
	_, err := r.Execute(context.Background(), "nonexistent", json.RawMessage(`{}`))
	assert.Error(t, err)
}

func TestRegistryExecuteRejectsMissingRequiredField(t *testing.T) {
	r := New()
	r.Register(Definition{
		Name:        "needs_x",
		InputSchema: json.RawMessage(`{"type":"object","properties":{"x":{"type":"string"}},"required":["x"]}`),
	}, func(ctx context.Context, input json.RawMessage) (string, error) {
		return "ok", nil
	})

	_, err := r.Execute(context.Background(), "needs_x", json.RawMessage(`{}`))
	assert.Error(t, err)
}

func TestRegistryExecuteRejectsWrongType(t *testing.T) {
	r := New()
	r.Register(Definition{
		Name:        "needs_int",
		InputSchema: json.RawMessage(`{"type":"object","properties":{"n":{"type":"integer"}},"required":["n"]}`),
	}, func(ctx context.Context, input json.RawMessage) (string, error) {
		return "ok", nil
	})

	_, err := r.Execute(context.Background(), "needs_int", json.RawMessage(`{"n":"not a number"}`))
	assert.Error(t, err)
}

func TestRegistryDefinitionsPreservesOrder(t *testing.T) {
	r := New()
	r.Register(Definition{Name: "first"}, func(context.Context, json.RawMessage) (string, error) { return "", nil })
	r.Register(Definition{Name: "second"}, func(context.Context, json.RawMessage) (string, error) { return "", nil })

	defs := r.Definitions()
	require.Len(t, defs, 2)
	assert.Equal(t, "first", defs[0].Name)
	assert.Equal(t, "second", defs[1].Name)
}

func TestRegistryNeedsApproval(t *testing.T) {
	r := New()
	r.Register(Definition{Name: "dangerous", NeedsApproval: true}, func(context.Context, json.RawMessage) (string, error) { return "", nil })
	r.Register(Definition{Name: "safe"}, func(context.Context, json.RawMessage) (string, error) { return "", nil })

	assert.True(t, r.NeedsApproval("dangerous"))
	assert.False(t, r.NeedsApproval("safe"))
	assert.False(t, r.NeedsApproval("unknown"))
}
