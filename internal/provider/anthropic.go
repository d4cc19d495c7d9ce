package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/param"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"
	"golang.org/x/time/rate"
)

// AnthropicProvider implements Provider over the Anthropic Messages API's
// streaming endpoint.
type AnthropicProvider struct {
	client  anthropic.Client
	retry   RetryConfig
	breaker *circuitBreaker
	limiter *rate.Limiter
}

// NewAnthropicProvider builds a Provider backed by apiKey, or by
// ANTHROPIC_API_KEY if apiKey is empty (the client's own default).
// requestsPerSecond caps how often Stream may open a new connection,
// independent of the provider's own account-level rate limits; 0 means
// unlimited.
func NewAnthropicProvider(apiKey string, requestsPerSecond float64) *AnthropicProvider {
	var opts []option.RequestOption
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	cfg := DefaultRetryConfig()

	var limiter *rate.Limiter
	if requestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), 1)
	}

	return &AnthropicProvider{
		client:  anthropic.NewClient(opts...),
		retry:   cfg,
		breaker: newCircuitBreaker(cfg),
		limiter: limiter,
	}
}

// Stream opens a streaming completion, retrying the connection per
// p.retry's backoff/circuit-breaker policy.
func (p *AnthropicProvider) Stream(ctx context.Context, req Request) (Stream, error) {
	params, err := buildMessageParams(req)
	if err != nil {
		return nil, fmt.Errorf("provider: build request: %w", err)
	}

	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("provider: rate limiter: %w", err)
		}
	}

	s, err := retryOpenStream(ctx, p.retry, p.breaker, func(attemptCtx context.Context) (Stream, error) {
		sdkStream := p.client.Messages.NewStreaming(attemptCtx, params)
		return &anthropicStream{sdk: sdkStream}, nil
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

func buildMessageParams(req Request) (anthropic.MessageNewParams, error) {
	messages := make([]anthropic.MessageParam, 0, len(req.Messages))
	for _, m := range req.Messages {
		blocks, err := wirePartsToBlocks(m.Parts)
		if err != nil {
			return anthropic.MessageNewParams{}, err
		}
		if len(blocks) == 0 {
			continue
		}
		switch m.Role {
		case "user", "tool":
			messages = append(messages, anthropic.NewUserMessage(blocks...))
		default:
			messages = append(messages, anthropic.NewAssistantMessage(blocks...))
		}
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		MaxTokens: req.MaxTokens,
		Messages:  messages,
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}
	if req.ThinkingOn {
		params.Thinking = anthropic.ThinkingConfigParamOfEnabled(req.ThinkingBudgetTokens)
	}
	if len(req.Tools) > 0 {
		tools := make([]anthropic.ToolUnionParam, 0, len(req.Tools))
		for _, t := range req.Tools {
			tool, err := toAnthropicTool(t)
			if err != nil {
				return anthropic.MessageNewParams{}, err
			}
			tools = append(tools, tool)
		}
		params.Tools = tools
	}
	return params, nil
}

func toAnthropicTool(spec ToolSpec) (anthropic.ToolUnionParam, error) {
	var schema struct {
		Type       string                 `json:"type"`
		Properties map[string]interface{} `json:"properties"`
		Required   []string               `json:"required"`
	}
	if len(spec.InputSchema) > 0 {
		if err := json.Unmarshal(spec.InputSchema, &schema); err != nil {
			return anthropic.ToolUnionParam{}, fmt.Errorf("tool %s: %w", spec.Name, err)
		}
	}
	return anthropic.ToolUnionParam{
		OfTool: &anthropic.ToolParam{
			Name:        spec.Name,
			Description: param.NewOpt(spec.Description),
			InputSchema: anthropic.ToolInputSchemaParam{
				Properties: schema.Properties,
				Required:   schema.Required,
			},
		},
	}, nil
}

func wirePartsToBlocks(parts []WirePart) ([]anthropic.ContentBlockParamUnion, error) {
	blocks := make([]anthropic.ContentBlockParamUnion, 0, len(parts))
	for _, p := range parts {
		switch p.Kind {
		case WirePartText:
			if p.Text != "" {
				blocks = append(blocks, anthropic.NewTextBlock(p.Text))
			}
		case WirePartToolCall:
			var input interface{}
			if len(p.Input) > 0 {
				if err := json.Unmarshal(p.Input, &input); err != nil {
					return nil, fmt.Errorf("tool call %s input: %w", p.CallID, err)
				}
			}
			blocks = append(blocks, anthropic.NewToolUseBlock(p.CallID, input, p.Name))
		case WirePartToolResult:
			output, err := json.Marshal(p.Output)
			if err != nil {
				return nil, fmt.Errorf("tool result %s output: %w", p.CallID, err)
			}
			blocks = append(blocks, anthropic.NewToolResultBlock(p.CallID, string(output), false))
		}
	}
	return blocks, nil
}

// anthropicStream translates raw SSE events from the SDK's
// ssestream.Stream into the unified Event shape C7 consumes.
type anthropicStream struct {
	sdk *ssestream.Stream[anthropic.MessageStreamEventUnion]

	currentToolID   string
	currentToolName string
	inputBuf        strings.Builder
}

func (s *anthropicStream) Next() (Event, bool, error) {
	for s.sdk.Next() {
		event := s.sdk.Current()

		switch event.Type {
		case "content_block_start":
			evt := event.AsContentBlockStart()
			if evt.ContentBlock.Type == "tool_use" {
				s.currentToolID = evt.ContentBlock.ID
				s.currentToolName = evt.ContentBlock.Name
				s.inputBuf.Reset()
				return Event{Kind: EventToolInputStart, CallID: s.currentToolID, ToolName: s.currentToolName}, true, nil
			}

		case "content_block_delta":
			evt := event.AsContentBlockDelta()
			switch evt.Delta.Type {
			case "text_delta":
				return Event{Kind: EventTextDelta, TextDelta: evt.Delta.Text}, true, nil
			case "thinking_delta":
				return Event{Kind: EventReasoningDelta, ReasoningDelta: evt.Delta.Thinking}, true, nil
			case "input_json_delta":
				s.inputBuf.WriteString(evt.Delta.PartialJSON)
				return Event{Kind: EventToolInputDelta, CallID: s.currentToolID, InputDelta: evt.Delta.PartialJSON}, true, nil
			}

		case "content_block_stop":
			if s.currentToolID != "" {
				callID, name := s.currentToolID, s.currentToolName
				input := json.RawMessage(s.inputBuf.String())
				s.currentToolID = ""
				s.currentToolName = ""
				return Event{Kind: EventToolInputEnd, CallID: callID, ToolName: name, Input: input}, true, nil
			}

		case "message_delta":
			evt := event.AsMessageDelta()
			return Event{
				Kind:         EventFinishStep,
				FinishReason: string(evt.Delta.StopReason),
				Usage: Usage{
					InputTokens:              evt.Usage.InputTokens,
					OutputTokens:             evt.Usage.OutputTokens,
					CacheCreationInputTokens: evt.Usage.CacheCreationInputTokens,
					CacheReadInputTokens:     evt.Usage.CacheReadInputTokens,
				},
			}, true, nil

		case "message_stop":
			continue
		}
	}

	if err := s.sdk.Err(); err != nil {
		return Event{}, false, err
	}
	return Event{}, false, nil
}

func (s *anthropicStream) Close() error {
	return s.sdk.Close()
}
