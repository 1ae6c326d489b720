package providers

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/4ug-aug/envoy-v2/internal/agent"
	"github.com/4ug-aug/envoy-v2/pkg/models"
)

func TestConvertToOpenAIMessages(t *testing.T) {
	tests := []struct {
		name     string
		messages []agent.CompletionMessage
		system   string
		wantLen  int
	}{
		{
			name: "basic text messages",
			messages: []agent.CompletionMessage{
				{Role: "user", Content: "Hello"},
				{Role: "assistant", Content: "Hi there!"},
			},
			system:  "You are a helpful assistant",
			wantLen: 3,
		},
		{
			name: "message with tool calls",
			messages: []agent.CompletionMessage{
				{Role: "user", Content: "What's the weather?"},
				{
					Role: "assistant",
					ToolCalls: []models.ToolCall{
						{ID: "call_123", Name: "get_weather", Input: json.RawMessage(`{"location":"NYC"}`)},
					},
				},
			},
			wantLen: 2,
		},
		{
			name: "message with multiple tool results becomes one message each",
			messages: []agent.CompletionMessage{
				{
					Role: "tool",
					ToolResults: []models.ToolResult{
						{ToolCallID: "call_1", Content: "Sunny, 72F"},
						{ToolCallID: "call_2", Content: "Rainy, 55F"},
					},
				},
			},
			wantLen: 2,
		},
	}

	p := &OpenAIProvider{}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.convertToOpenAIMessages(tt.messages, tt.system)
			if err != nil {
				t.Fatalf("convertToOpenAIMessages() error = %v", err)
			}
			if len(got) != tt.wantLen {
				t.Fatalf("got %d messages, want %d", len(got), tt.wantLen)
			}
		})
	}
}

func TestConvertToOpenAITools(t *testing.T) {
	tools := []agent.Tool{
		fakeTool{name: "search", description: "search the web", schema: `{"type":"object","properties":{"q":{"type":"string"}}}`},
	}

	p := &OpenAIProvider{}
	got := p.convertToOpenAITools(tools)
	if len(got) != 1 {
		t.Fatalf("got %d tools, want 1", len(got))
	}
	if got[0].Function.Name != "search" {
		t.Fatalf("unexpected function name: %s", got[0].Function.Name)
	}
}

func TestConvertToOpenAIToolsInvalidSchemaFallsBack(t *testing.T) {
	tools := []agent.Tool{
		fakeTool{name: "broken", description: "has bad schema", schema: `not json`},
	}

	p := &OpenAIProvider{}
	got := p.convertToOpenAITools(tools)
	if len(got) != 1 {
		t.Fatalf("got %d tools, want 1", len(got))
	}
	params, ok := got[0].Function.Parameters.(map[string]any)
	if !ok || params["type"] != "object" {
		t.Fatalf("expected empty object schema fallback, got %#v", got[0].Function.Parameters)
	}
}

func TestOpenAIProviderIdentity(t *testing.T) {
	p := NewOpenAIProvider("sk-test")
	if p.Name() != "openai" {
		t.Fatalf("unexpected name: %s", p.Name())
	}
	if !p.SupportsTools() {
		t.Fatal("expected SupportsTools to be true")
	}
	if len(p.Models()) == 0 {
		t.Fatal("expected at least one model")
	}
}

func TestNewOpenAIProviderWithEmptyKeyAllowsDelayedConfig(t *testing.T) {
	p := NewOpenAIProvider("")
	if p.client != nil {
		t.Fatal("expected nil client for empty API key")
	}
}

func TestOpenAIIsRetryableError(t *testing.T) {
	p := &OpenAIProvider{}
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errString("rate limit exceeded"), true},
		{errString("received 503 from upstream"), true},
		{errString("request timeout"), true},
		{errString("invalid api key"), false},
	}
	for _, tc := range cases {
		if got := p.isRetryableError(tc.err); got != tc.want {
			t.Errorf("isRetryableError(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}

type errString string

func (e errString) Error() string { return string(e) }

type fakeTool struct {
	name        string
	description string
	schema      string
}

func (f fakeTool) Name() string           { return f.name }
func (f fakeTool) Description() string    { return f.description }
func (f fakeTool) Schema() json.RawMessage { return json.RawMessage(f.schema) }
func (f fakeTool) Execute(_ context.Context, _ json.RawMessage) (*agent.ToolResult, error) {
	return &agent.ToolResult{Content: "ok"}, nil
}
