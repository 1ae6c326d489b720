// Package agent implements Envoy's agent loop (spec §4.F): the bounded
// step-by-step model-call / tool-execute / re-enter cycle that turns one
// user message into a streamed assistant reply, plus the provider
// abstraction, tool registry, and concurrent tool executor it depends on.
package agent

import (
	"github.com/4ug-aug/envoy-v2/internal/bus"
	"github.com/4ug-aug/envoy-v2/internal/observability"
)

// Runtime wires together everything ProcessTurn needs for one turn: the
// configured LLMProvider, the event bus turn progress is published to, and
// the two sources that make the agent self-extending — the tool set (D ∪ E)
// and the system prompt, both rebuilt fresh every turn.
type Runtime struct {
	Provider     LLMProvider
	Bus          *bus.Bus
	Tools        ToolSource
	Prompt       PromptSource
	DefaultModel string
	Logger       *observability.Logger

	// Metrics and Tracer are optional; both are nil-safe at every call
	// site so a Runtime built without them behaves exactly as before.
	Metrics *observability.Metrics
	Tracer  *observability.Tracer
}

// NewRuntime builds a Runtime. logger may be nil, in which case a default
// logger is used.
func NewRuntime(provider LLMProvider, b *bus.Bus, tools ToolSource, prompt PromptSource, defaultModel string, logger *observability.Logger) *Runtime {
	if logger == nil {
		logger = observability.MustNewLogger(observability.LogConfig{})
	}
	return &Runtime{
		Provider:     provider,
		Bus:          b,
		Tools:        tools,
		Prompt:       prompt,
		DefaultModel: defaultModel,
		Logger:       logger,
	}
}
