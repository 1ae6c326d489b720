package main

import (
	"context"
	"fmt"

	"github.com/4ug-aug/envoy-v2/internal/agent"
	"github.com/4ug-aug/envoy-v2/internal/agent/providers"
	"github.com/4ug-aug/envoy-v2/internal/bus"
	"github.com/4ug-aug/envoy-v2/internal/catalog"
	"github.com/4ug-aug/envoy-v2/internal/config"
	"github.com/4ug-aug/envoy-v2/internal/integrations"
	"github.com/4ug-aug/envoy-v2/internal/metatools"
	"github.com/4ug-aug/envoy-v2/internal/observability"
	"github.com/4ug-aug/envoy-v2/internal/promptsource"
	"github.com/4ug-aug/envoy-v2/internal/sandbox"
	"github.com/4ug-aug/envoy-v2/internal/scheduler"
	"github.com/4ug-aug/envoy-v2/internal/store"
	"github.com/4ug-aug/envoy-v2/internal/tools/tasks"
	"github.com/4ug-aug/envoy-v2/pkg/models"
)

// stack holds every component wired from a loaded Config. serve and tools
// both build one of these; only serve also starts the scheduler and the
// HTTP server.
type stack struct {
	store        store.Store
	bus          *bus.Bus
	sandbox      *sandbox.Executor
	catalog      *catalog.Catalog
	integrations *integrations.Manager
	scheduler    *scheduler.Scheduler
	runtime      *agent.Runtime
	builtins     []agent.Tool
	logger       *observability.Logger
	metrics      *observability.Metrics
	tracerClose  func(context.Context) error
}

// buildStack wires B (store), C (sandbox), D (catalog), E (integrations),
// H (scheduler), and F (agent runtime) from cfg, in that dependency order.
// It does not start anything with a background goroutine — callers decide
// whether to call Start on the scheduler and HTTP server.
func buildStack(cfg *config.Config) (*stack, error) {
	logger := observability.NewLogger(observability.LogConfig{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})

	metrics := observability.NewMetrics()
	tracer, tracerClose := observability.NewTracer(observability.TraceConfig{
		ServiceName:    cfg.Tracing.ServiceName,
		ServiceVersion: version,
		Environment:    cfg.Tracing.Environment,
		Endpoint:       tracingEndpoint(cfg.Tracing),
		SamplingRate:   cfg.Tracing.SamplingRate,
		Attributes:     cfg.Tracing.Attributes,
		EnableInsecure: cfg.Tracing.Insecure,
	})

	s, err := openStore(cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	s = store.NewInstrumented(s, metrics, tracer)

	b := bus.New()
	sb := &sandbox.Executor{WorkspaceRoot: cfg.Tools.Sandbox.WorkspaceRoot}

	builtins := catalog.DefaultBuiltins(catalog.BuiltinsConfig{
		Workspace: cfg.Tools.Sandbox.WorkspaceRoot,
	})
	cat := catalog.New(s, sb, builtins, logger)
	mgr := integrations.New(s, sb, ".envoy.env")

	provider, err := buildProvider(cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("build llm provider: %w", err)
	}

	runtimeRef := &runtimeProxy{}
	sched := scheduler.New(s, runtimeRef, logger)

	toolSource := &aggregateToolSource{catalog: cat, metatools: metatools.All(cat, mgr, s, sched), taskTool: tasks.NewTool(sched)}
	promptSrc := promptsource.New(
		"You are Envoy, a conversational agent that can extend your own tools, integrations, and schedule.",
		cat, mgr, s, sched,
	)

	defaultModel := cfg.LLM.Providers[cfg.LLM.DefaultProvider].DefaultModel
	rt := agent.NewRuntime(provider, b, toolSource, promptSrc, defaultModel, logger)
	rt.Metrics = metrics
	rt.Tracer = tracer
	runtimeRef.runtime = rt

	return &stack{
		store:        s,
		bus:          b,
		sandbox:      sb,
		catalog:      cat,
		integrations: mgr,
		scheduler:    sched,
		runtime:      rt,
		builtins:     builtins,
		logger:       logger,
		metrics:      metrics,
		tracerClose:  tracerClose,
	}, nil
}

func openStore(cfg config.StoreConfig) (store.Store, error) {
	if cfg.Driver == "memory" {
		return store.NewMemoryStore(), nil
	}
	return store.Open(cfg.Path)
}

// tracingEndpoint returns the OTLP endpoint to export to, or "" to fall
// back to observability.NewTracer's no-op tracer when tracing is disabled.
func tracingEndpoint(cfg config.TracingConfig) string {
	if !cfg.Enabled {
		return ""
	}
	return cfg.Endpoint
}

func buildProvider(cfg config.LLMConfig) (agent.LLMProvider, error) {
	providerCfg, ok := cfg.Providers[cfg.DefaultProvider]
	if !ok {
		return nil, fmt.Errorf("no provider config for %q", cfg.DefaultProvider)
	}

	switch cfg.DefaultProvider {
	case "openai":
		return providers.NewOpenAIProvider(providerCfg.APIKey), nil
	default:
		return providers.NewAnthropicProvider(providers.AnthropicConfig{
			APIKey:       providerCfg.APIKey,
			BaseURL:      providerCfg.BaseURL,
			DefaultModel: providerCfg.DefaultModel,
		})
	}
}

// runtimeProxy breaks the construction cycle between the scheduler (which
// needs a scheduler.Runtime at New time) and the agent runtime (which is
// the thing that eventually plays that role, but is built after the
// scheduler so it can be handed the scheduler's own meta-tools).
type runtimeProxy struct {
	runtime *agent.Runtime
}

func (p *runtimeProxy) ProcessTurn(ctx context.Context, sessionID, userMessage string, history []models.ConversationEntry) (string, []models.ConversationEntry, error) {
	return p.runtime.ProcessTurn(ctx, sessionID, userMessage, history)
}

// aggregateToolSource is the agent.ToolSource every turn reads from: the
// catalog's built-ins plus its enabled dynamic tools (D), the
// self-extension meta-tools (I), and the scheduler inspection tool.
type aggregateToolSource struct {
	catalog   *catalog.Catalog
	metatools []agent.Tool
	taskTool  agent.Tool
}

func (a *aggregateToolSource) Tools(ctx context.Context) ([]agent.Tool, error) {
	assembled, err := a.catalog.Assemble(ctx)
	if err != nil {
		return nil, err
	}
	tools := make([]agent.Tool, 0, len(assembled)+len(a.metatools)+1)
	tools = append(tools, assembled...)
	tools = append(tools, a.metatools...)
	tools = append(tools, a.taskTool)
	return tools, nil
}
