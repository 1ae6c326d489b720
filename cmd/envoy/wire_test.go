package main

import (
	"os/exec"
	"testing"

	"github.com/4ug-aug/envoy-v2/internal/config"
)

func TestBuildStackWiresEveryComponent(t *testing.T) {
	if _, err := exec.LookPath("node"); err != nil {
		t.Skip("node not available on PATH")
	}

	cfg := &config.Config{
		Store: config.StoreConfig{Driver: "memory"},
		LLM: config.LLMConfig{
			DefaultProvider: "anthropic",
			Providers: map[string]config.LLMProviderConfig{
				"anthropic": {APIKey: "test-key", DefaultModel: "claude-sonnet-4-20250514"},
			},
		},
	}

	st, err := buildStack(cfg)
	if err != nil {
		t.Fatalf("buildStack() error = %v", err)
	}
	defer st.store.Close()

	if st.runtime == nil {
		t.Fatal("expected a non-nil agent runtime")
	}
	if len(st.builtins) == 0 {
		t.Fatal("expected built-in tools to be wired")
	}

	tools, err := (&aggregateToolSource{catalog: st.catalog}).Tools(t.Context())
	if err != nil {
		t.Fatalf("Tools() error = %v", err)
	}
	if len(tools) < len(st.builtins) {
		t.Fatalf("expected the aggregate source to at least carry the built-ins, got %d tools", len(tools))
	}
}
