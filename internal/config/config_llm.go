package config

// LLMConfig selects the language-model provider behind the agent loop and
// holds per-provider credentials. Provider routing/fallback chains are out
// of scope (multi-provider routing is explicitly not a goal of this
// system) — exactly one provider, named by DefaultProvider, is live at a
// time.
type LLMConfig struct {
	DefaultProvider string                       `yaml:"default_provider"`
	Providers       map[string]LLMProviderConfig `yaml:"providers"`
}

// LLMProviderConfig configures a single named provider entry. Which fields
// matter depends on the provider: Anthropic and OpenAI both use APIKey and
// DefaultModel; BaseURL lets either be pointed at a compatible proxy.
type LLMProviderConfig struct {
	APIKey       string `yaml:"api_key"`
	DefaultModel string `yaml:"default_model"`
	BaseURL      string `yaml:"base_url"`
}
