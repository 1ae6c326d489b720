package config

import "fmt"

// Config is the top-level configuration for an Envoy process: where its
// store lives, which LLM provider drives the agent loop, how its sandboxed
// tool executor is bounded, and how it logs and traces itself. Each section
// below lives in its own file, grouped by concern.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Store   StoreConfig   `yaml:"store"`
	LLM     LLMConfig     `yaml:"llm"`
	Tools   ToolsConfig   `yaml:"tools"`
	Logging LoggingConfig `yaml:"logging"`
	Tracing TracingConfig `yaml:"tracing"`
}

// Load reads path, resolving $include directives and expanding environment
// variables (see loader.go), decodes the merged result with unknown-field
// rejection, applies defaults, and validates cross-field constraints.
func Load(path string) (*Config, error) {
	raw, err := LoadRaw(path)
	if err != nil {
		return nil, err
	}
	cfg, err := decodeRawConfig(raw)
	if err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validate(cfg *Config) error {
	if cfg.LLM.DefaultProvider != "" {
		if _, ok := cfg.LLM.Providers[cfg.LLM.DefaultProvider]; !ok {
			return fmt.Errorf("llm.default_provider %q has no matching entry under llm.providers", cfg.LLM.DefaultProvider)
		}
	}
	if cfg.Store.Driver != "" && cfg.Store.Driver != "sqlite" && cfg.Store.Driver != "memory" {
		return fmt.Errorf("store.driver %q must be \"sqlite\" or \"memory\"", cfg.Store.Driver)
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Store.Driver == "" {
		cfg.Store.Driver = "sqlite"
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = "envoy.db"
	}
	if cfg.LLM.DefaultProvider == "" {
		cfg.LLM.DefaultProvider = "anthropic"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Tracing.ServiceName == "" {
		cfg.Tracing.ServiceName = "envoy"
	}
}
