package config

// ToolsConfig controls the self-extension sandbox: where dynamically
// created tool/integration bodies (internal/sandbox.Executor) are run from.
// The per-call deadline itself is a fixed constant (sandbox.Timeout, spec
// §5's hard suspension bound), not a config knob — it is meant to hold
// regardless of deployment.
type ToolsConfig struct {
	Sandbox SandboxConfig `yaml:"sandbox"`
}

// SandboxConfig mirrors internal/sandbox.Executor's one real knob.
type SandboxConfig struct {
	// WorkspaceRoot is where scratch directories for sandboxed runs are
	// created. Empty uses the OS default temp directory.
	WorkspaceRoot string `yaml:"workspace_root"`
}
