package catalog

import (
	"github.com/4ug-aug/envoy-v2/internal/agent"
	"github.com/4ug-aug/envoy-v2/internal/tools/files"
	"github.com/4ug-aug/envoy-v2/internal/tools/websearch"
)

// BuiltinsConfig controls the fixed tool set every turn gets regardless of
// what's in the catalog.
type BuiltinsConfig struct {
	// Workspace is the root directory the file tools are confined to.
	Workspace string

	// WebSearch is forwarded to the web_search tool as-is. A zero value
	// disables network search backends but still registers the tool.
	WebSearch websearch.Config

	// WebFetchMaxChars caps how much extracted page content web_fetch
	// returns per call. Zero uses the tool's own default.
	WebFetchMaxChars int
}

// DefaultBuiltins assembles the fixed built-in tool set: filesystem access
// scoped to cfg.Workspace, plus web_search and web_fetch.
func DefaultBuiltins(cfg BuiltinsConfig) []agent.Tool {
	fileCfg := files.Config{Workspace: cfg.Workspace}
	return []agent.Tool{
		files.NewReadTool(fileCfg),
		files.NewWriteTool(fileCfg),
		files.NewEditTool(fileCfg),
		files.NewApplyPatchTool(fileCfg),
		files.NewListTool(fileCfg),
		websearch.NewWebSearchTool(&cfg.WebSearch),
		websearch.NewWebFetchTool(&websearch.FetchConfig{MaxChars: cfg.WebFetchMaxChars}),
	}
}
