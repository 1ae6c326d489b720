// Package main provides the CLI entry point for Envoy: a conversational,
// tool-using agent runtime that can extend its own tool/integration
// catalog and schedule recurring work for itself.
//
// # Basic Usage
//
// Start the server:
//
//	envoy serve --config envoy.yaml
//
// List the tool catalog:
//
//	envoy tools list
//
// # Environment Variables
//
//   - ANTHROPIC_API_KEY: Anthropic API key for Claude models
//   - OPENAI_API_KEY: OpenAI API key for GPT models
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// Build information, populated by ldflags during build.
//
//	go build -ldflags "-X main.version=v1.0.0 -X main.commit=$(git rev-parse HEAD) -X main.date=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	rootCmd := buildRootCmd()
	if err := rootCmd.Execute(); err != nil {
		slog.Error("command execution failed", "error", err)
		os.Exit(1)
	}
}

// buildRootCmd creates the root command with all subcommands attached.
// Separated from main() to facilitate testing.
func buildRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "envoy",
		Short: "Envoy - a self-extending conversational agent runtime",
		Long: `Envoy runs a conversational, tool-using agent loop that can extend its own
tool catalog, wire up integrations, and schedule recurring work for itself.

Supported LLM providers: Anthropic (Claude), OpenAI (GPT)`,
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		buildServeCmd(),
		buildMigrateCmd(),
		buildToolsCmd(),
	)

	return rootCmd
}
