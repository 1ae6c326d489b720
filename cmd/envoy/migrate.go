package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/4ug-aug/envoy-v2/internal/config"
	"github.com/4ug-aug/envoy-v2/internal/store"
)

// buildMigrateCmd creates the "migrate" command group. internal/store's
// sqlite backend brings its own schema up to date on Open (see
// store.Open's doc comment); "migrate up" exists so an operator can apply
// that step ahead of a deploy without also starting the agent runtime.
func buildMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database schema commands",
	}
	cmd.AddCommand(buildMigrateUpCmd())
	return cmd
}

func buildMigrateUpCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "up",
		Short: "Open the configured store, applying any pending schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if cfg.Store.Driver != "sqlite" {
				fmt.Fprintf(cmd.OutOrStdout(), "store driver %q has no schema to migrate\n", cfg.Store.Driver)
				return nil
			}
			s, err := store.Open(cfg.Store.Path)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer s.Close()
			fmt.Fprintf(cmd.OutOrStdout(), "schema up to date at %s\n", cfg.Store.Path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "envoy.yaml", "Path to YAML configuration file")
	return cmd
}
