package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/4ug-aug/envoy-v2/internal/config"
)

// buildToolsCmd creates the "tools" command group for inspecting the
// catalog from the CLI, without going through the HTTP surface.
func buildToolsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "Inspect the tool catalog",
	}
	cmd.AddCommand(buildToolsListCmd())
	return cmd
}

func buildToolsListCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List built-in and custom tools",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			st, err := buildStack(cfg)
			if err != nil {
				return fmt.Errorf("build runtime stack: %w", err)
			}
			defer st.store.Close()

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Built-in tools:")
			for _, t := range st.builtins {
				fmt.Fprintf(out, "  - %s: %s\n", t.Name(), t.Description())
			}

			custom, err := st.catalog.ListTools(cmd.Context())
			if err != nil {
				return fmt.Errorf("list custom tools: %w", err)
			}
			fmt.Fprintln(out, "Custom tools:")
			if len(custom) == 0 {
				fmt.Fprintln(out, "  (none)")
			}
			for _, t := range custom {
				status := "disabled"
				if t.Enabled {
					status = "enabled"
				}
				fmt.Fprintf(out, "  - %s (%s): %s\n", t.Name, status, t.Description)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "envoy.yaml", "Path to YAML configuration file")
	return cmd
}
