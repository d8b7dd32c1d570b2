package commands

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/reflens/reflens/internal/manifest"
	"github.com/spf13/cobra"
)

// ModelsOptions holds options for the models command.
type ModelsOptions struct {
	Format string // text, json
}

// NewModelsCommand creates the models command.
func NewModelsCommand() *cobra.Command {
	opts := &ModelsOptions{}
	cmd := &cobra.Command{
		Use:   "models [model]",
		Short: "List models from the project manifest",
		Long: `List the models recorded in the project's manifest artifact.

Without arguments, prints one row per model. With a model name, prints that
model's columns.`,
		Example: `  # List all models
  reflens models

  # Show the columns of one model
  reflens models stg_orders

  # Machine-readable output
  reflens models --format json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runModels(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Format, "format", "f", "text", "Output format: text, json")

	return cmd
}

func runModels(cmd *cobra.Command, args []string, opts *ModelsOptions) error {
	cfg := GetConfig(cmd.Context())

	proj, err := resolveProject(cfg)
	if err != nil {
		return err
	}

	manifestPath := filepath.Join(proj.Root, filepath.FromSlash(cfg.ManifestPath))
	nodes, err := manifest.ParseFile(manifestPath)
	if err != nil {
		return fmt.Errorf("project %s: %w (run 'dbt compile' first?)", proj.Name, err)
	}

	if len(args) == 1 {
		return renderModel(cmd, nodes, args[0], opts.Format)
	}
	return renderModelList(cmd, nodes, opts.Format)
}

func renderModelList(cmd *cobra.Command, nodes manifest.NodeMetaMap, format string) error {
	names := make([]string, 0, len(nodes))
	for name := range nodes {
		names = append(names, name)
	}
	sort.Strings(names)

	if format == "json" {
		out := make([]map[string]any, 0, len(names))
		for _, name := range names {
			n := nodes[name]
			out = append(out, map[string]any{
				"name":        name,
				"alias":       n.Alias,
				"description": n.Description,
				"columns":     n.Columns.Len(),
			})
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.AppendHeader(table.Row{"Model", "Alias", "Columns", "Description"})
	for _, name := range names {
		n := nodes[name]
		t.AppendRow(table.Row{name, n.Alias, n.Columns.Len(), truncate(n.Description, 60)})
	}
	t.Render()
	return nil
}

func renderModel(cmd *cobra.Command, nodes manifest.NodeMetaMap, name, format string) error {
	node := nodes[name]
	if node == nil {
		return fmt.Errorf("model not found in manifest: %s", name)
	}

	if format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"name":        name,
			"alias":       node.Alias,
			"description": node.Description,
			"columns":     node.Columns,
		})
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s (alias %s)\n", name, node.Alias)
	if node.Description != "" {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), node.Description)
	}

	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.AppendHeader(table.Row{"Column", "Type", "Description"})
	for _, col := range node.Columns.Ordered() {
		t.AppendRow(table.Row{col.Name, col.DataType, truncate(col.Description, 60)})
	}
	t.Render()
	return nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
