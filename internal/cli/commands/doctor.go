package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/lipgloss"
	"github.com/reflens/reflens/internal/manifest"
	"github.com/reflens/reflens/internal/project"
	"github.com/spf13/cobra"
)

var (
	passStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).SetString("ok  ")
	warnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3")).SetString("warn")
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).SetString("fail")
)

// NewDoctorCommand creates the doctor command.
func NewDoctorCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check that hover metadata is available for the project",
		Long: `Check the current project for everything reflens needs:

- dbt_project.yml is present and names the project
- the manifest artifact exists and parses
- models carry descriptions and columns worth showing in tooltips`,
		Example: `  reflens doctor`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDoctor(cmd)
		},
	}
}

func runDoctor(cmd *cobra.Command) error {
	cfg := GetConfig(cmd.Context())
	out := cmd.OutOrStdout()

	check := func(style lipgloss.Style, format string, args ...any) {
		_, _ = fmt.Fprintf(out, "%s  %s\n", style, fmt.Sprintf(format, args...))
	}

	root := cfg.ProjectDir
	if root == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return err
		}
		root = project.FindRoot(cwd)
	}
	if root == "" {
		check(failStyle, "no dbt_project.yml found here or in any parent directory")
		return errNoProject
	}

	proj, err := project.Load(root)
	if err != nil {
		check(failStyle, "dbt_project.yml unreadable: %v", err)
		return err
	}
	check(passStyle, "project %q at %s", proj.Name, proj.Root)

	manifestPath := filepath.Join(proj.Root, filepath.FromSlash(cfg.ManifestPath))
	nodes, err := manifest.ParseFile(manifestPath)
	if err != nil {
		check(failStyle, "manifest: %v", err)
		_, _ = fmt.Fprintln(out, "\nRun 'dbt compile' to produce the manifest artifact.")
		return err
	}
	check(passStyle, "manifest %s (%d models)", manifestPath, len(nodes))

	var described, withColumns int
	for _, n := range nodes {
		if n.Description != "" {
			described++
		}
		if n.Columns.Len() > 0 {
			withColumns++
		}
	}

	if len(nodes) == 0 {
		check(warnStyle, "manifest has no models")
		return nil
	}
	if described == 0 {
		check(warnStyle, "no model has a description; tooltips will only show aliases")
	} else {
		check(passStyle, "%d/%d models described", described, len(nodes))
	}
	if withColumns == 0 {
		check(warnStyle, "no model has documented columns")
	} else {
		check(passStyle, "%d/%d models have documented columns", withColumns, len(nodes))
	}

	return nil
}
