// Package commands implements the reflens subcommands.
package commands

import (
	"context"
	"log/slog"
	"os"

	"github.com/reflens/reflens/internal/cli/config"
	"github.com/reflens/reflens/internal/project"
)

type configKey struct{}
type loggerKey struct{}

// WithConfig stores the config on the context.
func WithConfig(ctx context.Context, cfg *config.Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// GetConfig retrieves the config from the context, with defaults when absent.
func GetConfig(ctx context.Context) *config.Config {
	if c, ok := ctx.Value(configKey{}).(*config.Config); ok {
		return c
	}
	return &config.Config{
		ManifestPath: config.DefaultManifestPath,
		LogLevel:     config.DefaultLogLevel,
	}
}

// WithLogger stores the logger on the context.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// GetLogger retrieves the logger from the context.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}

// resolveProject locates the project a command should operate on: the
// configured project dir when set, otherwise the nearest project root above
// the working directory.
func resolveProject(cfg *config.Config) (*project.Project, error) {
	root := cfg.ProjectDir
	if root == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		root = project.FindRoot(cwd)
	}
	if root == "" {
		return nil, errNoProject
	}
	return project.Load(root)
}
