package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// Config file names, checked in order.
const (
	ConfigFileName    = "reflens.yaml"
	ConfigFileNameAlt = "reflens.yml"
)

// maxUpwardSearchLevels limits how far up the directory tree to search for
// config files.
const maxUpwardSearchLevels = 10

var configFileUsed string

// Load builds the effective configuration.
// Precedence: defaults < config file < environment < flags.
func Load(explicitFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// Defaults
	_ = k.Load(confmap.Provider(map[string]any{
		"manifest_path":     DefaultManifestPath,
		"log_level":         DefaultLogLevel,
		"telemetry.enabled": false,
	}, "."), nil)

	// Config file (optional)
	configFileUsed = ""
	if path := findConfigFile(explicitFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("loading %s: %w", path, err)
		}
		configFileUsed = path
	} else if explicitFile != "" {
		return nil, fmt.Errorf("config file not found: %s", explicitFile)
	}

	// Environment: REFLENS_LOG_LEVEL, REFLENS_TELEMETRY__ENDPOINT, ...
	_ = k.Load(env.Provider("REFLENS_", ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, "REFLENS_"))
		return strings.ReplaceAll(s, "__", ".")
	}), nil)

	// Flags win over everything
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, flagToKey), nil); err != nil {
			return nil, fmt.Errorf("loading flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}

// flagToKey maps flag names to config keys, skipping flags the user did not
// set so file and env values survive.
func flagToKey(f *pflag.Flag) (string, any) {
	if !f.Changed {
		return "", nil
	}
	switch f.Name {
	case "manifest-path":
		return "manifest_path", f.Value.String()
	case "project-dir":
		return "project_dir", f.Value.String()
	case "log-level":
		return "log_level", f.Value.String()
	case "verbose":
		return "verbose", f.Value.String() == "true"
	}
	return "", nil
}

// GetConfigFileUsed returns the path of the config file that was loaded, or
// empty if none was found.
func GetConfigFileUsed() string {
	return configFileUsed
}

// findConfigFile finds the config file to use.
// Priority: explicit path > reflens.yaml upward from CWD.
func findConfigFile(explicit string) string {
	if explicit != "" {
		if _, err := os.Stat(explicit); err == nil {
			return explicit
		}
		return ""
	}

	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for i := 0; i < maxUpwardSearchLevels; i++ {
		for _, name := range []string{ConfigFileName, ConfigFileNameAlt} {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

// NewLogger builds a slog logger honoring the configured level. Output goes
// to stderr; stdout is reserved for command output and the LSP protocol.
func NewLogger(cfg *Config) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
