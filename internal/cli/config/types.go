// Package config provides configuration management for the reflens CLI.
//
// Settings come from reflens.yaml, REFLENS_* environment variables, and
// command-line flags, merged in that order of increasing precedence.
package config

// Config holds all CLI configuration options.
type Config struct {
	// ManifestPath is the manifest artifact location relative to each
	// project root.
	ManifestPath string `koanf:"manifest_path"`

	// ProjectDir is an explicit project root for commands that operate on a
	// single project (models, doctor). Empty means discover from CWD.
	ProjectDir string `koanf:"project_dir"`

	LogLevel  string          `koanf:"log_level"`
	Verbose   bool            `koanf:"verbose"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
}

// TelemetryConfig controls the usage-event sink. Telemetry is off unless an
// endpoint is configured and enabled is true.
type TelemetryConfig struct {
	Enabled  bool   `koanf:"enabled"`
	Endpoint string `koanf:"endpoint"`
}

// Default configuration values.
const (
	DefaultManifestPath = "target/manifest.json"
	DefaultLogLevel     = "info"
)
