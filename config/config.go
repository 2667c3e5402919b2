// Package config loads a stylehost.yaml host configuration file: the
// compiler path, compile options, and the optional ambient component
// selections (archive backend, telemetry policy, completion adapters).
// Where a CLI flag and a config value set the same thing, the flag wins.
// The compile options section is parsed but not applied by the compile
// command, which takes its compile options from its flags alone.
package config

import (
	"fmt"
	"time"
)

// Config represents a stylehost.yaml configuration file. All values are
// optional. CompilerPath and the archive, telemetry, and adapter sections
// act as defaults under command-line flags; Compile is not applied.
type Config struct {
	CompilerPath string          `yaml:"compiler_path"`
	Compile      CompileConfig   `yaml:"compile"`
	Archive      ArchiveConfig   `yaml:"archive"`
	Telemetry    TelemetryConfig `yaml:"telemetry"`
	Adapter      AdapterConfig   `yaml:"adapter"`
}

// CompileConfig holds compile options read from the config file. The
// compile command does not apply them: it builds its compile request from
// its flags only.
type CompileConfig struct {
	Style                   string   `yaml:"style"`
	SourceMap               bool     `yaml:"source_map"`
	SourceMapIncludeSources bool     `yaml:"source_map_include_sources"`
	Charset                 bool     `yaml:"charset"`
	QuietDeps               bool     `yaml:"quiet_deps"`
	Verbose                 bool     `yaml:"verbose"`
	AlertASCII              bool     `yaml:"alert_ascii"`
	AlertColor              bool     `yaml:"alert_color"`
	LoadPaths               []string `yaml:"load_paths"`
}

// ArchiveConfig holds archive store defaults from the config file.
type ArchiveConfig struct {
	// Backend selects the Store implementation: "fs", "s3", or "" (disabled).
	Backend string `yaml:"backend"`

	// Root is the filesystem root for the "fs" backend.
	Root string `yaml:"root"`

	// Bucket, Prefix, Region, Endpoint, and PathStyle configure the "s3"
	// backend; see archive.S3Config.
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	PathStyle bool   `yaml:"path_style"`
}

// TelemetryConfig holds telemetry policy defaults from the config file.
type TelemetryConfig struct {
	// Policy selects the Policy implementation: "strict", "buffered", or
	// "" (disabled).
	Policy       string `yaml:"policy"`
	BufferEvents int    `yaml:"buffer_events"`
	BufferBytes  int64  `yaml:"buffer_bytes"`
	Output       string `yaml:"output"` // "stdout" (also used when empty), "stderr", or a file path
}

// AdapterConfig holds completion-adapter defaults from the config file.
type AdapterConfig struct {
	// Type selects the Adapter implementation: "webhook", "redis", or ""
	// (disabled).
	Type    string            `yaml:"type"`
	URL     string            `yaml:"url"`
	Channel string            `yaml:"channel,omitempty"`
	Headers map[string]string `yaml:"headers,omitempty"`
	Timeout Duration          `yaml:"timeout,omitempty"`
	Retries *int              `yaml:"retries,omitempty"`
}

// Duration wraps time.Duration for YAML string parsing (e.g. "10s", "5m").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "10s" or "5m30s".
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}
