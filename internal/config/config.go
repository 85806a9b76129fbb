// Package config loads dotnetacquire's CLI-facing configuration from a
// CUE file, the same declarative-and-checked shape the teacher's
// internal/config package uses for its own settings.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/format"
	"cuelang.org/go/cue/load"
)

// Default path constants.
const (
	DefaultConfigDir   = "~/.config/dotnetacquire"
	DefaultStorageRoot = "~/.local/share/dotnetacquire"
)

// Config is dotnetacquire's CLI-facing configuration, loaded from
// config.cue. Programmatic callers pass an equivalent Options struct
// directly instead of going through this loader.
type Config struct {
	// StorageRoot is the root directory for installed SDKs/runtimes,
	// lock sentinels, and the release-index cache.
	StorageRoot string `json:"storageRoot"`

	// InstallTimeoutSeconds bounds a single acquire call, including
	// download, extraction, and self-validation.
	InstallTimeoutSeconds int `json:"installTimeoutSeconds"`

	// ProxyURL, when set, is used for all outbound HTTP requests
	// (release index, releases files, archive downloads).
	ProxyURL string `json:"proxyUrl,omitempty"`

	// ExistingDotnetPath is an ordered list of externally provided
	// hosts tried before installing, consulted by the Acquisition
	// Coordinator ahead of the storage root's managed install.
	ExistingDotnetPath []string `json:"existingDotnetPath,omitempty"`

	// AllowInvalidPaths makes the coordinator use the first
	// ExistingDotnetPath entry without validating it. When false, each
	// entry is checked against the request in order and entries that do
	// not satisfy it are skipped.
	AllowInvalidPaths bool `json:"allowInvalidPaths"`

	// EnableTelemetry is loaded and carried along with the rest of the
	// configuration; no component reads it, and acquire-lifecycle
	// events reach the configured Sink whatever its value.
	EnableTelemetry bool `json:"enableTelemetry"`

	// CacheTTLMs is the release-index cache's max age in milliseconds:
	// a younger cached copy is served at once with a background refresh
	// scheduled, an older one blocks on a network fetch.
	CacheTTLMs int `json:"cacheTtlMs"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		StorageRoot:           DefaultStorageRoot,
		InstallTimeoutSeconds: 300,
		CacheTTLMs:            4 * 60 * 60 * 1000,
	}
}

// LoadConfig loads configuration from the config directory.
// Returns the default config if config.cue doesn't exist or has no
// config block.
func LoadConfig(configDir string) (*Config, error) {
	configPath := filepath.Join(configDir, "config.cue")

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{"config.cue"}, &load.Config{
		Dir: configDir,
	})

	if len(instances) == 0 {
		return DefaultConfig(), nil
	}

	inst := instances[0]
	if inst.Err != nil {
		return nil, fmt.Errorf("failed to load config.cue: %w", inst.Err)
	}

	value := ctx.BuildInstance(inst)
	if value.Err() != nil {
		return nil, fmt.Errorf("failed to build config.cue: %w", value.Err())
	}

	configValue := value.LookupPath(cue.ParsePath("config"))
	if !configValue.Exists() {
		return DefaultConfig(), nil
	}

	cfg := DefaultConfig()
	jsonBytes, err := configValue.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := json.Unmarshal(jsonBytes, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// ToCue generates CUE content from Config.
func (c *Config) ToCue() ([]byte, error) {
	ctx := cuecontext.New()
	v := ctx.Encode(map[string]any{
		"config": c,
	})
	if v.Err() != nil {
		return nil, fmt.Errorf("failed to encode config: %w", v.Err())
	}

	syn := v.Syntax()
	b, err := format.Node(syn)
	if err != nil {
		return nil, fmt.Errorf("failed to format config: %w", err)
	}

	return append([]byte("package dotnetacquire\n\n"), b...), nil
}

// Options is the Go-native equivalent of Config for programmatic
// callers that never touch config.cue.
type Options struct {
	StorageRoot           string
	InstallTimeoutSeconds int
	ProxyURL              string
	ExistingDotnetPath    []string
	AllowInvalidPaths     bool
	EnableTelemetry       bool
	CacheTTLMs            int
}

// ToOptions converts a loaded Config into Options.
func (c *Config) ToOptions() *Options {
	return &Options{
		StorageRoot:           c.StorageRoot,
		InstallTimeoutSeconds: c.InstallTimeoutSeconds,
		ProxyURL:              c.ProxyURL,
		ExistingDotnetPath:    c.ExistingDotnetPath,
		AllowInvalidPaths:     c.AllowInvalidPaths,
		EnableTelemetry:       c.EnableTelemetry,
		CacheTTLMs:            c.CacheTTLMs,
	}
}

// DefaultOptions returns Options populated with the same defaults as
// DefaultConfig.
func DefaultOptions() *Options {
	return DefaultConfig().ToOptions()
}
