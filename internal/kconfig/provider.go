// SPDX-License-Identifier: MPL-2.0

package kconfig

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

// LoadOptions mirrors the teacher's config.LoadOptions: explicit inputs a
// caller can force instead of relying on viper's own search path.
type LoadOptions struct {
	// ConfigFilePath forces loading from a specific TOML file when set.
	ConfigFilePath string
}

// Provider loads a Config from layered sources: defaults, an optional TOML
// file, then environment variables (spec.md §6's env mapping), in that
// increasing-precedence order — matching the teacher's Provider interface
// (internal/config/provider.go) so a caller can substitute a fake loader in
// tests.
type Provider interface {
	Load(ctx context.Context, opts LoadOptions) (Config, error)
}

type viperProvider struct{}

// NewProvider creates the viper-backed Provider.
func NewProvider() Provider {
	return &viperProvider{}
}

var envMapping = map[string]string{
	"name_filter":     "TEST_FILTER",
	"skip_tags":       "TEST_SKIP_TAGS",
	"max_concurrency": "TEST_MAX_CONCURRENCY",
	"shuffle_seed":    "TEST_SHUFFLE_SEED",
	"html_report":     "TEST_HTML_REPORT",
	"skip_hooks":      "TEST_SKIP_HOOKS",
}

func (p *viperProvider) Load(ctx context.Context, opts LoadOptions) (Config, error) {
	v := viper.New()
	v.SetConfigType("toml")

	defaults := DefaultConfig()
	v.SetDefault("name_filter", defaults.NameFilter)
	v.SetDefault("skip_tags", defaults.SkipTags)
	v.SetDefault("max_concurrency", defaults.MaxConcurrency)
	v.SetDefault("color", defaults.Color)
	v.SetDefault("html_report", defaults.HTMLReport)
	v.SetDefault("skip_hooks", defaults.SkipHooks)
	v.SetDefault("timeout_strategy", string(defaults.TimeoutStrategy))
	v.SetDefault("grace_duration", defaults.GraceDuration.String())

	if opts.ConfigFilePath != "" {
		v.SetConfigFile(opts.ConfigFilePath)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return Config{}, fmt.Errorf("kconfig: reading %s: %w", opts.ConfigFilePath, err)
			}
		}
	}

	for key, envVar := range envMapping {
		if err := v.BindEnv(key, envVar); err != nil {
			return Config{}, fmt.Errorf("kconfig: binding %s: %w", envVar, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("kconfig: unmarshal: %w", err)
	}

	// viper's BindEnv treats TEST_SKIP_TAGS as a scalar string (Unmarshal
	// splits it on commas without trimming); split it by hand the way the
	// teacher splits comma-separated search paths. A TOML array is not a
	// string, so GetString returns "" for it and the array is kept.
	if raw := v.GetString("skip_tags"); raw != "" {
		cfg.SkipTags = splitCSV(raw)
	}

	if raw := v.GetString("shuffle_seed"); raw != "" && cfg.ShuffleSeed == nil {
		if n, err := strconv.ParseUint(raw, 10, 64); err == nil {
			cfg.ShuffleSeed = &n
		}
	}

	return cfg, nil
}

// WriteDefaultConfigFile scaffolds a commented kiln.toml at path, the way
// the teacher's CreateDefaultConfig writes its own config.toml: marshaled
// directly with go-toml/v2 rather than through viper, since there is no
// config to read back yet. It refuses to overwrite an existing file.
func WriteDefaultConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("kconfig: %s already exists", path)
	}

	data, err := toml.Marshal(DefaultConfig())
	if err != nil {
		return fmt.Errorf("kconfig: marshal default config: %w", err)
	}

	header := []byte("# kiln run configuration. See spec.md §6 for field semantics.\n\n")
	if err := os.WriteFile(path, append(header, data...), 0o644); err != nil {
		return fmt.Errorf("kconfig: write %s: %w", path, err)
	}
	return nil
}

func splitCSV(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
