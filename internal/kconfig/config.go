// SPDX-License-Identifier: MPL-2.0

// Package kconfig loads the harness run configuration (spec.md §6's
// configuration table) from layered sources — defaults, an optional TOML
// file, environment variables — the way the teacher's internal/config loads
// application configuration, via spf13/viper with pelletier/go-toml/v2 as
// the on-disk format.
package kconfig

import (
	"time"

	"github.com/invowk/kiln/internal/engine"
)

// TimeoutStrategyKind names the configured strategy before it is turned
// into an engine.TimeoutStrategy value (Graceful carries a duration the
// TOML/env layer can't express as a bare enum case).
type TimeoutStrategyKind string

const (
	StrategySimple     TimeoutStrategyKind = "simple"
	StrategyAggressive TimeoutStrategyKind = "aggressive"
	StrategyGraceful   TimeoutStrategyKind = "graceful"
)

// Config mirrors spec.md §6's configuration table.
type Config struct {
	NameFilter      string              `toml:"name_filter" mapstructure:"name_filter"`
	SkipTags        []string            `toml:"skip_tags" mapstructure:"skip_tags"`
	MaxConcurrency  int                 `toml:"max_concurrency" mapstructure:"max_concurrency"`
	ShuffleSeed     *uint64             `toml:"shuffle_seed" mapstructure:"shuffle_seed"`
	Color           bool                `toml:"color" mapstructure:"color"`
	HTMLReport      string              `toml:"html_report" mapstructure:"html_report"`
	SkipHooks       bool                `toml:"skip_hooks" mapstructure:"skip_hooks"`
	TimeoutStrategy TimeoutStrategyKind `toml:"timeout_strategy" mapstructure:"timeout_strategy"`
	GraceDuration   time.Duration       `toml:"grace_duration" mapstructure:"grace_duration"`
}

// DefaultConfig mirrors the teacher's DefaultConfig(): sequential dispatch,
// no filtering, Aggressive strategy (the original Rust harness's default,
// per original_source/src/lib.rs's RunConfig::default).
func DefaultConfig() Config {
	return Config{
		MaxConcurrency:  1,
		Color:           true,
		TimeoutStrategy: StrategyAggressive,
	}
}

// ResolvedStrategy converts the configured kind into an engine.TimeoutStrategy.
func (c Config) ResolvedStrategy() engine.TimeoutStrategy {
	switch c.TimeoutStrategy {
	case StrategySimple:
		return engine.Simple
	case StrategyGraceful:
		return engine.Graceful(c.GraceDuration)
	default:
		return engine.Aggressive
	}
}

// NameFilterPtr returns nil when no filter is configured, else a pointer to
// the filter string — order.Config wants the "absent vs. empty string"
// distinction the zero-value Config field can't carry on its own.
func (c Config) NameFilterPtr() *string {
	if c.NameFilter == "" {
		return nil
	}
	return &c.NameFilter
}

// ResolvedMaxConcurrency applies the "zero concurrency configured is treated
// as 1" boundary behavior (spec.md §8).
func (c Config) ResolvedMaxConcurrency() int {
	if c.MaxConcurrency <= 0 {
		return 1
	}
	return c.MaxConcurrency
}
