// SPDX-License-Identifier: MPL-2.0

package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/invowk/kiln"
	"github.com/invowk/kiln/internal/kconfig"
)

func newRunCmd() *cobra.Command {
	var (
		filter      string
		skipTags    []string
		concurrency int
		seed        uint64
		hasSeed     bool
		htmlReport  string
		configPath  string
		color       bool
		skipHooks   bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the registered test suite and exit 0 iff no test failed",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			provider := kconfig.NewProvider()
			cfg, err := provider.Load(ctx, kconfig.LoadOptions{ConfigFilePath: configPath})
			if err != nil {
				cfg = kconfig.DefaultConfig()
			}

			if filter != "" {
				cfg.NameFilter = filter
			}
			if len(skipTags) > 0 {
				cfg.SkipTags = skipTags
			}
			if concurrency > 0 {
				cfg.MaxConcurrency = concurrency
			}
			if hasSeed {
				cfg.ShuffleSeed = &seed
			}
			if htmlReport != "" {
				cfg.HTMLReport = htmlReport
			}
			if cmd.Flags().Changed("color") {
				cfg.Color = color
			}
			if skipHooks {
				cfg.SkipHooks = true
			}

			code := kiln.RunTestsWithConfig(ctx, cfg)
			os.Exit(code)
			return nil
		},
	}

	cmd.Flags().StringVar(&filter, "filter", "", "substring name filter")
	cmd.Flags().StringSliceVar(&skipTags, "skip-tags", nil, "comma-separated tags to skip")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "worker pool size (0 = use config/env default)")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "deterministic shuffle seed")
	cmd.Flags().StringVar(&htmlReport, "html-report", "", "output path for the HTML report")
	cmd.Flags().StringVar(&configPath, "config", "", "path to a TOML config file")
	cmd.Flags().BoolVar(&color, "color", true, "hint for log coloring")
	cmd.Flags().BoolVar(&skipHooks, "skip-hooks", false, "suppress all hook lists for this run")

	cmd.PreRun = func(cmd *cobra.Command, args []string) {
		hasSeed = cmd.Flags().Changed("seed")
	}

	return cmd
}
