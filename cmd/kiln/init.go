// SPDX-License-Identifier: MPL-2.0

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/invowk/kiln/internal/kconfig"
)

func newInitCmd() *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Scaffold a default kiln.toml configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := kconfig.WriteDefaultConfigFile(path); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "wrote", path)
			return nil
		},
	}

	cmd.Flags().StringVar(&path, "path", "kiln.toml", "output path for the scaffolded config file")

	return cmd
}
