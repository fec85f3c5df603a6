// SPDX-License-Identifier: MPL-2.0

// Command kiln is a thin cobra front-end over the kiln library: it loads a
// run configuration and executes whatever tests a user program registered
// against the library's default Harness before calling Execute. This
// binary is example/glue code (spec.md §1 lists CLI front-ends as out of
// scope for the core); the orchestration logic lives entirely in the
// kiln package.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "kiln",
	Short: "Run kiln test suites",
}

func main() {
	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newInitCmd())
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
