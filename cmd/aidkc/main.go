// Command aidkc exercises the fiber compiler end to end: compiling a demo
// scenario, watching it for changes, serving live updates over a
// websocket, and driving a terminal dashboard over the fiber tree.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "0.1.0-dev"
	commit  = "dev"
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "aidkc",
		Short:   "aidkc - Fiber Compiler demo CLI",
		Long:    `aidkc drives the Fiber Compiler core (pkg/aidk) through a scripted demo scenario.`,
		Version: fmt.Sprintf("%s (commit: %s)", version, commit),
	}

	rootCmd.AddCommand(newCompileCommand())
	rootCmd.AddCommand(newWatchCommand())
	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newTreeCommand())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
