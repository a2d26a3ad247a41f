package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "gridwire",
		Short: "URL-synchronized data-grid state engine",
		Long: `Gridwire keeps data-grid state (selection, sort, filters, pagination)
synchronized with URL query parameters, so copying a URL reproduces the
full table state.

The CLI hosts the reference backend for dynamic tables: an HTTP API
serving dataset pages under the grid request contract, a WebSocket hub
broadcasting state-change events to other windows, and Prometheus
metrics for the request coordinator.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		serveCmd(),
		decodeCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
