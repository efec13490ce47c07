package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/srediag/plugin-status/pkg/host"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"

	// CLI flags
	configFile string
	jsonOutput bool
	listenAddr string
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "pluginhost",
		Short: "Load built-in plugins and report their status",
		Long: `pluginhost loads the plugins compiled into it and queries their status handlers.

Examples:
  # Print the status of every built-in plugin
  pluginhost status

  # Query one plugin, JSON output
  pluginhost status statusexc --json

  # Serve /v1/plugins/{name}/status, /live, /ready and /metrics
  pluginhost serve --addr 127.0.0.1:8780`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configFile, "config", "", "TOML or YAML host configuration file")

	statusCmd := &cobra.Command{
		Use:   "status [plugin...]",
		Short: "Query plugin status handlers once and print the reports",
		RunE:  runStatus,
	}
	statusCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print reports as JSON")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve plugin status over HTTP",
		RunE:  runServe,
	}
	serveCmd.Flags().StringVar(&listenAddr, "addr", "", "Listen address (overrides the config)")

	root.AddCommand(statusCmd, serveCmd, &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "pluginhost %s\n", version)
			fmt.Fprintf(out, "commit: %s\n", commit)
			fmt.Fprintf(out, "built: %s\n", date)
		},
	})
	return root
}

func loadConfig() (*host.Config, error) {
	if configFile == "" {
		return host.DefaultConfig(), nil
	}
	return host.LoadConfig(configFile)
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
