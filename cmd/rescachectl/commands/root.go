// Package commands implements the rescachectl CLI for managing resources on
// a rescached server.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/fcanovai/rescache/internal/cli/output"
	"github.com/fcanovai/rescache/pkg/client"
	"github.com/fcanovai/rescache/pkg/config"
)

// Version information injected at build time.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// Global flag values shared by subcommands.
var (
	serverURL    string
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "rescachectl",
	Short: "rescachectl - manage resources on a rescached server",
	Long: `rescachectl uploads, inspects and deletes resources on a rescached
server.

Examples:
  # Upload a texture with priority 5
  rescachectl upload hero-diffuse ./hero.tex --type texture --priority 5

  # List all resources as a table
  rescachectl list

  # Download a resource payload to a file
  rescachectl get hero-diffuse --file hero.tex

  # Show server storage statistics as JSON
  rescachectl stats --output json`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Called by main.main().
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&serverURL, "server", "s", "", "Server URL (default: cache.server_url from config, or "+config.DefaultServerURL+")")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "Output format: table, json, yaml")

	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// PrintErr prints an error message to stderr.
func PrintErr(format string, args ...any) {
	rootCmd.PrintErrf(format+"\n", args...)
}

// getClient returns a client for the configured server. The --server flag
// wins over the config file's cache.server_url.
func getClient() (*client.Client, error) {
	if serverURL != "" {
		return client.New(serverURL, nil), nil
	}

	cfg, err := config.Load("")
	if err != nil {
		return nil, err
	}
	return client.New(cfg.Cache.ServerURL, nil), nil
}

// getOutputFormat parses the --output flag.
func getOutputFormat() (output.Format, error) {
	return output.ParseFormat(outputFormat)
}
