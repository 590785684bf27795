package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var getOutputFile string

var getCmd = &cobra.Command{
	Use:   "get <resource-id>",
	Short: "Download a resource payload",
	Long: `Download a resource's payload. The payload is written to the file
given with --file, or to stdout when no file is given.

Examples:
  # Write payload to a file
  rescachectl get hero-diffuse --file hero.tex

  # Pipe payload to another tool
  rescachectl get boot-config | jq .`,
	Args: cobra.ExactArgs(1),
	RunE: runGet,
}

func init() {
	getCmd.Flags().StringVarP(&getOutputFile, "file", "f", "", "Write payload to this file instead of stdout")
}

func runGet(cmd *cobra.Command, args []string) error {
	id := args[0]

	c, err := getClient()
	if err != nil {
		return err
	}

	data, err := c.Fetch(cmd.Context(), id)
	if err != nil {
		return fmt.Errorf("fetch failed: %w", err)
	}

	if getOutputFile == "" {
		_, err = os.Stdout.Write(data)
		return err
	}

	if err := os.WriteFile(getOutputFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", getOutputFile, err)
	}
	fmt.Fprintf(os.Stderr, "Wrote %d bytes to %s\n", len(data), getOutputFile)
	return nil
}
