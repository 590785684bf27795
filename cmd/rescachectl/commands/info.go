package commands

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/fcanovai/rescache/internal/bytesize"
	"github.com/fcanovai/rescache/internal/cli/output"
)

var infoCmd = &cobra.Command{
	Use:   "info <resource-id>",
	Short: "Show resource metadata",
	Long: `Show a resource's metadata without downloading its payload.

Examples:
  rescachectl info hero-diffuse
  rescachectl info hero-diffuse --output yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runInfo,
}

func runInfo(cmd *cobra.Command, args []string) error {
	format, err := getOutputFormat()
	if err != nil {
		return err
	}

	c, err := getClient()
	if err != nil {
		return err
	}

	info, err := c.Info(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get resource info: %w", err)
	}

	if format != output.FormatTable {
		return output.Print(os.Stdout, format, info, false, "", nil)
	}

	lastAccessed := "never"
	if !info.LastAccessed.IsZero() {
		lastAccessed = info.LastAccessed.Format(time.RFC3339)
	}

	return output.PrintKeyValues(os.Stdout, [][2]string{
		{"ID", info.ID},
		{"Type", info.Type},
		{"Version", strconv.FormatUint(uint64(info.Version), 10)},
		{"Size", bytesize.ByteSize(info.Size).String()},
		{"Hash", info.Hash},
		{"Priority", strconv.FormatUint(uint64(info.Priority), 10)},
		{"Created", info.Created.Format(time.RFC3339)},
		{"Last accessed", lastAccessed},
		{"Access count", strconv.FormatUint(info.AccessCount, 10)},
	})
}
