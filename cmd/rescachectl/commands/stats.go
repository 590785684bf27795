package commands

import (
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/fcanovai/rescache/internal/bytesize"
	"github.com/fcanovai/rescache/internal/cli/output"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show server storage statistics",
	RunE:  runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	format, err := getOutputFormat()
	if err != nil {
		return err
	}

	c, err := getClient()
	if err != nil {
		return err
	}

	stats, err := c.Stats(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to get stats: %w", err)
	}

	if format != output.FormatTable {
		return output.Print(os.Stdout, format, stats, false, "", nil)
	}

	pairs := [][2]string{
		{"Resources", strconv.Itoa(stats.ResourceCount)},
		{"Total size", bytesize.ByteSize(stats.TotalBytes).String()},
	}

	// Stable order for the per-type breakdown.
	types := make([]string, 0, len(stats.ByType))
	for t := range stats.ByType {
		types = append(types, t)
	}
	sort.Strings(types)
	for _, t := range types {
		pairs = append(pairs, [2]string{"  " + t, strconv.Itoa(stats.ByType[t])})
	}

	return output.PrintKeyValues(os.Stdout, pairs)
}
