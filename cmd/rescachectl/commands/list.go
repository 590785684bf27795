package commands

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/fcanovai/rescache/internal/bytesize"
	"github.com/fcanovai/rescache/internal/cli/output"
	"github.com/fcanovai/rescache/pkg/server/store"
)

var listType string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List resources on the server",
	Long: `List resources on the server, optionally filtered by type.

Examples:
  # List all resources as a table
  rescachectl list

  # List textures only
  rescachectl list --type texture

  # List as JSON
  rescachectl list --output json`,
	RunE: runList,
}

func init() {
	listCmd.Flags().StringVarP(&listType, "type", "t", "", "Filter by resource type")
}

// resourceList renders resource metadata as a table.
type resourceList []store.Info

// Headers implements output.TableRenderer.
func (rl resourceList) Headers() []string {
	return []string{"ID", "TYPE", "VERSION", "SIZE", "PRIORITY", "ACCESSES"}
}

// Rows implements output.TableRenderer.
func (rl resourceList) Rows() [][]string {
	rows := make([][]string, 0, len(rl))
	for _, info := range rl {
		rows = append(rows, []string{
			info.ID,
			info.Type,
			strconv.FormatUint(uint64(info.Version), 10),
			bytesize.ByteSize(info.Size).String(),
			strconv.FormatUint(uint64(info.Priority), 10),
			strconv.FormatUint(info.AccessCount, 10),
		})
	}
	return rows
}

func runList(cmd *cobra.Command, args []string) error {
	format, err := getOutputFormat()
	if err != nil {
		return err
	}

	c, err := getClient()
	if err != nil {
		return err
	}

	infos, err := c.List(cmd.Context(), listType)
	if err != nil {
		return fmt.Errorf("failed to list resources: %w", err)
	}

	return output.Print(os.Stdout, format, infos, len(infos) == 0,
		"No resources found.", resourceList(infos))
}
