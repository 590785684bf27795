package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	uploadType     string
	uploadPriority uint8
)

var uploadCmd = &cobra.Command{
	Use:   "upload <resource-id> <file>",
	Short: "Upload a resource payload",
	Long: `Upload a file as a resource. Replacing an existing resource bumps
its version so caching clients re-fetch it.

Examples:
  # Upload a texture with priority 5
  rescachectl upload hero-diffuse ./hero.tex --type texture --priority 5

  # Replace an existing resource (version bumps)
  rescachectl upload hero-diffuse ./hero-v2.tex --type texture`,
	Args: cobra.ExactArgs(2),
	RunE: runUpload,
}

func init() {
	uploadCmd.Flags().StringVarP(&uploadType, "type", "t", "generic", "Resource type (texture, mesh, shader, ...)")
	uploadCmd.Flags().Uint8VarP(&uploadPriority, "priority", "p", 0, "Eviction priority hint for caching clients (higher survives longer)")
}

func runUpload(cmd *cobra.Command, args []string) error {
	id, path := args[0], args[1]

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	c, err := getClient()
	if err != nil {
		return err
	}

	info, err := c.Upload(cmd.Context(), id, data, uploadType, uploadPriority)
	if err != nil {
		return fmt.Errorf("upload failed: %w", err)
	}

	fmt.Printf("Uploaded %s (version %d, %d bytes)\n", info.ID, info.Version, info.Size)
	return nil
}
