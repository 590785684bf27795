package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var deleteCmd = &cobra.Command{
	Use:   "delete <resource-id>",
	Short: "Delete a resource from the server",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

func runDelete(cmd *cobra.Command, args []string) error {
	id := args[0]

	c, err := getClient()
	if err != nil {
		return err
	}

	if err := c.Delete(cmd.Context(), id); err != nil {
		return fmt.Errorf("delete failed: %w", err)
	}

	fmt.Printf("Deleted %s\n", id)
	return nil
}
