package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/andresmejia3/stable/internal/store"
	"github.com/andresmejia3/stable/internal/utils"
	"github.com/spf13/cobra"
)

var renameCmd = &cobra.Command{
	Use:   "rename <card_id> <name>",
	Short: "Rename a registered stat card",
	Args:  cobra.ExactArgs(2),
	Annotations: map[string]string{
		storeAnnotation: "required",
	},
	Run: func(cmd *cobra.Command, args []string) {
		id, err := strconv.Atoi(args[0])
		if err != nil {
			utils.Die("Invalid card ID", err)
		}
		name := args[1]

		if err := runRename(cmd.Context(), DB, id, name); err != nil {
			utils.Die("Failed to rename card", err)
		}
		fmt.Printf("✅ Card %d renamed to '%s'\n", id, name)
	},
}

func init() {
	rootCmd.AddCommand(renameCmd)
}

func runRename(ctx context.Context, reg store.Store, id int, name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("name must not be empty")
	}
	return reg.RenameCard(ctx, id, name)
}
