package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newCleanupCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Prune local inventory of SKUs no longer listed by the default marketplace",
		Long: `cleanup refreshes the default marketplace and deletes any local
inventory row whose SKU is no longer present in that marketplace's
current listing. It does not run reconciliation; use sync for that.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, cancel := context.WithTimeout(context.Background(), a.Config.Batch.Timeout)
			defer cancel()

			deleted, err := a.Coordinator.RunCleanup(ctx)
			if err != nil {
				return err
			}

			if len(deleted) == 0 {
				fmt.Println("nothing to prune")
				return nil
			}
			fmt.Printf("pruned %d SKU(s): %v\n", len(deleted), deleted)
			return nil
		},
	}
}
