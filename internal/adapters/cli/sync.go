package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newSyncCommand() *cobra.Command {
	var readOnly bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Prune stale listings and reconcile inventory across marketplaces",
		Long: `sync refreshes every enabled marketplace, prunes local inventory of
SKUs no longer listed by the default marketplace, aggregates the observed
stock changes into the authoritative inventory, and pushes the reconciled
value back out. Use --readonly to observe deltas without writing, deleting,
or creating anything.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, cancel := context.WithTimeout(context.Background(), a.Config.Batch.Timeout)
			defer cancel()

			result, err := a.Coordinator.RunSync(ctx, readOnly)
			if err != nil {
				return err
			}

			if result.Reconcile != nil {
				fmt.Printf("batch %d: %d observed, %d updated, %d skipped (readonly=%v)\n",
					result.Reconcile.BatchID, result.Reconcile.ModelsObserved,
					result.Reconcile.ModelsUpdated, result.Reconcile.ModelsSkipped, result.Reconcile.ReadOnly)
			}
			if len(result.Pruned) > 0 {
				fmt.Printf("pruned %d SKU(s) no longer listed: %v\n", len(result.Pruned), result.Pruned)
			}
			if len(result.RefreshErrors) > 0 {
				fmt.Println("adapters skipped this batch:")
				for system, refreshErr := range result.RefreshErrors {
					fmt.Printf("  %s: %v\n", system, refreshErr)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&readOnly, "readonly", false, "observe stock changes without writing, pruning, or creating listings")
	return cmd
}
