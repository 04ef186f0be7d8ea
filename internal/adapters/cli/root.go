package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kvell/invsync/internal/domain/inventory"
	"github.com/kvell/invsync/internal/domain/marketplace"
)

// configPath is the global --config flag, defaulting to $CONFIG_PATH per
// spec §6's environment override.
var configPath string

// NewRootCommand creates the root command for the invsync CLI.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "invsync",
		Short: "Reconcile inventory across marketplaces",
		Long: `invsync aggregates stock observed across enabled marketplaces into a
single authoritative count and pushes the reconciled value back out to
every marketplace.

Examples:
  invsync sync
  invsync sync --readonly
  invsync cleanup
  invsync lazada-reauth --token AUTH_CODE
  invsync chkconfig`,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", os.Getenv("CONFIG_PATH"),
		"Path to the invsync.ini configuration file (defaults to $CONFIG_PATH)")

	rootCmd.AddCommand(newSyncCommand())
	rootCmd.AddCommand(newCleanupCommand())
	rootCmd.AddCommand(newChkconfigCommand())
	for _, system := range marketplace.OAuth2Systems {
		rootCmd.AddCommand(newReauthCommand(system))
	}

	return rootCmd
}

// Execute runs the root command and exits the process with the code
// spec §6 assigns to the failure class: 0 success, 1 configuration error,
// 2 store error, 3 unrecoverable communication error.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCodeFor(err))
	}
}

func exitCodeFor(err error) int {
	switch {
	case errors.Is(err, inventory.ErrStoreCorrupt):
		return 2
	case errors.Is(err, marketplace.ErrCommunication):
		return 3
	default:
		return 1
	}
}
