package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kvell/invsync/internal/domain/inventory"
	"github.com/kvell/invsync/internal/domain/marketplace"
)

func newChkconfigCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "chkconfig",
		Short: "Dump enabled marketplaces and OAuth2 token status",
		Long: `chkconfig reports which marketplaces are enabled and, for the ones
authenticated via OAuth2, a redacted summary of the persisted token: age,
expiry, and a masked suffix — never the token itself.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			fmt.Println("enabled marketplaces:")
			for _, adapter := range a.Adapters {
				fmt.Printf("  %s\n", adapter.System())
			}

			fmt.Println("\nlogging:")
			fmt.Printf("  Level:  %s\n", a.Config.Logging.Level)
			fmt.Printf("  Format: %s\n", a.Config.Logging.Format)
			fmt.Printf("  Output: %s\n", a.Config.Logging.Output)

			fmt.Println("\noauth2 tokens:")
			ctx := context.Background()
			for _, system := range marketplace.OAuth2Systems {
				tok, err := a.OAuth2.Get(ctx, system)
				if errors.Is(err, inventory.ErrNotFound) {
					fmt.Printf("  %s: no token on record\n", system)
					continue
				}
				if err != nil {
					fmt.Printf("  %s: %v\n", system, err)
					continue
				}
				fmt.Printf("  %s: %s\n", system, describeToken(tok))
			}

			return nil
		},
	}
}

func describeToken(tok *inventory.OAuth2Token) string {
	age := "unknown age"
	if !tok.CreatedOn.IsZero() {
		age = time.Since(tok.CreatedOn).Round(time.Minute).String() + " old"
	}

	expiry := "no expiry on record"
	if !tok.ExpiresOn.IsZero() {
		if remaining := time.Until(tok.ExpiresOn); remaining > 0 {
			expiry = "expires in " + remaining.Round(time.Minute).String()
		} else {
			expiry = "expired " + (-remaining).Round(time.Minute).String() + " ago"
		}
	}

	return fmt.Sprintf("%s, %s, suffix ...%s", age, expiry, maskToken(tok.AccessToken))
}

func maskToken(token string) string {
	const visible = 4
	if len(token) <= visible {
		return ""
	}
	return token[len(token)-visible:]
}
