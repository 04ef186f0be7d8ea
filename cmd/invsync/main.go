// Command invsync reconciles inventory across marketplaces: sync,
// cleanup, per-marketplace OAuth2 reauth, and config inspection.
package main

import (
	"github.com/kvell/invsync/internal/adapters/cli"
)

func main() {
	cli.Execute()
}
