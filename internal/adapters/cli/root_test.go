package cli

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kvell/invsync/internal/domain/inventory"
	"github.com/kvell/invsync/internal/domain/marketplace"
)

func TestExitCodeFor(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"configuration error", errors.New("configuration error: no marketplace is enabled"), 1},
		{"store error", fmt.Errorf("%w: connecting to database: boom", inventory.ErrStoreCorrupt), 2},
		{"communication error", fmt.Errorf("%w: every enabled adapter failed to refresh", marketplace.ErrCommunication), 3},
		{"unhandled system falls back to configuration class", marketplace.ErrUnhandledSystem, 1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, exitCodeFor(tc.err))
		})
	}
}
