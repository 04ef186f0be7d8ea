// Package oauth2 is a thin scoped wrapper over Store's OAuth2 persistence,
// keyed by marketplace name. It makes no judgment about token expiry —
// that decision belongs to the adapter holding the token.
package oauth2

import (
	"context"
	"fmt"

	"github.com/kvell/invsync/internal/domain/inventory"
)

// Service saves and retrieves OAuth2 token pairs per marketplace.
type Service struct {
	Store inventory.Store
}

// NewService builds a Service over store.
func NewService(store inventory.Store) *Service {
	return &Service{Store: store}
}

// Save upserts tok by its System.
func (s *Service) Save(ctx context.Context, tok *inventory.OAuth2Token) error {
	if err := s.Store.SaveOAuth2Token(ctx, tok); err != nil {
		return fmt.Errorf("oauth2: saving token for %s: %w", tok.System, err)
	}
	return nil
}

// Get returns the persisted token for system, or inventory.ErrNotFound if
// none has ever been saved.
func (s *Service) Get(ctx context.Context, system string) (*inventory.OAuth2Token, error) {
	tok, err := s.Store.GetOAuth2Token(ctx, system)
	if err != nil {
		return nil, err
	}
	return tok, nil
}
