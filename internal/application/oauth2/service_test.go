package oauth2_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kvell/invsync/internal/adapters/persistence"
	"github.com/kvell/invsync/internal/application/oauth2"
	"github.com/kvell/invsync/internal/domain/inventory"
	"github.com/kvell/invsync/internal/domain/marketplace"
	"github.com/kvell/invsync/test/helpers"
)

func TestService_SaveAndGetRoundTrip(t *testing.T) {
	db := helpers.NewTestDB(t)
	store := persistence.NewGormStore(db)
	svc := oauth2.NewService(store)
	ctx := context.Background()

	_, err := svc.Get(ctx, marketplace.SystemLazada)
	require.ErrorIs(t, err, inventory.ErrNotFound)

	now := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, svc.Save(ctx, &inventory.OAuth2Token{
		System:       marketplace.SystemLazada,
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		CreatedOn:    now,
		ExpiresOn:    now.Add(time.Hour),
	}))

	tok, err := svc.Get(ctx, marketplace.SystemLazada)
	require.NoError(t, err)
	assert.Equal(t, "access-1", tok.AccessToken)
	assert.Equal(t, "refresh-1", tok.RefreshToken)

	// Save again is an upsert, not a duplicate row.
	require.NoError(t, svc.Save(ctx, &inventory.OAuth2Token{
		System:      marketplace.SystemLazada,
		AccessToken: "access-2",
		CreatedOn:   now,
		ExpiresOn:   now.Add(2 * time.Hour),
	}))
	tok, err = svc.Get(ctx, marketplace.SystemLazada)
	require.NoError(t, err)
	assert.Equal(t, "access-2", tok.AccessToken)
}
