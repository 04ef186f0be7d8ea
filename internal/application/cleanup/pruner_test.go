package cleanup_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kvell/invsync/internal/application/cleanup"
	"github.com/kvell/invsync/internal/domain/inventory"
	"github.com/kvell/invsync/internal/domain/marketplace"
	"github.com/kvell/invsync/test/helpers"
)

func TestPrune_DeletesModelsNoLongerListed(t *testing.T) {
	store := helpers.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.UpsertInventoryItem(ctx, &inventory.Item{Model: "SKU1", Stocks: 10}))
	require.NoError(t, store.UpsertInventoryItem(ctx, &inventory.Item{Model: "SKU2", Stocks: 5}))

	defaultAdapter := helpers.NewMockAdapter("OPENCART", marketplace.Product{Model: "SKU1", Stocks: 10})

	deleted, err := cleanup.NewPruner(store).Prune(ctx, defaultAdapter)
	require.NoError(t, err)
	assert.Equal(t, []string{"SKU2"}, deleted)

	items, err := store.ListInventoryItems(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "SKU1", items[0].Model)
}

func TestPrune_ZeroOnlineModelsIsCommunicationError(t *testing.T) {
	store := helpers.NewMemoryStore()
	defaultAdapter := helpers.NewMockAdapter("OPENCART")

	_, err := cleanup.NewPruner(store).Prune(context.Background(), defaultAdapter)
	require.ErrorIs(t, err, marketplace.ErrCommunication)
}

func TestPrune_NothingToDeleteReturnsNilWithoutStoreWrite(t *testing.T) {
	store := helpers.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.UpsertInventoryItem(ctx, &inventory.Item{Model: "SKU1", Stocks: 10}))

	defaultAdapter := helpers.NewMockAdapter("OPENCART", marketplace.Product{Model: "SKU1", Stocks: 10})

	deleted, err := cleanup.NewPruner(store).Prune(ctx, defaultAdapter)
	require.NoError(t, err)
	assert.Empty(t, deleted)
}
