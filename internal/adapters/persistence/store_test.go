package persistence_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kvell/invsync/internal/adapters/persistence"
	"github.com/kvell/invsync/internal/domain/inventory"
	"github.com/kvell/invsync/test/helpers"
)

func TestGormStore_InventoryItemRoundTrip(t *testing.T) {
	// Arrange
	db := helpers.NewTestDB(t)
	store := persistence.NewGormStore(db)
	ctx := context.Background()

	// Act
	_, err := store.GetInventoryItem(ctx, "SKU-1")
	require.ErrorIs(t, err, inventory.ErrNotFound)

	require.NoError(t, store.UpsertInventoryItem(ctx, &inventory.Item{Model: "SKU-1", Stocks: 10, LastSyncBatchID: 1}))
	item, err := store.GetInventoryItem(ctx, "SKU-1")
	require.NoError(t, err)
	assert.Equal(t, 10, item.Stocks)

	require.NoError(t, store.UpsertInventoryItem(ctx, &inventory.Item{Model: "SKU-1", Stocks: 7, LastSyncBatchID: 2}))
	item, err = store.GetInventoryItem(ctx, "SKU-1")
	require.NoError(t, err)
	assert.Equal(t, 7, item.Stocks, "second upsert updates, does not duplicate")
	assert.Equal(t, int64(2), item.LastSyncBatchID)

	items, err := store.ListInventoryItems(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 1)

	require.NoError(t, store.DeleteInventoryItems(ctx, []string{"SKU-1"}))
	_, err = store.GetInventoryItem(ctx, "SKU-1")
	require.ErrorIs(t, err, inventory.ErrNotFound)
}

func TestGormStore_CacheItemPreservesNotBehavingOnUpsert(t *testing.T) {
	// Arrange
	db := helpers.NewTestDB(t)
	store := persistence.NewGormStore(db)
	ctx := context.Background()

	require.NoError(t, store.UpsertCacheItem(ctx, &inventory.SystemCacheItem{System: "A", Model: "SKU-1", Stocks: 10}))
	require.NoError(t, store.MarkNotBehaving(ctx, "A", "SKU-1", true))

	// Act: a plain UpsertCacheItem must not clear the flag.
	require.NoError(t, store.UpsertCacheItem(ctx, &inventory.SystemCacheItem{System: "A", Model: "SKU-1", Stocks: 12}))

	// Assert
	item, err := store.GetCacheItem(ctx, "A", "SKU-1")
	require.NoError(t, err)
	assert.Equal(t, 12, item.Stocks)
	assert.True(t, item.NotBehaving)

	require.NoError(t, store.MarkNotBehaving(ctx, "A", "SKU-1", false))
	item, err = store.GetCacheItem(ctx, "A", "SKU-1")
	require.NoError(t, err)
	assert.False(t, item.NotBehaving)
}

func TestGormStore_BatchAndAuditTrail(t *testing.T) {
	// Arrange
	db := helpers.NewTestDB(t)
	store := persistence.NewGormStore(db)
	ctx := context.Background()

	// Act
	batchID, err := store.StartBatch(ctx, "1.0")
	require.NoError(t, err)
	assert.Greater(t, batchID, int64(0))

	require.NoError(t, store.AppendCacheDelta(ctx, &inventory.CacheDelta{
		Model: "SKU-1", System: "A", CachedStocks: 10, CurrentStocks: 7, StocksDelta: -3, BatchID: batchID,
	}))
	require.NoError(t, store.AppendSyncLog(ctx, &inventory.LogEntry{
		BatchID: batchID, Model: "SKU-1", System: "B", PreviousStocks: 10, ComputedStocks: 7, ErrorCode: "0",
	}))

	secondBatchID, err := store.StartBatch(ctx, "1.0")
	require.NoError(t, err)
	assert.NotEqual(t, batchID, secondBatchID)
}

func TestGormStore_OAuth2TokenRoundTrip(t *testing.T) {
	db := helpers.NewTestDB(t)
	store := persistence.NewGormStore(db)
	ctx := context.Background()

	_, err := store.GetOAuth2Token(ctx, "LAZADA")
	require.True(t, errors.Is(err, inventory.ErrNotFound))

	require.NoError(t, store.SaveOAuth2Token(ctx, &inventory.OAuth2Token{System: "LAZADA", AccessToken: "a1"}))
	tok, err := store.GetOAuth2Token(ctx, "LAZADA")
	require.NoError(t, err)
	assert.Equal(t, "a1", tok.AccessToken)

	require.NoError(t, store.SaveOAuth2Token(ctx, &inventory.OAuth2Token{System: "LAZADA", AccessToken: "a2"}))
	tok, err = store.GetOAuth2Token(ctx, "LAZADA")
	require.NoError(t, err)
	assert.Equal(t, "a2", tok.AccessToken)
}
