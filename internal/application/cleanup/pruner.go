// Package cleanup implements the prune pass that removes local inventory
// rows for SKUs no longer listed by the default marketplace, grounded on
// sync/sync.py's ListDeletedSystemModels/DoCleanupProcedure.
package cleanup

import (
	"context"
	"fmt"

	"github.com/kvell/invsync/internal/domain/inventory"
	"github.com/kvell/invsync/internal/domain/marketplace"
)

// Pruner deletes inventory rows whose model no longer appears in the
// default marketplace's listing.
type Pruner struct {
	Store inventory.Store
}

// NewPruner builds a Pruner over store.
func NewPruner(store inventory.Store) *Pruner {
	return &Pruner{Store: store}
}

// Prune diffs every locally-known model against defaultAdapter's current
// listing and deletes the ones no longer present there. It returns the
// deleted models. A defaultAdapter reporting zero online models is
// treated as a communication failure rather than an empty catalog — the
// same defensive guard the original source applies, since an empty page
// almost never means the marketplace is genuinely out of products.
func (p *Pruner) Prune(ctx context.Context, defaultAdapter marketplace.Adapter) ([]string, error) {
	online := defaultAdapter.ListProducts()
	if len(online) == 0 {
		return nil, fmt.Errorf("%w: %s reported zero online models", marketplace.ErrCommunication, defaultAdapter.System())
	}

	onlineModels := make(map[string]struct{}, len(online))
	for _, p := range online {
		onlineModels[p.Model] = struct{}{}
	}

	cached, err := p.Store.ListInventoryItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("cleanup: listing inventory items: %w", err)
	}

	var deleted []string
	for _, item := range cached {
		if _, ok := onlineModels[item.Model]; !ok {
			deleted = append(deleted, item.Model)
		}
	}
	if len(deleted) == 0 {
		return nil, nil
	}

	if err := p.Store.DeleteInventoryItems(ctx, deleted); err != nil {
		return nil, fmt.Errorf("cleanup: deleting inventory items: %w", err)
	}
	return deleted, nil
}
