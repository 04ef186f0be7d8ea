// Package listing implements the cross-marketplace listing-propagation
// pass: creating on every other marketplace any SKU that the default
// marketplace carries but a target does not. Grounded on
// sync/sync.py's UploadFromLazadaToShopee, generalized from a single
// Lazada-to-Shopee pair to every enabled adapter that implements
// marketplace.Creator.
package listing

import (
	"context"
	"log"

	"github.com/kvell/invsync/internal/domain/marketplace"
)

// Logger is the minimal logging capability the propagator needs.
type Logger interface {
	Printf(format string, v ...any)
}

// Propagator fills listing gaps on sink adapters from one source adapter.
type Propagator struct {
	Logger Logger
}

// NewPropagator builds a Propagator. If logger is nil, log.Default() is used.
func NewPropagator(logger Logger) *Propagator {
	if logger == nil {
		logger = log.Default()
	}
	return &Propagator{Logger: logger}
}

// Propagate creates, on every adapter in targets that implements
// marketplace.Creator, every SKU present on source but absent from that
// target. Per-SKU failures are logged and skipped, mirroring the
// original's bare except-and-log; a failure on one target or one SKU
// never aborts the pass.
func (p *Propagator) Propagate(ctx context.Context, source marketplace.Adapter, targets []marketplace.Adapter) {
	sourceModels := modelSet(source)

	for _, target := range targets {
		if target.System() == source.System() {
			continue
		}
		creator, ok := target.(marketplace.Creator)
		if !ok {
			continue
		}

		targetModels := modelSet(target)
		for model := range sourceModels {
			if _, exists := targetModels[model]; exists {
				continue
			}

			product, err := source.GetProductDirect(ctx, model)
			if err != nil {
				p.Logger.Printf("listing: fetching %s from %s for propagation to %s: %v", model, source.System(), target.System(), err)
				continue
			}

			if err := creator.CreateProduct(ctx, product); err != nil {
				p.Logger.Printf("listing: creating %s on %s: %v", model, target.System(), err)
				continue
			}
			p.Logger.Printf("listing: created %s on %s from %s", model, target.System(), source.System())
		}
	}
}

func modelSet(a marketplace.Adapter) map[string]struct{} {
	set := make(map[string]struct{})
	for _, p := range a.ListProducts() {
		if p.Model == "" {
			continue
		}
		set[p.Model] = struct{}{}
	}
	return set
}
