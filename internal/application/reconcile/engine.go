// Package reconcile implements the delta-aggregation algorithm that turns
// per-marketplace observed-stock snapshots into authoritative stock
// updates pushed back out to every marketplace.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/kvell/invsync/internal/domain/inventory"
	"github.com/kvell/invsync/internal/domain/marketplace"
)

// EngineVersion is recorded on every SyncBatch row.
const EngineVersion = "1.0"

// Logger is the minimal logging capability the engine needs; satisfied by
// *log.Logger. Kept as an interface so tests can capture output instead of
// writing to stderr, matching the teacher's habit of passing fmt.Println
// through main() rather than reaching for a logging package.
type Logger interface {
	Printf(format string, v ...any)
}

// Engine owns the per-batch reconciliation algorithm.
type Engine struct {
	Store  inventory.Store
	Logger Logger
}

// NewEngine constructs an Engine. If logger is nil, log.Default() is used.
func NewEngine(store inventory.Store, logger Logger) *Engine {
	if logger == nil {
		logger = log.Default()
	}
	return &Engine{Store: store, Logger: logger}
}

// BatchResult summarizes one Sync() run for the caller (CLI output,
// coordinator bookkeeping).
type BatchResult struct {
	BatchID         int64
	ModelsObserved  int
	ModelsUpdated   int
	ModelsSkipped   int
	ReadOnly        bool
}

// Sync runs one reconciliation batch against the enabled adapter set.
// defaultSystem names the adapter used as a fallback origin for
// previously-unseen SKUs. Only a Store failure (ErrStoreCorrupt) or a
// missing default adapter aborts the batch; every per-SKU and per-adapter
// failure is absorbed and logged.
func (e *Engine) Sync(ctx context.Context, adapters []marketplace.Adapter, defaultSystem string, readOnly bool) (*BatchResult, error) {
	byName := make(map[string]marketplace.Adapter, len(adapters))
	for _, a := range adapters {
		byName[a.System()] = a
	}
	defaultAdapter, ok := byName[defaultSystem]
	if !ok {
		return nil, fmt.Errorf("reconcile: default system %q is not among enabled adapters", defaultSystem)
	}

	batchID, err := e.Store.StartBatch(ctx, EngineVersion)
	if err != nil {
		return nil, fmt.Errorf("reconcile: starting batch: %w", err)
	}

	result := &BatchResult{BatchID: batchID, ReadOnly: readOnly}

	models := collectModels(adapters)
	result.ModelsObserved = len(models)

	for model := range models {
		delta, err := e.accumulateDelta(ctx, adapters, model, batchID)
		if err != nil {
			return result, err
		}

		item, err := e.Store.GetInventoryItem(ctx, model)
		if err != nil {
			if !errors.Is(err, inventory.ErrNotFound) {
				return result, fmt.Errorf("reconcile: loading inventory item %s: %w", model, err)
			}
			defaultProduct, derr := defaultAdapter.GetProduct(ctx, model)
			if derr != nil {
				e.Logger.Printf("reconcile: skipping %s: not in local inventory and not in default system %s: %v", model, defaultSystem, derr)
				result.ModelsSkipped++
				continue
			}
			item = &inventory.Item{Model: defaultProduct.Model, Stocks: defaultProduct.Stocks}
		}

		item.Stocks = max(0, item.Stocks+delta)
		item.LastSyncBatchID = batchID

		if readOnly {
			e.Logger.Printf("reconcile: read-only, skipping write for %s (would be %d)", model, item.Stocks)
			continue
		}

		if err := e.Store.UpsertInventoryItem(ctx, item); err != nil {
			return result, fmt.Errorf("reconcile: upserting inventory item %s: %w", model, err)
		}
		result.ModelsUpdated++

		for _, a := range adapters {
			if err := e.updateExternal(ctx, batchID, a, item); err != nil {
				if errors.Is(err, inventory.ErrStoreCorrupt) {
					return result, err
				}
				logAdapterSkip(e.Logger, a.System(), model, err)
			}
		}
	}

	return result, nil
}

// accumulateDelta computes Δ for model across every adapter, recording a
// CacheDelta row for each non-zero per-adapter δ. A marketplace that fails
// GetProduct/GetCacheItem contributes (δ=0) and does not poison the
// aggregate — only a Store-level corruption error is fatal.
func (e *Engine) accumulateDelta(ctx context.Context, adapters []marketplace.Adapter, model string, batchID int64) (int, error) {
	total := 0
	for _, a := range adapters {
		current, err := a.GetProduct(ctx, model)
		if err != nil {
			if errors.Is(err, marketplace.ErrMultipleResults) {
				e.Logger.Printf("reconcile: %s has ambiguous SKU %s, skipping", a.System(), model)
			}
			continue
		}

		cachedStocks := current.Stocks
		cacheItem, cerr := e.Store.GetCacheItem(ctx, a.System(), model)
		switch {
		case cerr != nil && errors.Is(cerr, inventory.ErrStoreCorrupt):
			return 0, fmt.Errorf("reconcile: fatal store error reading cache for %s/%s: %w", a.System(), model, cerr)
		case cerr != nil:
			// First-ever sighting of this (model, system) pair: cached
			// defaults to current, so δ=0 this batch.
		case cacheItem.NotBehaving:
			// Latched not-behaving: disregard this adapter's δ until its
			// next successful write clears the flag.
		default:
			cachedStocks = cacheItem.Stocks
		}

		delta := current.Stocks - cachedStocks
		if delta != 0 {
			if err := e.Store.AppendCacheDelta(ctx, &inventory.CacheDelta{
				Model:         model,
				System:        a.System(),
				CachedStocks:  cachedStocks,
				CurrentStocks: current.Stocks,
				StocksDelta:   delta,
				BatchID:       batchID,
			}); err != nil {
				return 0, fmt.Errorf("reconcile: appending cache delta for %s/%s: %w", a.System(), model, err)
			}
			total += delta
		}
	}
	return total, nil
}

// updateExternal pushes item's authoritative stock to one marketplace,
// freshening the cache beforehand and confirming it afterward. Errors
// returned here are logged and skipped by Sync, never escalated — except
// a Store failure (ErrStoreCorrupt), on which Sync aborts the batch.
func (e *Engine) updateExternal(ctx context.Context, batchID int64, a marketplace.Adapter, item *inventory.Item) error {
	systemItem, err := a.GetProduct(ctx, item.Model)
	if err != nil {
		return err
	}

	// Pre-write freshening: snapshot what the remote thought the stock
	// was just before we write, so next batch's cached baseline matches
	// what we reacted to.
	if err := e.Store.UpsertCacheItem(ctx, &inventory.SystemCacheItem{
		Model:           item.Model,
		System:          a.System(),
		Stocks:          systemItem.Stocks,
		LastSyncBatchID: batchID,
	}); err != nil {
		return fmt.Errorf("reconcile: pre-write cache freshen for %s/%s: %w", a.System(), item.Model, err)
	}

	if systemItem.Stocks == item.Stocks {
		return nil
	}

	result, err := a.UpdateProductStocks(ctx, item.Model, item.Stocks)
	if errors.Is(err, marketplace.ErrPlatformNotBehaving) {
		if merr := e.Store.MarkNotBehaving(ctx, a.System(), item.Model, true); merr != nil {
			return fmt.Errorf("reconcile: marking %s/%s not-behaving: %w", a.System(), item.Model, merr)
		}
		return err
	}
	if err != nil {
		return err
	}
	if merr := e.Store.MarkNotBehaving(ctx, a.System(), item.Model, false); merr != nil {
		return fmt.Errorf("reconcile: clearing not-behaving for %s/%s: %w", a.System(), item.Model, merr)
	}

	if err := e.Store.AppendSyncLog(ctx, &inventory.LogEntry{
		BatchID:          batchID,
		Model:            item.Model,
		System:           a.System(),
		PreviousStocks:   systemItem.Stocks,
		ComputedStocks:   item.Stocks,
		ErrorCode:        result.ErrorCode,
		ErrorDescription: result.ErrorDescription,
	}); err != nil {
		return fmt.Errorf("reconcile: appending sync log for %s/%s: %w", a.System(), item.Model, err)
	}

	if result.Succeeded() {
		// Post-write commit: cache now holds the value we wrote, so next
		// batch's δ is measured from here.
		if err := e.Store.UpsertCacheItem(ctx, &inventory.SystemCacheItem{
			Model:           item.Model,
			System:          a.System(),
			Stocks:          item.Stocks,
			LastSyncBatchID: batchID,
		}); err != nil {
			return fmt.Errorf("reconcile: post-write cache commit for %s/%s: %w", a.System(), item.Model, err)
		}
	}

	return nil
}

func logAdapterSkip(logger Logger, system, model string, err error) {
	switch {
	case errors.Is(err, marketplace.ErrNotFound):
		logger.Printf("reconcile: skipping external update of %s in %s: not found", model, system)
	case errors.Is(err, marketplace.ErrMultipleResults):
		logger.Printf("reconcile: skipping external update of %s in %s: ambiguous sku", model, system)
	case errors.Is(err, marketplace.ErrCommunication):
		logger.Printf("reconcile: skipping external update of %s in %s: communication error: %v", model, system, err)
	case errors.Is(err, marketplace.ErrPlatformNotBehaving):
		logger.Printf("reconcile: %s did not apply write for %s, marked not-behaving", system, model)
	default:
		logger.Printf("reconcile: skipping external update of %s in %s: %v", model, system, err)
	}
}

// collectModels is the union of every non-empty model across every
// adapter's current snapshot.
func collectModels(adapters []marketplace.Adapter) map[string]struct{} {
	models := make(map[string]struct{})
	for _, a := range adapters {
		for _, p := range a.ListProducts() {
			if p.Model == "" {
				continue
			}
			models[p.Model] = struct{}{}
		}
	}
	return models
}
