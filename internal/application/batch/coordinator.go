// Package batch implements the BatchCoordinator: the single entry point a
// sync run goes through, tying together the process lock, per-adapter
// refresh, reconciliation, listing propagation, and OAuth2 token
// bookkeeping.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/kvell/invsync/internal/application/cleanup"
	"github.com/kvell/invsync/internal/application/listing"
	"github.com/kvell/invsync/internal/application/oauth2"
	"github.com/kvell/invsync/internal/application/reconcile"
	"github.com/kvell/invsync/internal/domain/inventory"
	"github.com/kvell/invsync/internal/domain/marketplace"
	"github.com/kvell/invsync/internal/infrastructure/lock"
)

// Logger is the minimal logging capability the coordinator needs.
type Logger interface {
	Printf(format string, v ...any)
}

// Refresher is implemented by adapters backed by a short-lived OAuth2
// access token that can be renewed from a refresh token. Only lazada
// implements it in the original source; other OAuth2 marketplaces (e.g.
// tiktok) keep a long-lived token and are reauthorized manually instead.
type Refresher interface {
	RefreshToken(ctx context.Context, refreshToken string) (*inventory.OAuth2Token, error)
}

// Coordinator runs one sync batch end to end.
type Coordinator struct {
	Store      inventory.Store
	OAuth2     *oauth2.Service
	Lock       *lock.BatchLock
	Engine     *reconcile.Engine
	Propagator *listing.Propagator
	Pruner     *cleanup.Pruner
	Logger     Logger

	Adapters          []marketplace.Adapter
	DefaultSystem     string
	PropagateListings bool
}

// NewCoordinator wires the pieces of one batch together. If logger is nil,
// log.Default() is used. propagateListings gates the cross-marketplace
// listing pass; spec.md §6's config key of the same name lets an operator
// disable it independent of --readonly.
func NewCoordinator(store inventory.Store, batchLock *lock.BatchLock, adapters []marketplace.Adapter, defaultSystem string, propagateListings bool, logger Logger) *Coordinator {
	if logger == nil {
		logger = log.Default()
	}
	return &Coordinator{
		Store:             store,
		OAuth2:            oauth2.NewService(store),
		Lock:              batchLock,
		Engine:            reconcile.NewEngine(store, logger),
		Propagator:        listing.NewPropagator(logger),
		Pruner:            cleanup.NewPruner(store),
		Logger:            logger,
		Adapters:          adapters,
		DefaultSystem:     defaultSystem,
		PropagateListings: propagateListings,
	}
}

// Result summarizes a full batch run.
type Result struct {
	Reconcile     *reconcile.BatchResult
	RefreshErrors map[string]error
	Pruned        []string
}

// RunSync acquires the process lock, refreshes every adapter (tolerating
// per-adapter failures — a failed Refresh means that adapter contributes
// δ=0 this batch, it does not abort), prunes local inventory of SKUs no
// longer listed by the default marketplace, runs the reconciliation
// engine, then (unless readOnly) runs the listing-propagation pass, if
// PropagateListings is enabled, and OAuth2 token refresh. Pruning,
// propagation and token refresh are all skipped under readOnly since they
// mutate state. The lock is released on every exit path.
func (c *Coordinator) RunSync(ctx context.Context, readOnly bool) (*Result, error) {
	if err := c.Lock.Acquire(); err != nil {
		return nil, err
	}
	defer func() {
		if err := c.Lock.Release(); err != nil {
			c.Logger.Printf("batch: releasing lock: %v", err)
		}
	}()

	result := &Result{RefreshErrors: make(map[string]error)}

	refreshed := make([]marketplace.Adapter, 0, len(c.Adapters))
	for _, a := range c.Adapters {
		if err := a.Refresh(ctx); err != nil {
			c.Logger.Printf("batch: refreshing %s failed, contributing zero delta this batch: %v", a.System(), err)
			result.RefreshErrors[a.System()] = err
			continue
		}
		refreshed = append(refreshed, a)
	}

	if len(c.Adapters) > 0 && len(refreshed) == 0 {
		return result, fmt.Errorf("%w: every enabled adapter failed to refresh", marketplace.ErrCommunication)
	}

	defaultAdapter := findAdapter(refreshed, c.DefaultSystem)
	if !readOnly && defaultAdapter != nil {
		pruned, err := c.Pruner.Prune(ctx, defaultAdapter)
		if err != nil {
			c.Logger.Printf("batch: cleanup pass failed, leaving local inventory as-is: %v", err)
		} else {
			result.Pruned = pruned
		}
	}

	syncResult, err := c.Engine.Sync(ctx, c.Adapters, c.DefaultSystem, readOnly)
	if err != nil {
		return result, err
	}
	result.Reconcile = syncResult

	if !readOnly {
		if c.PropagateListings && defaultAdapter != nil {
			c.Propagator.Propagate(ctx, defaultAdapter, refreshed)
		}
		c.refreshTokens(ctx)
	}

	return result, nil
}

// refreshTokens renews the access token of every adapter implementing
// Refresher, persisting the new token pair. A renewal failure is logged
// and otherwise ignored — the adapter keeps using its current token until
// the platform rejects it, at which point a manual reauth is needed.
func (c *Coordinator) refreshTokens(ctx context.Context) {
	for _, a := range c.Adapters {
		refresher, ok := a.(Refresher)
		if !ok {
			continue
		}

		current, err := c.OAuth2.Get(ctx, a.System())
		if err != nil {
			if !errors.Is(err, inventory.ErrNotFound) {
				c.Logger.Printf("batch: loading oauth2 token for %s: %v", a.System(), err)
			}
			continue
		}

		renewed, err := refresher.RefreshToken(ctx, current.RefreshToken)
		if err != nil {
			c.Logger.Printf("batch: refreshing oauth2 token for %s: %v", a.System(), err)
			continue
		}
		if err := c.OAuth2.Save(ctx, renewed); err != nil {
			c.Logger.Printf("batch: saving refreshed oauth2 token for %s: %v", a.System(), err)
		}
	}
}

// RunCleanup refreshes the default marketplace's adapter, then prunes
// local inventory of SKUs no longer listed by it.
func (c *Coordinator) RunCleanup(ctx context.Context) ([]string, error) {
	if err := c.Lock.Acquire(); err != nil {
		return nil, err
	}
	defer func() {
		if err := c.Lock.Release(); err != nil {
			c.Logger.Printf("batch: releasing lock: %v", err)
		}
	}()

	defaultAdapter := findAdapter(c.Adapters, c.DefaultSystem)
	if defaultAdapter == nil {
		return nil, marketplace.ErrUnhandledSystem
	}
	if err := defaultAdapter.Refresh(ctx); err != nil {
		return nil, err
	}

	return c.Pruner.Prune(ctx, defaultAdapter)
}

func findAdapter(adapters []marketplace.Adapter, system string) marketplace.Adapter {
	for _, a := range adapters {
		if a.System() == system {
			return a
		}
	}
	return nil
}
