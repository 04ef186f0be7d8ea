// Package steps holds godog step definitions for the feature files under
// test/bdd/features, grounded on the teacher's test/bdd/steps package shape:
// one *Context struct per feature area, an InitializeXScenario(sc) function
// registering sc.Step calls, and a sc.Before hook resetting state.
package steps

import (
	"context"
	"fmt"
	"log"

	"github.com/cucumber/godog"

	"github.com/kvell/invsync/internal/application/reconcile"
	"github.com/kvell/invsync/internal/domain/marketplace"
	"github.com/kvell/invsync/test/helpers"
)

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

// reconciliationContext holds the state one reconciliation scenario
// operates on: the store, every marketplace mentioned so far (the first one
// given becomes the default system, per how every scenario in
// reconciliation.feature introduces "A" first), and bookkeeping needed by
// the "disregarded" assertion.
type reconciliationContext struct {
	store         *helpers.MemoryStore
	engine        *reconcile.Engine
	adapters      map[string]*helpers.MockAdapter
	order         []string
	defaultSystem string

	deltaCountBefore map[string]int
	lastErr          error
}

// InitializeReconciliationScenario registers the step definitions exercised
// by features/reconciliation.
func InitializeReconciliationScenario(sc *godog.ScenarioContext) {
	rc := &reconciliationContext{}

	sc.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		rc.store = helpers.NewMemoryStore()
		rc.engine = reconcile.NewEngine(rc.store, log.New(discardWriter{}, "", 0))
		rc.adapters = make(map[string]*helpers.MockAdapter)
		rc.order = nil
		rc.defaultSystem = ""
		rc.deltaCountBefore = nil
		rc.lastErr = nil
		return ctx, nil
	})

	sc.Step(`^an empty inventory store$`, rc.anEmptyInventoryStore)
	sc.Step(`^marketplace "([^"]*)" reports stock (\d+) for model "([^"]*)"$`, rc.marketplaceReportsStock)
	sc.Step(`^marketplace "([^"]*)" has an ambiguous listing for model "([^"]*)"$`, rc.marketplaceHasAmbiguousListing)
	sc.Step(`^marketplace "([^"]*)" rejects stock updates for model "([^"]*)"$`, rc.marketplaceRejectsStockUpdates)
	sc.Step(`^a sync batch has already run$`, rc.aSyncBatchRuns)
	sc.Step(`^a sync batch runs$`, rc.aSyncBatchRuns)
	sc.Step(`^a read-only sync batch runs$`, rc.aReadOnlySyncBatchRuns)
	sc.Step(`^the inventory stock for model "([^"]*)" should be (\d+)$`, rc.theInventoryStockShouldBe)
	sc.Step(`^the cached stock for "([^"]*)" on model "([^"]*)" should be (\d+)$`, rc.theCachedStockShouldBe)
	sc.Step(`^(\d+) cache delta rows? should be recorded for model "([^"]*)"$`, rc.cacheDeltaRowsShouldBeRecorded)
	sc.Step(`^marketplace "([^"]*)" should be marked not behaving for model "([^"]*)"$`, rc.marketplaceShouldBeMarkedNotBehaving)
	sc.Step(`^the delta contributed by "([^"]*)" for model "([^"]*)" should be disregarded$`, rc.theDeltaContributedShouldBeDisregarded)
	sc.Step(`^marketplace "([^"]*)" should not have been written to for model "([^"]*)"$`, rc.marketplaceShouldNotHaveBeenWrittenTo)
}

func (rc *reconciliationContext) anEmptyInventoryStore() error {
	return nil
}

// adapter returns the MockAdapter for system, creating it on first mention.
// The first system any scenario mentions becomes the default system, since
// every scenario in reconciliation.feature introduces its primary
// marketplace first.
func (rc *reconciliationContext) adapter(system string) *helpers.MockAdapter {
	a, ok := rc.adapters[system]
	if !ok {
		a = helpers.NewMockAdapter(system)
		rc.adapters[system] = a
		rc.order = append(rc.order, system)
		if rc.defaultSystem == "" {
			rc.defaultSystem = system
		}
	}
	return a
}

func (rc *reconciliationContext) marketplaceReportsStock(system string, stock int, model string) error {
	rc.adapter(system).SetStocks(model, stock)
	return nil
}

func (rc *reconciliationContext) marketplaceHasAmbiguousListing(system, model string) error {
	rc.adapter(system).GetProductErr[model] = marketplace.ErrMultipleResults
	return nil
}

func (rc *reconciliationContext) marketplaceRejectsStockUpdates(system, model string) error {
	rc.adapter(system).UpdateErr[model] = marketplace.ErrPlatformNotBehaving
	return nil
}

func (rc *reconciliationContext) aSyncBatchRuns() error {
	return rc.runBatch(false)
}

func (rc *reconciliationContext) aReadOnlySyncBatchRuns() error {
	return rc.runBatch(true)
}

func (rc *reconciliationContext) runBatch(readOnly bool) error {
	rc.deltaCountBefore = make(map[string]int)
	for _, d := range rc.store.Deltas() {
		rc.deltaCountBefore[d.System+"|"+d.Model]++
	}

	adapters := make([]marketplace.Adapter, 0, len(rc.order))
	for _, system := range rc.order {
		adapters = append(adapters, rc.adapters[system])
	}

	_, err := rc.engine.Sync(context.Background(), adapters, rc.defaultSystem, readOnly)
	rc.lastErr = err
	return err
}

func (rc *reconciliationContext) theInventoryStockShouldBe(model string, want int) error {
	item, err := rc.store.GetInventoryItem(context.Background(), model)
	if err != nil {
		return fmt.Errorf("loading inventory item %s: %w", model, err)
	}
	if item.Stocks != want {
		return fmt.Errorf("expected inventory stock %d for %s, got %d", want, model, item.Stocks)
	}
	return nil
}

func (rc *reconciliationContext) theCachedStockShouldBe(system, model string, want int) error {
	got := rc.store.CacheStocks(system, model)
	if got != want {
		return fmt.Errorf("expected cached stock %d for %s/%s, got %d", want, system, model, got)
	}
	return nil
}

func (rc *reconciliationContext) cacheDeltaRowsShouldBeRecorded(want int, model string) error {
	got := 0
	for _, d := range rc.store.Deltas() {
		if d.Model == model {
			got++
		}
	}
	if got != want {
		return fmt.Errorf("expected %d cache delta row(s) for %s, got %d", want, model, got)
	}
	return nil
}

func (rc *reconciliationContext) marketplaceShouldBeMarkedNotBehaving(system, model string) error {
	if !rc.store.NotBehaving(system, model) {
		return fmt.Errorf("expected %s/%s to be marked not behaving", system, model)
	}
	return nil
}

// theDeltaContributedShouldBeDisregarded confirms the most recent batch
// appended no new CacheDelta row for (system, model): once an adapter is
// latched not-behaving, its own stock swings no longer feed the aggregate.
func (rc *reconciliationContext) theDeltaContributedShouldBeDisregarded(system, model string) error {
	key := system + "|" + model
	after := 0
	for _, d := range rc.store.Deltas() {
		if d.System == system && d.Model == model {
			after++
		}
	}
	if after != rc.deltaCountBefore[key] {
		return fmt.Errorf("expected no new delta row for %s/%s after being marked not behaving", system, model)
	}
	return nil
}

func (rc *reconciliationContext) marketplaceShouldNotHaveBeenWrittenTo(system, model string) error {
	for _, u := range rc.adapter(system).Updates {
		if u.Model == model {
			return fmt.Errorf("expected no write to %s/%s", system, model)
		}
	}
	return nil
}
