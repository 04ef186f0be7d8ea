package marketplace

import (
	"context"
	"errors"
)

// Error taxonomy, per the failure-semantics design (spec §7). These are
// sentinels so call sites can use errors.Is even though concrete adapters
// wrap them with marketplace-specific context via fmt.Errorf("...: %w", ...).
var (
	// ErrNotFound indicates the SKU is absent at the marketplace.
	ErrNotFound = errors.New("marketplace: not found")
	// ErrMultipleResults indicates the SKU is ambiguous at the marketplace;
	// the engine must skip it rather than write against it.
	ErrMultipleResults = errors.New("marketplace: multiple results")
	// ErrCommunication indicates a network or malformed-response failure.
	// The engine does not halt on this — it skips the call and continues.
	ErrCommunication = errors.New("marketplace: communication error")
	// ErrPlatformNotBehaving indicates a read-after-write check found the
	// remote did not apply a write that was reported as accepted.
	ErrPlatformNotBehaving = errors.New("marketplace: platform not behaving")
	// ErrUnhandledSystem indicates an unknown marketplace code was passed
	// to a lookup keyed by system name. Programming error: fatal.
	ErrUnhandledSystem = errors.New("marketplace: unhandled system")
)

// Adapter is the uniform read/write surface the reconciliation engine
// consumes. Each concrete marketplace (Lazada, Shopee, TikTok, Opencart,
// WooCommerce, ...) hides its own signing, pagination, retry, and variant
// explosion behind this contract. Adapters are owned by the
// BatchCoordinator, not shared across batches; their calls are blocking
// network I/O from the engine's point of view.
type Adapter interface {
	// System returns this adapter's marketplace code (one of the
	// constants in systems.go).
	System() string

	// Refresh repopulates the adapter's in-memory product list from the
	// remote marketplace, paging until exhaustion. Returns
	// ErrCommunication on failure; the engine treats a failed Refresh as
	// "this adapter contributes zero delta this batch", not a fatal
	// condition.
	Refresh(ctx context.Context) error

	// ListProducts returns a copy of the in-memory snapshot populated by
	// the last successful Refresh.
	ListProducts() []Product

	// GetProduct is a cached lookup against the snapshot. Returns
	// ErrNotFound if absent, ErrMultipleResults if the SKU is ambiguous
	// (the engine must skip writes against it).
	GetProduct(ctx context.Context, model string) (Product, error)

	// UpdateProductStocks pushes a new stock value for model. Adapters
	// that post-validate (read-after-write) return
	// ErrPlatformNotBehaving when the remote did not apply the change.
	UpdateProductStocks(ctx context.Context, model string, stocks int) (WriteResult, error)

	// GetProductDirect bypasses the snapshot and re-queries the
	// marketplace directly. Used for post-write verification and for
	// cross-marketplace listing propagation.
	GetProductDirect(ctx context.Context, model string) (Product, error)
}

// Creator is an optional capability implemented by adapters that can
// create a brand-new listing from another marketplace's product data —
// used only by the supplemented cross-marketplace listing pass, never by
// the reconciliation engine itself.
type Creator interface {
	CreateProduct(ctx context.Context, source Product) error
}
