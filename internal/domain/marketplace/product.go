// Package marketplace defines the capability set the reconciliation engine
// consumes to talk to a marketplace, without knowing anything about HTTP
// signing, pagination, or wire formats. Concrete adapters live under
// internal/adapters/marketplaces/.
package marketplace

// Product is a marketplace's view of one SKU. OpaqueIDs carries whatever
// additional identifiers (item_id, sku_id, variation_id) the marketplace
// needs to round-trip on updates; the engine never reads these for
// cross-marketplace correlation — only Model is the join key.
type Product struct {
	Model     string
	Stocks    int
	OpaqueIDs map[string]string
}

// WriteResult is the outcome of an UpdateProductStocks call. ErrorCode is
// opaque per spec Open Question (b): some marketplaces return string error
// codes, some numeric; ErrorCodeSuccess is the sole sentinel meaning
// "accepted".
type WriteResult struct {
	ErrorCode        string
	ErrorDescription string
}

// ErrorCodeSuccess is the sentinel value of WriteResult.ErrorCode meaning
// the write was accepted.
const ErrorCodeSuccess = "0"

// Succeeded reports whether the write was accepted by the marketplace.
func (r WriteResult) Succeeded() bool {
	return r.ErrorCode == ErrorCodeSuccess
}
