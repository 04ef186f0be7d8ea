// Package inventory defines the authoritative stock model and the Store
// contract the reconciliation engine persists through.
package inventory

import "time"

// Item is the authoritative per-SKU stock, mutated only by the
// reconciliation engine.
type Item struct {
	Model           string
	Stocks          int
	LastSyncBatchID int64
}

// SystemCacheItem is the last-known stock witnessed at a marketplace for a
// SKU, plus the latched not-behaving flag (see UpsertCacheItem /
// MarkNotBehaving in store.go).
type SystemCacheItem struct {
	Model           string
	System          string
	Stocks          int
	LastSyncBatchID int64
	NotBehaving     bool
}

// CacheDelta is one append-only audit row: the observed change between the
// cached and current stock for a (model, system) pair in a given batch.
type CacheDelta struct {
	Model         string
	System        string
	CachedStocks  int
	CurrentStocks int
	StocksDelta   int
	BatchID       int64
}

// Batch is one reconciliation run.
type Batch struct {
	ID            int64
	Timestamp     time.Time
	EngineVersion string
}

// LogEntry is one attempted write to a marketplace, recorded whenever the
// marketplace returned a WriteResult, whether its ErrorCode reports
// success or not. A write that fails with an error is not recorded.
type LogEntry struct {
	BatchID          int64
	Timestamp        time.Time
	Model            string
	System           string
	PreviousStocks   int
	ComputedStocks   int
	ErrorCode        string
	ErrorDescription string
}

// OAuth2Token is the persisted token pair for a marketplace that requires
// OAuth2 authentication.
type OAuth2Token struct {
	System       string
	AccessToken  string
	RefreshToken string
	CreatedOn    time.Time
	ExpiresOn    time.Time
}
