// Package persistence implements internal/domain/inventory.Store on top of
// gorm, the way the teacher's persistence package backs its repository
// interfaces with gorm models.
package persistence

import "time"

// InventoryItemModel is the authoritative per-SKU stock row.
type InventoryItemModel struct {
	Model           string `gorm:"column:model;primaryKey"`
	Stocks          int    `gorm:"column:stocks;not null"`
	LastSyncBatchID int64  `gorm:"column:last_sync_batch_id;not null;default:0"`
}

func (InventoryItemModel) TableName() string { return "inventory_items" }

// SystemCacheItemModel is the last-known stock witnessed at a marketplace
// for a SKU, keyed by the composite (system, model) pair.
type SystemCacheItemModel struct {
	System          string `gorm:"column:system;primaryKey"`
	Model           string `gorm:"column:model;primaryKey"`
	Stocks          int    `gorm:"column:stocks;not null"`
	LastSyncBatchID int64  `gorm:"column:last_sync_batch_id;not null;default:0"`
	NotBehaving     bool   `gorm:"column:not_behaving;not null;default:false"`
}

func (SystemCacheItemModel) TableName() string { return "inventory_system_cache" }

// CacheDeltaModel is one append-only audit row recording an observed
// change between cached and current stock for a (model, system) pair.
type CacheDeltaModel struct {
	ID            int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Model         string    `gorm:"column:model;not null;index:idx_cache_delta_model_system"`
	System        string    `gorm:"column:system;not null;index:idx_cache_delta_model_system"`
	CachedStocks  int       `gorm:"column:cached_stocks;not null"`
	CurrentStocks int       `gorm:"column:current_stocks;not null"`
	StocksDelta   int       `gorm:"column:stocks_delta;not null"`
	BatchID       int64     `gorm:"column:batch_id;not null;index"`
	CreatedAt     time.Time `gorm:"column:created_at;not null;autoCreateTime"`
}

func (CacheDeltaModel) TableName() string { return "inventory_system_cache_delta" }

// SyncBatchModel is one reconciliation run.
type SyncBatchModel struct {
	ID            int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Timestamp     time.Time `gorm:"column:timestamp;not null;autoCreateTime"`
	EngineVersion string    `gorm:"column:engine_version;not null"`
}

func (SyncBatchModel) TableName() string { return "sync_batches" }

// SyncLogModel is one attempted write to a marketplace.
type SyncLogModel struct {
	ID               int64     `gorm:"column:id;primaryKey;autoIncrement"`
	BatchID          int64     `gorm:"column:batch_id;not null;index"`
	Timestamp        time.Time `gorm:"column:timestamp;not null;autoCreateTime"`
	Model            string    `gorm:"column:model;not null;index:idx_sync_log_model_system"`
	System           string    `gorm:"column:system;not null;index:idx_sync_log_model_system"`
	PreviousStocks   int       `gorm:"column:previous_stocks;not null"`
	ComputedStocks   int       `gorm:"column:computed_stocks;not null"`
	ErrorCode        string    `gorm:"column:error_code;not null"`
	ErrorDescription string    `gorm:"column:error_description"`
}

func (SyncLogModel) TableName() string { return "sync_log" }

// OAuth2TokenModel is the persisted token pair for a marketplace that
// requires OAuth2 authentication.
type OAuth2TokenModel struct {
	System       string    `gorm:"column:system;primaryKey"`
	AccessToken  string    `gorm:"column:access_token;not null"`
	RefreshToken string    `gorm:"column:refresh_token"`
	CreatedOn    time.Time `gorm:"column:created_on;not null"`
	ExpiresOn    time.Time `gorm:"column:expires_on"`
}

func (OAuth2TokenModel) TableName() string { return "oauth2_tokens" }
