package persistence

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kvell/invsync/internal/domain/inventory"
)

// GormStore implements inventory.Store on top of a *gorm.DB, following the
// teacher's GormPlayerRepository: one struct wrapping *gorm.DB, every
// method translating gorm.ErrRecordNotFound into the domain's own sentinel.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore wraps db as an inventory.Store.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func wrapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return inventory.ErrNotFound
	}
	return fmt.Errorf("%w: %v", inventory.ErrStoreCorrupt, err)
}

func (s *GormStore) GetInventoryItem(ctx context.Context, model string) (*inventory.Item, error) {
	var row InventoryItemModel
	if err := s.db.WithContext(ctx).Where("model = ?", model).First(&row).Error; err != nil {
		return nil, wrapErr(err)
	}
	return &inventory.Item{Model: row.Model, Stocks: row.Stocks, LastSyncBatchID: row.LastSyncBatchID}, nil
}

func (s *GormStore) UpsertInventoryItem(ctx context.Context, item *inventory.Item) error {
	row := InventoryItemModel{Model: item.Model, Stocks: item.Stocks, LastSyncBatchID: item.LastSyncBatchID}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "model"}},
			DoUpdates: clause.AssignmentColumns([]string{"stocks", "last_sync_batch_id"}),
		}).
		Create(&row).Error
	return wrapErr(err)
}

func (s *GormStore) DeleteInventoryItems(ctx context.Context, models []string) error {
	if len(models) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).Where("model IN ?", models).Delete(&InventoryItemModel{}).Error
	return wrapErr(err)
}

func (s *GormStore) ListInventoryItems(ctx context.Context) ([]*inventory.Item, error) {
	var rows []InventoryItemModel
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, wrapErr(err)
	}
	items := make([]*inventory.Item, 0, len(rows))
	for _, row := range rows {
		items = append(items, &inventory.Item{Model: row.Model, Stocks: row.Stocks, LastSyncBatchID: row.LastSyncBatchID})
	}
	return items, nil
}

func (s *GormStore) GetCacheItem(ctx context.Context, system, model string) (*inventory.SystemCacheItem, error) {
	var row SystemCacheItemModel
	if err := s.db.WithContext(ctx).Where("system = ? AND model = ?", system, model).First(&row).Error; err != nil {
		return nil, wrapErr(err)
	}
	return &inventory.SystemCacheItem{
		System:          row.System,
		Model:           row.Model,
		Stocks:          row.Stocks,
		LastSyncBatchID: row.LastSyncBatchID,
		NotBehaving:     row.NotBehaving,
	}, nil
}

// UpsertCacheItem writes Stocks/LastSyncBatchID without touching
// NotBehaving — matching the Store contract, callers use MarkNotBehaving
// to change that flag explicitly.
func (s *GormStore) UpsertCacheItem(ctx context.Context, item *inventory.SystemCacheItem) error {
	row := SystemCacheItemModel{
		System:          item.System,
		Model:           item.Model,
		Stocks:          item.Stocks,
		LastSyncBatchID: item.LastSyncBatchID,
		NotBehaving:     false,
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "system"}, {Name: "model"}},
			DoUpdates: clause.AssignmentColumns([]string{"stocks", "last_sync_batch_id"}),
		}).
		Create(&row).Error
	return wrapErr(err)
}

func (s *GormStore) MarkNotBehaving(ctx context.Context, system, model string, flag bool) error {
	row := SystemCacheItemModel{System: system, Model: model, NotBehaving: flag}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "system"}, {Name: "model"}},
			DoUpdates: clause.AssignmentColumns([]string{"not_behaving"}),
		}).
		Create(&row).Error
	return wrapErr(err)
}

func (s *GormStore) AppendCacheDelta(ctx context.Context, delta *inventory.CacheDelta) error {
	row := CacheDeltaModel{
		Model:         delta.Model,
		System:        delta.System,
		CachedStocks:  delta.CachedStocks,
		CurrentStocks: delta.CurrentStocks,
		StocksDelta:   delta.StocksDelta,
		BatchID:       delta.BatchID,
	}
	return wrapErr(s.db.WithContext(ctx).Create(&row).Error)
}

func (s *GormStore) StartBatch(ctx context.Context, engineVersion string) (int64, error) {
	row := SyncBatchModel{EngineVersion: engineVersion}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return 0, wrapErr(err)
	}
	return row.ID, nil
}

func (s *GormStore) AppendSyncLog(ctx context.Context, entry *inventory.LogEntry) error {
	row := SyncLogModel{
		BatchID:          entry.BatchID,
		Model:            entry.Model,
		System:           entry.System,
		PreviousStocks:   entry.PreviousStocks,
		ComputedStocks:   entry.ComputedStocks,
		ErrorCode:        entry.ErrorCode,
		ErrorDescription: entry.ErrorDescription,
	}
	return wrapErr(s.db.WithContext(ctx).Create(&row).Error)
}

func (s *GormStore) SaveOAuth2Token(ctx context.Context, tok *inventory.OAuth2Token) error {
	row := OAuth2TokenModel{
		System:       tok.System,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		CreatedOn:    tok.CreatedOn,
		ExpiresOn:    tok.ExpiresOn,
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "system"}},
			DoUpdates: clause.AssignmentColumns([]string{"access_token", "refresh_token", "created_on", "expires_on"}),
		}).
		Create(&row).Error
	return wrapErr(err)
}

func (s *GormStore) GetOAuth2Token(ctx context.Context, system string) (*inventory.OAuth2Token, error) {
	var row OAuth2TokenModel
	if err := s.db.WithContext(ctx).Where("system = ?", system).First(&row).Error; err != nil {
		return nil, wrapErr(err)
	}
	return &inventory.OAuth2Token{
		System:       row.System,
		AccessToken:  row.AccessToken,
		RefreshToken: row.RefreshToken,
		CreatedOn:    row.CreatedOn,
		ExpiresOn:    row.ExpiresOn,
	}, nil
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
