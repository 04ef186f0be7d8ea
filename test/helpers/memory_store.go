// Package helpers provides shared test doubles and fixtures, grounded on
// the teacher's test/helpers package (NewTestDB, mock_*.go structs).
package helpers

import (
	"context"
	"sync"
	"time"

	"github.com/kvell/invsync/internal/domain/inventory"
)

type cacheKey struct {
	system, model string
}

// MemoryStore is an in-memory inventory.Store used by engine/coordinator
// unit tests so they don't need a real database.
type MemoryStore struct {
	mu sync.Mutex

	items map[string]*inventory.Item
	cache map[cacheKey]*inventory.SystemCacheItem
	deltas []*inventory.CacheDelta
	logs   []*inventory.LogEntry
	tokens map[string]*inventory.OAuth2Token

	nextBatchID int64
	Corrupt     bool // when true, every call returns ErrStoreCorrupt
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items:  make(map[string]*inventory.Item),
		cache:  make(map[cacheKey]*inventory.SystemCacheItem),
		tokens: make(map[string]*inventory.OAuth2Token),
	}
}

func (s *MemoryStore) corrupt() error {
	if s.Corrupt {
		return inventory.ErrStoreCorrupt
	}
	return nil
}

func (s *MemoryStore) GetInventoryItem(_ context.Context, model string) (*inventory.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.corrupt(); err != nil {
		return nil, err
	}
	item, ok := s.items[model]
	if !ok {
		return nil, inventory.ErrNotFound
	}
	cp := *item
	return &cp, nil
}

func (s *MemoryStore) UpsertInventoryItem(_ context.Context, item *inventory.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.corrupt(); err != nil {
		return err
	}
	cp := *item
	s.items[item.Model] = &cp
	return nil
}

func (s *MemoryStore) DeleteInventoryItems(_ context.Context, models []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.corrupt(); err != nil {
		return err
	}
	for _, m := range models {
		delete(s.items, m)
	}
	return nil
}

func (s *MemoryStore) ListInventoryItems(_ context.Context) ([]*inventory.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.corrupt(); err != nil {
		return nil, err
	}
	out := make([]*inventory.Item, 0, len(s.items))
	for _, item := range s.items {
		cp := *item
		out = append(out, &cp)
	}
	return out, nil
}

func (s *MemoryStore) GetCacheItem(_ context.Context, system, model string) (*inventory.SystemCacheItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.corrupt(); err != nil {
		return nil, err
	}
	item, ok := s.cache[cacheKey{system, model}]
	if !ok {
		return nil, inventory.ErrNotFound
	}
	cp := *item
	return &cp, nil
}

func (s *MemoryStore) UpsertCacheItem(_ context.Context, item *inventory.SystemCacheItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.corrupt(); err != nil {
		return err
	}
	key := cacheKey{item.System, item.Model}
	notBehaving := false
	if existing, ok := s.cache[key]; ok {
		notBehaving = existing.NotBehaving
	}
	cp := *item
	cp.NotBehaving = notBehaving
	s.cache[key] = &cp
	return nil
}

func (s *MemoryStore) MarkNotBehaving(_ context.Context, system, model string, flag bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.corrupt(); err != nil {
		return err
	}
	key := cacheKey{system, model}
	item, ok := s.cache[key]
	if !ok {
		item = &inventory.SystemCacheItem{System: system, Model: model}
		s.cache[key] = item
	}
	item.NotBehaving = flag
	return nil
}

func (s *MemoryStore) AppendCacheDelta(_ context.Context, delta *inventory.CacheDelta) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.corrupt(); err != nil {
		return err
	}
	cp := *delta
	s.deltas = append(s.deltas, &cp)
	return nil
}

func (s *MemoryStore) StartBatch(_ context.Context, _ string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.corrupt(); err != nil {
		return 0, err
	}
	s.nextBatchID++
	return s.nextBatchID, nil
}

func (s *MemoryStore) AppendSyncLog(_ context.Context, entry *inventory.LogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.corrupt(); err != nil {
		return err
	}
	cp := *entry
	cp.Timestamp = time.Now()
	s.logs = append(s.logs, &cp)
	return nil
}

func (s *MemoryStore) SaveOAuth2Token(_ context.Context, tok *inventory.OAuth2Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.corrupt(); err != nil {
		return err
	}
	cp := *tok
	s.tokens[tok.System] = &cp
	return nil
}

func (s *MemoryStore) GetOAuth2Token(_ context.Context, system string) (*inventory.OAuth2Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.corrupt(); err != nil {
		return nil, err
	}
	tok, ok := s.tokens[system]
	if !ok {
		return nil, inventory.ErrNotFound
	}
	cp := *tok
	return &cp, nil
}

func (s *MemoryStore) Close() error { return nil }

// Deltas returns a copy of every CacheDelta appended so far, for
// assertions.
func (s *MemoryStore) Deltas() []*inventory.CacheDelta {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*inventory.CacheDelta, len(s.deltas))
	copy(out, s.deltas)
	return out
}

// Logs returns a copy of every SyncLog row appended so far, for
// assertions.
func (s *MemoryStore) Logs() []*inventory.LogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*inventory.LogEntry, len(s.logs))
	copy(out, s.logs)
	return out
}

// CacheStocks is a test convenience returning the cached stock value for
// (system, model), or -1 if absent.
func (s *MemoryStore) CacheStocks(system, model string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.cache[cacheKey{system, model}]
	if !ok {
		return -1
	}
	return item.Stocks
}

// NotBehaving is a test convenience reporting whether (system, model) is
// currently latched not-behaving.
func (s *MemoryStore) NotBehaving(system, model string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.cache[cacheKey{system, model}]
	return ok && item.NotBehaving
}
