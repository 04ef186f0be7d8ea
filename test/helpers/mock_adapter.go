package helpers

import (
	"context"
	"sync"

	"github.com/kvell/invsync/internal/domain/marketplace"
)

// MockAdapter is a scriptable marketplace.Adapter for engine/coordinator
// tests, in the style of the teacher's test/helpers/mock_*.go structs:
// canned return values plus call-count fields for assertions.
type MockAdapter struct {
	mu sync.Mutex

	system   string
	products map[string]marketplace.Product

	// RefreshErr, when set, is returned by Refresh.
	RefreshErr error
	// GetProductErr maps a model to an error GetProduct should return for
	// it instead of a normal lookup.
	GetProductErr map[string]error
	// UpdateErr maps a model to an error UpdateProductStocks should
	// return for it — set to marketplace.ErrPlatformNotBehaving to
	// simulate a lying platform.
	UpdateErr map[string]error
	Updates   []Update

	// CreateErr maps a model to an error CreateProduct should return for it.
	CreateErr map[string]error
	Created   []marketplace.Product
}

// Update records one UpdateProductStocks call observed by a MockAdapter.
type Update struct {
	Model  string
	Stocks int
}

// NewMockAdapter returns a MockAdapter for the given system, seeded with
// products keyed by model.
func NewMockAdapter(system string, products ...marketplace.Product) *MockAdapter {
	m := &MockAdapter{
		system:        system,
		products:      make(map[string]marketplace.Product),
		GetProductErr: make(map[string]error),
		UpdateErr:     make(map[string]error),
		CreateErr:     make(map[string]error),
	}
	for _, p := range products {
		m.products[p.Model] = p
	}
	return m
}

func (m *MockAdapter) System() string { return m.system }

func (m *MockAdapter) Refresh(_ context.Context) error {
	return m.RefreshErr
}

func (m *MockAdapter) ListProducts() []marketplace.Product {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]marketplace.Product, 0, len(m.products))
	for _, p := range m.products {
		out = append(out, p)
	}
	return out
}

func (m *MockAdapter) GetProduct(_ context.Context, model string) (marketplace.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.GetProductErr[model]; ok {
		return marketplace.Product{}, err
	}
	p, ok := m.products[model]
	if !ok {
		return marketplace.Product{}, marketplace.ErrNotFound
	}
	return p, nil
}

func (m *MockAdapter) GetProductDirect(ctx context.Context, model string) (marketplace.Product, error) {
	return m.GetProduct(ctx, model)
}

func (m *MockAdapter) UpdateProductStocks(_ context.Context, model string, stocks int) (marketplace.WriteResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Updates = append(m.Updates, Update{Model: model, Stocks: stocks})

	if err, ok := m.UpdateErr[model]; ok {
		return marketplace.WriteResult{}, err
	}

	p := m.products[model]
	p.Model = model
	p.Stocks = stocks
	m.products[model] = p

	return marketplace.WriteResult{ErrorCode: marketplace.ErrorCodeSuccess}, nil
}

// SetStocks overwrites a product's stocks directly, simulating a sale
// happening at the marketplace between batches.
func (m *MockAdapter) SetStocks(model string, stocks int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.products[model]
	p.Model = model
	p.Stocks = stocks
	m.products[model] = p
}

// CreateProduct implements marketplace.Creator so a MockAdapter can stand
// in as a listing-propagation sink in tests.
func (m *MockAdapter) CreateProduct(_ context.Context, source marketplace.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.CreateErr[source.Model]; ok {
		return err
	}
	m.Created = append(m.Created, source)
	m.products[source.Model] = source
	return nil
}

// nonCreatorAdapter forwards every marketplace.Adapter method to an
// embedded MockAdapter without exposing CreateProduct, for tests that need
// a sink lacking marketplace.Creator.
type nonCreatorAdapter struct {
	marketplace.Adapter
}

// WithoutCreator wraps m so type assertions against marketplace.Creator
// fail, simulating a marketplace that cannot accept new listings.
func WithoutCreator(m *MockAdapter) marketplace.Adapter {
	return nonCreatorAdapter{Adapter: m}
}
