// Package woocommerce implements the marketplace.Adapter contract
// against the WooCommerce REST API (wc/v3): consumer key/secret carried
// as query parameters, JSON bodies, and page-header-driven pagination.
package woocommerce

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/kvell/invsync/internal/adapters/marketplaces/common"
	"github.com/kvell/invsync/internal/domain/marketplace"
	"github.com/kvell/invsync/internal/infrastructure/config"
)

type item struct {
	id       int
	model    string
	quantity int
}

// Client is the WooCommerce marketplace.Adapter.
type Client struct {
	*common.Client
	baseURL        string
	consumerKey    string
	consumerSecret string

	mu       sync.RWMutex
	products map[string]item
}

// New builds a WooCommerce client from its config section.
func New(cfg config.WooCommerceConfig) *Client {
	return &Client{
		Client:         common.NewClient(cfg.Timeout, cfg.RateLimit.Requests, cfg.RateLimit.Burst),
		baseURL:        strings.TrimSuffix(cfg.BaseURL, "/") + "/wp-json/wc/v3",
		consumerKey:    cfg.ConsumerKey,
		consumerSecret: cfg.ConsumerSecret,
		products:       make(map[string]item),
	}
}

func (c *Client) System() string { return marketplace.SystemWooCommerce }

func (c *Client) signedURL(resource string, params url.Values) string {
	if params == nil {
		params = url.Values{}
	}
	params.Set("consumer_key", c.consumerKey)
	params.Set("consumer_secret", c.consumerSecret)
	return c.baseURL + "/" + resource + "?" + params.Encode()
}

func (c *Client) request(ctx context.Context, method, resource string, params url.Values, body interface{}) (*http.Response, error) {
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", marketplace.ErrCommunication, err)
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.signedURL(resource, params), reader)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", marketplace.ErrCommunication, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		defer resp.Body.Close()
		var apiErr struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		return nil, fmt.Errorf("%w: %s: %s", marketplace.ErrCommunication, apiErr.Code, apiErr.Message)
	}
	return resp, nil
}

type productJSON struct {
	ID            int    `json:"id"`
	SKU           string `json:"sku"`
	StockQuantity *int   `json:"stock_quantity"`
}

// Refresh pages through /products until X-WP-TotalPages is exhausted,
// skipping any listing that has no SKU or no tracked stock quantity.
func (c *Client) Refresh(ctx context.Context) error {
	const perPage = 100
	page := 1
	loaded := make(map[string]item)

	for {
		params := url.Values{"per_page": {strconv.Itoa(perPage)}, "page": {strconv.Itoa(page)}}
		resp, err := c.request(ctx, http.MethodGet, "products", params, nil)
		if err != nil {
			return err
		}

		var products []productJSON
		decodeErr := json.NewDecoder(resp.Body).Decode(&products)
		totalPages, _ := strconv.Atoi(resp.Header.Get("X-WP-TotalPages"))
		resp.Body.Close()
		if decodeErr != nil {
			return fmt.Errorf("%w: parsing products: %v", marketplace.ErrCommunication, decodeErr)
		}

		for _, p := range products {
			if p.SKU == "" || p.StockQuantity == nil {
				continue
			}
			loaded[p.SKU] = item{id: p.ID, model: p.SKU, quantity: *p.StockQuantity}
		}

		if page >= totalPages {
			break
		}
		page++
	}

	c.mu.Lock()
	c.products = loaded
	c.mu.Unlock()
	return nil
}

func (c *Client) ListProducts() []marketplace.Product {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]marketplace.Product, 0, len(c.products))
	for _, it := range c.products {
		out = append(out, marketplace.Product{Model: it.model, Stocks: it.quantity, OpaqueIDs: map[string]string{"id": strconv.Itoa(it.id)}})
	}
	return out
}

func (c *Client) GetProduct(ctx context.Context, model string) (marketplace.Product, error) {
	c.mu.RLock()
	it, ok := c.products[model]
	c.mu.RUnlock()
	if !ok {
		return marketplace.Product{}, fmt.Errorf("%w: %s", marketplace.ErrNotFound, model)
	}
	return marketplace.Product{Model: it.model, Stocks: it.quantity, OpaqueIDs: map[string]string{"id": strconv.Itoa(it.id)}}, nil
}

// GetProductDirect re-reads the whole catalog, since the WooCommerce
// products listing endpoint has no exact-SKU filter that is guaranteed
// available on every store configuration.
func (c *Client) GetProductDirect(ctx context.Context, model string) (marketplace.Product, error) {
	if err := c.Refresh(ctx); err != nil {
		return marketplace.Product{}, err
	}
	return c.GetProduct(ctx, model)
}

// UpdateProductStocks PUTs the new stock_quantity to /products/{id}.
func (c *Client) UpdateProductStocks(ctx context.Context, model string, stocks int) (marketplace.WriteResult, error) {
	c.mu.RLock()
	it, ok := c.products[model]
	c.mu.RUnlock()
	if !ok {
		return marketplace.WriteResult{}, fmt.Errorf("%w: %s", marketplace.ErrNotFound, model)
	}

	resource := fmt.Sprintf("products/%d", it.id)
	resp, err := c.request(ctx, http.MethodPut, resource, nil, map[string]interface{}{"stock_quantity": stocks})
	if err != nil {
		return marketplace.WriteResult{}, err
	}
	resp.Body.Close()

	it.quantity = stocks
	c.mu.Lock()
	c.products[model] = it
	c.mu.Unlock()

	return marketplace.WriteResult{ErrorCode: marketplace.ErrorCodeSuccess}, nil
}

// CreateProduct lists a brand-new simple product for source's model/stock.
// As with the other sink adapters, richer metadata the original Python
// uploader carried (name, price, images) has no home in marketplace.Product
// and so is left for manual enrichment after creation.
func (c *Client) CreateProduct(ctx context.Context, source marketplace.Product) error {
	resp, err := c.request(ctx, http.MethodPost, "products", nil, map[string]interface{}{
		"name":           source.Model,
		"sku":            source.Model,
		"type":           "simple",
		"manage_stock":   true,
		"stock_quantity": source.Stocks,
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var created productJSON
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return fmt.Errorf("%w: parsing created product: %v", marketplace.ErrCommunication, err)
	}

	c.mu.Lock()
	c.products[source.Model] = item{id: created.ID, model: source.Model, quantity: source.Stocks}
	c.mu.Unlock()
	return nil
}
