// Package opencart implements the marketplace.Adapter contract against a
// self-hosted OpenCart storefront's store_sync module: HTTP basic auth
// and a legacy XML wire format. OpenCart is the default marketplace and
// the canonical source of SKU existence — every other adapter's listing
// gap is measured against this one.
package opencart

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/kvell/invsync/internal/adapters/marketplaces/common"
	"github.com/kvell/invsync/internal/domain/marketplace"
	"github.com/kvell/invsync/internal/infrastructure/config"
)

const (
	listProductsPath = "/module/store_sync/listlocalproducts"
	setQuantityPath  = "/module/store_sync/setlocalquantity"
)

// Client is the OpenCart marketplace.Adapter.
type Client struct {
	*common.Client
	baseURL  string
	username string
	password string

	mu       sync.RWMutex
	products map[string]int
}

// New builds an OpenCart client from its config section.
func New(cfg config.OpencartConfig) *Client {
	return &Client{
		Client:   common.NewClient(cfg.Timeout, cfg.RateLimit.Requests, cfg.RateLimit.Burst),
		baseURL:  strings.TrimSuffix(cfg.BaseURL, "/"),
		username: cfg.Username,
		password: cfg.Password,
		products: make(map[string]int),
	}
}

func (c *Client) System() string { return marketplace.SystemOpencart }

func (c *Client) newRequest(ctx context.Context, method, path string, body []byte) (*http.Request, error) {
	var reader *strings.Reader
	if body != nil {
		reader = strings.NewReader(string(body))
	}
	var req *http.Request
	var err error
	if reader != nil {
		req, err = http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", marketplace.ErrCommunication, err)
	}
	req.SetBasicAuth(c.username, c.password)
	if body != nil {
		req.Header.Set("Content-Type", "application/xml")
	}
	return req, nil
}

type productListXML struct {
	XMLName  xml.Name `xml:"Products"`
	Products []struct {
		Model    string `xml:"Model"`
		Quantity int    `xml:"Quantity"`
	} `xml:"Product"`
}

// Refresh fetches the full product list. Per the original client, an
// empty response is treated as a communication failure rather than an
// empty catalog — OpenCart's store_sync module returning zero products
// almost always means the request never reached the module.
func (c *Client) Refresh(ctx context.Context) error {
	req, err := c.newRequest(ctx, http.MethodGet, listProductsPath, nil)
	if err != nil {
		return err
	}

	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var parsed productListXML
	if err := xml.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return fmt.Errorf("%w: parsing product list: %v", marketplace.ErrCommunication, err)
	}
	if len(parsed.Products) == 0 {
		return fmt.Errorf("%w: zero products retrieved from opencart", marketplace.ErrCommunication)
	}

	loaded := make(map[string]int, len(parsed.Products))
	for _, p := range parsed.Products {
		loaded[p.Model] = p.Quantity
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
	for model, quantity := range c.products {
		out = append(out, marketplace.Product{Model: model, Stocks: quantity})
	}
	return out
}

func (c *Client) GetProduct(ctx context.Context, model string) (marketplace.Product, error) {
	c.mu.RLock()
	quantity, ok := c.products[model]
	c.mu.RUnlock()
	if !ok {
		return marketplace.Product{}, fmt.Errorf("%w: %s", marketplace.ErrNotFound, model)
	}
	return marketplace.Product{Model: model, Stocks: quantity}, nil
}

// GetProductDirect re-reads the whole catalog and filters to model, since
// OpenCart's store_sync module exposes no single-SKU lookup.
func (c *Client) GetProductDirect(ctx context.Context, model string) (marketplace.Product, error) {
	if err := c.Refresh(ctx); err != nil {
		return marketplace.Product{}, err
	}
	return c.GetProduct(ctx, model)
}

type setQuantityXML struct {
	XMLName  xml.Name `xml:"Request"`
	Model    string   `xml:"Model"`
	Quantity int      `xml:"Quantity"`
}

// UpdateProductStocks posts the new quantity for model.
func (c *Client) UpdateProductStocks(ctx context.Context, model string, stocks int) (marketplace.WriteResult, error) {
	c.mu.RLock()
	_, ok := c.products[model]
	c.mu.RUnlock()
	if !ok {
		return marketplace.WriteResult{}, fmt.Errorf("%w: %s", marketplace.ErrNotFound, model)
	}

	body, err := xml.Marshal(setQuantityXML{Model: model, Quantity: stocks})
	if err != nil {
		return marketplace.WriteResult{}, fmt.Errorf("marshaling update payload: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, setQuantityPath, body)
	if err != nil {
		return marketplace.WriteResult{}, err
	}

	resp, err := c.Do(ctx, req)
	if err != nil {
		return marketplace.WriteResult{}, err
	}
	defer resp.Body.Close()

	c.mu.Lock()
	c.products[model] = stocks
	c.mu.Unlock()

	return marketplace.WriteResult{ErrorCode: marketplace.ErrorCodeSuccess}, nil
}
