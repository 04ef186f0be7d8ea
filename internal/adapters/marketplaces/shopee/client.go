// Package shopee implements the marketplace.Adapter contract against the
// Shopee Open Platform: HMAC-SHA256 request signing keyed on a
// shop-level partner key (no OAuth2 token), and variant flattening —
// a parent item with variations explodes into one Product per
// variation, each remembering which parent item_id to write through.
package shopee

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/kvell/invsync/internal/adapters/marketplaces/common"
	"github.com/kvell/invsync/internal/domain/marketplace"
	"github.com/kvell/invsync/internal/infrastructure/config"
)

// item is the internal record for one listing or one variation of a
// listing. When parentItemID is non-empty, itemID is actually a
// variation_id and writes go through the variation-stock endpoint.
type item struct {
	itemID       string
	parentItemID string
	model        string
	quantity     int
}

// Client is the Shopee marketplace.Adapter.
type Client struct {
	*common.Client
	baseURL    string
	shopID     string
	partnerID  string
	partnerKey string

	mu       sync.RWMutex
	products map[string]item
}

// New builds a Shopee client from its config section.
func New(cfg config.ShopeeConfig) *Client {
	return &Client{
		Client:     common.NewClient(cfg.Timeout, cfg.RateLimit.Requests, cfg.RateLimit.Burst),
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		shopID:     cfg.ShopID,
		partnerID:  cfg.PartnerID,
		partnerKey: cfg.PartnerKey,
		products:   make(map[string]item),
	}
}

func (c *Client) System() string { return marketplace.SystemShopee }

func (c *Client) buildPayload(extra map[string]interface{}) ([]byte, error) {
	payload := map[string]interface{}{
		"partner_id": c.partnerID,
		"shopid":     c.shopID,
		"timestamp":  time.Now().Unix(),
	}
	for k, v := range extra {
		payload[k] = v
	}
	return json.Marshal(payload)
}

type shopeeResponse struct {
	Error string          `json:"error"`
	Msg   string          `json:"msg"`
	Items []json.RawMessage `json:"items"`
	More  bool            `json:"more"`
	Item  json.RawMessage `json:"item"`
	ItemID json.Number    `json:"item_id"`
}

// request signs endpoint+payload and POSTs it, returning the decoded
// response envelope. Shopee's signature covers the full URL plus body:
// HMAC-SHA256(partner_key, url + "|" + body).
func (c *Client) request(ctx context.Context, endpoint string, payload []byte) (shopeeResponse, error) {
	target := c.baseURL + endpoint

	mac := hmac.New(sha256.New, []byte(c.partnerKey))
	mac.Write([]byte(target + "|" + string(payload)))
	signature := hex.EncodeToString(mac.Sum(nil))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(payload))
	if err != nil {
		return shopeeResponse{}, fmt.Errorf("%w: %v", marketplace.ErrCommunication, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", signature)

	resp, err := c.Do(ctx, req)
	if err != nil {
		return shopeeResponse{}, err
	}
	defer resp.Body.Close()

	var parsed shopeeResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return shopeeResponse{}, fmt.Errorf("%w: decoding response: %v", marketplace.ErrCommunication, err)
	}
	if resp.StatusCode >= 300 || parsed.Error != "" {
		desc := parsed.Msg
		if desc == "" {
			desc = parsed.Error
		}
		return shopeeResponse{}, fmt.Errorf("%w: %s", marketplace.ErrCommunication, desc)
	}
	return parsed, nil
}

type listItem struct {
	ItemID json.Number `json:"item_id"`
}

type itemDetail struct {
	ItemID     json.Number `json:"item_id"`
	ItemSKU    string      `json:"item_sku"`
	Stock      int         `json:"stock"`
	Variations []struct {
		VariationID  json.Number `json:"variation_id"`
		VariationSKU string      `json:"variation_sku"`
		Stock        int         `json:"stock"`
	} `json:"variations"`
}

// Refresh lists every item, then fetches each item's detail to discover
// variations. A parent item with at least one variation is tracked as
// one item per variation; otherwise the parent itself is tracked.
func (c *Client) Refresh(ctx context.Context) error {
	const pageSize = 100
	offset := 0
	var itemIDs []string

	for {
		payload, err := c.buildPayload(map[string]interface{}{
			"pagination_entries_per_page": pageSize,
			"pagination_offset":           offset,
		})
		if err != nil {
			return fmt.Errorf("%w: %v", marketplace.ErrCommunication, err)
		}
		resp, err := c.request(ctx, "/api/v1/items/get", payload)
		if err != nil {
			return err
		}

		for _, raw := range resp.Items {
			var li listItem
			if err := json.Unmarshal(raw, &li); err != nil {
				continue
			}
			itemIDs = append(itemIDs, li.ItemID.String())
		}

		if !resp.More {
			break
		}
		offset += pageSize
	}

	loaded := make(map[string]item)
	for _, itemID := range itemIDs {
		payload, err := c.buildPayload(map[string]interface{}{"item_id": json.Number(itemID)})
		if err != nil {
			return fmt.Errorf("%w: %v", marketplace.ErrCommunication, err)
		}
		resp, err := c.request(ctx, "/api/v1/item/get", payload)
		if err != nil {
			continue
		}

		var detail itemDetail
		if err := json.Unmarshal(resp.Item, &detail); err != nil {
			continue
		}

		if len(detail.Variations) > 0 {
			for _, v := range detail.Variations {
				loaded[v.VariationSKU] = item{
					itemID:       v.VariationID.String(),
					parentItemID: detail.ItemID.String(),
					model:        v.VariationSKU,
					quantity:     v.Stock,
				}
			}
		} else {
			loaded[detail.ItemSKU] = item{
				itemID:   detail.ItemID.String(),
				model:    detail.ItemSKU,
				quantity: detail.Stock,
			}
		}
	}

	c.mu.Lock()
	c.products = loaded
	c.mu.Unlock()
	return nil
}

func toProduct(i item) marketplace.Product {
	return marketplace.Product{
		Model:  i.model,
		Stocks: i.quantity,
		OpaqueIDs: map[string]string{
			"item_id":        i.itemID,
			"parent_item_id": i.parentItemID,
		},
	}
}

func (c *Client) ListProducts() []marketplace.Product {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]marketplace.Product, 0, len(c.products))
	for _, it := range c.products {
		out = append(out, toProduct(it))
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
	return toProduct(it), nil
}

// GetProductDirect re-reads the catalog from Shopee. Shopee has no
// search-by-sku endpoint, so this falls back to a full Refresh
// and then looks up the cache — matching the original's behavior of
// treating an un-cached model as not found rather than erroring.
func (c *Client) GetProductDirect(ctx context.Context, model string) (marketplace.Product, error) {
	if err := c.Refresh(ctx); err != nil {
		return marketplace.Product{}, err
	}
	return c.GetProduct(ctx, model)
}

// UpdateProductStocks writes stocks to the variation-stock endpoint when
// the SKU is a variation, or the plain item-stock endpoint otherwise.
func (c *Client) UpdateProductStocks(ctx context.Context, model string, stocks int) (marketplace.WriteResult, error) {
	c.mu.RLock()
	it, ok := c.products[model]
	c.mu.RUnlock()
	if !ok {
		return marketplace.WriteResult{}, fmt.Errorf("%w: %s", marketplace.ErrNotFound, model)
	}

	var endpoint string
	var extra map[string]interface{}
	if it.parentItemID != "" {
		endpoint = "/api/v1/items/update_variation_stock"
		extra = map[string]interface{}{
			"item_id":      json.Number(it.parentItemID),
			"variation_id": json.Number(it.itemID),
			"stock":        stocks,
		}
	} else {
		endpoint = "/api/v1/items/update_stock"
		extra = map[string]interface{}{
			"item_id": json.Number(it.itemID),
			"stock":   stocks,
		}
	}

	payload, err := c.buildPayload(extra)
	if err != nil {
		return marketplace.WriteResult{}, fmt.Errorf("%w: %v", marketplace.ErrCommunication, err)
	}
	if _, err := c.request(ctx, endpoint, payload); err != nil {
		return marketplace.WriteResult{}, err
	}

	it.quantity = stocks
	c.mu.Lock()
	c.products[model] = it
	c.mu.Unlock()

	return marketplace.WriteResult{ErrorCode: marketplace.ErrorCodeSuccess}, nil
}

// CreateProduct lists a brand-new, single-variation item for source's
// model/stock. The richer listing metadata (name, description, price,
// images) the original Python client accepted isn't available through
// marketplace.Product, which the reconciliation engine deliberately
// keeps minimal — so the new listing is created bare and expected to be
// enriched by hand afterward.
func (c *Client) CreateProduct(ctx context.Context, source marketplace.Product) error {
	payload, err := c.buildPayload(map[string]interface{}{
		"category_id": 0,
		"name":        source.Model,
		"description": source.Model,
		"item_sku":    source.Model,
		"price":       0,
		"stock":       source.Stocks,
		"weight":      0.2,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", marketplace.ErrCommunication, err)
	}

	resp, err := c.request(ctx, "/api/v1/item/add", payload)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.products[source.Model] = item{itemID: resp.ItemID.String(), model: source.Model, quantity: source.Stocks}
	c.mu.Unlock()
	return nil
}
