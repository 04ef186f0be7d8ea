// Package lazada implements the marketplace.Adapter contract against the
// Lazada Open Platform: HMAC-SHA256 signed requests, OAuth2 bearer tokens,
// and an XML payload for stock updates. It is the only adapter that
// performs a read-after-write check, because Lazada is the platform known
// to silently drop quantity updates under load.
package lazada

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/kvell/invsync/internal/adapters/marketplaces/common"
	"github.com/kvell/invsync/internal/domain/inventory"
	"github.com/kvell/invsync/internal/domain/marketplace"
	"github.com/kvell/invsync/internal/infrastructure/config"
)

const partnerID = "invsync-go-20260101"

// item is the internal record kept per SKU. Quantity is the raw on-hand
// count Lazada stores; Available is what Lazada reports as sellable. The
// engine only ever sees Stocks = Available, but a write back to Lazada
// needs Quantity (Available plus whatever is reserved in open orders).
type item struct {
	model     string
	quantity  int
	reserved  int
	itemID    string
	skuID     string
}

func (i item) stocks() int { return i.quantity - i.reserved }

// Client is the Lazada marketplace.Adapter.
type Client struct {
	*common.Client
	baseURL     string
	appKey      string
	appSecret   string
	accessToken string

	mu       sync.RWMutex
	products map[string]item
}

// New builds a Lazada client from its config section. accessToken is the
// OAuth2 bearer token most recently persisted by the reauth flow; it can
// be updated later with SetAccessToken.
func New(cfg config.LazadaConfig, accessToken string) *Client {
	return &Client{
		Client:      common.NewClient(cfg.Timeout, cfg.RateLimit.Requests, cfg.RateLimit.Burst),
		baseURL:     strings.TrimSuffix(cfg.BaseURL, "/"),
		appKey:      cfg.AppKey,
		appSecret:   cfg.AppSecret,
		accessToken: accessToken,
		products:    make(map[string]item),
	}
}

// SetAccessToken updates the bearer token used on subsequent requests,
// after a successful reauth.
func (c *Client) SetAccessToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accessToken = token
}

func (c *Client) System() string { return marketplace.SystemLazada }

type lazadaEnvelope struct {
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func sign(secret, endpoint string, params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(endpoint)
	for _, k := range keys {
		b.WriteString(k)
		b.WriteString(params[k])
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(b.String()))
	return strings.ToUpper(hex.EncodeToString(mac.Sum(nil)))
}

// authBaseURL is where OAuth2 token lifecycle calls go; it is a fixed
// Lazada domain, distinct from the per-region API baseURL.
const authBaseURL = "https://auth.lazada.com/rest"

// request signs and sends endpoint with apiParams merged into the base
// parameter set, POSTing payload as a form field when non-empty and
// GETing otherwise. It returns the envelope's "data" field unparsed.
func (c *Client) request(ctx context.Context, endpoint string, apiParams map[string]string, payload string) (json.RawMessage, error) {
	return c.requestTo(ctx, c.baseURL, endpoint, apiParams, payload)
}

func (c *Client) requestTo(ctx context.Context, base, endpoint string, apiParams map[string]string, payload string) (json.RawMessage, error) {
	c.mu.RLock()
	accessToken := c.accessToken
	c.mu.RUnlock()

	params := map[string]string{
		"app_key":     c.appKey,
		"sign_method": "sha256",
		"timestamp":   strconv.FormatInt(time.Now().UnixMilli(), 10),
		"partner_id":  partnerID,
	}
	if accessToken != "" {
		params["access_token"] = accessToken
	}
	if payload != "" {
		params["payload"] = payload
	}
	for k, v := range apiParams {
		params[k] = v
	}
	params["sign"] = sign(c.appSecret, endpoint, params)

	values := url.Values{}
	for k, v := range params {
		values.Set(k, v)
	}

	target := base + endpoint
	var req *http.Request
	var err error
	if payload != "" {
		req, err = http.NewRequestWithContext(ctx, http.MethodPost, target, strings.NewReader(values.Encode()))
		if req != nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	} else {
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, target+"?"+values.Encode(), nil)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", marketplace.ErrCommunication, err)
	}

	resp, err := c.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var envelope lazadaEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", marketplace.ErrCommunication, err)
	}
	if envelope.Code != "" && envelope.Code != marketplace.ErrorCodeSuccess {
		return nil, fmt.Errorf("%w: %s: %s", marketplace.ErrCommunication, envelope.Code, envelope.Message)
	}
	return envelope.Data, nil
}

type productsGetResponse struct {
	TotalProducts int `json:"total_products"`
	Products      []struct {
		ItemID json.Number `json:"item_id"`
		Skus   []struct {
			SellerSku string      `json:"SellerSku"`
			Quantity  string      `json:"quantity"`
			Available string      `json:"Available"`
			SkuID     json.Number `json:"SkuId"`
		} `json:"skus"`
	} `json:"products"`
}

func parseProductsGet(raw json.RawMessage) ([]item, int, error) {
	var parsed productsGetResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, 0, fmt.Errorf("%w: parsing products: %v", marketplace.ErrCommunication, err)
	}

	var items []item
	for _, p := range parsed.Products {
		for _, sku := range p.Skus {
			quantity, err := strconv.Atoi(sku.Quantity)
			if err != nil {
				continue
			}
			available := quantity
			if sku.Available != "" {
				if a, err := strconv.Atoi(sku.Available); err == nil {
					available = a
				}
			}
			items = append(items, item{
				model:    sku.SellerSku,
				quantity: quantity,
				reserved: quantity - available,
				itemID:   p.ItemID.String(),
				skuID:    sku.SkuID.String(),
			})
		}
	}
	return items, parsed.TotalProducts, nil
}

// Refresh pages through /products/get, 50 at a time, until every product
// has been loaded.
func (c *Client) Refresh(ctx context.Context) error {
	const limit = 50
	offset := 0
	loaded := make(map[string]item)

	for {
		raw, err := c.request(ctx, "/products/get", map[string]string{
			"offset": strconv.Itoa(offset),
			"limit":  strconv.Itoa(limit),
		}, "")
		if err != nil {
			return err
		}

		items, total, err := parseProductsGet(raw)
		if err != nil {
			return err
		}
		for _, it := range items {
			loaded[it.model] = it
		}

		offset += limit
		if offset >= total {
			break
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
		Stocks: i.stocks(),
		OpaqueIDs: map[string]string{
			"item_id": i.itemID,
			"sku_id":  i.skuID,
		},
	}
}

// ListProducts returns the last Refresh's snapshot.
func (c *Client) ListProducts() []marketplace.Product {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]marketplace.Product, 0, len(c.products))
	for _, it := range c.products {
		out = append(out, toProduct(it))
	}
	return out
}

// GetProduct is a cached lookup against the snapshot populated by Refresh.
func (c *Client) GetProduct(ctx context.Context, model string) (marketplace.Product, error) {
	c.mu.RLock()
	it, ok := c.products[model]
	c.mu.RUnlock()
	if !ok {
		return marketplace.Product{}, fmt.Errorf("%w: %s", marketplace.ErrNotFound, model)
	}
	return toProduct(it), nil
}

// GetProductDirect re-queries Lazada by search term, bypassing the
// snapshot. Lazada's search endpoint can return more than one match; per
// the original client this only warns, it never raises — so a model that
// doesn't exactly match is filtered out rather than surfaced as ambiguous.
func (c *Client) GetProductDirect(ctx context.Context, model string) (marketplace.Product, error) {
	raw, err := c.request(ctx, "/products/get", map[string]string{"search": model}, "")
	if err != nil {
		return marketplace.Product{}, err
	}

	items, _, err := parseProductsGet(raw)
	if err != nil {
		return marketplace.Product{}, err
	}

	var matches []item
	for _, it := range items {
		if it.model == model {
			matches = append(matches, it)
		}
	}
	if len(matches) == 0 {
		return marketplace.Product{}, fmt.Errorf("%w: %s", marketplace.ErrNotFound, model)
	}
	return toProduct(matches[0]), nil
}

type updateSku struct {
	XMLName   xml.Name `xml:"Sku"`
	SellerSku string   `xml:"SellerSku"`
	Quantity  int      `xml:"Quantity"`
	ItemID    string   `xml:"ItemId"`
	SkuID     string   `xml:"SkuId"`
}

type updateRequest struct {
	XMLName xml.Name `xml:"Request"`
	Product struct {
		Skus struct {
			Sku updateSku `xml:"Sku"`
		} `xml:"Skus"`
	} `xml:"Product"`
}

func buildUpdatePayload(model string, quantity int, itemID, skuID string) (string, error) {
	var req updateRequest
	req.Product.Skus.Sku = updateSku{SellerSku: model, Quantity: quantity, ItemID: itemID, SkuID: skuID}

	body, err := xml.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshaling update payload: %w", err)
	}
	return `<?xml version="1.0" encoding="utf-8" ?>` + string(body), nil
}

// UpdateProductStocks pushes a new available-stock count for model, then
// re-reads the product directly from Lazada to confirm the write actually
// took effect. A mismatch is reported as marketplace.ErrPlatformNotBehaving
// so the engine latches NotBehaving and disregards Lazada's delta for
// this SKU until a later write succeeds.
func (c *Client) UpdateProductStocks(ctx context.Context, model string, stocks int) (marketplace.WriteResult, error) {
	c.mu.RLock()
	it, ok := c.products[model]
	c.mu.RUnlock()
	if !ok {
		return marketplace.WriteResult{}, fmt.Errorf("%w: %s", marketplace.ErrNotFound, model)
	}

	it.quantity = stocks + it.reserved

	payload, err := buildUpdatePayload(it.model, it.quantity, it.itemID, it.skuID)
	if err != nil {
		return marketplace.WriteResult{}, err
	}

	if _, err := c.request(ctx, "/product/price_quantity/update", nil, payload); err != nil {
		return marketplace.WriteResult{}, err
	}

	c.mu.Lock()
	c.products[model] = it
	c.mu.Unlock()

	confirmed, err := c.GetProductDirect(ctx, model)
	if err != nil {
		return marketplace.WriteResult{}, err
	}
	if confirmed.Stocks != stocks {
		return marketplace.WriteResult{}, fmt.Errorf("%w: %s reports %d, expected %d",
			marketplace.ErrPlatformNotBehaving, model, confirmed.Stocks, stocks)
	}

	return marketplace.WriteResult{ErrorCode: marketplace.ErrorCodeSuccess}, nil
}

type createRequest struct {
	XMLName xml.Name `xml:"Request"`
	Product struct {
		PrimaryCategory string `xml:"PrimaryCategory"`
		Skus            struct {
			Sku updateSku `xml:"Sku"`
		} `xml:"Skus"`
	} `xml:"Product"`
}

// CreateProduct lists model as a brand-new single-sku product. Lazada
// requires a primary category on creation; the original uploader resolved
// one from the source catalog's category tree, which marketplace.Product
// carries no equivalent for, so this listing goes up uncategorized and
// needs manual placement afterward.
func (c *Client) CreateProduct(ctx context.Context, source marketplace.Product) error {
	var req createRequest
	req.Product.PrimaryCategory = "0"
	req.Product.Skus.Sku = updateSku{SellerSku: source.Model, Quantity: source.Stocks}

	body, err := xml.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshaling create payload: %w", err)
	}
	payload := `<?xml version="1.0" encoding="utf-8" ?>` + string(body)

	raw, err := c.request(ctx, "/product/create", nil, payload)
	if err != nil {
		return err
	}

	var created struct {
		ItemID json.Number `json:"item_id"`
	}
	if err := json.Unmarshal(raw, &created); err != nil {
		return fmt.Errorf("%w: parsing created product: %v", marketplace.ErrCommunication, err)
	}

	c.mu.Lock()
	c.products[source.Model] = item{model: source.Model, quantity: source.Stocks, itemID: created.ItemID.String()}
	c.mu.Unlock()
	return nil
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// ExchangeAuthCode trades a one-time authorization code (obtained via the
// reauth CLI flow) for an initial access/refresh token pair.
func (c *Client) ExchangeAuthCode(ctx context.Context, code string) (*inventory.OAuth2Token, error) {
	raw, err := c.requestTo(ctx, authBaseURL, "/auth/token/create", map[string]string{"code": code}, "")
	if err != nil {
		return nil, err
	}
	return c.parseTokenResponse(raw)
}

// RefreshToken exchanges the current refresh token for a new access token,
// updating the client's own bearer token so subsequent calls use it
// immediately. Grounded on UpdateLazadaOauth2Tokens.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*inventory.OAuth2Token, error) {
	raw, err := c.requestTo(ctx, authBaseURL, "/auth/token/refresh", map[string]string{"refresh_token": refreshToken}, "")
	if err != nil {
		return nil, err
	}
	tok, err := c.parseTokenResponse(raw)
	if err != nil {
		return nil, err
	}
	c.SetAccessToken(tok.AccessToken)
	return tok, nil
}

func (c *Client) parseTokenResponse(raw json.RawMessage) (*inventory.OAuth2Token, error) {
	var parsed tokenResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("%w: parsing token response: %v", marketplace.ErrCommunication, err)
	}
	now := time.Now().UTC()
	return &inventory.OAuth2Token{
		System:       marketplace.SystemLazada,
		AccessToken:  parsed.AccessToken,
		RefreshToken: parsed.RefreshToken,
		CreatedOn:    now,
		ExpiresOn:    now.Add(time.Duration(parsed.ExpiresIn) * time.Second),
	}, nil
}
