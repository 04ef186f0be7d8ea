package tiktok_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kvell/invsync/internal/adapters/marketplaces/tiktok"
	"github.com/kvell/invsync/internal/domain/marketplace"
	"github.com/kvell/invsync/internal/infrastructure/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *tiktok.Client {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := config.TikTokConfig{
		AppKey:    "key",
		AppSecret: "secret",
		ShopID:    "shop1",
		BaseURL:   server.URL,
		Timeout:   5 * time.Second,
		RateLimit: config.RateLimitConfig{Requests: 1000, Burst: 1000},
	}
	return tiktok.New(cfg, "test-access-token")
}

func TestRefresh_ResolvesWarehouseThenSumsStockAcrossWarehouses(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/logistics/get_warehouse_list":
			fmt.Fprint(w, `{"code":0,"data":{"warehouse_list":[
				{"warehouse_id":"w-other","warehouse_type":2},
				{"warehouse_id":"w-main","warehouse_type":1}
			]}}`)
		case "/api/products/search":
			fmt.Fprint(w, `{"code":0,"data":{"total":1,"products":[
				{"id":555,"skus":[{"id":777,"seller_sku":"SKU1","stock_infos":[
					{"available_stock":3},{"available_stock":4}
				]}]}
			]}}`)
		}
	})

	require.NoError(t, client.Refresh(context.Background()))

	p, err := client.GetProduct(context.Background(), "SKU1")
	require.NoError(t, err)
	assert.Equal(t, 7, p.Stocks)
	assert.Equal(t, "555", p.OpaqueIDs["product_id"])
	assert.Equal(t, "777", p.OpaqueIDs["sku_id"])
}

func TestUpdateProductStocks_PutsToWarehouseScopedEndpoint(t *testing.T) {
	var captured map[string]interface{}

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/api/logistics/get_warehouse_list":
			fmt.Fprint(w, `{"code":0,"data":{"warehouse_list":[{"warehouse_id":"w-main","warehouse_type":1}]}}`)
		case r.URL.Path == "/api/products/search":
			fmt.Fprint(w, `{"code":0,"data":{"total":1,"products":[
				{"id":555,"skus":[{"id":777,"seller_sku":"SKU1","stock_infos":[{"available_stock":3}]}]}
			]}}`)
		case r.Method == http.MethodPut:
			_ = json.NewDecoder(r.Body).Decode(&captured)
			fmt.Fprint(w, `{"code":0,"data":{}}`)
		}
	})

	require.NoError(t, client.Refresh(context.Background()))
	_, err := client.UpdateProductStocks(context.Background(), "SKU1", 9)
	require.NoError(t, err)

	require.NotNil(t, captured)
	assert.EqualValues(t, "555", captured["product_id"])
}

func TestGetProductDirect_IsUnimplemented(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})

	_, err := client.GetProductDirect(context.Background(), "SKU1")
	require.ErrorIs(t, err, marketplace.ErrCommunication)
}

func TestRefresh_PropagatesNonZeroErrorCode(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"code":10001,"message":"access token expired"}`)
	})

	err := client.Refresh(context.Background())
	require.ErrorIs(t, err, marketplace.ErrCommunication)
}

func TestCreateProduct_ResolvesWarehouseAndCachesIDs(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/api/logistics/get_warehouse_list":
			fmt.Fprint(w, `{"code":0,"data":{"warehouse_list":[{"warehouse_id":"w-main","warehouse_type":1}]}}`)
		case r.URL.Path == "/api/products":
			fmt.Fprint(w, `{"code":0,"data":{"product_id":"900","skus":[{"id":"901"}]}}`)
		}
	})

	err := client.CreateProduct(context.Background(), marketplace.Product{Model: "NEW-SKU", Stocks: 12})
	require.NoError(t, err)

	p, err := client.GetProduct(context.Background(), "NEW-SKU")
	require.NoError(t, err)
	assert.Equal(t, 12, p.Stocks)
	assert.Equal(t, "900", p.OpaqueIDs["product_id"])
	assert.Equal(t, "901", p.OpaqueIDs["sku_id"])
}
