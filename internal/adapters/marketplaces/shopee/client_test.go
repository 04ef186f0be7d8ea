package shopee_test

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

	"github.com/kvell/invsync/internal/adapters/marketplaces/shopee"
	"github.com/kvell/invsync/internal/domain/marketplace"
	"github.com/kvell/invsync/internal/infrastructure/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *shopee.Client {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := config.ShopeeConfig{
		PartnerID:  "p1",
		PartnerKey: "partner-key",
		ShopID:     "shop1",
		BaseURL:    server.URL,
		Timeout:    5 * time.Second,
		RateLimit:  config.RateLimitConfig{Requests: 1000, Burst: 1000},
	}
	return shopee.New(cfg)
}

func decodeBody(r *http.Request) map[string]interface{} {
	var body map[string]interface{}
	_ = json.NewDecoder(r.Body).Decode(&body)
	return body
}

func TestRefresh_FlattensVariationsIntoSeparateProducts(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/items/get":
			fmt.Fprint(w, `{"items":[{"item_id":100}],"more":false}`)
		case "/api/v1/item/get":
			fmt.Fprint(w, `{"item":{"item_id":100,"item_sku":"PARENT","stock":0,
				"variations":[
					{"variation_id":1,"variation_sku":"PARENT-RED","stock":4},
					{"variation_id":2,"variation_sku":"PARENT-BLUE","stock":6}
				]}}`)
		}
	})

	require.NoError(t, client.Refresh(context.Background()))

	products := client.ListProducts()
	byModel := map[string]int{}
	for _, p := range products {
		byModel[p.Model] = p.Stocks
	}
	assert.Equal(t, map[string]int{"PARENT-RED": 4, "PARENT-BLUE": 6}, byModel)

	p, err := client.GetProduct(context.Background(), "PARENT-RED")
	require.NoError(t, err)
	assert.Equal(t, "100", p.OpaqueIDs["parent_item_id"])
	assert.Equal(t, "1", p.OpaqueIDs["item_id"])
}

func TestRefresh_SingleVariantItemHasNoParent(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/items/get":
			fmt.Fprint(w, `{"items":[{"item_id":200}],"more":false}`)
		case "/api/v1/item/get":
			fmt.Fprint(w, `{"item":{"item_id":200,"item_sku":"PLAIN","stock":9,"variations":[]}}`)
		}
	})

	require.NoError(t, client.Refresh(context.Background()))

	p, err := client.GetProduct(context.Background(), "PLAIN")
	require.NoError(t, err)
	assert.Equal(t, 9, p.Stocks)
	assert.Empty(t, p.OpaqueIDs["parent_item_id"])
}

func TestUpdateProductStocks_VariationUsesVariationEndpoint(t *testing.T) {
	var hitEndpoint string
	var capturedBody map[string]interface{}

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/items/get":
			fmt.Fprint(w, `{"items":[{"item_id":100}],"more":false}`)
		case "/api/v1/item/get":
			fmt.Fprint(w, `{"item":{"item_id":100,"item_sku":"PARENT","stock":0,
				"variations":[{"variation_id":1,"variation_sku":"PARENT-RED","stock":4}]}}`)
		case "/api/v1/items/update_variation_stock":
			hitEndpoint = r.URL.Path
			capturedBody = decodeBody(r)
			fmt.Fprint(w, `{}`)
		}
	})

	require.NoError(t, client.Refresh(context.Background()))
	_, err := client.UpdateProductStocks(context.Background(), "PARENT-RED", 2)
	require.NoError(t, err)

	assert.Equal(t, "/api/v1/items/update_variation_stock", hitEndpoint)
	assert.EqualValues(t, 100, capturedBody["item_id"])
	assert.EqualValues(t, 1, capturedBody["variation_id"])
	assert.EqualValues(t, 2, capturedBody["stock"])
}

func TestCreateProduct_CachesNewListing(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v1/item/add" {
			fmt.Fprint(w, `{"item_id":999}`)
			return
		}
	})

	require.NoError(t, client.CreateProduct(context.Background(), marketplace.Product{Model: "NEW-SKU", Stocks: 5}))

	p, err := client.GetProduct(context.Background(), "NEW-SKU")
	require.NoError(t, err)
	assert.Equal(t, 5, p.Stocks)
	assert.Equal(t, "999", p.OpaqueIDs["item_id"])
}
