package woocommerce_test

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

	"github.com/kvell/invsync/internal/adapters/marketplaces/woocommerce"
	"github.com/kvell/invsync/internal/infrastructure/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *woocommerce.Client {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := config.WooCommerceConfig{
		BaseURL:        server.URL,
		ConsumerKey:    "ck_test",
		ConsumerSecret: "cs_test",
		Timeout:        5 * time.Second,
		RateLimit:      config.RateLimitConfig{Requests: 1000, Burst: 1000},
	}
	return woocommerce.New(cfg)
}

func TestRefresh_PaginatesUntilTotalPagesExhausted(t *testing.T) {
	var sawConsumerKey bool
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		sawConsumerKey = r.URL.Query().Get("consumer_key") == "ck_test"
		w.Header().Set("X-WP-TotalPages", "2")

		page := r.URL.Query().Get("page")
		switch page {
		case "1":
			fmt.Fprint(w, `[{"id":1,"sku":"SKU1","stock_quantity":10}]`)
		case "2":
			fmt.Fprint(w, `[{"id":2,"sku":"SKU2","stock_quantity":20}]`)
		}
	})

	require.NoError(t, client.Refresh(context.Background()))
	assert.True(t, sawConsumerKey)

	p1, err := client.GetProduct(context.Background(), "SKU1")
	require.NoError(t, err)
	assert.Equal(t, 10, p1.Stocks)

	p2, err := client.GetProduct(context.Background(), "SKU2")
	require.NoError(t, err)
	assert.Equal(t, 20, p2.Stocks)
}

func TestRefresh_SkipsListingsWithoutSKUOrStockQuantity(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-WP-TotalPages", "1")
		fmt.Fprint(w, `[{"id":1,"sku":"","stock_quantity":10},{"id":2,"sku":"SKU2","stock_quantity":null}]`)
	})

	require.NoError(t, client.Refresh(context.Background()))
	assert.Empty(t, client.ListProducts())
}

func TestUpdateProductStocks_PutsToProductIDResource(t *testing.T) {
	var hitPath string
	var captured map[string]interface{}

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			w.Header().Set("X-WP-TotalPages", "1")
			fmt.Fprint(w, `[{"id":42,"sku":"SKU1","stock_quantity":10}]`)
		case http.MethodPut:
			hitPath = r.URL.Path
			_ = json.NewDecoder(r.Body).Decode(&captured)
			fmt.Fprint(w, `{"id":42,"sku":"SKU1","stock_quantity":3}`)
		}
	})

	require.NoError(t, client.Refresh(context.Background()))
	_, err := client.UpdateProductStocks(context.Background(), "SKU1", 3)
	require.NoError(t, err)

	assert.Equal(t, "/wp-json/wc/v3/products/42", hitPath)
	assert.EqualValues(t, 3, captured["stock_quantity"])
}
