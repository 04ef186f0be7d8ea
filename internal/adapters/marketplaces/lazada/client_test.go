package lazada_test

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kvell/invsync/internal/adapters/marketplaces/lazada"
	"github.com/kvell/invsync/internal/domain/marketplace"
	"github.com/kvell/invsync/internal/infrastructure/config"
)

type fakeSku struct {
	SellerSku string `json:"SellerSku"`
	Quantity  string `json:"quantity"`
	Available string `json:"Available"`
	SkuID     string `json:"SkuId"`
}

func productsGetBody(itemID string, skus ...fakeSku) string {
	skuJSON := ""
	for i, s := range skus {
		if i > 0 {
			skuJSON += ","
		}
		skuJSON += fmt.Sprintf(`{"SellerSku":%q,"quantity":%q,"Available":%q,"SkuId":%q}`,
			s.SellerSku, s.Quantity, s.Available, s.SkuID)
	}
	return fmt.Sprintf(`{"code":"0","data":{"total_products":1,"products":[{"item_id":%q,"skus":[%s]}]}}`, itemID, skuJSON)
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *lazada.Client {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := config.LazadaConfig{
		AppKey:    "key",
		AppSecret: "secret",
		BaseURL:   server.URL,
		Timeout:   5 * time.Second,
		RateLimit: config.RateLimitConfig{Requests: 1000, Burst: 1000},
	}
	return lazada.New(cfg, "test-access-token")
}

func TestRefresh_ParsesReservedFromAvailable(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, productsGetBody("111", fakeSku{SellerSku: "SKU1", Quantity: "10", Available: "7", SkuID: "222"}))
	})

	require.NoError(t, client.Refresh(context.Background()))

	p, err := client.GetProduct(context.Background(), "SKU1")
	require.NoError(t, err)
	assert.Equal(t, 7, p.Stocks)
	assert.Equal(t, "111", p.OpaqueIDs["item_id"])
	assert.Equal(t, "222", p.OpaqueIDs["sku_id"])
}

// TestUpdateProductStocks_RoundTripsItemAndSkuID is the Open Question (a)
// regression: the update payload Lazada receives must carry the ItemId and
// SkuId the snapshot learned from Refresh, not empty strings.
func TestUpdateProductStocks_RoundTripsItemAndSkuID(t *testing.T) {
	var capturedPayload string
	var calls int32

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet:
			fmt.Fprint(w, productsGetBody("111", fakeSku{SellerSku: "SKU1", Quantity: "10", Available: "7", SkuID: "222"}))
		case r.Method == http.MethodPost:
			atomic.AddInt32(&calls, 1)
			require.NoError(t, r.ParseForm())
			capturedPayload = r.PostForm.Get("payload")
			fmt.Fprint(w, `{"code":"0","data":""}`)
		}
	})

	require.NoError(t, client.Refresh(context.Background()))

	// Update succeeds, and the confirmation GET reports the new stock
	// immediately — since this handler is stateless it always answers with
	// quantity 10 / available 7, so set stocks to 7 so the confirm matches.
	_, err := client.UpdateProductStocks(context.Background(), "SKU1", 7)
	require.NoError(t, err)

	require.Equal(t, int32(1), atomic.LoadInt32(&calls))
	require.NotEmpty(t, capturedPayload)

	var parsed struct {
		XMLName xml.Name `xml:"Request"`
		Product struct {
			Skus struct {
				Sku struct {
					SellerSku string `xml:"SellerSku"`
					Quantity  int    `xml:"Quantity"`
					ItemID    string `xml:"ItemId"`
					SkuID     string `xml:"SkuId"`
				} `xml:"Sku"`
			} `xml:"Skus"`
		} `xml:"Product"`
	}
	require.NoError(t, xml.Unmarshal([]byte(capturedPayload), &parsed))
	assert.Equal(t, "SKU1", parsed.Product.Skus.Sku.SellerSku)
	assert.NotEmpty(t, parsed.Product.Skus.Sku.ItemID, "ItemId must round-trip")
	assert.NotEmpty(t, parsed.Product.Skus.Sku.SkuID, "SkuId must round-trip")
}

func TestUpdateProductStocks_MismatchAfterWriteIsNotBehaving(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet:
			// Always reports the stale value, as if the write never applied.
			fmt.Fprint(w, productsGetBody("111", fakeSku{SellerSku: "SKU1", Quantity: "10", Available: "7", SkuID: "222"}))
		case r.Method == http.MethodPost:
			fmt.Fprint(w, `{"code":"0","data":""}`)
		}
	})

	require.NoError(t, client.Refresh(context.Background()))

	_, err := client.UpdateProductStocks(context.Background(), "SKU1", 3)
	require.ErrorIs(t, err, marketplace.ErrPlatformNotBehaving)
}

func TestGetProductDirect_FiltersToExactModel(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, productsGetBody("111",
			fakeSku{SellerSku: "SKU1", Quantity: "10", Available: "7", SkuID: "222"},
			fakeSku{SellerSku: "SKU1-VARIANT", Quantity: "5", Available: "5", SkuID: "333"},
		))
	})

	p, err := client.GetProductDirect(context.Background(), "SKU1")
	require.NoError(t, err)
	assert.Equal(t, "SKU1", p.Model)
}

func TestRefresh_PropagatesCommunicationError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"code":"IllegalAccessToken","message":"invalid access token"}`)
	})

	err := client.Refresh(context.Background())
	require.ErrorIs(t, err, marketplace.ErrCommunication)
}

func TestCreateProduct_CachesReturnedItemID(t *testing.T) {
	var capturedPayload string

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		capturedPayload = r.PostForm.Get("payload")
		fmt.Fprint(w, `{"code":"0","data":{"item_id":"999"}}`)
	})

	err := client.CreateProduct(context.Background(), marketplace.Product{Model: "NEW-SKU", Stocks: 5})
	require.NoError(t, err)
	require.NotEmpty(t, capturedPayload)

	p, err := client.GetProduct(context.Background(), "NEW-SKU")
	require.NoError(t, err)
	assert.Equal(t, 5, p.Stocks)
	assert.Equal(t, "999", p.OpaqueIDs["item_id"])
}
