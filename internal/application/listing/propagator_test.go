package listing_test

import (
	"context"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kvell/invsync/internal/application/listing"
	"github.com/kvell/invsync/internal/domain/marketplace"
	"github.com/kvell/invsync/test/helpers"
)

type testWriter struct{}

func (testWriter) Write(p []byte) (int, error) { return len(p), nil }

func newPropagator() *listing.Propagator {
	return listing.NewPropagator(log.New(testWriter{}, "", 0))
}

func TestPropagate_CreatesMissingSKUOnSink(t *testing.T) {
	source := helpers.NewMockAdapter("OPENCART",
		marketplace.Product{Model: "SKU1", Stocks: 10},
		marketplace.Product{Model: "SKU2", Stocks: 5},
	)
	sink := helpers.NewMockAdapter("SHOPEE", marketplace.Product{Model: "SKU1", Stocks: 10})

	newPropagator().Propagate(context.Background(), source, []marketplace.Adapter{sink})

	require.Len(t, sink.Created, 1)
	assert.Equal(t, "SKU2", sink.Created[0].Model)
	assert.Equal(t, 5, sink.Created[0].Stocks)
}

func TestPropagate_SkipsTargetsWithoutCreator(t *testing.T) {
	source := helpers.NewMockAdapter("OPENCART", marketplace.Product{Model: "SKU1", Stocks: 10})
	sinkWithoutCreator := helpers.WithoutCreator(helpers.NewMockAdapter("TIKTOK"))

	require.NotPanics(t, func() {
		newPropagator().Propagate(context.Background(), source, []marketplace.Adapter{sinkWithoutCreator})
	})
}

func TestPropagate_CreateFailureOnOneSKUDoesNotAbortOthers(t *testing.T) {
	source := helpers.NewMockAdapter("OPENCART",
		marketplace.Product{Model: "SKU1", Stocks: 10},
		marketplace.Product{Model: "SKU2", Stocks: 5},
	)
	sink := helpers.NewMockAdapter("SHOPEE")
	sink.CreateErr["SKU1"] = marketplace.ErrCommunication

	newPropagator().Propagate(context.Background(), source, []marketplace.Adapter{sink})

	require.Len(t, sink.Created, 1)
	assert.Equal(t, "SKU2", sink.Created[0].Model)
}

func TestPropagate_SkipsSourceSystemAsItsOwnTarget(t *testing.T) {
	source := helpers.NewMockAdapter("OPENCART", marketplace.Product{Model: "SKU1", Stocks: 10})

	newPropagator().Propagate(context.Background(), source, []marketplace.Adapter{source})

	assert.Empty(t, source.Created)
}
