package common

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/kvell/invsync/internal/domain/marketplace"
	"github.com/kvell/invsync/internal/infrastructure/clock"
)

// Client is the shared transport every concrete marketplace adapter
// embeds: rate limiting, a circuit breaker, and a request-id header for
// log correlation, wrapped around the standard http.Client.
type Client struct {
	HTTP           *http.Client
	RateLimiter    *rate.Limiter
	CircuitBreaker *CircuitBreaker
}

// NewClient builds a Client rate-limited to requestsPerSecond (with the
// given burst), breaking the circuit after 5 consecutive failures for 60s.
func NewClient(timeout time.Duration, requestsPerSecond float64, burst int) *Client {
	return &Client{
		HTTP:           &http.Client{Timeout: timeout},
		RateLimiter:    rate.NewLimiter(rate.Limit(requestsPerSecond), burst),
		CircuitBreaker: NewCircuitBreaker(5, 60*time.Second, clock.NewRealClock()),
	}
}

// Do waits for the rate limiter, stamps req with an X-Request-Id header,
// and executes it through the circuit breaker. A tripped breaker or any
// transport failure is reported as marketplace.ErrCommunication.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if err := c.RateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: rate limiter: %v", marketplace.ErrCommunication, err)
	}
	req.Header.Set("X-Request-Id", uuid.NewString())

	var resp *http.Response
	err := c.CircuitBreaker.Call(func() error {
		var doErr error
		resp, doErr = c.HTTP.Do(req)
		return doErr
	})
	if err == ErrCircuitOpen {
		return nil, fmt.Errorf("%w: %v", marketplace.ErrCommunication, err)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", marketplace.ErrCommunication, err)
	}
	return resp, nil
}
