package http

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"TicketBlitz_Recommendation/backend/go/internal/config"
	"TicketBlitz_Recommendation/backend/go/pkg/circuitbreaker"
)

// Client is a custom HTTP client that wraps the standard http.Client
// and provides built-in support for circuit breaking.
type Client struct {
	httpClient *http.Client
	breaker    circuitbreaker.CircuitBreaker
}

// NewClient creates a Client with the given request timeout.
// When the breaker is enabled, server errors and transport failures count towards tripping it.
func NewClient(cfg config.CircuitBreakerConfig, timeout time.Duration, opts ...circuitbreaker.Option) *Client {
	c := &Client{httpClient: &http.Client{Timeout: timeout}}
	if cfg.Enabled {
		c.breaker = circuitbreaker.New(cfg.FailureThreshold, cfg.SuccessThreshold, cfg.Timeout, opts...)
	}
	return c
}

// Do executes an HTTP request with circuit breaker protection.
// It considers status codes >= 500 as failures; the response body is closed in that case.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if c.breaker == nil {
		return c.httpClient.Do(req)
	}

	res, err := c.breaker.Execute(func() (interface{}, error) {
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			return nil, fmt.Errorf("server error: received status code %d", resp.StatusCode)
		}
		return resp, nil
	})
	if err != nil {
		return nil, err
	}
	return res.(*http.Response), nil
}

// BreakerState reports the breaker state, or Closed when no breaker is configured.
func (c *Client) BreakerState() circuitbreaker.State {
	if c.breaker == nil {
		return circuitbreaker.Closed
	}
	return c.breaker.State()
}
