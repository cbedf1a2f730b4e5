package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"TicketBlitz_Recommendation/backend/go/internal/models"
	"TicketBlitz_Recommendation/backend/go/pkg/logger"

	"github.com/goccy/go-json"
)

// Doer sends HTTP requests. *pkg/http.Client and *http.Client both satisfy it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Resolver looks up the base URL of a named service.
type Resolver interface {
	Resolve(ctx context.Context, serviceName string) (string, error)
}

// EventServiceOption configures an EventServiceClient.
type EventServiceOption func(*EventServiceClient)

// WithResolver resolves the base URL through service discovery on every call.
// The static base URL is used when resolution fails.
func WithResolver(r Resolver, serviceName string) EventServiceOption {
	return func(c *EventServiceClient) {
		c.resolver = r
		c.serviceName = serviceName
	}
}

// EventServiceClient calls GET /events/latest on the external event service.
type EventServiceClient struct {
	http        Doer
	baseURL     string
	timeout     time.Duration
	resolver    Resolver
	serviceName string
	log         *logger.Logger
}

// NewEventServiceClient creates an EventServiceClient.
func NewEventServiceClient(doer Doer, baseURL string, timeout time.Duration, log *logger.Logger, opts ...EventServiceOption) *EventServiceClient {
	c := &EventServiceClient{
		http:    doer,
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		log:     log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *EventServiceClient) base(ctx context.Context) string {
	if c.resolver == nil {
		return c.baseURL
	}
	resolved, err := c.resolver.Resolve(ctx, c.serviceName)
	if err != nil {
		c.log.WithField("service", c.serviceName).WithField("fallback", c.baseURL).
			Warn(fmt.Sprintf("service discovery failed: %v", err))
		return c.baseURL
	}
	return resolved
}

// LatestEvents implements LatestEventsSource.
func (c *EventServiceClient) LatestEvents(ctx context.Context, limit int) ([]models.EventSummary, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	u := c.base(ctx) + "/events/latest?" + url.Values{"limit": {strconv.Itoa(limit)}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build event service request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: event service: %v", ErrDownstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w: event service returned status %d", ErrDownstreamUnavailable, resp.StatusCode)
	}

	var events []models.EventSummary
	if err := json.NewDecoder(resp.Body).Decode(&events); err != nil {
		return nil, fmt.Errorf("decode event service response: %w", err)
	}
	return events, nil
}
