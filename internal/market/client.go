package market

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"

	"sticker-floor-tracker/config"
	"sticker-floor-tracker/internal/metrics"
	"sticker-floor-tracker/internal/model"
)

// Endpoint labels used in logs and metrics.
const (
	EndpointCollections = "collections"
	EndpointPacks       = "packs"
	EndpointOffers      = "offers"
)

// ErrNoAttempts is returned by FloorPrice when all attempts failed.
var ErrNoAttempts = errors.New("all attempts failed")

// Client talks to the marketplace's read-only market endpoints.
type Client struct {
	cfg     config.APIConfig
	headers http.Header
	logger  *log.Logger

	client       *http.Client
	offersClient *http.Client
	packs        *cache.Cache

	// sleep pauses between attempts; replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewClient creates a marketplace client sending userData as the
// x-user-data credential header.
func NewClient(cfg config.APIConfig, userData string, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.Default()
	}

	var proxy func(*http.Request) (*url.URL, error)
	if cfg.HTTPProxy != "" {
		proxyURL, err := url.Parse(cfg.HTTPProxy)
		if err != nil {
			logger.Printf("Warning: Invalid proxy URL %q: %v. Client will not use a proxy.", cfg.HTTPProxy, err)
		} else {
			proxy = http.ProxyURL(proxyURL)
		}
	}

	headers := http.Header{}
	headers.Set("x-user-data", userData)
	headers.Set("Accept", "application/json")
	headers.Set("User-Agent", cfg.UserAgent)

	ttl := cfg.PackCacheTTL
	if ttl <= 0 {
		ttl = cache.NoExpiration
	}

	return &Client{
		cfg:     cfg,
		headers: headers,
		logger:  logger,
		client: &http.Client{
			Transport: &http.Transport{Proxy: proxy},
		},
		// Offers go over a fresh connection each time.
		offersClient: &http.Client{
			Transport: &http.Transport{Proxy: proxy, DisableKeepAlives: true},
		},
		packs: cache.New(ttl, 2*ttl),
		sleep: sleepContext,
	}
}

// ListCollections returns the on-sale collections. It makes a single attempt;
// any failure is logged and yields an empty slice.
func (c *Client) ListCollections(ctx context.Context) []model.Collection {
	u := c.cfg.BaseURL + "/api/v1/markets/collections?onSale=true"

	var collections []model.Collection
	if err := c.getJSON(ctx, c.client, EndpointCollections, u, c.cfg.CollectionsTimeout, &collections); err != nil {
		c.logger.Printf("Error fetching collections: %v", err)
		metrics.APIRequestsTotal.WithLabelValues(EndpointCollections, metrics.OutcomeFail).Inc()
		return nil
	}
	metrics.APIRequestsTotal.WithLabelValues(EndpointCollections, metrics.OutcomeOK).Inc()
	return collections
}

// ListPacks returns the packs of a collection. Each failed attempt is logged
// and followed by the configured pause; after the last attempt it gives up
// and returns an empty slice. Successful lists are cached until
// ResetPackCache or PackCacheTTL.
func (c *Client) ListPacks(ctx context.Context, collectionID model.ID) []model.Pack {
	key := collectionID.String()
	if cached, found := c.packs.Get(key); found {
		metrics.APIRequestsTotal.WithLabelValues(EndpointPacks, metrics.OutcomeCache).Inc()
		return cached.([]model.Pack)
	}

	q := url.Values{}
	q.Set("collection_id", key)
	u := c.cfg.BaseURL + "/api/v1/markets/packs?" + q.Encode()

	for attempt := 1; attempt <= c.cfg.PacksAttempts; attempt++ {
		var packs []model.Pack
		err := c.getJSON(ctx, c.client, EndpointPacks, u, c.cfg.PacksTimeout, &packs)
		if err == nil {
			metrics.APIRequestsTotal.WithLabelValues(EndpointPacks, metrics.OutcomeOK).Inc()
			c.packs.SetDefault(key, packs)
			return packs
		}

		c.logger.Printf("Warning: attempt %d/%d: error fetching packs for collection %s: %v", attempt, c.cfg.PacksAttempts, key, err)
		metrics.APIRequestsTotal.WithLabelValues(EndpointPacks, metrics.OutcomeRetry).Inc()
		if err := c.sleep(ctx, c.cfg.PacksRetryDelay); err != nil {
			break
		}
	}

	metrics.APIRequestsTotal.WithLabelValues(EndpointPacks, metrics.OutcomeFail).Inc()
	return nil
}

// ResetPackCache drops all cached pack lists so the next ListPacks call for
// each collection goes to the API.
func (c *Client) ResetPackCache() {
	c.packs.Flush()
}

// FloorPrice returns the price of the first offer for a pack, rounded to two
// decimals. Offers are requested sorted by ascending price and the first one
// is trusted to be the lowest.
//
// ok is false when there is no floor: err is nil if the pack has no offers
// and wraps ErrNoAttempts if every attempt failed.
func (c *Client) FloorPrice(ctx context.Context, collectionID, packID model.ID) (decimal.Decimal, bool, error) {
	q := url.Values{}
	q.Set("collection_id", collectionID.String())
	q.Set("pack_id", packID.String())
	q.Set("limit", strconv.Itoa(c.cfg.OffersLimit))
	q.Set("offset", "0")
	q.Set("sort", "price_asc")
	u := c.cfg.BaseURL + "/api/v1/markets/offers?" + q.Encode()

	var lastErr error
	for attempt := 1; attempt <= c.cfg.OffersAttempts; attempt++ {
		price, ok, err := c.fetchFloor(ctx, u)
		if err == nil {
			metrics.APIRequestsTotal.WithLabelValues(EndpointOffers, metrics.OutcomeOK).Inc()
			return price, ok, nil
		}
		lastErr = err

		c.logger.Printf("Warning: attempt %d/%d: error fetching floor for pack_id=%s: %v", attempt, c.cfg.OffersAttempts, packID, err)
		metrics.APIRequestsTotal.WithLabelValues(EndpointOffers, metrics.OutcomeRetry).Inc()
		if err := c.sleep(ctx, c.cfg.OffersRetryDelay); err != nil {
			break
		}
	}

	metrics.APIRequestsTotal.WithLabelValues(EndpointOffers, metrics.OutcomeFail).Inc()
	return decimal.Zero, false, fmt.Errorf("%w: %v", ErrNoAttempts, lastErr)
}

func (c *Client) fetchFloor(ctx context.Context, u string) (decimal.Decimal, bool, error) {
	var page model.OffersPage
	if err := c.getJSON(ctx, c.offersClient, EndpointOffers, u, c.cfg.OffersTimeout, &page); err != nil {
		return decimal.Zero, false, err
	}
	if len(page.Offers) == 0 {
		return decimal.Zero, false, nil
	}

	first := page.Offers[0].Price
	if !first.Valid {
		return decimal.Zero, false, fmt.Errorf("first offer has no price")
	}
	return first.Decimal.Round(2), true, nil
}

// getJSON performs a GET with the shared headers and decodes a 2xx body into out.
func (c *Client) getJSON(ctx context.Context, client *http.Client, endpoint, u string, timeout time.Duration, out any) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	for key, values := range c.headers {
		req.Header[key] = values
	}

	start := time.Now()
	resp, err := client.Do(req)
	metrics.APIRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("received non-2xx status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to unmarshal %s response: %w", endpoint, err)
	}
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
