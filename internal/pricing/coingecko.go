package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Coin ids as known by the Coingecko simple-price API.
const (
	CoinLTAI = "libertai"
	CoinSOL  = "solana"
)

var ErrInvalidPrice = fmt.Errorf("pricing: invalid price from upstream")

// Client fetches USD spot prices from Coingecko with a short-lived in-process
// cache so each poll cycle costs at most one upstream call per coin.
type Client struct {
	baseURL  string
	http     *http.Client
	logger   *zap.Logger
	cacheTTL time.Duration

	mu    sync.Mutex
	cache map[string]cachedPrice
}

type cachedPrice struct {
	price     float64
	fetchedAt time.Time
}

func NewClient(baseURL string, timeout, cacheTTL time.Duration, logger *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = "https://api.coingecko.com/api/v3"
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:  baseURL,
		http:     &http.Client{Timeout: timeout},
		logger:   logger,
		cacheTTL: cacheTTL,
		cache:    make(map[string]cachedPrice),
	}
}

// USDPrice returns the current USD spot price of the given coin. Malformed or
// non-positive upstream values surface as ErrInvalidPrice.
func (c *Client) USDPrice(ctx context.Context, coinID string) (float64, error) {
	c.mu.Lock()
	if cached, ok := c.cache[coinID]; ok && time.Since(cached.fetchedAt) < c.cacheTTL {
		c.mu.Unlock()
		return cached.price, nil
	}
	c.mu.Unlock()

	endpoint := fmt.Sprintf("%s/simple/price?ids=%s&vs_currencies=usd", c.baseURL, url.QueryEscape(coinID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("pricing: fetch %s price: %w", coinID, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("pricing: unexpected status %d fetching %s price", resp.StatusCode, coinID)
	}

	var payload map[string]map[string]float64
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, fmt.Errorf("pricing: decode response: %w", err)
	}
	price, ok := payload[coinID]["usd"]
	if !ok {
		c.logger.Error("unexpected response format from coingecko", zap.String("coin", coinID))
		return 0, ErrInvalidPrice
	}
	if price <= 0 {
		c.logger.Error("non-positive price received", zap.String("coin", coinID), zap.Float64("price", price))
		return 0, ErrInvalidPrice
	}

	c.mu.Lock()
	c.cache[coinID] = cachedPrice{price: price, fetchedAt: time.Now()}
	c.mu.Unlock()
	return price, nil
}
