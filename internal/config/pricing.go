package config

import "time"

type PricingConfig struct {
	BaseURL  string
	Timeout  time.Duration
	CacheTTL time.Duration
}

func loadPricing() PricingConfig {
	return PricingConfig{
		BaseURL:  getenv("COINGECKO_BASE_URL", "https://api.coingecko.com/api/v3"),
		Timeout:  durationEnvSeconds("PRICE_HTTP_TIMEOUT", 10*time.Second),
		CacheTTL: durationEnvSeconds("PRICE_CACHE_TTL", 60*time.Second),
	}
}
