package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultTushareAPIURL = "https://api.tushare.pro"
	defaultBinanceAPIURL = "https://api.binance.com"
)

type Config struct {
	TushareToken       string
	TushareAPIURL      string
	BinanceAPIURL      string
	UpstreamTimeoutSec int

	RedisURL     string
	CacheTTLSecs int

	MCPTransport          string
	MCPHTTPEnabled        bool
	MCPHTTPBind           string
	MCPHTTPPort           int
	MCPAuthToken          string
	MCPRequestTimeoutSecs int
	MCPRateLimitPerMin    int

	OTLPEndpoint string
}

func Load() *Config {
	cfg := &Config{
		TushareToken:  strings.TrimSpace(os.Getenv("TUSHARE_TOKEN")),
		TushareAPIURL: strings.TrimSpace(os.Getenv("TUSHARE_API_URL")),
		BinanceAPIURL: strings.TrimSpace(os.Getenv("BINANCE_API_URL")),
		RedisURL:      strings.TrimSpace(os.Getenv("REDIS_URL")),
		MCPAuthToken:  strings.TrimSpace(os.Getenv("MCP_AUTH_TOKEN")),
		OTLPEndpoint:  strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")),
	}

	if cfg.TushareToken == "" {
		log.Println("Warning: TUSHARE_TOKEN not set, tushare calls need a per-request token")
	}
	if cfg.TushareAPIURL == "" {
		cfg.TushareAPIURL = defaultTushareAPIURL
	}
	if cfg.BinanceAPIURL == "" {
		cfg.BinanceAPIURL = defaultBinanceAPIURL
	}
	if cfg.RedisURL == "" {
		log.Println("Warning: REDIS_URL not set, bar cache disabled")
	}

	cfg.UpstreamTimeoutSec = positiveInt("UPSTREAM_TIMEOUT_SECS", 30)
	cfg.CacheTTLSecs = positiveInt("CACHE_TTL_SECS", 300)

	cfg.MCPTransport = strings.ToLower(strings.TrimSpace(os.Getenv("MCP_TRANSPORT")))
	if cfg.MCPTransport == "" {
		cfg.MCPTransport = "stdio"
	}
	if cfg.MCPTransport != "stdio" && cfg.MCPTransport != "http" {
		log.Printf("Warning: unsupported MCP_TRANSPORT=%q, defaulting to stdio", cfg.MCPTransport)
		cfg.MCPTransport = "stdio"
	}

	cfg.MCPHTTPEnabled = strings.EqualFold(strings.TrimSpace(os.Getenv("MCP_HTTP_ENABLED")), "true")

	cfg.MCPHTTPBind = strings.TrimSpace(os.Getenv("MCP_HTTP_BIND"))
	if cfg.MCPHTTPBind == "" {
		cfg.MCPHTTPBind = "127.0.0.1"
	}

	cfg.MCPHTTPPort = positiveInt("MCP_HTTP_PORT", 8090)
	cfg.MCPRequestTimeoutSecs = positiveInt("MCP_REQUEST_TIMEOUT_SECS", 30)
	cfg.MCPRateLimitPerMin = positiveInt("MCP_RATE_LIMIT_PER_MIN", 60)

	return cfg
}

// HTTPEnabled reports whether the streamable HTTP transport should be served.
func (c *Config) HTTPEnabled() bool {
	return c.MCPTransport == "http" || c.MCPHTTPEnabled
}

func (c *Config) UpstreamTimeout() time.Duration {
	return time.Duration(c.UpstreamTimeoutSec) * time.Second
}

func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSecs) * time.Second
}

func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.MCPRequestTimeoutSecs) * time.Second
}

func positiveInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		log.Printf("Warning: invalid %s=%q, using %d", key, v, def)
		return def
	}
	return n
}
