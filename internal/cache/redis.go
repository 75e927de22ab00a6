package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"finance-mcp/internal/domain"

	"github.com/redis/go-redis/v9"
)

// Connect accepts either a redis:// URL or a bare host:port.
func Connect(ctx context.Context, rawURL string) (*redis.Client, error) {
	var opts *redis.Options
	if strings.Contains(rawURL, "://") {
		parsed, err := redis.ParseURL(rawURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		opts = parsed
	} else {
		opts = &redis.Options{Addr: rawURL}
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	log.Println("Connected to Redis")
	return client, nil
}

// BarCache stores fetched daily bars per market, code and date range.
type BarCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewBarCache(client *redis.Client, ttl time.Duration) *BarCache {
	return &BarCache{client: client, ttl: ttl}
}

func Key(market domain.Market, code string, r domain.DateRange) string {
	return fmt.Sprintf("bars:%s:%s:%s:%s", market, strings.ToUpper(code), r.Start, r.End)
}

// Get reports a miss with ok=false and a nil error.
func (c *BarCache) Get(ctx context.Context, market domain.Market, code string, r domain.DateRange) ([]domain.PriceBar, bool, error) {
	raw, err := c.client.Get(ctx, Key(market, code, r)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read cached bars: %w", err)
	}

	var bars []domain.PriceBar
	if err := json.Unmarshal(raw, &bars); err != nil {
		return nil, false, fmt.Errorf("decode cached bars: %w", err)
	}
	return bars, true, nil
}

func (c *BarCache) Set(ctx context.Context, market domain.Market, code string, r domain.DateRange, bars []domain.PriceBar) error {
	raw, err := json.Marshal(bars)
	if err != nil {
		return fmt.Errorf("encode bars: %w", err)
	}
	if err := c.client.Set(ctx, Key(market, code, r), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("write cached bars: %w", err)
	}
	return nil
}
