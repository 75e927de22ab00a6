package service

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"finance-mcp/internal/domain"
	"finance-mcp/internal/indicator"
	"finance-mcp/internal/metrics"
	"finance-mcp/internal/provider"
	"finance-mcp/internal/render"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type BarFetcher interface {
	DailyBars(ctx context.Context, token string, market domain.Market, code string, r domain.DateRange) ([]domain.PriceBar, error)
}

type BarCache interface {
	Get(ctx context.Context, market domain.Market, code string, r domain.DateRange) ([]domain.PriceBar, bool, error)
	Set(ctx context.Context, market domain.Market, code string, r domain.DateRange, bars []domain.PriceBar) error
}

// Observer receives cache and compute measurements. *metrics.Metrics satisfies it.
type Observer interface {
	ObserveCacheLookup(result string)
	ObserveIndicatorCompute(elapsed time.Duration)
}

type StockDataRequest struct {
	Code       string
	MarketType string
	StartDate  string
	EndDate    string
	Indicators string
}

type StockDataService struct {
	tracer   trace.Tracer
	fetcher  BarFetcher
	cache    BarCache
	observer Observer
	now      func() time.Time
}

// NewStockDataService wires the report pipeline. cache and observer may be nil.
func NewStockDataService(tracer trace.Tracer, fetcher BarFetcher, cache BarCache, observer Observer) *StockDataService {
	return &StockDataService{
		tracer:   tracer,
		fetcher:  fetcher,
		cache:    cache,
		observer: observer,
		now:      time.Now,
	}
}

// WithClock replaces the clock used for default dates.
func (s *StockDataService) WithClock(now func() time.Time) *StockDataService {
	if now != nil {
		s.now = now
	}
	return s
}

// Report fetches bars for the request, computes the requested indicators over
// an extended history and renders the user range as markdown.
func (s *StockDataService) Report(ctx context.Context, req StockDataRequest, token string) (string, error) {
	ctx, span := s.tracer.Start(ctx, "stock-data-service.report")
	defer span.End()

	if s.fetcher == nil {
		return "", fmt.Errorf("stock data service is not fully initialized")
	}

	market, err := domain.ParseMarket(req.MarketType)
	if err != nil {
		return "", err
	}
	code := strings.TrimSpace(req.Code)
	if code == "" {
		return "", fmt.Errorf("code is required")
	}
	// Checked before the cache so a hit never answers an unauthenticated call.
	if market != domain.MarketCrypto && token == "" {
		return "", provider.ErrNoToken
	}

	userRange, err := resolveRange(s.now(), req.StartDate, req.EndDate, 0, -1)
	if err != nil {
		return "", err
	}

	specs, err := indicator.ParseAll(indicator.SplitExprs(req.Indicators))
	if err != nil {
		return "", err
	}
	if len(specs) > 0 && !market.HasOHLC() {
		return "", fmt.Errorf("technical indicators are not available for market %s", market)
	}

	fetchRange := userRange
	if len(specs) > 0 {
		required := indicator.RequiredBars(specs...)
		fetchRange.Start, err = indicator.ExtendedStartDate(userRange.Start, required)
		if err != nil {
			return "", err
		}
		log.Printf("indicators need %d bars, extending %s start from %s to %s", required, code, userRange.Start, fetchRange.Start)
	}

	span.SetAttributes(
		attribute.String("market", string(market)),
		attribute.String("code", code),
		attribute.String("fetch.start", fetchRange.Start),
		attribute.String("fetch.end", fetchRange.End),
		attribute.Int("indicators", len(specs)),
	)

	bars, err := s.bars(ctx, token, market, code, fetchRange)
	if err != nil {
		return "", err
	}
	bars = normalizeBars(bars)

	started := time.Now()
	table, err := indicator.Compute(bars, specs)
	if s.observer != nil {
		s.observer.ObserveIndicatorCompute(time.Since(started))
	}
	if err != nil {
		return "", fmt.Errorf("compute indicators: %w", err)
	}

	table = indicator.FilterToRange(table, userRange.Start, userRange.End)
	return render.StockReport(code, market, table), nil
}

func (s *StockDataService) bars(ctx context.Context, token string, market domain.Market, code string, r domain.DateRange) ([]domain.PriceBar, error) {
	if s.cache == nil {
		s.observeCache(metrics.CacheDisabled)
		return s.fetcher.DailyBars(ctx, token, market, code, r)
	}

	cached, ok, err := s.cache.Get(ctx, market, code, r)
	switch {
	case err != nil:
		log.Printf("bar cache read failed for %s %s: %v", market, code, err)
		s.observeCache(metrics.CacheError)
	case ok:
		s.observeCache(metrics.CacheHit)
		return cached, nil
	default:
		s.observeCache(metrics.CacheMiss)
	}

	bars, err := s.fetcher.DailyBars(ctx, token, market, code, r)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, market, code, r, bars); err != nil {
		log.Printf("bar cache write failed for %s %s: %v", market, code, err)
	}
	return bars, nil
}

func (s *StockDataService) observeCache(result string) {
	if s.observer != nil {
		s.observer.ObserveCacheLookup(result)
	}
}

// normalizeBars sorts ascending and keeps the last bar of any repeated date.
func normalizeBars(bars []domain.PriceBar) []domain.PriceBar {
	out := make([]domain.PriceBar, len(bars))
	copy(out, bars)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date < out[j].Date })

	deduped := out[:0]
	for _, b := range out {
		if n := len(deduped); n > 0 && deduped[n-1].Date == b.Date {
			deduped[n-1] = b
			continue
		}
		deduped = append(deduped, b)
	}
	return deduped
}
