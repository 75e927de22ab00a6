package provider

import (
	"context"

	"finance-mcp/internal/domain"
)

// Router sends crypto requests to Binance and every other market to tushare.
type Router struct {
	Tushare *TushareClient
	Binance *BinanceClient
}

func NewRouter(tushare *TushareClient, binance *BinanceClient) *Router {
	return &Router{Tushare: tushare, Binance: binance}
}

func (r *Router) DailyBars(ctx context.Context, token string, market domain.Market, code string, dr domain.DateRange) ([]domain.PriceBar, error) {
	if market == domain.MarketCrypto {
		return r.Binance.DailyBars(ctx, code, dr)
	}
	return r.Tushare.DailyBars(ctx, token, market, code, dr)
}

func (r *Router) Query(ctx context.Context, token, apiName string, params map[string]string, fields string) ([]Record, error) {
	return r.Tushare.Query(ctx, token, apiName, params, fields)
}
