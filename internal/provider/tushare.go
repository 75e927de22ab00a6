package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sort"
	"time"

	"finance-mcp/internal/domain"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

// DailyAPIs maps a market to the tushare endpoint serving its daily bars.
var DailyAPIs = map[domain.Market]string{
	domain.MarketCN:              "daily",
	domain.MarketUS:              "us_daily",
	domain.MarketHK:              "hk_daily",
	domain.MarketFX:              "fx_daily",
	domain.MarketFutures:         "fut_daily",
	domain.MarketFund:            "fund_daily",
	domain.MarketRepo:            "repo_daily",
	domain.MarketConvertibleBond: "cb_daily",
	domain.MarketOptions:         "opt_daily",
}

// fields that become PriceBar columns rather than Extra entries
var barFields = map[string]struct{}{
	"ts_code": {}, "trade_date": {}, "open": {}, "high": {}, "low": {}, "close": {}, "vol": {},
}

type tushareRequest struct {
	APIName string            `json:"api_name"`
	Token   string            `json:"token"`
	Params  map[string]string `json:"params"`
	Fields  string            `json:"fields,omitempty"`
}

type tushareResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data *struct {
		Fields []string `json:"fields"`
		Items  [][]any  `json:"items"`
	} `json:"data"`
}

type TushareClient struct {
	client   *resty.Client
	observer UpstreamObserver
}

func NewTushareClient(baseURL string, timeout time.Duration, observer UpstreamObserver) *TushareClient {
	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetTimeout(timeout)
	client.SetHeader("Content-Type", "application/json")

	return &TushareClient{client: client, observer: observer}
}

// Query calls one tushare API. An empty fields string asks for every field.
func (c *TushareClient) Query(ctx context.Context, token, apiName string, params map[string]string, fields string) ([]Record, error) {
	if token == "" {
		return nil, ErrNoToken
	}

	started := time.Now()
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(tushareRequest{APIName: apiName, Token: token, Params: params, Fields: fields}).
		Post("")
	observe(c.observer, NameTushare, started)
	if err != nil {
		return nil, fmt.Errorf("tushare %s request: %w", apiName, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, &APIError{Provider: NameTushare, Status: resp.StatusCode(), Msg: resp.String()}
	}

	var payload tushareResponse
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return nil, fmt.Errorf("decode tushare %s response: %w", apiName, err)
	}
	if payload.Code != 0 {
		return nil, &APIError{Provider: NameTushare, Status: resp.StatusCode(), Code: payload.Code, Msg: payload.Msg}
	}
	if payload.Data == nil || len(payload.Data.Items) == 0 {
		return nil, fmt.Errorf("tushare %s: %w", apiName, ErrNoData)
	}

	records := make([]Record, 0, len(payload.Data.Items))
	for _, item := range payload.Data.Items {
		rec := make(Record, len(payload.Data.Fields))
		for i, field := range payload.Data.Fields {
			if i < len(item) {
				rec[field] = item[i]
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

// DailyBars fetches daily bars of code in r, ascending by date. A-share prices
// are forward adjusted.
func (c *TushareClient) DailyBars(ctx context.Context, token string, market domain.Market, code string, r domain.DateRange) ([]domain.PriceBar, error) {
	apiName, ok := DailyAPIs[market]
	if !ok {
		return nil, fmt.Errorf("market %s is not served by tushare", market)
	}

	records, err := c.Query(ctx, token, apiName, map[string]string{
		"ts_code":    code,
		"start_date": r.Start,
		"end_date":   r.End,
	}, "")
	if err != nil {
		return nil, fmt.Errorf("fetch %s daily bars for %s: %w", market, code, err)
	}

	bars := make([]domain.PriceBar, 0, len(records))
	for _, rec := range records {
		bar, ok := recordToBar(market, rec)
		if !ok {
			continue
		}
		bars = append(bars, bar)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("fetch %s daily bars for %s: %w", market, code, ErrNoData)
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Date < bars[j].Date })

	if market == domain.MarketCN {
		adjusted, err := c.forwardAdjust(ctx, token, code, r, bars)
		if err != nil {
			log.Printf("forward adjustment skipped for %s: %v", code, err)
		} else {
			bars = adjusted
		}
	}
	return bars, nil
}

func recordToBar(market domain.Market, rec Record) (domain.PriceBar, bool) {
	bar := domain.PriceBar{Date: rec.String("trade_date")}
	if bar.Date == "" {
		return bar, false
	}

	if market == domain.MarketFX {
		bar.Open = midPrice(rec, "bid_open", "ask_open")
		bar.High = midPrice(rec, "bid_high", "ask_high")
		bar.Low = midPrice(rec, "bid_low", "ask_low")
		bar.Close = midPrice(rec, "bid_close", "ask_close")
		bar.Volume, _ = rec.Float("tick_qty")
	} else {
		var ok bool
		if bar.Close, ok = rec.Float("close"); !ok {
			return bar, false
		}
		bar.Open, _ = rec.Float("open")
		bar.High, _ = rec.Float("high")
		bar.Low, _ = rec.Float("low")
		bar.Volume, _ = rec.Float("vol")
	}

	for key, value := range rec {
		if _, core := barFields[key]; core || value == nil {
			continue
		}
		if bar.Extra == nil {
			bar.Extra = make(map[string]string)
		}
		bar.Extra[key] = formatValue(value)
	}
	return bar, true
}

// midPrice averages bid and ask, falling back to whichever side is present.
func midPrice(rec Record, bidKey, askKey string) float64 {
	bid, hasBid := rec.Float(bidKey)
	ask, hasAsk := rec.Float(askKey)
	switch {
	case hasBid && hasAsk:
		return (bid + ask) / 2
	case hasBid:
		return bid
	case hasAsk:
		return ask
	default:
		return 0
	}
}

// forwardAdjust rescales OHLC by adj_factor(date) / adj_factor(latest bar).
func (c *TushareClient) forwardAdjust(ctx context.Context, token, code string, r domain.DateRange, bars []domain.PriceBar) ([]domain.PriceBar, error) {
	records, err := c.Query(ctx, token, "adj_factor", map[string]string{
		"ts_code":    code,
		"start_date": r.Start,
		"end_date":   r.End,
	}, "trade_date,adj_factor")
	if err != nil {
		return nil, err
	}

	factors := make(map[string]decimal.Decimal, len(records))
	for _, rec := range records {
		f, ok := rec.Float("adj_factor")
		if !ok || f == 0 {
			continue
		}
		factors[rec.String("trade_date")] = decimal.NewFromFloat(f)
	}

	latestDate := bars[len(bars)-1].Date
	latest, ok := factors[latestDate]
	if !ok {
		return nil, fmt.Errorf("no adj_factor for latest date %s", latestDate)
	}

	out := make([]domain.PriceBar, len(bars))
	for i, bar := range bars {
		out[i] = bar
		f, ok := factors[bar.Date]
		if !ok {
			continue
		}
		ratio := f.Div(latest)
		out[i].Open = scale(bar.Open, ratio)
		out[i].High = scale(bar.High, ratio)
		out[i].Low = scale(bar.Low, ratio)
		out[i].Close = scale(bar.Close, ratio)
	}
	return out, nil
}

func scale(price float64, ratio decimal.Decimal) float64 {
	return decimal.NewFromFloat(price).Mul(ratio).InexactFloat64()
}
