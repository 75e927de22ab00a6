package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"finance-mcp/internal/domain"

	"github.com/go-resty/resty/v2"
)

const (
	binanceKlineLimit    = 1000
	binanceMaxPages      = 100
	binanceInvalidSymbol = -1121
)

var binanceQuotes = []string{"USDT", "USDC", "FDUSD", "TUSD", "BUSD", "BTC", "ETH"}

// coin ids accepted in the "id.quote" form
var coinTickers = map[string]string{
	"bitcoin":          "BTC",
	"ethereum":         "ETH",
	"tether":           "USDT",
	"usd-coin":         "USDC",
	"solana":           "SOL",
	"binancecoin":      "BNB",
	"ripple":           "XRP",
	"cardano":          "ADA",
	"polkadot":         "DOT",
	"chainlink":        "LINK",
	"litecoin":         "LTC",
	"shiba-inu":        "SHIB",
	"tron":             "TRX",
	"toncoin":          "TON",
	"bitcoin-cash":     "BCH",
	"ethereum-classic": "ETC",
}

// NormalizeSymbol accepts BTCUSDT, BTC-USDT, BTC/USDT and bitcoin.usd and
// returns the exchange pair. A USD quote is read as USDT.
func NormalizeSymbol(raw string) (string, error) {
	upper := strings.ToUpper(strings.TrimSpace(raw))
	if upper == "" {
		return "", fmt.Errorf("crypto symbol is required")
	}
	if !strings.ContainsAny(upper, "-/.") {
		return upper, nil
	}

	var base, quote string
	switch {
	case strings.ContainsAny(upper, "-/"):
		parts := strings.FieldsFunc(upper, func(r rune) bool { return r == '-' || r == '/' })
		if len(parts) != 2 {
			return "", fmt.Errorf("invalid crypto symbol %q", raw)
		}
		base, quote = parts[0], parts[1]
	default:
		id, vs, _ := strings.Cut(upper, ".")
		base = id
		if ticker, ok := coinTickers[strings.ToLower(id)]; ok {
			base = ticker
		}
		quote = vs
	}

	if quote == "USD" {
		quote = "USDT"
	}
	supported := false
	for _, q := range binanceQuotes {
		if q == quote {
			supported = true
			break
		}
	}
	if !supported {
		return "", fmt.Errorf("unsupported quote asset %q (supported: %s)", quote, strings.Join(binanceQuotes, ", "))
	}
	if base == "" {
		return "", fmt.Errorf("invalid crypto symbol %q", raw)
	}
	return base + quote, nil
}

type binanceError struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

type BinanceClient struct {
	client   *resty.Client
	observer UpstreamObserver
	limit    int
	maxPages int
}

func NewBinanceClient(baseURL string, timeout time.Duration, observer UpstreamObserver) *BinanceClient {
	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetTimeout(timeout)

	return &BinanceClient{
		client:   client,
		observer: observer,
		limit:    binanceKlineLimit,
		maxPages: binanceMaxPages,
	}
}

// DailyBars pages through 1d klines of symbol covering r, ascending by date.
func (c *BinanceClient) DailyBars(ctx context.Context, code string, r domain.DateRange) ([]domain.PriceBar, error) {
	symbol, err := NormalizeSymbol(code)
	if err != nil {
		return nil, err
	}
	start, err := domain.ParseDate(r.Start)
	if err != nil {
		return nil, err
	}
	end, err := domain.ParseDate(r.End)
	if err != nil {
		return nil, err
	}
	startMs := start.UnixMilli()
	endMs := end.Add(24*time.Hour - time.Millisecond).UnixMilli()

	var bars []domain.PriceBar
	for page := 0; startMs < endMs && page < c.maxPages; page++ {
		klines, err := c.fetchPage(ctx, symbol, startMs, endMs)
		if err != nil {
			return nil, err
		}
		if len(klines) == 0 {
			break
		}

		lastOpen := startMs
		for _, k := range klines {
			bar, openTime, ok := klineToBar(k)
			if !ok {
				continue
			}
			bars = append(bars, bar)
			lastOpen = openTime
		}
		if lastOpen <= startMs {
			break
		}
		startMs = lastOpen + 1
		if len(klines) < c.limit {
			break
		}
	}

	if len(bars) == 0 {
		return nil, fmt.Errorf("fetch klines for %s: %w", symbol, ErrNoData)
	}
	return bars, nil
}

func (c *BinanceClient) fetchPage(ctx context.Context, symbol string, startMs, endMs int64) ([][]any, error) {
	started := time.Now()
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"symbol":    symbol,
			"interval":  "1d",
			"startTime": strconv.FormatInt(startMs, 10),
			"endTime":   strconv.FormatInt(endMs, 10),
			"limit":     strconv.Itoa(c.limit),
		}).
		Get("/api/v3/klines")
	observe(c.observer, NameBinance, started)
	if err != nil {
		return nil, fmt.Errorf("binance klines request: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		var apiErr binanceError
		if json.Unmarshal(resp.Body(), &apiErr) == nil && apiErr.Msg != "" {
			if apiErr.Code == binanceInvalidSymbol || strings.Contains(strings.ToLower(apiErr.Msg), "invalid symbol") {
				return nil, fmt.Errorf("%w: %s is not listed on Binance; try BTCUSDT, ETH-USDT or bitcoin.usdt", ErrInvalidSymbol, symbol)
			}
			return nil, &APIError{Provider: NameBinance, Status: resp.StatusCode(), Code: apiErr.Code, Msg: apiErr.Msg}
		}
		return nil, &APIError{Provider: NameBinance, Status: resp.StatusCode(), Msg: resp.String()}
	}

	var klines [][]any
	if err := json.Unmarshal(resp.Body(), &klines); err != nil {
		return nil, fmt.Errorf("decode binance klines: %w", err)
	}
	return klines, nil
}

func klineToBar(k []any) (domain.PriceBar, int64, bool) {
	if len(k) < 6 {
		return domain.PriceBar{}, 0, false
	}
	openTime, ok := toFloat(k[0])
	if !ok {
		return domain.PriceBar{}, 0, false
	}
	bar := domain.PriceBar{Date: domain.FormatDate(time.UnixMilli(int64(openTime)))}
	var okClose bool
	bar.Open, _ = toFloat(k[1])
	bar.High, _ = toFloat(k[2])
	bar.Low, _ = toFloat(k[3])
	bar.Close, okClose = toFloat(k[4])
	bar.Volume, _ = toFloat(k[5])
	if !okClose {
		return domain.PriceBar{}, 0, false
	}
	return bar, int64(openTime), true
}
