package mcp

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"finance-mcp/internal/domain"
)

const (
	headerTushareToken = "X-Tushare-Token"
	headerAPIKey       = "X-Api-Key"
)

type stockDataInput struct {
	Code       string `json:"code" jsonschema:"security code, e.g. 000001.SZ, AAPL, 00700.HK, BTCUSDT"`
	MarketType string `json:"market_type" jsonschema:"market: cn, us, hk, fx, futures, fund, repo, convertible_bond, options, crypto"`
	StartDate  string `json:"start_date,omitempty" jsonschema:"start date YYYYMMDD, defaults to one month before end_date"`
	EndDate    string `json:"end_date,omitempty" jsonschema:"end date YYYYMMDD, defaults to today"`
	Indicators string `json:"indicators,omitempty" jsonschema:"space separated indicators, e.g. macd(12,26,9) rsi(14) kdj(9,3,3) boll(20,2) ma(20)"`
}

type companyPerformanceInput struct {
	TSCode    string `json:"ts_code" jsonschema:"tushare code, e.g. 000001.SZ"`
	DataType  string `json:"data_type" jsonschema:"forecast, express, indicators, dividend, income, balance, cashflow, company_basic, holder_number, top10_holders"`
	StartDate string `json:"start_date,omitempty" jsonschema:"start date YYYYMMDD"`
	EndDate   string `json:"end_date,omitempty" jsonschema:"end date YYYYMMDD"`
	Period    string `json:"period,omitempty" jsonschema:"report period YYYYMMDD, e.g. 20231231"`
}

type currentTimestampInput struct {
	Format string `json:"format,omitempty" jsonschema:"datetime (default), date, time, timestamp or readable"`
}

type indicatorInfo struct {
	Name        string `json:"name"`
	Usage       string `json:"usage"`
	Example     string `json:"example"`
	Description string `json:"description"`
}

type marketInfo struct {
	Market   string `json:"market"`
	Title    string `json:"title"`
	Source   string `json:"source"`
	DailyAPI string `json:"daily_api,omitempty"`
	OHLC     bool   `json:"ohlc"`
}

type lookbackOutput struct {
	Indicators    []string `json:"indicators"`
	RequiredBars  int      `json:"required_bars"`
	StartDate     string   `json:"start_date,omitempty"`
	ExtendedStart string   `json:"extended_start,omitempty"`
}

var weekdays = [...]string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}

func formatTimestamp(now time.Time, format string) (string, error) {
	local := now.In(domain.MarketZone)
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "datetime":
		return local.Format("2006-01-02 15:04:05"), nil
	case "date":
		return local.Format("2006-01-02"), nil
	case "time":
		return local.Format("15:04:05"), nil
	case "timestamp":
		return fmt.Sprintf("%d", local.Unix()), nil
	case "readable":
		return fmt.Sprintf("%d-%02d-%02d %s %02d:%02d:%02d (UTC+8)",
			local.Year(), local.Month(), local.Day(), weekdays[local.Weekday()],
			local.Hour(), local.Minute(), local.Second()), nil
	default:
		return "", fmt.Errorf("unsupported format: %s (supported: datetime, date, time, timestamp, readable)", format)
	}
}

// tushareToken picks the upstream token for one call. Authorization is only
// read when no bearer gate consumes it.
func tushareToken(h http.Header, gated bool, fallback string) string {
	if h != nil {
		if v := strings.TrimSpace(h.Get(headerTushareToken)); v != "" {
			return v
		}
		if v := strings.TrimSpace(h.Get(headerAPIKey)); v != "" {
			return v
		}
		if !gated {
			authz := strings.TrimSpace(h.Get("Authorization"))
			if strings.HasPrefix(authz, "Bearer ") {
				if v := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer ")); v != "" {
					return v
				}
			}
		}
	}
	return strings.TrimSpace(fallback)
}
