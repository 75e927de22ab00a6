package domain

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the YYYYMMDD layout used by every upstream and tool argument.
const DateLayout = "20060102"

// PriceBar is one daily OHLCV record. Date is the identity of the bar.
type PriceBar struct {
	Date   string            `json:"date"`
	Open   float64           `json:"open"`
	High   float64           `json:"high"`
	Low    float64           `json:"low"`
	Close  float64           `json:"close"`
	Volume float64           `json:"volume"`
	Extra  map[string]string `json:"extra,omitempty"`
}

// DateRange is an inclusive YYYYMMDD range.
type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

func (r DateRange) Contains(date string) bool {
	return date >= r.Start && date <= r.End
}

func (r DateRange) Validate() error {
	start, err := ParseDate(r.Start)
	if err != nil {
		return err
	}
	end, err := ParseDate(r.End)
	if err != nil {
		return err
	}
	if start.After(end) {
		return fmt.Errorf("start date %s is after end date %s", r.Start, r.End)
	}
	return nil
}

// ParseDate parses a YYYYMMDD string as a UTC calendar date.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if len(s) != len(DateLayout) {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYYMMDD", s)
	}
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYYMMDD", s)
	}
	return t, nil
}

func FormatDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

type Market string

const (
	MarketCN              Market = "cn"
	MarketUS              Market = "us"
	MarketHK              Market = "hk"
	MarketFX              Market = "fx"
	MarketFutures         Market = "futures"
	MarketFund            Market = "fund"
	MarketRepo            Market = "repo"
	MarketConvertibleBond Market = "convertible_bond"
	MarketOptions         Market = "options"
	MarketCrypto          Market = "crypto"
)

var SupportedMarkets = []Market{
	MarketCN, MarketUS, MarketHK, MarketFX, MarketFutures, MarketFund,
	MarketRepo, MarketConvertibleBond, MarketOptions, MarketCrypto,
}

// MarketTitles are the report headings per market.
var MarketTitles = map[Market]string{
	MarketCN:              "A-share",
	MarketUS:              "US equity",
	MarketHK:              "HK equity",
	MarketFX:              "FX",
	MarketFutures:         "Futures",
	MarketFund:            "Fund",
	MarketRepo:            "Bond repo",
	MarketConvertibleBond: "Convertible bond",
	MarketOptions:         "Options",
	MarketCrypto:          "Crypto",
}

func ParseMarket(raw string) (Market, error) {
	m := Market(strings.ToLower(strings.TrimSpace(raw)))
	if m == "" {
		return "", fmt.Errorf("market_type is required")
	}
	for _, supported := range SupportedMarkets {
		if m == supported {
			return m, nil
		}
	}
	names := make([]string, len(SupportedMarkets))
	for i, s := range SupportedMarkets {
		names[i] = string(s)
	}
	return "", fmt.Errorf("unsupported market type: %s (supported: %s)", m, strings.Join(names, ", "))
}

// HasOHLC reports whether daily bars of the market carry prices indicators can use.
func (m Market) HasOHLC() bool {
	return m != MarketRepo
}

// MarketZone is the UTC+8 clock used for default dates and timestamps.
var MarketZone = time.FixedZone("UTC+8", 8*60*60)
