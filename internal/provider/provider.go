package provider

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	NameTushare = "tushare"
	NameBinance = "binance"
)

var (
	ErrNoToken       = errors.New("tushare token is not configured: set TUSHARE_TOKEN or send X-Tushare-Token")
	ErrNoData        = errors.New("no data returned")
	ErrInvalidSymbol = errors.New("invalid symbol")
)

// APIError is a non-success answer from an upstream API.
type APIError struct {
	Provider string
	Status   int
	Code     int
	Msg      string
}

func (e *APIError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s api error %d: %s", e.Provider, e.Code, e.Msg)
	}
	return fmt.Sprintf("%s request failed: status %d: %s", e.Provider, e.Status, e.Msg)
}

// UpstreamObserver receives the latency of every upstream call.
type UpstreamObserver interface {
	ObserveUpstream(provider string, elapsed time.Duration)
}

func observe(o UpstreamObserver, provider string, started time.Time) {
	if o != nil {
		o.ObserveUpstream(provider, time.Since(started))
	}
}

// Record is one upstream row keyed by field name.
type Record map[string]any

// String renders the field the way the upstream sent it; missing values are "".
func (r Record) String(key string) string {
	return formatValue(r[key])
}

func (r Record) Float(key string) (float64, bool) {
	return toFloat(r[key])
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case json.Number:
		return x.String()
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
