package mcp

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

func TestToolsListAndInvoke(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	srv, stock, company, observer := testServer()
	session, shutdown, err := connectInMemory(ctx, srv)
	if err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	defer shutdown()
	defer session.Close()

	tools, err := session.ListTools(ctx, &sdkmcp.ListToolsParams{})
	if err != nil {
		t.Fatalf("list tools failed: %v", err)
	}
	names := map[string]bool{}
	for _, tool := range tools.Tools {
		names[tool.Name] = true
	}
	for _, want := range []string{"stock_data", "company_performance", "current_timestamp"} {
		if !names[want] {
			t.Fatalf("expected tool %s, got %+v", want, names)
		}
	}

	res, err := session.CallTool(ctx, &sdkmcp.CallToolParams{Name: "stock_data", Arguments: map[string]any{
		"code":        "000001.SZ",
		"market_type": "cn",
		"start_date":  "20240101",
		"indicators":  "macd(12,26,9) rsi(14)",
	}})
	if err != nil {
		t.Fatalf("call tool failed: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected tool error: %+v", res.Content)
	}
	if got := toolText(res); got != "# 000001.SZ daily bars" {
		t.Fatalf("unexpected text %q", got)
	}
	if stock.lastReq.MarketType != "cn" || stock.lastReq.StartDate != "20240101" || stock.lastReq.Indicators != "macd(12,26,9) rsi(14)" {
		t.Fatalf("unexpected request %+v", stock.lastReq)
	}
	if stock.token() != "env-token" {
		t.Fatalf("expected fallback token, got %q", stock.token())
	}

	res, err = session.CallTool(ctx, &sdkmcp.CallToolParams{Name: "company_performance", Arguments: map[string]any{
		"ts_code":   "600519.SH",
		"data_type": "income",
		"period":    "20231231",
	}})
	if err != nil {
		t.Fatalf("company tool failed: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected company tool error: %+v", res.Content)
	}
	if company.lastReq.Period != "20231231" || company.lastToken != "env-token" {
		t.Fatalf("unexpected company request %+v token %q", company.lastReq, company.lastToken)
	}

	calls := observer.snapshot()
	if len(calls) != 2 || calls[0] != "stock_data:ok" || calls[1] != "company_performance:ok" {
		t.Fatalf("unexpected observed calls %v", calls)
	}
}

func TestToolsReportErrorsAsToolResults(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	srv, stock, _, observer := testServer()
	stock.err = errors.New("unsupported indicator: foo")
	session, shutdown, err := connectInMemory(ctx, srv)
	if err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	defer shutdown()
	defer session.Close()

	res, err := session.CallTool(ctx, &sdkmcp.CallToolParams{Name: "stock_data", Arguments: map[string]any{
		"code":        "AAPL",
		"market_type": "us",
		"indicators":  "foo(1)",
	}})
	if err != nil {
		t.Fatalf("unexpected protocol error: %v", err)
	}
	if !res.IsError {
		t.Fatal("expected tool-level error")
	}
	if !strings.Contains(toolText(res), "unsupported indicator") {
		t.Fatalf("expected error text, got %q", toolText(res))
	}
	if calls := observer.snapshot(); len(calls) != 1 || calls[0] != "stock_data:error" {
		t.Fatalf("unexpected observed calls %v", calls)
	}
}

func TestCurrentTimestampTool(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	srv, _, _, _ := testServer()
	session, shutdown, err := connectInMemory(ctx, srv)
	if err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	defer shutdown()
	defer session.Close()

	cases := map[string]string{
		"":          "2024-03-15 10:30:00",
		"date":      "2024-03-15",
		"time":      "10:30:00",
		"timestamp": strconv.FormatInt(fixedNow.Unix(), 10),
		"readable":  "2024-03-15 Friday 10:30:00 (UTC+8)",
	}
	for format, want := range cases {
		args := map[string]any{}
		if format != "" {
			args["format"] = format
		}
		res, err := session.CallTool(ctx, &sdkmcp.CallToolParams{Name: "current_timestamp", Arguments: args})
		if err != nil {
			t.Fatalf("format %q: %v", format, err)
		}
		if res.IsError || toolText(res) != want {
			t.Fatalf("format %q: expected %q, got %q (error=%v)", format, want, toolText(res), res.IsError)
		}
	}

	res, err := session.CallTool(ctx, &sdkmcp.CallToolParams{Name: "current_timestamp", Arguments: map[string]any{"format": "iso"}})
	if err != nil {
		t.Fatalf("unexpected protocol error: %v", err)
	}
	if !res.IsError {
		t.Fatal("expected unsupported format error")
	}
}

func connectHTTP(ctx context.Context, t *testing.T, handler http.Handler, headers map[string]string) *sdkmcp.ClientSession {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "mcp-test-client", Version: "1.0.0"}, nil)
	session, err := client.Connect(ctx, &sdkmcp.StreamableClientTransport{
		Endpoint:   ts.URL,
		HTTPClient: &http.Client{Transport: &headerRoundTripper{headers: headers}},
		MaxRetries: -1,
	}, nil)
	if err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	t.Cleanup(func() { _ = session.Close() })
	return session
}

func TestHTTPTransportPassesTushareTokenHeader(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	srv, stock, _, _ := testServer()
	handler := NewHTTPTransportHandler(srv, HTTPHandlerConfig{RateLimitPerMin: 100})
	session := connectHTTP(ctx, t, handler, map[string]string{headerTushareToken: "header-token"})

	res, err := session.CallTool(ctx, &sdkmcp.CallToolParams{Name: "stock_data", Arguments: map[string]any{
		"code": "AAPL", "market_type": "us",
	}})
	if err != nil {
		t.Fatalf("call tool failed: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected tool error: %+v", res.Content)
	}
	if stock.token() != "header-token" {
		t.Fatalf("expected header token, got %q", stock.token())
	}
}

func TestHTTPTransportGateKeepsBearerOutOfUpstream(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stock := &stubStockReporter{}
	srv := NewServer(nil, stock, &stubCompanyReporter{}, nil, ServerConfig{
		RequestTimeout: time.Second,
		DefaultToken:   "env-token",
		AuthGated:      true,
	})
	handler := NewHTTPTransportHandler(srv, HTTPHandlerConfig{AuthToken: "gate", RateLimitPerMin: 100})
	session := connectHTTP(ctx, t, handler, map[string]string{"Authorization": "Bearer gate"})

	res, err := session.CallTool(ctx, &sdkmcp.CallToolParams{Name: "stock_data", Arguments: map[string]any{
		"code": "AAPL", "market_type": "us",
	}})
	if err != nil {
		t.Fatalf("call tool failed: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected tool error: %+v", res.Content)
	}
	if stock.token() != "env-token" {
		t.Fatalf("expected fallback token behind the gate, got %q", stock.token())
	}
}
