package mcp

import (
	"context"
	"testing"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

func TestResourcesStaticAndTemplated(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	srv, _, _, _ := testServer()
	session, shutdown, err := connectInMemory(ctx, srv)
	if err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	defer shutdown()
	defer session.Close()

	list, err := session.ListResources(ctx, &sdkmcp.ListResourcesParams{})
	if err != nil {
		t.Fatalf("list resources failed: %v", err)
	}
	if len(list.Resources) != 2 {
		t.Fatalf("expected 2 static resources, got %d", len(list.Resources))
	}

	templates, err := session.ListResourceTemplates(ctx, &sdkmcp.ListResourceTemplatesParams{})
	if err != nil {
		t.Fatalf("list templates failed: %v", err)
	}
	if len(templates.ResourceTemplates) != 1 {
		t.Fatalf("expected 1 resource template, got %d", len(templates.ResourceTemplates))
	}

	readRes, err := session.ReadResource(ctx, &sdkmcp.ReadResourceParams{URI: "finance://supported-indicators"})
	if err != nil {
		t.Fatalf("read indicators failed: %v", err)
	}
	var indicators []indicatorInfo
	if err := decodeResourceJSON(readRes, &indicators); err != nil {
		t.Fatalf("decode indicators failed: %v", err)
	}
	if len(indicators) != 5 || indicators[0].Name != "macd" || indicators[0].Example == "" {
		t.Fatalf("unexpected indicators payload %+v", indicators)
	}

	readRes, err = session.ReadResource(ctx, &sdkmcp.ReadResourceParams{URI: "finance://supported-markets"})
	if err != nil {
		t.Fatalf("read markets failed: %v", err)
	}
	var markets []marketInfo
	if err := decodeResourceJSON(readRes, &markets); err != nil {
		t.Fatalf("decode markets failed: %v", err)
	}
	byName := map[string]marketInfo{}
	for _, m := range markets {
		byName[m.Market] = m
	}
	if byName["crypto"].Source != "binance" || byName["crypto"].DailyAPI != "" {
		t.Fatalf("unexpected crypto entry %+v", byName["crypto"])
	}
	if byName["cn"].DailyAPI != "daily" || !byName["cn"].OHLC {
		t.Fatalf("unexpected cn entry %+v", byName["cn"])
	}
	if byName["repo"].OHLC {
		t.Fatalf("repo should not report OHLC: %+v", byName["repo"])
	}

	readRes, err = session.ReadResource(ctx, &sdkmcp.ReadResourceParams{URI: "finance://lookback?indicators=macd%2812,26,9%29%20rsi%2814%29&start=20230101"})
	if err != nil {
		t.Fatalf("read lookback failed: %v", err)
	}
	var lb lookbackOutput
	if err := decodeResourceJSON(readRes, &lb); err != nil {
		t.Fatalf("decode lookback failed: %v", err)
	}
	if lb.RequiredBars != 70 || len(lb.Indicators) != 2 {
		t.Fatalf("unexpected lookback %+v", lb)
	}
	if lb.ExtendedStart != "20220918" {
		t.Fatalf("expected extended start 20220918, got %s", lb.ExtendedStart)
	}
}

func TestLookbackRejectsBadIndicator(t *testing.T) {
	if _, err := lookback("macd(12,26)", ""); err == nil {
		t.Fatal("expected arity error")
	}
	out, err := lookback("", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.RequiredBars != 0 || out.ExtendedStart != "" {
		t.Fatalf("unexpected empty lookback %+v", out)
	}
}
