package mcp

import (
	"context"
	"fmt"
	"time"

	"finance-mcp/internal/service"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type toolDeps struct {
	stock   StockReporter
	company CompanyReporter
	cfg     ServerConfig
	now     func() time.Time
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: text}}}
}

func (d toolDeps) token(req *mcp.CallToolRequest) string {
	if req == nil || req.Extra == nil {
		return tushareToken(nil, d.cfg.AuthGated, d.cfg.DefaultToken)
	}
	return tushareToken(req.Extra.Header, d.cfg.AuthGated, d.cfg.DefaultToken)
}

func registerTools(server *mcp.Server, deps toolDeps) {
	mcp.AddTool(server, &mcp.Tool{
		Name: "stock_data",
		Description: "Daily bars for a security with optional technical indicators " +
			"(macd, rsi, kdj, boll, ma). Output is a markdown table, newest first.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, in stockDataInput) (*mcp.CallToolResult, any, error) {
		if deps.stock == nil {
			return nil, nil, fmt.Errorf("stock data service unavailable")
		}
		md, err := deps.stock.Report(ctx, service.StockDataRequest{
			Code:       in.Code,
			MarketType: in.MarketType,
			StartDate:  in.StartDate,
			EndDate:    in.EndDate,
			Indicators: in.Indicators,
		}, deps.token(req))
		if err != nil {
			return nil, nil, err
		}
		return textResult(md), nil, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "company_performance",
		Description: "Company fundamentals from tushare: forecasts, express reports, financial statements, dividends and holders.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, in companyPerformanceInput) (*mcp.CallToolResult, any, error) {
		if deps.company == nil {
			return nil, nil, fmt.Errorf("company performance service unavailable")
		}
		md, err := deps.company.Report(ctx, service.CompanyPerformanceRequest{
			TSCode:    in.TSCode,
			DataType:  in.DataType,
			StartDate: in.StartDate,
			EndDate:   in.EndDate,
			Period:    in.Period,
		}, deps.token(req))
		if err != nil {
			return nil, nil, err
		}
		return textResult(md), nil, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "current_timestamp",
		Description: "Current time in China time (UTC+8). Use it to resolve relative dates before querying data.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in currentTimestampInput) (*mcp.CallToolResult, any, error) {
		out, err := formatTimestamp(deps.now(), in.Format)
		if err != nil {
			return nil, nil, err
		}
		return textResult(out), nil, nil
	})
}
