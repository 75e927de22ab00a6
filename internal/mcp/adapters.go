package mcp

import (
	"context"

	"finance-mcp/internal/service"
)

// StockReporter renders daily bars with indicator columns.
type StockReporter interface {
	Report(ctx context.Context, req service.StockDataRequest, token string) (string, error)
}

// CompanyReporter renders tushare fundamentals for one company.
type CompanyReporter interface {
	Report(ctx context.Context, req service.CompanyPerformanceRequest, token string) (string, error)
}

// ToolObserver records tool call outcomes.
type ToolObserver interface {
	ObserveToolCall(tool string, failed bool)
}
