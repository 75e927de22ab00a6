package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"finance-mcp/internal/service"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

type stubStockReporter struct {
	mu        sync.Mutex
	lastReq   service.StockDataRequest
	lastToken string
	err       error
}

func (s *stubStockReporter) Report(ctx context.Context, req service.StockDataRequest, token string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastReq = req
	s.lastToken = token
	if s.err != nil {
		return "", s.err
	}
	return "# " + req.Code + " daily bars", nil
}

func (s *stubStockReporter) token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastToken
}

type stubCompanyReporter struct {
	lastReq   service.CompanyPerformanceRequest
	lastToken string
}

func (s *stubCompanyReporter) Report(ctx context.Context, req service.CompanyPerformanceRequest, token string) (string, error) {
	s.lastReq = req
	s.lastToken = token
	if req.DataType == "" {
		return "", errors.New("data_type is required")
	}
	return "# " + req.TSCode + " " + req.DataType, nil
}

type recordingToolObserver struct {
	mu    sync.Mutex
	calls []string
}

func (o *recordingToolObserver) ObserveToolCall(tool string, failed bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	status := "ok"
	if failed {
		status = "error"
	}
	o.calls = append(o.calls, tool+":"+status)
}

func (o *recordingToolObserver) snapshot() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.calls...)
}

var fixedNow = time.Date(2024, 3, 15, 2, 30, 0, 0, time.UTC)

func testServer() (*sdkmcp.Server, *stubStockReporter, *stubCompanyReporter, *recordingToolObserver) {
	stock := &stubStockReporter{}
	company := &stubCompanyReporter{}
	observer := &recordingToolObserver{}
	srv := NewServer(nil, stock, company, observer, ServerConfig{
		RequestTimeout: time.Second,
		DefaultToken:   "env-token",
		Now:            func() time.Time { return fixedNow },
	})
	return srv, stock, company, observer
}

func connectInMemory(ctx context.Context, srv *sdkmcp.Server) (*sdkmcp.ClientSession, context.CancelFunc, error) {
	clientTransport, serverTransport := sdkmcp.NewInMemoryTransports()
	runCtx, cancel := context.WithCancel(ctx)
	go func() { _ = srv.Run(runCtx, serverTransport) }()

	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "mcp-test-client", Version: "1.0.0"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		cancel()
		return nil, nil, err
	}
	return session, cancel, nil
}

type headerRoundTripper struct {
	headers map[string]string
	base    http.RoundTripper
}

func (t *headerRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	for k, v := range t.headers {
		clone.Header.Set(k, v)
	}
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(clone)
}

func decodeResourceJSON(result *sdkmcp.ReadResourceResult, out any) error {
	if len(result.Contents) == 0 {
		return nil
	}
	return json.Unmarshal([]byte(result.Contents[0].Text), out)
}

func toolText(res *sdkmcp.CallToolResult) string {
	if res == nil || len(res.Content) == 0 {
		return ""
	}
	if text, ok := res.Content[0].(*sdkmcp.TextContent); ok {
		return text.Text
	}
	return ""
}
