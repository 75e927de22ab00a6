package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"finance-mcp/internal/cache"
	"finance-mcp/internal/config"
	"finance-mcp/internal/handler"
	mcpserver "finance-mcp/internal/mcp"
	"finance-mcp/internal/metrics"
	"finance-mcp/internal/provider"
	"finance-mcp/internal/service"
	"finance-mcp/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/trace"
)

const defaultMCPHTTPMaxBodyBytes int64 = 1 << 20 // 1MiB

var (
	loadEnvFunc       = godotenv.Load
	loadConfigFunc    = config.Load
	initTracerFunc    = tracing.InitTracer
	connectRedisFunc  = cache.Connect
	newMetricsFunc    = metrics.New
	newMCPServerFunc  = mcpserver.NewServer
	newMCPHandlerFunc = mcpserver.NewHTTPTransportHandler
	newRouterFunc     = gin.Default
	runStdioFunc      = func(ctx context.Context, server *sdkmcp.Server) error {
		return server.Run(ctx, &sdkmcp.StdioTransport{})
	}
	startHTTPServerFunc  = func(srv *http.Server) error { return srv.ListenAndServe() }
	shutdownHTTPServerFn = func(srv *http.Server, ctx context.Context) error { return srv.Shutdown(ctx) }
	setupSignalNotify    = ossignal.Notify
	waitForSignalFunc    = func(quit <-chan os.Signal) { <-quit }
)

func main() {
	_ = loadEnvFunc()
	cfg := loadConfigFunc()

	// stdout belongs to the stdio transport.
	gin.DefaultWriter = os.Stderr

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tp, tracer, err := initTracerFunc(ctx)
	if err != nil {
		log.Fatalf("failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			log.Printf("error shutting down tracer provider: %v", err)
		}
	}()

	m := newMetricsFunc()

	redisClient := connectCache(ctx, cfg)
	if redisClient != nil {
		defer redisClient.Close()
	}

	mcpSrv := buildMCPServer(tracer, cfg, m, redisClient)

	switch cfg.MCPTransport {
	case "http":
		if err := runHTTPMode(ctx, cancel, cfg, mcpSrv, m); err != nil {
			log.Fatalf("mcp http server failed: %v", err)
		}
	default:
		if cfg.MCPHTTPEnabled {
			srv := startHTTPServer(cfg, mcpSrv, m)
			defer func() {
				if err := shutdownHTTP(srv); err != nil {
					log.Printf("%v", err)
				}
			}()
		}
		// Returning lets the deferred sidecar shutdown and tracer flush run.
		if err := runStdioFunc(ctx, mcpSrv); err != nil {
			log.Printf("mcp stdio server failed: %v", err)
			return
		}
	}
}

func connectCache(ctx context.Context, cfg *config.Config) *redis.Client {
	if cfg.RedisURL == "" {
		return nil
	}
	client, err := connectRedisFunc(ctx, cfg.RedisURL)
	if err != nil {
		log.Printf("Warning: redis unavailable, bar cache disabled: %v", err)
		return nil
	}
	return client
}

func buildMCPServer(tracer trace.Tracer, cfg *config.Config, m *metrics.Metrics, redisClient *redis.Client) *sdkmcp.Server {
	tushare := provider.NewTushareClient(cfg.TushareAPIURL, cfg.UpstreamTimeout(), m)
	binance := provider.NewBinanceClient(cfg.BinanceAPIURL, cfg.UpstreamTimeout(), m)
	router := provider.NewRouter(tushare, binance)

	var barCache service.BarCache
	if redisClient != nil {
		barCache = cache.NewBarCache(redisClient, cfg.CacheTTL())
	}

	stock := service.NewStockDataService(tracer, router, barCache, m)
	company := service.NewCompanyPerformanceService(tracer, router)

	return newMCPServerFunc(tracer, stock, company, m, mcpserver.ServerConfig{
		RequestTimeout: cfg.RequestTimeout(),
		DefaultToken:   cfg.TushareToken,
		AuthGated:      cfg.MCPAuthToken != "",
	})
}

func newHTTPServer(cfg *config.Config, mcpSrv *sdkmcp.Server, m *metrics.Metrics) *http.Server {
	mcpHandler := newMCPHandlerFunc(mcpSrv, mcpserver.HTTPHandlerConfig{
		AuthToken:       cfg.MCPAuthToken,
		RateLimitPerMin: cfg.MCPRateLimitPerMin,
		MaxBodyBytes:    defaultMCPHTTPMaxBodyBytes,
	})

	r := newRouterFunc()
	r.Use(otelgin.Middleware(tracing.ServiceName))
	r.Use(handler.CORS())
	handler.New(cfg.MCPTransport, mcpHandler, m.Handler()).RegisterRoutes(r)

	addr := net.JoinHostPort(cfg.MCPHTTPBind, fmt.Sprintf("%d", cfg.MCPHTTPPort))
	return &http.Server{Addr: addr, Handler: r}
}

func startHTTPServer(cfg *config.Config, mcpSrv *sdkmcp.Server, m *metrics.Metrics) *http.Server {
	srv := newHTTPServer(cfg, mcpSrv, m)
	if cfg.MCPAuthToken == "" {
		log.Printf("Warning: MCP_AUTH_TOKEN not set, %s/mcp is open", srv.Addr)
	}
	go func() {
		log.Printf("MCP HTTP transport listening on %s", srv.Addr)
		if err := startHTTPServerFunc(srv); err != nil && err != http.ErrServerClosed {
			log.Printf("mcp http server failed: %v", err)
		}
	}()
	return srv
}

func shutdownHTTP(srv *http.Server) error {
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := shutdownHTTPServerFn(srv, shutdownCtx); err != nil {
		return fmt.Errorf("mcp server forced to shutdown: %w", err)
	}
	return nil
}

func runHTTPMode(ctx context.Context, cancel context.CancelFunc, cfg *config.Config, mcpSrv *sdkmcp.Server, m *metrics.Metrics) error {
	if cfg.MCPHTTPPort <= 0 {
		return fmt.Errorf("MCP_HTTP_PORT must be positive when MCP_TRANSPORT=http")
	}
	srv := startHTTPServer(cfg, mcpSrv, m)

	quit := make(chan os.Signal, 1)
	setupSignalNotify(quit, syscall.SIGINT, syscall.SIGTERM)
	waitForSignalFunc(quit)
	log.Println("Shutting down MCP HTTP transport...")
	cancel()

	return shutdownHTTP(srv)
}
