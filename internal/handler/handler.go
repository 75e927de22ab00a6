package handler

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

var allowedHeaders = []string{
	"Content-Type", "Accept", "Authorization", "Mcp-Session-Id", "Last-Event-ID",
	"X-Api-Key", "X-Tushare-Token",
}

// Handler serves the HTTP shell around the MCP streamable transport.
type Handler struct {
	transport string
	mcp       http.Handler
	metrics   http.Handler
}

func New(transport string, mcpHandler, metricsHandler http.Handler) *Handler {
	return &Handler{
		transport: transport,
		mcp:       mcpHandler,
		metrics:   metricsHandler,
	}
}

// CORS lets browser MCP clients reach /mcp and read the session header.
func CORS() gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders:    allowedHeaders,
		ExposeHeaders:   []string{"Mcp-Session-Id"},
	})
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Health)
	if h.mcp != nil {
		r.Any("/mcp", gin.WrapH(h.mcp))
	}
	r.GET("/mcp/terminate", h.Terminate)
	r.POST("/mcp/terminate", h.Terminate)
	r.GET("/terminate", h.Terminate)
	r.POST("/terminate", h.Terminate)
	if h.metrics != nil {
		r.GET("/metrics", gin.WrapH(h.metrics))
	}
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "transport": h.transport})
}

// Terminate acknowledges clients that end sessions out of band.
func (h *Handler) Terminate(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
