// Package server wires the rerank HTTP API: routing, middleware, and
// lifecycle.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	reranker "github.com/soundprediction/go-reranker"
	"github.com/soundprediction/go-reranker/pkg/config"
	"github.com/soundprediction/go-reranker/pkg/server/handlers"
)

// Server hosts the rerank HTTP API.
type Server struct {
	cfg    *config.Config
	svc    *reranker.Service
	logger *slog.Logger
	engine *gin.Engine
	http   *http.Server
}

// New creates a server for the given service.
func New(cfg *config.Config, svc *reranker.Service, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{cfg: cfg, svc: svc, logger: logger}
}

// Setup builds the router and middleware. Call once before Start.
func (s *Server) Setup() {
	gin.SetMode(s.cfg.Server.Mode)

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(RequestID())
	engine.Use(CORS())
	engine.Use(s.requestLogger())

	healthHandler := handlers.NewHealthHandler(s.svc)
	rerankHandler := handlers.NewRerankHandler(s.svc, s.logger)

	engine.GET("/", healthHandler.Root)
	engine.GET("/health", healthHandler.HealthCheck)
	engine.POST("/rerank", rerankHandler.RerankSingle)
	engine.POST("/rerank/batch", rerankHandler.RerankBatch)
	engine.POST("/rerank/query", rerankHandler.RerankQuery)

	s.engine = engine
	s.http = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port),
		Handler: engine,
	}
}

// Start serves until Shutdown or a listener error.
func (s *Server) Start() error {
	s.logger.Info("starting rerank service", "addr", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// Engine exposes the router for tests.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// RequestID assigns each request an identifier, honoring one supplied by
// the caller.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Writer.Header().Set("X-Request-ID", id)
		c.Next()
	}
}

// CORS allows cross-origin browser access to the scoring endpoints.
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		s.logger.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
			"request_id", c.GetString("request_id"))
	}
}
