// Package api exposes a bridge node over HTTP: the websocket message
// channel, health and node info endpoints, and Prometheus metrics.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ZentaChain/zentalk-toxbridge/pkg/bridge"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	jww "github.com/spf13/jwalterweatherman"
)

// Server represents the HTTP front of one bridge node
type Server struct {
	node       *bridge.Node
	router     *gin.Engine
	config     *Config
	upgrader   websocket.Upgrader
	httpServer *http.Server
}

// Config holds server configuration
type Config struct {
	Port         int
	EnableCORS   bool
	RateLimit    float64 // Requests per second per client
	RateBurst    int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// PingInterval is how often idle websocket clients are pinged. A client
	// that stays silent for two intervals is dropped.
	PingInterval time.Duration
	// Gatherer serves /metrics. Nil disables the endpoint.
	Gatherer prometheus.Gatherer
}

// DefaultConfig returns default server configuration
func DefaultConfig() *Config {
	return &Config{
		Port:         8080,
		EnableCORS:   true,
		RateLimit:    20,
		RateBurst:    40,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		PingInterval: 30 * time.Second,
	}
}

// NewServer creates a new HTTP API server
func NewServer(node *bridge.Node, config *Config) *Server {
	if config == nil {
		config = DefaultConfig()
	}

	gin.SetMode(gin.ReleaseMode)

	server := &Server{
		node:   node,
		router: gin.New(),
		config: config,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
	}
	if config.EnableCORS {
		server.upgrader.CheckOrigin = func(*http.Request) bool { return true }
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

// Handler returns the router, for embedding and tests
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(LoggingMiddleware())

	if s.config.EnableCORS {
		s.router.Use(CORSMiddleware())
	}

	if s.config.RateLimit > 0 {
		s.router.Use(RateLimitMiddleware(NewRateLimiter(s.config.RateLimit, s.config.RateBurst)))
	}
}

func (s *Server) setupRoutes() {
	s.router.GET("/ws", s.handleWebSocket)
	s.router.GET("/health", s.handleHealth)

	v1 := s.router.Group("/api/v1")
	{
		node := v1.Group("/node")
		{
			node.GET("/info", s.handleNodeInfo)
		}
	}

	if s.config.Gatherer != nil {
		s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.config.Gatherer, promhttp.HandlerOpts{})))
	}
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	failed := make(chan error, 1)
	go func() {
		jww.INFO.Printf("HTTP API listening on port %d", s.config.Port)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			failed <- err
		}
		close(failed)
	}()

	select {
	case err := <-failed:
		return err
	case <-ctx.Done():
	}

	jww.INFO.Println("Shutting down HTTP API")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return s.httpServer.Shutdown(shutdownCtx)
}
