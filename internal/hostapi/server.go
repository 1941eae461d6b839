package hostapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type Config struct {
	Addr string
	// RateLimit is requests per second across all callers; 0 disables it.
	RateLimit          float64
	RateBurst          int
	MaxReviewPositions int
	// WSConcurrency bounds in-flight requests per websocket.
	WSConcurrency int
	Logger        *zap.Logger
}

func (c Config) withDefaults() Config {
	if c.Addr == "" {
		c.Addr = ":7878"
	}
	if c.RateBurst <= 0 {
		c.RateBurst = 20
	}
	if c.MaxReviewPositions <= 0 {
		c.MaxReviewPositions = defaultMaxReviewPositions
	}
	if c.WSConcurrency <= 0 {
		c.WSConcurrency = 4
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	return c
}

var requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "engine_bridge_http_request_duration_seconds",
	Help:    "Host API request latency by route and status.",
	Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
}, []string{"route", "status"})

type Server struct {
	cfg    Config
	router *gin.Engine
	logger *zap.Logger
}

func NewServer(engine Engine, reviews Reviews, cfg Config) *Server {
	cfg = cfg.withDefaults()
	r := gin.New()
	r.Use(gin.Recovery(), accessLog(cfg.Logger))

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	RegisterRoutes(r.Group("/v1"), NewHandlers(engine, reviews, cfg))

	return &Server{cfg: cfg, router: r, logger: cfg.Logger}
}

func (s *Server) Handler() http.Handler { return s.router }

// Run serves until ctx is done, then drains for up to ten seconds.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http_listen", zap.String("addr", s.cfg.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.logger.Info("http_stopped")
	return nil
}

func accessLog(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		elapsed := time.Since(start)
		requestDuration.WithLabelValues(route, strconv.Itoa(status)).Observe(elapsed.Seconds())
		if route == "/metrics" || route == "/healthz" {
			return
		}
		logger.Debug("http_request",
			zap.String("method", c.Request.Method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Duration("elapsed", elapsed),
		)
	}
}
