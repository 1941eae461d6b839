// Package hostapi exposes the engine bridge to host applications over HTTP
// and a websocket.
package hostapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/park285/cheese-engine-bridge/pkg/bridgedto"
)

type Handlers struct {
	engine    Engine
	reviews   Reviews
	limiter   *rate.Limiter
	maxReview int
	wsWorkers int
	logger    *zap.Logger

	table map[string]func(context.Context, json.RawMessage) (any, error)
}

func NewHandlers(engine Engine, reviews Reviews, cfg Config) *Handlers {
	cfg = cfg.withDefaults()
	h := &Handlers{
		engine:    engine,
		reviews:   reviews,
		maxReview: cfg.MaxReviewPositions,
		wsWorkers: cfg.WSConcurrency,
		logger:    cfg.Logger,
	}
	if cfg.RateLimit > 0 {
		h.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst)
	}
	h.table = h.ops()
	return h
}

// RegisterRoutes mounts the API under v1.
func RegisterRoutes(v1 *gin.RouterGroup, h *Handlers) {
	limited := v1.Group("", h.rateLimit)
	limited.GET("/capabilities", h.GetCapabilities)
	limited.POST("/strength", h.SetStrength)
	limited.POST("/analyze", h.Analyze)
	limited.POST("/review", h.Review)
	limited.GET("/reviews/:id", h.GetReview)
	limited.GET("/opening", h.Opening)
	limited.POST("/quit", h.Quit)

	// per-message limiting happens inside the socket
	v1.GET("/ws", h.WebSocket)
}

func (h *Handlers) GetCapabilities(c *gin.Context) {
	out, err := h.capabilities(c.Request.Context())
	h.respond(c, out, err)
}

func (h *Handlers) SetStrength(c *gin.Context) {
	var req bridgedto.StrengthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, invalidRequest(err.Error()))
		return
	}
	out, err := h.strength(c.Request.Context(), req)
	h.respond(c, out, err)
}

func (h *Handlers) Analyze(c *gin.Context) {
	var req bridgedto.AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, invalidRequest(err.Error()))
		return
	}
	out, err := h.analyze(c.Request.Context(), req)
	h.respond(c, out, err)
}

func (h *Handlers) Review(c *gin.Context) {
	var req bridgedto.ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, invalidRequest(err.Error()))
		return
	}
	out, err := h.review(c.Request.Context(), req)
	h.respond(c, out, err)
}

func (h *Handlers) GetReview(c *gin.Context) {
	out, err := h.reviewGet(c.Request.Context(), c.Param("id"))
	h.respond(c, out, err)
}

func (h *Handlers) Opening(c *gin.Context) {
	out, err := h.opening(c.Query("fen"))
	h.respond(c, out, err)
}

func (h *Handlers) Quit(c *gin.Context) {
	out, err := h.quit(c.Request.Context())
	h.respond(c, out, err)
}

func (h *Handlers) respond(c *gin.Context, out any, err error) {
	if err != nil {
		status, body := classify(err)
		if status >= http.StatusInternalServerError {
			h.logger.Warn("request_failed", zap.String("path", c.FullPath()), zap.Int("status", status), zap.Error(err))
		}
		c.JSON(status, body)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handlers) rateLimit(c *gin.Context) {
	if h.limiter != nil && !h.limiter.Allow() {
		status, body := classify(errRateLimited)
		c.AbortWithStatusJSON(status, body)
		return
	}
	c.Next()
}
