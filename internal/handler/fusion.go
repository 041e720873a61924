package handler

import (
	"net/http"

	"strategy-desk/internal/service"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// GetFusionScore godoc
// @Summary      Get the fused signal score
// @Description  Combines recent live signals for a symbol into one score in [-100, 100]. degraded is true when a lookup failed and the score was zeroed.
// @Tags         fusion
// @Produce      json
// @Param        symbol       path   string  true   "Trading pair (e.g., BTC-EUR)"
// @Param        strategy_id  query  string  false  "Strategy UUID for weight overrides"
// @Param        horizon      query  string  false  "15m, 1h, 4h or 24h"  default(1h)
// @Param        side         query  string  false  "BUY or SELL"
// @Success      200  {object}  service.FusionScore
// @Failure      400  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Router       /api/fusion/{symbol} [get]
func (h *Handler) GetFusionScore(c *gin.Context) {
	if h.fusionService == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "fusion service unavailable"})
		return
	}

	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-fusion-score")
	defer span.End()
	span.SetAttributes(attribute.String("symbol", c.Param("symbol")))

	score, err := h.fusionService.Score(ctx, service.FusionQuery{
		Symbol:     c.Param("symbol"),
		StrategyID: c.Query("strategy_id"),
		Side:       c.Query("side"),
		Horizon:    c.Query("horizon"),
	})
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, score)
}

// GetFusionRegistry godoc
// @Summary      List the signal registry
// @Tags         fusion
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      500  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Router       /api/fusion/registry [get]
func (h *Handler) GetFusionRegistry(c *gin.Context) {
	if h.fusionService == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "fusion service unavailable"})
		return
	}

	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-fusion-registry")
	defer span.End()

	entries, err := h.fusionService.Registry(ctx)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}
