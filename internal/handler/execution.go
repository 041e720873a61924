package handler

import (
	"errors"
	"net/http"
	"strings"

	"strategy-desk/internal/execution"
	"strategy-desk/internal/service"

	"github.com/gin-gonic/gin"
)

// AuthUserHeader carries the authenticated caller's user id, set by the fronting gateway.
const AuthUserHeader = "X-User-ID"

// ClassifyExecution godoc
// @Summary      Classify a trade intent
// @Description  Derives authority, intent and target for a trade and resolves which user id owns its ledger rows.
// @Tags         execution
// @Accept       json
// @Produce      json
// @Param        X-User-ID  header  string               false  "Authenticated user id"
// @Param        intent     body    service.TradeIntent  true   "Trade intent"
// @Success      200  {object}  service.Decision
// @Failure      400  {object}  map[string]string
// @Failure      422  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Router       /api/execution/classify [post]
func (h *Handler) ClassifyExecution(c *gin.Context) {
	if h.executionService == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "execution service unavailable"})
		return
	}

	ctx, span := h.tracer.Start(c.Request.Context(), "handler.classify-execution")
	defer span.End()

	var intent service.TradeIntent
	if err := c.ShouldBindJSON(&intent); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	decision, err := h.executionService.Decide(ctx, intent, strings.TrimSpace(c.GetHeader(AuthUserHeader)))
	switch {
	case errors.Is(err, execution.ErrIdentityUnresolvable):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	case err != nil:
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, decision)
}
