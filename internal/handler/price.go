package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"strategy-desk/internal/domain"
	"strategy-desk/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
)

// GetPrices godoc
// @Summary      Get current prices
// @Description  Resolves prices through the cache, the live ticker or the last snapshot. Symbols with no price are listed under missing.
// @Tags         prices
// @Produce      json
// @Param        symbols  query  string  false  "Comma separated pairs (e.g., BTC-EUR,ETH-EUR). Defaults to the supported list."
// @Success      200  {object}  service.PriceResult
// @Failure      400  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Router       /api/prices [get]
func (h *Handler) GetPrices(c *gin.Context) {
	if h.priceService == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "price service unavailable"})
		return
	}

	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-prices")
	defer span.End()

	symbols := splitSymbols(c.Query("symbols"))
	span.SetAttributes(attribute.Int("requested", len(symbols)))

	result, err := h.priceService.GetPrices(ctx, symbols)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetCachedPrice godoc
// @Summary      Get a cached price
// @Description  Returns the cached quote for a symbol while it is fresh. Never calls the upstream ticker.
// @Tags         prices
// @Produce      json
// @Param        symbol  path  string  true  "Trading pair (e.g., BTC-EUR)"
// @Success      200  {object}  domain.Quote
// @Failure      404  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Router       /api/prices/{symbol}/cached [get]
func (h *Handler) GetCachedPrice(c *gin.Context) {
	if h.priceService == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "price service unavailable"})
		return
	}

	symbol := domain.NormalizeSymbol(c.Param("symbol"))
	quote, ok := h.priceService.GetCached(symbol)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no cached price for " + symbol})
		return
	}
	c.JSON(http.StatusOK, quote)
}

// FlushPriceCache godoc
// @Summary      Drop cached prices
// @Description  Invalidates the cached quote for one symbol, or empties the whole cache when no symbol is given. The next read goes to the ticker.
// @Tags         prices
// @Produce      json
// @Param        symbol  query  string  false  "Trading pair to invalidate (e.g., BTC-EUR). Omit to flush every entry."
// @Success      200  {object}  map[string]string
// @Failure      400  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Router       /api/prices/cache [delete]
func (h *Handler) FlushPriceCache(c *gin.Context) {
	if h.priceService == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "price service unavailable"})
		return
	}

	symbol := domain.NormalizeSymbol(c.Query("symbol"))
	if symbol == "" {
		h.priceService.Flush()
		c.JSON(http.StatusOK, gin.H{"flushed": "all"})
		return
	}
	if err := h.priceService.Invalidate(symbol); err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"flushed": symbol})
}

// StreamPrices godoc
// @Summary      Stream prices over a websocket
// @Description  Upgrades to a websocket and pushes {prices, missing} for the requested symbols on a fixed interval.
// @Tags         prices
// @Param        symbols  query  string  false  "Comma separated pairs. Defaults to the supported list."
// @Success      101
// @Failure      400  {object}  map[string]string
// @Router       /ws/prices [get]
func (h *Handler) StreamPrices(c *gin.Context) {
	if h.priceService == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "price service unavailable"})
		return
	}
	symbols := splitSymbols(c.Query("symbols"))

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	ctx := c.Request.Context()

	// Drain client frames so close messages are noticed.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(h.streamInterval)
	defer ticker.Stop()

	for {
		result, err := h.priceService.GetPrices(ctx, symbols)
		if err != nil {
			_ = conn.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.ClosePolicyViolation, err.Error()),
				time.Now().Add(time.Second),
			)
			return
		}
		_ = conn.SetWriteDeadline(time.Now().Add(h.streamInterval))
		if err := conn.WriteJSON(result); err != nil {
			log.Debug().Err(err).Msg("websocket write failed, closing stream")
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-closed:
			return
		case <-ticker.C:
		}
	}
}

func splitSymbols(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
