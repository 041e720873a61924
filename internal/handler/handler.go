package handler

import (
	"net/http"
	"time"

	"strategy-desk/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/trace"
)

const defaultStreamInterval = 5 * time.Second

type Handler struct {
	tracer           trace.Tracer
	priceService     *service.PriceService
	fusionService    *service.FusionService
	executionService *service.ExecutionService

	upgrader       websocket.Upgrader
	streamInterval time.Duration
}

func New(
	tracer trace.Tracer,
	priceService *service.PriceService,
	fusionService *service.FusionService,
	executionService *service.ExecutionService,
) *Handler {
	return &Handler{
		tracer:           tracer,
		priceService:     priceService,
		fusionService:    fusionService,
		executionService: executionService,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		streamInterval: defaultStreamInterval,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Health)
	r.GET("/api/prices", h.GetPrices)
	r.GET("/api/prices/:symbol/cached", h.GetCachedPrice)
	r.DELETE("/api/prices/cache", h.FlushPriceCache)
	r.GET("/api/fusion/registry", h.GetFusionRegistry)
	r.GET("/api/fusion/:symbol", h.GetFusionScore)
	r.POST("/api/execution/classify", h.ClassifyExecution)
	r.GET("/ws/prices", h.StreamPrices)
}

// Health godoc
// @Summary      Liveness check
// @Tags         health
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
