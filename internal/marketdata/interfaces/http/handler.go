package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/wyfcoding/paperbroker/internal/marketdata/application"
	"github.com/wyfcoding/paperbroker/internal/marketdata/domain"
	"github.com/wyfcoding/paperbroker/pkg/logger"
)

// QuoteHandler HTTP 处理器
type QuoteHandler struct {
	quotes *application.QuoteService
}

// NewQuoteHandler 创建 HTTP 处理器
func NewQuoteHandler(quotes *application.QuoteService) *QuoteHandler {
	return &QuoteHandler{quotes: quotes}
}

// RegisterRoutes 注册路由，要求已认证
func (h *QuoteHandler) RegisterRoutes(router *gin.Engine, auth gin.HandlerFunc) {
	api := router.Group("/api/v1", auth)
	{
		api.GET("/quote", h.Quote)
	}
}

// Quote 查询标的现价
func (h *QuoteHandler) Quote(c *gin.Context) {
	symbol := strings.TrimSpace(c.Query("symbol"))
	if symbol == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol is required"})
		return
	}

	quote, err := h.quotes.Lookup(c.Request.Context(), symbol)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUnknownSymbol):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid symbol"})
		case errors.Is(err, domain.ErrUnavailable):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "price source unavailable, try again"})
		default:
			logger.Error(c.Request.Context(), "quote lookup failed", "symbol", symbol, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "quote lookup failed"})
		}
		return
	}

	c.JSON(http.StatusOK, quote)
}
