package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	accounthttp "github.com/wyfcoding/paperbroker/internal/account/interfaces/http"
	ledgerdomain "github.com/wyfcoding/paperbroker/internal/ledger/domain"
	marketdomain "github.com/wyfcoding/paperbroker/internal/marketdata/domain"
	"github.com/wyfcoding/paperbroker/internal/trading/application"
	"github.com/wyfcoding/paperbroker/internal/trading/domain"
	"github.com/wyfcoding/paperbroker/pkg/logger"
)

// TradeHandler HTTP 处理器
type TradeHandler struct {
	trades *application.TradeService
}

// NewTradeHandler 创建 HTTP 处理器
func NewTradeHandler(trades *application.TradeService) *TradeHandler {
	return &TradeHandler{trades: trades}
}

// RegisterRoutes 注册路由，全部要求已认证
func (h *TradeHandler) RegisterRoutes(router *gin.Engine, auth gin.HandlerFunc) {
	api := router.Group("/api/v1", auth)
	{
		api.POST("/buy", h.Buy)
		api.POST("/sell", h.Sell)
		api.GET("/symbols", h.HeldSymbols)
	}
}

// TradeRequest 买卖请求
type TradeRequest struct {
	Symbol string `json:"symbol" binding:"required"`
	Shares int64  `json:"shares" binding:"required"`
}

// Buy 买入
func (h *TradeHandler) Buy(c *gin.Context) {
	h.execute(c, h.trades.Buy)
}

// Sell 卖出
func (h *TradeHandler) Sell(c *gin.Context) {
	h.execute(c, h.trades.Sell)
}

func (h *TradeHandler) execute(c *gin.Context, op func(ctx context.Context, userID uint, symbol string, shares int64) (*application.TradeResult, error)) {
	var req TradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := accounthttp.CurrentUserID(c)
	result, err := op(c.Request.Context(), userID, req.Symbol, req.Shares)
	if err != nil {
		status, msg := tradeError(err)
		if status == http.StatusInternalServerError {
			logger.Error(c.Request.Context(), "trade failed", "user_id", userID, "symbol", req.Symbol, "error", err)
		}
		c.JSON(status, gin.H{"error": msg})
		return
	}

	c.JSON(http.StatusOK, result)
}

// HeldSymbols 当前净持仓大于零的标的列表
func (h *TradeHandler) HeldSymbols(c *gin.Context) {
	symbols, err := h.trades.HeldSymbols(c.Request.Context(), accounthttp.CurrentUserID(c))
	if err != nil {
		logger.Error(c.Request.Context(), "failed to list held symbols", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list symbols"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"symbols": symbols})
}

// tradeError 把领域错误映射为 HTTP 状态码与展示信息
func tradeError(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidShares),
		errors.Is(err, domain.ErrInvalidSymbol):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrInsufficientFunds):
		return http.StatusBadRequest, "insufficient funds"
	case errors.Is(err, domain.ErrInsufficientShares):
		return http.StatusBadRequest, "insufficient shares"
	case errors.Is(err, marketdomain.ErrUnknownSymbol):
		return http.StatusBadRequest, "invalid symbol"
	case errors.Is(err, marketdomain.ErrUnavailable):
		return http.StatusServiceUnavailable, "price source unavailable, try again"
	case errors.Is(err, ledgerdomain.ErrStorage):
		return http.StatusInternalServerError, "storage unavailable"
	default:
		return http.StatusInternalServerError, "trade failed"
	}
}
