package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	accounthttp "github.com/wyfcoding/paperbroker/internal/account/interfaces/http"
	ledgerdomain "github.com/wyfcoding/paperbroker/internal/ledger/domain"
	"github.com/wyfcoding/paperbroker/internal/portfolio/application"
	"github.com/wyfcoding/paperbroker/internal/portfolio/domain"
	"github.com/wyfcoding/paperbroker/pkg/logger"
)

// PortfolioHandler HTTP 处理器
type PortfolioHandler struct {
	portfolios *application.PortfolioService
}

// NewPortfolioHandler 创建 HTTP 处理器
func NewPortfolioHandler(portfolios *application.PortfolioService) *PortfolioHandler {
	return &PortfolioHandler{portfolios: portfolios}
}

// RegisterRoutes 注册路由，全部要求已认证
func (h *PortfolioHandler) RegisterRoutes(router *gin.Engine, auth gin.HandlerFunc) {
	api := router.Group("/api/v1", auth)
	{
		api.GET("/portfolio", h.Portfolio)
		api.GET("/history", h.History)
	}
}

// Portfolio 返回当前持仓估值与净值
func (h *PortfolioHandler) Portfolio(c *gin.Context) {
	userID := accounthttp.CurrentUserID(c)
	valuation, err := h.portfolios.Valuate(c.Request.Context(), userID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrValuation):
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		case errors.Is(err, ledgerdomain.ErrStorage):
			c.JSON(http.StatusInternalServerError, gin.H{"error": "storage unavailable"})
		default:
			logger.Error(c.Request.Context(), "valuation failed", "user_id", userID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "valuation failed"})
		}
		return
	}
	c.JSON(http.StatusOK, valuation)
}

// transactionView 流水展示行
type transactionView struct {
	Symbol    string `json:"symbol"`
	Shares    int64  `json:"shares"`
	Price     string `json:"price"`
	Timestamp string `json:"timestamp"`
}

// History 按写入顺序返回成交流水
func (h *PortfolioHandler) History(c *gin.Context) {
	userID := accounthttp.CurrentUserID(c)
	txs, err := h.portfolios.History(c.Request.Context(), userID)
	if err != nil {
		logger.Error(c.Request.Context(), "failed to load history", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load history"})
		return
	}

	views := make([]transactionView, len(txs))
	for i, tx := range txs {
		views[i] = transactionView{
			Symbol:    tx.Symbol,
			Shares:    tx.Shares,
			Price:     tx.Price.String(),
			Timestamp: tx.CreatedAt.Format("2006-01-02 15:04:05"),
		}
	}
	c.JSON(http.StatusOK, gin.H{"transactions": views})
}
