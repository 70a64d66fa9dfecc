// Package iex 提供 IEX 风格报价 API 的 HTTP 客户端实现。
package iex

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	"github.com/wyfcoding/paperbroker/internal/marketdata/domain"
	"github.com/wyfcoding/paperbroker/pkg/logger"
)

// Config 客户端配置
type Config struct {
	// API 基础地址，如 https://cloud.iexapis.com/stable
	BaseURL string
	// API token
	Token string
	// 单次查询超时
	Timeout time.Duration
}

// Client 基于 resty 的报价客户端
type Client struct {
	http  *resty.Client
	token string
}

// quoteResponse /stock/{symbol}/quote 的响应体
type quoteResponse struct {
	Symbol      string  `json:"symbol"`
	CompanyName string  `json:"companyName"`
	LatestPrice float64 `json:"latestPrice"`
}

// NewClient 创建报价客户端
func NewClient(cfg Config) *Client {
	httpClient := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout)

	return &Client{
		http:  httpClient,
		token: cfg.Token,
	}
}

// Lookup 实现 domain.Oracle。404 映射为 ErrUnknownSymbol，
// 传输错误、超时与 5xx 映射为 ErrUnavailable
func (c *Client) Lookup(ctx context.Context, symbol string) (*domain.Quote, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	var body quoteResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("token", c.token).
		SetResult(&body).
		Get(fmt.Sprintf("/stock/%s/quote", symbol))
	if err != nil {
		logger.Warn(ctx, "oracle request failed", "symbol", symbol, "error", err)
		return nil, fmt.Errorf("%w: %v", domain.ErrUnavailable, err)
	}

	switch {
	case resp.StatusCode() == 404:
		return nil, domain.ErrUnknownSymbol
	case resp.IsError():
		logger.Warn(ctx, "oracle returned error status", "symbol", symbol, "status", resp.StatusCode())
		return nil, fmt.Errorf("%w: status %d", domain.ErrUnavailable, resp.StatusCode())
	}

	price := decimal.NewFromFloat(body.LatestPrice)
	if !price.IsPositive() {
		// 上游偶尔对已退市标的返回 0 价格
		return nil, domain.ErrUnknownSymbol
	}

	return &domain.Quote{
		Symbol: symbol,
		Name:   body.CompanyName,
		Price:  price,
	}, nil
}
