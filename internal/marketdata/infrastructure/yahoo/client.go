// Package yahoo 提供基于 Yahoo Finance 的行情源实现。
package yahoo

import (
	"context"
	"fmt"
	"strings"
	"time"

	finance "github.com/piquette/finance-go"
	"github.com/piquette/finance-go/quote"
	"github.com/shopspring/decimal"

	"github.com/wyfcoding/paperbroker/internal/marketdata/domain"
	"github.com/wyfcoding/paperbroker/pkg/logger"
)

// Client Yahoo Finance 行情客户端
type Client struct {
	timeout time.Duration
}

// NewClient 创建 Yahoo 行情客户端
func NewClient(timeout time.Duration) *Client {
	return &Client{timeout: timeout}
}

// Lookup 实现 domain.Oracle。
// finance-go 不接受 context，这里用 goroutine 包一层以保证有限超时
func (c *Client) Lookup(ctx context.Context, symbol string) (*domain.Quote, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	type result struct {
		q   *finance.Quote
		err error
	}
	ch := make(chan result, 1)
	go func() {
		q, err := quote.Get(symbol)
		ch <- result{q: q, err: err}
	}()

	select {
	case <-ctx.Done():
		logger.Warn(ctx, "oracle lookup timed out", "symbol", symbol)
		return nil, fmt.Errorf("%w: %v", domain.ErrUnavailable, ctx.Err())
	case res := <-ch:
		if res.err != nil {
			logger.Warn(ctx, "oracle request failed", "symbol", symbol, "error", res.err)
			return nil, fmt.Errorf("%w: %v", domain.ErrUnavailable, res.err)
		}
		if res.q == nil || res.q.RegularMarketPrice <= 0 {
			return nil, domain.ErrUnknownSymbol
		}

		name := res.q.ShortName
		if name == "" {
			name = symbol
		}
		return &domain.Quote{
			Symbol: symbol,
			Name:   name,
			Price:  decimal.NewFromFloat(res.q.RegularMarketPrice),
		}, nil
	}
}
