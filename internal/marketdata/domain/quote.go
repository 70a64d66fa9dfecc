// 包 domain 行情查询的领域模型
package domain

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

var (
	// ErrUnknownSymbol 行情源明确表示标的不存在；与瞬时故障区分
	ErrUnknownSymbol = errors.New("unknown symbol")
	// ErrUnavailable 行情源瞬时不可用，可以重试
	ErrUnavailable = errors.New("price oracle unavailable")
)

// Quote 某一时刻的报价快照，不落库，每次请求重新获取
type Quote struct {
	Symbol string          `json:"symbol"`
	Name   string          `json:"name"`
	Price  decimal.Decimal `json:"price"`
}

// Oracle 行情源接口。
// Lookup 必须在有限超时内返回；标的不存在返回 ErrUnknownSymbol，
// 上游故障或超时返回 ErrUnavailable
type Oracle interface {
	Lookup(ctx context.Context, symbol string) (*Quote, error)
}
