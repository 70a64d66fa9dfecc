// 包 domain 组合估值的领域模型
package domain

import (
	"errors"

	"github.com/shopspring/decimal"
)

// ErrValuation 持仓中的标的无法取价（例如已退市）。
// 估值失败必须整体上报，静默丢掉持仓会虚报净值
var ErrValuation = errors.New("holding cannot be priced")

// Holding 单个标的的估值行
type Holding struct {
	Symbol string          `json:"symbol"`
	Name   string          `json:"name"`
	Shares int64           `json:"shares"`
	Price  decimal.Decimal `json:"price"`
	Value  decimal.Decimal `json:"value"`
}

// Valuation 组合估值结果
type Valuation struct {
	Holdings []Holding       `json:"holdings"`
	Cash     decimal.Decimal `json:"cash"`
	// 现金加全部持仓市值
	TotalNetWorth decimal.Decimal `json:"total_net_worth"`
}
