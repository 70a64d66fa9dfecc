// 包 domain 交易引擎的领域模型
package domain

import "errors"

var (
	// ErrInvalidShares 股数不是正整数
	ErrInvalidShares = errors.New("shares must be a positive integer")
	// ErrInvalidSymbol 标的为空
	ErrInvalidSymbol = errors.New("symbol must not be empty")
	// ErrInsufficientFunds 买入会使现金为负
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrInsufficientShares 卖出超过净持仓
	ErrInsufficientShares = errors.New("insufficient shares")
)

// Side 交易方向
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)
