// 包 domain 交易流水的领域模型
package domain

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ErrStorage 流水存储不可用；仓储层的持久化失败统一包装为该错误
var ErrStorage = errors.New("ledger storage unavailable")

// Transaction 成交流水
// 账本仅追加：记录一旦写入不再更新或删除，作为资金与持仓的唯一事实来源
type Transaction struct {
	gorm.Model
	// 用户 ID
	UserID uint `gorm:"column:user_id;index;not null" json:"user_id"`
	// 交易标的（大写 ticker）
	Symbol string `gorm:"column:symbol;type:varchar(20);index;not null" json:"symbol"`
	// 有符号股数：正数买入，负数卖出
	Shares int64 `gorm:"column:shares;not null" json:"shares"`
	// 成交单价
	Price decimal.Decimal `gorm:"column:price;type:decimal(20,4);not null" json:"price"`
}

// TableName 指定表名
func (Transaction) TableName() string {
	return "transactions"
}

// LedgerRepository 流水仓储接口。只追加，不提供更新或删除
type LedgerRepository interface {
	// Append 追加一条流水，写入为全有或全无
	Append(ctx context.Context, tx *Transaction) error
	// ListByUser 按写入顺序返回用户的全部流水
	ListByUser(ctx context.Context, userID uint) ([]Transaction, error)
	// PositionsByUser 返回用户各标的的净持仓股数；净持仓为零的标的可以省略。
	// 从未交易过的标的视同净持仓为零
	PositionsByUser(ctx context.Context, userID uint) (map[string]int64, error)
}

// AggregatePositions 从流水重新计算净持仓，净持仓为零的标的被省略。
// 仓储的 SQL 聚合是常规路径，这里保留纯内存实现作为正确性基准
func AggregatePositions(txs []Transaction) map[string]int64 {
	net := make(map[string]int64, len(txs))
	for _, tx := range txs {
		net[tx.Symbol] += tx.Shares
	}
	for symbol, shares := range net {
		if shares == 0 {
			delete(net, symbol)
		}
	}
	return net
}
