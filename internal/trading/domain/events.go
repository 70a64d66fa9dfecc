package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// TradeExecutedEvent 成交事件，随交易事务一起落盘（outbox），再异步投递
type TradeExecutedEvent struct {
	UserID     uint            `json:"user_id"`
	Symbol     string          `json:"symbol"`
	Side       Side            `json:"side"`
	Shares     int64           `json:"shares"`
	Price      decimal.Decimal `json:"price"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// EventPublisher 成交事件发布接口。
// 实现必须把事件写入与交易同一个事务，保证账本与事件一致
type EventPublisher interface {
	PublishTradeExecuted(ctx context.Context, event TradeExecutedEvent) error
}
