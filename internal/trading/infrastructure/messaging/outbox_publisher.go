// Package messaging 实现成交事件的 Outbox 发布与 Kafka 中继。
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wyfcoding/paperbroker/internal/trading/domain"
	"github.com/wyfcoding/paperbroker/pkg/db"
	"github.com/wyfcoding/paperbroker/pkg/logger"
	"github.com/wyfcoding/paperbroker/pkg/mq"
)

// OutboxMessage 待投递的事件记录，与业务写入共享同一事务
type OutboxMessage struct {
	ID        string    `gorm:"column:id;type:varchar(36);primaryKey"`
	EventType string    `gorm:"column:event_type;type:varchar(100);index"`
	Payload   string    `gorm:"column:payload;type:text"`
	Status    string    `gorm:"column:status;type:varchar(20);index;default:'pending'"`
	CreatedAt time.Time `gorm:"index"`
	UpdatedAt time.Time
}

// TableName 指定表名
func (OutboxMessage) TableName() string {
	return "trade_outbox_messages"
}

// OutboxEventPublisher 实现 domain.EventPublisher，使用 Outbox 模式
type OutboxEventPublisher struct {
	db *gorm.DB
}

// NewOutboxEventPublisher 创建 OutboxEventPublisher 实例
func NewOutboxEventPublisher(gdb *gorm.DB) *OutboxEventPublisher {
	return &OutboxEventPublisher{db: gdb}
}

// PublishTradeExecuted 在当前事务内写入成交事件
func (p *OutboxEventPublisher) PublishTradeExecuted(ctx context.Context, event domain.TradeExecutedEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal trade event: %w", err)
	}

	message := OutboxMessage{
		ID:        uuid.New().String(),
		EventType: "trade.executed",
		Payload:   string(payload),
		Status:    "pending",
	}

	if err := db.FromContext(ctx, p.db).Create(&message).Error; err != nil {
		return fmt.Errorf("failed to enqueue outbox message: %w", err)
	}
	return nil
}

// Relay 把待投递的 outbox 消息转发到 Kafka
type Relay struct {
	db       *gorm.DB
	producer *mq.KafkaProducer
	interval time.Duration
}

// NewRelay 创建中继实例
func NewRelay(gdb *gorm.DB, producer *mq.KafkaProducer, interval time.Duration) *Relay {
	return &Relay{db: gdb, producer: producer, interval: interval}
}

// Run 周期性投递，直到 ctx 取消
func (r *Relay) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.relayBatch(ctx, 100); err != nil {
				logger.Warn(ctx, "outbox relay pass failed", "error", err)
			}
		}
	}
}

func (r *Relay) relayBatch(ctx context.Context, batchSize int) error {
	var messages []OutboxMessage
	err := r.db.WithContext(ctx).
		Where("status = ?", "pending").
		Order("created_at asc").
		Limit(batchSize).
		Find(&messages).Error
	if err != nil {
		return err
	}

	for _, message := range messages {
		if err := r.producer.Send(ctx, message.EventType, []byte(message.Payload)); err != nil {
			// 留在 pending，下一轮重试
			return err
		}
		if err := r.db.WithContext(ctx).Model(&message).Update("status", "sent").Error; err != nil {
			return err
		}
	}
	return nil
}
