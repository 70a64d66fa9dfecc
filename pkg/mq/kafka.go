// Package mq 提供 Kafka producer 封装，用于 outbox 中继
package mq

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/wyfcoding/paperbroker/pkg/logger"
)

// KafkaConfig Kafka 配置
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// KafkaProducer Kafka 生产者
type KafkaProducer struct {
	writer *kafka.Writer
	topic  string
}

// NewProducer 创建 Kafka 生产者
func NewProducer(cfg KafkaConfig) *KafkaProducer {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		AllowAutoTopicCreation: true,
		RequiredAcks:           kafka.RequireAll,
		WriteBackoffMin:        100 * time.Millisecond,
		WriteBackoffMax:        time.Second,
	}

	logger.Info(context.Background(), "kafka producer created", "brokers", cfg.Brokers, "topic", cfg.Topic)
	return &KafkaProducer{writer: writer, topic: cfg.Topic}
}

// Send 发送单条消息
func (kp *KafkaProducer) Send(ctx context.Context, key string, value []byte) error {
	err := kp.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: value,
	})
	if err != nil {
		logger.Error(ctx, "failed to send kafka message", "topic", kp.topic, "key", key, "error", err)
		return err
	}
	return nil
}

// Close 关闭生产者
func (kp *KafkaProducer) Close() error {
	return kp.writer.Close()
}
