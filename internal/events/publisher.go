// Package events 在每次问答结束后发布事件，供下游分析使用
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"digital-twin-go/internal/constants"
	"digital-twin-go/internal/tracing"
	"digital-twin-go/internal/types"
)

var tracer = otel.Tracer("digital-twin/events")

// AnswerEvent 一次问答完成的事件
type AnswerEvent struct {
	SessionID string         `json:"session_id"`
	RequestID string         `json:"request_id,omitempty"`
	Question  string         `json:"question"`
	Outcome   types.Outcome  `json:"outcome"`
	Sources   []types.Source `json:"sources"`
	LatencyMS int64          `json:"latency_ms"`
	Timestamp time.Time      `json:"timestamp"`
}

// Publisher 事件发布者
type Publisher interface {
	PublishAnswer(ctx context.Context, event AnswerEvent) error
	Close() error
}

// NopPublisher 未配置消息队列时使用
type NopPublisher struct{}

// PublishAnswer 实现 Publisher 接口
func (NopPublisher) PublishAnswer(context.Context, AnswerEvent) error { return nil }

// Close 实现 Publisher 接口
func (NopPublisher) Close() error { return nil }

// Channel 是 *amqp.Channel 中发布需要的方法
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPPublisher 通过 RabbitMQ 发布 JSON 事件
type AMQPPublisher struct {
	ch         Channel
	exchange   string
	routingKey string
}

// NewAMQPPublisher 创建 AMQP 发布者
func NewAMQPPublisher(ch Channel, exchange, routingKey string) (*AMQPPublisher, error) {
	if ch == nil {
		return nil, fmt.Errorf("amqp channel cannot be nil")
	}
	if routingKey == "" {
		routingKey = constants.EventAnswerCompleted
	}
	return &AMQPPublisher{ch: ch, exchange: exchange, routingKey: routingKey}, nil
}

// PublishAnswer 实现 Publisher 接口
func (p *AMQPPublisher) PublishAnswer(ctx context.Context, event AnswerEvent) error {
	ctx, span := tracer.Start(ctx, "events.PublishAnswer")
	defer span.End()
	span.SetAttributes(
		attribute.String("messaging.system", "rabbitmq"),
		attribute.String("messaging.destination", p.exchange),
		attribute.String("messaging.routing_key", p.routingKey),
		attribute.String("twin.outcome", string(event.Outcome)),
	)

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.Sources == nil {
		event.Sources = []types.Source{}
	}
	body, err := json.Marshal(event)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeInternal)
		return fmt.Errorf("序列化问答事件失败: %w", err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Type:         constants.EventAnswerCompleted,
		MessageId:    event.RequestID,
		Timestamp:    event.Timestamp,
		Body:         body,
	}
	if err := p.ch.PublishWithContext(ctx, p.exchange, p.routingKey, false, false, msg); err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeRabbitMQ)
		return fmt.Errorf("发布问答事件失败: %w", err)
	}
	return nil
}

// Close 通道由 storage.RabbitMQ 持有并关闭
func (p *AMQPPublisher) Close() error { return nil }
