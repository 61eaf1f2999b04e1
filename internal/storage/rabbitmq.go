package storage

import (
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"digital-twin-go/internal/config"
	"digital-twin-go/internal/logger"
)

// RabbitMQ 持有一个连接和一个发布用的通道
type RabbitMQ struct {
	conn      *amqp.Connection
	ch        *amqp.Channel
	cfg       *config.RabbitMQConfig
	closeOnce sync.Once
}

// NewRabbitMQ 建立连接并声明事件交换机
func NewRabbitMQ(cfg *config.RabbitMQConfig) (*RabbitMQ, error) {
	if cfg == nil {
		return nil, fmt.Errorf("RabbitMQ配置不能为空")
	}
	if cfg.URL == "" {
		return nil, fmt.Errorf("RabbitMQ URL配置不能为空")
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("无法连接到RabbitMQ服务器: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("无法创建RabbitMQ通道: %w", err)
	}

	mq := &RabbitMQ{conn: conn, ch: ch, cfg: cfg}
	if err := mq.EnsureExchange(cfg.Exchange, amqp.ExchangeTopic, true); err != nil {
		_ = mq.Close()
		return nil, err
	}

	logger.Info().Str("exchange", cfg.Exchange).Msg("成功连接到RabbitMQ服务器")
	return mq, nil
}

// Channel 发布用的通道
func (r *RabbitMQ) Channel() *amqp.Channel { return r.ch }

// EnsureExchange 确保交换机存在
func (r *RabbitMQ) EnsureExchange(exchangeName, exchangeType string, durable bool) error {
	if exchangeName == "" {
		return nil // 默认交换机无需声明
	}
	if err := r.ch.ExchangeDeclare(exchangeName, exchangeType, durable, false, false, false, nil); err != nil {
		return fmt.Errorf("声明交换机 %s 失败: %w", exchangeName, err)
	}
	return nil
}

// Close 关闭通道和连接，可重复调用
func (r *RabbitMQ) Close() error {
	var err error
	r.closeOnce.Do(func() {
		if r.ch != nil {
			if cerr := r.ch.Close(); cerr != nil {
				logger.Warn().Err(cerr).Msg("关闭RabbitMQ通道失败")
			}
		}
		if r.conn != nil {
			err = r.conn.Close()
		}
	})
	return err
}
