package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/streadway/amqp"

	"cricket-scoring-service/config"
	"cricket-scoring-service/logger"
)

// BallMessage 记分端通过队列推送的投球事件
type BallMessage struct {
	InningsID int64     `json:"innings_id"`
	Ball      BallInput `json:"ball"`
}

// AMQPConsumer 从消息队列消费外部记分端的投球事件，
// 与 REST 入口共用同一条引擎路径。连接断开后指数退避自动重连。
type AMQPConsumer struct {
	config      *config.Config
	processor   *BallProcessor
	coordinator *LiveUpdateCoordinator
	conn        *amqp.Connection
	channel     *amqp.Channel
	done        chan bool
}

func NewAMQPConsumer(cfg *config.Config, processor *BallProcessor, coordinator *LiveUpdateCoordinator) *AMQPConsumer {
	return &AMQPConsumer{
		config:      cfg,
		processor:   processor,
		coordinator: coordinator,
		done:        make(chan bool),
	}
}

// Start 连接并开始消费，阻塞直到 Stop
func (c *AMQPConsumer) Start() error {
	delay := time.Second
	const maxDelay = 60 * time.Second

	for {
		err := c.connectAndConsume()
		if err == nil {
			// 正常停止
			return nil
		}

		logger.Errorf("[AMQP] Connection lost: %v, reconnecting in %v", err, delay)
		select {
		case <-c.done:
			return nil
		case <-time.After(delay):
		}
		delay *= 2
		if delay > maxDelay {
			delay = maxDelay
		}
	}
}

// Stop 停止消费并关闭连接
func (c *AMQPConsumer) Stop() {
	close(c.done)
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		c.conn.Close()
	}
}

func (c *AMQPConsumer) connectAndConsume() error {
	logger.Printf("[AMQP] Connecting to %s...", c.config.AMQPURL)

	conn, err := amqp.Dial(c.config.AMQPURL)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	c.conn = conn

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to open channel: %w", err)
	}
	c.channel = channel

	// 队列声明幂等
	queue, err := channel.QueueDeclare(c.config.BallQueue, true, false, false, false, nil)
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	msgs, err := channel.Consume(queue.Name, "", false, false, false, false, nil)
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	logger.Printf("[AMQP] Consuming ball events from queue %s", queue.Name)

	connClosed := conn.NotifyClose(make(chan *amqp.Error, 1))
	for {
		select {
		case <-c.done:
			return nil
		case closeErr := <-connClosed:
			return fmt.Errorf("connection closed: %v", closeErr)
		case delivery, ok := <-msgs:
			if !ok {
				return fmt.Errorf("delivery channel closed")
			}
			c.handleDelivery(delivery)
		}
	}
}

// handleDelivery 处理一条投球消息。
// 数据错误直接丢弃（reject 不重排队），引擎错误记日志后确认，
// 盲目重试投球会产生重复记录。
func (c *AMQPConsumer) handleDelivery(delivery amqp.Delivery) {
	var msg BallMessage
	if err := json.Unmarshal(delivery.Body, &msg); err != nil {
		logger.Errorf("[AMQP] Malformed ball message: %v", err)
		delivery.Reject(false)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	ball, err := c.processor.RecordBall(ctx, msg.InningsID, &msg.Ball)
	if err != nil {
		logger.Errorf("[AMQP] Failed to record ball for innings %d: %v", msg.InningsID, err)
		delivery.Reject(false)
		return
	}

	innings, err := c.processor.store.GetInnings(ctx, msg.InningsID)
	if err == nil {
		c.coordinator.AfterBall(ctx, innings.MatchID, ball)
	}

	delivery.Ack(false)
}
