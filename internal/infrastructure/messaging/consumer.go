package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"domain-copilot-api/pkg/logger"
	"domain-copilot-api/pkg/metrics"
)

// MessageHandler 消息处理函数
type MessageHandler func(ctx context.Context, msg *Message) error

// Consumer 消息消费者
type Consumer struct {
	client        *redis.Client
	stream        Stream
	group         ConsumerGroup
	consumerName  string
	blockTimeout  time.Duration
	claimInterval time.Duration
	reclaimIdle   time.Duration
	retryLimit    int
	backoff       BackoffConfig

	handlers map[string]MessageHandler
	mu       sync.RWMutex
	running  bool
	stopCh   chan struct{}
}

// ConsumerConfig 消费者配置
type ConsumerConfig struct {
	Stream        Stream
	Group         ConsumerGroup
	ConsumerName  string
	BlockTimeout  time.Duration
	ClaimInterval time.Duration
	RetryLimit    int
	Backoff       BackoffConfig
}

// NewConsumer 创建消息消费者
func NewConsumer(client *redis.Client, cfg ConsumerConfig) *Consumer {
	if cfg.BlockTimeout <= 0 {
		cfg.BlockTimeout = 5 * time.Second
	}
	if cfg.ClaimInterval <= 0 {
		cfg.ClaimInterval = 30 * time.Second
	}
	if cfg.RetryLimit <= 0 {
		cfg.RetryLimit = 3
	}
	if cfg.Backoff.Initial <= 0 {
		cfg.Backoff = DefaultBackoffConfig()
	}

	return &Consumer{
		client:        client,
		stream:        cfg.Stream,
		group:         cfg.Group,
		consumerName:  cfg.ConsumerName,
		blockTimeout:  cfg.BlockTimeout,
		claimInterval: cfg.ClaimInterval,
		reclaimIdle:   maxDuration(5*time.Minute, cfg.Backoff.Max*2),
		retryLimit:    cfg.RetryLimit,
		backoff:       cfg.Backoff,
		handlers:      make(map[string]MessageHandler),
		stopCh:        make(chan struct{}),
	}
}

// RegisterHandler 注册消息处理器
func (c *Consumer) RegisterHandler(msgType string, handler MessageHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[msgType] = handler
}

// Start 启动消费者
func (c *Consumer) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return fmt.Errorf("consumer already running")
	}
	c.running = true
	c.mu.Unlock()

	// 确保消费者组存在
	err := c.client.XGroupCreateMkStream(ctx, string(c.stream), string(c.group), "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	go c.run(ctx)
	return nil
}

// Stop 停止消费者
func (c *Consumer) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		close(c.stopCh)
		c.running = false
	}
}

// run 消费循环
func (c *Consumer) run(ctx context.Context) {
	log := logger.FromContext(ctx)
	log.Info("consumer started",
		"stream", c.stream,
		"group", c.group,
		"consumer", c.consumerName,
	)

	lastClaim := time.Now().Add(-c.claimInterval)

	for {
		select {
		case <-ctx.Done():
			log.Info("consumer stopped due to context cancellation")
			return
		case <-c.stopCh:
			log.Info("consumer stopped")
			return
		default:
		}

		c.processDuePending(ctx)
		if time.Since(lastClaim) >= c.claimInterval {
			c.reclaimStale(ctx)
			lastClaim = time.Now()
		}

		// 读取消息
		streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    string(c.group),
			Consumer: c.consumerName,
			Streams:  []string{string(c.stream), ">"},
			Count:    10,
			Block:    c.blockTimeout,
		}).Result()

		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				continue
			}
			log.Error("failed to read from stream", "error", err)
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
			continue
		}

		for _, stream := range streams {
			for _, xmsg := range stream.Messages {
				c.processMessage(ctx, xmsg)
			}
		}
	}
}

// errMaxRetries 超过重试上限后写入死信队列的原因
var errMaxRetries = errors.New("message exceeded max retries")

// decodeEntry 解析流条目中 data 字段承载的消息
func decodeEntry(xmsg redis.XMessage) (*Message, error) {
	raw, ok := xmsg.Values["data"].(string)
	if !ok {
		return nil, fmt.Errorf("entry %s has no data field", xmsg.ID)
	}
	var msg Message
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		return nil, fmt.Errorf("entry %s: %w", xmsg.ID, err)
	}
	return &msg, nil
}

// messageContext 把生产端透传的项目名与追踪信息放回日志上下文
func messageContext(ctx context.Context, msg *Message) context.Context {
	ctx = logger.WithProject(ctx, msg.ProjectName)
	if reqID := msg.GetMetadata("request_id"); reqID != "" {
		ctx = logger.WithContext(ctx, logger.RequestIDKey, reqID)
	}
	if traceID := msg.GetMetadata("trace_id"); traceID != "" {
		ctx = logger.WithContext(ctx, logger.TraceIDKey, traceID)
	}
	return ctx
}

// processMessage 处理单条消息，无法解析的条目直接确认丢弃
func (c *Consumer) processMessage(ctx context.Context, xmsg redis.XMessage) {
	ctx, span := tracer.Start(ctx, "consumer.processMessage",
		trace.WithAttributes(
			attribute.String("stream", string(c.stream)),
			attribute.String("stream.message_id", xmsg.ID),
		))
	defer span.End()

	msg, err := decodeEntry(xmsg)
	if err != nil {
		logger.FromContext(ctx).Error("invalid stream entry", "error", err)
		c.ack(ctx, xmsg.ID)
		return
	}

	ctx = messageContext(ctx, msg)
	log := logger.FromContext(ctx)
	span.SetAttributes(
		attribute.String("message.id", msg.ID),
		attribute.String("message.type", msg.Type),
		attribute.String("project_name", msg.ProjectName),
	)

	c.mu.RLock()
	handler, exists := c.handlers[msg.Type]
	c.mu.RUnlock()

	if !exists {
		log.Warn("no handler for message type", "type", msg.Type)
		metrics.RedisStreamProcessed.WithLabelValues(string(c.stream), "skipped").Inc()
		c.ack(ctx, xmsg.ID)
		return
	}

	if err := handler(ctx, msg); err != nil {
		span.RecordError(err)
		log.Error("handler failed", "error", err, "message_id", msg.ID)
		metrics.RedisStreamProcessed.WithLabelValues(string(c.stream), "failed").Inc()
		c.handleFailure(ctx, xmsg, msg, err)
		return
	}

	metrics.RedisStreamProcessed.WithLabelValues(string(c.stream), "ok").Inc()
	c.ack(ctx, xmsg.ID)
}

func (c *Consumer) ack(ctx context.Context, id string) {
	if err := c.client.XAck(ctx, string(c.stream), string(c.group), id).Err(); err != nil {
		logger.FromContext(ctx).Error("failed to ack message", "error", err, "message_id", id)
	}
}

// handleFailure 未达上限的消息保持 pending，由 sweepPending 按退避重投
func (c *Consumer) handleFailure(ctx context.Context, xmsg redis.XMessage, msg *Message, err error) {
	retryCount := c.deliveryCount(ctx, xmsg.ID)
	if retryCount < c.retryLimit {
		logger.FromContext(ctx).Info("message left pending for retry",
			"message_id", msg.ID,
			"retry_count", retryCount,
		)
		return
	}

	logger.FromContext(ctx).Warn("message moved to DLQ after max retries",
		"message_id", msg.ID,
		"retry_count", retryCount,
	)
	c.moveToDLQ(ctx, msg, err)
	c.ack(ctx, xmsg.ID)
}

// deliveryCount 通过 XPENDING 读取消息的投递次数
func (c *Consumer) deliveryCount(ctx context.Context, messageID string) int {
	pending, err := c.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: string(c.stream),
		Group:  string(c.group),
		Start:  messageID,
		End:    messageID,
		Count:  1,
	}).Result()
	if err != nil || len(pending) == 0 {
		return 0
	}
	return int(pending[0].RetryCount)
}

func (c *Consumer) moveToDLQ(ctx context.Context, msg *Message, cause error) {
	data, _ := json.Marshal(map[string]interface{}{
		"original_stream": string(c.stream),
		"data":            msg,
		"error":           cause.Error(),
		"failed_at":       time.Now().Unix(),
	})
	err := c.client.XAdd(ctx, &redis.XAddArgs{
		Stream: c.stream.DLQStream(),
		Values: map[string]interface{}{"data": string(data)},
	}).Err()
	if err != nil {
		logger.FromContext(ctx).Error("failed to write DLQ message", "error", err, "message_id", msg.ID)
		return
	}
	metrics.RedisStreamProcessed.WithLabelValues(string(c.stream), "dead_lettered").Inc()
}

// pendingSweep 一轮 XPENDING 扫描的参数
type pendingSweep struct {
	// own 为 true 时只扫描本消费者名下的消息，否则只接管其他消费者遗留的消息
	own bool
	// minIdle 按已投递次数给出可认领的最小空闲时间
	minIdle func(retryCount int) time.Duration
}

// processDuePending 重投本消费者名下退避期已满的消息
func (c *Consumer) processDuePending(ctx context.Context) {
	c.sweepPending(ctx, pendingSweep{own: true, minIdle: c.backoff.CalculateBackoff})
}

// reclaimStale 接管其他消费者崩溃后遗留的消息
func (c *Consumer) reclaimStale(ctx context.Context) {
	if c.reclaimIdle <= 0 {
		return
	}
	c.sweepPending(ctx, pendingSweep{minIdle: func(int) time.Duration { return c.reclaimIdle }})
}

func (c *Consumer) sweepPending(ctx context.Context, sweep pendingSweep) {
	args := &redis.XPendingExtArgs{
		Stream: string(c.stream),
		Group:  string(c.group),
		Start:  "-",
		End:    "+",
		Count:  20,
	}
	if sweep.own {
		args.Consumer = c.consumerName
	}
	pending, err := c.client.XPendingExt(ctx, args).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.FromContext(ctx).Error("failed to query pending messages", "error", err, "own", sweep.own)
		}
		return
	}

	for _, p := range pending {
		if !sweep.own && p.Consumer == c.consumerName {
			continue
		}
		retryCount := int(p.RetryCount)
		minIdle := sweep.minIdle(retryCount)
		if p.Idle < minIdle {
			continue
		}

		claimed, err := c.client.XClaim(ctx, &redis.XClaimArgs{
			Stream:   string(c.stream),
			Group:    string(c.group),
			Consumer: c.consumerName,
			MinIdle:  minIdle,
			Messages: []string{p.ID},
		}).Result()
		if err != nil {
			logger.FromContext(ctx).Error("failed to claim pending message", "error", err, "message_id", p.ID)
			continue
		}

		for _, xmsg := range claimed {
			if retryCount >= c.retryLimit {
				c.deadLetter(ctx, xmsg)
				continue
			}
			c.processMessage(ctx, xmsg)
		}
	}
}

// deadLetter 已认领且超过重试上限的条目直接移入死信队列
func (c *Consumer) deadLetter(ctx context.Context, xmsg redis.XMessage) {
	if msg, err := decodeEntry(xmsg); err == nil {
		c.moveToDLQ(messageContext(ctx, msg), msg, errMaxRetries)
	}
	c.ack(ctx, xmsg.ID)
}

func maxDuration(a, b time.Duration) time.Duration {
	if a > b {
		return a
	}
	return b
}

// MonitorDLQ 监控死信队列
func (c *Consumer) MonitorDLQ(ctx context.Context, alertThreshold int64) {
	log := logger.FromContext(ctx)
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stopCh:
			return
		case <-ticker.C:
			dlqStream := c.stream.DLQStream()
			info, err := c.client.XInfoStream(ctx, dlqStream).Result()
			if err != nil {
				continue
			}

			if info.Length > alertThreshold {
				log.Warn("DLQ has pending messages",
					"stream", dlqStream,
					"count", info.Length,
				)
			}
		}
	}
}
