package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"domain-copilot-api/internal/domain/entity"
	"domain-copilot-api/internal/domain/service"
	"domain-copilot-api/pkg/logger"
	"domain-copilot-api/pkg/metrics"
)

var tracer = otel.Tracer("messaging")

// Producer 消息生产者
type Producer struct {
	client *redis.Client
	maxLen int64
}

// NewProducer 创建消息生产者
func NewProducer(client *redis.Client, maxLen int64) *Producer {
	if maxLen <= 0 {
		maxLen = 100000
	}
	return &Producer{
		client: client,
		maxLen: maxLen,
	}
}

var _ service.ProjectEventPublisher = (*Producer)(nil)

// Publish 发布消息到指定流
func (p *Producer) Publish(ctx context.Context, stream Stream, msg *Message) (string, error) {
	ctx, span := tracer.Start(ctx, "producer.Publish",
		trace.WithAttributes(
			attribute.String("stream", string(stream)),
			attribute.String("message.id", msg.ID),
			attribute.String("message.type", msg.Type),
		))
	defer span.End()

	data, err := json.Marshal(msg)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to marshal message: %w", err)
	}

	result, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: string(stream),
		MaxLen: p.maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"data": string(data),
		},
	}).Result()

	if err != nil {
		span.RecordError(err)
		metrics.RedisStreamPublished.WithLabelValues(string(stream), "error").Inc()
		return "", fmt.Errorf("failed to publish message: %w", err)
	}

	metrics.RedisStreamPublished.WithLabelValues(string(stream), "ok").Inc()
	span.SetAttributes(attribute.String("stream.message_id", result))
	return result, nil
}

// PublishProjectEvent 发布项目变更事件
func (p *Producer) PublishProjectEvent(ctx context.Context, evt *entity.ProjectEvent) error {
	msg, err := NewMessage(uuid.NewString(), string(evt.Type), evt.ProjectName, evt)
	if err != nil {
		return err
	}

	// 透传追踪信息，便于 worker 端关联日志
	if reqID, ok := ctx.Value(logger.RequestIDKey).(string); ok && reqID != "" {
		msg.SetMetadata("request_id", reqID)
	}
	if traceID := trace.SpanContextFromContext(ctx).TraceID(); traceID.IsValid() {
		msg.SetMetadata("trace_id", traceID.String())
	}
	msg.SetMetadata("version", fmt.Sprintf("%d", evt.Version))

	_, err = p.Publish(ctx, StreamProjectEvents, msg)
	return err
}
