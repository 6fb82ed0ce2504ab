// Package main 项目事件消费者入口（job-worker）
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"domain-copilot-api/internal/application/quality"
	"domain-copilot-api/internal/config"
	"domain-copilot-api/internal/domain/entity"
	"domain-copilot-api/internal/infrastructure/messaging"
	"domain-copilot-api/internal/infrastructure/persistence/redis"
	"domain-copilot-api/internal/wire"
	"domain-copilot-api/pkg/logger"
	"domain-copilot-api/pkg/tracer"
)

// dlqAlertThreshold 死信队列积压超过该值时告警
const dlqAlertThreshold = 100

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format, cfg.Observability.Logging.Output)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if !cfg.Cache.Redis.Enabled || !cfg.Messaging.RedisStream.Enabled {
		logger.Fatal(ctx, "job-worker requires redis streams", fmt.Errorf("cache.redis.enabled=%v messaging.redis_stream.enabled=%v",
			cfg.Cache.Redis.Enabled, cfg.Messaging.RedisStream.Enabled))
	}

	shutdown, err := tracer.Init(ctx, tracer.Config{
		ServiceName: "job-worker",
		Endpoint:    cfg.Observability.Tracing.Endpoint,
		SampleRate:  cfg.Observability.Tracing.SampleRate,
		Enabled:     cfg.Observability.Tracing.Enabled,
	})
	if err != nil {
		logger.Fatal(ctx, "failed to init tracer", err)
	}
	defer func() { _ = shutdown(ctx) }()

	store, cleanupStore, err := wire.InitializeStore(ctx, cfg)
	if err != nil {
		logger.Fatal(ctx, "failed to init project store", err)
	}
	defer cleanupStore()

	redisClient, err := redis.NewClient(&cfg.Cache.Redis)
	if err != nil {
		logger.Fatal(ctx, "failed to init redis", err)
	}
	defer func() { _ = redisClient.Close() }()

	streamCfg := cfg.Messaging.RedisStream
	consumer := messaging.NewConsumer(redisClient.Redis(), messaging.ConsumerConfig{
		Stream:        messaging.StreamProjectEvents,
		Group:         messaging.ConsumerGroupProjectWorker.WithPrefix(streamCfg.ConsumerGroupPrefix),
		ConsumerName:  hostnameConsumerName(),
		BlockTimeout:  streamCfg.BlockTimeout,
		ClaimInterval: streamCfg.ClaimInterval,
		RetryLimit:    streamCfg.RetryLimit,
		Backoff: messaging.BackoffConfig{
			Initial:    streamCfg.RetryBackoff.Initial,
			Max:        streamCfg.RetryBackoff.Max,
			Multiplier: streamCfg.RetryBackoff.Multiplier,
		},
	})

	monitor := quality.NewMonitor(store)
	handle := func(ctx context.Context, msg *messaging.Message) error {
		var evt entity.ProjectEvent
		if err := msg.UnmarshalPayload(&evt); err != nil {
			return err
		}
		return monitor.HandleEvent(ctx, &evt)
	}
	for _, t := range []entity.ProjectEventType{
		entity.ProjectEventCreated,
		entity.ProjectEventVersionAppended,
		entity.ProjectEventVersionUndone,
		entity.ProjectEventRenamed,
	} {
		consumer.RegisterHandler(string(t), handle)
	}

	if err := consumer.Start(ctx); err != nil {
		logger.Fatal(ctx, "failed to start consumer", err)
	}
	go consumer.MonitorDLQ(ctx, dlqAlertThreshold)

	log := logger.FromContext(ctx)
	log.Info("job-worker started", "stream", string(messaging.StreamProjectEvents))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("job-worker shutting down")
	cancel()
	consumer.Stop()
}

func hostnameConsumerName() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "worker"
	}
	return fmt.Sprintf("%s-%d", host, os.Getpid())
}
