// Package eino 为 Eino ChatModel 调用挂载全局回调：指标、链路追踪与用量日志
package eino

import (
	"context"
	"time"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/model"
	cbtemplate "github.com/cloudwego/eino/utils/callbacks"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"domain-copilot-api/internal/domain/service"
	"domain-copilot-api/pkg/logger"
	"domain-copilot-api/pkg/metrics"
)

// startTimeKey 在 OnStart 写入开始时间，OnEnd/OnError 据此计算耗时
type startTimeKey struct{}

// modelNameKey 记录 OnStart 时解析出的模型名，OnError 拿不到输出配置
type modelNameKey struct{}

const unknownModel = "unknown"

// newChatModelCallbackHandler 创建大模型调用回调
func newChatModelCallbackHandler() *cbtemplate.ModelCallbackHandler {
	return &cbtemplate.ModelCallbackHandler{
		OnStart: func(ctx context.Context, info *einocb.RunInfo, input *model.CallbackInput) context.Context {
			step := service.StepFromContext(ctx)
			provider := service.ProviderFromContext(ctx)
			modelName := modelNameFromInput(input)

			ctx = context.WithValue(ctx, startTimeKey{}, time.Now())
			ctx = context.WithValue(ctx, modelNameKey{}, modelName)

			attrs := []attribute.KeyValue{
				attribute.String("generation.step", step),
				attribute.String("llm.provider", provider),
				attribute.String("llm.model", modelName),
			}
			if info != nil {
				attrs = append(attrs,
					attribute.String("eino.node_name", info.Name),
					attribute.String("eino.type", info.Type),
				)
			}

			ctx, _ = otel.Tracer("eino").Start(ctx, "llm.generate", trace.WithAttributes(attrs...))
			return ctx
		},

		OnEnd: func(ctx context.Context, _ *einocb.RunInfo, output *model.CallbackOutput) context.Context {
			step := service.StepFromContext(ctx)
			provider := service.ProviderFromContext(ctx)
			modelName := modelNameFromOutput(ctx, output)
			elapsed := elapsedSeconds(ctx)

			metrics.LLMCallTotal.WithLabelValues(step, provider, modelName, "success").Inc()
			if elapsed > 0 {
				metrics.LLMCallDuration.WithLabelValues(step, provider, modelName).Observe(elapsed)
			}

			span := trace.SpanFromContext(ctx)
			if output != nil && output.TokenUsage != nil {
				promptTokens := output.TokenUsage.PromptTokens
				completionTokens := output.TokenUsage.CompletionTokens

				metrics.LLMTokensUsed.WithLabelValues(step, provider, modelName, "prompt").Add(float64(promptTokens))
				metrics.LLMTokensUsed.WithLabelValues(step, provider, modelName, "completion").Add(float64(completionTokens))

				span.SetAttributes(
					attribute.Int("llm.prompt_tokens", promptTokens),
					attribute.Int("llm.completion_tokens", completionTokens),
				)
				logger.Debug(ctx, "llm call finished",
					"step", step,
					"provider", provider,
					"model", modelName,
					"prompt_tokens", promptTokens,
					"completion_tokens", completionTokens,
					"duration_ms", int64(elapsed*1000),
				)
			}
			span.End()
			return ctx
		},

		OnError: func(ctx context.Context, _ *einocb.RunInfo, err error) context.Context {
			step := service.StepFromContext(ctx)
			provider := service.ProviderFromContext(ctx)
			modelName := modelNameFromOutput(ctx, nil)

			metrics.LLMCallTotal.WithLabelValues(step, provider, modelName, "error").Inc()
			if d := elapsedSeconds(ctx); d > 0 {
				metrics.LLMCallDuration.WithLabelValues(step, provider, modelName).Observe(d)
			}

			span := trace.SpanFromContext(ctx)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			span.End()
			return ctx
		},
	}
}

func elapsedSeconds(ctx context.Context) float64 {
	start, ok := ctx.Value(startTimeKey{}).(time.Time)
	if !ok || start.IsZero() {
		return 0
	}
	return time.Since(start).Seconds()
}

func modelNameFromInput(in *model.CallbackInput) string {
	if in == nil || in.Config == nil || in.Config.Model == "" {
		return unknownModel
	}
	return in.Config.Model
}

// modelNameFromOutput 优先取输出配置，缺失时回落到 OnStart 记录的值
func modelNameFromOutput(ctx context.Context, out *model.CallbackOutput) string {
	if out != nil && out.Config != nil && out.Config.Model != "" {
		return out.Config.Model
	}
	if name, ok := ctx.Value(modelNameKey{}).(string); ok && name != "" {
		return name
	}
	return unknownModel
}
