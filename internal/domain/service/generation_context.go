package service

import (
	"context"
	"strings"
)

type generationCtxKey string

const (
	generationCtxKeyStep     generationCtxKey = "generation_step"
	generationCtxKeyProvider generationCtxKey = "generation_provider"
)

const unknownLabel = "unknown"

// WithGeneration 标记当前 LLM 调用所属的生成步骤（classify / describe / ...）与提供商，
// 供 eino 回调打指标与 span 属性使用。
func WithGeneration(ctx context.Context, step, provider string) context.Context {
	if s := strings.TrimSpace(step); s != "" {
		ctx = context.WithValue(ctx, generationCtxKeyStep, s)
	}
	if p := strings.TrimSpace(provider); p != "" {
		ctx = context.WithValue(ctx, generationCtxKeyProvider, p)
	}
	return ctx
}

// StepFromContext 读取生成步骤，缺省为 unknown
func StepFromContext(ctx context.Context) string {
	return stringFromContext(ctx, generationCtxKeyStep)
}

// ProviderFromContext 读取提供商，缺省为 unknown
func ProviderFromContext(ctx context.Context) string {
	return stringFromContext(ctx, generationCtxKeyProvider)
}

func stringFromContext(ctx context.Context, key generationCtxKey) string {
	if ctx == nil {
		return unknownLabel
	}
	s, ok := ctx.Value(key).(string)
	if !ok || strings.TrimSpace(s) == "" {
		return unknownLabel
	}
	return s
}
