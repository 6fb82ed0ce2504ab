// Package llm 管理 Eino ChatModel 客户端
package llm

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"

	"domain-copilot-api/internal/config"
)

// EinoFactory 按提供商名称惰性创建并缓存 ChatModel
type EinoFactory struct {
	config *config.LLMConfig
	models map[string]model.BaseChatModel
	mu     sync.RWMutex
}

// NewEinoFactory 创建 Eino LLM 工厂
func NewEinoFactory(cfg *config.Config) *EinoFactory {
	return &EinoFactory{
		config: &cfg.LLM,
		models: make(map[string]model.BaseChatModel),
	}
}

// Get 获取指定名称的 ChatModel，如果未指定则返回默认客户端
func (f *EinoFactory) Get(ctx context.Context, name string) (model.BaseChatModel, error) {
	name = f.resolve(name)

	f.mu.RLock()
	m, ok := f.models[name]
	f.mu.RUnlock()
	if ok {
		return m, nil
	}

	// 惰性加载
	f.mu.Lock()
	defer f.mu.Unlock()

	// 再次检查防止竞态
	if m, ok = f.models[name]; ok {
		return m, nil
	}

	providerCfg, ok := f.config.Providers[name]
	if !ok {
		return nil, fmt.Errorf("provider %s not found in LLM config", name)
	}
	if providerCfg.APIKey == "" {
		return nil, fmt.Errorf("provider %s has no api key configured", name)
	}

	cfg := &openai.ChatModelConfig{
		APIKey:  providerCfg.APIKey,
		BaseURL: providerCfg.BaseURL,
		Model:   providerCfg.Model,
		Timeout: providerCfg.Timeout,
	}
	if providerCfg.MaxTokens > 0 {
		maxTokens := providerCfg.MaxTokens
		cfg.MaxTokens = &maxTokens
	}
	temperature := float32(providerCfg.Temperature)
	cfg.Temperature = &temperature

	chatModel, err := openai.NewChatModel(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create eino chat model for %s: %w", name, err)
	}

	f.models[name] = chatModel
	return chatModel, nil
}

// Default 返回默认 ChatModel
func (f *EinoFactory) Default(ctx context.Context) (model.BaseChatModel, error) {
	return f.Get(ctx, "")
}

// DefaultProvider 默认提供商名称
func (f *EinoFactory) DefaultProvider() string {
	return f.config.DefaultProvider
}

// ModelName 返回提供商配置的模型名，用于日志与指标
func (f *EinoFactory) ModelName(name string) string {
	if p, ok := f.config.Providers[f.resolve(name)]; ok {
		return p.Model
	}
	return ""
}

// Providers 已配置的提供商名称（排序后）
func (f *EinoFactory) Providers() []string {
	names := make([]string, 0, len(f.config.Providers))
	for name := range f.config.Providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (f *EinoFactory) resolve(name string) string {
	if name == "" {
		return f.config.DefaultProvider
	}
	return name
}
