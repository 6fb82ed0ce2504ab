package modeling

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"

	"domain-copilot-api/internal/domain/entity"
	"domain-copilot-api/internal/workflow/chain"
	wfmodel "domain-copilot-api/internal/workflow/model"
	wfnode "domain-copilot-api/internal/workflow/node"
	workflowport "domain-copilot-api/internal/workflow/port"
	workflowprompt "domain-copilot-api/internal/workflow/prompt"
	"domain-copilot-api/pkg/logger"
	"domain-copilot-api/pkg/metrics"
)

// 生成步骤名，同时用作指标标签
const (
	StepClassify      = "classify"
	StepDescribe      = "describe"
	StepSummary       = "summary"
	StepReply         = "reply"
	StepDiagram       = "diagram"
	StepDiagramAdjust = "diagram_adjust"
)

const (
	defaultGenerationTimeout = 60 * time.Second
	defaultMaxInputRunes     = 24000
)

// GenerationConfig 生成调用的公共参数
type GenerationConfig struct {
	// Provider 为空时使用工厂的默认提供商
	Provider      string
	Timeout       time.Duration
	MaxInputRunes int
}

func (c GenerationConfig) withDefaults() GenerationConfig {
	if c.Timeout <= 0 {
		c.Timeout = defaultGenerationTimeout
	}
	if c.MaxInputRunes <= 0 {
		c.MaxInputRunes = defaultMaxInputRunes
	}
	return c
}

type generator interface {
	Step() string
	Invoke(ctx context.Context, in *wfmodel.GenerationInput) (*schema.Message, error)
}

// EinoGateway 基于 Eino chain 的 Gateway 实现
type EinoGateway struct {
	cfg GenerationConfig

	classify generator
	describe generator
	summary  generator
	reply    generator
}

var _ Gateway = (*EinoGateway)(nil)

// NewEinoGateway 创建网关
func NewEinoGateway(factory workflowport.ChatModelFactory, cfg GenerationConfig) *EinoGateway {
	return &EinoGateway{
		cfg: cfg.withDefaults(),
		classify: chain.NewGenerationChain(factory, chain.StepConfig{
			Step:       StepClassify,
			PromptID:   workflowprompt.PromptClassifyV1,
			SchemaName: "classification",
			Schema:     wfmodel.ClassificationJSONSchema(),
		}),
		describe: chain.NewGenerationChain(factory, chain.StepConfig{Step: StepDescribe, PromptID: workflowprompt.PromptDescribeV1}),
		summary:  chain.NewGenerationChain(factory, chain.StepConfig{Step: StepSummary, PromptID: workflowprompt.PromptSummaryV1}),
		reply:    chain.NewGenerationChain(factory, chain.StepConfig{Step: StepReply, PromptID: workflowprompt.PromptReplyV1}),
	}
}

// Classify 对完整对话记录做意图分类
func (g *EinoGateway) Classify(ctx context.Context, transcript string) entity.ClassificationResult {
	content, err := g.run(ctx, g.classify, 0, map[string]any{
		"transcript": g.clip(transcript),
	})
	if err != nil {
		return FallbackClassification()
	}

	var out wfmodel.ClassificationOutput
	if err := wfnode.DecodeJSONObject(content, &out); err != nil {
		g.fail(ctx, StepClassify, fmt.Errorf("decode classification: %w", err))
		return FallbackClassification()
	}
	return normalizeClassification(&out)
}

// GenerateModelDescription 从对话中抽取领域模型描述，只使用对话中明确出现的信息
func (g *EinoGateway) GenerateModelDescription(ctx context.Context, transcript, style string) string {
	content, err := g.run(ctx, g.describe, 0.2, map[string]any{
		"transcript":        g.clip(transcript),
		"style_instruction": styleInstruction(style),
	})
	if err != nil || content == "" {
		if err == nil {
			g.fail(ctx, StepDescribe, fmt.Errorf("empty description"))
		}
		return DescriptionFailedSentinel
	}
	return content
}

// GenerateSummary 摘要
func (g *EinoGateway) GenerateSummary(ctx context.Context, text string) string {
	content, err := g.run(ctx, g.summary, 0.3, map[string]any{
		"text": g.clip(text),
	})
	if err != nil || content == "" {
		if err == nil {
			g.fail(ctx, StepSummary, fmt.Errorf("empty summary"))
		}
		return SummaryFailedSentinel
	}
	return content
}

// GenerateGeneralReply 通用回复
func (g *EinoGateway) GenerateGeneralReply(ctx context.Context, contextText string) string {
	content, err := g.run(ctx, g.reply, 0.5, map[string]any{
		"context": g.clip(contextText),
	})
	if err != nil || content == "" {
		if err == nil {
			g.fail(ctx, StepReply, fmt.Errorf("empty reply"))
		}
		return ReplyFailedSentinel
	}
	return content
}

// run 在超时内执行一次生成，失败时已记录日志与指标
func (g *EinoGateway) run(ctx context.Context, gen generator, temperature float32, vars map[string]any) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	msg, err := gen.Invoke(ctx, &wfmodel.GenerationInput{
		Provider:    g.cfg.Provider,
		Temperature: &temperature,
		Vars:        vars,
	})
	if err != nil {
		g.fail(ctx, gen.Step(), err)
		return "", err
	}
	if msg == nil {
		err = fmt.Errorf("empty llm response")
		g.fail(ctx, gen.Step(), err)
		return "", err
	}
	return strings.TrimSpace(msg.Content), nil
}

func (g *EinoGateway) fail(ctx context.Context, step string, err error) {
	metrics.GenerationFallbackTotal.WithLabelValues(step).Inc()
	logger.Warn(ctx, "generation failed, using fallback",
		"step", step,
		"provider", g.cfg.Provider,
		"error", err.Error(),
	)
}

// clip 超长输入只保留最近部分
func (g *EinoGateway) clip(s string) string {
	return wfnode.TailByRunes(s, g.cfg.MaxInputRunes)
}

func styleInstruction(style string) string {
	style = strings.TrimSpace(style)
	if style == "" {
		return ""
	}
	return "Rewrite the existing domain model description in a " + style +
		" style. Keep every entity, attribute and relationship; change only the wording and layout.\n\n"
}
