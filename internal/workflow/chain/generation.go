// Package chain 用 Eino compose 编排单步生成调用：模板 -> 模型 -> 输出
package chain

import (
	"context"
	"fmt"
	"strings"
	"sync"

	openaiopts "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"domain-copilot-api/internal/domain/service"
	wfmodel "domain-copilot-api/internal/workflow/model"
	wfnode "domain-copilot-api/internal/workflow/node"
	workflowport "domain-copilot-api/internal/workflow/port"
	workflowprompt "domain-copilot-api/internal/workflow/prompt"
	"domain-copilot-api/pkg/logger"
)

var defaultPromptRegistry = workflowprompt.NewRegistry()

// StepConfig 描述一个生成步骤
type StepConfig struct {
	// Step 生成步骤名（classify / describe / ...），用于节点命名与指标
	Step     string
	PromptID workflowprompt.PromptID
	// SchemaName/Schema 非空时通过 response_format 要求结构化输出
	SchemaName string
	Schema     map[string]any
}

// GenerationChain 单个生成步骤的可复用 chain，首次调用时编译
type GenerationChain struct {
	factory workflowport.ChatModelFactory
	cfg     StepConfig

	chainOnce sync.Once
	chain     compose.Runnable[*wfmodel.GenerationInput, *schema.Message]
	chainErr  error
}

func NewGenerationChain(factory workflowport.ChatModelFactory, cfg StepConfig) *GenerationChain {
	return &GenerationChain{factory: factory, cfg: cfg}
}

// Step 生成步骤名
func (c *GenerationChain) Step() string {
	return c.cfg.Step
}

func (c *GenerationChain) Invoke(ctx context.Context, in *wfmodel.GenerationInput) (*schema.Message, error) {
	if c == nil || c.factory == nil {
		return nil, fmt.Errorf("llm factory not configured")
	}
	if in == nil {
		return nil, fmt.Errorf("input is nil")
	}

	chain, err := c.getChain()
	if err != nil {
		return nil, err
	}
	return chain.Invoke(ctx, in)
}

type generationChainState struct {
	In       *wfmodel.GenerationInput
	Messages []*schema.Message
	OutMsg   *schema.Message
}

func (c *GenerationChain) getChain() (compose.Runnable[*wfmodel.GenerationInput, *schema.Message], error) {
	c.chainOnce.Do(func() {
		c.chain, c.chainErr = c.buildChain(context.Background())
	})
	return c.chain, c.chainErr
}

func (c *GenerationChain) buildChain(ctx context.Context) (compose.Runnable[*wfmodel.GenerationInput, *schema.Message], error) {
	step := c.cfg.Step
	chain := compose.NewChain[*wfmodel.GenerationInput, *schema.Message]()

	chain.AppendLambda(
		compose.InvokableLambda(func(_ context.Context, in *wfmodel.GenerationInput) (*generationChainState, error) {
			if in == nil {
				return nil, fmt.Errorf("input is nil")
			}
			return &generationChainState{In: in}, nil
		}),
		compose.WithNodeName(step+".init"),
	)

	chain.AppendLambda(
		compose.InvokableLambda(func(ctx context.Context, st *generationChainState) (*generationChainState, error) {
			if st == nil || st.In == nil {
				return nil, fmt.Errorf("state is nil")
			}
			tpl, err := defaultPromptRegistry.ChatTemplate(c.cfg.PromptID)
			if err != nil {
				return nil, err
			}
			msgs, err := tpl.Format(ctx, st.In.Vars)
			if err != nil {
				return nil, fmt.Errorf("format prompt %s: %w", c.cfg.PromptID, err)
			}
			st.Messages = msgs
			return st, nil
		}),
		compose.WithNodeName(step+".template"),
	)

	chain.AppendLambda(
		compose.InvokableLambda(func(ctx context.Context, st *generationChainState) (*generationChainState, error) {
			if st == nil || st.In == nil {
				return nil, fmt.Errorf("state is nil")
			}

			provider := strings.TrimSpace(st.In.Provider)
			ctx = service.WithGeneration(ctx, step, provider)
			chatModel, err := c.factory.Get(ctx, provider)
			if err != nil {
				return nil, err
			}

			withSchema := c.cfg.Schema != nil
			outMsg, err := chatModel.Generate(ctx, st.Messages, c.modelOptions(st.In, withSchema)...)
			if err != nil && withSchema && wfnode.IsResponseFormatUnsupportedError(err) {
				logger.Warn(ctx, "llm json_schema not supported, fallback to prompt-only",
					"step", step,
					"provider", provider,
					"error", err.Error(),
				)
				outMsg, err = chatModel.Generate(ctx, st.Messages, c.modelOptions(st.In, false)...)
			}
			if err != nil {
				return nil, err
			}
			if outMsg == nil {
				return nil, fmt.Errorf("empty llm response")
			}
			st.OutMsg = outMsg
			return st, nil
		}),
		compose.WithNodeName(step+".llm"),
	)

	chain.AppendLambda(
		compose.InvokableLambda(func(_ context.Context, st *generationChainState) (*schema.Message, error) {
			if st == nil || st.OutMsg == nil {
				return nil, fmt.Errorf("state is nil")
			}
			return st.OutMsg, nil
		}),
		compose.WithNodeName(step+".finalize"),
	)

	return chain.Compile(ctx)
}

func (c *GenerationChain) modelOptions(in *wfmodel.GenerationInput, enableSchema bool) []model.Option {
	opts := make([]model.Option, 0, 4)
	if in.Temperature != nil {
		opts = append(opts, model.WithTemperature(*in.Temperature))
	}
	if in.MaxTokens != nil {
		opts = append(opts, model.WithMaxTokens(*in.MaxTokens))
	}
	if m := strings.TrimSpace(in.Model); m != "" {
		opts = append(opts, model.WithModel(m))
	}

	if enableSchema {
		opts = append(opts, openaiopts.WithExtraFields(map[string]any{
			"response_format": map[string]any{
				"type": "json_schema",
				"json_schema": map[string]any{
					"name":   c.cfg.SchemaName,
					"strict": false,
					"schema": c.cfg.Schema,
				},
			},
		}))
	}
	return opts
}
