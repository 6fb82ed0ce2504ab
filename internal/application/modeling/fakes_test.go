package modeling

import (
	"context"
	"errors"
	"sync"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"domain-copilot-api/internal/domain/entity"
	"domain-copilot-api/internal/domain/service"
)

// fakeChatModel 按生成步骤返回预设内容
type fakeChatModel struct {
	mu       sync.Mutex
	respond  func(ctx context.Context, step string, msgs []*schema.Message) (*schema.Message, error)
	lastMsgs map[string][]*schema.Message
}

func (m *fakeChatModel) Generate(ctx context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	step := service.StepFromContext(ctx)
	m.mu.Lock()
	if m.lastMsgs == nil {
		m.lastMsgs = make(map[string][]*schema.Message)
	}
	m.lastMsgs[step] = input
	m.mu.Unlock()
	return m.respond(ctx, step, input)
}

func (m *fakeChatModel) Stream(context.Context, []*schema.Message, ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("stream not supported")
}

func (m *fakeChatModel) userPrompt(step string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	msgs := m.lastMsgs[step]
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == schema.User {
			return msgs[i].Content
		}
	}
	return ""
}

type fakeFactory struct {
	model model.BaseChatModel
	err   error
}

func (f *fakeFactory) Get(context.Context, string) (model.BaseChatModel, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.model, nil
}

// fakeGateway 函数字段为 nil 时返回失败结果
type fakeGateway struct {
	classify func(transcript string) entity.ClassificationResult
	describe func(transcript, style string) string
	summary  func(text string) string
	reply    func(contextText string) string

	mu            sync.Mutex
	classifyInput string
	describeCalls int
}

func (g *fakeGateway) Classify(_ context.Context, transcript string) entity.ClassificationResult {
	g.mu.Lock()
	g.classifyInput = transcript
	g.mu.Unlock()
	if g.classify == nil {
		return FallbackClassification()
	}
	return g.classify(transcript)
}

func (g *fakeGateway) GenerateModelDescription(_ context.Context, transcript, style string) string {
	g.mu.Lock()
	g.describeCalls++
	g.mu.Unlock()
	if g.describe == nil {
		return DescriptionFailedSentinel
	}
	return g.describe(transcript, style)
}

func (g *fakeGateway) GenerateSummary(_ context.Context, text string) string {
	if g.summary == nil {
		return SummaryFailedSentinel
	}
	return g.summary(text)
}

func (g *fakeGateway) GenerateGeneralReply(_ context.Context, contextText string) string {
	if g.reply == nil {
		return ReplyFailedSentinel
	}
	return g.reply(contextText)
}

type fakeSynthesizer struct {
	synthesize func(description string) (string, error)
	adjust     func(description, diagram, request string) (string, error)

	mu              sync.Mutex
	synthesizeCalls int
}

func (s *fakeSynthesizer) Synthesize(_ context.Context, description string) (string, error) {
	s.mu.Lock()
	s.synthesizeCalls++
	s.mu.Unlock()
	if s.synthesize == nil {
		return "", ErrSynthesisFailed
	}
	return s.synthesize(description)
}

func (s *fakeSynthesizer) Adjust(_ context.Context, description, diagram, request string) (string, error) {
	if s.adjust == nil {
		return "", ErrSynthesisFailed
	}
	return s.adjust(description, diagram, request)
}
