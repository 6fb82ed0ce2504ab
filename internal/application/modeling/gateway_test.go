package modeling

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"domain-copilot-api/internal/domain/entity"
	wfmodel "domain-copilot-api/internal/workflow/model"
)

func TestNormalizeClassification(t *testing.T) {
	tests := []struct {
		name  string
		in    *wfmodel.ClassificationOutput
		route entity.Route
		check func(t *testing.T, res entity.ClassificationResult)
	}{
		{
			name:  "nil output falls back",
			in:    nil,
			route: entity.RouteOffTopic,
			check: func(t *testing.T, res entity.ClassificationResult) {
				assert.Equal(t, []string{ClassificationFallbackSuggestion}, res.Suggestions)
			},
		},
		{
			name:  "initial model from flags",
			in:    &wfmodel.ClassificationOutput{Decision: true},
			route: entity.RouteModel,
			check: func(t *testing.T, res entity.ClassificationResult) {
				assert.Equal(t, entity.RequestInitialModel, res.RequestType)
				assert.True(t, res.RequiresDiagramUpdate)
				assert.Equal(t, []string{suggestionDecision}, res.Suggestions)
			},
		},
		{
			name:  "explicit question is not overridden by decision flag",
			in:    &wfmodel.ClassificationOutput{Decision: true, RequestType: "MODEL_QUESTION", Suggestions: []string{"Sure."}},
			route: entity.RouteQuestion,
			check: func(t *testing.T, res entity.ClassificationResult) {
				assert.False(t, res.RequiresModelUpdate)
				assert.Equal(t, []string{"Sure."}, res.Suggestions)
			},
		},
		{
			name:  "stale decision does not override casual",
			in:    &wfmodel.ClassificationOutput{Decision: true, IsCasualComment: true},
			route: entity.RouteCasual,
			check: func(t *testing.T, res entity.ClassificationResult) {
				assert.True(t, res.IsCasual)
				assert.Equal(t, []string{suggestionCasual}, res.Suggestions)
			},
		},
		{
			name:  "style change forwards style",
			in:    &wfmodel.ClassificationOutput{IsStyleChange: true, StyleType: "shorter", RequestType: "UPDATE_DESCRIPTION_ONLY"},
			route: entity.RouteDescriptionOnly,
			check: func(t *testing.T, res entity.ClassificationResult) {
				assert.Equal(t, "shorter", res.StyleType)
				assert.Equal(t, []string{suggestionStyleChange}, res.Suggestions)
			},
		},
		{
			name:  "style change without style type",
			in:    &wfmodel.ClassificationOutput{IsStyleChange: true},
			route: entity.RouteDescriptionOnly,
			check: func(t *testing.T, res entity.ClassificationResult) {
				assert.Equal(t, "general", res.StyleType)
			},
		},
		{
			name:  "lowercase legacy alias",
			in:    &wfmodel.ClassificationOutput{RequestType: "plantuml_adjustment"},
			route: entity.RouteDiagramAdjust,
			check: func(t *testing.T, res entity.ClassificationResult) {
				assert.True(t, res.RequiresDiagramUpdate)
				assert.False(t, res.RequiresModelUpdate)
			},
		},
		{
			name:  "unknown type with update flag",
			in:    &wfmodel.ClassificationOutput{RequestType: "SOMETHING", IsUpdate: true},
			route: entity.RouteOffTopic,
			check: func(t *testing.T, res entity.ClassificationResult) {
				assert.Equal(t, []string{suggestionUpdate}, res.Suggestions)
			},
		},
		{
			name: "suggestions trimmed and capped",
			in: &wfmodel.ClassificationOutput{
				RequestType: "UPDATE_MODEL",
				Suggestions: []string{" a ", "", "b", "c", "d"},
			},
			route: entity.RouteModel,
			check: func(t *testing.T, res entity.ClassificationResult) {
				assert.Equal(t, []string{"a", "b", "c"}, res.Suggestions)
			},
		},
		{
			name:  "nothing set",
			in:    &wfmodel.ClassificationOutput{},
			route: entity.RouteOffTopic,
			check: func(t *testing.T, res entity.ClassificationResult) {
				assert.Equal(t, []string{suggestionMoreDetails}, res.Suggestions)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := normalizeClassification(tt.in)
			assert.Equal(t, tt.route, res.Route())
			tt.check(t, res)
		})
	}
}

func TestIsSentinel(t *testing.T) {
	assert.True(t, IsSentinel(DescriptionFailedSentinel))
	assert.True(t, IsSentinel(" "+SummaryFailedSentinel+"\n"))
	assert.True(t, IsSentinel(ReplyFailedSentinel))
	assert.False(t, IsSentinel("Library has Books."))
}

func newGatewayWith(respond func(ctx context.Context, step string, msgs []*schema.Message) (*schema.Message, error)) (*EinoGateway, *fakeChatModel) {
	m := &fakeChatModel{respond: respond}
	return NewEinoGateway(&fakeFactory{model: m}, GenerationConfig{Timeout: time.Second}), m
}

func TestEinoGateway_Classify(t *testing.T) {
	g, m := newGatewayWith(func(_ context.Context, step string, _ []*schema.Message) (*schema.Message, error) {
		require.Equal(t, StepClassify, step)
		return schema.AssistantMessage("```json\n{\"decision\": true, \"is_update\": false, \"is_casual_comment\": false, \"is_style_change\": false, \"request_type\": \"INITIAL_MODEL\", \"suggestions\": [\"Got it.\"]}\n```", nil), nil
	})

	res := g.Classify(context.Background(), "User: a library has books")
	assert.Equal(t, entity.RequestInitialModel, res.RequestType)
	assert.True(t, res.RequiresModelUpdate)
	assert.Equal(t, []string{"Got it."}, res.Suggestions)
	assert.Contains(t, m.userPrompt(StepClassify), "User: a library has books")
}

func TestEinoGateway_ClassifyFallbacks(t *testing.T) {
	t.Run("model error", func(t *testing.T) {
		g, _ := newGatewayWith(func(context.Context, string, []*schema.Message) (*schema.Message, error) {
			return nil, errors.New("boom")
		})
		assert.Equal(t, FallbackClassification(), g.Classify(context.Background(), "User: hi"))
	})

	t.Run("invalid json", func(t *testing.T) {
		g, _ := newGatewayWith(func(context.Context, string, []*schema.Message) (*schema.Message, error) {
			return schema.AssistantMessage("not json at all", nil), nil
		})
		assert.Equal(t, FallbackClassification(), g.Classify(context.Background(), "User: hi"))
	})

	t.Run("factory error", func(t *testing.T) {
		g := NewEinoGateway(&fakeFactory{err: errors.New("no api key")}, GenerationConfig{})
		assert.Equal(t, FallbackClassification(), g.Classify(context.Background(), "User: hi"))
	})

	t.Run("timeout", func(t *testing.T) {
		m := &fakeChatModel{respond: func(ctx context.Context, _ string, _ []*schema.Message) (*schema.Message, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		}}
		g := NewEinoGateway(&fakeFactory{model: m}, GenerationConfig{Timeout: 20 * time.Millisecond})
		assert.Equal(t, FallbackClassification(), g.Classify(context.Background(), "User: hi"))
	})
}

func TestEinoGateway_TextSteps(t *testing.T) {
	g, m := newGatewayWith(func(_ context.Context, step string, _ []*schema.Message) (*schema.Message, error) {
		switch step {
		case StepDescribe:
			return schema.AssistantMessage("  Library has Books.  ", nil), nil
		case StepSummary:
			return schema.AssistantMessage("", nil), nil
		default:
			return nil, errors.New("unavailable")
		}
	})
	ctx := context.Background()

	assert.Equal(t, "Library has Books.", g.GenerateModelDescription(ctx, "User: library", "technical"))
	assert.Contains(t, m.userPrompt(StepDescribe), "technical style")
	assert.Equal(t, SummaryFailedSentinel, g.GenerateSummary(ctx, "long text"))
	assert.Equal(t, ReplyFailedSentinel, g.GenerateGeneralReply(ctx, "question"))
}

func TestEinoGateway_DescriptionWithoutStyle(t *testing.T) {
	g, m := newGatewayWith(func(context.Context, string, []*schema.Message) (*schema.Message, error) {
		return schema.AssistantMessage("Shop sells Products.", nil), nil
	})

	assert.Equal(t, "Shop sells Products.", g.GenerateModelDescription(context.Background(), "User: shop", ""))
	assert.NotContains(t, m.userPrompt(StepDescribe), "style")
}
