package modeling

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDiagram = "@startuml\nclass Library\nclass Book\nLibrary \"1\" -- \"*\" Book\n@enduml"

func TestPatchDirection(t *testing.T) {
	t.Run("left to right inserted after startuml", func(t *testing.T) {
		out, ok := PatchDirection(sampleDiagram, "Please lay it out Left to Right")
		require.True(t, ok)
		assert.Equal(t, "@startuml\nleft to right direction\nclass Library\nclass Book\nLibrary \"1\" -- \"*\" Book\n@enduml", out)
	})

	t.Run("left to right already present", func(t *testing.T) {
		in := "@startuml\nleft to right direction\nclass A\n@enduml"
		out, ok := PatchDirection(in, "left to right please")
		require.True(t, ok)
		assert.Equal(t, in, out)
	})

	t.Run("top to bottom replaces left to right", func(t *testing.T) {
		in := "@startuml\nleft to right direction\nclass A\n@enduml"
		out, ok := PatchDirection(in, "switch to top to bottom")
		require.True(t, ok)
		assert.Equal(t, "@startuml\ntop to bottom direction\nclass A\n@enduml", out)
	})

	t.Run("no startuml line", func(t *testing.T) {
		out, ok := PatchDirection("class A", "left to right")
		require.True(t, ok)
		assert.Equal(t, "left to right direction\nclass A", out)
	})

	t.Run("other requests need the model", func(t *testing.T) {
		_, ok := PatchDirection(sampleDiagram, "make Book red")
		assert.False(t, ok)
	})
}

func TestAnalyzeQuality(t *testing.T) {
	t.Run("rich diagram", func(t *testing.T) {
		diagram := "@startuml\nclass Book {\n  +title: string\n}\nLibrary -- Book\nItem <|-- Book\nLibrary o-- Shelf\n@enduml"
		report := AnalyzeQuality(diagram, "A library class holds books.")
		assert.Equal(t, 3, report.RelationshipCount)
		assert.False(t, report.NeedsRefinement)
		assert.Empty(t, report.Feedback)
	})

	t.Run("too few relationships", func(t *testing.T) {
		report := AnalyzeQuality(sampleDiagram, "Library has books.")
		assert.Equal(t, 1, report.RelationshipCount)
		assert.True(t, report.NeedsRefinement)
		assert.Equal(t, []string{feedbackFewRelationships}, report.Feedback)
	})

	t.Run("attributes missing", func(t *testing.T) {
		diagram := "@startuml\nA -- B\nB *-- C\n@enduml"
		report := AnalyzeQuality(diagram, "The Class A has a name.")
		assert.Equal(t, 2, report.RelationshipCount)
		assert.True(t, report.NeedsRefinement)
		assert.Equal(t, []string{feedbackMissingAttrs}, report.Feedback)
	})
}

func TestEinoSynthesizer_Synthesize(t *testing.T) {
	m := &fakeChatModel{respond: func(_ context.Context, step string, _ []*schema.Message) (*schema.Message, error) {
		require.Equal(t, StepDiagram, step)
		return schema.AssistantMessage("Here you go:\n```plantuml\n@startuml\nclass Library\n@enduml\n```", nil), nil
	}}
	s := NewEinoSynthesizer(&fakeFactory{model: m}, GenerationConfig{Timeout: time.Second})

	out, err := s.Synthesize(context.Background(), "Library has books.")
	require.NoError(t, err)
	assert.Equal(t, "@startuml\nclass Library\n@enduml", out)
	assert.Contains(t, m.userPrompt(StepDiagram), "Library has books.")

	_, err = s.Synthesize(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrSynthesisFailed)
}

func TestEinoSynthesizer_Failures(t *testing.T) {
	t.Run("model error", func(t *testing.T) {
		m := &fakeChatModel{respond: func(context.Context, string, []*schema.Message) (*schema.Message, error) {
			return nil, errors.New("rate limited")
		}}
		s := NewEinoSynthesizer(&fakeFactory{model: m}, GenerationConfig{Timeout: time.Second})
		_, err := s.Synthesize(context.Background(), "Library has books.")
		assert.ErrorIs(t, err, ErrSynthesisFailed)
	})

	t.Run("blank output", func(t *testing.T) {
		m := &fakeChatModel{respond: func(context.Context, string, []*schema.Message) (*schema.Message, error) {
			return schema.AssistantMessage("  ", nil), nil
		}}
		s := NewEinoSynthesizer(&fakeFactory{model: m}, GenerationConfig{Timeout: time.Second})
		_, err := s.Synthesize(context.Background(), "Library has books.")
		assert.ErrorIs(t, err, ErrSynthesisFailed)
	})
}

func TestEinoSynthesizer_Adjust(t *testing.T) {
	m := &fakeChatModel{respond: func(_ context.Context, step string, _ []*schema.Message) (*schema.Message, error) {
		switch step {
		case StepDiagramAdjust:
			return schema.AssistantMessage("@startuml\nclass Library #red\n@enduml", nil), nil
		case StepDiagram:
			return schema.AssistantMessage("@startuml\nclass Fresh\n@enduml", nil), nil
		}
		return nil, errors.New("unexpected step")
	}}
	s := NewEinoSynthesizer(&fakeFactory{model: m}, GenerationConfig{Timeout: time.Second})
	ctx := context.Background()

	out, err := s.Adjust(ctx, "Library.", sampleDiagram, "left to right")
	require.NoError(t, err)
	assert.Contains(t, out, "left to right direction")
	assert.Empty(t, m.userPrompt(StepDiagramAdjust))

	out, err = s.Adjust(ctx, "Library.", sampleDiagram, "make Library red")
	require.NoError(t, err)
	assert.Equal(t, "@startuml\nclass Library #red\n@enduml", out)
	assert.Contains(t, m.userPrompt(StepDiagramAdjust), "make Library red")

	out, err = s.Adjust(ctx, "Library.", "", "make Library red")
	require.NoError(t, err)
	assert.Equal(t, "@startuml\nclass Fresh\n@enduml", out)
}
