package prompt

import (
	"context"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_PreloadAll(t *testing.T) {
	require.NoError(t, NewRegistry().Preload())
}

func TestRegistry_UnknownPrompt(t *testing.T) {
	_, err := NewRegistry().ChatTemplate("nope_v1")
	assert.Error(t, err)
}

func TestRegistry_FormatKeepsBracesInValues(t *testing.T) {
	tpl, err := NewRegistry().ChatTemplate(PromptDiagramAdjustV1)
	require.NoError(t, err)

	diagram := "@startuml\nclass Order {\n  +id: string\n}\n@enduml"
	msgs, err := tpl.Format(context.Background(), map[string]any{
		"diagram": diagram,
		"request": "use blue colors",
	})
	require.NoError(t, err)
	require.Len(t, msgs, 2)

	assert.Equal(t, schema.System, msgs[0].Role)
	assert.Equal(t, schema.User, msgs[1].Role)
	assert.Contains(t, msgs[1].Content, diagram)
	assert.Contains(t, msgs[1].Content, "use blue colors")
}

func TestRegistry_CachesTemplates(t *testing.T) {
	r := NewRegistry()
	a, err := r.ChatTemplate(PromptSummaryV1)
	require.NoError(t, err)
	b, err := r.ChatTemplate(PromptSummaryV1)
	require.NoError(t, err)
	assert.Same(t, a, b)
}
