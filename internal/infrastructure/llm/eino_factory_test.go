package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"domain-copilot-api/internal/config"
)

func newTestFactory() *EinoFactory {
	return NewEinoFactory(&config.Config{
		LLM: config.LLMConfig{
			DefaultProvider: "openai",
			Providers: map[string]config.ProviderConfig{
				"openai": {APIKey: "sk-test", BaseURL: "http://127.0.0.1:1/v1", Model: "gpt-4o-mini", MaxTokens: 512},
				"local":  {BaseURL: "http://127.0.0.1:1/v1", Model: "llama"},
			},
		},
	})
}

func TestEinoFactory_UnknownProvider(t *testing.T) {
	_, err := newTestFactory().Get(context.Background(), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing")
}

func TestEinoFactory_MissingAPIKey(t *testing.T) {
	_, err := newTestFactory().Get(context.Background(), "local")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api key")
}

func TestEinoFactory_CachesDefaultModel(t *testing.T) {
	f := newTestFactory()

	m1, err := f.Default(context.Background())
	require.NoError(t, err)
	m2, err := f.Get(context.Background(), "openai")
	require.NoError(t, err)
	assert.Same(t, m1, m2)
}

func TestEinoFactory_Metadata(t *testing.T) {
	f := newTestFactory()

	assert.Equal(t, "openai", f.DefaultProvider())
	assert.Equal(t, "gpt-4o-mini", f.ModelName(""))
	assert.Equal(t, "llama", f.ModelName("local"))
	assert.Equal(t, []string{"local", "openai"}, f.Providers())
}
