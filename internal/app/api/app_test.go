package api

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lisa-assistant/internal/app"
	"lisa-assistant/pkg/config"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Log.Level = "error"
	cfg.API.SessionTTL = "10m"
	cfg.Model.Defaults.LLM = "openai.mini"
	cfg.Model.LLM.Providers = map[string]config.ProviderConfig{
		"openai": {APIKey: "sk-test", BaseURL: "http://127.0.0.1:1/v1", Models: map[string]config.ModelInfo{"mini": {Name: "gpt-4o-mini"}}},
	}
	return cfg
}

func TestNewApp_AndShutdownWithoutRun(t *testing.T) {
	ctx := context.Background()
	b, err := app.NewBootstrap(ctx, testConfig())
	require.NoError(t, err)

	a, err := NewApp(ctx, b)
	require.NoError(t, err)
	assert.NotNil(t, a.router)
	assert.Equal(t, 0, a.assistant.Sessions.Len())

	require.NoError(t, a.Shutdown(ctx))
	// 重复关闭不 panic
	require.NoError(t, a.Shutdown(ctx))
}

func TestNewApp_MissingModel(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	cfg.Model.Defaults.LLM = ""
	b, err := app.NewBootstrap(ctx, cfg)
	require.NoError(t, err)
	defer b.Close()

	_, err = NewApp(ctx, b)
	assert.ErrorContains(t, err, "LLM")
}
