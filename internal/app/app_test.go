package app

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lisa-assistant/internal/model/llm"
	"lisa-assistant/internal/runtime/session"
	"lisa-assistant/pkg/config"
)

type scriptClient struct {
	mu    sync.Mutex
	steps []*llm.Completion
	reqs  []llm.CompletionRequest
}

func (c *scriptClient) Complete(_ context.Context, req llm.CompletionRequest) (*llm.Completion, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reqs = append(c.reqs, req)
	next := c.steps[0]
	c.steps = c.steps[1:]
	return next, nil
}

func (c *scriptClient) Model() string    { return "script" }
func (c *scriptClient) Provider() string { return "test" }

func TestParseDefaultKey(t *testing.T) {
	p, m, err := parseDefaultKey("openai.gpt_4o_mini")
	require.NoError(t, err)
	assert.Equal(t, "openai", p)
	assert.Equal(t, "gpt_4o_mini", m)

	for _, bad := range []string{"", "openai", ".x", "openai."} {
		_, _, err := parseDefaultKey(bad)
		assert.Error(t, err, bad)
	}
}

func TestNewLLMClientFromConfig(t *testing.T) {
	cfg := &config.Config{}
	cfg.Model.Defaults.LLM = "groq.llama"
	cfg.Model.LLM.Providers = map[string]config.ProviderConfig{
		"groq": {
			Type:    "openai",
			APIKey:  "gsk-test",
			BaseURL: "http://127.0.0.1:1/v1",
			Models:  map[string]config.ModelInfo{"llama": {Name: "llama-3.3-70b", MaxTokens: 512}},
		},
	}
	cfg.RateLimits.LLM = map[string]config.LLMRateLimitConfig{"groq": {RequestsPerMinute: 60, MaxConcurrent: 2}}

	client, mi, err := NewLLMClientFromConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, "llama-3.3-70b", client.Model())
	assert.Equal(t, "groq", client.Provider())
	assert.Equal(t, 512, mi.MaxTokens)
	_, ok := client.(*llm.InstrumentedClient)
	assert.True(t, ok)
}

func TestNewLLMClientFromConfig_Errors(t *testing.T) {
	_, _, err := NewLLMClientFromConfig(nil)
	assert.Error(t, err)

	cfg := &config.Config{}
	cfg.Model.Defaults.LLM = "missing.model"
	_, _, err = NewLLMClientFromConfig(cfg)
	assert.ErrorContains(t, err, "missing")

	cfg.Model.LLM.Providers = map[string]config.ProviderConfig{"missing": {APIKey: "k"}}
	_, _, err = NewLLMClientFromConfig(cfg)
	assert.ErrorContains(t, err, "model")
}

func newMemoryBootstrap(t *testing.T) *Bootstrap {
	t.Helper()
	cfg := &config.Config{}
	cfg.Log.Level = "error"
	b, err := NewBootstrap(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func TestNewAssistant_WiresBothModes(t *testing.T) {
	b := newMemoryBootstrap(t)
	client := &scriptClient{steps: []*llm.Completion{{Content: "4"}}}

	a, err := NewAssistant(context.Background(), b, client, config.ModelInfo{Temperature: 0.3, MaxTokens: 256})
	require.NoError(t, err)

	ap := a.Orchestrator.Profile(session.ModeAssistant)
	assert.Equal(t, DefaultSystemPrompt, ap.SystemPrompt)
	assert.True(t, ap.Tools.Registry().IsSilent("mayday_call"))
	_, ok := ap.Tools.Registry().Resolve("get_weather")
	assert.True(t, ok)

	ip := a.Orchestrator.Profile(session.ModeInterview)
	_, ok = ip.Tools.Registry().Resolve("end_interview")
	assert.True(t, ok)
	assert.ElementsMatch(t, []string{"", "-interview"}, a.Orchestrator.KeySuffixes())

	sc := a.Sessions.Create(nil)
	reply, err := a.Orchestrator.ProcessTurn(context.Background(), sc, "What's 2+2")
	require.NoError(t, err)
	assert.Equal(t, "4", reply.Text)
	require.Len(t, client.reqs, 1)
	assert.Equal(t, 0.3, client.reqs[0].Temperature)
	assert.Equal(t, 256, client.reqs[0].MaxTokens)
	assert.Equal(t, "system", client.reqs[0].Messages[0].Role)

	msgs, err := b.Conversation.Read(context.Background(), sc.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "What's 2+2", msgs[0].Content)
}
