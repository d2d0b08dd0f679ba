package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	lerrors "lisa-assistant/pkg/errors"
	"lisa-assistant/pkg/metrics"
)

type stubClient struct {
	provider string
	delay    time.Duration
	err      error
	out      *Completion
	calls    int
}

func (s *stubClient) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	s.calls++
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.out, nil
}

func (s *stubClient) Model() string    { return "stub-model" }
func (s *stubClient) Provider() string { return s.provider }

func TestRateLimitedClient_RecordsUsage(t *testing.T) {
	inner := &stubClient{provider: "p", out: &Completion{Content: "hi", Usage: Usage{PromptTokens: 10, CompletionTokens: 5}}}
	limiter := NewLLMRateLimiter(map[string]LLMLimitConfig{"p": {TokensPerMinute: 6000, RequestsPerMinute: 600, MaxConcurrent: 2}}, nil)
	c := NewRateLimitedClient(inner, limiter)

	out, err := c.Complete(context.Background(), CompletionRequest{Messages: []Message{{Role: RoleUser, Content: "hello"}}})
	require.NoError(t, err)
	assert.Equal(t, "hi", out.Content)
	assert.Equal(t, float64(15), testutil.ToFloat64(metrics.LLMWindowTokens.WithLabelValues("p")))
	assert.Equal(t, 0, limiter.InFlight("p"))
	assert.Equal(t, "stub-model", c.Model())
}

func TestLLMRateLimiter_OverageIsChargedToBucket(t *testing.T) {
	// 600/min => 10 tokens/s，burst 150
	limiter := NewLLMRateLimiter(map[string]LLMLimitConfig{"q": {TokensPerMinute: 600}}, nil)
	release, err := limiter.Wait(context.Background(), "q", 1)
	require.NoError(t, err)
	release()

	limiter.RecordTokenUsage("q", 1, 150)
	assert.Less(t, limiter.limiter("q").tokens.Tokens(), 5.0, "actual usage drains the bucket")
	assert.Equal(t, float64(150), testutil.ToFloat64(metrics.LLMWindowTokens.WithLabelValues("q")))

	limiter.RecordTokenUsage("q", 10, 5)
	assert.Equal(t, float64(155), testutil.ToFloat64(metrics.LLMWindowTokens.WithLabelValues("q")))
}

func TestRateLimitedClient_NilLimiterPassesThrough(t *testing.T) {
	inner := &stubClient{provider: "p", out: &Completion{Content: "x"}}
	c := NewRateLimitedClient(inner, nil)
	_, err := c.Complete(context.Background(), CompletionRequest{})
	require.NoError(t, err)
	assert.Equal(t, 1, inner.calls)
}

func TestRateLimitedClient_CanceledWhileWaiting(t *testing.T) {
	inner := &stubClient{provider: "p", out: &Completion{}}
	limiter := NewLLMRateLimiter(map[string]LLMLimitConfig{"p": {MaxConcurrent: 1}}, nil)
	release, err := limiter.Wait(context.Background(), "p", 1)
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = NewRateLimitedClient(inner, limiter).Complete(ctx, CompletionRequest{})
	require.Error(t, err)
	assert.Equal(t, 0, inner.calls)
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 1, estimateTokens(CompletionRequest{}))
	req := CompletionRequest{Messages: []Message{{Content: "12345678"}}, MaxTokens: 100}
	assert.Equal(t, 102, estimateTokens(req))
}

func TestInstrumentedClient_TimeoutIsUnavailable(t *testing.T) {
	inner := &stubClient{provider: "p", delay: time.Second, out: &Completion{}}
	c := NewInstrumentedClient(inner, 20*time.Millisecond)

	_, err := c.Complete(WithPhase(context.Background(), "first"), CompletionRequest{})
	require.Error(t, err)
	assert.True(t, lerrors.Is(err, lerrors.ErrUnavailable))
	assert.Contains(t, err.Error(), "timed out")
}

func TestInstrumentedClient_ProviderErrorIsUnavailable(t *testing.T) {
	inner := &stubClient{provider: "p", err: errors.New("boom")}
	c := NewInstrumentedClient(inner, 0)

	_, err := c.Complete(context.Background(), CompletionRequest{})
	require.Error(t, err)
	assert.True(t, lerrors.Is(err, lerrors.ErrUnavailable))
	assert.Contains(t, err.Error(), "boom")
}

func TestInstrumentedClient_Success(t *testing.T) {
	inner := &stubClient{provider: "p", out: &Completion{Content: "ok", Usage: Usage{PromptTokens: 1, CompletionTokens: 2}}}
	out, err := NewInstrumentedClient(inner, time.Second).Complete(context.Background(), CompletionRequest{})
	require.NoError(t, err)
	assert.Equal(t, "ok", out.Content)
	assert.Equal(t, "p", NewInstrumentedClient(inner, 0).Provider())
}

func TestPhaseFrom(t *testing.T) {
	assert.Equal(t, "unknown", phaseFrom(context.Background()))
	assert.Equal(t, "second", phaseFrom(WithPhase(context.Background(), "second")))
}
