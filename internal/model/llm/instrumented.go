package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	lerrors "lisa-assistant/pkg/errors"
	"lisa-assistant/pkg/metrics"
	"lisa-assistant/pkg/tracing"
)

type phaseKey struct{}

// WithPhase 标记本次 completion 属于对话的哪个阶段（first | second），用于 span 与日志
func WithPhase(ctx context.Context, phase string) context.Context {
	return context.WithValue(ctx, phaseKey{}, phase)
}

func phaseFrom(ctx context.Context) string {
	if p, ok := ctx.Value(phaseKey{}).(string); ok {
		return p
	}
	return "unknown"
}

// InstrumentedClient 为每次调用加超时、span 与指标
type InstrumentedClient struct {
	inner   Client
	timeout time.Duration
}

// NewInstrumentedClient timeout<=0 时不额外设置超时
func NewInstrumentedClient(inner Client, timeout time.Duration) *InstrumentedClient {
	return &InstrumentedClient{inner: inner, timeout: timeout}
}

// Complete 实现 Client.Complete；超时与取消包装为 ErrUnavailable
func (c *InstrumentedClient) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	provider := c.inner.Provider()
	ctx, span := tracing.StartCompletionSpan(ctx, provider, phaseFrom(ctx), len(req.Tools) > 0)
	defer span.End()

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	out, err := c.inner.Complete(ctx, req)
	if err != nil {
		metrics.LLMRequestsTotal.WithLabelValues(provider, "error").Inc()
		tracing.RecordError(span, err)
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
			return nil, fmt.Errorf("%s completion timed out after %s: %w", provider, c.timeout, lerrors.ErrUnavailable)
		}
		return nil, lerrors.Wrapf(errors.Join(err, lerrors.ErrUnavailable), "%s completion", provider)
	}
	metrics.LLMRequestsTotal.WithLabelValues(provider, "ok").Inc()
	metrics.LLMTokensTotal.WithLabelValues("input").Add(float64(out.Usage.PromptTokens))
	metrics.LLMTokensTotal.WithLabelValues("output").Add(float64(out.Usage.CompletionTokens))
	return out, nil
}

// Model 返回底层 Client 的模型名称
func (c *InstrumentedClient) Model() string { return c.inner.Model() }

// Provider 返回底层 Client 的提供商名称
func (c *InstrumentedClient) Provider() string { return c.inner.Provider() }
