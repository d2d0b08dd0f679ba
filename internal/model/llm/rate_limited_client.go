// Copyright 2026 fanjia1024
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package llm

import (
	"context"
	"encoding/json"
	"time"

	"lisa-assistant/pkg/metrics"
)

// RateLimitedClient 包装任意 LLM Client，在真实调用前后执行限流控制
type RateLimitedClient struct {
	inner       Client
	rateLimiter *LLMRateLimiter
}

// NewRateLimitedClient 创建带限流的 LLM 客户端。rateLimiter 为 nil 时退化为直接调用。
func NewRateLimitedClient(inner Client, rateLimiter *LLMRateLimiter) *RateLimitedClient {
	return &RateLimitedClient{inner: inner, rateLimiter: rateLimiter}
}

// Complete 实现 Client.Complete，调用前等待配额，调用后记录实际用量
func (c *RateLimitedClient) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	if c.rateLimiter == nil {
		return c.inner.Complete(ctx, req)
	}
	provider := c.inner.Provider()
	start := time.Now()
	estimated := estimateTokens(req)
	release, err := c.rateLimiter.Wait(ctx, provider, estimated)
	if err != nil {
		return nil, err
	}
	defer release()
	if waited := time.Since(start); waited > 100*time.Millisecond {
		metrics.RateLimitWaitSeconds.WithLabelValues("llm", provider).Observe(waited.Seconds())
	}

	out, err := c.inner.Complete(ctx, req)
	if err != nil {
		return nil, err
	}
	used := out.Usage.PromptTokens + out.Usage.CompletionTokens
	if used == 0 {
		used = estimated
	}
	c.rateLimiter.RecordTokenUsage(provider, estimated, used)
	return out, nil
}

// Model 返回底层 Client 的模型名称。
func (c *RateLimitedClient) Model() string { return c.inner.Model() }

// Provider 返回底层 Client 的提供商名称。
func (c *RateLimitedClient) Provider() string { return c.inner.Provider() }

// estimateTokens 粗略估算请求的 token 数（4 字符 ≈ 1 token），含工具 schema 与 max_tokens
func estimateTokens(req CompletionRequest) int {
	chars := 0
	for _, m := range req.Messages {
		chars += len(m.Content)
		for _, tc := range m.ToolCalls {
			chars += len(tc.Name) + len(tc.Arguments)
		}
	}
	if len(req.Tools) > 0 {
		if b, err := json.Marshal(req.Tools); err == nil {
			chars += len(b)
		}
	}
	estimated := chars / 4
	if req.MaxTokens > 0 {
		estimated += req.MaxTokens
	}
	if estimated < 1 {
		estimated = 1
	}
	return estimated
}
