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
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"lisa-assistant/pkg/config"
	"lisa-assistant/pkg/metrics"
)

// LLMLimitConfig LLM Provider 限流配置
type LLMLimitConfig struct {
	TokensPerMinute   int     // 每分钟 token 配额
	RequestsPerMinute float64 // 每分钟请求数
	MaxConcurrent     int     // 最大并发请求数
}

// DefaultLLMLimit 未单独配置的 provider 使用的默认限额（Groq free tier 量级）
var DefaultLLMLimit = LLMLimitConfig{
	TokensPerMinute:   30000,
	RequestsPerMinute: 30,
	MaxConcurrent:     8,
}

// LLMRateLimiter provider 维度的限流器：RPS + token budget + 并发
type LLMRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*llmLimiter
	defaults LLMLimitConfig
}

type llmLimiter struct {
	requests  *rate.Limiter
	tokens    *rate.Limiter
	semaphore chan struct{}
	maxBurst  int

	mu          sync.Mutex
	tokensUsed  int
	windowStart time.Time
}

// NewLLMRateLimiter 创建 LLM 限流器；defaults 为 nil 时使用 DefaultLLMLimit
func NewLLMRateLimiter(configs map[string]LLMLimitConfig, defaults *LLMLimitConfig) *LLMRateLimiter {
	l := &LLMRateLimiter{limiters: make(map[string]*llmLimiter), defaults: DefaultLLMLimit}
	if defaults != nil {
		l.defaults = *defaults
	}
	for provider, c := range configs {
		l.limiters[provider] = newLLMLimiter(c)
	}
	return l
}

// NewLLMRateLimiterFromConfig 从 rate_limits.llm 配置创建；未配置时返回 nil（不限流）
func NewLLMRateLimiterFromConfig(cfg map[string]config.LLMRateLimitConfig) *LLMRateLimiter {
	if len(cfg) == 0 {
		return nil
	}
	configs := make(map[string]LLMLimitConfig, len(cfg))
	for provider, c := range cfg {
		configs[provider] = LLMLimitConfig{
			TokensPerMinute:   c.TokensPerMinute,
			RequestsPerMinute: c.RequestsPerMinute,
			MaxConcurrent:     c.MaxConcurrent,
		}
	}
	return NewLLMRateLimiter(configs, nil)
}

func newLLMLimiter(c LLMLimitConfig) *llmLimiter {
	lim := &llmLimiter{windowStart: time.Now()}
	if c.RequestsPerMinute > 0 {
		burst := int(c.RequestsPerMinute / 60.0 * 2) // 2 秒的配额
		if burst < 1 {
			burst = 1
		}
		lim.requests = rate.NewLimiter(rate.Limit(c.RequestsPerMinute/60.0), burst)
	}
	if c.TokensPerMinute > 0 {
		// 单次请求可能超过 2 秒配额，burst 至少放得下一分钟额度的 1/4
		burst := c.TokensPerMinute / 4
		if burst < 1 {
			burst = 1
		}
		lim.tokens = rate.NewLimiter(rate.Limit(float64(c.TokensPerMinute)/60.0), burst)
		lim.maxBurst = burst
	}
	if c.MaxConcurrent > 0 {
		lim.semaphore = make(chan struct{}, c.MaxConcurrent)
	}
	return lim
}

func (l *LLMRateLimiter) limiter(provider string) *llmLimiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	lim, ok := l.limiters[provider]
	if !ok {
		lim = newLLMLimiter(l.defaults)
		l.limiters[provider] = lim
	}
	return lim
}

// Wait 阻塞直到可以执行；成功时返回的 release 必须在调用结束后执行
func (l *LLMRateLimiter) Wait(ctx context.Context, provider string, estimatedTokens int) (release func(), err error) {
	lim := l.limiter(provider)

	if lim.requests != nil {
		if err := lim.requests.Wait(ctx); err != nil {
			return nil, fmt.Errorf("request rate limit wait failed: %w", err)
		}
	}
	if lim.tokens != nil && estimatedTokens > 0 {
		n := estimatedTokens
		if n > lim.maxBurst {
			n = lim.maxBurst
		}
		if err := lim.tokens.WaitN(ctx, n); err != nil {
			return nil, fmt.Errorf("token budget wait failed: %w", err)
		}
	}
	if lim.semaphore != nil {
		select {
		case lim.semaphore <- struct{}{}:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			if lim.semaphore != nil {
				<-lim.semaphore
			}
		})
	}, nil
}

// RecordTokenUsage 记录一次调用的实际 token 用量：更新一分钟窗口并发布到
// lisa_llm_window_tokens；实际用量超过 Wait 时预扣的 estimated 部分从 token 桶中补扣，
// 后续请求因此等待
func (l *LLMRateLimiter) RecordTokenUsage(provider string, estimated, used int) {
	lim := l.limiter(provider)
	if lim.tokens != nil {
		if overage := used - min(estimated, lim.maxBurst); overage > 0 {
			lim.tokens.ReserveN(time.Now(), min(overage, lim.maxBurst))
		}
	}

	lim.mu.Lock()
	now := time.Now()
	if now.Sub(lim.windowStart) > time.Minute {
		lim.tokensUsed = 0
		lim.windowStart = now
	}
	lim.tokensUsed += used
	inWindow := lim.tokensUsed
	lim.mu.Unlock()
	metrics.LLMWindowTokens.WithLabelValues(provider).Set(float64(inWindow))
}

// InFlight 当前占用的并发 slot 数
func (l *LLMRateLimiter) InFlight(provider string) int {
	lim := l.limiter(provider)
	if lim.semaphore == nil {
		return 0
	}
	return len(lim.semaphore)
}
