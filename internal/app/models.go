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

package app

import (
	"fmt"
	"strings"
	"time"

	"lisa-assistant/internal/model/llm"
	"lisa-assistant/pkg/config"
)

// NewLLMClientFromConfig 按 model.defaults.llm 创建客户端：
// provider 客户端 → 限流（配置了 rate_limits.llm 时）→ 超时与指标
func NewLLMClientFromConfig(cfg *config.Config) (llm.Client, config.ModelInfo, error) {
	if cfg == nil || cfg.Model.Defaults.LLM == "" {
		return nil, config.ModelInfo{}, fmt.Errorf("model.defaults.llm 未配置")
	}
	provider, modelKey, err := parseDefaultKey(cfg.Model.Defaults.LLM)
	if err != nil {
		return nil, config.ModelInfo{}, err
	}
	pc, ok := cfg.Model.LLM.Providers[provider]
	if !ok {
		return nil, config.ModelInfo{}, fmt.Errorf("LLM provider %q 未配置", provider)
	}
	mi, ok := pc.Models[modelKey]
	if !ok {
		return nil, config.ModelInfo{}, fmt.Errorf("LLM model %q 未在 provider %q 中配置", modelKey, provider)
	}
	client, err := llm.NewClient(pc.Type, provider, mi.Name, pc.APIKey, pc.BaseURL)
	if err != nil {
		return nil, config.ModelInfo{}, err
	}
	if len(cfg.RateLimits.LLM) > 0 {
		client = llm.NewRateLimitedClient(client, llm.NewLLMRateLimiterFromConfig(cfg.RateLimits.LLM))
	}
	timeout := config.ParseDuration(cfg.Assistant.Timeouts.Completion, 30*time.Second)
	return llm.NewInstrumentedClient(client, timeout), mi, nil
}

func parseDefaultKey(key string) (provider, modelKey string, err error) {
	parts := strings.SplitN(key, ".", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("default key 格式应为 provider.model_key，如 openai.gpt_4o_mini，当前: %q", key)
	}
	return parts[0], parts[1], nil
}
