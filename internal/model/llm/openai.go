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
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-resty/resty/v2"
)

// OpenAIClient OpenAI 兼容的 chat/completions 客户端（OpenAI、Groq、DashScope 等）
type OpenAIClient struct {
	provider string
	model    string
	apiKey   string
	baseURL  string
	client   *resty.Client
}

// NewOpenAIClientWithBaseURL 创建 OpenAI 兼容客户端；baseURL 为空时用默认或 OPENAI_BASE_URL
func NewOpenAIClientWithBaseURL(provider, model, apiKey, baseURL string) (*OpenAIClient, error) {
	if provider == "" {
		provider = "openai"
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
		if envURL := os.Getenv("OPENAI_BASE_URL"); envURL != "" {
			baseURL = envURL
		}
	}

	client := resty.New()
	client.SetTimeout(60 * time.Second)
	client.SetRetryCount(2)
	client.SetRetryWaitTime(500 * time.Millisecond)
	client.SetRetryMaxWaitTime(3 * time.Second)
	// 仅在 429 / 5xx 时重试，4xx 直接返回
	client.AddRetryCondition(func(r *resty.Response, err error) bool {
		if err != nil {
			return r == nil || r.Request == nil || r.Request.Context().Err() == nil
		}
		return r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= 500
	})

	return &OpenAIClient{
		provider: provider,
		model:    model,
		apiKey:   apiKey,
		baseURL:  baseURL,
		client:   client,
	}, nil
}

type oaFunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type oaToolCall struct {
	ID       string         `json:"id"`
	Type     string         `json:"type"`
	Function oaFunctionCall `json:"function"`
}

type oaMessage struct {
	Role       string       `json:"role"`
	Content    string       `json:"content"`
	ToolCalls  []oaToolCall `json:"tool_calls,omitempty"`
	ToolCallID string       `json:"tool_call_id,omitempty"`
	Name       string       `json:"name,omitempty"`
}

type oaTool struct {
	Type     string         `json:"type"`
	Function ToolDefinition `json:"function"`
}

type oaRequest struct {
	Model       string      `json:"model"`
	Messages    []oaMessage `json:"messages"`
	Tools       []oaTool    `json:"tools,omitempty"`
	ToolChoice  string      `json:"tool_choice,omitempty"`
	Temperature *float64    `json:"temperature,omitempty"`
	MaxTokens   int         `json:"max_tokens,omitempty"`
}

type oaResponse struct {
	Choices []struct {
		Message struct {
			Content   *string      `json:"content"`
			ToolCalls []oaToolCall `json:"tool_calls"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage Usage `json:"usage"`
}

func toOpenAIMessages(msgs []Message) []oaMessage {
	out := make([]oaMessage, len(msgs))
	for i, m := range msgs {
		om := oaMessage{Role: m.Role, Content: m.Content, ToolCallID: m.ToolCallID, Name: m.Name}
		for _, tc := range m.ToolCalls {
			om.ToolCalls = append(om.ToolCalls, oaToolCall{
				ID:       tc.ID,
				Type:     "function",
				Function: oaFunctionCall{Name: tc.Name, Arguments: tc.Arguments},
			})
		}
		out[i] = om
	}
	return out
}

// Complete 实现 Client.Complete
func (c *OpenAIClient) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	body := oaRequest{
		Model:     c.model,
		Messages:  toOpenAIMessages(req.Messages),
		MaxTokens: req.MaxTokens,
	}
	if req.Temperature > 0 {
		t := req.Temperature
		body.Temperature = &t
	}
	if len(req.Tools) > 0 {
		body.ToolChoice = "auto"
		for _, d := range req.Tools {
			body.Tools = append(body.Tools, oaTool{Type: "function", Function: d})
		}
	}

	response, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("Authorization", "Bearer "+c.apiKey).
		SetBody(body).
		Post(c.baseURL + "/chat/completions")
	if err != nil {
		return nil, fmt.Errorf("调用 %s API failed: %w", c.provider, err)
	}

	if response.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("%s API 返回错误 (%d): %s", c.provider, response.StatusCode(), response.String())
	}

	var result oaResponse
	if err := json.Unmarshal(response.Body(), &result); err != nil {
		return nil, fmt.Errorf("解析 %s 响应失败: %w", c.provider, err)
	}
	if len(result.Choices) == 0 {
		return nil, fmt.Errorf("%s API 没有返回结果", c.provider)
	}

	choice := result.Choices[0]
	out := &Completion{FinishReason: choice.FinishReason, Usage: result.Usage}
	if choice.Message.Content != nil {
		out.Content = *choice.Message.Content
	}
	for _, tc := range choice.Message.ToolCalls {
		if tc.Type != "" && tc.Type != "function" {
			continue
		}
		out.ToolCalls = append(out.ToolCalls, ToolCall{ID: tc.ID, Name: tc.Function.Name, Arguments: tc.Function.Arguments})
	}
	return out, nil
}

// Model 返回模型名称
func (c *OpenAIClient) Model() string {
	return c.model
}

// Provider 返回提供商名称
func (c *OpenAIClient) Provider() string {
	return c.provider
}
