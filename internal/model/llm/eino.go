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

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// EinoClient 基于 eino ToolCallingChatModel 的客户端
type EinoClient struct {
	provider string
	model    string
	chat     model.ToolCallingChatModel
}

// NewEinoClient 使用 eino-ext OpenAI ChatModel 创建客户端
func NewEinoClient(ctx context.Context, provider, modelName, apiKey, baseURL string) (*EinoClient, error) {
	cm, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		Model:   modelName,
		APIKey:  apiKey,
		BaseURL: baseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("创建 OpenAI ChatModel failed: %w", err)
	}
	return NewEinoClientFromModel(provider, modelName, cm), nil
}

// NewEinoClientFromModel 包装已有 ChatModel（测试或自定义组件）
func NewEinoClientFromModel(provider, modelName string, cm model.ToolCallingChatModel) *EinoClient {
	if provider == "" {
		provider = "eino"
	}
	return &EinoClient{provider: provider, model: modelName, chat: cm}
}

// Complete 实现 Client.Complete；Tools 非空时通过 WithTools 绑定到本次调用
func (c *EinoClient) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	cm := c.chat
	if len(req.Tools) > 0 {
		infos := make([]*schema.ToolInfo, 0, len(req.Tools))
		for _, d := range req.Tools {
			infos = append(infos, ToolInfoFromDefinition(d))
		}
		bound, err := c.chat.WithTools(infos)
		if err != nil {
			return nil, fmt.Errorf("绑定工具失败: %w", err)
		}
		cm = bound
	}

	var opts []model.Option
	if req.Temperature > 0 {
		opts = append(opts, model.WithTemperature(float32(req.Temperature)))
	}
	if req.MaxTokens > 0 {
		opts = append(opts, model.WithMaxTokens(req.MaxTokens))
	}

	out, err := cm.Generate(ctx, toEinoMessages(req.Messages), opts...)
	if err != nil {
		return nil, fmt.Errorf("eino generate failed: %w", err)
	}
	return fromEinoMessage(out), nil
}

// Model 返回模型名称
func (c *EinoClient) Model() string { return c.model }

// Provider 返回提供商名称
func (c *EinoClient) Provider() string { return c.provider }

func toEinoMessages(msgs []Message) []*schema.Message {
	out := make([]*schema.Message, 0, len(msgs))
	for _, m := range msgs {
		em := &schema.Message{
			Role:       schema.RoleType(m.Role),
			Content:    m.Content,
			ToolCallID: m.ToolCallID,
			ToolName:   m.Name,
		}
		for _, tc := range m.ToolCalls {
			em.ToolCalls = append(em.ToolCalls, schema.ToolCall{
				ID:       tc.ID,
				Type:     "function",
				Function: schema.FunctionCall{Name: tc.Name, Arguments: tc.Arguments},
			})
		}
		out = append(out, em)
	}
	return out
}

func fromEinoMessage(m *schema.Message) *Completion {
	if m == nil {
		return &Completion{}
	}
	out := &Completion{Content: m.Content}
	for _, tc := range m.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, ToolCall{ID: tc.ID, Name: tc.Function.Name, Arguments: tc.Function.Arguments})
	}
	if m.ResponseMeta != nil {
		out.FinishReason = m.ResponseMeta.FinishReason
		if u := m.ResponseMeta.Usage; u != nil {
			out.Usage = Usage{PromptTokens: u.PromptTokens, CompletionTokens: u.CompletionTokens}
		}
	}
	return out
}

// ToolInfoFromDefinition 将 JSON Schema 形式的 ToolDefinition 转为 eino ToolInfo
func ToolInfoFromDefinition(d ToolDefinition) *schema.ToolInfo {
	info := &schema.ToolInfo{Name: d.Name, Desc: d.Description}
	props, _ := d.Parameters["properties"].(map[string]any)
	if len(props) == 0 {
		return info
	}
	required := map[string]bool{}
	for _, r := range stringList(d.Parameters["required"]) {
		required[r] = true
	}
	params := make(map[string]*schema.ParameterInfo, len(props))
	for name, raw := range props {
		p, _ := raw.(map[string]any)
		pi := paramInfo(p)
		pi.Required = required[name]
		params[name] = pi
	}
	info.ParamsOneOf = schema.NewParamsOneOfByParams(params)
	return info
}

func paramInfo(p map[string]any) *schema.ParameterInfo {
	pi := &schema.ParameterInfo{Type: schema.String}
	if p == nil {
		return pi
	}
	if t, ok := p["type"].(string); ok {
		pi.Type = schema.DataType(t)
	}
	if desc, ok := p["description"].(string); ok {
		pi.Desc = desc
	}
	pi.Enum = stringList(p["enum"])
	if items, ok := p["items"].(map[string]any); ok {
		pi.ElemInfo = paramInfo(items)
	}
	if sub, ok := p["properties"].(map[string]any); ok && len(sub) > 0 {
		req := map[string]bool{}
		for _, r := range stringList(p["required"]) {
			req[r] = true
		}
		pi.SubParams = make(map[string]*schema.ParameterInfo, len(sub))
		for k, raw := range sub {
			child, _ := raw.(map[string]any)
			ci := paramInfo(child)
			ci.Required = req[k]
			pi.SubParams[k] = ci
		}
	}
	return pi
}

// stringList 兼容 []string 与 JSON 解码得到的 []any
func stringList(v any) []string {
	switch t := v.(type) {
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, x := range t {
			if s, ok := x.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
