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
package tool

import (
	"context"
	"encoding/json"

	"lisa-assistant/internal/runtime/session"
)

// Schema 工具参数的 JSON Schema（同时用于 LLM function-calling 与参数校验）
type Schema struct {
	Type        string                    `json:"type,omitempty"`
	Description string                    `json:"description,omitempty"`
	Properties  map[string]SchemaProperty `json:"properties,omitempty"`
	Required    []string                  `json:"required,omitempty"`
}

// SchemaProperty 表示 Schema 中单个属性的描述
type SchemaProperty struct {
	Type        string          `json:"type,omitempty"`
	Description string          `json:"description,omitempty"`
	Enum        []string        `json:"enum,omitempty"`
	Format      string          `json:"format,omitempty"`
	Pattern     string          `json:"pattern,omitempty"`
	Minimum     *float64        `json:"minimum,omitempty"`
	Maximum     *float64        `json:"maximum,omitempty"`
	Default     any             `json:"default,omitempty"`
	Items       *SchemaProperty `json:"items,omitempty"`
}

// Map 转为 map 形式（llm.ToolDefinition.Parameters）
func (s Schema) Map() map[string]any {
	if s.Type == "" {
		s.Type = "object"
	}
	b, _ := json.Marshal(s)
	out := map[string]any{}
	_ = json.Unmarshal(b, &out)
	if _, ok := out["properties"]; !ok {
		out["properties"] = map[string]any{}
	}
	return out
}

// Tool 会话感知的工具。Execute 返回给模型的字符串内容（通常为 JSON）；
// 返回 error 时由 dispatcher 格式化为错误文本。
type Tool interface {
	Name() string
	Description() string
	Schema() Schema
	Execute(ctx context.Context, sc *session.Context, args map[string]any) (string, error)
}

// Range 构造 minimum/maximum
func Range(min, max float64) (*float64, *float64) {
	return &min, &max
}
