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
package tools

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/xeipuuv/gojsonschema"

	"lisa-assistant/internal/model/llm"
	"lisa-assistant/internal/tool"
)

// Registry 不可变的工具表：name -> tool，附带编译好的参数 schema 与静默集合。
// 只能通过 Builder 构造，Build 之后不再变化，可被多个 turn 并发读取。
type Registry struct {
	tools   map[string]tool.Tool
	schemas map[string]*gojsonschema.Schema
	silent  map[string]bool
	defs    []llm.ToolDefinition
}

// Builder 启动期装配 Registry
type Builder struct {
	tools  []tool.Tool
	silent []string
}

// NewBuilder 创建 Builder
func NewBuilder() *Builder {
	return &Builder{}
}

// Register 注册工具
func (b *Builder) Register(ts ...tool.Tool) *Builder {
	b.tools = append(b.tools, ts...)
	return b
}

// Silent 标记静默工具：结果全部为静默工具时，本轮不再生成第二次回复
func (b *Builder) Silent(names ...string) *Builder {
	b.silent = append(b.silent, names...)
	return b
}

// Build 校验并冻结。重名、空名或 schema 无法编译时返回错误
func (b *Builder) Build() (*Registry, error) {
	r := &Registry{
		tools:   make(map[string]tool.Tool, len(b.tools)),
		schemas: make(map[string]*gojsonschema.Schema, len(b.tools)),
		silent:  make(map[string]bool, len(b.silent)),
	}
	for _, t := range b.tools {
		name := t.Name()
		if name == "" {
			return nil, fmt.Errorf("tool with empty name")
		}
		if _, dup := r.tools[name]; dup {
			return nil, fmt.Errorf("tool %s registered twice", name)
		}
		params := t.Schema().Map()
		raw, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("tool %s schema: %w", name, err)
		}
		compiled, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
		if err != nil {
			return nil, fmt.Errorf("tool %s schema: %w", name, err)
		}
		r.tools[name] = t
		r.schemas[name] = compiled
		r.defs = append(r.defs, llm.ToolDefinition{Name: name, Description: t.Description(), Parameters: params})
	}
	for _, name := range b.silent {
		r.silent[name] = true
	}
	sort.Slice(r.defs, func(i, j int) bool { return r.defs[i].Name < r.defs[j].Name })
	return r, nil
}

// MustBuild Build 失败时 panic，用于静态装配与测试
func (b *Builder) MustBuild() *Registry {
	r, err := b.Build()
	if err != nil {
		panic(err)
	}
	return r
}

// Describe 按名称排序的工具描述，每次返回新切片
func (r *Registry) Describe() []llm.ToolDefinition {
	out := make([]llm.ToolDefinition, len(r.defs))
	copy(out, r.defs)
	return out
}

// Resolve 按名称查找
func (r *Registry) Resolve(name string) (tool.Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// IsSilent 是否为静默工具
func (r *Registry) IsSilent(name string) bool {
	return r.silent[name]
}

// Names 已注册的工具名（排序）
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.defs))
	for _, d := range r.defs {
		out = append(out, d.Name)
	}
	return out
}

// Len 工具数量
func (r *Registry) Len() int { return len(r.tools) }

func (r *Registry) schema(name string) *gojsonschema.Schema {
	return r.schemas[name]
}
