package llm

import (
	"context"
	"fmt"
)

// 消息角色
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Client LLM 客户端接口：一次阻塞的 completion 调用
type Client interface {
	// Complete 发送消息与可选的工具 schema，返回文本回复或工具调用请求
	Complete(ctx context.Context, req CompletionRequest) (*Completion, error)
	// Model 返回模型名称
	Model() string
	// Provider 返回提供商名称
	Provider() string
}

// Message 聊天消息
type Message struct {
	Role       string     `json:"role"` // system, user, assistant, tool
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`   // 仅 assistant
	ToolCallID string     `json:"tool_call_id,omitempty"` // 仅 tool
	Name       string     `json:"name,omitempty"`         // tool 消息对应的工具名
}

// ToolCall 模型请求的一次工具调用；Arguments 为模型给出的原始 JSON
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolDefinition 提供给模型的工具描述，Parameters 为 JSON Schema 对象
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// CompletionRequest completion 请求；Tools 为空时不向模型暴露工具
type CompletionRequest struct {
	Messages    []Message
	Tools       []ToolDefinition
	Temperature float64
	MaxTokens   int
}

// Usage token 用量
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

// Completion 模型输出
type Completion struct {
	Content      string
	ToolCalls    []ToolCall
	FinishReason string
	Usage        Usage
}

// HasToolCalls 是否请求了工具调用
func (c *Completion) HasToolCalls() bool {
	return c != nil && len(c.ToolCalls) > 0
}

// NewClient 创建新的 LLM 客户端；kind 为 eino 时走 eino-ext ChatModel，其余按 OpenAI 兼容协议（openai、groq、qwen 等）
func NewClient(kind, provider, model, apiKey, baseURL string) (Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("LLM provider %q 的 api_key 未配置", provider)
	}
	switch kind {
	case "eino":
		return NewEinoClient(context.Background(), provider, model, apiKey, baseURL)
	case "", "openai":
		return NewOpenAIClientWithBaseURL(provider, model, apiKey, baseURL)
	default:
		return nil, fmt.Errorf("unsupported LLM client type: %s", kind)
	}
}
