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
package turn

import (
	"lisa-assistant/internal/agent/tools"
	"lisa-assistant/internal/model/llm"
)

// SpeakNaturally 第二次调用时追加到 system 消息末尾
const SpeakNaturally = "\n\nYou have just received the results of the tools you called. " +
	"Answer the user directly in natural, conversational sentences suitable for being spoken aloud. " +
	"Do not mention tool names, JSON or function calls."

// composePrompt system（可选）+ 历史 + 本轮用户消息。
// maxHistory>0 时从最旧的非 system 消息开始丢弃，开头连续的 system 消息始终保留。
func composePrompt(systemPrompt string, history []llm.Message, userText string, maxHistory int) []llm.Message {
	history = truncateHistory(history, maxHistory)
	out := make([]llm.Message, 0, len(history)+2)
	if systemPrompt != "" {
		out = append(out, llm.Message{Role: llm.RoleSystem, Content: systemPrompt})
	}
	out = append(out, history...)
	out = append(out, llm.Message{Role: llm.RoleUser, Content: userText})
	return out
}

func truncateHistory(history []llm.Message, maxHistory int) []llm.Message {
	if maxHistory <= 0 {
		return history
	}
	lead := 0
	for lead < len(history) && history[lead].Role == llm.RoleSystem {
		lead++
	}
	rest := history[lead:]
	if len(rest) <= maxHistory {
		return history
	}
	out := make([]llm.Message, 0, lead+maxHistory)
	out = append(out, history[:lead]...)
	return append(out, rest[len(rest)-maxHistory:]...)
}

// followUpPrompt 第二次调用的 prompt：首个 system 消息追加 SpeakNaturally（没有则新建），
// 之后是只携带已解析工具调用的 ack 与逐条 tool 消息
func followUpPrompt(base []llm.Message, ack string, requested []llm.ToolCall, results []tools.Result) []llm.Message {
	out := make([]llm.Message, 0, len(base)+len(results)+2)
	if len(base) > 0 && base[0].Role == llm.RoleSystem {
		sys := base[0]
		sys.Content += SpeakNaturally
		out = append(out, sys)
		out = append(out, base[1:]...)
	} else {
		out = append(out, llm.Message{Role: llm.RoleSystem, Content: SpeakNaturally[2:]})
		out = append(out, base...)
	}

	assistant := llm.Message{Role: llm.RoleAssistant, Content: ack}
	calls := resolvedCalls(requested, results)
	if len(calls) > 0 {
		assistant.ToolCalls = calls
	}
	out = append(out, assistant)
	for _, r := range results {
		out = append(out, llm.Message{Role: llm.RoleTool, Content: r.Content, ToolCallID: r.ToolCallID, Name: r.ToolName})
	}
	return out
}

// resolvedCalls results 是 requested 的有序子序列（未知工具已移除），按顺序对齐取回原始参数
func resolvedCalls(requested []llm.ToolCall, results []tools.Result) []llm.ToolCall {
	out := make([]llm.ToolCall, 0, len(results))
	j := 0
	for _, r := range results {
		for j < len(requested) && (requested[j].ID != r.ToolCallID || requested[j].Name != r.ToolName) {
			j++
		}
		if j < len(requested) {
			out = append(out, requested[j])
			j++
			continue
		}
		out = append(out, llm.ToolCall{ID: r.ToolCallID, Name: r.ToolName, Arguments: "{}"})
	}
	return out
}

// toolResponseEntries 持久化到历史的工具结果文本
func toolResponseEntries(results []tools.Result) []llm.Message {
	out := make([]llm.Message, 0, len(results))
	for _, r := range results {
		out = append(out, llm.Message{Role: llm.RoleAssistant, Content: "Tool response for " + r.ToolName + ": " + r.Content})
	}
	return out
}
