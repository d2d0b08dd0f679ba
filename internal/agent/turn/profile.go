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
	"lisa-assistant/internal/runtime/session"
)

// InterviewKeySuffix 面试模式历史 key 后缀
const InterviewKeySuffix = "-interview"

// Profile 一种对话模式的配置：系统提示词、历史 key 后缀与可用工具
type Profile struct {
	Name string
	Mode session.Mode
	// SystemPrompt 为空时不在 prompt 头部插入 system 消息（面试模式的 system 已写入历史）
	SystemPrompt string
	KeySuffix    string
	Tools        *tools.Dispatcher
}

// AssistantProfile 默认助手模式
func AssistantProfile(systemPrompt string, d *tools.Dispatcher) Profile {
	return Profile{Name: "assistant", Mode: session.ModeAssistant, SystemPrompt: systemPrompt, Tools: d}
}

// InterviewProfile 面试模式；system 提示词在开始面试时写入 "{id}-interview" 历史
func InterviewProfile(d *tools.Dispatcher) Profile {
	return Profile{Name: "interview", Mode: session.ModeInterview, KeySuffix: InterviewKeySuffix, Tools: d}
}
