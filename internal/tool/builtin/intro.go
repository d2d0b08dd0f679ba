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

package builtin

import (
	"context"

	"lisa-assistant/internal/runtime/session"
	"lisa-assistant/internal/tool"
)

const (
	IntroText = `Introducing LISA, your voice-activated assistant.
LISA (Lively Interactive Scheduling Assistant) is built for busy professionals, students, parents and elderly users alike. It puts voice first to cut down screen time: it manages email, schedules meetings on your calendar, tracks your todos and reminders, checks the weather and the news, searches the web, and raises an SOS alert when you need help.
Just say "Hey LISA" to get started.`

	AlexaComparisonText = `Alexa, Siri and Google Assistant handle basic tasks well. LISA goes further with professional capabilities such as composing emails, managing calendars, scheduling meetings and summarising web searches.
It also looks after your safety with an SOS feature for emergencies, and helps with your career through mock interviews based on your own resume.
Rather than feeling robotic, LISA adapts to your routines and talks with you in a natural way.`
)

// fixedTextTool 推送一段固定文本后返回 {"success":true}；均注册为静默工具
func fixedTextTool(name, description, text string) tool.Tool {
	return &funcTool{
		name:        name,
		description: description,
		schema:      tool.Schema{Type: "object"},
		run: func(ctx context.Context, sc *session.Context, _ map[string]any) (string, error) {
			if err := sc.Emit(ctx, text, true); err != nil {
				return "", err
			}
			return success(nil)
		},
	}
}

func NewIntroTool() tool.Tool {
	return fixedTextTool("give_intro", "Introduce LISA when the user asks who you are or what you can do.", IntroText)
}

func NewCompareTool() tool.Tool {
	return fixedTextTool("compare_with_alexa", "Explain how LISA compares with Alexa, Siri or Google Assistant.", AlexaComparisonText)
}
