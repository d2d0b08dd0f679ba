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
	"context"
	"fmt"
	"time"

	"lisa-assistant/internal/agent/tools"
	"lisa-assistant/internal/agent/turn"
	"lisa-assistant/internal/model/llm"
	"lisa-assistant/internal/runtime/session"
	"lisa-assistant/internal/tool/builtin"
	"lisa-assistant/pkg/config"
	"lisa-assistant/pkg/utils"
)

// Assistant 对话编排与会话管理
type Assistant struct {
	Orchestrator *turn.Orchestrator
	Sessions     *session.Manager
}

// NewAssistant 装配工具表、两个模式的 profile 与 Orchestrator
func NewAssistant(ctx context.Context, b *Bootstrap, client llm.Client, mi config.ModelInfo) (*Assistant, error) {
	cfg := b.Config
	cal, err := builtin.NewCalendar(ctx, cfg.Tools.Calendar)
	if err != nil {
		return nil, fmt.Errorf("初始化日历失败: %w", err)
	}
	deps := builtin.Deps{
		Config:          cfg.Tools,
		InterviewPrompt: cfg.Assistant.InterviewPrompt,
		Cache:           b.Cache,
		Objects:         b.Objects,
		History:         b.Conversation,
		Calendar:        cal,
		Mailer:          builtin.NewMailer(cfg.Tools.Email),
		Logger:          b.Logger,
	}
	silent := cfg.Assistant.SilentTools
	if len(silent) == 0 {
		silent = builtin.DefaultSilent
	}

	assistantReg, err := tools.NewBuilder().Register(builtin.AssistantTools(deps)...).Silent(silent...).Build()
	if err != nil {
		return nil, fmt.Errorf("注册助手工具失败: %w", err)
	}
	interviewReg, err := tools.NewBuilder().Register(builtin.InterviewTools(deps)...).Silent(silent...).Build()
	if err != nil {
		return nil, fmt.Errorf("注册面试工具失败: %w", err)
	}
	dopts := []tools.Option{
		tools.WithTimeout(config.ParseDuration(cfg.Assistant.Timeouts.Tool, 20*time.Second)),
		tools.WithConcurrency(cfg.Assistant.DispatchConcurrency),
		tools.WithLogger(b.Logger.With("component", "dispatcher")),
	}

	temperature := cfg.Assistant.Temperature
	if temperature == 0 {
		temperature = mi.Temperature
	}
	opts := turn.Options{
		MaxHistory:      cfg.Assistant.MaxHistory,
		Temperature:     temperature,
		MaxTokens:       utils.DefaultInt(cfg.Assistant.MaxTokens, mi.MaxTokens),
		StoreTimeout:    config.ParseDuration(cfg.Assistant.Timeouts.Store, 5*time.Second),
		Acknowledgement: cfg.Assistant.Fallbacks.Acknowledgement,
		Working:         cfg.Assistant.Fallbacks.Working,
		Completed:       cfg.Assistant.Fallbacks.Completed,
	}
	orch, err := turn.New(client, b.Conversation, opts, b.Logger,
		turn.AssistantProfile(utils.CoalesceString(cfg.Assistant.SystemPrompt, DefaultSystemPrompt), tools.NewDispatcher(assistantReg, dopts...)),
		turn.InterviewProfile(tools.NewDispatcher(interviewReg, dopts...)),
	)
	if err != nil {
		return nil, err
	}
	b.Logger.Info("助手已装配", "assistant_tools", assistantReg.Len(), "interview_tools", interviewReg.Len(), "silent", silent)
	return &Assistant{Orchestrator: orch, Sessions: session.NewManager()}, nil
}
