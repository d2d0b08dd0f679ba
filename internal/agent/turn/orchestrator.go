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
	"context"
	"fmt"
	"strings"
	"time"

	"lisa-assistant/internal/agent/tools"
	"lisa-assistant/internal/model/llm"
	"lisa-assistant/internal/runtime/session"
	"lisa-assistant/internal/storage/conversation"
	lerrors "lisa-assistant/pkg/errors"
	"lisa-assistant/pkg/log"
	"lisa-assistant/pkg/metrics"
	"lisa-assistant/pkg/tracing"
)

// 兜底文案
const (
	DefaultAcknowledgement = "Let me take care of that for you."
	DefaultWorking         = "I'm working on that for you now..."
	DefaultCompleted       = "I've completed that task for you!"
	DefaultFailure         = "I'm having trouble processing your request. Could you try again?"
)

// Reply 一轮对话的结果
type Reply struct {
	// Text 最终回复；Silent 为 true 时为空
	Text string
	// Silent 本轮只调用了静默工具，没有生成回复
	Silent      bool
	ToolResults []tools.Result
}

// Options 编排参数
type Options struct {
	MaxHistory   int
	Temperature  float64
	MaxTokens    int
	StoreTimeout time.Duration

	Acknowledgement string
	Working         string
	Completed       string
}

// Orchestrator 执行一轮对话：组装 prompt、首次调用（带工具）、并发执行工具、
// 第二次调用（不带工具）并把结果写回历史
type Orchestrator struct {
	client   llm.Client
	store    conversation.Store
	profiles map[session.Mode]Profile
	opts     Options
	logger   *log.Logger
}

// New 创建 Orchestrator。profiles 至少包含 assistant 模式
func New(client llm.Client, store conversation.Store, opts Options, logger *log.Logger, profiles ...Profile) (*Orchestrator, error) {
	if client == nil || store == nil {
		return nil, lerrors.Wrap(lerrors.ErrInvalidArg, "client and store are required")
	}
	if logger == nil {
		logger = log.Nop()
	}
	o := &Orchestrator{
		client:   client,
		store:    store,
		profiles: make(map[session.Mode]Profile, len(profiles)),
		opts:     opts,
		logger:   logger,
	}
	for _, p := range profiles {
		if p.Tools == nil {
			return nil, lerrors.Wrapf(lerrors.ErrInvalidArg, "profile %s has no dispatcher", p.Name)
		}
		o.profiles[p.Mode] = p
	}
	if _, ok := o.profiles[session.ModeAssistant]; !ok {
		return nil, lerrors.Wrap(lerrors.ErrInvalidArg, "assistant profile is required")
	}
	if o.opts.Acknowledgement == "" {
		o.opts.Acknowledgement = DefaultAcknowledgement
	}
	if o.opts.Working == "" {
		o.opts.Working = DefaultWorking
	}
	if o.opts.Completed == "" {
		o.opts.Completed = DefaultCompleted
	}
	if o.opts.StoreTimeout <= 0 {
		o.opts.StoreTimeout = 5 * time.Second
	}
	return o, nil
}

// Profile 返回模式对应的 profile，未配置的模式回落到 assistant
func (o *Orchestrator) Profile(m session.Mode) Profile {
	if p, ok := o.profiles[m]; ok {
		return p
	}
	return o.profiles[session.ModeAssistant]
}

// KeySuffixes 所有 profile 的历史 key 后缀，删除会话时使用
func (o *Orchestrator) KeySuffixes() []string {
	out := make([]string, 0, len(o.profiles))
	for _, p := range o.profiles {
		out = append(out, p.KeySuffix)
	}
	return out
}

// ProcessTurn 处理一条用户消息。调用方需持有 sc 的 turn 锁。
// 返回的错误都是本轮致命错误，调用方统一回复 DefaultFailure。
func (o *Orchestrator) ProcessTurn(ctx context.Context, sc *session.Context, userText string) (Reply, error) {
	if strings.TrimSpace(userText) == "" {
		return Reply{}, lerrors.Wrap(lerrors.ErrInvalidArg, "empty user message")
	}
	profile := o.Profile(sc.Mode())
	logger := o.logger.With("session_id", sc.ID, "mode", profile.Name)

	ctx, span := tracing.StartTurnSpan(ctx, sc.ID, profile.Name)
	defer span.End()
	start := time.Now()
	outcome := "failed"
	defer func() {
		metrics.TurnDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
		metrics.TurnTotal.WithLabelValues(outcome).Inc()
	}()

	reply, kind, err := o.process(ctx, sc, profile, userText, logger)
	if err != nil {
		tracing.RecordError(span, err)
		logger.Error("turn failed", "duration", time.Since(start), "error", err)
		return Reply{}, err
	}
	outcome = kind
	logger.Info("turn completed", "outcome", kind, "tools", len(reply.ToolResults), "duration", time.Since(start))
	return reply, nil
}

func (o *Orchestrator) process(ctx context.Context, sc *session.Context, p Profile, userText string, logger *log.Logger) (Reply, string, error) {
	key := sc.Key(p.KeySuffix)
	history, err := o.read(ctx, key)
	if err != nil {
		return Reply{}, "", lerrors.Wrap(err, "read history")
	}
	prompt := composePrompt(p.SystemPrompt, history, userText, o.opts.MaxHistory)
	user := llm.Message{Role: llm.RoleUser, Content: userText}

	first, err := o.complete(llm.WithPhase(ctx, "first"), prompt, p.Tools.Registry().Describe())
	if err != nil {
		return Reply{}, "", lerrors.Wrap(err, "first completion")
	}

	if !first.HasToolCalls() {
		if err := o.append(ctx, key, user, llm.Message{Role: llm.RoleAssistant, Content: first.Content}); err != nil {
			return Reply{}, "", lerrors.Wrap(err, "append history")
		}
		return Reply{Text: first.Content}, "plain", nil
	}

	ack := first.Content
	if strings.TrimSpace(ack) == "" {
		ack = o.opts.Acknowledgement
	}
	if err := o.append(ctx, key, user, llm.Message{Role: llm.RoleAssistant, Content: ack}); err != nil {
		return Reply{}, "", lerrors.Wrap(err, "append history")
	}
	spoken := first.Content
	if strings.TrimSpace(spoken) == "" {
		spoken = o.opts.Working
	}
	if err := sc.Emit(ctx, spoken, true); err != nil {
		logger.Warn("push acknowledgement failed", "error", err)
	}

	results := p.Tools.DispatchAll(ctx, sc, first.ToolCalls)

	if allSilent(p.Tools.Registry(), results) {
		if err := o.append(ctx, key, toolResponseEntries(results)...); err != nil {
			return Reply{}, "", lerrors.Wrap(err, "append history")
		}
		return Reply{Silent: true, ToolResults: results}, "silent", nil
	}

	second, err := o.complete(llm.WithPhase(ctx, "second"), followUpPrompt(prompt, ack, first.ToolCalls, results), nil)
	if err != nil {
		return Reply{}, "", lerrors.Wrap(err, "second completion")
	}
	final := second.Content
	if strings.TrimSpace(final) == "" {
		final = o.opts.Completed
	}
	entries := append(toolResponseEntries(results), llm.Message{Role: llm.RoleAssistant, Content: final})
	if err := o.append(ctx, key, entries...); err != nil {
		return Reply{}, "", lerrors.Wrap(err, "append history")
	}
	return Reply{Text: final, ToolResults: results}, "tool", nil
}

func (o *Orchestrator) complete(ctx context.Context, prompt []llm.Message, defs []llm.ToolDefinition) (*llm.Completion, error) {
	out, err := o.client.Complete(ctx, llm.CompletionRequest{
		Messages:    prompt,
		Tools:       defs,
		Temperature: o.opts.Temperature,
		MaxTokens:   o.opts.MaxTokens,
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, fmt.Errorf("%s returned no completion: %w", o.client.Provider(), lerrors.ErrUnavailable)
	}
	return out, nil
}

func (o *Orchestrator) read(ctx context.Context, key string) ([]llm.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, o.opts.StoreTimeout)
	defer cancel()
	return o.store.Read(ctx, key)
}

func (o *Orchestrator) append(ctx context.Context, key string, msgs ...llm.Message) error {
	ctx, cancel := context.WithTimeout(ctx, o.opts.StoreTimeout)
	defer cancel()
	return o.store.Append(ctx, key, msgs...)
}

// allSilent 结果非空、全部来自静默工具且全部成功；
// 静默工具失败时它自己可能什么都没推送，需要第二次调用告诉用户
func allSilent(r *tools.Registry, results []tools.Result) bool {
	if len(results) == 0 {
		return false
	}
	for _, res := range results {
		if !r.IsSilent(res.ToolName) || res.Status != tools.StatusOK {
			return false
		}
	}
	return true
}

// History 读取某个模式下的历史
func (o *Orchestrator) History(ctx context.Context, sessionID string, m session.Mode) ([]llm.Message, error) {
	return o.read(ctx, sessionID+o.Profile(m).KeySuffix)
}
