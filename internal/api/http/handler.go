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

package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"lisa-assistant/internal/agent/turn"
	"lisa-assistant/internal/runtime/session"
	"lisa-assistant/internal/storage/conversation"
	lerrors "lisa-assistant/pkg/errors"
	"lisa-assistant/pkg/log"
	"lisa-assistant/pkg/metrics"
)

// Greeting 连接建立后推送的第一条消息
const Greeting = "Voice assistant is ready. Please greet me to begin."

// Handler HTTP 处理器
type Handler struct {
	orchestrator *turn.Orchestrator
	sessions     *session.Manager
	store        conversation.Store
	logger       *log.Logger
	failure      string
	idleTimeout  time.Duration // WebSocket 读空闲超时，0 不限
}

// NewHandler 创建新的 HTTP 处理器；failure 为空时使用 turn.DefaultFailure
func NewHandler(orch *turn.Orchestrator, sessions *session.Manager, store conversation.Store, logger *log.Logger, failure string) *Handler {
	if logger == nil {
		logger = log.Nop()
	}
	if failure == "" {
		failure = turn.DefaultFailure
	}
	return &Handler{orchestrator: orch, sessions: sessions, store: store, logger: logger, failure: failure}
}

// SetIdleTimeout 设置 WebSocket 空闲超时
func (h *Handler) SetIdleTimeout(d time.Duration) { h.idleTimeout = d }

// HealthCheck 健康检查
func (h *Handler) HealthCheck(ctx context.Context, c *app.RequestContext) {
	c.JSON(consts.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Unix(),
		"sessions":  h.sessions.Len(),
	})
}

// Metrics Prometheus 指标
// GET /metrics
func (h *Handler) Metrics(ctx context.Context, c *app.RequestContext) {
	var buf bytes.Buffer
	if err := metrics.WritePrometheus(&buf); err != nil {
		hlog.CtxErrorf(ctx, "gather metrics failed: %v", err)
		c.JSON(consts.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	c.Data(consts.StatusOK, "text/plain; version=0.0.4; charset=utf-8", buf.Bytes())
}

// CreateSession 创建会话
// POST /api/sessions
func (h *Handler) CreateSession(ctx context.Context, c *app.RequestContext) {
	sc := h.sessions.Create(nil)
	c.JSON(consts.StatusCreated, map[string]string{"session_id": sc.ID})
}

type turnRequest struct {
	Content string `json:"content"`
}

// turnResponse events 为本轮工具推送的消息（确认语、静默工具文本等）
type turnResponse struct {
	Reply  string          `json:"reply"`
	Silent bool            `json:"silent"`
	Events []session.Frame `json:"events"`
}

// CreateTurn 处理一条用户消息
// POST /api/sessions/:id/turns
func (h *Handler) CreateTurn(ctx context.Context, c *app.RequestContext) {
	id := c.Param("id")
	var req turnRequest
	if err := json.Unmarshal(c.Request.Body(), &req); err != nil {
		c.JSON(consts.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	text, err := validateContent(req.Content)
	if err != nil {
		c.JSON(consts.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	sc, release, err := h.sessions.Acquire(ctx, id)
	if err != nil {
		hlog.CtxWarnf(ctx, "acquire session %s: %v", id, err)
		c.JSON(lerrors.HTTPStatus(err), map[string]string{"error": "session is busy"})
		return
	}
	defer release()

	rec := &session.Recorder{}
	prev := sc.Emitter()
	sc.SetEmitter(rec)
	defer sc.SetEmitter(prev)

	reply, err := h.orchestrator.ProcessTurn(ctx, sc, text)
	if err != nil {
		h.logger.Error("turn failed", "session_id", id, "error", err)
		c.JSON(consts.StatusInternalServerError, map[string]any{
			"error":  h.failure,
			"events": rec.Frames(),
		})
		return
	}
	c.JSON(consts.StatusOK, turnResponse{Reply: reply.Text, Silent: reply.Silent, Events: rec.Frames()})
}

// GetMessages 读取存储的历史；?mode=interview 读取面试历史
// GET /api/sessions/:id/messages
func (h *Handler) GetMessages(ctx context.Context, c *app.RequestContext) {
	id := c.Param("id")
	mode := session.Mode(c.DefaultQuery("mode", string(session.ModeAssistant)))
	if mode != session.ModeAssistant && mode != session.ModeInterview {
		c.JSON(consts.StatusBadRequest, map[string]string{"error": "mode must be assistant or interview"})
		return
	}
	msgs, err := h.orchestrator.History(ctx, id, mode)
	if err != nil {
		hlog.CtxErrorf(ctx, "read history %s failed: %v", id, err)
		c.JSON(consts.StatusInternalServerError, map[string]string{"error": "failed to read history"})
		return
	}
	c.JSON(consts.StatusOK, map[string]any{"session_id": id, "mode": mode, "messages": msgs, "total": len(msgs)})
}

// DeleteSession 删除会话及其所有模式的历史
// DELETE /api/sessions/:id
func (h *Handler) DeleteSession(ctx context.Context, c *app.RequestContext) {
	id := c.Param("id")
	for _, suffix := range h.orchestrator.KeySuffixes() {
		if err := h.store.Delete(ctx, id+suffix); err != nil {
			hlog.CtxErrorf(ctx, "delete history %s failed: %v", id+suffix, err)
			c.JSON(consts.StatusInternalServerError, map[string]string{"error": "failed to delete history"})
			return
		}
	}
	h.sessions.Remove(id)
	c.JSON(consts.StatusOK, map[string]any{"session_id": id, "deleted": true})
}

var errEmptyContent = errors.New("content is required")

// validateContent 空消息在进入编排前拒绝
func validateContent(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", errEmptyContent
	}
	return s, nil
}
