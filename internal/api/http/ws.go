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
	"context"
	"encoding/json"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/hertz-contrib/websocket"

	"lisa-assistant/internal/runtime/session"
)

const maxInboundBytes = 64 << 10

// InactivityNotice 空闲超时后推送，随后关闭连接
const InactivityNotice = "I haven't heard from you in a while. Goodbye for now!"

var upgrader = websocket.HertzUpgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*app.RequestContext) bool { return true },
}

var errInvalidFormat = errors.New("invalid message format")

// inbound 客户端消息；兼容只带 type 字段的旧客户端
type inbound struct {
	Content *string `json:"content"`
	Type    *string `json:"type"`
}

// outFrame 出站消息；Error 仅在错误帧中出现
type outFrame struct {
	session.Frame
	Error bool `json:"error,omitempty"`
}

// wsConn 便于测试替换的连接接口
type wsConn interface {
	ReadMessage() (int, []byte, error)
	WriteJSON(v interface{}) error
	SetReadDeadline(t time.Time) error
}

// connEmitter 串行化同一连接上的写
type connEmitter struct {
	mu   sync.Mutex
	conn wsConn
}

func (e *connEmitter) Emit(_ context.Context, f session.Frame) error {
	return e.write(outFrame{Frame: f})
}

func (e *connEmitter) write(f outFrame) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.conn.WriteJSON(f)
}

// ServeWS WebSocket 入口，每个连接一个新会话
// GET /ws
func (h *Handler) ServeWS(ctx context.Context, c *app.RequestContext) {
	err := upgrader.Upgrade(c, func(conn *websocket.Conn) {
		conn.SetReadLimit(maxInboundBytes)
		h.serveConn(ctx, conn)
	})
	if err != nil {
		hlog.CtxErrorf(ctx, "websocket upgrade failed: %v", err)
	}
}

// serveConn 按顺序处理连接上的消息，直到读失败
func (h *Handler) serveConn(ctx context.Context, conn wsConn) {
	em := &connEmitter{conn: conn}
	sc, closeSession := h.sessions.Open(em)
	defer closeSession()
	logger := h.logger.With("session_id", sc.ID)
	logger.Info("websocket connected")

	if err := sc.Emit(ctx, Greeting, true); err != nil {
		logger.Warn("send greeting failed", "error", err)
		return
	}
	for {
		if h.idleTimeout > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(h.idleTimeout))
		}
		_, data, err := conn.ReadMessage()
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				logger.Info("websocket idle timeout", "idle", h.idleTimeout)
				_ = sc.Emit(ctx, InactivityNotice, false)
				return
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Warn("websocket closed unexpectedly", "error", err)
			} else {
				logger.Info("websocket disconnected")
			}
			return
		}
		text, err := parseInbound(data)
		if err != nil {
			if werr := em.write(errorFrame(err.Error())); werr != nil {
				return
			}
			continue
		}
		if err := h.handleMessage(ctx, sc, text); err != nil {
			logger.Warn("write reply failed", "error", err)
			return
		}
	}
}

// handleMessage 运行一轮对话并推送结果；只有写连接失败才返回错误
func (h *Handler) handleMessage(ctx context.Context, sc *session.Context, text string) error {
	if err := sc.Lock(ctx); err != nil {
		return err
	}
	defer sc.Unlock()

	reply, err := h.orchestrator.ProcessTurn(ctx, sc, text)
	if err != nil {
		h.logger.Error("turn failed", "session_id", sc.ID, "error", err)
		return sc.Emit(ctx, h.failure, true)
	}
	if reply.Silent {
		return nil
	}
	return sc.Emit(ctx, reply.Text, true)
}

// parseInbound 解析 {"content": "..."}，无 content 时取 type
func parseInbound(data []byte) (string, error) {
	var msg inbound
	if err := json.Unmarshal(data, &msg); err != nil {
		return "", errInvalidFormat
	}
	var text string
	switch {
	case msg.Content != nil:
		text = *msg.Content
	case msg.Type != nil:
		text = *msg.Type
	default:
		return "", errInvalidFormat
	}
	return validateContent(text)
}

func errorFrame(msg string) outFrame {
	return outFrame{Frame: session.Frame{Role: "assistant", Content: msg, SessionActive: true}, Error: true}
}
