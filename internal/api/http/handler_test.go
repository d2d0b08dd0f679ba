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
	"sync"
	"testing"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/ut"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lisa-assistant/internal/agent/tools"
	"lisa-assistant/internal/agent/turn"
	"lisa-assistant/internal/api/http/middleware"
	"lisa-assistant/internal/model/llm"
	"lisa-assistant/internal/runtime/session"
	"lisa-assistant/internal/storage/conversation"
	"lisa-assistant/internal/tool"
	"lisa-assistant/pkg/config"
)

// scriptClient 按顺序返回预设的 completion
type scriptClient struct {
	mu    sync.Mutex
	steps []*llm.Completion
	err   error
}

func (s *scriptClient) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.Completion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	if len(s.steps) == 0 {
		return &llm.Completion{Content: "ok"}, nil
	}
	c := s.steps[0]
	s.steps = s.steps[1:]
	return c, nil
}

func (s *scriptClient) Model() string    { return "test" }
func (s *scriptClient) Provider() string { return "test" }

type introTool struct{}

func (introTool) Name() string        { return "give_intro" }
func (introTool) Description() string { return "intro" }
func (introTool) Schema() tool.Schema { return tool.Schema{Type: "object"} }
func (introTool) Execute(ctx context.Context, sc *session.Context, _ map[string]any) (string, error) {
	if err := sc.Emit(ctx, "I am LISA.", true); err != nil {
		return "", err
	}
	return `{"success":true}`, nil
}

type harness struct {
	h      *server.Hertz
	client *scriptClient
	store  conversation.Store
	handle *Handler
}

func newHarness(t *testing.T, apiCfg config.APIConfig) *harness {
	t.Helper()
	client := &scriptClient{}
	store := conversation.NewMemoryStore()
	reg, err := tools.NewBuilder().Register(introTool{}).Silent("give_intro").Build()
	require.NoError(t, err)
	d := tools.NewDispatcher(reg)
	orch, err := turn.New(client, store, turn.Options{}, nil,
		turn.AssistantProfile("You are LISA.", d),
		turn.InterviewProfile(tools.NewDispatcher(tools.NewBuilder().MustBuild())))
	require.NoError(t, err)

	handler := NewHandler(orch, session.NewManager(), store, nil, "")
	r := NewRouter(handler, middleware.NewMiddleware(apiCfg))
	return &harness{h: r.Build(":0"), client: client, store: store, handle: handler}
}

func (hs *harness) do(method, path string, body string) (int, []byte) {
	w := ut.PerformRequest(hs.h.Engine, method, path, &ut.Body{Body: bytes.NewReader([]byte(body)), Len: len(body)},
		ut.Header{Key: "Content-Type", Value: "application/json"})
	resp := w.Result()
	return resp.StatusCode(), resp.Body()
}

func TestHealthCheck(t *testing.T) {
	hs := newHarness(t, config.APIConfig{})
	code, body := hs.do("GET", "/api/health", "")
	assert.Equal(t, 200, code)
	assert.Contains(t, string(body), `"status":"ok"`)
}

func TestMetricsEndpoint(t *testing.T) {
	hs := newHarness(t, config.APIConfig{})
	code, body := hs.do("GET", "/metrics", "")
	assert.Equal(t, 200, code)
	assert.Contains(t, string(body), "lisa_active_sessions")
}

func TestCreateSessionAndTurn(t *testing.T) {
	hs := newHarness(t, config.APIConfig{})
	code, body := hs.do("POST", "/api/sessions", "")
	require.Equal(t, 201, code)
	var created map[string]string
	require.NoError(t, json.Unmarshal(body, &created))
	id := created["session_id"]
	require.NotEmpty(t, id)

	hs.client.steps = []*llm.Completion{{Content: "4"}}
	code, body = hs.do("POST", "/api/sessions/"+id+"/turns", `{"content":"What's 2+2"}`)
	require.Equal(t, 200, code)
	var resp turnResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	assert.Equal(t, "4", resp.Reply)
	assert.False(t, resp.Silent)
	assert.Empty(t, resp.Events)

	code, body = hs.do("GET", "/api/sessions/"+id+"/messages", "")
	require.Equal(t, 200, code)
	var hist struct {
		Messages []llm.Message `json:"messages"`
		Total    int           `json:"total"`
	}
	require.NoError(t, json.Unmarshal(body, &hist))
	assert.Equal(t, []llm.Message{{Role: "user", Content: "What's 2+2"}, {Role: "assistant", Content: "4"}}, hist.Messages)
}

func TestTurn_SilentToolEvents(t *testing.T) {
	hs := newHarness(t, config.APIConfig{})
	hs.client.steps = []*llm.Completion{{
		Content:   "Sure.",
		ToolCalls: []llm.ToolCall{{ID: "c1", Name: "give_intro", Arguments: "{}"}},
	}}
	code, body := hs.do("POST", "/api/sessions/s-1/turns", `{"content":"who are you"}`)
	require.Equal(t, 200, code)
	var resp turnResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	assert.True(t, resp.Silent)
	assert.Empty(t, resp.Reply)
	assert.Equal(t, []session.Frame{
		{Role: "assistant", Content: "Sure.", SessionActive: true},
		{Role: "assistant", Content: "I am LISA.", SessionActive: true},
	}, resp.Events)
}

func TestTurn_BadInput(t *testing.T) {
	hs := newHarness(t, config.APIConfig{})
	code, _ := hs.do("POST", "/api/sessions/s-1/turns", `{"content":"   "}`)
	assert.Equal(t, 400, code)
	code, _ = hs.do("POST", "/api/sessions/s-1/turns", `not json`)
	assert.Equal(t, 400, code)
}

func TestTurn_CompletionFailure(t *testing.T) {
	hs := newHarness(t, config.APIConfig{})
	hs.client.err = errors.New("upstream down")
	code, body := hs.do("POST", "/api/sessions/s-1/turns", `{"content":"hi"}`)
	assert.Equal(t, 500, code)
	assert.Contains(t, string(body), turn.DefaultFailure)
}

func TestGetMessages_BadMode(t *testing.T) {
	hs := newHarness(t, config.APIConfig{})
	code, _ := hs.do("GET", "/api/sessions/s-1/messages?mode=party", "")
	assert.Equal(t, 400, code)
}

func TestDeleteSession_RemovesAllModes(t *testing.T) {
	hs := newHarness(t, config.APIConfig{})
	ctx := context.Background()
	require.NoError(t, hs.store.Append(ctx, "s-1", llm.Message{Role: "user", Content: "a"}))
	require.NoError(t, hs.store.Append(ctx, "s-1-interview", llm.Message{Role: "system", Content: "b"}))

	code, _ := hs.do("DELETE", "/api/sessions/s-1", "")
	require.Equal(t, 200, code)
	for _, key := range []string{"s-1", "s-1-interview"} {
		ok, err := hs.store.Exists(ctx, key)
		require.NoError(t, err)
		assert.False(t, ok, key)
	}
}

func TestRateLimit(t *testing.T) {
	hs := newHarness(t, config.APIConfig{Middleware: config.MiddlewareConfig{RateLimit: true, RateLimitRPS: 1}})
	code, _ := hs.do("POST", "/api/sessions", "")
	assert.Equal(t, 201, code)
	code, _ = hs.do("POST", "/api/sessions", "")
	assert.Equal(t, 429, code)
	// 健康检查不限流
	code, _ = hs.do("GET", "/api/health", "")
	assert.Equal(t, 200, code)
}

func TestCORSPreflight(t *testing.T) {
	hs := newHarness(t, config.APIConfig{CORS: config.CORSConfig{Enable: true}})
	w := ut.PerformRequest(hs.h.Engine, "OPTIONS", "/api/sessions", nil, ut.Header{Key: "Origin", Value: "http://app"})
	assert.Equal(t, 204, w.Result().StatusCode())
	assert.Equal(t, "*", string(w.Result().Header.Peek("Access-Control-Allow-Origin")))
}
