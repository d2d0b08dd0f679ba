package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lisa-assistant/internal/agent/turn"
	"lisa-assistant/internal/model/llm"
	"lisa-assistant/pkg/config"
)

// fakeConn 依次返回 inbound，读完后返回 io.EOF；设置了 deadline 时返回超时
type fakeConn struct {
	mu       sync.Mutex
	inbound  [][]byte
	written  []outFrame
	deadline time.Time
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func (f *fakeConn) SetReadDeadline(t time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deadline = t
	return nil
}

func (f *fakeConn) ReadMessage() (int, []byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.inbound) == 0 {
		if !f.deadline.IsZero() {
			return 0, nil, timeoutErr{}
		}
		return 0, nil, io.EOF
	}
	msg := f.inbound[0]
	f.inbound = f.inbound[1:]
	return 1, msg, nil
}

func (f *fakeConn) WriteJSON(v interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var of outFrame
	if err := json.Unmarshal(b, &of); err != nil {
		return err
	}
	f.written = append(f.written, of)
	return nil
}

func TestParseInbound(t *testing.T) {
	cases := []struct {
		in   string
		want string
		err  error
	}{
		{`{"content":"hello"}`, "hello", nil},
		{`{"type":"mayday"}`, "mayday", nil},
		{`{"content":"  hi  ","type":"x"}`, "hi", nil},
		{`{"content":""}`, "", errEmptyContent},
		{`{"other":1}`, "", errInvalidFormat},
		{`hello`, "", errInvalidFormat},
		{`{"content":5}`, "", errInvalidFormat},
	}
	for _, tc := range cases {
		got, err := parseInbound([]byte(tc.in))
		if tc.err != nil {
			assert.ErrorIs(t, err, tc.err, tc.in)
			continue
		}
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got)
	}
}

func TestServeConn_Flow(t *testing.T) {
	hs := newHarness(t, config.APIConfig{})
	hs.client.steps = []*llm.Completion{{Content: "4"}}
	conn := &fakeConn{inbound: [][]byte{
		[]byte(`garbage`),
		[]byte(`{"content":""}`),
		[]byte(`{"content":"What's 2+2"}`),
	}}

	hs.handle.serveConn(context.Background(), conn)

	require.Len(t, conn.written, 4)
	assert.Equal(t, Greeting, conn.written[0].Content)
	assert.True(t, conn.written[0].SessionActive)
	assert.True(t, conn.written[1].Error)
	assert.Equal(t, "invalid message format", conn.written[1].Content)
	assert.True(t, conn.written[2].Error)
	assert.Equal(t, "content is required", conn.written[2].Content)
	assert.Equal(t, "4", conn.written[3].Content)
	assert.False(t, conn.written[3].Error)

	// 连接结束后会话被移除
	assert.Equal(t, 0, hs.handle.sessions.Len())
}

func TestServeConn_TurnFailure(t *testing.T) {
	hs := newHarness(t, config.APIConfig{})
	hs.client.err = errors.New("boom")
	conn := &fakeConn{inbound: [][]byte{[]byte(`{"content":"hi"}`)}}

	hs.handle.serveConn(context.Background(), conn)

	require.Len(t, conn.written, 2)
	assert.Equal(t, turn.DefaultFailure, conn.written[1].Content)
}

func TestServeConn_SilentTurnSendsOnlyToolFrames(t *testing.T) {
	hs := newHarness(t, config.APIConfig{})
	hs.client.steps = []*llm.Completion{{
		ToolCalls: []llm.ToolCall{{ID: "c1", Name: "give_intro", Arguments: ""}},
	}}
	conn := &fakeConn{inbound: [][]byte{[]byte(`{"content":"introduce yourself"}`)}}

	hs.handle.serveConn(context.Background(), conn)

	require.Len(t, conn.written, 3)
	assert.Equal(t, turn.DefaultWorking, conn.written[1].Content)
	assert.Equal(t, "I am LISA.", conn.written[2].Content)
}

func TestServeConn_IdleTimeoutSaysGoodbye(t *testing.T) {
	hs := newHarness(t, config.APIConfig{})
	hs.handle.SetIdleTimeout(time.Minute)
	conn := &fakeConn{}

	hs.handle.serveConn(context.Background(), conn)

	require.Len(t, conn.written, 2)
	assert.Equal(t, InactivityNotice, conn.written[1].Content)
	assert.False(t, conn.written[1].SessionActive)
	assert.False(t, conn.deadline.IsZero())
	assert.Equal(t, 0, hs.handle.sessions.Len())
}
