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
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	lerrors "lisa-assistant/pkg/errors"
	"lisa-assistant/pkg/metrics"
)

// Manager 管理进程内的会话上下文
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Context
}

// NewManager 创建 Manager
func NewManager() *Manager {
	return &Manager{sessions: make(map[string]*Context)}
}

// Open 创建会话并 Pin，供 WebSocket 连接使用；done 解除 Pin 并移除会话
func (m *Manager) Open(emitter Emitter) (c *Context, done func()) {
	c = m.Create(emitter)
	unpin := c.Pin()
	return c, func() {
		unpin()
		m.Remove(c.ID)
	}
}

// Create 创建新会话
func (m *Manager) Create(emitter Emitter) *Context {
	c := New("", emitter)
	m.mu.Lock()
	m.sessions[c.ID] = c
	m.setGauge()
	m.mu.Unlock()
	return c
}

// Get 按 id 获取
func (m *Manager) Get(id string) (*Context, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.sessions[id]
	return c, ok
}

// GetOrCreate id 为空时新建；id 不存在时以该 id 新建（历史可能已在存储中）
func (m *Manager) GetOrCreate(id string, emitter Emitter) *Context {
	if id == "" {
		return m.Create(emitter)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.sessions[id]; ok {
		return c
	}
	c := New(id, emitter)
	m.sessions[id] = c
	m.setGauge()
	return c
}

// Acquire 获取会话并持有其 turn 锁，返回的 release 必须调用；
// ctx 结束仍未拿到锁时返回同时匹配 ErrBusy 与 ctx.Err() 的错误
func (m *Manager) Acquire(ctx context.Context, id string) (*Context, func(), error) {
	c := m.GetOrCreate(id, nil)
	if err := c.Lock(ctx); err != nil {
		return nil, nil, fmt.Errorf("%w: session %s: %w", lerrors.ErrBusy, id, err)
	}
	return c, c.Unlock, nil
}

// Remove 移除上下文（连接关闭）；不会删除存储中的历史
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	m.setGauge()
}

// Len 当前会话数
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep 移除 idle 以上未活动的会话，返回移除数量；
// turn 进行中或被连接 Pin 的会话不回收，否则同一 id 会得到第二把 turn 锁
func (m *Manager) Sweep(idle time.Duration) int {
	cutoff := time.Now().Add(-idle)
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, c := range m.sessions {
		if !c.InUse() && c.LastSeen().Before(cutoff) {
			delete(m.sessions, id)
			n++
		}
	}
	m.setGauge()
	return n
}

// caller holds m.mu
func (m *Manager) setGauge() {
	metrics.ActiveSessions.Set(float64(len(m.sessions)))
}
