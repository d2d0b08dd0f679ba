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
	"sync"
	"time"

	"github.com/google/uuid"
)

// Mode 会话所处的对话模式，决定使用哪套提示词、工具与历史 key
type Mode string

const (
	ModeAssistant Mode = "assistant"
	ModeInterview Mode = "interview"
)

// Context 一个会话的显式上下文：id、当前模式、出站推送通道。
// 由 Manager 创建，一次只允许一个 turn 持有（Lock/Unlock）。
type Context struct {
	ID        string
	CreatedAt time.Time

	mu       sync.RWMutex
	mode     Mode
	emitter  Emitter
	lastSeen time.Time
	pins     int

	turn chan struct{}
}

// New 创建 Context；id 为空时生成 "session-{uuid}"，emitter 为 nil 时丢弃推送
func New(id string, emitter Emitter) *Context {
	if id == "" {
		id = NewID()
	}
	if emitter == nil {
		emitter = Discard
	}
	now := time.Now()
	return &Context{
		ID:        id,
		CreatedAt: now,
		mode:      ModeAssistant,
		emitter:   emitter,
		lastSeen:  now,
		turn:      make(chan struct{}, 1),
	}
}

// NewID 生成会话 id
func NewID() string {
	return "session-" + uuid.New().String()
}

// Mode 当前模式
func (c *Context) Mode() Mode {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mode
}

// SetMode 切换模式，下一次 turn 生效
func (c *Context) SetMode(m Mode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mode = m
}

// SetEmitter 替换推送通道（REST 请求期间临时挂上 Recorder）
func (c *Context) SetEmitter(e Emitter) {
	if e == nil {
		e = Discard
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.emitter = e
}

// Emitter 当前推送通道
func (c *Context) Emitter() Emitter {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.emitter
}

// Emit 以 assistant 身份推送一条文本，sessionActive 表示会话是否继续
func (c *Context) Emit(ctx context.Context, content string, sessionActive bool) error {
	return c.Emitter().Emit(ctx, Frame{Role: "assistant", Content: content, SessionActive: sessionActive})
}

// Key 历史存储 key："{id}{suffix}"
func (c *Context) Key(suffix string) string {
	return c.ID + suffix
}

// Lock 获取 turn 锁；ctx 取消时返回 ctx.Err()
func (c *Context) Lock(ctx context.Context) error {
	select {
	case c.turn <- struct{}{}:
		c.touch()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Unlock 释放 turn 锁，并刷新 lastSeen，长 turn 结束后重新计算闲置
func (c *Context) Unlock() {
	select {
	case <-c.turn:
		c.touch()
	default:
	}
}

// Pin 标记会话被长连接持有，Sweep 不会回收；返回的 unpin 幂等
func (c *Context) Pin() (unpin func()) {
	c.mu.Lock()
	c.pins++
	c.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			c.pins--
			c.mu.Unlock()
			c.touch()
		})
	}
}

// InUse turn 进行中或被连接持有
func (c *Context) InUse() bool {
	if len(c.turn) > 0 {
		return true
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.pins > 0
}

func (c *Context) touch() {
	c.mu.Lock()
	c.lastSeen = time.Now()
	c.mu.Unlock()
}

// LastSeen 最近一次获取或释放 turn 锁（或 unpin）的时间
func (c *Context) LastSeen() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastSeen
}
