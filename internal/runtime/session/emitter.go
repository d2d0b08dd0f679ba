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
)

// Frame 推送给客户端的消息：{"role","content","sessionActive"}
type Frame struct {
	Role          string `json:"role"`
	Content       string `json:"content"`
	SessionActive bool   `json:"sessionActive"`
}

// Emitter 出站推送（WebSocket 连接、REST Recorder 等）
type Emitter interface {
	Emit(ctx context.Context, f Frame) error
}

// EmitterFunc 函数适配
type EmitterFunc func(ctx context.Context, f Frame) error

func (fn EmitterFunc) Emit(ctx context.Context, f Frame) error { return fn(ctx, f) }

// Discard 丢弃所有推送
var Discard Emitter = EmitterFunc(func(context.Context, Frame) error { return nil })

// Recorder 记录推送的帧，REST 接口把它们作为 events 返回
type Recorder struct {
	mu     sync.Mutex
	frames []Frame
}

func (r *Recorder) Emit(ctx context.Context, f Frame) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, f)
	return nil
}

// Frames 返回副本
func (r *Recorder) Frames() []Frame {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Frame, len(r.frames))
	copy(out, r.frames)
	return out
}
