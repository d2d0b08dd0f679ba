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
package conversation

import (
	"context"
	"sync"

	"lisa-assistant/internal/model/llm"
)

// MemoryStore 进程内历史存储
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string][]llm.Message
}

// NewMemoryStore 创建内存存储
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string][]llm.Message)}
}

func (s *MemoryStore) Append(ctx context.Context, key string, msgs ...llm.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range msgs {
		s.items[key] = append(s.items[key], cloneMessage(m))
	}
	return nil
}

func (s *MemoryStore) Read(ctx context.Context, key string) ([]llm.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	src := s.items[key]
	out := make([]llm.Message, len(src))
	for i, m := range src {
		out[i] = cloneMessage(m)
	}
	return out, nil
}

func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
	return nil
}

func (s *MemoryStore) Exists(ctx context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items[key]) > 0, nil
}

func (s *MemoryStore) Close() error { return nil }

// cloneMessage 复制 ToolCalls，存入后的消息不受调用方修改影响
func cloneMessage(m llm.Message) llm.Message {
	if len(m.ToolCalls) > 0 {
		m.ToolCalls = append([]llm.ToolCall(nil), m.ToolCalls...)
	}
	return m
}
