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

package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	lerrors "lisa-assistant/pkg/errors"
)

// MemoryStore 进程内缓存，单实例部署与测试使用
type MemoryStore struct {
	mu    sync.Mutex
	items map[string]entry
	now   func() time.Time
}

type entry struct {
	raw      []byte
	deadline time.Time // 零值表示不过期
}

func (e entry) live(now time.Time) bool {
	return e.deadline.IsZero() || now.Before(e.deadline)
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]entry), now: time.Now}
}

// caller holds s.mu；过期项顺带清理
func (s *MemoryStore) get(key string) ([]byte, bool) {
	e, ok := s.items[key]
	if !ok {
		return nil, false
	}
	if !e.live(s.now()) {
		delete(s.items, key)
		return nil, false
	}
	return e.raw, true
}

func (s *MemoryStore) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}
	e := entry{raw: raw}
	s.mu.Lock()
	defer s.mu.Unlock()
	if expiration > 0 {
		e.deadline = s.now().Add(expiration)
	}
	s.items[key] = e
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, key string, dest interface{}) error {
	s.mu.Lock()
	raw, ok := s.get(key)
	s.mu.Unlock()
	if !ok {
		return lerrors.Wrapf(lerrors.ErrNotFound, "cache key %s", key)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("failed to unmarshal cache value: %w", err)
	}
	return nil
}

// Update 在锁内执行 fn，保留原有过期时间
func (s *MemoryStore) Update(ctx context.Context, key string, fn func(raw []byte) ([]byte, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, _ := s.get(key)
	next, err := fn(raw)
	if err != nil {
		return err
	}
	e := s.items[key]
	e.raw = next
	s.items[key] = e
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.get(key); !ok {
		return lerrors.Wrapf(lerrors.ErrNotFound, "cache key %s", key)
	}
	delete(s.items, key)
	return nil
}

func (s *MemoryStore) Exists(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.get(key)
	return ok, nil
}

func (s *MemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.items = make(map[string]entry)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Close() error { return nil }
