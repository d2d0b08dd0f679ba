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

package object

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"maps"
	"sort"
	"strings"
	"sync"
	"time"

	lerrors "lisa-assistant/pkg/errors"
)

// MemoryStore 内存对象存储，测试及未配置对象存储时使用；读写都复制数据
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]memObject
	now     func() time.Time
}

type memObject struct {
	data      []byte
	metadata  map[string]string
	updatedAt time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string]memObject), now: time.Now}
}

func (s *MemoryStore) Put(ctx context.Context, path string, data io.Reader, size int64, metadata map[string]string) error {
	if path == "" {
		return lerrors.Wrap(lerrors.ErrInvalidArg, "empty object path")
	}
	var buf bytes.Buffer
	if size > 0 {
		buf.Grow(int(size))
	}
	if _, err := io.Copy(&buf, data); err != nil {
		return fmt.Errorf("failed to read object data: %w", err)
	}
	s.mu.Lock()
	s.objects[path] = memObject{data: buf.Bytes(), metadata: maps.Clone(metadata), updatedAt: s.now()}
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) lookup(path string) (memObject, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[path]
	if !ok {
		return memObject{}, lerrors.Wrapf(lerrors.ErrNotFound, "object %s", path)
	}
	return obj, nil
}

func (s *MemoryStore) Get(ctx context.Context, path string) (io.ReadCloser, error) {
	obj, err := s.lookup(path)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(obj.data)), nil
}

func (s *MemoryStore) Delete(ctx context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[path]; !ok {
		return lerrors.Wrapf(lerrors.ErrNotFound, "object %s", path)
	}
	delete(s.objects, path)
	return nil
}

func (s *MemoryStore) List(ctx context.Context, prefix string) ([]*ObjectInfo, error) {
	s.mu.RLock()
	out := make([]*ObjectInfo, 0, len(s.objects))
	for p, obj := range s.objects {
		if !strings.HasPrefix(p, prefix) {
			continue
		}
		out = append(out, &ObjectInfo{Path: p, Size: int64(len(obj.data)), Metadata: maps.Clone(obj.metadata), UpdatedAt: obj.updatedAt})
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

func (s *MemoryStore) Exists(ctx context.Context, path string) (bool, error) {
	_, err := s.lookup(path)
	return err == nil, nil
}

func (s *MemoryStore) GetMetadata(ctx context.Context, path string) (map[string]string, error) {
	obj, err := s.lookup(path)
	if err != nil {
		return nil, err
	}
	return maps.Clone(obj.metadata), nil
}

func (s *MemoryStore) Close() error { return nil }
