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
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	lerrors "lisa-assistant/pkg/errors"
)

const metaSuffix = ".meta.json"

// FileStore 本地目录对象存储；元数据写在同名 .meta.json 旁路文件中
type FileStore struct {
	base string
}

// NewFileStore basePath 为空时使用 ./data/objects
func NewFileStore(basePath string) (*FileStore, error) {
	if basePath == "" {
		basePath = "./data/objects"
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create object dir: %w", err)
	}
	return &FileStore{base: basePath}, nil
}

func (s *FileStore) resolve(p string) (string, error) {
	clean := filepath.Clean("/" + p)
	if clean == "/" || strings.HasSuffix(clean, metaSuffix) {
		return "", lerrors.Wrapf(lerrors.ErrInvalidArg, "object path %q", p)
	}
	return filepath.Join(s.base, filepath.FromSlash(clean)), nil
}

// Put 写入对象
func (s *FileStore) Put(ctx context.Context, path string, data io.Reader, size int64, metadata map[string]string) error {
	full, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return err
	}
	tmp := full + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, data); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to write object data: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, full); err != nil {
		return err
	}
	if len(metadata) == 0 {
		_ = os.Remove(full + metaSuffix)
		return nil
	}
	meta, err := json.Marshal(metadata)
	if err != nil {
		return err
	}
	return os.WriteFile(full+metaSuffix, meta, 0o644)
}

// Get 读取对象，调用方负责 Close
func (s *FileStore) Get(ctx context.Context, path string) (io.ReadCloser, error) {
	full, err := s.resolve(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, lerrors.Wrapf(lerrors.ErrNotFound, "object %s", path)
	}
	return f, err
}

// Delete 删除对象及其元数据
func (s *FileStore) Delete(ctx context.Context, path string) error {
	full, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return lerrors.Wrapf(lerrors.ErrNotFound, "object %s", path)
		}
		return err
	}
	_ = os.Remove(full + metaSuffix)
	return nil
}

// List 列出 prefix 开头的对象，按路径排序
func (s *FileStore) List(ctx context.Context, prefix string) ([]*ObjectInfo, error) {
	var out []*ObjectInfo
	err := filepath.WalkDir(s.base, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasSuffix(p, metaSuffix) || strings.HasSuffix(p, ".tmp") {
			return nil
		}
		rel, err := filepath.Rel(s.base, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if !strings.HasPrefix(rel, prefix) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		meta, _ := s.GetMetadata(ctx, rel)
		out = append(out, &ObjectInfo{Path: rel, Size: info.Size(), Metadata: meta, UpdatedAt: info.ModTime()})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// Exists 检查对象是否存在
func (s *FileStore) Exists(ctx context.Context, path string) (bool, error) {
	full, err := s.resolve(path)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(full)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return err == nil, err
}

// GetMetadata 获取对象元数据；对象存在但无元数据时返回空 map
func (s *FileStore) GetMetadata(ctx context.Context, path string) (map[string]string, error) {
	full, err := s.resolve(path)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(full); errors.Is(err, fs.ErrNotExist) {
		return nil, lerrors.Wrapf(lerrors.ErrNotFound, "object %s", path)
	}
	meta := map[string]string{}
	data, err := os.ReadFile(full + metaSuffix)
	if errors.Is(err, fs.ErrNotExist) {
		return meta, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return meta, nil
}

// Close 无需释放资源
func (s *FileStore) Close() error { return nil }
