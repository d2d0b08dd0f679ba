// Package object 存放面试材料、面试结果与用户上传的地址列表。
// 约定路径：interview/resume.{pdf,txt}、interview/jobdesc.{pdf,txt}、
// interview/results/{session}-{unix}.json、uploads/{file}。
package object

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"time"
)

// Store 对象存储接口
type Store interface {
	// Put 写入对象，已存在时覆盖
	Put(ctx context.Context, path string, data io.Reader, size int64, metadata map[string]string) error
	// Get 读取对象；不存在时返回 ErrNotFound
	Get(ctx context.Context, path string) (io.ReadCloser, error)
	// Delete 删除对象；不存在时返回 ErrNotFound
	Delete(ctx context.Context, path string) error
	// List 按 path 排序列出 prefix 下的对象
	List(ctx context.Context, prefix string) ([]*ObjectInfo, error)
	Exists(ctx context.Context, path string) (bool, error)
	GetMetadata(ctx context.Context, path string) (map[string]string, error)
	Close() error
}

// MetaContentType 元数据中的内容类型 key
const MetaContentType = "content-type"

// ObjectInfo 对象信息
type ObjectInfo struct {
	Path      string            `json:"path"`
	Size      int64             `json:"size"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// ReadAll 读取整个对象
func ReadAll(ctx context.Context, s Store, path string) ([]byte, error) {
	rc, err := s.Get(ctx, path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// PutJSON 以 JSON 写入 v
func PutJSON(ctx context.Context, s Store, path string, v any) error {
	body, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return s.Put(ctx, path, bytes.NewReader(body), int64(len(body)), map[string]string{MetaContentType: "application/json"})
}
