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

package builtin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"lisa-assistant/internal/runtime/session"
	"lisa-assistant/internal/storage/cache"
	"lisa-assistant/internal/tool"
	lerrors "lisa-assistant/pkg/errors"
	"lisa-assistant/pkg/utils"
)

// success 输出 {"success":true,...}
func success(fields map[string]any) (string, error) {
	if fields == nil {
		fields = map[string]any{}
	}
	fields["success"] = true
	b, err := json.Marshal(fields)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// failure 业务层面的失败（非异常），例如搜索无结果
func failure(msg string, fields map[string]any) (string, error) {
	if fields == nil {
		fields = map[string]any{}
	}
	fields["success"] = false
	fields["error"] = msg
	b, err := json.Marshal(fields)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func argString(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return strings.TrimSpace(s)
}

func argInt(args map[string]any, key string, def int) int {
	switch v := args[key].(type) {
	case float64:
		return int(math.Round(v))
	case int:
		return v
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return int(n)
		}
	}
	return def
}

func argBool(args map[string]any, key string, def bool) bool {
	if b, ok := args[key].(bool); ok {
		return b
	}
	return def
}

// newRESTClient 外部 REST 工具共用的 resty 客户端
func newRESTClient(baseURL string, timeout time.Duration) *resty.Client {
	c := resty.New()
	c.SetBaseURL(strings.TrimRight(baseURL, "/"))
	c.SetTimeout(timeout)
	c.SetRetryCount(1)
	c.SetRetryWaitTime(300 * time.Millisecond)
	c.AddRetryCondition(func(r *resty.Response, err error) bool {
		return err == nil && r.StatusCode() >= 500
	})
	c.SetHeader("Accept", "application/json")
	return c
}

// getJSON GET 并解析 JSON；401/404 转为可读错误
func getJSON(ctx context.Context, c *resty.Client, path string, params map[string]string, out any) error {
	resp, err := c.R().SetContext(ctx).SetQueryParams(params).Get(path)
	if err != nil {
		return err
	}
	switch {
	case resp.StatusCode() == 401:
		return errors.New("invalid API key")
	case resp.StatusCode() == 404:
		return lerrors.Wrap(lerrors.ErrNotFound, "resource not found")
	case resp.IsError():
		return fmt.Errorf("upstream returned %d: %s", resp.StatusCode(), utils.Truncate(resp.String(), 200))
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// listStore 以单个 cache key 保存一组记录（待办、提醒、告警）
type listStore[T any] struct {
	cache cache.Store
	key   string
}

func newListStore[T any](c cache.Store, key string) *listStore[T] {
	return &listStore[T]{cache: c, key: key}
}

func (s *listStore[T]) list(ctx context.Context) ([]T, error) {
	var items []T
	err := s.cache.Get(ctx, s.key, &items)
	if lerrors.Is(err, lerrors.ErrNotFound) {
		return []T{}, nil
	}
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

// update 原子读-改-写，fn 返回错误时不写回
func (s *listStore[T]) update(ctx context.Context, fn func([]T) ([]T, error)) error {
	return s.cache.Update(ctx, s.key, func(raw []byte) ([]byte, error) {
		items := []T{}
		if raw != nil {
			if err := json.Unmarshal(raw, &items); err != nil {
				return nil, fmt.Errorf("decode %s: %w", s.key, err)
			}
		}
		items, err := fn(items)
		if err != nil {
			return nil, err
		}
		return json.Marshal(items)
	})
}

// funcTool 以闭包实现 tool.Tool，用于状态简单的工具
type funcTool struct {
	name        string
	description string
	schema      tool.Schema
	run         func(ctx context.Context, sc *session.Context, args map[string]any) (string, error)
}

func (f *funcTool) Name() string        { return f.name }
func (f *funcTool) Description() string { return f.description }
func (f *funcTool) Schema() tool.Schema { return f.schema }

func (f *funcTool) Execute(ctx context.Context, sc *session.Context, args map[string]any) (string, error) {
	return f.run(ctx, sc, args)
}

func idSchema(what string) tool.Schema {
	return tool.Schema{
		Type:       "object",
		Properties: map[string]tool.SchemaProperty{"id": {Type: "string", Description: "ID of the " + what}},
		Required:   []string{"id"},
	}
}
