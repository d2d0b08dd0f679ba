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
	"time"
)

// Store 小记录缓存接口（待办、提醒、告警）。值以 JSON 序列化保存。
type Store interface {
	// Set 写入；expiration<=0 表示不过期
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	// Get 读取到 dest；不存在时返回包装了 errors.ErrNotFound 的错误
	Get(ctx context.Context, key string, dest interface{}) error
	// Delete 删除；不存在时返回 ErrNotFound
	Delete(ctx context.Context, key string) error
	// Update 原子地读-改-写：fn 收到当前 JSON（不存在时为 nil），返回新的 JSON；
	// fn 返回错误时不写回，错误原样返回
	Update(ctx context.Context, key string, fn func(raw []byte) ([]byte, error)) error
	// Exists 检查缓存是否存在
	Exists(ctx context.Context, key string) (bool, error)
	// Clear 清除所有缓存
	Clear(ctx context.Context) error
	// Close 关闭缓存连接
	Close() error
}
