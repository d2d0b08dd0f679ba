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
	"fmt"

	"lisa-assistant/internal/model/llm"
	"lisa-assistant/pkg/config"
)

// Store 会话历史存储。key 通常为 session id，面试模式为 "{id}-interview"。
// 历史只追加，不设置 TTL，只有显式 Delete 才会删除。
type Store interface {
	// Append 按顺序追加消息
	Append(ctx context.Context, key string, msgs ...llm.Message) error
	// Read 返回完整历史；key 不存在时返回空切片而非 nil
	Read(ctx context.Context, key string) ([]llm.Message, error)
	// Delete 删除 key 下的全部历史
	Delete(ctx context.Context, key string) error
	// Exists 是否存在历史
	Exists(ctx context.Context, key string) (bool, error)
	// Close 释放连接
	Close() error
}

// NewStore 根据 storage.conversation 配置创建存储
func NewStore(ctx context.Context, cfg config.ConversationConfig) (Store, error) {
	switch cfg.Type {
	case "", "memory":
		return NewMemoryStore(), nil
	case "redis":
		return NewRedisStore(ctx, cfg)
	case "postgres":
		return NewPostgresStore(ctx, cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported conversation store type: %s", cfg.Type)
	}
}
