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
	"fmt"

	"lisa-assistant/internal/storage/redisclient"
	"lisa-assistant/pkg/config"
	"lisa-assistant/pkg/utils"
)

// DefaultKeyPrefix storage.cache.key_prefix 为空时使用
const DefaultKeyPrefix = "lisa:cache:"

// NewCache 根据 storage.cache 配置创建缓存
func NewCache(ctx context.Context, cfg config.CacheConfig) (Store, error) {
	switch cfg.Type {
	case "", "memory":
		return NewMemoryStore(), nil
	case "redis":
		client, err := redisclient.New(ctx, redisclient.Options{Addr: cfg.Addr, DB: cfg.DB, Password: cfg.Password})
		if err != nil {
			return nil, err
		}
		return NewRedisStoreFromClient(client, utils.CoalesceString(cfg.KeyPrefix, DefaultKeyPrefix)), nil
	default:
		return nil, fmt.Errorf("unsupported cache type: %s", cfg.Type)
	}
}
