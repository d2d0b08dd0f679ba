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
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"lisa-assistant/internal/model/llm"
	"lisa-assistant/internal/storage/redisclient"
	"lisa-assistant/pkg/config"
)

const defaultKeyPrefix = "lisa:conversation:"

// RedisStore 每个会话一个 list，元素为单条消息的 JSON；RPUSH 追加，LRANGE 读取
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore 连接 Redis
func NewRedisStore(ctx context.Context, cfg config.ConversationConfig) (*RedisStore, error) {
	client, err := redisclient.New(ctx, redisclient.Options{Addr: cfg.Addr, DB: cfg.DB, Password: cfg.Password})
	if err != nil {
		return nil, err
	}
	return NewRedisStoreFromClient(client, cfg.KeyPrefix), nil
}

// NewRedisStoreFromClient prefix 为空时使用 lisa:conversation:
func NewRedisStoreFromClient(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) key(k string) string { return s.prefix + k }

// Append 单次 RPUSH 写入全部消息，保证同批消息连续
func (s *RedisStore) Append(ctx context.Context, key string, msgs ...llm.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	values := make([]interface{}, 0, len(msgs))
	for _, m := range msgs {
		b, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("marshal message: %w", err)
		}
		values = append(values, b)
	}
	if err := s.client.RPush(ctx, s.key(key), values...).Err(); err != nil {
		return fmt.Errorf("redis rpush %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Read(ctx context.Context, key string) ([]llm.Message, error) {
	raw, err := s.client.LRange(ctx, s.key(key), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis lrange %s: %w", key, err)
	}
	out := make([]llm.Message, 0, len(raw))
	for i, r := range raw {
		var m llm.Message
		if err := json.Unmarshal([]byte(r), &m); err != nil {
			return nil, fmt.Errorf("decode message %d of %s: %w", i, key, err)
		}
		out = append(out, m)
	}
	return out, nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.key(key)).Err()
}

func (s *RedisStore) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(key)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
