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
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	lerrors "lisa-assistant/pkg/errors"
)

// RedisStore 基于 Redis 的缓存，所有 key 带 prefix，Clear 只清理本前缀
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStoreFromClient 使用已有客户端
func NewRedisStoreFromClient(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) key(k string) string { return s.prefix + k }

// Set 设置缓存
func (s *RedisStore) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}
	if expiration < 0 {
		expiration = 0
	}
	return s.client.Set(ctx, s.key(key), data, expiration).Err()
}

// Get 获取缓存
func (s *RedisStore) Get(ctx context.Context, key string, dest interface{}) error {
	data, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return lerrors.Wrapf(lerrors.ErrNotFound, "cache key %s", key)
	}
	if err != nil {
		return fmt.Errorf("redis get %s: %w", key, err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("failed to unmarshal cache value: %w", err)
	}
	return nil
}

// maxUpdateRetries WATCH 冲突时的重试次数
const maxUpdateRetries = 8

// Update WATCH + MULTI 乐观事务，冲突时重试；写回时保留 TTL
func (s *RedisStore) Update(ctx context.Context, key string, fn func(raw []byte) ([]byte, error)) error {
	k := s.key(key)
	txf := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, k).Bytes()
		if errors.Is(err, redis.Nil) {
			raw = nil
		} else if err != nil {
			return fmt.Errorf("redis get %s: %w", key, err)
		}
		next, err := fn(raw)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, k, next, redis.KeepTTL)
			return nil
		})
		return err
	}
	for i := 0; i < maxUpdateRetries; i++ {
		err := s.client.Watch(ctx, txf, k)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return lerrors.Wrapf(lerrors.ErrUnavailable, "cache key %s: too many concurrent updates", key)
}

// Delete 删除缓存
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	n, err := s.client.Del(ctx, s.key(key)).Result()
	if err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	if n == 0 {
		return lerrors.Wrapf(lerrors.ErrNotFound, "cache key %s", key)
	}
	return nil
}

// Exists 检查缓存是否存在
func (s *RedisStore) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(key)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Clear 按前缀 SCAN 后删除
func (s *RedisStore) Clear(ctx context.Context) error {
	iter := s.client.Scan(ctx, 0, s.prefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return s.client.Del(ctx, keys...).Err()
}

// Close 关闭缓存连接
func (s *RedisStore) Close() error {
	return s.client.Close()
}
