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
package redisclient

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Options 连接参数，来自 storage.conversation / storage.cache 配置
type Options struct {
	Addr     string
	DB       int
	Password string
}

// RedisOptions 构造 redis.Options；Addr 为空时使用 localhost:6379
func RedisOptions(o Options) *redis.Options {
	opts := &redis.Options{
		Addr:     o.Addr,
		Password: o.Password,
		DB:       o.DB,
	}
	if opts.Addr == "" {
		opts.Addr = "localhost:6379"
	}
	if opts.DB < 0 {
		opts.DB = 0
	}
	return opts
}

// New 创建客户端并 Ping 一次，连接失败时关闭客户端并返回错误
func New(ctx context.Context, o Options) (*redis.Client, error) {
	client := redis.NewClient(RedisOptions(o))
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", o.Addr, err)
	}
	return client, nil
}
