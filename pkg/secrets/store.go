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

// Package secrets 解析工具与模型 API Key：配置中形如 secret://name 的值在启动时经 Store 取出
package secrets

import (
	"context"
	"fmt"
	"strings"

	"lisa-assistant/pkg/config"
)

// RefPrefix 配置值中的 secret 引用前缀
const RefPrefix = "secret://"

// Store secret 读写抽象
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string) error
	Delete(ctx context.Context, key string) error
}

// NewStore 根据配置创建 Store；provider 为空时使用 env
func NewStore(cfg config.SecretsConfig) (Store, error) {
	switch cfg.Provider {
	case "", "env":
		return NewEnvStore(), nil
	case "memory":
		return NewMemoryStore(nil), nil
	case "vault":
		return NewVaultStore(VaultConfig{
			Address:    cfg.Address,
			Token:      cfg.Token,
			PathPrefix: cfg.PathPrefix,
		})
	default:
		return nil, fmt.Errorf("unsupported secret provider: %s", cfg.Provider)
	}
}

// Resolve 若 value 为 secret 引用则从 store 读取，否则原样返回
func Resolve(ctx context.Context, store Store, value string) (string, error) {
	if !strings.HasPrefix(value, RefPrefix) {
		return value, nil
	}
	key := strings.TrimPrefix(value, RefPrefix)
	if key == "" {
		return "", fmt.Errorf("empty secret reference")
	}
	v, err := store.Get(ctx, key)
	if err != nil {
		return "", fmt.Errorf("resolve secret %q: %w", key, err)
	}
	return v, nil
}

// ResolveConfig 原地解析配置中所有可能引用 secret 的字段
func ResolveConfig(ctx context.Context, store Store, cfg *config.Config) error {
	fields := []*string{
		&cfg.Tools.Weather.APIKey,
		&cfg.Tools.Search.APIKey,
		&cfg.Tools.News.APIKey,
		&cfg.Tools.Email.Password,
		&cfg.Tools.Calendar.ClientSecret,
		&cfg.Tools.Calendar.RefreshToken,
		&cfg.Storage.Conversation.Password,
		&cfg.Storage.Conversation.DSN,
		&cfg.Storage.Cache.Password,
		&cfg.Storage.Object.AccessKey,
		&cfg.Storage.Object.SecretKey,
	}
	for _, f := range fields {
		v, err := Resolve(ctx, store, *f)
		if err != nil {
			return err
		}
		*f = v
	}
	for name, p := range cfg.Model.LLM.Providers {
		v, err := Resolve(ctx, store, p.APIKey)
		if err != nil {
			return err
		}
		p.APIKey = v
		cfg.Model.LLM.Providers[name] = p
	}
	return nil
}
