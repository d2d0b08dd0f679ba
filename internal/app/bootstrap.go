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

package app

import (
	"context"
	"errors"
	"fmt"

	"lisa-assistant/internal/storage/cache"
	"lisa-assistant/internal/storage/conversation"
	"lisa-assistant/internal/storage/object"
	"lisa-assistant/pkg/config"
	"lisa-assistant/pkg/log"
	"lisa-assistant/pkg/secrets"
	"lisa-assistant/pkg/utils"
)

// Bootstrap 进程级依赖：配置、日志与各类存储
type Bootstrap struct {
	Config       *config.Config
	Logger       *log.Logger
	Conversation conversation.Store
	Cache        cache.Store
	Objects      object.Store
}

// NewBootstrap 初始化日志、解析 secret 引用并创建存储
func NewBootstrap(ctx context.Context, cfg *config.Config) (*Bootstrap, error) {
	if cfg == nil {
		cfg = &config.Config{}
	}
	logger, err := log.NewLogger(&log.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, File: cfg.Log.File})
	if err != nil {
		return nil, fmt.Errorf("初始化日志失败: %w", err)
	}

	secretStore, err := secrets.NewStore(cfg.Secrets)
	if err != nil {
		return nil, fmt.Errorf("初始化 secret 存储失败: %w", err)
	}
	if err := secrets.ResolveConfig(ctx, secretStore, cfg); err != nil {
		return nil, fmt.Errorf("解析 secret 引用失败: %w", err)
	}

	b := &Bootstrap{Config: cfg, Logger: logger}
	b.Conversation, err = conversation.NewStore(ctx, cfg.Storage.Conversation)
	if err != nil {
		return nil, fmt.Errorf("初始化对话存储失败: %w", err)
	}
	b.Cache, err = cache.NewCache(ctx, cfg.Storage.Cache)
	if err != nil {
		_ = b.Close()
		return nil, fmt.Errorf("初始化缓存失败: %w", err)
	}
	b.Objects, err = object.NewStore(ctx, cfg.Storage.Object)
	if err != nil {
		_ = b.Close()
		return nil, fmt.Errorf("初始化对象存储失败: %w", err)
	}
	logger.Info("存储已初始化",
		"conversation", utils.CoalesceString(cfg.Storage.Conversation.Type, "memory"),
		"cache", utils.CoalesceString(cfg.Storage.Cache.Type, "memory"),
		"object", utils.CoalesceString(cfg.Storage.Object.Type, "memory"))
	return b, nil
}

// Close 关闭已创建的存储
func (b *Bootstrap) Close() error {
	var errs []error
	if b.Conversation != nil {
		errs = append(errs, b.Conversation.Close())
	}
	if b.Cache != nil {
		errs = append(errs, b.Cache.Close())
	}
	if b.Objects != nil {
		errs = append(errs, b.Objects.Close())
	}
	return errors.Join(errs...)
}
