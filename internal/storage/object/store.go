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
package object

import (
	"context"
	"fmt"

	"lisa-assistant/pkg/config"
)

// NewStore 根据 storage.object 配置创建对象存储
func NewStore(ctx context.Context, cfg config.ObjectConfig) (Store, error) {
	switch cfg.Type {
	case "", "memory":
		return NewMemoryStore(), nil
	case "file":
		return NewFileStore(cfg.BasePath)
	case "s3":
		return NewS3Store(ctx, S3Options{
			Endpoint:  cfg.Endpoint,
			Bucket:    cfg.Bucket,
			Region:    cfg.Region,
			AccessKey: cfg.AccessKey,
			SecretKey: cfg.SecretKey,
		})
	default:
		return nil, fmt.Errorf("不支持的对象存储类型: %s", cfg.Type)
	}
}
