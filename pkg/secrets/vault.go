// Copyright 2026 fanjia1024
// HashiCorp Vault KV v2 secret store

package secrets

import (
	"context"
	"fmt"

	vault "github.com/hashicorp/vault/api"
)

// VaultConfig Vault 配置
type VaultConfig struct {
	Address    string // 如 http://vault:8200
	Token      string
	PathPrefix string // KV v2 挂载点，默认 "secret"
}

type vaultStore struct {
	kv *vault.KVv2
}

// NewVaultStore 创建 Vault secret store；每个 key 对应一个 KV 路径，值存放在 "value" 字段
func NewVaultStore(cfg VaultConfig) (Store, error) {
	vc := vault.DefaultConfig()
	if cfg.Address != "" {
		vc.Address = cfg.Address
	}
	client, err := vault.NewClient(vc)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	if cfg.Token != "" {
		client.SetToken(cfg.Token)
	}
	mount := cfg.PathPrefix
	if mount == "" {
		mount = "secret"
	}
	return &vaultStore{kv: client.KVv2(mount)}, nil
}

func (v *vaultStore) Get(ctx context.Context, key string) (string, error) {
	s, err := v.kv.Get(ctx, key)
	if err != nil {
		return "", fmt.Errorf("failed to read secret from vault: %w", err)
	}
	if s == nil || s.Data == nil {
		return "", fmt.Errorf("secret not found: %s", key)
	}
	if val, ok := s.Data["value"].(string); ok {
		return val, nil
	}
	// 没有 value 字段时取第一个字符串值
	for _, raw := range s.Data {
		if str, ok := raw.(string); ok {
			return str, nil
		}
	}
	return "", fmt.Errorf("secret value not found: %s", key)
}

func (v *vaultStore) Set(ctx context.Context, key string, value string) error {
	if _, err := v.kv.Put(ctx, key, map[string]interface{}{"value": value}); err != nil {
		return fmt.Errorf("failed to write secret to vault: %w", err)
	}
	return nil
}

func (v *vaultStore) Delete(ctx context.Context, key string) error {
	if err := v.kv.DeleteMetadata(ctx, key); err != nil {
		return fmt.Errorf("failed to delete secret from vault: %w", err)
	}
	return nil
}
