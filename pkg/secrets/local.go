package secrets

import (
	"context"
	"fmt"
	"os"
	"sync"
)

// envStore 从进程环境变量读取
type envStore struct{}

// NewEnvStore 创建环境变量 secret store
func NewEnvStore() Store {
	return envStore{}
}

func (envStore) Get(_ context.Context, key string) (string, error) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v, nil
	}
	return "", fmt.Errorf("environment variable not set: %s", key)
}

func (envStore) Set(_ context.Context, key string, value string) error {
	return os.Setenv(key, value)
}

func (envStore) Delete(_ context.Context, key string) error {
	return os.Unsetenv(key)
}

// memoryStore 仅用于开发与测试
type memoryStore struct {
	mu      sync.RWMutex
	secrets map[string]string
}

// NewMemoryStore 创建内存 secret store，seed 可为 nil
func NewMemoryStore(seed map[string]string) Store {
	m := &memoryStore{secrets: make(map[string]string, len(seed))}
	for k, v := range seed {
		m.secrets[k] = v
	}
	return m
}

func (m *memoryStore) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.secrets[key]
	if !ok {
		return "", fmt.Errorf("secret not found: %s", key)
	}
	return v, nil
}

func (m *memoryStore) Set(_ context.Context, key string, value string) error {
	m.mu.Lock()
	m.secrets[key] = value
	m.mu.Unlock()
	return nil
}

func (m *memoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.secrets, key)
	m.mu.Unlock()
	return nil
}
