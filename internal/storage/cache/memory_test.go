package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lisa-assistant/pkg/config"
	lerrors "lisa-assistant/pkg/errors"
)

type todo struct {
	ID   string `json:"id"`
	Done bool   `json:"done"`
}

func TestMemoryStore_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Set(ctx, "todos", []todo{{ID: "a"}, {ID: "b", Done: true}}, 0))

	var got []todo
	require.NoError(t, s.Get(ctx, "todos", &got))
	assert.Equal(t, []todo{{ID: "a"}, {ID: "b", Done: true}}, got)

	require.NoError(t, s.Delete(ctx, "todos"))
	assert.ErrorIs(t, s.Get(ctx, "todos", &got), lerrors.ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, "todos"), lerrors.ErrNotFound)
}

func TestMemoryStore_Expiration(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	require.NoError(t, s.Set(ctx, "alerts", []string{"x"}, time.Minute))

	ok, err := s.Exists(ctx, "alerts")
	require.NoError(t, err)
	assert.True(t, ok)

	now = now.Add(time.Minute)
	ok, err = s.Exists(ctx, "alerts")
	require.NoError(t, err)
	assert.False(t, ok)
	var v []string
	assert.ErrorIs(t, s.Get(ctx, "alerts", &v), lerrors.ErrNotFound)
}

func TestMemoryStore_UpdateMissingKeyStartsFromNil(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	err := s.Update(ctx, "todos", func(raw []byte) ([]byte, error) {
		assert.Nil(t, raw)
		return json.Marshal([]todo{{ID: "a"}})
	})
	require.NoError(t, err)

	var got []todo
	require.NoError(t, s.Get(ctx, "todos", &got))
	assert.Equal(t, []todo{{ID: "a"}}, got)
}

func TestMemoryStore_UpdateErrorDoesNotWrite(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Set(ctx, "todos", []todo{{ID: "a"}}, 0))
	boom := errors.New("boom")

	err := s.Update(ctx, "todos", func([]byte) ([]byte, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)

	var got []todo
	require.NoError(t, s.Get(ctx, "todos", &got))
	assert.Len(t, got, 1)
}

func TestMemoryStore_ConcurrentUpdatesAreSerialized(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = s.Update(ctx, "todos", func(raw []byte) ([]byte, error) {
				var items []todo
				if raw != nil {
					if err := json.Unmarshal(raw, &items); err != nil {
						return nil, err
					}
				}
				return json.Marshal(append(items, todo{ID: strconv.Itoa(i)}))
			})
		}(i)
	}
	wg.Wait()

	var got []todo
	require.NoError(t, s.Get(ctx, "todos", &got))
	assert.Len(t, got, 50)
}

func TestMemoryStore_Clear(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Set(ctx, "k1", "v1", 0))
	require.NoError(t, s.Clear(ctx))
	ok, err := s.Exists(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNewCache(t *testing.T) {
	s, err := NewCache(context.Background(), config.CacheConfig{})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	_, err = NewCache(context.Background(), config.CacheConfig{Type: "memcached"})
	assert.Error(t, err)
}
