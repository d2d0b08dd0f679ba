package conversation

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lisa-assistant/internal/model/llm"
	"lisa-assistant/pkg/config"
)

// runStoreContract 各后端共用的行为检查
func runStoreContract(t *testing.T, s Store) {
	ctx := context.Background()

	t.Run("read absent key is empty not nil", func(t *testing.T) {
		got, err := s.Read(ctx, "absent")
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
		ok, err := s.Exists(ctx, "absent")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("read after appends is their concatenation", func(t *testing.T) {
		key := "s-concat"
		batches := [][]llm.Message{
			{{Role: llm.RoleSystem, Content: "interviewer"}},
			{{Role: llm.RoleUser, Content: "hi"}, {Role: llm.RoleAssistant, Content: "hello"}},
			{
				{Role: llm.RoleUser, Content: "weather?"},
				{Role: llm.RoleAssistant, Content: "checking", ToolCalls: []llm.ToolCall{{ID: "c1", Name: "get_weather", Arguments: `{"location":"Oslo"}`}}},
			},
			{{Role: llm.RoleAssistant, Content: "Tool response for get_weather: {}"}},
		}
		var want []llm.Message
		for _, b := range batches {
			require.NoError(t, s.Append(ctx, key, b...))
			want = append(want, b...)
		}
		got, err := s.Read(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("empty append is a no-op", func(t *testing.T) {
		require.NoError(t, s.Append(ctx, "s-empty"))
		ok, err := s.Exists(ctx, "s-empty")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("keys are independent and delete removes one", func(t *testing.T) {
		require.NoError(t, s.Append(ctx, "s1", llm.Message{Role: llm.RoleUser, Content: "a"}))
		require.NoError(t, s.Append(ctx, "s1-interview", llm.Message{Role: llm.RoleUser, Content: "b"}))
		require.NoError(t, s.Delete(ctx, "s1"))

		got, err := s.Read(ctx, "s1")
		require.NoError(t, err)
		assert.Empty(t, got)
		got, err = s.Read(ctx, "s1-interview")
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "b", got[0].Content)
	})
}

func TestMemoryStore_Contract(t *testing.T) {
	runStoreContract(t, NewMemoryStore())
}

func TestMemoryStore_ReadReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Append(ctx, "k", llm.Message{Role: llm.RoleAssistant, ToolCalls: []llm.ToolCall{{ID: "c1", Name: "t"}}}))

	got, _ := s.Read(ctx, "k")
	got[0].Content = "mutated"
	got[0].ToolCalls[0].Name = "mutated"

	again, _ := s.Read(ctx, "k")
	assert.Equal(t, "", again[0].Content)
	assert.Equal(t, "t", again[0].ToolCalls[0].Name)
}

func TestMemoryStore_ConcurrentAppendsKeepBatchesContiguous(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = s.Append(ctx, "k",
				llm.Message{Role: llm.RoleUser, Content: fmt.Sprintf("u%d", i)},
				llm.Message{Role: llm.RoleAssistant, Content: fmt.Sprintf("a%d", i)})
		}(i)
	}
	wg.Wait()

	got, _ := s.Read(ctx, "k")
	require.Len(t, got, 40)
	for i := 0; i < len(got); i += 2 {
		assert.Equal(t, "u"+got[i].Content[1:], got[i].Content)
		assert.Equal(t, "a"+got[i].Content[1:], got[i+1].Content, "pair %d split", i/2)
	}
}

func TestNewStore(t *testing.T) {
	s, err := NewStore(context.Background(), config.ConversationConfig{Type: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	_, err = NewStore(context.Background(), config.ConversationConfig{Type: "dynamo"})
	assert.Error(t, err)
}
