package object

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	lerrors "lisa-assistant/pkg/errors"
)

func TestMemoryStore_PutGetDelete(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Put(ctx, "interview/resume.txt", bytes.NewReader([]byte("hello")), 5, nil))

	b, err := ReadAll(ctx, s, "interview/resume.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(b))

	require.NoError(t, s.Delete(ctx, "interview/resume.txt"))
	_, err = s.Get(ctx, "interview/resume.txt")
	assert.ErrorIs(t, err, lerrors.ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, "interview/resume.txt"), lerrors.ErrNotFound)
}

func TestMemoryStore_EmptyPathRejected(t *testing.T) {
	err := NewMemoryStore().Put(context.Background(), "", bytes.NewReader(nil), 0, nil)
	assert.ErrorIs(t, err, lerrors.ErrInvalidArg)
}

func TestMemoryStore_MetadataIsCopied(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	meta := map[string]string{MetaContentType: "text/plain"}
	require.NoError(t, s.Put(ctx, "uploads/list.txt", bytes.NewReader([]byte("a@b.c")), 5, meta))
	meta[MetaContentType] = "changed"

	got, err := s.GetMetadata(ctx, "uploads/list.txt")
	require.NoError(t, err)
	assert.Equal(t, "text/plain", got[MetaContentType])
	got[MetaContentType] = "mutated"

	again, err := s.GetMetadata(ctx, "uploads/list.txt")
	require.NoError(t, err)
	assert.Equal(t, "text/plain", again[MetaContentType])
}

func TestMemoryStore_ListSortedByPrefix(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	at := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return at }
	for _, p := range []string{"interview/results/b.json", "interview/resume.txt", "interview/results/a.json"} {
		require.NoError(t, s.Put(ctx, p, bytes.NewReader([]byte("x")), 1, nil))
	}

	list, err := s.List(ctx, "interview/results/")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "interview/results/a.json", list[0].Path)
	assert.Equal(t, "interview/results/b.json", list[1].Path)
	assert.Equal(t, int64(1), list[0].Size)
	assert.True(t, list[0].UpdatedAt.Equal(at))

	ok, err := s.Exists(ctx, "interview/resume.txt")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPutJSON(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, PutJSON(ctx, s, "interview/results/s1-1.json", map[string]string{"summary": "good"}))

	b, err := ReadAll(ctx, s, "interview/results/s1-1.json")
	require.NoError(t, err)
	var got map[string]string
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, "good", got["summary"])

	meta, err := s.GetMetadata(ctx, "interview/results/s1-1.json")
	require.NoError(t, err)
	assert.Equal(t, "application/json", meta[MetaContentType])
}
