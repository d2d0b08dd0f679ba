package builtin

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lisa-assistant/internal/storage/object"
	lerrors "lisa-assistant/pkg/errors"
)

func TestReadAddresses(t *testing.T) {
	csv := "name,email\nAnn,ann@example.com\nBob,not-an-email\nCid,ANN@example.com\nDee,dee@example.com\n"
	got, err := readAddresses(strings.NewReader(csv), true)
	require.NoError(t, err)
	assert.Equal(t, []string{"ann@example.com", "dee@example.com"}, got)

	got, err = readAddresses(strings.NewReader("x@example.com\ny@example.com\n"), true)
	require.NoError(t, err)
	assert.Equal(t, []string{"x@example.com", "y@example.com"}, got)

	got, err = readAddresses(strings.NewReader("a@example.com\r\n\r\nb@example.com"), false)
	require.NoError(t, err)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, got)
}

func TestBulkMailTool(t *testing.T) {
	ctx := context.Background()
	docs := object.NewMemoryStore()
	putText(t, docs, "uploads/customers.txt", "a@example.com\nb@example.com\n")
	mailer := &recordingMailer{}
	bt := NewBulkMailTool(docs, mailer)
	sc, _ := newSession("s1")

	out, err := bt.Execute(ctx, sc, map[string]any{"subject": "News", "body": "hi", "fileName": "customers.txt"})
	require.NoError(t, err)
	assert.Equal(t, float64(2), decode(t, out)["sent"])
	require.Len(t, mailer.Sent(), 2)
	assert.Equal(t, []string{"b@example.com"}, mailer.Sent()[1].To)

	_, err = bt.Execute(ctx, sc, map[string]any{"subject": "News", "body": "hi", "fileName": "missing.csv"})
	assert.True(t, lerrors.Is(err, lerrors.ErrNotFound))
}
