package builtin

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/require"

	"lisa-assistant/internal/runtime/session"
)

var fixedNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

type recordingMailer struct {
	mu   sync.Mutex
	sent []Mail
	err  error
}

func (m *recordingMailer) Send(_ context.Context, mail Mail) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, mail)
	return nil
}

func (m *recordingMailer) Sent() []Mail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Mail(nil), m.sent...)
}

func newSession(id string) (*session.Context, *session.Recorder) {
	rec := &session.Recorder{}
	return session.New(id, rec), rec
}

func decode(t *testing.T, s string) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(s), &out))
	return out
}
