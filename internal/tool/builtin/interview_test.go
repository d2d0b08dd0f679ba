package builtin

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lisa-assistant/internal/model/llm"
	"lisa-assistant/internal/runtime/session"
	"lisa-assistant/internal/storage/conversation"
	"lisa-assistant/internal/storage/object"
	lerrors "lisa-assistant/pkg/errors"
)

func putText(t *testing.T, s object.Store, path, text string) {
	t.Helper()
	require.NoError(t, s.Put(context.Background(), path, strings.NewReader(text), int64(len(text)), nil))
}

func TestStartInterview_NoResume(t *testing.T) {
	docs := object.NewMemoryStore()
	history := conversation.NewMemoryStore()
	sc, rec := newSession("s1")

	_, err := NewStartInterviewTool(docs, history, "").Execute(context.Background(), sc, nil)
	require.Error(t, err)
	assert.True(t, lerrors.Is(err, lerrors.ErrNotFound))
	assert.Equal(t, []session.Frame{{Role: "assistant", Content: NoResumeNotice, SessionActive: true}}, rec.Frames())
	assert.Equal(t, session.ModeAssistant, sc.Mode())

	msgs, err := history.Read(context.Background(), "s1-interview")
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestStartInterview_SeedsHistory(t *testing.T) {
	ctx := context.Background()
	docs := object.NewMemoryStore()
	history := conversation.NewMemoryStore()
	putText(t, docs, "interview/resume.txt", "  Go developer, 5 years  ")
	putText(t, docs, "interview/jobdesc.txt", "Backend engineer")
	require.NoError(t, history.Append(ctx, "s1-interview", llm.Message{Role: llm.RoleUser, Content: "stale"}))
	sc, rec := newSession("s1")

	out, err := NewStartInterviewTool(docs, history, "R={{resume}} J={{job_description}}").Execute(ctx, sc, nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true,"mode":"interview","jobDescription":true}`, out)
	assert.Equal(t, session.ModeInterview, sc.Mode())

	msgs, err := history.Read(ctx, "s1-interview")
	require.NoError(t, err)
	assert.Equal(t, []llm.Message{{Role: llm.RoleSystem, Content: "R=Go developer, 5 years J=Backend engineer"}}, msgs)
	require.Len(t, rec.Frames(), 1)
	assert.Equal(t, InterviewStarted, rec.Frames()[0].Content)
}

func TestBuildInterviewPrompt(t *testing.T) {
	p := BuildInterviewPrompt("", "resume text", "")
	assert.Contains(t, p, "resume text")
	assert.Contains(t, p, "No job description was provided")
	assert.NotContains(t, p, "{{")
}

func TestEndInterview(t *testing.T) {
	ctx := context.Background()
	docs := object.NewMemoryStore()
	et := NewEndInterviewTool(docs)
	et.now = clock
	sc, rec := newSession("s1")
	sc.SetMode(session.ModeInterview)

	out, err := et.Execute(ctx, sc, map[string]any{"result": "Strong hire"})
	require.NoError(t, err)
	path := "interview/results/s1-1773133200.json"
	assert.Equal(t, path, decode(t, out)["path"])
	assert.Equal(t, session.ModeAssistant, sc.Mode())
	assert.Equal(t, []session.Frame{{Role: "assistant", Content: InterviewFinished, SessionActive: false}}, rec.Frames())

	rc, err := docs.Get(ctx, path)
	require.NoError(t, err)
	defer rc.Close()
	raw, err := io.ReadAll(rc)
	require.NoError(t, err)
	var saved InterviewResult
	require.NoError(t, json.Unmarshal(raw, &saved))
	assert.Equal(t, "s1", saved.SessionID)
	assert.Equal(t, "Strong hire", saved.Result)
}

func TestLoadDocument(t *testing.T) {
	ctx := context.Background()
	docs := object.NewMemoryStore()
	_, err := loadDocument(ctx, docs, ResumePath)
	assert.True(t, lerrors.Is(err, lerrors.ErrNotFound))

	putText(t, docs, "interview/resume.txt", "plain\n")
	text, err := loadDocument(ctx, docs, ResumePath)
	require.NoError(t, err)
	assert.Equal(t, "plain", text)

	// pdf 优先
	putText(t, docs, "interview/resume.pdf", "not a pdf")
	_, err = loadDocument(ctx, docs, ResumePath)
	assert.Error(t, err)
}

func TestExtractPDFText_Empty(t *testing.T) {
	text, err := extractPDFText(nil)
	require.NoError(t, err)
	assert.Empty(t, text)
}
