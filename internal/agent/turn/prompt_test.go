package turn

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"lisa-assistant/internal/agent/tools"
	"lisa-assistant/internal/model/llm"
)

func TestTruncateHistory(t *testing.T) {
	h := []llm.Message{
		{Role: llm.RoleSystem, Content: "s"},
		{Role: llm.RoleUser, Content: "1"},
		{Role: llm.RoleAssistant, Content: "2"},
		{Role: llm.RoleUser, Content: "3"},
	}
	assert.Equal(t, h, truncateHistory(h, 0))
	assert.Equal(t, h, truncateHistory(h, 3))
	assert.Equal(t, []string{"s", "3"}, contents(truncateHistory(h, 1)))
	assert.Equal(t, []string{"s", "2", "3"}, contents(truncateHistory(h, 2)))
}

func TestComposePrompt_NoSystemPrompt(t *testing.T) {
	got := composePrompt("", []llm.Message{{Role: llm.RoleSystem, Content: "seeded"}}, "hi", 0)
	assert.Equal(t, []string{"seeded", "hi"}, contents(got))
	assert.Equal(t, llm.RoleUser, got[1].Role)
}

func TestFollowUpPrompt_AddsSystemWhenMissing(t *testing.T) {
	base := []llm.Message{{Role: llm.RoleUser, Content: "hi"}}
	got := followUpPrompt(base, "ack", nil, []tools.Result{})
	assert.Equal(t, llm.RoleSystem, got[0].Role)
	assert.NotContains(t, got[0].Content, "\n\n")
	assert.Equal(t, "ack", got[len(got)-1].Content)
	assert.Empty(t, got[len(got)-1].ToolCalls)
	assert.Equal(t, "hi", base[0].Content, "base prompt untouched")
}

func TestFollowUpPrompt_DoesNotMutateBaseSystem(t *testing.T) {
	base := []llm.Message{{Role: llm.RoleSystem, Content: "sys"}, {Role: llm.RoleUser, Content: "hi"}}
	got := followUpPrompt(base, "ack", nil, nil)
	assert.Equal(t, "sys", base[0].Content)
	assert.Equal(t, "sys"+SpeakNaturally, got[0].Content)
}

func TestResolvedCalls(t *testing.T) {
	requested := []llm.ToolCall{
		{ID: "1", Name: "a", Arguments: `{"x":1}`},
		{ID: "2", Name: "unknown"},
		{ID: "3", Name: "b", Arguments: `{"y":2}`},
	}
	results := []tools.Result{{ToolCallID: "1", ToolName: "a"}, {ToolCallID: "3", ToolName: "b"}}
	assert.Equal(t, []llm.ToolCall{requested[0], requested[2]}, resolvedCalls(requested, results))
}
