package builtin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lisa-assistant/internal/agent/tools"
	"lisa-assistant/internal/storage/cache"
	"lisa-assistant/internal/storage/conversation"
	"lisa-assistant/internal/storage/object"
)

func testDeps() Deps {
	return Deps{
		Cache:   cache.NewMemoryStore(),
		Objects: object.NewMemoryStore(),
		History: conversation.NewMemoryStore(),
		Mailer:  &recordingMailer{},
		Now:     clock,
	}
}

func TestAssistantTools_BuildRegistry(t *testing.T) {
	r, err := tools.NewBuilder().Register(AssistantTools(testDeps())...).Silent(DefaultSilent...).Build()
	require.NoError(t, err)

	for _, name := range []string{
		"get_weather", "get_weather_forecast", "web_search", "get_latest_news", "send_email",
		"send_mail_to_users", "schedule_meeting", "reschedule_meeting", "cancel_meeting",
		"get_upcoming_meetings", "create_todo", "get_todos", "update_todo", "mark_todo_as_complete",
		"delete_todo", "set_reminder", "get_reminders", "complete_reminder", "mayday_call",
		"give_intro", "compare_with_alexa", "start_interview_mode",
	} {
		_, ok := r.Resolve(name)
		assert.True(t, ok, name)
	}
	assert.True(t, r.IsSilent("mayday_call"))
	assert.True(t, r.IsSilent("start_interview_mode"))
	assert.False(t, r.IsSilent("get_weather"))
}

func TestInterviewTools_BuildRegistry(t *testing.T) {
	r, err := tools.NewBuilder().Register(InterviewTools(testDeps())...).Silent(DefaultSilent...).Build()
	require.NoError(t, err)
	assert.Equal(t, []string{"end_interview"}, r.Names())
	assert.True(t, r.IsSilent("end_interview"))
}
