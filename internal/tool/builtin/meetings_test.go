package builtin

import (
	"context"
	"errors"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	lerrors "lisa-assistant/pkg/errors"
)

func TestMeetingDuration(t *testing.T) {
	cases := map[string]int{
		"initial consultation": 60,
		"Proposal Review":      45,
		"status update":        30,
		"technical discussion": 60,
		"coffee":               30,
		"":                     30,
	}
	for in, want := range cases {
		assert.Equal(t, want, MeetingDuration(in), in)
	}
}

func TestUpperFirst(t *testing.T) {
	assert.Equal(t, "Proposal review", upperFirst("proposal review"))
	assert.Equal(t, "Économie check-in", upperFirst("économie check-in"))
	assert.Equal(t, "项目评审", upperFirst("项目评审"))
	assert.Equal(t, "", upperFirst(""))
}

func TestScheduleMeeting_NonASCIITitle(t *testing.T) {
	mb, _ := newMeetingBase(&recordingMailer{})
	sc, _ := newSession("s1")
	out, err := (&ScheduleMeetingTool{mb}).Execute(context.Background(), sc, map[string]any{
		"clientName": "Zoë", "clientEmail": "zoe@example.com", "date": "2026-03-12", "startTime": "10:00",
		"meetingType": "évaluation", "sendConfirmation": false,
	})
	require.NoError(t, err)
	title := decode(t, out)["title"].(string)
	assert.Equal(t, "Évaluation with Zoë", title)
	assert.True(t, utf8.ValidString(title))
}

func newMeetingBase(m Mailer) (meetingBase, *MemoryCalendar) {
	cal := NewMemoryCalendar()
	return meetingBase{cal: cal, mailer: m, timeZone: "UTC", now: clock}, cal
}

func TestScheduleMeeting(t *testing.T) {
	mailer := &recordingMailer{}
	mb, cal := newMeetingBase(mailer)
	sc, _ := newSession("s1")

	out, err := (&ScheduleMeetingTool{mb}).Execute(context.Background(), sc, map[string]any{
		"clientName":  "Jane",
		"clientEmail": "jane@example.com",
		"date":        "2026-03-12",
		"startTime":   "14:00",
		"meetingType": "proposal review",
		"projectName": "Atlas",
	})
	require.NoError(t, err)
	got := decode(t, out)
	assert.Equal(t, "Proposal review with Jane - Atlas", got["title"])
	assert.Equal(t, "14:00", got["startTime"])
	assert.Equal(t, "14:45", got["endTime"])
	assert.Equal(t, float64(45), got["duration"])
	assert.Equal(t, "Google Meet", got["location"])
	assert.Equal(t, true, got["confirmationSent"])

	m, err := cal.Get(context.Background(), got["meetingId"].(string))
	require.NoError(t, err)
	assert.Equal(t, []Attendee{{Name: "Jane", Email: "jane@example.com"}}, m.Attendees)

	sent := mailer.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, []string{"jane@example.com"}, sent[0].To)
	assert.Equal(t, "Meeting Scheduled: Proposal review with Jane - Atlas", sent[0].Subject)
}

func TestScheduleMeeting_ConfirmationFailureKeepsMeeting(t *testing.T) {
	mb, cal := newMeetingBase(&recordingMailer{err: errors.New("smtp down")})
	sc, _ := newSession("s1")
	out, err := (&ScheduleMeetingTool{mb}).Execute(context.Background(), sc, map[string]any{
		"clientName": "Jane", "clientEmail": "jane@example.com", "date": "2026-03-12", "startTime": "09:30",
	})
	require.NoError(t, err)
	got := decode(t, out)
	assert.Equal(t, false, got["confirmationSent"])
	assert.Equal(t, "smtp down", got["confirmationError"])
	list, _ := cal.Upcoming(context.Background(), fixedNow, fixedNow.AddDate(0, 0, 7), 0)
	assert.Len(t, list, 1)
}

func TestScheduleMeeting_BadTimeZone(t *testing.T) {
	mb, _ := newMeetingBase(&recordingMailer{})
	sc, _ := newSession("s1")
	_, err := (&ScheduleMeetingTool{mb}).Execute(context.Background(), sc, map[string]any{
		"clientName": "Jane", "clientEmail": "jane@example.com", "date": "2026-03-12", "startTime": "09:30", "timeZone": "Mars/Olympus",
	})
	assert.True(t, lerrors.Is(err, lerrors.ErrInvalidArg))
}

func TestRescheduleAndCancel(t *testing.T) {
	mailer := &recordingMailer{}
	mb, cal := newMeetingBase(mailer)
	ctx := context.Background()
	sc, _ := newSession("s1")
	start := time.Date(2026, 3, 12, 10, 0, 0, 0, time.UTC)
	m, _ := cal.Create(ctx, Meeting{Title: "Sync", Start: start, End: start.Add(time.Hour), Attendees: []Attendee{{Email: "x@example.com"}}}, false)

	out, err := (&RescheduleMeetingTool{mb}).Execute(ctx, sc, map[string]any{"meetingId": m.ID, "date": "2026-03-13", "startTime": "15:00"})
	require.NoError(t, err)
	got := decode(t, out)
	assert.Equal(t, "2026-03-13", got["date"])
	assert.Equal(t, "16:00", got["endTime"])
	assert.Equal(t, "10:00", got["previousStartTime"])

	_, err = (&RescheduleMeetingTool{mb}).Execute(ctx, sc, map[string]any{"meetingId": "nope", "date": "2026-03-13", "startTime": "15:00"})
	assert.True(t, lerrors.Is(err, lerrors.ErrNotFound))

	out, err = (&CancelMeetingTool{mb}).Execute(ctx, sc, map[string]any{"meetingId": m.ID, "reason": "conflict"})
	require.NoError(t, err)
	assert.Equal(t, "conflict", decode(t, out)["reason"])
	require.Len(t, mailer.Sent(), 1)
	assert.Equal(t, "Meeting Cancelled: Sync", mailer.Sent()[0].Subject)

	_, err = cal.Get(ctx, m.ID)
	assert.True(t, lerrors.Is(err, lerrors.ErrNotFound))
}

func TestUpcomingMeetings(t *testing.T) {
	mb, cal := newMeetingBase(&recordingMailer{})
	ctx := context.Background()
	for _, d := range []int{3, 1, 10, 2} {
		s := fixedNow.AddDate(0, 0, d)
		_, _ = cal.Create(ctx, Meeting{Title: "m", Start: s, End: s.Add(30 * time.Minute)}, false)
	}
	sc, _ := newSession("s1")

	out, err := (&UpcomingMeetingsTool{mb}).Execute(ctx, sc, map[string]any{"maxResults": float64(2)})
	require.NoError(t, err)
	got := decode(t, out)
	assert.Equal(t, float64(2), got["count"])
	ms := got["meetings"].([]any)
	assert.Equal(t, "2026-03-11", ms[0].(map[string]any)["date"])
	assert.Equal(t, "2026-03-12", ms[1].(map[string]any)["date"])

	out, err = (&UpcomingMeetingsTool{mb}).Execute(ctx, sc, map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, float64(3), decode(t, out)["count"])
}
