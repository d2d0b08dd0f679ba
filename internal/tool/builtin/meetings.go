// Copyright 2026 fanjia1024
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package builtin

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"lisa-assistant/internal/runtime/session"
	"lisa-assistant/internal/tool"
	lerrors "lisa-assistant/pkg/errors"
)

const (
	datePattern = `^\d{4}-\d{2}-\d{2}$`
	timePattern = `^([01]\d|2[0-3]):[0-5]\d$`
)

// upperFirst 首字母大写，按 rune 处理
func upperFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// MeetingDuration 按会议类型给出默认时长（分钟）
func MeetingDuration(meetingType string) int {
	switch strings.ToLower(strings.TrimSpace(meetingType)) {
	case "initial consultation", "technical discussion":
		return 60
	case "proposal review":
		return 45
	default:
		return 30
	}
}

// parseLocalTime 在 tz 中解析 "YYYY-MM-DD" + "HH:MM"
func parseLocalTime(date, clock, tz string) (time.Time, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.Time{}, lerrors.Wrapf(lerrors.ErrInvalidArg, "unknown time zone %q", tz)
	}
	t, err := time.ParseInLocation("2006-01-02 15:04", date+" "+clock, loc)
	if err != nil {
		return time.Time{}, lerrors.Wrapf(lerrors.ErrInvalidArg, "invalid date or time %q %q", date, clock)
	}
	return t, nil
}

// meetingBase 会议类工具的公共依赖
type meetingBase struct {
	cal      Calendar
	mailer   Mailer
	timeZone string
	now      func() time.Time
}

func (b meetingBase) zone(args map[string]any) string {
	if tz := argString(args, "timeZone"); tz != "" {
		return tz
	}
	if b.timeZone != "" {
		return b.timeZone
	}
	return "UTC"
}

func meetingView(m Meeting) map[string]any {
	return map[string]any{
		"meetingId": m.ID,
		"title":     m.Title,
		"date":      m.Start.Format("2006-01-02"),
		"startTime": m.Start.Format("15:04"),
		"endTime":   m.End.Format("15:04"),
		"duration":  int(m.End.Sub(m.Start).Minutes()),
		"attendees": m.Attendees,
		"location":  m.Location,
		"link":      m.Link,
	}
}

// ScheduleMeetingTool schedule_meeting
type ScheduleMeetingTool struct{ meetingBase }

func (t *ScheduleMeetingTool) Name() string { return "schedule_meeting" }

func (t *ScheduleMeetingTool) Description() string {
	return "Schedule a meeting with a client on the calendar and send an invitation."
}

func (t *ScheduleMeetingTool) Schema() tool.Schema {
	min, max := tool.Range(15, 480)
	return tool.Schema{
		Type: "object",
		Properties: map[string]tool.SchemaProperty{
			"clientName":       {Type: "string", Description: "Name of the client or attendee"},
			"clientEmail":      {Type: "string", Format: "email", Description: "Email address for the invitation"},
			"date":             {Type: "string", Pattern: datePattern, Description: "Meeting date (YYYY-MM-DD)"},
			"startTime":        {Type: "string", Pattern: timePattern, Description: "Start time (HH:MM, 24-hour)"},
			"duration":         {Type: "integer", Minimum: min, Maximum: max, Description: "Duration in minutes; defaults by meeting type"},
			"meetingType":      {Type: "string", Description: "initial consultation, proposal review, status update, technical discussion"},
			"projectName":      {Type: "string", Description: "Project being discussed"},
			"notes":            {Type: "string", Description: "Agenda or notes"},
			"location":         {Type: "string", Description: "Meeting location, defaults to Google Meet"},
			"timeZone":         {Type: "string", Description: "IANA time zone"},
			"sendConfirmation": {Type: "boolean", Description: "Send a confirmation email, defaults to true"},
		},
		Required: []string{"clientName", "clientEmail", "date", "startTime"},
	}
}

func (t *ScheduleMeetingTool) Execute(ctx context.Context, sc *session.Context, args map[string]any) (string, error) {
	name := argString(args, "clientName")
	email := argString(args, "clientEmail")
	meetingType := argString(args, "meetingType")
	start, err := parseLocalTime(argString(args, "date"), argString(args, "startTime"), t.zone(args))
	if err != nil {
		return "", err
	}
	duration := argInt(args, "duration", MeetingDuration(meetingType))

	title := "Meeting with " + name
	if meetingType != "" {
		title = upperFirst(meetingType) + " with " + name
	}
	if p := argString(args, "projectName"); p != "" {
		title += " - " + p
	}
	location := argString(args, "location")
	if location == "" {
		location = "Google Meet"
	}

	m, err := t.cal.Create(ctx, Meeting{
		Title:       title,
		Description: argString(args, "notes"),
		Location:    location,
		Start:       start,
		End:         start.Add(time.Duration(duration) * time.Minute),
		Attendees:   []Attendee{{Name: name, Email: email}},
	}, true)
	if err != nil {
		return "", err
	}

	out := meetingView(m)
	out["confirmationSent"] = false
	if argBool(args, "sendConfirmation", true) {
		body := fmt.Sprintf("Hi %s,\n\nYour meeting \"%s\" is scheduled for %s at %s (%d minutes).\n\nLocation: %s",
			name, m.Title, m.Start.Format("Monday, January 2, 2006"), m.Start.Format("15:04 MST"), duration, location)
		if m.Link != "" {
			body += "\nLink: " + m.Link
		}
		// 邮件失败不影响已创建的会议
		if err := t.mailer.Send(ctx, Mail{To: []string{email}, Subject: "Meeting Scheduled: " + m.Title, Body: textToHTML(body)}); err != nil {
			out["confirmationError"] = err.Error()
		} else {
			out["confirmationSent"] = true
		}
	}
	return success(out)
}

// RescheduleMeetingTool reschedule_meeting
type RescheduleMeetingTool struct{ meetingBase }

func (t *RescheduleMeetingTool) Name() string { return "reschedule_meeting" }

func (t *RescheduleMeetingTool) Description() string {
	return "Reschedule an existing meeting to a new date and time."
}

func (t *RescheduleMeetingTool) Schema() tool.Schema {
	min, max := tool.Range(15, 480)
	return tool.Schema{
		Type: "object",
		Properties: map[string]tool.SchemaProperty{
			"meetingId": {Type: "string", Description: "ID of the meeting to move"},
			"date":      {Type: "string", Pattern: datePattern, Description: "New date (YYYY-MM-DD)"},
			"startTime": {Type: "string", Pattern: timePattern, Description: "New start time (HH:MM, 24-hour)"},
			"duration":  {Type: "integer", Minimum: min, Maximum: max, Description: "New duration; keeps the current one when omitted"},
			"timeZone":  {Type: "string", Description: "IANA time zone"},
		},
		Required: []string{"meetingId", "date", "startTime"},
	}
}

func (t *RescheduleMeetingTool) Execute(ctx context.Context, sc *session.Context, args map[string]any) (string, error) {
	id := argString(args, "meetingId")
	cur, err := t.cal.Get(ctx, id)
	if err != nil {
		return "", err
	}
	start, err := parseLocalTime(argString(args, "date"), argString(args, "startTime"), t.zone(args))
	if err != nil {
		return "", err
	}
	keep := int(cur.End.Sub(cur.Start).Minutes())
	if keep <= 0 {
		keep = 30
	}
	duration := argInt(args, "duration", keep)
	m, err := t.cal.Reschedule(ctx, id, start, start.Add(time.Duration(duration)*time.Minute), true)
	if err != nil {
		return "", err
	}
	out := meetingView(m)
	out["previousDate"] = cur.Start.Format("2006-01-02")
	out["previousStartTime"] = cur.Start.Format("15:04")
	return success(out)
}

// CancelMeetingTool cancel_meeting
type CancelMeetingTool struct{ meetingBase }

func (t *CancelMeetingTool) Name() string { return "cancel_meeting" }

func (t *CancelMeetingTool) Description() string {
	return "Cancel an existing meeting and optionally notify attendees."
}

func (t *CancelMeetingTool) Schema() tool.Schema {
	return tool.Schema{
		Type: "object",
		Properties: map[string]tool.SchemaProperty{
			"meetingId":        {Type: "string", Description: "ID of the meeting to cancel"},
			"reason":           {Type: "string", Description: "Reason for cancelling"},
			"sendNotification": {Type: "boolean", Description: "Notify attendees, defaults to true"},
		},
		Required: []string{"meetingId"},
	}
}

func (t *CancelMeetingTool) Execute(ctx context.Context, sc *session.Context, args map[string]any) (string, error) {
	id := argString(args, "meetingId")
	notify := argBool(args, "sendNotification", true)
	cur, err := t.cal.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if err := t.cal.Cancel(ctx, id, notify); err != nil {
		return "", err
	}
	out := map[string]any{
		"meetingId":        id,
		"title":            cur.Title,
		"date":             cur.Start.Format("2006-01-02"),
		"startTime":        cur.Start.Format("15:04"),
		"notificationSent": notify,
	}
	if r := argString(args, "reason"); r != "" {
		out["reason"] = r
		if notify && len(cur.Attendees) > 0 {
			to := make([]string, 0, len(cur.Attendees))
			for _, a := range cur.Attendees {
				to = append(to, a.Email)
			}
			body := fmt.Sprintf("<p>The meeting \"%s\" on %s has been cancelled.</p><p>Reason: %s</p>",
				html.EscapeString(cur.Title), cur.Start.Format("January 2, 2006 15:04"), html.EscapeString(r))
			if err := t.mailer.Send(ctx, Mail{To: to, Subject: "Meeting Cancelled: " + cur.Title, Body: body}); err != nil {
				out["notificationError"] = err.Error()
			}
		}
	}
	return success(out)
}

// UpcomingMeetingsTool get_upcoming_meetings
type UpcomingMeetingsTool struct{ meetingBase }

func (t *UpcomingMeetingsTool) Name() string { return "get_upcoming_meetings" }

func (t *UpcomingMeetingsTool) Description() string {
	return "List upcoming meetings for the next few days."
}

func (t *UpcomingMeetingsTool) Schema() tool.Schema {
	dmin, dmax := tool.Range(1, 90)
	rmin, rmax := tool.Range(1, 50)
	return tool.Schema{
		Type: "object",
		Properties: map[string]tool.SchemaProperty{
			"days":       {Type: "integer", Minimum: dmin, Maximum: dmax, Description: "Days to look ahead, defaults to 7"},
			"maxResults": {Type: "integer", Minimum: rmin, Maximum: rmax, Description: "Maximum meetings, defaults to 10"},
		},
	}
}

func (t *UpcomingMeetingsTool) Execute(ctx context.Context, sc *session.Context, args map[string]any) (string, error) {
	days := argInt(args, "days", 7)
	max := argInt(args, "maxResults", 10)
	from := t.now()
	list, err := t.cal.Upcoming(ctx, from, from.AddDate(0, 0, days), max)
	if err != nil {
		return "", err
	}
	views := make([]map[string]any, 0, len(list))
	for _, m := range list {
		views = append(views, meetingView(m))
	}
	return success(map[string]any{"count": len(views), "days": days, "meetings": views})
}
