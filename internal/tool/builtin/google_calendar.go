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
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"lisa-assistant/pkg/config"
	lerrors "lisa-assistant/pkg/errors"
)

// GoogleCalendar 通过 refresh token 访问 Google Calendar
type GoogleCalendar struct {
	svc        *calendar.Service
	calendarID string
	timeZone   string
}

// NewGoogleCalendar 用 OAuth2 refresh token 构造 token source
func NewGoogleCalendar(ctx context.Context, cfg config.CalendarConfig) (*GoogleCalendar, error) {
	if cfg.ClientID == "" || cfg.RefreshToken == "" {
		return nil, errors.New("google calendar requires client_id and refresh_token")
	}
	oc := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     endpoints.Google,
		Scopes:       []string{calendar.CalendarEventsScope},
	}
	ts := oc.TokenSource(ctx, &oauth2.Token{RefreshToken: cfg.RefreshToken})
	svc, err := calendar.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("create calendar service: %w", err)
	}
	id := cfg.CalendarID
	if id == "" {
		id = "primary"
	}
	return &GoogleCalendar{svc: svc, calendarID: id, timeZone: cfg.TimeZone}, nil
}

func sendUpdates(notify bool) string {
	if notify {
		return "all"
	}
	return "none"
}

func (g *GoogleCalendar) eventTime(t time.Time) *calendar.EventDateTime {
	return &calendar.EventDateTime{DateTime: t.Format(time.RFC3339), TimeZone: g.timeZone}
}

func (g *GoogleCalendar) Create(ctx context.Context, m Meeting, notify bool) (Meeting, error) {
	ev := &calendar.Event{
		Summary:     m.Title,
		Description: m.Description,
		Location:    m.Location,
		Start:       g.eventTime(m.Start),
		End:         g.eventTime(m.End),
	}
	for _, a := range m.Attendees {
		ev.Attendees = append(ev.Attendees, &calendar.EventAttendee{Email: a.Email, DisplayName: a.Name})
	}
	created, err := g.svc.Events.Insert(g.calendarID, ev).SendUpdates(sendUpdates(notify)).Context(ctx).Do()
	if err != nil {
		return Meeting{}, mapGoogleErr(err, "")
	}
	return fromEvent(created), nil
}

func (g *GoogleCalendar) Get(ctx context.Context, id string) (Meeting, error) {
	ev, err := g.svc.Events.Get(g.calendarID, id).Context(ctx).Do()
	if err != nil {
		return Meeting{}, mapGoogleErr(err, id)
	}
	return fromEvent(ev), nil
}

func (g *GoogleCalendar) Reschedule(ctx context.Context, id string, start, end time.Time, notify bool) (Meeting, error) {
	patch := &calendar.Event{Start: g.eventTime(start), End: g.eventTime(end)}
	ev, err := g.svc.Events.Patch(g.calendarID, id, patch).SendUpdates(sendUpdates(notify)).Context(ctx).Do()
	if err != nil {
		return Meeting{}, mapGoogleErr(err, id)
	}
	return fromEvent(ev), nil
}

func (g *GoogleCalendar) Cancel(ctx context.Context, id string, notify bool) error {
	err := g.svc.Events.Delete(g.calendarID, id).SendUpdates(sendUpdates(notify)).Context(ctx).Do()
	return mapGoogleErr(err, id)
}

func (g *GoogleCalendar) Upcoming(ctx context.Context, from, to time.Time, max int) ([]Meeting, error) {
	call := g.svc.Events.List(g.calendarID).
		TimeMin(from.Format(time.RFC3339)).
		TimeMax(to.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime")
	if max > 0 {
		call = call.MaxResults(int64(max))
	}
	res, err := call.Context(ctx).Do()
	if err != nil {
		return nil, mapGoogleErr(err, "")
	}
	out := make([]Meeting, 0, len(res.Items))
	for _, ev := range res.Items {
		out = append(out, fromEvent(ev))
	}
	return out, nil
}

func mapGoogleErr(err error, id string) error {
	if err == nil {
		return nil
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && (gerr.Code == http.StatusNotFound || gerr.Code == http.StatusGone) {
		return lerrors.Wrapf(lerrors.ErrNotFound, "meeting %s", id)
	}
	return err
}

func parseEventTime(t *calendar.EventDateTime) time.Time {
	if t == nil {
		return time.Time{}
	}
	if t.DateTime != "" {
		if v, err := time.Parse(time.RFC3339, t.DateTime); err == nil {
			return v
		}
	}
	if v, err := time.Parse("2006-01-02", t.Date); err == nil {
		return v
	}
	return time.Time{}
}

func fromEvent(ev *calendar.Event) Meeting {
	m := Meeting{
		ID:          ev.Id,
		Title:       ev.Summary,
		Description: ev.Description,
		Location:    ev.Location,
		Start:       parseEventTime(ev.Start),
		End:         parseEventTime(ev.End),
		Link:        ev.HangoutLink,
	}
	if m.Link == "" {
		m.Link = ev.HtmlLink
	}
	for _, a := range ev.Attendees {
		m.Attendees = append(m.Attendees, Attendee{Name: a.DisplayName, Email: a.Email})
	}
	return m
}
