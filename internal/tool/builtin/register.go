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
	"time"

	"lisa-assistant/internal/storage/cache"
	"lisa-assistant/internal/storage/conversation"
	"lisa-assistant/internal/storage/object"
	"lisa-assistant/internal/tool"
	"lisa-assistant/pkg/config"
	"lisa-assistant/pkg/log"
)

// DefaultSilent 结果不需要第二次补全的工具
var DefaultSilent = []string{
	"mayday_call",
	"give_intro",
	"compare_with_alexa",
	"start_interview_mode",
	"end_interview",
}

// Deps 内置工具依赖
type Deps struct {
	Config          config.ToolsConfig
	InterviewPrompt string
	Cache           cache.Store
	Objects         object.Store
	History         conversation.Store
	Calendar        Calendar
	Mailer          Mailer
	Logger          *log.Logger
	Now             func() time.Time
}

func (d Deps) now() func() time.Time {
	if d.Now != nil {
		return d.Now
	}
	return time.Now
}

// NewCalendar client_id 配置时使用 Google Calendar，否则内存日历
func NewCalendar(ctx context.Context, cfg config.CalendarConfig) (Calendar, error) {
	if cfg.ClientID == "" {
		return NewMemoryCalendar(), nil
	}
	return NewGoogleCalendar(ctx, cfg)
}

// AssistantTools 助手模式工具集
func AssistantTools(d Deps) []tool.Tool {
	if d.Mailer == nil {
		d.Mailer = NewMailer(d.Config.Email)
	}
	if d.Calendar == nil {
		d.Calendar = NewMemoryCalendar()
	}
	tz := d.Config.Calendar.TimeZone
	mb := meetingBase{cal: d.Calendar, mailer: d.Mailer, timeZone: tz, now: d.now()}

	weather := NewWeatherTool(d.Config.Weather)
	weather.now = d.now()
	todos := NewTodoStore(d.Cache)
	todos.now = d.now()
	reminders := NewReminderStore(d.Cache, tz)
	reminders.now = d.now()
	mayday := NewMaydayTool(d.Cache, d.Logger)
	mayday.now = d.now()

	ts := []tool.Tool{
		weather,
		NewForecastTool(d.Config.Weather),
		NewSearchTool(d.Config.Search),
		NewNewsTool(d.Config.News),
		NewEmailTool(d.Mailer),
		NewBulkMailTool(d.Objects, d.Mailer),
		&ScheduleMeetingTool{mb},
		&RescheduleMeetingTool{mb},
		&CancelMeetingTool{mb},
		&UpcomingMeetingsTool{mb},
		mayday,
		NewIntroTool(),
		NewCompareTool(),
		NewStartInterviewTool(d.Objects, d.History, d.InterviewPrompt),
	}
	ts = append(ts, TodoTools(todos)...)
	ts = append(ts, ReminderTools(reminders)...)
	return ts
}

// InterviewTools 面试模式工具集
func InterviewTools(d Deps) []tool.Tool {
	end := NewEndInterviewTool(d.Objects)
	end.now = d.now()
	return []tool.Tool{end}
}
