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
	"sort"
	"time"

	"github.com/google/uuid"

	"lisa-assistant/internal/runtime/session"
	"lisa-assistant/internal/storage/cache"
	"lisa-assistant/internal/tool"
	lerrors "lisa-assistant/pkg/errors"
)

// Reminder 提醒
type Reminder struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	DueAt       time.Time  `json:"dueAt"`
	Priority    string     `json:"priority"`
	Completed   bool       `json:"completed"`
	CreatedAt   time.Time  `json:"createdAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// ReminderStore 提醒列表，cache key "reminders"
type ReminderStore struct {
	list     *listStore[Reminder]
	timeZone string
	now      func() time.Time
}

func NewReminderStore(c cache.Store, timeZone string) *ReminderStore {
	if timeZone == "" {
		timeZone = "UTC"
	}
	return &ReminderStore{list: newListStore[Reminder](c, "reminders"), timeZone: timeZone, now: time.Now}
}

func (s *ReminderStore) Add(ctx context.Context, r Reminder) (Reminder, error) {
	r.ID = uuid.New().String()
	r.CreatedAt = s.now().UTC()
	if r.Priority == "" {
		r.Priority = "medium"
	}
	err := s.list.update(ctx, func(items []Reminder) ([]Reminder, error) {
		return append(items, r), nil
	})
	return r, err
}

// List 按到期时间升序
func (s *ReminderStore) List(ctx context.Context, includeCompleted bool) ([]Reminder, error) {
	items, err := s.list.list(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Reminder, 0, len(items))
	for _, r := range items {
		if includeCompleted || !r.Completed {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DueAt.Before(out[j].DueAt) })
	return out, nil
}

func (s *ReminderStore) Complete(ctx context.Context, id string) (Reminder, error) {
	var out Reminder
	err := s.list.update(ctx, func(items []Reminder) ([]Reminder, error) {
		for i := range items {
			if items[i].ID == id {
				now := s.now().UTC()
				items[i].Completed = true
				items[i].CompletedAt = &now
				out = items[i]
				return items, nil
			}
		}
		return nil, lerrors.Wrapf(lerrors.ErrNotFound, "reminder %s", id)
	})
	return out, err
}

// ReminderTools set_reminder / get_reminders / complete_reminder
func ReminderTools(s *ReminderStore) []tool.Tool {
	return []tool.Tool{
		&funcTool{
			name:        "set_reminder",
			description: "Set a reminder for a date and time.",
			schema: tool.Schema{
				Type: "object",
				Properties: map[string]tool.SchemaProperty{
					"title":       {Type: "string", Description: "What to be reminded about"},
					"description": {Type: "string", Description: "Optional details"},
					"dueDate":     {Type: "string", Pattern: datePattern, Description: "Due date (YYYY-MM-DD)"},
					"dueTime":     {Type: "string", Pattern: timePattern, Description: "Due time (HH:MM, 24-hour)"},
					"priority":    {Type: "string", Enum: []string{"low", "medium", "high"}, Description: "Defaults to medium"},
				},
				Required: []string{"title", "dueDate", "dueTime"},
			},
			run: func(ctx context.Context, _ *session.Context, args map[string]any) (string, error) {
				due, err := parseLocalTime(argString(args, "dueDate"), argString(args, "dueTime"), s.timeZone)
				if err != nil {
					return "", err
				}
				r, err := s.Add(ctx, Reminder{
					Title:       argString(args, "title"),
					Description: argString(args, "description"),
					DueAt:       due,
					Priority:    argString(args, "priority"),
				})
				if err != nil {
					return "", err
				}
				return success(map[string]any{"reminder": r})
			},
		},
		&funcTool{
			name:        "get_reminders",
			description: "List the user's reminders.",
			schema: tool.Schema{
				Type: "object",
				Properties: map[string]tool.SchemaProperty{
					"includeCompleted": {Type: "boolean", Description: "Include completed reminders, defaults to false"},
				},
			},
			run: func(ctx context.Context, _ *session.Context, args map[string]any) (string, error) {
				items, err := s.List(ctx, argBool(args, "includeCompleted", false))
				if err != nil {
					return "", err
				}
				return success(map[string]any{"count": len(items), "reminders": items})
			},
		},
		&funcTool{
			name:        "complete_reminder",
			description: "Mark a reminder as completed by id.",
			schema:      idSchema("reminder"),
			run: func(ctx context.Context, _ *session.Context, args map[string]any) (string, error) {
				r, err := s.Complete(ctx, argString(args, "id"))
				if err != nil {
					return "", err
				}
				return success(map[string]any{"reminder": r, "message": "Reminder marked as completed"})
			},
		},
	}
}
