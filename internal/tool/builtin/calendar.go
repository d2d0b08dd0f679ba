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
	"sync"
	"time"

	"github.com/google/uuid"

	lerrors "lisa-assistant/pkg/errors"
)

// Attendee 参会人
type Attendee struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
}

// Meeting 日历事件
type Meeting struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Location    string     `json:"location,omitempty"`
	Start       time.Time  `json:"start"`
	End         time.Time  `json:"end"`
	Attendees   []Attendee `json:"attendees,omitempty"`
	Link        string     `json:"link,omitempty"`
}

// Calendar 日历后端；Get/Update/Cancel 找不到事件时返回 ErrNotFound
type Calendar interface {
	Create(ctx context.Context, m Meeting, notify bool) (Meeting, error)
	Get(ctx context.Context, id string) (Meeting, error)
	Reschedule(ctx context.Context, id string, start, end time.Time, notify bool) (Meeting, error)
	Cancel(ctx context.Context, id string, notify bool) error
	Upcoming(ctx context.Context, from, to time.Time, max int) ([]Meeting, error)
}

// MemoryCalendar 进程内日历，未配置 Google Calendar 时使用
type MemoryCalendar struct {
	mu       sync.RWMutex
	meetings map[string]Meeting
}

func NewMemoryCalendar() *MemoryCalendar {
	return &MemoryCalendar{meetings: make(map[string]Meeting)}
}

func (c *MemoryCalendar) Create(_ context.Context, m Meeting, _ bool) (Meeting, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	m.Attendees = append([]Attendee(nil), m.Attendees...)
	c.meetings[m.ID] = m
	return m, nil
}

func (c *MemoryCalendar) Get(_ context.Context, id string) (Meeting, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.meetings[id]
	if !ok {
		return Meeting{}, lerrors.Wrapf(lerrors.ErrNotFound, "meeting %s", id)
	}
	return m, nil
}

func (c *MemoryCalendar) Reschedule(_ context.Context, id string, start, end time.Time, _ bool) (Meeting, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.meetings[id]
	if !ok {
		return Meeting{}, lerrors.Wrapf(lerrors.ErrNotFound, "meeting %s", id)
	}
	m.Start, m.End = start, end
	c.meetings[id] = m
	return m, nil
}

func (c *MemoryCalendar) Cancel(_ context.Context, id string, _ bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.meetings[id]; !ok {
		return lerrors.Wrapf(lerrors.ErrNotFound, "meeting %s", id)
	}
	delete(c.meetings, id)
	return nil
}

// Upcoming 返回 [from, to) 内开始的会议，按开始时间升序
func (c *MemoryCalendar) Upcoming(_ context.Context, from, to time.Time, max int) ([]Meeting, error) {
	c.mu.RLock()
	out := make([]Meeting, 0)
	for _, m := range c.meetings {
		if !m.Start.Before(from) && m.Start.Before(to) {
			out = append(out, m)
		}
	}
	c.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	if max > 0 && len(out) > max {
		out = out[:max]
	}
	return out, nil
}
