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

	"github.com/google/uuid"

	"lisa-assistant/internal/runtime/session"
	"lisa-assistant/internal/storage/cache"
	"lisa-assistant/internal/tool"
	lerrors "lisa-assistant/pkg/errors"
)

// Todo 待办事项
type Todo struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Completed   bool       `json:"completed"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// TodoStore 待办列表，整体保存在 cache key "todos" 下
type TodoStore struct {
	list *listStore[Todo]
	now  func() time.Time
}

func NewTodoStore(c cache.Store) *TodoStore {
	return &TodoStore{list: newListStore[Todo](c, "todos"), now: time.Now}
}

func (s *TodoStore) Create(ctx context.Context, title, description string) (Todo, error) {
	now := s.now().UTC()
	t := Todo{ID: uuid.New().String(), Title: title, Description: description, CreatedAt: now, UpdatedAt: now}
	err := s.list.update(ctx, func(items []Todo) ([]Todo, error) {
		return append(items, t), nil
	})
	return t, err
}

func (s *TodoStore) List(ctx context.Context) ([]Todo, error) {
	return s.list.list(ctx)
}

// modify 对指定 id 执行 fn；不存在时返回 ErrNotFound
func (s *TodoStore) modify(ctx context.Context, id string, fn func(*Todo)) (Todo, error) {
	var out Todo
	err := s.list.update(ctx, func(items []Todo) ([]Todo, error) {
		for i := range items {
			if items[i].ID == id {
				fn(&items[i])
				items[i].UpdatedAt = s.now().UTC()
				out = items[i]
				return items, nil
			}
		}
		return nil, lerrors.Wrapf(lerrors.ErrNotFound, "todo %s", id)
	})
	return out, err
}

func (s *TodoStore) Update(ctx context.Context, id, title, description string) (Todo, error) {
	return s.modify(ctx, id, func(t *Todo) {
		if title != "" {
			t.Title = title
		}
		if description != "" {
			t.Description = description
		}
	})
}

func (s *TodoStore) Complete(ctx context.Context, id string) (Todo, error) {
	return s.modify(ctx, id, func(t *Todo) {
		now := s.now().UTC()
		t.Completed = true
		t.CompletedAt = &now
	})
}

func (s *TodoStore) Delete(ctx context.Context, id string) error {
	return s.list.update(ctx, func(items []Todo) ([]Todo, error) {
		for i := range items {
			if items[i].ID == id {
				return append(items[:i], items[i+1:]...), nil
			}
		}
		return nil, lerrors.Wrapf(lerrors.ErrNotFound, "todo %s", id)
	})
}

// TodoTools create/get/update/complete/delete 五个工具
func TodoTools(s *TodoStore) []tool.Tool {
	return []tool.Tool{
		&funcTool{
			name:        "create_todo",
			description: "Create and save a new to-do with a title and optional description.",
			schema: tool.Schema{
				Type: "object",
				Properties: map[string]tool.SchemaProperty{
					"title":       {Type: "string", Description: "Title of the todo"},
					"description": {Type: "string", Description: "Optional description"},
				},
				Required: []string{"title"},
			},
			run: func(ctx context.Context, _ *session.Context, args map[string]any) (string, error) {
				t, err := s.Create(ctx, argString(args, "title"), argString(args, "description"))
				if err != nil {
					return "", err
				}
				return success(map[string]any{"todo": t})
			},
		},
		&funcTool{
			name:        "get_todos",
			description: "Retrieve all to-dos and tasks saved by the user.",
			schema:      tool.Schema{Type: "object"},
			run: func(ctx context.Context, _ *session.Context, _ map[string]any) (string, error) {
				items, err := s.List(ctx)
				if err != nil {
					return "", err
				}
				return success(map[string]any{"count": len(items), "todos": items})
			},
		},
		&funcTool{
			name:        "update_todo",
			description: "Update a todo's title or description by id.",
			schema: tool.Schema{
				Type: "object",
				Properties: map[string]tool.SchemaProperty{
					"id":          {Type: "string", Description: "ID of the todo"},
					"title":       {Type: "string", Description: "New title"},
					"description": {Type: "string", Description: "New description"},
				},
				Required: []string{"id"},
			},
			run: func(ctx context.Context, _ *session.Context, args map[string]any) (string, error) {
				t, err := s.Update(ctx, argString(args, "id"), argString(args, "title"), argString(args, "description"))
				if err != nil {
					return "", err
				}
				return success(map[string]any{"todo": t})
			},
		},
		&funcTool{
			name:        "mark_todo_as_complete",
			description: "Mark a todo as complete by id.",
			schema:      idSchema("todo"),
			run: func(ctx context.Context, _ *session.Context, args map[string]any) (string, error) {
				t, err := s.Complete(ctx, argString(args, "id"))
				if err != nil {
					return "", err
				}
				return success(map[string]any{"todo": t})
			},
		},
		&funcTool{
			name:        "delete_todo",
			description: "Delete a todo by id.",
			schema:      idSchema("todo"),
			run: func(ctx context.Context, _ *session.Context, args map[string]any) (string, error) {
				id := argString(args, "id")
				if err := s.Delete(ctx, id); err != nil {
					return "", err
				}
				return success(map[string]any{"id": id, "message": "Todo deleted successfully"})
			},
		},
	}
}
