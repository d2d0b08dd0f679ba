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
	"time"

	"lisa-assistant/internal/runtime/session"
	"lisa-assistant/internal/storage/cache"
	"lisa-assistant/internal/tool"
	"lisa-assistant/pkg/log"
)

// SOSNotice mayday_call 推送给客户端的提示
const SOSNotice = "SOS alert triggered. Your emergency alert has been recorded and help is being notified."

// Alert 紧急告警记录
type Alert struct {
	ID        string    `json:"id"`
	SessionID string    `json:"sessionId"`
	Mayday    bool      `json:"mayday"`
	CreatedAt time.Time `json:"createdAt"`
}

// MaydayTool mayday_call，静默工具：不触发第二次补全
type MaydayTool struct {
	alerts *listStore[Alert]
	logger *log.Logger
	now    func() time.Time
}

func NewMaydayTool(c cache.Store, logger *log.Logger) *MaydayTool {
	if logger == nil {
		logger = log.Nop()
	}
	return &MaydayTool{alerts: newListStore[Alert](c, "alerts"), logger: logger, now: time.Now}
}

func (t *MaydayTool) Name() string { return "mayday_call" }

func (t *MaydayTool) Description() string {
	return "Trigger an emergency SOS alert when the user says mayday or asks for urgent help."
}

func (t *MaydayTool) Schema() tool.Schema { return tool.Schema{Type: "object"} }

// Alerts 已记录的告警
func (t *MaydayTool) Alerts(ctx context.Context) ([]Alert, error) {
	return t.alerts.list(ctx)
}

func (t *MaydayTool) Execute(ctx context.Context, sc *session.Context, args map[string]any) (string, error) {
	now := t.now()
	a := Alert{ID: fmt.Sprintf("mayday%d", now.UnixMilli()), SessionID: sc.ID, Mayday: true, CreatedAt: now.UTC()}
	if err := t.alerts.update(ctx, func(items []Alert) ([]Alert, error) {
		return append(items, a), nil
	}); err != nil {
		return "", err
	}
	t.logger.Warn("mayday alert recorded", "alert_id", a.ID, "session_id", sc.ID)
	if err := sc.Emit(ctx, SOSNotice, true); err != nil {
		t.logger.Warn("emit sos notice failed", "error", err)
	}
	return success(nil)
}
