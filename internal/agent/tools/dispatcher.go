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
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sourcegraph/conc/iter"
	"github.com/xeipuuv/gojsonschema"

	"lisa-assistant/internal/model/llm"
	"lisa-assistant/internal/runtime/session"
	"lisa-assistant/pkg/log"
	"lisa-assistant/pkg/metrics"
	"lisa-assistant/pkg/tracing"
)

const (
	defaultToolTimeout = 20 * time.Second
	defaultConcurrency = 4
)

// Result.Status 取值
const (
	StatusOK          = "ok"
	StatusError       = "error"
	StatusInvalidArgs = "invalid_args"
)

// Result 单个工具调用的结果
type Result struct {
	ToolCallID string `json:"tool_call_id"`
	ToolName   string `json:"tool_name"`
	Content    string `json:"content"`
	// Status ok | error | invalid_args
	Status string `json:"status"`
}

// Dispatcher 解析、校验并执行模型请求的工具调用。不返回错误，不向外抛 panic。
type Dispatcher struct {
	registry    *Registry
	timeout     time.Duration
	concurrency int
	logger      *log.Logger
}

// Option Dispatcher 选项
type Option func(*Dispatcher)

// WithTimeout 单个工具的超时
func WithTimeout(d time.Duration) Option {
	return func(x *Dispatcher) {
		if d > 0 {
			x.timeout = d
		}
	}
}

// WithConcurrency 同一轮内并发执行的工具数上限
func WithConcurrency(n int) Option {
	return func(x *Dispatcher) {
		if n > 0 {
			x.concurrency = n
		}
	}
}

// WithLogger 设置日志
func WithLogger(l *log.Logger) Option {
	return func(x *Dispatcher) {
		if l != nil {
			x.logger = l
		}
	}
}

// NewDispatcher 创建 Dispatcher
func NewDispatcher(registry *Registry, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		registry:    registry,
		timeout:     defaultToolTimeout,
		concurrency: defaultConcurrency,
		logger:      log.Nop(),
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Registry 返回底层工具表
func (d *Dispatcher) Registry() *Registry { return d.registry }

// Invoke 执行单个调用。工具不存在时 ok=false，调用方丢弃该请求。
func (d *Dispatcher) Invoke(ctx context.Context, sc *session.Context, call llm.ToolCall) (Result, bool) {
	t, ok := d.registry.Resolve(call.Name)
	if !ok {
		metrics.ToolCallsTotal.WithLabelValues("unknown", "unknown").Inc()
		d.logger.Warn("unknown tool requested", "session_id", sc.ID, "tool", call.Name, "call_id", call.ID)
		return Result{}, false
	}
	res := Result{ToolCallID: call.ID, ToolName: call.Name}

	args, err := d.validate(call)
	if err != nil {
		res.Status = StatusInvalidArgs
		res.Content = fmt.Sprintf("Invalid arguments for tool %s: %s", call.Name, err.Error())
		metrics.ToolCallsTotal.WithLabelValues(call.Name, res.Status).Inc()
		d.logger.Warn("tool arguments rejected", "session_id", sc.ID, "tool", call.Name, "error", err)
		return res, true
	}

	ctx, span := tracing.StartToolSpan(ctx, call.Name, call.ID)
	defer span.End()
	start := time.Now()
	content, err := d.run(ctx, sc, call.Name, t.Execute, args)
	elapsed := time.Since(start)
	metrics.ToolDuration.WithLabelValues(call.Name).Observe(elapsed.Seconds())

	if err != nil {
		tracing.RecordError(span, err)
		res.Status = StatusError
		res.Content = fmt.Sprintf("Error executing tool %s: %s", call.Name, err.Error())
		d.logger.Error("tool failed", "session_id", sc.ID, "tool", call.Name, "duration", elapsed, "error", err)
	} else {
		res.Status = StatusOK
		res.Content = content
		d.logger.Info("tool executed", "session_id", sc.ID, "tool", call.Name, "duration", elapsed)
	}
	metrics.ToolCallsTotal.WithLabelValues(call.Name, res.Status).Inc()
	return res, true
}

// DispatchAll 并发执行全部调用，结果按请求顺序返回，未知工具被移除
func (d *Dispatcher) DispatchAll(ctx context.Context, sc *session.Context, calls []llm.ToolCall) []Result {
	if len(calls) == 0 {
		return []Result{}
	}
	type slot struct {
		res Result
		ok  bool
	}
	mapper := iter.Mapper[llm.ToolCall, slot]{MaxGoroutines: d.concurrency}
	slots := mapper.Map(calls, func(call *llm.ToolCall) slot {
		r, ok := d.Invoke(ctx, sc, *call)
		return slot{res: r, ok: ok}
	})
	out := make([]Result, 0, len(slots))
	for _, s := range slots {
		if s.ok {
			out = append(out, s.res)
		}
	}
	return out
}

// validate 解析参数 JSON（空串视为 {}）并按工具 schema 校验
func (d *Dispatcher) validate(call llm.ToolCall) (map[string]any, error) {
	raw := strings.TrimSpace(call.Arguments)
	if raw == "" || raw == "null" {
		raw = "{}"
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, fmt.Errorf("arguments are not a JSON object: %v", err)
	}
	if args == nil {
		args = map[string]any{}
	}
	schema := d.registry.schema(call.Name)
	if schema == nil {
		return args, nil
	}
	result, err := schema.Validate(gojsonschema.NewGoLoader(args))
	if err != nil {
		return nil, err
	}
	if !result.Valid() {
		return nil, errors.New(describeErrors(result.Errors()))
	}
	return args, nil
}

func describeErrors(errs []gojsonschema.ResultError) string {
	parts := make([]string, 0, len(errs))
	for _, e := range errs {
		parts = append(parts, e.String())
	}
	return strings.Join(parts, "; ")
}

type execFunc func(ctx context.Context, sc *session.Context, args map[string]any) (string, error)

// run 在独立 goroutine 中执行，超时或 panic 都转为 error；不响应 ctx 的工具也不会阻塞本轮
func (d *Dispatcher) run(ctx context.Context, sc *session.Context, name string, fn execFunc, args map[string]any) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	type outcome struct {
		content string
		err     error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				d.logger.Error("tool panicked", "session_id", sc.ID, "tool", name, "panic", p)
				done <- outcome{err: fmt.Errorf("panic: %v", p)}
			}
		}()
		content, err := fn(ctx, sc, args)
		done <- outcome{content: content, err: err}
	}()

	select {
	case o := <-done:
		return o.content, o.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("timed out after %s", d.timeout)
		}
		return "", ctx.Err()
	}
}
