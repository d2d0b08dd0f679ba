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

package api

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	hertzslog "github.com/hertz-contrib/logger/slog"
	hertztracing "github.com/hertz-contrib/obs-opentelemetry/tracing"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"lisa-assistant/internal/api/http"
	"lisa-assistant/internal/api/http/middleware"
	"lisa-assistant/internal/app"
	"lisa-assistant/pkg/config"
	"lisa-assistant/pkg/log"
	"lisa-assistant/pkg/tracing"
)

// Version 构建版本，可通过 -ldflags "-X lisa-assistant/internal/app/api.Version=..." 覆盖
var Version = "0.1.0"

// App API 应用（装配 Assistant、HTTP Router、Handler、Middleware）
type App struct {
	config    *app.Bootstrap
	assistant *app.Assistant
	router    *http.Router
	hertz     *server.Hertz
	tracer    *sdktrace.TracerProvider

	stopSweep chan struct{}
	stopOnce  sync.Once
}

// NewApp 创建 API 应用（由 cmd/api 调用）
func NewApp(ctx context.Context, bootstrap *app.Bootstrap) (*App, error) {
	client, mi, err := app.NewLLMClientFromConfig(bootstrap.Config)
	if err != nil {
		return nil, fmt.Errorf("初始化 LLM 客户端失败: %w", err)
	}
	assistant, err := app.NewAssistant(ctx, bootstrap, client, mi)
	if err != nil {
		return nil, fmt.Errorf("初始化助手失败: %w", err)
	}
	cfg := bootstrap.Config
	handler := http.NewHandler(assistant.Orchestrator, assistant.Sessions, bootstrap.Conversation,
		bootstrap.Logger.With("component", "http"), cfg.Assistant.Fallbacks.Failure)
	handler.SetIdleTimeout(config.ParseDuration(cfg.API.IdleTimeout, 100*time.Second))

	return &App{
		config:    bootstrap,
		assistant: assistant,
		router:    http.NewRouter(handler, middleware.NewMiddleware(cfg.API)),
		stopSweep: make(chan struct{}),
	}, nil
}

// Run 启动 HTTP 服务，addr 如 ":8080"
func (a *App) Run(addr string) error {
	cfg := a.config.Config
	a.config.Logger.Info("API 服务启动", "addr", addr)

	// 使用 Hertz slog 扩展，与 bootstrap 配置对齐
	output := os.Stdout
	if cfg.Log.File != "" {
		f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("打开日志文件失败: %w", err)
		}
		output = f
	}
	levelVar := &slog.LevelVar{}
	levelVar.Set(log.ParseLevel(cfg.Log.Level))
	hlog.SetLogger(hertzslog.NewLogger(
		hertzslog.WithOutput(output),
		hertzslog.WithLevel(levelVar),
	))

	// 可选：启用链路追踪（OpenTelemetry）
	if tc := cfg.Monitoring.Tracing; tc.Enable {
		endpoint := tc.ExportEndpoint
		if endpoint == "" {
			endpoint = os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
		}
		if endpoint != "" {
			tp, err := tracing.InitTracer(context.Background(), tracing.OTelConfig{
				ServiceName:    tc.ServiceName,
				ServiceVersion: Version,
				ExportEndpoint: endpoint,
				Insecure:       tc.Insecure,
				SampleRatio:    tc.SampleRatio,
			})
			if err != nil {
				a.config.Logger.Warn("链路追踪初始化失败，继续运行", "error", err)
			} else {
				a.tracer = tp
				tracerOpt, tcfg := hertztracing.NewServerTracer()
				a.hertz = a.router.Build(addr, tracerOpt)
				a.hertz.Use(hertztracing.ServerMiddleware(tcfg))
				a.config.Logger.Info("链路追踪已启用", "service_name", tc.ServiceName, "endpoint", endpoint)
			}
		}
	}
	if a.hertz == nil {
		a.hertz = a.router.Build(addr)
	}

	if ttl := config.ParseDuration(cfg.API.SessionTTL, 0); ttl > 0 {
		go a.sweepSessions(ttl)
	}
	return a.hertz.Run()
}

// sweepSessions 定期回收闲置的 REST 会话
func (a *App) sweepSessions(ttl time.Duration) {
	ticker := time.NewTicker(ttl / 2)
	defer ticker.Stop()
	for {
		select {
		case <-a.stopSweep:
			return
		case <-ticker.C:
			if n := a.assistant.Sessions.Sweep(ttl); n > 0 {
				a.config.Logger.Info("回收闲置会话", "count", n)
			}
		}
	}
}

// Shutdown 优雅关闭（传入 ctx 以支持超时，如 cmd 层 WithTimeout）
func (a *App) Shutdown(ctx context.Context) error {
	a.stopOnce.Do(func() { close(a.stopSweep) })
	if a.hertz != nil {
		if err := a.hertz.Shutdown(ctx); err != nil {
			return err
		}
	}
	if a.tracer != nil {
		_ = a.tracer.Shutdown(ctx)
	}
	return a.config.Close()
}
