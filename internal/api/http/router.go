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

package http

import (
	"github.com/cloudwego/hertz/pkg/app/server"
	hertzconfig "github.com/cloudwego/hertz/pkg/common/config"

	"lisa-assistant/internal/api/http/middleware"
)

// Router HTTP 路由器
type Router struct {
	handler    *Handler
	middleware *middleware.Middleware
}

// NewRouter 创建新的 HTTP 路由器
func NewRouter(handler *Handler, mw *middleware.Middleware) *Router {
	return &Router{handler: handler, middleware: mw}
}

// Build 创建 Hertz 实例并注册路由；server.Default 自带 panic recovery
func (r *Router) Build(addr string, opts ...hertzconfig.Option) *server.Hertz {
	opts = append([]hertzconfig.Option{server.WithHostPorts(addr)}, opts...)
	h := server.Default(opts...)
	r.Register(h)
	return h
}

// Register 注册全部路由
func (r *Router) Register(h *server.Hertz) {
	h.Use(r.middleware.AccessLog(), r.middleware.CORS())

	h.GET("/metrics", r.handler.Metrics)
	h.GET("/ws", r.middleware.RateLimit(), r.handler.ServeWS)

	api := h.Group("/api")
	api.GET("/health", r.handler.HealthCheck)

	sessions := api.Group("/sessions", r.middleware.RateLimit())
	{
		sessions.POST("", r.handler.CreateSession)
		sessions.POST("/:id/turns", r.handler.CreateTurn)
		sessions.GET("/:id/messages", r.handler.GetMessages)
		sessions.DELETE("/:id", r.handler.DeleteSession)
	}
}
