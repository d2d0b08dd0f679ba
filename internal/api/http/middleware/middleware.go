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

package middleware

import (
	"context"
	"strings"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"golang.org/x/time/rate"

	"lisa-assistant/pkg/config"
)

// Middleware 中间件管理器
type Middleware struct {
	cfg     config.APIConfig
	limiter *rate.Limiter
}

// NewMiddleware 创建新的中间件管理器；开启 rate_limit 时使用令牌桶
func NewMiddleware(cfg config.APIConfig) *Middleware {
	m := &Middleware{cfg: cfg}
	if cfg.Middleware.RateLimit && cfg.Middleware.RateLimitRPS > 0 {
		rps := cfg.Middleware.RateLimitRPS
		m.limiter = rate.NewLimiter(rate.Limit(rps), rps)
	}
	return m
}

// CORS CORS 中间件
func (m *Middleware) CORS() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		if !m.cfg.CORS.Enable {
			c.Next(ctx)
			return
		}
		origin := "*"
		if len(m.cfg.CORS.AllowOrigins) > 0 {
			origin = ""
			reqOrigin := string(c.GetHeader("Origin"))
			for _, o := range m.cfg.CORS.AllowOrigins {
				if o == "*" || strings.EqualFold(o, reqOrigin) {
					origin = o
					if o != "*" {
						origin = reqOrigin
					}
					break
				}
			}
		}
		if origin != "" {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept")
			c.Header("Access-Control-Max-Age", "86400")
		}

		if string(c.Method()) == consts.MethodOptions {
			c.AbortWithStatus(consts.StatusNoContent)
			return
		}
		c.Next(ctx)
	}
}

// RateLimit 速率限制中间件；未开启时直接放行
func (m *Middleware) RateLimit() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		if m.limiter != nil && !m.limiter.Allow() {
			c.AbortWithStatusJSON(consts.StatusTooManyRequests, map[string]string{
				"error": "too many requests, please retry later",
			})
			return
		}
		c.Next(ctx)
	}
}

// AccessLog 访问日志
func (m *Middleware) AccessLog() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		start := time.Now()
		c.Next(ctx)
		hlog.CtxInfof(ctx, "%s %s %d %s %s",
			c.Method(), c.Path(), c.Response.StatusCode(), c.ClientIP(), time.Since(start))
	}
}
