package metrics

import (
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// 全局 Registry，供 API 注册与暴露
var DefaultRegistry = prometheus.NewRegistry()

func init() {
	DefaultRegistry.MustRegister(
		TurnDuration, TurnTotal,
		ToolDuration, ToolCallsTotal,
		LLMRequestsTotal, LLMTokensTotal, LLMWindowTokens, RateLimitWaitSeconds,
		ActiveSessions,
	)
}

// TurnDuration 单轮对话耗时（秒）
var TurnDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "lisa_turn_duration_seconds",
		Help:    "单轮对话耗时（秒）",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"outcome"},
)

// TurnTotal 对话轮次总数（按结果）
var TurnTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "lisa_turn_total",
		Help: "对话轮次总数（按结果）",
	},
	[]string{"outcome"}, // plain | tool | silent | failed
)

// ToolDuration 工具调用耗时（秒）
var ToolDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "lisa_tool_duration_seconds",
		Help:    "工具调用耗时（秒）",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"tool"},
)

// ToolCallsTotal 工具调用次数（按状态）
var ToolCallsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "lisa_tool_calls_total",
		Help: "工具调用次数",
	},
	[]string{"tool", "status"}, // ok | error | invalid_args | unknown
)

// LLMRequestsTotal LLM 请求次数
var LLMRequestsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "lisa_llm_requests_total",
		Help: "LLM 请求次数",
	},
	[]string{"provider", "status"},
)

// LLMTokensTotal LLM 调用 token 数
var LLMTokensTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "lisa_llm_tokens_total",
		Help: "LLM 调用 token 总数",
	},
	[]string{"direction"}, // input | output
)

// LLMWindowTokens 当前一分钟窗口内各 provider 实际消耗的 token，对照 tokens_per_minute 配额
var LLMWindowTokens = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "lisa_llm_window_tokens",
		Help: "当前一分钟窗口内 LLM 实际消耗的 token 数",
	},
	[]string{"provider"},
)

// RateLimitWaitSeconds 限流等待耗时
var RateLimitWaitSeconds = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "lisa_rate_limit_wait_seconds",
		Help:    "限流等待耗时（秒）",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	},
	[]string{"kind", "provider"},
)

// ActiveSessions 当前活跃的 WebSocket 会话数
var ActiveSessions = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "lisa_active_sessions",
		Help: "当前活跃会话数",
	},
)

// WritePrometheus 将 Prometheus 文本格式写入 w（供 Hertz 等复用）
func WritePrometheus(w io.Writer) error {
	metrics, err := DefaultRegistry.Gather()
	if err != nil {
		return err
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range metrics {
		if err := enc.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}
