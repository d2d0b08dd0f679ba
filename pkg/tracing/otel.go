// Copyright 2026 fanjia1024
// OpenTelemetry integration for distributed tracing

package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	tracerName         = "lisa"
	defaultServiceName = "lisa-api"
)

// OTelConfig OpenTelemetry 配置
type OTelConfig struct {
	ServiceName    string
	ServiceVersion string
	ExportEndpoint string
	Insecure       bool
	// SampleRatio 根 span 采样比例，<=0 或 >=1 时全采样
	SampleRatio float64
}

func (c OTelConfig) sampler() sdktrace.Sampler {
	if c.SampleRatio <= 0 || c.SampleRatio >= 1 {
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	}
	return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(c.SampleRatio))
}

func (c OTelConfig) attributes() []attribute.KeyValue {
	name := c.ServiceName
	if name == "" {
		name = defaultServiceName
	}
	attrs := []attribute.KeyValue{semconv.ServiceName(name)}
	if c.ServiceVersion != "" {
		attrs = append(attrs, semconv.ServiceVersion(c.ServiceVersion))
	}
	return attrs
}

// InitTracer 创建 OTLP/HTTP exporter 并注册为全局 TracerProvider，
// 同时安装 W3C tracecontext + baggage 传播器，供 hertz 中间件透传上游 trace
func InitTracer(ctx context.Context, config OTelConfig) (*sdktrace.TracerProvider, error) {
	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(config.ExportEndpoint)}
	if config.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	exporter, err := otlptrace.New(ctx, otlptracehttp.NewClient(opts...))
	if err != nil {
		return nil, err
	}

	res, err := resource.New(ctx, resource.WithAttributes(config.attributes()...))
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(config.sampler()),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{},
	))
	return tp, nil
}

// StartTurnSpan 开始一轮对话的 span
func StartTurnSpan(ctx context.Context, sessionID string, mode string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "turn.process",
		trace.WithAttributes(
			attribute.String("session.id", sessionID),
			attribute.String("session.mode", mode),
		),
	)
}

// StartCompletionSpan 开始一次 LLM completion span；phase 为 first | second
func StartCompletionSpan(ctx context.Context, provider string, phase string, withTools bool) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "llm.complete",
		trace.WithAttributes(
			attribute.String("llm.provider", provider),
			attribute.String("llm.phase", phase),
			attribute.Bool("llm.with_tools", withTools),
		),
	)
}

// StartToolSpan 开始 tool invocation span
func StartToolSpan(ctx context.Context, toolName string, callID string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "tool.invoke",
		trace.WithAttributes(
			attribute.String("tool.name", toolName),
			attribute.String("tool.call_id", callID),
		),
	)
}

// RecordError 在 span 上记录错误并标记状态
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
