package observability

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	dbTracerName       = "txcommit/db"
	pipelineTracerName = "txcommit/pipeline"
)

type contextKey string

const (
	referenceIDKey contextKey = "observability.reference_id"
	txHashKey      contextKey = "observability.tx_hash"
	streamKeyKey   contextKey = "observability.stream_key"
	requestIDKey   contextKey = "observability.request_id"
	routeKey       contextKey = "observability.route"
)

// Span is the application-level tracing span contract.
type Span interface {
	End()
	RecordError(error)
}

type otelSpan struct {
	inner trace.Span
}

// StartDBSpan starts a database tracing span for one query operation.
func StartDBSpan(ctx context.Context, queryName, operation string) (context.Context, Span) {
	queryName = strings.TrimSpace(queryName)
	if queryName == "" {
		queryName = "unknown"
	}
	attrs := []attribute.KeyValue{
		attribute.String("db.system.name", "sqlite"),
		attribute.String("db.query_name", queryName),
		attribute.String("db.operation", strings.TrimSpace(operation)),
	}
	attrs = append(attrs, pipelineAttributes(ctx)...)

	ctx, span := otel.Tracer(dbTracerName).Start(ctx, "db."+queryName,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)

	return ctx, otelSpan{inner: span}
}

// StartClientSpan starts a span for one outbound call to a pipeline collaborator.
func StartClientSpan(ctx context.Context, system, operation string) (context.Context, Span) {
	system = strings.TrimSpace(system)
	operation = strings.TrimSpace(operation)
	attrs := []attribute.KeyValue{
		attribute.String("peer.service", system),
		attribute.String("txcommit.operation", operation),
	}
	attrs = append(attrs, pipelineAttributes(ctx)...)

	ctx, span := otel.Tracer(pipelineTracerName).Start(ctx, system+"."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)
	return ctx, otelSpan{inner: span}
}

// PipelineFields identifies the pipeline item a context is working on.
type PipelineFields struct {
	ReferenceID string
	TxHash      string
	StreamKey   string
}

// WithPipelineFields enriches context and current span with pipeline item identity.
func WithPipelineFields(ctx context.Context, fields PipelineFields) context.Context {
	if v := strings.TrimSpace(fields.ReferenceID); v != "" {
		ctx = context.WithValue(ctx, referenceIDKey, v)
	}
	if v := strings.TrimSpace(fields.TxHash); v != "" {
		ctx = context.WithValue(ctx, txHashKey, v)
	}
	if v := strings.TrimSpace(fields.StreamKey); v != "" {
		ctx = context.WithValue(ctx, streamKeyKey, v)
	}
	if span := trace.SpanFromContext(ctx); span != nil {
		if attrs := pipelineAttributes(ctx); len(attrs) > 0 {
			span.SetAttributes(attrs...)
		}
	}
	return ctx
}

// WithRequestMetadata enriches context and current span with request metadata.
func WithRequestMetadata(ctx context.Context, requestID, route string) context.Context {
	requestID = strings.TrimSpace(requestID)
	route = strings.TrimSpace(route)
	if requestID != "" {
		ctx = context.WithValue(ctx, requestIDKey, requestID)
	}
	if route != "" {
		ctx = context.WithValue(ctx, routeKey, route)
	}
	setSpanRequestAttributes(ctx, requestID, route)
	return ctx
}

func stringFromContext(ctx context.Context, key contextKey) (string, bool) {
	value, ok := ctx.Value(key).(string)
	value = strings.TrimSpace(value)
	return value, ok && value != ""
}

// ReferenceIDFromContext extracts the request reference id.
func ReferenceIDFromContext(ctx context.Context) (string, bool) {
	return stringFromContext(ctx, referenceIDKey)
}

// TxHashFromContext extracts the transaction hash.
func TxHashFromContext(ctx context.Context) (string, bool) {
	return stringFromContext(ctx, txHashKey)
}

// StreamKeyFromContext extracts the batch stream key.
func StreamKeyFromContext(ctx context.Context) (string, bool) {
	return stringFromContext(ctx, streamKeyKey)
}

// RequestIDFromContext extracts request id.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	return stringFromContext(ctx, requestIDKey)
}

// RouteFromContext extracts normalized route path.
func RouteFromContext(ctx context.Context) (string, bool) {
	return stringFromContext(ctx, routeKey)
}

func pipelineAttributes(ctx context.Context) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 3)
	if v, ok := ReferenceIDFromContext(ctx); ok {
		attrs = append(attrs, attribute.String("txcommit.reference_id", v))
	}
	if v, ok := TxHashFromContext(ctx); ok {
		attrs = append(attrs, attribute.String("txcommit.tx_hash", v))
	}
	if v, ok := StreamKeyFromContext(ctx); ok {
		attrs = append(attrs, attribute.String("txcommit.stream_key", v))
	}
	return attrs
}

func setSpanRequestAttributes(ctx context.Context, requestID, route string) {
	span := trace.SpanFromContext(ctx)
	if span == nil {
		return
	}
	attrs := make([]attribute.KeyValue, 0, 2)
	if requestID != "" {
		attrs = append(attrs, attribute.String("request.id", requestID))
	}
	if route != "" {
		attrs = append(attrs, attribute.String("http.route", route))
	}
	if len(attrs) > 0 {
		span.SetAttributes(attrs...)
	}
}

func (s otelSpan) End() {
	if s.inner == nil {
		return
	}
	s.inner.End()
}

func (s otelSpan) RecordError(err error) {
	if s.inner == nil || err == nil {
		return
	}
	s.inner.RecordError(err)
	s.inner.SetStatus(codes.Error, err.Error())
}
