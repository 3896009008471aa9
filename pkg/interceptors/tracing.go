// Package interceptors holds the Connect interceptors wrapped around every
// dashboard procedure.
package interceptors

import (
	"context"
	"strings"

	"connectrpc.com/connect"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracingInterceptor opens a server span per RPC.
type TracingInterceptor struct {
	tracer trace.Tracer
}

// NewTracingInterceptor uses the global provider when tracer is nil.
func NewTracingInterceptor(tracer trace.Tracer) *TracingInterceptor {
	if tracer == nil {
		tracer = otel.Tracer("sales-dashboard/interceptors")
	}
	return &TracingInterceptor{tracer: tracer}
}

func (i *TracingInterceptor) WrapUnary(next connect.UnaryFunc) connect.UnaryFunc {
	return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		ctx, span := i.start(ctx, req.Spec(), req.Peer())
		defer span.End()

		resp, err := next(ctx, req)
		finish(span, err)
		return resp, err
	}
}

// WrapStreamingClient is a pass-through; the server never dials out over Connect.
func (i *TracingInterceptor) WrapStreamingClient(next connect.StreamingClientFunc) connect.StreamingClientFunc {
	return next
}

func (i *TracingInterceptor) WrapStreamingHandler(next connect.StreamingHandlerFunc) connect.StreamingHandlerFunc {
	return func(ctx context.Context, conn connect.StreamingHandlerConn) error {
		ctx, span := i.start(ctx, conn.Spec(), conn.Peer())
		defer span.End()

		err := next(ctx, conn)
		finish(span, err)
		return err
	}
}

func (i *TracingInterceptor) start(ctx context.Context, spec connect.Spec, peer connect.Peer) (context.Context, trace.Span) {
	service, method := splitProcedure(spec.Procedure)

	attrs := []attribute.KeyValue{
		attribute.String("rpc.system", "connect_rpc"),
		attribute.String("rpc.service", service),
		attribute.String("rpc.method", method),
	}
	if peer.Addr != "" {
		attrs = append(attrs, attribute.String("net.peer.addr", peer.Addr))
	}
	if id, ok := RequestIDFromContext(ctx); ok {
		attrs = append(attrs, attribute.String("rpc.request_id", id))
	}

	return i.tracer.Start(ctx, spec.Procedure,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(attrs...),
	)
}

func finish(span trace.Span, err error) {
	if err == nil {
		span.SetStatus(codes.Ok, "")
		return
	}
	span.SetAttributes(attribute.String("rpc.connect_rpc.error_code", connect.CodeOf(err).String()))
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// splitProcedure turns "/pkg.Service/Method" into ("pkg.Service", "Method").
func splitProcedure(procedure string) (service, method string) {
	trimmed := strings.TrimPrefix(procedure, "/")
	service, method, ok := strings.Cut(trimmed, "/")
	if !ok {
		return trimmed, ""
	}
	return service, method
}
