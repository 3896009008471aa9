package interceptors

import (
	"context"
	"log/slog"
	"time"

	"connectrpc.com/connect"
)

// NewLoggingInterceptor logs one line per RPC. Failures with a server-side
// code are logged at Error, client mistakes at Warn.
func NewLoggingInterceptor(logger *slog.Logger) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			start := time.Now()
			resp, err := next(ctx, req)

			attrs := []any{
				"procedure", req.Spec().Procedure,
				"duration", time.Since(start),
				"peer", req.Peer().Addr,
			}
			if id, ok := RequestIDFromContext(ctx); ok {
				attrs = append(attrs, "request_id", id)
			}

			if err == nil {
				logger.InfoContext(ctx, "RPC completed", attrs...)
				return resp, nil
			}

			code := connect.CodeOf(err)
			attrs = append(attrs, "code", code.String(), "error", err)
			if serverSide(code) {
				logger.ErrorContext(ctx, "RPC failed", attrs...)
			} else {
				logger.WarnContext(ctx, "RPC failed", attrs...)
			}
			return resp, err
		}
	}
}

func serverSide(code connect.Code) bool {
	switch code {
	case connect.CodeInternal, connect.CodeUnknown, connect.CodeDataLoss, connect.CodeUnavailable:
		return true
	}
	return false
}
