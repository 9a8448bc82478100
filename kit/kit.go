// Package kit holds the transport-agnostic endpoint plumbing fiche exposes
// its engine through: a request/response Endpoint shape, middleware
// chaining, and the MCP registration glue.
package kit

import (
	"context"
	"log/slog"
	"time"
)

// Endpoint is the transport-agnostic request handler shape.
type Endpoint func(ctx context.Context, request any) (any, error)

// Middleware wraps an Endpoint with cross-cutting behaviour.
type Middleware func(Endpoint) Endpoint

// Chain composes middlewares so the first argument is the outermost.
func Chain(mws ...Middleware) Middleware {
	return func(next Endpoint) Endpoint {
		for i := len(mws) - 1; i >= 0; i-- {
			next = mws[i](next)
		}
		return next
	}
}

// Logging returns a middleware that logs each call's outcome and duration.
func Logging(name string, logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next Endpoint) Endpoint {
		return func(ctx context.Context, req any) (any, error) {
			start := time.Now()
			resp, err := next(ctx, req)
			if err != nil {
				logger.Warn("kit: endpoint failed", "endpoint", name, "error", err, "duration", time.Since(start))
				return resp, err
			}
			logger.Debug("kit: endpoint ok", "endpoint", name, "duration", time.Since(start))
			return resp, nil
		}
	}
}
