// Package ctxutil carries request scoped values (trace id) across the
// HTTP layer, the work queue and background relays.
package ctxutil

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ctxKey string

const (
	// TraceIDKey is the field name used for trace ids in logs and job metadata.
	TraceIDKey = "trace_id"
	// HeaderTraceID is the request/response header carrying the trace id.
	HeaderTraceID = "X-Trace-ID"

	traceIDKey ctxKey = TraceIDKey
)

// GetTraceID gets trace id from context.Context or gin.Context.
func GetTraceID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if c, ok := ctx.(*gin.Context); ok {
		if v, exists := c.Get(TraceIDKey); exists {
			if traceID, ok := v.(string); ok {
				return traceID
			}
		}
		if c.Request == nil {
			return ""
		}
		ctx = c.Request.Context()
	}
	if traceID, ok := ctx.Value(traceIDKey).(string); ok {
		return traceID
	}
	return ""
}

// SetTraceID sets trace id to context.Context.
func SetTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

// EnsureTraceID ensures that a trace ID exists in the context.
func EnsureTraceID(ctx context.Context) (context.Context, string) {
	if traceID := GetTraceID(ctx); traceID != "" {
		return ctx, traceID
	}
	traceID := uuid.NewString()
	return SetTraceID(ctx, traceID), traceID
}

// TraceMiddleware assigns a trace id to every request, honouring an
// incoming X-Trace-ID header.
func TraceMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		traceID := c.GetHeader(HeaderTraceID)
		if traceID != "" {
			ctx = SetTraceID(ctx, traceID)
		} else {
			ctx, traceID = EnsureTraceID(ctx)
		}
		c.Set(TraceIDKey, traceID)
		c.Request = c.Request.WithContext(ctx)
		c.Writer.Header().Set(HeaderTraceID, traceID)
		c.Next()
	}
}
