// Package ctxutil carries request-scoped values (trace ID, user ID) through
// context.Context, bridging gin handlers and plain context consumers.
package ctxutil

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type contextKey string

const (
	// TraceIDKey is the logging field name for trace IDs.
	TraceIDKey = "trace_id"

	traceIDCtxKey contextKey = "trace_id"
	userIDCtxKey  contextKey = "user_id"
)

// FromGinContext extracts the context.Context from *gin.Context.
func FromGinContext(c *gin.Context) context.Context {
	return c.Request.Context()
}

// SetUserID sets the user id on the context.
func SetUserID(ctx context.Context, uid string) context.Context {
	return context.WithValue(ctx, userIDCtxKey, uid)
}

// GetUserID gets the user id from the context.
func GetUserID(ctx context.Context) string {
	if uid, ok := ctx.Value(userIDCtxKey).(string); ok {
		return uid
	}
	return ""
}

// SetTraceID sets the trace id on the context.
func SetTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDCtxKey, traceID)
}

// GetTraceID gets the trace id from the context.
func GetTraceID(ctx context.Context) string {
	if id, ok := ctx.Value(traceIDCtxKey).(string); ok {
		return id
	}
	return ""
}

// EnsureTraceID returns a context that carries a trace id, generating one
// when absent.
func EnsureTraceID(ctx context.Context) (context.Context, string) {
	if id := GetTraceID(ctx); id != "" {
		return ctx, id
	}
	id := uuid.NewString()
	return SetTraceID(ctx, id), id
}
