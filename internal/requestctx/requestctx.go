package requestctx

import (
	"context"

	"shiftrota/internal/domain/auth"
)

type ctxKey string

const (
	requestIDKey ctxKey = "request_id"
	actorKey     ctxKey = "actor"
)

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

func GetRequestID(ctx context.Context) string {
	if value, ok := ctx.Value(requestIDKey).(string); ok {
		return value
	}
	return ""
}

func WithActor(ctx context.Context, actor auth.Context) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

// GetActor returns the caller's authorization context. Anonymous callers get
// the zero value.
func GetActor(ctx context.Context) auth.Context {
	if value, ok := ctx.Value(actorKey).(auth.Context); ok {
		return value
	}
	return auth.Context{}
}
