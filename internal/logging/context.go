package logging

import (
	"context"
	"log/slog"
)

type ctxKey int

const (
	requestIDKey ctxKey = iota
	missionKey
)

// WithRequestID returns a context whose log records carry request_id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestID returns the request id stored in ctx, if any.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// WithMission returns a context whose log records carry the mission name.
func WithMission(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, missionKey, name)
}

// Mission returns the mission name stored in ctx, if any.
func Mission(ctx context.Context) string {
	name, _ := ctx.Value(missionKey).(string)
	return name
}

// ContextAttrs is the ContextProvider used by SlogManager.
func ContextAttrs(ctx context.Context) []slog.Attr {
	var attrs []slog.Attr
	if id := RequestID(ctx); id != "" {
		attrs = append(attrs, slog.String("request_id", id))
	}
	if name := Mission(ctx); name != "" {
		attrs = append(attrs, slog.String("mission", name))
	}
	return attrs
}
