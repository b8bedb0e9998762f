package http

import (
	"context"
	"log/slog"

	"github.com/example/timeslot-scheduler/internal/application"
	"github.com/example/timeslot-scheduler/internal/logging"
)

type contextKey string

const (
	principalContextKey contextKey = "principal"
	slotIDContextKey    contextKey = "slot_id"
)

// ContextWithPrincipal returns a derived context containing the authenticated principal.
func ContextWithPrincipal(ctx context.Context, principal application.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, principal)
}

// PrincipalFromContext extracts the authenticated principal from context if available.
func PrincipalFromContext(ctx context.Context) (application.Principal, bool) {
	principal, ok := ctx.Value(principalContextKey).(application.Principal)
	return principal, ok
}

// ContextWithSlotID injects the slot identifier resolved from the request path.
func ContextWithSlotID(ctx context.Context, slotID string) context.Context {
	return context.WithValue(ctx, slotIDContextKey, slotID)
}

// SlotIDFromContext extracts a slot identifier previously associated with the context.
func SlotIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(slotIDContextKey).(string)
	return id, ok
}

// ContextWithLogger attaches a request scoped logger to the context.
func ContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return logging.ContextWithLogger(ctx, logger)
}

// LoggerFromContext extracts a logger previously attached to the context.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx)
}
