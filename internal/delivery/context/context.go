// Package context carries request-scoped values between echo handlers and the usecase layer.
package context

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type contextKey string

const (
	keyRequestID contextKey = "request_id"
	keyLogger    contextKey = "logger"
	keyPrincipal contextKey = "principal"

	// HeaderXRequestID is the header a caller may use to supply its own request id.
	HeaderXRequestID = "X-Request-Id"
)

// Principal is the account an access token was issued to.
type Principal struct {
	UserID uuid.UUID
	Email  string
}

// GetRequestID returns the id assigned to the request, or a fresh one when the
// request id middleware did not run.
func GetRequestID(c echo.Context) string {
	if id, ok := c.Get(string(keyRequestID)).(string); ok && id != "" {
		return id
	}

	return uuid.NewString()
}

// SetRequestID records the request id for response rendering.
func SetRequestID(c echo.Context, requestID string) {
	c.Set(string(keyRequestID), requestID)
}

// GetLogger returns the request-scoped logger, or nil.
func GetLogger(ctx context.Context) *slog.Logger {
	logger, _ := ctx.Value(keyLogger).(*slog.Logger)

	return logger
}

// GetLoggerOrDefault returns the request-scoped logger or fallback.
func GetLoggerOrDefault(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if logger := GetLogger(ctx); logger != nil {
		return logger
	}

	return fallback
}

// WithLogger returns a copy of ctx carrying logger.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, keyLogger, logger)
}

// SetPrincipal attaches the authenticated account to the request and tags the
// request logger with its id.
func SetPrincipal(c echo.Context, principal Principal, fallback *slog.Logger) {
	c.Set(string(keyPrincipal), principal)

	ctx := c.Request().Context()
	logger := GetLoggerOrDefault(ctx, fallback).With(slog.String("user_id", principal.UserID.String()))
	c.SetRequest(c.Request().WithContext(WithLogger(ctx, logger)))
}

// GetPrincipal returns the authenticated account, if any.
func GetPrincipal(c echo.Context) (Principal, bool) {
	principal, ok := c.Get(string(keyPrincipal)).(Principal)

	return principal, ok && principal.UserID != uuid.Nil
}
