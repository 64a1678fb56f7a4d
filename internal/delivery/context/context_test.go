package context

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEchoContext() echo.Context {
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	return echo.New().NewContext(req, httptest.NewRecorder())
}

func TestRequestID(t *testing.T) {
	c := newEchoContext()

	generated := GetRequestID(c)
	assert.Len(t, generated, 36)

	SetRequestID(c, "req-1")
	assert.Equal(t, "req-1", GetRequestID(c))
}

func TestGetLoggerOrDefault(t *testing.T) {
	fallback := slog.New(slog.DiscardHandler)
	assert.Same(t, fallback, GetLoggerOrDefault(context.Background(), fallback))

	scoped := slog.New(slog.DiscardHandler)
	assert.Same(t, scoped, GetLoggerOrDefault(WithLogger(context.Background(), scoped), fallback))
}

func TestPrincipal(t *testing.T) {
	c := newEchoContext()

	_, ok := GetPrincipal(c)
	assert.False(t, ok)

	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, nil))
	c.SetRequest(c.Request().WithContext(WithLogger(c.Request().Context(), base)))

	userID := uuid.New()
	SetPrincipal(c, Principal{UserID: userID, Email: "a@x.com"}, base)

	principal, ok := GetPrincipal(c)
	require.True(t, ok)
	assert.Equal(t, userID, principal.UserID)
	assert.Equal(t, "a@x.com", principal.Email)

	GetLogger(c.Request().Context()).Info("tagged")
	assert.Contains(t, buf.String(), `"user_id":"`+userID.String()+`"`)
}

func TestPrincipal_NilUserRejected(t *testing.T) {
	c := newEchoContext()
	SetPrincipal(c, Principal{}, slog.New(slog.DiscardHandler))

	_, ok := GetPrincipal(c)
	assert.False(t, ok)
}
