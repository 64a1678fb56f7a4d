package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"authcore/config"
	deliverycontext "authcore/internal/delivery/context"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, debug bool, handler echo.HandlerFunc) (*echo.Echo, *bytes.Buffer) {
	t.Helper()

	buf := &bytes.Buffer{}
	logger := slog.New(slog.NewJSONHandler(buf, nil))

	cfg := &config.Config{}
	cfg.Env.Debug = debug

	e := echo.New()
	e.Use(NewRequestIDMiddleware(logger).Process)
	e.Use(NewLoggerMiddleware(logger, cfg).Handle)
	e.GET("/ping", handler)

	return e, buf
}

func serve(e *echo.Echo, requestID string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/ping?refresh_token=secret", nil)
	if requestID != "" {
		req.Header.Set(deliverycontext.HeaderXRequestID, requestID)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	return rec
}

func TestRequestID(t *testing.T) {
	var seen string
	e, _ := newTestServer(t, false, func(c echo.Context) error {
		seen = deliverycontext.GetRequestID(c)

		return c.NoContent(http.StatusNoContent)
	})

	tests := []struct {
		name   string
		header string
		reused bool
	}{
		{name: "caller id reused", header: "abc-123", reused: true},
		{name: "missing id generated", header: ""},
		{name: "id with control characters replaced", header: "abc\nforged=1"},
		{name: "overlong id replaced", header: strings.Repeat("a", maxRequestIDLength+1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(e, tt.header)

			assert.Equal(t, seen, rec.Header().Get(deliverycontext.HeaderXRequestID))
			if tt.reused {
				assert.Equal(t, tt.header, seen)
			} else {
				assert.NotEqual(t, tt.header, seen)
				assert.Len(t, seen, 36)
			}
		})
	}
}

func TestLogger_LogsRenderedStatusWithoutQuery(t *testing.T) {
	e, buf := newTestServer(t, true, func(echo.Context) error {
		return echo.NewHTTPError(http.StatusTeapot, "nope")
	})

	rec := serve(e, "req-7")
	require.Equal(t, http.StatusTeapot, rec.Code)

	out := buf.String()
	assert.Contains(t, out, `"status":418`)
	assert.Contains(t, out, `"request_id":"req-7"`)
	assert.Contains(t, out, `"route":"/ping"`)
	assert.NotContains(t, out, "secret")
}

func TestLogger_QuietOutsideDebug(t *testing.T) {
	e, buf := newTestServer(t, false, func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	serve(e, "")
	assert.Empty(t, buf.String())

	e, buf = newTestServer(t, false, func(echo.Context) error {
		return echo.NewHTTPError(http.StatusBadGateway)
	})
	serve(e, "")
	assert.Contains(t, buf.String(), `"status":502`)
}
