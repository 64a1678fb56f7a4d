package middleware

import (
	"log/slog"
	"strings"

	deliverycontext "authcore/internal/delivery/context"
	domainerrors "authcore/internal/domain/errors"
	"authcore/internal/domain/service"

	"github.com/labstack/echo/v4"
)

// AuthMiddleware validates bearer access tokens.
type AuthMiddleware struct {
	tokenSvc service.TokenService
	logger   *slog.Logger
}

// NewAuthMiddleware is the constructor for AuthMiddleware.
func NewAuthMiddleware(tokenSvc service.TokenService, logger *slog.Logger) *AuthMiddleware {
	return &AuthMiddleware{tokenSvc: tokenSvc, logger: logger}
}

// Authenticate rejects requests without a valid access token and exposes its subject to handlers.
func (m *AuthMiddleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
		tokenString, found := strings.CutPrefix(authHeader, "Bearer ")
		if !found || tokenString == "" {
			return domainerrors.ErrUnauthorized.WrapMessage("bearer token missing")
		}

		claims, err := m.tokenSvc.ParseAccessToken(tokenString)
		if err != nil {
			deliverycontext.GetLoggerOrDefault(c.Request().Context(), m.logger).
				Debug("Access token rejected", slog.Any("error", err))

			return domainerrors.ErrUnauthorized.WrapMessage("invalid access token")
		}

		deliverycontext.SetPrincipal(c, deliverycontext.Principal{
			UserID: claims.UserID,
			Email:  claims.Email,
		}, m.logger)

		return next(c)
	}
}
