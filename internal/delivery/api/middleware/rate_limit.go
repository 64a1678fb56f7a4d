package middleware

import (
	"authcore/config"
	domainerrors "authcore/internal/domain/errors"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

// NewRateLimiter throttles requests per client IP with a token bucket.
// It returns a pass-through middleware when rate limiting is disabled.
func NewRateLimiter(cfg config.RateLimitConfig) echo.MiddlewareFunc {
	if !cfg.Enabled {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}

	store := echomiddleware.NewRateLimiterMemoryStoreWithConfig(echomiddleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(cfg.RequestsPerSecond),
		Burst:     cfg.Burst,
		ExpiresIn: cfg.ExpiresIn,
	})

	return echomiddleware.RateLimiterWithConfig(echomiddleware.RateLimiterConfig{
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(_ echo.Context, err error) error {
			return domainerrors.ErrInternalError.WrapMessage(err.Error())
		},
		DenyHandler: func(_ echo.Context, identifier string, _ error) error {
			return domainerrors.ErrRateLimited.WrapMessage("client " + identifier)
		},
	})
}
