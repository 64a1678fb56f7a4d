// Package handler contains the HTTP handlers for the application.
package handler

import (
	"log/slog"
	"net/http"
	"time"

	"authcore/internal/delivery/api/response"
	"authcore/internal/delivery/api/validator"
	deliverycontext "authcore/internal/delivery/context"
	domainerrors "authcore/internal/domain/errors"
	"authcore/internal/errors"
	"authcore/internal/usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

// AuthHandlerParams holds dependencies for AuthHandler, injected by Fx.
type AuthHandlerParams struct {
	fx.In

	AuthUC usecase.AuthUsecase
	Logger *slog.Logger
}

// AuthHandler exposes the session lifecycle over HTTP.
type AuthHandler struct {
	authUC usecase.AuthUsecase
	logger *slog.Logger
}

// NewAuthHandler is the constructor for AuthHandler
func NewAuthHandler(params AuthHandlerParams) *AuthHandler {
	return &AuthHandler{
		authUC: params.AuthUC,
		logger: params.Logger,
	}
}

// LoginRequest represents the request body for logging in with an identity assertion
type LoginRequest struct {
	IDToken  string `json:"id_token" validate:"required"`
	Provider string `json:"provider" validate:"omitempty,oneof=google firebase"`
}

// RefreshRequest represents the request body for refreshing or revoking a session
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// SessionResponse is the token bundle returned by login and refresh.
type SessionResponse struct {
	AccessToken  string     `json:"access_token"`
	RefreshToken string     `json:"refresh_token"`
	ExpiresIn    int        `json:"expires_in"`
	TokenType    string     `json:"token_type"`
	UserID       *uuid.UUID `json:"user_id,omitempty"`
	IsNewUser    *bool      `json:"is_new_user,omitempty"`
	Email        string     `json:"email,omitempty"`
}

// ActiveSessionResponse describes one refreshable session of the caller.
type ActiveSessionResponse struct {
	ID            uuid.UUID  `json:"id"`
	CreatedAt     time.Time  `json:"created_at"`
	ExpiresAt     time.Time  `json:"expires_at"`
	RotatedFromID *uuid.UUID `json:"rotated_from_id,omitempty"`
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, domainerrors.ErrValidationFailed.ErrorCode(), "Invalid login input", nil)
	}
	if err := c.Validate(&req); err != nil {
		return validationFailed(c, err)
	}

	output, err := h.authUC.LoginWithExternalAssertion(c.Request().Context(), &usecase.LoginInput{
		IDToken:  req.IDToken,
		Provider: req.Provider,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Credentials(c, SessionResponse{
		AccessToken:  output.AccessToken,
		RefreshToken: output.RefreshToken,
		ExpiresIn:    output.ExpiresIn,
		TokenType:    output.TokenType,
		UserID:       &output.UserID,
		IsNewUser:    &output.IsNewUser,
		Email:        output.Email,
	})
}

// Refresh handles POST /auth/refresh.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req RefreshRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, domainerrors.ErrValidationFailed.ErrorCode(), "Invalid refresh input", nil)
	}
	if err := c.Validate(&req); err != nil {
		return validationFailed(c, err)
	}

	output, err := h.authUC.RefreshSession(c.Request().Context(), &usecase.RefreshInput{RefreshToken: req.RefreshToken})
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Credentials(c, SessionResponse{
		AccessToken:  output.AccessToken,
		RefreshToken: output.RefreshToken,
		ExpiresIn:    output.ExpiresIn,
		TokenType:    output.TokenType,
	})
}

// Logout handles POST /auth/logout. It succeeds for unknown or already revoked tokens.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req RefreshRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, domainerrors.ErrValidationFailed.ErrorCode(), "Invalid logout input", nil)
	}
	if err := c.Validate(&req); err != nil {
		return validationFailed(c, err)
	}

	if err := h.authUC.RevokeSession(c.Request().Context(), &usecase.RevokeInput{RefreshToken: req.RefreshToken}); err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, map[string]string{"message": "Successfully logged out"})
}

// LogoutAll handles POST /auth/logout-all for the authenticated user.
func (h *AuthHandler) LogoutAll(c echo.Context) error {
	principal, ok := deliverycontext.GetPrincipal(c)
	if !ok {
		return errors.WithStack(domainerrors.ErrUnauthorized)
	}

	count, err := h.authUC.RevokeAllSessions(c.Request().Context(), principal.UserID)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, map[string]int{"revoked": count})
}

// ListSessions handles GET /auth/sessions for the authenticated user.
func (h *AuthHandler) ListSessions(c echo.Context) error {
	principal, ok := deliverycontext.GetPrincipal(c)
	if !ok {
		return errors.WithStack(domainerrors.ErrUnauthorized)
	}

	sessions, err := h.authUC.ListActiveSessions(c.Request().Context(), principal.UserID)
	if err != nil {
		return errors.WithStack(err)
	}

	resp := make([]ActiveSessionResponse, 0, len(sessions))
	for _, session := range sessions {
		resp = append(resp, ActiveSessionResponse{
			ID:            session.ID(),
			CreatedAt:     session.CreatedAt(),
			ExpiresAt:     session.ExpiresAt(),
			RotatedFromID: session.RotatedFromID(),
		})
	}

	return response.Success(c, http.StatusOK, resp)
}

// Me handles GET /auth/me and echoes the identity carried by the access token.
func (h *AuthHandler) Me(c echo.Context) error {
	principal, ok := deliverycontext.GetPrincipal(c)
	if !ok {
		return errors.WithStack(domainerrors.ErrUnauthorized)
	}

	return response.Success(c, http.StatusOK, map[string]string{
		"user_id": principal.UserID.String(),
		"email":   principal.Email,
	})
}

func validationFailed(c echo.Context, err error) error {
	var validationErr *validator.ValidationError
	if errors.As(err, &validationErr) {
		return response.BadRequest(c, domainerrors.ErrValidationFailed.ErrorCode(), "Request validation failed", validationErr.Fields)
	}

	return errors.WithStack(err)
}

// HealthCheck is a simple handler to check if the service is up.
func HealthCheck(c echo.Context) error {
	return response.Success(c, http.StatusOK, map[string]string{"status": "ok"})
}
