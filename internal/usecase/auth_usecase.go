// Package usecase contains the application-specific business rules.
// It orchestrates the domain layer to perform tasks.
package usecase

import (
	"context"

	"authcore/internal/domain/entity"

	"github.com/google/uuid"
)

// TokenTypeBearer is the token type returned with every session bundle.
const TokenTypeBearer = "Bearer"

// --- Input DTOs ---

// LoginInput defines the data required to log in with a third-party identity assertion.
type LoginInput struct {
	IDToken  string
	Provider string // Optional, the configured default provider is used when empty
}

// RefreshInput carries the refresh secret presented for rotation.
type RefreshInput struct {
	RefreshToken string
}

// RevokeInput carries the refresh secret of the session to end.
type RevokeInput struct {
	RefreshToken string
}

// --- Output DTOs ---

// LoginOutput returns the session bundle after a successful login.
type LoginOutput struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int // Access token lifetime in seconds
	TokenType    string
	UserID       uuid.UUID
	IsNewUser    bool
	Email        string
}

// SessionOutput returns the rotated session bundle after a successful refresh.
type SessionOutput struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int
	TokenType    string
}

// AuthUsecase defines the session lifecycle operations.
// This is the contract that the delivery layer (e.g., API handlers) will depend on.
type AuthUsecase interface {
	// LoginWithExternalAssertion verifies the assertion, registers the account on first sight
	// and issues a new session.
	LoginWithExternalAssertion(ctx context.Context, input *LoginInput) (*LoginOutput, error)

	// RefreshSession exchanges a refresh secret for a new session and revokes the presented one.
	RefreshSession(ctx context.Context, input *RefreshInput) (*SessionOutput, error)

	// RevokeSession ends the session of a refresh secret. Unknown or already revoked secrets succeed.
	RevokeSession(ctx context.Context, input *RevokeInput) error

	// RevokeAllSessions ends every active session of the user and returns how many were revoked.
	RevokeAllSessions(ctx context.Context, userID uuid.UUID) (int, error)

	// ListActiveSessions returns the user's sessions that can still be refreshed.
	ListActiveSessions(ctx context.Context, userID uuid.UUID) ([]*entity.RefreshToken, error)
}
