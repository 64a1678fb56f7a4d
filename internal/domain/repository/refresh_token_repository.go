package repository

import (
	"context"
	"time"

	"authcore/internal/domain/entity"
	"authcore/internal/errors"

	"github.com/google/uuid"
)

// Domain-specific errors for refresh token persistence.
var (
	// ErrRefreshTokenNotFound is returned when a refresh token is not found.
	ErrRefreshTokenNotFound = errors.New("refresh token not found")
	// ErrDuplicateTokenDigest is returned when a token digest is already stored.
	ErrDuplicateTokenDigest = errors.New("refresh token digest already exists")
	// ErrRefreshTokenAlreadyRevoked is returned when another writer revoked the row first.
	ErrRefreshTokenAlreadyRevoked = errors.New("refresh token already revoked")
)

// RefreshTokenRepository defines the persistence contract for refresh token records.
// Records are never deleted by this contract; revoked rows are kept as an audit trail.
type RefreshTokenRepository interface {
	// FindByID retrieves a refresh token record by its unique ID.
	FindByID(ctx context.Context, id uuid.UUID) (*entity.RefreshToken, error)

	// FindByDigest retrieves a refresh token record by its digest.
	FindByDigest(ctx context.Context, tokenDigest string) (*entity.RefreshToken, error)

	// FindActiveByUserID returns the user's tokens that are neither revoked nor expired at now,
	// newest first.
	FindActiveByUserID(ctx context.Context, userID uuid.UUID, now time.Time) ([]*entity.RefreshToken, error)

	// Create persists a newly issued token. A digest collision yields ErrDuplicateTokenDigest.
	Create(ctx context.Context, token *entity.RefreshToken) error

	// Update writes the in-memory revocation state of the token. Writing the state that is
	// already stored is a no-op; revoking a row that someone else revoked first yields
	// ErrRefreshTokenAlreadyRevoked.
	Update(ctx context.Context, token *entity.RefreshToken) error

	// RevokeIfActive revokes the row at the given instant only if it is not revoked yet.
	// Any earlier revocation, including one at the same instant, yields
	// ErrRefreshTokenAlreadyRevoked, so exactly one caller wins a concurrent revoke.
	RevokeIfActive(ctx context.Context, id uuid.UUID, at time.Time) error

	// RevokeAllActiveByUserID revokes every token of the user that is not yet revoked and
	// returns how many rows changed. Rows already revoked are skipped.
	RevokeAllActiveByUserID(ctx context.Context, userID uuid.UUID, at time.Time) (int, error)
}
