package entity

import (
	"time"

	"authcore/internal/errors"

	"github.com/google/uuid"
)

// Errors returned by RefreshToken operations.
var (
	// ErrInvalidRefreshToken is returned when a RefreshToken cannot be constructed.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	// ErrTokenAlreadyRevoked is returned when revoking a token that is already revoked.
	ErrTokenAlreadyRevoked = errors.New("refresh token already revoked")
)

// TokenStatus is the lifecycle state of a RefreshToken at a given instant.
type TokenStatus int

const (
	// TokenStatusActive means the token is neither revoked nor past its expiry.
	TokenStatusActive TokenStatus = iota + 1
	// TokenStatusRevoked is terminal and set explicitly by Revoke.
	TokenStatusRevoked
	// TokenStatusExpired is terminal and derived from the wall clock; it is never stored.
	TokenStatusExpired
)

// String returns the name of the status.
func (s TokenStatus) String() string {
	switch s {
	case TokenStatusActive:
		return "active"
	case TokenStatusRevoked:
		return "revoked"
	case TokenStatusExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// RefreshToken is one renewal credential issued to a User. Only the digest of the
// secret is kept. ExpiresAt is fixed at issuance and revocation is monotonic.
type RefreshToken struct {
	id            uuid.UUID
	userID        uuid.UUID
	tokenDigest   string
	createdAt     time.Time
	expiresAt     time.Time
	revokedAt     *time.Time
	isRevoked     bool
	rotatedFromID *uuid.UUID
}

// RefreshTokenState is the flat representation of a RefreshToken used by persistence adapters.
type RefreshTokenState struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	TokenDigest   string
	CreatedAt     time.Time
	ExpiresAt     time.Time
	RevokedAt     *time.Time
	IsRevoked     bool
	RotatedFromID *uuid.UUID
}

// IssueRefreshToken creates a new active token for userID valid for ttl from issuedAt.
// rotatedFrom is the token this one replaces, or nil for a fresh login.
func IssueRefreshToken(userID uuid.UUID, tokenDigest string, issuedAt time.Time, ttl time.Duration, rotatedFrom *uuid.UUID) (*RefreshToken, error) {
	if userID == uuid.Nil {
		return nil, errors.Wrap(ErrInvalidRefreshToken, "user id is required")
	}
	if tokenDigest == "" {
		return nil, errors.Wrap(ErrInvalidRefreshToken, "token digest is required")
	}
	if ttl <= 0 {
		return nil, errors.Wrapf(ErrInvalidRefreshToken, "validity window must be positive, got %s", ttl)
	}

	var parent *uuid.UUID
	if rotatedFrom != nil {
		p := *rotatedFrom
		parent = &p
	}

	return &RefreshToken{
		id:            uuid.New(),
		userID:        userID,
		tokenDigest:   tokenDigest,
		createdAt:     issuedAt,
		expiresAt:     issuedAt.Add(ttl),
		rotatedFromID: parent,
	}, nil
}

// RestoreRefreshToken rebuilds a RefreshToken from stored state.
// The revoked flag and timestamp must agree.
func RestoreRefreshToken(state RefreshTokenState) (*RefreshToken, error) {
	if state.ID == uuid.Nil || state.UserID == uuid.Nil {
		return nil, errors.Wrap(ErrInvalidRefreshToken, "id and user id are required")
	}
	if state.TokenDigest == "" {
		return nil, errors.Wrap(ErrInvalidRefreshToken, "token digest is required")
	}
	if state.IsRevoked != (state.RevokedAt != nil) {
		return nil, errors.Wrapf(ErrInvalidRefreshToken, "token %s has inconsistent revocation state", state.ID)
	}

	token := &RefreshToken{
		id:          state.ID,
		userID:      state.UserID,
		tokenDigest: state.TokenDigest,
		createdAt:   state.CreatedAt,
		expiresAt:   state.ExpiresAt,
		revokedAt:   copyTime(state.RevokedAt),
		isRevoked:   state.IsRevoked,
	}
	if state.RotatedFromID != nil {
		p := *state.RotatedFromID
		token.rotatedFromID = &p
	}

	return token, nil
}

// State returns a snapshot of the token for persistence.
func (t *RefreshToken) State() RefreshTokenState {
	state := RefreshTokenState{
		ID:          t.id,
		UserID:      t.userID,
		TokenDigest: t.tokenDigest,
		CreatedAt:   t.createdAt,
		ExpiresAt:   t.expiresAt,
		RevokedAt:   copyTime(t.revokedAt),
		IsRevoked:   t.isRevoked,
	}
	if t.rotatedFromID != nil {
		p := *t.rotatedFromID
		state.RotatedFromID = &p
	}

	return state
}

// ID returns the token record identifier.
func (t *RefreshToken) ID() uuid.UUID { return t.id }

// UserID returns the owning user.
func (t *RefreshToken) UserID() uuid.UUID { return t.userID }

// TokenDigest returns the stored digest of the secret.
func (t *RefreshToken) TokenDigest() string { return t.tokenDigest }

// CreatedAt returns the issuance time.
func (t *RefreshToken) CreatedAt() time.Time { return t.createdAt }

// ExpiresAt returns the fixed expiry.
func (t *RefreshToken) ExpiresAt() time.Time { return t.expiresAt }

// RevokedAt returns the revocation time, or nil.
func (t *RefreshToken) RevokedAt() *time.Time { return copyTime(t.revokedAt) }

// RotatedFromID returns the token this one replaced during a refresh, or nil.
func (t *RefreshToken) RotatedFromID() *uuid.UUID {
	if t.rotatedFromID == nil {
		return nil
	}
	p := *t.rotatedFromID

	return &p
}

// IsRevoked reports whether the token was explicitly revoked.
func (t *RefreshToken) IsRevoked() bool { return t.isRevoked }

// IsExpired reports whether now is at or past the expiry.
func (t *RefreshToken) IsExpired(now time.Time) bool {
	return !now.Before(t.expiresAt)
}

// IsActive reports whether the token can still be exchanged at now.
func (t *RefreshToken) IsActive(now time.Time) bool {
	return !t.isRevoked && !t.IsExpired(now)
}

// Status returns the lifecycle state at now. Revocation wins over expiry.
func (t *RefreshToken) Status(now time.Time) TokenStatus {
	switch {
	case t.isRevoked:
		return TokenStatusRevoked
	case t.IsExpired(now):
		return TokenStatusExpired
	default:
		return TokenStatusActive
	}
}

// Revoke moves the token to the terminal Revoked state.
// Revoking twice is an invalid operation and returns ErrTokenAlreadyRevoked.
func (t *RefreshToken) Revoke(now time.Time) error {
	if t.isRevoked {
		return errors.Wrapf(ErrTokenAlreadyRevoked, "token %s", t.id)
	}

	at := now
	t.revokedAt = &at
	t.isRevoked = true

	return nil
}
