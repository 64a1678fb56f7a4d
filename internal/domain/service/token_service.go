package service

import (
	"time"

	"authcore/internal/errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrEmptySecret is returned when a digest is requested for an empty secret.
var ErrEmptySecret = errors.New("secret must not be empty")

// AccessClaims defines the claims carried by an access token.
type AccessClaims struct {
	UserID uuid.UUID `json:"-"`
	Email  string    `json:"email"`
	jwt.RegisteredClaims
}

// TokenService produces session-token material. Access tokens are self-contained and signed;
// refresh secrets are opaque random strings that are only ever stored as a digest.
type TokenService interface {
	// GenerateAccessToken signs a short-lived token for the user with a fresh token id.
	GenerateAccessToken(userID uuid.UUID, email string) (string, error)

	// ParseAccessToken validates signature, issuer, audience and expiry and returns the claims.
	ParseAccessToken(tokenString string) (*AccessClaims, error)

	// GenerateRefreshSecret returns a new secret drawn from a CSPRNG, encoded for transport.
	GenerateRefreshSecret() (string, error)

	// Digest returns the deterministic one-way digest of a secret.
	Digest(secret string) (string, error)

	// AccessTokenTTL returns the lifetime of access tokens.
	AccessTokenTTL() time.Duration

	// RefreshTokenTTL returns the validity window of refresh tokens.
	RefreshTokenTTL() time.Duration
}
