// Package auth provides concrete implementations for authentication-related domain services.
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"time"

	"authcore/config"
	domainerrors "authcore/internal/domain/errors"
	"authcore/internal/domain/service"
	"authcore/internal/errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// refreshSecretBytes is the amount of CSPRNG output in one refresh secret.
const refreshSecretBytes = 32

// jwtService is a concrete implementation of the TokenService interface using the JWT standard.
type jwtService struct {
	signingKey []byte        // HMAC key for access tokens.
	issuer     string        // "iss" claim written and required.
	audience   string        // "aud" claim written and required.
	accessTTL  time.Duration // Time-to-live for access tokens.
	refreshTTL time.Duration // Validity window for refresh tokens.
	now        func() time.Time
}

// NewJWTService is the constructor for jwtService.
// Missing key, issuer or audience is a configuration error and stops startup.
func NewJWTService(cfg *config.Config) (service.TokenService, error) {
	if cfg.Auth == nil {
		return nil, domainerrors.NewConfigurationError("auth", "must be set")
	}
	access := cfg.Auth.AccessToken
	switch {
	case access.SigningKey == "":
		return nil, domainerrors.NewConfigurationError("auth.accessToken.signingKey", "must be set")
	case access.Issuer == "":
		return nil, domainerrors.NewConfigurationError("auth.accessToken.issuer", "must be set")
	case access.Audience == "":
		return nil, domainerrors.NewConfigurationError("auth.accessToken.audience", "must be set")
	case access.TTL <= 0 || cfg.Auth.RefreshToken.TTL <= 0:
		return nil, domainerrors.NewConfigurationError("auth", "token lifetimes must be positive")
	}

	return &jwtService{
		signingKey: []byte(access.SigningKey),
		issuer:     access.Issuer,
		audience:   access.Audience,
		accessTTL:  access.TTL,
		refreshTTL: cfg.Auth.RefreshToken.TTL,
		now:        time.Now,
	}, nil
}

// GenerateAccessToken creates a signed access token with a fresh jti.
func (s *jwtService) GenerateAccessToken(userID uuid.UUID, email string) (string, error) {
	issuedAt := s.now()
	claims := &service.AccessClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ID:        uuid.NewString(),
			Issuer:    s.issuer,
			Audience:  jwt.ClaimStrings{s.audience},
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(s.accessTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", errors.Wrap(err, "failed to sign access token")
	}

	return signed, nil
}

// ParseAccessToken checks the validity of an access token string.
func (s *jwtService) ParseAccessToken(tokenString string) (*service.AccessClaims, error) {
	claims := &service.AccessClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		// Ensure the signing method is what we expect.
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}

		return s.signingKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse access token")
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, errors.Wrap(err, "access token subject is not a user id")
	}
	claims.UserID = userID

	return claims, nil
}

// GenerateRefreshSecret returns 32 random bytes, base64url encoded without padding.
func (s *jwtService) GenerateRefreshSecret() (string, error) {
	buf := make([]byte, refreshSecretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", errors.Wrap(err, "failed to read random bytes")
	}

	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Digest returns the hex encoded SHA-256 of the secret.
func (s *jwtService) Digest(secret string) (string, error) {
	if secret == "" {
		return "", service.ErrEmptySecret
	}
	sum := sha256.Sum256([]byte(secret))

	return hex.EncodeToString(sum[:]), nil
}

// AccessTokenTTL returns the configured lifetime of access tokens.
func (s *jwtService) AccessTokenTTL() time.Duration {
	return s.accessTTL
}

// RefreshTokenTTL returns the configured duration for refresh tokens.
func (s *jwtService) RefreshTokenTTL() time.Duration {
	return s.refreshTTL
}
