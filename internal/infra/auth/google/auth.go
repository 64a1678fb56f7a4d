package google

import (
	"context"
	"log/slog"
	"slices"

	"authcore/config"
	"authcore/internal/domain/entity"
	"authcore/internal/domain/service"
	"authcore/internal/errors"

	"google.golang.org/api/idtoken"
)

var validIssuers = []string{"https://accounts.google.com", "accounts.google.com"}

// payloadValidator checks signature, expiry and audience of a Google ID token.
type payloadValidator func(ctx context.Context, idToken, audience string) (*idtoken.Payload, error)

// Verifier implements service.IdentityVerifier for Google-issued ID tokens.
type Verifier struct {
	clientIDs []string
	validate  payloadValidator
	logger    *slog.Logger
}

// NewVerifier creates a verifier accepting tokens issued to any configured client id.
func NewVerifier(cfg *config.Config, logger *slog.Logger) (*Verifier, error) {
	if cfg.Identity == nil || !cfg.Identity.GoogleEnabled() {
		return nil, errors.New("google verifier requires at least one client id")
	}

	return &Verifier{
		clientIDs: cfg.Identity.Google.ClientIDs,
		validate:  idtoken.Validate,
		logger:    logger,
	}, nil
}

// Verify implements service.IdentityVerifier interface
func (v *Verifier) Verify(ctx context.Context, assertion string) (*service.VerifiedIdentity, error) {
	// The audience is read unverified only to pick the client id to validate against.
	unverified, err := idtoken.ParsePayload(assertion)
	if err != nil {
		return nil, errors.Wrap(service.ErrAssertionInvalid, err.Error())
	}
	if !slices.Contains(v.clientIDs, unverified.Audience) {
		return nil, errors.Wrapf(service.ErrAssertionInvalid, "audience %q is not an accepted client id", unverified.Audience)
	}

	payload, err := v.validate(ctx, assertion, unverified.Audience)
	if err != nil {
		return nil, errors.Wrap(service.ErrAssertionInvalid, err.Error())
	}

	identity, err := verifyTokenClaims(payload)
	if err != nil {
		return nil, err
	}

	v.logger.DebugContext(ctx, "Google ID token verified",
		slog.String("subject", identity.Subject),
		slog.String("audience", payload.Audience))

	return identity, nil
}

// Provider returns the provider type
func (v *Verifier) Provider() entity.ProviderType {
	return entity.ProviderTypeGoogle
}

// verifyTokenClaims checks the claims idtoken.Validate leaves to the caller.
func verifyTokenClaims(payload *idtoken.Payload) (*service.VerifiedIdentity, error) {
	if !slices.Contains(validIssuers, payload.Issuer) {
		return nil, errors.Wrapf(service.ErrAssertionInvalid, "invalid issuer: %s", payload.Issuer)
	}
	if payload.Subject == "" {
		return nil, errors.Wrap(service.ErrAssertionInvalid, "missing subject")
	}

	email, _ := payload.Claims["email"].(string)
	emailVerified, _ := payload.Claims["email_verified"].(bool)
	name, _ := payload.Claims["name"].(string)

	if !emailVerified {
		return nil, errors.Wrap(service.ErrAssertionInvalid, "email not verified")
	}

	return &service.VerifiedIdentity{
		Subject:       payload.Subject,
		Email:         email,
		Name:          name,
		EmailVerified: emailVerified,
		Provider:      entity.ProviderTypeGoogle,
	}, nil
}
