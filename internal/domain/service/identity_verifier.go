package service

import (
	"context"

	"authcore/internal/domain/entity"
	"authcore/internal/errors"
)

// Errors returned by identity verification.
var (
	// ErrAssertionInvalid is returned when an assertion is malformed, expired, or fails
	// signature, issuer or audience checks.
	ErrAssertionInvalid = errors.New("identity assertion invalid")
	// ErrVerifierNotConfigured is returned when no verifier is registered for a provider.
	ErrVerifierNotConfigured = errors.New("identity verifier not configured")
)

// VerifiedIdentity holds the claims of an assertion the provider vouched for.
type VerifiedIdentity struct {
	Subject       string              // Stable provider-issued subject identifier
	Email         string              // Email address attached to the identity
	Name          string              // Display name, may be empty
	EmailVerified bool                // Whether the provider verified the email
	Provider      entity.ProviderType // Provider that issued the assertion
}

// IdentityVerifier validates an opaque identity assertion issued by a third party.
type IdentityVerifier interface {
	// Verify checks the assertion and returns its verified claims.
	Verify(ctx context.Context, assertion string) (*VerifiedIdentity, error)

	// Provider returns the provider this verifier accepts assertions from.
	Provider() entity.ProviderType
}

// VerifierRegistry selects an IdentityVerifier by provider.
type VerifierRegistry struct {
	verifiers       map[entity.ProviderType]IdentityVerifier
	defaultProvider entity.ProviderType
}

// NewVerifierRegistry indexes the verifiers by their provider. defaultProvider is used when
// a login does not name one and must have a registered verifier.
func NewVerifierRegistry(defaultProvider entity.ProviderType, verifiers ...IdentityVerifier) (*VerifierRegistry, error) {
	registry := &VerifierRegistry{
		verifiers:       make(map[entity.ProviderType]IdentityVerifier, len(verifiers)),
		defaultProvider: defaultProvider,
	}
	for _, verifier := range verifiers {
		if verifier == nil {
			continue
		}
		registry.verifiers[verifier.Provider()] = verifier
	}

	if _, ok := registry.verifiers[defaultProvider]; !ok {
		return nil, errors.Wrapf(ErrVerifierNotConfigured, "default provider %s", defaultProvider)
	}

	return registry, nil
}

// Get returns the verifier for provider. The zero provider selects the default.
func (r *VerifierRegistry) Get(provider entity.ProviderType) (IdentityVerifier, error) {
	if provider == 0 {
		provider = r.defaultProvider
	}

	verifier, ok := r.verifiers[provider]
	if !ok {
		return nil, errors.Wrapf(ErrVerifierNotConfigured, "provider %s", provider)
	}

	return verifier, nil
}

// DefaultProvider returns the provider used when a login does not name one.
func (r *VerifierRegistry) DefaultProvider() entity.ProviderType {
	return r.defaultProvider
}
