// Package entity contains the core business objects of the project,
// each representing a unique, identifiable concept within the domain.
package entity

import (
	"strings"

	"authcore/internal/errors"
)

// ErrUnknownProvider is returned when a provider name does not map to a supported provider.
var ErrUnknownProvider = errors.New("unknown identity provider")

// ProviderType is the closed set of external identity providers a User can be bound to.
// The zero value is not a valid provider.
type ProviderType int

const (
	// ProviderTypeGoogle is Google Sign-In (Google-issued ID tokens).
	ProviderTypeGoogle ProviderType = iota + 1
	// ProviderTypeFirebase is Firebase Authentication (Firebase-issued ID tokens).
	ProviderTypeFirebase
)

var providerNames = map[ProviderType]string{
	ProviderTypeGoogle:   "google",
	ProviderTypeFirebase: "firebase",
}

// Providers returns every supported provider.
func Providers() []ProviderType {
	return []ProviderType{ProviderTypeGoogle, ProviderTypeFirebase}
}

// String returns the canonical name of the provider.
func (p ProviderType) String() string {
	if name, ok := providerNames[p]; ok {
		return name
	}

	return "unknown"
}

// IsValid checks if the ProviderType is one of the supported providers.
func (p ProviderType) IsValid() bool {
	_, ok := providerNames[p]

	return ok
}

// ParseProviderType converts a canonical provider name into a ProviderType.
func ParseProviderType(name string) (ProviderType, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	for provider, providerName := range providerNames {
		if providerName == normalized {
			return provider, nil
		}
	}

	return 0, errors.Wrapf(ErrUnknownProvider, "provider %q", name)
}
