package model

import (
	"authcore/internal/domain/entity"
	"authcore/internal/errors"
)

// Stored values of the users.provider column. Changing one requires a data migration.
const (
	providerColumnGoogle   = "google"
	providerColumnFirebase = "firebase"
)

var providerToColumn = map[entity.ProviderType]string{
	entity.ProviderTypeGoogle:   providerColumnGoogle,
	entity.ProviderTypeFirebase: providerColumnFirebase,
}

var columnToProvider = map[string]entity.ProviderType{
	providerColumnGoogle:   entity.ProviderTypeGoogle,
	providerColumnFirebase: entity.ProviderTypeFirebase,
}

// ErrUnmappedProvider is returned when a provider has no stored representation or a stored
// value has no provider.
var ErrUnmappedProvider = errors.New("provider has no column mapping")

// ProviderToColumn returns the stored value for a provider.
func ProviderToColumn(provider entity.ProviderType) (string, error) {
	column, ok := providerToColumn[provider]
	if !ok {
		return "", errors.Wrapf(ErrUnmappedProvider, "provider %d", provider)
	}

	return column, nil
}

// ProviderFromColumn returns the provider for a stored value.
func ProviderFromColumn(column string) (entity.ProviderType, error) {
	provider, ok := columnToProvider[column]
	if !ok {
		return 0, errors.Wrapf(ErrUnmappedProvider, "column value %q", column)
	}

	return provider, nil
}
