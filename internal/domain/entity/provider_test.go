package entity

import (
	"testing"

	"authcore/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProviderType(t *testing.T) {
	for _, provider := range Providers() {
		parsed, err := ParseProviderType(provider.String())
		require.NoError(t, err)
		assert.Equal(t, provider, parsed)
	}

	parsed, err := ParseProviderType(" Google ")
	require.NoError(t, err)
	assert.Equal(t, ProviderTypeGoogle, parsed)

	_, err = ParseProviderType("github")
	assert.True(t, errors.Is(err, ErrUnknownProvider))
}

func TestProviderType_IsValid(t *testing.T) {
	assert.True(t, ProviderTypeGoogle.IsValid())
	assert.True(t, ProviderTypeFirebase.IsValid())
	assert.False(t, ProviderType(0).IsValid())
	assert.Equal(t, "unknown", ProviderType(42).String())
}
