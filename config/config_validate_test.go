package config

import (
	"testing"

	domainerrors "authcore/internal/domain/errors"

	"github.com/slighter12/go-lib/database/postgres"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newValidConfig() *Config {
	cfg := &Config{}
	cfg.Postgres = &postgres.DBConn{}
	cfg.Auth = &AuthConfig{}
	cfg.Auth.AccessToken.SigningKey = "test-signing-key"
	cfg.Auth.AccessToken.Issuer = "authcore"
	cfg.Auth.AccessToken.Audience = "authcore-clients"
	cfg.Identity = &IdentityConfig{}
	cfg.Identity.Google.ClientIDs = []string{" web-client ", "", "ios-client"}
	cfg.applyDefaults()

	return cfg
}

func TestConfig_ApplyDefaults(t *testing.T) {
	cfg := newValidConfig()

	assert.Equal(t, defaultAccessTokenTTL, cfg.Auth.AccessToken.TTL)
	assert.Equal(t, defaultRefreshTokenTTL, cfg.Auth.RefreshToken.TTL)
	assert.Equal(t, DriverPostgres, cfg.Persistence.Driver)
	assert.Equal(t, PubSubProviderNoop, cfg.PubSub.Provider)
	assert.Equal(t, "google", cfg.Identity.DefaultProvider)
	assert.Equal(t, []string{"web-client", "ios-client"}, cfg.Identity.Google.ClientIDs)
	assert.Equal(t, defaultMetricsPath, cfg.Metrics.Path)
	require.NoError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(cfg *Config)
		field  string
	}{
		{name: "missing signing key", mutate: func(cfg *Config) { cfg.Auth.AccessToken.SigningKey = "" }, field: "auth.accessToken.signingKey"},
		{name: "missing issuer", mutate: func(cfg *Config) { cfg.Auth.AccessToken.Issuer = " " }, field: "auth.accessToken.issuer"},
		{name: "missing audience", mutate: func(cfg *Config) { cfg.Auth.AccessToken.Audience = "" }, field: "auth.accessToken.audience"},
		{name: "negative refresh ttl", mutate: func(cfg *Config) { cfg.Auth.RefreshToken.TTL = -1 }, field: "auth.refreshToken.ttl"},
		{name: "unknown default provider", mutate: func(cfg *Config) { cfg.Identity.DefaultProvider = "github" }, field: "identity.defaultProvider"},
		{name: "google without client id", mutate: func(cfg *Config) { cfg.Identity.Google.ClientIDs = nil }, field: "identity.google.clientIds"},
		{name: "firebase without project", mutate: func(cfg *Config) { cfg.Identity.DefaultProvider = "firebase" }, field: "identity.firebase.projectId"},
		{name: "rate limit without burst", mutate: func(cfg *Config) { cfg.HTTP.RateLimit = RateLimitConfig{Enabled: true, RequestsPerSecond: 5} }, field: "http.rateLimit"},
		{name: "unknown driver", mutate: func(cfg *Config) { cfg.Persistence.Driver = "mysql" }, field: "persistence.driver"},
		{name: "postgres without connection", mutate: func(cfg *Config) { cfg.Postgres = nil }, field: "postgres"},
		{name: "google pubsub without topic", mutate: func(cfg *Config) { cfg.PubSub.Provider = PubSubProviderGoogle }, field: "pubsub.projectId"},
		{name: "local pubsub without endpoint", mutate: func(cfg *Config) { cfg.PubSub.Provider = PubSubProviderLocal }, field: "pubsub.localEndpoint"},
		{name: "gocloud pubsub without url", mutate: func(cfg *Config) { cfg.PubSub.Provider = PubSubProviderGoCloud }, field: "pubsub.topicUrl"},
		{name: "unknown pubsub provider", mutate: func(cfg *Config) { cfg.PubSub.Provider = "kafka" }, field: "pubsub.provider"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := newValidConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)

			var cfgErr *domainerrors.ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}

func TestConfig_ValidateMemoryDriverWithoutPostgres(t *testing.T) {
	cfg := newValidConfig()
	cfg.Postgres = nil
	cfg.Persistence.Driver = DriverMemory
	cfg.Identity.DefaultProvider = "firebase"
	cfg.Identity.Firebase.ProjectID = "demo-project"

	assert.NoError(t, cfg.Validate())
}
