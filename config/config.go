package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode"

	"authcore/internal/domain/entity"
	domainerrors "authcore/internal/domain/errors"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
	"github.com/slighter12/go-lib/database/postgres"
)

const (
	defaultPath               = "."
	defaultDotEnvFile         = ".env"
	defaultMaxRequestBodySize = "100KB"
	defaultAccessTokenTTL     = 15 * time.Minute
	defaultRefreshTokenTTL    = 7 * 24 * time.Hour
	defaultPublishTimeout     = 5 * time.Second
	defaultMetricsPath        = "/metrics"
)

// Persistence drivers.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Pub/Sub providers.
const (
	PubSubProviderNoop    = "noop"
	PubSubProviderLocal   = "local"
	PubSubProviderGoogle  = "google"
	PubSubProviderGoCloud = "gocloud"
)

type Config struct {
	Env struct {
		Env         string `json:"env" yaml:"env"`
		ServiceName string `json:"serviceName" yaml:"serviceName"`
		Debug       bool   `json:"debug" yaml:"debug"`
		Log         Log    `json:"log" yaml:"log"`
	} `json:"env" yaml:"env"`

	HTTP struct {
		Port               int    `json:"port" yaml:"port"`
		MaxRequestBodySize string `json:"maxRequestBodySize" yaml:"maxRequestBodySize"`
		Timeouts           struct {
			ReadTimeout       time.Duration `json:"readTimeout" yaml:"readTimeout"`
			ReadHeaderTimeout time.Duration `json:"readHeaderTimeout" yaml:"readHeaderTimeout"`
			WriteTimeout      time.Duration `json:"writeTimeout" yaml:"writeTimeout"`
			IdleTimeout       time.Duration `json:"idleTimeout" yaml:"idleTimeout"`
		} `json:"timeouts" yaml:"timeouts"`
		RateLimit RateLimitConfig `json:"rateLimit" yaml:"rateLimit"`
		// TrustProxy takes the client address from X-Forwarded-For. Enable only behind a proxy
		// that overwrites the header, since rate limiting keys on it.
		TrustProxy bool `json:"trustProxy" yaml:"trustProxy"`
		// AllowOrigins lists the browser origins allowed by CORS; empty allows any origin.
		AllowOrigins []string `json:"allowOrigins" yaml:"allowOrigins"`
	} `json:"http" yaml:"http"`

	Postgres *postgres.DBConn `json:"postgres" yaml:"postgres" mapstructure:"postgres"`

	Persistence *PersistenceConfig `json:"persistence" yaml:"persistence"`

	Auth *AuthConfig `json:"auth" yaml:"auth"`

	Identity *IdentityConfig `json:"identity" yaml:"identity"`

	// PubSub configuration for event publishing
	PubSub *PubSubConfig `json:"pubsub" yaml:"pubsub"`

	Metrics *MetricsConfig `json:"metrics" yaml:"metrics"`
}

type Log struct {
	Pretty bool   `json:"pretty" yaml:"pretty"`
	Level  string `json:"level" yaml:"level"`
}

// RateLimitConfig throttles the /auth routes per client IP.
type RateLimitConfig struct {
	Enabled           bool          `json:"enabled" yaml:"enabled"`
	RequestsPerSecond float64       `json:"requestsPerSecond" yaml:"requestsPerSecond"`
	Burst             int           `json:"burst" yaml:"burst"`
	ExpiresIn         time.Duration `json:"expiresIn" yaml:"expiresIn"`
}

// PersistenceConfig selects the storage backend.
type PersistenceConfig struct {
	// Driver is "postgres" or "memory"
	Driver string `json:"driver" yaml:"driver"`

	// AutoMigrate applies the embedded schema migrations on startup (postgres only)
	AutoMigrate bool `json:"autoMigrate" yaml:"autoMigrate"`
}

// AuthConfig defines session token configuration
type AuthConfig struct {
	AccessToken struct {
		SigningKey string        `json:"signingKey" yaml:"signingKey"`
		Issuer     string        `json:"issuer" yaml:"issuer"`
		Audience   string        `json:"audience" yaml:"audience"`
		TTL        time.Duration `json:"ttl" yaml:"ttl"`
	} `json:"accessToken" yaml:"accessToken"`

	RefreshToken struct {
		TTL time.Duration `json:"ttl" yaml:"ttl"`
	} `json:"refreshToken" yaml:"refreshToken"`

	// RevokeAllOnReuse revokes every session of a user when one of their revoked
	// refresh tokens is presented again.
	RevokeAllOnReuse bool `json:"revokeAllOnReuse" yaml:"revokeAllOnReuse"`
}

// IdentityConfig configures the identity providers whose assertions are accepted.
type IdentityConfig struct {
	DefaultProvider string `json:"defaultProvider" yaml:"defaultProvider"`

	Google struct {
		// ClientIDs are the accepted audiences. An assertion is valid if it matches any of them.
		ClientIDs []string `json:"clientIds" yaml:"clientIds"`
	} `json:"google" yaml:"google"`

	Firebase struct {
		ProjectID       string `json:"projectId" yaml:"projectId"`
		CredentialsPath string `json:"credentialsPath" yaml:"credentialsPath"`
	} `json:"firebase" yaml:"firebase"`
}

// GoogleEnabled reports whether Google assertions can be verified.
func (c *IdentityConfig) GoogleEnabled() bool {
	return len(c.Google.ClientIDs) > 0
}

// FirebaseEnabled reports whether Firebase assertions can be verified.
func (c *IdentityConfig) FirebaseEnabled() bool {
	return c.Firebase.ProjectID != ""
}

// PubSubConfig defines Pub/Sub configuration for event publishing
type PubSubConfig struct {
	// Provider type: "noop", "local" for local HTTP, "google" for Google Pub/Sub,
	// or "gocloud" for a gocloud.dev topic URL
	Provider string `json:"provider" yaml:"provider"`

	// Google Cloud project ID (for google provider)
	ProjectID string `json:"projectId" yaml:"projectId"`

	// Pub/Sub topic ID (for google provider)
	TopicID string `json:"topicId" yaml:"topicId"`

	// Local HTTP endpoint for development (for local provider)
	LocalEndpoint string `json:"localEndpoint" yaml:"localEndpoint"`

	// Topic URL such as mem://user-registered (for gocloud provider)
	TopicURL string `json:"topicUrl" yaml:"topicUrl"`

	// PublishTimeout bounds a single publish after the login committed
	PublishTimeout time.Duration `json:"publishTimeout" yaml:"publishTimeout"`
}

// MetricsConfig exposes Prometheus metrics.
type MetricsConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Path    string `json:"path" yaml:"path"`
}

// LoadWithEnv loads .yaml files through koanf.
func LoadWithEnv[T any](currEnv string, configPath ...string) (*T, error) {
	cfg := new(T)
	koanfInstance := koanf.New(".")

	// Build list of paths to search for config file
	searchPaths := []string{defaultPath}
	if len(configPath) != 0 {
		pwd, err := os.Getwd()
		if err != nil {
			return nil, errors.Wrap(err, "os.Getwd")
		}
		for _, path := range configPath {
			abs := filepath.Join(pwd, path)
			searchPaths = append(searchPaths, abs)
		}
	}

	if err := loadDotEnv(searchPaths); err != nil {
		return nil, err
	}

	// Try to find and load the config file
	var configFile string
	var found bool
	for _, path := range searchPaths {
		candidate := filepath.Join(path, currEnv+".yaml")
		if _, err := os.Stat(candidate); err == nil {
			configFile = candidate
			found = true

			break
		}
	}

	if !found {
		return nil, errors.Errorf("config file %s.yaml not found in any search path", currEnv)
	}

	// Load YAML config file
	if err := koanfInstance.Load(file.Provider(configFile), yaml.Parser()); err != nil {
		return nil, errors.Wrapf(err, "read %s config failed", currEnv)
	}

	existingConfigMap := koanfInstance.Raw()

	// Load environment variables
	if err := koanfInstance.Load(env.Provider(".", env.Opt{
		TransformFunc: func(k, v string) (string, any) {
			// Convert ENV_VAR_NAME to path and align each segment with existing YAML keys.
			// Example: AUTH_ACCESSTOKEN_SIGNINGKEY -> auth.accessToken.signingKey
			key := canonicalizeEnvKey(k, existingConfigMap)

			return key, v
		},
	}), nil); err != nil {
		return nil, errors.Wrap(err, "load env variables failed")
	}

	// Unmarshal into the config struct (case-insensitive to match env vars)
	if err := koanfInstance.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           cfg,
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			),
			MatchName: func(mapKey, fieldName string) bool {
				// Case-insensitive matching for env var overrides
				return strings.EqualFold(mapKey, fieldName)
			},
		},
	}); err != nil {
		return nil, errors.Wrapf(err, "unmarshal %s config failed", currEnv)
	}

	return cfg, nil
}

// loadDotEnv loads the first .env file found. Variables already set in the
// process environment win over the file.
func loadDotEnv(searchPaths []string) error {
	for _, path := range searchPaths {
		candidate := filepath.Join(path, defaultDotEnvFile)
		if _, err := os.Stat(candidate); err != nil {
			continue
		}
		if err := godotenv.Load(candidate); err != nil {
			return errors.Wrapf(err, "load %s failed", candidate)
		}

		return nil
	}

	return nil
}

func New() (*Config, error) {
	cfg, err := LoadWithEnv[Config]("config", "config", "../config", "../../config")
	if err != nil {
		return nil, err
	}

	cfg.applyDefaults()

	if cfg.Postgres != nil {
		// Build replicas from environment variables (POSTGRES_REPLICAS_0_HOST, POSTGRES_REPLICAS_0_PORT, etc.)
		cfg.Postgres.Replicas = buildReplicasFromEnv()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.HTTP.MaxRequestBodySize) == "" {
		c.HTTP.MaxRequestBodySize = defaultMaxRequestBodySize
	}
	if c.Persistence == nil {
		c.Persistence = &PersistenceConfig{}
	}
	if c.Persistence.Driver == "" {
		c.Persistence.Driver = DriverPostgres
	}
	if c.Auth == nil {
		c.Auth = &AuthConfig{}
	}
	if c.Auth.AccessToken.TTL == 0 {
		c.Auth.AccessToken.TTL = defaultAccessTokenTTL
	}
	if c.Auth.RefreshToken.TTL == 0 {
		c.Auth.RefreshToken.TTL = defaultRefreshTokenTTL
	}
	if c.Identity == nil {
		c.Identity = &IdentityConfig{}
	}
	if c.Identity.DefaultProvider == "" {
		c.Identity.DefaultProvider = entity.ProviderTypeGoogle.String()
	}
	c.Identity.Google.ClientIDs = compactStrings(c.Identity.Google.ClientIDs)
	if c.PubSub == nil {
		c.PubSub = &PubSubConfig{}
	}
	if c.PubSub.Provider == "" {
		c.PubSub.Provider = PubSubProviderNoop
	}
	if c.PubSub.PublishTimeout == 0 {
		c.PubSub.PublishTimeout = defaultPublishTimeout
	}
	if c.Metrics == nil {
		c.Metrics = &MetricsConfig{}
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = defaultMetricsPath
	}
}

// Validate checks the values the service cannot start without.
// It returns a *errors.ConfigurationError naming the first offending key.
func (c *Config) Validate() error {
	if c.Auth == nil || c.Identity == nil || c.Persistence == nil || c.PubSub == nil {
		return domainerrors.NewConfigurationError("config", "defaults not applied")
	}

	access := c.Auth.AccessToken
	switch {
	case strings.TrimSpace(access.SigningKey) == "":
		return domainerrors.NewConfigurationError("auth.accessToken.signingKey", "must be set")
	case strings.TrimSpace(access.Issuer) == "":
		return domainerrors.NewConfigurationError("auth.accessToken.issuer", "must be set")
	case strings.TrimSpace(access.Audience) == "":
		return domainerrors.NewConfigurationError("auth.accessToken.audience", "must be set")
	case access.TTL <= 0:
		return domainerrors.NewConfigurationError("auth.accessToken.ttl", "must be positive")
	case c.Auth.RefreshToken.TTL <= 0:
		return domainerrors.NewConfigurationError("auth.refreshToken.ttl", "must be positive")
	}

	if err := c.validateIdentity(); err != nil {
		return err
	}

	if rl := c.HTTP.RateLimit; rl.Enabled && (rl.RequestsPerSecond <= 0 || rl.Burst <= 0) {
		return domainerrors.NewConfigurationError("http.rateLimit", "requestsPerSecond and burst must be positive when enabled")
	}

	switch c.Persistence.Driver {
	case DriverMemory:
	case DriverPostgres:
		if c.Postgres == nil {
			return domainerrors.NewConfigurationError("postgres", "required when persistence.driver is postgres")
		}
	default:
		return domainerrors.NewConfigurationError("persistence.driver", "unknown driver "+strconv.Quote(c.Persistence.Driver))
	}

	return c.validatePubSub()
}

func (c *Config) validateIdentity() error {
	defaultProvider, err := entity.ParseProviderType(c.Identity.DefaultProvider)
	if err != nil {
		return domainerrors.NewConfigurationError("identity.defaultProvider", err.Error())
	}

	if !c.Identity.FirebaseEnabled() && c.Identity.Firebase.CredentialsPath != "" {
		return domainerrors.NewConfigurationError("identity.firebase.projectId", "required when credentialsPath is set")
	}

	switch defaultProvider {
	case entity.ProviderTypeGoogle:
		if !c.Identity.GoogleEnabled() {
			return domainerrors.NewConfigurationError("identity.google.clientIds", "at least one client id is required")
		}
	case entity.ProviderTypeFirebase:
		if !c.Identity.FirebaseEnabled() {
			return domainerrors.NewConfigurationError("identity.firebase.projectId", "must be set")
		}
	}

	return nil
}

func (c *Config) validatePubSub() error {
	ps := c.PubSub
	switch ps.Provider {
	case PubSubProviderNoop:
	case PubSubProviderLocal:
		if ps.LocalEndpoint == "" {
			return domainerrors.NewConfigurationError("pubsub.localEndpoint", "required for local provider")
		}
	case PubSubProviderGoogle:
		if ps.ProjectID == "" || ps.TopicID == "" {
			return domainerrors.NewConfigurationError("pubsub.projectId", "projectId and topicId are required for google provider")
		}
	case PubSubProviderGoCloud:
		if ps.TopicURL == "" {
			return domainerrors.NewConfigurationError("pubsub.topicUrl", "required for gocloud provider")
		}
	default:
		return domainerrors.NewConfigurationError("pubsub.provider", "unknown provider "+strconv.Quote(ps.Provider))
	}

	if ps.PublishTimeout <= 0 {
		return domainerrors.NewConfigurationError("pubsub.publishTimeout", "must be positive")
	}

	return nil
}

func compactStrings(values []string) []string {
	out := values[:0]
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}

	return out
}

func canonicalizeEnvKey(rawKey string, existing map[string]any) string {
	segments := strings.Split(strings.ToLower(rawKey), "_")
	canonical := make([]string, 0, len(segments))
	current := existing

	for _, segment := range segments {
		if segment == "" {
			continue
		}

		if matched, next, ok := findExistingSegment(current, segment); ok {
			canonical = append(canonical, matched)
			current = next
		} else {
			canonical = append(canonical, segment)
			current = nil
		}
	}

	return strings.Join(canonical, ".")
}

func findExistingSegment(current map[string]any, segment string) (matched string, next map[string]any, ok bool) {
	if len(current) == 0 {
		return "", nil, false
	}

	needle := normalizeToken(segment)
	for key, value := range current {
		if normalizeToken(key) != needle {
			continue
		}

		child, _ := value.(map[string]any)

		return key, child, true
	}

	return "", nil, false
}

func normalizeToken(s string) string {
	var normalized strings.Builder
	normalized.Grow(len(s))

	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			continue
		}
		normalized.WriteRune(unicode.ToLower(r))
	}

	return normalized.String()
}

// buildReplicasFromEnv builds the replicas slice from environment variables.
// Environment variable format: POSTGRES_REPLICAS_{index}_{field}
func buildReplicasFromEnv() []postgres.ConnectionConfig {
	var replicas []postgres.ConnectionConfig

	for i := 0; ; i++ {
		prefix := "POSTGRES_REPLICAS_" + strconv.Itoa(i) + "_"

		host := os.Getenv(prefix + "HOST")
		port := os.Getenv(prefix + "PORT")
		if host == "" || port == "" {
			break
		}

		replicas = append(replicas, postgres.ConnectionConfig{
			Host:     host,
			Port:     port,
			UserName: os.Getenv(prefix + "USERNAME"),
			Password: os.Getenv(prefix + "PASSWORD"),
		})
	}

	return replicas
}
