package impl

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"authcore/config"
	"authcore/internal/domain/entity"
	"authcore/internal/domain/repository"
	"authcore/internal/domain/service"
	"authcore/internal/errors"
	"authcore/internal/infra/auth"
	"authcore/internal/infra/persistence/memory"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newDiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestConfig(revokeAllOnReuse bool) *config.Config {
	cfg := &config.Config{
		Auth:   &config.AuthConfig{RevokeAllOnReuse: revokeAllOnReuse},
		PubSub: &config.PubSubConfig{Provider: config.PubSubProviderNoop, PublishTimeout: time.Second},
	}
	cfg.Auth.AccessToken.SigningKey = "test_access_secret_key_very_long_for_testing"
	cfg.Auth.AccessToken.Issuer = "authcore-test"
	cfg.Auth.AccessToken.Audience = "authcore-clients"
	cfg.Auth.AccessToken.TTL = 15 * time.Minute
	cfg.Auth.RefreshToken.TTL = 7 * 24 * time.Hour

	return cfg
}

// stubVerifier accepts any assertion found in its table.
type stubVerifier struct {
	provider   entity.ProviderType
	identities map[string]*service.VerifiedIdentity
}

func (v *stubVerifier) Verify(_ context.Context, assertion string) (*service.VerifiedIdentity, error) {
	identity, ok := v.identities[assertion]
	if !ok {
		return nil, service.ErrAssertionInvalid
	}
	c := *identity
	c.Provider = v.provider

	return &c, nil
}

func (v *stubVerifier) Provider() entity.ProviderType {
	return v.provider
}

// mockEventPublisher is a testify mock of service.EventPublisher.
type mockEventPublisher struct {
	mock.Mock
}

func (m *mockEventPublisher) PublishUserRegistered(ctx context.Context, event *service.UserRegisteredEvent) error {
	args := m.Called(ctx, event)

	return args.Error(0)
}

func (m *mockEventPublisher) Close() error {
	return m.Called().Error(0)
}

// recordingMetrics counts every AuthMetrics call.
type recordingMetrics struct {
	mu              sync.Mutex
	logins          map[bool]int
	loginFailures   map[string]int
	refreshes       int
	refreshFailures map[string]int
	revocations     map[string]int
	races           int
	publishes       map[bool]int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{
		logins:          make(map[bool]int),
		loginFailures:   make(map[string]int),
		refreshFailures: make(map[string]int),
		revocations:     make(map[string]int),
		publishes:       make(map[bool]int),
	}
}

func (m *recordingMetrics) RecordLogin(_ string, newUser bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logins[newUser]++
}

func (m *recordingMetrics) RecordLoginFailure(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loginFailures[reason]++
}

func (m *recordingMetrics) RecordRefresh() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refreshes++
}

func (m *recordingMetrics) RecordRefreshFailure(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refreshFailures[reason]++
}

func (m *recordingMetrics) RecordRevocations(scope string, count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revocations[scope] += count
}

func (m *recordingMetrics) RecordRegistrationRace() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.races++
}

func (m *recordingMetrics) RecordEventPublish(succeeded bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.publishes[succeeded]++
}

// authServiceFixtures holds all test dependencies for auth service tests.
type authServiceFixtures struct {
	service   *authService
	store     *memory.Store
	verifier  *stubVerifier
	publisher *mockEventPublisher
	metrics   *recordingMetrics
	tokens    service.TokenService
	clock     *testClock
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func createTestAuthService(t *testing.T, cfg *config.Config) authServiceFixtures {
	t.Helper()

	store := memory.NewStore()
	return createTestAuthServiceWithTx(t, cfg, store, memory.NewTransactionManager(store))
}

func createTestAuthServiceWithTx(t *testing.T, cfg *config.Config, store *memory.Store, txManager repository.TransactionManager) authServiceFixtures {
	t.Helper()

	tokenService, err := auth.NewJWTService(cfg)
	require.NoError(t, err)

	verifier := &stubVerifier{
		provider: entity.ProviderTypeGoogle,
		identities: map[string]*service.VerifiedIdentity{
			"assertion-1": {Subject: "sub-1", Email: "a@x.com", Name: "A", EmailVerified: true},
			"assertion-2": {Subject: "sub-2", Email: "b@x.com", Name: "B", EmailVerified: true},
		},
	}
	registry, err := service.NewVerifierRegistry(entity.ProviderTypeGoogle, verifier)
	require.NoError(t, err)

	publisher := &mockEventPublisher{}
	metrics := newRecordingMetrics()

	srv := newAuthService(AuthServiceParams{
		TxManager:    txManager,
		Verifiers:    registry,
		TokenService: tokenService,
		Publisher:    publisher,
		Metrics:      metrics,
		Config:       cfg,
		Logger:       newDiscardLogger(),
	})

	clock := &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	srv.now = clock.Now

	return authServiceFixtures{
		service:   srv,
		store:     store,
		verifier:  verifier,
		publisher: publisher,
		metrics:   metrics,
		tokens:    tokenService,
		clock:     clock,
	}
}

func (f authServiceFixtures) findUser(t *testing.T, id uuid.UUID) *entity.User {
	t.Helper()

	var user *entity.User
	err := f.store.Execute(context.Background(), func(repoFactory repository.RepositoryFactory) error {
		var err error
		user, err = repoFactory.NewUserRepository().FindByID(context.Background(), id)

		return err
	})
	require.NoError(t, err)

	return user
}

func (f authServiceFixtures) findToken(t *testing.T, secret string) *entity.RefreshToken {
	t.Helper()

	digest, err := f.tokens.Digest(secret)
	require.NoError(t, err)

	var token *entity.RefreshToken
	err = f.store.Execute(context.Background(), func(repoFactory repository.RepositoryFactory) error {
		var err error
		token, err = repoFactory.NewRefreshTokenRepository().FindByDigest(context.Background(), digest)

		return err
	})
	require.NoError(t, err)

	return token
}

func (f authServiceFixtures) countTokens(t *testing.T, userID uuid.UUID) int {
	t.Helper()

	sessions, err := f.service.ListActiveSessions(context.Background(), userID)
	require.NoError(t, err)

	return len(sessions)
}

// racingTxManager commits a competing registration right before the first unit of work
// runs and hides it from that unit's lookup, reproducing a lost insert race.
type racingTxManager struct {
	store    *memory.Store
	identity *service.VerifiedIdentity
	raced    bool
}

func (m *racingTxManager) Execute(ctx context.Context, fn func(repository.RepositoryFactory) error) error {
	if m.raced {
		return m.store.Execute(ctx, fn)
	}
	m.raced = true

	err := m.store.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		user, err := entity.NewUser(entity.ProviderTypeGoogle, m.identity.Subject, m.identity.Email, time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC))
		if err != nil {
			return err
		}

		return repoFactory.NewUserRepository().Create(ctx, user)
	})
	if err != nil {
		return err
	}

	return m.store.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		return fn(staleLookupFactory{RepositoryFactory: repoFactory})
	})
}

type staleLookupFactory struct {
	repository.RepositoryFactory
}

func (f staleLookupFactory) NewUserRepository() repository.UserRepository {
	return staleUserRepository{UserRepository: f.RepositoryFactory.NewUserRepository()}
}

type staleUserRepository struct {
	repository.UserRepository
}

func (staleUserRepository) FindByProviderSubject(context.Context, entity.ProviderType, string) (*entity.User, error) {
	return nil, repository.ErrUserNotFound
}

// failingTxManager fails every unit of work with err.
type failingTxManager struct {
	mock.Mock
}

func (m *failingTxManager) Execute(ctx context.Context, fn func(repository.RepositoryFactory) error) error {
	return m.Called(ctx, fn).Error(0)
}

// wrappedTxManager runs every unit of work on the store through a decorated factory.
type wrappedTxManager struct {
	store *memory.Store
	wrap  func(repository.RepositoryFactory) repository.RepositoryFactory
}

func (m *wrappedTxManager) Execute(ctx context.Context, fn func(repository.RepositoryFactory) error) error {
	return m.store.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		return fn(m.wrap(repoFactory))
	})
}

// staleTokenFactory hands out a token copy read before it was rotated, as a second
// refresh would see it when both loaded the row while it was still active.
type staleTokenFactory struct {
	repository.RepositoryFactory
	stale *entity.RefreshToken
}

func (f staleTokenFactory) NewRefreshTokenRepository() repository.RefreshTokenRepository {
	return staleTokenRepository{RefreshTokenRepository: f.RepositoryFactory.NewRefreshTokenRepository(), stale: f.stale}
}

type staleTokenRepository struct {
	repository.RefreshTokenRepository
	stale *entity.RefreshToken
}

func (r staleTokenRepository) FindByDigest(context.Context, string) (*entity.RefreshToken, error) {
	return r.stale, nil
}

// missingOwnerFactory reports every user as gone.
type missingOwnerFactory struct {
	repository.RepositoryFactory
}

func (f missingOwnerFactory) NewUserRepository() repository.UserRepository {
	return missingOwnerRepository{UserRepository: f.RepositoryFactory.NewUserRepository()}
}

type missingOwnerRepository struct {
	repository.UserRepository
}

func (missingOwnerRepository) FindByID(_ context.Context, id uuid.UUID) (*entity.User, error) {
	return nil, errors.Wrapf(repository.ErrUserNotFound, "user %s", id)
}
