// Package impl contains the implementation of the application's business logic.
package impl

import (
	"context"
	"log/slog"
	"time"

	"authcore/config"
	deliverycontext "authcore/internal/delivery/context"
	"authcore/internal/domain/entity"
	domainerrors "authcore/internal/domain/errors"
	"authcore/internal/domain/repository"
	"authcore/internal/domain/service"
	"authcore/internal/errors"
	"authcore/internal/usecase"

	"github.com/google/uuid"
	"go.uber.org/fx"
)

// Revocation scopes reported to AuthMetrics.
const (
	revocationScopeSingle   = "single"
	revocationScopeRotation = "rotation"
	revocationScopeAll      = "all"
	revocationScopeReuse    = "reuse"
)

const defaultPublishTimeout = 5 * time.Second

// authService implements the AuthUsecase interface.
type authService struct {
	txManager        repository.TransactionManager
	verifiers        *service.VerifierRegistry
	tokenService     service.TokenService
	publisher        service.EventPublisher
	metrics          service.AuthMetrics
	revokeAllOnReuse bool
	publishTimeout   time.Duration
	now              func() time.Time
	logger           *slog.Logger
}

// AuthServiceParams holds dependencies for AuthService, injected by Fx.
type AuthServiceParams struct {
	fx.In

	TxManager    repository.TransactionManager
	Verifiers    *service.VerifierRegistry
	TokenService service.TokenService
	Publisher    service.EventPublisher
	Metrics      service.AuthMetrics
	Config       *config.Config
	Logger       *slog.Logger
}

// NewAuthService is the constructor for authService.
func NewAuthService(params AuthServiceParams) usecase.AuthUsecase {
	return newAuthService(params)
}

func newAuthService(params AuthServiceParams) *authService {
	srv := &authService{
		txManager:      params.TxManager,
		verifiers:      params.Verifiers,
		tokenService:   params.TokenService,
		publisher:      params.Publisher,
		metrics:        params.Metrics,
		publishTimeout: defaultPublishTimeout,
		now:            utcNow,
		logger:         params.Logger,
	}

	if params.Config != nil {
		if params.Config.Auth != nil {
			srv.revokeAllOnReuse = params.Config.Auth.RevokeAllOnReuse
		}
		if params.Config.PubSub != nil && params.Config.PubSub.PublishTimeout > 0 {
			srv.publishTimeout = params.Config.PubSub.PublishTimeout
		}
	}

	return srv
}

// utcNow matches the microsecond precision of the stores so that in-memory and
// persisted timestamps compare equal.
func utcNow() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

func (srv *authService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// loginResult collects what a committed login unit of work produced.
type loginResult struct {
	user         *entity.User
	isNewUser    bool
	accessToken  string
	refreshToken string
}

// LoginWithExternalAssertion verifies the assertion and opens a session for the bound account.
func (srv *authService) LoginWithExternalAssertion(ctx context.Context, input *usecase.LoginInput) (*usecase.LoginOutput, error) {
	verifier, err := srv.selectVerifier(input.Provider)
	if err != nil {
		srv.log(ctx).Warn("Login rejected: provider not available",
			slog.String("provider", input.Provider),
			slog.Any("error", err),
		)
		srv.metrics.RecordLoginFailure(service.LoginFailureProvider)

		return nil, domainerrors.ErrVerificationFailed
	}

	identity, err := verifier.Verify(ctx, input.IDToken)
	if err == nil && identity.Subject == "" {
		err = errors.Wrap(service.ErrAssertionInvalid, "verified identity has no subject")
	}
	if err != nil {
		srv.log(ctx).Info("Login rejected: assertion not verified",
			slog.String("provider", verifier.Provider().String()),
			slog.Any("error", err),
		)
		srv.metrics.RecordLoginFailure(service.LoginFailureVerification)

		return nil, domainerrors.ErrVerificationFailed
	}

	provider := verifier.Provider()
	result, err := srv.executeLogin(ctx, provider, identity)
	if errors.Is(err, repository.ErrUserAlreadyExists) {
		// A concurrent first login created the account between our lookup and insert.
		srv.log(ctx).Info("Registration race lost, retrying login as existing user",
			slog.String("provider", provider.String()),
		)
		srv.metrics.RecordRegistrationRace()
		result, err = srv.executeLogin(ctx, provider, identity)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to execute login transaction")
	}

	if result.isNewUser {
		srv.announceRegistration(ctx, result.user)
	}
	srv.metrics.RecordLogin(provider.String(), result.isNewUser)

	srv.log(ctx).Info("User logged in",
		slog.Any("userID", result.user.ID()),
		slog.String("provider", provider.String()),
		slog.Bool("isNewUser", result.isNewUser),
	)

	return &usecase.LoginOutput{
		AccessToken:  result.accessToken,
		RefreshToken: result.refreshToken,
		ExpiresIn:    srv.expiresIn(),
		TokenType:    usecase.TokenTypeBearer,
		UserID:       result.user.ID(),
		IsNewUser:    result.isNewUser,
		Email:        result.user.Email(),
	}, nil
}

func (srv *authService) selectVerifier(providerName string) (service.IdentityVerifier, error) {
	provider := srv.verifiers.DefaultProvider()
	if providerName != "" {
		parsed, err := entity.ParseProviderType(providerName)
		if err != nil {
			return nil, err
		}
		provider = parsed
	}

	return srv.verifiers.Get(provider)
}

// executeLogin runs one login unit of work: find or register the account, stamp the login,
// and issue a session.
func (srv *authService) executeLogin(ctx context.Context, provider entity.ProviderType, identity *service.VerifiedIdentity) (*loginResult, error) {
	var result *loginResult

	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		now := srv.now()

		user, isNewUser, err := srv.findOrRegisterUser(ctx, repoFactory.NewUserRepository(), provider, identity, now)
		if err != nil {
			return err
		}

		accessToken, refreshToken, err := srv.issueSession(ctx, repoFactory.NewRefreshTokenRepository(), user, now, nil)
		if err != nil {
			return err
		}

		result = &loginResult{
			user:         user,
			isNewUser:    isNewUser,
			accessToken:  accessToken,
			refreshToken: refreshToken,
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (srv *authService) findOrRegisterUser(
	ctx context.Context,
	userRepo repository.UserRepository,
	provider entity.ProviderType,
	identity *service.VerifiedIdentity,
	now time.Time,
) (*entity.User, bool, error) {
	user, err := userRepo.FindByProviderSubject(ctx, provider, identity.Subject)
	if err != nil && !errors.Is(err, repository.ErrUserNotFound) {
		return nil, false, errors.Wrap(err, "failed to find user by provider subject")
	}

	if errors.Is(err, repository.ErrUserNotFound) {
		user, err = entity.NewUser(provider, identity.Subject, identity.Email, now)
		if err != nil {
			return nil, false, errors.Wrap(err, "failed to build user")
		}
		user.RecordLogin(now)

		if err := userRepo.Create(ctx, user); err != nil {
			return nil, false, errors.Wrap(err, "failed to create user")
		}

		return user, true, nil
	}

	user.RecordLogin(now)
	if err := userRepo.Update(ctx, user); err != nil {
		return nil, false, errors.Wrap(err, "failed to record login")
	}

	return user, false, nil
}

// issueSession persists a new refresh token for the user and signs an access token.
// The access token is only produced once the refresh token row has been written.
func (srv *authService) issueSession(
	ctx context.Context,
	tokenRepo repository.RefreshTokenRepository,
	user *entity.User,
	now time.Time,
	rotatedFrom *uuid.UUID,
) (string, string, error) {
	secret, err := srv.tokenService.GenerateRefreshSecret()
	if err != nil {
		return "", "", errors.Wrap(err, "failed to generate refresh secret")
	}

	digest, err := srv.tokenService.Digest(secret)
	if err != nil {
		return "", "", errors.Wrap(err, "failed to digest refresh secret")
	}

	token, err := entity.IssueRefreshToken(user.ID(), digest, now, srv.tokenService.RefreshTokenTTL(), rotatedFrom)
	if err != nil {
		return "", "", errors.Wrap(err, "failed to issue refresh token")
	}

	if err := tokenRepo.Create(ctx, token); err != nil {
		return "", "", errors.Wrap(err, "failed to store refresh token")
	}

	accessToken, err := srv.tokenService.GenerateAccessToken(user.ID(), user.Email())
	if err != nil {
		return "", "", errors.Wrap(err, "failed to generate access token")
	}

	return accessToken, secret, nil
}

func (srv *authService) expiresIn() int {
	return int(srv.tokenService.AccessTokenTTL() / time.Second)
}

// announceRegistration publishes the UserRegistered fact after the login committed.
// The publish outlives request cancellation but is bounded by publishTimeout; failures
// are logged and counted, never returned.
func (srv *authService) announceRegistration(ctx context.Context, user *entity.User) {
	event := &service.UserRegisteredEvent{
		UserID:        user.ID(),
		Email:         user.Email(),
		Provider:      user.Provider().String(),
		RegisteredAt:  user.CreatedAt(),
		CorrelationID: uuid.NewString(),
	}

	publishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), srv.publishTimeout)
	defer cancel()

	if err := srv.publisher.PublishUserRegistered(publishCtx, event); err != nil {
		srv.log(ctx).Error("Failed to publish user registered event",
			slog.Any("userID", event.UserID),
			slog.String("correlationID", event.CorrelationID),
			slog.Any("error", err),
		)
		srv.metrics.RecordEventPublish(false)

		return
	}

	srv.metrics.RecordEventPublish(true)
	srv.log(ctx).Debug("Published user registered event",
		slog.Any("userID", event.UserID),
		slog.String("correlationID", event.CorrelationID),
	)
}
