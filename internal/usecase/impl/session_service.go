package impl

import (
	"context"
	"fmt"
	"log/slog"

	"authcore/internal/domain/entity"
	domainerrors "authcore/internal/domain/errors"
	"authcore/internal/domain/repository"
	"authcore/internal/domain/service"
	"authcore/internal/errors"
	"authcore/internal/usecase"

	"github.com/google/uuid"
)

// refreshRejection aborts a refresh unit of work for an expected reason. The reason is
// only ever logged and counted; callers see ErrRefreshFailed.
type refreshRejection struct {
	reason  string
	tokenID uuid.UUID
	userID  uuid.UUID
}

func (r *refreshRejection) Error() string {
	return fmt.Sprintf("refresh rejected: %s", r.reason)
}

// RefreshSession rotates the presented refresh secret into a new session.
func (srv *authService) RefreshSession(ctx context.Context, input *usecase.RefreshInput) (*usecase.SessionOutput, error) {
	digest, err := srv.tokenService.Digest(input.RefreshToken)
	if err != nil {
		if errors.Is(err, service.ErrEmptySecret) {
			srv.rejectRefresh(ctx, &refreshRejection{reason: service.RefreshFailureNotFound})

			return nil, domainerrors.ErrRefreshFailed
		}

		return nil, errors.Wrap(err, "failed to digest refresh secret")
	}

	var output *usecase.SessionOutput

	err = srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		now := srv.now()
		tokenRepo := repoFactory.NewRefreshTokenRepository()

		current, err := tokenRepo.FindByDigest(ctx, digest)
		if err != nil {
			if errors.Is(err, repository.ErrRefreshTokenNotFound) {
				return &refreshRejection{reason: service.RefreshFailureNotFound}
			}

			return errors.Wrap(err, "failed to find refresh token")
		}

		switch current.Status(now) {
		case entity.TokenStatusRevoked:
			return &refreshRejection{reason: service.RefreshFailureRevoked, tokenID: current.ID(), userID: current.UserID()}
		case entity.TokenStatusExpired:
			return &refreshRejection{reason: service.RefreshFailureExpired, tokenID: current.ID(), userID: current.UserID()}
		case entity.TokenStatusActive:
		}

		user, err := repoFactory.NewUserRepository().FindByID(ctx, current.UserID())
		if err != nil {
			if errors.Is(err, repository.ErrUserNotFound) {
				return &refreshRejection{reason: service.RefreshFailureUserMissing, tokenID: current.ID(), userID: current.UserID()}
			}

			return errors.Wrap(err, "failed to find token owner")
		}

		if err := current.Revoke(now); err != nil {
			return errors.Wrap(err, "failed to revoke presented token")
		}
		if err := tokenRepo.RevokeIfActive(ctx, current.ID(), now); err != nil {
			if errors.Is(err, repository.ErrRefreshTokenAlreadyRevoked) {
				return &refreshRejection{reason: service.RefreshFailureRaceLost, tokenID: current.ID(), userID: current.UserID()}
			}

			return errors.Wrap(err, "failed to revoke presented token")
		}

		parentID := current.ID()
		accessToken, refreshToken, err := srv.issueSession(ctx, tokenRepo, user, now, &parentID)
		if err != nil {
			return err
		}

		output = &usecase.SessionOutput{
			AccessToken:  accessToken,
			RefreshToken: refreshToken,
			ExpiresIn:    srv.expiresIn(),
			TokenType:    usecase.TokenTypeBearer,
		}

		return nil
	})

	var rejection *refreshRejection
	if errors.As(err, &rejection) {
		srv.rejectRefresh(ctx, rejection)

		return nil, domainerrors.ErrRefreshFailed
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to execute refresh transaction")
	}

	srv.metrics.RecordRefresh()
	srv.metrics.RecordRevocations(revocationScopeRotation, 1)

	return output, nil
}

// rejectRefresh records why a refresh failed and applies the reuse policy.
func (srv *authService) rejectRefresh(ctx context.Context, rejection *refreshRejection) {
	srv.metrics.RecordRefreshFailure(rejection.reason)

	attrs := []any{slog.String("reason", rejection.reason)}
	if rejection.tokenID != uuid.Nil {
		attrs = append(attrs, slog.Any("tokenID", rejection.tokenID), slog.Any("userID", rejection.userID))
	}

	switch rejection.reason {
	case service.RefreshFailureUserMissing:
		srv.log(ctx).Error("Refresh token owner missing", attrs...)
	case service.RefreshFailureRevoked:
		srv.log(ctx).Warn("Revoked refresh token presented", attrs...)
		if srv.revokeAllOnReuse {
			srv.revokeOnReuse(ctx, rejection.userID)
		}
	default:
		srv.log(ctx).Info("Refresh rejected", attrs...)
	}
}

// revokeOnReuse treats a replayed refresh secret as a compromise of every session of its owner.
func (srv *authService) revokeOnReuse(ctx context.Context, userID uuid.UUID) {
	count, err := srv.revokeAll(ctx, userID)
	if err != nil {
		srv.log(ctx).Error("Failed to revoke sessions after refresh token reuse",
			slog.Any("userID", userID),
			slog.Any("error", err),
		)

		return
	}

	srv.metrics.RecordRevocations(revocationScopeReuse, count)
	srv.log(ctx).Warn("Revoked all sessions after refresh token reuse",
		slog.Any("userID", userID),
		slog.Int("count", count),
	)
}

// RevokeSession ends the session of the presented secret. Unknown, expired or already revoked
// secrets are treated as success.
func (srv *authService) RevokeSession(ctx context.Context, input *usecase.RevokeInput) error {
	digest, err := srv.tokenService.Digest(input.RefreshToken)
	if err != nil {
		if errors.Is(err, service.ErrEmptySecret) {
			return domainerrors.ErrValidationFailed.WrapMessage("refresh token is required")
		}

		return errors.Wrap(err, "failed to digest refresh secret")
	}

	revoked := false

	err = srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		now := srv.now()
		tokenRepo := repoFactory.NewRefreshTokenRepository()

		token, err := tokenRepo.FindByDigest(ctx, digest)
		if err != nil {
			if errors.Is(err, repository.ErrRefreshTokenNotFound) {
				return nil
			}

			return errors.Wrap(err, "failed to find refresh token")
		}

		if !token.IsActive(now) {
			return nil
		}

		if err := token.Revoke(now); err != nil {
			return errors.Wrap(err, "failed to revoke refresh token")
		}
		if err := tokenRepo.RevokeIfActive(ctx, token.ID(), now); err != nil {
			if errors.Is(err, repository.ErrRefreshTokenAlreadyRevoked) {
				return nil
			}

			return errors.Wrap(err, "failed to store revoked refresh token")
		}
		revoked = true

		return nil
	})
	if err != nil {
		srv.log(ctx).Error("Failed to revoke session", slog.Any("error", err))

		return errors.Wrap(err, "failed to execute revoke transaction")
	}

	if revoked {
		srv.metrics.RecordRevocations(revocationScopeSingle, 1)
	}
	srv.log(ctx).Info("Session revoked", slog.Bool("changed", revoked))

	return nil
}

// RevokeAllSessions revokes every active session of the user.
func (srv *authService) RevokeAllSessions(ctx context.Context, userID uuid.UUID) (int, error) {
	if userID == uuid.Nil {
		return 0, domainerrors.ErrValidationFailed.WrapMessage("user id is required")
	}

	count, err := srv.revokeAll(ctx, userID)
	if err != nil {
		srv.log(ctx).Error("Failed to revoke all sessions", slog.Any("userID", userID), slog.Any("error", err))

		return 0, errors.Wrap(err, "failed to revoke all sessions")
	}

	srv.metrics.RecordRevocations(revocationScopeAll, count)
	srv.log(ctx).Info("Revoked all sessions", slog.Any("userID", userID), slog.Int("count", count))

	return count, nil
}

func (srv *authService) revokeAll(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int

	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		var err error
		count, err = repoFactory.NewRefreshTokenRepository().RevokeAllActiveByUserID(ctx, userID, srv.now())

		return err
	})
	if err != nil {
		return 0, err
	}

	return count, nil
}

// ListActiveSessions returns the user's refreshable sessions, newest first.
func (srv *authService) ListActiveSessions(ctx context.Context, userID uuid.UUID) ([]*entity.RefreshToken, error) {
	srv.log(ctx).Debug("Listing active sessions", slog.Any("userID", userID))

	var sessions []*entity.RefreshToken

	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		var err error
		sessions, err = repoFactory.NewRefreshTokenRepository().FindActiveByUserID(ctx, userID, srv.now())

		return err
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to list active sessions")
	}

	return sessions, nil
}
