package postgres

import (
	"context"
	"time"

	"authcore/internal/domain/entity"
	domainerrors "authcore/internal/domain/errors"
	"authcore/internal/domain/repository"
	"authcore/internal/errors"
	"authcore/internal/infra/persistence/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// refreshTokenRepository implements the domain.RefreshTokenRepository interface.
type refreshTokenRepository struct {
	db *gorm.DB
}

// NewRefreshTokenRepository is the constructor for refreshTokenRepository.
func NewRefreshTokenRepository(db *gorm.DB) repository.RefreshTokenRepository {
	return &refreshTokenRepository{db: db}
}

// FindByID retrieves a refresh token record by its unique ID.
func (repo *refreshTokenRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.RefreshToken, error) {
	return repo.first(ctx, "failed to find refresh token by id", "id = ?", id)
}

// FindByDigest retrieves a refresh token record by its digest. Revoked and expired
// records are returned as well; the caller decides what they mean.
func (repo *refreshTokenRepository) FindByDigest(ctx context.Context, tokenDigest string) (*entity.RefreshToken, error) {
	return repo.first(ctx, "failed to find refresh token by digest", "token_digest = ?", tokenDigest)
}

// FindActiveByUserID retrieves the user's unrevoked, unexpired tokens, newest first.
func (repo *refreshTokenRepository) FindActiveByUserID(ctx context.Context, userID uuid.UUID, now time.Time) ([]*entity.RefreshToken, error) {
	var tokenModels []*model.RefreshTokenModel
	if err := repo.db.WithContext(ctx).
		Where("user_id = ? AND is_revoked = ? AND expires_at > ?", userID, false, now).
		Order("created_at DESC").
		Find(&tokenModels).Error; err != nil {
		return nil, errors.Wrap(err, "failed to find active refresh tokens")
	}

	tokens := make([]*entity.RefreshToken, 0, len(tokenModels))
	for _, tokenM := range tokenModels {
		token, err := tokenM.ToEntity()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, token)
	}

	return tokens, nil
}

// Create persists a new refresh token, representing a user session.
func (repo *refreshTokenRepository) Create(ctx context.Context, token *entity.RefreshToken) error {
	tokenM := model.FromRefreshToken(token)

	if err := repo.db.WithContext(ctx).Create(tokenM).Error; err != nil {
		// Convert PostgreSQL errors to domain errors
		if isUniqueConstraintViolation(err) {
			return errors.Wrapf(repository.ErrDuplicateTokenDigest, "token %s", tokenM.ID)
		}
		if isForeignKeyConstraintViolation(err) {
			return errors.Wrapf(repository.ErrUserNotFound, "token owner %s", tokenM.UserID)
		}
		if isNotNullConstraintViolation(err) {
			return domainerrors.ErrValidationFailed.WrapMessage("missing required token information")
		}

		return domainerrors.NewDatabaseExecuteError(err, "failed to create refresh token")
	}

	return nil
}

// Update writes the revocation state of the token. The guard on is_revoked makes a
// concurrent revoke of the same row observable as ErrRefreshTokenAlreadyRevoked, while
// writing the already stored state again matches the revoked_at clause and succeeds.
func (repo *refreshTokenRepository) Update(ctx context.Context, token *entity.RefreshToken) error {
	state := token.State()
	if !state.IsRevoked {
		// Revocation is the only mutable state and it never reverts.
		return nil
	}

	result := repo.db.WithContext(ctx).
		Model(&model.RefreshTokenModel{}).
		Where("id = ? AND (is_revoked = ? OR revoked_at = ?)", state.ID, false, *state.RevokedAt).
		Updates(map[string]any{
			"is_revoked": true,
			"revoked_at": *state.RevokedAt,
		})
	if result.Error != nil {
		return domainerrors.NewDatabaseExecuteError(result.Error, "failed to update refresh token")
	}
	if result.RowsAffected > 0 {
		return nil
	}

	// Nothing matched: either the row is gone or another writer revoked it first.
	if _, err := repo.FindByID(ctx, state.ID); err != nil {
		return err
	}

	return errors.Wrapf(repository.ErrRefreshTokenAlreadyRevoked, "token %s", state.ID)
}

// RevokeIfActive revokes the row only while is_revoked is still false. Zero affected rows
// means another writer got there first, whatever instant it recorded.
func (repo *refreshTokenRepository) RevokeIfActive(ctx context.Context, id uuid.UUID, at time.Time) error {
	result := repo.db.WithContext(ctx).
		Model(&model.RefreshTokenModel{}).
		Where("id = ? AND is_revoked = ?", id, false).
		Updates(map[string]any{
			"is_revoked": true,
			"revoked_at": at,
		})
	if result.Error != nil {
		return domainerrors.NewDatabaseExecuteError(result.Error, "failed to revoke refresh token")
	}
	if result.RowsAffected > 0 {
		return nil
	}

	if _, err := repo.FindByID(ctx, id); err != nil {
		return err
	}

	return errors.Wrapf(repository.ErrRefreshTokenAlreadyRevoked, "token %s", id)
}

// RevokeAllActiveByUserID revokes every active token of the user in one statement.
func (repo *refreshTokenRepository) RevokeAllActiveByUserID(ctx context.Context, userID uuid.UUID, at time.Time) (int, error) {
	result := repo.db.WithContext(ctx).
		Model(&model.RefreshTokenModel{}).
		Where("user_id = ? AND is_revoked = ? AND expires_at > ?", userID, false, at).
		Updates(map[string]any{
			"is_revoked": true,
			"revoked_at": at,
		})
	if result.Error != nil {
		return 0, domainerrors.NewDatabaseExecuteError(result.Error, "failed to revoke refresh tokens")
	}

	return int(result.RowsAffected), nil
}

func (repo *refreshTokenRepository) first(ctx context.Context, op string, query string, args ...any) (*entity.RefreshToken, error) {
	var tokenM model.RefreshTokenModel
	if err := repo.db.WithContext(ctx).Where(query, args...).First(&tokenM).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrRefreshTokenNotFound
		}

		return nil, errors.Wrap(err, op)
	}

	return tokenM.ToEntity()
}
