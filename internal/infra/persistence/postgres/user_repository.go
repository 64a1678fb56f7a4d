package postgres

import (
	"context"

	"authcore/internal/domain/entity"
	domainerrors "authcore/internal/domain/errors"
	"authcore/internal/domain/repository"
	"authcore/internal/errors"
	"authcore/internal/infra/persistence/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// userRepository implements the domain.UserRepository interface using GORM.
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository is the constructor for userRepository.
// It returns the repository as a domain.UserRepository interface, adhering to dependency inversion.
func NewUserRepository(db *gorm.DB) repository.UserRepository {
	return &userRepository{db: db}
}

// FindByID retrieves a single user by their unique ID.
func (repo *userRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	return repo.first(ctx, "failed to find user by id", "id = ?", id)
}

// FindByProviderSubject retrieves the user bound to an external identity.
func (repo *userRepository) FindByProviderSubject(ctx context.Context, provider entity.ProviderType, externalSubject string) (*entity.User, error) {
	column, err := model.ProviderToColumn(provider)
	if err != nil {
		return nil, err
	}

	return repo.first(ctx, "failed to find user by provider subject",
		"provider = ? AND external_subject = ?", column, externalSubject)
}

// FindByEmail retrieves every user registered with the email address.
func (repo *userRepository) FindByEmail(ctx context.Context, email string) ([]*entity.User, error) {
	var userModels []*model.UserModel
	if err := repo.db.WithContext(ctx).
		Where("email = ?", email).
		Order("created_at").
		Find(&userModels).Error; err != nil {
		return nil, errors.Wrap(err, "failed to find users by email")
	}

	users := make([]*entity.User, 0, len(userModels))
	for _, userM := range userModels {
		user, err := userM.ToEntity()
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}

	return users, nil
}

// Create persists a new user entity to the database.
func (repo *userRepository) Create(ctx context.Context, user *entity.User) error {
	userM, err := model.FromUser(user)
	if err != nil {
		return err
	}

	if err := repo.db.WithContext(ctx).Create(userM).Error; err != nil {
		// Convert PostgreSQL errors to domain errors
		if isUniqueConstraintViolation(err) {
			return errors.Wrapf(repository.ErrUserAlreadyExists, "provider %s subject %s", userM.Provider, userM.ExternalSubject)
		}
		if isNotNullConstraintViolation(err) {
			return domainerrors.ErrValidationFailed.WrapMessage("missing required user information")
		}

		return domainerrors.NewDatabaseExecuteError(err, "failed to create user")
	}

	return nil
}

// Update persists the mutable columns of an existing user.
func (repo *userRepository) Update(ctx context.Context, user *entity.User) error {
	state := user.State()

	result := repo.db.WithContext(ctx).
		Model(&model.UserModel{}).
		Where("id = ?", state.ID).
		Updates(map[string]any{
			"email":         state.Email,
			"last_login_at": state.LastLoginAt,
		})
	if result.Error != nil {
		return domainerrors.NewDatabaseExecuteError(result.Error, "failed to update user")
	}
	if result.RowsAffected == 0 {
		return repository.ErrUserNotFound
	}

	return nil
}

func (repo *userRepository) first(ctx context.Context, op string, query string, args ...any) (*entity.User, error) {
	var userM model.UserModel
	if err := repo.db.WithContext(ctx).Where(query, args...).First(&userM).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrUserNotFound
		}

		return nil, errors.Wrap(err, op)
	}

	// Map the persistence model back to a pure domain entity before returning.
	return userM.ToEntity()
}
