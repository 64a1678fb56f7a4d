// Package repository defines the interfaces for the persistence layer.
// These interfaces act as a contract between the domain/application layers and the infrastructure layer.
package repository

import (
	"context"

	"authcore/internal/domain/entity"
	"authcore/internal/errors"

	"github.com/google/uuid"
)

// Domain-specific errors for user persistence.
var (
	// ErrUserNotFound is returned when a user is not found.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserAlreadyExists is returned when the (provider, external subject) pair is already taken.
	ErrUserAlreadyExists = errors.New("user already exists")
)

// UserRepository defines the standard operations for user persistence.
// The (provider, external subject) lookup must be backed by a unique index.
type UserRepository interface {
	// FindByID retrieves a single user by their unique ID.
	FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error)

	// FindByProviderSubject retrieves the user bound to an external identity.
	FindByProviderSubject(ctx context.Context, provider entity.ProviderType, externalSubject string) (*entity.User, error)

	// FindByEmail retrieves every user registered with the email address.
	// Email is not unique across providers, so several users may match.
	FindByEmail(ctx context.Context, email string) ([]*entity.User, error)

	// Create persists a new user. A unique violation on the natural key yields ErrUserAlreadyExists.
	Create(ctx context.Context, user *entity.User) error

	// Update persists the mutable fields of an existing user.
	Update(ctx context.Context, user *entity.User) error
}
