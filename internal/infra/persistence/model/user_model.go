package model

import (
	"time"

	"authcore/internal/domain/entity"

	"github.com/google/uuid"
)

// UserModel mirrors the 'users' table.
type UserModel struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey"`
	Email           string    `gorm:"type:varchar(320);not null;index:idx_users_email"`
	Provider        string    `gorm:"type:varchar(32);not null;uniqueIndex:uq_users_provider_subject"`
	ExternalSubject string    `gorm:"type:varchar(255);not null;uniqueIndex:uq_users_provider_subject"`
	CreatedAt       time.Time `gorm:"not null"`
	LastLoginAt     *time.Time
}

// TableName explicitly sets the table name for GORM.
func (UserModel) TableName() string {
	return "users"
}

// FromUser converts the entity into its row representation.
func FromUser(user *entity.User) (*UserModel, error) {
	state := user.State()
	provider, err := ProviderToColumn(state.Provider)
	if err != nil {
		return nil, err
	}

	return &UserModel{
		ID:              state.ID,
		Email:           state.Email,
		Provider:        provider,
		ExternalSubject: state.ExternalSubject,
		CreatedAt:       state.CreatedAt,
		LastLoginAt:     state.LastLoginAt,
	}, nil
}

// ToEntity rebuilds the entity from the row.
func (m *UserModel) ToEntity() (*entity.User, error) {
	provider, err := ProviderFromColumn(m.Provider)
	if err != nil {
		return nil, err
	}

	return entity.RestoreUser(entity.UserState{
		ID:              m.ID,
		Email:           m.Email,
		Provider:        provider,
		ExternalSubject: m.ExternalSubject,
		CreatedAt:       m.CreatedAt,
		LastLoginAt:     m.LastLoginAt,
	})
}
