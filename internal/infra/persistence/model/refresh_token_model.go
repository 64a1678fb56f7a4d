package model

import (
	"time"

	"authcore/internal/domain/entity"

	"github.com/google/uuid"
)

// RefreshTokenModel mirrors the 'refresh_tokens' table. Only the digest of the secret is stored.
type RefreshTokenModel struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID        uuid.UUID `gorm:"type:uuid;not null;index:idx_refresh_tokens_user_revoked,priority:1"`
	TokenDigest   string    `gorm:"type:varchar(128);not null;uniqueIndex:uq_refresh_tokens_digest"`
	CreatedAt     time.Time `gorm:"not null"`
	ExpiresAt     time.Time `gorm:"not null;index:idx_refresh_tokens_expires_at"`
	RevokedAt     *time.Time
	IsRevoked     bool       `gorm:"not null;default:false;index:idx_refresh_tokens_user_revoked,priority:2"`
	RotatedFromID *uuid.UUID `gorm:"type:uuid"`
}

// TableName explicitly sets the table name for GORM.
func (RefreshTokenModel) TableName() string {
	return "refresh_tokens"
}

// FromRefreshToken converts the entity into its row representation.
func FromRefreshToken(token *entity.RefreshToken) *RefreshTokenModel {
	state := token.State()

	return &RefreshTokenModel{
		ID:            state.ID,
		UserID:        state.UserID,
		TokenDigest:   state.TokenDigest,
		CreatedAt:     state.CreatedAt,
		ExpiresAt:     state.ExpiresAt,
		RevokedAt:     state.RevokedAt,
		IsRevoked:     state.IsRevoked,
		RotatedFromID: state.RotatedFromID,
	}
}

// ToEntity rebuilds the entity from the row.
func (m *RefreshTokenModel) ToEntity() (*entity.RefreshToken, error) {
	return entity.RestoreRefreshToken(entity.RefreshTokenState{
		ID:            m.ID,
		UserID:        m.UserID,
		TokenDigest:   m.TokenDigest,
		CreatedAt:     m.CreatedAt,
		ExpiresAt:     m.ExpiresAt,
		RevokedAt:     m.RevokedAt,
		IsRevoked:     m.IsRevoked,
		RotatedFromID: m.RotatedFromID,
	})
}
