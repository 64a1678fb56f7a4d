package memory

import (
	"context"
	"slices"
	"time"

	"authcore/internal/domain/entity"
	"authcore/internal/domain/repository"
	"authcore/internal/errors"

	"github.com/google/uuid"
)

type refreshTokenRepository struct {
	data *tables
}

func (r *refreshTokenRepository) FindByID(_ context.Context, id uuid.UUID) (*entity.RefreshToken, error) {
	state, ok := r.data.tokens[id]
	if !ok {
		return nil, repository.ErrRefreshTokenNotFound
	}

	return entity.RestoreRefreshToken(state)
}

func (r *refreshTokenRepository) FindByDigest(ctx context.Context, tokenDigest string) (*entity.RefreshToken, error) {
	id, ok := r.data.tokensByDigest[tokenDigest]
	if !ok {
		return nil, repository.ErrRefreshTokenNotFound
	}

	return r.FindByID(ctx, id)
}

func (r *refreshTokenRepository) FindActiveByUserID(_ context.Context, userID uuid.UUID, now time.Time) ([]*entity.RefreshToken, error) {
	var states []entity.RefreshTokenState
	for _, state := range r.data.tokens {
		if state.UserID == userID && !state.IsRevoked && state.ExpiresAt.After(now) {
			states = append(states, state)
		}
	}
	slices.SortFunc(states, func(a, b entity.RefreshTokenState) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	tokens := make([]*entity.RefreshToken, 0, len(states))
	for _, state := range states {
		token, err := entity.RestoreRefreshToken(state)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, token)
	}

	return tokens, nil
}

func (r *refreshTokenRepository) Create(_ context.Context, token *entity.RefreshToken) error {
	state := token.State()

	if _, taken := r.data.tokensByDigest[state.TokenDigest]; taken {
		return errors.Wrapf(repository.ErrDuplicateTokenDigest, "token %s", state.ID)
	}
	if _, ok := r.data.users[state.UserID]; !ok {
		return errors.Wrapf(repository.ErrUserNotFound, "token owner %s", state.UserID)
	}

	r.data.tokens[state.ID] = state
	r.data.tokensByDigest[state.TokenDigest] = state.ID

	return nil
}

func (r *refreshTokenRepository) Update(_ context.Context, token *entity.RefreshToken) error {
	state := token.State()
	stored, ok := r.data.tokens[state.ID]
	if !ok {
		return repository.ErrRefreshTokenNotFound
	}
	if !state.IsRevoked {
		return nil
	}

	if stored.IsRevoked {
		if stored.RevokedAt != nil && stored.RevokedAt.Equal(*state.RevokedAt) {
			return nil
		}

		return errors.Wrapf(repository.ErrRefreshTokenAlreadyRevoked, "token %s", state.ID)
	}

	at := *state.RevokedAt
	stored.IsRevoked = true
	stored.RevokedAt = &at
	r.data.tokens[state.ID] = stored

	return nil
}

func (r *refreshTokenRepository) RevokeIfActive(_ context.Context, id uuid.UUID, at time.Time) error {
	stored, ok := r.data.tokens[id]
	if !ok {
		return repository.ErrRefreshTokenNotFound
	}
	if stored.IsRevoked {
		return errors.Wrapf(repository.ErrRefreshTokenAlreadyRevoked, "token %s", id)
	}

	revokedAt := at
	stored.IsRevoked = true
	stored.RevokedAt = &revokedAt
	r.data.tokens[id] = stored

	return nil
}

func (r *refreshTokenRepository) RevokeAllActiveByUserID(_ context.Context, userID uuid.UUID, at time.Time) (int, error) {
	count := 0
	for id, state := range r.data.tokens {
		if state.UserID != userID || state.IsRevoked || !state.ExpiresAt.After(at) {
			continue
		}

		revokedAt := at
		state.IsRevoked = true
		state.RevokedAt = &revokedAt
		r.data.tokens[id] = state
		count++
	}

	return count, nil
}
