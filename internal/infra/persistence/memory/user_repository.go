package memory

import (
	"context"
	"slices"

	"authcore/internal/domain/entity"
	"authcore/internal/domain/repository"
	"authcore/internal/errors"

	"github.com/google/uuid"
)

type userRepository struct {
	data *tables
}

func (r *userRepository) FindByID(_ context.Context, id uuid.UUID) (*entity.User, error) {
	state, ok := r.data.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}

	return entity.RestoreUser(state)
}

func (r *userRepository) FindByProviderSubject(ctx context.Context, provider entity.ProviderType, externalSubject string) (*entity.User, error) {
	id, ok := r.data.usersByNatural[naturalKey{provider: provider, subject: externalSubject}]
	if !ok {
		return nil, repository.ErrUserNotFound
	}

	return r.FindByID(ctx, id)
}

func (r *userRepository) FindByEmail(_ context.Context, email string) ([]*entity.User, error) {
	var states []entity.UserState
	for _, state := range r.data.users {
		if state.Email == email {
			states = append(states, state)
		}
	}
	slices.SortFunc(states, func(a, b entity.UserState) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})

	users := make([]*entity.User, 0, len(states))
	for _, state := range states {
		user, err := entity.RestoreUser(state)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}

	return users, nil
}

func (r *userRepository) Create(_ context.Context, user *entity.User) error {
	state := user.State()
	key := naturalKey{provider: state.Provider, subject: state.ExternalSubject}

	if _, taken := r.data.usersByNatural[key]; taken {
		return errors.Wrapf(repository.ErrUserAlreadyExists, "provider %s subject %s", state.Provider, state.ExternalSubject)
	}
	if _, taken := r.data.users[state.ID]; taken {
		return errors.Wrapf(repository.ErrUserAlreadyExists, "id %s", state.ID)
	}

	r.data.users[state.ID] = state
	r.data.usersByNatural[key] = state.ID

	return nil
}

func (r *userRepository) Update(_ context.Context, user *entity.User) error {
	state := user.State()
	stored, ok := r.data.users[state.ID]
	if !ok {
		return repository.ErrUserNotFound
	}

	stored.Email = state.Email
	stored.LastLoginAt = state.LastLoginAt
	r.data.users[state.ID] = stored

	return nil
}
