package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"authcore/internal/domain/entity"
	"authcore/internal/domain/repository"
	"authcore/internal/errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustUser(t *testing.T, provider entity.ProviderType, subject, email string) *entity.User {
	t.Helper()

	user, err := entity.NewUser(provider, subject, email, time.Now().UTC())
	require.NoError(t, err)

	return user
}

func TestStore_UserUniqueness(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	err := store.Execute(ctx, func(f repository.RepositoryFactory) error {
		users := f.NewUserRepository()
		require.NoError(t, users.Create(ctx, mustUser(t, entity.ProviderTypeGoogle, "sub-1", "a@x.com")))
		require.NoError(t, users.Create(ctx, mustUser(t, entity.ProviderTypeFirebase, "sub-1", "a@x.com")))

		err := users.Create(ctx, mustUser(t, entity.ProviderTypeGoogle, "sub-1", "other@x.com"))
		assert.True(t, errors.Is(err, repository.ErrUserAlreadyExists))

		byEmail, err := users.FindByEmail(ctx, "a@x.com")
		require.NoError(t, err)
		assert.Len(t, byEmail, 2)

		found, err := users.FindByProviderSubject(ctx, entity.ProviderTypeFirebase, "sub-1")
		require.NoError(t, err)
		assert.Equal(t, entity.ProviderTypeFirebase, found.Provider())

		_, err = users.FindByID(ctx, uuid.New())
		assert.True(t, errors.Is(err, repository.ErrUserNotFound))

		return nil
	})
	require.NoError(t, err)
}

func TestStore_RollbackOnError(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	user := mustUser(t, entity.ProviderTypeGoogle, "sub-1", "a@x.com")

	boom := errors.New("boom")
	err := store.Execute(ctx, func(f repository.RepositoryFactory) error {
		require.NoError(t, f.NewUserRepository().Create(ctx, user))

		return boom
	})
	assert.True(t, errors.Is(err, boom))

	err = store.Execute(ctx, func(f repository.RepositoryFactory) error {
		_, err := f.NewUserRepository().FindByID(ctx, user.ID())

		return err
	})
	assert.True(t, errors.Is(err, repository.ErrUserNotFound))
}

func TestStore_RollbackOnPanic(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	user := mustUser(t, entity.ProviderTypeGoogle, "sub-1", "a@x.com")

	assert.Panics(t, func() {
		_ = store.Execute(ctx, func(f repository.RepositoryFactory) error {
			_ = f.NewUserRepository().Create(ctx, user)
			panic("boom")
		})
	})

	err := store.Execute(ctx, func(f repository.RepositoryFactory) error {
		_, err := f.NewUserRepository().FindByID(ctx, user.ID())

		return err
	})
	assert.True(t, errors.Is(err, repository.ErrUserNotFound))
}

func TestStore_RefreshTokens(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	user := mustUser(t, entity.ProviderTypeGoogle, "sub-1", "a@x.com")
	now := time.Now().UTC()

	err := store.Execute(ctx, func(f repository.RepositoryFactory) error {
		require.NoError(t, f.NewUserRepository().Create(ctx, user))
		tokens := f.NewRefreshTokenRepository()

		orphan, err := entity.IssueRefreshToken(uuid.New(), "orphan", now, time.Hour, nil)
		require.NoError(t, err)
		assert.True(t, errors.Is(tokens.Create(ctx, orphan), repository.ErrUserNotFound))

		first, err := entity.IssueRefreshToken(user.ID(), "d1", now, time.Hour, nil)
		require.NoError(t, err)
		require.NoError(t, tokens.Create(ctx, first))

		clash, err := entity.IssueRefreshToken(user.ID(), "d1", now, time.Hour, nil)
		require.NoError(t, err)
		assert.True(t, errors.Is(tokens.Create(ctx, clash), repository.ErrDuplicateTokenDigest))

		expired, err := entity.IssueRefreshToken(user.ID(), "d2", now.Add(-2*time.Hour), time.Hour, nil)
		require.NoError(t, err)
		require.NoError(t, tokens.Create(ctx, expired))

		second, err := entity.IssueRefreshToken(user.ID(), "d3", now.Add(time.Second), time.Hour, nil)
		require.NoError(t, err)
		require.NoError(t, tokens.Create(ctx, second))

		active, err := tokens.FindActiveByUserID(ctx, user.ID(), now)
		require.NoError(t, err)
		require.Len(t, active, 2)
		assert.Equal(t, second.ID(), active[0].ID())

		return nil
	})
	require.NoError(t, err)
}

func TestStore_ConcurrentRevokeIsDetected(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	user := mustUser(t, entity.ProviderTypeGoogle, "sub-1", "a@x.com")
	now := time.Now().UTC()

	token, err := entity.IssueRefreshToken(user.ID(), "d1", now, time.Hour, nil)
	require.NoError(t, err)
	require.NoError(t, store.Execute(ctx, func(f repository.RepositoryFactory) error {
		require.NoError(t, f.NewUserRepository().Create(ctx, user))

		return f.NewRefreshTokenRepository().Create(ctx, token)
	}))

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results []error
	)
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := store.Execute(ctx, func(f repository.RepositoryFactory) error {
				tokens := f.NewRefreshTokenRepository()
				found, err := tokens.FindByDigest(ctx, "d1")
				if err != nil {
					return err
				}
				if err := found.Revoke(now.Add(time.Duration(i+1) * time.Millisecond)); err != nil {
					return err
				}

				return tokens.Update(ctx, found)
			})
			mu.Lock()
			results = append(results, err)
			mu.Unlock()
		}()
	}
	wg.Wait()

	succeeded := 0
	for _, err := range results {
		if err == nil {
			succeeded++
		}
	}
	assert.Equal(t, 1, succeeded)
}

func TestStore_RevokeIfActive_SameInstantSingleWinner(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	user := mustUser(t, entity.ProviderTypeGoogle, "sub-1", "a@x.com")
	now := time.Now().UTC()

	token, err := entity.IssueRefreshToken(user.ID(), "d1", now, time.Hour, nil)
	require.NoError(t, err)
	require.NoError(t, store.Execute(ctx, func(f repository.RepositoryFactory) error {
		require.NoError(t, f.NewUserRepository().Create(ctx, user))

		return f.NewRefreshTokenRepository().Create(ctx, token)
	}))

	// Both readers see the token active before either writes.
	var first, second *entity.RefreshToken
	require.NoError(t, store.Execute(ctx, func(f repository.RepositoryFactory) error {
		first, err = f.NewRefreshTokenRepository().FindByDigest(ctx, "d1")

		return err
	}))
	require.NoError(t, store.Execute(ctx, func(f repository.RepositoryFactory) error {
		second, err = f.NewRefreshTokenRepository().FindByDigest(ctx, "d1")

		return err
	}))
	require.True(t, first.IsActive(now))
	require.True(t, second.IsActive(now))

	err = store.Execute(ctx, func(f repository.RepositoryFactory) error {
		return f.NewRefreshTokenRepository().RevokeIfActive(ctx, first.ID(), now)
	})
	require.NoError(t, err)

	err = store.Execute(ctx, func(f repository.RepositoryFactory) error {
		return f.NewRefreshTokenRepository().RevokeIfActive(ctx, second.ID(), now)
	})
	assert.True(t, errors.Is(err, repository.ErrRefreshTokenAlreadyRevoked))

	err = store.Execute(ctx, func(f repository.RepositoryFactory) error {
		return f.NewRefreshTokenRepository().RevokeIfActive(ctx, uuid.New(), now)
	})
	assert.True(t, errors.Is(err, repository.ErrRefreshTokenNotFound))
}

func TestStore_RevokeIfActive_ConcurrentSameInstant(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	user := mustUser(t, entity.ProviderTypeGoogle, "sub-1", "a@x.com")
	now := time.Now().UTC()

	token, err := entity.IssueRefreshToken(user.ID(), "d1", now, time.Hour, nil)
	require.NoError(t, err)
	require.NoError(t, store.Execute(ctx, func(f repository.RepositoryFactory) error {
		require.NoError(t, f.NewUserRepository().Create(ctx, user))

		return f.NewRefreshTokenRepository().Create(ctx, token)
	}))

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results []error
	)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := store.Execute(ctx, func(f repository.RepositoryFactory) error {
				return f.NewRefreshTokenRepository().RevokeIfActive(ctx, token.ID(), now)
			})
			mu.Lock()
			results = append(results, err)
			mu.Unlock()
		}()
	}
	wg.Wait()

	succeeded := 0
	for _, err := range results {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, errors.Is(err, repository.ErrRefreshTokenAlreadyRevoked))
	}
	assert.Equal(t, 1, succeeded)
}

func TestStore_UpdateIsIdempotentForSameState(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	user := mustUser(t, entity.ProviderTypeGoogle, "sub-1", "a@x.com")
	now := time.Now().UTC()

	err := store.Execute(ctx, func(f repository.RepositoryFactory) error {
		require.NoError(t, f.NewUserRepository().Create(ctx, user))
		tokens := f.NewRefreshTokenRepository()

		token, err := entity.IssueRefreshToken(user.ID(), "d1", now, time.Hour, nil)
		require.NoError(t, err)
		require.NoError(t, tokens.Create(ctx, token))

		stale, err := tokens.FindByID(ctx, token.ID())
		require.NoError(t, err)

		require.NoError(t, token.Revoke(now))
		require.NoError(t, tokens.Update(ctx, token))
		require.NoError(t, tokens.Update(ctx, token))

		require.NoError(t, stale.Revoke(now.Add(time.Second)))
		assert.True(t, errors.Is(tokens.Update(ctx, stale), repository.ErrRefreshTokenAlreadyRevoked))

		other, err := entity.IssueRefreshToken(user.ID(), "d2", now, time.Hour, nil)
		require.NoError(t, err)
		require.NoError(t, tokens.Create(ctx, other))

		count, err := tokens.RevokeAllActiveByUserID(ctx, user.ID(), now)
		require.NoError(t, err)
		assert.Equal(t, 1, count)

		active, err := tokens.FindActiveByUserID(ctx, user.ID(), now)
		require.NoError(t, err)
		assert.Empty(t, active)

		return nil
	})
	require.NoError(t, err)
}

func TestStore_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewStore().Execute(ctx, func(repository.RepositoryFactory) error {
		t.Fatal("fn must not run")

		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}
