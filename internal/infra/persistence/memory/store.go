// Package memory is a process-local implementation of the repository ports. Transactions
// are serialized and roll back by restoring a snapshot, which gives the same uniqueness
// and revocation semantics as the Postgres adapter for single-instance deployments and tests.
package memory

import (
	"context"
	"maps"
	"sync"

	"authcore/internal/domain/entity"
	"authcore/internal/domain/repository"

	"github.com/google/uuid"
)

type naturalKey struct {
	provider entity.ProviderType
	subject  string
}

type tables struct {
	users          map[uuid.UUID]entity.UserState
	usersByNatural map[naturalKey]uuid.UUID
	tokens         map[uuid.UUID]entity.RefreshTokenState
	tokensByDigest map[string]uuid.UUID
}

func newTables() *tables {
	return &tables{
		users:          make(map[uuid.UUID]entity.UserState),
		usersByNatural: make(map[naturalKey]uuid.UUID),
		tokens:         make(map[uuid.UUID]entity.RefreshTokenState),
		tokensByDigest: make(map[string]uuid.UUID),
	}
}

func (t *tables) clone() *tables {
	return &tables{
		users:          maps.Clone(t.users),
		usersByNatural: maps.Clone(t.usersByNatural),
		tokens:         maps.Clone(t.tokens),
		tokensByDigest: maps.Clone(t.tokensByDigest),
	}
}

// Store holds all rows and implements repository.TransactionManager.
type Store struct {
	mu   sync.Mutex
	data *tables
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{data: newTables()}
}

// NewTransactionManager exposes the store through the domain port. It is an Fx provider.
func NewTransactionManager(store *Store) repository.TransactionManager {
	return store
}

// Execute runs fn with exclusive access to the store. If fn returns an error or panics,
// every write it made is discarded.
func (s *Store) Execute(ctx context.Context, fn func(txRepoFactory repository.RepositoryFactory) error) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	defer func() {
		if r := recover(); r != nil {
			s.data = snapshot
			panic(r)
		}
		if err != nil {
			s.data = snapshot
		}
	}()

	return fn(&factory{data: s.data})
}

type factory struct {
	data *tables
}

// NewUserRepository returns a UserRepository bound to the current transaction.
func (f *factory) NewUserRepository() repository.UserRepository {
	return &userRepository{data: f.data}
}

// NewRefreshTokenRepository returns a RefreshTokenRepository bound to the current transaction.
func (f *factory) NewRefreshTokenRepository() repository.RefreshTokenRepository {
	return &refreshTokenRepository{data: f.data}
}
