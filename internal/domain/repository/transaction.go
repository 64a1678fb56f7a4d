package repository

import "context"

// TransactionManager runs one unit of work. Every login, refresh and revocation is
// a single Execute call: fn either commits as a whole or leaves no trace.
type TransactionManager interface {
	Execute(ctx context.Context, fn func(txRepoFactory RepositoryFactory) error) error
}

// RepositoryFactory hands out the stores bound to the running unit of work.
type RepositoryFactory interface {
	NewUserRepository() UserRepository
	NewRefreshTokenRepository() RefreshTokenRepository
}
