// Package postgres contains the concrete implementation of the persistence layer using GORM and PostgreSQL.
package postgres

import (
	"context"
	"database/sql"

	"authcore/internal/domain/repository"
	"authcore/internal/errors"

	"gorm.io/gorm"
)

// Units of work rely on row-level conditional updates rather than snapshot
// isolation, so read committed is sufficient.
var txOptions = &sql.TxOptions{Isolation: sql.LevelReadCommitted}

type gormTransactionManager struct {
	db *gorm.DB
}

// gormRepositoryFactory hands out repositories bound to one open transaction.
type gormRepositoryFactory struct {
	tx *gorm.DB
}

func (f *gormRepositoryFactory) NewUserRepository() repository.UserRepository {
	return NewUserRepository(f.tx)
}

func (f *gormRepositoryFactory) NewRefreshTokenRepository() repository.RefreshTokenRepository {
	return NewRefreshTokenRepository(f.tx)
}

// NewTransactionManager is the constructor for gormTransactionManager.
func NewTransactionManager(db *gorm.DB) repository.TransactionManager {
	return &gormTransactionManager{db: db}
}

// Execute runs fn inside one transaction. An error or panic from fn rolls it back,
// and the error from fn is returned unchanged so callers can match domain errors.
func (tm *gormTransactionManager) Execute(ctx context.Context, fn func(repoFactory repository.RepositoryFactory) error) error {
	var fnErr error

	err := tm.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		fnErr = fn(&gormRepositoryFactory{tx: tx})

		return fnErr
	}, txOptions)

	switch {
	case fnErr != nil:
		return fnErr
	case err != nil:
		return errors.Wrap(err, "failed to run transaction")
	}

	return nil
}
