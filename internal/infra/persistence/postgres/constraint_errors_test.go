package postgres

import (
	"testing"

	"authcore/internal/errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestConstraintErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		unique     bool
		foreignKey bool
		notNull    bool
	}{
		{name: "gorm duplicated key", err: gorm.ErrDuplicatedKey, unique: true},
		{name: "gorm foreign key", err: gorm.ErrForeignKeyViolated, foreignKey: true},
		{name: "pgx unique", err: errors.Wrap(&pgconn.PgError{Code: "23505"}, "insert"), unique: true},
		{name: "pgx foreign key", err: &pgconn.PgError{Code: "23503"}, foreignKey: true},
		{name: "pgx not null", err: &pgconn.PgError{Code: "23502"}, notNull: true},
		{name: "pq unique", err: errors.Wrap(&pq.Error{Code: "23505"}, "insert"), unique: true},
		{name: "other", err: errors.New("connection reset")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.unique, isUniqueConstraintViolation(tt.err))
			assert.Equal(t, tt.foreignKey, isForeignKeyConstraintViolation(tt.err))
			assert.Equal(t, tt.notNull, isNotNullConstraintViolation(tt.err))
		})
	}
}
