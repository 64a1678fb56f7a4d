package migrations

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationsFS_PairsUpAndDown(t *testing.T) {
	entries, err := fs.ReadDir(migrationsFS, "sql")
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	ups := map[string]bool{}
	downs := map[string]bool{}
	for _, entry := range entries {
		name := entry.Name()
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		default:
			t.Errorf("unexpected file %s", name)
		}
	}
	assert.Equal(t, ups, downs)
}

func TestMigrationsFS_DeclaresNaturalKeyIndexes(t *testing.T) {
	users, err := fs.ReadFile(migrationsFS, "sql/000001_create_users.up.sql")
	require.NoError(t, err)
	assert.Contains(t, string(users), "UNIQUE (provider, external_subject)")

	tokens, err := fs.ReadFile(migrationsFS, "sql/000002_create_refresh_tokens.up.sql")
	require.NoError(t, err)
	assert.Contains(t, string(tokens), "UNIQUE (token_digest)")
	assert.Contains(t, string(tokens), "(user_id, is_revoked)")
	assert.Contains(t, string(tokens), "(expires_at)")
}
