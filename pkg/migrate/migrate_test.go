package migrate

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/gatic-backend/pkg/db/dbtest"
)

func TestValidateDirAcceptsCommittedMigrations(t *testing.T) {
	require.NoError(t, ValidateDir("migrations"))
}

func TestValidateDirRejectsBadNames(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "init.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644))
	err := ValidateDir(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid migration filename")
}

func TestCreateSQLMigrationWritesTemplate(t *testing.T) {
	dir := t.TempDir()
	path, err := CreateSQLMigration(dir, "Add Loan Index!")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, "_add_loan_index.sql"))
	require.NoError(t, ValidateDir(dir))
}

func TestAutoMigrateIsIdempotent(t *testing.T) {
	conn := dbtest.Open(t)
	require.NoError(t, AutoMigrate(conn))
	assert.True(t, conn.Migrator().HasTable("inventory_rows"))
	assert.True(t, conn.Migrator().HasTable("outbox_dlq"))
}
