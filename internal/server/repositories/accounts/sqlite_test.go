package accounts

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/folioguard/internal/common"
	"github.com/dmitrijs2005/folioguard/internal/server/migrations"
	"github.com/dmitrijs2005/folioguard/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

// newSQLiteRepo applies the embedded schema to a private in-memory database.
func newSQLiteRepo(t *testing.T) (*SQLiteRepository, *sql.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := sql.Open("sqlite", dsn)
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	ddl, err := migrations.SQLite.ReadFile("sqlite/00001_create_admin_accounts.sql")
	require.NoError(t, err)
	up := strings.SplitN(string(ddl), "-- +goose Down", 2)[0]
	_, err = db.Exec(up)
	require.NoError(t, err)

	return NewSQLiteRepository(db), db
}

func seed(t *testing.T, repo *SQLiteRepository, username string, isAdmin bool) *models.AdminAccount {
	t.Helper()
	a, err := repo.Create(context.Background(), &models.NewAdminAccount{
		Username:           username,
		PasswordHash:       "hash-" + username,
		PasswordSalt:       "salt-" + username,
		MustChangePassword: true,
		IsAdmin:            isAdmin,
	})
	require.NoError(t, err)
	return a
}

func TestSQLite_CreateAndFind(t *testing.T) {
	repo, _ := newSQLiteRepo(t)
	ctx := context.Background()

	name := "Owner"
	created, err := repo.Create(ctx, &models.NewAdminAccount{
		Username:           "admin",
		Name:               &name,
		PasswordHash:       "h",
		PasswordSalt:       "s",
		MustChangePassword: true,
		IsAdmin:            true,
	})
	require.NoError(t, err)

	byName, err := repo.FindByUsername(ctx, "admin")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byName.ID)
	require.NotNil(t, byName.Name)
	assert.Equal(t, "Owner", *byName.Name)
	assert.Nil(t, byName.Email)
	assert.Equal(t, "h", byName.PasswordHash)
	assert.Equal(t, "s", byName.PasswordSalt)
	assert.True(t, byName.MustChangePassword)
	assert.True(t, byName.IsAdmin)
	assert.WithinDuration(t, created.CreatedAt, byName.CreatedAt, time.Millisecond)

	byID, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, byName, byID)
}

func TestSQLite_NotFound(t *testing.T) {
	repo, _ := newSQLiteRepo(t)
	ctx := context.Background()

	_, err := repo.FindByUsername(ctx, "ghost")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	_, err = repo.FindByID(ctx, "ghost")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	err = repo.UpdatePassword(ctx, "ghost", models.PasswordUpdate{PasswordHash: "x", PasswordSalt: "y"})
	assert.ErrorIs(t, err, common.ErrorNotFound)

	assert.ErrorIs(t, repo.SetMustChangePassword(ctx, "ghost", true), common.ErrorNotFound)
}

func TestSQLite_DuplicateUsername(t *testing.T) {
	repo, _ := newSQLiteRepo(t)
	seed(t, repo, "admin", true)

	_, err := repo.Create(context.Background(), &models.NewAdminAccount{Username: "admin", PasswordHash: "h"})
	assert.ErrorIs(t, err, common.ErrorAlreadyExists)
}

func TestSQLite_UpdatePassword(t *testing.T) {
	repo, _ := newSQLiteRepo(t)
	ctx := context.Background()
	a := seed(t, repo, "admin", true)
	other := seed(t, repo, "other", true)

	err := repo.UpdatePassword(ctx, a.ID, models.PasswordUpdate{
		PasswordHash:       "new-hash",
		PasswordSalt:       "new-salt",
		MustChangePassword: false,
	})
	require.NoError(t, err)

	got, err := repo.FindByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "new-hash", got.PasswordHash)
	assert.Equal(t, "new-salt", got.PasswordSalt)
	assert.False(t, got.MustChangePassword)

	untouched, err := repo.FindByID(ctx, other.ID)
	require.NoError(t, err)
	assert.Equal(t, "hash-other", untouched.PasswordHash)
	assert.True(t, untouched.MustChangePassword)
}

func TestSQLite_SetMustChangePassword(t *testing.T) {
	repo, _ := newSQLiteRepo(t)
	ctx := context.Background()
	a := seed(t, repo, "admin", true)

	require.NoError(t, repo.SetMustChangePassword(ctx, a.ID, false))
	got, err := repo.FindByID(ctx, a.ID)
	require.NoError(t, err)
	assert.False(t, got.MustChangePassword)

	require.NoError(t, repo.SetMustChangePassword(ctx, a.ID, true))
	got, err = repo.FindByID(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, got.MustChangePassword)
}

func TestSQLite_ColumnDefaults(t *testing.T) {
	repo, db := newSQLiteRepo(t)

	_, err := db.Exec(`INSERT INTO admin_accounts (id, username, password_hash) VALUES ('raw-1', 'raw', 'h')`)
	require.NoError(t, err)

	got, err := repo.FindByUsername(context.Background(), "raw")
	require.NoError(t, err)
	assert.True(t, got.MustChangePassword)
	assert.False(t, got.IsAdmin)
	assert.Equal(t, "", got.PasswordSalt)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestParseSQLiteTime(t *testing.T) {
	assert.Equal(t, time.Date(2024, 3, 4, 5, 6, 7, 0, time.UTC), parseSQLiteTime("2024-03-04 05:06:07"))
	assert.True(t, parseSQLiteTime("garbage").IsZero())
}
