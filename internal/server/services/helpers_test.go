package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/folioguard/internal/common"
	"github.com/dmitrijs2005/folioguard/internal/cryptox"
	"github.com/dmitrijs2005/folioguard/internal/dbx"
	"github.com/dmitrijs2005/folioguard/internal/server/models"
	"github.com/dmitrijs2005/folioguard/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/folioguard/internal/server/repositories/repomanager"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func testHasher() *cryptox.Hasher {
	return cryptox.NewHasher(cryptox.Argon2Params{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32})
}

// fakeAccounts is an in-memory accounts.Repository.
type fakeAccounts struct {
	mu    sync.Mutex
	byID  map[string]*models.AdminAccount
	seq   int
	err   error // returned by every call when set
	calls []string
}

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{byID: map[string]*models.AdminAccount{}}
}

func (f *fakeAccounts) record(call string) error {
	f.calls = append(f.calls, call)
	return f.err
}

func (f *fakeAccounts) FindByUsername(_ context.Context, username string) (*models.AdminAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("FindByUsername"); err != nil {
		return nil, err
	}
	for _, a := range f.byID {
		if a.Username == username {
			cp := *a
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeAccounts) FindByID(_ context.Context, id string) (*models.AdminAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("FindByID"); err != nil {
		return nil, err
	}
	a, ok := f.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeAccounts) UpdatePassword(_ context.Context, id string, u models.PasswordUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("UpdatePassword"); err != nil {
		return err
	}
	a, ok := f.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	a.PasswordHash, a.PasswordSalt, a.MustChangePassword = u.PasswordHash, u.PasswordSalt, u.MustChangePassword
	return nil
}

func (f *fakeAccounts) Create(_ context.Context, n *models.NewAdminAccount) (*models.AdminAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("Create"); err != nil {
		return nil, err
	}
	for _, a := range f.byID {
		if a.Username == n.Username {
			return nil, common.ErrorAlreadyExists
		}
	}
	f.seq++
	a := &models.AdminAccount{
		ID:                 fmt.Sprintf("acc-%d", f.seq),
		Username:           n.Username,
		Name:               n.Name,
		Email:              n.Email,
		PasswordHash:       n.PasswordHash,
		PasswordSalt:       n.PasswordSalt,
		MustChangePassword: n.MustChangePassword,
		IsAdmin:            n.IsAdmin,
	}
	f.byID[a.ID] = a
	cp := *a
	return &cp, nil
}

func (f *fakeAccounts) SetMustChangePassword(_ context.Context, id string, must bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("SetMustChangePassword"); err != nil {
		return err
	}
	a, ok := f.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	a.MustChangePassword = must
	return nil
}

func (f *fakeAccounts) put(t *testing.T, h cryptox.PasswordHasher, username, password, salt string, isAdmin, mustChange bool) *models.AdminAccount {
	t.Helper()
	hashed, err := h.Hash(password, salt)
	require.NoError(t, err)
	a, err := f.Create(context.Background(), &models.NewAdminAccount{
		Username:           username,
		PasswordHash:       hashed.Hash,
		PasswordSalt:       hashed.Salt,
		MustChangePassword: mustChange,
		IsAdmin:            isAdmin,
	})
	require.NoError(t, err)
	f.calls = nil
	return a
}

func (f *fakeAccounts) get(id string) models.AdminAccount {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.byID[id]
}

type fakeRepoManager struct {
	repo *fakeAccounts
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Accounts(dbx.DBTX) accounts.Repository      { return m.repo }

// countingHasher counts Verify calls to observe the decoy path.
type countingHasher struct {
	cryptox.PasswordHasher
	mu       sync.Mutex
	verifies int
	lastHash string
	lastSalt string
}

func (c *countingHasher) Verify(password, hash, salt string) bool {
	c.mu.Lock()
	c.verifies++
	c.lastHash, c.lastSalt = hash, salt
	c.mu.Unlock()
	return c.PasswordHasher.Verify(password, hash, salt)
}

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return db, mock
}

// newSQLiteStore opens a migrated in-memory SQLite database.
func newSQLiteStore(t *testing.T) (*sql.DB, repomanager.RepositoryManager) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, _, err := dbx.Open(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	m := repomanager.NewSQLiteRepositoryManager()
	require.NoError(t, m.RunMigrations(context.Background(), db))
	return db, m
}
