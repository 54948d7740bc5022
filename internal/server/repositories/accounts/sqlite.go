package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/folioguard/internal/common"
	"github.com/dmitrijs2005/folioguard/internal/dbx"
	"github.com/dmitrijs2005/folioguard/internal/server/models"
	"github.com/google/uuid"
)

// timestamps written by Create, and the CURRENT_TIMESTAMP column default
var sqliteTimeLayouts = []string{time.RFC3339Nano, "2006-01-02 15:04:05"}

type SQLiteRepository struct {
	db dbx.DBTX
}

var _ Repository = (*SQLiteRepository)(nil)

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) FindByUsername(ctx context.Context, username string) (*models.AdminAccount, error) {
	query := `SELECT ` + selectColumns + ` FROM admin_accounts WHERE username = ?`
	return r.findOne(ctx, query, username)
}

func (r *SQLiteRepository) FindByID(ctx context.Context, id string) (*models.AdminAccount, error) {
	query := `SELECT ` + selectColumns + ` FROM admin_accounts WHERE id = ?`
	return r.findOne(ctx, query, id)
}

func (r *SQLiteRepository) findOne(ctx context.Context, query string, arg any) (*models.AdminAccount, error) {
	a := &models.AdminAccount{}
	var name, email sql.NullString
	var createdAt string

	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&a.ID, &a.Username, &name, &email, &a.PasswordHash, &a.PasswordSalt,
		&a.MustChangePassword, &a.IsAdmin, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	a.Name = nullableString(name)
	a.Email = nullableString(email)
	a.CreatedAt = parseSQLiteTime(createdAt)
	return a, nil
}

func (r *SQLiteRepository) UpdatePassword(ctx context.Context, id string, u models.PasswordUpdate) error {
	query :=
		`UPDATE admin_accounts
		 SET password_hash = ?, password_salt = ?, must_change_password = ?
		 WHERE id = ?`

	res, err := r.db.ExecContext(ctx, query, u.PasswordHash, u.PasswordSalt, u.MustChangePassword, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectOneRow(res)
}

func (r *SQLiteRepository) SetMustChangePassword(ctx context.Context, id string, must bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE admin_accounts SET must_change_password = ? WHERE id = ?`, must, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectOneRow(res)
}

func (r *SQLiteRepository) Create(ctx context.Context, n *models.NewAdminAccount) (*models.AdminAccount, error) {
	query :=
		`INSERT INTO admin_accounts (id, username, name, email, password_hash, password_salt, must_change_password, is_admin, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	a := newAccount(uuid.NewString(), n)
	a.CreatedAt = time.Now().UTC()

	_, err := r.db.ExecContext(ctx, query,
		a.ID, a.Username, toNullString(a.Name), toNullString(a.Email),
		a.PasswordHash, a.PasswordSalt, a.MustChangePassword, a.IsAdmin,
		a.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return a, nil
}

func parseSQLiteTime(s string) time.Time {
	for _, layout := range sqliteTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
