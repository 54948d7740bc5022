// Package accounts is the credential store: persistence of admin accounts
// for the Postgres and SQLite backends.
package accounts

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/folioguard/internal/server/models"
)

// Repository reads and writes admin accounts.
//
// A missing account is reported as common.ErrorNotFound, never as a store
// failure. Driver errors are wrapped as "db error: ..." and returned.
type Repository interface {
	FindByUsername(ctx context.Context, username string) (*models.AdminAccount, error)
	FindByID(ctx context.Context, id string) (*models.AdminAccount, error)
	// UpdatePassword replaces hash, salt and the must-change flag in one
	// statement.
	UpdatePassword(ctx context.Context, id string, u models.PasswordUpdate) error
	Create(ctx context.Context, a *models.NewAdminAccount) (*models.AdminAccount, error)
	SetMustChangePassword(ctx context.Context, id string, must bool) error
}

const selectColumns = `id, username, name, email, password_hash, password_salt, must_change_password, is_admin, created_at`

func nullableString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

func toNullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
