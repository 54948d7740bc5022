package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/folioguard/internal/common"
	"github.com/dmitrijs2005/folioguard/internal/dbx"
	"github.com/dmitrijs2005/folioguard/internal/server/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgUniqueViolation = "23505"
	pgInvalidTextRepr = "22P02"
)

type PostgresRepository struct {
	db dbx.DBTX
}

var _ Repository = (*PostgresRepository)(nil)

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) FindByUsername(ctx context.Context, username string) (*models.AdminAccount, error) {
	query := `SELECT ` + selectColumns + ` FROM admin_accounts WHERE username = $1`
	return r.findOne(ctx, query, username)
}

func (r *PostgresRepository) FindByID(ctx context.Context, id string) (*models.AdminAccount, error) {
	query := `SELECT ` + selectColumns + ` FROM admin_accounts WHERE id = $1`
	return r.findOne(ctx, query, id)
}

func (r *PostgresRepository) findOne(ctx context.Context, query string, arg any) (*models.AdminAccount, error) {
	a := &models.AdminAccount{}
	var name, email sql.NullString

	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&a.ID, &a.Username, &name, &email, &a.PasswordHash, &a.PasswordSalt,
		&a.MustChangePassword, &a.IsAdmin, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || isMalformedID(err) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	a.Name = nullableString(name)
	a.Email = nullableString(email)
	return a, nil
}

func (r *PostgresRepository) UpdatePassword(ctx context.Context, id string, u models.PasswordUpdate) error {
	query :=
		`UPDATE admin_accounts
		 SET password_hash = $1, password_salt = $2, must_change_password = $3
		 WHERE id = $4`

	res, err := r.db.ExecContext(ctx, query, u.PasswordHash, u.PasswordSalt, u.MustChangePassword, id)
	if isMalformedID(err) {
		return common.ErrorNotFound
	}
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectOneRow(res)
}

func (r *PostgresRepository) SetMustChangePassword(ctx context.Context, id string, must bool) error {
	query := `UPDATE admin_accounts SET must_change_password = $1 WHERE id = $2`

	res, err := r.db.ExecContext(ctx, query, must, id)
	if isMalformedID(err) {
		return common.ErrorNotFound
	}
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectOneRow(res)
}

func (r *PostgresRepository) Create(ctx context.Context, n *models.NewAdminAccount) (*models.AdminAccount, error) {
	query :=
		`INSERT INTO admin_accounts (id, username, name, email, password_hash, password_salt, must_change_password, is_admin)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING created_at`

	a := newAccount(uuid.NewString(), n)

	err := r.db.QueryRowContext(ctx, query,
		a.ID, a.Username, toNullString(a.Name), toNullString(a.Email),
		a.PasswordHash, a.PasswordSalt, a.MustChangePassword, a.IsAdmin).Scan(&a.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return a, nil
}

func newAccount(id string, n *models.NewAdminAccount) *models.AdminAccount {
	return &models.AdminAccount{
		ID:                 id,
		Username:           n.Username,
		Name:               n.Name,
		Email:              n.Email,
		PasswordHash:       n.PasswordHash,
		PasswordSalt:       n.PasswordSalt,
		MustChangePassword: n.MustChangePassword,
		IsAdmin:            n.IsAdmin,
	}
}

// isMalformedID reports whether Postgres rejected an id that is not a UUID.
// No row can carry such an id, so callers treat it as a miss.
func isMalformedID(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgInvalidTextRepr
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
