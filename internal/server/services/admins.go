// Package services contains the server-side use cases: authenticating an
// admin, changing a password, resolving the access state of a request and
// provisioning accounts.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/dmitrijs2005/folioguard/internal/common"
	"github.com/dmitrijs2005/folioguard/internal/cryptox"
	"github.com/dmitrijs2005/folioguard/internal/dbx"
	"github.com/dmitrijs2005/folioguard/internal/server/models"
	"github.com/dmitrijs2005/folioguard/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/folioguard/internal/server/repositories/repomanager"
)

const (
	msgPasswordTooShort = "Password must be at least 8 characters long"
	msgOnlyAdmins       = "Only admins may change password"
)

// AdminService authenticates admins and changes their passwords.
type AdminService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	hasher      cryptox.PasswordHasher

	// decoy is verified against when the username does not exist, so that
	// a missing username costs the same work as a wrong password on a
	// current-scheme account.
	decoy cryptox.Hashed
}

// NewAdminService constructs an AdminService. It derives the decoy
// credential once, with the same cost as real ones.
func NewAdminService(db *sql.DB, m repomanager.RepositoryManager, hasher cryptox.PasswordHasher) (*AdminService, error) {
	filler, err := common.MakeRandHexString(16)
	if err != nil {
		return nil, fmt.Errorf("decoy password: %w", err)
	}
	decoy, err := hasher.Hash(filler, "")
	if err != nil {
		return nil, fmt.Errorf("decoy credential: %w", err)
	}
	return &AdminService{db: db, repomanager: m, hasher: hasher, decoy: decoy}, nil
}

func (s *AdminService) accounts(db dbx.DBTX) accounts.Repository {
	return s.repomanager.Accounts(db)
}

// Authenticate checks username and password. Unknown usernames, non-admin
// accounts and wrong passwords all yield common.ErrInvalidCredentials.
// Store failures are returned wrapped. Nothing is written.
func (s *AdminService) Authenticate(ctx context.Context, username, password string) (*models.Identity, error) {
	username = strings.TrimSpace(username)
	if username == "" || strings.TrimSpace(password) == "" {
		return nil, common.ErrInvalidCredentials
	}

	account, err := s.accounts(s.db).FindByUsername(ctx, username)
	if err != nil && !errors.Is(err, common.ErrorNotFound) {
		return nil, fmt.Errorf("find admin: %w", err)
	}

	if account == nil {
		s.hasher.Verify(password, s.decoy.Hash, s.decoy.Salt)
		return nil, common.ErrInvalidCredentials
	}
	if !account.IsAdmin {
		// same work as an admin holding this credential
		s.hasher.Verify(password, account.PasswordHash, account.PasswordSalt)
		return nil, common.ErrInvalidCredentials
	}

	if !s.hasher.Verify(password, account.PasswordHash, account.PasswordSalt) {
		return nil, common.ErrInvalidCredentials
	}

	return account.Identity(), nil
}

// ChangePassword stores a fresh current-scheme credential for accountID and
// clears the must-change flag. This is also how a legacy credential
// migrates.
//
// A short password yields a BAD_REQUEST CodedError, a missing or non-admin
// account an UNAUTHORIZED one; neither writes anything.
func (s *AdminService) ChangePassword(ctx context.Context, accountID, newPassword string) error {
	password := strings.TrimSpace(newPassword)
	if utf8.RuneCountInString(password) < common.MinPasswordLength {
		return common.NewBadRequest(msgPasswordTooShort)
	}

	// hashing is slow, keep it outside the transaction
	hashed, err := s.hasher.Hash(password, "")
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.accounts(tx)

		account, err := repo.FindByID(ctx, accountID)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.NewUnauthorized(msgOnlyAdmins)
			}
			return fmt.Errorf("find admin: %w", err)
		}
		if !account.IsAdmin {
			return common.NewUnauthorized(msgOnlyAdmins)
		}

		return repo.UpdatePassword(ctx, account.ID, models.PasswordUpdate{
			PasswordHash:       hashed.Hash,
			PasswordSalt:       hashed.Salt,
			MustChangePassword: false,
		})
	})
}
