package services

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/dmitrijs2005/folioguard/internal/common"
	"github.com/dmitrijs2005/folioguard/internal/cryptox"
	"github.com/dmitrijs2005/folioguard/internal/server/models"
)

// NewAdminInput describes an admin account to provision.
type NewAdminInput struct {
	Username string
	Name     string
	Email    string
	Password string
	// Legacy stores a pre-migration scrypt credential instead of a current
	// one. Used to stage migration tests.
	Legacy bool
}

// CredentialReport describes an account's credential without exposing it.
type CredentialReport struct {
	Username           string
	Scheme             cryptox.Scheme
	IsAdmin            bool
	MustChangePassword bool
}

// CreateAdmin provisions an admin that has to change the password on first
// login.
func (s *AdminService) CreateAdmin(ctx context.Context, in NewAdminInput) (*models.Identity, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" {
		return nil, common.NewBadRequest("Username is required")
	}
	password := strings.TrimSpace(in.Password)
	if utf8.RuneCountInString(password) < common.MinPasswordLength && !in.Legacy {
		return nil, common.NewBadRequest(msgPasswordTooShort)
	}
	if password == "" {
		return nil, common.NewBadRequest("Password is required")
	}

	salt := ""
	if in.Legacy {
		var err error
		if salt, err = cryptox.GenerateLegacySalt(); err != nil {
			return nil, fmt.Errorf("legacy salt: %w", err)
		}
	}
	hashed, err := s.hasher.Hash(password, salt)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	account, err := s.accounts(s.db).Create(ctx, &models.NewAdminAccount{
		Username:           username,
		Name:               optional(in.Name),
		Email:              optional(in.Email),
		PasswordHash:       hashed.Hash,
		PasswordSalt:       hashed.Salt,
		MustChangePassword: true,
		IsAdmin:            true,
	})
	if err != nil {
		return nil, err
	}
	return account.Identity(), nil
}

// RequirePasswordChange sets the must-change flag for username again.
func (s *AdminService) RequirePasswordChange(ctx context.Context, username string) error {
	repo := s.accounts(s.db)

	account, err := repo.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return err
	}
	return repo.SetMustChangePassword(ctx, account.ID, true)
}

// InspectCredential reports which scheme protects username's password.
func (s *AdminService) InspectCredential(ctx context.Context, username string) (*CredentialReport, error) {
	account, err := s.accounts(s.db).FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, err
	}
	return &CredentialReport{
		Username:           account.Username,
		Scheme:             cryptox.Classify(account.PasswordHash, account.PasswordSalt).Scheme(),
		IsAdmin:            account.IsAdmin,
		MustChangePassword: account.MustChangePassword,
	}, nil
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
