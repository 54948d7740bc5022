// Package models holds the persistent shapes of the admin credential store.
package models

import "time"

// AdminAccount is a stored admin account row. PasswordHash and PasswordSalt
// never leave the credential store and the authenticator.
type AdminAccount struct {
	ID                 string
	Username           string
	Name               *string
	Email              *string
	PasswordHash       string
	PasswordSalt       string
	MustChangePassword bool
	IsAdmin            bool
	CreatedAt          time.Time
}

// Identity is the projection of an account handed to callers after a
// successful authentication. It carries no credential material.
type Identity struct {
	ID                 string
	Username           string
	Name               *string
	Email              *string
	IsAdmin            bool
	MustChangePassword bool
}

// Identity projects the account.
func (a *AdminAccount) Identity() *Identity {
	return &Identity{
		ID:                 a.ID,
		Username:           a.Username,
		Name:               a.Name,
		Email:              a.Email,
		IsAdmin:            a.IsAdmin,
		MustChangePassword: a.MustChangePassword,
	}
}

// NewAdminAccount is the provisioning input for Create.
type NewAdminAccount struct {
	Username           string
	Name               *string
	Email              *string
	PasswordHash       string
	PasswordSalt       string
	MustChangePassword bool
	IsAdmin            bool
}

// PasswordUpdate replaces the credential of one account in a single write.
type PasswordUpdate struct {
	PasswordHash       string
	PasswordSalt       string
	MustChangePassword bool
}
