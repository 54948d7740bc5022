// Package auth issues and validates admin sessions.
//
// Two Issuer implementations exist: JWTIssuer keeps the whole session in a
// signed cookie value, RedisIssuer keeps it server-side and hands out an
// opaque token. Both bind a session to the credential it was issued under
// through a fingerprint of the password hash.
package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Session is a validated admin session.
type Session struct {
	ID          string    `json:"id"`
	AccountID   string    `json:"account_id"`
	IssuedAt    time.Time `json:"issued_at"`
	ExpiresAt   time.Time `json:"expires_at"`
	Fingerprint string    `json:"fingerprint"`
}

// Issuer creates, checks and revokes session tokens.
//
// Validate returns common.ErrInvalidToken for unknown, forged or malformed
// tokens and common.ErrTokenExpired past ExpiresAt. Any other error is a
// backend failure.
type Issuer interface {
	Establish(ctx context.Context, accountID, fingerprint string) (string, *Session, error)
	Validate(ctx context.Context, token string) (*Session, error)
	Invalidate(ctx context.Context, token string) error
}

// Fingerprint derives the credential fingerprint stored in a session:
// the first 16 hex characters of SHA-256 over the password hash. A password
// change yields a different fingerprint and retires older sessions.
func Fingerprint(passwordHash string) string {
	sum := sha256.Sum256([]byte(passwordHash))
	return hex.EncodeToString(sum[:])[:16]
}
