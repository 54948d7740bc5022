package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/folioguard/internal/common"
	"github.com/dmitrijs2005/folioguard/internal/server/auth"
	"github.com/dmitrijs2005/folioguard/internal/server/models"
	"github.com/dmitrijs2005/folioguard/internal/server/repositories/repomanager"
)

// State is the access state of a request.
type State int

const (
	StateAnonymous State = iota
	StateMustChange
	StateClear
)

func (s State) String() string {
	switch s {
	case StateMustChange:
		return "must_change"
	case StateClear:
		return "clear"
	default:
		return "anonymous"
	}
}

// Access is the resolved state of a request. Stale is set when a token was
// presented but no longer grants access, so the cookie should be dropped.
type Access struct {
	State    State
	Identity *models.Identity
	Session  *auth.Session
	Stale    bool
}

func (a *Access) Authenticated() bool {
	return a != nil && a.State != StateAnonymous
}

var anonymous = Access{State: StateAnonymous}

// AccessService turns session tokens into access states and issues sessions
// for authenticated accounts.
type AccessService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	issuer      auth.Issuer
}

func NewAccessService(db *sql.DB, m repomanager.RepositoryManager, issuer auth.Issuer) *AccessService {
	return &AccessService{db: db, repomanager: m, issuer: issuer}
}

// CurrentState resolves token. Invalid or expired tokens, deleted or demoted
// accounts and sessions issued under a previous password all resolve to
// Anonymous with Stale set. Only backend failures are returned as errors.
func (s *AccessService) CurrentState(ctx context.Context, token string) (*Access, error) {
	if token == "" {
		a := anonymous
		return &a, nil
	}

	session, err := s.issuer.Validate(ctx, token)
	if err != nil {
		if errors.Is(err, common.ErrInvalidToken) || errors.Is(err, common.ErrTokenExpired) {
			return stale(), nil
		}
		return nil, fmt.Errorf("validate session: %w", err)
	}

	account, err := s.repomanager.Accounts(s.db).FindByID(ctx, session.AccountID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return stale(), nil
		}
		return nil, fmt.Errorf("find admin: %w", err)
	}

	if !account.IsAdmin || auth.Fingerprint(account.PasswordHash) != session.Fingerprint {
		return stale(), nil
	}

	state := StateClear
	if account.MustChangePassword {
		state = StateMustChange
	}
	return &Access{State: state, Identity: account.Identity(), Session: session}, nil
}

func stale() *Access {
	a := anonymous
	a.Stale = true
	return &a
}

// Establish issues a session for accountID bound to its current credential.
// Missing and non-admin accounts yield common.ErrorUnauthorized.
func (s *AccessService) Establish(ctx context.Context, accountID string) (string, *auth.Session, error) {
	account, err := s.repomanager.Accounts(s.db).FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", nil, common.ErrorUnauthorized
		}
		return "", nil, fmt.Errorf("find admin: %w", err)
	}
	if !account.IsAdmin {
		return "", nil, common.ErrorUnauthorized
	}

	return s.issuer.Establish(ctx, account.ID, auth.Fingerprint(account.PasswordHash))
}

// Revoke invalidates token on the issuer side.
func (s *AccessService) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.issuer.Invalidate(ctx, token)
}
