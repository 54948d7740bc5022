package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/folioguard/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims are the JWT claims of a session cookie: sub, iat, exp and jti plus
// the credential fingerprint.
type Claims struct {
	jwt.RegisteredClaims
	Fingerprint string `json:"fpr"`
}

// JWTIssuer signs sessions as HS256 tokens. It is stateless, so Invalidate
// only relies on the caller clearing the cookie.
type JWTIssuer struct {
	secret   []byte
	validity time.Duration
	now      func() time.Time
}

var _ Issuer = (*JWTIssuer)(nil)

func NewJWTIssuer(secret []byte, validity time.Duration) *JWTIssuer {
	return &JWTIssuer{secret: secret, validity: validity, now: time.Now}
}

func (i *JWTIssuer) Establish(_ context.Context, accountID, fingerprint string) (string, *Session, error) {
	issued := i.now().Truncate(time.Second)
	s := &Session{
		ID:          uuid.NewString(),
		AccountID:   accountID,
		IssuedAt:    issued,
		ExpiresAt:   issued.Add(i.validity),
		Fingerprint: fingerprint,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   s.AccountID,
			ID:        s.ID,
			IssuedAt:  jwt.NewNumericDate(s.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(s.ExpiresAt),
		},
		Fingerprint: fingerprint,
	})

	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign session: %w", err)
	}
	return signed, s, nil
}

func (i *JWTIssuer) Validate(_ context.Context, tokenString string) (*Session, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (any, error) { return i.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrInvalidToken
	}
	if !token.Valid || claims.Subject == "" || claims.IssuedAt == nil {
		return nil, common.ErrInvalidToken
	}

	return &Session{
		ID:          claims.ID,
		AccountID:   claims.Subject,
		IssuedAt:    claims.IssuedAt.Time,
		ExpiresAt:   claims.ExpiresAt.Time,
		Fingerprint: claims.Fingerprint,
	}, nil
}

func (i *JWTIssuer) Invalidate(context.Context, string) error {
	return nil
}
