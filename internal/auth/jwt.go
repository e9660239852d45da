// internal/auth/jwt.go
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/baharkarakas/crowdfund-backend/internal/models"
)

var ErrInvalidToken = errors.New("invalid token")

// TokenManager signs and verifies identity tokens. Tokens are stateless and cannot be
// revoked before they expire.
type TokenManager struct {
	secret []byte
	issuer string
	now    func() time.Time
}

func NewTokenManager(secret, issuer string) *TokenManager {
	return &TokenManager{secret: []byte(secret), issuer: issuer, now: time.Now}
}

type Claims struct {
	UserID string   `json:"id"`
	Roles  []string `json:"auth"`
	jwt.RegisteredClaims
}

// Identity is the verified {id, roles} carried by a token.
type Identity struct {
	UserID string
	Roles  models.RoleSet
}

func (i Identity) IsAdmin() bool { return i.Roles.Has(models.RoleAdmin) }

// Issue signs id and roles into an HS256 token that expires after ttl.
func (tm *TokenManager) Issue(id Identity, ttl time.Duration) (string, time.Time, error) {
	now := tm.now()
	exp := now.Add(ttl)
	claims := Claims{
		UserID: id.UserID,
		Roles:  id.Roles.Strings(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tm.issuer,
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(tm.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return tok, exp, nil
}

// Verify checks signature, algorithm and expiry and returns the embedded identity.
func (tm *TokenManager) Verify(tokenStr string) (Identity, error) {
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		return tm.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(tm.now),
	)
	if err != nil || !tok.Valid || claims.UserID == "" {
		return Identity{}, ErrInvalidToken
	}
	return Identity{UserID: claims.UserID, Roles: models.RoleSetFromStrings(claims.Roles)}, nil
}
