// Package token issues and verifies the two credential kinds of the
// service: short-lived HS256 access tokens and opaque, server-side
// refresh tokens with rotation and terminal revocation.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrExpired reports a structurally valid token past its expiry.
	ErrExpired = errors.New("token expired")
	// ErrMalformed reports everything else: bad signature, wrong alg,
	// garbage input, missing subject.
	ErrMalformed = errors.New("token malformed")
)

type AccessClaims struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	jwt.RegisteredClaims
}

// SignAccess creates an access token for the user. Subject is the
// decimal user id.
func (s *Service) SignAccess(userID uint, username, email string) (string, time.Time, error) {
	exp := time.Now().Add(s.AccessTTL)
	claims := AccessClaims{
		Username: username,
		Email:    email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   formatUserID(userID),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString(s.Secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// ParseAccess verifies signature and expiry, distinguishing expired
// tokens from malformed ones so callers can trigger a refresh.
func (s *Service) ParseAccess(raw string) (*AccessClaims, error) {
	var claims AccessClaims
	t, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected sign method")
		}
		return s.Secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, ErrMalformed
	}
	if !t.Valid || claims.Subject == "" {
		return nil, ErrMalformed
	}
	if _, err := parseUserID(claims.Subject); err != nil {
		return nil, ErrMalformed
	}
	return &claims, nil
}

// UserID returns the numeric subject. Claims returned by ParseAccess
// always carry a parsable subject.
func (c *AccessClaims) UserID() uint {
	id, _ := parseUserID(c.Subject)
	return id
}
