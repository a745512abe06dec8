// Package auth issues and validates signed, time-bound identity tokens.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("package", "auth")

// Tokens is a stateless token service. A token embeds its subject (email)
// and an expiry fixed at issuance, validity is determined purely by the
// signature and the embedded expiry.
type Tokens struct {
	secret []byte
	ttl    time.Duration

	now func() time.Time
}

// New ...
func New(secret string, ttl time.Duration) *Tokens {
	return &Tokens{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue produces a signed token for the given subject.
func (t *Tokens) Issue(subject string) (string, error) {
	now := t.now()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
	})

	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, nil
}

// Validate reports whether the token is well-formed, correctly signed and not
// expired. The three failure modes are indistinguishable to the caller, the
// cause is only logged.
func (t *Tokens) Validate(token string) bool {
	if _, err := t.parse(token); err != nil {
		log.WithError(err).Debug("invalid token")
		return false
	}

	return true
}

// Subject extracts the subject embedded in the token. It errors on any token
// Validate would reject.
func (t *Tokens) Subject(token string) (string, error) {
	claims, err := t.parse(token)
	if err != nil {
		return "", err
	}

	return claims.Subject, nil
}

func (t *Tokens) parse(token string) (*jwt.RegisteredClaims, error) {
	var claims jwt.RegisteredClaims

	if _, err := jwt.ParseWithClaims(token, &claims,
		func(*jwt.Token) (interface{}, error) { return t.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(t.now),
		jwt.WithExpirationRequired(),
	); err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	return &claims, nil
}
