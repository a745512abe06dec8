// Package middleware contains http middleware of service.
package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/cloudstory/cloudstory/internal/entities"
	"github.com/cloudstory/cloudstory/internal/service"
)

var log = logrus.WithField("layer", "middleware")

const bearerPrefix = "Bearer "

// TokenValidator validates tokens and extracts their subject.
type TokenValidator interface {
	Validate(token string) bool
	Subject(token string) (string, error)
}

// UserLoader resolves a token subject to an identity.
type UserLoader interface {
	GetUserByEmail(ctx context.Context, email string) (*entities.User, error)
}

// Authenticate resolves a bearer token from the request, validates it and
// attaches the corresponding identity to the request context. It never
// rejects a request: a missing, invalid or unresolvable token demotes the
// request to anonymous and lets the authorization policy decide its fate.
func Authenticate(tokens TokenValidator, users UserLoader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if u := resolvePrincipal(r, tokens, users); u != nil {
				r = r.WithContext(WithUser(r.Context(), u))
			}

			next.ServeHTTP(w, r)
		})
	}
}

func resolvePrincipal(r *http.Request, tokens TokenValidator, users UserLoader) (u *entities.User) {
	// the filter must never break the chain
	defer func() {
		if rec := recover(); rec != nil {
			log.WithField("panic", rec).Error("panic while resolving principal")
			u = nil
		}
	}()

	header := r.Header.Get("Authorization")
	if header == "" || !strings.HasPrefix(header, bearerPrefix) {
		return nil
	}

	token := strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix))
	if !tokens.Validate(token) {
		log.Debug("invalid token, proceeding as anonymous")
		return nil
	}

	subject, err := tokens.Subject(token)
	if err != nil {
		log.WithError(err).Warn("failed to extract token subject")
		return nil
	}

	u, err = users.GetUserByEmail(r.Context(), subject)
	if err != nil {
		if !errors.Is(err, service.ErrNotFound) {
			log.WithError(err).Error("failed to load token subject")
		} else {
			log.WithField("subject", subject).Warn("token subject not found")
		}
		return nil
	}

	return u
}
