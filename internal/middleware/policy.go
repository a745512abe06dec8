package middleware

import (
	"net/http"
	"strings"
)

// Rule maps a URL pattern to an access requirement. A pattern is either an
// exact path or a prefix ending in "/*".
type Rule struct {
	Pattern string
	Public  bool
}

// DefaultRules is the access table of the service. Evaluated top to bottom,
// first match wins, the trailing catch-all guards everything unlisted.
func DefaultRules() []Rule {
	return []Rule{
		{Pattern: "/api/users/register", Public: true},
		{Pattern: "/api/users/login", Public: true},
		{Pattern: "/api/users/check-email", Public: true},
		{Pattern: "/api/users/check-nickname", Public: true},
		{Pattern: "/api/users/verify-email", Public: true},
		{Pattern: "/api/users/images/*", Public: true},
		{Pattern: "/api/files/*", Public: true},
		{Pattern: "/*", Public: false},
	}
}

// Authorize rejects requests that hit a non-public rule without an
// authenticated principal. It must run after Authenticate.
func Authorize(rules []Rule) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if requiresAuth(rules, r.URL.Path) {
				if _, ok := UserFromContext(r.Context()); !ok {
					log.WithField("path", r.URL.Path).Debug("rejecting anonymous request")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusUnauthorized)
					_, _ = w.Write([]byte(`{"success":false,"message":"authentication required"}`))
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

func requiresAuth(rules []Rule, path string) bool {
	for _, rule := range rules {
		if matches(rule.Pattern, path) {
			return !rule.Public
		}
	}

	return true
}

func matches(pattern, path string) bool {
	if prefix, ok := strings.CutSuffix(pattern, "/*"); ok {
		return path == prefix || strings.HasPrefix(path, prefix+"/")
	}

	return path == pattern
}
