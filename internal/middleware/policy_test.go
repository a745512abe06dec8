package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudstory/cloudstory/internal/entities"
)

func TestRequiresAuth(t *testing.T) {
	rules := DefaultRules()

	tt := []struct {
		path     string
		required bool
	}{
		{path: "/api/users/register", required: false},
		{path: "/api/users/login", required: false},
		{path: "/api/users/check-email", required: false},
		{path: "/api/users/check-nickname", required: false},
		{path: "/api/users/verify-email", required: false},
		{path: "/api/users/images/abc.png", required: false},
		{path: "/api/users/images/a/b", required: false},
		{path: "/api/files/uploads/abc.png", required: false},
		{path: "/api/users/update", required: true},
		{path: "/api/users/delete", required: true},
		{path: "/api/posts", required: true},
		{path: "/api/posts/1/like", required: true},
		// an exact rule does not cover subpaths
		{path: "/api/users/login/extra", required: true},
		{path: "/", required: true},
		{path: "/anything", required: true},
	}

	for i := range tt {
		tc := tt[i]

		t.Run(tc.path, func(t *testing.T) {
			assert.Equal(t, tc.required, requiresAuth(rules, tc.path))
		})
	}
}

func TestRequiresAuth_FirstMatchWins(t *testing.T) {
	rules := []Rule{
		{Pattern: "/api/admin/*", Public: false},
		{Pattern: "/api/*", Public: true},
	}

	assert.True(t, requiresAuth(rules, "/api/admin/stats"))
	assert.False(t, requiresAuth(rules, "/api/posts"))

	// no matching rule defaults to protected
	assert.True(t, requiresAuth(rules, "/metrics"))
}

func TestMatches(t *testing.T) {
	assert.True(t, matches("/api/files/*", "/api/files"))
	assert.True(t, matches("/api/files/*", "/api/files/a.png"))
	assert.False(t, matches("/api/files/*", "/api/filesystem"))
	assert.True(t, matches("/api/users/login", "/api/users/login"))
	assert.False(t, matches("/api/users/login", "/api/users"))
}

func TestAuthorize_Anonymous(t *testing.T) {
	var called bool
	next := http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true })

	r := httptest.NewRequest(http.MethodGet, "/api/posts", nil)
	w := httptest.NewRecorder()

	Authorize(DefaultRules())(next).ServeHTTP(w, r)

	require.False(t, called)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"success":false,"message":"authentication required"}`, w.Body.String())
}

func TestAuthorize_AnonymousPublic(t *testing.T) {
	var called bool
	next := http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true })

	r := httptest.NewRequest(http.MethodPost, "/api/users/login", nil)
	w := httptest.NewRecorder()

	Authorize(DefaultRules())(next).ServeHTTP(w, r)

	require.True(t, called)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthorize_Authenticated(t *testing.T) {
	var called bool
	next := http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true })

	r := httptest.NewRequest(http.MethodGet, "/api/posts", nil)
	r = r.WithContext(WithUser(r.Context(), &entities.User{ID: 1}))
	w := httptest.NewRecorder()

	Authorize(DefaultRules())(next).ServeHTTP(w, r)

	require.True(t, called)
	assert.Equal(t, http.StatusOK, w.Code)
}
