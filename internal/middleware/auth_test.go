package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudstory/cloudstory/internal/auth"
	"github.com/cloudstory/cloudstory/internal/entities"
	"github.com/cloudstory/cloudstory/internal/service"
	servicemock "github.com/cloudstory/cloudstory/internal/service/mock"
)

func TestAuthenticate(t *testing.T) {
	tokens := auth.New("secret", time.Hour)

	valid, err := tokens.Issue("winter@cloudstory.app")
	require.NoError(t, err)

	foreign, err := auth.New("other", time.Hour).Issue("winter@cloudstory.app")
	require.NoError(t, err)

	u := &entities.User{ID: 1, Email: "winter@cloudstory.app"}

	tt := []struct {
		name   string
		header string
		expect func(users *servicemock.MockService)

		principal *entities.User
	}{
		{
			name: "no header",
		},
		{
			name:   "not a bearer",
			header: "Basic dXNlcjpwYXNz",
		},
		{
			name:   "malformed token",
			header: "Bearer garbage",
		},
		{
			name:   "wrong signature",
			header: "Bearer " + foreign,
		},
		{
			name:   "valid token",
			header: "Bearer " + valid,
			expect: func(users *servicemock.MockService) {
				users.EXPECT().GetUserByEmail(gomock.Any(), "winter@cloudstory.app").Return(u, nil)
			},
			principal: u,
		},
		{
			name:   "subject no longer exists",
			header: "Bearer " + valid,
			expect: func(users *servicemock.MockService) {
				users.EXPECT().GetUserByEmail(gomock.Any(), "winter@cloudstory.app").Return(nil, service.ErrNotFound)
			},
		},
		{
			name:   "loader failure",
			header: "Bearer " + valid,
			expect: func(users *servicemock.MockService) {
				users.EXPECT().GetUserByEmail(gomock.Any(), "winter@cloudstory.app").Return(nil, context.Canceled)
			},
		},
	}

	for i := range tt {
		tc := tt[i]

		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)

			users := servicemock.NewMockService(ctrl)
			if tc.expect != nil {
				tc.expect(users)
			}

			r := httptest.NewRequest(http.MethodGet, "/api/posts", nil)
			if tc.header != "" {
				r.Header.Set("Authorization", tc.header)
			}

			var (
				called    bool
				principal *entities.User
			)
			next := http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
				called = true
				principal, _ = UserFromContext(r.Context())
			})

			w := httptest.NewRecorder()
			Authenticate(tokens, users)(next).ServeHTTP(w, r)

			// the filter never rejects, the worst outcome is anonymity
			require.True(t, called)
			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tc.principal, principal)
		})
	}
}

func TestAuthenticate_ExpiredToken(t *testing.T) {
	ctrl := gomock.NewController(t)

	users := servicemock.NewMockService(ctrl)

	tokens := auth.New("secret", -time.Hour)
	expired, err := tokens.Issue("winter@cloudstory.app")
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodGet, "/api/posts", nil)
	r.Header.Set("Authorization", "Bearer "+expired)

	var called bool
	next := http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		called = true
		_, ok := UserFromContext(r.Context())
		assert.False(t, ok)
	})

	Authenticate(tokens, users)(next).ServeHTTP(httptest.NewRecorder(), r)
	require.True(t, called)
}
