package server

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudstory/cloudstory/internal/auth"
	"github.com/cloudstory/cloudstory/internal/entities"
	"github.com/cloudstory/cloudstory/internal/middleware"
	"github.com/cloudstory/cloudstory/internal/service"
	"github.com/cloudstory/cloudstory/internal/service/mock"
)

// asUser attaches a principal to every request, standing in for the
// authentication filter.
func asUser(u *entities.User) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(middleware.WithUser(r.Context(), u)))
		})
	}
}

func multipartBody(t *testing.T, fields map[string]string) (*bytes.Buffer, string) {
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)

	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	return body, mw.FormDataContentType()
}

func Test_register(t *testing.T) {
	ctrl := gomock.NewController(t)
	s := mock.NewMockService(ctrl)

	s.EXPECT().Register(gomock.Any(), &service.RegisterParams{
		Email:    "winter@cloudstory.app",
		Nickname: "winter",
		Password: "password",
	}).Return(&entities.User{ID: 1, Email: "winter@cloudstory.app"}, nil)

	body, contentType := multipartBody(t, map[string]string{
		"user": `{"email":"winter@cloudstory.app","nickname":"winter","password":"password"}`,
	})

	r := httptest.NewRequest(http.MethodPost, "/api/users/register", body)
	r.Header.Set("Content-Type", contentType)

	router := chi.NewRouter()
	router.Post("/api/users/register", server{s: s}.register)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"userId":1}`, w.Body.String())
}

func Test_register_conflict(t *testing.T) {
	ctrl := gomock.NewController(t)
	s := mock.NewMockService(ctrl)

	s.EXPECT().Register(gomock.Any(), gomock.Any()).Return(nil, service.ErrAlreadyExists)

	body, contentType := multipartBody(t, map[string]string{
		"user": `{"email":"winter@cloudstory.app","nickname":"winter","password":"password"}`,
	})

	r := httptest.NewRequest(http.MethodPost, "/api/users/register", body)
	r.Header.Set("Content-Type", contentType)

	router := chi.NewRouter()
	router.Post("/api/users/register", server{s: s}.register)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.JSONEq(t, `{"success":false,"message":"email or nickname already in use"}`, w.Body.String())
}

func Test_register_missingFields(t *testing.T) {
	ctrl := gomock.NewController(t)
	s := mock.NewMockService(ctrl)

	body, contentType := multipartBody(t, map[string]string{
		"user": `{"email":"winter@cloudstory.app"}`,
	})

	r := httptest.NewRequest(http.MethodPost, "/api/users/register", body)
	r.Header.Set("Content-Type", contentType)

	router := chi.NewRouter()
	router.Post("/api/users/register", server{s: s}.register)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func Test_login(t *testing.T) {
	ctrl := gomock.NewController(t)
	s := mock.NewMockService(ctrl)

	tokens := auth.New("secret", time.Hour)

	s.EXPECT().Login(gomock.Any(), "winter@cloudstory.app", "password").Return(&entities.User{
		ID:              1,
		Email:           "winter@cloudstory.app",
		Nickname:        "winter",
		ProfileImageURL: "/api/files/uploads/me.png",
	}, nil)

	r := httptest.NewRequest(http.MethodPost, "/api/users/login",
		strings.NewReader(`{"email":"winter@cloudstory.app","password":"password"}`))

	router := chi.NewRouter()
	router.Post("/api/users/login", server{s: s, tokens: tokens}.login)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)

	var resp LoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.True(t, resp.Success)
	assert.EqualValues(t, 1, resp.UserID)
	assert.Equal(t, "winter@cloudstory.app", resp.Email)
	assert.Equal(t, "winter", resp.Nickname)
	assert.Equal(t, "/api/files/uploads/me.png", resp.ProfileImageURL)

	subject, err := tokens.Subject(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "winter@cloudstory.app", subject)
}

func Test_login_invalidCredentials(t *testing.T) {
	ctrl := gomock.NewController(t)
	s := mock.NewMockService(ctrl)

	s.EXPECT().Login(gomock.Any(), "winter@cloudstory.app", "wrong").Return(nil, service.ErrInvalidCredentials)

	r := httptest.NewRequest(http.MethodPost, "/api/users/login",
		strings.NewReader(`{"email":"winter@cloudstory.app","password":"wrong"}`))

	router := chi.NewRouter()
	router.Post("/api/users/login", server{s: s, tokens: auth.New("secret", time.Hour)}.login)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"success":false,"message":"invalid email or password"}`, w.Body.String())
}

func Test_checkNickname(t *testing.T) {
	tt := []struct {
		name   string
		exists bool

		code int
		body string
	}{
		{
			name:   "available",
			exists: false,
			code:   http.StatusOK,
			body:   `{"success":true,"available":true}`,
		},
		{
			name:   "taken",
			exists: true,
			code:   http.StatusConflict,
			body:   `{"success":false,"available":false,"message":"nickname already in use"}`,
		},
	}

	for i := range tt {
		tc := tt[i]

		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			s := mock.NewMockService(ctrl)

			s.EXPECT().NicknameExists(gomock.Any(), "winter").Return(tc.exists, nil)

			r := httptest.NewRequest(http.MethodGet, "/api/users/check-nickname?nickname=winter", nil)

			router := chi.NewRouter()
			router.Get("/api/users/check-nickname", server{s: s}.checkNickname)

			w := httptest.NewRecorder()
			router.ServeHTTP(w, r)

			assert.Equal(t, tc.code, w.Code)
			assert.JSONEq(t, tc.body, w.Body.String())
		})
	}
}

func Test_checkEmail(t *testing.T) {
	ctrl := gomock.NewController(t)
	s := mock.NewMockService(ctrl)

	s.EXPECT().SendVerificationCode(gomock.Any(), "new@cloudstory.app").Return(nil)

	r := httptest.NewRequest(http.MethodPost, "/api/users/check-email",
		strings.NewReader(`{"email":"new@cloudstory.app"}`))

	router := chi.NewRouter()
	router.Post("/api/users/check-email", server{s: s}.checkEmail)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"message":"verification code sent to email"}`, w.Body.String())
}

func Test_verifyEmail(t *testing.T) {
	ctrl := gomock.NewController(t)
	s := mock.NewMockService(ctrl)

	s.EXPECT().VerifyEmail(gomock.Any(), "new@cloudstory.app", "ABC123").Return(false, nil)

	r := httptest.NewRequest(http.MethodPost, "/api/users/verify-email",
		strings.NewReader(`{"email":"new@cloudstory.app","verificationCode":"ABC123"}`))

	router := chi.NewRouter()
	router.Post("/api/users/verify-email", server{s: s}.verifyEmail)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"success":false,"message":"invalid verification code"}`, w.Body.String())
}

func Test_getPost(t *testing.T) {
	ctrl := gomock.NewController(t)
	s := mock.NewMockService(ctrl)

	timestamp := time.Unix(100, 0).UTC()

	s.EXPECT().GetPost(gomock.Any(), int64(7)).Return(&entities.Post{
		ID:           7,
		UserID:       1,
		Title:        "title",
		Content:      "content",
		LikeCount:    2,
		DislikeCount: 1,
		ViewCount:    10,
		CommentCount: 3,
		CreatedAt:    timestamp,
		UpdatedAt:    timestamp,
		Photos: []entities.PostPhoto{
			{URL: "/api/files/uploads/a.png", Order: 0},
			{URL: "/api/files/uploads/b.png", Order: 1},
		},
	}, nil)

	r := httptest.NewRequest(http.MethodGet, "/api/posts/7", nil)

	router := chi.NewRouter()
	router.Get("/api/posts/{postId}", server{s: s}.getPost)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `
{
   "success":true,
   "post":{
      "id":7,
      "userId":1,
      "title":"title",
      "content":"content",
      "likeCount":2,
      "dislikeCount":1,
      "viewCount":10,
      "commentCount":3,
      "createdAt":"1970-01-01T00:01:40Z",
      "updatedAt":"1970-01-01T00:01:40Z",
      "photos":[
         {"url":"/api/files/uploads/a.png","photoOrder":0},
         {"url":"/api/files/uploads/b.png","photoOrder":1}
      ]
   }
}`, w.Body.String())
}

func Test_getPost_notFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	s := mock.NewMockService(ctrl)

	s.EXPECT().GetPost(gomock.Any(), int64(7)).Return(nil, service.ErrNotFound)

	r := httptest.NewRequest(http.MethodGet, "/api/posts/7", nil)

	router := chi.NewRouter()
	router.Get("/api/posts/{postId}", server{s: s}.getPost)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"success":false,"message":"not found"}`, w.Body.String())
}

func Test_listPosts(t *testing.T) {
	ctrl := gomock.NewController(t)
	s := mock.NewMockService(ctrl)

	s.EXPECT().ListPosts(gomock.Any(), uint32(2), uint32(5)).Return([]*entities.Post{}, uint32(11), nil)

	r := httptest.NewRequest(http.MethodGet, "/api/posts?page=2&limit=5", nil)

	router := chi.NewRouter()
	router.Get("/api/posts", server{s: s}.listPosts)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"posts":[],"total":11,"page":2}`, w.Body.String())
}

func Test_listPosts_invalidParams(t *testing.T) {
	ctrl := gomock.NewController(t)
	s := mock.NewMockService(ctrl)

	router := chi.NewRouter()
	router.Get("/api/posts", server{s: s}.listPosts)

	for _, query := range []string{"page=0", "page=abc", "limit=0", "limit=101"} {
		r := httptest.NewRequest(http.MethodGet, "/api/posts?"+query, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, r)

		assert.Equal(t, http.StatusBadRequest, w.Code, query)
	}
}

func Test_likePost(t *testing.T) {
	ctrl := gomock.NewController(t)
	s := mock.NewMockService(ctrl)

	s.EXPECT().LikePost(gomock.Any(), int64(7), int64(1)).Return(nil)

	r := httptest.NewRequest(http.MethodPost, "/api/posts/7/like", nil)

	router := chi.NewRouter()
	router.Use(asUser(&entities.User{ID: 1}))
	router.Post("/api/posts/{postId}/like", server{s: s}.likePost)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"message":"post liked successfully"}`, w.Body.String())
}

func Test_likePost_alreadyReacted(t *testing.T) {
	ctrl := gomock.NewController(t)
	s := mock.NewMockService(ctrl)

	s.EXPECT().LikePost(gomock.Any(), int64(7), int64(1)).Return(service.ErrAlreadyReacted)

	r := httptest.NewRequest(http.MethodPost, "/api/posts/7/like", nil)

	router := chi.NewRouter()
	router.Use(asUser(&entities.User{ID: 1}))
	router.Post("/api/posts/{postId}/like", server{s: s}.likePost)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.JSONEq(t, `{"success":false,"message":"already reacted"}`, w.Body.String())
}

func Test_unlikePost_notReacted(t *testing.T) {
	ctrl := gomock.NewController(t)
	s := mock.NewMockService(ctrl)

	s.EXPECT().UnlikePost(gomock.Any(), int64(7), int64(1)).Return(service.ErrNotReacted)

	r := httptest.NewRequest(http.MethodDelete, "/api/posts/7/like", nil)

	router := chi.NewRouter()
	router.Use(asUser(&entities.User{ID: 1}))
	router.Delete("/api/posts/{postId}/like", server{s: s}.unlikePost)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.JSONEq(t, `{"success":false,"message":"not reacted"}`, w.Body.String())
}

func Test_likePost_anonymous(t *testing.T) {
	ctrl := gomock.NewController(t)
	s := mock.NewMockService(ctrl)

	r := httptest.NewRequest(http.MethodPost, "/api/posts/7/like", nil)

	router := chi.NewRouter()
	router.Post("/api/posts/{postId}/like", server{s: s}.likePost)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func Test_createPost(t *testing.T) {
	ctrl := gomock.NewController(t)
	s := mock.NewMockService(ctrl)

	s.EXPECT().CreatePost(gomock.Any(), &service.CreatePostParams{
		UserID:  1,
		Title:   "title",
		Content: "content",
		Photos:  []service.Upload{},
	}).Return(&entities.Post{ID: 7, UserID: 1, Title: "title", Content: "content", Photos: []entities.PostPhoto{}}, nil)

	body, contentType := multipartBody(t, map[string]string{
		"title":   "title",
		"content": "content",
	})

	r := httptest.NewRequest(http.MethodPost, "/api/posts", body)
	r.Header.Set("Content-Type", contentType)

	router := chi.NewRouter()
	router.Use(asUser(&entities.User{ID: 1}))
	router.Post("/api/posts", server{s: s}.createPost)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)

	var resp PostResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.EqualValues(t, 7, resp.Post.ID)
}

func Test_deletePost_notOwner(t *testing.T) {
	ctrl := gomock.NewController(t)
	s := mock.NewMockService(ctrl)

	s.EXPECT().DeletePost(gomock.Any(), int64(7), int64(1)).Return(service.ErrNotOwner)

	r := httptest.NewRequest(http.MethodDelete, "/api/posts/7", nil)

	router := chi.NewRouter()
	router.Use(asUser(&entities.User{ID: 1}))
	router.Delete("/api/posts/{postId}", server{s: s}.deletePost)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.JSONEq(t, `{"success":false,"message":"not an owner"}`, w.Body.String())
}

func Test_popularToday(t *testing.T) {
	ctrl := gomock.NewController(t)
	s := mock.NewMockService(ctrl)

	s.EXPECT().PopularToday(gomock.Any()).Return([]*entities.Post{
		{ID: 2, ViewCount: 20, Photos: []entities.PostPhoto{}},
		{ID: 1, ViewCount: 10, Photos: []entities.PostPhoto{}},
	}, nil)

	r := httptest.NewRequest(http.MethodGet, "/api/posts/popular/today", nil)

	router := chi.NewRouter()
	router.Get("/api/posts/popular/today", server{s: s}.popularToday)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)

	var resp PopularPostsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Posts, 2)
	assert.EqualValues(t, 2, resp.Posts[0].ID)
	assert.EqualValues(t, 1, resp.Posts[1].ID)
}

func Test_addComment(t *testing.T) {
	ctrl := gomock.NewController(t)
	s := mock.NewMockService(ctrl)

	s.EXPECT().AddComment(gomock.Any(), int64(7), int64(1), "hello").Return(&entities.Comment{
		ID:     5,
		PostID: 7,
		UserID: 1,
	}, nil)

	r := httptest.NewRequest(http.MethodPost, "/api/posts/7/comments",
		strings.NewReader(`{"content":"hello"}`))

	router := chi.NewRouter()
	router.Use(asUser(&entities.User{ID: 1}))
	router.Post("/api/posts/{postId}/comments", server{s: s}.addComment)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)

	var resp CommentResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.EqualValues(t, 5, resp.Comment.ID)
}

func Test_addComment_empty(t *testing.T) {
	ctrl := gomock.NewController(t)
	s := mock.NewMockService(ctrl)

	r := httptest.NewRequest(http.MethodPost, "/api/posts/7/comments",
		strings.NewReader(`{"content":""}`))

	router := chi.NewRouter()
	router.Use(asUser(&entities.User{ID: 1}))
	router.Post("/api/posts/{postId}/comments", server{s: s}.addComment)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func Test_deleteComment(t *testing.T) {
	ctrl := gomock.NewController(t)
	s := mock.NewMockService(ctrl)

	s.EXPECT().DeleteComment(gomock.Any(), int64(7), int64(5), int64(1)).Return(nil)

	r := httptest.NewRequest(http.MethodDelete, "/api/posts/7/comments/5", nil)

	router := chi.NewRouter()
	router.Use(asUser(&entities.User{ID: 1}))
	router.Delete("/api/posts/{postId}/comments/{commentId}", server{s: s}.deleteComment)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"message":"comment deleted successfully"}`, w.Body.String())
}
