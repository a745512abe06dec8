package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/sirupsen/logrus"

	"github.com/cloudstory/cloudstory/internal/entities"
)

const maxLimit = 100
const defaultLimit = 10

// Error ...
type Error struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// OK is a bare success response.
type OK struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// User ...
type User struct {
	ID              int64     `json:"id"`
	Email           string    `json:"email"`
	Nickname        string    `json:"nickname"`
	ProfileImageURL string    `json:"profileImageUrl"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// Post ...
type Post struct {
	ID           int64       `json:"id"`
	UserID       int64       `json:"userId"`
	Title        string      `json:"title"`
	Content      string      `json:"content"`
	LikeCount    uint32      `json:"likeCount"`
	DislikeCount uint32      `json:"dislikeCount"`
	ViewCount    uint32      `json:"viewCount"`
	CommentCount uint32      `json:"commentCount"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`
	Photos       []PostPhoto `json:"photos"`
}

// PostPhoto ...
type PostPhoto struct {
	URL        string `json:"url"`
	PhotoOrder int    `json:"photoOrder"`
}

// Comment ...
type Comment struct {
	ID           int64     `json:"id"`
	PostID       int64     `json:"postId"`
	UserID       int64     `json:"userId"`
	Content      string    `json:"content"`
	LikeCount    uint32    `json:"likeCount"`
	DislikeCount uint32    `json:"dislikeCount"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// RegisterRequest is the json carried in the `user` part of the register form.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Nickname string `json:"nickname"`
}

// RegisterResponse ...
type RegisterResponse struct {
	Success bool  `json:"success"`
	UserID  int64 `json:"userId"`
}

// LoginRequest ...
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse ...
type LoginResponse struct {
	Success         bool   `json:"success"`
	Token           string `json:"token"`
	UserID          int64  `json:"userId"`
	Email           string `json:"email"`
	Nickname        string `json:"nickname"`
	ProfileImageURL string `json:"profileImageUrl"`
}

// CheckEmailRequest ...
type CheckEmailRequest struct {
	Email string `json:"email"`
}

// CheckNicknameResponse ...
type CheckNicknameResponse struct {
	Success   bool   `json:"success"`
	Available bool   `json:"available"`
	Message   string `json:"message,omitempty"`
}

// VerifyEmailRequest ...
type VerifyEmailRequest struct {
	Email            string `json:"email"`
	VerificationCode string `json:"verificationCode"`
}

// UpdateUserRequest is the json carried in the `user` part of the update form.
type UpdateUserRequest struct {
	Nickname string `json:"nickname"`
	Password string `json:"password"`
}

// PostResponse ...
type PostResponse struct {
	Success bool  `json:"success"`
	Post    *Post `json:"post"`
}

// ListPostsResponse ...
type ListPostsResponse struct {
	Success bool    `json:"success"`
	Posts   []*Post `json:"posts"`
	Total   uint32  `json:"total"`
	Page    uint32  `json:"page"`
}

// PopularPostsResponse ...
type PopularPostsResponse struct {
	Success bool    `json:"success"`
	Posts   []*Post `json:"posts"`
}

// CommentResponse ...
type CommentResponse struct {
	Success bool     `json:"success"`
	Comment *Comment `json:"comment"`
}

// ListCommentsResponse ...
type ListCommentsResponse struct {
	Success  bool       `json:"success"`
	Comments []*Comment `json:"comments"`
	Page     uint32     `json:"page"`
}

// CommentRequest ...
type CommentRequest struct {
	Content string `json:"content"`
}

// UploadFileResponse ...
type UploadFileResponse struct {
	Success         bool   `json:"success"`
	FileName        string `json:"fileName"`
	FileDownloadURI string `json:"fileDownloadUri"`
	Size            int    `json:"size"`
}

func writeOK(w http.ResponseWriter, status int, v interface{}) {
	b, _ := json.Marshal(v)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(b)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeOK(w, status, Error{Success: false, Message: message})
}

func writeInternalError(r *http.Request, w http.ResponseWriter, message string) {
	logrus.WithField("request_id", middleware.GetReqID(r.Context())).Error(message)
	// the cause stays in the log, callers get a generic body
	writeError(w, http.StatusInternalServerError, "internal error")
}

func toAPIUser(u *entities.User) *User {
	if u == nil {
		return nil
	}

	return &User{
		ID:              u.ID,
		Email:           u.Email,
		Nickname:        u.Nickname,
		ProfileImageURL: u.ProfileImageURL,
		CreatedAt:       u.CreatedAt,
		UpdatedAt:       u.UpdatedAt,
	}
}

func toAPIPost(p *entities.Post) *Post {
	if p == nil {
		return nil
	}

	photos := make([]PostPhoto, len(p.Photos))
	for i, v := range p.Photos {
		photos[i] = PostPhoto{
			URL:        v.URL,
			PhotoOrder: v.Order,
		}
	}

	return &Post{
		ID:           p.ID,
		UserID:       p.UserID,
		Title:        p.Title,
		Content:      p.Content,
		LikeCount:    p.LikeCount,
		DislikeCount: p.DislikeCount,
		ViewCount:    p.ViewCount,
		CommentCount: p.CommentCount,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
		Photos:       photos,
	}
}

func toAPIPosts(pp []*entities.Post) []*Post {
	out := make([]*Post, len(pp))
	for i, v := range pp {
		out[i] = toAPIPost(v)
	}

	return out
}

func toAPIComment(c *entities.Comment) *Comment {
	if c == nil {
		return nil
	}

	return &Comment{
		ID:           c.ID,
		PostID:       c.PostID,
		UserID:       c.UserID,
		Content:      c.Content,
		LikeCount:    c.LikeCount,
		DislikeCount: c.DislikeCount,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
}

func toAPIComments(cc []*entities.Comment) []*Comment {
	out := make([]*Comment, len(cc))
	for i, v := range cc {
		out[i] = toAPIComment(v)
	}

	return out
}
