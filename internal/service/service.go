// Package service contains interface for service business-logic.
package service

import (
	"context"
	"errors"

	"github.com/cloudstory/cloudstory/internal/entities"
)

//go:generate mockgen -destination=./mock/service.go -package=mock -source=service.go

// ErrNotFound returned when a requested user, post or comment does not exist.
var ErrNotFound = errors.New("not found")

// ErrAlreadyExists returned when an email or nickname is already taken.
var ErrAlreadyExists = errors.New("already exists")

// ErrAlreadyReacted returned when a reaction of the same kind already exists
// for the (user, target) pair. It is a conflict signal, not a hard failure.
var ErrAlreadyReacted = errors.New("already reacted")

// ErrNotReacted returned when there is no reaction to remove.
var ErrNotReacted = errors.New("not reacted")

// ErrNotOwner returned when a user modifies somebody else's post or comment.
var ErrNotOwner = errors.New("not an owner")

// ErrInvalidCredentials returned on login with unknown email or wrong password.
var ErrInvalidCredentials = errors.New("invalid credentials")

// FileStore saves uploaded bytes and returns the generated file name.
type FileStore interface {
	Store(data []byte, originalName string) (string, error)
}

// VerificationCodes issues and checks email verification codes.
type VerificationCodes interface {
	Issue(ctx context.Context, email string) (string, error)
	Verify(ctx context.Context, email, code string) (bool, error)
}

// MailSender ...
type MailSender interface {
	SendVerificationCode(ctx context.Context, to, code string) error
}

// Service ...
type Service interface {
	Register(ctx context.Context, p *RegisterParams) (*entities.User, error)
	Login(ctx context.Context, email, password string) (*entities.User, error)
	GetUserByEmail(ctx context.Context, email string) (*entities.User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	NicknameExists(ctx context.Context, nickname string) (bool, error)
	SendVerificationCode(ctx context.Context, email string) error
	VerifyEmail(ctx context.Context, email, code string) (bool, error)
	UpdateUser(ctx context.Context, p *UpdateUserParams) error
	DeleteUser(ctx context.Context, userID int64) error

	CreatePost(ctx context.Context, p *CreatePostParams) (*entities.Post, error)
	GetPost(ctx context.Context, postID int64) (*entities.Post, error)
	ListPosts(ctx context.Context, page, limit uint32) ([]*entities.Post, uint32, error)
	UpdatePost(ctx context.Context, p *UpdatePostParams) error
	DeletePost(ctx context.Context, postID, userID int64) error
	PopularToday(ctx context.Context) ([]*entities.Post, error)
	PopularWeek(ctx context.Context) ([]*entities.Post, error)

	LikePost(ctx context.Context, postID, userID int64) error
	UnlikePost(ctx context.Context, postID, userID int64) error
	DislikePost(ctx context.Context, postID, userID int64) error
	UndislikePost(ctx context.Context, postID, userID int64) error

	ListComments(ctx context.Context, postID int64, page, limit uint32) ([]*entities.Comment, error)
	AddComment(ctx context.Context, postID, userID int64, content string) (*entities.Comment, error)
	UpdateComment(ctx context.Context, commentID, userID int64, content string) (*entities.Comment, error)
	DeleteComment(ctx context.Context, postID, commentID, userID int64) error

	LikeComment(ctx context.Context, commentID, userID int64) error
	UnlikeComment(ctx context.Context, commentID, userID int64) error
	DislikeComment(ctx context.Context, commentID, userID int64) error
	UndislikeComment(ctx context.Context, commentID, userID int64) error
}

// Upload is an in-memory uploaded file.
type Upload struct {
	Name string
	Data []byte
}

// RegisterParams ...
type RegisterParams struct {
	Email        string
	Nickname     string
	Password     string
	ProfileImage *Upload
}

// UpdateUserParams describes a partial profile update, nil fields are left as is.
type UpdateUserParams struct {
	UserID       int64
	Nickname     *string
	Password     *string
	ProfileImage *Upload
}

// CreatePostParams ...
type CreatePostParams struct {
	UserID  int64
	Title   string
	Content string
	Photos  []Upload
}

// UpdatePostParams ...
type UpdatePostParams struct {
	PostID  int64
	UserID  int64
	Title   string
	Content string
	Photos  []Upload
}
