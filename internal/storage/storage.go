// Package storage contains a storage interface.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudstory/cloudstory/internal/entities"
)

//go:generate mockgen -destination=./mock/storage.go -package=mock -source=storage.go

// ErrNotFound ...
var ErrNotFound = fmt.Errorf("not found")

// ErrAlreadyExists is returned when a unique constraint is violated.
var ErrAlreadyExists = fmt.Errorf("already exists")

// ReactionKind ...
type ReactionKind string

const (
	// LikeReaction ...
	LikeReaction ReactionKind = "like"
	// DislikeReaction ...
	DislikeReaction ReactionKind = "dislike"
)

// Storage provides methods for interacting with database.
type Storage interface {
	InTx(ctx context.Context, f func(s Storage) error) error

	CreateUser(ctx context.Context, p *CreateUserParams) (int64, error)
	GetUserByEmail(ctx context.Context, email string) (*entities.User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	NicknameExists(ctx context.Context, nickname string) (bool, error)
	UpdateUser(ctx context.Context, p *UpdateUserParams) error
	DeleteUser(ctx context.Context, id int64) error

	CreatePost(ctx context.Context, p *CreatePostParams) (int64, error)
	SetPostPhotos(ctx context.Context, postID int64, urls []string) error
	GetPost(ctx context.Context, id int64) (*entities.Post, error)
	ListPosts(ctx context.Context, limit, offset uint32) ([]*entities.Post, error)
	CountPosts(ctx context.Context) (uint32, error)
	ListPostsCreatedAfter(ctx context.Context, cutoff time.Time) ([]*entities.Post, error)
	UpdatePost(ctx context.Context, id int64, title, content string, updatedAt time.Time) error
	DeletePost(ctx context.Context, id int64) error
	IncrementPostViews(ctx context.Context, id int64) error

	AddPostReaction(ctx context.Context, postID, userID int64, kind ReactionKind) (bool, error)
	RemovePostReaction(ctx context.Context, postID, userID int64, kind ReactionKind) (bool, error)
	UpdatePostReactionCount(ctx context.Context, postID int64, kind ReactionKind, delta int) error
	UpdatePostCommentCount(ctx context.Context, postID int64, delta int) error

	CreateComment(ctx context.Context, p *CreateCommentParams) (int64, error)
	GetComment(ctx context.Context, id int64) (*entities.Comment, error)
	ListComments(ctx context.Context, postID int64, limit, offset uint32) ([]*entities.Comment, error)
	UpdateComment(ctx context.Context, id int64, content string, updatedAt time.Time) error
	DeleteComment(ctx context.Context, id int64) error

	AddCommentReaction(ctx context.Context, commentID, userID int64, kind ReactionKind) (bool, error)
	RemoveCommentReaction(ctx context.Context, commentID, userID int64, kind ReactionKind) (bool, error)
	UpdateCommentReactionCount(ctx context.Context, commentID int64, kind ReactionKind, delta int) error
}

// CreateUserParams ...
type CreateUserParams struct {
	Email           string
	Nickname        string
	PasswordHash    string
	ProfileImageURL string
	CreatedAt       time.Time
}

// UpdateUserParams describes a partial user update, nil fields are left as is.
type UpdateUserParams struct {
	ID              int64
	Nickname        *string
	PasswordHash    *string
	ProfileImageURL *string
	UpdatedAt       time.Time
}

// CreatePostParams ...
type CreatePostParams struct {
	UserID    int64
	Title     string
	Content   string
	CreatedAt time.Time
}

// CreateCommentParams ...
type CreateCommentParams struct {
	PostID    int64
	UserID    int64
	Content   string
	CreatedAt time.Time
}
