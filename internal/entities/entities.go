// Package entities contains main entities of service.
package entities

import (
	"time"
)

// User ...
type User struct {
	ID              int64
	Email           string
	Nickname        string
	PasswordHash    string
	ProfileImageURL string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Post ...
type Post struct {
	ID           int64
	UserID       int64
	Title        string
	Content      string
	LikeCount    uint32
	DislikeCount uint32
	ViewCount    uint32
	CommentCount uint32
	CreatedAt    time.Time
	UpdatedAt    time.Time

	Photos []PostPhoto
}

// PostPhoto is an ordered photo attachment of a post.
type PostPhoto struct {
	ID     int64
	PostID int64
	URL    string
	Order  int
}

// Comment ...
type Comment struct {
	ID           int64
	PostID       int64
	UserID       int64
	Content      string
	LikeCount    uint32
	DislikeCount uint32
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
