// Package impl is implementation of service interface.
package impl

import (
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/cloudstory/cloudstory/internal/entities"
	"github.com/cloudstory/cloudstory/internal/service"
	"github.com/cloudstory/cloudstory/internal/storage"
)

var log = logrus.WithField("layer", "service")

const uploadsURLPrefix = "/api/files/uploads/"

type srv struct {
	s      storage.Storage
	files  service.FileStore
	codes  service.VerificationCodes
	mailer service.MailSender

	now func() time.Time
}

// New creates new instance of service.
func New(s storage.Storage, files service.FileStore, codes service.VerificationCodes, mailer service.MailSender) service.Service {
	return &srv{
		s:      s,
		files:  files,
		codes:  codes,
		mailer: mailer,
		now:    time.Now,
	}
}

func (s *srv) Register(ctx context.Context, p *service.RegisterParams) (*entities.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(p.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	imageURL, err := s.storeUpload(p.ProfileImage)
	if err != nil {
		return nil, err
	}

	id, err := s.s.CreateUser(ctx, &storage.CreateUserParams{
		Email:           p.Email,
		Nickname:        p.Nickname,
		PasswordHash:    string(hash),
		ProfileImageURL: imageURL,
		CreatedAt:       s.now().UTC(),
	})
	if err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return nil, service.ErrAlreadyExists
		}

		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	u, err := s.s.GetUserByEmail(ctx, p.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to get user %d after create: %w", id, err)
	}

	return u, nil
}

func (s *srv) Login(ctx context.Context, email, password string) (*entities.User, error) {
	u, err := s.s.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, service.ErrInvalidCredentials
		}

		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, service.ErrInvalidCredentials
	}

	return u, nil
}

func (s *srv) GetUserByEmail(ctx context.Context, email string) (*entities.User, error) {
	u, err := s.s.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, service.ErrNotFound
		}

		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return u, nil
}

func (s *srv) EmailExists(ctx context.Context, email string) (bool, error) {
	exists, err := s.s.EmailExists(ctx, email)
	if err != nil {
		return false, fmt.Errorf("failed to check email: %w", err)
	}

	return exists, nil
}

func (s *srv) NicknameExists(ctx context.Context, nickname string) (bool, error) {
	exists, err := s.s.NicknameExists(ctx, nickname)
	if err != nil {
		return false, fmt.Errorf("failed to check nickname: %w", err)
	}

	return exists, nil
}

func (s *srv) SendVerificationCode(ctx context.Context, email string) error {
	exists, err := s.s.EmailExists(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to check email: %w", err)
	}
	if exists {
		return service.ErrAlreadyExists
	}

	code, err := s.codes.Issue(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to issue verification code: %w", err)
	}

	// delivery is fire-and-forget, a lost mail only delays the user
	if err := s.mailer.SendVerificationCode(ctx, email, code); err != nil {
		log.WithError(err).WithField("email", email).Error("failed to send verification code")
	}

	return nil
}

func (s *srv) VerifyEmail(ctx context.Context, email, code string) (bool, error) {
	ok, err := s.codes.Verify(ctx, email, code)
	if err != nil {
		return false, fmt.Errorf("failed to verify code: %w", err)
	}

	return ok, nil
}

func (s *srv) UpdateUser(ctx context.Context, p *service.UpdateUserParams) error {
	params := storage.UpdateUserParams{
		ID:        p.UserID,
		Nickname:  p.Nickname,
		UpdatedAt: s.now().UTC(),
	}

	if p.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*p.Password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}
		h := string(hash)
		params.PasswordHash = &h
	}

	if p.ProfileImage != nil {
		url, err := s.storeUpload(p.ProfileImage)
		if err != nil {
			return err
		}
		params.ProfileImageURL = &url
	}

	if err := s.s.UpdateUser(ctx, &params); err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			return service.ErrNotFound
		case errors.Is(err, storage.ErrAlreadyExists):
			return service.ErrAlreadyExists
		}

		return fmt.Errorf("failed to update user: %w", err)
	}

	return nil
}

func (s *srv) DeleteUser(ctx context.Context, userID int64) error {
	if err := s.s.DeleteUser(ctx, userID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return service.ErrNotFound
		}

		return fmt.Errorf("failed to delete user: %w", err)
	}

	return nil
}

func (s *srv) CreatePost(ctx context.Context, p *service.CreatePostParams) (*entities.Post, error) {
	urls, err := s.storeUploads(p.Photos)
	if err != nil {
		return nil, err
	}

	var out *entities.Post
	if err := s.s.InTx(ctx, func(tx storage.Storage) error {
		id, err := tx.CreatePost(ctx, &storage.CreatePostParams{
			UserID:    p.UserID,
			Title:     p.Title,
			Content:   p.Content,
			CreatedAt: s.now().UTC(),
		})
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return service.ErrNotFound
			}

			return fmt.Errorf("failed to create post: %w", err)
		}

		if err := tx.SetPostPhotos(ctx, id, urls); err != nil {
			return fmt.Errorf("failed to set post photos: %w", err)
		}

		post, err := tx.GetPost(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to get post %d after create: %w", id, err)
		}
		out = post

		return nil
	}); err != nil {
		return nil, err
	}

	return out, nil
}

func (s *srv) GetPost(ctx context.Context, postID int64) (*entities.Post, error) {
	var out *entities.Post

	// reads count as views, the increment and the read share a tx
	if err := s.s.InTx(ctx, func(tx storage.Storage) error {
		if err := tx.IncrementPostViews(ctx, postID); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return service.ErrNotFound
			}

			return fmt.Errorf("failed to increment views: %w", err)
		}

		post, err := tx.GetPost(ctx, postID)
		if err != nil {
			return fmt.Errorf("failed to get post: %w", err)
		}
		out = post

		return nil
	}); err != nil {
		return nil, err
	}

	return out, nil
}

func (s *srv) ListPosts(ctx context.Context, page, limit uint32) ([]*entities.Post, uint32, error) {
	posts, err := s.s.ListPosts(ctx, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list posts: %w", err)
	}

	total, err := s.s.CountPosts(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count posts: %w", err)
	}

	return posts, total, nil
}

func (s *srv) UpdatePost(ctx context.Context, p *service.UpdatePostParams) error {
	var urls []string
	if len(p.Photos) > 0 {
		var err error
		if urls, err = s.storeUploads(p.Photos); err != nil {
			return err
		}
	}

	return s.s.InTx(ctx, func(tx storage.Storage) error {
		post, err := tx.GetPost(ctx, p.PostID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return service.ErrNotFound
			}

			return fmt.Errorf("failed to get post: %w", err)
		}

		if post.UserID != p.UserID {
			return service.ErrNotOwner
		}

		if err := tx.UpdatePost(ctx, p.PostID, p.Title, p.Content, s.now().UTC()); err != nil {
			return fmt.Errorf("failed to update post: %w", err)
		}

		if len(urls) > 0 {
			if err := tx.SetPostPhotos(ctx, p.PostID, urls); err != nil {
				return fmt.Errorf("failed to set post photos: %w", err)
			}
		}

		return nil
	})
}

func (s *srv) DeletePost(ctx context.Context, postID, userID int64) error {
	return s.s.InTx(ctx, func(tx storage.Storage) error {
		post, err := tx.GetPost(ctx, postID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return service.ErrNotFound
			}

			return fmt.Errorf("failed to get post: %w", err)
		}

		if post.UserID != userID {
			return service.ErrNotOwner
		}

		if err := tx.DeletePost(ctx, postID); err != nil {
			return fmt.Errorf("failed to delete post: %w", err)
		}

		return nil
	})
}

func (s *srv) ListComments(ctx context.Context, postID int64, page, limit uint32) ([]*entities.Comment, error) {
	cc, err := s.s.ListComments(ctx, postID, limit, (page-1)*limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}

	return cc, nil
}

func (s *srv) AddComment(ctx context.Context, postID, userID int64, content string) (*entities.Comment, error) {
	var out *entities.Comment

	if err := s.s.InTx(ctx, func(tx storage.Storage) error {
		id, err := tx.CreateComment(ctx, &storage.CreateCommentParams{
			PostID:    postID,
			UserID:    userID,
			Content:   content,
			CreatedAt: s.now().UTC(),
		})
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return service.ErrNotFound
			}

			return fmt.Errorf("failed to create comment: %w", err)
		}

		if err := tx.UpdatePostCommentCount(ctx, postID, 1); err != nil {
			return fmt.Errorf("failed to increment comment count: %w", err)
		}

		c, err := tx.GetComment(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to get comment %d after create: %w", id, err)
		}
		out = c

		return nil
	}); err != nil {
		return nil, err
	}

	return out, nil
}

func (s *srv) UpdateComment(ctx context.Context, commentID, userID int64, content string) (*entities.Comment, error) {
	var out *entities.Comment

	if err := s.s.InTx(ctx, func(tx storage.Storage) error {
		c, err := tx.GetComment(ctx, commentID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return service.ErrNotFound
			}

			return fmt.Errorf("failed to get comment: %w", err)
		}

		if c.UserID != userID {
			return service.ErrNotOwner
		}

		if err := tx.UpdateComment(ctx, commentID, content, s.now().UTC()); err != nil {
			return fmt.Errorf("failed to update comment: %w", err)
		}

		c.Content = content
		out = c

		return nil
	}); err != nil {
		return nil, err
	}

	return out, nil
}

func (s *srv) DeleteComment(ctx context.Context, postID, commentID, userID int64) error {
	return s.s.InTx(ctx, func(tx storage.Storage) error {
		c, err := tx.GetComment(ctx, commentID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return service.ErrNotFound
			}

			return fmt.Errorf("failed to get comment: %w", err)
		}

		if c.PostID != postID {
			return service.ErrNotFound
		}

		if c.UserID != userID {
			return service.ErrNotOwner
		}

		if err := tx.DeleteComment(ctx, commentID); err != nil {
			return fmt.Errorf("failed to delete comment: %w", err)
		}

		if err := tx.UpdatePostCommentCount(ctx, postID, -1); err != nil {
			return fmt.Errorf("failed to decrement comment count: %w", err)
		}

		return nil
	})
}

func (s *srv) storeUpload(u *service.Upload) (string, error) {
	if u == nil || len(u.Data) == 0 {
		return "", nil
	}

	name, err := s.files.Store(u.Data, u.Name)
	if err != nil {
		return "", fmt.Errorf("failed to store file: %w", err)
	}

	return path.Join(uploadsURLPrefix, name), nil
}

func (s *srv) storeUploads(uu []service.Upload) ([]string, error) {
	out := make([]string, 0, len(uu))
	for i := range uu {
		url, err := s.storeUpload(&uu[i])
		if err != nil {
			return nil, err
		}
		if url != "" {
			out = append(out, url)
		}
	}

	return out, nil
}
