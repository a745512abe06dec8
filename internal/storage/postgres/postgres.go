// Package postgres is implementation of storage interface.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/cloudstory/cloudstory/internal/entities"
	"github.com/cloudstory/cloudstory/internal/storage"
)

var log = logrus.WithField("layer", "storage").WithField("package", "postgres")
var errBeginCalledWithinTx = errors.New("can not run InTx in tx")

const (
	foreignKeyViolation = "23503"
	uniqueViolation     = "23505"
	checkViolation      = "23514"
)

type pg struct {
	ext sqlx.ExtContext
}

type userDTO struct {
	ID              int64     `db:"id"`
	Email           string    `db:"email"`
	Nickname        string    `db:"nickname"`
	Password        string    `db:"password"`
	ProfileImageURL string    `db:"profile_image_url"`
	CreatedAt       time.Time `db:"created_at"`
	UpdatedAt       time.Time `db:"updated_at"`
}

type postDTO struct {
	ID           int64     `db:"id"`
	UserID       int64     `db:"user_id"`
	Title        string    `db:"title"`
	Content      string    `db:"content"`
	LikeCount    uint32    `db:"like_count"`
	DislikeCount uint32    `db:"dislike_count"`
	ViewCount    uint32    `db:"view_count"`
	CommentCount uint32    `db:"comment_count"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

type postPhotoDTO struct {
	ID         int64  `db:"id"`
	PostID     int64  `db:"post_id"`
	URL        string `db:"url"`
	PhotoOrder int    `db:"photo_order"`
}

type commentDTO struct {
	ID           int64     `db:"id"`
	PostID       int64     `db:"post_id"`
	UserID       int64     `db:"user_id"`
	Content      string    `db:"content"`
	LikeCount    uint32    `db:"like_count"`
	DislikeCount uint32    `db:"dislike_count"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// New creates new instance of pg.
func New(db *sql.DB) storage.Storage {
	return pg{
		ext: sqlx.NewDb(db, "postgres"),
	}
}

func (s pg) InTx(ctx context.Context, f func(s storage.Storage) error) error {
	db, ok := s.ext.(*sqlx.DB)
	if !ok {
		return errBeginCalledWithinTx
	}

	tx, err := db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("failed to create tx: %w", err)
	}

	if err := f(pg{ext: tx}); err != nil {
		if err := tx.Rollback(); err != nil {
			log.WithError(err).Error("failed to rollback tx")
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit tx: %w", err)
	}

	return nil
}

func (s pg) CreateUser(ctx context.Context, p *storage.CreateUserParams) (int64, error) {
	var id int64

	if err := sqlx.GetContext(ctx, s.ext, &id, `
			INSERT INTO users(email, nickname, password, profile_image_url, created_at, updated_at)
			VALUES($1, $2, $3, $4, $5, $5)
			RETURNING id
		`,
		p.Email, p.Nickname, p.PasswordHash, p.ProfileImageURL, p.CreatedAt.UTC(),
	); err != nil {
		if isPqError(err, uniqueViolation) {
			return 0, storage.ErrAlreadyExists
		}

		return 0, fmt.Errorf("failed to exec: %w", err)
	}

	return id, nil
}

func (s pg) GetUserByEmail(ctx context.Context, email string) (*entities.User, error) {
	var u userDTO

	if err := sqlx.GetContext(ctx, s.ext, &u, `
			SELECT id, email, nickname, password, profile_image_url, created_at, updated_at
			FROM users WHERE email = $1
		`, email,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}

		return nil, fmt.Errorf("failed to query: %w", err)
	}

	return toUser(&u), nil
}

func (s pg) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	if err := sqlx.GetContext(ctx, s.ext, &exists, `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`, email); err != nil {
		return false, fmt.Errorf("failed to query: %w", err)
	}

	return exists, nil
}

func (s pg) NicknameExists(ctx context.Context, nickname string) (bool, error) {
	var exists bool
	if err := sqlx.GetContext(ctx, s.ext, &exists, `SELECT EXISTS(SELECT 1 FROM users WHERE nickname = $1)`, nickname); err != nil {
		return false, fmt.Errorf("failed to query: %w", err)
	}

	return exists, nil
}

func (s pg) UpdateUser(ctx context.Context, p *storage.UpdateUserParams) error {
	res, err := s.ext.ExecContext(ctx, `
			UPDATE users SET
				nickname = COALESCE($2, nickname),
				password = COALESCE($3, password),
				profile_image_url = COALESCE($4, profile_image_url),
				updated_at = $5
			WHERE id = $1
		`,
		p.ID, p.Nickname, p.PasswordHash, p.ProfileImageURL, p.UpdatedAt.UTC(),
	)
	if err != nil {
		if isPqError(err, uniqueViolation) {
			return storage.ErrAlreadyExists
		}

		return fmt.Errorf("failed to exec: %w", err)
	}

	if c, _ := res.RowsAffected(); c == 0 {
		return storage.ErrNotFound
	}

	return nil
}

func (s pg) DeleteUser(ctx context.Context, id int64) error {
	res, err := s.ext.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to exec: %w", err)
	}

	if c, _ := res.RowsAffected(); c == 0 {
		return storage.ErrNotFound
	}

	return nil
}

func (s pg) CreatePost(ctx context.Context, p *storage.CreatePostParams) (int64, error) {
	var id int64

	if err := sqlx.GetContext(ctx, s.ext, &id, `
			INSERT INTO post(user_id, title, content, created_at, updated_at)
			VALUES($1, $2, $3, $4, $4)
			RETURNING id
		`,
		p.UserID, p.Title, p.Content, p.CreatedAt.UTC(),
	); err != nil {
		if isPqError(err, foreignKeyViolation) {
			return 0, storage.ErrNotFound
		}

		return 0, fmt.Errorf("failed to exec: %w", err)
	}

	return id, nil
}

func (s pg) SetPostPhotos(ctx context.Context, postID int64, urls []string) error {
	if _, err := s.ext.ExecContext(ctx, `DELETE FROM post_photo WHERE post_id = $1`, postID); err != nil {
		return fmt.Errorf("failed to exec: %w", err)
	}

	for i, u := range urls {
		if _, err := s.ext.ExecContext(ctx,
			`INSERT INTO post_photo(post_id, url, photo_order) VALUES($1, $2, $3)`,
			postID, u, i+1,
		); err != nil {
			if isPqError(err, foreignKeyViolation) {
				return storage.ErrNotFound
			}

			return fmt.Errorf("failed to exec: %w", err)
		}
	}

	return nil
}

func (s pg) GetPost(ctx context.Context, id int64) (*entities.Post, error) {
	var p postDTO

	if err := sqlx.GetContext(ctx, s.ext, &p, `
			SELECT id, user_id, title, content, like_count, dislike_count, view_count, comment_count, created_at, updated_at
			FROM post WHERE id = $1
		`, id,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}

		return nil, fmt.Errorf("failed to query: %w", err)
	}

	post := toPost(&p)

	photos, err := s.getPhotos(ctx, id)
	if err != nil {
		return nil, err
	}
	post.Photos = photos[id]

	return post, nil
}

func (s pg) ListPosts(ctx context.Context, limit, offset uint32) ([]*entities.Post, error) {
	var pp []*postDTO

	if err := sqlx.SelectContext(ctx, s.ext, &pp, `
			SELECT id, user_id, title, content, like_count, dislike_count, view_count, comment_count, created_at, updated_at
			FROM post
			ORDER BY created_at DESC, id DESC
			LIMIT $1 OFFSET $2
		`, limit, offset,
	); err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}

	return s.withPhotos(ctx, pp)
}

func (s pg) CountPosts(ctx context.Context) (uint32, error) {
	var c uint32
	if err := sqlx.GetContext(ctx, s.ext, &c, `SELECT COUNT(*) FROM post`); err != nil {
		return 0, fmt.Errorf("failed to query: %w", err)
	}

	return c, nil
}

func (s pg) ListPostsCreatedAfter(ctx context.Context, cutoff time.Time) ([]*entities.Post, error) {
	var pp []*postDTO

	if err := sqlx.SelectContext(ctx, s.ext, &pp, `
			SELECT id, user_id, title, content, like_count, dislike_count, view_count, comment_count, created_at, updated_at
			FROM post
			WHERE created_at >= $1
			ORDER BY created_at ASC, id ASC
		`, cutoff.UTC(),
	); err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}

	return s.withPhotos(ctx, pp)
}

func (s pg) UpdatePost(ctx context.Context, id int64, title, content string, updatedAt time.Time) error {
	res, err := s.ext.ExecContext(ctx,
		`UPDATE post SET title=$2, content=$3, updated_at=$4 WHERE id=$1`,
		id, title, content, updatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to exec: %w", err)
	}

	if c, _ := res.RowsAffected(); c == 0 {
		return storage.ErrNotFound
	}

	return nil
}

func (s pg) DeletePost(ctx context.Context, id int64) error {
	res, err := s.ext.ExecContext(ctx, `DELETE FROM post WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to exec: %w", err)
	}

	if c, _ := res.RowsAffected(); c == 0 {
		return storage.ErrNotFound
	}

	return nil
}

func (s pg) IncrementPostViews(ctx context.Context, id int64) error {
	res, err := s.ext.ExecContext(ctx, `UPDATE post SET view_count = view_count + 1 WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to exec: %w", err)
	}

	if c, _ := res.RowsAffected(); c == 0 {
		return storage.ErrNotFound
	}

	return nil
}

func (s pg) AddPostReaction(ctx context.Context, postID, userID int64, kind storage.ReactionKind) (bool, error) {
	table, err := postReactionTable(kind)
	if err != nil {
		return false, err
	}

	res, err := s.ext.ExecContext(ctx,
		// nolint:gosec // table comes from a closed set
		fmt.Sprintf(`INSERT INTO %s(post_id, user_id, created_at) VALUES($1, $2, $3) ON CONFLICT DO NOTHING`, table),
		postID, userID, time.Now().UTC(),
	)
	if err != nil {
		if isPqError(err, foreignKeyViolation) {
			return false, storage.ErrNotFound
		}

		return false, fmt.Errorf("failed to exec: %w", err)
	}

	c, _ := res.RowsAffected()
	return c > 0, nil
}

func (s pg) RemovePostReaction(ctx context.Context, postID, userID int64, kind storage.ReactionKind) (bool, error) {
	table, err := postReactionTable(kind)
	if err != nil {
		return false, err
	}

	res, err := s.ext.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE post_id=$1 AND user_id=$2`, table),
		postID, userID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to exec: %w", err)
	}

	c, _ := res.RowsAffected()
	return c > 0, nil
}

func (s pg) UpdatePostReactionCount(ctx context.Context, postID int64, kind storage.ReactionKind, delta int) error {
	column, err := reactionColumn(kind)
	if err != nil {
		return err
	}

	res, err := s.ext.ExecContext(ctx,
		fmt.Sprintf(`UPDATE post SET %[1]s = %[1]s + $2 WHERE id = $1`, column),
		postID, delta,
	)
	if err != nil {
		if isPqError(err, checkViolation) {
			return fmt.Errorf("post %s would become negative: %w", column, err)
		}

		return fmt.Errorf("failed to exec: %w", err)
	}

	if c, _ := res.RowsAffected(); c == 0 {
		return storage.ErrNotFound
	}

	return nil
}

func (s pg) UpdatePostCommentCount(ctx context.Context, postID int64, delta int) error {
	res, err := s.ext.ExecContext(ctx,
		`UPDATE post SET comment_count = comment_count + $2 WHERE id = $1`,
		postID, delta,
	)
	if err != nil {
		if isPqError(err, checkViolation) {
			return fmt.Errorf("post comment_count would become negative: %w", err)
		}

		return fmt.Errorf("failed to exec: %w", err)
	}

	if c, _ := res.RowsAffected(); c == 0 {
		return storage.ErrNotFound
	}

	return nil
}

func (s pg) CreateComment(ctx context.Context, p *storage.CreateCommentParams) (int64, error) {
	var id int64

	if err := sqlx.GetContext(ctx, s.ext, &id, `
			INSERT INTO comment(post_id, user_id, content, created_at, updated_at)
			VALUES($1, $2, $3, $4, $4)
			RETURNING id
		`,
		p.PostID, p.UserID, p.Content, p.CreatedAt.UTC(),
	); err != nil {
		if isPqError(err, foreignKeyViolation) {
			return 0, storage.ErrNotFound
		}

		return 0, fmt.Errorf("failed to exec: %w", err)
	}

	return id, nil
}

func (s pg) GetComment(ctx context.Context, id int64) (*entities.Comment, error) {
	var c commentDTO

	if err := sqlx.GetContext(ctx, s.ext, &c, `
			SELECT id, post_id, user_id, content, like_count, dislike_count, created_at, updated_at
			FROM comment WHERE id = $1
		`, id,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}

		return nil, fmt.Errorf("failed to query: %w", err)
	}

	return toComment(&c), nil
}

func (s pg) ListComments(ctx context.Context, postID int64, limit, offset uint32) ([]*entities.Comment, error) {
	var cc []*commentDTO

	if err := sqlx.SelectContext(ctx, s.ext, &cc, `
			SELECT id, post_id, user_id, content, like_count, dislike_count, created_at, updated_at
			FROM comment
			WHERE post_id = $1
			ORDER BY created_at ASC, id ASC
			LIMIT $2 OFFSET $3
		`, postID, limit, offset,
	); err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}

	out := make([]*entities.Comment, len(cc))
	for i, v := range cc {
		out[i] = toComment(v)
	}

	return out, nil
}

func (s pg) UpdateComment(ctx context.Context, id int64, content string, updatedAt time.Time) error {
	res, err := s.ext.ExecContext(ctx,
		`UPDATE comment SET content=$2, updated_at=$3 WHERE id=$1`,
		id, content, updatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to exec: %w", err)
	}

	if c, _ := res.RowsAffected(); c == 0 {
		return storage.ErrNotFound
	}

	return nil
}

func (s pg) DeleteComment(ctx context.Context, id int64) error {
	res, err := s.ext.ExecContext(ctx, `DELETE FROM comment WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to exec: %w", err)
	}

	if c, _ := res.RowsAffected(); c == 0 {
		return storage.ErrNotFound
	}

	return nil
}

func (s pg) AddCommentReaction(ctx context.Context, commentID, userID int64, kind storage.ReactionKind) (bool, error) {
	table, err := commentReactionTable(kind)
	if err != nil {
		return false, err
	}

	res, err := s.ext.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO %s(comment_id, user_id, created_at) VALUES($1, $2, $3) ON CONFLICT DO NOTHING`, table),
		commentID, userID, time.Now().UTC(),
	)
	if err != nil {
		if isPqError(err, foreignKeyViolation) {
			return false, storage.ErrNotFound
		}

		return false, fmt.Errorf("failed to exec: %w", err)
	}

	c, _ := res.RowsAffected()
	return c > 0, nil
}

func (s pg) RemoveCommentReaction(ctx context.Context, commentID, userID int64, kind storage.ReactionKind) (bool, error) {
	table, err := commentReactionTable(kind)
	if err != nil {
		return false, err
	}

	res, err := s.ext.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE comment_id=$1 AND user_id=$2`, table),
		commentID, userID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to exec: %w", err)
	}

	c, _ := res.RowsAffected()
	return c > 0, nil
}

func (s pg) UpdateCommentReactionCount(ctx context.Context, commentID int64, kind storage.ReactionKind, delta int) error {
	column, err := reactionColumn(kind)
	if err != nil {
		return err
	}

	res, err := s.ext.ExecContext(ctx,
		fmt.Sprintf(`UPDATE comment SET %[1]s = %[1]s + $2 WHERE id = $1`, column),
		commentID, delta,
	)
	if err != nil {
		if isPqError(err, checkViolation) {
			return fmt.Errorf("comment %s would become negative: %w", column, err)
		}

		return fmt.Errorf("failed to exec: %w", err)
	}

	if c, _ := res.RowsAffected(); c == 0 {
		return storage.ErrNotFound
	}

	return nil
}

func (s pg) withPhotos(ctx context.Context, pp []*postDTO) ([]*entities.Post, error) {
	out := make([]*entities.Post, len(pp))
	ids := make([]int64, len(pp))
	for i, v := range pp {
		out[i] = toPost(v)
		ids[i] = v.ID
	}

	if len(ids) == 0 {
		return out, nil
	}

	photos, err := s.getPhotos(ctx, ids...)
	if err != nil {
		return nil, err
	}

	for _, p := range out {
		p.Photos = photos[p.ID]
	}

	return out, nil
}

func (s pg) getPhotos(ctx context.Context, postIDs ...int64) (map[int64][]entities.PostPhoto, error) {
	query, args, err := sqlx.In(`
			SELECT id, post_id, url, photo_order FROM post_photo
			WHERE post_id IN (?)
			ORDER BY photo_order ASC
		`, postIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to construct IN clause: %w", err)
	}

	var pp []*postPhotoDTO
	if err := sqlx.SelectContext(ctx, s.ext, &pp, s.ext.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}

	out := make(map[int64][]entities.PostPhoto, len(postIDs))
	for _, v := range pp {
		out[v.PostID] = append(out[v.PostID], entities.PostPhoto{
			ID:     v.ID,
			PostID: v.PostID,
			URL:    v.URL,
			Order:  v.PhotoOrder,
		})
	}

	return out, nil
}

func postReactionTable(kind storage.ReactionKind) (string, error) {
	switch kind {
	case storage.LikeReaction:
		return "post_like", nil
	case storage.DislikeReaction:
		return "post_dislike", nil
	default:
		return "", fmt.Errorf("unknown reaction kind %q", kind)
	}
}

func commentReactionTable(kind storage.ReactionKind) (string, error) {
	switch kind {
	case storage.LikeReaction:
		return "comment_like", nil
	case storage.DislikeReaction:
		return "comment_dislike", nil
	default:
		return "", fmt.Errorf("unknown reaction kind %q", kind)
	}
}

func reactionColumn(kind storage.ReactionKind) (string, error) {
	switch kind {
	case storage.LikeReaction:
		return "like_count", nil
	case storage.DislikeReaction:
		return "dislike_count", nil
	default:
		return "", fmt.Errorf("unknown reaction kind %q", kind)
	}
}

func isPqError(err error, code pq.ErrorCode) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == code
}

func toUser(u *userDTO) *entities.User {
	return &entities.User{
		ID:              u.ID,
		Email:           u.Email,
		Nickname:        u.Nickname,
		PasswordHash:    u.Password,
		ProfileImageURL: u.ProfileImageURL,
		CreatedAt:       u.CreatedAt,
		UpdatedAt:       u.UpdatedAt,
	}
}

func toPost(p *postDTO) *entities.Post {
	return &entities.Post{
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
	}
}

func toComment(c *commentDTO) *entities.Comment {
	return &entities.Comment{
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
