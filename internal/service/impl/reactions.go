package impl

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudstory/cloudstory/internal/service"
	"github.com/cloudstory/cloudstory/internal/storage"
)

// Reaction rows and the denormalized counters on their targets are written in
// one transaction. The (target, user) primary key is the real guard against
// concurrent duplicates, ON CONFLICT DO NOTHING is the fast path that turns a
// duplicate into ErrAlreadyReacted instead of an insert error.

func (s *srv) LikePost(ctx context.Context, postID, userID int64) error {
	return s.addPostReaction(ctx, postID, userID, storage.LikeReaction)
}

func (s *srv) UnlikePost(ctx context.Context, postID, userID int64) error {
	return s.removePostReaction(ctx, postID, userID, storage.LikeReaction)
}

func (s *srv) DislikePost(ctx context.Context, postID, userID int64) error {
	return s.addPostReaction(ctx, postID, userID, storage.DislikeReaction)
}

func (s *srv) UndislikePost(ctx context.Context, postID, userID int64) error {
	return s.removePostReaction(ctx, postID, userID, storage.DislikeReaction)
}

func (s *srv) LikeComment(ctx context.Context, commentID, userID int64) error {
	return s.addCommentReaction(ctx, commentID, userID, storage.LikeReaction)
}

func (s *srv) UnlikeComment(ctx context.Context, commentID, userID int64) error {
	return s.removeCommentReaction(ctx, commentID, userID, storage.LikeReaction)
}

func (s *srv) DislikeComment(ctx context.Context, commentID, userID int64) error {
	return s.addCommentReaction(ctx, commentID, userID, storage.DislikeReaction)
}

func (s *srv) UndislikeComment(ctx context.Context, commentID, userID int64) error {
	return s.removeCommentReaction(ctx, commentID, userID, storage.DislikeReaction)
}

func (s *srv) addPostReaction(ctx context.Context, postID, userID int64, kind storage.ReactionKind) error {
	return s.s.InTx(ctx, func(tx storage.Storage) error {
		created, err := tx.AddPostReaction(ctx, postID, userID, kind)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return service.ErrNotFound
			}

			return fmt.Errorf("failed to add %s: %w", kind, err)
		}

		if !created {
			return service.ErrAlreadyReacted
		}

		if err := tx.UpdatePostReactionCount(ctx, postID, kind, 1); err != nil {
			return fmt.Errorf("failed to increment %s count: %w", kind, err)
		}

		return nil
	})
}

func (s *srv) removePostReaction(ctx context.Context, postID, userID int64, kind storage.ReactionKind) error {
	return s.s.InTx(ctx, func(tx storage.Storage) error {
		removed, err := tx.RemovePostReaction(ctx, postID, userID, kind)
		if err != nil {
			return fmt.Errorf("failed to remove %s: %w", kind, err)
		}

		if !removed {
			return service.ErrNotReacted
		}

		if err := tx.UpdatePostReactionCount(ctx, postID, kind, -1); err != nil {
			return fmt.Errorf("failed to decrement %s count: %w", kind, err)
		}

		return nil
	})
}

func (s *srv) addCommentReaction(ctx context.Context, commentID, userID int64, kind storage.ReactionKind) error {
	return s.s.InTx(ctx, func(tx storage.Storage) error {
		created, err := tx.AddCommentReaction(ctx, commentID, userID, kind)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return service.ErrNotFound
			}

			return fmt.Errorf("failed to add %s: %w", kind, err)
		}

		if !created {
			return service.ErrAlreadyReacted
		}

		if err := tx.UpdateCommentReactionCount(ctx, commentID, kind, 1); err != nil {
			return fmt.Errorf("failed to increment %s count: %w", kind, err)
		}

		return nil
	})
}

func (s *srv) removeCommentReaction(ctx context.Context, commentID, userID int64, kind storage.ReactionKind) error {
	return s.s.InTx(ctx, func(tx storage.Storage) error {
		removed, err := tx.RemoveCommentReaction(ctx, commentID, userID, kind)
		if err != nil {
			return fmt.Errorf("failed to remove %s: %w", kind, err)
		}

		if !removed {
			return service.ErrNotReacted
		}

		if err := tx.UpdateCommentReactionCount(ctx, commentID, kind, -1); err != nil {
			return fmt.Errorf("failed to decrement %s count: %w", kind, err)
		}

		return nil
	})
}
