package server

import (
	"context"
	"encoding/json"
	"net/http"
)

func (s server) listComments(w http.ResponseWriter, r *http.Request) {
	postID, err := idParam(r, "postId")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid post id")
		return
	}

	page, limit, err := pageParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	comments, err := s.s.ListComments(r.Context(), postID, page, limit)
	if err != nil {
		writeInternalError(r, w, "failed to list comments: "+err.Error())
		return
	}

	writeOK(w, http.StatusOK, ListCommentsResponse{
		Success:  true,
		Comments: toAPIComments(comments),
		Page:     page,
	})
}

func (s server) addComment(w http.ResponseWriter, r *http.Request) {
	u, ok := principal(w, r)
	if !ok {
		return
	}

	postID, err := idParam(r, "postId")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid post id")
		return
	}

	var req CommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Content == "" {
		writeError(w, http.StatusBadRequest, "content is required")
		return
	}

	comment, err := s.s.AddComment(r.Context(), postID, u.ID, req.Content)
	if err != nil {
		s.writeServiceError(r, w, err, "failed to add comment")
		return
	}

	writeOK(w, http.StatusOK, CommentResponse{Success: true, Comment: toAPIComment(comment)})
}

func (s server) updateComment(w http.ResponseWriter, r *http.Request) {
	u, ok := principal(w, r)
	if !ok {
		return
	}

	commentID, err := idParam(r, "commentId")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid comment id")
		return
	}

	var req CommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Content == "" {
		writeError(w, http.StatusBadRequest, "content is required")
		return
	}

	comment, err := s.s.UpdateComment(r.Context(), commentID, u.ID, req.Content)
	if err != nil {
		s.writeServiceError(r, w, err, "failed to update comment")
		return
	}

	writeOK(w, http.StatusOK, CommentResponse{Success: true, Comment: toAPIComment(comment)})
}

func (s server) deleteComment(w http.ResponseWriter, r *http.Request) {
	u, ok := principal(w, r)
	if !ok {
		return
	}

	postID, err := idParam(r, "postId")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid post id")
		return
	}

	commentID, err := idParam(r, "commentId")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid comment id")
		return
	}

	if err := s.s.DeleteComment(r.Context(), postID, commentID, u.ID); err != nil {
		s.writeServiceError(r, w, err, "failed to delete comment")
		return
	}

	writeOK(w, http.StatusOK, OK{Success: true, Message: "comment deleted successfully"})
}

func (s server) likeComment(w http.ResponseWriter, r *http.Request) {
	s.commentReaction(w, r, s.s.LikeComment, "comment liked successfully")
}

func (s server) unlikeComment(w http.ResponseWriter, r *http.Request) {
	s.commentReaction(w, r, s.s.UnlikeComment, "comment like removed successfully")
}

func (s server) dislikeComment(w http.ResponseWriter, r *http.Request) {
	s.commentReaction(w, r, s.s.DislikeComment, "comment disliked successfully")
}

func (s server) undislikeComment(w http.ResponseWriter, r *http.Request) {
	s.commentReaction(w, r, s.s.UndislikeComment, "comment dislike removed successfully")
}

func (s server) commentReaction(w http.ResponseWriter, r *http.Request, f func(ctx context.Context, commentID, userID int64) error, message string) {
	u, ok := principal(w, r)
	if !ok {
		return
	}

	commentID, err := idParam(r, "commentId")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid comment id")
		return
	}

	if err := f(r.Context(), commentID, u.ID); err != nil {
		s.writeServiceError(r, w, err, "failed to update reaction")
		return
	}

	writeOK(w, http.StatusOK, OK{Success: true, Message: message})
}
