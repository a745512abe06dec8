package server

import (
	"context"
	"net/http"

	"github.com/cloudstory/cloudstory/internal/service"
)

func (s server) createPost(w http.ResponseWriter, r *http.Request) {
	u, ok := principal(w, r)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	title, content := r.FormValue("title"), r.FormValue("content")
	if title == "" || content == "" {
		writeError(w, http.StatusBadRequest, "title and content are required")
		return
	}

	photos, err := readUploads(r, "photos")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid photos")
		return
	}

	post, err := s.s.CreatePost(r.Context(), &service.CreatePostParams{
		UserID:  u.ID,
		Title:   title,
		Content: content,
		Photos:  photos,
	})
	if err != nil {
		s.writeServiceError(r, w, err, "failed to create post")
		return
	}

	writeOK(w, http.StatusOK, PostResponse{Success: true, Post: toAPIPost(post)})
}

func (s server) listPosts(w http.ResponseWriter, r *http.Request) {
	page, limit, err := pageParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	posts, total, err := s.s.ListPosts(r.Context(), page, limit)
	if err != nil {
		writeInternalError(r, w, "failed to list posts: "+err.Error())
		return
	}

	writeOK(w, http.StatusOK, ListPostsResponse{
		Success: true,
		Posts:   toAPIPosts(posts),
		Total:   total,
		Page:    page,
	})
}

func (s server) getPost(w http.ResponseWriter, r *http.Request) {
	postID, err := idParam(r, "postId")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid post id")
		return
	}

	post, err := s.s.GetPost(r.Context(), postID)
	if err != nil {
		s.writeServiceError(r, w, err, "failed to get post")
		return
	}

	writeOK(w, http.StatusOK, PostResponse{Success: true, Post: toAPIPost(post)})
}

func (s server) updatePost(w http.ResponseWriter, r *http.Request) {
	u, ok := principal(w, r)
	if !ok {
		return
	}

	postID, err := idParam(r, "postId")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid post id")
		return
	}

	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	title, content := r.FormValue("title"), r.FormValue("content")
	if title == "" || content == "" {
		writeError(w, http.StatusBadRequest, "title and content are required")
		return
	}

	photos, err := readUploads(r, "photos")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid photos")
		return
	}

	if err := s.s.UpdatePost(r.Context(), &service.UpdatePostParams{
		PostID:  postID,
		UserID:  u.ID,
		Title:   title,
		Content: content,
		Photos:  photos,
	}); err != nil {
		s.writeServiceError(r, w, err, "failed to update post")
		return
	}

	writeOK(w, http.StatusOK, OK{Success: true, Message: "post updated successfully"})
}

func (s server) deletePost(w http.ResponseWriter, r *http.Request) {
	u, ok := principal(w, r)
	if !ok {
		return
	}

	postID, err := idParam(r, "postId")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid post id")
		return
	}

	if err := s.s.DeletePost(r.Context(), postID, u.ID); err != nil {
		s.writeServiceError(r, w, err, "failed to delete post")
		return
	}

	writeOK(w, http.StatusOK, OK{Success: true, Message: "post deleted successfully"})
}

func (s server) popularToday(w http.ResponseWriter, r *http.Request) {
	posts, err := s.s.PopularToday(r.Context())
	if err != nil {
		writeInternalError(r, w, "failed to get popular posts: "+err.Error())
		return
	}

	writeOK(w, http.StatusOK, PopularPostsResponse{Success: true, Posts: toAPIPosts(posts)})
}

func (s server) popularWeek(w http.ResponseWriter, r *http.Request) {
	posts, err := s.s.PopularWeek(r.Context())
	if err != nil {
		writeInternalError(r, w, "failed to get popular posts: "+err.Error())
		return
	}

	writeOK(w, http.StatusOK, PopularPostsResponse{Success: true, Posts: toAPIPosts(posts)})
}

func (s server) likePost(w http.ResponseWriter, r *http.Request) {
	s.postReaction(w, r, s.s.LikePost, "post liked successfully")
}

func (s server) unlikePost(w http.ResponseWriter, r *http.Request) {
	s.postReaction(w, r, s.s.UnlikePost, "post like removed successfully")
}

func (s server) dislikePost(w http.ResponseWriter, r *http.Request) {
	s.postReaction(w, r, s.s.DislikePost, "post disliked successfully")
}

func (s server) undislikePost(w http.ResponseWriter, r *http.Request) {
	s.postReaction(w, r, s.s.UndislikePost, "post dislike removed successfully")
}

func (s server) postReaction(w http.ResponseWriter, r *http.Request, f func(ctx context.Context, postID, userID int64) error, message string) {
	u, ok := principal(w, r)
	if !ok {
		return
	}

	postID, err := idParam(r, "postId")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid post id")
		return
	}

	if err := f(r.Context(), postID, u.ID); err != nil {
		s.writeServiceError(r, w, err, "failed to update reaction")
		return
	}

	writeOK(w, http.StatusOK, OK{Success: true, Message: message})
}
