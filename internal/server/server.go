// Package server CloudStory
//
// The CloudStory backend serves users, posts, comments, reactions and files
// of a social blogging platform.
//
//     Schemes: https
//     BasePath: /api
//
//     Produces:
//     - application/json
//     Consumes:
//     - application/json
//
// swagger:meta
package server

import (
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/cors"

	"github.com/cloudstory/cloudstory/internal/auth"
	mm "github.com/cloudstory/cloudstory/internal/middleware"
	"github.com/cloudstory/cloudstory/internal/service"
)

const maxMultipartMemory = 32 << 20

const popularCacheTTL = time.Minute

// Files stores uploaded files and resolves them back to disk locations.
type Files interface {
	Store(data []byte, originalName string) (string, error)
	Resolve(name string) (string, error)
}

type server struct {
	s      service.Service
	tokens *auth.Tokens
	files  Files
}

// SetupRouter setups handlers to chi router.
func SetupRouter(s service.Service, tokens *auth.Tokens, files Files, r chi.Router, timeout time.Duration) {
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		mm.Logger,
		middleware.StripSlashes,
		cors.AllowAll().Handler,
		mm.Recoverer,
		middleware.Timeout(timeout),
		mm.Authenticate(tokens, s),
		mm.Authorize(mm.DefaultRules()),
	)

	srv := server{
		s:      s,
		tokens: tokens,
		files:  files,
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/users", func(r chi.Router) {
			r.Post("/register", srv.register)
			r.Post("/login", srv.login)
			r.Post("/check-email", srv.checkEmail)
			r.Get("/check-nickname", srv.checkNickname)
			r.Post("/verify-email", srv.verifyEmail)
			r.Put("/update", srv.updateUser)
			r.Delete("/delete", srv.deleteUser)
			r.Get("/images/{fileName}", srv.downloadFile)
		})

		r.Route("/posts", func(r chi.Router) {
			r.Post("/", srv.createPost)
			r.Get("/", srv.listPosts)
			r.Get("/popular/today", mm.Cached(popularCacheTTL, srv.popularToday))
			r.Get("/popular/week", mm.Cached(popularCacheTTL, srv.popularWeek))

			r.Route("/{postId}", func(r chi.Router) {
				r.Get("/", srv.getPost)
				r.Put("/", srv.updatePost)
				r.Delete("/", srv.deletePost)

				r.Post("/like", srv.likePost)
				r.Delete("/like", srv.unlikePost)
				r.Post("/dislike", srv.dislikePost)
				r.Delete("/dislike", srv.undislikePost)

				r.Route("/comments", func(r chi.Router) {
					r.Get("/", srv.listComments)
					r.Post("/", srv.addComment)

					r.Route("/{commentId}", func(r chi.Router) {
						r.Put("/", srv.updateComment)
						r.Delete("/", srv.deleteComment)

						r.Post("/like", srv.likeComment)
						r.Delete("/like", srv.unlikeComment)
						r.Post("/dislike", srv.dislikeComment)
						r.Delete("/dislike", srv.undislikeComment)
					})
				})
			})
		})

		r.Route("/files", func(r chi.Router) {
			r.Post("/upload", srv.uploadFile)
			r.Get("/uploads/{fileName}", srv.downloadFile)
		})
	})
}
