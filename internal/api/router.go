package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter wires the operator surface. It is meant to be bound to a
// local or otherwise trusted interface; user identity comes from the chat
// platform, so there is no login here.
func NewRouter(apiHandler *APIHandler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)       // Basic request logging
	r.Use(middleware.Recoverer)    // Recover from panics
	r.Use(middleware.StripSlashes) // Ensure consistent path handling

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"status":"ok"}`))
		})

		r.Get("/users/{userID}/session", apiHandler.GetSessionHandler)
		r.Delete("/users/{userID}/session", apiHandler.ClearSessionHandler)
		r.Get("/users/{userID}/likes", apiHandler.ListLikesHandler)
	})

	return r
}
