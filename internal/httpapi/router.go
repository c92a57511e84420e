// Package httpapi is the thin presentation surface over the sync engine:
// handlers decode, call an engine or cache operation, and render the result.
// They never mutate engine state directly.
package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/mfrolov/promodesk/internal/auth"
	"github.com/mfrolov/promodesk/internal/cache"
	"github.com/mfrolov/promodesk/internal/engine"
	"github.com/mfrolov/promodesk/internal/model"
)

// Server holds dependencies for HTTP handlers
type Server struct {
	Engine    *engine.Engine
	Cache     *cache.Cache
	Reference model.Reference
	JWT       auth.JWTCfg

	// Now overrides the handler clock in tests; nil means time.Now.
	Now func() time.Time
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode json response")
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, errorResponse{Error: msg})
}

// Routes creates the HTTP router
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check (unauthenticated)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(200)
		w.Write([]byte("ok"))
	})

	// Login and restore run before the client has a token
	r.Post("/v1/session", s.Login)
	r.Get("/v1/session", s.Restore)

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(s.JWT))

		r.Delete("/v1/session", s.Logout)

		r.Get("/v1/requests", s.ListRequests)
		r.Post("/v1/requests", s.CreateRequest)
		r.Post("/v1/requests/{id}/transition", s.TransitionRequest)

		r.Get("/v1/reference", s.GetReference)
		r.Post("/v1/cache/reset", s.ResetCache)
	})

	log.Info().Msg("HTTP routes registered")
	return r
}
