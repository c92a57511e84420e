package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/mfrolov/promodesk/internal/auth"
	"github.com/mfrolov/promodesk/internal/model"
)

type loginBody struct {
	UserID   string `json:"userId"`
	Password string `json:"password"`
	Remember bool   `json:"remember"`
}

type loginResponse struct {
	Token string     `json:"token"`
	User  model.User `json:"user"`
}

// Login handles POST /v1/session: checks the credentials against the
// configured user list and mints a role-tagged session token. With
// remember set, the user is also written to the local cache so the next
// start can restore the session offline.
func (s *Server) Login(w http.ResponseWriter, r *http.Request) {
	var body loginBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	var user *model.User
	for i := range s.Reference.Users {
		u := s.Reference.Users[i]
		if u.ID == body.UserID && u.Password != "" && u.Password == body.Password {
			user = &u
			break
		}
	}
	if user == nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	tok, err := auth.Mint(s.JWT, *user)
	if err != nil {
		log.Error().Err(err).Msg("failed to mint session token")
		writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	if body.Remember && s.Cache != nil {
		remembered := *user
		remembered.Password = ""
		if err := s.Cache.PutSession(&remembered); err != nil {
			log.Warn().Err(err).Msg("failed to remember session")
		}
	}

	resp := loginResponse{Token: tok, User: *user}
	resp.User.Password = ""
	log.Info().Str("user", user.ID).Str("role", string(user.Role)).Msg("session created")
	writeJSON(w, http.StatusCreated, resp)
}

// Restore handles GET /v1/session: re-establishes the session from the
// remembered user in the local cache, minting a fresh token. This is the
// auto-login a client performs on startup before it has any token, so the
// route is unauthenticated; 404 means nothing is remembered and the client
// must show the login form.
func (s *Server) Restore(w http.ResponseWriter, r *http.Request) {
	if s.Cache == nil {
		writeError(w, http.StatusNotFound, "no remembered session")
		return
	}
	user, ok := s.Cache.Session()
	if !ok {
		writeError(w, http.StatusNotFound, "no remembered session")
		return
	}

	tok, err := auth.Mint(s.JWT, *user)
	if err != nil {
		log.Error().Err(err).Msg("failed to mint session token")
		writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	log.Info().Str("user", user.ID).Str("role", string(user.Role)).Msg("session restored from cache")
	writeJSON(w, http.StatusOK, loginResponse{Token: tok, User: *user})
}

// Logout handles DELETE /v1/session: forgets any remembered session. The
// token itself simply expires; there is no server-side session state.
func (s *Server) Logout(w http.ResponseWriter, r *http.Request) {
	if s.Cache != nil {
		if err := s.Cache.ClearSession(); err != nil {
			log.Warn().Err(err).Msg("failed to clear remembered session")
		}
	}
	w.WriteHeader(http.StatusNoContent)
}
