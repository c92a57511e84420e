package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/mfrolov/promodesk/internal/auth"
	"github.com/mfrolov/promodesk/internal/engine"
	"github.com/mfrolov/promodesk/internal/model"
	"github.com/mfrolov/promodesk/internal/workflow"
)

type listResponse struct {
	Requests []model.MarketingRequest `json:"requests"`
	Syncing  bool                     `json:"syncing"`
}

type createRequestBody struct {
	ID       string             `json:"id,omitempty"`
	RegionID string             `json:"regionId"`
	Branches []model.BranchData `json:"branches"`
}

type transitionBody struct {
	Status         model.RequestStatus `json:"status"`
	ApprovedAmount *float64            `json:"approvedAmount,omitempty"`
	TMComment      *string             `json:"tmComment,omitempty"`
}

// ListRequests handles GET /v1/requests: a snapshot of the engine's
// collection in canonical order, plus the syncing flag for UI feedback.
func (s *Server) ListRequests(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, listResponse{
		Requests: s.Engine.Snapshot(),
		Syncing:  s.Engine.Syncing(),
	})
}

// CreateRequest handles POST /v1/requests. The submitting manager comes
// from the session; the id is creator-generated (a fresh UUID when the
// client does not supply one). The response is the optimistically-applied
// record; remote confirmation resolves asynchronously.
func (s *Server) CreateRequest(w http.ResponseWriter, r *http.Request) {
	sess, _ := auth.FromContext(r.Context())
	if sess.Role != model.RoleRTM && sess.Role != model.RoleAdmin {
		writeError(w, http.StatusForbidden, "only regional managers submit requests")
		return
	}

	var body createRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if body.RegionID == "" {
		writeError(w, http.StatusBadRequest, "regionId is required")
		return
	}
	if len(body.Branches) == 0 {
		writeError(w, http.StatusBadRequest, "at least one branch line is required")
		return
	}

	id := body.ID
	if id == "" {
		id = uuid.NewString()
	} else if _, err := uuid.Parse(id); err != nil {
		writeError(w, http.StatusBadRequest, "id must be a uuid")
		return
	}

	now := s.now().UTC().Format(model.TimeLayout)
	req := model.MarketingRequest{
		ID:        id,
		CreatedAt: now,
		UpdatedAt: now,
		RTMID:     sess.UserID,
		RTMName:   sess.Name,
		RegionID:  body.RegionID,
		Branches:  body.Branches,
		Status:    workflow.Initial(),
	}

	if err := s.Engine.Create(r.Context(), req); err != nil {
		switch {
		case errors.Is(err, engine.ErrDuplicateID):
			writeError(w, http.StatusConflict, err.Error())
		case errors.Is(err, engine.ErrStopped):
			writeError(w, http.StatusServiceUnavailable, err.Error())
		default:
			writeError(w, http.StatusBadRequest, err.Error())
		}
		return
	}

	log.Info().Str("id", id).Str("rtm", sess.UserID).Msg("request submitted")
	writeJSON(w, http.StatusAccepted, req)
}

// TransitionRequest handles POST /v1/requests/{id}/transition. The acting
// role comes from the session and is enforced by the workflow. Approving in
// full without an amount defaults the approved amount to the requested
// total, by convention.
func (s *Server) TransitionRequest(w http.ResponseWriter, r *http.Request) {
	sess, _ := auth.FromContext(r.Context())
	id := chi.URLParam(r, "id")

	var body transitionBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if !body.Status.Valid() {
		writeError(w, http.StatusBadRequest, "unknown status")
		return
	}

	extra := workflow.Extra{
		ApprovedAmount: body.ApprovedAmount,
		TMComment:      body.TMComment,
	}
	if body.Status == model.StatusApprovedTM && extra.ApprovedAmount == nil {
		for _, req := range s.Engine.Snapshot() {
			if req.ID == id {
				total := req.TotalAmount()
				extra.ApprovedAmount = &total
				break
			}
		}
	}

	err := s.Engine.Transition(r.Context(), id, body.Status, extra, sess.Role)
	if err != nil {
		switch {
		case errors.Is(err, engine.ErrUnknownRequest):
			writeError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, workflow.ErrActorNotAllowed):
			writeError(w, http.StatusForbidden, err.Error())
		case errors.Is(err, engine.ErrStopped):
			writeError(w, http.StatusServiceUnavailable, err.Error())
		default:
			writeError(w, http.StatusUnprocessableEntity, err.Error())
		}
		return
	}

	log.Info().Str("id", id).Str("to", string(body.Status)).Str("actor", sess.UserID).Msg("transition accepted")
	w.WriteHeader(http.StatusAccepted)
}

// GetReference handles GET /v1/reference: the static configuration the
// forms need, with credentials stripped.
func (s *Server) GetReference(w http.ResponseWriter, r *http.Request) {
	ref := s.Reference
	users := make([]model.User, len(ref.Users))
	for i, u := range ref.Users {
		u.Password = ""
		users[i] = u
	}
	ref.Users = users
	writeJSON(w, http.StatusOK, ref)
}

// ResetCache handles POST /v1/cache/reset (admin only): drops the cached
// collection so the next offline start falls back to the built-in seed.
func (s *Server) ResetCache(w http.ResponseWriter, r *http.Request) {
	sess, _ := auth.FromContext(r.Context())
	if sess.Role != model.RoleAdmin {
		writeError(w, http.StatusForbidden, "admin only")
		return
	}
	if s.Cache != nil {
		if err := s.Cache.Reset(); err != nil {
			log.Error().Err(err).Msg("cache reset failed")
			writeError(w, http.StatusInternalServerError, "cache reset failed")
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

// now allows tests to pin timestamps; defaults to the wall clock.
func (s *Server) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
