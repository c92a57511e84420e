// Package workflow defines the request status state machine: which status
// transitions are legal, which extra fields they require, and which roles
// may invoke them.
package workflow

import (
	"errors"

	"github.com/mfrolov/promodesk/internal/model"
)

var (
	// ErrIllegalTransition indicates the (from, to) pair is not an edge of
	// the state machine.
	ErrIllegalTransition = errors.New("illegal status transition")

	// ErrMissingApprovedAmount indicates a partial approval without the
	// approved amount that caps the requested total.
	ErrMissingApprovedAmount = errors.New("transition requires an approved amount")

	// ErrMissingComment indicates a transition that requires a territory
	// manager comment was invoked without one.
	ErrMissingComment = errors.New("transition requires a comment")

	// ErrActorNotAllowed indicates the acting role may not take this edge.
	ErrActorNotAllowed = errors.New("actor role not allowed for this transition")
)

// Extra carries the optional fields a transition may set. Once set on a
// request they are never cleared.
type Extra struct {
	ApprovedAmount *float64
	TMComment      *string
}

type edge struct {
	needsAmount  bool
	needsComment bool
	roles        []model.UserRole
}

// The full transition table. Any pair absent here is illegal.
var edges = map[model.RequestStatus]map[model.RequestStatus]edge{
	model.StatusPendingTM: {
		model.StatusApprovedTM: {roles: []model.UserRole{model.RoleTM}},
		model.StatusPartialTM:  {needsAmount: true, needsComment: true, roles: []model.UserRole{model.RoleTM}},
		model.StatusRejected:   {needsComment: true, roles: []model.UserRole{model.RoleTM}},
	},
	model.StatusApprovedTM: {
		model.StatusSigned: {roles: []model.UserRole{model.RoleAssistant, model.RoleFinance}},
	},
	model.StatusPartialTM: {
		model.StatusSigned: {roles: []model.UserRole{model.RoleAssistant, model.RoleFinance}},
	},
	model.StatusSigned: {
		model.StatusPaid: {roles: []model.UserRole{model.RoleFinance}},
	},
}

// Initial returns the status every new request must carry.
func Initial() model.RequestStatus {
	return model.StatusPendingTM
}

// Terminal reports whether no edge leaves s.
func Terminal(s model.RequestStatus) bool {
	return s == model.StatusRejected || s == model.StatusPaid
}

// Check validates a proposed transition before any state is touched. The
// role gate is skipped when role is empty (callers that have no actor
// context, e.g. internal reconciliation); ADMIN passes every gate.
func Check(from, to model.RequestStatus, extra Extra, role model.UserRole) error {
	if Terminal(from) {
		return ErrIllegalTransition
	}
	e, ok := edges[from][to]
	if !ok {
		return ErrIllegalTransition
	}
	if e.needsAmount && extra.ApprovedAmount == nil {
		return ErrMissingApprovedAmount
	}
	if e.needsComment && (extra.TMComment == nil || *extra.TMComment == "") {
		return ErrMissingComment
	}
	if role != "" && role != model.RoleAdmin && !roleAllowed(e.roles, role) {
		return ErrActorNotAllowed
	}
	return nil
}

func roleAllowed(allowed []model.UserRole, role model.UserRole) bool {
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}
