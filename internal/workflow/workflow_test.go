package workflow

import (
	"errors"
	"testing"

	"github.com/mfrolov/promodesk/internal/model"
)

func ptr[T any](v T) *T { return &v }

func TestCheckLegalEdges(t *testing.T) {
	amount := ptr(5000.0)
	comment := ptr("capped to Q1 budget")

	tests := []struct {
		name  string
		from  model.RequestStatus
		to    model.RequestStatus
		extra Extra
		role  model.UserRole
	}{
		{"tm approves", model.StatusPendingTM, model.StatusApprovedTM, Extra{}, model.RoleTM},
		{"tm partially approves", model.StatusPendingTM, model.StatusPartialTM, Extra{ApprovedAmount: amount, TMComment: comment}, model.RoleTM},
		{"tm rejects", model.StatusPendingTM, model.StatusRejected, Extra{TMComment: comment}, model.RoleTM},
		{"assistant signs approved", model.StatusApprovedTM, model.StatusSigned, Extra{}, model.RoleAssistant},
		{"finance signs partial", model.StatusPartialTM, model.StatusSigned, Extra{}, model.RoleFinance},
		{"finance pays", model.StatusSigned, model.StatusPaid, Extra{}, model.RoleFinance},
		{"admin can take any edge", model.StatusSigned, model.StatusPaid, Extra{}, model.RoleAdmin},
		{"no role skips the gate", model.StatusPendingTM, model.StatusApprovedTM, Extra{}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := Check(tt.from, tt.to, tt.extra, tt.role); err != nil {
				t.Errorf("Check(%s -> %s) = %v, want nil", tt.from, tt.to, err)
			}
		})
	}
}

func TestCheckIllegalEdges(t *testing.T) {
	all := []model.RequestStatus{
		model.StatusPendingTM, model.StatusApprovedTM, model.StatusPartialTM,
		model.StatusRejected, model.StatusSigned, model.StatusPaid,
	}

	legal := map[[2]model.RequestStatus]bool{
		{model.StatusPendingTM, model.StatusApprovedTM}: true,
		{model.StatusPendingTM, model.StatusPartialTM}:  true,
		{model.StatusPendingTM, model.StatusRejected}:   true,
		{model.StatusApprovedTM, model.StatusSigned}:    true,
		{model.StatusPartialTM, model.StatusSigned}:     true,
		{model.StatusSigned, model.StatusPaid}:          true,
	}

	// Exhaustive sweep with all extras supplied, so the only possible
	// rejection is the edge itself.
	extra := Extra{ApprovedAmount: ptr(1.0), TMComment: ptr("x")}
	for _, from := range all {
		for _, to := range all {
			err := Check(from, to, extra, model.RoleAdmin)
			if legal[[2]model.RequestStatus{from, to}] {
				if err != nil {
					t.Errorf("Check(%s -> %s) = %v, want nil", from, to, err)
				}
			} else if !errors.Is(err, ErrIllegalTransition) {
				t.Errorf("Check(%s -> %s) = %v, want ErrIllegalTransition", from, to, err)
			}
		}
	}
}

func TestCheckRequiredExtras(t *testing.T) {
	tests := []struct {
		name    string
		to      model.RequestStatus
		extra   Extra
		wantErr error
	}{
		{"partial without amount", model.StatusPartialTM, Extra{TMComment: ptr("half")}, ErrMissingApprovedAmount},
		{"partial without comment", model.StatusPartialTM, Extra{ApprovedAmount: ptr(100.0)}, ErrMissingComment},
		{"reject without comment", model.StatusRejected, Extra{}, ErrMissingComment},
		{"reject with empty comment", model.StatusRejected, Extra{TMComment: ptr("")}, ErrMissingComment},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Check(model.StatusPendingTM, tt.to, tt.extra, model.RoleTM)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Check = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCheckRoleGate(t *testing.T) {
	tests := []struct {
		name string
		from model.RequestStatus
		to   model.RequestStatus
		role model.UserRole
	}{
		{"rtm cannot approve", model.StatusPendingTM, model.StatusApprovedTM, model.RoleRTM},
		{"tm cannot sign", model.StatusApprovedTM, model.StatusSigned, model.RoleTM},
		{"assistant cannot pay", model.StatusSigned, model.StatusPaid, model.RoleAssistant},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Check(tt.from, tt.to, Extra{}, tt.role)
			if !errors.Is(err, ErrActorNotAllowed) {
				t.Errorf("Check = %v, want ErrActorNotAllowed", err)
			}
		})
	}
}

func TestTerminal(t *testing.T) {
	if !Terminal(model.StatusRejected) || !Terminal(model.StatusPaid) {
		t.Error("REJECTED and PAID must be terminal")
	}
	if Terminal(model.StatusPendingTM) || Terminal(model.StatusSigned) {
		t.Error("non-terminal status reported terminal")
	}
	if Initial() != model.StatusPendingTM {
		t.Errorf("Initial() = %s, want PENDING_TM", Initial())
	}

	// A terminal from-state short-circuits Check regardless of edge.
	for _, s := range []model.RequestStatus{model.StatusRejected, model.StatusPaid} {
		err := Check(s, model.StatusPendingTM, Extra{}, model.RoleAdmin)
		if !errors.Is(err, ErrIllegalTransition) {
			t.Errorf("Check from terminal %s = %v, want ErrIllegalTransition", s, err)
		}
	}
}
