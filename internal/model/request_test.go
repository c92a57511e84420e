package model

import "testing"

func TestCloneDoesNotAlias(t *testing.T) {
	amount := 1000.0
	comment := "ok"
	orig := MarketingRequest{
		ID:     "r-1",
		Status: StatusPartialTM,
		Branches: []BranchData{
			{BranchID: "b-101", Amount: 500},
		},
		ApprovedAmount: &amount,
		TMComment:      &comment,
	}

	cp := orig.Clone()
	cp.Branches[0].Amount = 999
	*cp.ApprovedAmount = 1
	*cp.TMComment = "changed"

	if orig.Branches[0].Amount != 500 {
		t.Error("Clone aliased the branches slice")
	}
	if *orig.ApprovedAmount != 1000 {
		t.Error("Clone aliased the approved amount")
	}
	if *orig.TMComment != "ok" {
		t.Error("Clone aliased the comment")
	}
}

func TestCloneRequestsPreservesOrder(t *testing.T) {
	in := []MarketingRequest{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	out := CloneRequests(in)
	if len(out) != 3 || out[0].ID != "a" || out[2].ID != "c" {
		t.Errorf("order changed: %+v", out)
	}
	out[1].ID = "mutated"
	if in[1].ID != "b" {
		t.Error("CloneRequests aliased the input")
	}
	if CloneRequests(nil) != nil {
		t.Error("nil collection should clone to nil")
	}
}

func TestTotalAmount(t *testing.T) {
	r := MarketingRequest{Branches: []BranchData{
		{Amount: 1200.50}, {Amount: 799.50}, {Amount: 3000},
	}}
	if got := r.TotalAmount(); got != 5000 {
		t.Errorf("TotalAmount = %v, want 5000", got)
	}
	if (MarketingRequest{}).TotalAmount() != 0 {
		t.Error("empty request should total zero")
	}
}
