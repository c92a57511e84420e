package model

// RequestStatus is the workflow state of a marketing request.
type RequestStatus string

const (
	StatusPendingTM  RequestStatus = "PENDING_TM"
	StatusApprovedTM RequestStatus = "APPROVED_TM"
	StatusPartialTM  RequestStatus = "PARTIAL_TM"
	StatusRejected   RequestStatus = "REJECTED"
	StatusSigned     RequestStatus = "SIGNED"
	StatusPaid       RequestStatus = "PAID"
)

// TimeLayout renders timestamps as RFC3339 with millisecond precision.
// Whole-second formatting would make two mutations inside the same second
// carry equal updatedAt values and break their ordering.
const TimeLayout = "2006-01-02T15:04:05.000Z07:00"

// Valid reports whether s is one of the known workflow states.
func (s RequestStatus) Valid() bool {
	switch s {
	case StatusPendingTM, StatusApprovedTM, StatusPartialTM,
		StatusRejected, StatusSigned, StatusPaid:
		return true
	}
	return false
}

// BranchData is one itemized spend line of a request.
type BranchData struct {
	BranchID    string  `json:"branchId"`
	Amount      float64 `json:"amount"`
	PromoTypeID string  `json:"promoTypeId"`
	Comment     string  `json:"comment"`
}

// MarketingRequest is a branch-level promotional spend request.
//
// Timestamps are TimeLayout strings; CreatedAt is immutable, UpdatedAt is
// rewritten by the sync engine on every accepted mutation. ApprovedAmount
// and TMComment stay nil until the first transition that sets them.
type MarketingRequest struct {
	ID             string        `json:"id"`
	CreatedAt      string        `json:"createdAt"`
	UpdatedAt      string        `json:"updatedAt"`
	RTMID          string        `json:"rtmId"`
	RTMName        string        `json:"rtmName"`
	RegionID       string        `json:"regionId"`
	Branches       []BranchData  `json:"branches"`
	Status         RequestStatus `json:"status"`
	ApprovedAmount *float64      `json:"approvedAmount,omitempty"`
	TMComment      *string       `json:"tmComment,omitempty"`
}

// Clone returns a deep copy. The engine snapshots records before optimistic
// mutations and restores from the snapshot on rollback, so copies must not
// alias the original's branches or optional fields.
func (r MarketingRequest) Clone() MarketingRequest {
	out := r
	if r.Branches != nil {
		out.Branches = make([]BranchData, len(r.Branches))
		copy(out.Branches, r.Branches)
	}
	if r.ApprovedAmount != nil {
		v := *r.ApprovedAmount
		out.ApprovedAmount = &v
	}
	if r.TMComment != nil {
		v := *r.TMComment
		out.TMComment = &v
	}
	return out
}

// TotalAmount sums the branch spend lines. APPROVED_TM defaults its
// approved amount to this total.
func (r MarketingRequest) TotalAmount() float64 {
	var total float64
	for _, b := range r.Branches {
		total += b.Amount
	}
	return total
}

// CloneRequests deep-copies a collection, preserving order.
func CloneRequests(in []MarketingRequest) []MarketingRequest {
	if in == nil {
		return nil
	}
	out := make([]MarketingRequest, len(in))
	for i, r := range in {
		out[i] = r.Clone()
	}
	return out
}
