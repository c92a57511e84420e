// Package mapper translates between the application's camelCase request
// shape and the snake_case persisted schema. The mapping is a fixed 1:1 key
// rename with no value transformation, so ToDomain(ToPersisted(r)) == r for
// any fully-populated record.
package mapper

import (
	"encoding/json"

	"github.com/mfrolov/promodesk/internal/model"
)

// Partial is a domain record with every field optional. ToPersisted emits a
// key only for fields that are set, which is what lets remote updates patch
// single columns without clobbering the rest of the row.
type Partial struct {
	ID             *string
	CreatedAt      *string
	UpdatedAt      *string
	RTMID          *string
	RTMName        *string
	RegionID       *string
	Branches       []model.BranchData
	Status         *model.RequestStatus
	ApprovedAmount *float64
	TMComment      *string
}

// FromRequest builds a fully-populated Partial from r. Optional domain
// fields that are unset stay unset in the Partial.
func FromRequest(r model.MarketingRequest) Partial {
	p := Partial{
		ID:        &r.ID,
		CreatedAt: &r.CreatedAt,
		UpdatedAt: &r.UpdatedAt,
		RTMID:     &r.RTMID,
		RTMName:   &r.RTMName,
		RegionID:  &r.RegionID,
		Branches:  r.Branches,
		Status:    &r.Status,
	}
	if r.ApprovedAmount != nil {
		p.ApprovedAmount = r.ApprovedAmount
	}
	if r.TMComment != nil {
		p.TMComment = r.TMComment
	}
	return p
}

// ToPersisted renames the set fields of p to their persisted column names.
// Absent fields produce no key at all, never a null.
func ToPersisted(p Partial) map[string]any {
	out := make(map[string]any)
	if p.ID != nil {
		out["id"] = *p.ID
	}
	if p.CreatedAt != nil {
		out["created_at"] = *p.CreatedAt
	}
	if p.UpdatedAt != nil {
		out["updated_at"] = *p.UpdatedAt
	}
	if p.RTMID != nil {
		out["rtm_id"] = *p.RTMID
	}
	if p.RTMName != nil {
		out["rtm_name"] = *p.RTMName
	}
	if p.RegionID != nil {
		out["region_id"] = *p.RegionID
	}
	if p.Branches != nil {
		out["branches"] = p.Branches
	}
	if p.Status != nil {
		out["status"] = string(*p.Status)
	}
	if p.ApprovedAmount != nil {
		out["approved_amount"] = *p.ApprovedAmount
	}
	if p.TMComment != nil {
		out["tm_comment"] = *p.TMComment
	}
	return out
}

// ToDomain maps a persisted record back to the application shape. It is
// total: absent or null optional columns map to unset domain fields, and
// malformed values degrade to their zero value rather than failing the whole
// record.
func ToDomain(rec map[string]any) model.MarketingRequest {
	r := model.MarketingRequest{
		ID:        getString(rec, "id"),
		CreatedAt: getString(rec, "created_at"),
		UpdatedAt: getString(rec, "updated_at"),
		RTMID:     getString(rec, "rtm_id"),
		RTMName:   getString(rec, "rtm_name"),
		RegionID:  getString(rec, "region_id"),
		Status:    model.RequestStatus(getString(rec, "status")),
		Branches:  decodeBranches(rec["branches"]),
	}
	if v, ok := getFloat(rec, "approved_amount"); ok {
		r.ApprovedAmount = &v
	}
	if v, ok := rec["tm_comment"].(string); ok {
		r.TMComment = &v
	}
	return r
}

func getString(m map[string]any, k string) string {
	s, _ := m[k].(string)
	return s
}

func getFloat(m map[string]any, k string) (float64, bool) {
	switch v := m[k].(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	case int:
		return float64(v), true
	}
	return 0, false
}

// decodeBranches accepts either an already-typed slice (in-process records)
// or the generic []any a JSON decode produces.
func decodeBranches(v any) []model.BranchData {
	switch b := v.(type) {
	case nil:
		return nil
	case []model.BranchData:
		return b
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return nil
		}
		var out []model.BranchData
		if err := json.Unmarshal(raw, &out); err != nil {
			return nil
		}
		return out
	}
}
