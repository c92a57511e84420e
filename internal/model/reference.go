package model

// UserRole tags a user with their place in the approval chain. Role checks
// beyond workflow gating are a presentation concern.
type UserRole string

const (
	RoleRTM       UserRole = "RTM"
	RoleTM        UserRole = "TM"
	RoleAssistant UserRole = "ASSISTANT"
	RoleFinance   UserRole = "FINANCE"
	RoleAdmin     UserRole = "ADMIN"
)

// Valid reports whether r is a known role.
func (r UserRole) Valid() bool {
	switch r {
	case RoleRTM, RoleTM, RoleAssistant, RoleFinance, RoleAdmin:
		return true
	}
	return false
}

// User is static reference data: an account that may submit or act on
// requests. RegionIDs is empty for roles that span all regions.
type User struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Role      UserRole `json:"role"`
	RegionIDs []string `json:"regionIds,omitempty"`
	Password  string   `json:"password,omitempty"`
}

// Region is static reference data.
type Region struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Branch is static reference data: a sales branch within a region.
type Branch struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	RegionID string `json:"regionId"`
}

// PromoType is static reference data: a kind of promotional activity.
type PromoType struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Reference bundles the static data the engine treats as fixed
// configuration. It has no lifecycle in the sync core.
type Reference struct {
	Users      []User      `json:"users"`
	Regions    []Region    `json:"regions"`
	Branches   []Branch    `json:"branches"`
	PromoTypes []PromoType `json:"promoTypes"`
}

// DefaultReference returns the built-in reference set used when no external
// configuration supplies one.
func DefaultReference() Reference {
	return Reference{
		Users: []User{
			{ID: "u-rtm-1", Name: "Anna Petrova", Role: RoleRTM, RegionIDs: []string{"r-central"}, Password: "rtm1"},
			{ID: "u-rtm-2", Name: "Ivan Smirnov", Role: RoleRTM, RegionIDs: []string{"r-north"}, Password: "rtm2"},
			{ID: "u-tm-1", Name: "Olga Ivanova", Role: RoleTM, RegionIDs: []string{"r-central", "r-north"}, Password: "tm1"},
			{ID: "u-asst-1", Name: "Pavel Orlov", Role: RoleAssistant, Password: "asst1"},
			{ID: "u-fin-1", Name: "Maria Volkova", Role: RoleFinance, Password: "fin1"},
			{ID: "u-admin-1", Name: "Admin", Role: RoleAdmin, Password: "admin"},
		},
		Regions: []Region{
			{ID: "r-central", Name: "Central"},
			{ID: "r-north", Name: "North"},
		},
		Branches: []Branch{
			{ID: "b-101", Name: "Central Plaza", RegionID: "r-central"},
			{ID: "b-102", Name: "Central Station", RegionID: "r-central"},
			{ID: "b-201", Name: "North Mall", RegionID: "r-north"},
		},
		PromoTypes: []PromoType{
			{ID: "p-taste", Name: "Tasting"},
			{ID: "p-disc", Name: "Discount"},
			{ID: "p-pos", Name: "POS Materials"},
		},
	}
}

// SeedRequests is the fallback collection used only when both the remote
// store and the local cache are empty or unreachable on first refresh.
func SeedRequests() []MarketingRequest {
	return []MarketingRequest{
		{
			ID:        "seed-0001",
			CreatedAt: "2025-01-10T09:00:00Z",
			UpdatedAt: "2025-01-10T09:00:00Z",
			RTMID:     "u-rtm-1",
			RTMName:   "Anna Petrova",
			RegionID:  "r-central",
			Branches: []BranchData{
				{BranchID: "b-101", Amount: 15000, PromoTypeID: "p-taste", Comment: "Weekend tasting"},
				{BranchID: "b-102", Amount: 8000, PromoTypeID: "p-pos", Comment: "Shelf displays"},
			},
			Status: StatusPendingTM,
		},
	}
}
