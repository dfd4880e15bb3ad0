package model

import "time"

// Partner is a household member who can be assigned chores and vote on
// adjustment requests. Share and ConditionScore are derived by the fairness
// package and never stored.
type Partner struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Color      string   `json:"color"`
	Accent     string   `json:"accent"`
	InviteCode string   `json:"invite_code"`
	Favorites  []string `json:"favorites"`
	// Condition is a free-text description supplied by the roster.
	Condition      string    `json:"condition,omitempty"`
	ConditionScore *int      `json:"condition_score,omitempty"`
	Share          int       `json:"share"`
	HasPIN         bool      `json:"has_pin"`
	SortOrder      int       `json:"sort_order"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// PartnerIDs returns the ids of partners in roster order.
func PartnerIDs(partners []Partner) []string {
	ids := make([]string, 0, len(partners))
	for _, p := range partners {
		ids = append(ids, p.ID)
	}
	return ids
}
