package model

// Recommendation is a candidate chore. AssignedPartnerID is recomputed on
// every request and never persisted.
type Recommendation struct {
	ID                string `json:"id"`
	Title             string `json:"title"`
	Points            int    `json:"points"`
	Category          string `json:"category"`
	Room              string `json:"room"`
	AssignedPartnerID string `json:"assigned_partner_id"`
}
